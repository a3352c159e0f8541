package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/agendaly/agendaly/internal/availability"
	"github.com/agendaly/agendaly/internal/identity"
	"github.com/agendaly/agendaly/internal/model"
	"github.com/agendaly/agendaly/internal/outbox"
	"github.com/agendaly/agendaly/internal/storage"
)

type BookingHandler struct {
	booking    *storage.BookingRepository
	schedule   *storage.ScheduleRepository
	outboxRepo *outbox.Repository
	logger     *slog.Logger
}

func NewBookingHandler(booking *storage.BookingRepository, schedule *storage.ScheduleRepository, outboxRepo *outbox.Repository, logger *slog.Logger) *BookingHandler {
	return &BookingHandler{
		booking:    booking,
		schedule:   schedule,
		outboxRepo: outboxRepo,
		logger:     logger,
	}
}

type createAppointmentRequest struct {
	BusinessID     string   `json:"business_id"`
	ProfessionalID string   `json:"professional_id"`
	ServiceIDs     []string `json:"service_ids"`
	ClientID       string   `json:"client_id"`
	ClientName     string   `json:"client_name"`
	ClientEmail    string   `json:"client_email"`
	ClientPhone    string   `json:"client_phone"`
	StartTime      string   `json:"start_time"`
}

type serviceLineItem struct {
	ServiceID       string `json:"service_id"`
	Name            string `json:"name"`
	DurationMinutes int    `json:"duration_minutes"`
	Price           string `json:"price"`
}

type appointmentResponse struct {
	AppointmentID  string            `json:"appointment_id"`
	BusinessID     string            `json:"business_id"`
	ProfessionalID string            `json:"professional_id"`
	Services       []serviceLineItem `json:"services"`
	StartTime      string            `json:"start_time"`
	EndTime        string            `json:"end_time"`
	Status         string            `json:"status"`
	TotalPrice     string            `json:"total_price"`
	CancelledAt    string            `json:"cancelled_at,omitempty"`
	CancelReason   string            `json:"cancel_reason,omitempty"`
	CompletedAt    string            `json:"completed_at,omitempty"`
}

type slotItem struct {
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

// Slots lists available start times for one professional on one date.
// GET /slots?business_id=&professional_id=&date=YYYY-MM-DD&service_ids=a,b
func (h *BookingHandler) Slots(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	businessID := strings.TrimSpace(r.URL.Query().Get("business_id"))
	professionalID := strings.TrimSpace(r.URL.Query().Get("professional_id"))
	dateStr := strings.TrimSpace(r.URL.Query().Get("date"))
	serviceIDs := splitServiceIDs(r.URL.Query().Get("service_ids"))
	if businessID == "" || professionalID == "" || dateStr == "" || len(serviceIDs) == 0 {
		writeError(w, model.Validationf("business_id, professional_id, date, and service_ids are required"))
		return
	}
	if _, err := time.Parse("2006-01-02", dateStr); err != nil {
		writeError(w, model.Validationf("date must be YYYY-MM-DD"))
		return
	}

	ctx := r.Context()

	profile, err := h.schedule.GetProfile(ctx, businessID)
	if err != nil {
		if storage.IsNotFound(err) {
			http.Error(w, "business not found", http.StatusNotFound)
			return
		}
		http.Error(w, "failed to load business profile", http.StatusInternalServerError)
		return
	}
	loc, err := time.LoadLocation(profile.Timezone)
	if err != nil {
		h.logger.Error("business profile has invalid timezone", "business_id", businessID, "timezone", profile.Timezone)
		http.Error(w, "business timezone is misconfigured", http.StatusInternalServerError)
		return
	}

	pro, err := h.schedule.GetProfessional(ctx, businessID, professionalID)
	if err != nil {
		if storage.IsNotFound(err) {
			http.Error(w, "professional not found", http.StatusNotFound)
			return
		}
		http.Error(w, "failed to load professional", http.StatusInternalServerError)
		return
	}
	if !pro.IsActive {
		writeEmptySlots(w)
		return
	}

	lines, err := h.schedule.ResolveServicesForProfessional(ctx, businessID, professionalID, serviceIDs)
	if err != nil {
		if storage.IsNotFound(err) {
			writeError(w, model.Validationf("unknown or inactive service for this professional"))
			return
		}
		http.Error(w, "failed to resolve services", http.StatusInternalServerError)
		return
	}
	duration := totalDuration(lines)
	if duration <= 0 {
		writeError(w, model.Validationf("services have no duration"))
		return
	}

	calendar, err := h.schedule.GetCalendar(ctx, businessID, professionalID)
	if err != nil {
		http.Error(w, "failed to load working hours", http.StatusInternalServerError)
		return
	}

	date, _ := time.ParseInLocation("2006-01-02", dateStr, loc)
	windowStart, windowEnd, open := calendar.WindowOn(date, loc)
	if !open {
		writeEmptySlots(w)
		return
	}

	busy, err := h.busyIntervals(r, businessID, professionalID, windowStart, windowEnd)
	if err != nil {
		http.Error(w, "failed to load busy intervals", http.StatusInternalServerError)
		return
	}

	starts := availability.AvailableSlots(windowStart, windowEnd, duration, availability.SlotStep, busy)
	resp := make([]slotItem, 0, len(starts))
	for _, s := range starts {
		resp = append(resp, slotItem{
			StartTime: s.UTC().Format(time.RFC3339),
			EndTime:   s.Add(duration).UTC().Format(time.RFC3339),
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *BookingHandler) busyIntervals(r *http.Request, businessID, professionalID string, from, to time.Time) ([]availability.Interval, error) {
	ctx := r.Context()
	busy, err := h.booking.ListBusyIntervals(ctx, businessID, professionalID, from, to)
	if err != nil {
		return nil, err
	}
	offs, err := h.schedule.ListTimeOffIntervals(ctx, businessID, professionalID, from, to)
	if err != nil {
		return nil, err
	}
	for _, t := range offs {
		busy = append(busy, availability.Interval{Start: t.StartTime, End: t.EndTime})
	}
	return busy, nil
}

// Create books an appointment. The whole operation runs in one transaction
// so a conflicting concurrent booking either blocks on the row lock or trips
// the overlap exclusion constraint; either way exactly one booking wins.
func (h *BookingHandler) Create(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req createAppointmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.BusinessID = strings.TrimSpace(req.BusinessID)
	req.ProfessionalID = strings.TrimSpace(req.ProfessionalID)
	req.ClientName = strings.TrimSpace(req.ClientName)
	if req.BusinessID == "" || req.ProfessionalID == "" || req.ClientName == "" {
		writeError(w, model.Validationf("business_id, professional_id, and client_name are required"))
		return
	}
	if len(req.ServiceIDs) == 0 {
		writeError(w, model.Validationf("at least one service_id is required"))
		return
	}
	startTime, err := time.Parse(time.RFC3339, req.StartTime)
	if err != nil {
		writeError(w, model.Validationf("invalid start_time"))
		return
	}

	ctx := r.Context()
	tx, err := h.booking.Begin(ctx)
	if err != nil {
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}
	defer func() { _ = tx.Rollback(ctx) }()

	idempotencyKey := strings.TrimSpace(r.Header.Get("Idempotency-Key"))
	if idempotencyKey != "" {
		rec, done, err := h.booking.LockIdempotencyKey(ctx, tx, req.BusinessID, idempotencyKey)
		if err != nil {
			http.Error(w, "failed to lock idempotency key", http.StatusInternalServerError)
			return
		}
		if done {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(rec.StatusCode)
			_, _ = w.Write(rec.ResponsePayload)
			return
		}
	}

	profile, err := h.schedule.GetProfile(ctx, req.BusinessID)
	if err != nil {
		if storage.IsNotFound(err) {
			http.Error(w, "business not found", http.StatusNotFound)
			return
		}
		http.Error(w, "failed to load business profile", http.StatusInternalServerError)
		return
	}
	loc, err := time.LoadLocation(profile.Timezone)
	if err != nil {
		http.Error(w, "business timezone is misconfigured", http.StatusInternalServerError)
		return
	}

	pro, err := h.schedule.GetProfessional(ctx, req.BusinessID, req.ProfessionalID)
	if err != nil {
		if storage.IsNotFound(err) {
			http.Error(w, "professional not found", http.StatusNotFound)
			return
		}
		http.Error(w, "failed to load professional", http.StatusInternalServerError)
		return
	}
	if !pro.IsActive {
		writeError(w, model.Validationf("professional is not accepting appointments"))
		return
	}

	lines, err := h.schedule.ResolveServicesForProfessional(ctx, req.BusinessID, req.ProfessionalID, req.ServiceIDs)
	if err != nil {
		if storage.IsNotFound(err) {
			writeError(w, model.Validationf("unknown or inactive service for this professional"))
			return
		}
		http.Error(w, "failed to resolve services", http.StatusInternalServerError)
		return
	}

	appt := &model.Appointment{
		ID:             uuid.NewString(),
		BusinessID:     req.BusinessID,
		ProfessionalID: req.ProfessionalID,
		ClientID:       strings.TrimSpace(req.ClientID),
		ClientName:     req.ClientName,
		ClientEmail:    strings.TrimSpace(req.ClientEmail),
		ClientPhone:    strings.TrimSpace(req.ClientPhone),
		Services:       lines,
		StartTime:      startTime,
		Status:         model.StatusScheduled,
	}
	duration := appt.TotalDuration()
	if duration <= 0 {
		writeError(w, model.Validationf("services have no duration"))
		return
	}
	appt.EndTime = startTime.Add(duration)

	totalPrice, err := sumPrices(lines)
	if err != nil {
		http.Error(w, "service price is malformed", http.StatusInternalServerError)
		return
	}
	appt.TotalPrice = totalPrice

	calendar, err := h.schedule.GetCalendar(ctx, req.BusinessID, req.ProfessionalID)
	if err != nil {
		http.Error(w, "failed to load working hours", http.StatusInternalServerError)
		return
	}
	windowStart, windowEnd, open := calendar.WindowOn(startTime, loc)
	if !open {
		h.rejectBooking(w, r, tx, req.BusinessID, idempotencyKey, "professional does not work on that day")
		return
	}
	if startTime.Before(windowStart) || appt.EndTime.After(windowEnd) {
		h.rejectBooking(w, r, tx, req.BusinessID, idempotencyKey, "requested time is outside working hours")
		return
	}
	if !availability.Aligned(startTime, windowStart, availability.SlotStep) {
		h.rejectBooking(w, r, tx, req.BusinessID, idempotencyKey, "start_time is not aligned to the slot grid")
		return
	}

	overlapping, err := h.booking.LockOverlapping(ctx, tx, req.ProfessionalID, startTime, appt.EndTime)
	if err != nil {
		http.Error(w, "failed to check for conflicts", http.StatusInternalServerError)
		return
	}
	if overlapping {
		writeError(w, model.ErrConflict)
		return
	}
	blocked, err := h.booking.TimeOffOverlaps(ctx, tx, req.ProfessionalID, startTime, appt.EndTime)
	if err != nil {
		http.Error(w, "failed to check time off", http.StatusInternalServerError)
		return
	}
	if blocked {
		writeError(w, model.ErrConflict)
		return
	}

	if err := h.booking.CreateAppointment(ctx, tx, appt); err != nil {
		if storage.IsConflict(err) {
			writeError(w, model.ErrConflict)
			return
		}
		http.Error(w, "failed to create appointment", http.StatusInternalServerError)
		return
	}

	evtPayload, err := json.Marshal(map[string]any{
		"appointment_id":  appt.ID,
		"business_id":     appt.BusinessID,
		"professional_id": appt.ProfessionalID,
		"client_email":    appt.ClientEmail,
		"client_phone":    appt.ClientPhone,
		"start_time":      appt.StartTime.UTC().Format(time.RFC3339),
		"end_time":        appt.EndTime.UTC().Format(time.RFC3339),
		"total_price":     appt.TotalPrice,
	})
	if err != nil {
		http.Error(w, "failed to build event payload", http.StatusInternalServerError)
		return
	}
	if err := h.outboxRepo.Insert(ctx, tx, outbox.Event{
		AggregateType: "appointment",
		AggregateID:   appt.ID,
		EventType:     outbox.EventAppointmentBooked,
		Payload:       evtPayload,
	}); err != nil {
		http.Error(w, "failed to write outbox event", http.StatusInternalServerError)
		return
	}

	respBody, err := json.Marshal(toAppointmentResponse(appt))
	if err != nil {
		http.Error(w, "failed to build response", http.StatusInternalServerError)
		return
	}
	if idempotencyKey != "" {
		if err := h.booking.FinalizeIdempotency(ctx, tx, req.BusinessID, idempotencyKey, appt.ID, http.StatusCreated, respBody); err != nil {
			http.Error(w, "failed to finalize idempotency key", http.StatusInternalServerError)
			return
		}
	}
	if err := tx.Commit(ctx); err != nil {
		http.Error(w, "failed to commit", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_, _ = w.Write(respBody)
}

type updateStatusRequest struct {
	AppointmentID string `json:"appointment_id"`
	Status        string `json:"status"`
	Reason        string `json:"reason"`
}

type cancelRequest struct {
	AppointmentID string `json:"appointment_id"`
	Reason        string `json:"reason"`
}

// Cancel is a convenience endpoint for the cancelled transition.
func (h *BookingHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req cancelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	h.applyTransition(w, r, updateStatusRequest{
		AppointmentID: req.AppointmentID,
		Status:        string(model.StatusCancelled),
		Reason:        req.Reason,
	})
}

// UpdateStatus applies a lifecycle transition. Cancelling an already
// cancelled appointment is idempotent and returns the current state.
func (h *BookingHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	h.applyTransition(w, r, req)
}

func (h *BookingHandler) applyTransition(w http.ResponseWriter, r *http.Request, req updateStatusRequest) {
	actor, ok := identity.ActorFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	req.AppointmentID = strings.TrimSpace(req.AppointmentID)
	target := model.Status(strings.TrimSpace(req.Status))
	if req.AppointmentID == "" {
		writeError(w, model.Validationf("appointment_id required"))
		return
	}
	if !target.Valid() || target == model.StatusScheduled {
		writeError(w, model.Validationf("status must be completed or cancelled"))
		return
	}

	ctx := r.Context()
	tx, err := h.booking.Begin(ctx)
	if err != nil {
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}
	defer func() { _ = tx.Rollback(ctx) }()

	appt, err := h.booking.GetAppointmentForUpdate(ctx, tx, actor.BusinessID, req.AppointmentID)
	if err != nil {
		if storage.IsNotFound(err) {
			http.Error(w, "appointment not found", http.StatusNotFound)
			return
		}
		http.Error(w, "failed to load appointment", http.StatusInternalServerError)
		return
	}
	if !actor.CanManageAppointment(appt.BusinessID, appt.ProfessionalID) {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}

	if target == model.StatusCancelled && appt.Status == model.StatusCancelled {
		writeJSON(w, http.StatusOK, toAppointmentResponse(&appt))
		return
	}
	if err := model.Transition(appt.Status, target); err != nil {
		writeError(w, err)
		return
	}

	at, err := h.booking.SetStatus(ctx, tx, actor.BusinessID, appt.ID, target, strings.TrimSpace(req.Reason))
	if err != nil {
		http.Error(w, "failed to update appointment", http.StatusInternalServerError)
		return
	}
	appt.Status = target
	switch target {
	case model.StatusCancelled:
		appt.CancelledAt = &at
		appt.CancelReason = strings.TrimSpace(req.Reason)
	case model.StatusCompleted:
		appt.CompletedAt = &at
	}

	eventType := outbox.EventAppointmentCompleted
	if target == model.StatusCancelled {
		eventType = outbox.EventAppointmentCancelled
	}
	evtPayload, err := json.Marshal(map[string]any{
		"appointment_id":  appt.ID,
		"business_id":     appt.BusinessID,
		"professional_id": appt.ProfessionalID,
		"status":          string(target),
		"at":              at.UTC().Format(time.RFC3339),
		"reason":          strings.TrimSpace(req.Reason),
	})
	if err != nil {
		http.Error(w, "failed to build event payload", http.StatusInternalServerError)
		return
	}
	if err := h.outboxRepo.Insert(ctx, tx, outbox.Event{
		AggregateType: "appointment",
		AggregateID:   appt.ID,
		EventType:     eventType,
		Payload:       evtPayload,
	}); err != nil {
		http.Error(w, "failed to write outbox event", http.StatusInternalServerError)
		return
	}

	if err := tx.Commit(ctx); err != nil {
		http.Error(w, "failed to commit", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, toAppointmentResponse(&appt))
}

// List returns the authenticated business's appointments, newest first.
func (h *BookingHandler) List(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	actor, ok := identity.ActorFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	limit := 50
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}

	appts, err := h.booking.ListByBusiness(r.Context(), actor.BusinessID, limit)
	if err != nil {
		http.Error(w, "failed to list appointments", http.StatusInternalServerError)
		return
	}
	items := make([]appointmentResponse, 0, len(appts))
	for i := range appts {
		items = append(items, toAppointmentResponse(&appts[i]))
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *BookingHandler) rejectBooking(w http.ResponseWriter, r *http.Request, tx pgx.Tx, businessID, idempotencyKey, msg string) {
	ctx := r.Context()
	if idempotencyKey != "" {
		body, _ := json.Marshal(map[string]string{"error": msg})
		if err := h.booking.FinalizeIdempotency(ctx, tx, businessID, idempotencyKey, "", http.StatusBadRequest, body); err == nil {
			_ = tx.Commit(ctx)
		}
	}
	writeError(w, model.Validationf("%s", msg))
}

func toAppointmentResponse(appt *model.Appointment) appointmentResponse {
	resp := appointmentResponse{
		AppointmentID:  appt.ID,
		BusinessID:     appt.BusinessID,
		ProfessionalID: appt.ProfessionalID,
		StartTime:      appt.StartTime.UTC().Format(time.RFC3339),
		EndTime:        appt.EndTime.UTC().Format(time.RFC3339),
		Status:         string(appt.Status),
		TotalPrice:     appt.TotalPrice,
		CancelReason:   appt.CancelReason,
	}
	for _, line := range appt.Services {
		resp.Services = append(resp.Services, serviceLineItem{
			ServiceID:       line.ServiceID,
			Name:            line.Name,
			DurationMinutes: line.DurationMins,
			Price:           line.Price,
		})
	}
	if appt.CancelledAt != nil {
		resp.CancelledAt = appt.CancelledAt.UTC().Format(time.RFC3339)
	}
	if appt.CompletedAt != nil {
		resp.CompletedAt = appt.CompletedAt.UTC().Format(time.RFC3339)
	}
	return resp
}

func totalDuration(lines []model.ServiceLine) time.Duration {
	var mins int
	for _, l := range lines {
		mins += l.DurationMins
	}
	return time.Duration(mins) * time.Minute
}

func splitServiceIDs(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if id := strings.TrimSpace(part); id != "" {
			out = append(out, id)
		}
	}
	return out
}

func writeEmptySlots(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("[]"))
}
