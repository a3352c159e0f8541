package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/agendaly/agendaly/internal/identity"
	"github.com/agendaly/agendaly/internal/schedule"
	"github.com/agendaly/agendaly/internal/storage"
)

// ScheduleHandler exposes the business configuration surface: profile,
// service catalog, professionals, working hours and time off. All routes
// require an authenticated actor allowed to configure the business.
type ScheduleHandler struct {
	repo   *storage.ScheduleRepository
	logger *slog.Logger
}

func NewScheduleHandler(repo *storage.ScheduleRepository, logger *slog.Logger) *ScheduleHandler {
	return &ScheduleHandler{repo: repo, logger: logger}
}

func (h *ScheduleHandler) configActor(w http.ResponseWriter, r *http.Request) (identity.Actor, bool) {
	actor, ok := identity.ActorFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return identity.Actor{}, false
	}
	if !actor.CanConfigureBusiness() {
		http.Error(w, "forbidden", http.StatusForbidden)
		return identity.Actor{}, false
	}
	return actor, true
}

type profileResponse struct {
	BusinessID string `json:"business_id"`
	Name       string `json:"name"`
	Timezone   string `json:"timezone"`
}

type updateProfileRequest struct {
	Name     string `json:"name"`
	Timezone string `json:"timezone"`
}

func (h *ScheduleHandler) Profile(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.configActor(w, r)
	if !ok {
		return
	}

	switch r.Method {
	case http.MethodGet:
		p, err := h.repo.GetOrCreateProfile(r.Context(), actor.BusinessID)
		if err != nil {
			http.Error(w, "failed to load profile", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, profileResponse{BusinessID: p.BusinessID, Name: p.Name, Timezone: p.Timezone})
	case http.MethodPut, http.MethodPost:
		var req updateProfileRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json body", http.StatusBadRequest)
			return
		}
		req.Name = strings.TrimSpace(req.Name)
		req.Timezone = strings.TrimSpace(req.Timezone)
		if req.Name == "" || req.Timezone == "" {
			http.Error(w, "name and timezone are required", http.StatusBadRequest)
			return
		}
		if _, err := time.LoadLocation(req.Timezone); err != nil {
			http.Error(w, "timezone must be a valid IANA zone name", http.StatusBadRequest)
			return
		}
		if err := h.repo.UpdateProfile(r.Context(), actor.BusinessID, req.Name, req.Timezone); err != nil {
			http.Error(w, "failed to update profile", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, profileResponse{BusinessID: actor.BusinessID, Name: req.Name, Timezone: req.Timezone})
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

type createServiceRequest struct {
	Name            string `json:"name"`
	DurationMinutes int    `json:"duration_minutes"`
	Price           string `json:"price"`
}

type serviceResponse struct {
	ServiceID       string `json:"service_id"`
	Name            string `json:"name"`
	DurationMinutes int    `json:"duration_minutes"`
	Price           string `json:"price"`
	IsActive        bool   `json:"is_active"`
}

func (h *ScheduleHandler) Services(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.configActor(w, r)
	if !ok {
		return
	}

	switch r.Method {
	case http.MethodGet:
		services, err := h.repo.ListServices(r.Context(), actor.BusinessID, 0)
		if err != nil {
			http.Error(w, "failed to list services", http.StatusInternalServerError)
			return
		}
		items := make([]serviceResponse, 0, len(services))
		for _, s := range services {
			items = append(items, serviceResponse{
				ServiceID:       s.ID,
				Name:            s.Name,
				DurationMinutes: s.DurationMins,
				Price:           s.Price,
				IsActive:        s.IsActive,
			})
		}
		writeJSON(w, http.StatusOK, items)
	case http.MethodPost:
		var req createServiceRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json body", http.StatusBadRequest)
			return
		}
		req.Name = strings.TrimSpace(req.Name)
		req.Price = strings.TrimSpace(req.Price)
		if req.Name == "" {
			http.Error(w, "name is required", http.StatusBadRequest)
			return
		}
		if req.DurationMinutes <= 0 || req.DurationMinutes > 8*60 {
			http.Error(w, "duration_minutes must be between 1 and 480", http.StatusBadRequest)
			return
		}
		price, err := normalizePrice(req.Price)
		if err != nil {
			http.Error(w, "price must be a non-negative decimal", http.StatusBadRequest)
			return
		}
		id, err := h.repo.CreateService(r.Context(), actor.BusinessID, req.Name, req.DurationMinutes, price)
		if err != nil {
			http.Error(w, "failed to create service", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusCreated, serviceResponse{
			ServiceID:       id,
			Name:            req.Name,
			DurationMinutes: req.DurationMinutes,
			Price:           price,
			IsActive:        true,
		})
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

type createProfessionalRequest struct {
	Name string `json:"name"`
	Role string `json:"role"`
}

type professionalResponse struct {
	ProfessionalID string `json:"professional_id"`
	Name           string `json:"name"`
	Role           string `json:"role"`
	IsActive       bool   `json:"is_active"`
}

func (h *ScheduleHandler) Professionals(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.configActor(w, r)
	if !ok {
		return
	}

	switch r.Method {
	case http.MethodGet:
		pros, err := h.repo.ListProfessionals(r.Context(), actor.BusinessID, 0)
		if err != nil {
			http.Error(w, "failed to list professionals", http.StatusInternalServerError)
			return
		}
		items := make([]professionalResponse, 0, len(pros))
		for _, p := range pros {
			items = append(items, professionalResponse{ProfessionalID: p.ID, Name: p.Name, Role: p.Role, IsActive: p.IsActive})
		}
		writeJSON(w, http.StatusOK, items)
	case http.MethodPost:
		var req createProfessionalRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json body", http.StatusBadRequest)
			return
		}
		req.Name = strings.TrimSpace(req.Name)
		req.Role = strings.TrimSpace(req.Role)
		if req.Name == "" {
			http.Error(w, "name is required", http.StatusBadRequest)
			return
		}
		if req.Role == "" {
			req.Role = identity.RoleStaff
		}
		if req.Role != identity.RoleOwner && req.Role != identity.RoleStaff && req.Role != identity.RoleReceptionist {
			http.Error(w, "role must be owner, staff, or receptionist", http.StatusBadRequest)
			return
		}
		id, err := h.repo.CreateProfessional(r.Context(), actor.BusinessID, req.Name, req.Role)
		if err != nil {
			http.Error(w, "failed to create professional", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusCreated, professionalResponse{ProfessionalID: id, Name: req.Name, Role: req.Role, IsActive: true})
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

type professionalStatusRequest struct {
	ProfessionalID string `json:"professional_id"`
	IsActive       bool   `json:"is_active"`
}

// ProfessionalStatus deactivates or reactivates a professional. Deactivation
// hides them from slot listings without touching appointment history.
func (h *ScheduleHandler) ProfessionalStatus(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.configActor(w, r)
	if !ok {
		return
	}
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req professionalStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.ProfessionalID = strings.TrimSpace(req.ProfessionalID)
	if req.ProfessionalID == "" {
		http.Error(w, "professional_id required", http.StatusBadRequest)
		return
	}
	if err := h.repo.SetProfessionalActive(r.Context(), actor.BusinessID, req.ProfessionalID, req.IsActive); err != nil {
		if storage.IsNotFound(err) {
			http.Error(w, "professional not found", http.StatusNotFound)
			return
		}
		http.Error(w, "failed to update professional", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"professional_id": req.ProfessionalID, "is_active": req.IsActive})
}

type assignServicesRequest struct {
	ProfessionalID string   `json:"professional_id"`
	ServiceIDs     []string `json:"service_ids"`
}

func (h *ScheduleHandler) AssignServices(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.configActor(w, r)
	if !ok {
		return
	}
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req assignServicesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.ProfessionalID = strings.TrimSpace(req.ProfessionalID)
	if req.ProfessionalID == "" {
		http.Error(w, "professional_id required", http.StatusBadRequest)
		return
	}
	if err := h.repo.AssignServices(r.Context(), actor.BusinessID, req.ProfessionalID, req.ServiceIDs); err != nil {
		if storage.IsNotFound(err) {
			http.Error(w, "unknown professional or service", http.StatusNotFound)
			return
		}
		http.Error(w, "failed to assign services", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"professional_id": req.ProfessionalID, "service_ids": req.ServiceIDs})
}

type workingHoursItem struct {
	Weekday     int  `json:"weekday"`
	IsWorking   bool `json:"is_working"`
	StartMinute int  `json:"start_minute"`
	EndMinute   int  `json:"end_minute"`
}

type upsertWorkingHoursRequest struct {
	ProfessionalID string `json:"professional_id"`
	workingHoursItem
}

func (h *ScheduleHandler) WorkingHours(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.configActor(w, r)
	if !ok {
		return
	}

	switch r.Method {
	case http.MethodGet:
		professionalID := strings.TrimSpace(r.URL.Query().Get("professional_id"))
		if professionalID == "" {
			http.Error(w, "professional_id required", http.StatusBadRequest)
			return
		}
		rules, err := h.repo.ListWorkingHours(r.Context(), actor.BusinessID, professionalID)
		if err != nil {
			http.Error(w, "failed to list working hours", http.StatusInternalServerError)
			return
		}
		items := make([]workingHoursItem, 0, len(rules))
		for _, rule := range rules {
			items = append(items, workingHoursItem{
				Weekday:     rule.Weekday,
				IsWorking:   rule.IsWorking,
				StartMinute: rule.StartMinute,
				EndMinute:   rule.EndMinute,
			})
		}
		writeJSON(w, http.StatusOK, items)
	case http.MethodPost, http.MethodPut:
		var req upsertWorkingHoursRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json body", http.StatusBadRequest)
			return
		}
		req.ProfessionalID = strings.TrimSpace(req.ProfessionalID)
		if req.ProfessionalID == "" {
			http.Error(w, "professional_id required", http.StatusBadRequest)
			return
		}
		rule := schedule.DayRule{
			Weekday:     req.Weekday,
			IsWorking:   req.IsWorking,
			StartMinute: req.StartMinute,
			EndMinute:   req.EndMinute,
		}
		if err := rule.Validate(); err != nil {
			writeError(w, err)
			return
		}
		if err := h.repo.UpsertWorkingHours(r.Context(), actor.BusinessID, req.ProfessionalID, rule); err != nil {
			if storage.IsNotFound(err) {
				http.Error(w, "professional not found", http.StatusNotFound)
				return
			}
			http.Error(w, "failed to update working hours", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, req.workingHoursItem)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

type createTimeOffRequest struct {
	ProfessionalID string `json:"professional_id"`
	StartTime      string `json:"start_time"`
	EndTime        string `json:"end_time"`
	Reason         string `json:"reason"`
}

type timeOffResponse struct {
	TimeOffID      string `json:"time_off_id"`
	ProfessionalID string `json:"professional_id"`
	StartTime      string `json:"start_time"`
	EndTime        string `json:"end_time"`
	Reason         string `json:"reason,omitempty"`
}

func (h *ScheduleHandler) TimeOff(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.configActor(w, r)
	if !ok {
		return
	}

	switch r.Method {
	case http.MethodGet:
		professionalID := strings.TrimSpace(r.URL.Query().Get("professional_id"))
		if professionalID == "" {
			http.Error(w, "professional_id required", http.StatusBadRequest)
			return
		}
		from, to, err := parseTimeOffRange(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		offs, err := h.repo.ListTimeOffIntervals(r.Context(), actor.BusinessID, professionalID, from, to)
		if err != nil {
			http.Error(w, "failed to list time off", http.StatusInternalServerError)
			return
		}
		items := make([]timeOffResponse, 0, len(offs))
		for _, t := range offs {
			items = append(items, timeOffResponse{
				TimeOffID:      t.ID,
				ProfessionalID: t.ProfessionalID,
				StartTime:      t.StartTime.UTC().Format(time.RFC3339),
				EndTime:        t.EndTime.UTC().Format(time.RFC3339),
				Reason:         t.Reason,
			})
		}
		writeJSON(w, http.StatusOK, items)
	case http.MethodPost:
		var req createTimeOffRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json body", http.StatusBadRequest)
			return
		}
		req.ProfessionalID = strings.TrimSpace(req.ProfessionalID)
		if req.ProfessionalID == "" {
			http.Error(w, "professional_id required", http.StatusBadRequest)
			return
		}
		start, err := time.Parse(time.RFC3339, req.StartTime)
		if err != nil {
			http.Error(w, "invalid start_time", http.StatusBadRequest)
			return
		}
		end, err := time.Parse(time.RFC3339, req.EndTime)
		if err != nil {
			http.Error(w, "invalid end_time", http.StatusBadRequest)
			return
		}
		if !end.After(start) {
			http.Error(w, "end_time must be after start_time", http.StatusBadRequest)
			return
		}
		id, err := h.repo.CreateTimeOff(r.Context(), actor.BusinessID, req.ProfessionalID, start, end, strings.TrimSpace(req.Reason))
		if err != nil {
			if storage.IsNotFound(err) {
				http.Error(w, "professional not found", http.StatusNotFound)
				return
			}
			if storage.IsConflict(err) {
				http.Error(w, "time off overlaps an existing blackout", http.StatusConflict)
				return
			}
			http.Error(w, "failed to create time off", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusCreated, timeOffResponse{
			TimeOffID:      id,
			ProfessionalID: req.ProfessionalID,
			StartTime:      start.UTC().Format(time.RFC3339),
			EndTime:        end.UTC().Format(time.RFC3339),
			Reason:         strings.TrimSpace(req.Reason),
		})
	case http.MethodDelete:
		timeOffID := strings.TrimSpace(r.URL.Query().Get("time_off_id"))
		if timeOffID == "" {
			http.Error(w, "time_off_id required", http.StatusBadRequest)
			return
		}
		if err := h.repo.DeleteTimeOff(r.Context(), actor.BusinessID, timeOffID); err != nil {
			if storage.IsNotFound(err) {
				http.Error(w, "time off not found", http.StatusNotFound)
				return
			}
			http.Error(w, "failed to delete time off", http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func parseTimeOffRange(r *http.Request) (time.Time, time.Time, error) {
	now := time.Now().UTC()
	from, to := now, now.AddDate(0, 1, 0)
	if raw := strings.TrimSpace(r.URL.Query().Get("from")); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return time.Time{}, time.Time{}, errInvalidRange
		}
		from = t
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("to")); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return time.Time{}, time.Time{}, errInvalidRange
		}
		to = t
	}
	if !to.After(from) {
		return time.Time{}, time.Time{}, errInvalidRange
	}
	return from, to, nil
}
