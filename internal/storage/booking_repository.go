package storage

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/agendaly/agendaly/internal/availability"
	"github.com/agendaly/agendaly/internal/model"
	"github.com/agendaly/agendaly/libs/db"
)

type BookingRepository struct {
	pool *db.Pool
}

func NewBookingRepository(pool *db.Pool) *BookingRepository {
	return &BookingRepository{pool: pool}
}

func (r *BookingRepository) Begin(ctx context.Context) (pgx.Tx, error) {
	return r.pool.Begin(ctx)
}

// ListBusyIntervals returns the professional's non-cancelled appointment
// intervals intersecting [from, to), ordered by start. Completed appointments
// still occupy calendar time; cancelled ones do not.
func (r *BookingRepository) ListBusyIntervals(ctx context.Context, businessID, professionalID string, from, to time.Time) ([]availability.Interval, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT start_time, end_time
		FROM appointments
		WHERE business_id = $1
			AND professional_id = $2
			AND status <> 'cancelled'
			AND start_time < $4
			AND end_time > $3
		ORDER BY start_time ASC
	`, businessID, professionalID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var busy []availability.Interval
	for rows.Next() {
		var iv availability.Interval
		if err := rows.Scan(&iv.Start, &iv.End); err != nil {
			return nil, err
		}
		busy = append(busy, iv)
	}
	return busy, rows.Err()
}

// LockOverlapping locks and reports any committed non-cancelled appointment
// overlapping [start, end) for the professional. The appointments exclusion
// constraint remains the backstop for two uncommitted concurrent inserts.
func (r *BookingRepository) LockOverlapping(ctx context.Context, tx pgx.Tx, professionalID string, start, end time.Time) (bool, error) {
	var id string
	err := tx.QueryRow(ctx, `
		SELECT id
		FROM appointments
		WHERE professional_id = $1
			AND status <> 'cancelled'
			AND start_time < $3
			AND end_time > $2
		LIMIT 1
		FOR UPDATE
	`, professionalID, start, end).Scan(&id)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	return false, err
}

func (r *BookingRepository) TimeOffOverlaps(ctx context.Context, tx pgx.Tx, professionalID string, start, end time.Time) (bool, error) {
	var exists bool
	err := tx.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM time_off
			WHERE professional_id = $1
				AND start_time < $3
				AND end_time > $2
		)
	`, professionalID, start, end).Scan(&exists)
	return exists, err
}

// CreateAppointment inserts the appointment and its snapshotted service lines
// inside the caller's transaction.
func (r *BookingRepository) CreateAppointment(ctx context.Context, tx pgx.Tx, appt *model.Appointment) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO appointments
			(id, business_id, professional_id, client_id, client_name, client_email, client_phone,
			start_time, end_time, status, total_price)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, appt.ID, appt.BusinessID, appt.ProfessionalID, appt.ClientID, appt.ClientName,
		appt.ClientEmail, appt.ClientPhone, appt.StartTime, appt.EndTime, appt.Status, appt.TotalPrice)
	if err != nil {
		return err
	}
	for i, line := range appt.Services {
		if _, err := tx.Exec(ctx, `
			INSERT INTO appointment_services (appointment_id, position, service_id, name, duration_minutes, price)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, appt.ID, i, line.ServiceID, line.Name, line.DurationMins, line.Price); err != nil {
			return err
		}
	}
	return nil
}

func (r *BookingRepository) GetAppointmentForUpdate(ctx context.Context, tx pgx.Tx, businessID, appointmentID string) (model.Appointment, error) {
	var appt model.Appointment
	err := tx.QueryRow(ctx, `
		SELECT id, business_id, professional_id, client_id, client_name, client_email, client_phone,
			start_time, end_time, status, total_price::text,
			cancelled_at, COALESCE(cancellation_reason, ''), completed_at, created_at
		FROM appointments
		WHERE id = $1 AND business_id = $2
		FOR UPDATE
	`, appointmentID, businessID).Scan(
		&appt.ID,
		&appt.BusinessID,
		&appt.ProfessionalID,
		&appt.ClientID,
		&appt.ClientName,
		&appt.ClientEmail,
		&appt.ClientPhone,
		&appt.StartTime,
		&appt.EndTime,
		&appt.Status,
		&appt.TotalPrice,
		&appt.CancelledAt,
		&appt.CancelReason,
		&appt.CompletedAt,
		&appt.CreatedAt,
	)
	if err != nil {
		return model.Appointment{}, err
	}
	return appt, nil
}

// SetStatus applies an already-validated lifecycle transition.
func (r *BookingRepository) SetStatus(ctx context.Context, tx pgx.Tx, businessID, appointmentID string, to model.Status, reason string) (time.Time, error) {
	var at time.Time
	var err error
	switch to {
	case model.StatusCancelled:
		err = tx.QueryRow(ctx, `
			UPDATE appointments
			SET status = 'cancelled',
				cancelled_at = now(),
				cancellation_reason = $3
			WHERE id = $1 AND business_id = $2
			RETURNING cancelled_at
		`, appointmentID, businessID, reason).Scan(&at)
	case model.StatusCompleted:
		err = tx.QueryRow(ctx, `
			UPDATE appointments
			SET status = 'completed',
				completed_at = now()
			WHERE id = $1 AND business_id = $2
			RETURNING completed_at
		`, appointmentID, businessID).Scan(&at)
	default:
		err = &model.InvalidTransitionError{From: model.StatusScheduled, To: to}
	}
	return at, err
}

func (r *BookingRepository) ListByBusiness(ctx context.Context, businessID string, limit int) ([]model.Appointment, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id, business_id, professional_id, client_id, client_name, client_email, client_phone,
			start_time, end_time, status, total_price::text,
			cancelled_at, COALESCE(cancellation_reason, ''), completed_at, created_at
		FROM appointments
		WHERE business_id = $1
		ORDER BY start_time DESC
		LIMIT $2
	`, businessID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var appts []model.Appointment
	for rows.Next() {
		var appt model.Appointment
		if err := rows.Scan(
			&appt.ID,
			&appt.BusinessID,
			&appt.ProfessionalID,
			&appt.ClientID,
			&appt.ClientName,
			&appt.ClientEmail,
			&appt.ClientPhone,
			&appt.StartTime,
			&appt.EndTime,
			&appt.Status,
			&appt.TotalPrice,
			&appt.CancelledAt,
			&appt.CancelReason,
			&appt.CompletedAt,
			&appt.CreatedAt,
		); err != nil {
			return nil, err
		}
		appts = append(appts, appt)
	}
	return appts, rows.Err()
}

type IdempotencyRecord struct {
	BusinessID      string
	IdempotencyKey  string
	AppointmentID   string
	StatusCode      int
	ResponsePayload []byte
}

// LockIdempotencyKey claims the key for this transaction, returning the
// stored record (and true) when a previous booking already finished with it.
// The second select matters for concurrent requests sharing a key: the loser
// blocks on the winner's uncommitted row and, once the winner commits, sees
// the finalized record here rather than on the first select.
func (r *BookingRepository) LockIdempotencyKey(ctx context.Context, tx pgx.Tx, businessID, key string) (IdempotencyRecord, bool, error) {
	rec, err := r.selectIdempotencyForUpdate(ctx, tx, businessID, key)
	if err == nil {
		return rec, rec.StatusCode > 0, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return IdempotencyRecord{}, false, err
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO booking_idempotency_keys (business_id, idempotency_key)
		VALUES ($1, $2)
		ON CONFLICT (business_id, idempotency_key) DO NOTHING
	`, businessID, key)
	if err != nil {
		return IdempotencyRecord{}, false, err
	}

	rec, err = r.selectIdempotencyForUpdate(ctx, tx, businessID, key)
	if err != nil {
		return IdempotencyRecord{}, false, err
	}
	return rec, rec.StatusCode > 0, nil
}

func (r *BookingRepository) FinalizeIdempotency(ctx context.Context, tx pgx.Tx, businessID, key, appointmentID string, statusCode int, response []byte) error {
	_, err := tx.Exec(ctx, `
		UPDATE booking_idempotency_keys
		SET appointment_id = $3,
			status_code = $4,
			response_payload = $5,
			updated_at = now()
		WHERE business_id = $1 AND idempotency_key = $2
	`, businessID, key, appointmentID, statusCode, response)
	return err
}

func (r *BookingRepository) selectIdempotencyForUpdate(ctx context.Context, tx pgx.Tx, businessID, key string) (IdempotencyRecord, error) {
	var rec IdempotencyRecord
	var responseText string
	err := tx.QueryRow(ctx, `
		SELECT business_id,
			idempotency_key,
			COALESCE(appointment_id, ''),
			COALESCE(status_code, 0),
			COALESCE(response_payload::text, '')
		FROM booking_idempotency_keys
		WHERE business_id = $1 AND idempotency_key = $2
		FOR UPDATE
	`, businessID, key).Scan(
		&rec.BusinessID,
		&rec.IdempotencyKey,
		&rec.AppointmentID,
		&rec.StatusCode,
		&responseText,
	)
	if err != nil {
		return IdempotencyRecord{}, err
	}
	if responseText != "" {
		rec.ResponsePayload = []byte(responseText)
	}
	return rec, nil
}

// IsConflict matches the Postgres exclusion-constraint violation raised when
// an insert overlaps an existing non-cancelled appointment.
func IsConflict(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23P01"
}

func IsNotFound(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
