package storage

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/agendaly/agendaly/internal/model"
	"github.com/agendaly/agendaly/internal/schedule"
	"github.com/agendaly/agendaly/libs/db"
)

// ScheduleRepository owns the configuration side: business profile, service
// catalog, professionals, working-hours calendars and time off.
type ScheduleRepository struct {
	pool *db.Pool
}

func NewScheduleRepository(pool *db.Pool) *ScheduleRepository {
	return &ScheduleRepository{pool: pool}
}

type BusinessProfile struct {
	BusinessID string
	Name       string
	Timezone   string
}

func (r *ScheduleRepository) GetOrCreateProfile(ctx context.Context, businessID string) (BusinessProfile, error) {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO business_profiles (business_id)
		VALUES ($1)
		ON CONFLICT (business_id) DO NOTHING
	`, businessID)
	if err != nil {
		return BusinessProfile{}, err
	}

	var p BusinessProfile
	err = r.pool.QueryRow(ctx, `
		SELECT business_id, name, timezone
		FROM business_profiles
		WHERE business_id = $1
	`, businessID).Scan(&p.BusinessID, &p.Name, &p.Timezone)
	return p, err
}

// GetProfile is the read-only lookup used on public booking paths. Unknown
// businesses surface pgx.ErrNoRows instead of being auto-created.
func (r *ScheduleRepository) GetProfile(ctx context.Context, businessID string) (BusinessProfile, error) {
	var p BusinessProfile
	err := r.pool.QueryRow(ctx, `
		SELECT business_id, name, timezone
		FROM business_profiles
		WHERE business_id = $1
	`, businessID).Scan(&p.BusinessID, &p.Name, &p.Timezone)
	return p, err
}

func (r *ScheduleRepository) UpdateProfile(ctx context.Context, businessID, name, timezone string) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO business_profiles (business_id, name, timezone)
		VALUES ($1, $2, $3)
		ON CONFLICT (business_id) DO UPDATE
		SET name = EXCLUDED.name,
			timezone = EXCLUDED.timezone,
			updated_at = now()
	`, businessID, name, timezone)
	return err
}

type CatalogService struct {
	ID           string
	BusinessID   string
	Name         string
	DurationMins int
	Price        string
	IsActive     bool
	CreatedAt    time.Time
}

func (r *ScheduleRepository) CreateService(ctx context.Context, businessID, name string, durationMinutes int, price string) (string, error) {
	id := uuid.NewString()
	_, err := r.pool.Exec(ctx, `
		INSERT INTO services (id, business_id, name, duration_minutes, price)
		VALUES ($1, $2, $3, $4, $5)
	`, id, businessID, name, durationMinutes, price)
	if err != nil {
		return "", err
	}
	return id, nil
}

func (r *ScheduleRepository) ListServices(ctx context.Context, businessID string, limit int) ([]CatalogService, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id, business_id, name, duration_minutes, price::text, is_active, created_at
		FROM services
		WHERE business_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, businessID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []CatalogService
	for rows.Next() {
		var s CatalogService
		if err := rows.Scan(&s.ID, &s.BusinessID, &s.Name, &s.DurationMins, &s.Price, &s.IsActive, &s.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// ResolveServicesForProfessional resolves the requested service ids, in
// request order, into snapshot lines. Every id must exist, be active, and be
// assigned to the professional; otherwise pgx.ErrNoRows surfaces and the
// caller maps it to a validation failure.
func (r *ScheduleRepository) ResolveServicesForProfessional(ctx context.Context, businessID, professionalID string, serviceIDs []string) ([]model.ServiceLine, error) {
	lines := make([]model.ServiceLine, 0, len(serviceIDs))
	for _, id := range serviceIDs {
		var line model.ServiceLine
		err := r.pool.QueryRow(ctx, `
			SELECT s.id, s.name, s.duration_minutes, s.price::text
			FROM services s
			JOIN professional_services ps ON ps.service_id = s.id
			WHERE s.id = $1
				AND s.business_id = $2
				AND s.is_active
				AND ps.professional_id = $3
		`, id, businessID, professionalID).Scan(&line.ServiceID, &line.Name, &line.DurationMins, &line.Price)
		if err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}
	return lines, nil
}

// AssignServices replaces the professional's service set.
func (r *ScheduleRepository) AssignServices(ctx context.Context, businessID, professionalID string, serviceIDs []string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := professionalExists(ctx, tx, businessID, professionalID); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `
		DELETE FROM professional_services WHERE professional_id = $1
	`, professionalID); err != nil {
		return err
	}
	for _, serviceID := range serviceIDs {
		var exists bool
		if err := tx.QueryRow(ctx, `
			SELECT EXISTS (SELECT 1 FROM services WHERE id = $1 AND business_id = $2)
		`, serviceID, businessID).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return pgx.ErrNoRows
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO professional_services (professional_id, service_id)
			VALUES ($1, $2)
			ON CONFLICT DO NOTHING
		`, professionalID, serviceID); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

type Professional struct {
	ID         string
	BusinessID string
	Name       string
	Role       string
	IsActive   bool
}

// CreateProfessional inserts the professional with a default calendar:
// Mon-Fri 09:00-17:00 working, Sat/Sun closed.
func (r *ScheduleRepository) CreateProfessional(ctx context.Context, businessID, name, role string) (string, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return "", err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	id := uuid.NewString()
	if _, err := tx.Exec(ctx, `
		INSERT INTO professionals (id, business_id, name, role)
		VALUES ($1, $2, $3, $4)
	`, id, businessID, name, role); err != nil {
		return "", err
	}

	for wd := 0; wd <= 6; wd++ {
		isWorking := wd >= 1 && wd <= 5
		startMin, endMin := 0, 0
		if isWorking {
			startMin, endMin = 540, 1020
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO working_hours (professional_id, weekday, is_working, start_minute, end_minute)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (professional_id, weekday) DO NOTHING
		`, id, wd, isWorking, startMin, endMin); err != nil {
			return "", err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return "", err
	}
	return id, nil
}

func (r *ScheduleRepository) GetProfessional(ctx context.Context, businessID, professionalID string) (Professional, error) {
	var p Professional
	err := r.pool.QueryRow(ctx, `
		SELECT id, business_id, name, role, is_active
		FROM professionals
		WHERE id = $1 AND business_id = $2
	`, professionalID, businessID).Scan(&p.ID, &p.BusinessID, &p.Name, &p.Role, &p.IsActive)
	return p, err
}

func (r *ScheduleRepository) ListProfessionals(ctx context.Context, businessID string, limit int) ([]Professional, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id, business_id, name, role, is_active
		FROM professionals
		WHERE business_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, businessID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Professional
	for rows.Next() {
		var p Professional
		if err := rows.Scan(&p.ID, &p.BusinessID, &p.Name, &p.Role, &p.IsActive); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// SetProfessionalActive deactivates (or reactivates) a professional.
// Professionals are never deleted; history keeps referencing them.
func (r *ScheduleRepository) SetProfessionalActive(ctx context.Context, businessID, professionalID string, active bool) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE professionals
		SET is_active = $3
		WHERE id = $1 AND business_id = $2
	`, professionalID, businessID, active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// GetCalendar loads the professional's active weekly calendar.
func (r *ScheduleRepository) GetCalendar(ctx context.Context, businessID, professionalID string) (schedule.Calendar, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT h.weekday, h.is_working, h.start_minute, h.end_minute
		FROM working_hours h
		JOIN professionals p ON p.id = h.professional_id
		WHERE p.business_id = $1 AND h.professional_id = $2
		ORDER BY h.weekday ASC
	`, businessID, professionalID)
	if err != nil {
		return schedule.Calendar{}, err
	}
	defer rows.Close()

	var rules []schedule.DayRule
	for rows.Next() {
		var rule schedule.DayRule
		if err := rows.Scan(&rule.Weekday, &rule.IsWorking, &rule.StartMinute, &rule.EndMinute); err != nil {
			return schedule.Calendar{}, err
		}
		rules = append(rules, rule)
	}
	if rows.Err() != nil {
		return schedule.Calendar{}, rows.Err()
	}
	return schedule.NewCalendar(rules)
}

func (r *ScheduleRepository) ListWorkingHours(ctx context.Context, businessID, professionalID string) ([]schedule.DayRule, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT h.weekday, h.is_working, h.start_minute, h.end_minute
		FROM working_hours h
		JOIN professionals p ON p.id = h.professional_id
		WHERE p.business_id = $1 AND h.professional_id = $2
		ORDER BY h.weekday ASC
	`, businessID, professionalID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []schedule.DayRule
	for rows.Next() {
		var rule schedule.DayRule
		if err := rows.Scan(&rule.Weekday, &rule.IsWorking, &rule.StartMinute, &rule.EndMinute); err != nil {
			return nil, err
		}
		out = append(out, rule)
	}
	return out, rows.Err()
}

// UpsertWorkingHours replaces one weekday's rule. The rule must already be
// validated (schedule.DayRule.Validate) by the caller.
func (r *ScheduleRepository) UpsertWorkingHours(ctx context.Context, businessID, professionalID string, rule schedule.DayRule) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := professionalExists(ctx, tx, businessID, professionalID); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `
		INSERT INTO working_hours (professional_id, weekday, is_working, start_minute, end_minute)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (professional_id, weekday) DO UPDATE
		SET is_working = EXCLUDED.is_working,
			start_minute = EXCLUDED.start_minute,
			end_minute = EXCLUDED.end_minute
	`, professionalID, rule.Weekday, rule.IsWorking, rule.StartMinute, rule.EndMinute); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

type TimeOff struct {
	ID             string
	ProfessionalID string
	StartTime      time.Time
	EndTime        time.Time
	Reason         string
	CreatedAt      time.Time
}

func (r *ScheduleRepository) CreateTimeOff(ctx context.Context, businessID, professionalID string, startTime, endTime time.Time, reason string) (string, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return "", err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := professionalExists(ctx, tx, businessID, professionalID); err != nil {
		return "", err
	}
	id := uuid.NewString()
	if _, err := tx.Exec(ctx, `
		INSERT INTO time_off (id, professional_id, start_time, end_time, reason)
		VALUES ($1, $2, $3, $4, $5)
	`, id, professionalID, startTime, endTime, reason); err != nil {
		return "", err
	}
	if err := tx.Commit(ctx); err != nil {
		return "", err
	}
	return id, nil
}

func (r *ScheduleRepository) ListTimeOffIntervals(ctx context.Context, businessID, professionalID string, from, to time.Time) ([]TimeOff, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT t.id, t.professional_id, t.start_time, t.end_time, t.reason, t.created_at
		FROM time_off t
		JOIN professionals p ON p.id = t.professional_id
		WHERE p.business_id = $1
			AND t.professional_id = $2
			AND t.end_time > $3
			AND t.start_time < $4
		ORDER BY t.start_time ASC
	`, businessID, professionalID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TimeOff
	for rows.Next() {
		var t TimeOff
		if err := rows.Scan(&t.ID, &t.ProfessionalID, &t.StartTime, &t.EndTime, &t.Reason, &t.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *ScheduleRepository) DeleteTimeOff(ctx context.Context, businessID, timeOffID string) error {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM time_off t
		USING professionals p
		WHERE t.professional_id = p.id
			AND p.business_id = $1
			AND t.id = $2
	`, businessID, timeOffID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func professionalExists(ctx context.Context, tx pgx.Tx, businessID, professionalID string) error {
	var exists bool
	if err := tx.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM professionals WHERE id = $1 AND business_id = $2)
	`, professionalID, businessID).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return pgx.ErrNoRows
	}
	return nil
}
