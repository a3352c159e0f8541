package model

import "time"

type Status string

const (
	StatusScheduled Status = "scheduled"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

func (s Status) Valid() bool {
	switch s {
	case StatusScheduled, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// Terminal reports whether no further transitions are permitted from s.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// Transition validates a lifecycle change. The only legal transitions are
// scheduled -> completed and scheduled -> cancelled.
func Transition(from, to Status) error {
	if from == StatusScheduled && (to == StatusCompleted || to == StatusCancelled) {
		return nil
	}
	return &InvalidTransitionError{From: from, To: to}
}

// ServiceLine is a snapshot of one booked service. Duration and price are
// copied from the catalog at booking time so later catalog edits never change
// what a past appointment occupied or cost.
type ServiceLine struct {
	ServiceID    string
	Name         string
	DurationMins int
	Price        string
}

type Appointment struct {
	ID             string
	BusinessID     string
	ProfessionalID string
	ClientID       string
	ClientName     string
	ClientEmail    string
	ClientPhone    string
	Services       []ServiceLine
	StartTime      time.Time
	EndTime        time.Time
	Status         Status
	TotalPrice     string
	CancelledAt    *time.Time
	CancelReason   string
	CompletedAt    *time.Time
	CreatedAt      time.Time
}

// TotalDuration sums the snapshotted service durations.
func (a *Appointment) TotalDuration() time.Duration {
	var mins int
	for _, s := range a.Services {
		mins += s.DurationMins
	}
	return time.Duration(mins) * time.Minute
}
