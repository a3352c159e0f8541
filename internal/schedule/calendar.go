package schedule

import (
	"time"

	"github.com/agendaly/agendaly/internal/model"
)

// MinutesPerDay bounds minute-of-day values; 1440 marks end of day.
const MinutesPerDay = 24 * 60

// DayRule is one weekday's entry in a professional's working-hours calendar.
// StartMinute/EndMinute are minute-of-day in the business's local timezone.
type DayRule struct {
	Weekday     int
	IsWorking   bool
	StartMinute int
	EndMinute   int
}

// Validate enforces the configuration invariant start < end for working days.
// It runs at configuration-write time; booking reads assume valid rules.
func (r DayRule) Validate() error {
	if r.Weekday < 0 || r.Weekday > 6 {
		return &model.ConfigurationError{Msg: "weekday must be between 0 and 6"}
	}
	if !r.IsWorking {
		return nil
	}
	if r.StartMinute < 0 || r.StartMinute >= MinutesPerDay {
		return &model.ConfigurationError{Msg: "start_minute out of range"}
	}
	if r.EndMinute <= 0 || r.EndMinute > MinutesPerDay {
		return &model.ConfigurationError{Msg: "end_minute out of range"}
	}
	if r.StartMinute >= r.EndMinute {
		return &model.ConfigurationError{Msg: "start_minute must be before end_minute"}
	}
	return nil
}

// Calendar is a professional's full weekly calendar, Sunday (0) through
// Saturday (6). Exactly one calendar is active per professional.
type Calendar struct {
	rules [7]DayRule
}

// NewCalendar builds a calendar from per-weekday rules. Missing weekdays are
// closed; every rule is validated.
func NewCalendar(rules []DayRule) (Calendar, error) {
	var c Calendar
	for wd := 0; wd < 7; wd++ {
		c.rules[wd] = DayRule{Weekday: wd}
	}
	for _, r := range rules {
		if err := r.Validate(); err != nil {
			return Calendar{}, err
		}
		c.rules[r.Weekday] = r
	}
	return c, nil
}

// IntervalFor returns the open interval for a weekday, or ok=false when closed.
func (c Calendar) IntervalFor(wd time.Weekday) (DayRule, bool) {
	r := c.rules[int(wd)]
	if !r.IsWorking {
		return DayRule{}, false
	}
	return r, true
}

// WindowOn resolves the calendar's interval for the given date into absolute
// instants in loc. ok is false when the weekday is closed.
func (c Calendar) WindowOn(date time.Time, loc *time.Location) (start, end time.Time, ok bool) {
	local := date.In(loc)
	rule, open := c.IntervalFor(local.Weekday())
	if !open {
		return time.Time{}, time.Time{}, false
	}
	midnight := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	start = midnight.Add(time.Duration(rule.StartMinute) * time.Minute)
	end = midnight.Add(time.Duration(rule.EndMinute) * time.Minute)
	return start, end, true
}
