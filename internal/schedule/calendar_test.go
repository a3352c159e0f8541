package schedule

import (
	"testing"
	"time"

	"github.com/agendaly/agendaly/internal/model"
)

func TestDayRuleValidate(t *testing.T) {
	cases := []struct {
		name string
		rule DayRule
		ok   bool
	}{
		{"closed day needs no interval", DayRule{Weekday: 0}, true},
		{"normal working day", DayRule{Weekday: 1, IsWorking: true, StartMinute: 540, EndMinute: 1080}, true},
		{"full day", DayRule{Weekday: 2, IsWorking: true, StartMinute: 0, EndMinute: 1440}, true},
		{"start equals end", DayRule{Weekday: 1, IsWorking: true, StartMinute: 540, EndMinute: 540}, false},
		{"start after end", DayRule{Weekday: 1, IsWorking: true, StartMinute: 600, EndMinute: 540}, false},
		{"start out of range", DayRule{Weekday: 1, IsWorking: true, StartMinute: 1440, EndMinute: 1441}, false},
		{"weekday out of range", DayRule{Weekday: 7, IsWorking: true, StartMinute: 0, EndMinute: 60}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.rule.Validate()
			if tc.ok && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !tc.ok {
				if err == nil {
					t.Fatal("expected configuration error")
				}
				if !model.IsConfiguration(err) {
					t.Fatalf("expected ConfigurationError, got %T", err)
				}
			}
		})
	}
}

func TestIntervalForClosedDay(t *testing.T) {
	cal, err := NewCalendar([]DayRule{
		{Weekday: 1, IsWorking: true, StartMinute: 540, EndMinute: 1080},
	})
	if err != nil {
		t.Fatalf("NewCalendar failed: %v", err)
	}
	if _, ok := cal.IntervalFor(time.Sunday); ok {
		t.Fatal("expected Sunday closed")
	}
	rule, ok := cal.IntervalFor(time.Monday)
	if !ok {
		t.Fatal("expected Monday open")
	}
	if rule.StartMinute != 540 || rule.EndMinute != 1080 {
		t.Fatalf("unexpected rule: %+v", rule)
	}
}

func TestNewCalendarRejectsInvalidRule(t *testing.T) {
	_, err := NewCalendar([]DayRule{
		{Weekday: 1, IsWorking: true, StartMinute: 600, EndMinute: 600},
	})
	if err == nil {
		t.Fatal("expected configuration error")
	}
}

func TestWindowOn(t *testing.T) {
	loc, err := time.LoadLocation("America/Sao_Paulo")
	if err != nil {
		t.Fatalf("LoadLocation failed: %v", err)
	}
	cal, err := NewCalendar([]DayRule{
		{Weekday: 1, IsWorking: true, StartMinute: 9 * 60, EndMinute: 18 * 60},
	})
	if err != nil {
		t.Fatalf("NewCalendar failed: %v", err)
	}

	// 2026-03-02 is a Monday.
	day := time.Date(2026, 3, 2, 0, 0, 0, 0, loc)
	start, end, ok := cal.WindowOn(day, loc)
	if !ok {
		t.Fatal("expected open window on Monday")
	}
	wantStart := time.Date(2026, 3, 2, 9, 0, 0, 0, loc)
	wantEnd := time.Date(2026, 3, 2, 18, 0, 0, 0, loc)
	if !start.Equal(wantStart) || !end.Equal(wantEnd) {
		t.Fatalf("got window [%s, %s), want [%s, %s)", start, end, wantStart, wantEnd)
	}

	// 2026-03-01 is a Sunday: closed.
	if _, _, ok := cal.WindowOn(day.AddDate(0, 0, -1), loc); ok {
		t.Fatal("expected Sunday closed")
	}
}
