package availability

import (
	"testing"
	"time"
)

func at(h, m int) time.Time {
	return time.Date(2026, 3, 2, h, m, 0, 0, time.UTC) // a Monday
}

func TestAvailableSlots_AroundBusyBlock(t *testing.T) {
	// Working hours 09:00-18:00, one appointment 10:00-10:30, 30 min requested.
	busy := []Interval{{Start: at(10, 0), End: at(10, 30)}}
	slots := AvailableSlots(at(9, 0), at(18, 0), 30*time.Minute, SlotStep, busy)

	want := map[time.Time]bool{}
	for _, s := range slots {
		want[s] = true
	}

	for _, mustHave := range []time.Time{at(9, 0), at(9, 15), at(9, 30), at(10, 30), at(10, 45), at(17, 30)} {
		if !want[mustHave] {
			t.Errorf("expected slot %s to be available", mustHave.Format("15:04"))
		}
	}
	// 09:45+30m overlaps 10:00-10:30; 10:00 starts inside the busy block.
	for _, mustMiss := range []time.Time{at(9, 45), at(10, 0), at(10, 15), at(17, 45)} {
		if want[mustMiss] {
			t.Errorf("expected slot %s to be excluded", mustMiss.Format("15:04"))
		}
	}

	// 09:30+30m == 10:00 touches the busy block boundary: not a conflict.
	if !want[at(9, 30)] {
		t.Error("slot ending exactly at busy start must be available")
	}
}

func TestAvailableSlots_ExactWindowFit(t *testing.T) {
	// Duration 540 min on a 09:00-18:00 day: the only slot is 09:00.
	slots := AvailableSlots(at(9, 0), at(18, 0), 540*time.Minute, SlotStep, nil)
	if len(slots) != 1 {
		t.Fatalf("expected exactly 1 slot, got %d", len(slots))
	}
	if !slots[0].Equal(at(9, 0)) {
		t.Fatalf("expected 09:00, got %s", slots[0].Format("15:04"))
	}
}

func TestAvailableSlots_DurationExceedsWindow(t *testing.T) {
	if slots := AvailableSlots(at(9, 0), at(18, 0), 541*time.Minute, SlotStep, nil); len(slots) != 0 {
		t.Fatalf("expected empty result, got %d slots", len(slots))
	}
}

func TestAvailableSlots_InvalidInput(t *testing.T) {
	if slots := AvailableSlots(at(9, 0), at(18, 0), 0, SlotStep, nil); slots != nil {
		t.Fatal("zero duration must yield nil")
	}
	if slots := AvailableSlots(at(18, 0), at(9, 0), 30*time.Minute, SlotStep, nil); slots != nil {
		t.Fatal("inverted window must yield nil")
	}
}

func TestAvailableSlots_GridAlignment(t *testing.T) {
	slots := AvailableSlots(at(9, 0), at(18, 0), 45*time.Minute, SlotStep, nil)
	for _, s := range slots {
		if !Aligned(s, at(9, 0), SlotStep) {
			t.Fatalf("slot %s not on the 15-minute grid", s.Format("15:04"))
		}
	}
}

func TestAvailableSlots_Ascending(t *testing.T) {
	busy := []Interval{
		{Start: at(11, 0), End: at(12, 0)},
		{Start: at(9, 30), End: at(9, 45)},
	}
	slots := AvailableSlots(at(9, 0), at(18, 0), 30*time.Minute, SlotStep, busy)
	for i := 1; i < len(slots); i++ {
		if !slots[i].After(slots[i-1]) {
			t.Fatal("slots must be strictly ascending")
		}
	}
}

func TestAvailableSlots_Idempotent(t *testing.T) {
	busy := []Interval{{Start: at(13, 0), End: at(14, 15)}}
	first := AvailableSlots(at(9, 0), at(18, 0), 60*time.Minute, SlotStep, busy)
	second := AvailableSlots(at(9, 0), at(18, 0), 60*time.Minute, SlotStep, busy)
	if len(first) != len(second) {
		t.Fatalf("lengths differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if !first[i].Equal(second[i]) {
			t.Fatalf("slot %d differs: %s vs %s", i, first[i], second[i])
		}
	}
}

func TestAligned(t *testing.T) {
	if !Aligned(at(9, 45), at(9, 0), SlotStep) {
		t.Error("09:45 is on the grid anchored at 09:00")
	}
	if Aligned(at(9, 50), at(9, 0), SlotStep) {
		t.Error("09:50 is off the grid anchored at 09:00")
	}
	if Aligned(at(8, 45), at(9, 0), SlotStep) {
		t.Error("slots before the window start are not aligned")
	}
	// A window starting off the hour anchors its own grid.
	if !Aligned(at(9, 50), at(9, 20), SlotStep) {
		t.Error("09:50 is on the grid anchored at 09:20")
	}
}

func TestIntervalOverlaps(t *testing.T) {
	a := Interval{Start: at(10, 0), End: at(11, 0)}
	cases := []struct {
		b    Interval
		want bool
	}{
		{Interval{Start: at(10, 30), End: at(11, 30)}, true},
		{Interval{Start: at(9, 0), End: at(10, 30)}, true},
		{Interval{Start: at(10, 15), End: at(10, 45)}, true},
		{Interval{Start: at(9, 0), End: at(12, 0)}, true},
		{Interval{Start: at(11, 0), End: at(12, 0)}, false}, // touching end
		{Interval{Start: at(9, 0), End: at(10, 0)}, false},  // touching start
		{Interval{Start: at(12, 0), End: at(13, 0)}, false},
	}
	for _, tc := range cases {
		if got := a.Overlaps(tc.b); got != tc.want {
			t.Errorf("Overlaps(%s-%s): got %v, want %v",
				tc.b.Start.Format("15:04"), tc.b.End.Format("15:04"), got, tc.want)
		}
	}
}
