package availability

import "time"

// SlotStep is the booking grid granularity. It is a policy constant, not
// derived from service durations.
const SlotStep = 15 * time.Minute

type Interval struct {
	Start time.Time
	End   time.Time
}

// Overlaps reports half-open overlap: [a.Start,a.End) intersects [b.Start,b.End).
// Touching boundaries do not overlap.
func (a Interval) Overlaps(b Interval) bool {
	return a.Start.Before(b.End) && b.Start.Before(a.End)
}

// AvailableSlots returns every start time on the step grid anchored at
// windowStart where a block of length duration fits inside
// [windowStart, windowEnd) without overlapping any busy interval.
//
// The result is deterministic: it depends only on the arguments, so repeated
// calls over an unchanged busy set return identical sequences. All times must
// share a location.
func AvailableSlots(windowStart, windowEnd time.Time, duration, step time.Duration, busy []Interval) []time.Time {
	if duration <= 0 || step <= 0 {
		return nil
	}
	if !windowEnd.After(windowStart) {
		return nil
	}

	var slots []time.Time
	for t := windowStart; !t.Add(duration).After(windowEnd); t = t.Add(step) {
		if !overlapsAny(Interval{Start: t, End: t.Add(duration)}, busy) {
			slots = append(slots, t)
		}
	}
	return slots
}

// Aligned reports whether start sits on the step grid anchored at windowStart.
func Aligned(start, windowStart time.Time, step time.Duration) bool {
	if step <= 0 {
		return false
	}
	diff := start.Sub(windowStart)
	return diff >= 0 && diff%step == 0
}

func overlapsAny(candidate Interval, busy []Interval) bool {
	for _, b := range busy {
		if candidate.Overlaps(b) {
			return true
		}
	}
	return false
}
