package scheduling

import (
	"sort"
	"time"
)

// Interval is an occupied [Start, End) span used to exclude candidate slots.
type Interval struct {
	Start time.Time
	End   time.Time
}

func (iv Interval) overlaps(start, end time.Time) bool {
	return start.Before(iv.End) && iv.Start.Before(end)
}

// Slots computes the bookable start times for a doctor on a given date.
//
// Each window is partitioned into consecutive intervals of the consultation
// duration, starting at the window's opening time; a trailing interval that
// would run past the closing time is discarded. Candidates overlapping any
// booked interval are removed, as are candidates not strictly after now when
// the date is today. The result is ascending; empty is a valid result.
func Slots(date time.Time, duration time.Duration, windows []Window, booked []Interval, now time.Time) []time.Time {
	if duration <= 0 {
		return nil
	}

	midnight := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())

	// The calendar-day comparison must happen in the date's own zone, or a
	// clinic running behind the server clock would see "today" flip early
	// and past slots leak back in.
	now = now.In(midnight.Location())
	sameDay := midnight.Year() == now.Year() && midnight.YearDay() == now.YearDay()

	var slots []time.Time
	for _, w := range windows {
		open := midnight.Add(time.Duration(w.Start) * time.Minute)
		close := midnight.Add(time.Duration(w.End) * time.Minute)

		for cur := open; !cur.Add(duration).After(close); cur = cur.Add(duration) {
			if sameDay && !cur.After(now) {
				continue
			}
			if isBooked(cur, cur.Add(duration), booked) {
				continue
			}
			slots = append(slots, cur)
		}
	}

	sort.Slice(slots, func(i, j int) bool { return slots[i].Before(slots[j]) })
	return slots
}

func isBooked(start, end time.Time, booked []Interval) bool {
	for _, iv := range booked {
		if iv.overlaps(start, end) {
			return true
		}
	}
	return false
}

// FormatSlots renders slot start times as HH:MM strings for the API.
func FormatSlots(slots []time.Time) []string {
	out := make([]string, 0, len(slots))
	for _, s := range slots {
		out = append(out, s.Format("15:04"))
	}
	return out
}
