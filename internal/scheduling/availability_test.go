package scheduling

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustWindows(t *testing.T, s string) []Window {
	t.Helper()
	ws, err := ParseWindows(s)
	require.NoError(t, err)
	return ws
}

func day(t *testing.T, date string) time.Time {
	t.Helper()
	d, err := time.Parse("2006-01-02", date)
	require.NoError(t, err)
	return d
}

func at(t *testing.T, date, clock string) time.Time {
	t.Helper()
	ts, err := time.Parse("2006-01-02 15:04", date+" "+clock)
	require.NoError(t, err)
	return ts
}

func TestSlotsPartitionsWindow(t *testing.T) {
	d := day(t, "2026-09-07") // a Monday
	now := at(t, "2026-09-01", "08:00")

	slots := Slots(d, 30*time.Minute, mustWindows(t, "09:00-10:30"), nil, now)

	assert.Equal(t, []string{"09:00", "09:30", "10:00"}, FormatSlots(slots))
}

func TestSlotsSkipsBookedStart(t *testing.T) {
	d := day(t, "2026-09-07")
	now := at(t, "2026-09-01", "08:00")

	booked := []Interval{{Start: at(t, "2026-09-07", "09:00"), End: at(t, "2026-09-07", "09:30")}}
	slots := Slots(d, 30*time.Minute, mustWindows(t, "09:00-10:00"), booked, now)

	assert.Equal(t, []string{"09:30"}, FormatSlots(slots))
}

func TestSlotsRespectsLunchBreak(t *testing.T) {
	d := day(t, "2026-09-07")
	now := at(t, "2026-09-01", "08:00")

	slots := Slots(d, time.Hour, mustWindows(t, "09:00-12:00,14:00-17:00"), nil, now)

	assert.Equal(t, []string{"09:00", "10:00", "11:00", "14:00", "15:00", "16:00"}, FormatSlots(slots))
}

func TestSlotsDropsTrailingPartialInterval(t *testing.T) {
	d := day(t, "2026-09-07")
	now := at(t, "2026-09-01", "08:00")

	// 45-minute consultations in a 2-hour window: 09:00 and 09:45 fit,
	// 10:30 would end at 11:15 past closing.
	slots := Slots(d, 45*time.Minute, mustWindows(t, "09:00-11:00"), nil, now)

	assert.Equal(t, []string{"09:00", "09:45"}, FormatSlots(slots))
}

func TestSlotsExcludesPastTimesToday(t *testing.T) {
	d := day(t, "2026-09-07")
	now := at(t, "2026-09-07", "10:00")

	slots := Slots(d, 30*time.Minute, mustWindows(t, "09:00-11:00"), nil, now)

	// 10:00 itself is not strictly after now, so it goes too.
	assert.Equal(t, []string{"10:30"}, FormatSlots(slots))
}

func TestSlotsSameDayAcrossZones(t *testing.T) {
	// Clinic runs ten hours behind the process clock. At 08:00 UTC on the
	// 8th it is still 22:00 on the 7th at the clinic: the 7th is the
	// current day there and its finished slots must not reappear.
	clinic := time.FixedZone("UTC-10", -10*3600)
	d := time.Date(2026, 9, 7, 0, 0, 0, 0, clinic)
	now := time.Date(2026, 9, 8, 8, 0, 0, 0, time.UTC)

	slots := Slots(d, 30*time.Minute, mustWindows(t, "09:00-12:00"), nil, now)

	assert.Empty(t, slots)
}

func TestSlotsSameDayAcrossZonesPartial(t *testing.T) {
	// 20:00 UTC is 10:00 at the clinic: the morning's 09:00 and 09:30
	// are gone, later starts remain.
	clinic := time.FixedZone("UTC-10", -10*3600)
	d := time.Date(2026, 9, 7, 0, 0, 0, 0, clinic)
	now := time.Date(2026, 9, 7, 20, 0, 0, 0, time.UTC)

	slots := Slots(d, 30*time.Minute, mustWindows(t, "09:00-12:00"), nil, now)

	assert.Equal(t, []string{"10:30", "11:00", "11:30"}, FormatSlots(slots))
}

func TestSlotsFutureDayIgnoresClock(t *testing.T) {
	d := day(t, "2026-09-08")
	now := at(t, "2026-09-07", "16:00")

	slots := Slots(d, 30*time.Minute, mustWindows(t, "09:00-10:00"), nil, now)

	assert.Equal(t, []string{"09:00", "09:30"}, FormatSlots(slots))
}

func TestSlotsOverlapIsHalfOpen(t *testing.T) {
	d := day(t, "2026-09-07")
	now := at(t, "2026-09-01", "08:00")

	// An appointment ending exactly at 09:30 must not block the 09:30 slot.
	booked := []Interval{{Start: at(t, "2026-09-07", "09:00"), End: at(t, "2026-09-07", "09:30")}}
	slots := Slots(d, 30*time.Minute, mustWindows(t, "09:30-10:00"), booked, now)

	assert.Equal(t, []string{"09:30"}, FormatSlots(slots))
}

func TestSlotsZeroDuration(t *testing.T) {
	d := day(t, "2026-09-07")
	now := at(t, "2026-09-01", "08:00")

	assert.Nil(t, Slots(d, 0, mustWindows(t, "09:00-10:00"), nil, now))
}

func TestSlotsNoWindows(t *testing.T) {
	d := day(t, "2026-09-07")
	now := at(t, "2026-09-01", "08:00")

	assert.Empty(t, Slots(d, 30*time.Minute, nil, nil, now))
}

func TestFormatSlotsEmpty(t *testing.T) {
	assert.Equal(t, []string{}, FormatSlots(nil))
}
