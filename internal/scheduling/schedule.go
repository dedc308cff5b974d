package scheduling

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var ErrInvalidWindow = errors.New("invalid working window")

// Window is a working block within a day, expressed as minutes since
// midnight. A day with a lunch break is modeled as two windows.
type Window struct {
	Start int // minutes since midnight, inclusive
	End   int // minutes since midnight, exclusive
}

func (w Window) String() string {
	return fmt.Sprintf("%s-%s", formatMinutes(w.Start), formatMinutes(w.End))
}

// Rule binds a window to a weekday of a doctor's schedule.
type Rule struct {
	Weekday time.Weekday
	Window  Window
}

// ParseWindow parses "09:00-12:00" into a Window.
func ParseWindow(s string) (Window, error) {
	parts := strings.SplitN(strings.TrimSpace(s), "-", 2)
	if len(parts) != 2 {
		return Window{}, fmt.Errorf("%w: %q", ErrInvalidWindow, s)
	}
	start, err := ParseClock(parts[0])
	if err != nil {
		return Window{}, fmt.Errorf("%w: %q", ErrInvalidWindow, s)
	}
	end, err := ParseClock(parts[1])
	if err != nil {
		return Window{}, fmt.Errorf("%w: %q", ErrInvalidWindow, s)
	}
	if end <= start {
		return Window{}, fmt.Errorf("%w: %q ends before it starts", ErrInvalidWindow, s)
	}
	return Window{Start: start, End: end}, nil
}

// ParseWindows parses a comma separated list, e.g. "09:00-12:00,14:00-17:00".
func ParseWindows(s string) ([]Window, error) {
	var out []Window
	for _, part := range strings.Split(s, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		w, err := ParseWindow(part)
		if err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: empty window list", ErrInvalidWindow)
	}
	return out, nil
}

// ParseClock parses "HH:MM" into minutes since midnight.
func ParseClock(s string) (int, error) {
	parts := strings.SplitN(strings.TrimSpace(s), ":", 2)
	if len(parts) != 2 {
		return 0, fmt.Errorf("invalid clock value %q", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("invalid clock value %q", s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("invalid clock value %q", s)
	}
	return h*60 + m, nil
}

func formatMinutes(m int) string {
	return fmt.Sprintf("%02d:%02d", m/60, m%60)
}

// WindowsFor resolves the working windows applicable to a weekday.
// Doctors with schedule rules use only their rules: a weekday without a
// rule is a day off. Doctors with no rules at all fall back to the clinic
// defaults on Monday through Friday.
func WindowsFor(rules []Rule, defaults []Window, day time.Weekday) []Window {
	if len(rules) == 0 {
		if day == time.Saturday || day == time.Sunday {
			return nil
		}
		return defaults
	}
	var out []Window
	for _, r := range rules {
		if r.Weekday == day {
			out = append(out, r.Window)
		}
	}
	return out
}
