package model

import "time"

const (
	ViewHorizontal = "horizontal"
	ViewVertical   = "vertical"
	ViewGrid       = "grid"
	ViewCircular   = "circular"
)

func ValidViewMode(mode string) bool {
	switch mode {
	case ViewHorizontal, ViewVertical, ViewGrid, ViewCircular:
		return true
	}
	return false
}

type Timeline struct {
	ID          int64
	OwnerID     int64
	Title       string
	Description string
	ViewMode    string
	Public      bool
	ShareToken  string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Span returns the earliest range-start and latest range-end across
// the given events, so every view mode computes the same extent.
func Span(events []Event) (time.Time, time.Time, bool) {
	if len(events) == 0 {
		return time.Time{}, time.Time{}, false
	}

	start := events[0].Date.RangeStart()
	end := events[0].Date.RangeEnd()
	for _, e := range events[1:] {
		if s := e.Date.RangeStart(); s.Before(start) {
			start = s
		}
		if x := e.Date.RangeEnd(); x.After(end) {
			end = x
		}
	}
	return start, end, true
}
