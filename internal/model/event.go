package model

import "time"

// EventDate is a possibly partial calendar date. Year may be negative
// for BC dates. Month and Day are 0 when unspecified.
type EventDate struct {
	Year  int
	Month int
	Day   int
}

// RangeStart resolves unspecified fields to the beginning of the range:
// month defaults to 1, day defaults to 1.
func (d EventDate) RangeStart() time.Time {
	month := d.Month
	if month == 0 {
		month = 1
	}
	day := d.Day
	if day == 0 {
		day = 1
	}
	return time.Date(d.Year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
}

// RangeEnd resolves unspecified fields to the end of the range:
// month defaults to 12, day defaults to the last day of the month.
func (d EventDate) RangeEnd() time.Time {
	month := d.Month
	if month == 0 {
		month = 12
	}
	day := d.Day
	if day == 0 {
		day = daysInMonth(d.Year, month)
	}
	return time.Date(d.Year, time.Month(month), day, 23, 59, 59, 0, time.UTC)
}

func daysInMonth(year, month int) int {
	switch month {
	case 1, 3, 5, 7, 8, 10, 12:
		return 31
	case 4, 6, 9, 11:
		return 30
	}
	if isLeapYear(year) {
		return 29
	}
	return 28
}

func isLeapYear(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}

type Event struct {
	ID          int64
	TimelineID  int64
	Title       string
	Description string
	Date        EventDate
	ImageURL    string
	ImagePrompt string
	Category    string
	Links       []string
	Position    int
	CreatedAt   time.Time
}

const (
	ConfidenceHigh   = "high"
	ConfidenceMedium = "medium"
	ConfidenceLow    = "low"
)

// Verification is ephemeral: produced by the verification stage,
// consumed by correction or surfaced to the caller, never stored.
type Verification struct {
	Verified   bool
	Confidence string
	Issues     []string
}

type VerifiedEvent struct {
	Event        Event
	Verification Verification
}

type VerificationSummary struct {
	Total            int
	VerifiedCount    int
	FlaggedCount     int
	HighConfidence   int
	MediumConfidence int
	LowConfidence    int
}
