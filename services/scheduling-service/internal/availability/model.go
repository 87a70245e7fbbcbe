package availability

import (
	"fmt"
	"strings"
	"time"
)

// RawInterval is one available start time as reported by the calendar
// provider. End is nil when the provider only reports start times.
type RawInterval struct {
	Start         time.Time
	End           *time.Time
	SchedulingURL string
}

type DaySummary struct {
	Date               string `json:"date"`
	MorningAvailable   bool   `json:"morning_available"`
	AfternoonAvailable bool   `json:"afternoon_available"`
}

type BookableSlot struct {
	DisplayTime   string    `json:"display_time"`
	Timestamp     time.Time `json:"timestamp"`
	SchedulingURL string    `json:"scheduling_url"`
}

// Period is a half-day bucket callers pick from.
type Period string

const (
	Morning   Period = "morning"
	Afternoon Period = "afternoon"
)

const (
	morningStartHour   = 5
	afternoonStartHour = 12
	afternoonEndHour   = 17
)

func ParsePeriod(raw string) (Period, error) {
	switch p := Period(strings.ToLower(strings.TrimSpace(raw))); p {
	case Morning, Afternoon:
		return p, nil
	default:
		return "", fmt.Errorf("unknown period %q (want morning or afternoon)", raw)
	}
}

// Contains reports whether an interval starting at hour belongs to p.
func (p Period) Contains(hour int) bool {
	switch p {
	case Morning:
		return hour >= morningStartHour && hour < afternoonStartHour
	case Afternoon:
		return hour >= afternoonStartHour && hour < afternoonEndHour
	default:
		return false
	}
}
