package daterange

import "time"

const (
	WorkdayStartHour = 9
	WorkdayEndHour   = 17

	// SafetyBuffer keeps "today" queries from offering a slot that starts
	// while the caller is still on the phone.
	SafetyBuffer = 5 * time.Minute
	// LeadTime is the minimum notice for "this week" queries.
	LeadTime = 3 * time.Hour
	// RolloverThreshold: a weekend "this week" request with less than this
	// left before Sunday midnight is answered with next week instead.
	RolloverThreshold = 12 * time.Hour
)

// Range is the [Start, End] window sent to the calendar provider.
// Start never exceeds End; Start == End means nothing is left to offer.
type Range struct {
	Start time.Time `json:"start_time"`
	End   time.Time `json:"end_time"`
}

func (r Range) Empty() bool {
	return !r.End.After(r.Start)
}

// ForDate resolves the window for an explicit calendar day. date is read in
// now's location; only its year, month and day are used.
func ForDate(now, date time.Time) Range {
	loc := now.Location()
	day := startOfDay(date.In(loc))
	if !sameDay(day, now) {
		return Range{Start: day, End: endOfDay(day)}
	}

	workStart := atHour(day, WorkdayStartHour)
	workEnd := atHour(day, WorkdayEndHour)

	start := now.Add(SafetyBuffer)
	if start.Before(workStart) {
		start = workStart
	}
	if start.After(workEnd) {
		// Past closing time: zero-width window.
		return Range{Start: workEnd, End: workEnd}
	}
	return Range{Start: start, End: workEnd}
}

// ForWeek resolves the window for a Monday-start week, offset weeks ahead of
// the week containing now. Negative offsets are treated as the current week.
func ForWeek(now time.Time, offset int) Range {
	if offset <= 0 {
		return currentWeek(now)
	}
	start := nextMonday(now).AddDate(0, 0, 7*(offset-1))
	return fullWeek(start)
}

// RollsOver reports whether a "this week" request made at now is answered
// with next week.
func RollsOver(now time.Time) bool {
	weekEnd := endOfDay(mondayOf(now).AddDate(0, 0, 6))
	return isWeekend(now) && weekEnd.Sub(now) < RolloverThreshold
}

func currentWeek(now time.Time) Range {
	weekStart := mondayOf(now)
	weekEnd := endOfDay(weekStart.AddDate(0, 0, 6))

	if RollsOver(now) {
		return fullWeek(nextMonday(now))
	}

	start := now
	if start.Before(weekStart) {
		start = weekStart
	}
	start = start.Add(LeadTime)
	if start.After(weekEnd) {
		return Range{Start: weekEnd, End: weekEnd}
	}
	return Range{Start: start, End: weekEnd}
}

func fullWeek(monday time.Time) Range {
	return Range{Start: monday, End: endOfDay(monday.AddDate(0, 0, 6))}
}

// mondayOf returns 00:00 on the Monday of t's week, in t's location.
func mondayOf(t time.Time) time.Time {
	weekday := int(t.Weekday())
	if weekday == 0 {
		weekday = 7
	}
	return startOfDay(t).AddDate(0, 0, -(weekday - 1))
}

// nextMonday returns the first Monday strictly after t's day.
func nextMonday(t time.Time) time.Time {
	return mondayOf(t).AddDate(0, 0, 7)
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// endOfDay is 23:59:59.999 wall-clock time, which stays correct on DST
// transition days where a day is not 24h long.
func endOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 23, 59, 59, int(999*time.Millisecond), t.Location())
}

func atHour(t time.Time, hour int) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, hour, 0, 0, 0, t.Location())
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

func isWeekend(t time.Time) bool {
	wd := t.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}
