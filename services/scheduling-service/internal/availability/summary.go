package availability

import "time"

// Summarize folds provider intervals into one entry per calendar day, keyed by
// weekday name. Days are computed in loc. A flag, once set, is never cleared.
func Summarize(intervals []RawInterval, loc *time.Location) map[string]DaySummary {
	if loc == nil {
		loc = time.UTC
	}
	out := make(map[string]DaySummary)
	for _, iv := range intervals {
		start := iv.Start.In(loc)
		key := start.Weekday().String()

		day, ok := out[key]
		if !ok {
			day = DaySummary{Date: start.Format(time.DateOnly)}
		}
		hour := start.Hour()
		if Morning.Contains(hour) {
			day.MorningAvailable = true
		}
		if Afternoon.Contains(hour) {
			day.AfternoonAvailable = true
		}
		out[key] = day
	}
	return out
}
