package availability

import (
	"sort"
	"time"
)

// DisplayTimeLayout is how slot times are read back to callers.
const DisplayTimeLayout = "3:04 PM"

// MaxSlotMinutes is the longest slot a caller may ask for.
const MaxSlotMinutes = 240

// DefaultBlockDuration is assumed for intervals without an end time: an hour
// for hour-long event types, half an hour otherwise.
func DefaultBlockDuration(eventMinutes int) time.Duration {
	if eventMinutes == 60 {
		return 60 * time.Minute
	}
	return 30 * time.Minute
}

// Enumerate expands the intervals starting within period into slots of
// slotMinutes, sorted by start time. Every slot starts strictly before its
// interval's end, and an interval shorter than one slot yields nothing.
func Enumerate(intervals []RawInterval, period Period, slotMinutes, eventMinutes int, loc *time.Location) []BookableSlot {
	if slotMinutes <= 0 || slotMinutes > MaxSlotMinutes {
		return []BookableSlot{}
	}
	if loc == nil {
		loc = time.UTC
	}
	step := time.Duration(slotMinutes) * time.Minute
	if step <= 0 {
		return []BookableSlot{}
	}
	block := DefaultBlockDuration(eventMinutes)

	slots := []BookableSlot{}
	for _, iv := range intervals {
		start := iv.Start.In(loc)
		if !period.Contains(start.Hour()) {
			continue
		}
		end := start.Add(block)
		if iv.End != nil {
			end = iv.End.In(loc)
		}
		if end.Sub(start) < step {
			continue
		}
		for t := start; t.Before(end); t = t.Add(step) {
			slots = append(slots, BookableSlot{
				DisplayTime:   t.Format(DisplayTimeLayout),
				Timestamp:     t,
				SchedulingURL: iv.SchedulingURL,
			})
		}
	}

	sort.SliceStable(slots, func(i, j int) bool {
		return slots[i].Timestamp.Before(slots[j].Timestamp)
	})
	return slots
}
