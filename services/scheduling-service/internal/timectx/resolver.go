// Package timectx works out "now" from the caller's point of view.
package timectx

import (
	"strings"
	"time"

	"github.com/nyaruka/phonenumbers"
)

const (
	DateLayout = "Monday, January 2, 2006"
	TimeLayout = "3:04 PM"

	unknownZone = "Etc/Unknown"
)

// Context is the caller's current date and time, ready to be read out.
type Context struct {
	Date     string    `json:"date"`
	Time     string    `json:"time"`
	TimeZone string    `json:"time_zone"`
	Now      time.Time `json:"now"`
}

type Config struct {
	// Fallback is used when the caller's zone cannot be determined.
	// Nil means UTC.
	Fallback *time.Location
	// Region is the default region for numbers without a country code.
	Region string
	Clock  func() time.Time
}

type Resolver struct {
	fallback *time.Location
	region   string
	clock    func() time.Time
}

func NewResolver(cfg Config) *Resolver {
	if cfg.Fallback == nil {
		cfg.Fallback = time.UTC
	}
	cfg.Region = strings.ToUpper(strings.TrimSpace(cfg.Region))
	if cfg.Region == "" {
		cfg.Region = "US"
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	return &Resolver{fallback: cfg.Fallback, region: cfg.Region, clock: cfg.Clock}
}

// Resolve returns the current time in the zone of callerID, a phone number.
// Empty, unparsable or unmapped numbers silently use the fallback zone.
func (r *Resolver) Resolve(callerID string) Context {
	loc := r.Location(callerID)
	now := r.clock().In(loc)
	return Context{
		Date:     now.Format(DateLayout),
		Time:     now.Format(TimeLayout),
		TimeZone: loc.String(),
		Now:      now,
	}
}

// Location returns the zone for callerID, or the fallback.
func (r *Resolver) Location(callerID string) *time.Location {
	if loc, ok := r.lookup(callerID); ok {
		return loc
	}
	return r.fallback
}

func (r *Resolver) Fallback() *time.Location {
	return r.fallback
}

func (r *Resolver) lookup(callerID string) (*time.Location, bool) {
	callerID = strings.TrimSpace(callerID)
	if callerID == "" {
		return nil, false
	}
	num, err := phonenumbers.Parse(callerID, r.region)
	if err != nil {
		return nil, false
	}
	zones, err := phonenumbers.GetTimezonesForNumber(num)
	if err != nil {
		return nil, false
	}
	for _, z := range zones {
		if z == "" || z == unknownZone {
			continue
		}
		if loc, err := time.LoadLocation(z); err == nil {
			return loc, true
		}
	}
	return nil, false
}

// ParseDate reads a calendar day requested by a caller. Both 2006-01-02 and
// RFC 3339 timestamps are accepted; the result is midnight of that day in loc.
func ParseDate(raw string, loc *time.Location) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if loc == nil {
		loc = time.UTC
	}
	if t, err := time.ParseInLocation(time.DateOnly, raw, loc); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, err
	}
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc), nil
}
