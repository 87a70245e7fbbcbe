package scheduling

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/md-rashed-zaman/callbook/services/scheduling-service/internal/availability"
	"github.com/md-rashed-zaman/callbook/services/scheduling-service/internal/calendar"
	"github.com/md-rashed-zaman/callbook/services/scheduling-service/internal/daterange"
	"github.com/md-rashed-zaman/callbook/services/scheduling-service/internal/timectx"
)

type fakeCalendar struct {
	intervals []availability.RawInterval
	err       error
	calls     int
	lastRange daterange.Range
}

func (f *fakeCalendar) AvailableTimes(_ context.Context, _ string, r daterange.Range) ([]availability.RawInterval, error) {
	f.calls++
	f.lastRange = r
	return f.intervals, f.err
}

type fakeEventTypes struct {
	et  calendar.EventType
	err error
}

func (f fakeEventTypes) EventType(context.Context, string) (calendar.EventType, error) {
	return f.et, f.err
}

func newTestService(now time.Time, cal *fakeCalendar, et fakeEventTypes) *Service {
	times := timectx.NewResolver(timectx.Config{Clock: func() time.Time { return now }})
	return NewService(times, cal, et, nil, Config{})
}

const testEventType = "4f1e2c9a-8b7d-4c3e-9a21-5d6f7e8a9b0c"

var activeEventType = fakeEventTypes{et: calendar.EventType{URI: "u", Name: "Consult", Active: true, DurationMinutes: 30}}

func TestResolveWeekSummary(t *testing.T) {
	now := time.Date(2026, 10, 21, 8, 0, 0, 0, time.UTC) // Wednesday
	cal := &fakeCalendar{intervals: []availability.RawInterval{
		{Start: time.Date(2026, 10, 22, 9, 0, 0, 0, time.UTC)},
		{Start: time.Date(2026, 10, 23, 14, 0, 0, 0, time.UTC)},
	}}
	svc := newTestService(now, cal, activeEventType)

	got, err := svc.ResolveWeekSummary(context.Background(), WeekRequest{EventType: testEventType})
	if err != nil {
		t.Fatalf("resolve week: %v", err)
	}
	if !got.DateRange.Start.Equal(now.Add(daterange.LeadTime)) {
		t.Fatalf("unexpected range start %s", got.DateRange.Start)
	}
	if !got.Availability["Thursday"].MorningAvailable || !got.Availability["Friday"].AfternoonAvailable {
		t.Fatalf("unexpected summary %+v", got.Availability)
	}
	if got.TimeZone != "UTC" {
		t.Fatalf("unexpected zone %s", got.TimeZone)
	}
}

func TestResolveWeekSummary_WeekendRollover(t *testing.T) {
	now := time.Date(2026, 10, 25, 14, 0, 0, 0, time.UTC) // Sunday afternoon
	cal := &fakeCalendar{}
	svc := newTestService(now, cal, activeEventType)

	got, err := svc.ResolveWeekSummary(context.Background(), WeekRequest{EventType: testEventType})
	if err != nil {
		t.Fatalf("resolve week: %v", err)
	}
	if !got.NextWeek {
		t.Fatal("expected NextWeek to be flagged")
	}
	if !cal.lastRange.Start.Equal(time.Date(2026, 10, 26, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("expected provider query from next Monday, got %s", cal.lastRange.Start)
	}

	got, err = svc.ResolveWeekSummary(context.Background(), WeekRequest{EventType: testEventType, WeekOffset: 1})
	if err != nil {
		t.Fatalf("resolve week: %v", err)
	}
	if got.NextWeek {
		t.Fatal("explicit next-week requests are not a rollover")
	}
}

func TestResolveWeekSummary_Validation(t *testing.T) {
	cal := &fakeCalendar{}
	svc := newTestService(time.Now(), cal, activeEventType)

	for _, req := range []WeekRequest{
		{EventType: ""},
		{EventType: "   "},
		{EventType: testEventType, WeekOffset: -1},
		{EventType: "abc"},
		{EventType: "../../users/me"},
		{EventType: "https://api.calendly.com/users/me"},
		{EventType: "https://api.calendly.com/event_types/../users/me"},
		{EventType: "https://api.calendly.com/event_types/" + testEventType + "?x=1"},
		{EventType: "ftp://api.calendly.com/event_types/" + testEventType},
		{EventType: "urn:uuid:" + testEventType},
		{EventType: "{" + testEventType + "}"},
	} {
		_, err := svc.ResolveWeekSummary(context.Background(), req)
		var ve *ValidationError
		if !errors.As(err, &ve) {
			t.Fatalf("%+v: expected ValidationError, got %v", req, err)
		}
	}
	if cal.calls != 0 {
		t.Fatalf("provider must not be called for invalid input, got %d calls", cal.calls)
	}
}

func TestResolveWeekSummary_AcceptsEventTypeURI(t *testing.T) {
	cal := &fakeCalendar{}
	svc := newTestService(time.Date(2026, 10, 21, 8, 0, 0, 0, time.UTC), cal, activeEventType)

	for _, id := range []string{
		testEventType,
		" " + testEventType + " ",
		"https://api.calendly.com/event_types/" + testEventType,
	} {
		if _, err := svc.ResolveWeekSummary(context.Background(), WeekRequest{EventType: id}); err != nil {
			t.Fatalf("%q: unexpected error %v", id, err)
		}
	}
	if cal.calls != 3 {
		t.Fatalf("expected 3 provider calls, got %d", cal.calls)
	}
}

func TestResolveWeekSummary_ProviderError(t *testing.T) {
	cal := &fakeCalendar{err: &calendar.ProviderQueryError{Op: "available_times", Status: http.StatusBadGateway, Message: "upstream"}}
	svc := newTestService(time.Date(2026, 10, 21, 8, 0, 0, 0, time.UTC), cal, activeEventType)

	_, err := svc.ResolveWeekSummary(context.Background(), WeekRequest{EventType: testEventType})
	var pqe *calendar.ProviderQueryError
	if !errors.As(err, &pqe) || pqe.Message != "upstream" {
		t.Fatalf("expected provider error to propagate, got %v", err)
	}
	if cal.calls != 1 {
		t.Fatalf("expected a single provider call, got %d", cal.calls)
	}
}

func TestResolveWeekSummary_MissingToken(t *testing.T) {
	cal := &fakeCalendar{err: calendar.ErrNotConfigured}
	svc := newTestService(time.Date(2026, 10, 21, 8, 0, 0, 0, time.UTC), cal, activeEventType)

	_, err := svc.ResolveWeekSummary(context.Background(), WeekRequest{EventType: testEventType})
	var ce *ConfigurationError
	if !errors.As(err, &ce) || ce.Key != "CALENDAR_API_TOKEN" {
		t.Fatalf("expected ConfigurationError, got %v", err)
	}
}

func TestResolveDaySlots(t *testing.T) {
	now := time.Date(2026, 10, 21, 8, 0, 0, 0, time.UTC)
	nine := time.Date(2026, 10, 22, 9, 0, 0, 0, time.UTC)
	ten := nine.Add(time.Hour)
	cal := &fakeCalendar{intervals: []availability.RawInterval{
		{Start: nine, End: &ten, SchedulingURL: "https://calendly.com/x"},
		{Start: time.Date(2026, 10, 22, 14, 0, 0, 0, time.UTC)},
	}}
	svc := newTestService(now, cal, activeEventType)

	got, err := svc.ResolveDaySlots(context.Background(), DayRequest{EventType: testEventType, Date: "2026-10-22", Period: "morning"})
	if err != nil {
		t.Fatalf("resolve day: %v", err)
	}
	if len(got.Availability) != 2 {
		t.Fatalf("expected 2 morning slots, got %d", len(got.Availability))
	}
	if got.Availability[0].DisplayTime != "9:00 AM" || got.Availability[1].DisplayTime != "9:30 AM" {
		t.Fatalf("unexpected slots %+v", got.Availability)
	}
	if !cal.lastRange.Start.Equal(time.Date(2026, 10, 22, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("expected full-day query, got %s", cal.lastRange.Start)
	}
	if got.EventType != "Consult" {
		t.Fatalf("unexpected event type name %q", got.EventType)
	}
}

func TestResolveDaySlots_AfterCloseSkipsProvider(t *testing.T) {
	now := time.Date(2026, 10, 21, 17, 30, 0, 0, time.UTC)
	cal := &fakeCalendar{}
	svc := newTestService(now, cal, activeEventType)

	got, err := svc.ResolveDaySlots(context.Background(), DayRequest{EventType: testEventType, Date: "2026-10-21", Period: "afternoon"})
	if err != nil {
		t.Fatalf("resolve day: %v", err)
	}
	if !got.DateRange.Start.Equal(got.DateRange.End) {
		t.Fatalf("expected zero-width range, got %+v", got.DateRange)
	}
	if cal.calls != 0 {
		t.Fatalf("expected no provider call, got %d", cal.calls)
	}
	if got.Availability == nil || len(got.Availability) != 0 {
		t.Fatalf("expected empty slot list, got %#v", got.Availability)
	}
}

func TestResolveDaySlots_PastDaySkipsProvider(t *testing.T) {
	cal := &fakeCalendar{}
	svc := newTestService(time.Date(2026, 10, 21, 10, 0, 0, 0, time.UTC), cal, activeEventType)

	if _, err := svc.ResolveDaySlots(context.Background(), DayRequest{EventType: testEventType, Date: "2026-10-20", Period: "morning"}); err != nil {
		t.Fatalf("resolve day: %v", err)
	}
	if cal.calls != 0 {
		t.Fatalf("expected no provider call for a past day, got %d", cal.calls)
	}
}

func TestResolveDaySlots_Validation(t *testing.T) {
	cal := &fakeCalendar{}
	svc := newTestService(time.Now(), cal, activeEventType)

	tests := []struct {
		req   DayRequest
		field string
	}{
		{DayRequest{Date: "2026-10-22", Period: "morning"}, "event_type"},
		{DayRequest{EventType: testEventType, Period: "morning"}, "date"},
		{DayRequest{EventType: testEventType, Date: "tomorrow", Period: "morning"}, "date"},
		{DayRequest{EventType: testEventType, Date: "2026-10-22", Period: "evening"}, "period"},
		{DayRequest{EventType: testEventType, Date: "2026-10-22"}, "period"},
		{DayRequest{EventType: "abc", Date: "2026-10-22", Period: "morning"}, "event_type"},
		{DayRequest{EventType: "../../users/me", Date: "2026-10-22", Period: "morning"}, "event_type"},
		{DayRequest{EventType: "https://evil.example/users/" + testEventType, Date: "2026-10-22", Period: "morning"}, "event_type"},
		{DayRequest{EventType: testEventType, Date: "2026-10-22", Period: "morning", SlotMinutes: -15}, "slot_minutes"},
		{DayRequest{EventType: testEventType, Date: "2026-10-22", Period: "morning", SlotMinutes: 241}, "slot_minutes"},
		{DayRequest{EventType: testEventType, Date: "2026-10-22", Period: "morning", SlotMinutes: 1 << 53}, "slot_minutes"},
	}
	for _, tt := range tests {
		_, err := svc.ResolveDaySlots(context.Background(), tt.req)
		var ve *ValidationError
		if !errors.As(err, &ve) || ve.Field != tt.field {
			t.Fatalf("%+v: expected ValidationError on %s, got %v", tt.req, tt.field, err)
		}
	}
	if cal.calls != 0 {
		t.Fatalf("provider must not be called for invalid input")
	}
}

func TestResolveDaySlots_InactiveEventType(t *testing.T) {
	cal := &fakeCalendar{}
	inactive := fakeEventTypes{et: calendar.EventType{URI: "u", Active: false, DurationMinutes: 30}}
	svc := newTestService(time.Date(2026, 10, 21, 8, 0, 0, 0, time.UTC), cal, inactive)

	_, err := svc.ResolveDaySlots(context.Background(), DayRequest{EventType: testEventType, Date: "2026-10-22", Period: "morning"})
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestResolveDaySlots_SixtyMinuteEventBlocks(t *testing.T) {
	now := time.Date(2026, 10, 21, 8, 0, 0, 0, time.UTC)
	cal := &fakeCalendar{intervals: []availability.RawInterval{
		{Start: time.Date(2026, 10, 22, 13, 0, 0, 0, time.UTC)},
	}}
	hour := fakeEventTypes{et: calendar.EventType{URI: "u", Active: true, DurationMinutes: 60}}
	svc := newTestService(now, cal, hour)

	got, err := svc.ResolveDaySlots(context.Background(), DayRequest{EventType: testEventType, Date: "2026-10-22", Period: "afternoon"})
	if err != nil {
		t.Fatalf("resolve day: %v", err)
	}
	if len(got.Availability) != 2 {
		t.Fatalf("expected 2 slots from a 60 minute block, got %d", len(got.Availability))
	}
}
