package scheduling

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/md-rashed-zaman/callbook/services/scheduling-service/internal/availability"
	"github.com/md-rashed-zaman/callbook/services/scheduling-service/internal/calendar"
	"github.com/md-rashed-zaman/callbook/services/scheduling-service/internal/daterange"
	"github.com/md-rashed-zaman/callbook/services/scheduling-service/internal/timectx"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const DefaultSlotMinutes = 30

type WeekRequest struct {
	EventType  string
	WeekOffset int
	CallerID   string
}

type DayRequest struct {
	EventType string
	Date      string
	Period    string
	CallerID  string
	// SlotMinutes overrides the configured slot length when non-zero.
	SlotMinutes int
}

// WeekSummary answers a week request. NextWeek is set when a late-weekend
// "this week" request was answered with the following week.
type WeekSummary struct {
	DateRange    daterange.Range                    `json:"date_range"`
	TimeZone     string                             `json:"time_zone"`
	NextWeek     bool                               `json:"next_week,omitempty"`
	Availability map[string]availability.DaySummary `json:"availability"`
}

type DaySlots struct {
	DateRange    daterange.Range             `json:"date_range"`
	TimeZone     string                      `json:"time_zone"`
	EventType    string                      `json:"event_type,omitempty"`
	Availability []availability.BookableSlot `json:"availability"`
}

type Config struct {
	SlotMinutes int
}

type Service struct {
	times      *timectx.Resolver
	calendar   calendar.AvailabilitySource
	eventTypes calendar.EventTypeSource
	logger     *slog.Logger
	slot       int
	tracer     trace.Tracer
}

func NewService(times *timectx.Resolver, cal calendar.AvailabilitySource, eventTypes calendar.EventTypeSource, logger *slog.Logger, cfg Config) *Service {
	if cfg.SlotMinutes <= 0 {
		cfg.SlotMinutes = DefaultSlotMinutes
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		times:      times,
		calendar:   cal,
		eventTypes: eventTypes,
		logger:     logger,
		slot:       cfg.SlotMinutes,
		tracer:     otel.Tracer("callbook/scheduling"),
	}
}

func (s *Service) TimeContext(callerID string) timectx.Context {
	return s.times.Resolve(callerID)
}

// ResolveWeekSummary reports, per day of the requested week, whether the
// morning and afternoon still have openings.
func (s *Service) ResolveWeekSummary(ctx context.Context, req WeekRequest) (WeekSummary, error) {
	eventType, err := parseEventType(req.EventType)
	if err != nil {
		return WeekSummary{}, err
	}
	if req.WeekOffset < 0 {
		return WeekSummary{}, invalid("week_offset", "must not be negative")
	}

	ctx, span := s.tracer.Start(ctx, "scheduling.ResolveWeekSummary", trace.WithAttributes(
		attribute.String("event_type", eventType),
		attribute.Int("week_offset", req.WeekOffset),
	))
	defer span.End()

	now := s.times.Resolve(req.CallerID).Now
	r := daterange.ForWeek(now, req.WeekOffset)
	rolled := req.WeekOffset == 0 && daterange.RollsOver(now)
	if rolled {
		s.logger.Info("weekend rollover: answering with next week",
			"event_type", eventType,
			"now", now.Format(time.RFC3339),
		)
		span.SetAttributes(attribute.Bool("next_week", true))
	}

	intervals, err := s.query(ctx, eventType, now, r)
	if err != nil {
		recordErr(span, err)
		return WeekSummary{}, err
	}
	return WeekSummary{
		DateRange:    r,
		TimeZone:     now.Location().String(),
		NextWeek:     rolled,
		Availability: availability.Summarize(intervals, now.Location()),
	}, nil
}

// ResolveDaySlots lists the bookable slots on one day within a half-day period.
func (s *Service) ResolveDaySlots(ctx context.Context, req DayRequest) (DaySlots, error) {
	eventType, err := parseEventType(req.EventType)
	if err != nil {
		return DaySlots{}, err
	}
	if strings.TrimSpace(req.Date) == "" {
		return DaySlots{}, invalid("date", "required")
	}
	period, err := availability.ParsePeriod(req.Period)
	if err != nil {
		return DaySlots{}, invalid("period", err.Error())
	}
	if req.SlotMinutes < 0 || req.SlotMinutes > availability.MaxSlotMinutes {
		return DaySlots{}, invalid("slot_minutes", fmt.Sprintf("must be between 1 and %d", availability.MaxSlotMinutes))
	}

	now := s.times.Resolve(req.CallerID).Now
	date, err := timectx.ParseDate(req.Date, now.Location())
	if err != nil {
		return DaySlots{}, invalid("date", "expected YYYY-MM-DD")
	}

	ctx, span := s.tracer.Start(ctx, "scheduling.ResolveDaySlots", trace.WithAttributes(
		attribute.String("event_type", eventType),
		attribute.String("date", date.Format(time.DateOnly)),
		attribute.String("period", string(period)),
	))
	defer span.End()

	et, err := s.eventType(ctx, eventType)
	if err != nil {
		recordErr(span, err)
		return DaySlots{}, err
	}

	r := daterange.ForDate(now, date)
	intervals, err := s.query(ctx, eventType, now, r)
	if err != nil {
		recordErr(span, err)
		return DaySlots{}, err
	}

	slotMinutes := s.slot
	if req.SlotMinutes != 0 {
		slotMinutes = req.SlotMinutes
	}
	return DaySlots{
		DateRange:    r,
		TimeZone:     now.Location().String(),
		EventType:    et.Name,
		Availability: availability.Enumerate(intervals, period, slotMinutes, et.DurationMinutes, now.Location()),
	}, nil
}

func (s *Service) eventType(ctx context.Context, id string) (calendar.EventType, error) {
	et, err := s.eventTypes.EventType(ctx, id)
	if err != nil {
		return calendar.EventType{}, s.providerErr(err)
	}
	if et.URI != "" && !et.Active {
		return calendar.EventType{}, invalid("event_type", "event type is not active")
	}
	return et, nil
}

// query asks the provider for r, skipping the call when nothing in r is still
// in the future. A start in the past is moved up to now.
func (s *Service) query(ctx context.Context, eventType string, now time.Time, r daterange.Range) ([]availability.RawInterval, error) {
	if r.Empty() || !r.End.After(now) {
		s.logger.Debug("empty availability window; skipping provider call",
			"event_type", eventType,
			"start", r.Start.Format(time.RFC3339),
			"end", r.End.Format(time.RFC3339),
		)
		return nil, nil
	}
	if r.Start.Before(now) {
		r.Start = now
	}

	intervals, err := s.calendar.AvailableTimes(ctx, eventType, r)
	if err != nil {
		return nil, s.providerErr(err)
	}
	s.logger.Info("availability fetched",
		"event_type", eventType,
		"start", r.Start.Format(time.RFC3339),
		"end", r.End.Format(time.RFC3339),
		"intervals", len(intervals),
	)
	return intervals, nil
}

func (s *Service) providerErr(err error) error {
	if errors.Is(err, calendar.ErrNotConfigured) {
		return &ConfigurationError{Key: "CALENDAR_API_TOKEN", Err: err}
	}
	var pqe *calendar.ProviderQueryError
	if errors.As(err, &pqe) {
		s.logger.Warn("calendar provider query failed", "op", pqe.Op, "status", pqe.Status, "err", err)
		return err
	}
	return fmt.Errorf("calendar query: %w", err)
}

func recordErr(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
