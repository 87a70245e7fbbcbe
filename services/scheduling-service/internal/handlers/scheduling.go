package handlers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/md-rashed-zaman/callbook/libs/httpx"
	"github.com/md-rashed-zaman/callbook/services/scheduling-service/internal/availability"
	"github.com/md-rashed-zaman/callbook/services/scheduling-service/internal/calendar"
	"github.com/md-rashed-zaman/callbook/services/scheduling-service/internal/notify"
	"github.com/md-rashed-zaman/callbook/services/scheduling-service/internal/scheduling"
	"github.com/md-rashed-zaman/callbook/services/scheduling-service/internal/storage"
	"github.com/md-rashed-zaman/callbook/services/scheduling-service/internal/timectx"
)

type Scheduler interface {
	TimeContext(callerID string) timectx.Context
	ResolveWeekSummary(ctx context.Context, req scheduling.WeekRequest) (scheduling.WeekSummary, error)
	ResolveDaySlots(ctx context.Context, req scheduling.DayRequest) (scheduling.DaySlots, error)
}

type EventTypeLister interface {
	ListEventTypes(ctx context.Context, userURI string) ([]calendar.EventType, error)
}

type LinkSender interface {
	Send(ctx context.Context, phone string, msg notify.LinkMessage) (notify.DeliveryResult, error)
	History(ctx context.Context, phone string, limit int) ([]storage.Dispatch, error)
}

type SchedulingHandler struct {
	scheduler  Scheduler
	eventTypes EventTypeLister
	links      LinkSender
	logger     *slog.Logger
}

func NewSchedulingHandler(scheduler Scheduler, eventTypes EventTypeLister, links LinkSender, logger *slog.Logger) *SchedulingHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &SchedulingHandler{scheduler: scheduler, eventTypes: eventTypes, links: links, logger: logger}
}

// Register mounts the API routes on mux.
func (h *SchedulingHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/time-context", h.TimeContext)
	mux.HandleFunc("POST /api/v1/availability/week", h.Week)
	mux.HandleFunc("POST /api/v1/availability/day", h.Day)
	mux.HandleFunc("GET /api/v1/event-types", h.EventTypes)
	mux.HandleFunc("POST /api/v1/booking-link/sms", h.SendLink)
	mux.HandleFunc("GET /api/v1/booking-link/sms", h.LinkHistory)
}

type weekRequest struct {
	EventType  string `json:"event_type"`
	WeekOffset int    `json:"week_offset"`
	Caller     string `json:"caller"`
}

type dayRequest struct {
	EventType   string `json:"event_type"`
	Date        string `json:"date"`
	Period      string `json:"period"`
	Caller      string `json:"caller"`
	SlotMinutes int    `json:"slot_minutes,omitempty"`
}

type eventTypeItem struct {
	URI           string `json:"uri"`
	Name          string `json:"name"`
	Duration      int    `json:"duration"`
	SchedulingURL string `json:"scheduling_url"`
}

type dispatchItem struct {
	ID            string `json:"id"`
	To            string `json:"to"`
	Provider      string `json:"provider"`
	Status        string `json:"status"`
	SchedulingURL string `json:"scheduling_url"`
	EventTime     string `json:"event_time"`
	Error         string `json:"error,omitempty"`
	CreatedAt     string `json:"created_at"`
}

type sendLinkRequest struct {
	Phone         string `json:"phone"`
	Name          string `json:"name"`
	EventTime     string `json:"event_time"`
	EventDuration int    `json:"event_duration"`
	SchedulingURL string `json:"scheduling_url"`
}

func (h *SchedulingHandler) TimeContext(w http.ResponseWriter, r *http.Request) {
	caller := strings.TrimSpace(r.URL.Query().Get("caller"))
	httpx.WriteJSON(w, http.StatusOK, h.scheduler.TimeContext(caller))
}

// EventTypes lists the active event types of ?user=, so an operator can find
// the ids the agent should be configured with.
func (h *SchedulingHandler) EventTypes(w http.ResponseWriter, r *http.Request) {
	user := strings.TrimSpace(r.URL.Query().Get("user"))
	if user == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "user is required")
		return
	}
	if h.eventTypes == nil {
		httpx.WriteError(w, http.StatusServiceUnavailable, "not_configured", "calendar provider is not configured")
		return
	}
	list, err := h.eventTypes.ListEventTypes(r.Context(), user)
	if err != nil {
		if errors.Is(err, calendar.ErrNotConfigured) {
			err = &scheduling.ConfigurationError{Key: "CALENDAR_API_TOKEN", Err: err}
		}
		h.writeErr(w, r, err)
		return
	}
	items := make([]eventTypeItem, 0, len(list))
	for _, et := range list {
		items = append(items, eventTypeItem{URI: et.URI, Name: et.Name, Duration: et.DurationMinutes, SchedulingURL: et.SchedulingURL})
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (h *SchedulingHandler) Week(w http.ResponseWriter, r *http.Request) {
	var req weekRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	summary, err := h.scheduler.ResolveWeekSummary(r.Context(), scheduling.WeekRequest{
		EventType:  req.EventType,
		WeekOffset: req.WeekOffset,
		CallerID:   req.Caller,
	})
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, summary)
}

func (h *SchedulingHandler) Day(w http.ResponseWriter, r *http.Request) {
	var req dayRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if req.SlotMinutes < 0 || req.SlotMinutes > availability.MaxSlotMinutes {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", fmt.Sprintf("slot_minutes must be between 1 and %d", availability.MaxSlotMinutes))
		return
	}
	slots, err := h.scheduler.ResolveDaySlots(r.Context(), scheduling.DayRequest{
		EventType:   req.EventType,
		Date:        req.Date,
		Period:      req.Period,
		CallerID:    req.Caller,
		SlotMinutes: req.SlotMinutes,
	})
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, slots)
}

func (h *SchedulingHandler) SendLink(w http.ResponseWriter, r *http.Request) {
	if h.links == nil {
		httpx.WriteError(w, http.StatusServiceUnavailable, "sms_disabled", "sms delivery is not configured")
		return
	}
	var req sendLinkRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	res, err := h.links.Send(r.Context(), req.Phone, notify.LinkMessage{
		Name:          req.Name,
		EventTime:     req.EventTime,
		EventDuration: req.EventDuration,
		SchedulingURL: req.SchedulingURL,
	})
	if err != nil {
		var ve *notify.ValidationError
		if errors.As(err, &ve) {
			httpx.WriteError(w, http.StatusBadRequest, "invalid_request", ve.Error())
			return
		}
		h.logger.Error("booking link dispatch failed", "err", err, "request_id", httpx.RequestIDFromContext(r.Context()))
		httpx.WriteError(w, http.StatusBadGateway, "sms_failed", "sms could not be sent")
		return
	}
	httpx.WriteJSON(w, http.StatusAccepted, res)
}

func (h *SchedulingHandler) LinkHistory(w http.ResponseWriter, r *http.Request) {
	if h.links == nil {
		httpx.WriteError(w, http.StatusServiceUnavailable, "sms_disabled", "sms delivery is not configured")
		return
	}
	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "limit must be a positive integer")
			return
		}
		limit = n
	}
	list, err := h.links.History(r.Context(), r.URL.Query().Get("phone"), limit)
	if err != nil {
		var ve *notify.ValidationError
		switch {
		case errors.As(err, &ve):
			httpx.WriteError(w, http.StatusBadRequest, "invalid_request", ve.Error())
		case errors.Is(err, notify.ErrHistoryDisabled):
			httpx.WriteError(w, http.StatusServiceUnavailable, "history_disabled", err.Error())
		default:
			h.logger.Error("dispatch history failed", "err", err, "request_id", httpx.RequestIDFromContext(r.Context()))
			httpx.WriteError(w, http.StatusInternalServerError, "internal", "internal error")
		}
		return
	}
	items := make([]dispatchItem, 0, len(list))
	for _, d := range list {
		items = append(items, dispatchItem{
			ID:            d.ID,
			To:            d.Recipient,
			Provider:      d.Provider,
			Status:        d.Status,
			SchedulingURL: d.SchedulingURL,
			EventTime:     d.EventTime,
			Error:         d.Error,
			CreatedAt:     d.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (h *SchedulingHandler) writeErr(w http.ResponseWriter, r *http.Request, err error) {
	var (
		ve  *scheduling.ValidationError
		ce  *scheduling.ConfigurationError
		pqe *calendar.ProviderQueryError
	)
	switch {
	case errors.As(err, &ve):
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", ve.Error())
	case errors.As(err, &ce):
		h.logger.Error("scheduling misconfigured", "key", ce.Key)
		httpx.WriteError(w, http.StatusServiceUnavailable, "not_configured", "calendar provider is not configured")
	case errors.As(err, &pqe):
		httpx.WriteError(w, http.StatusBadGateway, "provider_error", pqe.Error())
	case errors.Is(err, context.DeadlineExceeded):
		httpx.WriteError(w, http.StatusGatewayTimeout, "timeout", "calendar provider timed out")
	default:
		h.logger.Error("availability request failed", "err", err, "request_id", httpx.RequestIDFromContext(r.Context()))
		httpx.WriteError(w, http.StatusInternalServerError, "internal", "internal error")
	}
}
