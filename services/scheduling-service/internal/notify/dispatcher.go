// Package notify sends a caller the scheduling link for the slot they picked.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/google/uuid"
	otelx "github.com/md-rashed-zaman/callbook/libs/otel"
	"github.com/md-rashed-zaman/callbook/services/scheduling-service/internal/sms"
	"github.com/md-rashed-zaman/callbook/services/scheduling-service/internal/storage"
	"github.com/nyaruka/phonenumbers"
)

const (
	StatusSent   = "sent"
	StatusFailed = "failed"
)

type LinkMessage struct {
	Name          string
	EventTime     string
	EventDuration int
	SchedulingURL string
}

type DeliveryResult struct {
	ID       string `json:"id"`
	To       string `json:"to"`
	Provider string `json:"provider"`
	Status   string `json:"status"`
}

var ErrHistoryDisabled = errors.New("dispatch log is not configured")

// DispatchLog records attempts; nil disables logging and history.
type DispatchLog interface {
	Record(ctx context.Context, d storage.Dispatch) error
	ListByRecipient(ctx context.Context, recipient string, limit int) ([]storage.Dispatch, error)
}

type Dispatcher struct {
	sender sms.Sender
	log    DispatchLog
	region string
	logger *slog.Logger
}

func NewDispatcher(sender sms.Sender, log DispatchLog, region string, logger *slog.Logger) *Dispatcher {
	if region == "" {
		region = "US"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{sender: sender, log: log, region: strings.ToUpper(region), logger: logger}
}

// Send texts the scheduling link to phone. Invalid input is rejected with a
// *ValidationError before anything is sent.
func (d *Dispatcher) Send(ctx context.Context, phone string, msg LinkMessage) (DeliveryResult, error) {
	to, err := d.normalize(phone)
	if err != nil {
		return DeliveryResult{}, err
	}
	if err := validate(msg); err != nil {
		return DeliveryResult{}, err
	}

	result := DeliveryResult{
		ID:       uuid.NewString(),
		To:       to,
		Provider: d.sender.ProviderID(),
		Status:   StatusSent,
	}
	sendErr := d.sender.Send(ctx, sms.Message{ID: result.ID, To: to, Body: Body(msg)})
	if sendErr != nil {
		result.Status = StatusFailed
	}
	d.record(ctx, result, msg, sendErr)

	if sendErr != nil {
		d.logger.Error("booking link sms failed", "dispatch_id", result.ID, "provider", result.Provider, "err", sendErr)
		return result, fmt.Errorf("send booking link: %w", sendErr)
	}
	d.logger.Info("booking link sms sent", "dispatch_id", result.ID, "provider", result.Provider)
	return result, nil
}

// History returns recent dispatches to phone, newest first.
func (d *Dispatcher) History(ctx context.Context, phone string, limit int) ([]storage.Dispatch, error) {
	if d.log == nil {
		return nil, ErrHistoryDisabled
	}
	to, err := d.normalize(phone)
	if err != nil {
		return nil, err
	}
	return d.log.ListByRecipient(ctx, to, limit)
}

func (d *Dispatcher) record(ctx context.Context, res DeliveryResult, msg LinkMessage, sendErr error) {
	if d.log == nil {
		return
	}
	tp, ts := otelx.TraceContextStrings(ctx)
	entry := storage.Dispatch{
		ID:            res.ID,
		Recipient:     res.To,
		Provider:      res.Provider,
		Status:        res.Status,
		SchedulingURL: msg.SchedulingURL,
		EventTime:     msg.EventTime,
		Traceparent:   tp,
		Tracestate:    ts,
	}
	if sendErr != nil {
		entry.Error = sendErr.Error()
	}
	if err := d.log.Record(ctx, entry); err != nil {
		d.logger.Warn("dispatch log write failed", "dispatch_id", res.ID, "err", err)
	}
}

func (d *Dispatcher) normalize(phone string) (string, error) {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return "", &ValidationError{Field: "phone", Reason: "required"}
	}
	num, err := phonenumbers.Parse(phone, d.region)
	if err != nil || !phonenumbers.IsValidNumber(num) {
		return "", &ValidationError{Field: "phone", Reason: "not a valid phone number"}
	}
	return phonenumbers.Format(num, phonenumbers.E164), nil
}

func validate(msg LinkMessage) error {
	if strings.TrimSpace(msg.EventTime) == "" {
		return &ValidationError{Field: "event_time", Reason: "required"}
	}
	if msg.EventDuration <= 0 {
		return &ValidationError{Field: "event_duration", Reason: "must be positive"}
	}
	u, err := url.Parse(strings.TrimSpace(msg.SchedulingURL))
	if err != nil || u.Scheme != "https" || u.Host == "" {
		return &ValidationError{Field: "scheduling_url", Reason: "must be an https url"}
	}
	return nil
}

// Body renders the SMS text.
func Body(msg LinkMessage) string {
	greeting := "Hi"
	if name := strings.TrimSpace(msg.Name); name != "" {
		greeting = "Hi " + name
	}
	return fmt.Sprintf("%s, to confirm your %d-minute appointment on %s, finish booking here: %s",
		greeting, msg.EventDuration, strings.TrimSpace(msg.EventTime), strings.TrimSpace(msg.SchedulingURL))
}
