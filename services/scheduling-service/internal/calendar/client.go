package calendar

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/md-rashed-zaman/callbook/services/scheduling-service/internal/availability"
	"github.com/md-rashed-zaman/callbook/services/scheduling-service/internal/daterange"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	DefaultBaseURL = "https://api.calendly.com"

	// Provider timestamps carry microseconds and a literal Z.
	timeLayout = "2006-01-02T15:04:05.000000Z"

	maxErrorBody = 4 << 10
)

var ErrNotConfigured = errors.New("calendar api token not configured")

// EventType is the bookable meeting template an availability query is for.
type EventType struct {
	URI             string `json:"uri"`
	Name            string `json:"name"`
	Active          bool   `json:"active"`
	DurationMinutes int    `json:"duration"`
	SchedulingURL   string `json:"scheduling_url"`
}

type AvailabilitySource interface {
	AvailableTimes(ctx context.Context, eventType string, r daterange.Range) ([]availability.RawInterval, error)
}

type EventTypeSource interface {
	EventType(ctx context.Context, id string) (EventType, error)
}

type Config struct {
	BaseURL string
	Token   string
	Timeout time.Duration
	// Transport overrides the base round tripper; it is still wrapped for tracing.
	Transport http.RoundTripper
}

type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

func NewClient(cfg Config) *Client {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		base = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	transport := cfg.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}
	return &Client{
		baseURL: base,
		token:   strings.TrimSpace(cfg.Token),
		http: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(transport),
		},
	}
}

type availableTime struct {
	Status            string  `json:"status"`
	InviteesRemaining int     `json:"invitees_remaining"`
	StartTime         string  `json:"start_time"`
	EndTime           *string `json:"end_time,omitempty"`
	SchedulingURL     string  `json:"scheduling_url"`
}

// AvailableTimes lists open start times for eventType within r.
// There is no retry: a failed call surfaces as *ProviderQueryError.
func (c *Client) AvailableTimes(ctx context.Context, eventType string, r daterange.Range) ([]availability.RawInterval, error) {
	q := url.Values{}
	q.Set("event_type", c.EventTypeURI(eventType))
	q.Set("start_time", FormatTime(r.Start))
	q.Set("end_time", FormatTime(r.End))

	var body struct {
		Collection []availableTime `json:"collection"`
	}
	if err := c.get(ctx, "available_times", "/event_type_available_times", q, &body); err != nil {
		return nil, err
	}

	out := make([]availability.RawInterval, 0, len(body.Collection))
	for _, item := range body.Collection {
		if item.Status != "" && item.Status != "available" {
			continue
		}
		start, err := time.Parse(time.RFC3339Nano, item.StartTime)
		if err != nil {
			return nil, &ProviderQueryError{Op: "available_times", Message: "bad start_time " + item.StartTime, Err: err}
		}
		iv := availability.RawInterval{Start: start, SchedulingURL: item.SchedulingURL}
		if item.EndTime != nil && *item.EndTime != "" {
			end, err := time.Parse(time.RFC3339Nano, *item.EndTime)
			if err != nil {
				return nil, &ProviderQueryError{Op: "available_times", Message: "bad end_time " + *item.EndTime, Err: err}
			}
			iv.End = &end
		}
		out = append(out, iv)
	}
	return out, nil
}

// EventType fetches an event type by UUID or URI.
func (c *Client) EventType(ctx context.Context, id string) (EventType, error) {
	var body struct {
		Resource EventType `json:"resource"`
	}
	if err := c.get(ctx, "event_type", "/event_types/"+url.PathEscape(eventTypeUUID(id)), nil, &body); err != nil {
		return EventType{}, err
	}
	return body.Resource, nil
}

// ListEventTypes lists the event types owned by userURI.
func (c *Client) ListEventTypes(ctx context.Context, userURI string) ([]EventType, error) {
	q := url.Values{}
	q.Set("user", userURI)
	q.Set("active", "true")
	var body struct {
		Collection []EventType `json:"collection"`
	}
	if err := c.get(ctx, "list_event_types", "/event_types", q, &body); err != nil {
		return nil, err
	}
	return body.Collection, nil
}

// EventTypeURI normalizes a bare UUID into the provider's resource URI.
func (c *Client) EventTypeURI(id string) string {
	id = strings.TrimSpace(id)
	if strings.HasPrefix(id, "http://") || strings.HasPrefix(id, "https://") {
		return id
	}
	return c.baseURL + "/event_types/" + id
}

func eventTypeUUID(id string) string {
	id = strings.TrimRight(strings.TrimSpace(id), "/")
	if i := strings.LastIndex(id, "/"); i >= 0 {
		return id[i+1:]
	}
	return id
}

// FormatTime renders t the way the provider expects query bounds.
func FormatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func (c *Client) get(ctx context.Context, op, path string, q url.Values, out any) error {
	if c.token == "" {
		return ErrNotConfigured
	}
	u := c.baseURL + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return &ProviderQueryError{Op: op, Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return &ProviderQueryError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &ProviderQueryError{Op: op, Status: resp.StatusCode, Message: errorMessage(raw)}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &ProviderQueryError{Op: op, Status: resp.StatusCode, Message: "invalid response body", Err: err}
	}
	return nil
}

func errorMessage(raw []byte) string {
	var body struct {
		Title   string `json:"title"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &body); err == nil {
		switch {
		case body.Title != "" && body.Message != "":
			return fmt.Sprintf("%s: %s", body.Title, body.Message)
		case body.Message != "":
			return body.Message
		case body.Title != "":
			return body.Title
		}
	}
	return strings.TrimSpace(string(raw))
}
