package notify

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/md-rashed-zaman/callbook/services/scheduling-service/internal/sms"
	"github.com/md-rashed-zaman/callbook/services/scheduling-service/internal/storage"
)

type fakeSender struct {
	sent []sms.Message
	err  error
}

func (f *fakeSender) Send(_ context.Context, msg sms.Message) error {
	f.sent = append(f.sent, msg)
	return f.err
}

func (f *fakeSender) ProviderID() string { return "fake" }

type memoryLog struct {
	entries []storage.Dispatch
	err     error
}

func (m *memoryLog) Record(_ context.Context, d storage.Dispatch) error {
	m.entries = append(m.entries, d)
	return m.err
}

func (m *memoryLog) ListByRecipient(_ context.Context, recipient string, _ int) ([]storage.Dispatch, error) {
	var out []storage.Dispatch
	for _, e := range m.entries {
		if e.Recipient == recipient {
			out = append(out, e)
		}
	}
	return out, nil
}

var validMsg = LinkMessage{
	Name:          "Ada",
	EventTime:     "Thursday at 9:30 AM",
	EventDuration: 30,
	SchedulingURL: "https://calendly.com/acme/consult/2026-10-22T09:30:00Z",
}

func TestDispatcherSend(t *testing.T) {
	sender := &fakeSender{}
	log := &memoryLog{}
	d := NewDispatcher(sender, log, "US", nil)

	res, err := d.Send(context.Background(), "(202) 555-0143", validMsg)
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if res.To != "+12025550143" || res.Status != StatusSent || res.Provider != "fake" || res.ID == "" {
		t.Fatalf("unexpected result %+v", res)
	}
	if len(sender.sent) != 1 || sender.sent[0].ID != res.ID {
		t.Fatalf("expected one message carrying the dispatch id, got %+v", sender.sent)
	}
	if !strings.Contains(sender.sent[0].Body, "Hi Ada") || !strings.Contains(sender.sent[0].Body, validMsg.SchedulingURL) {
		t.Fatalf("unexpected body %q", sender.sent[0].Body)
	}
	if len(log.entries) != 1 || log.entries[0].Status != StatusSent {
		t.Fatalf("expected sent entry in dispatch log, got %+v", log.entries)
	}
}

func TestDispatcherSendFailureIsLogged(t *testing.T) {
	sender := &fakeSender{err: errors.New("gateway down")}
	log := &memoryLog{}
	d := NewDispatcher(sender, log, "US", nil)

	res, err := d.Send(context.Background(), "+12025550143", validMsg)
	if err == nil {
		t.Fatal("expected error")
	}
	if res.Status != StatusFailed {
		t.Fatalf("expected failed status, got %+v", res)
	}
	if len(log.entries) != 1 || log.entries[0].Error != "gateway down" {
		t.Fatalf("expected failure in dispatch log, got %+v", log.entries)
	}
}

func TestDispatcherLogErrorDoesNotFailDelivery(t *testing.T) {
	d := NewDispatcher(&fakeSender{}, &memoryLog{err: errors.New("db down")}, "US", nil)
	if _, err := d.Send(context.Background(), "+12025550143", validMsg); err != nil {
		t.Fatalf("expected delivery to succeed, got %v", err)
	}
}

func TestDispatcherValidation(t *testing.T) {
	sender := &fakeSender{}
	d := NewDispatcher(sender, nil, "US", nil)

	tests := []struct {
		phone string
		msg   LinkMessage
		field string
	}{
		{"", validMsg, "phone"},
		{"12", validMsg, "phone"},
		{"+12025550143", LinkMessage{EventDuration: 30, SchedulingURL: validMsg.SchedulingURL}, "event_time"},
		{"+12025550143", LinkMessage{EventTime: "x", SchedulingURL: validMsg.SchedulingURL}, "event_duration"},
		{"+12025550143", LinkMessage{EventTime: "x", EventDuration: 30, SchedulingURL: "javascript:alert(1)"}, "scheduling_url"},
	}
	for _, tt := range tests {
		_, err := d.Send(context.Background(), tt.phone, tt.msg)
		var ve *ValidationError
		if !errors.As(err, &ve) || ve.Field != tt.field {
			t.Fatalf("phone=%q: expected ValidationError on %s, got %v", tt.phone, tt.field, err)
		}
	}
	if len(sender.sent) != 0 {
		t.Fatalf("nothing should be sent for invalid input")
	}
}

func TestBodyWithoutName(t *testing.T) {
	body := Body(LinkMessage{EventTime: "Friday at 2:00 PM", EventDuration: 60, SchedulingURL: "https://x"})
	if !strings.HasPrefix(body, "Hi, to confirm your 60-minute appointment on Friday at 2:00 PM") {
		t.Fatalf("unexpected body %q", body)
	}
}

func TestDispatcherHistory(t *testing.T) {
	log := &memoryLog{}
	d := NewDispatcher(&fakeSender{}, log, "US", nil)
	if _, err := d.Send(context.Background(), "+12025550143", validMsg); err != nil {
		t.Fatalf("send: %v", err)
	}

	got, err := d.History(context.Background(), "(202) 555-0143", 10)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(got) != 1 || got[0].Recipient != "+12025550143" {
		t.Fatalf("expected one normalized entry, got %+v", got)
	}

	if _, err := NewDispatcher(&fakeSender{}, nil, "US", nil).History(context.Background(), "+12025550143", 10); !errors.Is(err, ErrHistoryDisabled) {
		t.Fatalf("expected ErrHistoryDisabled, got %v", err)
	}
}
