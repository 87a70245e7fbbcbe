package sms

import (
	"context"
	"encoding/json"
	"time"

	"github.com/md-rashed-zaman/callbook/libs/kafkax"
	"github.com/segmentio/kafka-go"
)

const DefaultTopic = "notification.sms.requested.v1"

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// KafkaSender hands messages to the notification pipeline instead of calling
// an SMS gateway directly. Delivery happens downstream.
type KafkaSender struct {
	w     messageWriter
	topic string
}

func NewKafkaSender(w *kafka.Writer) *KafkaSender {
	topic := w.Topic
	if topic == "" {
		topic = DefaultTopic
	}
	return &KafkaSender{w: w, topic: topic}
}

func (s *KafkaSender) ProviderID() string {
	return "sms-kafka"
}

type smsRequested struct {
	ID          string `json:"id"`
	Channel     string `json:"channel"`
	Recipient   string `json:"recipient"`
	Body        string `json:"body"`
	RequestedAt string `json:"requested_at"`
}

func (s *KafkaSender) Send(ctx context.Context, msg Message) error {
	payload, err := json.Marshal(smsRequested{
		ID:          msg.ID,
		Channel:     "sms",
		Recipient:   msg.To,
		Body:        msg.Body,
		RequestedAt: time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return err
	}
	km := kafka.Message{
		Key:     []byte(msg.To),
		Value:   payload,
		Headers: kafkax.EventHeaders(msg.ID, s.topic),
	}
	km.Headers = kafkax.InjectTraceHeaders(ctx, km.Headers)
	return s.w.WriteMessages(ctx, km)
}
