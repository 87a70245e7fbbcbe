package kafkax

import (
	"errors"
	"time"

	"github.com/segmentio/kafka-go"
)

// NewWriter returns a synchronous writer keyed by message key, so all
// messages for one recipient land on the same partition.
func NewWriter(brokers string, topic string) (*kafka.Writer, error) {
	list := SplitBrokers(brokers)
	if len(list) == 0 {
		return nil, errors.New("kafka brokers not configured")
	}
	return &kafka.Writer{
		Addr:         kafka.TCP(list...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		WriteTimeout: 5 * time.Second,
	}, nil
}
