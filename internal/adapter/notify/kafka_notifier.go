package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/rl1809/storefront/internal/core/domain"
	"github.com/rl1809/storefront/internal/port"
)

// messageWriter is the part of *kafka.Writer the notifier uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaNotifier publishes notifications as JSON onto a topic. A mail
// relay consuming that topic does the actual delivery.
type KafkaNotifier struct {
	writer messageWriter
	now    func() time.Time
}

var _ port.Notifier = (*KafkaNotifier)(nil)

func NewKafkaNotifier(brokers []string, topic string) *KafkaNotifier {
	return newKafkaNotifier(&kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
	})
}

func newKafkaNotifier(w messageWriter) *KafkaNotifier {
	return &KafkaNotifier{writer: w, now: time.Now}
}

type notificationMessage struct {
	domain.Notification
	SentAt time.Time `json:"sent_at"`
}

func (k *KafkaNotifier) Send(ctx context.Context, n domain.Notification) error {
	data, err := json.Marshal(notificationMessage{Notification: n, SentAt: k.now().UTC()})
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}

	// Keyed by recipient so one customer's messages stay ordered.
	err = k.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(n.Recipient),
		Value: data,
		Time:  k.now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("publish notification: %w", err)
	}
	return nil
}

func (k *KafkaNotifier) Close() error {
	return k.writer.Close()
}
