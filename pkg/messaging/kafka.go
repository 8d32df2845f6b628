package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
)

// Topics published by the service.
const (
	TopicCartUpdated   = "cart.updated"
	TopicSessionDenied = "session.denied"
)

// Publisher sends one keyed JSON event to a topic.
type Publisher interface {
	Publish(ctx context.Context, topic, key string, value interface{}) error
}

type KafkaProducer struct {
	brokers []string
	timeout time.Duration

	mu      sync.Mutex
	writers map[string]*kafka.Writer
}

func NewKafkaProducer(brokers []string) *KafkaProducer {
	return &KafkaProducer{
		brokers: brokers,
		timeout: 5 * time.Second,
		writers: make(map[string]*kafka.Writer),
	}
}

func (kp *KafkaProducer) getWriter(topic string) *kafka.Writer {
	kp.mu.Lock()
	defer kp.mu.Unlock()

	if writer, exists := kp.writers[topic]; exists {
		return writer
	}

	writer := &kafka.Writer{
		Addr:                   kafka.TCP(kp.brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		WriteTimeout:           kp.timeout,
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
	}
	kp.writers[topic] = writer
	return writer
}

// Publish writes value as JSON. Messages with the same key land on the same
// partition, so events for one cart stay ordered.
func (kp *KafkaProducer) Publish(ctx context.Context, topic, key string, value interface{}) error {
	if len(kp.brokers) == 0 {
		return errors.New("messaging: no kafka brokers configured")
	}

	jsonData, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", topic, err)
	}

	message := kafka.Message{
		Key:   []byte(key),
		Value: jsonData,
		Time:  time.Now().UTC(),
	}

	if err := kp.getWriter(topic).WriteMessages(ctx, message); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	return nil
}

func (kp *KafkaProducer) Close() error {
	kp.mu.Lock()
	defer kp.mu.Unlock()

	var errs []error
	for topic, writer := range kp.writers {
		if err := writer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close writer %s: %w", topic, err))
		}
	}
	kp.writers = make(map[string]*kafka.Writer)
	return errors.Join(errs...)
}

// NopPublisher drops every event. Used when no brokers are configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, string, string, interface{}) error { return nil }

// Event types
type CartEvent struct {
	Type      string    `json:"type"`
	OwnerID   string    `json:"owner_id"`
	ProductID string    `json:"product_id,omitempty"`
	Quantity  int       `json:"quantity"`
	ItemCount int       `json:"item_count"`
	At        time.Time `json:"at"`
}

type SessionEvent struct {
	Area    string    `json:"area"`
	UserID  string    `json:"user_id,omitempty"`
	Outcome string    `json:"outcome"`
	At      time.Time `json:"at"`
}
