package messaging

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublish_NoBrokers(t *testing.T) {
	err := NewKafkaProducer(nil).Publish(context.Background(), TopicCartUpdated, "u1", CartEvent{Type: "add"})
	assert.Error(t, err)
}

func TestPublish_UnmarshalableValue(t *testing.T) {
	err := NewKafkaProducer([]string{"127.0.0.1:1"}).Publish(context.Background(), TopicCartUpdated, "u1", make(chan int))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "marshal cart.updated event")
}

func TestPublish_UnreachableBroker(t *testing.T) {
	kp := NewKafkaProducer([]string{"127.0.0.1:1"})
	kp.timeout = 100 * time.Millisecond
	defer kp.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	err := kp.Publish(ctx, TopicSessionDenied, "u1", SessionEvent{Area: "admin", Outcome: "redirect_login"})
	assert.Error(t, err)
}

func TestGetWriter_ReusedPerTopic(t *testing.T) {
	kp := NewKafkaProducer([]string{"localhost:9092"})
	defer kp.Close()

	assert.Same(t, kp.getWriter(TopicCartUpdated), kp.getWriter(TopicCartUpdated))
	assert.NotSame(t, kp.getWriter(TopicCartUpdated), kp.getWriter(TopicSessionDenied))
}

func TestNopPublisher(t *testing.T) {
	assert.NoError(t, NopPublisher{}.Publish(context.Background(), TopicCartUpdated, "u1", nil))
}
