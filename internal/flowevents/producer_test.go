package flowevents

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"tiquetera/pkg/logger"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKafkaPublisherSendsEvent(t *testing.T) {
	cfg := mocks.NewTestConfig()
	producer := mocks.NewSyncProducer(t, cfg)

	at := time.Date(2025, 10, 1, 10, 0, 0, 0, time.UTC)
	event := New(TypePaymentRequested, "flow-1", 42, "awaiting_payment", at).With("amount_due", 15000.0)

	producer.ExpectSendMessageWithMessageCheckerFunctionAndSucceed(func(msg *sarama.ProducerMessage) error {
		if msg.Topic != "tiquetera.purchase-flow" {
			return errors.New("wrong topic " + msg.Topic)
		}
		key, _ := msg.Key.Encode()
		if string(key) != "flow-1" {
			return errors.New("wrong key " + string(key))
		}
		value, _ := msg.Value.Encode()
		var decoded Event
		if err := json.Unmarshal(value, &decoded); err != nil {
			return err
		}
		if decoded.Type != TypePaymentRequested || decoded.EventID != 42 {
			return errors.New("unexpected payload")
		}
		return nil
	})

	pub := NewKafkaPublisherWithProducer(producer, "tiquetera.purchase-flow", logger.Discard())
	require.NoError(t, pub.Publish(context.Background(), event))
	require.NoError(t, pub.Close())
}

func TestKafkaPublisherError(t *testing.T) {
	producer := mocks.NewSyncProducer(t, mocks.NewTestConfig())
	producer.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	pub := NewKafkaPublisherWithProducer(producer, "topic", logger.Discard())
	err := pub.Publish(context.Background(), New(TypeCancelled, "flow-2", 1, "cancelled", time.Now()))
	assert.ErrorIs(t, err, sarama.ErrOutOfBrokers)
	require.NoError(t, pub.Close())
}

func TestSaramaConfig(t *testing.T) {
	cfg := DefaultKafkaProducerConfig().SaramaConfig()
	assert.True(t, cfg.Producer.Idempotent)
	assert.Equal(t, 1, cfg.Net.MaxOpenRequests)
	assert.Equal(t, sarama.WaitForAll, cfg.Producer.RequiredAcks)
	assert.True(t, cfg.Producer.Return.Successes)
}

func TestPartitionKey(t *testing.T) {
	assert.Equal(t, "abc", New(TypeSelected, "abc", 7, "", time.Now()).PartitionKey())
	assert.Equal(t, "7", New(TypeSelected, "", 7, "", time.Now()).PartitionKey())
}

func TestNop(t *testing.T) {
	var p Publisher = Nop{}
	assert.NoError(t, p.Publish(context.Background(), New(TypeSelected, "f", 1, "", time.Now())))
	assert.NoError(t, p.Close())
}
