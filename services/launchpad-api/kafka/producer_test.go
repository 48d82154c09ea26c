package kafka_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	mintkafka "github.com/AmentiAI/solmaker-sub001/services/launchpad-api/kafka"
	"github.com/AmentiAI/solmaker-sub001/services/launchpad-api/models"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---- mock writer ----

type mockWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (m *mockWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if m.err != nil {
		return m.err
	}
	m.msgs = append(m.msgs, msgs...)
	return nil
}

func (m *mockWriter) Close() error {
	m.closed = true
	return nil
}

func TestPublishMinted_WritesKeyedJSON(t *testing.T) {
	w := &mockWriter{}
	p := mintkafka.NewMintEventProducerWithWriter(w, mintkafka.DefaultTopic, nil)

	event := models.MintedEvent{
		CollectionID:  "col-1",
		PhaseID:       "phase-1",
		WalletAddress: "wallet-1",
		NFTMint:       "mint-1",
		Signature:     "sig-1",
		OrdinalIDs:    []string{"a", "b"},
		Quantity:      2,
		MintedAt:      time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
	require.NoError(t, p.PublishMinted(context.Background(), event))
	require.Len(t, w.msgs, 1)

	msg := w.msgs[0]
	assert.Equal(t, "col-1", string(msg.Key))
	require.Len(t, msg.Headers, 1)
	assert.Equal(t, "ordinal_minted", string(msg.Headers[0].Value))

	var got models.MintedEvent
	require.NoError(t, json.Unmarshal(msg.Value, &got))
	assert.Equal(t, event, got)
}

func TestPublishMinted_ReturnsWriterError(t *testing.T) {
	w := &mockWriter{err: errors.New("broker down")}
	p := mintkafka.NewMintEventProducerWithWriter(w, mintkafka.DefaultTopic, nil)

	err := p.PublishMinted(context.Background(), models.MintedEvent{CollectionID: "col-1"})
	assert.EqualError(t, err, "broker down")
}

func TestClose_ClosesWriter(t *testing.T) {
	w := &mockWriter{}
	mintkafka.NewMintEventProducerWithWriter(w, mintkafka.DefaultTopic, nil).Close()
	assert.True(t, w.closed)
}
