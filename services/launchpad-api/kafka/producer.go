package kafka

import (
	"context"
	"encoding/json"

	"github.com/AmentiAI/solmaker-sub001/services/launchpad-api/models"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// DefaultTopic carries confirmed mints.
const DefaultTopic = "ordinal.minted"

// MessageWriter is the part of *kafka.Writer the producer uses.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// MintEventProducer publishes mint events keyed by collection.
type MintEventProducer struct {
	writer MessageWriter
	topic  string
	logger *zap.Logger
}

// NewMintEventProducer writes to topic on brokers.
func NewMintEventProducer(brokers []string, topic string, logger *zap.Logger) *MintEventProducer {
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.LeastBytes{},
		AllowAutoTopicCreation: true,
	}
	return NewMintEventProducerWithWriter(writer, topic, logger)
}

// NewMintEventProducerWithWriter wraps an existing writer.
func NewMintEventProducerWithWriter(writer MessageWriter, topic string, logger *zap.Logger) *MintEventProducer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MintEventProducer{writer: writer, topic: topic, logger: logger}
}

func (p *MintEventProducer) PublishMinted(ctx context.Context, event models.MintedEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	msg := kafka.Message{
		Key:   []byte(event.CollectionID),
		Value: data,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte("ordinal_minted")},
		},
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Error("failed to send Kafka message", zap.String("topic", p.topic), zap.Error(err))
		return err
	}
	return nil
}

func (p *MintEventProducer) Close() {
	_ = p.writer.Close()
}
