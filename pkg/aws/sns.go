package aws

import (
	"context"
	"fmt"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
	"go.uber.org/zap"
)

// SNSPublisher publishes raw messages to a topic.
type SNSPublisher interface {
	Publish(ctx context.Context, topicArn string, message []byte, attributes map[string]string) error
}

// SNSAPI is the part of *sns.Client the publisher uses.
type SNSAPI interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

type SNSClient struct {
	client SNSAPI
	log    *zap.Logger
}

func NewSNSClient(cfg sdkaws.Config, log *zap.Logger) *SNSClient {
	return NewSNSClientWithAPI(sns.NewFromConfig(cfg), log)
}

func NewSNSClientWithAPI(api SNSAPI, log *zap.Logger) *SNSClient {
	if log == nil {
		log = zap.NewNop()
	}
	return &SNSClient{client: api, log: log}
}

// Publish sends message with string attributes.
func (s *SNSClient) Publish(ctx context.Context, topicArn string, message []byte, attributes map[string]string) error {
	if topicArn == "" {
		return fmt.Errorf("empty topicArn")
	}
	input := &sns.PublishInput{
		TopicArn: sdkaws.String(topicArn),
		Message:  sdkaws.String(string(message)),
	}
	if len(attributes) > 0 {
		input.MessageAttributes = make(map[string]types.MessageAttributeValue, len(attributes))
		for k, v := range attributes {
			input.MessageAttributes[k] = types.MessageAttributeValue{
				DataType:    sdkaws.String("String"),
				StringValue: sdkaws.String(v),
			}
		}
	}

	out, err := s.client.Publish(ctx, input)
	if err != nil {
		return fmt.Errorf("sns publish failed for topic %s: %w", topicArn, err)
	}
	s.log.Debug("sns message published",
		zap.String("topic_arn", topicArn),
		zap.Int("message_len", len(message)),
		zap.String("message_id", sdkaws.ToString(out.MessageId)))
	return nil
}
