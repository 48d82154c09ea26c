package notify

import (
	"context"
	"encoding/json"
	"fmt"

	aws_pkg "github.com/AmentiAI/solmaker-sub001/pkg/aws"
	"github.com/AmentiAI/solmaker-sub001/services/launchpad-api/models"
	"go.uber.org/zap"
)

// MintSNSPublisher fans confirmed mints out to an SNS topic.
type MintSNSPublisher struct {
	sns      aws_pkg.SNSPublisher
	topicArn string
	logger   *zap.Logger
}

func NewMintSNSPublisher(sns aws_pkg.SNSPublisher, topicArn string, logger *zap.Logger) *MintSNSPublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MintSNSPublisher{sns: sns, topicArn: topicArn, logger: logger}
}

func (p *MintSNSPublisher) PublishMinted(ctx context.Context, event models.MintedEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal mint event: %w", err)
	}
	attrs := map[string]string{
		"event_type":    "ordinal_minted",
		"collection_id": event.CollectionID,
	}
	if err := p.sns.Publish(ctx, p.topicArn, body, attrs); err != nil {
		p.logger.Error("failed to publish mint event to SNS", zap.String("topic_arn", p.topicArn), zap.Error(err))
		return err
	}
	return nil
}
