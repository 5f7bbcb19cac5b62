package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/hetulpatel/hedj/internal/hashutil"
	"github.com/hetulpatel/hedj/internal/opportunity"
)

// MessageWriter is the part of *kafka.Writer the publisher needs.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// PublishOpportunities hands new opportunities to the delivery side, one
// message per opportunity keyed by a hash of its dedup key.
func PublishOpportunities(ctx context.Context, writer MessageWriter, runID string, opps []opportunity.Opportunity, detectedAt time.Time) error {
	if writer == nil || len(opps) == 0 {
		return nil
	}

	msgs := make([]kafka.Message, 0, len(opps))
	for _, opp := range opps {
		payload := opportunity.NewPayload(runID, opp, detectedAt)
		value, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal opportunity %s: %w", payload.Key, err)
		}
		msgs = append(msgs, kafka.Message{
			Key:   []byte(hashutil.ShortHash(payload.Key)),
			Value: value,
			Headers: []kafka.Header{
				{Key: "kind", Value: []byte(opp.Kind)},
				{Key: "run_id", Value: []byte(runID)},
			},
		})
	}
	return writer.WriteMessages(ctx, msgs...)
}
