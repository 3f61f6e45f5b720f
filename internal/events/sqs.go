package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/imrishuroy/go-queue-orderflow/internal/aws"
)

// SQSSink sends each event as one SQS message.
type SQSSink struct {
	publisher *aws.Publisher
}

func NewSQSSink(publisher *aws.Publisher) *SQSSink {
	return &SQSSink{publisher: publisher}
}

func (s *SQSSink) Send(ctx context.Context, e Event) error {
	body, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	return s.publisher.Publish(ctx, body, map[string]string{
		"event_type": string(e.Type),
		"order_id":   e.OrderID,
		"status":     e.Status,
	})
}
