package awsmock

import (
	"context"
	"sync"

	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
)

// SQS records every message sent.
type SQS struct {
	mu       sync.Mutex
	Sent     []*sqs.SendMessageInput
	FailWith error
}

func (q *SQS) SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.FailWith != nil {
		return nil, q.FailWith
	}
	q.Sent = append(q.Sent, params)
	return &sqs.SendMessageOutput{}, nil
}

// Messages returns a snapshot of the sent inputs.
func (q *SQS) Messages() []*sqs.SendMessageInput {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]*sqs.SendMessageInput(nil), q.Sent...)
}

// CloudWatch records every PutMetricData call.
type CloudWatch struct {
	mu       sync.Mutex
	Puts     []*cloudwatch.PutMetricDataInput
	FailWith error
}

func (c *CloudWatch) PutMetricData(ctx context.Context, params *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.FailWith != nil {
		return nil, c.FailWith
	}
	c.Puts = append(c.Puts, params)
	return &cloudwatch.PutMetricDataOutput{}, nil
}
