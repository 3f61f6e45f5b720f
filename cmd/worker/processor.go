package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/aws/aws-lambda-go/events"

	"github.com/imrishuroy/go-queue-orderflow/internal/aws"
	domainevents "github.com/imrishuroy/go-queue-orderflow/internal/events"
	"github.com/imrishuroy/go-queue-orderflow/internal/orders"
)

// queueStatter is the slice of the order engine the worker reads.
type queueStatter interface {
	QueueStats(ctx context.Context) (orders.QueueStats, error)
}

// Processor consumes domain events from SQS and publishes queue gauges.
type Processor struct {
	queue    queueStatter
	reporter *aws.MetricsReporter
	logger   *slog.Logger
}

// NewProcessor creates a worker processor over the order engine.
func NewProcessor(queue queueStatter, reporter *aws.MetricsReporter, logger *slog.Logger) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{queue: queue, reporter: reporter, logger: logger}
}

// Handle reads one SQS batch. Undecodable messages are logged and dropped;
// a retry would not fix them. The queue is sampled once per batch.
func (p *Processor) Handle(ctx context.Context, ev events.SQSEvent) error {
	var transitions int64
	for _, rec := range ev.Records {
		e, err := decodeEvent(rec)
		if err != nil {
			p.logger.WarnContext(ctx, "dropping malformed event",
				slog.String("message_id", rec.MessageId), slog.Any("err", err))
			continue
		}
		p.logger.DebugContext(ctx, "event received",
			slog.String("event_type", string(e.Type)),
			slog.String("order_id", e.OrderID),
			slog.String("status", e.Status))
		if e.Type == domainevents.OrderStatusChanged {
			transitions++
		}
	}

	stats, err := p.queue.QueueStats(ctx)
	if err != nil {
		// returning the error lets Lambda redeliver the batch
		return fmt.Errorf("queue stats: %w", err)
	}
	snap := aws.QueueSnapshot{
		ActiveOrders:    int64(stats.Active),
		TailWaitMinutes: int64(stats.TailWaitMinutes),
		TransitionsSeen: transitions,
	}
	if err := p.reporter.ReportQueue(ctx, snap); err != nil {
		return fmt.Errorf("report queue: %w", err)
	}

	p.logger.InfoContext(ctx, "queue reported",
		slog.Int("records", len(ev.Records)),
		slog.Int64("active_orders", snap.ActiveOrders),
		slog.Int64("tail_wait_minutes", snap.TailWaitMinutes),
		slog.Int64("transitions", transitions))
	return nil
}

func decodeEvent(rec events.SQSMessage) (domainevents.Event, error) {
	var e domainevents.Event
	if err := json.Unmarshal([]byte(rec.Body), &e); err != nil {
		return e, fmt.Errorf("invalid message body: %w", err)
	}
	if e.Type == "" || e.OrderID == "" {
		return e, fmt.Errorf("event without type or order id")
	}
	return e, nil
}
