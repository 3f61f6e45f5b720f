package aws

import (
	"context"
	"fmt"
	"time"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
)

// MetricsReporter publishes queue gauges to CloudWatch.
type MetricsReporter struct {
	CloudWatch CloudWatchAPI
	Namespace  string
	nowFunc    func() time.Time
}

// NewMetricsReporter returns a reporter writing into namespace.
func NewMetricsReporter(client CloudWatchAPI, namespace string) *MetricsReporter {
	return &MetricsReporter{
		CloudWatch: client,
		Namespace:  namespace,
		nowFunc:    time.Now,
	}
}

// QueueSnapshot is one observation of the kitchen queue.
type QueueSnapshot struct {
	ActiveOrders    int64
	TailWaitMinutes int64
	TransitionsSeen int64
}

// ReportQueue writes the snapshot as three gauges with one timestamp.
func (r *MetricsReporter) ReportQueue(ctx context.Context, s QueueSnapshot) error {
	ts := r.nowFunc().UTC()
	data := []cwtypes.MetricDatum{
		{
			MetricName: sdkaws.String("ActiveOrders"),
			Value:      sdkaws.Float64(float64(s.ActiveOrders)),
			Unit:       cwtypes.StandardUnitCount,
			Timestamp:  &ts,
		},
		{
			MetricName: sdkaws.String("TailWaitMinutes"),
			Value:      sdkaws.Float64(float64(s.TailWaitMinutes)),
			Unit:       cwtypes.StandardUnitNone,
			Timestamp:  &ts,
		},
		{
			MetricName: sdkaws.String("StatusTransitions"),
			Value:      sdkaws.Float64(float64(s.TransitionsSeen)),
			Unit:       cwtypes.StandardUnitCount,
			Timestamp:  &ts,
		},
	}
	_, err := r.CloudWatch.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
		Namespace:  sdkaws.String(r.Namespace),
		MetricData: data,
	})
	if err != nil {
		return fmt.Errorf("put metric data: %w", err)
	}
	return nil
}
