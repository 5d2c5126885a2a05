// Package telemetry publishes API request metrics to AWS CloudWatch.
package telemetry

import (
	"context"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
)

// putMetricTimeout bounds each PutMetricData call. Metric publication is
// best-effort and must never delay request handling noticeably.
const putMetricTimeout = 2 * time.Second

// CloudWatchClient abstracts the PutMetricData operation for testability.
type CloudWatchClient interface {
	PutMetricData(ctx context.Context, params *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error)
}

// CloudWatchMetrics implements core.MetricsCollector by emitting request
// count and latency metrics to CloudWatch.
//
// Metrics emitted per request:
//   - RequestCount:   Count;        Dims {Method, Endpoint, Status}
//   - RequestLatency: Milliseconds; Dims {Method, Endpoint}
type CloudWatchMetrics struct {
	client    CloudWatchClient
	namespace string
	logger    *slog.Logger
}

// NewCloudWatchMetrics creates a collector publishing to the given namespace.
func NewCloudWatchMetrics(client CloudWatchClient, namespace string, logger *slog.Logger) *CloudWatchMetrics {
	if logger == nil {
		logger = slog.Default()
	}
	return &CloudWatchMetrics{
		client:    client,
		namespace: namespace,
		logger:    logger,
	}
}

// RecordRequest publishes the count and latency data for one request.
// Failures are logged and swallowed; metrics never fail a request.
func (m *CloudWatchMetrics) RecordRequest(method, endpoint, status string, duration time.Duration) {
	// The request context is finished by the time middleware records the
	// metric, so publication runs on its own deadline.
	ctx, cancel := context.WithTimeout(context.Background(), putMetricTimeout)
	defer cancel()

	input := &cloudwatch.PutMetricDataInput{
		Namespace: aws.String(m.namespace),
		MetricData: []cwtypes.MetricDatum{
			{
				MetricName: aws.String("RequestCount"),
				Value:      aws.Float64(1),
				Unit:       cwtypes.StandardUnitCount,
				Dimensions: []cwtypes.Dimension{
					{Name: aws.String("Method"), Value: aws.String(method)},
					{Name: aws.String("Endpoint"), Value: aws.String(endpoint)},
					{Name: aws.String("Status"), Value: aws.String(status)},
				},
			},
			{
				MetricName: aws.String("RequestLatency"),
				Value:      aws.Float64(float64(duration.Milliseconds())),
				Unit:       cwtypes.StandardUnitMilliseconds,
				Dimensions: []cwtypes.Dimension{
					{Name: aws.String("Method"), Value: aws.String(method)},
					{Name: aws.String("Endpoint"), Value: aws.String(endpoint)},
				},
			},
		},
	}

	if _, err := m.client.PutMetricData(ctx, input); err != nil {
		m.logger.Error("failed to publish request metrics",
			"error", err,
			"method", method,
			"endpoint", endpoint,
			"status", status,
		)
	}
}
