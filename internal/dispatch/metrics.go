package dispatch

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"

	"transmit/internal/types"
)

// CloudWatchClient abstracts the CloudWatch PutMetricData operation for testability.
type CloudWatchClient interface {
	PutMetricData(ctx context.Context, params *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error)
}

var _ Metrics = (*CloudWatchMetrics)(nil)

// CloudWatchMetrics emits dispatch metrics to CloudWatch. Publishing is
// fire-and-forget: failures are logged and never surface to the dispatch.
//
// Metrics emitted:
//   - CommunicationGenerated: Dims {Channel, Result}
//   - DeliveryAttempt: Dims {Channel, Provider, Result}
//   - DeliveryAttemptLatency: Dims {Channel}
//   - DeliveryReport: Dims {Provider, Status}
type CloudWatchMetrics struct {
	client    CloudWatchClient
	namespace string
	logger    types.Logger
}

// NewCloudWatchMetrics publishes to namespace, or to types.MetricNamespace
// when namespace is empty.
func NewCloudWatchMetrics(client CloudWatchClient, namespace string, logger types.Logger) *CloudWatchMetrics {
	if namespace == "" {
		namespace = types.MetricNamespace
	}
	if logger == nil {
		logger = types.NopLogger{}
	}
	return &CloudWatchMetrics{
		client:    client,
		namespace: namespace,
		logger:    logger,
	}
}

func (m *CloudWatchMetrics) RecordGenerated(ctx context.Context, channel types.ChannelType, result MetricResult) {
	m.put(ctx, cwtypes.MetricDatum{
		MetricName: aws.String(types.MetricCommunicationGenerated),
		Value:      aws.Float64(1),
		Unit:       cwtypes.StandardUnitCount,
		Dimensions: []cwtypes.Dimension{
			dimension(types.DimChannel, string(channel)),
			dimension(types.DimResult, string(result)),
		},
	})
}

// RecordDelivery emits a DeliveryAttempt count. Skipped channels have no
// provider, so the Provider dimension is omitted for them.
func (m *CloudWatchMetrics) RecordDelivery(ctx context.Context, channel types.ChannelType, providerID string, result MetricResult) {
	dims := []cwtypes.Dimension{
		dimension(types.DimChannel, string(channel)),
		dimension(types.DimResult, string(result)),
	}
	if providerID != "" {
		dims = append(dims, dimension(types.DimProvider, providerID))
	}
	m.put(ctx, cwtypes.MetricDatum{
		MetricName: aws.String(types.MetricDeliveryAttempt),
		Value:      aws.Float64(1),
		Unit:       cwtypes.StandardUnitCount,
		Dimensions: dims,
	})
}

// RecordLatency records duration in milliseconds.
func (m *CloudWatchMetrics) RecordLatency(ctx context.Context, channel types.ChannelType, duration time.Duration) {
	m.put(ctx, cwtypes.MetricDatum{
		MetricName: aws.String(types.MetricDeliveryLatency),
		Value:      aws.Float64(float64(duration.Milliseconds())),
		Unit:       cwtypes.StandardUnitMilliseconds,
		Dimensions: []cwtypes.Dimension{
			dimension(types.DimChannel, string(channel)),
		},
	})
}

// RecordReport counts an inbound delivery report.
func (m *CloudWatchMetrics) RecordReport(ctx context.Context, providerID string, status types.DeliveryStatus) {
	m.put(ctx, cwtypes.MetricDatum{
		MetricName: aws.String(types.MetricDeliveryReport),
		Value:      aws.Float64(1),
		Unit:       cwtypes.StandardUnitCount,
		Dimensions: []cwtypes.Dimension{
			dimension(types.DimProvider, providerID),
			dimension(types.DimStatus, string(status)),
		},
	})
}

func (m *CloudWatchMetrics) put(ctx context.Context, datum cwtypes.MetricDatum) {
	input := &cloudwatch.PutMetricDataInput{
		Namespace:  aws.String(m.namespace),
		MetricData: []cwtypes.MetricDatum{datum},
	}
	if _, err := m.client.PutMetricData(ctx, input); err != nil {
		m.logger.Error("failed to put metric",
			"error", err.Error(),
			"metric", aws.ToString(datum.MetricName),
		)
	}
}

func dimension(name, value string) cwtypes.Dimension {
	return cwtypes.Dimension{Name: aws.String(name), Value: aws.String(value)}
}
