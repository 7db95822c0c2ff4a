// Package metrics emits operational metrics for report generation to AWS
// CloudWatch. Emission is best-effort: a metrics failure is logged and never
// propagates into the report path.
package metrics

import (
	"context"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"

	"trailwatch/internal/types"
)

// Namespace is the CloudWatch namespace for all TrailWatch metrics.
const Namespace = "TrailWatch"

// Metric and dimension names.
const (
	MetricReportGenerated = "ReportGenerated"
	MetricReportLatency   = "ReportLatency"
	MetricProviderFailure = "ProviderFailure"
	MetricSamplesExcluded = "SamplesExcluded"

	DimReportType = "ReportType"
	DimTrigger    = "Trigger"
	DimProvider   = "Provider"
	DimResult     = "Result"
)

// Result values for the ReportGenerated metric.
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

// CloudWatchClient abstracts the CloudWatch PutMetricData operation for
// testability.
type CloudWatchClient interface {
	PutMetricData(ctx context.Context, params *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error)
}

// Recorder is the metrics surface the report generator depends on. NopRecorder
// satisfies it for local runs without AWS credentials.
type Recorder interface {
	RecordReport(ctx context.Context, rt types.ReportType, trigger types.TriggerKind, result string)
	RecordLatency(ctx context.Context, rt types.ReportType, d time.Duration)
	RecordProviderFailure(ctx context.Context, provider string)
	RecordExcludedSamples(ctx context.Context, count int)
}

// CloudWatchRecorder implements Recorder against CloudWatch.
type CloudWatchRecorder struct {
	client    CloudWatchClient
	namespace string
	logger    *slog.Logger
}

// Compile-time assertion.
var _ Recorder = (*CloudWatchRecorder)(nil)

// NewCloudWatchRecorder creates a recorder publishing to the TrailWatch
// namespace.
func NewCloudWatchRecorder(client CloudWatchClient, logger *slog.Logger) *CloudWatchRecorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &CloudWatchRecorder{client: client, namespace: Namespace, logger: logger}
}

// RecordReport emits one ReportGenerated count with type/trigger/result
// dimensions.
func (m *CloudWatchRecorder) RecordReport(ctx context.Context, rt types.ReportType, trigger types.TriggerKind, result string) {
	m.put(ctx, cwtypes.MetricDatum{
		MetricName: aws.String(MetricReportGenerated),
		Value:      aws.Float64(1),
		Unit:       cwtypes.StandardUnitCount,
		Dimensions: []cwtypes.Dimension{
			{Name: aws.String(DimReportType), Value: aws.String(string(rt))},
			{Name: aws.String(DimTrigger), Value: aws.String(string(trigger))},
			{Name: aws.String(DimResult), Value: aws.String(result)},
		},
	})
}

// RecordLatency emits the wall time of one full report generation in
// milliseconds.
func (m *CloudWatchRecorder) RecordLatency(ctx context.Context, rt types.ReportType, d time.Duration) {
	m.put(ctx, cwtypes.MetricDatum{
		MetricName: aws.String(MetricReportLatency),
		Value:      aws.Float64(float64(d.Milliseconds())),
		Unit:       cwtypes.StandardUnitMilliseconds,
		Dimensions: []cwtypes.Dimension{
			{Name: aws.String(DimReportType), Value: aws.String(string(rt))},
		},
	})
}

// RecordProviderFailure counts one upstream fetch failure per provider.
func (m *CloudWatchRecorder) RecordProviderFailure(ctx context.Context, provider string) {
	m.put(ctx, cwtypes.MetricDatum{
		MetricName: aws.String(MetricProviderFailure),
		Value:      aws.Float64(1),
		Unit:       cwtypes.StandardUnitCount,
		Dimensions: []cwtypes.Dimension{
			{Name: aws.String(DimProvider), Value: aws.String(provider)},
		},
	})
}

// RecordExcludedSamples counts implausible samples dropped during a report's
// aggregation. A sustained non-zero value points at a sick upstream.
func (m *CloudWatchRecorder) RecordExcludedSamples(ctx context.Context, count int) {
	if count == 0 {
		return
	}
	m.put(ctx, cwtypes.MetricDatum{
		MetricName: aws.String(MetricSamplesExcluded),
		Value:      aws.Float64(float64(count)),
		Unit:       cwtypes.StandardUnitCount,
	})
}

func (m *CloudWatchRecorder) put(ctx context.Context, datum cwtypes.MetricDatum) {
	input := &cloudwatch.PutMetricDataInput{
		Namespace:  aws.String(m.namespace),
		MetricData: []cwtypes.MetricDatum{datum},
	}
	if _, err := m.client.PutMetricData(ctx, input); err != nil {
		m.logger.ErrorContext(ctx, "failed to put metric data",
			"metric", aws.ToString(datum.MetricName),
			"error", err,
		)
	}
}

// NopRecorder discards all metrics.
type NopRecorder struct{}

var _ Recorder = NopRecorder{}

func (NopRecorder) RecordReport(context.Context, types.ReportType, types.TriggerKind, string) {}
func (NopRecorder) RecordLatency(context.Context, types.ReportType, time.Duration)           {}
func (NopRecorder) RecordProviderFailure(context.Context, string)                            {}
func (NopRecorder) RecordExcludedSamples(context.Context, int)                               {}
