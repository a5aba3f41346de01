package metrics

import (
	"context"
	"sort"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
	"go.uber.org/zap"
)

// DefaultNamespace groups the custom metrics in CloudWatch
const DefaultNamespace = "VoiceInsight"

// Putter implements the CloudWatch client method used here
type Putter interface {
	PutMetricData(context.Context, *cloudwatch.PutMetricDataInput, ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error)
}

// CloudWatch sends each observation with PutMetricData
type CloudWatch struct {
	client    Putter
	namespace string
	log       *zap.Logger
	now       func() time.Time
}

// NewCloudWatch returns a CloudWatch recorder. A nil client is allowed; observations
// are then logged and dropped.
func NewCloudWatch(c Putter, namespace string, log *zap.Logger) *CloudWatch {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &CloudWatch{client: c, namespace: namespace, log: log, now: time.Now}
}

// Record implements Recorder
func (cw *CloudWatch) Record(ctx context.Context, d Datum) {

	if cw.client == nil {
		cw.log.Warn("cloudwatch client not available, skipping metric", zap.String("metric", d.Name))
		return
	}

	in := &cloudwatch.PutMetricDataInput{
		Namespace:  aws.String(cw.namespace),
		MetricData: []types.MetricDatum{toDatum(d, cw.now())},
	}

	if _, err := cw.client.PutMetricData(ctx, in); err != nil {
		cw.log.Error("could not send cloudwatch metric", zap.String("metric", d.Name), zap.Error(err))
		return
	}
	cw.log.Debug("sent cloudwatch metric",
		zap.String("metric", d.Name), zap.Float64("value", d.Value), zap.String("unit", string(d.Unit)))
}

func toDatum(d Datum, ts time.Time) types.MetricDatum {

	md := types.MetricDatum{
		MetricName: aws.String(d.Name),
		Value:      aws.Float64(d.Value),
		Unit:       types.StandardUnit(d.Unit),
		Timestamp:  aws.Time(ts),
	}

	// sorted so identical observations produce identical requests
	names := make([]string, 0, len(d.Dimensions))
	for k := range d.Dimensions {
		names = append(names, k)
	}
	sort.Strings(names)
	for _, k := range names {
		md.Dimensions = append(md.Dimensions, types.Dimension{
			Name:  aws.String(k),
			Value: aws.String(d.Dimensions[k]),
		})
	}
	return md
}
