package metrics

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
	"github.com/google/go-cmp/cmp"
	"go.uber.org/zap/zaptest"
)

type mockCloudWatch struct {
	inputs []*cloudwatch.PutMetricDataInput
	err    error
}

func (m *mockCloudWatch) PutMetricData(_ context.Context, in *cloudwatch.PutMetricDataInput, _ ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error) {
	m.inputs = append(m.inputs, in)
	if m.err != nil {
		return nil, m.err
	}
	return &cloudwatch.PutMetricDataOutput{}, nil
}

func TestCloudWatchRecord(t *testing.T) {

	ts := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	tt := []struct {
		name  string
		datum Datum
		err   error
		want  types.MetricDatum
	}{
		{name: "happy", datum: Datum{Name: APISuccess, Value: 1, Unit: Count,
			Dimensions: map[string]string{DimStatusCode: "200", DimMethod: "POST"}},
			want: types.MetricDatum{
				MetricName: aws.String(APISuccess),
				Value:      aws.Float64(1),
				Unit:       types.StandardUnitCount,
				Timestamp:  aws.Time(ts),
				Dimensions: []types.Dimension{
					{Name: aws.String(DimMethod), Value: aws.String("POST")},
					{Name: aws.String(DimStatusCode), Value: aws.String("200")},
				},
			}},
		{name: "no dimensions", datum: Datum{Name: MemoryLimit, Value: 3008, Unit: Megabytes},
			want: types.MetricDatum{
				MetricName: aws.String(MemoryLimit),
				Value:      aws.Float64(3008),
				Unit:       types.StandardUnitMegabytes,
				Timestamp:  aws.Time(ts),
			}},
		{name: "unhappy", datum: Datum{Name: ErrorTime, Value: 12.5, Unit: Milliseconds},
			err: errors.New("throttled"),
			want: types.MetricDatum{
				MetricName: aws.String(ErrorTime),
				Value:      aws.Float64(12.5),
				Unit:       types.StandardUnitMilliseconds,
				Timestamp:  aws.Time(ts),
			}},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {

			m := &mockCloudWatch{err: tc.err}
			cw := NewCloudWatch(m, "", zaptest.NewLogger(t))
			cw.now = func() time.Time { return ts }

			cw.Record(context.Background(), tc.datum)

			if len(m.inputs) != 1 {
				t.Fatalf("expected one call, got %v", len(m.inputs))
			}
			in := m.inputs[0]
			if aws.ToString(in.Namespace) != DefaultNamespace {
				t.Errorf("expected namespace %v, got %v", DefaultNamespace, aws.ToString(in.Namespace))
			}
			if diff := cmp.Diff([]types.MetricDatum{tc.want}, in.MetricData, cmp.AllowUnexported(types.MetricDatum{}, types.Dimension{})); diff != "" {
				t.Errorf("datum mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestCloudWatchNilClient(t *testing.T) {
	cw := NewCloudWatch(nil, "VoiceInsight", zaptest.NewLogger(t))
	// must not panic
	cw.Record(context.Background(), Datum{Name: HealthCheck, Value: 1, Unit: Count})
}
