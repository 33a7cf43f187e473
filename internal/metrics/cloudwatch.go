package metrics

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
	"go.uber.org/zap"
)

// we can emit up to 1000 values per PutMetricData
const maxDataPerPut = 1000

// PutMetricDataAPI is the subset of the CloudWatch client used by the registry.
type PutMetricDataAPI interface {
	PutMetricData(ctx context.Context, params *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error)
}

// NewCloudWatchRegistry creates a new metric registry that will emit values using the specified cloudwatch client
func NewCloudWatchRegistry(lg *zap.Logger, cw PutMetricDataAPI) *CloudWatchRegistry {
	if lg == nil {
		lg = zap.NewNop()
	}
	return &CloudWatchRegistry{
		lg:              lg,
		cw:              cw,
		dataByNamespace: make(map[string][]*cloudwatchMetricDatum),
	}
}

// CloudWatchRegistry buffers metric values per namespace until Emit.
type CloudWatchRegistry struct {
	lg              *zap.Logger
	cw              PutMetricDataAPI
	mu              sync.Mutex
	dataByNamespace map[string][]*cloudwatchMetricDatum
}

type cloudwatchMetricDatum struct {
	spec       *MetricSpec
	value      float64
	dimensions map[string]string
	timestamp  time.Time
}

func (r *CloudWatchRegistry) Record(spec *MetricSpec, value float64, dimensions map[string]string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dataByNamespace[spec.Namespace] = append(r.dataByNamespace[spec.Namespace], &cloudwatchMetricDatum{
		spec:       spec,
		value:      value,
		dimensions: dimensions,
		timestamp:  time.Now(),
	})
}

// Emit puts the buffered values in batches of at most 1000.
// Namespaces that were fully emitted are dropped even if a later one fails.
func (r *CloudWatchRegistry) Emit() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	namespaces := make([]string, 0, len(r.dataByNamespace))
	for ns := range r.dataByNamespace {
		namespaces = append(namespaces, ns)
	}
	sort.Strings(namespaces)

	for _, namespace := range namespaces {
		data := r.dataByNamespace[namespace]
		for start := 0; start < len(data); start += maxDataPerPut {
			end := start + maxDataPerPut
			if end > len(data) {
				end = len(data)
			}
			metricData := make([]types.MetricDatum, 0, end-start)
			for _, datum := range data[start:end] {
				metricData = append(metricData, toMetricDatum(datum))
			}
			_, err := r.cw.PutMetricData(context.TODO(), &cloudwatch.PutMetricDataInput{
				Namespace:  aws.String(namespace),
				MetricData: metricData,
			})
			if err != nil {
				r.dataByNamespace[namespace] = data[start:]
				return err
			}
		}
		r.lg.Info("emitted metrics", zap.String("namespace", namespace), zap.Int("count", len(data)))
		delete(r.dataByNamespace, namespace)
	}
	return nil
}

func toMetricDatum(datum *cloudwatchMetricDatum) types.MetricDatum {
	keys := make([]string, 0, len(datum.dimensions))
	for k := range datum.dimensions {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var dimensions []types.Dimension
	for _, key := range keys {
		dimensions = append(dimensions, types.Dimension{
			Name:  aws.String(key),
			Value: aws.String(datum.dimensions[key]),
		})
	}
	ts := datum.timestamp
	return types.MetricDatum{
		MetricName: aws.String(datum.spec.Metric),
		Value:      aws.Float64(datum.value),
		Unit:       datum.spec.Unit,
		Dimensions: dimensions,
		Timestamp:  &ts,
	}
}

// GetRegistered returns the number of values waiting to be emitted.
func (r *CloudWatchRegistry) GetRegistered() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	registered := 0
	for _, data := range r.dataByNamespace {
		registered += len(data)
	}
	return registered
}
