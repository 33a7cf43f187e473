// Package metrics records bootstrap metrics and emits them in batches.
package metrics

import (
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
)

// MetricRegistry buffers metric values until Emit.
type MetricRegistry interface {
	// Record buffers one value of spec with the given dimensions.
	Record(spec *MetricSpec, value float64, dimensions map[string]string)
	// Emit flushes the buffered values. Values that failed to send stay buffered.
	Emit() error
}

// MetricSpec names one metric and its unit.
type MetricSpec struct {
	Namespace string
	Metric    string
	Unit      types.StandardUnit
}

// BootstrapSpecs returns the metrics recorded after the distributed bootstrap.
func BootstrapSpecs(namespace string) (worldSize, bootstrapSeconds *MetricSpec) {
	worldSize = &MetricSpec{
		Namespace: namespace,
		Metric:    "WorldSize",
		Unit:      types.StandardUnitCount,
	}
	bootstrapSeconds = &MetricSpec{
		Namespace: namespace,
		Metric:    "BootstrapDuration",
		Unit:      types.StandardUnitSeconds,
	}
	return worldSize, bootstrapSeconds
}
