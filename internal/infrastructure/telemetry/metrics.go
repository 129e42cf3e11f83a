// Package telemetry records lifecycle metrics with OpenTelemetry.
package telemetry

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/negotiation-hub/negotiation-hub/internal/domain/negotiation"
)

const meterName = "negotiation-hub/lifecycle"

const (
	MetricTransitions = "negotiation.transitions.total"
	MetricDropped     = "negotiation.publisher.dropped"
	MetricLag         = "negotiation.publisher.lag"
)

// Metrics is a publisher subscriber counting transitions. Readings are
// collected on demand through a manual reader.
type Metrics struct {
	provider    *sdkmetric.MeterProvider
	reader      *sdkmetric.ManualReader
	transitions metric.Int64Counter
	dropped     metric.Int64Counter
	lag         metric.Float64Histogram
	now         func() time.Time
}

// Point is one collected reading. Histograms report their sum as Value.
type Point struct {
	Name       string            `json:"name"`
	Attributes map[string]string `json:"attributes,omitempty"`
	Value      float64           `json:"value"`
	Count      uint64            `json:"count,omitempty"`
}

func NewMetrics() (*Metrics, error) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	meter := provider.Meter(meterName)

	m := &Metrics{provider: provider, reader: reader, now: time.Now}
	var err error
	m.transitions, err = meter.Int64Counter(MetricTransitions,
		metric.WithDescription("Committed lifecycle transitions"),
		metric.WithUnit("{transition}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", MetricTransitions, err)
	}
	m.dropped, err = meter.Int64Counter(MetricDropped,
		metric.WithDescription("Transitions the publisher could not hand to a subscriber"),
		metric.WithUnit("{event}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", MetricDropped, err)
	}
	m.lag, err = meter.Float64Histogram(MetricLag,
		metric.WithDescription("Delay between commit and subscriber delivery"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", MetricLag, err)
	}
	return m, nil
}

func (m *Metrics) Name() string { return "metrics" }

func (m *Metrics) Handle(ctx context.Context, event negotiation.TransitionOccurred) error {
	attrs := metric.WithAttributes(
		attribute.String("level", string(event.Level())),
		attribute.String("event", event.Event),
		attribute.String("to_state", event.ToState),
	)
	m.transitions.Add(ctx, 1, attrs)
	if !event.Timestamp.IsZero() {
		m.lag.Record(ctx, m.now().Sub(event.Timestamp).Seconds(),
			metric.WithAttributes(attribute.String("level", string(event.Level()))))
	}
	return nil
}

// RecordDrop counts an event the publisher dropped; "" is the shared queue.
func (m *Metrics) RecordDrop(subscriber string) {
	if subscriber == "" {
		subscriber = "queue"
	}
	m.dropped.Add(context.Background(), 1, metric.WithAttributes(attribute.String("subscriber", subscriber)))
}

// Snapshot collects the current readings, sorted by name and attributes.
func (m *Metrics) Snapshot(ctx context.Context) ([]Point, error) {
	var rm metricdata.ResourceMetrics
	if err := m.reader.Collect(ctx, &rm); err != nil {
		return nil, err
	}
	points := []Point{}
	for _, sm := range rm.ScopeMetrics {
		for _, md := range sm.Metrics {
			switch data := md.Data.(type) {
			case metricdata.Sum[int64]:
				for _, dp := range data.DataPoints {
					points = append(points, Point{Name: md.Name, Attributes: attrMap(dp.Attributes), Value: float64(dp.Value)})
				}
			case metricdata.Histogram[float64]:
				for _, dp := range data.DataPoints {
					points = append(points, Point{Name: md.Name, Attributes: attrMap(dp.Attributes), Value: dp.Sum, Count: dp.Count})
				}
			}
		}
	}
	sort.Slice(points, func(i, j int) bool {
		if points[i].Name != points[j].Name {
			return points[i].Name < points[j].Name
		}
		return fmt.Sprint(points[i].Attributes) < fmt.Sprint(points[j].Attributes)
	})
	return points, nil
}

func (m *Metrics) Shutdown(ctx context.Context) error {
	return m.provider.Shutdown(ctx)
}

func attrMap(set attribute.Set) map[string]string {
	if set.Len() == 0 {
		return nil
	}
	out := make(map[string]string, set.Len())
	iter := set.Iter()
	for iter.Next() {
		kv := iter.Attribute()
		out[string(kv.Key)] = kv.Value.Emit()
	}
	return out
}
