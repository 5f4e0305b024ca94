package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	coremetrics "github.com/kilianp07/pubsense/core/metrics"
)

// Cycle results used as the "result" label.
const (
	resultSuccess = "success"
	resultFailure = "failure"
)

// Stages used as the "stage" label of the error counter.
const (
	stageSensor  = "sensor"
	stagePublish = "publish"
	stageFile    = "file"
)

// PromRecorder records cycle outcomes in Prometheus metrics.
type PromRecorder struct {
	cycles      *prometheus.CounterVec
	errors      *prometheus.CounterVec
	duration    prometheus.Histogram
	lastSuccess prometheus.Gauge
}

var _ coremetrics.CycleRecorder = (*PromRecorder)(nil)

// NewPromRecorder registers the cycle metrics on the default Prometheus registerer.
func NewPromRecorder() (*PromRecorder, error) {
	return NewPromRecorderWithRegistry(prometheus.DefaultRegisterer)
}

// NewPromRecorderWithRegistry registers the cycle metrics on reg.
// A nil registerer defaults to the global Prometheus registerer.
func NewPromRecorderWithRegistry(reg prometheus.Registerer) (*PromRecorder, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	cycles := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pubsense_cycles_total",
		Help: "Total number of sample cycles by result",
	}, []string{"result"})
	errs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pubsense_cycle_errors_total",
		Help: "Total number of cycle failures by stage",
	}, []string{"stage"})
	duration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "pubsense_cycle_duration_seconds",
		Help:    "Duration of sample cycles",
		Buckets: prometheus.DefBuckets,
	})
	lastSuccess := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "pubsense_last_success_timestamp_seconds",
		Help: "Unix time of the last fully successful cycle",
	})

	var err error
	if cycles, err = register(reg, cycles); err != nil {
		return nil, err
	}
	if errs, err = register(reg, errs); err != nil {
		return nil, err
	}
	if duration, err = register(reg, duration); err != nil {
		return nil, err
	}
	if lastSuccess, err = register(reg, lastSuccess); err != nil {
		return nil, err
	}
	return &PromRecorder{cycles: cycles, errors: errs, duration: duration, lastSuccess: lastSuccess}, nil
}

// register adds c to reg, reusing an identical collector registered before.
func register[T prometheus.Collector](reg prometheus.Registerer, c T) (T, error) {
	if err := reg.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// RecordCycle implements coremetrics.CycleRecorder.
func (r *PromRecorder) RecordCycle(o coremetrics.CycleOutcome) error {
	r.duration.Observe(o.Duration.Seconds())
	if o.SensorErr != nil {
		r.errors.WithLabelValues(stageSensor).Inc()
	}
	if o.PublishErr != nil {
		r.errors.WithLabelValues(stagePublish).Inc()
	}
	if o.FileErr != nil {
		r.errors.WithLabelValues(stageFile).Inc()
	}
	if !o.Succeeded() {
		r.cycles.WithLabelValues(resultFailure).Inc()
		return nil
	}
	r.cycles.WithLabelValues(resultSuccess).Inc()
	r.lastSuccess.Set(float64(o.Start.Add(o.Duration).Unix()))
	return nil
}
