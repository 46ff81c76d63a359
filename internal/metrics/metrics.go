package metrics

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
	"golang.org/x/xerrors"
)

const namespace = "image_compare"

const (
	ResultOK           = "ok"
	ResultInvalidInput = "invalid_input"
	ResultError        = "error"
)

// Diff groups the collectors describing diff runs.
type Diff struct {
	runs     *prometheus.CounterVec
	amount   prometheus.Histogram
	duration prometheus.Histogram
	pixels   prometheus.Counter
}

func NewDiff() *Diff {
	return &Diff{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "diff_runs_total",
			Help:      "Number of diff runs by result.",
		}, []string{"result"}),
		amount: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "diff_amount_ratio",
			Help:      "Fraction of highlighted pixels per run.",
			Buckets:   []float64{0, 0.001, 0.01, 0.05, 0.1, 0.25, 0.5, 1},
		}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "diff_duration_seconds",
			Help:      "Time spent normalizing and comparing images.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
		}),
		pixels: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "diff_pixels_total",
			Help:      "Number of output pixels produced.",
		}),
	}
}

func (d *Diff) collectors() []prometheus.Collector {
	return []prometheus.Collector{d.runs, d.amount, d.duration, d.pixels}
}

// Register adds the collectors to r. Collectors registered earlier by the
// same Diff are tolerated.
func (d *Diff) Register(r prometheus.Registerer) error {
	for _, c := range d.collectors() {
		if err := r.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) && are.ExistingCollector == c {
				continue
			}
			return xerrors.Errorf("failed to register collector: %w", err)
		}
	}
	return nil
}

func (d *Diff) Observe(amount float64, pixels int, elapsed time.Duration) {
	d.runs.WithLabelValues(ResultOK).Inc()
	d.amount.Observe(amount)
	d.duration.Observe(elapsed.Seconds())
	d.pixels.Add(float64(pixels))
}

func (d *Diff) Fail(result string) {
	d.runs.WithLabelValues(result).Inc()
}

// Push sends the collectors to a Prometheus Pushgateway under job.
func (d *Diff) Push(ctx context.Context, url string, job string) error {
	pusher := push.New(url, job)
	for _, c := range d.collectors() {
		pusher = pusher.Collector(c)
	}
	if err := pusher.PushContext(ctx); err != nil {
		return xerrors.Errorf("failed to push metrics: %w", err)
	}
	return nil
}
