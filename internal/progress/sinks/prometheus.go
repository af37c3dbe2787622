package sinks

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/JakeFAU/binbuddy/internal/progress"
)

// PrometheusSink exports scan pipeline metrics.
type PrometheusSink struct {
	scans          *prometheus.CounterVec
	pfandDetected  prometheus.Counter
	lookups        *prometheus.CounterVec
	lookupErrors   *prometheus.CounterVec
	lookupDuration *prometheus.HistogramVec
}

// NewPrometheusSink registers the collectors against reg, or the default
// registerer when reg is nil.
func NewPrometheusSink(reg prometheus.Registerer) (*PrometheusSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PrometheusSink{
		scans: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "binbuddy_scans_total",
			Help: "Recorded scans partitioned by waste category.",
		}, []string{"category"}),
		pfandDetected: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "binbuddy_pfand_detected_total",
			Help: "Recorded scans of products carrying a deposit.",
		}),
		lookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "binbuddy_lookups_total",
			Help: "Successful product lookups partitioned by source.",
		}, []string{"source"}),
		lookupErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "binbuddy_lookup_errors_total",
			Help: "Failed product lookups partitioned by error kind.",
		}, []string{"kind"}),
		lookupDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "binbuddy_lookup_duration_seconds",
			Help:    "Time until the first lookup result, partitioned by outcome.",
			Buckets: []float64{0.005, 0.025, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		}, []string{"outcome"}),
	}
	for _, collector := range []prometheus.Collector{
		s.scans,
		s.pfandDetected,
		s.lookups,
		s.lookupErrors,
		s.lookupDuration,
	} {
		if err := reg.Register(collector); err != nil {
			return nil, fmt.Errorf("register scan collector: %w", err)
		}
	}
	return s, nil
}

// Consume updates the collectors from batch.
func (s *PrometheusSink) Consume(_ context.Context, batch []progress.Event) error {
	for _, evt := range batch {
		switch evt.Stage {
		case progress.StageScanRecorded:
			s.scans.WithLabelValues(evt.Category).Inc()
			if evt.Pfand {
				s.pfandDetected.Inc()
			}
		case progress.StageLookupDone:
			s.lookups.WithLabelValues(evt.Source).Inc()
			s.observe("ok", evt)
		case progress.StageLookupError:
			s.lookupErrors.WithLabelValues(evt.ErrorKind).Inc()
			s.observe("error", evt)
		}
	}
	return nil
}

func (s *PrometheusSink) observe(outcome string, evt progress.Event) {
	if evt.Dur > 0 {
		s.lookupDuration.WithLabelValues(outcome).Observe(evt.Dur.Seconds())
	}
}

// Close implements the Sink interface; it performs no action.
func (s *PrometheusSink) Close(context.Context) error {
	return nil
}
