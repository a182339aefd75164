// Package metrics exports scheduler and resolver activity to Prometheus.
package metrics

import (
	"fmt"
	"net/http"
	"time"

	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jvetere1999/passion-os-sub013/internal/refresh"
	"github.com/jvetere1999/passion-os-sub013/pkg/types"
)

// DefaultNamespace prefixes every metric name.
const DefaultNamespace = "passion_core"

// Observer records refresh decisions, refresh callback latency and resolver
// outcomes.
type Observer struct {
	decisions       *promclient.CounterVec
	refreshDuration *promclient.HistogramVec
	resolutions     *promclient.CounterVec
}

// NewObserver registers the collectors with reg. Collectors that are already
// registered are reused, so several registrations can share one registry.
func NewObserver(namespace string, reg promclient.Registerer) (*Observer, error) {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	if reg == nil {
		reg = promclient.DefaultRegisterer
	}

	decisions, err := registerCounterVec(reg, promclient.CounterOpts{
		Namespace: namespace,
		Name:      "refresh_decisions_total",
		Help:      "Refresh trigger decisions by trigger and outcome.",
	}, []string{"trigger", "outcome"})
	if err != nil {
		return nil, err
	}

	duration := promclient.NewHistogramVec(promclient.HistogramOpts{
		Namespace: namespace,
		Name:      "refresh_duration_seconds",
		Help:      "Latency of refresh callbacks.",
		Buckets:   promclient.DefBuckets,
	}, []string{"result"})
	if err := reg.Register(duration); err != nil {
		are, ok := err.(promclient.AlreadyRegisteredError)
		if !ok {
			return nil, fmt.Errorf("register refresh histogram: %w", err)
		}
		existing, ok := are.ExistingCollector.(*promclient.HistogramVec)
		if !ok {
			return nil, fmt.Errorf("register refresh histogram: %w", err)
		}
		duration = existing
	}

	resolutions, err := registerCounterVec(reg, promclient.CounterOpts{
		Namespace: namespace,
		Name:      "resolved_actions_total",
		Help:      "Resolved next actions by reason.",
	}, []string{"reason"})
	if err != nil {
		return nil, err
	}

	return &Observer{
		decisions:       decisions,
		refreshDuration: duration,
		resolutions:     resolutions,
	}, nil
}

func registerCounterVec(reg promclient.Registerer, opts promclient.CounterOpts, labels []string) (*promclient.CounterVec, error) {
	c := promclient.NewCounterVec(opts, labels)
	if err := reg.Register(c); err != nil {
		are, ok := err.(promclient.AlreadyRegisteredError)
		if !ok {
			return nil, fmt.Errorf("register %s: %w", opts.Name, err)
		}
		existing, ok := are.ExistingCollector.(*promclient.CounterVec)
		if !ok {
			return nil, fmt.Errorf("register %s: %w", opts.Name, err)
		}
		return existing, nil
	}
	return c, nil
}

// RecordDecision counts one scheduler decision.
func (o *Observer) RecordDecision(trigger, outcome string) {
	if o == nil {
		return
	}
	o.decisions.WithLabelValues(trigger, outcome).Inc()
}

// RecordRefresh observes one refresh callback.
func (o *Observer) RecordRefresh(duration time.Duration, err error) {
	if o == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	o.refreshDuration.WithLabelValues(result).Observe(duration.Seconds())
}

// RecordResolution counts one resolved action.
func (o *Observer) RecordResolution(a types.ResolvedAction) {
	if o == nil {
		return
	}
	o.resolutions.WithLabelValues(string(a.Reason)).Inc()
}

// Handler serves the metrics of gatherer in the Prometheus text format.
func Handler(gatherer promclient.Gatherer) http.Handler {
	if gatherer == nil {
		gatherer = promclient.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

var _ refresh.Observer = (*Observer)(nil)
