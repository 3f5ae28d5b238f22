// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

// Package metrics exports the progress of a test run as prometheus metrics.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/Fantom-foundation/enginect/go/ect/group"
	"github.com/Fantom-foundation/enginect/go/ect/protocol"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

const namespace = "ect"

// Metrics collects the metrics of a test run. It implements the observer
// interface of the lifecycle manager and is safe for concurrent use.
type Metrics struct {
	registry          *prometheus.Registry
	tests             *prometheus.CounterVec
	warnings          prometheus.Counter
	testDuration      prometheus.Histogram
	instancesCreated  prometheus.Counter
	instancesTornDown *prometheus.CounterVec
	liveInstances     prometheus.Gauge
}

// New creates a metrics collection on a fresh registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)
	return &Metrics{
		registry: registry,
		tests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "tests_total",
				Help:      "Number of executed tests by result and failure category.",
			},
			[]string{"result", "category"},
		),
		warnings: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "warnings_total",
			Help:      "Number of warnings reported by passed and failed tests.",
		}),
		testDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "test_duration_seconds",
			Help:      "Duration of test executions.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
		}),
		instancesCreated: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "instances_created_total",
			Help:      "Number of client instances created.",
		}),
		instancesTornDown: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "instances_torn_down_total",
				Help:      "Number of client instances torn down by result.",
			},
			[]string{"result"},
		),
		liveInstances: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "instances_live",
			Help:      "Number of currently running client instances.",
		}),
	}
}

// Registry returns the registry all metrics are registered with.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveVerdict records the result of a test.
func (m *Metrics) ObserveVerdict(verdict *protocol.Verdict) {
	if verdict.Passed {
		m.tests.WithLabelValues("passed", "").Inc()
	} else {
		m.tests.WithLabelValues("failed", string(verdict.Category())).Inc()
	}
	m.warnings.Add(float64(len(verdict.Warnings)))
	m.testDuration.Observe(verdict.Duration.Seconds())
}

func (m *Metrics) InstanceCreated(group.Identifier) {
	m.instancesCreated.Inc()
	m.liveInstances.Inc()
}

func (m *Metrics) InstanceTornDown(_ group.Identifier, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.instancesTornDown.WithLabelValues(result).Inc()
	m.liveInstances.Dec()
}

// Serve exposes the metrics on the /metrics route of the given address
// until the context is canceled.
func (m *Metrics) Serve(ctx context.Context, addr string, log zerolog.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
	server := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
		case <-done:
			return
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("failed to stop metrics server")
		}
	}()

	log.Info().Str("endpoint", addr).Msg("serving metrics")
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
