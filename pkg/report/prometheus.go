package report

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"

	"github.com/mslinn/perftest/pkg/mode"
)

// PrometheusSink keeps the mean of every metric per case and writes them as a
// Prometheus text file (for the node_exporter textfile collector) on Close.
type PrometheusSink struct {
	path     string
	registry *prometheus.Registry
	means    *prometheus.GaugeVec
	warmup   *prometheus.GaugeVec
	runs     *prometheus.CounterVec
	cases    *prometheus.CounterVec
	info     *prometheus.GaugeVec
}

// NewPrometheusSink writes to path when closed
func NewPrometheusSink(path string, env Environment) *PrometheusSink {
	registry := prometheus.NewRegistry()
	s := &PrometheusSink{
		path:     path,
		registry: registry,
		means: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{Name: "perftest_measurement_mean", Help: "Mean of a metric across the measured runs of a case"},
			[]string{"test_case", "metric", "unit", "mode"},
		),
		warmup: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{Name: "perftest_warmup_seconds", Help: "Wall time of the unmeasured warmup run"},
			[]string{"test_case", "mode"},
		),
		runs: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "perftest_measured_runs_total", Help: "Measured runs per case"},
			[]string{"test_case", "mode"},
		),
		cases: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "perftest_cases_total", Help: "Cases by outcome"},
			[]string{"mode", "status"},
		),
		info: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{Name: "perftest_info", Help: "Versions the measurements were taken with"},
			[]string{"app", "framework", "runtime", "platform"},
		),
	}
	registry.MustRegister(s.means, s.warmup, s.runs, s.cases, s.info)
	s.info.WithLabelValues(env.App, env.Framework, env.Runtime, env.Platform).Set(1)
	return s
}

func (s *PrometheusSink) Name() string { return "prometheus" }

func (s *PrometheusSink) Report(ctx context.Context, b *mode.Bundle) error {
	m := string(b.Mode)
	for _, k := range b.Kinds() {
		mean, _ := b.Mean(k)
		s.means.WithLabelValues(b.TestCase, k.String(), k.Unit(), m).Set(mean)
	}
	s.warmup.WithLabelValues(b.TestCase, m).Set(b.Warmup.Seconds())
	s.runs.WithLabelValues(b.TestCase, m).Add(float64(len(b.Runs)))
	s.cases.WithLabelValues(m, "passed").Inc()
	return nil
}

// ReportError counts a failed case
func (s *PrometheusSink) ReportError(testCase string, m mode.Mode, err error) {
	status := "errored"
	var timeout *mode.TimeoutError
	if errors.As(err, &timeout) {
		status = "timed_out"
	}
	s.cases.WithLabelValues(string(m), status).Inc()
}

// Close writes all metrics to the text file
func (s *PrometheusSink) Close() error {
	if s.path == "" {
		return nil
	}

	metricFamilies, err := s.registry.Gather()
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	enc := expfmt.NewEncoder(&buf, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, family := range metricFamilies {
		if err := enc.Encode(family); err != nil {
			return err
		}
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("failed to create metrics directory: %w", err)
	}
	return os.WriteFile(s.path, buf.Bytes(), 0o644)
}
