/*
Copyright 2025 The llm-d Authors

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package metrics exposes Prometheus collectors for declaration resolution.
package metrics

import (
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/llm-d/llm-d-lpdecl/pkg/declare"
)

const namespace = "lpdecl"

// Outcome label values.
const (
	OutcomeOK             = "ok"
	OutcomeUnboundIndex   = "unbound_index"
	OutcomeEmptyDomain    = "empty_domain"
	OutcomeBoundDirection = "bound_direction"
	OutcomeInvalid        = "invalid"
	OutcomeError          = "error"
)

// Outcome classifies a resolution error for the outcome label.
func Outcome(err error) string {
	switch {
	case err == nil:
		return OutcomeOK
	case errors.Is(err, declare.ErrUnboundIndexReference):
		return OutcomeUnboundIndex
	case errors.Is(err, declare.ErrEmptyDomain):
		return OutcomeEmptyDomain
	case errors.Is(err, declare.ErrInconsistentBoundDirection):
		return OutcomeBoundDirection
	case errors.Is(err, declare.ErrInvalidDeclaration),
		errors.Is(err, declare.ErrInvalidBound),
		errors.Is(err, declare.ErrIndexType):
		return OutcomeInvalid
	default:
		return OutcomeError
	}
}

// ResolverMetrics implements declare.Observer.
type ResolverMetrics struct {
	resolutions *prometheus.CounterVec
	entries     *prometheus.HistogramVec
	discarded   prometheus.Counter
}

var _ declare.Observer = (*ResolverMetrics)(nil)

// NewResolverMetrics creates the collectors and registers them with reg.
func NewResolverMetrics(reg prometheus.Registerer) (*ResolverMetrics, error) {
	m := &ResolverMetrics{
		resolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resolutions_total",
			Help:      "Declarations resolved, by container kind and outcome.",
		}, []string{"kind", "outcome"}),
		entries: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "container_entries",
			Help:      "Entries stored per resolved container.",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 8),
		}, []string{"kind"}),
		discarded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "filtered_tuples_total",
			Help:      "Candidate tuples discarded by filter predicates.",
		}),
	}
	for _, c := range []prometheus.Collector{m.resolutions, m.entries, m.discarded} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("failed to register resolver metrics: %w", err)
		}
	}
	return m, nil
}

// ObserveResolution records one resolution.
func (m *ResolverMetrics) ObserveResolution(_ string, kind declare.Kind, entries, discarded int, err error) {
	m.resolutions.WithLabelValues(kind.String(), Outcome(err)).Inc()
	if err != nil {
		return
	}
	m.entries.WithLabelValues(kind.String()).Observe(float64(entries))
	m.discarded.Add(float64(discarded))
}
