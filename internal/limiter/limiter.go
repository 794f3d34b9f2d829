// Package limiter distributes a limited accelerator inventory among workload
// variants by solving a small linear program built from indexed declarations.
package limiter

import (
	"context"
	"fmt"
)

// Accelerator is the count of one accelerator type on one node.
type Accelerator struct {
	Count int `yaml:"count"`
}

// Inventory maps node name to accelerator type to its count.
type Inventory map[string]map[string]Accelerator

// Decision is the scaling decision of one variant. Allocate lowers
// TargetReplicas when the inventory cannot hold every target.
type Decision struct {
	VariantName     string  `yaml:"variant"`
	AcceleratorName string  `yaml:"accelerator"`
	GPUsPerReplica  int     `yaml:"gpusPerReplica"`
	CurrentReplicas int     `yaml:"currentReplicas"`
	TargetReplicas  int     `yaml:"targetReplicas"`
	Priority        float64 `yaml:"priority"`
}

// Limiter allocates limited capacity among variants by updating their decisions.
type Limiter interface {
	Allocate(ctx context.Context, decisions []Decision, inventory Inventory) error
}

// Strategy selects the objective of the allocation.
type Strategy int

const (
	// ThroughputStrategy maximizes the number of allocated replicas.
	ThroughputStrategy Strategy = iota
	// PriorityStrategy maximizes allocated replicas weighted by priority.
	PriorityStrategy
)

func (s Strategy) String() string {
	switch s {
	case ThroughputStrategy:
		return "Throughput"
	case PriorityStrategy:
		return "Priority"
	default:
		return fmt.Sprintf("Strategy(%d)", int(s))
	}
}

// NewLimiter returns the limiter for strategy.
func NewLimiter(strategy Strategy) (Limiter, error) {
	switch strategy {
	case ThroughputStrategy:
		return &LPLimiter{weight: func(Decision) float64 { return 1 }}, nil
	case PriorityStrategy:
		return &LPLimiter{weight: func(d Decision) float64 { return d.Priority }}, nil
	default:
		return nil, fmt.Errorf("unsupported limiter strategy: %v", strategy)
	}
}

// Capacity sums the inventory per accelerator type. Non-positive counts are ignored.
func Capacity(inventory Inventory) map[string]int {
	capacity := make(map[string]int)
	for _, accMap := range inventory {
		for accType, acc := range accMap {
			if acc.Count <= 0 {
				continue
			}
			capacity[accType] += acc.Count
		}
	}
	return capacity
}
