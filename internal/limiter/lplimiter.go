package limiter

import (
	"context"
	"fmt"
	"math"

	"github.com/go-logr/logr"
	"k8s.io/apimachinery/pkg/util/sets"

	"github.com/llm-d/llm-d-lpdecl/internal/logging"
	"github.com/llm-d/llm-d-lpdecl/pkg/declare"
	"github.com/llm-d/llm-d-lpdecl/pkg/model"
)

// roundTol absorbs simplex noise before replicas are rounded down.
const roundTol = 1e-6

// LPLimiter solves the continuous allocation problem
//
//	max   sum_v w(v) * r[v]
//	s.t.  sum_{v on a} gpus(v) * r[v] <= capacity(a)   for every accelerator a in use
//	      0 <= r[v] <= target(v)
//
// and rounds every r[v] down, which keeps each capacity row satisfied.
type LPLimiter struct {
	weight func(Decision) float64
}

// Allocate overwrites TargetReplicas with the limited allocation.
func (l *LPLimiter) Allocate(ctx context.Context, decisions []Decision, inventory Inventory) error {
	logger, err := logr.FromContext(ctx)
	if err != nil {
		logger = logging.Log
	}
	if len(decisions) == 0 {
		return nil
	}

	byName := make(map[string]*Decision, len(decisions))
	names := make([]string, 0, len(decisions))
	accelerators := sets.New[string]()
	for i := range decisions {
		d := &decisions[i]
		if _, ok := byName[d.VariantName]; ok {
			return fmt.Errorf("duplicate variant %q", d.VariantName)
		}
		if d.GPUsPerReplica < 0 || d.TargetReplicas < 0 {
			return fmt.Errorf("variant %q: negative GPUs per replica or target replicas", d.VariantName)
		}
		byName[d.VariantName] = d
		names = append(names, d.VariantName)
		accelerators.Insert(d.AcceleratorName)
	}
	capacity := Capacity(inventory)

	m := model.New("limiter", model.WithResolver(declare.NewResolver(declare.WithLogger(logger))))
	replicas, err := m.AddVariables(declare.Declaration{
		Name:  "replicas",
		Axes:  []declare.Axis{{Name: "v", Domain: declare.Strings(names...)}},
		Lower: func(declare.Binding) (float64, error) { return 0, nil },
		Upper: func(b declare.Binding) (float64, error) {
			v, err := b.String("v")
			if err != nil {
				return 0, err
			}
			return float64(byName[v].TargetReplicas), nil
		},
	})
	if err != nil {
		return err
	}

	gpusOn := func(acc string) func(declare.Binding) float64 {
		return func(b declare.Binding) float64 {
			v, _ := b.String("v")
			if d := byName[v]; d.AcceleratorName == acc {
				return float64(d.GPUsPerReplica)
			}
			return 0
		}
	}
	if _, err := m.AddConstraints(declare.Declaration{
		Name: "capacity",
		Axes: []declare.Axis{{Name: "a", Domain: declare.Strings(sets.List(accelerators)...)}},
	}, func(b declare.Binding) (model.Row, error) {
		a, err := b.String("a")
		if err != nil {
			return model.Row{}, err
		}
		return model.Sum(replicas, gpusOn(a)).LessEq(float64(capacity[a])), nil
	}); err != nil {
		return err
	}

	if err := m.SetObjective(model.Maximize, model.Sum(replicas, func(b declare.Binding) float64 {
		v, _ := b.String("v")
		return l.weight(*byName[v])
	})); err != nil {
		return err
	}

	sol, err := m.Solve(ctx)
	if err != nil {
		return err
	}
	if !sol.IsOptimal() {
		return fmt.Errorf("capacity allocation is %s", sol.Status)
	}

	for t, r := range replicas.All() {
		v := t[0].(string)
		d := byName[v]
		target := int(math.Floor(sol.Value(r) + roundTol))
		logger.Info("Limited allocation for variant",
			"variant", v,
			"accelerator", d.AcceleratorName,
			"desiredReplicas", d.TargetReplicas,
			"targetReplicas", target)
		d.TargetReplicas = target
	}
	logger.V(logging.DEBUG).Info("Limited capacity allocation completed", "objective", sol.Objective)
	return nil
}
