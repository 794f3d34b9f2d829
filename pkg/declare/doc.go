// Package declare resolves indexed declarations into containers.
//
// A declaration names a collection of decision variables or constraints and
// the axes it is indexed by. Resolution decides which container kind to build,
// enumerates the index tuples and evaluates per-tuple bounds. It never talks to
// a solver; pkg/model registers the resolved entries with one.
//
// Container Kinds:
//
//   - DenseArray: every axis is a contiguous range starting at 1, no filter.
//   - AxisArray: every axis is a static range or an explicit sequence, no filter.
//   - SparseMapping: a filter is present, or an axis depends on earlier axes
//     ("triangular" indexing). Only surviving tuples are stored.
//
// Example usage:
//
//	// x[i in 1:3, j in i:5] >= 2i + j
//	decl := declare.Declaration{
//	    Name: "x",
//	    Axes: []declare.Axis{
//	        {Name: "i", Domain: declare.OneTo(3)},
//	        {Name: "j", Domain: declare.DependentRange(declare.Index("i"), declare.Const(5))},
//	    },
//	    Lower: func(b declare.Binding) (float64, error) {
//	        i, err := b.Int("i")
//	        if err != nil {
//	            return 0, err
//	        }
//	        j, err := b.Int("j")
//	        if err != nil {
//	            return 0, err
//	        }
//	        return float64(2*i + j), nil
//	    },
//	}
//
//	c, err := declare.Resolve(decl)
//	if err != nil {
//	    return err
//	}
//	entry, err := c.Get(2, 4) // Entry{Index: [2,4], Lower: 8, Upper: +Inf}
//
// Error Handling:
//
// Every error wraps one of the package sentinels so callers can use errors.Is:
//   - ErrUnboundIndexReference: a bound, filter or dependent domain used a name out of scope
//   - ErrEmptyDomain: an axis enumerated to nothing (advisory under EmptyDomainWarn)
//   - ErrInconsistentBoundDirection: lower bound above upper bound for some tuple
//   - ErrKeyNotPresent: lookup of a tuple the container does not hold
//
// Resolution is pure and synchronous: resolving the same declaration twice
// yields structurally identical containers.
package declare
