// Package reduce implements the two allreduce strategies of spec sections
// 4.5-4.8: Flat (one device-native allreduce across every worker) and
// Hierarchical (intra-node reduce-scatter, cross-node host allreduce,
// intra-node allgather). Both are expressed as a tagged variant with a
// dispatch table rather than a virtual-dispatch hierarchy (spec section 9
// design note 2), and both drive the same pipeline.Pipeline/pipeline.Job
// capability rather than owning any state of their own.
//
// Grounded on the teacher's kungfu/session/strategy.go (a small enum of
// named strategies plus a `choose` dispatch function) and
// kungfu/session/allreduce.go / allgather.go for the Workspace-shaped call
// surface generalized here to the GPU collective contracts of
// transport.DeviceCollective.
package reduce

import (
	"fmt"

	"github.com/lsds/gpureduce/plan"
	"github.com/lsds/gpureduce/tensor"
	"github.com/lsds/gpureduce/transport"
)

// Kind tags which branch of the variant a Strategy is.
type Kind int

const (
	FlatKind Kind = iota
	HierarchicalKind
)

// Strategy is the tagged variant of spec section 9 design note 2.
type Strategy struct {
	Kind Kind
	Name string
}

var (
	Flat         = Strategy{Kind: FlatKind, Name: "NCCL_ALLREDUCE"}
	Hierarchical = Strategy{Kind: HierarchicalKind, Name: "NCCL_HIERARCHICAL_ALLREDUCE"}

	// priority is the order the dispatching layer tries strategies in
	// (spec section 4.7): hierarchical first since it is strictly the
	// more specialized optimization, falling back to flat.
	priority = []Strategy{Hierarchical, Flat}
)

// Enabled implements spec section 4.7's per-strategy Enabled() rule.
func Enabled(s Strategy, batch *tensor.Batch, pm transport.ParameterManager) bool {
	switch s.Kind {
	case FlatKind:
		return batch.Device() != tensor.CPUDeviceID
	case HierarchicalKind:
		return Enabled(Flat, batch, pm) && pm.HierarchicalAllreduce()
	default:
		return false
	}
}

// Select tries every strategy in priority order and returns the first one
// enabled for batch, matching spec section 4.7's dispatching layer
// contract exactly.
func Select(batch *tensor.Batch, pm transport.ParameterManager) (Strategy, bool) {
	for _, s := range priority {
		if Enabled(s, batch, pm) {
			return s, true
		}
	}
	return Strategy{}, false
}

func (s Strategy) String() string { return s.Name }

// buildScope returns the communicator-group key and build parameters for
// s, per spec section 4.3/4.5/4.6: flat builds over every worker, hierarchical
// over this node's intra-node peers.
func buildScope(s Strategy, gs plan.GlobalState, rsp plan.Response) (plan.DeviceKey, int, int, transport.Scope) {
	switch s.Kind {
	case HierarchicalKind:
		return rsp.LocalKey(gs.LocalCommRanks), gs.LocalRank, gs.LocalSize, transport.ScopeLocal
	default:
		return rsp.FlatKey(), gs.Rank, gs.Size, transport.ScopeGlobal
	}
}

func errUnknownStrategy(s Strategy) error {
	return fmt.Errorf("reduce: unknown strategy kind %d", s.Kind)
}
