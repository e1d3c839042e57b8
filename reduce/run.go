package reduce

import (
	"github.com/lsds/gpureduce/commcache"
	"github.com/lsds/gpureduce/pipeline"
	"github.com/lsds/gpureduce/plan"
	"github.com/lsds/gpureduce/tensor"
	"github.com/lsds/gpureduce/transport"
)

// Run drives one batch through the full spec section 4.4 lifecycle for
// strategy s: Initialize binds stream+communicator, MemcpyIn stages the
// fusion buffer, DoAllreduce is strategy-specific (doFlat/doHierarchical),
// MemcpyOut stages the result back out, and Finalize hands the job to the
// pipeline's executor. Errors returned here are pre-FINALIZING failures
// (spec section 4.8): the caller must propagate them on the submission
// thread rather than expect a callback.
func Run(p *pipeline.Pipeline, dc transport.DeviceCollective, host transport.HostTransport, gs plan.GlobalState, rsp plan.Response, batch *tensor.Batch, s Strategy) error {
	key, rank, size, scope := buildScope(s, gs, rsp)
	count := batch.NumElements()
	if s.Kind == HierarchicalKind {
		count = Pad(count, gs.LocalSize, gs.IsHomogeneous, batch.Fused())
	}

	job, err := p.Initialize(batch, count, key, commcache.BuildScope{
		RankInGroup: rank,
		GroupSize:   size,
		Scope:       scope,
	})
	if err != nil {
		return err
	}

	if err := job.MemcpyIn(); err != nil {
		return err
	}

	switch s.Kind {
	case FlatKind:
		err = doFlat(job, dc)
	case HierarchicalKind:
		err = doHierarchical(job, dc, host, gs)
	default:
		err = errUnknownStrategy(s)
	}
	if err != nil {
		return err
	}

	if err := job.MemcpyOut(); err != nil {
		return err
	}
	return p.Finalize(job)
}
