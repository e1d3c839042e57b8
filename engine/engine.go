// Package engine wires the five components of spec section 2 into the
// single entry point an embedder calls: Execute. It owns no collective
// logic itself - that lives in package reduce - it only resolves which
// strategy applies and hands the batch to it.
//
// Grounded on the teacher's kungfu/peer/peer.go: a thin top-level façade
// holding references to the session/router/server it delegates to, with
// a single public call surface embedders use instead of reaching into the
// subsystems directly.
package engine

import (
	"context"
	"fmt"

	"github.com/lsds/gpureduce/internal/config"
	"github.com/lsds/gpureduce/internal/log"
	"github.com/lsds/gpureduce/internal/xerrors"
	"github.com/lsds/gpureduce/pipeline"
	"github.com/lsds/gpureduce/plan"
	"github.com/lsds/gpureduce/reduce"
	"github.com/lsds/gpureduce/tensor"
	"github.com/lsds/gpureduce/transport"
)

// Engine is the process-scope façade: one Pipeline capability, the two
// external-collaborator transports, global rank state, and the parameter
// manager toggle (spec section 6).
type Engine struct {
	Pipeline *pipeline.Pipeline
	Device   transport.DeviceCollective
	Host     transport.HostTransport
	Params   transport.ParameterManager
	GlobalSt plan.GlobalState
}

// New builds an Engine over an already-constructed pipeline.Pipeline. A nil
// params falls back to config.DefaultParameterManager, the env-seeded
// toggle every other ambient setting in this engine is sourced from;
// embedders that want a runtime-mutable toggle instead of an env var should
// supply their own transport.ParameterManager.
func New(p *pipeline.Pipeline, dc transport.DeviceCollective, host transport.HostTransport, params transport.ParameterManager, gs plan.GlobalState) *Engine {
	if params == nil {
		params = config.DefaultParameterManager
	}
	return &Engine{Pipeline: p, Device: dc, Host: host, Params: params, GlobalSt: gs}
}

// Execute is the engine's single call surface: validate the batch, select
// a strategy (spec section 4.7), and drive it through the pipeline (spec
// section 4.4). rsp is the external coordinator's device assignment for
// this batch (spec section 3). Execute returns once the job has been
// handed to the finalizer executor - entries[i].Callback fires later, from
// an executor worker, not from this call.
//
// A failure here is the spec section 7 "fatal exception before enqueue"
// case: no entry's callback is invoked, the caller must treat the whole
// batch as failed and is responsible for its own retry policy.
func (e *Engine) Execute(entries []*tensor.Entry, rsp plan.Response) error {
	if len(entries) == 0 {
		return xerrors.NewUnsupportedType("") // defensive; callers should never submit an empty batch
	}
	if !entries[0].Type.Supported() {
		return xerrors.NewUnsupportedType(entries[0].Type.String())
	}
	batch, err := tensor.NewBatch(entries)
	if err != nil {
		return err
	}
	strategy, ok := reduce.Select(batch, e.Params)
	if !ok {
		return fmt.Errorf("engine: no strategy is enabled for device %d", batch.Device())
	}
	log.With("rank", e.GlobalSt.Rank, "device", batch.Device(), "strategy", strategy).
		Debugf("executing batch of %d entries (%d elements)", len(batch.Entries), batch.NumElements())
	return reduce.Run(e.Pipeline, e.Device, e.Host, e.GlobalSt, rsp, batch, strategy)
}

// Shutdown waits for every job already handed to the finalizer executor to
// complete, or ctx to expire first (spec section 5: "destruction of the
// engine must wait for all outstanding finalizers").
func (e *Engine) Shutdown(ctx context.Context) error {
	return e.Pipeline.Executor.Shutdown(ctx)
}
