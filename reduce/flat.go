package reduce

import (
	"github.com/lsds/gpureduce/internal/xerrors"
	"github.com/lsds/gpureduce/pipeline"
	"github.com/lsds/gpureduce/tensor"
	"github.com/lsds/gpureduce/transport"
)

// doFlat implements spec section 4.5: a single device-native sum-allreduce
// across every worker's device, over the fused buffer.
func doFlat(job *pipeline.Job, dc transport.DeviceCollective) error {
	dtype := job.Batch.Type()
	if err := dc.Allreduce(job.Fusion, job.Fusion, job.Count, dtype, tensor.SUM, job.Comm, job.Stream); err != nil {
		return xerrors.NewCollectiveRuntimeError("ncclAllReduce", err)
	}
	return job.RecordEventEnd(Flat.Name)
}
