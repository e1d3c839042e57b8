package faketransport

import (
	"fmt"
	"sync"

	"github.com/lsds/gpureduce/tensor"
)

// group is a reusable rendezvous point for exactly `size` participants. All
// of broadcast/barrier/collectiveRound are built on the same
// generation-counted barrier (arrive), so a caller that forgets to have
// every peer call in lockstep deadlocks here exactly as it would against a
// real MPI/NCCL implementation - that property is what makes this fake
// useful for exercising the engine's rendezvous bugs, not just its math.
type group struct {
	mu      sync.Mutex
	cond    *sync.Cond
	size    int
	arrived int
	gen     int

	payload []byte   // current round's broadcast payload
	contrib [][]byte // current round's per-rank contributions
}

func newGroup(size int) *group {
	g := &group{size: size}
	g.cond = sync.NewCond(&g.mu)
	return g
}

// arrive must be called with g.mu held. It blocks until every participant
// has called arrive for the current round, then returns.
func (g *group) arrive() {
	gen := g.gen
	g.arrived++
	if g.arrived == g.size {
		g.arrived = 0
		g.gen++
		g.cond.Broadcast()
		return
	}
	for g.gen == gen {
		g.cond.Wait()
	}
}

// broadcast distributes buf from root to every participant, byte-wise.
func (g *group) broadcast(buf []byte, root, rank int) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if rank == root {
		g.payload = append(g.payload[:0], buf...)
	}
	g.arrive()
	if rank != root {
		copy(buf, g.payload)
	}
	return nil
}

func (g *group) barrier() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.arrive()
}

// collectiveRound gathers every participant's send buffer and returns the
// full, rank-indexed set once all have arrived. Each round allocates its
// own slice, and every participant returns the slice of the round it
// joined, even if a faster peer has already started the next round.
func (g *group) collectiveRound(send []byte, rank int) [][]byte {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.arrived == 0 {
		g.contrib = make([][]byte, g.size)
	}
	contrib := g.contrib
	contrib[rank] = append([]byte(nil), send...)
	g.arrive()
	return contrib
}

// allreduce sums every participant's send buffer into recv. Only SUM is
// implemented: it is the only operator the allreduce strategies ever use
// (spec section 4 composes every collective out of sum-reductions); the
// barrier's own U8 workspace in the teacher uses SUM for the same reason.
func (g *group) allreduce(send, recv []byte, count int, dtype tensor.DType, op tensor.Op, rank int) error {
	if op != tensor.SUM {
		return fmt.Errorf("faketransport: allreduce: unsupported op %s", op)
	}
	contrib := g.collectiveRound(send, rank)
	width := count * dtype.Size()
	sum := make([]byte, width)
	tensor.Zero(sum, count, dtype)
	for _, c := range contrib {
		tensor.Sum(sum, sum, c, count, dtype)
	}
	copy(recv, sum)
	return nil
}
