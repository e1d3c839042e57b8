package plan

// GlobalState is process-scope membership information supplied by the
// external coordinator: this worker's place in the global and intra-node
// rank spaces. It never changes over the life of a process - dynamic
// membership of the worker set is out of scope (see spec.md Non-goals).
type GlobalState struct {
	Rank      int
	Size      int
	LocalRank int
	LocalSize int

	// IsHomogeneous is true iff every node has an identical LocalSize.
	IsHomogeneous bool

	// LocalCommRanks[r] is the global rank of the peer whose LocalRank is
	// r on this worker's node.
	LocalCommRanks []int
}

// Root is the intra-node rank that hosts phase 3's tail responsibility in
// the hierarchical strategy: local_size-1 when homogeneous, else 0 (spec
// section 4.6's Split rule).
func (g GlobalState) Root() int {
	if g.IsHomogeneous {
		return g.LocalSize - 1
	}
	return 0
}

// IsRoot reports whether this worker is the Root of its node.
func (g GlobalState) IsRoot() bool {
	return g.LocalRank == g.Root()
}
