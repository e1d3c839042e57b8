package config

import "github.com/lsds/gpureduce/transport"

// paramManager adapts this package's env-seeded HierarchicalAllreduce
// toggle to transport.ParameterManager, matching spec section 6's
// read-only "parameter manager" contract.
type paramManager struct{}

func (paramManager) HierarchicalAllreduce() bool { return HierarchicalAllreduce }

// DefaultParameterManager is the process-wide transport.ParameterManager
// backed by this package's environment-seeded toggle. Embedders that want
// a runtime-mutable toggle instead of an env var should supply their own
// transport.ParameterManager to engine.New.
var DefaultParameterManager transport.ParameterManager = paramManager{}
