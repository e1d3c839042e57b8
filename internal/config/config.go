// Package config holds process-wide toggles seeded from the environment,
// in the teacher's style (srcs/go/kungfu/config): a handful of package-level
// vars, parsed once in init(). The engine's parameter manager and tracing
// sink consult these as defaults; callers embedding the engine can still
// supply their own transport.ParameterManager / timeline.Sink.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	ShowDebugLogEnvKey          = "GPUREDUCE_SHOW_DEBUG_LOG"
	EnableTracingEnvKey         = "GPUREDUCE_ENABLE_TRACING"
	HierarchicalAllreduceEnvKey = "GPUREDUCE_HIERARCHICAL_ALLREDUCE"
	FinalizerDrainTimeoutEnvKey = "GPUREDUCE_FINALIZER_DRAIN_TIMEOUT"
	FinalizerWorkerCountEnvKey  = "GPUREDUCE_FINALIZER_WORKERS"
)

var (
	ShowDebugLog          = false
	EnableTracing         = false
	HierarchicalAllreduce = false
	FinalizerDrainTimeout = 30 * time.Second
	FinalizerWorkerCount  = 4
)

func init() {
	if v, ok := os.LookupEnv(ShowDebugLogEnvKey); ok {
		ShowDebugLog = isTrue(v)
	}
	if v, ok := os.LookupEnv(EnableTracingEnvKey); ok {
		EnableTracing = isTrue(v)
	}
	if v, ok := os.LookupEnv(HierarchicalAllreduceEnvKey); ok {
		HierarchicalAllreduce = isTrue(v)
	}
	if v, ok := os.LookupEnv(FinalizerDrainTimeoutEnvKey); ok {
		if d, err := time.ParseDuration(v); err == nil {
			FinalizerDrainTimeout = d
		}
	}
	if v, ok := os.LookupEnv(FinalizerWorkerCountEnvKey); ok {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			FinalizerWorkerCount = n
		}
	}
}

func isTrue(v string) bool {
	v = strings.ToLower(strings.TrimSpace(v))
	return v == "true" || v == "1" || v == "yes"
}
