package log

import "github.com/lsds/gpureduce/timeline"

// TimelineSink adapts l into a timeline.Sink: every span Begin/End is
// logged at Debug level rather than recorded onto a real tracing backend.
// Pass it to pipeline.New in place of timeline.Noop to get stage-level
// visibility into a running job without wiring an external tracer: the
// Initialize "queue" event, each DoAllreduce collective, the cross-node
// host copies, and the finalizer's per-entry row close. MemcpyIn and
// MemcpyOut open no spans.
func (l *Logger) TimelineSink() timeline.Sink { return logSink{l} }

// DefaultTimelineSink is std's TimelineSink, for callers that don't hold
// their own *Logger.
var DefaultTimelineSink = std.TimelineSink()

type logSink struct{ l *Logger }

func (s logSink) Begin(row, name string) timeline.Span {
	if name == "" {
		name = "done"
	}
	ctx := s.l.With("row", row, "stage", name)
	ctx.Debugf("span begin")
	return logSpan{ctx: ctx}
}

type logSpan struct {
	ctx *Context
}

func (s logSpan) End() {
	s.ctx.Debugf("span end")
}
