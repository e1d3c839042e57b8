// Package log is the engine's leveled logger. Adapted from the teacher's
// srcs/go/log: a single mutex-guarded Logger with a package-level default
// instance and free functions (Debugf/Infof/...) forwarding to it, so the
// rest of the engine can log without threading a logger through every call.
//
// Unlike the teacher's logger, a line can carry structured context: With
// binds a fixed set of key/value pairs - device id, rank, job state, stage
// name, the identifiers spec section 4's event model revolves around - and
// returns a Context that appends them to every message logged through it,
// so call sites stop hand-building those fields into format strings.
package log

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/lsds/gpureduce/internal/config"
)

type Level int32

const (
	Debug Level = iota
	Info
	Warn
	Error
)

const (
	ShowTimestamp = 1 << iota
)

type Logger struct {
	mu    sync.Mutex
	w     io.Writer
	buf   []byte
	t0    time.Time
	level Level
	flags uint32
}

func New() *Logger {
	level := Info
	if config.ShowDebugLog {
		level = Debug
	}
	return &Logger{
		w:     os.Stdout,
		t0:    time.Now(),
		level: level,
	}
}

func fmtDuration(d time.Duration) string {
	n := int64(d / time.Second)
	ss := n % 60
	n /= 60
	mm := n % 60
	n /= 60
	hh := n % 24
	n /= 24
	ns := int64(d % time.Second)
	return fmt.Sprintf("%dd %02d:%02d:%02d %6.2fms", n, hh, mm, ss, float64(ns)/float64(time.Millisecond))
}

// emit writes one already-rendered message at prefix, unconditionally of
// level - callers that want level filtering go through logf.
func (l *Logger) emit(prefix, msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.buf = l.buf[:0]
	l.buf = append(l.buf, prefix...)
	if l.flags&ShowTimestamp != 0 {
		l.buf = append(l.buf, ' ', '[')
		l.buf = append(l.buf, fmtDuration(time.Since(l.t0))...)
		l.buf = append(l.buf, ']', ' ')
	} else {
		l.buf = append(l.buf, ' ')
	}
	l.buf = append(l.buf, msg...)
	if len(msg) == 0 || msg[len(msg)-1] != '\n' {
		l.buf = append(l.buf, '\n')
	}
	l.w.Write(l.buf)
}

func (l *Logger) logf(level Level, prefix, format string, v ...interface{}) {
	if level >= l.level {
		l.emit(prefix, fmt.Sprintf(format, v...))
	}
}

func (l *Logger) Debugf(format string, v ...interface{}) { l.logf(Debug, "[D]", format, v...) }
func (l *Logger) Infof(format string, v ...interface{})  { l.logf(Info, "[I]", format, v...) }
func (l *Logger) Warnf(format string, v ...interface{})  { l.logf(Warn, "[W]", format, v...) }
func (l *Logger) Errorf(format string, v ...interface{}) { l.logf(Error, "[E]", format, v...) }

// With returns a Context that tags every message logged through it with
// the given key/value pairs (kv alternates key, value). Engine code uses
// this at the boundary of a job or device operation, e.g.
// log.With("device", device, "job", job) once, then Debugf/Infof/... many
// times without repeating the identifiers.
func (l *Logger) With(kv ...interface{}) *Context {
	var b strings.Builder
	for i := 0; i+1 < len(kv); i += 2 {
		fmt.Fprintf(&b, " %v=%v", kv[i], kv[i+1])
	}
	return &Context{l: l, fields: b.String()}
}

// Context is a Logger bound to a fixed set of structured fields.
type Context struct {
	l      *Logger
	fields string
}

func (c *Context) logf(level Level, prefix, format string, v ...interface{}) {
	if level >= c.l.level {
		c.l.emit(prefix, fmt.Sprintf(format, v...)+c.fields)
	}
}

func (c *Context) Debugf(format string, v ...interface{}) { c.logf(Debug, "[D]", format, v...) }
func (c *Context) Infof(format string, v ...interface{})  { c.logf(Info, "[I]", format, v...) }
func (c *Context) Warnf(format string, v ...interface{})  { c.logf(Warn, "[W]", format, v...) }
func (c *Context) Errorf(format string, v ...interface{}) { c.logf(Error, "[E]", format, v...) }

func (l *Logger) SetOutput(w io.Writer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.w = w
}

func (l *Logger) SetFlags(fs ...uint32) {
	var flags uint32
	for _, f := range fs {
		flags |= f
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.flags = flags
}

var std = New()

var (
	Debugf    = std.Debugf
	Infof     = std.Infof
	Warnf     = std.Warnf
	Errorf    = std.Errorf
	With      = std.With
	SetFlags  = std.SetFlags
	SetOutput = std.SetOutput
)
