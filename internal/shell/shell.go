// Package shell implements the command collaborator behind the server's
// interactive prompt: a small dispatcher that resolves a completed input
// line to a builtin, runs it, and hands back either response text or a
// terminate verdict.
//
// The dispatcher performs no I/O of its own.  Responses come back as
// plain text (LF-separated when multi-line) and the connection handler
// owns writing them to the peer.
package shell

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gotelnet/internal/metrics"
	"gotelnet/internal/session"
)

// Result is the dispatcher's verdict on one input line.
type Result struct {
	Response  string // text to write back, "" for none
	Terminate bool   // the session should close after the response
}

// Dispatcher resolves input lines against the builtin command table.
// Safe for concurrent use by all connection handlers: its fields are
// set once at construction and the builtins only touch thread-safe
// collaborators (registry, metrics).
type Dispatcher struct {
	registry  *session.Registry
	metrics   *metrics.Collector
	allowExec bool
	startedAt time.Time
}

// NewDispatcher returns a dispatcher over the given registry and
// metrics.  allowExec gates the sys builtin.
func NewDispatcher(reg *session.Registry, m *metrics.Collector, allowExec bool) *Dispatcher {
	return &Dispatcher{
		registry:  reg,
		metrics:   m,
		allowExec: allowExec,
		startedAt: time.Now(),
	}
}

// Dispatch runs the builtin named by the first word of line.  The
// command word is case-insensitive; the rest of the line is passed as
// arguments.  Unknown commands produce a pointer to help rather than
// an error.
func (d *Dispatcher) Dispatch(ctx context.Context, sess *session.Session, line string) Result {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return Result{}
	}

	name := strings.ToLower(fields[0])
	args := fields[1:]

	for _, b := range builtins {
		if b.name == name || b.alias == name {
			return b.run(ctx, d, sess, args)
		}
	}
	return Result{Response: fmt.Sprintf("unknown command %q. type help for the list.", name)}
}
