// Package capability defines what happens over an established
// connection.  Serving the command shell, running the client end of a
// session, and relaying raw bytes are each a Capability.  They
// operate on a Session rather than a raw net.Conn, which keeps them
// testable and ignorant of how the connection came to be.
package capability

import (
	"context"

	"gotelnet/internal/session"
)

// Capability handles one connection according to one behaviour.
type Capability interface {
	// Handle runs the capability against the session, blocking until
	// the connection is done or the context is cancelled.
	Handle(ctx context.Context, sess *session.Session) error
}
