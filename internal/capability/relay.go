package capability

import (
	"context"

	"gotelnet/internal/session"
	"gotelnet/util"
)

// Relay copies bytes verbatim between the connection and the
// session's stdin/stdout, with no protocol handling at all.  This is
// the --raw client mode, for peers that choke on negotiation and for
// seeing what is actually on the wire.
type Relay struct{}

func (r *Relay) Handle(ctx context.Context, sess *session.Session) error {
	sess.Logger.Verbose("raw relay, no telnet processing")
	return util.BidirectionalCopy(ctx, sess.Conn, sess.Stdin, sess.Stdout)
}
