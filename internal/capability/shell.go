package capability

import (
	"context"
	"io"
	"net"
	"strings"

	ncerr "gotelnet/internal/errors"
	"gotelnet/internal/metrics"
	"gotelnet/internal/session"
	sh "gotelnet/internal/shell"
	"gotelnet/telnet"
	"gotelnet/util"
)

// Shell runs the server side of one Telnet session: it offers to
// drive echo and suppress go-ahead, prints the banner, then loops
// reading the wire: negotiation commands feed the session's
// negotiator, data bytes feed its line assembler, and every completed
// line goes to the command dispatcher.
//
// The lifetime follows connect → negotiate → interactive → closing:
// negotiation replies are handled opportunistically for the whole
// session (Telnet interleaves them with data at any time), and any
// failed write is treated exactly like a failed read, so the session
// closes, it is never retried.
type Shell struct {
	Dispatcher *sh.Dispatcher
	Metrics    *metrics.Collector
	Banner     string
	Prompt     string
}

// Handle serves the session until the peer disconnects, a builtin asks
// to terminate, or the connection is closed under it by shutdown.  The
// socket is closed on every exit path, so a terminating builtin needs
// no special send-then-close choreography.
func (s *Shell) Handle(ctx context.Context, sess *session.Session) error {
	defer sess.Close()

	offers := append(
		sess.Negotiator.Offer(telnet.WILL, telnet.OptEcho),
		sess.Negotiator.Offer(telnet.WILL, telnet.OptSuppressGoAhead)...)
	if _, err := sess.Write(offers); err != nil {
		return ncerr.Wrap("write", sess.RemoteAddr(), err)
	}

	if s.Banner != "" {
		if err := s.writeText(sess, s.Banner+"\n"); err != nil {
			return ncerr.Wrap("write", sess.RemoteAddr(), err)
		}
	}
	if err := s.writeText(sess, s.Prompt); err != nil {
		return ncerr.Wrap("write", sess.RemoteAddr(), err)
	}

	bufp := util.GetBuf()
	defer util.PutBuf(bufp)

	parser := &telnet.Parser{}
	for {
		n, err := sess.Conn.Read(*bufp)
		if n > 0 {
			sess.AddBytesIn(int64(n))
			s.Metrics.BytesReceived(int64(n))

			done, perr := s.process(ctx, sess, parser, (*bufp)[:n])
			if perr != nil {
				return ncerr.Wrap("write", sess.RemoteAddr(), perr)
			}
			if done {
				return nil
			}
		}
		if err != nil {
			if ncerr.Is(err, io.EOF) || ncerr.Is(err, net.ErrClosed) {
				return nil // peer left, or shutdown closed the socket
			}
			return ncerr.Wrap("read", sess.RemoteAddr(), err)
		}
	}
}

// process runs one read chunk through the protocol pipeline.  It
// reports done=true when a builtin terminated the session; any error
// is a failed write.
func (s *Shell) process(ctx context.Context, sess *session.Session, parser *telnet.Parser, chunk []byte) (done bool, err error) {
	for _, ev := range parser.Feed(chunk) {
		switch ev.Kind {
		case telnet.EventNegotiation:
			s.Metrics.NegotiationHandled()
			r := sess.Negotiator.React(ev.Verb, ev.Option)
			if r.Refused {
				s.Metrics.OptionRefused()
			}
			sess.Logger.Verbose("session %d: %s %s -> %s",
				sess.ID, telnet.VerbName(ev.Verb), telnet.OptionName(ev.Option), r.State)
			if r.Reply != nil {
				if _, err := sess.Write(r.Reply); err != nil {
					return false, err
				}
			}

		case telnet.EventControl:
			sess.Logger.Debug("session %d: ignoring %s", sess.ID, telnet.VerbName(ev.Command))

		case telnet.EventData:
			for _, b := range ev.Data {
				lev := sess.Assembler.Feed(b, sess.Negotiator.EchoEnabled())
				if lev.Echo != nil {
					if _, err := sess.Write(lev.Echo); err != nil {
						return false, err
					}
				}
				if !lev.Ready {
					continue
				}
				if lev.Line == "" {
					// Nothing to dispatch, but keep the terminal usable.
					if err := s.writeText(sess, s.Prompt); err != nil {
						return false, err
					}
					continue
				}

				sess.CountLine()
				s.Metrics.LineDispatched()
				sess.Logger.Debug("session %d: dispatch %q", sess.ID, lev.Line)

				res := s.Dispatcher.Dispatch(ctx, sess, lev.Line)
				if res.Response != "" {
					if err := s.writeText(sess, res.Response+"\n"); err != nil {
						return false, err
					}
				}
				if res.Terminate {
					return true, nil
				}
				if err := s.writeText(sess, s.Prompt); err != nil {
					return false, err
				}
			}
		}
	}
	return false, nil
}

// writeText sends human text: LF becomes CRLF for the peer's terminal
// and stray 0xFF bytes are escaped so they cannot read as commands.
func (s *Shell) writeText(sess *session.Session, text string) error {
	data := telnet.EscapeIAC([]byte(strings.ReplaceAll(text, "\n", "\r\n")))
	_, err := sess.Write(data)
	return err
}
