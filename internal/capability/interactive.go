package capability

import (
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"sync"

	"go.uber.org/atomic"
	"golang.org/x/term"

	ncerr "gotelnet/internal/errors"
	"gotelnet/internal/session"
	"gotelnet/telnet"
	"gotelnet/util"
)

// Interactive runs the client side of a Telnet session with two
// workers: one reads the keyboard and writes to the socket, the other
// reads the socket, answers negotiation, and renders data to the
// terminal.  When stdin is a real terminal it is switched to raw mode
// so single keystrokes reach the server, and restored on the way out.
//
// Echo starts local (we print what the user types) and moves to the
// server if it accepts our echo request, matching what a terminal user
// expects from a Telnet login session.
//
// One Interactive value serves every session of a reconnecting client,
// so the keyboard is read through a pump that outlives any single
// session: input a dying session could not transmit is carried over to
// the session that replaces it.
type Interactive struct {
	pumpOnce sync.Once
	pump     *stdinPump
}

// Handle drives the session until the server closes the connection,
// an I/O error occurs, or the context is cancelled.  It does not
// return before the keyboard worker has detached from the pump, so a
// follow-up session never competes with this one for input.
func (i *Interactive) Handle(ctx context.Context, sess *session.Session) error {
	if f, ok := sess.Stdin.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		oldState, err := term.MakeRaw(int(f.Fd()))
		if err != nil {
			return fmt.Errorf("raw mode: %w", err)
		}
		defer term.Restore(int(f.Fd()), oldState) //nolint:errcheck
	}

	// The pump adopts the first session's stdin and keeps reading it
	// for as long as this Interactive lives.
	i.pumpOnce.Do(func() { i.pump = newStdinPump(sess.Stdin) })

	// Ask the server to drive echo and suppress go-ahead.
	offers := append(
		sess.Negotiator.Offer(telnet.DO, telnet.OptEcho),
		sess.Negotiator.Offer(telnet.DO, telnet.OptSuppressGoAhead)...)
	if _, err := sess.Write(offers); err != nil {
		return ncerr.Wrap("write", sess.RemoteAddr(), err)
	}

	// Both workers touch the terminal (data from the server, local
	// echo of keystrokes), so writes are serialised.  localEcho is the
	// only negotiation state the keyboard worker needs; it is flipped
	// by the socket worker as echo negotiation settles.
	out := &syncWriter{w: sess.Stdout}
	localEcho := atomic.NewBool(true)

	netDone := make(chan error, 1)
	inDone := make(chan error, 1)
	stop := make(chan struct{})

	go func() { netDone <- i.readLoop(sess, out, localEcho) }()
	go func() { inDone <- i.writeLoop(sess, out, localEcho, stop) }()

	// join releases the keyboard worker and waits it out.  The worker
	// only ever blocks on the pump or the socket, and closing the
	// session unblocks the latter.
	join := func() {
		sess.Close()
		close(stop)
		if inDone != nil {
			<-inDone
		}
	}

	for {
		select {
		case <-ctx.Done():
			join()
			return nil

		case err := <-inDone:
			inDone = nil
			if err != nil {
				join()
				return err
			}
			// Input is finished (piped stdin hit EOF).  Keep draining
			// whatever the server still has to say.

		case err := <-netDone:
			join()
			if err == nil || ncerr.Is(err, io.EOF) || ncerr.Is(err, net.ErrClosed) {
				sess.Logger.Info("connection closed by %s", sess.RemoteAddr())
				return nil
			}
			return err
		}
	}
}

// readLoop consumes the socket: data goes to the terminal, negotiation
// commands are answered, everything else is ignored.
func (i *Interactive) readLoop(sess *session.Session, out io.Writer, localEcho *atomic.Bool) error {
	bufp := util.GetBuf()
	defer util.PutBuf(bufp)

	parser := &telnet.Parser{}
	for {
		n, err := sess.Conn.Read(*bufp)
		if n > 0 {
			sess.AddBytesIn(int64(n))
			for _, ev := range parser.Feed((*bufp)[:n]) {
				switch ev.Kind {
				case telnet.EventData:
					if _, werr := out.Write(ev.Data); werr != nil {
						return werr
					}

				case telnet.EventNegotiation:
					r := sess.Negotiator.React(ev.Verb, ev.Option)
					sess.Logger.Verbose("%s %s -> %s",
						telnet.VerbName(ev.Verb), telnet.OptionName(ev.Option), r.State)
					if r.Reply != nil {
						if _, werr := sess.Write(r.Reply); werr != nil {
							return werr
						}
					}
					localEcho.Store(!sess.Negotiator.EchoEnabled())

				case telnet.EventControl:
					sess.Logger.Debug("ignoring %s", telnet.VerbName(ev.Command))
				}
			}
		}
		if err != nil {
			return err
		}
	}
}

// writeLoop pulls keyboard input from the pump and forwards it to the
// server, escaping any literal 0xFF bytes.  While the server has not
// taken over echo, sent keystrokes are also reflected to the terminal.
// A chunk the session refused outright goes back to the pump for the
// session that follows.
func (i *Interactive) writeLoop(sess *session.Session, out io.Writer, localEcho *atomic.Bool, stop <-chan struct{}) error {
	for {
		chunk, err := i.pump.next(stop)
		if err != nil {
			if ncerr.Is(err, errInputDetached) {
				return nil
			}
			if ncerr.Is(err, io.EOF) {
				// Half-close so the server sees EOF but can still
				// finish writing to us.  TCP sockets and SSH channels
				// both support this.
				if hc, ok := sess.Conn.(interface{ CloseWrite() error }); ok {
					hc.CloseWrite() //nolint:errcheck
				}
				return nil
			}
			return err
		}

		n, werr := sess.Write(telnet.EscapeIAC(chunk))
		if werr != nil {
			if n == 0 {
				i.pump.putBack(chunk)
			}
			return werr
		}
		if localEcho.Load() {
			out.Write(chunk) //nolint:errcheck // echo is best-effort
		}
	}
}

// syncWriter serialises terminal writes from the two client workers.
type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}
