package util

import (
	"context"
	"errors"
	"io"
	"net"
)

// DefaultBufSize is the buffer size for relay copies (32 KiB).
const DefaultBufSize = 32 * 1024

// halfCloser is satisfied by connections that can signal EOF to the
// remote while their read side stays open.  *net.TCPConn qualifies,
// and so do the stream conns handed out by an SSH tunnel.
type halfCloser interface {
	CloseWrite() error
}

// BidirectionalCopy relays bytes between conn and a local reader/writer
// pair until both directions are finished or the context is cancelled.
//
// When the local reader is exhausted the write side of conn is
// half-closed, so the remote sees EOF but may keep sending; the relay
// keeps draining until the remote closes too.
func BidirectionalCopy(ctx context.Context, conn net.Conn, in io.Reader, out io.Writer) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	recv := make(chan error, 1)
	send := make(chan error, 1)

	go func() {
		err := copyPooled(out, conn)
		recv <- err
		// The remote is done sending; nothing left to relay.
		cancel()
	}()

	go func() {
		err := copyPooled(conn, in)
		if hc, ok := conn.(halfCloser); ok {
			hc.CloseWrite() //nolint:errcheck
		}
		send <- err
		// Local EOF alone must not tear the session down while the
		// remote is still talking.
		if err != nil {
			cancel()
		}
	}()

	<-ctx.Done()
	conn.Close() // unblock the conn side of both copies

	if err := <-recv; !isExpectedClose(err) {
		return err
	}
	select {
	case err := <-send:
		if !isExpectedClose(err) {
			return err
		}
	default:
		// The local reader may be stuck in a read nothing will ever
		// satisfy, an idle stdin for instance.  Its goroutine delivers
		// into the buffered channel whenever it wakes; don't hold the
		// session open waiting for it.
	}
	return nil
}

// copyPooled is io.Copy with a buffer borrowed from the package pool.
func copyPooled(dst io.Writer, src io.Reader) error {
	buf := GetBuf()
	defer PutBuf(buf)
	_, err := io.CopyBuffer(dst, src, *buf)
	return err
}

// isExpectedClose reports whether err is the ordinary debris of a
// connection shutting down rather than a real failure.
func isExpectedClose(err error) bool {
	return err == nil ||
		errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrClosedPipe) ||
		errors.Is(err, net.ErrClosed)
}
