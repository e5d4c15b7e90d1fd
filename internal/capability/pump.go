package capability

import (
	"errors"
	"io"
	"sync"

	"gotelnet/util"
)

// errInputDetached tells the keyboard worker its session is over and
// the next session may take the pump.
var errInputDetached = errors.New("input detached")

// stdinPump reads a keyboard once and feeds it to one session at a
// time.  Sessions come and go under a reconnect budget while the
// keyboard stays; without the indirection, a worker orphaned by a dead
// session would still sit in Read and swallow the first input meant
// for its successor.
type stdinPump struct {
	ch  chan []byte
	err error // terminal read error, set before ch closes

	mu   sync.Mutex
	held []byte // handed back by a dying consumer, served before new input
}

func newStdinPump(src io.Reader) *stdinPump {
	p := &stdinPump{ch: make(chan []byte)}
	go func() {
		defer close(p.ch)
		bufp := util.GetBuf()
		defer util.PutBuf(bufp)
		for {
			n, err := src.Read(*bufp)
			if n > 0 {
				p.ch <- append([]byte(nil), (*bufp)[:n]...)
			}
			if err != nil {
				p.err = err
				return
			}
		}
	}()
	return p
}

// next blocks until input is available or the source is finished, or
// returns errInputDetached once stop closes.
func (p *stdinPump) next(stop <-chan struct{}) ([]byte, error) {
	p.mu.Lock()
	held := p.held
	p.held = nil
	p.mu.Unlock()
	if held != nil {
		return held, nil
	}

	select {
	case chunk, ok := <-p.ch:
		if !ok {
			return nil, p.err
		}
		return chunk, nil
	case <-stop:
		return nil, errInputDetached
	}
}

// putBack returns a chunk the consumer took but could not send.  The
// next consumer sees it before anything newly typed.
func (p *stdinPump) putBack(chunk []byte) {
	if len(chunk) == 0 {
		return
	}
	p.mu.Lock()
	p.held = append(chunk, p.held...)
	p.mu.Unlock()
}
