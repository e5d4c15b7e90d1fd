package capability

import (
	"bytes"
	"errors"
	"io"
	"testing"
)

// TestStdinPump_PutBackIsServedFirst verifies a chunk handed back by a
// dying consumer is delivered again before anything else, including
// the source's EOF.
func TestStdinPump_PutBackIsServedFirst(t *testing.T) {
	p := newStdinPump(bytes.NewBufferString("first"))
	stop := make(chan struct{})

	chunk, err := p.next(stop)
	if err != nil || !bytes.Equal(chunk, []byte("first")) {
		t.Fatalf("next() = %q, %v", chunk, err)
	}

	p.putBack(chunk)
	chunk, err = p.next(stop)
	if err != nil || !bytes.Equal(chunk, []byte("first")) {
		t.Fatalf("next() after putBack = %q, %v", chunk, err)
	}

	if _, err := p.next(stop); !errors.Is(err, io.EOF) {
		t.Errorf("final next() error = %v, want io.EOF", err)
	}
}

// TestStdinPump_DetachOnStop verifies a consumer whose session ended
// leaves without taking input away from its successor.
func TestStdinPump_DetachOnStop(t *testing.T) {
	gate := make(chan struct{})
	t.Cleanup(func() { close(gate) })
	p := newStdinPump(&gatedReader{gate: gate})

	stopped := make(chan struct{})
	close(stopped)
	if _, err := p.next(stopped); !errors.Is(err, errInputDetached) {
		t.Fatalf("next(closed stop) error = %v, want errInputDetached", err)
	}
}
