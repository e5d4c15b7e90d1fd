package util

import "testing"

func TestBufPool_RoundTrip(t *testing.T) {
	buf := GetBuf()
	if buf == nil {
		t.Fatal("GetBuf returned nil")
	}
	if len(*buf) != DefaultBufSize {
		t.Errorf("buffer size = %d, want %d", len(*buf), DefaultBufSize)
	}

	// Dirty the buffer and recycle it.
	(*buf)[0] = 0xFF
	PutBuf(buf)

	buf2 := GetBuf()
	if buf2 == nil {
		t.Fatal("second GetBuf returned nil")
	}
	if len(*buf2) != DefaultBufSize {
		t.Errorf("recycled buffer size = %d, want %d", len(*buf2), DefaultBufSize)
	}
	PutBuf(buf2)
}

func TestPutBuf_Nil(t *testing.T) {
	// Must not panic.
	PutBuf(nil)
}
