package util

import "sync"

// bufPool recycles relay buffers so busy sessions do not hammer the
// garbage collector.
var bufPool = sync.Pool{
	New: func() interface{} {
		b := make([]byte, DefaultBufSize)
		return &b
	},
}

// GetBuf borrows a DefaultBufSize buffer from the pool.  Pair every
// call with [PutBuf].
func GetBuf() *[]byte { return bufPool.Get().(*[]byte) }

// PutBuf returns buf to the pool.  A nil buf is a no-op.
func PutBuf(buf *[]byte) {
	if buf != nil {
		bufPool.Put(buf)
	}
}
