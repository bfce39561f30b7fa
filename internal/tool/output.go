package tool

import "bytes"

// cappedBuffer collects stream output up to a fixed byte budget. Writes past
// the budget are dropped and the buffer is flagged truncated; a chunk that
// straddles the boundary is cut exactly at it, keeping the leading bytes.
// Write never fails so the producing process is never back-pressured into an
// error by our bookkeeping.
type cappedBuffer struct {
	max       int
	buf       bytes.Buffer
	truncated bool
}

func newCappedBuffer(max int) *cappedBuffer {
	return &cappedBuffer{max: max}
}

func (b *cappedBuffer) Write(p []byte) (int, error) {
	remaining := b.max - b.buf.Len()
	switch {
	case remaining <= 0:
		if len(p) > 0 {
			b.truncated = true
		}
	case len(p) > remaining:
		b.buf.Write(p[:remaining])
		b.truncated = true
	default:
		b.buf.Write(p)
	}
	return len(p), nil
}

func (b *cappedBuffer) String() string {
	return b.buf.String()
}

func (b *cappedBuffer) Truncated() bool {
	return b.truncated
}
