package telnet

import (
	"context"
	"io"
)

const lookaheadChunkSize = 4096

type readResult struct {
	n   int
	err error
}

// LookaheadReader is a buffered byte source that can inspect upcoming bytes without
// consuming them. Reads that need more data than is buffered block on the underlying
// reader, but give up as soon as the reader's context is cancelled.
//
// LookaheadReader is meant to be driven by a single goroutine.
type LookaheadReader struct {
	ctx    context.Context
	source io.Reader
	buffer *queue[byte]

	chunk   []byte
	pending chan readResult
	reading bool
	err     error
}

// NewLookaheadReader wraps source. ctx bounds every blocking fill: once it is cancelled,
// reads that would block return the context's error.
func NewLookaheadReader(ctx context.Context, source io.Reader) *LookaheadReader {
	return &LookaheadReader{
		ctx:     ctx,
		source:  source,
		buffer:  newQueue[byte](lookaheadChunkSize),
		chunk:   make([]byte, lookaheadChunkSize),
		pending: make(chan readResult, 1),
	}
}

// fill blocks until at least one more byte has been buffered, the source fails, or
// the context is cancelled. A read that is still in flight when the context is
// cancelled is collected by the next fill.
func (r *LookaheadReader) fill() error {
	if r.err != nil {
		return r.err
	}

	if !r.reading {
		r.reading = true
		go func() {
			n, err := r.source.Read(r.chunk)
			r.pending <- readResult{n: n, err: err}
		}()
	}

	select {
	case result := <-r.pending:
		r.reading = false
		r.buffer.Queue(r.chunk[:result.n]...)

		if result.err != nil {
			r.err = result.err
			if result.n == 0 {
				return r.err
			}
		}

		return nil
	case <-r.ctx.Done():
		return r.ctx.Err()
	}
}

// Peek returns the next n bytes without consuming them, blocking until they are
// available. If the source ends first, the bytes that are buffered are returned along
// with the error. The returned slice is only valid until the next read.
func (r *LookaheadReader) Peek(n int) ([]byte, error) {
	for r.buffer.Len() < n {
		err := r.fill()
		if err != nil {
			return r.buffer.Buffer(), err
		}
	}

	return r.buffer.Buffer()[:n], nil
}

// PeekByte returns the next byte without consuming it
func (r *LookaheadReader) PeekByte() (byte, error) {
	b, err := r.Peek(1)
	if err != nil {
		return 0, err
	}

	return b[0], nil
}

// ReadByte consumes and returns the next byte
func (r *LookaheadReader) ReadByte() (byte, error) {
	b, err := r.PeekByte()
	if err != nil {
		return 0, err
	}

	r.buffer.DropElements(1)
	return b, nil
}

// Read consumes whatever is currently buffered, up to len(p). It only blocks when
// nothing is buffered.
func (r *LookaheadReader) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}

	if r.buffer.Len() == 0 {
		err := r.fill()
		if err != nil {
			return 0, err
		}
	}

	n := copy(p, r.buffer.Buffer())
	r.buffer.DropElements(n)
	return n, nil
}

// Discard consumes n buffered bytes. It never blocks; it returns how many bytes were
// actually dropped.
func (r *LookaheadReader) Discard(n int) int {
	if n > r.buffer.Len() {
		n = r.buffer.Len()
	}

	r.buffer.DropElements(n)
	return n
}

// Buffered returns the number of bytes that can be read without blocking
func (r *LookaheadReader) Buffered() int {
	return r.buffer.Len()
}

// Close closes the underlying source if it can be closed
func (r *LookaheadReader) Close() error {
	closer, ok := r.source.(io.Closer)
	if !ok {
		return nil
	}

	return closer.Close()
}
