// Package bsstream provides the uniform byte-oriented stream abstraction the
// engine is built on: a seekable source/sink that can be backed by memory, an
// OS file, or a read-only window over another stream.
//
// A stream is opened in read mode xor write mode. Calling the wrong side is
// a caller bug; it is reported as bserr.InvalidArg rather than left
// undefined.
package bsstream

import (
	"io"

	"github.com/binarydelta/bsdiff/pkg/bserr"
)

// Mode is the exclusive read/write mode a Stream is opened in.
type Mode int

const (
	ModeRead Mode = iota
	ModeWrite
)

func (m Mode) String() string {
	if m == ModeWrite {
		return "write"
	}
	return "read"
}

// Whence values, aliasing io.Seeker's.
const (
	SeekSet = io.SeekStart
	SeekCur = io.SeekCurrent
	SeekEnd = io.SeekEnd
)

// Stream is the common surface every concrete stream type implements.
type Stream interface {
	// Seek repositions the cursor. Memory streams return bserr.InvalidArg
	// if the result would be negative or beyond size; a SubStream accepts
	// only SeekSet within its window. FileStream passes a failed OS seek,
	// including one to a negative offset, through as bserr.FileError.
	Seek(offset int64, whence int) (int64, error)
	Tell() (int64, error)
	Mode() Mode
	Close() error
}

// Reader is a Stream opened in ModeRead.
type Reader interface {
	Stream
	// Read behaves like io.Reader but additionally distinguishes a short
	// read at the true end of the stream (io.EOF) from a mid-stream short
	// read (io.ErrUnexpectedEOF or a wrapped I/O error). A request of
	// n=0 always succeeds with (0, nil).
	Read(p []byte) (int, error)
}

// Writer is a Stream opened in ModeWrite. Write never performs a short
// write: it either accepts all of p or returns an error.
type Writer interface {
	Stream
	Write(p []byte) (int, error)
	Flush() error
}

// BufferGetter is implemented by streams that can expose their backing bytes
// directly (memory streams only).
type BufferGetter interface {
	Buffer() []byte
}

// errWrongMode reports a read operation attempted on a write-mode stream or
// vice versa.
func errWrongMode(want Mode) error {
	return bserr.Newf(bserr.InvalidArg, "stream: operation requires %s mode", want)
}
