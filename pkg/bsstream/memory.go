package bsstream

import (
	"io"

	"github.com/xaionaro-go/bytesextra"

	"github.com/binarydelta/bsdiff/pkg/bserr"
)

// MemoryStream is a Stream backed entirely by process memory. Read mode
// wraps a fixed, already-populated byte slice; write mode accumulates into a
// buffer whose capacity grows geometrically (4096 floor, then *1.5) so that
// repeated appends amortize.
type MemoryStream struct {
	mode Mode

	// read mode
	rs   io.ReadSeeker
	rbuf []byte
	end  int64

	// write mode
	buf []byte // len(buf) == size written so far
	pos int64
	cap int64 // capacity, distinct from len(buf); grown geometrically
}

// NewMemoryReader opens a read-only MemoryStream over buf. buf is not
// copied; the caller must not mutate it while the stream is open.
func NewMemoryReader(buf []byte) *MemoryStream {
	return &MemoryStream{
		mode: ModeRead,
		rs:   bytesextra.NewReadWriteSeeker(buf),
		rbuf: buf,
		end:  int64(len(buf)),
	}
}

// NewMemoryWriter opens a write-only MemoryStream, optionally reserving an
// initial capacity (0 is valid: the first Write triggers the 4096 floor).
func NewMemoryWriter(initialCapacity int) *MemoryStream {
	var buf []byte
	if initialCapacity > 0 {
		buf = make([]byte, 0, initialCapacity)
	}
	return &MemoryStream{
		mode: ModeWrite,
		buf:  buf,
		cap:  int64(cap(buf)),
	}
}

func (m *MemoryStream) Mode() Mode { return m.mode }

func (m *MemoryStream) Close() error { return nil }

func (m *MemoryStream) Seek(offset int64, whence int) (int64, error) {
	var size int64
	if m.mode == ModeRead {
		size = m.end
	} else {
		size = int64(len(m.buf))
	}

	var newpos int64
	switch whence {
	case SeekSet:
		newpos = offset
	case SeekCur:
		cur, err := m.Tell()
		if err != nil {
			return 0, err
		}
		newpos = cur + offset
	case SeekEnd:
		newpos = size + offset
	default:
		return 0, bserr.New(bserr.InvalidArg, "memstream: invalid whence")
	}
	if newpos < 0 || newpos > size {
		return 0, bserr.Newf(bserr.InvalidArg, "memstream: seek %d out of range [0,%d]", newpos, size)
	}

	if m.mode == ModeRead {
		n, err := m.rs.Seek(newpos, io.SeekStart)
		if err != nil {
			return 0, bserr.Wrap(bserr.InvalidArg, "memstream: seek", err)
		}
		return n, nil
	}
	m.pos = newpos
	return newpos, nil
}

func (m *MemoryStream) Tell() (int64, error) {
	if m.mode == ModeRead {
		return m.rs.Seek(0, io.SeekCurrent)
	}
	return m.pos, nil
}

func (m *MemoryStream) Read(p []byte) (int, error) {
	if m.mode != ModeRead {
		return 0, errWrongMode(ModeRead)
	}
	if len(p) == 0 {
		return 0, nil
	}
	n, err := m.rs.Read(p)
	if err == io.EOF {
		return n, io.EOF
	}
	return n, err
}

// calcNewCapacity grows an empty buffer to the 4096 floor, then by 3/2 per
// step until required fits.
func calcNewCapacity(current, required int64) int64 {
	c := current
	for c < required {
		if c == 0 {
			c = 4096
		} else {
			c = (c*3 + 1) / 2
		}
	}
	return c
}

func (m *MemoryStream) Write(p []byte) (int, error) {
	if m.mode != ModeWrite {
		return 0, errWrongMode(ModeWrite)
	}
	if len(p) == 0 {
		return 0, nil
	}

	needed := m.pos + int64(len(p))
	if needed > m.cap {
		newcap := calcNewCapacity(m.cap, needed)
		grown := make([]byte, len(m.buf), newcap)
		copy(grown, m.buf)
		m.buf = grown
		m.cap = newcap
	}

	// Extend the logical slice to cover the write. Seek cannot move past
	// the current end, so no gap ever needs zero-filling.
	if int64(len(m.buf)) < m.pos+int64(len(p)) {
		m.buf = m.buf[:m.pos+int64(len(p))]
	}
	copy(m.buf[m.pos:], p)
	m.pos += int64(len(p))

	return len(p), nil
}

func (m *MemoryStream) Flush() error {
	if m.mode != ModeWrite {
		return errWrongMode(ModeWrite)
	}
	return nil
}

// Buffer returns the bytes written so far (write mode) or the full backing
// slice (read mode). The returned slice aliases internal storage and must
// not be retained past the next Write.
func (m *MemoryStream) Buffer() []byte {
	if m.mode == ModeWrite {
		return m.buf
	}
	return m.rbuf
}
