package bsstream

import (
	"io"

	"github.com/binarydelta/bsdiff/pkg/bserr"
)

// SubStream is a read-only window [start, end) over a read-mode base
// Stream. It reseeks the base stream to its own logical cursor before every
// Read, so several SubStreams sharing one base can be read in any
// interleaved order; none of them disturbs the others' position. The base
// is not owned by the SubStream and must outlive it.
type SubStream struct {
	base       Reader
	start, end int64
	current    int64
}

// OpenSubStream windows base to [start, end). base must be in ModeRead, and
// the region must lie within base's current extent. An empty window
// (start == end) is valid and reads as an immediate end of stream.
func OpenSubStream(base Reader, start, end int64) (*SubStream, error) {
	if base.Mode() != ModeRead {
		return nil, bserr.New(bserr.InvalidArg, "substream: base stream must be read-mode")
	}
	pos, err := base.Tell()
	if err != nil {
		return nil, err
	}
	size, err := base.Seek(0, SeekEnd)
	if err != nil {
		return nil, err
	}
	if _, err := base.Seek(pos, SeekSet); err != nil {
		return nil, err
	}
	if start < 0 || end < start || end > size {
		return nil, bserr.Newf(bserr.InvalidArg, "substream: region [%d,%d) out of base range [0,%d)", start, end, size)
	}
	return &SubStream{base: base, start: start, end: end, current: start}, nil
}

func (s *SubStream) Mode() Mode { return ModeRead }

func (s *SubStream) Close() error { return nil }

// Seek supports SeekSet only.
func (s *SubStream) Seek(offset int64, whence int) (int64, error) {
	if whence != SeekSet {
		return 0, bserr.New(bserr.InvalidArg, "substream: only SeekSet is supported")
	}
	if offset < s.start || offset > s.end {
		return 0, bserr.Newf(bserr.InvalidArg, "substream: seek %d out of window [%d,%d]", offset, s.start, s.end)
	}
	s.current = offset
	return offset, nil
}

func (s *SubStream) Tell() (int64, error) {
	return s.current, nil
}

func (s *SubStream) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	if s.current == s.end {
		return 0, io.EOF
	}

	want := int64(len(p))
	if s.current+want > s.end {
		want = s.end - s.current
	}

	if _, err := s.base.Seek(s.current, SeekSet); err != nil {
		return 0, err
	}
	n, err := s.base.Read(p[:want])
	s.current += int64(n)
	return n, err
}
