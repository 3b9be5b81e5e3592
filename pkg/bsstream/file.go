package bsstream

import (
	"io"
	"os"

	"github.com/binarydelta/bsdiff/pkg/bserr"
)

// FileStream is a Stream backed by an *os.File: one mode per open file
// handle, no buffering beyond what the OS provides.
type FileStream struct {
	f    *os.File
	mode Mode
}

// OpenFileStream opens filename for the given mode. Write mode truncates
// and creates the file (0644).
func OpenFileStream(filename string, mode Mode) (*FileStream, error) {
	var f *os.File
	var err error
	switch mode {
	case ModeRead:
		f, err = os.Open(filename)
	case ModeWrite:
		f, err = os.OpenFile(filename, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	default:
		return nil, bserr.New(bserr.InvalidArg, "filestream: invalid mode")
	}
	if err != nil {
		return nil, bserr.Wrap(bserr.FileError, "filestream: open "+filename, err)
	}
	return &FileStream{f: f, mode: mode}, nil
}

func (fs *FileStream) Mode() Mode { return fs.mode }

func (fs *FileStream) Close() error {
	if err := fs.f.Close(); err != nil {
		return bserr.Wrap(bserr.FileError, "filestream: close", err)
	}
	return nil
}

func (fs *FileStream) Seek(offset int64, whence int) (int64, error) {
	n, err := fs.f.Seek(offset, whence)
	if err != nil {
		return 0, bserr.Wrap(bserr.FileError, "filestream: seek", err)
	}
	return n, nil
}

func (fs *FileStream) Tell() (int64, error) {
	return fs.Seek(0, SeekCur)
}

func (fs *FileStream) Read(p []byte) (int, error) {
	if fs.mode != ModeRead {
		return 0, errWrongMode(ModeRead)
	}
	if len(p) == 0 {
		return 0, nil
	}
	n, err := io.ReadFull(fs.f, p)
	switch err {
	case nil:
		return n, nil
	case io.EOF, io.ErrUnexpectedEOF:
		return n, io.EOF
	default:
		return n, bserr.Wrap(bserr.FileError, "filestream: read", err)
	}
}

func (fs *FileStream) Write(p []byte) (int, error) {
	if fs.mode != ModeWrite {
		return 0, errWrongMode(ModeWrite)
	}
	n, err := fs.f.Write(p)
	if err != nil {
		return n, bserr.Wrap(bserr.FileError, "filestream: write", err)
	}
	return n, nil
}

func (fs *FileStream) Flush() error {
	if fs.mode != ModeWrite {
		return errWrongMode(ModeWrite)
	}
	if err := fs.f.Sync(); err != nil {
		return bserr.Wrap(bserr.FileError, "filestream: flush", err)
	}
	return nil
}
