// Package bspatch implements the patch engine: it reads a BSDIFF40-family
// container through a bspack.Packer and reconstructs the new buffer by
// applying each control entry's diff (added to the old file) and extra
// (copied verbatim) segments in turn. Any bscodec.Factory the patch was
// written with works.
package bspatch

import (
	"io"
	"math"

	"github.com/hashicorp/go-multierror"
	"github.com/noxer/bytewriter"

	"github.com/binarydelta/bsdiff/pkg/bscodec"
	"github.com/binarydelta/bsdiff/pkg/bserr"
	"github.com/binarydelta/bsdiff/pkg/bspack"
	"github.com/binarydelta/bsdiff/pkg/bsstream"
)

// PatchEngine reconstructs a new buffer from an old buffer and a
// BSDIFF40-family patch read through a PatchPacker.
type PatchEngine struct {
	Ctx   *bserr.Ctx
	Codec bscodec.Factory // defaults to bscodec.Bzip2 if nil
}

func (e *PatchEngine) codec() bscodec.Factory {
	if e.Codec != nil {
		return e.Codec
	}
	return bscodec.Bzip2
}

// Run applies the patch read from patchStream against old and writes the
// reconstructed new file to out.
func (e *PatchEngine) Run(old []byte, patchStream bsstream.Reader, out bsstream.Writer) (err error) {
	packer := bspack.OpenReader(patchStream, e.codec())
	defer func() {
		if cerr := packer.Close(); cerr != nil {
			err = multierror.Append(err, cerr).ErrorOrNil()
		}
	}()

	newSize, err := packer.ReadNewSize()
	if err != nil {
		return e.logErr(bserr.CorruptPatch, err, "read new_size")
	}
	if newSize > maxNewSize {
		return e.logErr(bserr.SizeTooLarge, nil, "new_size exceeds addressable memory")
	}

	oldsize := int64(len(old))
	newbuf := make([]byte, newSize)
	// new_size is known up front, so the reconstructed file is accumulated
	// via a fixed-capacity sequential writer rather than tracked offsets.
	nw := bytewriter.New(newbuf)

	var newpos, oldpos int64
	for newpos < newSize {
		d, ex, s, herr := packer.ReadEntryHeader()
		if herr != nil {
			if herr == io.EOF {
				return e.logErr(bserr.CorruptPatch, herr, "unexpected end of control stream")
			}
			return e.logErr(bserr.CorruptPatch, herr, "read entry header")
		}
		if d < 0 || ex < 0 {
			return e.logErr(bserr.CorruptPatch, nil, "negative control length")
		}
		if newpos+d > newSize || newpos+d+ex > newSize {
			return e.logErr(bserr.CorruptPatch, nil, "control entry overruns new_size")
		}

		diffBuf := make([]byte, d)
		if err = readEntryFull(packer.ReadEntryDiff, diffBuf); err != nil {
			return e.logErr(bserr.CorruptPatch, err, "read diff segment")
		}
		for i := int64(0); i < d; i++ {
			op := oldpos + i
			if op >= 0 && op < oldsize {
				diffBuf[i] += old[op]
			}
		}
		if _, err = nw.Write(diffBuf); err != nil {
			return e.logErr(bserr.FileError, err, "accumulate diff segment")
		}
		newpos += d
		oldpos += d

		extraBuf := make([]byte, ex)
		if err = readEntryFull(packer.ReadEntryExtra, extraBuf); err != nil {
			return e.logErr(bserr.CorruptPatch, err, "read extra segment")
		}
		if _, err = nw.Write(extraBuf); err != nil {
			return e.logErr(bserr.FileError, err, "accumulate extra segment")
		}
		newpos += ex
		oldpos += s
	}

	if _, err = out.Write(newbuf); err != nil {
		return e.logErr(bserr.FileError, err, "write new file")
	}
	if err = out.Flush(); err != nil {
		return e.logErr(bserr.FileError, err, "flush output")
	}
	return nil
}

// maxNewSize bounds the reconstructed file so a corrupt header cannot
// provoke an arbitrarily large allocation.
const maxNewSize = int64(math.MaxInt / 4)

func (e *PatchEngine) logErr(code bserr.Code, err error, format string) error {
	if err == nil {
		return e.Ctx.Logf(code, "%s", format)
	}
	return e.Ctx.LogErr(code, err, "%s", format)
}

// readEntryFull repeatedly calls readFn until buf is full, tolerating the
// short reads a streaming decompressor may return mid-frame; io.EOF before
// buf is full is reported as a mid-stream (i.e. corrupt) short read.
func readEntryFull(readFn func([]byte) (int, error), buf []byte) error {
	off := 0
	for off < len(buf) {
		n, err := readFn(buf[off:])
		off += n
		if err != nil {
			if err == io.EOF {
				break
			}
			return err
		}
	}
	if off < len(buf) {
		return io.ErrUnexpectedEOF
	}
	return nil
}

// Bytes applies patch against oldbs and returns the reconstructed new file.
func Bytes(oldbs, patch []byte) ([]byte, error) {
	patchStream := bsstream.NewMemoryReader(patch)
	w := bsstream.NewMemoryWriter(0)
	e := &PatchEngine{}
	if err := e.Run(oldbs, patchStream, w); err != nil {
		return nil, err
	}
	return w.Buffer(), nil
}

// Reader applies the patch read from patchStream against oldStream and
// writes the reconstructed new file to out.
func Reader(oldStream, patchStream bsstream.Reader, out bsstream.Writer) error {
	oldBuf, err := readAll(oldStream)
	if err != nil {
		return err
	}
	e := &PatchEngine{}
	return e.Run(oldBuf, patchStream, out)
}

// File applies patchfile against oldfile's contents and writes the
// reconstructed new file to newfile.
func File(oldfile, newfile, patchfile string) error {
	oldStream, err := bsstream.OpenFileStream(oldfile, bsstream.ModeRead)
	if err != nil {
		return err
	}
	defer oldStream.Close()
	oldBuf, err := readAll(oldStream)
	if err != nil {
		return err
	}

	patchStream, err := bsstream.OpenFileStream(patchfile, bsstream.ModeRead)
	if err != nil {
		return err
	}
	defer patchStream.Close()

	newStream, err := bsstream.OpenFileStream(newfile, bsstream.ModeWrite)
	if err != nil {
		return err
	}
	defer newStream.Close()

	e := &PatchEngine{}
	if err := e.Run(oldBuf, patchStream, newStream); err != nil {
		return err
	}
	return nil
}

func readAll(r bsstream.Reader) ([]byte, error) {
	size, err := r.Seek(0, bsstream.SeekEnd)
	if err != nil {
		return nil, err
	}
	if _, err := r.Seek(0, bsstream.SeekSet); err != nil {
		return nil, err
	}
	buf := make([]byte, size)
	off := 0
	for off < len(buf) {
		n, err := r.Read(buf[off:])
		off += n
		if err != nil {
			return nil, err
		}
	}
	return buf, nil
}
