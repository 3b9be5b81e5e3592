// Package bsdiff implements the diff engine: a greedy scan over the new
// buffer that pulls approximate matches from a suffix array built over the
// old buffer and emits (diff, extra, seek) control entries into a
// bspack.Packer. The engine performs no I/O of its own beyond the streams
// handed to it and works with any bscodec.Factory.
package bsdiff

import (
	"math"

	"github.com/hashicorp/go-multierror"

	"github.com/binarydelta/bsdiff/pkg/bscodec"
	"github.com/binarydelta/bsdiff/pkg/bserr"
	"github.com/binarydelta/bsdiff/pkg/bspack"
	"github.com/binarydelta/bsdiff/pkg/bsstream"
	"github.com/binarydelta/bsdiff/pkg/bssuffix"
)

// DiffEngine computes a BSDIFF40-family patch from an old buffer to a new
// buffer, writing it through a PatchPacker.
type DiffEngine struct {
	Ctx   *bserr.Ctx
	Codec bscodec.Factory // defaults to bscodec.Bzip2 if nil
}

func (e *DiffEngine) codec() bscodec.Factory {
	if e.Codec != nil {
		return e.Codec
	}
	return bscodec.Bzip2
}

// Run computes the diff between old and newbin and writes it, as a complete
// patch container, to patchStream.
func (e *DiffEngine) Run(old, newbin []byte, patchStream bsstream.Writer) (err error) {
	if int64(len(old)) > maxInputSize || int64(len(newbin)) > maxInputSize {
		return e.Ctx.Logf(bserr.SizeTooLarge, "input exceeds %d bytes", maxInputSize)
	}

	sa := bssuffix.Build(old)
	packer := bspack.OpenWriter(patchStream, e.codec())
	defer func() {
		if cerr := packer.Close(); cerr != nil {
			err = multierror.Append(err, cerr).ErrorOrNil()
		}
	}()

	if err = packer.WriteNewSize(int64(len(newbin))); err != nil {
		return e.logErr(err, "write new_size")
	}

	oldsize, newsize := len(old), len(newbin)

	var scan, length, lastscan, lastpos, lastoffset int
	var oldscore, scsc, pos int

	db := make([]byte, 0, newsize)

	for scan < newsize {
		oldscore = 0
		scan += length
		scsc = scan

		for scan < newsize {
			pos, length = sa.Search(newbin[scan:], 0, sa.Len())

			for ; scsc < scan+length; scsc++ {
				if scsc+lastoffset < oldsize && old[scsc+lastoffset] == newbin[scsc] {
					oldscore++
				}
			}

			// The +8 margin keeps the scan from flapping between
			// near-equivalent translations; changing it changes the
			// emitted patches.
			if (length == oldscore && length != 0) || length > oldscore+8 {
				break
			}
			if scan+lastoffset < oldsize && old[scan+lastoffset] == newbin[scan] {
				oldscore--
			}
			scan++
		}

		if length == oldscore && scan != newsize {
			continue
		}

		var s, sf, lenf int
		i := 0
		for lastscan+i < scan && lastpos+i < oldsize {
			if old[lastpos+i] == newbin[lastscan+i] {
				s++
			}
			i++
			if s*2-i > sf*2-lenf {
				sf = s
				lenf = i
			}
		}

		var lenb int
		if scan < newsize {
			s = 0
			var sb int
			for i = 1; scan >= lastscan+i && pos >= i; i++ {
				if old[pos-i] == newbin[scan-i] {
					s++
				}
				if s*2-i > sb*2-lenb {
					sb = s
					lenb = i
				}
			}
		}

		if lastscan+lenf > scan-lenb {
			overlap := (lastscan + lenf) - (scan - lenb)
			s = 0
			var ss, lens int
			for i = 0; i < overlap; i++ {
				if newbin[lastscan+lenf-overlap+i] == old[lastpos+lenf-overlap+i] {
					s++
				}
				if newbin[scan-lenb+i] == old[pos-lenb+i] {
					s--
				}
				if s > ss {
					ss = s
					lens = i + 1
				}
			}
			lenf += lens - overlap
			lenb -= lens
		}

		db = db[:0]
		for i = 0; i < lenf; i++ {
			db = append(db, newbin[lastscan+i]-old[lastpos+i])
		}
		extraLen := (scan - lenb) - (lastscan + lenf)
		extra := newbin[lastscan+lenf : lastscan+lenf+extraLen]
		seek := int64((pos - lenb) - (lastpos + lenf))

		if err = packer.WriteEntryHeader(int64(lenf), int64(extraLen), seek); err != nil {
			return e.logErr(err, "write entry header")
		}
		if err = packer.WriteEntryDiff(db); err != nil {
			return e.logErr(err, "write entry diff")
		}
		if err = packer.WriteEntryExtra(extra); err != nil {
			return e.logErr(err, "write entry extra")
		}

		lastscan = scan - lenb
		lastpos = pos - lenb
		lastoffset = pos - scan
	}

	if err = packer.Flush(); err != nil {
		return e.logErr(err, "flush patch packer")
	}
	return nil
}

// maxInputSize bounds both inputs so that the 8*(n+1)-byte suffix array and
// the diff/extra accumulators stay addressable on the host architecture.
const maxInputSize = int64(math.MaxInt / 16)

func (e *DiffEngine) logErr(err error, msg string) error {
	return e.Ctx.LogErr(bserr.CodeOf(err), err, "%s", msg)
}

// Bytes computes the diff between oldbs and newbs and returns a complete,
// canonical (bzip2) BSDIFF40 patch.
func Bytes(oldbs, newbs []byte) ([]byte, error) {
	w := bsstream.NewMemoryWriter(0)
	e := &DiffEngine{}
	if err := e.Run(oldbs, newbs, w); err != nil {
		return nil, err
	}
	return w.Buffer(), nil
}

// File computes the diff between the contents of oldfile and newfile and
// writes a complete BSDIFF40 patch to patchfile.
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

	newStream, err := bsstream.OpenFileStream(newfile, bsstream.ModeRead)
	if err != nil {
		return err
	}
	defer newStream.Close()
	newBuf, err := readAll(newStream)
	if err != nil {
		return err
	}

	patchStream, err := bsstream.OpenFileStream(patchfile, bsstream.ModeWrite)
	if err != nil {
		return err
	}
	defer patchStream.Close()

	e := &DiffEngine{}
	return e.Run(oldBuf, newBuf, patchStream)
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
