// Package report decodes a patch's control-entry stream through a
// bspack.Packer in read mode and dumps one CSV row per entry. It is a
// diagnostic collaborator for the CLI front-ends, independent of the patch
// engine that actually reconstructs the new file.
package report

import (
	"io"

	"github.com/gocarina/gocsv"

	"github.com/binarydelta/bsdiff/pkg/bscodec"
	"github.com/binarydelta/bsdiff/pkg/bserr"
	"github.com/binarydelta/bsdiff/pkg/bspack"
	"github.com/binarydelta/bsdiff/pkg/bsstream"
)

// Row is one (diff_len, extra_len, seek) control entry.
type Row struct {
	Index int   `csv:"index"`
	Diff  int64 `csv:"diff_len"`
	Extra int64 `csv:"extra_len"`
	Seek  int64 `csv:"seek"`
}

// WriteCSV decodes the control-entry stream of the patch read from
// patchStream and writes one CSV row per entry to w. It exercises
// bspack.Packer's read mode without ever materializing the new file.
func WriteCSV(patchStream bsstream.Reader, codec bscodec.Factory, w io.Writer) error {
	if codec == nil {
		codec = bscodec.Bzip2
	}
	packer := bspack.OpenReader(patchStream, codec)
	defer packer.Close()

	if _, err := packer.ReadNewSize(); err != nil {
		return bserr.Wrap(bserr.CorruptPatch, "report: read new_size", err)
	}

	var rows []Row
	for i := 0; ; i++ {
		diff, extra, seek, err := packer.ReadEntryHeader()
		if err == io.EOF {
			break
		}
		if err != nil {
			return bserr.Wrap(bserr.CorruptPatch, "report: read entry header", err)
		}
		rows = append(rows, Row{Index: i, Diff: diff, Extra: extra, Seek: seek})

		if err := drainEntry(packer.ReadEntryDiff, diff); err != nil {
			return bserr.Wrap(bserr.CorruptPatch, "report: drain diff segment", err)
		}
		if err := drainEntry(packer.ReadEntryExtra, extra); err != nil {
			return bserr.Wrap(bserr.CorruptPatch, "report: drain extra segment", err)
		}
	}

	if err := gocsv.Marshal(rows, w); err != nil {
		return bserr.Wrap(bserr.Generic, "report: marshal csv", err)
	}
	return nil
}

// drainEntry reads and discards exactly n bytes from readFn, the shape
// WriteCSV needs to keep the diff/extra decompressors synchronized to the
// next entry's control header without caring about the segment contents.
func drainEntry(readFn func([]byte) (int, error), n int64) error {
	buf := make([]byte, 32*1024)
	for n > 0 {
		want := int64(len(buf))
		if n < want {
			want = n
		}
		read, err := readFn(buf[:want])
		n -= int64(read)
		if err != nil {
			if err == io.EOF && n == 0 {
				break
			}
			return err
		}
	}
	return nil
}
