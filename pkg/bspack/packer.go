// Package bspack implements the BSDIFF40 patch container: it hides three
// independently codec-compressed sections (control/diff/extra) behind a
// logical "write one entry at a time" / "read one entry at a time" API.
// The entropy coder is pluggable; any bscodec.Factory works, though only
// bzip2 yields the canonical BSDIFF40 layout.
package bspack

import (
	"io"

	"github.com/hashicorp/go-multierror"

	"github.com/binarydelta/bsdiff/pkg/bscodec"
	"github.com/binarydelta/bsdiff/pkg/bserr"
	"github.com/binarydelta/bsdiff/pkg/bsstream"
)

const headerMagic = "BSDIFF40"
const headerLen = 32

// Packer is the read-or-write-mode handle over a BSDIFF40 (or
// codec-substituted) container. Call ordering is fixed: write mode is
// WriteNewSize, then any number of (WriteEntryHeader, WriteEntryDiff*,
// WriteEntryExtra*) triples, then Flush, then Close; read mode is
// ReadNewSize, then any number of (ReadEntryHeader, ReadEntryDiff*,
// ReadEntryExtra*) triples, then Close. WriteNewSize/ReadNewSize return
// bserr.InvalidArg in the wrong mode or when called twice, and
// WriteEntryHeader/ReadEntryHeader/Flush return it in the wrong mode or
// before the size call. The diff/extra calls do not check the mode; they
// only enforce the current entry's byte budget.
type Packer struct {
	mode    bsstream.Mode
	codec   bscodec.Factory
	stream  bsstream.Stream
	newSize int64

	headerX, headerY, headerZ int64

	// read mode
	cpf, dpf, epf          *bsstream.SubStream
	cpfDec, dpfDec, epfDec bscodec.Decompressor

	// write mode
	base bsstream.Writer
	enc  bscodec.Compressor
	db   []byte
	eb   []byte
}

// OpenReader opens a Packer over a read-mode base stream, using codec to
// decompress all three sections.
func OpenReader(base bsstream.Reader, codec bscodec.Factory) *Packer {
	return &Packer{mode: bsstream.ModeRead, codec: codec, stream: base, newSize: -1}
}

// OpenWriter opens a Packer over a write-mode base stream, using codec to
// compress all three sections.
func OpenWriter(base bsstream.Writer, codec bscodec.Factory) *Packer {
	return &Packer{mode: bsstream.ModeWrite, codec: codec, stream: base, base: base, newSize: -1}
}

func (p *Packer) Mode() bsstream.Mode { return p.mode }

// ReadNewSize reads the 32-byte header, validates the magic, and opens the
// three section sub-streams and their decompressors. It must be called
// exactly once, before any ReadEntry* call.
func (p *Packer) ReadNewSize() (int64, error) {
	if p.mode != bsstream.ModeRead {
		return 0, bserr.New(bserr.InvalidArg, "bspack: ReadNewSize requires read mode")
	}
	if p.newSize != -1 {
		return 0, bserr.New(bserr.InvalidArg, "bspack: ReadNewSize already called")
	}
	reader, ok := p.stream.(bsstream.Reader)
	if !ok {
		return 0, bserr.New(bserr.InvalidArg, "bspack: base stream is not readable")
	}

	header := make([]byte, headerLen)
	if _, err := io.ReadFull(asIOReader(reader), header); err != nil {
		return 0, bserr.Wrap(bserr.FileError, "bspack: read header", err)
	}
	if string(header[:8]) != headerMagic {
		return 0, bserr.New(bserr.CorruptPatch, "bspack: bad magic")
	}

	bzCtrlLen := DecodeOffset(header[8:16])
	bzDataLen := DecodeOffset(header[16:24])
	newSize := DecodeOffset(header[24:32])
	if bzCtrlLen < 0 || bzDataLen < 0 || newSize < 0 {
		return 0, bserr.New(bserr.CorruptPatch, "bspack: negative length in header")
	}

	readStart := int64(headerLen)
	readEnd := readStart + bzCtrlLen
	cpf, err := bsstream.OpenSubStream(reader, readStart, readEnd)
	if err != nil {
		return 0, bserr.Wrap(bserr.CorruptPatch, "bspack: open control substream", err)
	}
	cpfDec, err := p.codec.NewDecompressor(asIOReader(cpf))
	if err != nil {
		return 0, bserr.Wrap(bserr.CorruptPatch, "bspack: init control decompressor", err)
	}

	readStart = readEnd
	readEnd = readStart + bzDataLen
	dpf, err := bsstream.OpenSubStream(reader, readStart, readEnd)
	if err != nil {
		return 0, bserr.Wrap(bserr.CorruptPatch, "bspack: open diff substream", err)
	}
	dpfDec, err := p.codec.NewDecompressor(asIOReader(dpf))
	if err != nil {
		return 0, bserr.Wrap(bserr.CorruptPatch, "bspack: init diff decompressor", err)
	}

	readStart = readEnd
	readEnd, err = reader.Seek(0, bsstream.SeekEnd)
	if err != nil {
		return 0, bserr.Wrap(bserr.FileError, "bspack: seek end", err)
	}
	epf, err := bsstream.OpenSubStream(reader, readStart, readEnd)
	if err != nil {
		return 0, bserr.Wrap(bserr.CorruptPatch, "bspack: open extra substream", err)
	}
	epfDec, err := p.codec.NewDecompressor(asIOReader(epf))
	if err != nil {
		return 0, bserr.Wrap(bserr.CorruptPatch, "bspack: init extra decompressor", err)
	}

	p.cpf, p.dpf, p.epf = cpf, dpf, epf
	p.cpfDec, p.dpfDec, p.epfDec = cpfDec, dpfDec, epfDec
	p.newSize = newSize
	return newSize, nil
}

// ReadEntryHeader reads the next (diff, extra, seek) control triple.
// Returns io.EOF once the control stream is exhausted.
func (p *Packer) ReadEntryHeader() (diff, extra, seek int64, err error) {
	if p.mode != bsstream.ModeRead || p.newSize < 0 {
		return 0, 0, 0, bserr.New(bserr.InvalidArg, "bspack: ReadNewSize must be called first")
	}
	buf := make([]byte, 24)
	n, err := io.ReadFull(p.cpfDec, buf)
	if err != nil {
		if err == io.EOF && n == 0 {
			return 0, 0, 0, io.EOF
		}
		return 0, 0, 0, bserr.Wrap(bserr.CorruptPatch, "bspack: read control entry", err)
	}
	p.headerX = DecodeOffset(buf[0:8])
	p.headerY = DecodeOffset(buf[8:16])
	p.headerZ = DecodeOffset(buf[16:24])
	return p.headerX, p.headerY, p.headerZ, nil
}

// ReadEntryDiff reads up to len(buf) bytes of the current entry's diff
// section, never more than the remaining headerX bytes announced by the
// last ReadEntryHeader.
func (p *Packer) ReadEntryDiff(buf []byte) (int, error) {
	return readEntrySection(p.dpfDec, &p.headerX, buf)
}

// ReadEntryExtra reads up to len(buf) bytes of the current entry's extra
// section, never more than the remaining headerY bytes.
func (p *Packer) ReadEntryExtra(buf []byte) (int, error) {
	return readEntrySection(p.epfDec, &p.headerY, buf)
}

func readEntrySection(r io.Reader, remaining *int64, buf []byte) (int, error) {
	if len(buf) == 0 {
		return 0, nil
	}
	cb := int64(len(buf))
	if *remaining < cb {
		cb = *remaining
	}
	if cb <= 0 {
		return 0, io.EOF
	}
	n, err := r.Read(buf[:cb])
	*remaining -= int64(n)
	if err == io.EOF {
		if n == 0 {
			// The coded frame ended while the entry still owed bytes.
			return 0, bserr.New(bserr.CorruptPatch, "bspack: entry section truncated")
		}
		return n, nil
	}
	if err != nil {
		return n, bserr.Wrap(bserr.CorruptPatch, "bspack: read entry section", err)
	}
	return n, nil
}

// WriteNewSize writes the 32-byte placeholder header and initializes the
// control-section compressor and the diff/extra accumulators. It must be
// called exactly once, before any WriteEntry* call.
func (p *Packer) WriteNewSize(size int64) error {
	if p.mode != bsstream.ModeWrite {
		return bserr.New(bserr.InvalidArg, "bspack: WriteNewSize requires write mode")
	}
	if p.newSize != -1 {
		return bserr.New(bserr.InvalidArg, "bspack: WriteNewSize already called")
	}
	if size < 0 {
		return bserr.New(bserr.InvalidArg, "bspack: negative size")
	}

	if _, err := p.base.Write(make([]byte, headerLen)); err != nil {
		return bserr.Wrap(bserr.FileError, "bspack: write placeholder header", err)
	}

	enc, err := p.codec.NewCompressor(asIOWriter(p.base))
	if err != nil {
		return bserr.Wrap(bserr.Generic, "bspack: init control compressor", err)
	}
	p.enc = enc
	p.db = make([]byte, 0, size)
	p.eb = make([]byte, 0, size)
	p.newSize = size
	return nil
}

// WriteEntryHeader announces and writes the next control triple.
func (p *Packer) WriteEntryHeader(diff, extra, seek int64) error {
	if p.mode != bsstream.ModeWrite || p.newSize < 0 {
		return bserr.New(bserr.InvalidArg, "bspack: WriteNewSize must be called first")
	}
	if diff < 0 || extra < 0 {
		return bserr.New(bserr.InvalidArg, "bspack: negative diff/extra length")
	}
	p.headerX, p.headerY, p.headerZ = diff, extra, seek

	buf := make([]byte, 24)
	EncodeOffset(diff, buf[0:8])
	EncodeOffset(extra, buf[8:16])
	EncodeOffset(seek, buf[16:24])
	if _, err := p.enc.Write(buf); err != nil {
		return bserr.Wrap(bserr.Generic, "bspack: write control entry", err)
	}
	return nil
}

// WriteEntryDiff appends up to headerX bytes (announced by the preceding
// WriteEntryHeader) to the diff accumulator.
func (p *Packer) WriteEntryDiff(data []byte) error {
	if int64(len(data)) > p.headerX {
		return bserr.New(bserr.InvalidArg, "bspack: diff write exceeds announced length")
	}
	if p.dblen()+int64(len(data)) > p.newSize {
		return bserr.New(bserr.InvalidArg, "bspack: diff write exceeds new_size")
	}
	p.db = append(p.db, data...)
	p.headerX -= int64(len(data))
	return nil
}

// WriteEntryExtra appends up to headerY bytes (announced by the preceding
// WriteEntryHeader) to the extra accumulator.
func (p *Packer) WriteEntryExtra(data []byte) error {
	if int64(len(data)) > p.headerY {
		return bserr.New(bserr.InvalidArg, "bspack: extra write exceeds announced length")
	}
	if p.eblen()+int64(len(data)) > p.newSize {
		return bserr.New(bserr.InvalidArg, "bspack: extra write exceeds new_size")
	}
	p.eb = append(p.eb, data...)
	p.headerY -= int64(len(data))
	return nil
}

func (p *Packer) dblen() int64 { return int64(len(p.db)) }
func (p *Packer) eblen() int64 { return int64(len(p.eb)) }

// Flush finalizes the control section, writes the accumulated diff and
// extra sections each through a fresh compressor instance, then rewinds and
// rewrites the real header now that all three section lengths are known.
func (p *Packer) Flush() error {
	if p.mode != bsstream.ModeWrite || p.newSize < 0 {
		return bserr.New(bserr.InvalidArg, "bspack: WriteNewSize must be called first")
	}

	header := make([]byte, headerLen)
	copy(header, headerMagic)
	EncodeOffset(p.newSize, header[24:32])

	if err := p.enc.Close(); err != nil {
		return bserr.Wrap(bserr.Generic, "bspack: flush control compressor", err)
	}
	p.enc = nil
	patchSize, err := p.base.Tell()
	if err != nil {
		return bserr.Wrap(bserr.FileError, "bspack: tell after control", err)
	}
	EncodeOffset(patchSize-headerLen, header[8:16])

	enc, err := p.codec.NewCompressor(asIOWriter(p.base))
	if err != nil {
		return bserr.Wrap(bserr.Generic, "bspack: init diff compressor", err)
	}
	if _, err := enc.Write(p.db); err != nil {
		return bserr.Wrap(bserr.Generic, "bspack: write diff section", err)
	}
	if err := enc.Close(); err != nil {
		return bserr.Wrap(bserr.Generic, "bspack: flush diff compressor", err)
	}
	patchSize2, err := p.base.Tell()
	if err != nil {
		return bserr.Wrap(bserr.FileError, "bspack: tell after diff", err)
	}
	EncodeOffset(patchSize2-patchSize, header[16:24])

	enc, err = p.codec.NewCompressor(asIOWriter(p.base))
	if err != nil {
		return bserr.Wrap(bserr.Generic, "bspack: init extra compressor", err)
	}
	if _, err := enc.Write(p.eb); err != nil {
		return bserr.Wrap(bserr.Generic, "bspack: write extra section", err)
	}
	if err := enc.Close(); err != nil {
		return bserr.Wrap(bserr.Generic, "bspack: flush extra compressor", err)
	}

	if _, err := p.base.Seek(0, bsstream.SeekSet); err != nil {
		return bserr.Wrap(bserr.FileError, "bspack: seek to header", err)
	}
	if _, err := p.base.Write(header); err != nil {
		return bserr.Wrap(bserr.FileError, "bspack: rewrite header", err)
	}
	if err := p.base.Flush(); err != nil {
		return bserr.Wrap(bserr.FileError, "bspack: flush base stream", err)
	}
	return nil
}

// Close releases every resource the Packer opened. In read mode this closes
// three decompressors and three sub-streams, aggregating any failures. The
// base stream is the caller's to close.
func (p *Packer) Close() error {
	var result *multierror.Error
	if p.mode == bsstream.ModeRead {
		closers := []io.Closer{p.cpfDec, p.dpfDec, p.epfDec, p.cpf, p.dpf, p.epf}
		for _, c := range closers {
			if c == nil {
				continue
			}
			if err := c.Close(); err != nil {
				result = multierror.Append(result, err)
			}
		}
	} else if p.enc != nil {
		if err := p.enc.Close(); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}

func asIOReader(s bsstream.Reader) io.Reader { return ioReaderFunc(s.Read) }
func asIOWriter(s bsstream.Writer) io.Writer { return ioWriterFunc(s.Write) }

type ioReaderFunc func(p []byte) (int, error)

func (f ioReaderFunc) Read(p []byte) (int, error) { return f(p) }

type ioWriterFunc func(p []byte) (int, error)

func (f ioWriterFunc) Write(p []byte) (int, error) { return f(p) }
