package bscodec

import (
	"io"

	"github.com/dsnet/compress/bzip2"
)

// bzip2Factory is the default codec backing the canonical BSDIFF40
// container.
type bzip2Factory struct{}

// Bzip2 is the default Factory, compressing at level 9.
var Bzip2 Factory = bzip2Factory{}

func (bzip2Factory) Name() string { return "bzip2" }

func (bzip2Factory) NewCompressor(w io.Writer) (Compressor, error) {
	bw, err := bzip2.NewWriter(w, &bzip2.WriterConfig{Level: 9})
	if err != nil {
		return nil, err
	}
	return bw, nil
}

func (bzip2Factory) NewDecompressor(r io.Reader) (Decompressor, error) {
	br, err := bzip2.NewReader(r, nil)
	if err != nil {
		return nil, err
	}
	return br, nil
}
