package bscodec

import (
	"io"

	lz4 "github.com/DataDog/golz4"
)

// lz4Factory is the alternate codec. It is never used for the canonical
// BSDIFF40 container, which is bzip2 by format definition; cmd/bsdiff
// exposes it behind an explicit --codec=lz4 flag that produces a
// non-standard container.
type lz4Factory struct{}

// LZ4 is the alternate Factory.
var LZ4 Factory = lz4Factory{}

func (lz4Factory) Name() string { return "lz4" }

func (lz4Factory) NewCompressor(w io.Writer) (Compressor, error) {
	return lz4.NewWriter(w), nil
}

func (lz4Factory) NewDecompressor(r io.Reader) (Decompressor, error) {
	return lz4.NewReader(r), nil
}
