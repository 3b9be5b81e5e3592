// Package bscodec defines the pluggable entropy-coder contract the patch
// container is built on, and two concrete implementations: bzip2 (the
// canonical BSDIFF40 codec) and lz4 (an alternate codec for non-standard
// containers). The coded format is opaque to everything above this package;
// the only requirement is a self-delimited byte-in/byte-out frame.
package bscodec

import "io"

// Compressor consumes plaintext via Write and emits a self-delimited
// compressed frame; Close must be called to flush any trailing state.
type Compressor interface {
	io.WriteCloser
}

// Decompressor produces plaintext via Read from a self-delimited compressed
// frame; Close releases any resources held by the underlying reader.
type Decompressor interface {
	io.ReadCloser
}

// Factory constructs fresh Compressor/Decompressor instances around a given
// underlying stream. A patch packer holds one Factory and uses it for all
// three container sections (control/diff/extra), each as an independent
// frame.
type Factory interface {
	// Name identifies the codec for diagnostics and the optional non-standard
	// container variant (cmd/bsdiff --codec=...); it is never written into
	// the canonical BSDIFF40 header, which is bzip2-only by format
	// definition.
	Name() string
	NewCompressor(w io.Writer) (Compressor, error)
	NewDecompressor(r io.Reader) (Decompressor, error)
}
