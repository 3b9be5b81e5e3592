package bscodec_test

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/binarydelta/bsdiff/pkg/bscodec"
)

// conformance: every Factory round-trips arbitrary plaintext through its
// compressor/decompressor pair, exercising the "opaque to the engine"
// contract a PatchPacker depends on regardless of which codec backs it.
func TestFactoriesRoundTrip(t *testing.T) {
	factories := []bscodec.Factory{bscodec.Bzip2, bscodec.LZ4}

	inputs := [][]byte{
		{},
		[]byte("a"),
		[]byte("the quick brown fox jumps over the lazy dog, repeatedly, " +
			"the quick brown fox jumps over the lazy dog, repeatedly"),
		bytes.Repeat([]byte{0}, 1<<16),
	}

	for _, f := range factories {
		f := f
		t.Run(f.Name(), func(t *testing.T) {
			for _, in := range inputs {
				var buf bytes.Buffer
				c, err := f.NewCompressor(&buf)
				require.NoError(t, err)
				_, err = c.Write(in)
				require.NoError(t, err)
				require.NoError(t, c.Close())

				d, err := f.NewDecompressor(&buf)
				require.NoError(t, err)
				got, err := io.ReadAll(d)
				require.NoError(t, err)
				require.NoError(t, d.Close())

				assert.Equal(t, in, got)
			}
		})
	}
}
