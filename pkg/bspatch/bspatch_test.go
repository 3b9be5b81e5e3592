package bspatch_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/binarydelta/bsdiff/pkg/bscodec"
	"github.com/binarydelta/bsdiff/pkg/bsdiff"
	"github.com/binarydelta/bsdiff/pkg/bserr"
	"github.com/binarydelta/bsdiff/pkg/bspack"
	"github.com/binarydelta/bsdiff/pkg/bspatch"
	"github.com/binarydelta/bsdiff/pkg/bsstream"
)

func TestApplyIdentical(t *testing.T) {
	old := []byte("hello")
	patch, err := bsdiff.Bytes(old, old)
	require.NoError(t, err)

	got, err := bspatch.Bytes(old, patch)
	require.NoError(t, err)
	assert.Equal(t, old, got)
}

// A truncated or mismatched-magic patch must never be silently applied.
func TestApplyTruncatedPatchIsCorrupt(t *testing.T) {
	old := []byte("abcdefgh")
	patch, err := bsdiff.Bytes(old, []byte("aXcdefgh"))
	require.NoError(t, err)

	truncated := patch[:31]
	_, err = bspatch.Bytes(old, truncated)
	require.Error(t, err)
	assert.Equal(t, bserr.CorruptPatch, bserr.CodeOf(err))
}

func TestApplyBadMagicIsCorrupt(t *testing.T) {
	old := []byte("abcdefgh")
	patch, err := bsdiff.Bytes(old, []byte("aXcdefgh"))
	require.NoError(t, err)

	corrupt := append([]byte(nil), patch...)
	corrupt[7] = '1' // "BSDIFF40" -> "BSDIFF41"
	_, err = bspatch.Bytes(old, corrupt)
	require.Error(t, err)
	assert.Equal(t, bserr.CorruptPatch, bserr.CodeOf(err))
}

func TestApplyToleratesOldBufferOverrun(t *testing.T) {
	// A hand-built patch whose single entry (d=5, e=0, s=0) runs the
	// old-side cursor past oldsize: old[0:2] is added to the first two diff
	// bytes, and the last three, which have no old byte to add, must be kept
	// as read rather than rejected.
	old := []byte("ab")
	new := []byte("abXYZ")

	w := bsstream.NewMemoryWriter(0)
	p := bspack.OpenWriter(w, bscodec.Bzip2)
	require.NoError(t, p.WriteNewSize(int64(len(new))))
	require.NoError(t, p.WriteEntryHeader(5, 0, 0))
	require.NoError(t, p.WriteEntryDiff([]byte{0, 0, 'X', 'Y', 'Z'}))
	require.NoError(t, p.Flush())
	require.NoError(t, p.Close())

	got, err := bspatch.Bytes(old, w.Buffer())
	require.NoError(t, err)
	assert.Equal(t, new, got)
}
