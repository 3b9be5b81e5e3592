package bsstream_test

import (
	"io"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/binarydelta/bsdiff/pkg/bsstream"
)

func TestFileStreamWriteThenRead(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stream.bin")

	w, err := bsstream.OpenFileStream(path, bsstream.ModeWrite)
	require.NoError(t, err)
	_, err = w.Write([]byte("hello, file stream"))
	require.NoError(t, err)
	require.NoError(t, w.Flush())
	require.NoError(t, w.Close())

	r, err := bsstream.OpenFileStream(path, bsstream.ModeRead)
	require.NoError(t, err)
	defer r.Close()

	// a short read that reaches the true end of the file returns the bytes
	// it got together with io.EOF
	buf := make([]byte, 64)
	n, err := r.Read(buf)
	require.ErrorIs(t, err, io.EOF)
	assert.Equal(t, "hello, file stream", string(buf[:n]))

	n, err = r.Read(buf)
	assert.Equal(t, 0, n)
	assert.ErrorIs(t, err, io.EOF)
}

func TestFileStreamSeekTell(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stream.bin")

	w, err := bsstream.OpenFileStream(path, bsstream.ModeWrite)
	require.NoError(t, err)
	_, err = w.Write([]byte("0123456789"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	r, err := bsstream.OpenFileStream(path, bsstream.ModeRead)
	require.NoError(t, err)
	defer r.Close()

	pos, err := r.Seek(3, bsstream.SeekSet)
	require.NoError(t, err)
	assert.EqualValues(t, 3, pos)

	tell, err := r.Tell()
	require.NoError(t, err)
	assert.EqualValues(t, 3, tell)

	buf := make([]byte, 2)
	n, err := r.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "34", string(buf[:n]))
}

func TestFileStreamModeMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stream.bin")
	w, err := bsstream.OpenFileStream(path, bsstream.ModeWrite)
	require.NoError(t, err)
	defer w.Close()

	_, err = w.Read(make([]byte, 1))
	assert.Error(t, err)
}
