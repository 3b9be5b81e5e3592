package report_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/binarydelta/bsdiff/pkg/bscodec"
	"github.com/binarydelta/bsdiff/pkg/bsdiff"
	"github.com/binarydelta/bsdiff/pkg/bsstream"
	"github.com/binarydelta/bsdiff/pkg/report"
)

func TestWriteCSVOneRowPerEntry(t *testing.T) {
	old := []byte("abcdefgh")
	new := []byte("aXcdefgh")
	patch, err := bsdiff.Bytes(old, new)
	require.NoError(t, err)

	var buf bytes.Buffer
	err = report.WriteCSV(bsstream.NewMemoryReader(patch), bscodec.Bzip2, &buf)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	// header row + at least one control entry
	assert.GreaterOrEqual(t, len(lines), 2)
	assert.Contains(t, lines[0], "diff_len")
}
