package bserr_test

import (
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/binarydelta/bsdiff/pkg/bserr"
)

func TestCodeOf(t *testing.T) {
	assert.Equal(t, bserr.Success, bserr.CodeOf(nil))
	assert.Equal(t, bserr.EndOfFile, bserr.CodeOf(io.EOF))
	assert.Equal(t, bserr.FileError, bserr.CodeOf(io.ErrUnexpectedEOF))
	assert.Equal(t, bserr.CorruptPatch, bserr.CodeOf(bserr.New(bserr.CorruptPatch, "bad magic")))
	assert.Equal(t, bserr.Generic, bserr.CodeOf(fmt.Errorf("something else")))
}

func TestCodeOfUnwrapsNestedErrors(t *testing.T) {
	inner := bserr.Wrap(bserr.FileError, "read failed", io.ErrUnexpectedEOF)
	outer := fmt.Errorf("while applying: %w", inner)
	assert.Equal(t, bserr.FileError, bserr.CodeOf(outer))
}

func TestCtxLogfInvokesCallback(t *testing.T) {
	var got string
	ctx := &bserr.Ctx{
		Opaque:   "tag",
		LogError: func(opaque interface{}, msg string) { got = msg },
	}

	err := ctx.Logf(bserr.InvalidArg, "bad argument %q", "x")
	assert.Equal(t, bserr.InvalidArg, err.Code)
	assert.Contains(t, got, "bad argument")

	// a nil Ctx must still produce the error, silently
	var nilCtx *bserr.Ctx
	err = nilCtx.Logf(bserr.CorruptPatch, "no callback")
	assert.Equal(t, bserr.CorruptPatch, err.Code)
}

func TestErrorStringIncludesCodeName(t *testing.T) {
	err := bserr.New(bserr.SizeTooLarge, "input too big")
	assert.Contains(t, err.Error(), "SIZE_TOO_LARGE")
}
