package bspack_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/binarydelta/bsdiff/pkg/bspack"
)

func TestEncodeDecodeOffsetBijection(t *testing.T) {
	values := []int64{
		0, 1, -1, 127, -127, 255, -255, 1 << 20, -(1 << 20),
		math.MaxInt32, -math.MaxInt32,
		(1 << 62) - 1, -((1 << 62) - 1),
	}
	for _, v := range values {
		buf := make([]byte, 8)
		bspack.EncodeOffset(v, buf)
		got := bspack.DecodeOffset(buf)
		assert.Equal(t, v, got, "round trip of %d", v)
	}
}

func TestEncodeOffsetZeroHasClearSignBit(t *testing.T) {
	buf := make([]byte, 8)
	bspack.EncodeOffset(0, buf)
	assert.Equal(t, byte(0), buf[7]&0x80, "zero must encode with sign bit clear")
}

func TestDecodeOffsetAcceptsNonCanonicalNegativeZero(t *testing.T) {
	buf := []byte{0, 0, 0, 0, 0, 0, 0, 0x80}
	assert.EqualValues(t, 0, bspack.DecodeOffset(buf))
}
