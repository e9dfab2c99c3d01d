package utils

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBinaryReadInteger(t *testing.T) {
	buf := bytes.NewBuffer([]byte{1, 2, 3, 4})
	var dest uint32
	err := BinaryRead(buf, binary.BigEndian, &dest)
	require.NoError(t, err)
	assert.Equal(t, uint32(0x1020304), dest)
}

func TestBinaryReadBytes(t *testing.T) {
	buf := bytes.NewBuffer([]byte{1, 2, 3, 4})
	dest := make([]byte, 4)
	err := BinaryRead(buf, binary.BigEndian, dest)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3, 4}, dest)
}

func TestBinaryReadUints(t *testing.T) {
	buf := bytes.NewBuffer([]byte{1, 2, 3, 4, 1, 2, 3, 4, 1, 2, 3, 4, 1, 2, 3, 4})
	dest := make([]uint32, 4)
	err := BinaryRead(buf, binary.BigEndian, dest)
	require.NoError(t, err)
	assert.Equal(t, uint32(0x1020304), dest[3])
}

func TestBinaryDecoderShort(t *testing.T) {
	buf := bytes.NewBuffer([]byte{0, 9, 0})
	var version uint16
	var count uint16
	err := BinaryDecoder(buf, &version, &count)
	assert.ErrorIs(t, err, ErrShortRead)
	assert.Equal(t, uint16(9), version)
}

func TestWritePadding(t *testing.T) {
	buf := new(bytes.Buffer)
	require.NoError(t, WriteU16(buf, 0x0102))
	require.NoError(t, WriteU8(buf, 3))
	WritePadding(buf)
	assert.Equal(t, []byte{1, 2, 3, 0}, buf.Bytes())
}

func BenchmarkBinaryReadIntegerBase(b *testing.B) {
	payload := []byte{1, 2, 3, 4}
	var dest uint32
	for n := 0; n < b.N; n++ {
		BinaryRead(bytes.NewBuffer(payload), binary.BigEndian, &dest)
	}
}

func BenchmarkBinaryReadIntegerComparison(b *testing.B) {
	payload := []byte{1, 2, 3, 4}
	var dest uint32
	for n := 0; n < b.N; n++ {
		binary.Read(bytes.NewBuffer(payload), binary.BigEndian, &dest)
	}
}
