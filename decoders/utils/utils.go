// Package utils holds the big-endian readers and writers shared by the flow decoders.
package utils

import (
	"encoding/binary"
	"errors"
	"io"
)

// ErrShortRead is returned when the payload holds fewer bytes than requested.
var ErrShortRead = errors.New("short read")

// BytesBuffer is the subset of *bytes.Buffer used by the decoders.
type BytesBuffer interface {
	io.Reader
	Next(int) []byte
}

// BinaryDecoder reads each destination in order, network byte order.
func BinaryDecoder(payload BytesBuffer, dests ...interface{}) error {
	for _, dest := range dests {
		if err := BinaryRead(payload, binary.BigEndian, dest); err != nil {
			return err
		}
	}
	return nil
}

// BinaryRead is a reflection-free binary.Read for the fixed width types used by
// NetFlow and IPFIX headers.
func BinaryRead(payload BytesBuffer, order binary.ByteOrder, data any) error {
	var n int
	switch data.(type) {
	case *int8, *uint8, *bool:
		n = 1
	case *int16, *uint16:
		n = 2
	case *int32, *uint32:
		n = 4
	case *int64, *uint64:
		n = 8
	case []byte:
		n = len(data.([]byte))
	case []uint16:
		n = 2 * len(data.([]uint16))
	case []uint32:
		n = 4 * len(data.([]uint32))
	default:
		return binary.Read(payload, order, data)
	}

	bs := payload.Next(n)
	if len(bs) < n {
		return ErrShortRead
	}

	switch data := data.(type) {
	case *bool:
		*data = bs[0] != 0
	case *int8:
		*data = int8(bs[0])
	case *uint8:
		*data = bs[0]
	case *int16:
		*data = int16(order.Uint16(bs))
	case *uint16:
		*data = order.Uint16(bs)
	case *int32:
		*data = int32(order.Uint32(bs))
	case *uint32:
		*data = order.Uint32(bs)
	case *int64:
		*data = int64(order.Uint64(bs))
	case *uint64:
		*data = order.Uint64(bs)
	case []byte:
		copy(data, bs)
	case []uint16:
		for i := range data {
			data[i] = order.Uint16(bs[2*i:])
		}
	case []uint32:
		for i := range data {
			data[i] = order.Uint32(bs[4*i:])
		}
	}
	return nil
}
