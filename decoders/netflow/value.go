package netflow

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strconv"
)

type ValueKind uint8

const (
	ValueNone ValueKind = iota
	ValueUnsigned
	ValueMAC
	ValueHex
)

// Value is the interpretation of a raw field, chosen by its width only.
type Value struct {
	Kind     ValueKind
	Unsigned uint64
	Text     string
}

// DecodeValue interprets a field: 1, 2, 4 and 8 bytes are big-endian unsigned
// integers, 6 bytes a MAC address, 16 bytes (IPv6) and empty fields carry no
// value and anything else is rendered as hexadecimal.
func DecodeValue(b []byte) Value {
	switch len(b) {
	case 0, 16:
		return Value{}
	case 1:
		return Value{Kind: ValueUnsigned, Unsigned: uint64(b[0])}
	case 2:
		return Value{Kind: ValueUnsigned, Unsigned: uint64(binary.BigEndian.Uint16(b))}
	case 4:
		return Value{Kind: ValueUnsigned, Unsigned: uint64(binary.BigEndian.Uint32(b))}
	case 8:
		return Value{Kind: ValueUnsigned, Unsigned: binary.BigEndian.Uint64(b)}
	case 6:
		return Value{Kind: ValueMAC, Text: fmt.Sprintf("%02x:%02x:%02x:%02x:%02x:%02x", b[0], b[1], b[2], b[3], b[4], b[5])}
	default:
		return Value{Kind: ValueHex, Text: hex.EncodeToString(b)}
	}
}

func (v Value) IsNone() bool {
	return v.Kind == ValueNone
}

func (v Value) String() string {
	switch v.Kind {
	case ValueUnsigned:
		return strconv.FormatUint(v.Unsigned, 10)
	case ValueMAC, ValueHex:
		return v.Text
	default:
		return "<none>"
	}
}
