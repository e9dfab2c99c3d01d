// Package binary formats batches with their protobuf wire encoding.
package binary

import (
	"encoding"

	"github.com/netsampler/trustflow/format"
)

// BinaryDriver formats batches via MarshalBinary.
type BinaryDriver struct{}

func (d *BinaryDriver) Prepare() error {
	return nil
}

func (d *BinaryDriver) Init() error {
	return nil
}

func (d *BinaryDriver) ContentType() string {
	return "application/x-protobuf"
}

// Format marshals the payload via encoding.BinaryMarshaler, preserving a Key when available.
func (d *BinaryDriver) Format(data interface{}) ([]byte, []byte, error) {
	if dataIf, ok := data.(encoding.BinaryMarshaler); ok {
		text, err := dataIf.MarshalBinary()
		return format.Key(data), text, err
	}
	return nil, nil, format.ErrorNoSerializer
}

func init() {
	d := &BinaryDriver{}
	format.RegisterFormatDriver("bin", d)
}
