// Package json formats batches as JSON documents.
package json

import (
	"encoding/json"

	"github.com/netsampler/trustflow/format"
)

type JsonDriver struct {
}

func (d *JsonDriver) Prepare() error {
	return nil
}

func (d *JsonDriver) Init() error {
	return nil
}

func (d *JsonDriver) ContentType() string {
	return "application/json"
}

func (d *JsonDriver) Format(data interface{}) ([]byte, []byte, error) {
	if _, ok := data.(json.Marshaler); !ok {
		return nil, nil, format.ErrorNoSerializer
	}
	output, err := json.Marshal(data)
	return format.Key(data), output, err
}

func init() {
	d := &JsonDriver{}
	format.RegisterFormatDriver("json", d)
}
