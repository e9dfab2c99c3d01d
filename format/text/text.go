// Package text formats batches as one line per record.
package text

import (
	"fmt"

	"github.com/netsampler/trustflow/format"
)

type TextDriver struct {
}

func (d *TextDriver) Prepare() error {
	return nil
}

func (d *TextDriver) Init() error {
	return nil
}

func (d *TextDriver) ContentType() string {
	return "text/plain"
}

func (d *TextDriver) Format(data interface{}) ([]byte, []byte, error) {
	if dataIf, ok := data.(fmt.Stringer); ok {
		return format.Key(data), []byte(dataIf.String()), nil
	}
	return nil, nil, format.ErrorNoSerializer
}

func init() {
	d := &TextDriver{}
	format.RegisterFormatDriver("text", d)
}
