package debug

import (
	"fmt"
	"runtime/debug"

	"github.com/netsampler/trustflow/utils"
)

// PanicDecoderWrapper recovers a panic of the wrapped decoder and returns it
// as a *PanicErrorMessage carrying the stack.
func PanicDecoderWrapper(wrapped utils.DecoderFunc) utils.DecoderFunc {
	return func(msg interface{}) (err error) {
		defer func() {
			if pErr := recover(); pErr != nil {
				err = &PanicErrorMessage{Msg: msg, Inner: fmt.Sprint(pErr), Stacktrace: debug.Stack()}
			}
		}()
		err = wrapped(msg)
		return err
	}
}
