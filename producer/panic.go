package producer

import (
	"errors"
	"fmt"
	"runtime/debug"
)

var (
	ProducerError = errors.New("producer error")
)

type ProducerErrorMessage struct {
	Msg        interface{}
	Inner      string
	Stacktrace []byte
}

func (e *ProducerErrorMessage) Error() string {
	return e.Inner
}

func (e *ProducerErrorMessage) Unwrap() []error {
	return []error{ProducerError}
}

type PanicProducerWrapper struct {
	wrapped ProducerInterface
}

func (p *PanicProducerWrapper) Produce(msg interface{}, args *ProduceArgs) (flowRecords []FlowRecord, err error) {
	defer func() {
		if pErr := recover(); pErr != nil {
			err = &ProducerErrorMessage{Msg: msg, Inner: fmt.Sprint(pErr), Stacktrace: debug.Stack()}
		}
	}()

	flowRecords, err = p.wrapped.Produce(msg, args)
	return flowRecords, err
}

func (p *PanicProducerWrapper) Close() {
	p.wrapped.Close()
}

func WrapPanicProducer(wrapped ProducerInterface) ProducerInterface {
	return &PanicProducerWrapper{
		wrapped: wrapped,
	}
}
