package utils

// DecoderFunc processes one received datagram (a *Message).
type DecoderFunc func(msg interface{}) error

// ReceiverCallback is notified of datagrams the receiver could not queue.
type ReceiverCallback interface {
	Dropped(msg Message)
}

// FlowPipe decodes datagrams into flow records.
type FlowPipe interface {
	DecodeFlow(msg interface{}) error
	Close()
}
