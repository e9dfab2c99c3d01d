package nats

import (
	"context"
	"errors"
	"testing"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/netsampler/trustflow/transport"
)

type fakePublisher struct {
	msgs []*nats.Msg
	err  error
}

func (p *fakePublisher) PublishMsg(ctx context.Context, msg *nats.Msg, opts ...jetstream.PublishOpt) (*jetstream.PubAck, error) {
	if p.err != nil {
		return nil, p.err
	}
	p.msgs = append(p.msgs, msg)
	return &jetstream.PubAck{Stream: "trustflow", Sequence: uint64(len(p.msgs))}, nil
}

func TestNATSDriverSend(t *testing.T) {
	js := &fakePublisher{}
	d := NewDriver(Config{URL: "nats://localhost:4222", Subject: "trustflow.records"}, js)
	require.NoError(t, d.Init(context.Background()))
	assert.Equal(t, "nats://localhost:4222/trustflow.records", d.Target())

	ctx := transport.WithMetadata(context.Background(), transport.Metadata{ContentType: "application/json", RecordCount: 4})
	require.NoError(t, d.Send(ctx, []byte("192.0.2.1"), []byte("{}")))

	require.Len(t, js.msgs, 1)
	msg := js.msgs[0]
	assert.Equal(t, "trustflow.records", msg.Subject)
	assert.Equal(t, []byte("{}"), msg.Data)
	assert.Equal(t, "192.0.2.1", msg.Header.Get("Exporter-Identity"))
	assert.Equal(t, "4", msg.Header.Get("Record-Count"))
	require.NoError(t, d.Close(context.Background()))
}

func TestNATSDriverSendError(t *testing.T) {
	d := NewDriver(Config{Subject: "trustflow.records"}, &fakePublisher{err: jetstream.ErrNoStreamResponse})
	err := d.Send(context.Background(), nil, []byte("{}"))
	assert.ErrorIs(t, err, jetstream.ErrNoStreamResponse)
	assert.ErrorIs(t, err, transport.ErrTransport)

	d = &Driver{}
	assert.True(t, errors.As(d.Send(context.Background(), nil, nil), new(*TransportError)))
}
