package transport

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingDriver struct {
	initErr error
	sendErr error
	sent    [][]byte
	md      []Metadata
	closed  bool
}

func (d *recordingDriver) Prepare() error { return nil }

func (d *recordingDriver) Init(ctx context.Context) error { return d.initErr }

func (d *recordingDriver) Close(ctx context.Context) error {
	d.closed = true
	return nil
}

func (d *recordingDriver) Send(ctx context.Context, key, data []byte) error {
	if md, ok := MetadataFromContext(ctx); ok {
		d.md = append(d.md, md)
	}
	d.sent = append(d.sent, data)
	return d.sendErr
}

func TestFindTransport(t *testing.T) {
	d := &recordingDriver{}
	RegisterTransportDriver("recording", d)
	assert.Contains(t, GetTransports(), "recording")

	tr, err := FindTransport(context.Background(), "recording")
	require.NoError(t, err)
	assert.Equal(t, "recording", tr.Name())
	assert.Equal(t, "recording", tr.Target())

	ctx := WithMetadata(context.Background(), Metadata{ContentType: "application/json", RecordCount: 2})
	require.NoError(t, tr.Send(ctx, []byte("k"), []byte("v")))
	assert.Equal(t, [][]byte{[]byte("v")}, d.sent)
	assert.Equal(t, []Metadata{{ContentType: "application/json", RecordCount: 2}}, d.md)

	require.NoError(t, tr.Close(context.Background()))
	assert.True(t, d.closed)
}

func TestFindTransportErrors(t *testing.T) {
	_, err := FindTransport(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrTransport)

	initErr := errors.New("cannot connect")
	RegisterTransportDriver("failing", &recordingDriver{initErr: initErr})
	_, err = FindTransport(context.Background(), "failing")
	assert.ErrorIs(t, err, initErr)
	assert.ErrorIs(t, err, ErrTransport)
}

func TestTransportSendError(t *testing.T) {
	sendErr := errors.New("unreachable")
	tr := NewTransport("direct", &recordingDriver{sendErr: sendErr})
	err := tr.Send(context.Background(), nil, []byte("v"))

	var driverErr *DriverTransportError
	require.ErrorAs(t, err, &driverErr)
	assert.Equal(t, "direct", driverErr.Driver)
	assert.ErrorIs(t, err, sendErr)
}
