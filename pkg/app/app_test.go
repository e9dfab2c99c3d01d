package app

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "github.com/netsampler/trustflow/format/json"
	"github.com/netsampler/trustflow/pkg/config"
	_ "github.com/netsampler/trustflow/transport/file"
)

func TestNew(t *testing.T) {
	cfg := config.Default()
	cfg.Transport = "file"
	cfg.Addr = ""

	a, err := New(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, "stdout", a.collector.Target())
	assert.False(t, a.collector.Collecting())
	assert.Nil(t, a.server)

	a.Shutdown(context.Background())
}

func TestNewErrors(t *testing.T) {
	cfg := config.Default()
	cfg.Transport = "file"
	cfg.Format = "xml"
	_, err := New(context.Background(), cfg)
	assert.Error(t, err)

	cfg = config.Default()
	cfg.Transport = "pigeon"
	_, err = New(context.Background(), cfg)
	assert.Error(t, err)

	cfg = config.Default()
	cfg.LogLevel = "loud"
	_, err = New(context.Background(), cfg)
	assert.Error(t, err)
}
