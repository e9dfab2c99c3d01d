package config

import (
	"flag"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/netsampler/trustflow/utils"
)

func newFlagSet() *flag.FlagSet {
	fs := flag.NewFlagSet("trustflow", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(newFlagSet(), nil)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)

	listeners, err := cfg.Listeners()
	require.NoError(t, err)
	require.Len(t, listeners, 2)
	assert.Equal(t, utils.ProtocolAuto, listeners[0].Protocol)
	assert.Equal(t, 2055, listeners[0].Port)
	assert.Equal(t, utils.ProtocolIPFIX, listeners[1].Protocol)
	assert.Equal(t, 4739, listeners[1].Port)

	retryCfg := cfg.Retry()
	assert.Equal(t, 3, retryCfg.MaxAttempts)
	assert.Equal(t, time.Second, retryCfg.InitialDelay)
}

func TestLoadPriority(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trustflow.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
batch_size: 50
batch_interval: 2s
concurrency: 8
log_level: debug
`), 0o600))

	t.Setenv("TRUSTFLOW_BATCH_SIZE", "200")
	t.Setenv("TRUSTFLOW_RETRY_ATTEMPTS", "5")

	cfg, err := Load(newFlagSet(), []string{"-config", path, "-retry.attempts", "7", "-listen.ipfix", "0"})
	require.NoError(t, err)
	assert.Equal(t, 200, cfg.BatchSize)
	assert.Equal(t, 2*time.Second, cfg.BatchInterval)
	assert.Equal(t, 8, cfg.Concurrency)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 7, cfg.RetryAttempts)
	assert.Equal(t, path, cfg.ConfigFile)

	listeners, err := cfg.Listeners()
	require.NoError(t, err)
	assert.Len(t, listeners, 1)
}

func TestLoadConfigFromEnvironment(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trustflow.yaml")
	require.NoError(t, os.WriteFile(path, []byte("listen: nfv9://:9995\n"), 0o600))
	t.Setenv("TRUSTFLOW_CONFIG", path)

	cfg, err := Load(newFlagSet(), nil)
	require.NoError(t, err)
	listeners, err := cfg.Listeners()
	require.NoError(t, err)
	require.Len(t, listeners, 1)
	assert.Equal(t, utils.ProtocolNetFlowV9, listeners[0].Protocol)
	assert.Equal(t, 9995, listeners[0].Port)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(newFlagSet(), []string{"-listen.sflow", "6343"})
	assert.ErrorIs(t, err, ErrSFlowUnsupported)

	_, err = Load(newFlagSet(), []string{"-batch.size", "0"})
	assert.Error(t, err)

	_, err = Load(newFlagSet(), []string{"-listen.netflow", "0", "-listen.ipfix", "0"})
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "trustflow.yaml")
	require.NoError(t, os.WriteFile(path, []byte("unknown_key: 1\n"), 0o600))
	_, err = Load(newFlagSet(), []string{"-config", path})
	assert.Error(t, err)

	_, err = Load(newFlagSet(), []string{"-config", filepath.Join(t.TempDir(), "missing.yaml")})
	assert.Error(t, err)
}
