package listen

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/netsampler/trustflow/utils"
)

func TestParseListenAddresses(t *testing.T) {
	cfgs, err := ParseListenAddresses("netflow://:2055?count=2, ipfix://127.0.0.1:4739?blocking=true&queue_size=10")
	require.NoError(t, err)
	require.Len(t, cfgs, 2)

	assert.Equal(t, ListenerConfig{
		Scheme:     "netflow",
		Protocol:   utils.ProtocolAuto,
		Port:       2055,
		NumSockets: 2,
		NumWorkers: 4,
		QueueSize:  defaultQueueSize,
	}, cfgs[0])
	assert.Equal(t, ListenerConfig{
		Scheme:     "ipfix",
		Protocol:   utils.ProtocolIPFIX,
		Hostname:   "127.0.0.1",
		Port:       4739,
		NumSockets: 1,
		NumWorkers: 2,
		Blocking:   true,
		QueueSize:  10,
	}, cfgs[1])
	assert.Equal(t, "ipfix://127.0.0.1:4739", cfgs[1].String())
}

func TestParseListenAddressesErrors(t *testing.T) {
	for _, address := range []string{
		"sflow://:6343",
		"bgp://:179",
		"netflow://:notaport",
		"netflow://:2055?count=-1",
		"netflow://:2055?blocking=maybe",
		"netflow://:2055,ipfix://:2055",
		"",
	} {
		_, err := ParseListenAddresses(address)
		assert.Error(t, err, address)
	}
}

func TestDefaultListenAddresses(t *testing.T) {
	assert.Equal(t, "netflow://0.0.0.0:2055,ipfix://0.0.0.0:4739", DefaultListenAddresses("0.0.0.0", 2055, 4739, 1))
	assert.Equal(t, "netflow://[::]:2055?count=4", DefaultListenAddresses("::", 2055, 0, 4))

	cfgs, err := ParseListenAddresses(DefaultListenAddresses("0.0.0.0", 2055, 4739, 1))
	require.NoError(t, err)
	assert.Len(t, cfgs, 2)
}
