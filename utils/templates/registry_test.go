package templates

import (
	"net/netip"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/netsampler/trustflow/decoders/netflow"
)

func TestRegistryExporterIds(t *testing.T) {
	r := NewRegistry(clock.NewMock(), time.Minute, nil)
	a := netip.MustParseAddr("192.0.2.1")
	b := netip.MustParseAddr("192.0.2.2")

	assert.Equal(t, uint32(1), r.ExporterId(a))
	assert.Equal(t, uint32(2), r.ExporterId(b))
	assert.Equal(t, uint32(1), r.ExporterId(a))
	assert.Equal(t, uint32(1), r.ExporterId(netip.MustParseAddr("::ffff:192.0.2.1")))
}

func TestRegistryStoresAreSeparate(t *testing.T) {
	r := NewRegistry(clock.NewMock(), time.Minute, nil)
	key := netflow.TemplateKey{ExporterId: 1, TemplateId: 256}
	r.NetFlowV9().AddTemplate(key, []netflow.Field{{Type: 8, Length: 4}})

	_, ok := r.IPFIX().GetTemplate(key)
	assert.False(t, ok)
	_, ok = r.NetFlowV9().GetTemplate(key)
	assert.True(t, ok)
}

func TestRegistrySweepAndDump(t *testing.T) {
	clk := clock.NewMock()
	r := NewRegistry(clk, time.Minute, nil)
	exporter := r.ExporterId(netip.MustParseAddr("192.0.2.1"))

	r.NetFlowV9().AddTemplate(netflow.TemplateKey{ExporterId: exporter, TemplateId: 256}, []netflow.Field{{Type: 8, Length: 4}})
	clk.Add(45 * time.Second)
	r.IPFIX().AddTemplate(netflow.TemplateKey{ExporterId: exporter, ObservationDomainId: 5, TemplateId: 300}, []netflow.Field{
		{Type: netflow.CISCO_FIELD_SGT_SOURCE, Length: 2, PenProvided: true, Pen: netflow.CiscoPEN},
		{Type: 12, Length: 4},
	})

	entries := r.Dump()
	require.Len(t, entries, 2)
	assert.Equal(t, ProtocolIPFIX, entries[0].Protocol)
	assert.Equal(t, "192.0.2.1", entries[0].Exporter)
	assert.Equal(t, uint32(5), entries[0].ObservationDomainId)
	assert.Equal(t, 8, entries[0].RecordSize)
	assert.Equal(t, "ciscoSourceSGT", entries[0].Fields[0].Name)
	assert.Equal(t, uint32(netflow.CiscoPEN), entries[0].Fields[0].Enterprise)
	assert.Equal(t, "IPV4_SRC_ADDR", entries[1].Fields[0].Name)

	clk.Add(30 * time.Second)
	assert.Equal(t, 1, r.SweepExpired())
	assert.Len(t, r.Dump(), 1)
}

func TestRegistryWrapper(t *testing.T) {
	var wrapped []string
	NewRegistry(clock.NewMock(), time.Minute, func(protocol string, store netflow.TemplateStore) netflow.TemplateStore {
		wrapped = append(wrapped, protocol)
		return store
	})
	assert.Equal(t, []string{ProtocolNetFlowV9, ProtocolIPFIX}, wrapped)
}
