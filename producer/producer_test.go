package producer

import (
	"encoding/binary"
	"encoding/json"
	"net/netip"
	"testing"

	"github.com/netsampler/trustflow/decoders/netflow"
	"github.com/netsampler/trustflow/decoders/netflowlegacy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func field(id uint16, value []byte) netflow.DataField {
	return netflow.DataField{Type: id, Value: value}
}

func enterpriseField(pen uint32, id uint16, value []byte) netflow.DataField {
	return netflow.DataField{Type: id, PenProvided: true, Pen: pen, Value: value}
}

func be(width int, v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return b[8-width:]
}

func TestProcessNetFlowLegacy(t *testing.T) {
	packet := &netflowlegacy.PacketNetFlowV5{
		Version:   5,
		Count:     2,
		SysUptime: 120000,
		UnixSecs:  1700000000,
		Records: []netflowlegacy.RecordsNetFlowV5{
			{SrcAddr: 0x0a000001, DstAddr: 0x0a000002, DPkts: 10, DOctets: 1500, First: 100000, Last: 110000, SrcPort: 51000, DstPort: 443, Proto: 6},
			{SrcAddr: 0xc0a80101, DstAddr: 0x08080808, DPkts: 1, DOctets: 64, First: 119500, Last: 119500, SrcPort: 5353, DstPort: 53, Proto: 17},
		},
	}

	records, err := CreateProducer().Produce(packet, &ProduceArgs{Src: netip.MustParseAddrPort("192.0.2.10:50000")})
	require.NoError(t, err)
	require.Len(t, records, 2)

	record := records[0]
	assert.Equal(t, "10.0.0.1", record.SourceAddress().String())
	assert.Equal(t, "10.0.0.2", record.DestinationAddress().String())
	assert.Equal(t, "192.0.2.10", record.ExporterIdentity())
	port, _ := record.SourcePort()
	assert.Equal(t, uint16(51000), port)
	port, _ = record.DestinationPort()
	assert.Equal(t, uint16(443), port)
	protocol, _ := record.Protocol()
	assert.Equal(t, uint8(6), protocol)
	bytes, _ := record.ByteCount()
	assert.Equal(t, uint64(1500), bytes)
	packets, _ := record.PacketCount()
	assert.Equal(t, uint64(10), packets)
	start, ok := record.FlowStart()
	require.True(t, ok)
	assert.Equal(t, int64(1700000000-20), start)
	end, _ := record.FlowEnd()
	assert.Equal(t, int64(1700000000-10), end)

	// 1700000000000 - 120000 + 119500 ms truncates to the previous second
	start, _ = records[1].FlowStart()
	assert.Equal(t, int64(1699999999), start)

	_, ok = record.SourceSGT()
	assert.False(t, ok)
}

func TestConvertNetFlowDataSetMapping(t *testing.T) {
	values := []netflow.DataField{
		field(netflow.IPFIX_FIELD_sourceIPv4Address, []byte{10, 0, 0, 1}),
		field(netflow.IPFIX_FIELD_destinationIPv4Address, []byte{10, 0, 0, 2}),
		field(netflow.IPFIX_FIELD_sourceTransportPort, be(2, 51000)),
		field(netflow.IPFIX_FIELD_destinationTransportPort, be(2, 443)),
		field(netflow.IPFIX_FIELD_protocolIdentifier, be(1, 6)),
		field(netflow.IPFIX_FIELD_postOctetDeltaCount, be(4, 999)),
		field(netflow.IPFIX_FIELD_octetDeltaCount, be(8, 1500)),
		field(netflow.IPFIX_FIELD_packetTotalCount, be(4, 12)),
		field(netflow.IPFIX_FIELD_postSourceMacAddress, []byte{0, 1, 2, 3, 4, 5}),
		field(netflow.IPFIX_FIELD_postDestinationMacAddress, []byte{0xa, 0xb, 0xc, 0xd, 0xe, 0xf}),
		field(netflow.IPFIX_FIELD_dot1qVlanId, be(2, 300)),
		field(netflow.IPFIX_FIELD_flowStartMilliseconds, be(8, 1700000000500)),
		field(netflow.IPFIX_FIELD_flowEndSeconds, be(4, 1700000010)),
		field(netflow.CISCO_FIELD_SGT_SOURCE, be(2, 10)),
		field(netflow.CISCO_FIELD_SGT_DESTINATION, be(2, 20)),
	}

	record, err := ConvertNetFlowDataSet(NewRecordBuilder("192.0.2.1"), values, flowClock{}).Build()
	require.NoError(t, err)

	canonical := record.Canonical()
	assert.Equal(t, "10.0.0.1", canonical.SourceAddress)
	assert.Equal(t, uint64(1500), *canonical.ByteCount)
	assert.Equal(t, uint64(12), *canonical.PacketCount)
	assert.Equal(t, "00:01:02:03:04:05", *canonical.SourceMAC)
	assert.Equal(t, "0a:0b:0c:0d:0e:0f", *canonical.DestinationMAC)
	assert.Equal(t, uint16(300), *canonical.VlanID)
	assert.Equal(t, int64(1700000000), *canonical.FlowStart)
	assert.Equal(t, int64(1700000010), *canonical.FlowEnd)
	assert.Equal(t, uint16(10), *canonical.SourceSGT)
	assert.Equal(t, uint16(20), *canonical.DestinationSGT)
}

func TestConvertNetFlowDataSetEnterpriseSGT(t *testing.T) {
	values := []netflow.DataField{
		field(netflow.IPFIX_FIELD_sourceIPv4Address, []byte{10, 0, 0, 1}),
		field(netflow.IPFIX_FIELD_destinationIPv4Address, []byte{10, 0, 0, 2}),
		enterpriseField(netflow.CiscoPEN, netflow.CISCO_FIELD_SGT_SOURCE, be(2, 17)),
		enterpriseField(netflow.CiscoPEN, netflow.CISCO_FIELD_SGT_DESTINATION, be(2, 42)),
		enterpriseField(29305, netflow.CISCO_FIELD_SGT_SOURCE, be(2, 99)),
	}
	record, err := ConvertNetFlowDataSet(NewRecordBuilder("192.0.2.1"), values, flowClock{}).Build()
	require.NoError(t, err)

	sgt, ok := record.SourceSGT()
	require.True(t, ok)
	assert.Equal(t, uint16(17), sgt)
	sgt, ok = record.DestinationSGT()
	require.True(t, ok)
	assert.Equal(t, uint16(42), sgt)
}

func TestConvertNetFlowDataSetSkipsUnusableFields(t *testing.T) {
	values := []netflow.DataField{
		field(netflow.IPFIX_FIELD_sourceIPv4Address, []byte{10, 0, 0, 1}),
		field(netflow.IPFIX_FIELD_destinationIPv4Address, []byte{10, 0, 0, 2}),
		field(netflow.IPFIX_FIELD_octetDeltaCount, be(3, 1500)),
		field(netflow.IPFIX_FIELD_sourceIPv6Address, make([]byte, 16)),
		field(netflow.IPFIX_FIELD_sourceMacAddress, be(4, 1)),
	}
	record, err := ConvertNetFlowDataSet(NewRecordBuilder("192.0.2.1"), values, flowClock{}).Build()
	require.NoError(t, err)
	_, ok := record.ByteCount()
	assert.False(t, ok)
	_, ok = record.SourceMAC()
	assert.False(t, ok)
}

func TestProcessNetFlowV9Uptime(t *testing.T) {
	packet := &netflow.NFv9Packet{
		SystemUptime: 60000,
		UnixSeconds:  1700000000,
		FlowSets: []interface{}{
			netflow.TemplateFlowSet{},
			netflow.DataFlowSet{Records: []netflow.DataRecord{{Values: []netflow.DataField{
				field(netflow.NFV9_FIELD_IPV4_SRC_ADDR, []byte{10, 0, 0, 1}),
				field(netflow.NFV9_FIELD_IPV4_DST_ADDR, []byte{10, 0, 0, 2}),
				field(netflow.NFV9_FIELD_FIRST_SWITCHED, be(4, 30000)),
				field(netflow.NFV9_FIELD_LAST_SWITCHED, be(4, 59000)),
			}}}},
		},
	}
	records := ProcessMessageNetFlowV9(packet, "192.0.2.1")
	require.Len(t, records, 1)
	start, _ := records[0].FlowStart()
	end, _ := records[0].FlowEnd()
	assert.Equal(t, int64(1700000000-30), start)
	assert.Equal(t, int64(1700000000-1), end)
}

func TestProcessIPFIXUptime(t *testing.T) {
	values := []netflow.DataField{
		field(netflow.IPFIX_FIELD_sourceIPv4Address, []byte{10, 0, 0, 1}),
		field(netflow.IPFIX_FIELD_destinationIPv4Address, []byte{10, 0, 0, 2}),
		field(netflow.IPFIX_FIELD_flowStartSysUpTime, be(4, 2000)),
	}
	packet := &netflow.IPFIXPacket{FlowSets: []interface{}{
		netflow.DataFlowSet{Records: []netflow.DataRecord{
			{Values: values},
			{Values: append(values, field(netflow.IPFIX_FIELD_systemInitTimeMilliseconds, be(8, 1700000000000)))},
		}},
	}}
	records := ProcessMessageIPFIX(packet, "192.0.2.1")
	require.Len(t, records, 2)
	_, ok := records[0].FlowStart()
	assert.False(t, ok)
	start, ok := records[1].FlowStart()
	require.True(t, ok)
	assert.Equal(t, int64(1700000002), start)
}

func TestRecordMissingAddressDiscarded(t *testing.T) {
	packet := &netflow.NFv9Packet{FlowSets: []interface{}{
		netflow.DataFlowSet{Records: []netflow.DataRecord{
			{Values: []netflow.DataField{field(netflow.NFV9_FIELD_IPV4_SRC_ADDR, []byte{10, 0, 0, 1})}},
			{Values: []netflow.DataField{
				field(netflow.NFV9_FIELD_IPV6_SRC_ADDR, make([]byte, 16)),
				field(netflow.NFV9_FIELD_IPV6_DST_ADDR, make([]byte, 16)),
			}},
		}},
	}}
	assert.Empty(t, ProcessMessageNetFlowV9(packet, "192.0.2.1"))

	_, err := NewRecordBuilder("x").SourceAddress(netip.MustParseAddr("10.0.0.1")).Build()
	assert.ErrorIs(t, err, ErrMissingAddress)
}

func TestRecordJSON(t *testing.T) {
	record, err := NewRecordBuilder("192.0.2.1").
		SourceAddress(netip.MustParseAddr("10.0.0.1")).
		DestinationAddress(netip.MustParseAddr("10.0.0.2")).
		DestinationPort(443).
		SourceSGT(0).
		Build()
	require.NoError(t, err)

	data, err := json.Marshal(record)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"source_address": "10.0.0.1",
		"destination_address": "10.0.0.2",
		"destination_port": 443,
		"source_sgt": 0,
		"exporter_identity": "192.0.2.1"
	}`, string(data))
}

func TestPanicProducer(t *testing.T) {
	_, err := WrapPanicProducer(CreateProducer()).Produce(&netflow.NFv9Packet{}, nil)
	assert.ErrorIs(t, err, ProducerError)

	_, err = CreateProducer().Produce("garbage", &ProduceArgs{})
	assert.Error(t, err)
}
