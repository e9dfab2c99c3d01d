package producer

import (
	"net/netip"

	"github.com/netsampler/trustflow/decoders/netflow"
)

type fieldKey struct {
	pen uint32
	id  uint16
}

// fieldTable indexes the values of one data record. The first occurrence of
// an element wins.
type fieldTable map[fieldKey][]byte

func newFieldTable(values []netflow.DataField) fieldTable {
	table := make(fieldTable, len(values))
	for _, value := range values {
		key := fieldKey{id: value.Type}
		if value.PenProvided {
			key.pen = value.Pen
		}
		if _, ok := table[key]; !ok {
			table[key] = value.Value
		}
	}
	return table
}

func (t fieldTable) value(pen uint32, id uint16) (netflow.Value, bool) {
	raw, ok := t[fieldKey{pen, id}]
	if !ok {
		return netflow.Value{}, false
	}
	value := netflow.DecodeValue(raw)
	return value, !value.IsNone()
}

// unsigned returns the first listed element carrying an integer.
func (t fieldTable) unsigned(ids ...uint16) (uint64, bool) {
	for _, id := range ids {
		if value, ok := t.value(0, id); ok && value.Kind == netflow.ValueUnsigned {
			return value.Unsigned, true
		}
	}
	return 0, false
}

func (t fieldTable) mac(ids ...uint16) (string, bool) {
	for _, id := range ids {
		if value, ok := t.value(0, id); ok && value.Kind == netflow.ValueMAC {
			return value.Text, true
		}
	}
	return "", false
}

func (t fieldTable) addr(id uint16) (netip.Addr, bool) {
	raw, ok := t[fieldKey{0, id}]
	if !ok || len(raw) != 4 {
		return netip.Addr{}, false
	}
	return netip.AddrFrom4([4]byte(raw)), true
}

// sgt looks for the bare element then for the Cisco enterprise element.
func (t fieldTable) sgt(id uint16) (uint16, bool) {
	if v, ok := t.unsigned(id); ok {
		return uint16(v), true
	}
	if value, ok := t.value(netflow.CiscoPEN, id); ok && value.Kind == netflow.ValueUnsigned {
		return uint16(value.Unsigned), true
	}
	return 0, false
}

// flowClock anchors exporter uptime based timestamps. A zero value means
// uptime based timestamps cannot be converted.
type flowClock struct {
	// unix time in ms at which the exporter uptime was zero
	bootMs int64
	valid  bool
}

func (c flowClock) seconds(uptimeMs uint64) int64 {
	return (c.bootMs + int64(uptimeMs)) / 1000
}

func (t fieldTable) times(bootClock flowClock) (start, end int64, hasStart, hasEnd bool) {
	if v, ok := t.unsigned(netflow.IPFIX_FIELD_flowStartMilliseconds); ok {
		start, hasStart = int64(v/1000), true
	} else if v, ok := t.unsigned(netflow.IPFIX_FIELD_flowStartSeconds); ok {
		start, hasStart = int64(v), true
	} else if v, ok := t.unsigned(netflow.IPFIX_FIELD_flowStartSysUpTime); ok && bootClock.valid {
		start, hasStart = bootClock.seconds(v), true
	}

	if v, ok := t.unsigned(netflow.IPFIX_FIELD_flowEndMilliseconds); ok {
		end, hasEnd = int64(v/1000), true
	} else if v, ok := t.unsigned(netflow.IPFIX_FIELD_flowEndSeconds); ok {
		end, hasEnd = int64(v), true
	} else if v, ok := t.unsigned(netflow.IPFIX_FIELD_flowEndSysUpTime); ok && bootClock.valid {
		end, hasEnd = bootClock.seconds(v), true
	}
	return start, end, hasStart, hasEnd
}

// ConvertNetFlowDataSet maps the values of a v9 or IPFIX data record onto a
// builder. NetFlow v9 and IPFIX share the element ids used here.
func ConvertNetFlowDataSet(builder *RecordBuilder, values []netflow.DataField, bootClock flowClock) *RecordBuilder {
	table := newFieldTable(values)

	if addr, ok := table.addr(netflow.IPFIX_FIELD_sourceIPv4Address); ok {
		builder.SourceAddress(addr)
	}
	if addr, ok := table.addr(netflow.IPFIX_FIELD_destinationIPv4Address); ok {
		builder.DestinationAddress(addr)
	}
	if v, ok := table.unsigned(netflow.IPFIX_FIELD_sourceTransportPort); ok {
		builder.SourcePort(uint16(v))
	}
	if v, ok := table.unsigned(netflow.IPFIX_FIELD_destinationTransportPort); ok {
		builder.DestinationPort(uint16(v))
	}
	if v, ok := table.unsigned(netflow.IPFIX_FIELD_protocolIdentifier); ok {
		builder.Protocol(uint8(v))
	}
	if v, ok := table.unsigned(
		netflow.IPFIX_FIELD_octetDeltaCount,
		netflow.IPFIX_FIELD_octetTotalCount,
		netflow.IPFIX_FIELD_postOctetDeltaCount,
	); ok {
		builder.ByteCount(v)
	}
	if v, ok := table.unsigned(
		netflow.IPFIX_FIELD_packetDeltaCount,
		netflow.IPFIX_FIELD_packetTotalCount,
		netflow.IPFIX_FIELD_postPacketDeltaCount,
	); ok {
		builder.PacketCount(v)
	}
	if mac, ok := table.mac(netflow.IPFIX_FIELD_sourceMacAddress, netflow.IPFIX_FIELD_postSourceMacAddress); ok {
		builder.SourceMAC(mac)
	}
	if mac, ok := table.mac(netflow.IPFIX_FIELD_destinationMacAddress, netflow.IPFIX_FIELD_postDestinationMacAddress); ok {
		builder.DestinationMAC(mac)
	}
	if v, ok := table.unsigned(netflow.IPFIX_FIELD_vlanId, netflow.IPFIX_FIELD_dot1qVlanId); ok {
		builder.VlanID(uint16(v))
	}

	start, end, hasStart, hasEnd := table.times(bootClock)
	if hasStart {
		builder.FlowStart(start)
	}
	if hasEnd {
		builder.FlowEnd(end)
	}

	if v, ok := table.sgt(netflow.CISCO_FIELD_SGT_SOURCE); ok {
		builder.SourceSGT(v)
	}
	if v, ok := table.sgt(netflow.CISCO_FIELD_SGT_DESTINATION); ok {
		builder.DestinationSGT(v)
	}
	return builder
}

func SearchNetFlowDataSets(flowSets []interface{}, exporter string, bootClock flowClock, ipfixInit bool) []FlowRecord {
	var flowRecords []FlowRecord
	for _, flowSet := range flowSets {
		dataFlowSet, ok := flowSet.(netflow.DataFlowSet)
		if !ok {
			continue
		}
		for _, record := range dataFlowSet.Records {
			recordClock := bootClock
			if ipfixInit {
				if v, ok := newFieldTable(record.Values).unsigned(netflow.IPFIX_FIELD_systemInitTimeMilliseconds); ok {
					recordClock = flowClock{bootMs: int64(v), valid: true}
				}
			}
			flowRecord, err := ConvertNetFlowDataSet(NewRecordBuilder(exporter), record.Values, recordClock).Build()
			if err != nil {
				continue
			}
			flowRecords = append(flowRecords, flowRecord)
		}
	}
	return flowRecords
}

func ProcessMessageNetFlowV9(packet *netflow.NFv9Packet, exporter string) []FlowRecord {
	bootClock := flowClock{
		bootMs: int64(packet.UnixSeconds)*1000 - int64(packet.SystemUptime),
		valid:  true,
	}
	return SearchNetFlowDataSets(packet.FlowSets, exporter, bootClock, false)
}

// ProcessMessageIPFIX converts an IPFIX message. Uptime based timestamps are
// only converted when the record carries the exporter initialisation time.
func ProcessMessageIPFIX(packet *netflow.IPFIXPacket, exporter string) []FlowRecord {
	return SearchNetFlowDataSets(packet.FlowSets, exporter, flowClock{}, true)
}
