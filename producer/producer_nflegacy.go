package producer

import (
	"encoding/binary"
	"net/netip"

	"github.com/netsampler/trustflow/decoders/netflowlegacy"
)

func addrFromUint32(v uint32) netip.Addr {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	return netip.AddrFrom4(b)
}

// legacyTime converts a router uptime (ms) into Unix seconds using the
// packet's wall clock and uptime.
func legacyTime(unixSecs, sysUptime, switched uint32) int64 {
	return (int64(unixSecs)*1000 - int64(sysUptime) + int64(switched)) / 1000
}

func ConvertNetFlowLegacyRecord(builder *RecordBuilder, baseTime uint32, uptime uint32, record netflowlegacy.RecordsNetFlowV5) *RecordBuilder {
	return builder.
		SourceAddress(addrFromUint32(record.SrcAddr)).
		DestinationAddress(addrFromUint32(record.DstAddr)).
		SourcePort(record.SrcPort).
		DestinationPort(record.DstPort).
		Protocol(record.Proto).
		PacketCount(uint64(record.DPkts)).
		ByteCount(uint64(record.DOctets)).
		FlowStart(legacyTime(baseTime, uptime, record.First)).
		FlowEnd(legacyTime(baseTime, uptime, record.Last))
}

func ProcessMessageNetFlowLegacy(packet *netflowlegacy.PacketNetFlowV5, exporter string) []FlowRecord {
	flowRecords := make([]FlowRecord, 0, len(packet.Records))
	for _, record := range packet.Records {
		flowRecord, err := ConvertNetFlowLegacyRecord(NewRecordBuilder(exporter), packet.UnixSecs, packet.SysUptime, record).Build()
		if err != nil {
			continue
		}
		flowRecords = append(flowRecords, flowRecord)
	}
	return flowRecords
}
