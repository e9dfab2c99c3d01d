package producer

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/netip"
)

var ErrMissingAddress = errors.New("flow record requires source and destination addresses")

type attribute uint16

const (
	attrSourcePort attribute = 1 << iota
	attrDestinationPort
	attrProtocol
	attrByteCount
	attrPacketCount
	attrFlowStart
	attrFlowEnd
	attrSourceMAC
	attrDestinationMAC
	attrVlanID
	attrSourceSGT
	attrDestinationSGT
)

// FlowRecord is the canonical, immutable representation of one flow. It is
// created with a RecordBuilder.
type FlowRecord struct {
	sourceAddress      netip.Addr
	destinationAddress netip.Addr
	sourcePort         uint16
	destinationPort    uint16
	protocol           uint8
	byteCount          uint64
	packetCount        uint64
	flowStart          int64
	flowEnd            int64
	sourceMAC          string
	destinationMAC     string
	vlanID             uint16
	sourceSGT          uint16
	destinationSGT     uint16
	exporterIdentity   string

	present attribute
}

func (r FlowRecord) has(a attribute) bool {
	return r.present&a != 0
}

func (r FlowRecord) SourceAddress() netip.Addr      { return r.sourceAddress }
func (r FlowRecord) DestinationAddress() netip.Addr { return r.destinationAddress }
func (r FlowRecord) ExporterIdentity() string       { return r.exporterIdentity }

func (r FlowRecord) SourcePort() (uint16, bool)      { return r.sourcePort, r.has(attrSourcePort) }
func (r FlowRecord) DestinationPort() (uint16, bool) { return r.destinationPort, r.has(attrDestinationPort) }
func (r FlowRecord) Protocol() (uint8, bool)         { return r.protocol, r.has(attrProtocol) }
func (r FlowRecord) ByteCount() (uint64, bool)       { return r.byteCount, r.has(attrByteCount) }
func (r FlowRecord) PacketCount() (uint64, bool)     { return r.packetCount, r.has(attrPacketCount) }
func (r FlowRecord) FlowStart() (int64, bool)        { return r.flowStart, r.has(attrFlowStart) }
func (r FlowRecord) FlowEnd() (int64, bool)          { return r.flowEnd, r.has(attrFlowEnd) }
func (r FlowRecord) SourceMAC() (string, bool)       { return r.sourceMAC, r.has(attrSourceMAC) }
func (r FlowRecord) DestinationMAC() (string, bool)  { return r.destinationMAC, r.has(attrDestinationMAC) }
func (r FlowRecord) VlanID() (uint16, bool)          { return r.vlanID, r.has(attrVlanID) }
func (r FlowRecord) SourceSGT() (uint16, bool)       { return r.sourceSGT, r.has(attrSourceSGT) }
func (r FlowRecord) DestinationSGT() (uint16, bool)  { return r.destinationSGT, r.has(attrDestinationSGT) }

func (r FlowRecord) String() string {
	return fmt.Sprintf("%s %s -> %s", r.exporterIdentity, r.sourceAddress, r.destinationAddress)
}

// CanonicalRecord is the attribute form used on the wire. Absent optional
// attributes are omitted.
type CanonicalRecord struct {
	SourceAddress      string  `json:"source_address"`
	DestinationAddress string  `json:"destination_address"`
	SourcePort         *uint16 `json:"source_port,omitempty"`
	DestinationPort    *uint16 `json:"destination_port,omitempty"`
	Protocol           *uint8  `json:"protocol,omitempty"`
	ByteCount          *uint64 `json:"byte_count,omitempty"`
	PacketCount        *uint64 `json:"packet_count,omitempty"`
	FlowStart          *int64  `json:"flow_start,omitempty"`
	FlowEnd            *int64  `json:"flow_end,omitempty"`
	SourceMAC          *string `json:"source_mac,omitempty"`
	DestinationMAC     *string `json:"destination_mac,omitempty"`
	VlanID             *uint16 `json:"vlan_id,omitempty"`
	SourceSGT          *uint16 `json:"source_sgt,omitempty"`
	DestinationSGT     *uint16 `json:"destination_sgt,omitempty"`
	ExporterIdentity   string  `json:"exporter_identity"`
}

func optional[T any](v T, ok bool) *T {
	if !ok {
		return nil
	}
	return &v
}

func (r FlowRecord) Canonical() CanonicalRecord {
	return CanonicalRecord{
		SourceAddress:      r.sourceAddress.String(),
		DestinationAddress: r.destinationAddress.String(),
		SourcePort:         optional(r.sourcePort, r.has(attrSourcePort)),
		DestinationPort:    optional(r.destinationPort, r.has(attrDestinationPort)),
		Protocol:           optional(r.protocol, r.has(attrProtocol)),
		ByteCount:          optional(r.byteCount, r.has(attrByteCount)),
		PacketCount:        optional(r.packetCount, r.has(attrPacketCount)),
		FlowStart:          optional(r.flowStart, r.has(attrFlowStart)),
		FlowEnd:            optional(r.flowEnd, r.has(attrFlowEnd)),
		SourceMAC:          optional(r.sourceMAC, r.has(attrSourceMAC)),
		DestinationMAC:     optional(r.destinationMAC, r.has(attrDestinationMAC)),
		VlanID:             optional(r.vlanID, r.has(attrVlanID)),
		SourceSGT:          optional(r.sourceSGT, r.has(attrSourceSGT)),
		DestinationSGT:     optional(r.destinationSGT, r.has(attrDestinationSGT)),
		ExporterIdentity:   r.exporterIdentity,
	}
}

func (r FlowRecord) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.Canonical())
}

// RecordBuilder accumulates attributes of a FlowRecord. Build performs the
// address validation.
type RecordBuilder struct {
	record FlowRecord
}

func NewRecordBuilder(exporterIdentity string) *RecordBuilder {
	return &RecordBuilder{record: FlowRecord{exporterIdentity: exporterIdentity}}
}

func (b *RecordBuilder) SourceAddress(addr netip.Addr) *RecordBuilder {
	b.record.sourceAddress = addr
	return b
}

func (b *RecordBuilder) DestinationAddress(addr netip.Addr) *RecordBuilder {
	b.record.destinationAddress = addr
	return b
}

func (b *RecordBuilder) SourcePort(port uint16) *RecordBuilder {
	b.record.sourcePort = port
	b.record.present |= attrSourcePort
	return b
}

func (b *RecordBuilder) DestinationPort(port uint16) *RecordBuilder {
	b.record.destinationPort = port
	b.record.present |= attrDestinationPort
	return b
}

func (b *RecordBuilder) Protocol(protocol uint8) *RecordBuilder {
	b.record.protocol = protocol
	b.record.present |= attrProtocol
	return b
}

func (b *RecordBuilder) ByteCount(count uint64) *RecordBuilder {
	b.record.byteCount = count
	b.record.present |= attrByteCount
	return b
}

func (b *RecordBuilder) PacketCount(count uint64) *RecordBuilder {
	b.record.packetCount = count
	b.record.present |= attrPacketCount
	return b
}

func (b *RecordBuilder) FlowStart(seconds int64) *RecordBuilder {
	b.record.flowStart = seconds
	b.record.present |= attrFlowStart
	return b
}

func (b *RecordBuilder) FlowEnd(seconds int64) *RecordBuilder {
	b.record.flowEnd = seconds
	b.record.present |= attrFlowEnd
	return b
}

func (b *RecordBuilder) SourceMAC(mac string) *RecordBuilder {
	b.record.sourceMAC = mac
	b.record.present |= attrSourceMAC
	return b
}

func (b *RecordBuilder) DestinationMAC(mac string) *RecordBuilder {
	b.record.destinationMAC = mac
	b.record.present |= attrDestinationMAC
	return b
}

func (b *RecordBuilder) VlanID(vlan uint16) *RecordBuilder {
	b.record.vlanID = vlan
	b.record.present |= attrVlanID
	return b
}

func (b *RecordBuilder) SourceSGT(sgt uint16) *RecordBuilder {
	b.record.sourceSGT = sgt
	b.record.present |= attrSourceSGT
	return b
}

func (b *RecordBuilder) DestinationSGT(sgt uint16) *RecordBuilder {
	b.record.destinationSGT = sgt
	b.record.present |= attrDestinationSGT
	return b
}

// Build returns the record once both addresses are set.
func (b *RecordBuilder) Build() (FlowRecord, error) {
	if !b.record.sourceAddress.IsValid() || !b.record.destinationAddress.IsValid() {
		return FlowRecord{}, ErrMissingAddress
	}
	return b.record, nil
}
