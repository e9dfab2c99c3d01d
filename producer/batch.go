package producer

import (
	"encoding/json"
	"fmt"
	"strings"

	"google.golang.org/protobuf/encoding/protowire"
)

// Batch holds the records of one exporter delivered in a single request.
type Batch struct {
	Exporter string
	Records  []FlowRecord
}

// GroupByExporter splits records per exporter identity, keeping the order in
// which exporters and their records appear.
func GroupByExporter(records []FlowRecord) []*Batch {
	var batches []*Batch
	index := make(map[string]*Batch)
	for _, record := range records {
		batch, ok := index[record.exporterIdentity]
		if !ok {
			batch = &Batch{Exporter: record.exporterIdentity}
			index[record.exporterIdentity] = batch
			batches = append(batches, batch)
		}
		batch.Records = append(batch.Records, record)
	}
	return batches
}

func (b *Batch) Key() []byte {
	return []byte(b.Exporter)
}

func (b *Batch) String() string {
	lines := make([]string, 0, len(b.Records))
	for _, record := range b.Records {
		lines = append(lines, record.String())
	}
	return strings.Join(lines, "\n")
}

type canonicalBatch struct {
	ExporterIdentity string            `json:"exporter_identity"`
	Records          []CanonicalRecord `json:"records"`
}

func (b *Batch) MarshalJSON() ([]byte, error) {
	out := canonicalBatch{
		ExporterIdentity: b.Exporter,
		Records:          make([]CanonicalRecord, 0, len(b.Records)),
	}
	for _, record := range b.Records {
		out.Records = append(out.Records, record.Canonical())
	}
	return json.Marshal(out)
}

// Protobuf field numbers of the binary encoding.
const (
	batchFieldExporter = 1
	batchFieldRecords  = 2

	recordFieldSourceAddress      = 1
	recordFieldDestinationAddress = 2
	recordFieldSourcePort         = 3
	recordFieldDestinationPort    = 4
	recordFieldProtocol           = 5
	recordFieldByteCount          = 6
	recordFieldPacketCount        = 7
	recordFieldFlowStart          = 8
	recordFieldFlowEnd            = 9
	recordFieldSourceMAC          = 10
	recordFieldDestinationMAC     = 11
	recordFieldVlanID             = 12
	recordFieldSourceSGT          = 13
	recordFieldDestinationSGT     = 14
	recordFieldExporterIdentity   = 15
)

func appendVarint(b []byte, num protowire.Number, v uint64) []byte {
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

func appendBytes(b []byte, num protowire.Number, v []byte) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, v)
}

// AppendBinary appends the protobuf wire encoding of the record. Absent
// optional attributes are not encoded.
func (r FlowRecord) AppendBinary(b []byte) []byte {
	src := r.sourceAddress.As4()
	dst := r.destinationAddress.As4()
	b = appendBytes(b, recordFieldSourceAddress, src[:])
	b = appendBytes(b, recordFieldDestinationAddress, dst[:])
	if r.has(attrSourcePort) {
		b = appendVarint(b, recordFieldSourcePort, uint64(r.sourcePort))
	}
	if r.has(attrDestinationPort) {
		b = appendVarint(b, recordFieldDestinationPort, uint64(r.destinationPort))
	}
	if r.has(attrProtocol) {
		b = appendVarint(b, recordFieldProtocol, uint64(r.protocol))
	}
	if r.has(attrByteCount) {
		b = appendVarint(b, recordFieldByteCount, r.byteCount)
	}
	if r.has(attrPacketCount) {
		b = appendVarint(b, recordFieldPacketCount, r.packetCount)
	}
	if r.has(attrFlowStart) {
		b = appendVarint(b, recordFieldFlowStart, uint64(r.flowStart))
	}
	if r.has(attrFlowEnd) {
		b = appendVarint(b, recordFieldFlowEnd, uint64(r.flowEnd))
	}
	if r.has(attrSourceMAC) {
		b = appendBytes(b, recordFieldSourceMAC, []byte(r.sourceMAC))
	}
	if r.has(attrDestinationMAC) {
		b = appendBytes(b, recordFieldDestinationMAC, []byte(r.destinationMAC))
	}
	if r.has(attrVlanID) {
		b = appendVarint(b, recordFieldVlanID, uint64(r.vlanID))
	}
	if r.has(attrSourceSGT) {
		b = appendVarint(b, recordFieldSourceSGT, uint64(r.sourceSGT))
	}
	if r.has(attrDestinationSGT) {
		b = appendVarint(b, recordFieldDestinationSGT, uint64(r.destinationSGT))
	}
	b = appendBytes(b, recordFieldExporterIdentity, []byte(r.exporterIdentity))
	return b
}

func (r FlowRecord) MarshalBinary() ([]byte, error) {
	return r.AppendBinary(nil), nil
}

// MarshalBinary encodes the batch as a protobuf message with the exporter
// identity in field 1 and each record as an embedded message in field 2.
func (b *Batch) MarshalBinary() ([]byte, error) {
	buf := appendBytes(nil, batchFieldExporter, []byte(b.Exporter))
	var record []byte
	for i, r := range b.Records {
		if !r.sourceAddress.Is4() || !r.destinationAddress.Is4() {
			return nil, fmt.Errorf("record %d: %w", i, ErrMissingAddress)
		}
		record = r.AppendBinary(record[:0])
		buf = appendBytes(buf, batchFieldRecords, record)
	}
	return buf, nil
}
