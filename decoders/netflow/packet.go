package netflow

import (
	"fmt"
)

// FlowSetHeader contains fields shared by all Flow Sets (DataFlowSet,
// TemplateFlowSet, OptionsTemplateFlowSet).
type FlowSetHeader struct {
	// FlowSet ID:
	//    0 for TemplateFlowSet (2 in IPFIX)
	//    1 for OptionsTemplateFlowSet (3 in IPFIX)
	//    256-65535 for DataFlowSet (used as TemplateId)
	Id uint16 `json:"id"`

	// The total length of this FlowSet in bytes (including padding).
	Length uint16 `json:"length"`
}

// NFv9Packet is a decoded NetFlow v9 export packet.
type NFv9Packet struct {
	Version        uint16        `json:"version"`
	Count          uint16        `json:"count"`
	SystemUptime   uint32        `json:"system-uptime"`
	UnixSeconds    uint32        `json:"unix-seconds"`
	SequenceNumber uint32        `json:"sequence-number"`
	SourceId       uint32        `json:"source-id"`
	FlowSets       []interface{} `json:"flowsets"`
}

// IPFIXPacket is a decoded IPFIX message.
type IPFIXPacket struct {
	Version             uint16        `json:"version"`
	Length              uint16        `json:"length"`
	ExportTime          uint32        `json:"export-time"`
	SequenceNumber      uint32        `json:"sequence-number"`
	ObservationDomainId uint32        `json:"observation-domain-id"`
	FlowSets            []interface{} `json:"flowsets"`
}

// TemplateFlowSet is a collection of templates that describe structure of Data
// Records (actual NetFlow data).
type TemplateFlowSet struct {
	FlowSetHeader

	// List of Template Records
	Records []TemplateRecord `json:"records"`
}

// OptionsTemplateFlowSet is recognized but its content is not decoded.
type OptionsTemplateFlowSet struct {
	FlowSetHeader
}

// DataFlowSet is a collection of Data Records decoded with a known template.
type DataFlowSet struct {
	FlowSetHeader

	Records []DataRecord `json:"records"`
}

// RawFlowSet is a a set that could not be decoded due to the absence of a template
type RawFlowSet struct {
	FlowSetHeader

	Records []byte `json:"records"`
}

// TemplateRecord is a single template that describes structure of a Flow Record
// (actual Netflow data).
type TemplateRecord struct {
	// Template IDs of Data FlowSets are numbered from 256 to 65535.
	TemplateId uint16 `json:"template-id"`

	// Number of fields in this Template Record. A count of zero in IPFIX
	// withdraws the template.
	FieldCount uint16 `json:"field-count"`

	Fields []Field `json:"fields"`
}

type DataRecord struct {
	Values []DataField `json:"values"`
}

// Field describes type and length of a single value in a Flow Data Record.
// Type is kept as sent on the wire: in IPFIX an id with the high bit set is
// followed by an enterprise number.
type Field struct {
	PenProvided bool   `json:"pen-provided"`
	Type        uint16 `json:"type"`

	// The length (in bytes) of the field.
	Length uint16 `json:"length"`

	Pen uint32 `json:"pen"`
}

type DataField struct {
	PenProvided bool   `json:"pen-provided"`
	Type        uint16 `json:"type"`
	Pen         uint32 `json:"pen"`

	// Raw bytes of the field, sliced from the packet.
	Value []byte `json:"value"`
}

func (flowSet RawFlowSet) String() string {
	str := fmt.Sprintf("       Id %v\n", flowSet.Id)
	str += fmt.Sprintf("       Length: %v\n", len(flowSet.Records))
	return str
}

func (flowSet DataFlowSet) String(TypeToString func(uint16) string) string {
	str := fmt.Sprintf("       Id %v\n", flowSet.Id)
	str += fmt.Sprintf("       Length: %v\n", flowSet.Length)
	str += fmt.Sprintf("       Records (%v records):\n", len(flowSet.Records))

	for j, record := range flowSet.Records {
		str += fmt.Sprintf("       - Record %v:\n", j)
		for k, value := range record.Values {
			str += fmt.Sprintf("            - %v. %v (%v): %v\n", k, TypeToString(value.Type), value.Type, DecodeValue(value.Value))
		}
	}

	return str
}

func (flowSet TemplateFlowSet) String(TypeToString func(uint16) string) string {
	str := fmt.Sprintf("       Id %v\n", flowSet.Id)
	str += fmt.Sprintf("       Length: %v\n", flowSet.Length)
	str += fmt.Sprintf("       Records (%v records):\n", len(flowSet.Records))

	for j, record := range flowSet.Records {
		str += fmt.Sprintf("       - %v. Record:\n", j)
		str += fmt.Sprintf("            TemplateId: %v\n", record.TemplateId)
		str += fmt.Sprintf("            FieldCount: %v\n", record.FieldCount)
		for k, field := range record.Fields {
			str += fmt.Sprintf("            - %v. %v (%v/%v): %v\n", k, TypeToString(field.Type), field.Type, field.Pen, field.Length)
		}
	}

	return str
}
