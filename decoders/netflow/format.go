package netflow

import (
	"fmt"
)

// MarshalText formats a concise summary of the packet.
func (p *IPFIXPacket) MarshalText() ([]byte, error) {
	return []byte(fmt.Sprintf("IPFIX count:%d seq:%d domain:%d", len(p.FlowSets), p.SequenceNumber, p.ObservationDomainId)), nil
}

// MarshalText formats a concise summary of the packet.
func (p *NFv9Packet) MarshalText() ([]byte, error) {
	return []byte(fmt.Sprintf("NetFlowV%d count:%d seq:%d", p.Version, p.Count, p.SequenceNumber)), nil
}

func (p IPFIXPacket) String() string {
	str := "IPFIX Packet\n"
	str += "-------------\n"
	str += fmt.Sprintf("  Version: %v\n", p.Version)
	str += fmt.Sprintf("  Length:  %v\n", p.Length)
	str += fmt.Sprintf("  ExportTime: %v\n", p.ExportTime)
	str += fmt.Sprintf("  SequenceNumber: %v\n", p.SequenceNumber)
	str += fmt.Sprintf("  ObservationDomainId: %v\n", p.ObservationDomainId)
	str += fmt.Sprintf("  FlowSets (%v):\n", len(p.FlowSets))
	str += flowSetsString(p.FlowSets, IPFIXTypeToString)
	return str
}

func (p NFv9Packet) String() string {
	str := "NetFlow v9 Packet\n"
	str += "-----------------\n"
	str += fmt.Sprintf("  Version: %v\n", p.Version)
	str += fmt.Sprintf("  Count:  %v\n", p.Count)
	str += fmt.Sprintf("  SystemUptime: %v\n", p.SystemUptime)
	str += fmt.Sprintf("  UnixSeconds: %v\n", p.UnixSeconds)
	str += fmt.Sprintf("  SequenceNumber: %v\n", p.SequenceNumber)
	str += fmt.Sprintf("  SourceId: %v\n", p.SourceId)
	str += fmt.Sprintf("  FlowSets (%v):\n", len(p.FlowSets))
	str += flowSetsString(p.FlowSets, NFv9TypeToString)
	return str
}

func flowSetsString(flowSets []interface{}, typeToString func(uint16) string) string {
	var str string
	for i, flowSet := range flowSets {
		switch flowSet := flowSet.(type) {
		case TemplateFlowSet:
			str += fmt.Sprintf("    - TemplateFlowSet %v:\n", i)
			str += flowSet.String(typeToString)
		case OptionsTemplateFlowSet:
			str += fmt.Sprintf("    - OptionsTemplateFlowSet %v: skipped\n", i)
		case DataFlowSet:
			str += fmt.Sprintf("    - DataFlowSet %v:\n", i)
			str += flowSet.String(typeToString)
		case RawFlowSet:
			str += fmt.Sprintf("    - RawFlowSet %v:\n", i)
			str += flowSet.String()
		default:
			str += fmt.Sprintf("    - (unknown type) %v: %v\n", i, flowSet)
		}
	}
	return str
}
