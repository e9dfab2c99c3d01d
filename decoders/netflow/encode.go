package netflow

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/netsampler/trustflow/decoders/utils"
)

func (p *NFv9Packet) MarshalBinary() ([]byte, error) {
	return EncodeMessageNetFlow(p)
}

func (p *IPFIXPacket) MarshalBinary() ([]byte, error) {
	return EncodeMessageIPFIX(p)
}

// EncodeMessageNetFlow serializes a v9 packet. A zero count is replaced by
// the number of records.
func EncodeMessageNetFlow(packet *NFv9Packet) ([]byte, error) {
	if packet == nil {
		return nil, errors.New("netflow: nil packet")
	}
	body, records, err := encodeFlowSets(9, packet.FlowSets)
	if err != nil {
		return nil, err
	}
	count := packet.Count
	if count == 0 {
		count = uint16(records)
	}

	buf := bytes.NewBuffer(make([]byte, 0, 20+len(body)))
	utils.WriteU16(buf, 9)
	utils.WriteU16(buf, count)
	utils.WriteU32(buf, packet.SystemUptime)
	utils.WriteU32(buf, packet.UnixSeconds)
	utils.WriteU32(buf, packet.SequenceNumber)
	utils.WriteU32(buf, packet.SourceId)
	buf.Write(body)
	return buf.Bytes(), nil
}

// EncodeMessageIPFIX serializes an IPFIX message. A zero length is replaced
// by the actual message length.
func EncodeMessageIPFIX(packet *IPFIXPacket) ([]byte, error) {
	if packet == nil {
		return nil, errors.New("netflow: nil packet")
	}
	body, _, err := encodeFlowSets(10, packet.FlowSets)
	if err != nil {
		return nil, err
	}
	length := packet.Length
	if length == 0 {
		if 16+len(body) > 0xffff {
			return nil, fmt.Errorf("netflow: message too large (%d bytes)", 16+len(body))
		}
		length = uint16(16 + len(body))
	}

	buf := bytes.NewBuffer(make([]byte, 0, 16+len(body)))
	utils.WriteU16(buf, 10)
	utils.WriteU16(buf, length)
	utils.WriteU32(buf, packet.ExportTime)
	utils.WriteU32(buf, packet.SequenceNumber)
	utils.WriteU32(buf, packet.ObservationDomainId)
	buf.Write(body)
	return buf.Bytes(), nil
}

func encodeFlowSets(version uint16, flowSets []interface{}) ([]byte, int, error) {
	buf := &bytes.Buffer{}
	var records int
	for i, flowSet := range flowSets {
		var id uint16
		content := &bytes.Buffer{}
		switch flowSet := flowSet.(type) {
		case TemplateFlowSet:
			id = 0
			if version == 10 {
				id = 2
			}
			for _, record := range flowSet.Records {
				utils.WriteU16(content, record.TemplateId)
				utils.WriteU16(content, uint16(len(record.Fields)))
				for _, field := range record.Fields {
					utils.WriteU16(content, field.Type)
					utils.WriteU16(content, field.Length)
					if version == 10 && field.Type&0x8000 != 0 {
						utils.WriteU32(content, field.Pen)
					}
				}
			}
			records += len(flowSet.Records)
		case DataFlowSet:
			id = flowSet.Id
			for _, record := range flowSet.Records {
				for _, value := range record.Values {
					content.Write(value.Value)
				}
				utils.WritePadding(content)
			}
			records += len(flowSet.Records)
		case RawFlowSet:
			id = flowSet.Id
			content.Write(flowSet.Records)
		default:
			return nil, 0, fmt.Errorf("netflow: flowset %d: unsupported type %T", i, flowSet)
		}
		utils.WritePadding(content)
		if content.Len()+4 > 0xffff {
			return nil, 0, fmt.Errorf("netflow: flowset %d too large", i)
		}
		utils.WriteU16(buf, id)
		utils.WriteU16(buf, uint16(content.Len()+4))
		buf.Write(content.Bytes())
	}
	return buf.Bytes(), records, nil
}
