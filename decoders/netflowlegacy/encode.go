package netflowlegacy

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/netsampler/trustflow/decoders/utils"
)

func (p *PacketNetFlowV5) MarshalBinary() ([]byte, error) {
	return EncodeMessage(p)
}

// EncodeMessage serializes a v5 packet. It is used to replay captures and to
// build fixtures.
func EncodeMessage(packet *PacketNetFlowV5) ([]byte, error) {
	if packet == nil {
		return nil, errors.New("netflowlegacy: nil packet")
	}

	version := packet.Version
	if version == 0 {
		version = 5
	}
	if version != 5 {
		return nil, fmt.Errorf("netflowlegacy: unsupported version %d", version)
	}

	count := packet.Count
	if count == 0 {
		count = uint16(len(packet.Records))
	}

	buf := bytes.NewBuffer(make([]byte, 0, HeaderLength+RecordLength*len(packet.Records)))
	utils.WriteU16(buf, version)
	utils.WriteU16(buf, count)
	utils.WriteU32(buf, packet.SysUptime)
	utils.WriteU32(buf, packet.UnixSecs)
	utils.WriteU32(buf, packet.UnixNSecs)
	utils.WriteU32(buf, packet.FlowSequence)
	utils.WriteU8(buf, packet.EngineType)
	utils.WriteU8(buf, packet.EngineId)
	utils.WriteU16(buf, packet.SamplingInterval)

	for _, record := range packet.Records {
		for _, v := range []uint32{record.SrcAddr, record.DstAddr, record.NextHop} {
			utils.WriteU32(buf, v)
		}
		utils.WriteU16(buf, record.Input)
		utils.WriteU16(buf, record.Output)
		for _, v := range []uint32{record.DPkts, record.DOctets, record.First, record.Last} {
			utils.WriteU32(buf, v)
		}
		utils.WriteU16(buf, record.SrcPort)
		utils.WriteU16(buf, record.DstPort)
		for _, v := range []uint8{record.Pad1, record.TCPFlags, record.Proto, record.Tos} {
			utils.WriteU8(buf, v)
		}
		utils.WriteU16(buf, record.SrcAS)
		utils.WriteU16(buf, record.DstAS)
		utils.WriteU8(buf, record.SrcMask)
		utils.WriteU8(buf, record.DstMask)
		utils.WriteU16(buf, record.Pad2)
	}

	return buf.Bytes(), nil
}
