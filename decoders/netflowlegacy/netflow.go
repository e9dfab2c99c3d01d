// Package netflowlegacy decodes NetFlow v5 export packets.
package netflowlegacy

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/netsampler/trustflow/decoders/utils"
)

var ErrorVersion = errors.New("unknown version")

type DecoderError struct {
	Err error
}

func (e *DecoderError) Error() string {
	return fmt.Sprintf("NetFlowLegacy %s", e.Err.Error())
}

func (e *DecoderError) Unwrap() error {
	return e.Err
}

// DecodeMessageVersion reads the version field and decodes the rest of a v5 packet.
func DecodeMessageVersion(payload *bytes.Buffer, packet *PacketNetFlowV5) error {
	var version uint16
	if err := utils.BinaryDecoder(payload, &version); err != nil {
		return &DecoderError{err}
	}
	packet.Version = version
	if packet.Version != 5 {
		return &DecoderError{fmt.Errorf("%w %d", ErrorVersion, version)}
	}
	return DecodeMessage(payload, packet)
}

// DecodeMessage decodes a v5 packet once the version has been consumed.
// The header count bounds the number of records; a truncated packet yields
// the records that are fully present.
func DecodeMessage(payload *bytes.Buffer, packet *PacketNetFlowV5) error {
	if err := utils.BinaryDecoder(payload,
		&packet.Count,
		&packet.SysUptime,
		&packet.UnixSecs,
		&packet.UnixNSecs,
		&packet.FlowSequence,
		&packet.EngineType,
		&packet.EngineId,
		&packet.SamplingInterval,
	); err != nil {
		return &DecoderError{fmt.Errorf("header [%w]", err)}
	}

	packet.Records = make([]RecordsNetFlowV5, 0, int(packet.Count)) // maximum is 65535 which would be 3MB
	for i := 0; i < int(packet.Count) && payload.Len() >= RecordLength; i++ {
		record := RecordsNetFlowV5{}
		if err := utils.BinaryDecoder(payload,
			&record.SrcAddr,
			&record.DstAddr,
			&record.NextHop,
			&record.Input,
			&record.Output,
			&record.DPkts,
			&record.DOctets,
			&record.First,
			&record.Last,
			&record.SrcPort,
			&record.DstPort,
			&record.Pad1,
			&record.TCPFlags,
			&record.Proto,
			&record.Tos,
			&record.SrcAS,
			&record.DstAS,
			&record.SrcMask,
			&record.DstMask,
			&record.Pad2,
		); err != nil {
			return &DecoderError{fmt.Errorf("record %d [%w]", i, err)}
		}
		packet.Records = append(packet.Records, record)
	}

	return nil
}
