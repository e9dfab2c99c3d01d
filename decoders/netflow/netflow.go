// Package netflow decodes NetFlow v9 and IPFIX export packets.
package netflow

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/netsampler/trustflow/decoders/utils"
)

var (
	ErrorTemplateNotFound = errors.New("template not found")
	ErrorMalformedSet     = errors.New("malformed set")
	ErrorInvalidTemplate  = errors.New("invalid template")
	ErrorVariableLength   = errors.New("variable length fields are not supported")
	ErrorUnknownVersion   = errors.New("unknown version")
)

type DecoderError struct {
	Decoder string
	Err     error
}

func (e *DecoderError) Error() string {
	return fmt.Sprintf("%s %s", e.Decoder, e.Err.Error())
}

func (e *DecoderError) Unwrap() error {
	return e.Err
}

type FlowError struct {
	Version     uint16
	Type        string
	ObsDomainId uint32
	TemplateId  uint16
	Err         error
}

func (e *FlowError) Error() string {
	return fmt.Sprintf("[version:%d type:%s obsDomainId:%v: templateId:%d] %s", e.Version, e.Type, e.ObsDomainId, e.TemplateId, e.Err.Error())
}

func (e *FlowError) Unwrap() error {
	return e.Err
}

func DecodeField(payload *bytes.Buffer, field *Field, pen bool) error {
	if err := utils.BinaryDecoder(payload,
		&field.Type,
		&field.Length,
	); err != nil {
		return err
	}
	if pen && field.Type&0x8000 != 0 {
		field.PenProvided = true
		return utils.BinaryDecoder(payload,
			&field.Pen,
		)
	}
	return nil
}

// DecodeTemplateSet parses the template records of a template set. Records
// that cannot be used are returned along with an error describing them so
// that the valid ones can still be registered.
func DecodeTemplateSet(version uint16, payload *bytes.Buffer) ([]TemplateRecord, error) {
	var records []TemplateRecord
	var rejected error
	for payload.Len() >= 4 {
		templateRecord := TemplateRecord{}
		if err := utils.BinaryDecoder(payload,
			&templateRecord.TemplateId,
			&templateRecord.FieldCount,
		); err != nil {
			return records, fmt.Errorf("TemplateSet: reading header [%w]", err)
		}
		if templateRecord.TemplateId == 0 && templateRecord.FieldCount == 0 {
			// padding
			break
		}

		fields := make([]Field, 0, int(templateRecord.FieldCount)) // max 65535 which would be 589KB
		for i := 0; i < int(templateRecord.FieldCount); i++ {
			field := Field{}
			if err := DecodeField(payload, &field, version == 10); err != nil {
				return records, fmt.Errorf("TemplateSet: template %d field %d [%w]", templateRecord.TemplateId, i, err)
			}
			fields = append(fields, field)
		}
		templateRecord.Fields = fields

		if err := ValidateTemplate(version, templateRecord); err != nil {
			rejected = errors.Join(rejected, err)
			continue
		}
		records = append(records, templateRecord)
	}

	return records, rejected
}

// ValidateTemplate checks that data records can be decoded with a template.
// An IPFIX record without fields is a withdrawal and is valid.
func ValidateTemplate(version uint16, record TemplateRecord) error {
	if record.TemplateId < 256 {
		return fmt.Errorf("template %d: %w: reserved id", record.TemplateId, ErrorInvalidTemplate)
	}
	if len(record.Fields) == 0 {
		if version == 10 {
			return nil
		}
		return fmt.Errorf("template %d: %w: no fields", record.TemplateId, ErrorInvalidTemplate)
	}
	var size int
	for _, field := range record.Fields {
		if field.Length == 0xffff {
			return fmt.Errorf("template %d: %w", record.TemplateId, ErrorVariableLength)
		}
		size += int(field.Length)
	}
	if size == 0 {
		return fmt.Errorf("template %d: %w: empty records", record.TemplateId, ErrorInvalidTemplate)
	}
	return nil
}

// DecodeDataSet slices data records out of a data set. Records are spaced by
// the padded record size; the last record may omit its padding.
func DecodeDataSet(payload []byte, template Template) []DataRecord {
	var records []DataRecord

	length := template.FieldsLength()
	size := template.RecordSize()
	if length == 0 {
		return records
	}
	for len(payload) >= length {
		values := make([]DataField, len(template.Fields))
		var offset int
		for i, field := range template.Fields {
			values[i] = DataField{
				Type:        field.Type,
				PenProvided: field.PenProvided,
				Pen:         field.Pen,
				Value:       payload[offset : offset+int(field.Length)],
			}
			offset += int(field.Length)
		}
		records = append(records, DataRecord{Values: values})

		if size > len(payload) {
			break
		}
		payload = payload[size:]
	}
	return records
}

// DecodeMessageCommon walks the sets of a packet body. Unknown templates and
// rejected template records are reported in the returned error while the
// remaining sets are decoded. A malformed set header stops the walk.
func DecodeMessageCommon(payload *bytes.Buffer, templates TemplateStore, exporterId, obsDomainId uint32, version uint16) (flowSets []interface{}, err error) {
	for payload.Len() >= 4 {
		flowSet, lerr := DecodeMessageCommonFlowSet(payload, templates, exporterId, obsDomainId, version)
		if flowSet != nil {
			flowSets = append(flowSets, flowSet)
		}
		if lerr != nil {
			err = errors.Join(err, lerr)
			if errors.Is(lerr, ErrorMalformedSet) {
				return flowSets, err
			}
		}
	}
	return flowSets, err
}

func DecodeMessageCommonFlowSet(payload *bytes.Buffer, templates TemplateStore, exporterId, obsDomainId uint32, version uint16) (flowSet interface{}, err error) {
	fsheader := FlowSetHeader{}
	if err := utils.BinaryDecoder(payload,
		&fsheader.Id,
		&fsheader.Length,
	); err != nil {
		return flowSet, &FlowError{version, "FlowSet", obsDomainId, fsheader.Id, errors.Join(ErrorMalformedSet, err)}
	}

	nextrelpos := int(fsheader.Length) - binary.Size(fsheader)
	if nextrelpos < 0 {
		return flowSet, &FlowError{version, "FlowSet", obsDomainId, fsheader.Id, fmt.Errorf("%w: length %d", ErrorMalformedSet, fsheader.Length)}
	}
	if nextrelpos > payload.Len() {
		return flowSet, &FlowError{version, "FlowSet", obsDomainId, fsheader.Id, fmt.Errorf("%w: length %d exceeds packet", ErrorMalformedSet, fsheader.Length)}
	}
	content := payload.Next(nextrelpos)
	// sets are aligned on 4 bytes
	if padding := (4 - int(fsheader.Length)%4) % 4; padding > 0 {
		payload.Next(padding)
	}

	key := TemplateKey{ExporterId: exporterId, ObservationDomainId: obsDomainId}

	switch {
	case (fsheader.Id == 0 && version == 9) || (fsheader.Id == 2 && version == 10):
		records, err := DecodeTemplateSet(version, bytes.NewBuffer(content))
		flowSet = TemplateFlowSet{
			FlowSetHeader: fsheader,
			Records:       records,
		}
		if templates != nil {
			for _, record := range records {
				key.TemplateId = record.TemplateId
				if len(record.Fields) == 0 {
					templates.RemoveTemplate(key)
					continue
				}
				templates.AddTemplate(key, record.Fields)
			}
		}
		if err != nil {
			return flowSet, &FlowError{version, "TemplateSet", obsDomainId, fsheader.Id, err}
		}

	case (fsheader.Id == 1 && version == 9) || (fsheader.Id == 3 && version == 10):
		flowSet = OptionsTemplateFlowSet{
			FlowSetHeader: fsheader,
		}

	case fsheader.Id >= 256:
		rawfs := RawFlowSet{
			FlowSetHeader: fsheader,
			Records:       content,
		}
		flowSet = rawfs

		if templates == nil {
			return flowSet, &FlowError{version, "Templates", obsDomainId, fsheader.Id, fmt.Errorf("no templates")}
		}

		key.TemplateId = fsheader.Id
		template, ok := templates.GetTemplate(key)
		if !ok {
			return flowSet, &FlowError{version, "Decode", obsDomainId, fsheader.Id, ErrorTemplateNotFound}
		}
		flowSet = DataFlowSet{
			FlowSetHeader: fsheader,
			Records:       DecodeDataSet(content, template),
		}

	default:
		return flowSet, &FlowError{version, "Decode", obsDomainId, fsheader.Id, fmt.Errorf("reserved set id")}
	}
	return flowSet, nil
}

// DecodeMessageNetFlow decodes a v9 packet once the version has been consumed.
// Templates are scoped to the exporter; the header source id is not part of the key.
func DecodeMessageNetFlow(payload *bytes.Buffer, templates TemplateStore, exporterId uint32, packetNFv9 *NFv9Packet) error {
	packetNFv9.Version = 9
	if err := utils.BinaryDecoder(payload,
		&packetNFv9.Count,
		&packetNFv9.SystemUptime,
		&packetNFv9.UnixSeconds,
		&packetNFv9.SequenceNumber,
		&packetNFv9.SourceId,
	); err != nil {
		return &DecoderError{"NetFlowV9 header", err}
	}
	flowSets, err := DecodeMessageCommon(payload, templates, exporterId, 0, 9)
	packetNFv9.FlowSets = flowSets
	if err != nil {
		return &DecoderError{"NetFlowV9", err}
	}
	return nil
}

// DecodeMessageIPFIX decodes an IPFIX message once the version has been
// consumed. A declared length beyond the datagram is clamped to it.
func DecodeMessageIPFIX(payload *bytes.Buffer, templates TemplateStore, exporterId uint32, packetIPFIX *IPFIXPacket) error {
	packetIPFIX.Version = 10
	if err := utils.BinaryDecoder(payload,
		&packetIPFIX.Length,
		&packetIPFIX.ExportTime,
		&packetIPFIX.SequenceNumber,
		&packetIPFIX.ObservationDomainId,
	); err != nil {
		return &DecoderError{"IPFIX header", err}
	}
	if packetIPFIX.Length < 16 {
		return &DecoderError{"IPFIX header", fmt.Errorf("%w: length %d", ErrorMalformedSet, packetIPFIX.Length)}
	}
	size := int(packetIPFIX.Length) - 16
	if size > payload.Len() {
		size = payload.Len()
	}
	flowSets, err := DecodeMessageCommon(bytes.NewBuffer(payload.Next(size)), templates, exporterId, packetIPFIX.ObservationDomainId, 10)
	packetIPFIX.FlowSets = flowSets
	if err != nil {
		return &DecoderError{"IPFIX", err}
	}
	return nil
}

// DecodeMessageVersion reads the version and decodes a v9 packet or an IPFIX
// message, each with the template store of its protocol.
func DecodeMessageVersion(payload *bytes.Buffer, nfv9Templates, ipfixTemplates TemplateStore, exporterId uint32, packetNFv9 *NFv9Packet, packetIPFIX *IPFIXPacket) error {
	var version uint16

	if err := utils.BinaryDecoder(payload,
		&version,
	); err != nil {
		return &DecoderError{"IPFIX/NetFlowV9 version", err}
	}

	if version == 9 {
		if err := DecodeMessageNetFlow(payload, nfv9Templates, exporterId, packetNFv9); err != nil {
			return err
		}
		return nil
	} else if version == 10 {
		if err := DecodeMessageIPFIX(payload, ipfixTemplates, exporterId, packetIPFIX); err != nil {
			return err
		}
		return nil
	}
	return &DecoderError{"IPFIX/NetFlowV9", fmt.Errorf("%w %d", ErrorUnknownVersion, version)}
}
