// Package utils provides the flow receive and decode pipeline.
package utils

import (
	"bytes"
	"encoding"
	"encoding/binary"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/netsampler/trustflow/decoders/netflow"
	"github.com/netsampler/trustflow/decoders/netflowlegacy"
	"github.com/netsampler/trustflow/producer"
	"github.com/netsampler/trustflow/utils/templates"
)

var (
	ErrorUnsupportedProtocol = errors.New("unsupported protocol")
	ErrorProtocolMismatch    = errors.New("version does not match listener protocol")
)

// Protocol selects the decoders a listener accepts.
type Protocol int

const (
	ProtocolAuto Protocol = iota
	ProtocolNetFlowV5
	ProtocolNetFlowV9
	ProtocolIPFIX
)

func (p Protocol) String() string {
	switch p {
	case ProtocolAuto:
		return "netflow"
	case ProtocolNetFlowV5:
		return "netflowv5"
	case ProtocolNetFlowV9:
		return "netflowv9"
	case ProtocolIPFIX:
		return "ipfix"
	}
	return fmt.Sprintf("protocol(%d)", int(p))
}

func (p Protocol) accepts(version uint16) bool {
	switch p {
	case ProtocolAuto:
		return version == 5 || version == 9 || version == 10
	case ProtocolNetFlowV5:
		return version == 5
	case ProtocolNetFlowV9:
		return version == 9
	case ProtocolIPFIX:
		return version == 10
	}
	return false
}

// ParseProtocol maps a listener scheme to a protocol.
func ParseProtocol(scheme string) (Protocol, error) {
	switch strings.ToLower(scheme) {
	case "netflow":
		return ProtocolAuto, nil
	case "netflowv5", "nfl":
		return ProtocolNetFlowV5, nil
	case "netflowv9", "nfv9":
		return ProtocolNetFlowV9, nil
	case "ipfix":
		return ProtocolIPFIX, nil
	case "sflow":
		return ProtocolAuto, fmt.Errorf("%w: sflow is reserved", ErrorUnsupportedProtocol)
	}
	return ProtocolAuto, fmt.Errorf("%w: %s", ErrorUnsupportedProtocol, scheme)
}

// PipeConfig wires a pipe to its producer, templates and record sink.
type PipeConfig struct {
	Protocol  Protocol
	Producer  producer.ProducerInterface
	Templates *templates.Registry

	// Sink receives the records of every datagram that produced some.
	Sink   func(records []producer.FlowRecord)
	Logger logrus.FieldLogger
}

// PipeMessageError wraps a decode/produce error with source message metadata.
type PipeMessageError struct {
	Message *Message
	Err     error
}

func (e *PipeMessageError) Error() string {
	return fmt.Sprintf("message from %s %s", e.Message.Src.String(), e.Err.Error())
}

func (e *PipeMessageError) Unwrap() error {
	return e.Err
}

// NetFlowPipe decodes NetFlow v5, v9 and IPFIX datagrams into flow records.
type NetFlowPipe struct {
	protocol  Protocol
	producer  producer.ProducerInterface
	templates *templates.Registry
	sink      func(records []producer.FlowRecord)
	logger    logrus.FieldLogger
}

// NewNetFlowPipe creates a pipe. A registry is created when none is given.
func NewNetFlowPipe(cfg *PipeConfig) *NetFlowPipe {
	p := &NetFlowPipe{
		protocol:  cfg.Protocol,
		producer:  cfg.Producer,
		templates: cfg.Templates,
		sink:      cfg.Sink,
		logger:    cfg.Logger,
	}
	if p.producer == nil {
		p.producer = producer.CreateProducer()
	}
	if p.templates == nil {
		p.templates = templates.NewRegistry(nil, netflow.DefaultTemplateExpiry, nil)
	}
	if p.logger == nil {
		p.logger = logrus.StandardLogger()
	}
	return p
}

func (p *NetFlowPipe) Protocol() Protocol {
	return p.protocol
}

func (p *NetFlowPipe) Templates() *templates.Registry {
	return p.templates
}

// Decode turns one datagram into records. Records decoded before an error in
// a later set are returned along with the error.
func (p *NetFlowPipe) Decode(pkt *Message) ([]producer.FlowRecord, error) {
	if len(pkt.Payload) < 2 {
		return nil, &PipeMessageError{pkt, &netflow.DecoderError{Decoder: "version", Err: fmt.Errorf("datagram of %d bytes", len(pkt.Payload))}}
	}
	version := binary.BigEndian.Uint16(pkt.Payload)
	if !p.protocol.accepts(version) {
		if version != 5 && version != 9 && version != 10 {
			return nil, &PipeMessageError{pkt, fmt.Errorf("%w %d", netflow.ErrorUnknownVersion, version)}
		}
		return nil, &PipeMessageError{pkt, fmt.Errorf("%w: version %d on %s", ErrorProtocolMismatch, version, p.protocol)}
	}

	buf := bytes.NewBuffer(pkt.Payload)
	args := producer.ProduceArgs{
		Src: pkt.Src,
		Dst: pkt.Dst,
	}

	var packet interface{}
	var decodeErr error
	switch version {
	case 5:
		var packetV5 netflowlegacy.PacketNetFlowV5
		if err := netflowlegacy.DecodeMessageVersion(buf, &packetV5); err != nil {
			return nil, &PipeMessageError{pkt, err}
		}
		packet = &packetV5
	default:
		exporterId := p.templates.ExporterId(pkt.Src.Addr())
		var packetNFv9 netflow.NFv9Packet
		var packetIPFIX netflow.IPFIXPacket
		decodeErr = netflow.DecodeMessageVersion(buf, p.templates.NetFlowV9(), p.templates.IPFIX(), exporterId, &packetNFv9, &packetIPFIX)
		if version == 9 {
			packet = &packetNFv9
			p.inspect(pkt, version, packetNFv9.FlowSets)
		} else {
			packet = &packetIPFIX
			p.inspect(pkt, version, packetIPFIX.FlowSets)
		}
		var decoderError *netflow.DecoderError
		if decodeErr != nil && errors.As(decodeErr, &decoderError) && strings.HasSuffix(decoderError.Decoder, "header") {
			return nil, &PipeMessageError{pkt, decodeErr}
		}
	}

	p.trace(pkt, packet)

	records, err := p.producer.Produce(packet, &args)
	if err != nil {
		return nil, &PipeMessageError{pkt, errors.Join(decodeErr, err)}
	}
	if len(records) > 0 {
		if expired := p.templates.SweepExpired(); expired > 0 {
			p.logger.WithField("count", expired).Debug("expired templates")
		}
	}
	if decodeErr != nil {
		return records, &PipeMessageError{pkt, decodeErr}
	}
	return records, nil
}

func levelEnabled(logger logrus.FieldLogger, level logrus.Level) bool {
	switch logger := logger.(type) {
	case *logrus.Logger:
		return logger.IsLevelEnabled(level)
	case *logrus.Entry:
		return logger.Logger.IsLevelEnabled(level)
	}
	return true
}

// trace logs a summary of each decoded packet at debug level and its full
// contents at trace level.
func (p *NetFlowPipe) trace(pkt *Message, packet interface{}) {
	if !levelEnabled(p.logger, logrus.DebugLevel) {
		return
	}
	logger := p.logger.WithField("exporter", pkt.Src.Addr().Unmap().String())
	if summary, ok := packet.(encoding.TextMarshaler); ok {
		if text, err := summary.MarshalText(); err == nil {
			logger.WithField("packet", string(text)).Debug("decoded packet")
		}
	}
	if levelEnabled(p.logger, logrus.TraceLevel) {
		logger.WithField("packet", fmt.Sprint(packet)).Trace("decoded packet contents")
	}
}

// inspect logs template fields whose width differs from the dictionary and
// options sets, which are not decoded.
func (p *NetFlowPipe) inspect(pkt *Message, version uint16, flowSets []interface{}) {
	for _, flowSet := range flowSets {
		switch flowSet := flowSet.(type) {
		case netflow.TemplateFlowSet:
			for _, record := range flowSet.Records {
				for _, field := range record.Fields {
					if info, ok := netflow.CheckFieldLength(version, field); !ok {
						p.logger.WithFields(logrus.Fields{
							"exporter": pkt.Src.Addr().Unmap().String(),
							"template": record.TemplateId,
							"field":    info.Name,
							"type":     field.Type,
							"length":   field.Length,
							"expected": info.Length,
						}).Debug("field width differs from dictionary")
					}
				}
			}
		case netflow.OptionsTemplateFlowSet:
			p.logger.WithFields(logrus.Fields{
				"exporter": pkt.Src.Addr().Unmap().String(),
				"version":  version,
				"length":   flowSet.Length,
			}).Debug("skipping options template set")
		}
	}
}

// DecodeFlow decodes a *Message and hands its records to the sink.
func (p *NetFlowPipe) DecodeFlow(msg interface{}) error {
	pkt, ok := msg.(*Message)
	if !ok {
		return fmt.Errorf("flow is not *Message")
	}
	records, err := p.Decode(pkt)
	if len(records) > 0 && p.sink != nil {
		p.sink(records)
	}
	return err
}

func (p *NetFlowPipe) Close() {
	p.producer.Close()
}
