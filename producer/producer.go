// Package producer converts decoded flow packets into FlowRecords.
package producer

import (
	"fmt"
	"net/netip"

	"github.com/netsampler/trustflow/decoders/netflow"
	"github.com/netsampler/trustflow/decoders/netflowlegacy"
)

type ProducerInterface interface {
	// Produce converts a decoded packet into records.
	Produce(msg interface{}, args *ProduceArgs) ([]FlowRecord, error)
	Close()
}

type ProduceArgs struct {
	Src netip.AddrPort
	Dst netip.AddrPort
}

// ExporterIdentity is the identity attached to records received from src.
func ExporterIdentity(src netip.AddrPort) string {
	return src.Addr().Unmap().String()
}

type FlowProducer struct{}

func (p *FlowProducer) Produce(msg interface{}, args *ProduceArgs) ([]FlowRecord, error) {
	exporter := ExporterIdentity(args.Src)
	switch msgConv := msg.(type) {
	case *netflowlegacy.PacketNetFlowV5:
		return ProcessMessageNetFlowLegacy(msgConv, exporter), nil
	case *netflow.NFv9Packet:
		return ProcessMessageNetFlowV9(msgConv, exporter), nil
	case *netflow.IPFIXPacket:
		return ProcessMessageIPFIX(msgConv, exporter), nil
	default:
		return nil, fmt.Errorf("flow not recognized")
	}
}

func (p *FlowProducer) Close() {}

func CreateProducer() ProducerInterface {
	return &FlowProducer{}
}
