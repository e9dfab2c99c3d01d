package netflowlegacy

import (
	"fmt"
	"strings"
)

// MarshalText formats a one-line summary of the packet.
func (p *PacketNetFlowV5) MarshalText() ([]byte, error) {
	return []byte(fmt.Sprintf("NetFlowV%d seq:%d count:%d", p.Version, p.FlowSequence, p.Count)), nil
}

func (p *PacketNetFlowV5) String() string {
	summary, _ := p.MarshalText()
	var str strings.Builder
	str.Write(summary)
	for _, record := range p.Records {
		str.WriteString("\n  ")
		str.WriteString(record.String())
	}
	return str.String()
}

func IPToString(ip uint32) string {
	return fmt.Sprintf("%d.%d.%d.%d", ip>>24, (ip>>16)&0xFF, (ip>>8)&0xFF, ip&0xFF)
}

func (r RecordsNetFlowV5) String() string {
	return fmt.Sprintf("%s:%d -> %s:%d proto:%d pkts:%d bytes:%d",
		IPToString(r.SrcAddr), r.SrcPort, IPToString(r.DstAddr), r.DstPort, r.Proto, r.DPkts, r.DOctets)
}
