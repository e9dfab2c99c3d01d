package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/netsampler/trustflow/decoders/netflow"
	"github.com/netsampler/trustflow/decoders/netflowlegacy"
	"github.com/netsampler/trustflow/producer"
)

func recordCommonNetFlowMetrics(version uint16, key string, flowSets []interface{}) {
	versionStr := strconv.Itoa(int(version))
	for _, fs := range flowSets {
		var typeStr string
		var count int
		switch fsConv := fs.(type) {
		case netflow.TemplateFlowSet:
			typeStr = "TemplateFlowSet"
			count = len(fsConv.Records)
		case netflow.OptionsTemplateFlowSet:
			typeStr = "OptionsTemplateFlowSet"
		case netflow.DataFlowSet:
			typeStr = "DataFlowSet"
			count = len(fsConv.Records)
		case netflow.RawFlowSet:
			typeStr = "RawFlowSet"
		default:
			continue
		}
		labels := prometheus.Labels{
			"router":  key,
			"version": versionStr,
			"type":    typeStr,
		}
		NetFlowSetStatsSum.With(labels).Inc()
		NetFlowSetRecordsStatsSum.With(labels).Add(float64(count))
	}
}

// PromProducerWrapper counts decoded packets, sets and produced records.
type PromProducerWrapper struct {
	wrapped producer.ProducerInterface
	now     func() time.Time
}

func (p *PromProducerWrapper) Produce(msg interface{}, args *producer.ProduceArgs) ([]producer.FlowRecord, error) {
	flowRecords, err := p.wrapped.Produce(msg, args)
	if err != nil {
		return flowRecords, err
	}
	key := producer.ExporterIdentity(args.Src)
	var versionStr string
	switch packet := msg.(type) {
	case *netflowlegacy.PacketNetFlowV5:
		versionStr = "5"
		NetFlowSetStatsSum.With(
			prometheus.Labels{
				"router":  key,
				"version": versionStr,
				"type":    "DataFlowSet",
			}).
			Add(float64(packet.Count))
	case *netflow.NFv9Packet:
		versionStr = "9"
		recordCommonNetFlowMetrics(9, key, packet.FlowSets)
	case *netflow.IPFIXPacket:
		versionStr = "10"
		recordCommonNetFlowMetrics(10, key, packet.FlowSets)
	default:
		return flowRecords, err
	}
	NetFlowStats.With(
		prometheus.Labels{
			"router":  key,
			"version": versionStr,
		}).
		Inc()
	ProducedRecords.With(
		prometheus.Labels{
			"router":  key,
			"version": versionStr,
		}).
		Add(float64(len(flowRecords)))

	now := p.now().Unix()
	for _, record := range flowRecords {
		if end, ok := record.FlowEnd(); ok {
			NetFlowTimeStatsSum.With(
				prometheus.Labels{
					"router":  key,
					"version": versionStr,
				}).
				Observe(float64(now - end))
		}
	}
	return flowRecords, err
}

func (p *PromProducerWrapper) Close() {
	p.wrapped.Close()
}

// WrapPromProducer wraps a producer with metrics.
func WrapPromProducer(wrapped producer.ProducerInterface) producer.ProducerInterface {
	return &PromProducerWrapper{
		wrapped: wrapped,
		now:     time.Now,
	}
}
