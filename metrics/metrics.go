// Package metrics exposes Prometheus instrumentation of the receive, decode,
// template and delivery stages.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	NAMESPACE = "trustflow"
)

var (
	MetricTrafficBytes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name:      "flow_traffic_bytes",
			Help:      "Bytes received by the application.",
			Namespace: NAMESPACE,
		},
		[]string{"remote_ip", "local_ip", "local_port", "type"},
	)
	MetricTrafficPackets = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name:      "flow_traffic_packets",
			Help:      "Packets received by the application.",
			Namespace: NAMESPACE},
		[]string{"remote_ip", "local_ip", "local_port", "type"},
	)
	MetricPacketSizeSum = prometheus.NewSummaryVec(
		prometheus.SummaryOpts{
			Name:      "flow_traffic_summary_size_bytes",
			Help:      "Summary of packet size.",
			Namespace: NAMESPACE, Objectives: map[float64]float64{0.5: 0.05, 0.9: 0.01, 0.99: 0.001},
		},
		[]string{"remote_ip", "local_ip", "local_port", "type"},
	)
	MetricReceivedDroppedPackets = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name:      "flow_dropped_packets",
			Help:      "Packets dropped before processing.",
			Namespace: NAMESPACE},
		[]string{"remote_ip", "local_ip", "local_port"},
	)
	MetricReceivedDroppedBytes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name:      "flow_dropped_bytes",
			Help:      "Bytes dropped before processing.",
			Namespace: NAMESPACE},
		[]string{"remote_ip", "local_ip", "local_port"},
	)
	DecoderErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name:      "flow_decoder_error_count",
			Help:      "Decoder processed error count.",
			Namespace: NAMESPACE},
		[]string{"router", "name", "error"},
	)
	DecoderTime = prometheus.NewSummaryVec(
		prometheus.SummaryOpts{
			Name:      "flow_summary_decoding_time_us",
			Help:      "Decoding time summary.",
			Namespace: NAMESPACE, Objectives: map[float64]float64{0.5: 0.05, 0.9: 0.01, 0.99: 0.001},
		},
		[]string{"name"},
	)
	NetFlowStats = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name:      "flow_process_nf_count",
			Help:      "NetFlows processed.",
			Namespace: NAMESPACE},
		[]string{"router", "version"},
	)
	NetFlowSetRecordsStatsSum = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name:      "flow_process_nf_flowset_records_sum",
			Help:      "NetFlows FlowSets sum of records.",
			Namespace: NAMESPACE},
		[]string{"router", "version", "type"},
	)
	NetFlowSetStatsSum = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name:      "flow_process_nf_flowset_sum",
			Help:      "NetFlows FlowSets sum.",
			Namespace: NAMESPACE},
		[]string{"router", "version", "type"},
	)
	NetFlowTimeStatsSum = prometheus.NewSummaryVec(
		prometheus.SummaryOpts{
			Name:      "flow_process_nf_delay_summary_seconds",
			Help:      "NetFlows time difference between time of flow and processing.",
			Namespace: NAMESPACE, Objectives: map[float64]float64{0.5: 0.05, 0.9: 0.01, 0.99: 0.001},
		},
		[]string{"router", "version"},
	)
	ProducedRecords = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name:      "flow_records_produced",
			Help:      "Flow records produced from decoded packets.",
			Namespace: NAMESPACE},
		[]string{"router", "version"},
	)
	NetFlowTemplatesStats = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name:      "flow_templates",
			Help:      "Live templates per protocol.",
			Namespace: NAMESPACE},
		[]string{"protocol"},
	)
	NetFlowTemplateEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name:      "flow_template_events",
			Help:      "Template additions, replacements, withdrawals and expiries.",
			Namespace: NAMESPACE},
		[]string{"protocol", "event"},
	)
	DeliveryRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name:      "delivery_requests",
			Help:      "Exporter batches delivered or dropped.",
			Namespace: NAMESPACE},
		[]string{"transport", "status"},
	)
	DeliveryRecords = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name:      "delivery_records",
			Help:      "Records delivered or dropped.",
			Namespace: NAMESPACE},
		[]string{"transport", "status"},
	)
	DeliveryTime = prometheus.NewSummaryVec(
		prometheus.SummaryOpts{
			Name:      "delivery_time_seconds",
			Help:      "Time to deliver a batch including retries.",
			Namespace: NAMESPACE, Objectives: map[float64]float64{0.5: 0.05, 0.9: 0.01, 0.99: 0.001},
		},
		[]string{"transport"},
	)
	FlushTime = prometheus.NewSummary(
		prometheus.SummaryOpts{
			Name:      "flush_time_seconds",
			Help:      "Time of a flush cycle.",
			Namespace: NAMESPACE, Objectives: map[float64]float64{0.5: 0.05, 0.9: 0.01, 0.99: 0.001},
		},
	)
	PendingRecords = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name:      "pending_records",
			Help:      "Records waiting for the next flush.",
			Namespace: NAMESPACE},
	)
)

func init() {
	prometheus.MustRegister(MetricTrafficBytes)
	prometheus.MustRegister(MetricTrafficPackets)
	prometheus.MustRegister(MetricPacketSizeSum)
	prometheus.MustRegister(MetricReceivedDroppedPackets)
	prometheus.MustRegister(MetricReceivedDroppedBytes)

	prometheus.MustRegister(DecoderErrors)
	prometheus.MustRegister(DecoderTime)

	prometheus.MustRegister(NetFlowStats)
	prometheus.MustRegister(NetFlowSetRecordsStatsSum)
	prometheus.MustRegister(NetFlowSetStatsSum)
	prometheus.MustRegister(NetFlowTimeStatsSum)
	prometheus.MustRegister(ProducedRecords)
	prometheus.MustRegister(NetFlowTemplatesStats)
	prometheus.MustRegister(NetFlowTemplateEvents)

	prometheus.MustRegister(DeliveryRequests)
	prometheus.MustRegister(DeliveryRecords)
	prometheus.MustRegister(DeliveryTime)
	prometheus.MustRegister(FlushTime)
	prometheus.MustRegister(PendingRecords)
}
