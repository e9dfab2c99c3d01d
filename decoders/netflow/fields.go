package netflow

import (
	"fmt"
	"sync"
)

const (
	NFV9_FIELD_IN_BYTES                     = 1
	NFV9_FIELD_IN_PKTS                      = 2
	NFV9_FIELD_FLOWS                        = 3
	NFV9_FIELD_PROTOCOL                     = 4
	NFV9_FIELD_SRC_TOS                      = 5
	NFV9_FIELD_TCP_FLAGS                    = 6
	NFV9_FIELD_L4_SRC_PORT                  = 7
	NFV9_FIELD_IPV4_SRC_ADDR                = 8
	NFV9_FIELD_SRC_MASK                     = 9
	NFV9_FIELD_INPUT_SNMP                   = 10
	NFV9_FIELD_L4_DST_PORT                  = 11
	NFV9_FIELD_IPV4_DST_ADDR                = 12
	NFV9_FIELD_DST_MASK                     = 13
	NFV9_FIELD_OUTPUT_SNMP                  = 14
	NFV9_FIELD_IPV4_NEXT_HOP                = 15
	NFV9_FIELD_SRC_AS                       = 16
	NFV9_FIELD_DST_AS                       = 17
	NFV9_FIELD_BGP_IPV4_NEXT_HOP            = 18
	NFV9_FIELD_MUL_DST_PKTS                 = 19
	NFV9_FIELD_MUL_DST_BYTES                = 20
	NFV9_FIELD_LAST_SWITCHED                = 21
	NFV9_FIELD_FIRST_SWITCHED               = 22
	NFV9_FIELD_OUT_BYTES                    = 23
	NFV9_FIELD_OUT_PKTS                     = 24
	NFV9_FIELD_MIN_PKT_LNGTH                = 25
	NFV9_FIELD_MAX_PKT_LNGTH                = 26
	NFV9_FIELD_IPV6_SRC_ADDR                = 27
	NFV9_FIELD_IPV6_DST_ADDR                = 28
	NFV9_FIELD_IPV6_SRC_MASK                = 29
	NFV9_FIELD_IPV6_DST_MASK                = 30
	NFV9_FIELD_IPV6_FLOW_LABEL              = 31
	NFV9_FIELD_ICMP_TYPE                    = 32
	NFV9_FIELD_MUL_IGMP_TYPE                = 33
	NFV9_FIELD_SAMPLING_INTERVAL            = 34
	NFV9_FIELD_SAMPLING_ALGORITHM           = 35
	NFV9_FIELD_FLOW_ACTIVE_TIMEOUT          = 36
	NFV9_FIELD_FLOW_INACTIVE_TIMEOUT        = 37
	NFV9_FIELD_ENGINE_TYPE                  = 38
	NFV9_FIELD_ENGINE_ID                    = 39
	NFV9_FIELD_TOTAL_BYTES_EXP              = 40
	NFV9_FIELD_TOTAL_PKTS_EXP               = 41
	NFV9_FIELD_TOTAL_FLOWS_EXP              = 42
	NFV9_FIELD_IPV4_SRC_PREFIX              = 44
	NFV9_FIELD_IPV4_DST_PREFIX              = 45
	NFV9_FIELD_MPLS_TOP_LABEL_TYPE          = 46
	NFV9_FIELD_MPLS_TOP_LABEL_IP_ADDR       = 47
	NFV9_FIELD_FLOW_SAMPLER_ID              = 48
	NFV9_FIELD_FLOW_SAMPLER_MODE            = 49
	NFV9_FIELD_FLOW_SAMPLER_RANDOM_INTERVAL = 50
	NFV9_FIELD_MIN_TTL                      = 52
	NFV9_FIELD_MAX_TTL                      = 53
	NFV9_FIELD_IPV4_IDENT                   = 54
	NFV9_FIELD_DST_TOS                      = 55
	NFV9_FIELD_IN_SRC_MAC                   = 56
	NFV9_FIELD_OUT_DST_MAC                  = 57
	NFV9_FIELD_SRC_VLAN                     = 58
	NFV9_FIELD_DST_VLAN                     = 59
	NFV9_FIELD_IP_PROTOCOL_VERSION          = 60
	NFV9_FIELD_DIRECTION                    = 61
	NFV9_FIELD_IPV6_NEXT_HOP                = 62
	NFV9_FIELD_BGP_IPV6_NEXT_HOP            = 63
	NFV9_FIELD_IPV6_OPTION_HEADERS          = 64
	NFV9_FIELD_MPLS_LABEL_1                 = 70
	NFV9_FIELD_MPLS_LABEL_2                 = 71
	NFV9_FIELD_MPLS_LABEL_3                 = 72
	NFV9_FIELD_IN_DST_MAC                   = 80
	NFV9_FIELD_OUT_SRC_MAC                  = 81
	NFV9_FIELD_IF_NAME                      = 82
	NFV9_FIELD_IF_DESC                      = 83
	NFV9_FIELD_SAMPLER_NAME                 = 84
	NFV9_FIELD_IN_PERMANENT_BYTES           = 85
	NFV9_FIELD_IN_PERMANENT_PKTS            = 86
	NFV9_FIELD_FRAGMENT_OFFSET              = 88
	NFV9_FIELD_FORWARDING_STATUS            = 89
	NFV9_FIELD_APPLICATION_ID               = 95
	NFV9_FIELD_FLOW_START_SECONDS           = 150
	NFV9_FIELD_FLOW_END_SECONDS             = 151
	NFV9_FIELD_FLOW_START_MILLISECONDS      = 152
	NFV9_FIELD_FLOW_END_MILLISECONDS        = 153
	NFV9_FIELD_DOT1Q_VLAN_ID                = 243
)

const (
	IPFIX_FIELD_octetDeltaCount              = 1
	IPFIX_FIELD_packetDeltaCount             = 2
	IPFIX_FIELD_deltaFlowCount               = 3
	IPFIX_FIELD_protocolIdentifier           = 4
	IPFIX_FIELD_ipClassOfService             = 5
	IPFIX_FIELD_tcpControlBits               = 6
	IPFIX_FIELD_sourceTransportPort          = 7
	IPFIX_FIELD_sourceIPv4Address            = 8
	IPFIX_FIELD_sourceIPv4PrefixLength       = 9
	IPFIX_FIELD_ingressInterface             = 10
	IPFIX_FIELD_destinationTransportPort     = 11
	IPFIX_FIELD_destinationIPv4Address       = 12
	IPFIX_FIELD_destinationIPv4PrefixLength  = 13
	IPFIX_FIELD_egressInterface              = 14
	IPFIX_FIELD_ipNextHopIPv4Address         = 15
	IPFIX_FIELD_bgpSourceAsNumber            = 16
	IPFIX_FIELD_bgpDestinationAsNumber       = 17
	IPFIX_FIELD_bgpNextHopIPv4Address        = 18
	IPFIX_FIELD_postMCastPacketDeltaCount    = 19
	IPFIX_FIELD_postMCastOctetDeltaCount     = 20
	IPFIX_FIELD_flowEndSysUpTime             = 21
	IPFIX_FIELD_flowStartSysUpTime           = 22
	IPFIX_FIELD_postOctetDeltaCount          = 23
	IPFIX_FIELD_postPacketDeltaCount         = 24
	IPFIX_FIELD_minimumIpTotalLength         = 25
	IPFIX_FIELD_maximumIpTotalLength         = 26
	IPFIX_FIELD_sourceIPv6Address            = 27
	IPFIX_FIELD_destinationIPv6Address       = 28
	IPFIX_FIELD_sourceIPv6PrefixLength       = 29
	IPFIX_FIELD_destinationIPv6PrefixLength  = 30
	IPFIX_FIELD_flowLabelIPv6                = 31
	IPFIX_FIELD_icmpTypeCodeIPv4             = 32
	IPFIX_FIELD_igmpType                     = 33
	IPFIX_FIELD_samplingInterval             = 34
	IPFIX_FIELD_samplingAlgorithm            = 35
	IPFIX_FIELD_flowActiveTimeout            = 36
	IPFIX_FIELD_flowIdleTimeout              = 37
	IPFIX_FIELD_engineType                   = 38
	IPFIX_FIELD_engineId                     = 39
	IPFIX_FIELD_exportedOctetTotalCount      = 40
	IPFIX_FIELD_exportedMessageTotalCount    = 41
	IPFIX_FIELD_exportedFlowRecordTotalCount = 42
	IPFIX_FIELD_sourceIPv4Prefix             = 44
	IPFIX_FIELD_destinationIPv4Prefix        = 45
	IPFIX_FIELD_mplsTopLabelType             = 46
	IPFIX_FIELD_mplsTopLabelIPv4Address      = 47
	IPFIX_FIELD_samplerId                    = 48
	IPFIX_FIELD_samplerMode                  = 49
	IPFIX_FIELD_samplerRandomInterval        = 50
	IPFIX_FIELD_classId                      = 51
	IPFIX_FIELD_minimumTTL                   = 52
	IPFIX_FIELD_maximumTTL                   = 53
	IPFIX_FIELD_fragmentIdentification       = 54
	IPFIX_FIELD_postIpClassOfService         = 55
	IPFIX_FIELD_sourceMacAddress             = 56
	IPFIX_FIELD_postDestinationMacAddress    = 57
	IPFIX_FIELD_vlanId                       = 58
	IPFIX_FIELD_postVlanId                   = 59
	IPFIX_FIELD_ipVersion                    = 60
	IPFIX_FIELD_flowDirection                = 61
	IPFIX_FIELD_ipNextHopIPv6Address         = 62
	IPFIX_FIELD_bgpNextHopIPv6Address        = 63
	IPFIX_FIELD_ipv6ExtensionHeaders         = 64
	IPFIX_FIELD_mplsTopLabelStackSection     = 70
	IPFIX_FIELD_mplsLabelStackSection2       = 71
	IPFIX_FIELD_mplsLabelStackSection3       = 72
	IPFIX_FIELD_destinationMacAddress        = 80
	IPFIX_FIELD_postSourceMacAddress         = 81
	IPFIX_FIELD_interfaceName                = 82
	IPFIX_FIELD_interfaceDescription         = 83
	IPFIX_FIELD_octetTotalCount              = 85
	IPFIX_FIELD_packetTotalCount             = 86
	IPFIX_FIELD_fragmentOffset               = 88
	IPFIX_FIELD_forwardingStatus             = 89
	IPFIX_FIELD_applicationId                = 95
	IPFIX_FIELD_flowEndReason                = 136
	IPFIX_FIELD_flowStartSeconds             = 150
	IPFIX_FIELD_flowEndSeconds               = 151
	IPFIX_FIELD_flowStartMilliseconds        = 152
	IPFIX_FIELD_flowEndMilliseconds          = 153
	IPFIX_FIELD_flowStartMicroseconds        = 154
	IPFIX_FIELD_flowEndMicroseconds          = 155
	IPFIX_FIELD_flowStartNanoseconds         = 156
	IPFIX_FIELD_flowEndNanoseconds           = 157
	IPFIX_FIELD_systemInitTimeMilliseconds   = 160
	IPFIX_FIELD_ingressVRFID                 = 234
	IPFIX_FIELD_egressVRFID                  = 235
	IPFIX_FIELD_dot1qVlanId                  = 243
	IPFIX_FIELD_dot1qPriority                = 244
	IPFIX_FIELD_dot1qCustomerVlanId          = 245
)

const (
	// CiscoPEN is the private enterprise number of Cisco Systems.
	CiscoPEN = 9

	// TrustSec security group tags. They are sent bare in NetFlow v9 and
	// enterprise-qualified in IPFIX.
	CISCO_FIELD_SGT_SOURCE      = 34000
	CISCO_FIELD_SGT_DESTINATION = 34001
)

// FieldInfo describes an information element. A Length of zero means the
// width is not fixed.
type FieldInfo struct {
	Name   string `json:"name"`
	Length uint16 `json:"length"`
}

var nfv9Fields = map[uint16]FieldInfo{
	NFV9_FIELD_IN_BYTES:                     {"IN_BYTES", 0},
	NFV9_FIELD_IN_PKTS:                      {"IN_PKTS", 0},
	NFV9_FIELD_FLOWS:                        {"FLOWS", 0},
	NFV9_FIELD_PROTOCOL:                     {"PROTOCOL", 1},
	NFV9_FIELD_SRC_TOS:                      {"SRC_TOS", 1},
	NFV9_FIELD_TCP_FLAGS:                    {"TCP_FLAGS", 1},
	NFV9_FIELD_L4_SRC_PORT:                  {"L4_SRC_PORT", 2},
	NFV9_FIELD_IPV4_SRC_ADDR:                {"IPV4_SRC_ADDR", 4},
	NFV9_FIELD_SRC_MASK:                     {"SRC_MASK", 1},
	NFV9_FIELD_INPUT_SNMP:                   {"INPUT_SNMP", 0},
	NFV9_FIELD_L4_DST_PORT:                  {"L4_DST_PORT", 2},
	NFV9_FIELD_IPV4_DST_ADDR:                {"IPV4_DST_ADDR", 4},
	NFV9_FIELD_DST_MASK:                     {"DST_MASK", 1},
	NFV9_FIELD_OUTPUT_SNMP:                  {"OUTPUT_SNMP", 0},
	NFV9_FIELD_IPV4_NEXT_HOP:                {"IPV4_NEXT_HOP", 4},
	NFV9_FIELD_SRC_AS:                       {"SRC_AS", 0},
	NFV9_FIELD_DST_AS:                       {"DST_AS", 0},
	NFV9_FIELD_BGP_IPV4_NEXT_HOP:            {"BGP_IPV4_NEXT_HOP", 4},
	NFV9_FIELD_MUL_DST_PKTS:                 {"MUL_DST_PKTS", 0},
	NFV9_FIELD_MUL_DST_BYTES:                {"MUL_DST_BYTES", 0},
	NFV9_FIELD_LAST_SWITCHED:                {"LAST_SWITCHED", 4},
	NFV9_FIELD_FIRST_SWITCHED:               {"FIRST_SWITCHED", 4},
	NFV9_FIELD_OUT_BYTES:                    {"OUT_BYTES", 0},
	NFV9_FIELD_OUT_PKTS:                     {"OUT_PKTS", 0},
	NFV9_FIELD_MIN_PKT_LNGTH:                {"MIN_PKT_LNGTH", 2},
	NFV9_FIELD_MAX_PKT_LNGTH:                {"MAX_PKT_LNGTH", 2},
	NFV9_FIELD_IPV6_SRC_ADDR:                {"IPV6_SRC_ADDR", 16},
	NFV9_FIELD_IPV6_DST_ADDR:                {"IPV6_DST_ADDR", 16},
	NFV9_FIELD_IPV6_SRC_MASK:                {"IPV6_SRC_MASK", 1},
	NFV9_FIELD_IPV6_DST_MASK:                {"IPV6_DST_MASK", 1},
	NFV9_FIELD_IPV6_FLOW_LABEL:              {"IPV6_FLOW_LABEL", 3},
	NFV9_FIELD_ICMP_TYPE:                    {"ICMP_TYPE", 2},
	NFV9_FIELD_MUL_IGMP_TYPE:                {"MUL_IGMP_TYPE", 1},
	NFV9_FIELD_SAMPLING_INTERVAL:            {"SAMPLING_INTERVAL", 4},
	NFV9_FIELD_SAMPLING_ALGORITHM:           {"SAMPLING_ALGORITHM", 1},
	NFV9_FIELD_FLOW_ACTIVE_TIMEOUT:          {"FLOW_ACTIVE_TIMEOUT", 2},
	NFV9_FIELD_FLOW_INACTIVE_TIMEOUT:        {"FLOW_INACTIVE_TIMEOUT", 2},
	NFV9_FIELD_ENGINE_TYPE:                  {"ENGINE_TYPE", 1},
	NFV9_FIELD_ENGINE_ID:                    {"ENGINE_ID", 1},
	NFV9_FIELD_TOTAL_BYTES_EXP:              {"TOTAL_BYTES_EXP", 0},
	NFV9_FIELD_TOTAL_PKTS_EXP:               {"TOTAL_PKTS_EXP", 0},
	NFV9_FIELD_TOTAL_FLOWS_EXP:              {"TOTAL_FLOWS_EXP", 0},
	NFV9_FIELD_IPV4_SRC_PREFIX:              {"IPV4_SRC_PREFIX", 4},
	NFV9_FIELD_IPV4_DST_PREFIX:              {"IPV4_DST_PREFIX", 4},
	NFV9_FIELD_MPLS_TOP_LABEL_TYPE:          {"MPLS_TOP_LABEL_TYPE", 1},
	NFV9_FIELD_MPLS_TOP_LABEL_IP_ADDR:       {"MPLS_TOP_LABEL_IP_ADDR", 4},
	NFV9_FIELD_FLOW_SAMPLER_ID:              {"FLOW_SAMPLER_ID", 1},
	NFV9_FIELD_FLOW_SAMPLER_MODE:            {"FLOW_SAMPLER_MODE", 1},
	NFV9_FIELD_FLOW_SAMPLER_RANDOM_INTERVAL: {"FLOW_SAMPLER_RANDOM_INTERVAL", 4},
	NFV9_FIELD_MIN_TTL:                      {"MIN_TTL", 1},
	NFV9_FIELD_MAX_TTL:                      {"MAX_TTL", 1},
	NFV9_FIELD_IPV4_IDENT:                   {"IPV4_IDENT", 2},
	NFV9_FIELD_DST_TOS:                      {"DST_TOS", 1},
	NFV9_FIELD_IN_SRC_MAC:                   {"IN_SRC_MAC", 6},
	NFV9_FIELD_OUT_DST_MAC:                  {"OUT_DST_MAC", 6},
	NFV9_FIELD_SRC_VLAN:                     {"SRC_VLAN", 2},
	NFV9_FIELD_DST_VLAN:                     {"DST_VLAN", 2},
	NFV9_FIELD_IP_PROTOCOL_VERSION:          {"IP_PROTOCOL_VERSION", 1},
	NFV9_FIELD_DIRECTION:                    {"DIRECTION", 1},
	NFV9_FIELD_IPV6_NEXT_HOP:                {"IPV6_NEXT_HOP", 16},
	NFV9_FIELD_BGP_IPV6_NEXT_HOP:            {"BPG_IPV6_NEXT_HOP", 16},
	NFV9_FIELD_IPV6_OPTION_HEADERS:          {"IPV6_OPTION_HEADERS", 4},
	NFV9_FIELD_MPLS_LABEL_1:                 {"MPLS_LABEL_1", 3},
	NFV9_FIELD_MPLS_LABEL_2:                 {"MPLS_LABEL_2", 3},
	NFV9_FIELD_MPLS_LABEL_3:                 {"MPLS_LABEL_3", 3},
	NFV9_FIELD_IN_DST_MAC:                   {"IN_DST_MAC", 6},
	NFV9_FIELD_OUT_SRC_MAC:                  {"OUT_SRC_MAC", 6},
	NFV9_FIELD_IF_NAME:                      {"IF_NAME", 0},
	NFV9_FIELD_IF_DESC:                      {"IF_DESC", 0},
	NFV9_FIELD_SAMPLER_NAME:                 {"SAMPLER_NAME", 0},
	NFV9_FIELD_IN_PERMANENT_BYTES:           {"IN_PERMANENT_BYTES", 0},
	NFV9_FIELD_IN_PERMANENT_PKTS:            {"IN_PERMANENT_PKTS", 0},
	NFV9_FIELD_FRAGMENT_OFFSET:              {"FRAGMENT_OFFSET", 2},
	NFV9_FIELD_FORWARDING_STATUS:            {"FORWARDING STATUS", 1},
	NFV9_FIELD_APPLICATION_ID:               {"APPLICATION_ID", 0},
	NFV9_FIELD_FLOW_START_SECONDS:           {"flowStartSeconds", 4},
	NFV9_FIELD_FLOW_END_SECONDS:             {"flowEndSeconds", 4},
	NFV9_FIELD_FLOW_START_MILLISECONDS:      {"flowStartMilliseconds", 8},
	NFV9_FIELD_FLOW_END_MILLISECONDS:        {"flowEndMilliseconds", 8},
	NFV9_FIELD_DOT1Q_VLAN_ID:                {"dot1qVlanId", 2},
	CISCO_FIELD_SGT_SOURCE:                  {"SGT_SOURCE", 2},
	CISCO_FIELD_SGT_DESTINATION:             {"SGT_DESTINATION", 2},
}

var ipfixFields = map[uint16]FieldInfo{
	IPFIX_FIELD_octetDeltaCount:              {"octetDeltaCount", 8},
	IPFIX_FIELD_packetDeltaCount:             {"packetDeltaCount", 8},
	IPFIX_FIELD_deltaFlowCount:               {"deltaFlowCount", 8},
	IPFIX_FIELD_protocolIdentifier:           {"protocolIdentifier", 1},
	IPFIX_FIELD_ipClassOfService:             {"ipClassOfService", 1},
	IPFIX_FIELD_tcpControlBits:               {"tcpControlBits", 2},
	IPFIX_FIELD_sourceTransportPort:          {"sourceTransportPort", 2},
	IPFIX_FIELD_sourceIPv4Address:            {"sourceIPv4Address", 4},
	IPFIX_FIELD_sourceIPv4PrefixLength:       {"sourceIPv4PrefixLength", 1},
	IPFIX_FIELD_ingressInterface:             {"ingressInterface", 4},
	IPFIX_FIELD_destinationTransportPort:     {"destinationTransportPort", 2},
	IPFIX_FIELD_destinationIPv4Address:       {"destinationIPv4Address", 4},
	IPFIX_FIELD_destinationIPv4PrefixLength:  {"destinationIPv4PrefixLength", 1},
	IPFIX_FIELD_egressInterface:              {"egressInterface", 4},
	IPFIX_FIELD_ipNextHopIPv4Address:         {"ipNextHopIPv4Address", 4},
	IPFIX_FIELD_bgpSourceAsNumber:            {"bgpSourceAsNumber", 4},
	IPFIX_FIELD_bgpDestinationAsNumber:       {"bgpDestinationAsNumber", 4},
	IPFIX_FIELD_bgpNextHopIPv4Address:        {"bgpNextHopIPv4Address", 4},
	IPFIX_FIELD_postMCastPacketDeltaCount:    {"postMCastPacketDeltaCount", 8},
	IPFIX_FIELD_postMCastOctetDeltaCount:     {"postMCastOctetDeltaCount", 8},
	IPFIX_FIELD_flowEndSysUpTime:             {"flowEndSysUpTime", 4},
	IPFIX_FIELD_flowStartSysUpTime:           {"flowStartSysUpTime", 4},
	IPFIX_FIELD_postOctetDeltaCount:          {"postOctetDeltaCount", 8},
	IPFIX_FIELD_postPacketDeltaCount:         {"postPacketDeltaCount", 8},
	IPFIX_FIELD_minimumIpTotalLength:         {"minimumIpTotalLength", 8},
	IPFIX_FIELD_maximumIpTotalLength:         {"maximumIpTotalLength", 8},
	IPFIX_FIELD_sourceIPv6Address:            {"sourceIPv6Address", 16},
	IPFIX_FIELD_destinationIPv6Address:       {"destinationIPv6Address", 16},
	IPFIX_FIELD_sourceIPv6PrefixLength:       {"sourceIPv6PrefixLength", 1},
	IPFIX_FIELD_destinationIPv6PrefixLength:  {"destinationIPv6PrefixLength", 1},
	IPFIX_FIELD_flowLabelIPv6:                {"flowLabelIPv6", 4},
	IPFIX_FIELD_icmpTypeCodeIPv4:             {"icmpTypeCodeIPv4", 2},
	IPFIX_FIELD_igmpType:                     {"igmpType", 1},
	IPFIX_FIELD_samplingInterval:             {"samplingInterval", 4},
	IPFIX_FIELD_samplingAlgorithm:            {"samplingAlgorithm", 1},
	IPFIX_FIELD_flowActiveTimeout:            {"flowActiveTimeout", 2},
	IPFIX_FIELD_flowIdleTimeout:              {"flowIdleTimeout", 2},
	IPFIX_FIELD_engineType:                   {"engineType", 1},
	IPFIX_FIELD_engineId:                     {"engineId", 1},
	IPFIX_FIELD_exportedOctetTotalCount:      {"exportedOctetTotalCount", 8},
	IPFIX_FIELD_exportedMessageTotalCount:    {"exportedMessageTotalCount", 8},
	IPFIX_FIELD_exportedFlowRecordTotalCount: {"exportedFlowRecordTotalCount", 8},
	IPFIX_FIELD_sourceIPv4Prefix:             {"sourceIPv4Prefix", 4},
	IPFIX_FIELD_destinationIPv4Prefix:        {"destinationIPv4Prefix", 4},
	IPFIX_FIELD_mplsTopLabelType:             {"mplsTopLabelType", 1},
	IPFIX_FIELD_mplsTopLabelIPv4Address:      {"mplsTopLabelIPv4Address", 4},
	IPFIX_FIELD_samplerId:                    {"samplerId", 1},
	IPFIX_FIELD_samplerMode:                  {"samplerMode", 1},
	IPFIX_FIELD_samplerRandomInterval:        {"samplerRandomInterval", 4},
	IPFIX_FIELD_classId:                      {"classId", 1},
	IPFIX_FIELD_minimumTTL:                   {"minimumTTL", 1},
	IPFIX_FIELD_maximumTTL:                   {"maximumTTL", 1},
	IPFIX_FIELD_fragmentIdentification:       {"fragmentIdentification", 4},
	IPFIX_FIELD_postIpClassOfService:         {"postIpClassOfService", 1},
	IPFIX_FIELD_sourceMacAddress:             {"sourceMacAddress", 6},
	IPFIX_FIELD_postDestinationMacAddress:    {"postDestinationMacAddress", 6},
	IPFIX_FIELD_vlanId:                       {"vlanId", 2},
	IPFIX_FIELD_postVlanId:                   {"postVlanId", 2},
	IPFIX_FIELD_ipVersion:                    {"ipVersion", 1},
	IPFIX_FIELD_flowDirection:                {"flowDirection", 1},
	IPFIX_FIELD_ipNextHopIPv6Address:         {"ipNextHopIPv6Address", 16},
	IPFIX_FIELD_bgpNextHopIPv6Address:        {"bgpNextHopIPv6Address", 16},
	IPFIX_FIELD_ipv6ExtensionHeaders:         {"ipv6ExtensionHeaders", 4},
	IPFIX_FIELD_mplsTopLabelStackSection:     {"mplsTopLabelStackSection", 0},
	IPFIX_FIELD_mplsLabelStackSection2:       {"mplsLabelStackSection2", 0},
	IPFIX_FIELD_mplsLabelStackSection3:       {"mplsLabelStackSection3", 0},
	IPFIX_FIELD_destinationMacAddress:        {"destinationMacAddress", 6},
	IPFIX_FIELD_postSourceMacAddress:         {"postSourceMacAddress", 6},
	IPFIX_FIELD_interfaceName:                {"interfaceName", 0},
	IPFIX_FIELD_interfaceDescription:         {"interfaceDescription", 0},
	IPFIX_FIELD_octetTotalCount:              {"octetTotalCount", 8},
	IPFIX_FIELD_packetTotalCount:             {"packetTotalCount", 8},
	IPFIX_FIELD_fragmentOffset:               {"fragmentOffset", 2},
	IPFIX_FIELD_forwardingStatus:             {"forwardingStatus", 0},
	IPFIX_FIELD_applicationId:                {"applicationId", 0},
	IPFIX_FIELD_flowEndReason:                {"flowEndReason", 1},
	IPFIX_FIELD_flowStartSeconds:             {"flowStartSeconds", 4},
	IPFIX_FIELD_flowEndSeconds:               {"flowEndSeconds", 4},
	IPFIX_FIELD_flowStartMilliseconds:        {"flowStartMilliseconds", 8},
	IPFIX_FIELD_flowEndMilliseconds:          {"flowEndMilliseconds", 8},
	IPFIX_FIELD_flowStartMicroseconds:        {"flowStartMicroseconds", 8},
	IPFIX_FIELD_flowEndMicroseconds:          {"flowEndMicroseconds", 8},
	IPFIX_FIELD_flowStartNanoseconds:         {"flowStartNanoseconds", 8},
	IPFIX_FIELD_flowEndNanoseconds:           {"flowEndNanoseconds", 8},
	IPFIX_FIELD_systemInitTimeMilliseconds:   {"systemInitTimeMilliseconds", 8},
	IPFIX_FIELD_ingressVRFID:                 {"ingressVRFID", 4},
	IPFIX_FIELD_egressVRFID:                  {"egressVRFID", 4},
	IPFIX_FIELD_dot1qVlanId:                  {"dot1qVlanId", 2},
	IPFIX_FIELD_dot1qPriority:                {"dot1qPriority", 1},
	IPFIX_FIELD_dot1qCustomerVlanId:          {"dot1qCustomerVlanId", 2},
}

type enterpriseFieldKey struct {
	pen uint32
	id  uint16
}

var (
	enterpriseFieldsLock = &sync.RWMutex{}
	enterpriseFields     = map[enterpriseFieldKey]FieldInfo{
		{CiscoPEN, CISCO_FIELD_SGT_SOURCE}:      {"ciscoSourceSGT", 2},
		{CiscoPEN, CISCO_FIELD_SGT_DESTINATION}: {"ciscoDestinationSGT", 2},
	}
)

// RegisterEnterpriseField adds or replaces a vendor information element.
func RegisterEnterpriseField(pen uint32, id uint16, info FieldInfo) {
	enterpriseFieldsLock.Lock()
	enterpriseFields[enterpriseFieldKey{pen, id}] = info
	enterpriseFieldsLock.Unlock()
}

// LookupField finds the dictionary entry of a template field.
func LookupField(version uint16, field Field) (FieldInfo, bool) {
	if field.PenProvided {
		enterpriseFieldsLock.RLock()
		defer enterpriseFieldsLock.RUnlock()
		info, ok := enterpriseFields[enterpriseFieldKey{field.Pen, field.Type}]
		return info, ok
	}
	var info FieldInfo
	var ok bool
	if version == 10 {
		info, ok = ipfixFields[field.Type]
	} else {
		info, ok = nfv9Fields[field.Type]
	}
	return info, ok
}

// CheckFieldLength reports a field whose length differs from the width the
// dictionary expects. Unknown and variable width elements always pass.
func CheckFieldLength(version uint16, field Field) (FieldInfo, bool) {
	info, ok := LookupField(version, field)
	if !ok || info.Length == 0 {
		return info, true
	}
	return info, info.Length == field.Length
}

func FieldName(version uint16, field Field) string {
	if info, ok := LookupField(version, field); ok {
		return info.Name
	}
	if field.PenProvided {
		return fmt.Sprintf("enterprise(%d/%d)", field.Pen, field.Type)
	}
	return "Unassigned"
}

func NFv9TypeToString(typeId uint16) string {
	if info, ok := nfv9Fields[typeId]; ok {
		return info.Name
	}
	return "Unassigned"
}

func IPFIXTypeToString(typeId uint16) string {
	if info, ok := ipfixFields[typeId]; ok {
		return info.Name
	}
	if typeId&0x8000 != 0 {
		return "Enterprise"
	}
	return "Unassigned"
}
