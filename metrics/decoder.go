package metrics

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/netsampler/trustflow/decoders/netflow"
	"github.com/netsampler/trustflow/decoders/netflowlegacy"
	"github.com/netsampler/trustflow/utils"
	"github.com/netsampler/trustflow/utils/debug"
)

// errorLabel classifies a decode error for the error counter.
func errorLabel(err error) string {
	switch {
	case errors.Is(err, debug.ErrPanic):
		return "panic"
	case errors.Is(err, netflow.ErrorTemplateNotFound):
		return "template_not_found"
	case errors.Is(err, netflow.ErrorMalformedSet):
		return "malformed_set"
	case errors.Is(err, netflow.ErrorUnknownVersion), errors.Is(err, netflowlegacy.ErrorVersion):
		return "error_version"
	case errors.Is(err, utils.ErrorProtocolMismatch):
		return "protocol_mismatch"
	}
	return "error_decoding"
}

// PromDecoderWrapper counts traffic, decoding time and errors of a decoder.
func PromDecoderWrapper(wrapped utils.DecoderFunc, name string) utils.DecoderFunc {
	return func(msg interface{}) error {
		pkt, ok := msg.(*utils.Message)
		if !ok {
			return fmt.Errorf("flow is not *Message")
		}
		remote := pkt.Src.Addr().Unmap().String()
		localIP := pkt.Dst.Addr().Unmap().String()
		port := strconv.FormatUint(uint64(pkt.Dst.Port()), 10)
		size := len(pkt.Payload)

		labels := prometheus.Labels{
			"remote_ip":  remote,
			"local_ip":   localIP,
			"local_port": port,
			"type":       name,
		}
		MetricTrafficBytes.With(labels).Add(float64(size))
		MetricTrafficPackets.With(labels).Inc()
		MetricPacketSizeSum.With(labels).Observe(float64(size))

		timeTrackStart := time.Now().UTC()

		err := wrapped(msg)

		timeTrackStop := time.Now().UTC()

		DecoderTime.With(
			prometheus.Labels{
				"name": name,
			}).
			Observe(float64((timeTrackStop.Sub(timeTrackStart)).Nanoseconds()) / 1000)

		if err != nil {
			DecoderErrors.With(
				prometheus.Labels{
					"router": remote,
					"name":   name,
					"error":  errorLabel(err),
				}).
				Inc()
		}
		return err
	}
}
