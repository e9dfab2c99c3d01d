package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// DeliveryResult counts one exporter batch handed to a transport.
func DeliveryResult(transport string, records int, err error) {
	status := "success"
	if err != nil {
		status = "dropped"
	}
	labels := prometheus.Labels{
		"transport": transport,
		"status":    status,
	}
	DeliveryRequests.With(labels).Inc()
	DeliveryRecords.With(labels).Add(float64(records))
}
