// Package csv formats batches as CSV with a header row.
package csv

import (
	"bytes"
	"encoding/csv"
	"fmt"

	"github.com/netsampler/trustflow/format"
	"github.com/netsampler/trustflow/producer"
)

var columns = []string{
	"exporter_identity",
	"source_address", "destination_address",
	"source_port", "destination_port", "protocol",
	"byte_count", "packet_count",
	"flow_start", "flow_end",
	"source_mac", "destination_mac", "vlan_id",
	"source_sgt", "destination_sgt",
}

type CSVDriver struct {
}

func (d *CSVDriver) Prepare() error {
	return nil
}

func (d *CSVDriver) Init() error {
	return nil
}

func (d *CSVDriver) ContentType() string {
	return "text/csv"
}

func column[T any](v *T) string {
	if v == nil {
		return ""
	}
	return fmt.Sprint(*v)
}

func row(r producer.FlowRecord) []string {
	c := r.Canonical()
	return []string{
		c.ExporterIdentity,
		c.SourceAddress, c.DestinationAddress,
		column(c.SourcePort), column(c.DestinationPort), column(c.Protocol),
		column(c.ByteCount), column(c.PacketCount),
		column(c.FlowStart), column(c.FlowEnd),
		column(c.SourceMAC), column(c.DestinationMAC), column(c.VlanID),
		column(c.SourceSGT), column(c.DestinationSGT),
	}
}

func (d *CSVDriver) Format(data interface{}) ([]byte, []byte, error) {
	batch, ok := data.(*producer.Batch)
	if !ok {
		return nil, nil, format.ErrorNoSerializer
	}
	buf := &bytes.Buffer{}
	w := csv.NewWriter(buf)
	if err := w.Write(columns); err != nil {
		return nil, nil, err
	}
	for _, record := range batch.Records {
		if err := w.Write(row(record)); err != nil {
			return nil, nil, err
		}
	}
	w.Flush()
	return batch.Key(), buf.Bytes(), w.Error()
}

func init() {
	d := &CSVDriver{}
	format.RegisterFormatDriver("csv", d)
}
