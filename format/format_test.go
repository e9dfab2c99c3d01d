package format_test

import (
	"encoding/json"
	"net/netip"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/netsampler/trustflow/format"
	_ "github.com/netsampler/trustflow/format/binary"
	_ "github.com/netsampler/trustflow/format/csv"
	_ "github.com/netsampler/trustflow/format/json"
	_ "github.com/netsampler/trustflow/format/text"
	"github.com/netsampler/trustflow/producer"
)

func sampleBatch(t *testing.T) *producer.Batch {
	t.Helper()
	record, err := producer.NewRecordBuilder("192.0.2.1").
		SourceAddress(netip.MustParseAddr("10.0.0.1")).
		DestinationAddress(netip.MustParseAddr("10.0.0.2")).
		Protocol(6).
		DestinationSGT(42).
		Build()
	require.NoError(t, err)
	return &producer.Batch{Exporter: "192.0.2.1", Records: []producer.FlowRecord{record}}
}

func TestGetFormats(t *testing.T) {
	assert.Equal(t, []string{"bin", "csv", "json", "text"}, format.GetFormats())
}

func TestFindFormatUnknown(t *testing.T) {
	_, err := format.FindFormat("avro")
	assert.ErrorIs(t, err, format.ErrFormat)
}

func TestFormatJSON(t *testing.T) {
	f, err := format.FindFormat("json")
	require.NoError(t, err)
	assert.Equal(t, "application/json", f.ContentType())

	key, data, err := f.Format(sampleBatch(t))
	require.NoError(t, err)
	assert.Equal(t, []byte("192.0.2.1"), key)

	var decoded struct {
		ExporterIdentity string                   `json:"exporter_identity"`
		Records          []map[string]interface{} `json:"records"`
	}
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "192.0.2.1", decoded.ExporterIdentity)
	require.Len(t, decoded.Records, 1)
	assert.Equal(t, float64(42), decoded.Records[0]["destination_sgt"])
}

func TestFormatBinary(t *testing.T) {
	f, err := format.FindFormat("bin")
	require.NoError(t, err)
	key, data, err := f.Format(sampleBatch(t))
	require.NoError(t, err)
	assert.Equal(t, []byte("192.0.2.1"), key)
	assert.NotEmpty(t, data)
}

func TestFormatCSV(t *testing.T) {
	f, err := format.FindFormat("csv")
	require.NoError(t, err)
	_, data, err := f.Format(sampleBatch(t))
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "exporter_identity,source_address"))
	assert.Equal(t, "192.0.2.1,10.0.0.1,10.0.0.2,,,6,,,,,,,,,42", lines[1])
}

func TestFormatNoSerializer(t *testing.T) {
	f, err := format.FindFormat("csv")
	require.NoError(t, err)
	_, _, err = f.Format(struct{}{})
	assert.ErrorIs(t, err, format.ErrorNoSerializer)
	assert.ErrorIs(t, err, format.ErrFormat)

	var driverErr *format.DriverFormatError
	require.ErrorAs(t, err, &driverErr)
	assert.Equal(t, "csv", driverErr.Driver)
}
