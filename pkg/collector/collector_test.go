package collector

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/netip"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/netsampler/trustflow/decoders/netflow"
	"github.com/netsampler/trustflow/decoders/netflowlegacy"
	"github.com/netsampler/trustflow/format"
	_ "github.com/netsampler/trustflow/format/json"
	"github.com/netsampler/trustflow/pkg/listen"
	"github.com/netsampler/trustflow/producer"
	"github.com/netsampler/trustflow/transport"
	"github.com/netsampler/trustflow/utils/retry"
)

type sent struct {
	key      string
	metadata transport.Metadata
	batch    struct {
		Exporter string            `json:"exporter_identity"`
		Records  []json.RawMessage `json:"records"`
	}
}

type testTransportDriver struct {
	lock  sync.Mutex
	fail  int
	calls int
	sent  []sent
}

func (d *testTransportDriver) Prepare() error                  { return nil }
func (d *testTransportDriver) Init(ctx context.Context) error  { return nil }
func (d *testTransportDriver) Close(ctx context.Context) error { return nil }

func (d *testTransportDriver) Send(ctx context.Context, key, data []byte) error {
	d.lock.Lock()
	defer d.lock.Unlock()
	d.calls++
	if d.fail < 0 || d.calls <= d.fail {
		return errors.New("backend unavailable")
	}
	s := sent{key: string(key)}
	s.metadata, _ = transport.MetadataFromContext(ctx)
	if err := json.Unmarshal(data, &s.batch); err != nil {
		return retry.Permanent(err)
	}
	d.sent = append(d.sent, s)
	return nil
}

func (d *testTransportDriver) records() int {
	d.lock.Lock()
	defer d.lock.Unlock()
	var count int
	for _, s := range d.sent {
		count += len(s.batch.Records)
	}
	return count
}

func newTestCollector(t *testing.T, driver *testTransportDriver, clk clock.Clock, batchSize int) *Collector {
	t.Helper()
	formatter, err := format.FindFormat("json")
	require.NoError(t, err)
	logger, _ := test.NewNullLogger()

	c, err := New(Config{
		Formatter:     formatter,
		Transport:     transport.NewTransport("test", driver),
		Clock:         clk,
		BatchSize:     batchSize,
		BatchInterval: 5 * time.Second,
		Retry: retry.Config{
			MaxAttempts:   3,
			BackoffFactor: 2,
			InitialDelay:  time.Millisecond,
			MaxDelay:      5 * time.Millisecond,
		},
		Concurrency: 2,
		Logger:      logger,
	})
	require.NoError(t, err)
	return c
}

func testRecords(t *testing.T, exporter string, count int) []producer.FlowRecord {
	t.Helper()
	var records []producer.FlowRecord
	for i := 0; i < count; i++ {
		record, err := producer.NewRecordBuilder(exporter).
			SourceAddress(netip.MustParseAddr("10.0.0.1")).
			DestinationAddress(netip.MustParseAddr("10.0.0.2")).
			SourcePort(uint16(40000 + i)).
			DestinationPort(443).
			Build()
		require.NoError(t, err)
		records = append(records, record)
	}
	return records
}

func TestCollectorFlushTakesBatchSize(t *testing.T) {
	driver := &testTransportDriver{}
	c := newTestCollector(t, driver, clock.NewMock(), 2)

	c.Add(testRecords(t, "192.0.2.1", 3))
	assert.Equal(t, 2, c.Flush(context.Background()))

	stats := c.Stats()
	assert.Equal(t, uint64(3), stats.TotalReceived)
	assert.Equal(t, uint64(2), stats.TotalSent)
	assert.Equal(t, 1, stats.Pending)
	assert.Equal(t, uint64(0), stats.Errors)
	assert.Equal(t, 2, stats.BatchSize)
	assert.Equal(t, 5.0, stats.BatchInterval)

	assert.Equal(t, 1, c.Flush(context.Background()))
	assert.Equal(t, 0, c.Flush(context.Background()))
	assert.Equal(t, 3, driver.records())
}

func TestCollectorDeliversPerExporter(t *testing.T) {
	driver := &testTransportDriver{}
	c := newTestCollector(t, driver, clock.NewMock(), 10)

	c.Add(testRecords(t, "192.0.2.1", 2))
	c.Add(testRecords(t, "192.0.2.2", 1))
	c.Add(testRecords(t, "192.0.2.1", 1))
	assert.Equal(t, 4, c.Flush(context.Background()))

	require.Len(t, driver.sent, 2)
	counts := make(map[string]int)
	for _, s := range driver.sent {
		assert.Equal(t, s.batch.Exporter, s.key)
		assert.Equal(t, "application/json", s.metadata.ContentType)
		assert.Equal(t, len(s.batch.Records), s.metadata.RecordCount)
		counts[s.batch.Exporter] = len(s.batch.Records)
	}
	assert.Equal(t, map[string]int{"192.0.2.1": 3, "192.0.2.2": 1}, counts)
}

func TestCollectorRetries(t *testing.T) {
	driver := &testTransportDriver{fail: 2}
	c := newTestCollector(t, driver, clock.NewMock(), 10)

	c.Add(testRecords(t, "192.0.2.1", 1))
	assert.Equal(t, 1, c.Flush(context.Background()))
	assert.Equal(t, 3, driver.calls)
	assert.Equal(t, uint64(0), c.Stats().Errors)
}

func TestCollectorDropsAfterRetries(t *testing.T) {
	driver := &testTransportDriver{fail: -1}
	c := newTestCollector(t, driver, clock.NewMock(), 10)

	c.Add(testRecords(t, "192.0.2.1", 2))
	c.Add(testRecords(t, "192.0.2.2", 1))
	assert.Equal(t, 0, c.Flush(context.Background()))

	stats := c.Stats()
	assert.Equal(t, uint64(2), stats.Errors)
	assert.Equal(t, uint64(0), stats.TotalSent)
	assert.Equal(t, 0, stats.Pending)
	assert.Equal(t, 6, driver.calls)
}

func TestCollectorFlushesOnInterval(t *testing.T) {
	driver := &testTransportDriver{}
	mock := clock.NewMock()
	c := newTestCollector(t, driver, mock, 10)
	require.NoError(t, c.Start())
	defer c.Stop(context.Background())
	assert.True(t, c.Collecting())

	c.Add(testRecords(t, "192.0.2.1", 1))
	assert.Eventually(t, func() bool {
		mock.Add(5 * time.Second)
		return driver.records() == 1
	}, time.Second, 10*time.Millisecond)
}

func TestCollectorFlushesWhenFull(t *testing.T) {
	driver := &testTransportDriver{}
	c := newTestCollector(t, driver, clock.NewMock(), 2)
	require.NoError(t, c.Start())
	defer c.Stop(context.Background())

	c.Add(testRecords(t, "192.0.2.1", 2))
	assert.Eventually(t, func() bool {
		return driver.records() == 2
	}, time.Second, 10*time.Millisecond)
}

func TestCollectorStopFlushesQueued(t *testing.T) {
	driver := &testTransportDriver{}
	c := newTestCollector(t, driver, clock.NewMock(), 100)
	require.NoError(t, c.Start())

	c.Add(testRecords(t, "192.0.2.1", 3))
	c.Add(testRecords(t, "192.0.2.2", 2))

	done := make(chan struct{})
	go func() {
		c.Stop(context.Background())
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for collector stop")
	}

	assert.False(t, c.Collecting())
	assert.Equal(t, 5, driver.records())
	assert.Equal(t, 0, c.Pending())
	assert.Equal(t, uint64(5), c.Stats().TotalSent)
}

func TestCollectorTarget(t *testing.T) {
	c := newTestCollector(t, &testTransportDriver{}, clock.NewMock(), 1)
	assert.Equal(t, "test", c.Target())
	assert.NotNil(t, c.Templates())
}

func TestCollectorReceivesNetFlowV5(t *testing.T) {
	a, err := net.ResolveUDPAddr("udp", "127.0.0.1:0")
	require.NoError(t, err)
	l, err := net.ListenUDP("udp", a)
	require.NoError(t, err)
	port := l.LocalAddr().(*net.UDPAddr).Port
	require.NoError(t, l.Close())

	listener, err := listen.ParseListenAddress("netflowv5://127.0.0.1:" + strconv.Itoa(port) + "?blocking=true")
	require.NoError(t, err)

	driver := &testTransportDriver{}
	c := newTestCollector(t, driver, clock.NewMock(), 100)
	c.listeners = []listen.ListenerConfig{listener}
	require.NoError(t, c.Start())

	data, err := netflowlegacy.EncodeMessage(&netflowlegacy.PacketNetFlowV5{
		SysUptime: 120000,
		UnixSecs:  1700000000,
		Records: []netflowlegacy.RecordsNetFlowV5{
			{SrcAddr: 0x0a000001, DstAddr: 0x0a000002, SrcPort: 1000, DstPort: 53, Proto: 17, DOctets: 80, DPkts: 1},
		},
	})
	require.NoError(t, err)

	conn, err := net.Dial("udp", net.JoinHostPort("127.0.0.1", strconv.Itoa(port)))
	require.NoError(t, err)
	defer conn.Close()
	_, err = conn.Write(data)
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		return c.Stats().TotalReceived == 1
	}, 2*time.Second, 10*time.Millisecond)

	c.Stop(context.Background())
	require.Len(t, driver.sent, 1)
	assert.Equal(t, "127.0.0.1", driver.sent[0].batch.Exporter)
	assert.Len(t, driver.sent[0].batch.Records, 1)
}

func TestCollectorStopTwice(t *testing.T) {
	driver := &testTransportDriver{}
	c := newTestCollector(t, driver, clock.NewMock(), 10)
	require.NoError(t, c.Start())
	c.Add(testRecords(t, "192.0.2.1", 1))

	c.Stop(context.Background())
	assert.NotPanics(t, func() {
		c.Stop(context.Background())
	})
	assert.Equal(t, 1, driver.records())
}

func TestCollectorLogsEveryTemplateError(t *testing.T) {
	a, err := net.ResolveUDPAddr("udp", "127.0.0.1:0")
	require.NoError(t, err)
	l, err := net.ListenUDP("udp", a)
	require.NoError(t, err)
	port := l.LocalAddr().(*net.UDPAddr).Port
	require.NoError(t, l.Close())

	listener, err := listen.ParseListenAddress("nfv9://127.0.0.1:" + strconv.Itoa(port) + "?workers=4&blocking=true")
	require.NoError(t, err)

	c := newTestCollector(t, &testTransportDriver{}, clock.NewMock(), 100)
	logger, hook := test.NewNullLogger()
	c.logger = logger
	c.listeners = []listen.ListenerConfig{listener}
	require.NoError(t, c.Start())
	defer c.Stop(context.Background())

	data, err := netflow.EncodeMessageNetFlow(&netflow.NFv9Packet{
		SystemUptime: 60000,
		UnixSeconds:  1700000000,
		FlowSets: []interface{}{
			netflow.DataFlowSet{
				FlowSetHeader: netflow.FlowSetHeader{Id: 999},
				Records: []netflow.DataRecord{{Values: []netflow.DataField{
					{Type: netflow.NFV9_FIELD_IPV4_SRC_ADDR, Value: []byte{10, 0, 0, 1}},
				}}},
			},
		},
	})
	require.NoError(t, err)

	conn, err := net.Dial("udp", net.JoinHostPort("127.0.0.1", strconv.Itoa(port)))
	require.NoError(t, err)
	defer conn.Close()

	const count = 100
	for i := 0; i < count; i++ {
		_, err = conn.Write(data)
		require.NoError(t, err)
		// keep the loopback socket buffer from overflowing
		time.Sleep(time.Millisecond)
	}

	templateErrors := func() int {
		var n int
		for _, entry := range hook.AllEntries() {
			if entry.Message == "template error" && entry.Level == logrus.WarnLevel {
				n++
			}
		}
		return n
	}
	assert.Eventually(t, func() bool {
		return templateErrors() == count
	}, 5*time.Second, 10*time.Millisecond)
}
