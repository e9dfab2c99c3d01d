// Package collector runs the listeners, accumulates decoded records and
// delivers them in per-exporter batches.
package collector

import (
	"context"
	"errors"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/netsampler/trustflow/decoders/netflow"
	"github.com/netsampler/trustflow/format"
	"github.com/netsampler/trustflow/metrics"
	"github.com/netsampler/trustflow/pkg/listen"
	"github.com/netsampler/trustflow/producer"
	"github.com/netsampler/trustflow/transport"
	"github.com/netsampler/trustflow/utils"
	"github.com/netsampler/trustflow/utils/debug"
	"github.com/netsampler/trustflow/utils/retry"
	"github.com/netsampler/trustflow/utils/templates"
)

const (
	DefaultBatchSize     = 1000
	DefaultBatchInterval = 5 * time.Second
	DefaultConcurrency   = 4
)

// Config configures a Collector.
type Config struct {
	Listeners []listen.ListenerConfig
	Formatter format.FormatInterface
	Transport *transport.Transport
	Producer  producer.ProducerInterface
	Templates *templates.Registry
	Clock     clock.Clock

	BatchSize     int
	BatchInterval time.Duration
	Retry         retry.Config
	// Concurrency bounds the exporter batches delivered at the same time.
	Concurrency   int
	ReceiveBuffer int

	ErrCnt int
	ErrInt time.Duration
	Logger logrus.FieldLogger
}

// Stats are the running counters of a collector.
type Stats struct {
	TotalReceived uint64  `json:"total_received"`
	TotalSent     uint64  `json:"total_sent"`
	Pending       int     `json:"pending"`
	Errors        uint64  `json:"errors"`
	BatchSize     int     `json:"batch_size"`
	BatchInterval float64 `json:"batch_interval"`
}

// Collector manages receivers, flow pipes and the delivery of their records.
type Collector struct {
	listeners     []listen.ListenerConfig
	formatter     format.FormatInterface
	transport     *transport.Transport
	producer      producer.ProducerInterface
	templates     *templates.Registry
	clock         clock.Clock
	batchSize     int
	batchInterval time.Duration
	retry         retry.Config
	concurrency   int
	receiveBuffer int
	errCnt        int
	errInt        time.Duration
	logger        logrus.FieldLogger

	lock    sync.Mutex
	pending []producer.FlowRecord
	full    chan struct{}

	totalReceived atomic.Uint64
	totalSent     atomic.Uint64
	errors        atomic.Uint64
	collecting    atomic.Bool

	receivers []*utils.UDPReceiver
	pipes     []utils.FlowPipe
	ctx       context.Context
	cancel    context.CancelFunc
	stopCh    chan struct{}
	stopOnce  sync.Once
	wg        sync.WaitGroup
}

// New creates a Collector from config.
func New(cfg Config) (*Collector, error) {
	if cfg.Formatter == nil {
		return nil, errors.New("formatter is required")
	}
	if cfg.Transport == nil {
		return nil, errors.New("transport is required")
	}
	c := &Collector{
		listeners:     cfg.Listeners,
		formatter:     cfg.Formatter,
		transport:     cfg.Transport,
		producer:      cfg.Producer,
		templates:     cfg.Templates,
		clock:         cfg.Clock,
		batchSize:     cfg.BatchSize,
		batchInterval: cfg.BatchInterval,
		retry:         cfg.Retry,
		concurrency:   cfg.Concurrency,
		receiveBuffer: cfg.ReceiveBuffer,
		errCnt:        cfg.ErrCnt,
		errInt:        cfg.ErrInt,
		logger:        cfg.Logger,
		full:          make(chan struct{}, 1),
	}
	if c.clock == nil {
		c.clock = clock.New()
	}
	if c.logger == nil {
		c.logger = logrus.StandardLogger()
	}
	if c.producer == nil {
		c.producer = producer.CreateProducer()
	}
	if c.templates == nil {
		c.templates = templates.NewRegistry(c.clock, netflow.DefaultTemplateExpiry, metrics.PromTemplateWrapper)
	}
	if c.batchSize <= 0 {
		c.batchSize = DefaultBatchSize
	}
	if c.batchInterval <= 0 {
		c.batchInterval = DefaultBatchInterval
	}
	if c.concurrency <= 0 {
		c.concurrency = DefaultConcurrency
	}
	if c.retry.MaxAttempts == 0 {
		c.retry = retry.DefaultConfig()
	}
	return c, nil
}

// Start launches the flush loop and the receivers. Receiver errors are logged
// from the decoding workers, muted per listener.
func (c *Collector) Start() error {
	c.stopCh = make(chan struct{})
	c.ctx, c.cancel = context.WithCancel(context.Background())

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.flushLoop()
	}()

	for _, listenCfg := range c.listeners {
		logger := c.logger.WithFields(logrus.Fields{
			"scheme":     listenCfg.Scheme,
			"hostname":   listenCfg.Hostname,
			"port":       listenCfg.Port,
			"count":      listenCfg.NumSockets,
			"workers":    listenCfg.NumWorkers,
			"blocking":   listenCfg.Blocking,
			"queue_size": listenCfg.QueueSize,
		})
		logger.Info("starting collection")

		bm := utils.NewBatchMute(c.clock, c.errInt, c.errCnt)
		recv, err := utils.NewUDPReceiver(&utils.UDPReceiverConfig{
			Sockets:          listenCfg.NumSockets,
			Workers:          listenCfg.NumWorkers,
			QueueSize:        listenCfg.QueueSize,
			Blocking:         listenCfg.Blocking,
			ReceiveBuffer:    c.receiveBuffer,
			ReceiverCallback: metrics.NewReceiverMetric(),
			ErrorHandler: func(err error) {
				c.logReceiverError(logger, bm, err)
			},
		})
		if err != nil {
			return err
		}

		p := utils.NewNetFlowPipe(&utils.PipeConfig{
			Protocol:  listenCfg.Protocol,
			Producer:  c.producer,
			Templates: c.templates,
			Sink:      c.Add,
			Logger:    logger,
		})

		decodeFunc := p.DecodeFlow
		decodeFunc = debug.PanicDecoderWrapper(decodeFunc)
		decodeFunc = metrics.PromDecoderWrapper(decodeFunc, listenCfg.Scheme)
		c.pipes = append(c.pipes, p)

		if err := recv.Start(listenCfg.Hostname, listenCfg.Port, decodeFunc); err != nil {
			return err
		}
		c.receivers = append(c.receivers, recv)
	}

	c.collecting.Store(true)
	return nil
}

func (c *Collector) logReceiverError(logger logrus.FieldLogger, bm *utils.BatchMute, err error) {
	if errors.Is(err, net.ErrClosed) {
		logger.Info("closed receiver")
		return
	}

	muted, skipped := bm.Increment()
	if muted && skipped == 0 {
		logger.Warn("too many receiver messages, muting")
		return
	} else if skipped > 0 {
		logger.WithField("count", skipped).Warn("skipped receiver messages")
	}
	if muted {
		return
	}

	entry := logger.WithError(err)
	switch {
	case errors.Is(err, netflow.ErrorTemplateNotFound):
		entry.Warn("template error")
	case errors.Is(err, debug.ErrPanic):
		var pErrMsg *debug.PanicErrorMessage
		if errors.As(err, &pErrMsg) {
			entry = entry.WithFields(logrus.Fields{
				"message":    pErrMsg.Msg,
				"stacktrace": string(pErrMsg.Stacktrace),
			})
		}
		entry.Error("intercepted panic")
	default:
		entry.Error("error decoding packet")
	}
}

// Add appends records to the accumulator. Reaching the batch size wakes the
// flush loop.
func (c *Collector) Add(records []producer.FlowRecord) {
	if len(records) == 0 {
		return
	}
	c.lock.Lock()
	c.pending = append(c.pending, records...)
	pending := len(c.pending)
	c.lock.Unlock()

	c.totalReceived.Add(uint64(len(records)))
	metrics.PendingRecords.Set(float64(pending))
	if pending >= c.batchSize {
		c.wake()
	}
}

func (c *Collector) wake() {
	select {
	case c.full <- struct{}{}:
	default:
	}
}

// take removes at most max records from the front of the accumulator.
func (c *Collector) take(max int) []producer.FlowRecord {
	c.lock.Lock()
	defer c.lock.Unlock()

	n := len(c.pending)
	if n > max {
		n = max
	}
	records := make([]producer.FlowRecord, n)
	copy(records, c.pending)
	c.pending = append(c.pending[:0:0], c.pending[n:]...)
	metrics.PendingRecords.Set(float64(len(c.pending)))
	return records
}

func (c *Collector) flushLoop() {
	ticker := c.clock.Ticker(c.batchInterval)
	defer ticker.Stop()
	for {
		select {
		case <-c.stopCh:
			return
		case <-ticker.C:
		case <-c.full:
		}
		c.Flush(c.ctx)
		if c.Pending() >= c.batchSize {
			c.wake()
		}
	}
}

// Flush delivers at most one batch of records and returns how many were sent.
func (c *Collector) Flush(ctx context.Context) int {
	records := c.take(c.batchSize)
	if len(records) == 0 {
		return 0
	}
	timer := metrics.TimeMeasureNow(c.clock)
	defer timer.MeasureTime(metrics.FlushTime)

	var sent atomic.Int64
	g := new(errgroup.Group)
	g.SetLimit(c.concurrency)
	for _, batch := range producer.GroupByExporter(records) {
		batch := batch
		g.Go(func() error {
			if c.deliver(ctx, batch) == nil {
				sent.Add(int64(len(batch.Records)))
			}
			return nil
		})
	}
	_ = g.Wait()
	return int(sent.Load())
}

// deliver sends the batch of one exporter. A batch still failing after the
// retries is dropped and counted.
func (c *Collector) deliver(ctx context.Context, batch *producer.Batch) error {
	logger := c.logger.WithFields(logrus.Fields{
		"exporter":  batch.Exporter,
		"records":   len(batch.Records),
		"transport": c.transport.Name(),
	})

	key, data, err := c.formatter.Format(batch)
	if err == nil {
		timer := metrics.TimeMeasureNow(c.clock)
		ctx = transport.WithMetadata(ctx, transport.Metadata{
			ContentType: c.formatter.ContentType(),
			RecordCount: len(batch.Records),
		})

		retryCfg := c.retry
		if retryCfg.Notify == nil {
			retryCfg.Notify = func(err error, delay time.Duration) {
				logger.WithError(err).WithField("delay", delay).Warn("delivery failed, retrying")
			}
		}
		err = retry.Do(ctx, retryCfg, func(ctx context.Context) error {
			return c.transport.Send(ctx, key, data)
		})
		timer.MeasureTime(metrics.DeliveryTime.With(prometheus.Labels{"transport": c.transport.Name()}))
	}

	metrics.DeliveryResult(c.transport.Name(), len(batch.Records), err)
	if err != nil {
		c.errors.Add(1)
		logger.WithError(err).Error("dropping batch")
		return err
	}
	c.totalSent.Add(uint64(len(batch.Records)))
	return nil
}

// Stop stops receivers and pipes, then flushes every queued record. An
// expired ctx cancels deliveries in progress. Only the first call has an
// effect.
func (c *Collector) Stop(ctx context.Context) {
	c.stopOnce.Do(func() {
		c.stop(ctx)
	})
}

func (c *Collector) stop(ctx context.Context) {
	c.collecting.Store(false)
	if c.stopCh != nil {
		close(c.stopCh)
	}

	for _, recv := range c.receivers {
		if err := recv.Stop(); err != nil {
			c.logger.WithError(err).Error("error stopping receiver")
		}
	}
	for _, pipe := range c.pipes {
		pipe.Close()
	}

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
	}
	if c.cancel != nil {
		c.cancel()
	}
	<-done

	for c.Pending() > 0 && ctx.Err() == nil {
		c.Flush(ctx)
	}
	if pending := c.Pending(); pending > 0 {
		c.logger.WithField("count", pending).Warn("records left undelivered")
	}
}

func (c *Collector) Pending() int {
	c.lock.Lock()
	defer c.lock.Unlock()
	return len(c.pending)
}

func (c *Collector) Stats() Stats {
	return Stats{
		TotalReceived: c.totalReceived.Load(),
		TotalSent:     c.totalSent.Load(),
		Pending:       c.Pending(),
		Errors:        c.errors.Load(),
		BatchSize:     c.batchSize,
		BatchInterval: c.batchInterval.Seconds(),
	}
}

// Collecting reports whether the receivers are running.
func (c *Collector) Collecting() bool {
	return c.collecting.Load()
}

// Target is the destination records are delivered to.
func (c *Collector) Target() string {
	return c.transport.Target()
}

func (c *Collector) Templates() *templates.Registry {
	return c.templates
}
