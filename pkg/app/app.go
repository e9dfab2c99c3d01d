// Package app wires the configuration, the collector and the HTTP server.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/sirupsen/logrus"

	"github.com/netsampler/trustflow/format"
	"github.com/netsampler/trustflow/metrics"
	"github.com/netsampler/trustflow/pkg/collector"
	"github.com/netsampler/trustflow/pkg/config"
	"github.com/netsampler/trustflow/pkg/httpserver"
	"github.com/netsampler/trustflow/pkg/logging"
	"github.com/netsampler/trustflow/producer"
	"github.com/netsampler/trustflow/transport"
	"github.com/netsampler/trustflow/utils/templates"
)

const shutdownTimeout = 10 * time.Second

// App wires and runs the collector.
type App struct {
	cfg       *config.Config
	logger    *logrus.Logger
	collector *collector.Collector
	transport *transport.Transport
	server    *http.Server
	serverErr chan error
}

// New constructs a new App from config.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	logger, err := logging.NewLogger(os.Stderr, cfg.LogLevel, cfg.LogFmt)
	if err != nil {
		return nil, err
	}
	std := logrus.StandardLogger()
	std.SetLevel(logger.GetLevel())
	std.SetFormatter(logger.Formatter)

	formatter, err := format.FindFormat(cfg.Format)
	if err != nil {
		return nil, fmt.Errorf("build formatter %s: %w", cfg.Format, err)
	}
	transporter, err := transport.FindTransport(ctx, cfg.Transport)
	if err != nil {
		return nil, fmt.Errorf("build transport %s: %w", cfg.Transport, err)
	}
	listeners, err := cfg.Listeners()
	if err != nil {
		return nil, err
	}

	flowProducer := producer.CreateProducer()
	flowProducer = producer.WrapPanicProducer(flowProducer)
	flowProducer = metrics.WrapPromProducer(flowProducer)

	clk := clock.New()
	coll, err := collector.New(collector.Config{
		Listeners:     listeners,
		Formatter:     formatter,
		Transport:     transporter,
		Producer:      flowProducer,
		Templates:     templates.NewRegistry(clk, cfg.TemplateExpiry, metrics.PromTemplateWrapper),
		Clock:         clk,
		BatchSize:     cfg.BatchSize,
		BatchInterval: cfg.BatchInterval,
		Retry:         cfg.Retry(),
		Concurrency:   cfg.Concurrency,
		ReceiveBuffer: cfg.ReceiveBuffer,
		ErrCnt:        cfg.ErrCnt,
		ErrInt:        cfg.ErrInt,
		Logger:        logger,
	})
	if err != nil {
		return nil, err
	}

	app := &App{
		cfg:       cfg,
		logger:    logger,
		collector: coll,
		transport: transporter,
		serverErr: make(chan error, 1),
	}

	if cfg.Addr != "" {
		mux := httpserver.New(httpserver.Config{
			Addr:         cfg.Addr,
			TemplatePath: cfg.TemplatePath,
			Logger:       logger,
		}, coll)
		app.server = &http.Server{
			Addr:              cfg.Addr,
			Handler:           mux,
			ReadHeaderTimeout: time.Second * 5,
		}
	}

	return app, nil
}

// Start starts the collector and HTTP server.
func (a *App) Start() error {
	a.logger.WithFields(logrus.Fields{
		"format":    a.cfg.Format,
		"transport": a.cfg.Transport,
		"target":    a.collector.Target(),
	}).Info("starting TrustFlow")

	if err := a.collector.Start(); err != nil {
		return err
	}

	if a.server == nil {
		return nil
	}

	go func() {
		err := a.server.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.serverErr <- err
			return
		}
		a.logger.WithField("http", a.cfg.Addr).Info("closed HTTP server")
	}()

	return nil
}

// Run starts the app and blocks until context cancellation or server error.
func (a *App) Run(ctx context.Context) error {
	if err := a.Start(); err != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		a.Shutdown(shutdownCtx)
		cancel()
		return err
	}

	var err error
	select {
	case <-ctx.Done():
	case err = <-a.serverErr:
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	a.Shutdown(shutdownCtx)
	cancel()
	return err
}

// Shutdown stops receivers, flushes queued records, closes the transport and
// shuts down the HTTP server.
func (a *App) Shutdown(ctx context.Context) {
	a.collector.Stop(ctx)
	if err := a.transport.Close(ctx); err != nil {
		a.logger.WithError(err).Error("error closing transport")
	}
	a.logger.Info("transporter closed")

	if a.server == nil {
		return
	}
	if err := a.server.Shutdown(ctx); err != nil {
		a.logger.WithError(err).Error("error shutting-down HTTP server")
	}
}
