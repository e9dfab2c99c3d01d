// Package nats delivers batches to a NATS JetStream subject.
package nats

import (
	"context"
	"crypto/tls"
	"errors"
	"flag"
	"fmt"
	"slices"
	"strconv"

	"github.com/caarlos0/env/v11"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	log "github.com/sirupsen/logrus"

	"github.com/netsampler/trustflow/transport"
)

const envPrefix = "TRUSTFLOW_NATS_"

type Config struct {
	URL         string `env:"URL" envDefault:"nats://localhost:4222"`
	Stream      string `env:"STREAM" envDefault:"trustflow"`
	Subject     string `env:"SUBJECT" envDefault:"trustflow.records"`
	TLSCertFile string `env:"TLS_CERT"`
	TLSKeyFile  string `env:"TLS_KEY"`
	TLSCAFile   string `env:"TLS_CA"`
	TLSInsecure bool   `env:"TLS_INSECURE"`
}

type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("nats transport: %s", e.Err.Error())
}

func (e *TransportError) Unwrap() []error {
	return []error{transport.ErrTransport, e.Err}
}

// JetStreamPublisher is the part of jetstream.JetStream used to deliver.
type JetStreamPublisher interface {
	PublishMsg(ctx context.Context, msg *nats.Msg, opts ...jetstream.PublishOpt) (*jetstream.PubAck, error)
}

// Driver implements the transport interface for NATS JetStream.
type Driver struct {
	cfg Config
	nc  *nats.Conn
	js  JetStreamPublisher
}

// NewDriver creates a driver publishing through an existing JetStream context.
func NewDriver(cfg Config, js JetStreamPublisher) *Driver {
	return &Driver{cfg: cfg, js: js}
}

func (d *Driver) Prepare() error {
	if err := env.ParseWithOptions(&d.cfg, env.Options{Prefix: envPrefix}); err != nil {
		return err
	}
	flag.StringVar(&d.cfg.URL, "transport.nats.url", d.cfg.URL, "NATS server URL")
	flag.StringVar(&d.cfg.Stream, "transport.nats.stream", d.cfg.Stream, "NATS JetStream stream name")
	flag.StringVar(&d.cfg.Subject, "transport.nats.subject", d.cfg.Subject, "NATS subject for publishing batches")
	flag.StringVar(&d.cfg.TLSCertFile, "transport.nats.tls.cert", d.cfg.TLSCertFile, "NATS client certificate file")
	flag.StringVar(&d.cfg.TLSKeyFile, "transport.nats.tls.key", d.cfg.TLSKeyFile, "NATS client key file")
	flag.StringVar(&d.cfg.TLSCAFile, "transport.nats.tls.ca", d.cfg.TLSCAFile, "NATS CA certificate file")
	flag.BoolVar(&d.cfg.TLSInsecure, "transport.nats.tls.insecure", d.cfg.TLSInsecure, "Skip TLS verification for NATS")
	return nil
}

func (d *Driver) Init(ctx context.Context) error {
	if d.js != nil {
		return nil
	}
	opts := []nats.Option{
		nats.ErrorHandler(func(_ *nats.Conn, _ *nats.Subscription, err error) {
			log.WithError(err).Error("NATS error")
		}),
		nats.ConnectHandler(func(nc *nats.Conn) {
			log.WithField("url", nc.ConnectedUrl()).Info("connected to NATS")
		}),
	}
	if d.cfg.TLSCertFile != "" && d.cfg.TLSKeyFile != "" {
		opts = append(opts, nats.ClientCert(d.cfg.TLSCertFile, d.cfg.TLSKeyFile))
	}
	if d.cfg.TLSCAFile != "" {
		opts = append(opts, nats.RootCAs(d.cfg.TLSCAFile))
	}
	if d.cfg.TLSInsecure {
		opts = append(opts, nats.Secure(&tls.Config{InsecureSkipVerify: true}))
	}

	nc, err := nats.Connect(d.cfg.URL, opts...)
	if err != nil {
		return &TransportError{Err: fmt.Errorf("failed to connect to NATS: %w", err)}
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return &TransportError{Err: fmt.Errorf("failed to create JetStream context: %w", err)}
	}
	if err := ensureStream(ctx, js, d.cfg.Stream, d.cfg.Subject); err != nil {
		nc.Close()
		return &TransportError{Err: err}
	}
	d.nc = nc
	d.js = js
	return nil
}

// ensureStream creates the stream or adds the subject to an existing one.
func ensureStream(ctx context.Context, js jetstream.JetStream, name, subject string) error {
	stream, err := js.Stream(ctx, name)
	if errors.Is(err, jetstream.ErrStreamNotFound) {
		_, err = js.CreateStream(ctx, jetstream.StreamConfig{
			Name:      name,
			Subjects:  []string{subject},
			Retention: jetstream.WorkQueuePolicy,
		})
		if err != nil {
			return fmt.Errorf("failed to create stream: %w", err)
		}
		log.WithFields(log.Fields{"stream": name, "subject": subject}).Info("created JetStream stream")
		return nil
	} else if err != nil {
		return fmt.Errorf("failed to get stream: %w", err)
	}

	info, err := stream.Info(ctx)
	if err != nil {
		return fmt.Errorf("failed to get stream info: %w", err)
	}
	if !slices.Contains(info.Config.Subjects, subject) {
		info.Config.Subjects = append(info.Config.Subjects, subject)
		if _, err = js.UpdateStream(ctx, info.Config); err != nil {
			return fmt.Errorf("failed to update stream: %w", err)
		}
		log.WithFields(log.Fields{"stream": name, "subject": subject}).Info("added subject to JetStream stream")
	}
	return nil
}

func (d *Driver) Target() string {
	return fmt.Sprintf("%s/%s", d.cfg.URL, d.cfg.Subject)
}

// Send publishes a batch and waits for the JetStream acknowledgement.
func (d *Driver) Send(ctx context.Context, key, data []byte) error {
	if d.js == nil {
		return &TransportError{Err: fmt.Errorf("NATS driver not initialized")}
	}
	msg := nats.NewMsg(d.cfg.Subject)
	msg.Data = data
	msg.Header.Set("Exporter-Identity", string(key))
	if md, ok := transport.MetadataFromContext(ctx); ok {
		msg.Header.Set("Content-Type", md.ContentType)
		msg.Header.Set("Record-Count", strconv.Itoa(md.RecordCount))
	}
	if _, err := d.js.PublishMsg(ctx, msg); err != nil {
		return &TransportError{Err: fmt.Errorf("failed to publish message: %w", err)}
	}
	return nil
}

func (d *Driver) Close(ctx context.Context) error {
	if d.nc == nil {
		return nil
	}
	if err := d.nc.Drain(); err != nil {
		return err
	}
	d.nc.Close()
	return nil
}

func init() {
	d := &Driver{}
	transport.RegisterTransportDriver("nats", d)
}
