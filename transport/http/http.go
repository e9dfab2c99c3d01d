// Package http delivers batches to the backend with one POST per batch.
package http

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/netsampler/trustflow/transport"
	"github.com/netsampler/trustflow/utils/retry"
)

const (
	envPrefix = "TRUSTFLOW_"

	HeaderExporterIdentity = "X-Exporter-Identity"
	HeaderRecordCount      = "X-Record-Count"
)

type Config struct {
	Destination     string        `env:"BACKEND_URL" envDefault:"http://localhost:8000/api/v1/flows"`
	Timeout         time.Duration `env:"HTTP_TIMEOUT" envDefault:"10s"`
	AuthHeader      string        `env:"HTTP_AUTH_HEADER"`
	AuthCredentials string        `env:"HTTP_AUTH_CREDENTIALS"`
}

// StatusError is returned for a response outside of 2xx.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("backend responded %d", e.StatusCode)
	}
	return fmt.Sprintf("backend responded %d: %s", e.StatusCode, e.Body)
}

type HTTPDriver struct {
	cfg    Config
	client *http.Client
}

func NewHTTPDriver(cfg Config) *HTTPDriver {
	return &HTTPDriver{cfg: cfg}
}

func (d *HTTPDriver) Prepare() error {
	if err := env.ParseWithOptions(&d.cfg, env.Options{Prefix: envPrefix}); err != nil {
		return err
	}
	flag.StringVar(&d.cfg.Destination, "transport.http.destination", d.cfg.Destination, "Backend URL receiving the batches")
	flag.DurationVar(&d.cfg.Timeout, "transport.http.timeout", d.cfg.Timeout, "Timeout of a single request")
	flag.StringVar(&d.cfg.AuthHeader, "transport.http.auth.header", d.cfg.AuthHeader, "HTTP header to set for credentials")
	flag.StringVar(&d.cfg.AuthCredentials, "transport.http.auth.credentials", d.cfg.AuthCredentials, "credentials for the header")
	return nil
}

func (d *HTTPDriver) Init(ctx context.Context) error {
	if d.cfg.Destination == "" {
		return fmt.Errorf("no destination")
	}
	d.client = &http.Client{Timeout: d.cfg.Timeout}
	return nil
}

func (d *HTTPDriver) Target() string {
	return d.cfg.Destination
}

// Send posts one batch. Transport errors and non-2xx responses are retryable.
func (d *HTTPDriver) Send(ctx context.Context, key, data []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.cfg.Destination, bytes.NewReader(data))
	if err != nil {
		return retry.Permanent(err)
	}
	contentType := "application/json"
	if md, ok := transport.MetadataFromContext(ctx); ok {
		if md.ContentType != "" {
			contentType = md.ContentType
		}
		req.Header.Set(HeaderRecordCount, strconv.Itoa(md.RecordCount))
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set(HeaderExporterIdentity, string(key))
	if d.cfg.AuthHeader != "" {
		req.Header.Set(d.cfg.AuthHeader, d.cfg.AuthCredentials)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{StatusCode: resp.StatusCode, Body: string(bytes.TrimSpace(body))}
	}
	return nil
}

func (d *HTTPDriver) Close(ctx context.Context) error {
	if d.client != nil {
		d.client.CloseIdleConnections()
	}
	return nil
}

func init() {
	d := &HTTPDriver{}
	transport.RegisterTransportDriver("http", d)
}
