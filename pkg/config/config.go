// Package config loads the collector configuration from defaults, an optional
// YAML file, the environment and command-line flags, in increasing priority.
package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/netsampler/trustflow/format"
	"github.com/netsampler/trustflow/pkg/listen"
	"github.com/netsampler/trustflow/transport"
	"github.com/netsampler/trustflow/utils/retry"
)

const EnvPrefix = "TRUSTFLOW_"

var ErrSFlowUnsupported = errors.New("sflow collection is not supported")

// Config holds configuration for the collector.
type Config struct {
	ConfigFile string `yaml:"-" env:"CONFIG"`

	ListenAddresses string `yaml:"listen" env:"LISTEN"`
	ListenHost      string `yaml:"listen_host" env:"LISTEN_HOST"`
	NetFlowPort     int    `yaml:"netflow_port" env:"NETFLOW_PORT"`
	IPFIXPort       int    `yaml:"ipfix_port" env:"IPFIX_PORT"`
	SFlowPort       int    `yaml:"sflow_port" env:"SFLOW_PORT"`
	Sockets         int    `yaml:"sockets" env:"SOCKETS"`
	ReceiveBuffer   int    `yaml:"receive_buffer" env:"RECEIVE_BUFFER"`

	BatchSize      int           `yaml:"batch_size" env:"BATCH_SIZE"`
	BatchInterval  time.Duration `yaml:"batch_interval" env:"BATCH_INTERVAL"`
	TemplateExpiry time.Duration `yaml:"template_expiry" env:"TEMPLATE_EXPIRY"`
	Concurrency    int           `yaml:"concurrency" env:"CONCURRENCY"`

	RetryAttempts     int           `yaml:"retry_attempts" env:"RETRY_ATTEMPTS"`
	RetryFactor       float64       `yaml:"retry_factor" env:"RETRY_FACTOR"`
	RetryInitialDelay time.Duration `yaml:"retry_initial_delay" env:"RETRY_INITIAL_DELAY"`
	RetryMaxDelay     time.Duration `yaml:"retry_max_delay" env:"RETRY_MAX_DELAY"`

	Addr         string `yaml:"addr" env:"HTTP_ADDR"`
	TemplatePath string `yaml:"templates_path" env:"TEMPLATES_PATH"`

	LogLevel string `yaml:"log_level" env:"LOG_LEVEL"`
	LogFmt   string `yaml:"log_format" env:"LOG_FORMAT"`

	Format    string `yaml:"format" env:"FORMAT"`
	Transport string `yaml:"transport" env:"TRANSPORT"`

	ErrCnt int           `yaml:"err_cnt" env:"ERR_CNT"`
	ErrInt time.Duration `yaml:"err_int" env:"ERR_INT"`
}

// Default returns the configuration used when nothing overrides it.
func Default() *Config {
	return &Config{
		ListenHost:        "0.0.0.0",
		NetFlowPort:       2055,
		IPFIXPort:         4739,
		Sockets:           1,
		BatchSize:         1000,
		BatchInterval:     5 * time.Second,
		TemplateExpiry:    30 * time.Minute,
		Concurrency:       4,
		RetryAttempts:     retry.DefaultMaxAttempts,
		RetryFactor:       retry.DefaultBackoffFactor,
		RetryInitialDelay: retry.DefaultInitialDelay,
		RetryMaxDelay:     retry.DefaultMaxDelay,
		Addr:              ":8080",
		TemplatePath:      "/templates",
		LogLevel:          "info",
		LogFmt:            "normal",
		Format:            "json",
		Transport:         "http",
		ErrCnt:            10,
		ErrInt:            10 * time.Second,
	}
}

// BindFlags registers configuration flags on fs, bound to cfg.
func BindFlags(fs *flag.FlagSet, cfg *Config) {
	fs.StringVar(&cfg.ConfigFile, "config", cfg.ConfigFile, "YAML configuration file")

	fs.StringVar(&cfg.ListenAddresses, "listen", cfg.ListenAddresses, "Listen addresses (eg: netflow://:2055,ipfix://:4739), overrides host and ports")
	fs.StringVar(&cfg.ListenHost, "listen.host", cfg.ListenHost, "Listen host")
	fs.IntVar(&cfg.NetFlowPort, "listen.netflow", cfg.NetFlowPort, "NetFlow v5/v9 port (0 to disable)")
	fs.IntVar(&cfg.IPFIXPort, "listen.ipfix", cfg.IPFIXPort, "IPFIX port (0 to disable)")
	fs.IntVar(&cfg.SFlowPort, "listen.sflow", cfg.SFlowPort, "sFlow port (reserved)")
	fs.IntVar(&cfg.Sockets, "listen.sockets", cfg.Sockets, "Sockets per port")
	fs.IntVar(&cfg.ReceiveBuffer, "listen.rcvbuf", cfg.ReceiveBuffer, "Socket receive buffer in bytes (0 keeps the system value)")

	fs.IntVar(&cfg.BatchSize, "batch.size", cfg.BatchSize, "Maximum records delivered per flush")
	fs.DurationVar(&cfg.BatchInterval, "batch.interval", cfg.BatchInterval, "Flush interval")
	fs.DurationVar(&cfg.TemplateExpiry, "templates.expiry", cfg.TemplateExpiry, "Expiry of unused templates")
	fs.IntVar(&cfg.Concurrency, "delivery.concurrency", cfg.Concurrency, "Exporter batches delivered concurrently")

	fs.IntVar(&cfg.RetryAttempts, "retry.attempts", cfg.RetryAttempts, "Delivery attempts per batch")
	fs.Float64Var(&cfg.RetryFactor, "retry.factor", cfg.RetryFactor, "Delay multiplier between attempts")
	fs.DurationVar(&cfg.RetryInitialDelay, "retry.initial", cfg.RetryInitialDelay, "Delay before the second attempt")
	fs.DurationVar(&cfg.RetryMaxDelay, "retry.max", cfg.RetryMaxDelay, "Maximum delay between attempts")

	fs.StringVar(&cfg.Addr, "addr", cfg.Addr, "HTTP server address (empty to disable)")
	fs.StringVar(&cfg.TemplatePath, "templates.path", cfg.TemplatePath, "NetFlow/IPFIX templates list")

	fs.StringVar(&cfg.LogLevel, "loglevel", cfg.LogLevel, "Log level")
	fs.StringVar(&cfg.LogFmt, "logfmt", cfg.LogFmt, "Log formatter (normal or json)")
	fs.StringVar(&cfg.Format, "format", cfg.Format, fmt.Sprintf("Choose the format (available: %s)", strings.Join(format.GetFormats(), ", ")))
	fs.StringVar(&cfg.Transport, "transport", cfg.Transport, fmt.Sprintf("Choose the transport (available: %s)", strings.Join(transport.GetTransports(), ", ")))

	fs.IntVar(&cfg.ErrCnt, "err.cnt", cfg.ErrCnt, "Maximum errors per batch for muting")
	fs.DurationVar(&cfg.ErrInt, "err.int", cfg.ErrInt, "Maximum errors interval for muting")
}

func (cfg *Config) loadFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("load config %s: open: %w", path, err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return fmt.Errorf("load config %s: decode: %w", path, err)
	}
	return nil
}

// Load parses args into a configuration. Flags are parsed a second time once
// the file and the environment are applied so they keep priority.
func Load(fs *flag.FlagSet, args []string) (*Config, error) {
	cfg := Default()
	BindFlags(fs, cfg)
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	configFile := cfg.ConfigFile
	if configFile == "" {
		configFile = os.Getenv(EnvPrefix + "CONFIG")
	}
	if configFile != "" {
		if err := cfg.loadFile(configFile); err != nil {
			return nil, err
		}
	}
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	cfg.ConfigFile = configFile

	return cfg, cfg.Validate()
}

func (cfg *Config) Validate() error {
	if cfg.SFlowPort != 0 {
		return fmt.Errorf("%w: port %d", ErrSFlowUnsupported, cfg.SFlowPort)
	}
	if cfg.BatchSize <= 0 {
		return fmt.Errorf("batch size must be positive: %d", cfg.BatchSize)
	}
	if cfg.BatchInterval <= 0 {
		return fmt.Errorf("batch interval must be positive: %s", cfg.BatchInterval)
	}
	if cfg.TemplateExpiry <= 0 {
		return fmt.Errorf("template expiry must be positive: %s", cfg.TemplateExpiry)
	}
	if cfg.RetryAttempts < 1 {
		return fmt.Errorf("retry attempts must be at least 1: %d", cfg.RetryAttempts)
	}
	if cfg.RetryFactor < 1 {
		return fmt.Errorf("retry factor must be at least 1: %v", cfg.RetryFactor)
	}
	if cfg.ListenAddresses == "" && cfg.NetFlowPort == 0 && cfg.IPFIXPort == 0 {
		return fmt.Errorf("no listener configured")
	}
	return nil
}

// Listeners returns the parsed listen addresses, built from the host and
// ports unless an explicit list is configured.
func (cfg *Config) Listeners() ([]listen.ListenerConfig, error) {
	addresses := cfg.ListenAddresses
	if addresses == "" {
		addresses = listen.DefaultListenAddresses(cfg.ListenHost, cfg.NetFlowPort, cfg.IPFIXPort, cfg.Sockets)
	}
	return listen.ParseListenAddresses(addresses)
}

func (cfg *Config) Retry() retry.Config {
	return retry.Config{
		MaxAttempts:   cfg.RetryAttempts,
		BackoffFactor: cfg.RetryFactor,
		InitialDelay:  cfg.RetryInitialDelay,
		MaxDelay:      cfg.RetryMaxDelay,
	}
}
