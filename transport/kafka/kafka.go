// Package kafka delivers batches to a Kafka topic, keyed by exporter.
package kafka

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"flag"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	sarama "github.com/Shopify/sarama"
	"github.com/caarlos0/env/v11"

	"github.com/netsampler/trustflow/transport"
)

const envPrefix = "TRUSTFLOW_KAFKA_"

type Config struct {
	TLS              bool          `env:"TLS"`
	SASL             string        `env:"SASL" envDefault:"none"`
	Topic            string        `env:"TOPIC" envDefault:"flow-records"`
	Srv              string        `env:"SRV"`
	Brokers          string        `env:"BROKERS" envDefault:"127.0.0.1:9092,[::1]:9092"`
	MaxMsgBytes      int           `env:"MAX_MSG_BYTES" envDefault:"1000000"`
	Version          string        `env:"VERSION" envDefault:"2.8.0"`
	CompressionCodec string        `env:"COMPRESSION"`
	Timeout          time.Duration `env:"TIMEOUT" envDefault:"10s"`
}

type KafkaDriver struct {
	cfg Config

	producer sarama.SyncProducer
}

type KafkaSASLAlgorithm string

const (
	KAFKA_SASL_NONE         KafkaSASLAlgorithm = "none"
	KAFKA_SASL_PLAIN        KafkaSASLAlgorithm = "plain"
	KAFKA_SASL_SCRAM_SHA256 KafkaSASLAlgorithm = "scram-sha256"
	KAFKA_SASL_SCRAM_SHA512 KafkaSASLAlgorithm = "scram-sha512"
)

var (
	compressionCodecs = map[string]sarama.CompressionCodec{
		strings.ToLower(sarama.CompressionNone.String()):   sarama.CompressionNone,
		strings.ToLower(sarama.CompressionGZIP.String()):   sarama.CompressionGZIP,
		strings.ToLower(sarama.CompressionSnappy.String()): sarama.CompressionSnappy,
		strings.ToLower(sarama.CompressionLZ4.String()):    sarama.CompressionLZ4,
		strings.ToLower(sarama.CompressionZSTD.String()):   sarama.CompressionZSTD,
	}

	saslAlgorithms = map[KafkaSASLAlgorithm]bool{
		KAFKA_SASL_PLAIN:        true,
		KAFKA_SASL_SCRAM_SHA256: true,
		KAFKA_SASL_SCRAM_SHA512: true,
	}
	saslAlgorithmsList = []string{
		string(KAFKA_SASL_NONE),
		string(KAFKA_SASL_PLAIN),
		string(KAFKA_SASL_SCRAM_SHA256),
		string(KAFKA_SASL_SCRAM_SHA512),
	}
)

// NewKafkaDriver creates a driver sending through an existing producer.
func NewKafkaDriver(cfg Config, producer sarama.SyncProducer) *KafkaDriver {
	return &KafkaDriver{cfg: cfg, producer: producer}
}

func (d *KafkaDriver) Prepare() error {
	if err := env.ParseWithOptions(&d.cfg, env.Options{Prefix: envPrefix}); err != nil {
		return err
	}
	flag.BoolVar(&d.cfg.TLS, "transport.kafka.tls", d.cfg.TLS, "Use TLS to connect to Kafka")
	flag.StringVar(&d.cfg.SASL, "transport.kafka.sasl", d.cfg.SASL,
		fmt.Sprintf(
			"Use SASL to connect to Kafka, available settings: %s (TLS is recommended and the environment variables KAFKA_SASL_USER and KAFKA_SASL_PASS need to be set)",
			strings.Join(saslAlgorithmsList, ", ")))

	flag.StringVar(&d.cfg.Topic, "transport.kafka.topic", d.cfg.Topic, "Kafka topic to produce to")
	flag.StringVar(&d.cfg.Srv, "transport.kafka.srv", d.cfg.Srv, "SRV record containing a list of Kafka brokers (or use brokers)")
	flag.StringVar(&d.cfg.Brokers, "transport.kafka.brokers", d.cfg.Brokers, "Kafka brokers list separated by commas")
	flag.IntVar(&d.cfg.MaxMsgBytes, "transport.kafka.maxmsgbytes", d.cfg.MaxMsgBytes, "Kafka max message bytes")
	flag.StringVar(&d.cfg.Version, "transport.kafka.version", d.cfg.Version, "Kafka version")
	flag.StringVar(&d.cfg.CompressionCodec, "transport.kafka.compression", d.cfg.CompressionCodec, "Kafka default compression")
	flag.DurationVar(&d.cfg.Timeout, "transport.kafka.timeout", d.cfg.Timeout, "Kafka produce timeout")
	return nil
}

func (d *KafkaDriver) saramaConfig() (*sarama.Config, error) {
	kafkaConfigVersion, err := sarama.ParseKafkaVersion(d.cfg.Version)
	if err != nil {
		return nil, err
	}

	kafkaConfig := sarama.NewConfig()
	kafkaConfig.Version = kafkaConfigVersion
	kafkaConfig.Producer.Return.Successes = true
	kafkaConfig.Producer.Return.Errors = true
	kafkaConfig.Producer.RequiredAcks = sarama.WaitForAll
	kafkaConfig.Producer.MaxMessageBytes = d.cfg.MaxMsgBytes
	kafkaConfig.Producer.Timeout = d.cfg.Timeout
	kafkaConfig.Producer.Partitioner = sarama.NewHashPartitioner
	// delivery retries are handled by the collector
	kafkaConfig.Producer.Retry.Max = 0

	if d.cfg.CompressionCodec != "" {
		cc, ok := compressionCodecs[strings.ToLower(d.cfg.CompressionCodec)]
		if !ok {
			return nil, errors.New("compression codec does not exist")
		}
		kafkaConfig.Producer.Compression = cc
	}

	if d.cfg.TLS {
		rootCAs, err := x509.SystemCertPool()
		if err != nil {
			return nil, fmt.Errorf("error initializing TLS: %w", err)
		}
		kafkaConfig.Net.TLS.Enable = true
		kafkaConfig.Net.TLS.Config = &tls.Config{RootCAs: rootCAs}
	}

	kafkaSASL := KafkaSASLAlgorithm(strings.ToLower(d.cfg.SASL))
	if d.cfg.SASL != "" && kafkaSASL != KAFKA_SASL_NONE {
		if !saslAlgorithms[kafkaSASL] {
			return nil, errors.New("SASL algorithm does not exist")
		}

		kafkaConfig.Net.SASL.Enable = true
		kafkaConfig.Net.SASL.User = os.Getenv("KAFKA_SASL_USER")
		kafkaConfig.Net.SASL.Password = os.Getenv("KAFKA_SASL_PASS")
		if kafkaConfig.Net.SASL.User == "" && kafkaConfig.Net.SASL.Password == "" {
			return nil, errors.New("Kafka SASL config from environment was unsuccessful. KAFKA_SASL_USER and KAFKA_SASL_PASS need to be set.")
		}

		switch kafkaSASL {
		case KAFKA_SASL_SCRAM_SHA512:
			kafkaConfig.Net.SASL.Handshake = true
			kafkaConfig.Net.SASL.SCRAMClientGeneratorFunc = func() sarama.SCRAMClient {
				return &XDGSCRAMClient{HashGeneratorFcn: SHA512}
			}
			kafkaConfig.Net.SASL.Mechanism = sarama.SASLTypeSCRAMSHA512
		case KAFKA_SASL_SCRAM_SHA256:
			kafkaConfig.Net.SASL.Handshake = true
			kafkaConfig.Net.SASL.SCRAMClientGeneratorFunc = func() sarama.SCRAMClient {
				return &XDGSCRAMClient{HashGeneratorFcn: SHA256}
			}
			kafkaConfig.Net.SASL.Mechanism = sarama.SASLTypeSCRAMSHA256
		}
	}
	return kafkaConfig, nil
}

func (d *KafkaDriver) Init(ctx context.Context) error {
	if d.producer != nil {
		return nil
	}
	kafkaConfig, err := d.saramaConfig()
	if err != nil {
		return err
	}

	var addrs []string
	if d.cfg.Srv != "" {
		addrs, err = GetServiceAddresses(ctx, d.cfg.Srv)
		if err != nil {
			return err
		}
	} else {
		addrs = strings.Split(d.cfg.Brokers, ",")
	}

	kafkaProducer, err := sarama.NewSyncProducer(addrs, kafkaConfig)
	if err != nil {
		return err
	}
	d.producer = kafkaProducer
	return nil
}

func (d *KafkaDriver) Target() string {
	return fmt.Sprintf("kafka://%s/%s", d.cfg.Brokers, d.cfg.Topic)
}

// Send produces one message per batch with the exporter identity as key so
// that batches of an exporter stay on one partition.
func (d *KafkaDriver) Send(ctx context.Context, key, data []byte) error {
	msg := &sarama.ProducerMessage{
		Topic: d.cfg.Topic,
		Key:   sarama.ByteEncoder(key),
		Value: sarama.ByteEncoder(data),
	}
	if md, ok := transport.MetadataFromContext(ctx); ok {
		msg.Headers = []sarama.RecordHeader{
			{Key: []byte("content-type"), Value: []byte(md.ContentType)},
			{Key: []byte("record-count"), Value: []byte(strconv.Itoa(md.RecordCount))},
		}
	}
	_, _, err := d.producer.SendMessage(msg)
	return err
}

func (d *KafkaDriver) Close(ctx context.Context) error {
	if d.producer == nil {
		return nil
	}
	return d.producer.Close()
}

func GetServiceAddresses(ctx context.Context, srv string) (addrs []string, err error) {
	_, srvs, err := net.DefaultResolver.LookupSRV(ctx, "", "", srv)
	if err != nil {
		return nil, fmt.Errorf("service discovery: %w", err)
	}
	for _, srv := range srvs {
		addrs = append(addrs, net.JoinHostPort(srv.Target, strconv.Itoa(int(srv.Port))))
	}
	return addrs, nil
}

func init() {
	d := &KafkaDriver{}
	transport.RegisterTransportDriver("kafka", d)
}
