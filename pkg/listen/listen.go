// Package listen parses listener URLs such as netflow://:2055?count=2.
package listen

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"

	"github.com/netsampler/trustflow/utils"
)

const defaultQueueSize = 1000000

// ListenerConfig defines a parsed listen address.
type ListenerConfig struct {
	Scheme     string
	Protocol   utils.Protocol
	Hostname   string
	Port       int
	NumSockets int
	NumWorkers int
	Blocking   bool
	QueueSize  int
}

func (c ListenerConfig) String() string {
	return fmt.Sprintf("%s://%s", c.Scheme, net.JoinHostPort(c.Hostname, strconv.Itoa(c.Port)))
}

func queryUint(query url.Values, name string) (int, bool, error) {
	if !query.Has(name) {
		return 0, false, nil
	}
	value, err := strconv.ParseUint(query.Get(name), 10, 32)
	if err != nil {
		return 0, true, fmt.Errorf("error parsing %s in URL: %w", name, err)
	}
	return int(value), true, nil
}

// ParseListenAddress parses one listen URL. Sockets default to 1, workers to
// twice the sockets and non-blocking listeners get a large queue.
func ParseListenAddress(listenAddress string) (ListenerConfig, error) {
	listenAddrURL, err := url.Parse(strings.TrimSpace(listenAddress))
	if err != nil {
		return ListenerConfig{}, fmt.Errorf("parse listen address %q: %w", listenAddress, err)
	}
	protocol, err := utils.ParseProtocol(listenAddrURL.Scheme)
	if err != nil {
		return ListenerConfig{}, fmt.Errorf("listen address %q: %w", listenAddress, err)
	}
	query := listenAddrURL.Query()

	numSockets, _, err := queryUint(query, "count")
	if err != nil {
		return ListenerConfig{}, err
	}
	if numSockets == 0 {
		numSockets = 1
	}

	numWorkers, _, err := queryUint(query, "workers")
	if err != nil {
		return ListenerConfig{}, err
	}
	if numWorkers == 0 {
		numWorkers = numSockets * 2
	}

	var isBlocking bool
	if query.Has("blocking") {
		isBlocking, err = strconv.ParseBool(query.Get("blocking"))
		if err != nil {
			return ListenerConfig{}, fmt.Errorf("error parsing blocking in URL: %w", err)
		}
	}

	queueSize, set, err := queryUint(query, "queue_size")
	if err != nil {
		return ListenerConfig{}, err
	}
	if !set && !isBlocking {
		queueSize = defaultQueueSize
	}

	port, err := strconv.ParseUint(listenAddrURL.Port(), 10, 16)
	if err != nil {
		return ListenerConfig{}, fmt.Errorf("port could not be converted to integer: %s: %w", listenAddrURL.Port(), err)
	}

	return ListenerConfig{
		Scheme:     strings.ToLower(listenAddrURL.Scheme),
		Protocol:   protocol,
		Hostname:   listenAddrURL.Hostname(),
		Port:       int(port),
		NumSockets: numSockets,
		NumWorkers: numWorkers,
		Blocking:   isBlocking,
		QueueSize:  queueSize,
	}, nil
}

// ParseListenAddresses parses a comma-separated list of listen URLs. Two
// listeners cannot share a host and port.
func ParseListenAddresses(addresses string) ([]ListenerConfig, error) {
	var cfgs []ListenerConfig
	seen := make(map[string]string)
	for _, listenAddress := range strings.Split(addresses, ",") {
		if strings.TrimSpace(listenAddress) == "" {
			continue
		}
		cfg, err := ParseListenAddress(listenAddress)
		if err != nil {
			return nil, err
		}
		hostPort := net.JoinHostPort(cfg.Hostname, strconv.Itoa(cfg.Port))
		if other, ok := seen[hostPort]; ok {
			return nil, fmt.Errorf("listen address %s already used by %s", cfg, other)
		}
		seen[hostPort] = cfg.String()
		cfgs = append(cfgs, cfg)
	}
	if len(cfgs) == 0 {
		return nil, fmt.Errorf("no listen address")
	}
	return cfgs, nil
}

// DefaultListenAddresses builds the listen URLs for the NetFlow and IPFIX ports
// of a host. A zero port disables the listener.
func DefaultListenAddresses(host string, netflowPort, ipfixPort, sockets int) string {
	var addresses []string
	add := func(scheme string, port int) {
		if port == 0 {
			return
		}
		address := fmt.Sprintf("%s://%s", scheme, net.JoinHostPort(host, strconv.Itoa(port)))
		if sockets > 1 {
			address += "?count=" + strconv.Itoa(sockets)
		}
		addresses = append(addresses, address)
	}
	add("netflow", netflowPort)
	add("ipfix", ipfixPort)
	return strings.Join(addresses, ",")
}
