// Package transport provides a registry and interfaces for delivery transports.
package transport

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
)

var (
	transportDrivers = make(map[string]TransportDriver)
	lock             = &sync.RWMutex{}

	// ErrTransport is the base error for transport failures.
	ErrTransport = errors.New("transport error")
)

// DriverTransportError wraps a driver-specific error with its transport name.
type DriverTransportError struct {
	Driver string
	Err    error
}

func (e *DriverTransportError) Error() string {
	return fmt.Sprintf("%s for %s transport", e.Err.Error(), e.Driver)
}

func (e *DriverTransportError) Unwrap() []error {
	return []error{ErrTransport, e.Err}
}

// TransportDriver describes a transport plugin lifecycle and send method.
type TransportDriver interface {
	Prepare() error                                   // Prepare driver (eg: flag registration)
	Init(ctx context.Context) error                   // Initialize driver (eg: start connections, open files...)
	Close(ctx context.Context) error                  // Close driver (eg: close connections and files...)
	Send(ctx context.Context, key, data []byte) error // Send a formatted batch
}

// TransportInterface is the minimal interface needed to send payloads.
type TransportInterface interface {
	Send(ctx context.Context, key, data []byte) error
}

// Targeter is implemented by drivers that deliver to a single destination.
type Targeter interface {
	Target() string
}

// Metadata describes the batch being sent.
type Metadata struct {
	ContentType string
	RecordCount int
}

type metadataKey struct{}

// WithMetadata attaches batch metadata to the context passed to Send.
func WithMetadata(ctx context.Context, md Metadata) context.Context {
	return context.WithValue(ctx, metadataKey{}, md)
}

func MetadataFromContext(ctx context.Context) (Metadata, bool) {
	md, ok := ctx.Value(metadataKey{}).(Metadata)
	return md, ok
}

// Transport is a named transport wrapper used by the registry.
type Transport struct {
	TransportDriver
	name string
}

func (t *Transport) Name() string {
	return t.name
}

// Target returns the destination of the driver, or its name.
func (t *Transport) Target() string {
	if targeter, ok := t.TransportDriver.(Targeter); ok {
		return targeter.Target()
	}
	return t.name
}

// Close calls the driver Close and wraps errors with transport metadata.
func (t *Transport) Close(ctx context.Context) error {
	if err := t.TransportDriver.Close(ctx); err != nil {
		return &DriverTransportError{t.name, err}
	}
	return nil
}

// Send forwards data to the driver and wraps errors with transport metadata.
func (t *Transport) Send(ctx context.Context, key, data []byte) error {
	if err := t.TransportDriver.Send(ctx, key, data); err != nil {
		return &DriverTransportError{t.name, err}
	}
	return nil
}

// RegisterTransportDriver registers and prepares a transport under a name.
func RegisterTransportDriver(name string, t TransportDriver) {
	lock.Lock()
	transportDrivers[name] = t
	lock.Unlock()

	if err := t.Prepare(); err != nil {
		panic(err)
	}
}

// FindTransport returns an initialized transport by name.
func FindTransport(ctx context.Context, name string) (*Transport, error) {
	lock.RLock()
	t, ok := transportDrivers[name]
	lock.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w %s not found", ErrTransport, name)
	}

	err := t.Init(ctx)
	if err != nil {
		err = &DriverTransportError{name, err}
	}
	return &Transport{t, name}, err
}

// NewTransport names a driver that is not in the registry.
func NewTransport(name string, t TransportDriver) *Transport {
	return &Transport{t, name}
}

// GetTransports returns the sorted list of registered transport names.
func GetTransports() []string {
	lock.RLock()
	defer lock.RUnlock()
	t := make([]string, 0, len(transportDrivers))
	for k := range transportDrivers {
		t = append(t, k)
	}
	sort.Strings(t)
	return t
}
