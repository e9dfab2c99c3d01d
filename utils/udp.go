package utils

import (
	"errors"
	"fmt"
	"net"
	"net/netip"
	"sync"
	"time"

	reuseport "github.com/libp2p/go-reuseport"
)

// Message is a datagram received from an exporter.
type Message struct {
	Src      netip.AddrPort
	Dst      netip.AddrPort
	Payload  []byte
	Received time.Time
}

type udpPacket struct {
	src      *net.UDPAddr
	dst      *net.UDPAddr
	size     int
	payload  []byte
	received time.Time
}

var packetPool = sync.Pool{
	New: func() any {
		return &udpPacket{
			payload: make([]byte, 9000),
		}
	},
}

type UDPReceiver struct {
	ready    chan bool
	q        chan bool
	wg       *sync.WaitGroup
	dispatch chan *udpPacket
	errCh    chan error

	decodeFunc   DecoderFunc
	errorHandler func(error)

	blocking      bool
	workers       int
	sockets       int
	receiveBuffer int

	cb ReceiverCallback
}

type UDPReceiverConfig struct {
	Workers   int
	Sockets   int
	Blocking  bool
	QueueSize int
	// ReceiveBuffer overrides the socket receive buffer when positive.
	ReceiveBuffer int

	ReceiverCallback ReceiverCallback
	// ErrorHandler is called from the decoding workers for every error. When
	// nil, errors are offered on Errors and dropped if nobody is reading.
	ErrorHandler     func(error)
}

func NewUDPReceiver(cfg *UDPReceiverConfig) (*UDPReceiver, error) {
	r := &UDPReceiver{
		wg:      &sync.WaitGroup{},
		sockets: 2,
		workers: 2,
		ready:   make(chan bool),
		errCh:   make(chan error),
	}

	dispatchSize := 1000000
	if cfg != nil {
		if cfg.Sockets <= 0 {
			cfg.Sockets = 1
		}

		if cfg.Workers <= 0 {
			cfg.Workers = cfg.Sockets
		}

		r.sockets = cfg.Sockets
		r.workers = cfg.Workers
		dispatchSize = cfg.QueueSize
		r.blocking = cfg.Blocking
		r.receiveBuffer = cfg.ReceiveBuffer
		r.cb = cfg.ReceiverCallback
		r.errorHandler = cfg.ErrorHandler
	}

	if dispatchSize == 0 {
		r.dispatch = make(chan *udpPacket) // synchronous mode
	} else {
		r.dispatch = make(chan *udpPacket, dispatchSize)
	}

	err := r.init()

	return r, err
}

// Initialize channels that are related to a session
// Once the user calls Stop, they can restart the capture
func (r *UDPReceiver) init() error {
	r.q = make(chan bool)
	r.decodeFunc = nil
	select {
	case <-r.ready:
		return fmt.Errorf("receiver is already stopped")
	default:
		close(r.ready)
	}
	return nil
}

func (r *UDPReceiver) logError(err error) {
	if r.errorHandler != nil {
		r.errorHandler(err)
		return
	}
	select {
	case r.errCh <- err:
	default:
	}
}

func (r *UDPReceiver) Errors() <-chan error {
	return r.errCh
}

func (r *UDPReceiver) receive(addr string, port int, started chan error) error {
	pconn, err := reuseport.ListenPacket("udp", net.JoinHostPort(addr, fmt.Sprint(port)))
	if err != nil {
		started <- err
		return err
	}

	udpconn, ok := pconn.(*net.UDPConn)
	if !ok {
		pconn.Close()
		err = fmt.Errorf("not a UDP connection")
		started <- err
		return err
	}
	if r.receiveBuffer > 0 {
		if err := udpconn.SetReadBuffer(r.receiveBuffer); err != nil {
			udpconn.Close()
			started <- err
			return err
		}
	}
	close(started)

	q := make(chan bool)
	// function to quit
	go func() {
		select {
		case <-q: // if routine has exited before
		case <-r.q: // upon general close
		}
		pconn.Close()
	}()
	defer close(q)

	localAddr, _ := udpconn.LocalAddr().(*net.UDPAddr)

	for {
		pkt := packetPool.Get().(*udpPacket)
		pkt.size, pkt.src, err = udpconn.ReadFromUDP(pkt.payload)
		if err != nil {
			packetPool.Put(pkt)
			return err
		}
		pkt.dst = localAddr
		pkt.received = time.Now().UTC()
		if pkt.size == 0 {
			// error
			packetPool.Put(pkt)
			continue
		}

		if r.blocking {
			// does not drop
			// if combined with synchronous mode
			select {
			case r.dispatch <- pkt:
			case <-r.q:
				return nil
			}
		} else {
			select {
			case r.dispatch <- pkt:
			case <-r.q:
				return nil
			default:
				if r.cb != nil {
					r.cb.Dropped(pkt.message())
				}
				packetPool.Put(pkt)
			}
		}
	}
}

func addrPort(addr *net.UDPAddr) netip.AddrPort {
	if addr == nil {
		return netip.AddrPort{}
	}
	return addr.AddrPort()
}

func (pkt *udpPacket) message() Message {
	payload := make([]byte, pkt.size)
	copy(payload, pkt.payload[0:pkt.size])
	return Message{
		Src:      addrPort(pkt.src),
		Dst:      addrPort(pkt.dst),
		Payload:  payload,
		Received: pkt.received,
	}
}

type ReceiverError struct {
	Err error
}

func (e *ReceiverError) Error() string {
	return "receiver: " + e.Err.Error()
}

func (e *ReceiverError) Unwrap() error {
	return e.Err
}

// Start the processing routines
func (r *UDPReceiver) decoders(workers int, decodeFunc DecoderFunc) error {
	for i := 0; i < workers; i++ {
		r.wg.Add(1)
		go func() {
			defer r.wg.Done()
			for pkt := range r.dispatch {
				if pkt == nil {
					return
				}
				if decodeFunc != nil {
					msg := pkt.message()
					if err := decodeFunc(&msg); err != nil {
						r.logError(&ReceiverError{err})
					}
				}
				packetPool.Put(pkt)
			}
		}()
	}

	return nil
}

// Starts the UDP receiving workers. A socket that cannot be bound is
// reported synchronously.
func (r *UDPReceiver) receivers(sockets int, addr string, port int) error {
	for i := 0; i < sockets; i++ {
		started := make(chan error)
		r.wg.Add(1)
		go func() {
			defer r.wg.Done()
			if err := r.receive(addr, port, started); err != nil {
				if !errors.Is(err, net.ErrClosed) {
					err = &ReceiverError{err}
				}
				r.logError(err)
			}
		}()
		if err := <-started; err != nil {
			return err
		}
	}

	return nil
}

// Start UDP receivers and the processing routines
func (r *UDPReceiver) Start(addr string, port int, decodeFunc DecoderFunc) error {
	select {
	case <-r.ready:
		r.ready = make(chan bool)
	default:
		return fmt.Errorf("receiver is already started")
	}

	if err := r.decoders(r.workers, decodeFunc); err != nil {
		return err
	}
	if err := r.receivers(r.sockets, addr, port); err != nil {
		close(r.q)
		r.stopDecoders()
		r.wg.Wait()
		r.init()
		return err
	}
	return nil
}

func (r *UDPReceiver) stopDecoders() {
	for i := 0; i < r.workers; i++ {
		r.dispatch <- nil
	}
}

// Stops the routines
func (r *UDPReceiver) Stop() error {
	select {
	case <-r.q:
	default:
		close(r.q)
	}

	r.stopDecoders()
	r.wg.Wait()

	return r.init() // recreates the closed channels
}
