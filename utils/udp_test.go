package utils

import (
	"errors"
	"net"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func getFreeUDPPort() (int, error) {
	a, err := net.ResolveUDPAddr("udp", "127.0.0.1:0")
	if err != nil {
		return 0, err
	}
	l, err := net.ListenUDP("udp", a)
	if err != nil {
		return 0, err
	}
	defer l.Close()
	return l.LocalAddr().(*net.UDPAddr).Port, nil
}

func TestUDPReceiver(t *testing.T) {
	addr := "127.0.0.1"
	port, err := getFreeUDPPort()
	require.NoError(t, err)

	r, err := NewUDPReceiver(&UDPReceiverConfig{Sockets: 1, Workers: 1, QueueSize: 10, ReceiveBuffer: 1 << 20})
	require.NoError(t, err)

	var lock sync.Mutex
	var received []*Message
	done := make(chan struct{})
	require.NoError(t, r.Start(addr, port, func(msg interface{}) error {
		lock.Lock()
		defer lock.Unlock()
		received = append(received, msg.(*Message))
		close(done)
		return nil
	}))

	conn, err := net.Dial("udp", net.JoinHostPort(addr, strconv.Itoa(port)))
	require.NoError(t, err)
	defer conn.Close()
	_, err = conn.Write([]byte("message 1"))
	require.NoError(t, err)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for datagram")
	}
	require.NoError(t, r.Stop())

	lock.Lock()
	defer lock.Unlock()
	require.Len(t, received, 1)
	assert.Equal(t, []byte("message 1"), received[0].Payload)
	assert.Equal(t, "127.0.0.1", received[0].Src.Addr().String())
	assert.Equal(t, uint16(port), received[0].Dst.Port())
}

func TestUDPReceiverReusePort(t *testing.T) {
	port, err := getFreeUDPPort()
	require.NoError(t, err)

	first, err := NewUDPReceiver(&UDPReceiverConfig{Sockets: 2, Workers: 1})
	require.NoError(t, err)
	require.NoError(t, first.Start("127.0.0.1", port, nil))
	defer first.Stop()

	second, err := NewUDPReceiver(&UDPReceiverConfig{Sockets: 1, Workers: 1})
	require.NoError(t, err)
	require.NoError(t, second.Start("127.0.0.1", port, nil))
	require.NoError(t, second.Stop())
}

func TestUDPReceiverBindError(t *testing.T) {
	r, err := NewUDPReceiver(&UDPReceiverConfig{Sockets: 1, Workers: 1})
	require.NoError(t, err)
	assert.Error(t, r.Start("256.0.0.1", 2055, nil))
}

func TestUDPReceiverErrorHandler(t *testing.T) {
	port, err := getFreeUDPPort()
	require.NoError(t, err)

	var lock sync.Mutex
	var handled []error
	r, err := NewUDPReceiver(&UDPReceiverConfig{
		Sockets:  1,
		Workers:  2,
		Blocking: true,
		ErrorHandler: func(err error) {
			lock.Lock()
			defer lock.Unlock()
			handled = append(handled, err)
		},
	})
	require.NoError(t, err)

	decodeErr := errors.New("bad datagram")
	require.NoError(t, r.Start("127.0.0.1", port, func(msg interface{}) error {
		return decodeErr
	}))

	conn, err := net.Dial("udp", net.JoinHostPort("127.0.0.1", strconv.Itoa(port)))
	require.NoError(t, err)
	defer conn.Close()
	const count = 20
	for i := 0; i < count; i++ {
		_, err = conn.Write([]byte("message"))
		require.NoError(t, err)
		time.Sleep(time.Millisecond)
	}

	assert.Eventually(t, func() bool {
		lock.Lock()
		defer lock.Unlock()
		return len(handled) == count
	}, 2*time.Second, 10*time.Millisecond)
	require.NoError(t, r.Stop())

	lock.Lock()
	defer lock.Unlock()
	var receiverErr *ReceiverError
	require.ErrorAs(t, handled[0], &receiverErr)
	assert.ErrorIs(t, handled[0], decodeErr)
}
