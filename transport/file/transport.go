// Package file writes batches to stdout or a file, for debugging.
package file

import (
	"context"
	"flag"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/netsampler/trustflow/transport"
)

// FileDriver writes formatted batches to stdout or a file. The file is
// reopened on SIGHUP.
type FileDriver struct {
	fileDestination string
	lineSeparator   string
	w               io.Writer
	file            *os.File
	lock            *sync.RWMutex
	q               chan bool
}

func (d *FileDriver) Prepare() error {
	flag.StringVar(&d.fileDestination, "transport.file", "", "File/console output (empty for stdout)")
	flag.StringVar(&d.lineSeparator, "transport.file.sep", "\n", "Line separator")
	return nil
}

func (d *FileDriver) openFile() error {
	file, err := os.OpenFile(d.fileDestination, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	d.file = file
	d.w = d.file
	return err
}

func (d *FileDriver) Init(ctx context.Context) error {
	d.q = make(chan bool, 1)

	if d.fileDestination == "" {
		d.w = os.Stdout
		return nil
	}

	d.lock.Lock()
	err := d.openFile()
	d.lock.Unlock()
	if err != nil {
		return err
	}

	c := make(chan os.Signal, 1)
	signal.Notify(c, syscall.SIGHUP)
	go func() {
		defer signal.Stop(c)
		for {
			select {
			case <-c:
				d.lock.Lock()
				if err := d.file.Close(); err != nil {
					d.lock.Unlock()
					return
				}
				err := d.openFile()
				d.lock.Unlock()
				if err != nil {
					return
				}
			case <-d.q:
				return
			}
		}
	}()
	return nil
}

func (d *FileDriver) Target() string {
	if d.fileDestination == "" {
		return "stdout"
	}
	return d.fileDestination
}

// Send writes a formatted batch followed by the separator.
func (d *FileDriver) Send(ctx context.Context, key, data []byte) error {
	d.lock.Lock()
	defer d.lock.Unlock()
	if len(data) > 0 {
		if _, err := d.w.Write(data); err != nil {
			return err
		}
	}
	if d.lineSeparator == "" {
		return nil
	}
	_, err := d.w.Write([]byte(d.lineSeparator))
	return err
}

func (d *FileDriver) Close(ctx context.Context) error {
	var closeErr error
	if d.fileDestination != "" {
		d.lock.Lock()
		closeErr = d.file.Close()
		d.lock.Unlock()
	}
	close(d.q)
	return closeErr
}

func init() {
	d := &FileDriver{
		lock: &sync.RWMutex{},
	}
	transport.RegisterTransportDriver("file", d)
}
