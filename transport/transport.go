// SPDX-FileCopyrightText: © 2026 David Stainton
// SPDX-License-Identifier: AGPL-3.0-only

// Package transport owns the stream socket to a daemon service and moves
// whole frames across it.
package transport

import (
	"context"
	"errors"
	"net"
	"sync"
	"time"

	"gopkg.in/op/go-logging.v1"

	"github.com/katzenpost/gnunet/core/log"
	"github.com/katzenpost/gnunet/core/retry"
	"github.com/katzenpost/gnunet/core/utils"
	"github.com/katzenpost/gnunet/internal/instrument"
	"github.com/katzenpost/gnunet/wire"
	"github.com/katzenpost/gnunet/wire/constants"
)

// ErrDisconnected is returned by operations on a disconnected Transport.
var ErrDisconnected = errors.New("transport: disconnected")

type socket struct {
	conn net.Conn

	readMu  sync.Mutex
	writeMu sync.Mutex

	closeOnce sync.Once
	closed    chan struct{}
	closeErr  error
}

// Transport is a handle to one daemon socket.  At most one frame read
// and at most one frame write are in flight at any moment, across every
// handle sharing the socket.
type Transport struct {
	s   *socket
	log *logging.Logger
}

// Dial connects to the unix socket at path.  A socket that refuses the
// connection is retried a few times, as the daemon may still be starting
// the service.
func Dial(ctx context.Context, path string, logger *logging.Logger) (*Transport, error) {
	if err := utils.CheckSocket(path); err != nil {
		return nil, err
	}
	var (
		d    net.Dialer
		conn net.Conn
	)
	err := retry.Do(ctx, retry.DefaultMaxAttempts, func() error {
		var err error
		conn, err = d.DialContext(ctx, "unix", path)
		if err != nil && logger != nil {
			logger.Debugf("dial %s: %v", path, err)
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return New(conn, logger), nil
}

// New wraps an established connection.
func New(conn net.Conn, logger *logging.Logger) *Transport {
	if logger == nil {
		logger = log.Discard("transport")
	}
	return &Transport{
		s: &socket{
			conn:   conn,
			closed: make(chan struct{}),
		},
		log: logger,
	}
}

// Clone returns a second handle to the same socket.  By convention one
// handle is used only for reads and the other only for writes.
func (t *Transport) Clone() *Transport {
	return &Transport{
		s:   t.s,
		log: t.log,
	}
}

// ReadFrame reads the next complete frame.
func (t *Transport) ReadFrame() (*wire.Frame, error) {
	t.s.readMu.Lock()
	defer t.s.readMu.Unlock()

	f, err := wire.ReadFrame(t.s.conn)
	if err != nil {
		return nil, t.mapErr(err)
	}
	instrument.FrameReceived(f.Type)
	t.log.Debugf("<- %s (%d bytes)", constants.TypeName(f.Type), f.Size())
	return f, nil
}

// WriteFrame writes f atomically with respect to other writers.
func (t *Transport) WriteFrame(f *wire.Frame) error {
	t.s.writeMu.Lock()
	defer t.s.writeMu.Unlock()

	if err := wire.WriteFrame(t.s.conn, f); err != nil {
		return t.mapErr(err)
	}
	instrument.FrameSent(f.Type)
	t.log.Debugf("-> %s (%d bytes)", constants.TypeName(f.Type), f.Size())
	return nil
}

// Watch makes blocked reads and writes fail once ctx is done.  The
// returned stop function must be called when the guarded operation
// completes; it reports whether ctx had not yet fired.  If it had, stop
// clears the deadline again so later operations are not affected.
func (t *Transport) Watch(ctx context.Context) (stop func() bool) {
	fired := make(chan struct{})
	cancel := context.AfterFunc(ctx, func() {
		t.s.conn.SetDeadline(time.Unix(1, 0))
		close(fired)
	})
	return func() bool {
		if cancel() {
			return true
		}
		<-fired
		if err := t.s.conn.SetDeadline(time.Time{}); err != nil {
			t.log.Debugf("clear deadline: %v", err)
		}
		return false
	}
}

// Disconnect shuts the socket down in both directions and releases it.
// It is safe to call more than once, and from any handle.
func (t *Transport) Disconnect() error {
	t.s.closeOnce.Do(func() {
		if uc, ok := t.s.conn.(*net.UnixConn); ok {
			if err := uc.CloseRead(); err != nil {
				t.log.Debugf("shutdown read: %v", err)
			}
			if err := uc.CloseWrite(); err != nil {
				t.log.Debugf("shutdown write: %v", err)
			}
		}
		t.s.closeErr = t.s.conn.Close()
		close(t.s.closed)
	})
	return t.s.closeErr
}

// IsDisconnected reports whether Disconnect has been called.
func (t *Transport) IsDisconnected() bool {
	select {
	case <-t.s.closed:
		return true
	default:
		return false
	}
}

func (t *Transport) mapErr(err error) error {
	if t.IsDisconnected() {
		return ErrDisconnected
	}
	return err
}
