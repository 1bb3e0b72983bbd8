// SPDX-FileCopyrightText: © 2026 David Stainton
// SPDX-License-Identifier: AGPL-3.0-only

// Package cadet multiplexes the daemon's confidential end-to-end
// channels over one connection to its cadet service.
package cadet

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"gopkg.in/op/go-logging.v1"

	"github.com/katzenpost/gnunet/config"
	"github.com/katzenpost/gnunet/core/log"
	"github.com/katzenpost/gnunet/core/worker"
	"github.com/katzenpost/gnunet/crypto"
	"github.com/katzenpost/gnunet/internal/instrument"
	"github.com/katzenpost/gnunet/transport"
	"github.com/katzenpost/gnunet/wire"
	"github.com/katzenpost/gnunet/wire/constants"
)

const (
	// ServiceName is the config section naming the cadet socket.
	ServiceName = "cadet"

	// FirstLocalID is the first channel id handed out to locally
	// initiated channels.  Ids below it belong to the daemon.
	FirstLocalID uint32 = 0x80000001
)

// Mux owns the connection to the cadet service and routes inbound
// frames to the channels and ports opened over it.
type Mux struct {
	worker.Worker
	sync.Mutex

	w *transport.Transport
	r *transport.Transport

	log     *logging.Logger
	onError func(error)

	channels map[uint32]*Channel
	ports    map[crypto.HashCode]*Port
	err      error
}

// Dial connects to the cadet service socket found through locator and
// starts the mux.  onError, which may be nil, is called from the reader
// with daemon failures and with the error that stops the mux.
func Dial(ctx context.Context, locator config.SocketLocator, logger *logging.Logger, onError func(error)) (*Mux, error) {
	path, err := locator.SocketPath(ServiceName)
	if err != nil {
		return nil, err
	}
	t, err := transport.Dial(ctx, path, logger)
	if err != nil {
		return nil, fmt.Errorf("cadet: connect %s: %w", path, err)
	}
	return New(t, logger, onError), nil
}

// New starts a mux over an established transport.
func New(t *transport.Transport, logger *logging.Logger, onError func(error)) *Mux {
	if logger == nil {
		logger = log.Discard(ServiceName)
	}
	if onError == nil {
		onError = func(error) {}
	}
	m := &Mux{
		w:        t,
		r:        t.Clone(),
		log:      logger,
		onError:  onError,
		channels: make(map[uint32]*Channel),
		ports:    make(map[crypto.HashCode]*Port),
	}
	m.Go(m.worker)
	return m
}

// Close stops the reader, disconnects from the daemon and fails every
// channel and port.
func (m *Mux) Close() error {
	m.halt(ErrMuxHalted)
	m.Wait()
	return nil
}

// Err returns the error that stopped the mux, or nil while it runs.
func (m *Mux) Err() error {
	m.Lock()
	defer m.Unlock()
	return m.err
}

// Connect opens a channel to port on the peer dest and waits for the
// daemon to acknowledge it.
func (m *Mux) Connect(ctx context.Context, dest *crypto.PeerIdentity, port crypto.HashCode) (*Channel, error) {
	m.Lock()
	if m.err != nil {
		m.Unlock()
		return nil, m.err
	}
	id, err := allocateChannelID(m.channels)
	if err != nil {
		m.Unlock()
		return nil, err
	}
	ch := newChannel(m, id, dest, port)
	m.channels[id] = ch
	m.Unlock()
	instrument.ChannelInstalled()

	req, err := encodeChannelCreate(&channelCreate{
		id:   id,
		peer: dest,
		port: port,
	})
	if err == nil {
		err = m.write(req)
	}
	if err != nil {
		m.remove(id)
		return nil, err
	}
	m.log.Debugf("Channel %#x: connecting to %s.", id, dest)

	err = ch.awaitOpen(ctx)
	switch {
	case err == nil:
		instrument.ChannelOpened()
		return ch, nil
	case errors.Is(err, ErrConnectionReset):
		m.remove(id)
	default:
		ch.Close()
	}
	return nil, err
}

// OpenPort starts accepting inbound channels addressed to port.
func (m *Mux) OpenPort(port crypto.HashCode) (*Port, error) {
	m.Lock()
	if m.err != nil {
		m.Unlock()
		return nil, m.err
	}
	if _, ok := m.ports[port]; ok {
		m.Unlock()
		return nil, ErrPortInUse
	}
	p := newPort(m, port)
	m.ports[port] = p
	m.Unlock()

	req, err := encodePort(constants.CadetLocalPortOpen, port)
	if err == nil {
		err = m.write(req)
	}
	if err != nil {
		m.removePort(port)
		return nil, err
	}
	return p, nil
}

func (m *Mux) write(f *wire.Frame) error {
	if err := m.w.WriteFrame(f); err != nil {
		if m.IsHalted() {
			return m.Err()
		}
		return err
	}
	return nil
}

func (m *Mux) lookup(id uint32) *Channel {
	m.Lock()
	defer m.Unlock()
	return m.channels[id]
}

func (m *Mux) remove(id uint32) {
	m.Lock()
	_, ok := m.channels[id]
	delete(m.channels, id)
	m.Unlock()
	if ok {
		instrument.ChannelRemoved()
	}
}

func (m *Mux) removePort(port crypto.HashCode) {
	m.Lock()
	defer m.Unlock()
	delete(m.ports, port)
}

// halt records err as the reason the mux stopped, disconnects, and wakes
// everything blocked on the mux.  Only the first call has an effect.
func (m *Mux) halt(err error) bool {
	m.Lock()
	if m.err != nil {
		m.Unlock()
		return false
	}
	if !errors.Is(err, ErrMuxHalted) {
		err = fmt.Errorf("%w: %w", ErrMuxHalted, err)
	}
	m.err = err
	channels := make([]*Channel, 0, len(m.channels))
	for _, ch := range m.channels {
		channels = append(channels, ch)
	}
	ports := make([]*Port, 0, len(m.ports))
	for _, p := range m.ports {
		ports = append(ports, p)
	}
	m.Unlock()

	m.Signal()
	m.w.Disconnect()
	for _, ch := range channels {
		ch.wake()
	}
	for _, p := range ports {
		p.wake()
	}
	return true
}

func (m *Mux) worker() {
	for {
		f, err := m.r.ReadFrame()
		if err != nil {
			if m.halt(err) {
				m.log.Errorf("Cadet service connection failed: %v", err)
				m.onError(err)
			}
			return
		}
		if err := m.dispatch(f); err != nil {
			err = fmt.Errorf("cadet: malformed %s: %w", constants.TypeName(f.Type), err)
			if m.halt(err) {
				m.log.Errorf("Cadet service protocol violation: %v", err)
				m.onError(err)
			}
			return
		}
	}
}

func (m *Mux) dispatch(f *wire.Frame) error {
	switch f.Type {
	case constants.CadetLocalAck:
		id, err := parseChannelID(f.Body)
		if err != nil {
			return err
		}
		if ch := m.route(f.Type, id); ch != nil {
			ch.ack()
		}
	case constants.CadetLocalChannelDestroy:
		id, err := parseChannelID(f.Body)
		if err != nil {
			return err
		}
		if ch := m.route(f.Type, id); ch != nil {
			ch.peerDestroy()
			instrument.ChannelDestroyed()
		}
	case constants.CadetLocalData:
		id, p, err := parseData(f.Body)
		if err != nil {
			return err
		}
		if ch := m.route(f.Type, id); ch != nil {
			ch.deliver(p)
		}
	case constants.CadetLocalChannelCreate:
		msg, err := parseChannelCreate(f.Body)
		if err != nil {
			return err
		}
		m.incoming(msg)
	case constants.IdentityResultCode:
		r := wire.NewReader(f.Body)
		code, err := r.Uint32()
		if err != nil {
			return err
		}
		if code != constants.ResultOK {
			err := fmt.Errorf("%w: code %d: %s", ErrDaemonResult, code, r.ZString())
			m.log.Warningf("%v", err)
			m.onError(err)
		}
	default:
		m.log.Debugf("Ignoring %s (%d).", constants.TypeName(f.Type), f.Type)
	}
	return nil
}

func (m *Mux) route(msgType uint16, id uint32) *Channel {
	ch := m.lookup(id)
	if ch == nil {
		m.log.Warningf("Dropping %s for unknown channel %#x.", constants.TypeName(msgType), id)
		instrument.FrameDropped()
	}
	return ch
}

// incoming installs a daemon initiated channel and queues it on the
// port it was addressed to.  Channels for ports nobody listens on are
// refused.
func (m *Mux) incoming(msg *channelCreate) {
	m.Lock()
	p, ok := m.ports[msg.port]
	_, taken := m.channels[msg.id]
	var ch *Channel
	if ok && !taken {
		ch = newChannel(m, msg.id, msg.peer, msg.port)
		ch.opened = true
		m.channels[msg.id] = ch
	}
	m.Unlock()

	if ch == nil {
		m.log.Warningf("Refusing channel %#x from %s: port %s not open or id in use.",
			msg.id, msg.peer, msg.port)
		f, err := encodeChannelID(constants.CadetLocalChannelDestroy, msg.id)
		if err == nil {
			err = m.write(f)
		}
		if err != nil {
			m.log.Debugf("Refusing channel %#x: %v", msg.id, err)
		}
		return
	}

	instrument.ChannelInstalled()
	instrument.ChannelOpened()
	m.log.Debugf("Channel %#x: inbound from %s.", msg.id, msg.peer)
	if !p.enqueue(ch) {
		ch.Close()
	}
}

// allocateChannelID returns the smallest id at or above FirstLocalID
// that active does not contain.
func allocateChannelID(active map[uint32]*Channel) (uint32, error) {
	for id := FirstLocalID; id != 0; id++ {
		if _, ok := active[id]; !ok {
			return id, nil
		}
	}
	return 0, ErrIDSpaceExhausted
}
