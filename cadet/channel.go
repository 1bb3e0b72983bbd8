// SPDX-FileCopyrightText: © 2026 David Stainton
// SPDX-License-Identifier: AGPL-3.0-only

package cadet

import (
	"context"
	"io"
	"sync"

	"github.com/katzenpost/gnunet/crypto"
	"github.com/katzenpost/gnunet/wire/constants"
)

// waitq wakes every goroutine waiting on it.  It is guarded by its
// owner's lock.
type waitq struct {
	ch chan struct{}
}

func (q *waitq) wait() <-chan struct{} {
	if q.ch == nil {
		q.ch = make(chan struct{})
	}
	return q.ch
}

func (q *waitq) wake() {
	if q.ch != nil {
		close(q.ch)
		q.ch = nil
	}
}

// Channel is one end of a cadet channel.  Send and Receive may be used
// concurrently with each other.
type Channel struct {
	mux  *Mux
	id   uint32
	peer *crypto.PeerIdentity
	port crypto.HashCode

	sync.Mutex
	waiters waitq

	// inbox holds received payloads in arrival order.
	inbox     []*Payload
	credit    int
	opened    bool
	destroyed bool
	closed    bool
}

func newChannel(m *Mux, id uint32, peer *crypto.PeerIdentity, port crypto.HashCode) *Channel {
	return &Channel{
		mux:  m,
		id:   id,
		peer: peer,
		port: port,
	}
}

// ID returns the channel id shared with the daemon.
func (c *Channel) ID() uint32 {
	return c.id
}

// Peer returns the identity of the remote peer.
func (c *Channel) Peer() *crypto.PeerIdentity {
	return c.peer
}

// Port returns the port the channel was opened on.
func (c *Channel) Port() crypto.HashCode {
	return c.port
}

// Send queues data for the peer.  Each Ack from the daemon allows one
// Send; without credit Send blocks until an Ack arrives or ctx is done.
func (c *Channel) Send(ctx context.Context, priority uint32, data []byte) error {
	f, err := encodeData(c.id, &Payload{Priority: priority, Data: data})
	if err != nil {
		return err
	}

	c.Lock()
	for c.credit == 0 {
		if err := c.checkLocked(); err != nil {
			c.Unlock()
			return err
		}
		if err := c.waitLocked(ctx); err != nil {
			return err
		}
	}
	if err := c.checkLocked(); err != nil {
		c.Unlock()
		return err
	}
	c.credit--
	c.Unlock()

	return c.mux.write(f)
}

// Receive returns the next payload.  Once the daemon has destroyed the
// channel and every queued payload has been read, Receive returns
// io.EOF.
func (c *Channel) Receive(ctx context.Context) (*Payload, error) {
	c.Lock()
	for len(c.inbox) == 0 {
		switch {
		case c.closed:
			c.Unlock()
			return nil, ErrChannelClosed
		case c.destroyed:
			c.Unlock()
			return nil, io.EOF
		case c.mux.IsHalted():
			c.Unlock()
			return nil, c.mux.Err()
		}
		if err := c.waitLocked(ctx); err != nil {
			return nil, err
		}
	}
	p := c.inbox[0]
	c.inbox[0] = nil
	c.inbox = c.inbox[1:]
	c.Unlock()

	// Let the daemon hand us the next payload.
	f, err := encodeChannelID(constants.CadetLocalAck, c.id)
	if err == nil {
		err = c.mux.write(f)
	}
	if err != nil {
		c.mux.log.Warningf("Channel %#x: failed to acknowledge payload: %v", c.id, err)
	}
	return p, nil
}

// Close releases the channel id and, unless the daemon already did so,
// tells the daemon to destroy the channel.  Pending Send and Receive
// calls fail with ErrChannelClosed.
func (c *Channel) Close() error {
	c.Lock()
	if c.closed {
		c.Unlock()
		return nil
	}
	c.closed = true
	destroyed := c.destroyed
	c.waiters.wake()
	c.Unlock()

	c.mux.remove(c.id)
	if destroyed || c.mux.IsHalted() {
		return nil
	}
	f, err := encodeChannelID(constants.CadetLocalChannelDestroy, c.id)
	if err != nil {
		return err
	}
	c.mux.log.Debugf("Channel %#x: destroying.", c.id)
	return c.mux.write(f)
}

// Destroy is Close.
func (c *Channel) Destroy() error {
	return c.Close()
}

// awaitOpen waits for the daemon's first Ack.
func (c *Channel) awaitOpen(ctx context.Context) error {
	c.Lock()
	for !c.opened {
		switch {
		case c.destroyed:
			c.Unlock()
			return ErrConnectionReset
		case c.closed:
			c.Unlock()
			return ErrChannelClosed
		case c.mux.IsHalted():
			c.Unlock()
			return c.mux.Err()
		}
		if err := c.waitLocked(ctx); err != nil {
			return err
		}
	}
	c.Unlock()
	return nil
}

func (c *Channel) checkLocked() error {
	switch {
	case c.closed:
		return ErrChannelClosed
	case c.destroyed:
		return ErrChannelDestroyed
	case c.mux.IsHalted():
		return c.mux.Err()
	}
	return nil
}

// waitLocked releases the lock until the channel changes state.  On
// success the lock is held again; on error it is not.
func (c *Channel) waitLocked(ctx context.Context) error {
	changed := c.waiters.wait()
	c.Unlock()
	select {
	case <-changed:
	case <-c.mux.HaltCh():
	case <-ctx.Done():
		return ctx.Err()
	}
	c.Lock()
	return nil
}

func (c *Channel) wake() {
	c.Lock()
	defer c.Unlock()
	c.waiters.wake()
}

func (c *Channel) ack() {
	c.Lock()
	defer c.Unlock()
	if !c.opened {
		c.opened = true
		c.mux.log.Debugf("Channel %#x: open.", c.id)
	}
	c.credit++
	c.waiters.wake()
}

func (c *Channel) peerDestroy() {
	c.Lock()
	defer c.Unlock()
	c.destroyed = true
	c.waiters.wake()
}

func (c *Channel) deliver(p *Payload) {
	c.Lock()
	defer c.Unlock()
	if !c.opened {
		c.mux.log.Warningf("Channel %#x: payload before open, keeping it.", c.id)
	}
	c.inbox = append(c.inbox, p)
	c.waiters.wake()
}
