// SPDX-FileCopyrightText: © 2026 David Stainton
// SPDX-License-Identifier: AGPL-3.0-only

package cadet

import (
	"context"
	"sync"

	"github.com/katzenpost/gnunet/crypto"
	"github.com/katzenpost/gnunet/wire/constants"
)

// Port receives the channels remote peers open to a port hash.
type Port struct {
	mux  *Mux
	hash crypto.HashCode

	sync.Mutex
	waiters waitq
	pending []*Channel
	closed  bool
}

func newPort(m *Mux, hash crypto.HashCode) *Port {
	return &Port{
		mux:  m,
		hash: hash,
	}
}

// Hash returns the port hash.
func (p *Port) Hash() crypto.HashCode {
	return p.hash
}

// Accept returns the next inbound channel.  Accepted channels are
// already open.
func (p *Port) Accept(ctx context.Context) (*Channel, error) {
	p.Lock()
	for len(p.pending) == 0 {
		switch {
		case p.closed:
			p.Unlock()
			return nil, ErrPortClosed
		case p.mux.IsHalted():
			p.Unlock()
			return nil, p.mux.Err()
		}
		changed := p.waiters.wait()
		p.Unlock()
		select {
		case <-changed:
		case <-p.mux.HaltCh():
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		p.Lock()
	}
	ch := p.pending[0]
	p.pending[0] = nil
	p.pending = p.pending[1:]
	p.Unlock()
	return ch, nil
}

// Close stops accepting channels and destroys the ones not yet
// accepted.
func (p *Port) Close() error {
	p.Lock()
	if p.closed {
		p.Unlock()
		return nil
	}
	p.closed = true
	pending := p.pending
	p.pending = nil
	p.waiters.wake()
	p.Unlock()

	p.mux.removePort(p.hash)
	for _, ch := range pending {
		ch.Close()
	}
	if p.mux.IsHalted() {
		return nil
	}
	f, err := encodePort(constants.CadetLocalPortClose, p.hash)
	if err != nil {
		return err
	}
	return p.mux.write(f)
}

func (p *Port) enqueue(ch *Channel) bool {
	p.Lock()
	defer p.Unlock()
	if p.closed {
		return false
	}
	p.pending = append(p.pending, ch)
	p.waiters.wake()
	return true
}

func (p *Port) wake() {
	p.Lock()
	defer p.Unlock()
	p.waiters.wake()
}
