// SPDX-FileCopyrightText: © 2026 David Stainton
// SPDX-License-Identifier: AGPL-3.0-only

// Package identity is a client for the daemon's identity service, which
// stores named private keys ("egos") and per-service default egos.
package identity

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"gopkg.in/op/go-logging.v1"

	"github.com/katzenpost/gnunet/config"
	"github.com/katzenpost/gnunet/core/log"
	"github.com/katzenpost/gnunet/crypto"
	"github.com/katzenpost/gnunet/transport"
	"github.com/katzenpost/gnunet/wire"
	"github.com/katzenpost/gnunet/wire/constants"
)

// ServiceName is the config section naming the identity socket.
const ServiceName = "identity"

// Ego is a named private key held by the daemon.
type Ego struct {
	Name       string
	PrivateKey *crypto.PrivateKey
}

// PublicKey returns the public half of the ego's key.
func (e *Ego) PublicKey() (*crypto.PublicKey, error) {
	return e.PrivateKey.PublicKey()
}

// Client talks to the identity service.  Requests are served one at a
// time in the order they are made.
type Client struct {
	sync.Mutex

	t   *transport.Transport
	log *logging.Logger

	broken error
}

// Connect dials the identity service socket found through locator.
func Connect(ctx context.Context, locator config.SocketLocator, logger *logging.Logger) (*Client, error) {
	path, err := locator.SocketPath(ServiceName)
	if err != nil {
		return nil, err
	}
	t, err := transport.Dial(ctx, path, logger)
	if err != nil {
		return nil, fmt.Errorf("identity: connect %s: %w", path, err)
	}
	return New(t, logger), nil
}

// New returns a Client speaking over an established transport.
func New(t *transport.Transport, logger *logging.Logger) *Client {
	if logger == nil {
		logger = log.Discard(ServiceName)
	}
	return &Client{
		t:   t,
		log: logger,
	}
}

// Close disconnects from the daemon.  Further calls fail.
func (c *Client) Close() error {
	c.Lock()
	defer c.Unlock()
	if c.broken == nil {
		c.broken = ErrInvalidated
	}
	return c.t.Disconnect()
}

// List asks the daemon for every ego it holds.
func (c *Client) List(ctx context.Context) (map[string]*crypto.PrivateKey, error) {
	req, err := encodeStart()
	if err != nil {
		return nil, err
	}
	egos := make(map[string]*crypto.PrivateKey)
	err = c.roundTrip(ctx, req, func(f *wire.Frame) (bool, error) {
		switch f.Type {
		case constants.IdentityUpdate:
			u, err := parseUpdate(f.Body)
			if err != nil {
				return false, err
			}
			if u.name != "" && u.key != nil {
				egos[u.name] = u.key
			}
			return u.endOfList, nil
		case constants.IdentityResultCode:
			res, err := parseResult(f.Body)
			if err != nil {
				return false, err
			}
			if res.Code != constants.ResultOK {
				return true, res
			}
			return true, nil
		}
		return false, &wire.ProtocolError{
			Expected: []uint16{constants.IdentityUpdate, constants.IdentityResultCode},
			Got:      f.Type,
		}
	})
	if err != nil {
		return nil, err
	}
	return egos, nil
}

// Lookup returns the key of the ego called name, or nil if there is none.
func (c *Client) Lookup(ctx context.Context, name string) (*crypto.PrivateKey, error) {
	if err := checkName(name); err != nil {
		return nil, err
	}
	req, err := encodeLookup(name)
	if err != nil {
		return nil, err
	}
	var key *crypto.PrivateKey
	err = c.roundTrip(ctx, req, func(f *wire.Frame) (bool, error) {
		switch f.Type {
		case constants.IdentityUpdate:
			u, err := parseUpdate(f.Body)
			if err != nil {
				return false, err
			}
			key = u.key
			return true, nil
		case constants.IdentityResultCode:
			res, err := parseResult(f.Body)
			if err != nil {
				return false, err
			}
			switch res.Code {
			case constants.ResultNotFound:
				return true, nil
			case constants.ResultOK:
				return false, errors.New("identity: lookup succeeded without an ego")
			}
			return true, res
		}
		return false, &wire.ProtocolError{
			Expected: []uint16{constants.IdentityUpdate, constants.IdentityResultCode},
			Got:      f.Type,
		}
	})
	if err != nil {
		return nil, err
	}
	return key, nil
}

// Create stores key under name.  It returns false if an ego of that name
// already exists.
func (c *Client) Create(ctx context.Context, name string, key *crypto.PrivateKey) (bool, error) {
	if err := checkName(name); err != nil {
		return false, err
	}
	if key == nil {
		return false, crypto.ErrInvalidKey
	}
	req, err := encodeCreate(name, key)
	if err != nil {
		return false, err
	}
	err = c.expectResult(ctx, req)
	switch {
	case err == nil:
		return true, nil
	case IsAlreadyExists(err):
		return false, nil
	}
	return false, err
}

// CreateNew generates a fresh key of keyType and stores it under name.
// The key is returned only if the daemon accepted it.
func (c *Client) CreateNew(ctx context.Context, name string, keyType crypto.KeyType) (*crypto.PrivateKey, error) {
	key, err := crypto.GeneratePrivateKey(keyType)
	if err != nil {
		return nil, err
	}
	created, err := c.Create(ctx, name, key)
	if err != nil || !created {
		key.Reset()
		if err == nil {
			err = &ResultError{Code: constants.ResultAlreadyExists, Message: name}
		}
		return nil, err
	}
	return key, nil
}

// Rename renames the ego oldName to newName.  It returns false if there
// is no ego called oldName.
func (c *Client) Rename(ctx context.Context, oldName, newName string) (bool, error) {
	if err := checkName(oldName); err != nil {
		return false, err
	}
	if err := checkName(newName); err != nil {
		return false, err
	}
	req, err := encodeRename(oldName, newName)
	if err != nil {
		return false, err
	}
	return c.expectFound(ctx, req)
}

// Delete removes the ego called name.  It returns false if there is no
// such ego.
func (c *Client) Delete(ctx context.Context, name string) (bool, error) {
	if err := checkName(name); err != nil {
		return false, err
	}
	req, err := encodeDelete(name)
	if err != nil {
		return false, err
	}
	return c.expectFound(ctx, req)
}

// GetDefault returns the default ego for service, or nil if none is set.
func (c *Client) GetDefault(ctx context.Context, service string) (*Ego, error) {
	if err := checkName(service); err != nil {
		return nil, err
	}
	req, err := encodeGetDefault(service)
	if err != nil {
		return nil, err
	}
	var ego *Ego
	err = c.roundTrip(ctx, req, func(f *wire.Frame) (bool, error) {
		switch f.Type {
		case constants.IdentityUpdate, constants.IdentitySetDefault:
			u, err := parseUpdate(f.Body)
			if err != nil {
				return false, err
			}
			if u.key == nil {
				return false, fmt.Errorf("identity: default for %q carries no key", service)
			}
			ego = &Ego{Name: u.name, PrivateKey: u.key}
			return true, nil
		case constants.IdentityResultCode:
			res, err := parseResult(f.Body)
			if err != nil {
				return false, err
			}
			switch res.Code {
			case constants.ResultNotFound:
				return true, nil
			case constants.ResultOK:
				return false, errors.New("identity: get default succeeded without an ego")
			}
			return true, res
		}
		return false, &wire.ProtocolError{
			Expected: []uint16{constants.IdentityUpdate, constants.IdentitySetDefault, constants.IdentityResultCode},
			Got:      f.Type,
		}
	})
	if err != nil {
		return nil, err
	}
	return ego, nil
}

// SetDefault makes ego the default for service.
func (c *Client) SetDefault(ctx context.Context, service string, ego *Ego) error {
	if err := checkName(service); err != nil {
		return err
	}
	if ego == nil || ego.PrivateKey == nil {
		return crypto.ErrInvalidKey
	}
	req, err := encodeSetDefault(service, ego.PrivateKey)
	if err != nil {
		return err
	}
	return c.expectResult(ctx, req)
}

func (c *Client) expectFound(ctx context.Context, req *wire.Frame) (bool, error) {
	err := c.expectResult(ctx, req)
	switch {
	case err == nil:
		return true, nil
	case IsNotFound(err):
		return false, nil
	}
	return false, err
}

// expectResult sends req and waits for its result code, skipping the
// ego updates a subscribed connection receives in the meantime.
func (c *Client) expectResult(ctx context.Context, req *wire.Frame) error {
	return c.roundTrip(ctx, req, func(f *wire.Frame) (bool, error) {
		switch f.Type {
		case constants.IdentityResultCode:
			res, err := parseResult(f.Body)
			if err != nil {
				return false, err
			}
			if res.Code != constants.ResultOK {
				return true, res
			}
			return true, nil
		case constants.IdentityUpdate:
			c.log.Debugf("Skipping ego update while awaiting %s result.", constants.TypeName(req.Type))
			return false, nil
		}
		return false, &wire.ProtocolError{
			Expected: []uint16{constants.IdentityResultCode},
			Got:      f.Type,
		}
	})
}

// roundTrip sends req and feeds replies to handle until it reports done.
// Errors returned alongside done=true are daemon answers and leave the
// client usable; any other failure invalidates it.
func (c *Client) roundTrip(ctx context.Context, req *wire.Frame, handle func(*wire.Frame) (bool, error)) error {
	c.Lock()
	defer c.Unlock()

	if c.broken != nil {
		return c.broken
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	stop := c.t.Watch(ctx)
	defer stop()

	if err := c.t.WriteFrame(req); err != nil {
		return c.fail(ctx, err)
	}
	for {
		f, err := c.t.ReadFrame()
		if err != nil {
			return c.fail(ctx, err)
		}
		done, err := handle(f)
		if done {
			return err
		}
		if err != nil {
			return c.fail(ctx, err)
		}
	}
}

// fail marks the client unusable.  Cancellation leaves a request half
// answered, so it is fatal too.
func (c *Client) fail(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		err = ctxErr
	}
	c.log.Errorf("Identity service conversation failed: %v", err)
	c.broken = fmt.Errorf("%w: %w", ErrInvalidated, err)
	c.t.Disconnect()
	return err
}
