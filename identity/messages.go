// SPDX-FileCopyrightText: © 2026 David Stainton
// SPDX-License-Identifier: AGPL-3.0-only

package identity

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/katzenpost/gnunet/crypto"
	"github.com/katzenpost/gnunet/wire"
	"github.com/katzenpost/gnunet/wire/constants"
)

// ErrInvalidName is returned for names the daemon cannot carry.
var ErrInvalidName = errors.New("identity: invalid name")

// update is the body shared by IDENTITY_UPDATE and IDENTITY_SET_DEFAULT:
// name length, end of list flag (reserved in SET_DEFAULT), private key,
// name.
type update struct {
	name      string
	key       *crypto.PrivateKey
	endOfList bool
}

func parseUpdate(body []byte) (*update, error) {
	r := wire.NewReader(body)
	nameLen, err := r.Uint16()
	if err != nil {
		return nil, err
	}
	eol, err := r.Uint16()
	if err != nil {
		return nil, err
	}
	rawKey, err := r.Bytes(crypto.PrivateKeyWireSize)
	if err != nil {
		return nil, err
	}
	name, err := r.String(int(nameLen))
	if err != nil {
		return nil, err
	}
	u := &update{
		name:      name,
		endOfList: eol != constants.No,
	}
	// The end of list marker carries neither a name nor a key.
	if name != "" || !isZero(rawKey) {
		u.key, err = crypto.PrivateKeyFromWire(rawKey)
		if err != nil {
			return nil, fmt.Errorf("identity: ego %q: %w", name, err)
		}
	}
	return u, nil
}

func parseResult(body []byte) (*ResultError, error) {
	r := wire.NewReader(body)
	code, err := r.Uint32()
	if err != nil {
		return nil, err
	}
	return &ResultError{
		Code:    code,
		Message: r.ZString(),
	}, nil
}

func encodeStart() (*wire.Frame, error) {
	return wire.NewBuilder().Frame(constants.IdentityStart)
}

func encodeLookup(name string) (*wire.Frame, error) {
	return wire.NewBuilder().PutZString(name).Frame(constants.IdentityLookup)
}

func encodeCreate(name string, key *crypto.PrivateKey) (*wire.Frame, error) {
	return wire.NewBuilder().
		PutUint16(uint16(len(name) + 1)).
		PutUint16(0).
		PutBytes(key.MarshalWire()).
		PutZString(name).
		Frame(constants.IdentityCreate)
}

func encodeGetDefault(service string) (*wire.Frame, error) {
	return wire.NewBuilder().
		PutUint16(uint16(len(service) + 1)).
		PutUint16(0).
		PutZString(service).
		Frame(constants.IdentityGetDefault)
}

func encodeSetDefault(service string, key *crypto.PrivateKey) (*wire.Frame, error) {
	return wire.NewBuilder().
		PutUint16(uint16(len(service) + 1)).
		PutUint16(0).
		PutBytes(key.MarshalWire()).
		PutZString(service).
		Frame(constants.IdentitySetDefault)
}

func encodeRename(oldName, newName string) (*wire.Frame, error) {
	return wire.NewBuilder().
		PutUint16(uint16(len(oldName) + 1)).
		PutUint16(uint16(len(newName) + 1)).
		PutZString(oldName).
		PutZString(newName).
		Frame(constants.IdentityRename)
}

func encodeDelete(name string) (*wire.Frame, error) {
	return wire.NewBuilder().
		PutUint16(uint16(len(name) + 1)).
		PutUint16(0).
		PutZString(name).
		Frame(constants.IdentityDelete)
}

func checkName(name string) error {
	switch {
	case name == "":
		return fmt.Errorf("%w: empty", ErrInvalidName)
	case strings.IndexByte(name, 0) >= 0:
		return fmt.Errorf("%w: contains NUL", ErrInvalidName)
	case !utf8.ValidString(name):
		return fmt.Errorf("%w: not UTF-8", ErrInvalidName)
	case len(name)+1+crypto.PrivateKeyWireSize+4 > constants.MaxBodySize:
		return fmt.Errorf("%w: too long", ErrInvalidName)
	}
	return nil
}

func isZero(b []byte) bool {
	return len(bytes.Trim(b, "\x00")) == 0
}
