// SPDX-FileCopyrightText: © 2026 David Stainton
// SPDX-License-Identifier: AGPL-3.0-only

package crypto

import (
	"crypto/hmac"
	"encoding/binary"
	"fmt"
	"io"
	"runtime"
	"strings"

	"github.com/katzenpost/hpqc/rand"
	"github.com/katzenpost/hpqc/util"
)

const (
	// KeySize is the size of the key material of every key type.
	KeySize = 32

	// TagSize is the size of the key type tag on the wire.
	TagSize = 4

	// PrivateKeyWireSize is the size of a private key inside a daemon
	// message: tag followed by key material.
	PrivateKeyWireSize = TagSize + KeySize

	// PublicKeyWireSize is the size of a public key inside a daemon
	// message.
	PublicKeyWireSize = TagSize + KeySize

	// PublicKeySize is the size of the canonical public key encoding:
	// a discriminant byte followed by key material.
	PublicKeySize = 1 + KeySize
)

// KeyType selects the signature scheme of a key.  The numeric value is
// the canonical discriminant.
type KeyType uint8

const (
	ECDSA KeyType = 0
	EDDSA KeyType = 1
)

// Wire tags dictated by the daemon.
const (
	ecdsaTag uint32 = 65536
	eddsaTag uint32 = 65556
)

// String implements fmt.Stringer.
func (k KeyType) String() string {
	switch k {
	case ECDSA:
		return "ECDSA"
	case EDDSA:
		return "EDDSA"
	default:
		return fmt.Sprintf("KeyType(%d)", uint8(k))
	}
}

// Tag returns the daemon's wire tag for k.
func (k KeyType) Tag() uint32 {
	if k == EDDSA {
		return eddsaTag
	}
	return ecdsaTag
}

func (k KeyType) valid() bool {
	return k == ECDSA || k == EDDSA
}

// KeyTypeFromTag maps a wire tag onto a KeyType.
func KeyTypeFromTag(tag uint32) (KeyType, error) {
	switch tag {
	case ecdsaTag:
		return ECDSA, nil
	case eddsaTag:
		return EDDSA, nil
	default:
		return 0, &KeyTypeError{Tag: tag}
	}
}

// KeyTypeFromDiscriminant maps a canonical discriminant byte onto a
// KeyType.
func KeyTypeFromDiscriminant(b byte) (KeyType, error) {
	k := KeyType(b)
	if !k.valid() {
		return 0, &KeyTypeError{Tag: uint32(b)}
	}
	return k, nil
}

// ParseKeyType accepts "ecdsa" or "eddsa" in any case.
func ParseKeyType(s string) (KeyType, error) {
	switch strings.ToUpper(s) {
	case "ECDSA":
		return ECDSA, nil
	case "EDDSA":
		return EDDSA, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidKeyType, s)
	}
}

// PrivateKey is a tagged private key.  The key material is zeroed by
// Reset, and in any case before the garbage collector reclaims it.
type PrivateKey struct {
	keyType KeyType
	d       *[KeySize]byte
}

func newPrivateKey(keyType KeyType, material []byte) *PrivateKey {
	d := new([KeySize]byte)
	copy(d[:], material)
	k := &PrivateKey{
		keyType: keyType,
		d:       d,
	}
	runtime.AddCleanup(k, func(d *[KeySize]byte) {
		util.ExplicitBzero(d[:])
	}, d)
	return k
}

// GeneratePrivateKey creates a fresh random key of the given type.
func GeneratePrivateKey(keyType KeyType) (*PrivateKey, error) {
	return generatePrivateKey(keyType, rand.Reader)
}

func generatePrivateKey(keyType KeyType, r io.Reader) (*PrivateKey, error) {
	switch keyType {
	case EDDSA:
		seed := make([]byte, KeySize)
		defer util.ExplicitBzero(seed)
		if _, err := io.ReadFull(r, seed); err != nil {
			return nil, err
		}
		return newPrivateKey(EDDSA, seed), nil
	case ECDSA:
		d, err := ecdsaGenerate(r)
		if err != nil {
			return nil, err
		}
		defer util.ExplicitBzero(d)
		return newPrivateKey(ECDSA, d), nil
	default:
		return nil, &KeyTypeError{Tag: uint32(keyType)}
	}
}

// NewPrivateKey wraps existing key material.  Any 32 bytes are accepted;
// material that is unusable for its key type makes PublicKey and Sign
// fail with ErrInvalidKey.
func NewPrivateKey(keyType KeyType, material []byte) (*PrivateKey, error) {
	if !keyType.valid() {
		return nil, &KeyTypeError{Tag: uint32(keyType)}
	}
	if len(material) != KeySize {
		return nil, ErrInvalidLength
	}
	return newPrivateKey(keyType, material), nil
}

// PrivateKeyFromWire parses the 36 byte form found in daemon messages.
func PrivateKeyFromWire(b []byte) (*PrivateKey, error) {
	if len(b) != PrivateKeyWireSize {
		return nil, ErrInvalidLength
	}
	keyType, err := KeyTypeFromTag(binary.BigEndian.Uint32(b[:TagSize]))
	if err != nil {
		return nil, err
	}
	return NewPrivateKey(keyType, b[TagSize:])
}

// Type returns the key type.
func (k *PrivateKey) Type() KeyType {
	return k.keyType
}

// Bytes returns a copy of the key material.
func (k *PrivateKey) Bytes() []byte {
	b := make([]byte, KeySize)
	copy(b, k.d[:])
	return b
}

// MarshalWire returns the 36 byte daemon form.
func (k *PrivateKey) MarshalWire() []byte {
	b := make([]byte, PrivateKeyWireSize)
	binary.BigEndian.PutUint32(b, k.keyType.Tag())
	copy(b[TagSize:], k.d[:])
	return b
}

// Equal compares two private keys in constant time.
func (k *PrivateKey) Equal(other *PrivateKey) bool {
	if other == nil || k.keyType != other.keyType {
		return false
	}
	return hmac.Equal(k.d[:], other.d[:])
}

// Reset zeroes the key material.  The key is unusable afterwards.
func (k *PrivateKey) Reset() {
	util.ExplicitBzero(k.d[:])
}

// PublicKey derives the public half of k.
func (k *PrivateKey) PublicKey() (*PublicKey, error) {
	var (
		pub []byte
		err error
	)
	switch k.keyType {
	case EDDSA:
		pub = eddsaPublic(k.d[:])
	case ECDSA:
		pub, err = ecdsaPublic(k.d[:])
	}
	if err != nil {
		return nil, err
	}
	p := &PublicKey{keyType: k.keyType}
	copy(p.key[:], pub)
	return p, nil
}

// Sign signs data under the given purpose.
func (k *PrivateKey) Sign(data []byte, purpose uint32) (*Signature, error) {
	msg := purposeBlock(data, purpose)
	sig := &Signature{keyType: k.keyType}
	var err error
	switch k.keyType {
	case EDDSA:
		sig.r, sig.s = eddsaSign(k.d[:], msg)
	case ECDSA:
		sig.r, sig.s, err = ecdsaSign(k.d[:], msg)
	}
	if err != nil {
		return nil, err
	}
	return sig, nil
}

// PublicKey is a tagged public key.
type PublicKey struct {
	keyType KeyType
	key     [KeySize]byte
}

// NewPublicKey wraps existing key material.
func NewPublicKey(keyType KeyType, material []byte) (*PublicKey, error) {
	if !keyType.valid() {
		return nil, &KeyTypeError{Tag: uint32(keyType)}
	}
	if len(material) != KeySize {
		return nil, ErrInvalidLength
	}
	p := &PublicKey{keyType: keyType}
	copy(p.key[:], material)
	return p, nil
}

// PublicKeyFromWire parses the 36 byte daemon form.
func PublicKeyFromWire(b []byte) (*PublicKey, error) {
	if len(b) != PublicKeyWireSize {
		return nil, ErrInvalidLength
	}
	keyType, err := KeyTypeFromTag(binary.BigEndian.Uint32(b[:TagSize]))
	if err != nil {
		return nil, err
	}
	return NewPublicKey(keyType, b[TagSize:])
}

// ParsePublicKey parses the text form produced by String.
func ParsePublicKey(s string) (*PublicKey, error) {
	if len(s) != EncodedLen(PublicKeyWireSize) {
		return nil, ErrInvalidEncoding
	}
	b, err := DecodeString(s)
	if err != nil {
		return nil, err
	}
	return PublicKeyFromWire(b)
}

// Type returns the key type.
func (p *PublicKey) Type() KeyType {
	return p.keyType
}

// Bytes returns a copy of the 32 bytes of key material.
func (p *PublicKey) Bytes() []byte {
	b := make([]byte, KeySize)
	copy(b, p.key[:])
	return b
}

// MarshalWire returns the 36 byte daemon form.
func (p *PublicKey) MarshalWire() []byte {
	b := make([]byte, PublicKeyWireSize)
	binary.BigEndian.PutUint32(b, p.keyType.Tag())
	copy(b[TagSize:], p.key[:])
	return b
}

// MarshalBinary returns the 33 byte canonical form.
func (p *PublicKey) MarshalBinary() ([]byte, error) {
	b := make([]byte, PublicKeySize)
	b[0] = byte(p.keyType)
	copy(b[1:], p.key[:])
	return b, nil
}

// UnmarshalBinary parses the 33 byte canonical form.
func (p *PublicKey) UnmarshalBinary(b []byte) error {
	if len(b) != PublicKeySize {
		return ErrInvalidLength
	}
	keyType, err := KeyTypeFromDiscriminant(b[0])
	if err != nil {
		return err
	}
	p.keyType = keyType
	copy(p.key[:], b[1:])
	return nil
}

// String returns the text form of the daemon encoding.
func (p *PublicKey) String() string {
	return EncodeToString(p.MarshalWire())
}

// MarshalText implements encoding.TextMarshaler.
func (p *PublicKey) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *PublicKey) UnmarshalText(text []byte) error {
	v, err := ParsePublicKey(string(text))
	if err != nil {
		return err
	}
	*p = *v
	return nil
}

// Equal reports whether p and other are the same key.
func (p *PublicKey) Equal(other *PublicKey) bool {
	return other != nil && p.keyType == other.keyType && p.key == other.key
}

// Verify checks sig over data and purpose.
func (p *PublicKey) Verify(sig *Signature, data []byte, purpose uint32) bool {
	if sig == nil || sig.keyType != p.keyType {
		return false
	}
	msg := purposeBlock(data, purpose)
	switch p.keyType {
	case EDDSA:
		return eddsaVerify(p.key[:], msg, &sig.r, &sig.s)
	case ECDSA:
		return ecdsaVerify(p.key[:], msg, &sig.r, &sig.s)
	default:
		return false
	}
}
