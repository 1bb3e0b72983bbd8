// SPDX-FileCopyrightText: © 2026 David Stainton
// SPDX-License-Identifier: AGPL-3.0-only

package crypto

import (
	"crypto/sha512"
	"encoding/binary"
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

const (
	// HashSize is the size of a serialized HashCode.
	HashSize = 64

	hashWords = HashSize / 4
)

// canonicalEncMode produces the compact deterministic encoding hashed by
// GenerateHashFrom: sorted map keys, shortest integers, definite lengths.
var canonicalEncMode cbor.EncMode

func init() {
	var err error
	canonicalEncMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("crypto: CBOR encoder initialization failed: " + err.Error())
	}
}

// HashCode is a 512 bit hash, held as 16 words.  Each word serializes
// least significant byte first, in word order.
type HashCode [hashWords]uint32

// GenerateHash returns the hash of data.
func GenerateHash(data []byte) HashCode {
	digest := sha512.Sum512(data)
	h, _ := HashCodeFromBytes(digest[:])
	return h
}

// GenerateHashFrom hashes the canonical binary encoding of v.  It is
// used to derive stable port identifiers from application values.
func GenerateHashFrom(v interface{}) (HashCode, error) {
	blob, err := canonicalEncMode.Marshal(v)
	if err != nil {
		return HashCode{}, fmt.Errorf("crypto: failed to encode hash input: %w", err)
	}
	return GenerateHash(blob), nil
}

// HashCodeFromBytes parses the 64 byte serialized form.
func HashCodeFromBytes(b []byte) (HashCode, error) {
	var h HashCode
	if len(b) != HashSize {
		return h, ErrInvalidLength
	}
	for i := range h {
		h[i] = binary.LittleEndian.Uint32(b[i*4:])
	}
	return h, nil
}

// ParseHashCode parses the text form produced by String.
func ParseHashCode(s string) (HashCode, error) {
	if len(s) != EncodedLen(HashSize) {
		return HashCode{}, ErrInvalidEncoding
	}
	b, err := DecodeString(s)
	if err != nil {
		return HashCode{}, err
	}
	return HashCodeFromBytes(b)
}

// Bytes returns the 64 byte serialized form.
func (h HashCode) Bytes() []byte {
	b := make([]byte, HashSize)
	for i, w := range h {
		binary.LittleEndian.PutUint32(b[i*4:], w)
	}
	return b
}

// String returns the 103 character text form.
func (h HashCode) String() string {
	return EncodeToString(h.Bytes())
}

// Equal reports whether h and other are the same hash.
func (h HashCode) Equal(other HashCode) bool {
	return h == other
}

// MarshalBinary implements encoding.BinaryMarshaler.
func (h HashCode) MarshalBinary() ([]byte, error) {
	return h.Bytes(), nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler.
func (h *HashCode) UnmarshalBinary(b []byte) error {
	v, err := HashCodeFromBytes(b)
	if err != nil {
		return err
	}
	*h = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (h HashCode) MarshalText() ([]byte, error) {
	return []byte(h.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (h *HashCode) UnmarshalText(text []byte) error {
	v, err := ParseHashCode(string(text))
	if err != nil {
		return err
	}
	*h = v
	return nil
}
