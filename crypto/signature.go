// SPDX-FileCopyrightText: © 2026 David Stainton
// SPDX-License-Identifier: AGPL-3.0-only

package crypto

import (
	"encoding/binary"
)

const (
	// SignatureSize is the size of the canonical signature encoding:
	// discriminant, r, s.
	SignatureSize = 1 + 2*KeySize

	// SignatureWireSize is the size of a signature inside a daemon
	// message.
	SignatureWireSize = TagSize + 2*KeySize

	purposeHeaderSize = 8
)

// Well known signature purposes.
const (
	PurposeTest uint32 = 0
)

// Signature is a tagged (r, s) signature.
type Signature struct {
	keyType KeyType
	r       [KeySize]byte
	s       [KeySize]byte
}

// Type returns the key type that produced the signature.
func (s *Signature) Type() KeyType {
	return s.keyType
}

// R returns a copy of the first half.
func (s *Signature) R() []byte {
	return append([]byte(nil), s.r[:]...)
}

// S returns a copy of the second half.
func (s *Signature) S() []byte {
	return append([]byte(nil), s.s[:]...)
}

// MarshalBinary returns the 65 byte canonical form.
func (s *Signature) MarshalBinary() ([]byte, error) {
	b := make([]byte, 0, SignatureSize)
	b = append(b, byte(s.keyType))
	b = append(b, s.r[:]...)
	return append(b, s.s[:]...), nil
}

// UnmarshalBinary parses the 65 byte canonical form.
func (s *Signature) UnmarshalBinary(b []byte) error {
	if len(b) != SignatureSize {
		return ErrInvalidLength
	}
	keyType, err := KeyTypeFromDiscriminant(b[0])
	if err != nil {
		return err
	}
	s.keyType = keyType
	copy(s.r[:], b[1:1+KeySize])
	copy(s.s[:], b[1+KeySize:])
	return nil
}

// MarshalWire returns the daemon form: wire tag, r, s.
func (s *Signature) MarshalWire() []byte {
	b := make([]byte, SignatureWireSize)
	binary.BigEndian.PutUint32(b, s.keyType.Tag())
	copy(b[TagSize:], s.r[:])
	copy(b[TagSize+KeySize:], s.s[:])
	return b
}

// SignatureFromWire parses the daemon form.
func SignatureFromWire(b []byte) (*Signature, error) {
	if len(b) != SignatureWireSize {
		return nil, ErrInvalidLength
	}
	keyType, err := KeyTypeFromTag(binary.BigEndian.Uint32(b[:TagSize]))
	if err != nil {
		return nil, err
	}
	s := &Signature{keyType: keyType}
	copy(s.r[:], b[TagSize:])
	copy(s.s[:], b[TagSize+KeySize:])
	return s, nil
}

// String returns the text form of the daemon encoding.
func (s *Signature) String() string {
	return EncodeToString(s.MarshalWire())
}

// ParseSignature parses the text form produced by String.
func ParseSignature(str string) (*Signature, error) {
	b, err := DecodeString(str)
	if err != nil {
		return nil, err
	}
	return SignatureFromWire(b)
}

// purposeBlock prefixes data with the signature purpose header:
// big endian size of data, then big endian purpose.
func purposeBlock(data []byte, purpose uint32) []byte {
	b := make([]byte, purposeHeaderSize, purposeHeaderSize+len(data))
	binary.BigEndian.PutUint32(b[0:4], uint32(len(data)))
	binary.BigEndian.PutUint32(b[4:8], purpose)
	return append(b, data...)
}
