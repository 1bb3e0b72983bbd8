// SPDX-FileCopyrightText: © 2026 David Stainton
// SPDX-License-Identifier: AGPL-3.0-only

package crypto

// PeerIdentitySize is the size of a peer identity: an EdDSA public key.
const PeerIdentitySize = KeySize

// PeerIdentity names a peer of the overlay by its EdDSA public key.
type PeerIdentity [PeerIdentitySize]byte

// PeerIdentityFromBytes copies a 32 byte identity.
func PeerIdentityFromBytes(b []byte) (*PeerIdentity, error) {
	if len(b) != PeerIdentitySize {
		return nil, ErrInvalidLength
	}
	p := new(PeerIdentity)
	copy(p[:], b)
	return p, nil
}

// PeerIdentityFromPublicKey converts an EdDSA public key.
func PeerIdentityFromPublicKey(pub *PublicKey) (*PeerIdentity, error) {
	if pub.Type() != EDDSA {
		return nil, &KeyTypeError{Tag: pub.Type().Tag()}
	}
	return PeerIdentityFromBytes(pub.Bytes())
}

// ParsePeerIdentity parses the 52 character text form.
func ParsePeerIdentity(s string) (*PeerIdentity, error) {
	if len(s) != EncodedLen(PeerIdentitySize) {
		return nil, ErrInvalidEncoding
	}
	b, err := DecodeString(s)
	if err != nil {
		return nil, err
	}
	return PeerIdentityFromBytes(b)
}

// Bytes returns a copy of the identity.
func (p *PeerIdentity) Bytes() []byte {
	return append([]byte(nil), p[:]...)
}

// PublicKey returns the identity as an EdDSA public key.
func (p *PeerIdentity) PublicKey() *PublicKey {
	return &PublicKey{keyType: EDDSA, key: *p}
}

// String implements fmt.Stringer.
func (p *PeerIdentity) String() string {
	return EncodeToString(p[:])
}
