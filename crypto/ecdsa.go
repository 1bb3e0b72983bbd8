// SPDX-FileCopyrightText: © 2026 David Stainton
// SPDX-License-Identifier: AGPL-3.0-only

package crypto

import (
	"crypto/sha512"
	"errors"
	"io"

	"filippo.io/edwards25519"
	"golang.org/x/crypto/blake2b"

	"github.com/katzenpost/hpqc/util"
)

// ECDSA private keys are 32 little endian bytes taken modulo the order of
// the edwards25519 group; keys generated here are already reduced, keys
// from the daemon are often clamped and are not.  The public key is the
// compressed point d*B.  Signatures are classic ECDSA
// with a deterministic nonce, where the point-to-scalar conversion is
// the wide reduction of SHA-512 over the compressed point.

var errECDSASign = errors.New("crypto: ecdsa signing failed")

func ecdsaGenerate(r io.Reader) ([]byte, error) {
	var wide [64]byte
	defer util.ExplicitBzero(wide[:])
	for {
		if _, err := io.ReadFull(r, wide[:]); err != nil {
			return nil, err
		}
		d, err := edwards25519.NewScalar().SetUniformBytes(wide[:])
		if err != nil {
			return nil, err
		}
		if !isZero(d) {
			return d.Bytes(), nil
		}
	}
}

func ecdsaScalar(material []byte) (*edwards25519.Scalar, error) {
	var wide [64]byte
	defer util.ExplicitBzero(wide[:])
	copy(wide[:], material)
	d, err := edwards25519.NewScalar().SetUniformBytes(wide[:])
	if err != nil || isZero(d) {
		return nil, ErrInvalidKey
	}
	return d, nil
}

func ecdsaPublic(material []byte) ([]byte, error) {
	d, err := ecdsaScalar(material)
	if err != nil {
		return nil, err
	}
	return new(edwards25519.Point).ScalarBaseMult(d).Bytes(), nil
}

func ecdsaSign(material, msg []byte) (r, s [KeySize]byte, err error) {
	d, err := ecdsaScalar(material)
	if err != nil {
		return r, s, err
	}
	e := messageScalar(msg)

	h, err := blake2b.New512(material)
	if err != nil {
		return r, s, err
	}
	h.Write(e.Bytes())
	h.Write(msg)
	k, err := edwards25519.NewScalar().SetUniformBytes(h.Sum(nil))
	if err != nil || isZero(k) {
		return r, s, errECDSASign
	}

	rs := pointScalar(new(edwards25519.Point).ScalarBaseMult(k))
	if isZero(rs) {
		return r, s, errECDSASign
	}

	// s = k^-1 * (e + r*d)
	ss := edwards25519.NewScalar().MultiplyAdd(rs, d, e)
	ss.Multiply(ss, edwards25519.NewScalar().Invert(k))
	if isZero(ss) {
		return r, s, errECDSASign
	}
	copy(r[:], rs.Bytes())
	copy(s[:], ss.Bytes())
	return r, s, nil
}

func ecdsaVerify(pub, msg []byte, r, s *[KeySize]byte) bool {
	q, err := new(edwards25519.Point).SetBytes(pub)
	if err != nil {
		return false
	}
	rs, err := edwards25519.NewScalar().SetCanonicalBytes(r[:])
	if err != nil || isZero(rs) {
		return false
	}
	ss, err := edwards25519.NewScalar().SetCanonicalBytes(s[:])
	if err != nil || isZero(ss) {
		return false
	}

	w := edwards25519.NewScalar().Invert(ss)
	u1 := edwards25519.NewScalar().Multiply(messageScalar(msg), w)
	u2 := edwards25519.NewScalar().Multiply(rs, w)

	// R' = u2*Q + u1*B
	point := new(edwards25519.Point).VarTimeDoubleScalarBaseMult(u2, q, u1)
	return pointScalar(point).Equal(rs) == 1
}

func messageScalar(msg []byte) *edwards25519.Scalar {
	digest := sha512.Sum512(msg)
	e, err := edwards25519.NewScalar().SetUniformBytes(digest[:])
	if err != nil {
		panic(err)
	}
	return e
}

func pointScalar(p *edwards25519.Point) *edwards25519.Scalar {
	digest := sha512.Sum512(p.Bytes())
	x, err := edwards25519.NewScalar().SetUniformBytes(digest[:])
	if err != nil {
		panic(err)
	}
	return x
}

func isZero(x *edwards25519.Scalar) bool {
	return x.Equal(edwards25519.NewScalar()) == 1
}
