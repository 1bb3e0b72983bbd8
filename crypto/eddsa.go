// SPDX-FileCopyrightText: © 2026 David Stainton
// SPDX-License-Identifier: AGPL-3.0-only

package crypto

import (
	"github.com/katzenpost/hpqc/sign/ed25519"
)

// EdDSA keys are 32 byte Ed25519 seeds.  Reset on the expanded private
// key also scrubs its public half, so public bytes are always copied out.

func eddsaPublic(seed []byte) []byte {
	pub, priv := ed25519.NewKeyFromSeed(seed)
	defer priv.Reset()
	b := pub.ByteArray()
	return b[:]
}

func eddsaSign(seed, msg []byte) (r, s [KeySize]byte) {
	_, priv := ed25519.NewKeyFromSeed(seed)
	defer priv.Reset()
	sig := priv.SignMessage(msg)
	copy(r[:], sig[:KeySize])
	copy(s[:], sig[KeySize:])
	return
}

func eddsaVerify(pub, msg []byte, r, s *[KeySize]byte) bool {
	pk := new(ed25519.PublicKey)
	if err := pk.FromBytes(pub); err != nil {
		return false
	}
	sig := make([]byte, 0, 2*KeySize)
	sig = append(sig, r[:]...)
	sig = append(sig, s[:]...)
	return pk.Verify(sig, msg)
}
