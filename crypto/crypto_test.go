// SPDX-FileCopyrightText: © 2026 David Stainton
// SPDX-License-Identifier: AGPL-3.0-only

package crypto

import (
	"bytes"
	"crypto/sha512"
	"errors"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestHashCodeCanonical(t *testing.T) {
	h := GenerateHash([]byte("gnunet"))
	require.Equal(t, h, GenerateHash([]byte("gnunet")))
	require.NotEqual(t, h, GenerateHash([]byte("gnunet!")))

	b := h.Bytes()
	require.Len(t, b, HashSize)
	digest := sha512.Sum512([]byte("gnunet"))
	require.Equal(t, digest[:], b)

	// Words serialize least significant byte first.
	require.Equal(t, byte(h[0]), b[0])
	require.Equal(t, byte(h[0]>>24), b[3])

	s := h.String()
	require.Len(t, s, 103)
	h2, err := ParseHashCode(s)
	require.NoError(t, err)
	require.True(t, h.Equal(h2))

	h3, err := ParseHashCode(strings.ToLower(s))
	require.NoError(t, err)
	require.Equal(t, h, h3)

	_, err = ParseHashCode(s[:100])
	require.ErrorIs(t, err, ErrInvalidEncoding)
	_, err = HashCodeFromBytes(b[:63])
	require.ErrorIs(t, err, ErrInvalidLength)
}

func TestHashCodeText(t *testing.T) {
	h := GenerateHash([]byte("port"))
	text, err := h.MarshalText()
	require.NoError(t, err)
	var h2 HashCode
	require.NoError(t, h2.UnmarshalText(text))
	require.Equal(t, h, h2)

	var h3 HashCode
	require.NoError(t, h3.UnmarshalBinary(h.Bytes()))
	require.Equal(t, h, h3)
}

func TestGenerateHashFrom(t *testing.T) {
	type portName struct {
		Service string
		Version int
	}
	a, err := GenerateHashFrom(&portName{Service: "chat", Version: 1})
	require.NoError(t, err)
	b, err := GenerateHashFrom(portName{Service: "chat", Version: 1})
	require.NoError(t, err)
	require.Equal(t, a, b)

	c, err := GenerateHashFrom(map[string]int{"b": 2, "a": 1})
	require.NoError(t, err)
	d, err := GenerateHashFrom(map[string]int{"a": 1, "b": 2})
	require.NoError(t, err)
	require.Equal(t, c, d)

	_, err = GenerateHashFrom(make(chan int))
	require.Error(t, err)
}

func TestKeyTypeTags(t *testing.T) {
	for _, k := range []KeyType{ECDSA, EDDSA} {
		got, err := KeyTypeFromTag(k.Tag())
		require.NoError(t, err)
		require.Equal(t, k, got)
	}
	require.NotEqual(t, ECDSA.Tag(), EDDSA.Tag())

	_, err := KeyTypeFromTag(7)
	require.ErrorIs(t, err, ErrInvalidKeyType)
	var kerr *KeyTypeError
	require.True(t, errors.As(err, &kerr))
	require.Equal(t, uint32(7), kerr.Tag)

	k, err := ParseKeyType("eddsa")
	require.NoError(t, err)
	require.Equal(t, EDDSA, k)
	_, err = ParseKeyType("rsa")
	require.ErrorIs(t, err, ErrInvalidKeyType)
}

func TestSignVerify(t *testing.T) {
	data := []byte("a message")
	for _, keyType := range []KeyType{ECDSA, EDDSA} {
		t.Run(keyType.String(), func(t *testing.T) {
			sk, err := GeneratePrivateKey(keyType)
			require.NoError(t, err)
			pk, err := sk.PublicKey()
			require.NoError(t, err)
			require.Equal(t, keyType, pk.Type())

			sig, err := sk.Sign(data, 42)
			require.NoError(t, err)
			require.True(t, pk.Verify(sig, data, 42))

			require.False(t, pk.Verify(sig, []byte("a messagf"), 42))
			require.False(t, pk.Verify(sig, data, 43))

			other, err := GeneratePrivateKey(keyType)
			require.NoError(t, err)
			otherPub, err := other.PublicKey()
			require.NoError(t, err)
			require.False(t, otherPub.Verify(sig, data, 42))

			mutated := *pk
			mutated.key[0] ^= 0x01
			require.False(t, mutated.Verify(sig, data, 42))

			badSig := *sig
			badSig.s[3] ^= 0x80
			require.False(t, pk.Verify(&badSig, data, 42))
		})
	}
}

func TestECDSADeterministic(t *testing.T) {
	sk, err := GeneratePrivateKey(ECDSA)
	require.NoError(t, err)
	a, err := sk.Sign([]byte("x"), PurposeTest)
	require.NoError(t, err)
	b, err := sk.Sign([]byte("x"), PurposeTest)
	require.NoError(t, err)
	require.Equal(t, a, b)
}

func TestPurposeBlock(t *testing.T) {
	b := purposeBlock([]byte{0xaa, 0xbb}, 0x01020304)
	require.Equal(t, []byte{0, 0, 0, 2, 1, 2, 3, 4, 0xaa, 0xbb}, b)
}

func TestPublicKeyEncodings(t *testing.T) {
	sk, err := GeneratePrivateKey(EDDSA)
	require.NoError(t, err)
	pk, err := sk.PublicKey()
	require.NoError(t, err)

	canon, err := pk.MarshalBinary()
	require.NoError(t, err)
	require.Len(t, canon, PublicKeySize)
	require.Equal(t, byte(1), canon[0])

	pk2 := new(PublicKey)
	require.NoError(t, pk2.UnmarshalBinary(canon))
	require.True(t, pk.Equal(pk2))

	canon[0] = 9
	require.ErrorIs(t, new(PublicKey).UnmarshalBinary(canon), ErrInvalidKeyType)

	pk3, err := ParsePublicKey(pk.String())
	require.NoError(t, err)
	require.True(t, pk.Equal(pk3))

	wire := pk.MarshalWire()
	require.Len(t, wire, PublicKeyWireSize)
	require.Equal(t, []byte{0x00, 0x01, 0x00, 0x14}, wire[:4])
}

func TestSignatureEncodings(t *testing.T) {
	sk, err := GeneratePrivateKey(ECDSA)
	require.NoError(t, err)
	sig, err := sk.Sign([]byte("hello"), 1)
	require.NoError(t, err)

	canon, err := sig.MarshalBinary()
	require.NoError(t, err)
	require.Len(t, canon, SignatureSize)
	require.Equal(t, byte(0), canon[0])
	require.Equal(t, sig.R(), canon[1:33])
	require.Equal(t, sig.S(), canon[33:])

	sig2 := new(Signature)
	require.NoError(t, sig2.UnmarshalBinary(canon))
	require.Equal(t, sig, sig2)

	sig3, err := ParseSignature(sig.String())
	require.NoError(t, err)
	require.Equal(t, sig, sig3)

	_, err = SignatureFromWire(canon)
	require.ErrorIs(t, err, ErrInvalidLength)
}

func TestPrivateKeyWire(t *testing.T) {
	for _, keyType := range []KeyType{ECDSA, EDDSA} {
		sk, err := GeneratePrivateKey(keyType)
		require.NoError(t, err)
		w := sk.MarshalWire()
		require.Len(t, w, PrivateKeyWireSize)
		sk2, err := PrivateKeyFromWire(w)
		require.NoError(t, err)
		require.True(t, sk.Equal(sk2))
	}

	_, err := PrivateKeyFromWire(make([]byte, PrivateKeyWireSize))
	require.ErrorIs(t, err, ErrInvalidKeyType)

	_, err = NewPrivateKey(ECDSA, make([]byte, KeySize-1))
	require.ErrorIs(t, err, ErrInvalidLength)
}

func TestECDSANonCanonicalMaterial(t *testing.T) {
	// The group order, little endian.
	order := []byte{
		0xed, 0xd3, 0xf5, 0x5c, 0x1a, 0x63, 0x12, 0x58,
		0xd6, 0x9c, 0xf7, 0xa2, 0xde, 0xf9, 0xde, 0x14,
		0, 0, 0, 0, 0, 0, 0, 0,
		0, 0, 0, 0, 0, 0, 0, 0x10,
	}
	orderPlusOne := append([]byte(nil), order...)
	orderPlusOne[0]++
	one := make([]byte, KeySize)
	one[0] = 1

	a, err := NewPrivateKey(ECDSA, orderPlusOne)
	require.NoError(t, err)
	b, err := NewPrivateKey(ECDSA, one)
	require.NoError(t, err)
	pa, err := a.PublicKey()
	require.NoError(t, err)
	pb, err := b.PublicKey()
	require.NoError(t, err)
	require.True(t, pa.Equal(pb))

	// Stored verbatim, whatever the scalar it reduces to.
	require.Equal(t, orderPlusOne, a.Bytes())

	clamped := bytes.Repeat([]byte{0xff}, KeySize)
	clamped[0] &= 248
	clamped[31] &= 127
	clamped[31] |= 64
	sk, err := NewPrivateKey(ECDSA, clamped)
	require.NoError(t, err)
	pk, err := sk.PublicKey()
	require.NoError(t, err)
	sig, err := sk.Sign([]byte("daemon key"), PurposeTest)
	require.NoError(t, err)
	require.True(t, pk.Verify(sig, []byte("daemon key"), PurposeTest))

	for _, material := range [][]byte{make([]byte, KeySize), order} {
		zero, err := NewPrivateKey(ECDSA, material)
		require.NoError(t, err)
		_, err = zero.PublicKey()
		require.ErrorIs(t, err, ErrInvalidKey)
		_, err = zero.Sign([]byte("x"), PurposeTest)
		require.ErrorIs(t, err, ErrInvalidKey)
	}
}

func TestPrivateKeyReset(t *testing.T) {
	sk, err := GeneratePrivateKey(EDDSA)
	require.NoError(t, err)
	backing := sk.d
	require.NotEqual(t, [KeySize]byte{}, *backing)
	sk.Reset()
	require.Equal(t, [KeySize]byte{}, *backing)
}

func TestPrivateKeyZeroedWhenCollected(t *testing.T) {
	sk, err := GeneratePrivateKey(ECDSA)
	require.NoError(t, err)
	backing := sk.d
	require.NotEqual(t, [KeySize]byte{}, *backing)
	sk = nil

	require.Eventually(t, func() bool {
		runtime.GC()
		return *backing == [KeySize]byte{}
	}, 5*time.Second, 10*time.Millisecond)
}

func TestPeerIdentity(t *testing.T) {
	sk, err := GeneratePrivateKey(EDDSA)
	require.NoError(t, err)
	pk, err := sk.PublicKey()
	require.NoError(t, err)

	peer, err := PeerIdentityFromPublicKey(pk)
	require.NoError(t, err)
	s := peer.String()
	require.Len(t, s, 52)

	peer2, err := ParsePeerIdentity(s)
	require.NoError(t, err)
	require.Equal(t, peer, peer2)
	require.True(t, pk.Equal(peer2.PublicKey()))

	esk, err := GeneratePrivateKey(ECDSA)
	require.NoError(t, err)
	epk, err := esk.PublicKey()
	require.NoError(t, err)
	_, err = PeerIdentityFromPublicKey(epk)
	require.ErrorIs(t, err, ErrInvalidKeyType)
}

func TestDecodeLookalikes(t *testing.T) {
	b, err := DecodeString("OILU")
	require.NoError(t, err)
	b2, err := DecodeString("011V")
	require.NoError(t, err)
	require.Equal(t, b2, b)

	_, err = DecodeString("!!!!")
	require.ErrorIs(t, err, ErrInvalidEncoding)
}
