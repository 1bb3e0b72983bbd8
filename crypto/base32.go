// SPDX-FileCopyrightText: © 2026 David Stainton
// SPDX-License-Identifier: AGPL-3.0-only

package crypto

import (
	"strings"

	"github.com/multiformats/go-base32"
)

// alphabet is the Crockford base32 variant the daemon prints keys and
// hashes with.
const alphabet = "0123456789ABCDEFGHJKMNPQRSTVWXYZ"

var encoding = base32.NewEncoding(alphabet).WithPadding(base32.NoPadding)

// EncodedLen returns the length of the text form of n bytes.
func EncodedLen(n int) int {
	return encoding.EncodedLen(n)
}

// EncodeToString returns the daemon's text form of b.
func EncodeToString(b []byte) string {
	return encoding.EncodeToString(b)
}

// DecodeString parses the daemon's text form.  Input is case
// insensitive and the usual Crockford look-alikes are accepted.
func DecodeString(s string) ([]byte, error) {
	b, err := encoding.DecodeString(normalize(s))
	if err != nil {
		return nil, ErrInvalidEncoding
	}
	return b, nil
}

func normalize(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case 'O', 'o':
			return '0'
		case 'I', 'i', 'L', 'l':
			return '1'
		case 'U', 'u':
			return 'V'
		}
		if r >= 'a' && r <= 'z' {
			return r - 'a' + 'A'
		}
		return r
	}, s)
}
