// SPDX-FileCopyrightText: © 2026 David Stainton
// SPDX-License-Identifier: AGPL-3.0-only

package crypto

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidKeyType is matched by every KeyTypeError.
	ErrInvalidKeyType = errors.New("crypto: invalid key type")

	// ErrInvalidLength is returned when a serialized value has the
	// wrong size.
	ErrInvalidLength = errors.New("crypto: invalid length")

	// ErrInvalidEncoding is returned for malformed text forms.
	ErrInvalidEncoding = errors.New("crypto: invalid base32 encoding")

	// ErrInvalidKey is returned when key material is not a valid
	// scalar or point for its key type.
	ErrInvalidKey = errors.New("crypto: invalid key material")
)

// KeyTypeError reports a key type discriminant that is neither ECDSA
// nor EDDSA.
type KeyTypeError struct {
	// Tag is the offending value, either a wire tag or a canonical
	// discriminant byte.
	Tag uint32
}

// Error implements the error interface.
func (e *KeyTypeError) Error() string {
	return fmt.Sprintf("crypto: unknown key type %d", e.Tag)
}

// Is makes errors.Is(err, ErrInvalidKeyType) hold.
func (e *KeyTypeError) Is(target error) bool {
	return target == ErrInvalidKeyType
}
