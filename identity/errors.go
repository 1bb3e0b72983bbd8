// SPDX-FileCopyrightText: © 2026 David Stainton
// SPDX-License-Identifier: AGPL-3.0-only

package identity

import (
	"errors"
	"fmt"

	"github.com/katzenpost/gnunet/wire/constants"
)

// ErrInvalidated is returned by every call on a client whose connection
// failed or whose conversation with the daemon fell out of step.
var ErrInvalidated = errors.New("identity: client is no longer usable")

// ResultError is a non-zero result code reported by the daemon.
type ResultError struct {
	Code    uint32
	Message string
}

// Error implements the error interface.
func (e *ResultError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("identity: daemon returned code %d", e.Code)
	}
	return fmt.Sprintf("identity: daemon returned code %d: %s", e.Code, e.Message)
}

// IsAlreadyExists reports whether err is the daemon's "ego exists" result.
func IsAlreadyExists(err error) bool {
	var re *ResultError
	return errors.As(err, &re) && re.Code == constants.ResultAlreadyExists
}

// IsNotFound reports whether err is the daemon's "not found" result.
func IsNotFound(err error) bool {
	var re *ResultError
	return errors.As(err, &re) && re.Code == constants.ResultNotFound
}
