// SPDX-FileCopyrightText: © 2026 David Stainton
// SPDX-License-Identifier: AGPL-3.0-only

// Package utils provides filesystem helpers for daemon sockets.
package utils

import (
	"errors"
	"fmt"
	"os"
)

// ErrNotSocket is returned when a path exists but is not a socket.
var ErrNotSocket = errors.New("utils: not a unix socket")

// Exists reports whether f exists.
func Exists(f string) (bool, error) {
	_, err := os.Stat(f)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, os.ErrNotExist):
		return false, nil
	default:
		return false, err
	}
}

// CheckSocket verifies that path names a unix socket, giving a readable
// error when the service has never been started.
func CheckSocket(path string) error {
	fi, err := os.Stat(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return fmt.Errorf("no socket at %s, is the service running? %w", path, err)
	case err != nil:
		return err
	case fi.Mode()&os.ModeSocket == 0:
		return fmt.Errorf("%w: %s", ErrNotSocket, path)
	}
	return nil
}
