// SPDX-FileCopyrightText: © 2026 David Stainton
// SPDX-License-Identifier: AGPL-3.0-only

package cadet

import "errors"

var (
	// ErrConnectionReset is returned by Connect when the daemon destroys
	// the channel before opening it.
	ErrConnectionReset = errors.New("cadet: connection reset by daemon")

	// ErrChannelDestroyed is returned by Send on a channel the daemon
	// has destroyed.
	ErrChannelDestroyed = errors.New("cadet: channel destroyed")

	// ErrChannelClosed is returned by operations on a closed Channel.
	ErrChannelClosed = errors.New("cadet: channel closed")

	// ErrPortClosed is returned by Accept on a closed Port.
	ErrPortClosed = errors.New("cadet: port closed")

	// ErrPortInUse is returned when a port is opened twice.
	ErrPortInUse = errors.New("cadet: port already open")

	// ErrMuxHalted is returned once the mux has stopped.
	ErrMuxHalted = errors.New("cadet: mux halted")

	// ErrIDSpaceExhausted is returned when every local channel id is
	// in use.
	ErrIDSpaceExhausted = errors.New("cadet: channel id space exhausted")

	// ErrDaemonResult wraps a non-zero result code sent on the cadet
	// socket.
	ErrDaemonResult = errors.New("cadet: daemon reported failure")
)
