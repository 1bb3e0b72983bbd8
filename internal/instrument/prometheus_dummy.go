// SPDX-FileCopyrightText: © 2026 David Stainton
// SPDX-License-Identifier: AGPL-3.0-only

//go:build !prometheus

package instrument

// Init instrumentation
func Init(address string) {}

// FrameSent counts an outbound frame.
func FrameSent(msgType uint16) {}

// FrameReceived counts an inbound frame.
func FrameReceived(msgType uint16) {}

// ChannelInstalled tracks a newly allocated or accepted channel id.
func ChannelInstalled() {}

// ChannelRemoved tracks a released channel id.
func ChannelRemoved() {}

// ChannelOpened counts a channel reaching the open state.
func ChannelOpened() {}

// ChannelDestroyed counts a channel teardown.
func ChannelDestroyed() {}

// FrameDropped counts an inbound frame for an unknown channel id.
func FrameDropped() {}
