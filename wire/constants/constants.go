// SPDX-FileCopyrightText: © 2026 David Stainton
// SPDX-License-Identifier: AGPL-3.0-only

// Package constants contains the message type codes and wire sizes
// dictated by the GNUnet daemon.
package constants

const (
	// HeaderSize is the size of the size+type envelope in bytes.
	HeaderSize = 4

	// MaxFrameSize is the largest frame, header included.
	MaxFrameSize = 0xffff

	// MaxBodySize is the largest frame body.
	MaxBodySize = MaxFrameSize - HeaderSize

	// Yes and No are the daemon's boolean encodings.
	Yes = 1
	No  = 0
)

// Identity service message types.
const (
	IdentityStart      uint16 = 624
	IdentityResultCode uint16 = 625
	IdentityUpdate     uint16 = 626
	IdentityGetDefault uint16 = 627
	IdentitySetDefault uint16 = 628
	IdentityCreate     uint16 = 629
	IdentityRename     uint16 = 630
	IdentityDelete     uint16 = 631
	IdentityLookup     uint16 = 632
)

// Cadet service message types.
const (
	CadetLocalChannelCreate  uint16 = 1000
	CadetLocalChannelDestroy uint16 = 1001
	CadetLocalPortOpen       uint16 = 1002
	CadetLocalPortClose      uint16 = 1003
	CadetLocalData           uint16 = 1004
	CadetLocalAck            uint16 = 1005
)

// Result codes carried by IdentityResultCode frames.
const (
	ResultOK            uint32 = 0
	ResultAlreadyExists uint32 = 1
	ResultNotFound      uint32 = 99999
)

// TypeName returns a printable name for a message type, for logging.
func TypeName(t uint16) string {
	switch t {
	case IdentityStart:
		return "IDENTITY_START"
	case IdentityResultCode:
		return "IDENTITY_RESULT_CODE"
	case IdentityUpdate:
		return "IDENTITY_UPDATE"
	case IdentityGetDefault:
		return "IDENTITY_GET_DEFAULT"
	case IdentitySetDefault:
		return "IDENTITY_SET_DEFAULT"
	case IdentityCreate:
		return "IDENTITY_CREATE"
	case IdentityRename:
		return "IDENTITY_RENAME"
	case IdentityDelete:
		return "IDENTITY_DELETE"
	case IdentityLookup:
		return "IDENTITY_LOOKUP"
	case CadetLocalChannelCreate:
		return "CADET_LOCAL_CHANNEL_CREATE"
	case CadetLocalChannelDestroy:
		return "CADET_LOCAL_CHANNEL_DESTROY"
	case CadetLocalPortOpen:
		return "CADET_LOCAL_PORT_OPEN"
	case CadetLocalPortClose:
		return "CADET_LOCAL_PORT_CLOSE"
	case CadetLocalData:
		return "CADET_LOCAL_DATA"
	case CadetLocalAck:
		return "CADET_LOCAL_ACK"
	default:
		return "UNKNOWN"
	}
}
