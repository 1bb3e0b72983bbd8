// SPDX-FileCopyrightText: © 2026 David Stainton
// SPDX-License-Identifier: AGPL-3.0-only

package cadet

import (
	"github.com/katzenpost/gnunet/crypto"
	"github.com/katzenpost/gnunet/wire"
	"github.com/katzenpost/gnunet/wire/constants"
)

const (
	channelIDSize = 4

	// dataOverhead is the frame size of a data message with an empty
	// payload: header, channel id and priority flags.
	dataOverhead = constants.HeaderSize + channelIDSize + 4

	// MaxPayloadSize is the largest payload a single Send can carry.
	MaxPayloadSize = constants.MaxFrameSize - dataOverhead
)

// Payload is one unit of data received on a channel.
type Payload struct {
	Priority uint32
	Data     []byte
}

type channelCreate struct {
	id      uint32
	peer    *crypto.PeerIdentity
	port    crypto.HashCode
	options uint32
}

func encodeChannelCreate(m *channelCreate) (*wire.Frame, error) {
	return wire.NewBuilder().
		PutUint32(m.id).
		PutBytes(m.peer.Bytes()).
		PutBytes(m.port.Bytes()).
		PutUint32(m.options).
		Frame(constants.CadetLocalChannelCreate)
}

func parseChannelCreate(body []byte) (*channelCreate, error) {
	r := wire.NewReader(body)
	id, err := r.Uint32()
	if err != nil {
		return nil, err
	}
	rawPeer, err := r.Bytes(crypto.PeerIdentitySize)
	if err != nil {
		return nil, err
	}
	peer, err := crypto.PeerIdentityFromBytes(rawPeer)
	if err != nil {
		return nil, err
	}
	rawPort, err := r.Bytes(crypto.HashSize)
	if err != nil {
		return nil, err
	}
	port, err := crypto.HashCodeFromBytes(rawPort)
	if err != nil {
		return nil, err
	}
	options, err := r.Uint32()
	if err != nil {
		return nil, err
	}
	return &channelCreate{
		id:      id,
		peer:    peer,
		port:    port,
		options: options,
	}, nil
}

func encodeChannelID(msgType uint16, id uint32) (*wire.Frame, error) {
	return wire.NewBuilder().PutUint32(id).Frame(msgType)
}

func parseChannelID(body []byte) (uint32, error) {
	return wire.NewReader(body).Uint32()
}

func encodeData(id uint32, p *Payload) (*wire.Frame, error) {
	return wire.NewBuilder().
		PutUint32(id).
		PutUint32(p.Priority).
		PutBytes(p.Data).
		Frame(constants.CadetLocalData)
}

func parseData(body []byte) (uint32, *Payload, error) {
	r := wire.NewReader(body)
	id, err := r.Uint32()
	if err != nil {
		return 0, nil, err
	}
	prio, err := r.Uint32()
	if err != nil {
		return 0, nil, err
	}
	return id, &Payload{Priority: prio, Data: r.Rest()}, nil
}

func encodePort(msgType uint16, port crypto.HashCode) (*wire.Frame, error) {
	return wire.NewBuilder().PutBytes(port.Bytes()).Frame(msgType)
}
