// SPDX-FileCopyrightText: © 2026 David Stainton
// SPDX-License-Identifier: AGPL-3.0-only

package cadet

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/net/nettest"
	"golang.org/x/sync/errgroup"

	"github.com/katzenpost/gnunet/crypto"
	"github.com/katzenpost/gnunet/transport"
	"github.com/katzenpost/gnunet/wire"
	"github.com/katzenpost/gnunet/wire/constants"
)

type pathLocator string

func (p pathLocator) SocketPath(string) (string, error) {
	return string(p), nil
}

type daemon struct {
	*transport.Transport
}

func (d *daemon) expect(msgType uint16) (*wire.Frame, error) {
	f, err := d.ReadFrame()
	if err != nil {
		return nil, err
	}
	if f.Type != msgType {
		return nil, fmt.Errorf("stub: got %s, want %s",
			constants.TypeName(f.Type), constants.TypeName(msgType))
	}
	return f, nil
}

// expectID reads a frame of msgType carrying only a channel id.
func (d *daemon) expectID(msgType uint16, want uint32) error {
	f, err := d.expect(msgType)
	if err != nil {
		return err
	}
	id, err := parseChannelID(f.Body)
	if err != nil {
		return err
	}
	if id != want {
		return fmt.Errorf("stub: %s for %#x, want %#x", constants.TypeName(msgType), id, want)
	}
	return nil
}

func (d *daemon) expectCreate() (*channelCreate, error) {
	f, err := d.expect(constants.CadetLocalChannelCreate)
	if err != nil {
		return nil, err
	}
	return parseChannelCreate(f.Body)
}

func (d *daemon) reply(f *wire.Frame, err error) error {
	if err != nil {
		return err
	}
	return d.WriteFrame(f)
}

func (d *daemon) ack(id uint32) error {
	return d.reply(encodeChannelID(constants.CadetLocalAck, id))
}

func (d *daemon) destroy(id uint32) error {
	return d.reply(encodeChannelID(constants.CadetLocalChannelDestroy, id))
}

func (d *daemon) data(id, prio uint32, b []byte) error {
	return d.reply(encodeData(id, &Payload{Priority: prio, Data: b}))
}

// drain discards client frames until the client hangs up.
func (d *daemon) drain() error {
	for {
		if _, err := d.ReadFrame(); err != nil {
			return nil
		}
	}
}

type harness struct {
	mux    *Mux
	errors chan error
}

func startDaemon(t *testing.T, script func(d *daemon) error) *harness {
	t.Helper()

	path, err := nettest.LocalPath()
	require.NoError(t, err)
	ln, err := net.Listen("unix", path)
	require.NoError(t, err)

	g := new(errgroup.Group)
	g.Go(func() error {
		conn, err := ln.Accept()
		ln.Close()
		if err != nil {
			return err
		}
		d := &daemon{transport.New(conn, nil)}
		defer d.Disconnect()
		return script(d)
	})

	h := &harness{errors: make(chan error, 16)}
	h.mux, err = Dial(context.Background(), pathLocator(path), nil, func(err error) {
		select {
		case h.errors <- err:
		default:
		}
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		h.mux.Close()
		require.NoError(t, g.Wait())
		os.Remove(path)
	})
	return h
}

func testPeer() *crypto.PeerIdentity {
	p := new(crypto.PeerIdentity)
	for i := range p {
		p[i] = byte(i)
	}
	return p
}

var testPort = crypto.GenerateHash([]byte("gnunet-test-port"))

func parsePort(body []byte) (crypto.HashCode, error) {
	b, err := wire.NewReader(body).Bytes(crypto.HashSize)
	if err != nil {
		return crypto.HashCode{}, err
	}
	return crypto.HashCodeFromBytes(b)
}

func TestAllocateChannelID(t *testing.T) {
	id, err := allocateChannelID(map[uint32]*Channel{})
	require.NoError(t, err)
	require.Equal(t, FirstLocalID, id)

	active := map[uint32]*Channel{
		FirstLocalID:     nil,
		FirstLocalID + 1: nil,
		FirstLocalID + 3: nil,
		7:                nil,
	}
	id, err = allocateChannelID(active)
	require.NoError(t, err)
	require.Equal(t, FirstLocalID+2, id)

	delete(active, FirstLocalID)
	id, err = allocateChannelID(active)
	require.NoError(t, err)
	require.Equal(t, FirstLocalID, id)

	active = map[uint32]*Channel{0xffffffff: nil}
	for i := FirstLocalID; i < FirstLocalID+64; i++ {
		active[i] = nil
	}
	id, err = allocateChannelID(active)
	require.NoError(t, err)
	require.Equal(t, FirstLocalID+64, id)
}

func TestChannelOpen(t *testing.T) {
	h := startDaemon(t, func(d *daemon) error {
		req, err := d.expectCreate()
		if err != nil {
			return err
		}
		if req.id != FirstLocalID || *req.peer != *testPeer() || !req.port.Equal(testPort) || req.options != 0 {
			return fmt.Errorf("stub: bad create %+v", req)
		}
		if err := d.ack(req.id); err != nil {
			return err
		}
		if err := d.data(req.id, 7, []byte{1, 2, 3}); err != nil {
			return err
		}
		if err := d.expectID(constants.CadetLocalAck, req.id); err != nil {
			return err
		}
		f, err := d.expect(constants.CadetLocalData)
		if err != nil {
			return err
		}
		id, p, err := parseData(f.Body)
		if err != nil {
			return err
		}
		if id != req.id || p.Priority != 2 || string(p.Data) != "hello" {
			return fmt.Errorf("stub: bad data %#x %+v", id, p)
		}
		return d.expectID(constants.CadetLocalChannelDestroy, req.id)
	})

	ctx := context.Background()
	ch, err := h.mux.Connect(ctx, testPeer(), testPort)
	require.NoError(t, err)
	require.Equal(t, FirstLocalID, ch.ID())
	require.True(t, ch.Port().Equal(testPort))

	p, err := ch.Receive(ctx)
	require.NoError(t, err)
	require.Equal(t, &Payload{Priority: 7, Data: []byte{1, 2, 3}}, p)

	require.NoError(t, ch.Send(ctx, 2, []byte("hello")))
	require.NoError(t, ch.Close())
	require.NoError(t, ch.Close())

	_, err = ch.Receive(ctx)
	require.ErrorIs(t, err, ErrChannelClosed)
}

func TestPrematureDestroy(t *testing.T) {
	h := startDaemon(t, func(d *daemon) error {
		req, err := d.expectCreate()
		if err != nil {
			return err
		}
		if err := d.destroy(req.id); err != nil {
			return err
		}
		// The refused id is free again.
		again, err := d.expectCreate()
		if err != nil {
			return err
		}
		if again.id != req.id {
			return fmt.Errorf("stub: id %#x not reused, got %#x", req.id, again.id)
		}
		if err := d.ack(again.id); err != nil {
			return err
		}
		return d.drain()
	})

	ctx := context.Background()
	_, err := h.mux.Connect(ctx, testPeer(), testPort)
	require.ErrorIs(t, err, ErrConnectionReset)

	ch, err := h.mux.Connect(ctx, testPeer(), testPort)
	require.NoError(t, err)
	require.Equal(t, FirstLocalID, ch.ID())
}

func TestDestroyMidStream(t *testing.T) {
	h := startDaemon(t, func(d *daemon) error {
		req, err := d.expectCreate()
		if err != nil {
			return err
		}
		if err := d.ack(req.id); err != nil {
			return err
		}
		if err := d.data(req.id, 0, []byte("one")); err != nil {
			return err
		}
		if err := d.data(req.id, 0, []byte("two")); err != nil {
			return err
		}
		if err := d.destroy(req.id); err != nil {
			return err
		}
		for i := 0; i < 2; i++ {
			if err := d.expectID(constants.CadetLocalAck, req.id); err != nil {
				return err
			}
		}
		return d.drain()
	})

	ctx := context.Background()
	ch, err := h.mux.Connect(ctx, testPeer(), testPort)
	require.NoError(t, err)

	p, err := ch.Receive(ctx)
	require.NoError(t, err)
	require.Equal(t, "one", string(p.Data))
	p, err = ch.Receive(ctx)
	require.NoError(t, err)
	require.Equal(t, "two", string(p.Data))

	_, err = ch.Receive(ctx)
	require.ErrorIs(t, err, io.EOF)
	_, err = ch.Receive(ctx)
	require.ErrorIs(t, err, io.EOF)

	require.ErrorIs(t, ch.Send(ctx, 0, []byte("late")), ErrChannelDestroyed)
	require.NoError(t, ch.Close())
}

func TestInterleavedChannelsKeepOrder(t *testing.T) {
	const perChannel = 50

	h := startDaemon(t, func(d *daemon) error {
		var ids []uint32
		for i := 0; i < 3; i++ {
			req, err := d.expectCreate()
			if err != nil {
				return err
			}
			if err := d.ack(req.id); err != nil {
				return err
			}
			ids = append(ids, req.id)
		}
		for seq := uint32(0); seq < perChannel; seq++ {
			for i, id := range ids {
				// Vary the interleaving between rounds.
				id = ids[(i+int(seq))%len(ids)]
				b := binary.BigEndian.AppendUint32(nil, seq)
				if err := d.data(id, id, b); err != nil {
					return err
				}
			}
		}
		return d.drain()
	})

	ctx := context.Background()
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < 3; i++ {
		ch, err := h.mux.Connect(ctx, testPeer(), testPort)
		require.NoError(t, err)
		g.Go(func() error {
			for seq := uint32(0); seq < perChannel; seq++ {
				p, err := ch.Receive(gctx)
				if err != nil {
					return err
				}
				if p.Priority != ch.ID() {
					return fmt.Errorf("channel %#x got payload for %#x", ch.ID(), p.Priority)
				}
				if got := binary.BigEndian.Uint32(p.Data); got != seq {
					return fmt.Errorf("channel %#x: got seq %d, want %d", ch.ID(), got, seq)
				}
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())
}

func TestSendCredit(t *testing.T) {
	proceed := make(chan struct{})

	h := startDaemon(t, func(d *daemon) error {
		req, err := d.expectCreate()
		if err != nil {
			return err
		}
		if err := d.ack(req.id); err != nil {
			return err
		}
		if _, err := d.expect(constants.CadetLocalData); err != nil {
			return err
		}
		<-proceed
		if err := d.ack(req.id); err != nil {
			return err
		}
		if _, err := d.expect(constants.CadetLocalData); err != nil {
			return err
		}
		return d.drain()
	})

	ctx := context.Background()
	ch, err := h.mux.Connect(ctx, testPeer(), testPort)
	require.NoError(t, err)
	require.NoError(t, ch.Send(ctx, 0, []byte("first")))

	tctx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()
	require.ErrorIs(t, ch.Send(tctx, 0, []byte("blocked")), context.DeadlineExceeded)

	close(proceed)
	require.NoError(t, ch.Send(ctx, 0, []byte("second")))

	require.ErrorIs(t, ch.Send(ctx, 0, make([]byte, MaxPayloadSize+1)), wire.ErrFrameTooLarge)
}

func TestConnectCancel(t *testing.T) {
	h := startDaemon(t, func(d *daemon) error {
		req, err := d.expectCreate()
		if err != nil {
			return err
		}
		if err := d.expectID(constants.CadetLocalChannelDestroy, req.id); err != nil {
			return err
		}
		return d.drain()
	})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := h.mux.Connect(ctx, testPeer(), testPort)
	require.ErrorIs(t, err, context.DeadlineExceeded)

	require.Eventually(t, func() bool {
		return h.mux.lookup(FirstLocalID) == nil
	}, time.Second, 10*time.Millisecond)
}

func TestReaderToleratesNoise(t *testing.T) {
	h := startDaemon(t, func(d *daemon) error {
		if err := d.data(0x1234, 0, []byte("stray")); err != nil {
			return err
		}
		if err := d.ack(0x80001000); err != nil {
			return err
		}
		if err := d.reply(wire.NewBuilder().PutUint32(5).PutZString("oops").Frame(constants.IdentityResultCode)); err != nil {
			return err
		}
		if err := d.reply(wire.NewBuilder().PutUint32(0).Frame(constants.IdentityResultCode)); err != nil {
			return err
		}
		if err := d.reply(wire.NewBuilder().PutUint16(1).Frame(4242)); err != nil {
			return err
		}
		req, err := d.expectCreate()
		if err != nil {
			return err
		}
		if err := d.ack(req.id); err != nil {
			return err
		}
		return d.drain()
	})

	select {
	case err := <-h.errors:
		require.ErrorIs(t, err, ErrDaemonResult)
		require.Contains(t, err.Error(), "oops")
	case <-time.After(5 * time.Second):
		t.Fatal("no error reported for result code")
	}

	_, err := h.mux.Connect(context.Background(), testPeer(), testPort)
	require.NoError(t, err)
	require.NoError(t, h.mux.Err())
}

func TestReaderMalformedFrame(t *testing.T) {
	h := startDaemon(t, func(d *daemon) error {
		req, err := d.expectCreate()
		if err != nil {
			return err
		}
		if err := d.ack(req.id); err != nil {
			return err
		}
		// An ACK whose body is too short for a channel id.
		if err := d.reply(wire.NewBuilder().PutUint16(1).Frame(constants.CadetLocalAck)); err != nil {
			return err
		}
		return d.drain()
	})

	ctx := context.Background()
	ch, err := h.mux.Connect(ctx, testPeer(), testPort)
	require.NoError(t, err)

	select {
	case err := <-h.errors:
		require.ErrorIs(t, err, wire.ErrTruncated)
	case <-time.After(5 * time.Second):
		t.Fatal("malformed frame not reported")
	}
	require.ErrorIs(t, h.mux.Err(), ErrMuxHalted)
	require.ErrorIs(t, h.mux.Err(), wire.ErrTruncated)

	_, err = ch.Receive(ctx)
	require.ErrorIs(t, err, ErrMuxHalted)
	_, err = h.mux.Connect(ctx, testPeer(), testPort)
	require.ErrorIs(t, err, ErrMuxHalted)
}

func TestPayloadBeforeOpen(t *testing.T) {
	h := startDaemon(t, func(d *daemon) error {
		req, err := d.expectCreate()
		if err != nil {
			return err
		}
		if err := d.data(req.id, 3, []byte("early")); err != nil {
			return err
		}
		if err := d.ack(req.id); err != nil {
			return err
		}
		if err := d.expectID(constants.CadetLocalAck, req.id); err != nil {
			return err
		}
		return d.drain()
	})

	ctx := context.Background()
	ch, err := h.mux.Connect(ctx, testPeer(), testPort)
	require.NoError(t, err)

	p, err := ch.Receive(ctx)
	require.NoError(t, err)
	require.Equal(t, &Payload{Priority: 3, Data: []byte("early")}, p)
	require.NoError(t, h.mux.Err())
}

func TestReaderFailure(t *testing.T) {
	h := startDaemon(t, func(d *daemon) error {
		req, err := d.expectCreate()
		if err != nil {
			return err
		}
		if err := d.ack(req.id); err != nil {
			return err
		}
		// Hang up with the channel open.
		return nil
	})

	ctx := context.Background()
	ch, err := h.mux.Connect(ctx, testPeer(), testPort)
	require.NoError(t, err)

	_, err = ch.Receive(ctx)
	require.ErrorIs(t, err, ErrMuxHalted)

	select {
	case err := <-h.errors:
		require.Error(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("reader failure not reported")
	}

	_, err = h.mux.Connect(ctx, testPeer(), testPort)
	require.ErrorIs(t, err, ErrMuxHalted)
	_, err = h.mux.OpenPort(testPort)
	require.ErrorIs(t, err, ErrMuxHalted)
	require.NoError(t, ch.Close())
}

func TestPortAccept(t *testing.T) {
	other := crypto.GenerateHash([]byte("nobody listens here"))

	h := startDaemon(t, func(d *daemon) error {
		f, err := d.expect(constants.CadetLocalPortOpen)
		if err != nil {
			return err
		}
		port, err := parsePort(f.Body)
		if err != nil {
			return err
		}
		if !port.Equal(testPort) {
			return fmt.Errorf("stub: opened %s", port)
		}

		if err := d.reply(encodeChannelCreate(&channelCreate{id: 9, peer: testPeer(), port: other})); err != nil {
			return err
		}
		if err := d.expectID(constants.CadetLocalChannelDestroy, 9); err != nil {
			return err
		}

		if err := d.reply(encodeChannelCreate(&channelCreate{id: 7, peer: testPeer(), port: testPort})); err != nil {
			return err
		}
		if err := d.data(7, 1, []byte("ping")); err != nil {
			return err
		}
		if err := d.expectID(constants.CadetLocalAck, 7); err != nil {
			return err
		}
		if err := d.ack(7); err != nil {
			return err
		}
		if _, err := d.expect(constants.CadetLocalData); err != nil {
			return err
		}
		if _, err := d.expect(constants.CadetLocalPortClose); err != nil {
			return err
		}
		return d.drain()
	})

	ctx := context.Background()
	port, err := h.mux.OpenPort(testPort)
	require.NoError(t, err)
	require.True(t, port.Hash().Equal(testPort))
	_, err = h.mux.OpenPort(testPort)
	require.ErrorIs(t, err, ErrPortInUse)

	ch, err := port.Accept(ctx)
	require.NoError(t, err)
	require.Equal(t, uint32(7), ch.ID())
	require.Equal(t, *testPeer(), *ch.Peer())

	p, err := ch.Receive(ctx)
	require.NoError(t, err)
	require.Equal(t, "ping", string(p.Data))
	require.NoError(t, ch.Send(ctx, 1, []byte("pong")))

	require.NoError(t, port.Close())
	_, err = port.Accept(ctx)
	require.ErrorIs(t, err, ErrPortClosed)
}

func TestMuxClose(t *testing.T) {
	h := startDaemon(t, func(d *daemon) error {
		req, err := d.expectCreate()
		if err != nil {
			return err
		}
		if err := d.ack(req.id); err != nil {
			return err
		}
		return d.drain()
	})

	ctx := context.Background()
	ch, err := h.mux.Connect(ctx, testPeer(), testPort)
	require.NoError(t, err)
	port, err := h.mux.OpenPort(testPort)
	require.NoError(t, err)

	errCh := make(chan error, 2)
	go func() {
		_, err := ch.Receive(ctx)
		errCh <- err
	}()
	go func() {
		_, err := port.Accept(ctx)
		errCh <- err
	}()

	require.NoError(t, h.mux.Close())
	for i := 0; i < 2; i++ {
		require.ErrorIs(t, <-errCh, ErrMuxHalted)
	}
	require.ErrorIs(t, h.mux.Err(), ErrMuxHalted)
	require.NoError(t, ch.Close())
	require.NoError(t, port.Close())
}
