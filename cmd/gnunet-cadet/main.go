// SPDX-FileCopyrightText: © 2026 David Stainton
// SPDX-License-Identifier: AGPL-3.0-only

// gnunet-cadet - a netcat over cadet channels
//
// connect opens a channel to a port on a remote peer, listen waits for a
// channel on a local port.  Either way stdin is sent over the channel and
// whatever arrives is written to stdout.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"gopkg.in/op/go-logging.v1"

	"github.com/katzenpost/gnunet/cadet"
	"github.com/katzenpost/gnunet/common"
	"github.com/katzenpost/gnunet/crypto"
)

func main() {
	common.ExecuteWithFang(newRootCommand())
}

func newRootCommand() *cobra.Command {
	flags := new(common.Flags)
	cmd := &cobra.Command{
		Use:   "gnunet-cadet",
		Short: "Pipe stdin and stdout over a cadet channel",
		Long: `Open a cadet channel to a port on a remote peer, or wait for one on a
local port, and copy stdin to the channel and the channel to stdout.

Ports are named; the port hash is the hash of the name.`,
		SilenceUsage: true,
	}
	flags.Register(cmd)
	cmd.AddCommand(
		newConnectCommand(flags),
		newListenCommand(flags),
		newPortHashCommand(),
	)
	return cmd
}

func dial(ctx context.Context, flags *common.Flags) (*cadet.Mux, *logging.Logger, error) {
	cfg, logger, err := flags.Setup("gnunet-cadet")
	if err != nil {
		return nil, nil, err
	}
	m, err := cadet.Dial(ctx, cfg, logger, func(err error) {
		logger.Errorf("cadet: %v", err)
	})
	if err != nil {
		return nil, nil, err
	}
	return m, logger, nil
}

func newConnectCommand(flags *common.Flags) *cobra.Command {
	var priority uint32
	cmd := &cobra.Command{
		Use:   "connect PEER PORT",
		Short: "Open a channel to PORT on PEER",
		Args:  cobra.ExactArgs(2),
		Example: `  echo hello | gnunet-cadet connect <peer-id> echo`,
		RunE: func(cmd *cobra.Command, args []string) error {
			peer, err := crypto.ParsePeerIdentity(args[0])
			if err != nil {
				return fmt.Errorf("invalid argument %q: %w", args[0], err)
			}
			ctx := cmd.Context()
			m, logger, err := dial(ctx, flags)
			if err != nil {
				return err
			}
			defer m.Close()

			ch, err := m.Connect(ctx, peer, portHash(args[1]))
			if err != nil {
				return err
			}
			defer ch.Close()
			logger.Noticef("Channel %#x open to %s.", ch.ID(), peer)
			return pipe(ctx, ch, priority, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
	cmd.Flags().Uint32VarP(&priority, "priority", "p", 0, "priority and preference flags for sent data")
	return cmd
}

func newListenCommand(flags *common.Flags) *cobra.Command {
	var priority uint32
	cmd := &cobra.Command{
		Use:   "listen PORT",
		Short: "Wait for a channel on PORT",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			m, logger, err := dial(ctx, flags)
			if err != nil {
				return err
			}
			defer m.Close()

			port, err := m.OpenPort(portHash(args[0]))
			if err != nil {
				return err
			}
			defer port.Close()
			logger.Noticef("Listening on port %q (%s).", args[0], port.Hash())

			ch, err := port.Accept(ctx)
			if err != nil {
				return err
			}
			defer ch.Close()
			logger.Noticef("Channel %#x accepted from %s.", ch.ID(), ch.Peer())
			return pipe(ctx, ch, priority, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
	cmd.Flags().Uint32VarP(&priority, "priority", "p", 0, "priority and preference flags for sent data")
	return cmd
}

func newPortHashCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "port-hash NAME",
		Short: "Print the port hash of a port name",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), portHash(args[0]))
			return err
		},
	}
}

func portHash(name string) crypto.HashCode {
	return crypto.GenerateHash([]byte(name))
}

// pipe copies in to the channel and the channel to out until the peer
// destroys the channel.  Reaching the end of in does not close the
// channel.
func pipe(ctx context.Context, ch *cadet.Channel, priority uint32, in io.Reader, out io.Writer) error {
	g, gctx := errgroup.WithContext(ctx)
	recvDone := make(chan struct{})

	g.Go(func() error {
		defer close(recvDone)
		for {
			p, err := ch.Receive(gctx)
			if errors.Is(err, io.EOF) {
				return nil
			}
			if err != nil {
				return err
			}
			if _, err := out.Write(p.Data); err != nil {
				return err
			}
		}
	})

	// The stdin copier is not part of the group: a blocked read must not
	// keep pipe from returning once the peer is gone.
	sendErr := make(chan error, 1)
	go func() {
		buf := make([]byte, cadet.MaxPayloadSize)
		for {
			n, err := in.Read(buf)
			if n > 0 {
				data := append([]byte(nil), buf[:n]...)
				if err := ch.Send(gctx, priority, data); err != nil {
					sendErr <- err
					return
				}
			}
			if err == io.EOF {
				sendErr <- nil
				return
			}
			if err != nil {
				sendErr <- err
				return
			}
		}
	}()

	select {
	case err := <-sendErr:
		if err != nil && !errors.Is(err, cadet.ErrChannelDestroyed) {
			return err
		}
	case <-recvDone:
	}
	return g.Wait()
}
