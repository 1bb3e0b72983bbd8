// SPDX-FileCopyrightText: © 2026 David Stainton
// SPDX-License-Identifier: AGPL-3.0-only

// gnunet-identity - manage the egos held by the identity service
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/katzenpost/gnunet/common"
	"github.com/katzenpost/gnunet/crypto"
	"github.com/katzenpost/gnunet/identity"
)

func main() {
	common.ExecuteWithFang(newRootCommand())
}

func newRootCommand() *cobra.Command {
	flags := new(common.Flags)
	cmd := &cobra.Command{
		Use:   "gnunet-identity",
		Short: "Manage egos held by the identity service",
		Long: `List, create, rename and delete the egos held by the identity service,
choose the default ego of a subsystem, and sign or verify messages.`,
		SilenceUsage: true,
	}
	flags.Register(cmd)

	cmd.AddCommand(
		newListCommand(flags),
		newLookupCommand(flags),
		newCreateCommand(flags),
		newDeleteCommand(flags),
		newRenameCommand(flags),
		newGetDefaultCommand(flags),
		newSetDefaultCommand(flags),
		newSignCommand(flags),
		newVerifyCommand(),
	)
	return cmd
}

func withClient(ctx context.Context, flags *common.Flags, fn func(*identity.Client) error) error {
	cfg, logger, err := flags.Setup("gnunet-identity")
	if err != nil {
		return err
	}
	c, err := identity.Connect(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer c.Close()
	return fn(c)
}

func printEgo(w io.Writer, name string, key *crypto.PrivateKey) error {
	pub, err := key.PublicKey()
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "%s - %s - %s\n", name, key.Type(), pub)
	return err
}

func newListCommand(flags *common.Flags) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List every ego",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd.Context(), flags, func(c *identity.Client) error {
				egos, err := c.List(cmd.Context())
				if err != nil {
					return err
				}
				names := make([]string, 0, len(egos))
				for name := range egos {
					names = append(names, name)
				}
				sort.Strings(names)
				for _, name := range names {
					if err := printEgo(cmd.OutOrStdout(), name, egos[name]); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
}

func lookup(ctx context.Context, c *identity.Client, name string) (*crypto.PrivateKey, error) {
	key, err := c.Lookup(ctx, name)
	if err != nil {
		return nil, err
	}
	if key == nil {
		return nil, fmt.Errorf("ego %q not found", name)
	}
	return key, nil
}

func newLookupCommand(flags *common.Flags) *cobra.Command {
	return &cobra.Command{
		Use:   "lookup NAME",
		Short: "Show the public key of an ego",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd.Context(), flags, func(c *identity.Client) error {
				key, err := lookup(cmd.Context(), c, args[0])
				if err != nil {
					return err
				}
				return printEgo(cmd.OutOrStdout(), args[0], key)
			})
		},
	}
}

func newCreateCommand(flags *common.Flags) *cobra.Command {
	var keyType string
	cmd := &cobra.Command{
		Use:   "create NAME",
		Short: "Create an ego with a fresh key",
		Args:  cobra.ExactArgs(1),
		Example: `  gnunet-identity create alice
  gnunet-identity create --type eddsa relay`,
		RunE: func(cmd *cobra.Command, args []string) error {
			kt, err := crypto.ParseKeyType(keyType)
			if err != nil {
				return err
			}
			return withClient(cmd.Context(), flags, func(c *identity.Client) error {
				key, err := c.CreateNew(cmd.Context(), args[0], kt)
				if err != nil {
					return err
				}
				return printEgo(cmd.OutOrStdout(), args[0], key)
			})
		},
	}
	cmd.Flags().StringVarP(&keyType, "type", "t", crypto.ECDSA.String(), "key type: ecdsa or eddsa")
	return cmd
}

func newDeleteCommand(flags *common.Flags) *cobra.Command {
	return &cobra.Command{
		Use:   "delete NAME",
		Short: "Delete an ego",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd.Context(), flags, func(c *identity.Client) error {
				ok, err := c.Delete(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if !ok {
					return fmt.Errorf("ego %q not found", args[0])
				}
				return nil
			})
		},
	}
}

func newRenameCommand(flags *common.Flags) *cobra.Command {
	return &cobra.Command{
		Use:   "rename OLD NEW",
		Short: "Rename an ego",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd.Context(), flags, func(c *identity.Client) error {
				ok, err := c.Rename(cmd.Context(), args[0], args[1])
				if err != nil {
					return err
				}
				if !ok {
					return fmt.Errorf("ego %q not found", args[0])
				}
				return nil
			})
		},
	}
}

func newGetDefaultCommand(flags *common.Flags) *cobra.Command {
	return &cobra.Command{
		Use:   "get-default SERVICE",
		Short: "Show the default ego of a subsystem",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd.Context(), flags, func(c *identity.Client) error {
				ego, err := c.GetDefault(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if ego == nil {
					return fmt.Errorf("no default ego for %q", args[0])
				}
				return printEgo(cmd.OutOrStdout(), ego.Name, ego.PrivateKey)
			})
		},
	}
}

func newSetDefaultCommand(flags *common.Flags) *cobra.Command {
	return &cobra.Command{
		Use:   "set-default SERVICE EGO",
		Short: "Make an ego the default of a subsystem",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd.Context(), flags, func(c *identity.Client) error {
				key, err := lookup(cmd.Context(), c, args[1])
				if err != nil {
					return err
				}
				return c.SetDefault(cmd.Context(), args[0], &identity.Ego{Name: args[1], PrivateKey: key})
			})
		},
	}
}

func readMessage(cmd *cobra.Command, message string) ([]byte, error) {
	if message != "" {
		return []byte(message), nil
	}
	return io.ReadAll(cmd.InOrStdin())
}

func newSignCommand(flags *common.Flags) *cobra.Command {
	var message string
	var purpose uint32
	cmd := &cobra.Command{
		Use:   "sign EGO",
		Short: "Sign a message with an ego's key",
		Long: `Sign the message given with --message, or read from stdin, with the
private key of EGO.  The signature is printed in its text form.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readMessage(cmd, message)
			if err != nil {
				return err
			}
			return withClient(cmd.Context(), flags, func(c *identity.Client) error {
				key, err := lookup(cmd.Context(), c, args[0])
				if err != nil {
					return err
				}
				sig, err := key.Sign(data, purpose)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), sig)
				return err
			})
		},
	}
	cmd.Flags().StringVarP(&message, "message", "m", "", "message to sign (default: stdin)")
	cmd.Flags().Uint32VarP(&purpose, "purpose", "p", crypto.PurposeTest, "signature purpose")
	return cmd
}

var errBadSignature = errors.New("signature verification failed")

func newVerifyCommand() *cobra.Command {
	var message string
	var purpose uint32
	cmd := &cobra.Command{
		Use:   "verify PUBLIC-KEY SIGNATURE",
		Short: "Verify a signature offline",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			pub, err := crypto.ParsePublicKey(args[0])
			if err != nil {
				return fmt.Errorf("invalid argument %q: %w", args[0], err)
			}
			sig, err := crypto.ParseSignature(args[1])
			if err != nil {
				return fmt.Errorf("invalid argument %q: %w", args[1], err)
			}
			data, err := readMessage(cmd, message)
			if err != nil {
				return err
			}
			if !pub.Verify(sig, data, purpose) {
				return errBadSignature
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), "OK purpose="+strconv.FormatUint(uint64(purpose), 10))
			return err
		},
	}
	cmd.Flags().StringVarP(&message, "message", "m", "", "signed message (default: stdin)")
	cmd.Flags().Uint32VarP(&purpose, "purpose", "p", crypto.PurposeTest, "signature purpose")
	return cmd
}
