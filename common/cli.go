// SPDX-FileCopyrightText: © 2026 David Stainton
// SPDX-License-Identifier: AGPL-3.0-only

// Package common provides shared utilities for the gnunet CLI tools.
package common

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"charm.land/lipgloss/v2"
	"github.com/carlmjohnson/versioninfo"
	"github.com/charmbracelet/colorprofile"
	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"
	"gopkg.in/op/go-logging.v1"

	"github.com/katzenpost/gnunet/config"
	"github.com/katzenpost/gnunet/core/log"
	"github.com/katzenpost/gnunet/internal/instrument"
)

// ExecuteWithFang executes a cobra command using fang.  The command's
// context is cancelled on SIGINT and SIGTERM.
func ExecuteWithFang(cmd *cobra.Command) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := fang.Execute(
		ctx,
		cmd,
		fang.WithVersion(versioninfo.Short()),
		fang.WithErrorHandler(ErrorHandlerWithUsage(cmd)),
	)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

// ErrorHandlerWithUsage prints err, followed by the usage help when the
// error came from bad arguments.
func ErrorHandlerWithUsage(cmd *cobra.Command) fang.ErrorHandler {
	return func(w io.Writer, styles fang.Styles, err error) {
		_, _ = fmt.Fprintln(w, styles.ErrorHeader.String())
		_, _ = fmt.Fprintln(w, styles.ErrorText.Render(err.Error()+"."))
		_, _ = fmt.Fprintln(w)

		if isUsageError(err) {
			helpFunc := cmd.HelpFunc()
			if helpFunc != nil {
				_ = colorprofile.NewWriter(w, nil)
				helpFunc(cmd, []string{})
			}
			return
		}
		_, _ = fmt.Fprintln(w, lipgloss.JoinHorizontal(
			lipgloss.Left,
			styles.ErrorText.UnsetWidth().Render("Try"),
			styles.Program.Flag.Render("--help"),
			styles.ErrorText.UnsetWidth().UnsetMargins().UnsetTransform().PaddingLeft(1).Render("for usage."),
		))
		_, _ = fmt.Fprintln(w)
	}
}

func isUsageError(err error) bool {
	s := err.Error()
	for _, prefix := range []string{
		"flag needs an argument:",
		"unknown flag:",
		"unknown shorthand flag:",
		"unknown command",
		"invalid argument",
		"required flag",
		"accepts",
		"arg(s), received",
		"failed to load config file",
		"invalid key type",
	} {
		if strings.Contains(s, prefix) {
			return true
		}
	}
	return false
}

// Flags are the options every CLI tool accepts.
type Flags struct {
	ConfigFile string
	LogLevel   string
	Metrics    string
}

// Register adds the common flags to cmd.
func (f *Flags) Register(cmd *cobra.Command) {
	cmd.PersistentFlags().StringVarP(&f.ConfigFile, "config", "c", "", "configuration file (default: $GNUNET_CONFIG or built-in paths)")
	cmd.PersistentFlags().StringVarP(&f.LogLevel, "log-level", "L", "", "override the configured log level")
	cmd.PersistentFlags().StringVar(&f.Metrics, "metrics", "", "serve prometheus metrics on this address")
}

// Setup loads the configuration, builds the log backend and starts the
// metrics endpoint if one was requested.
func (f *Flags) Setup(module string) (*config.Config, *logging.Logger, error) {
	cfg, err := f.loadConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config file: %w", err)
	}
	if f.LogLevel != "" {
		cfg.Logging.Level = f.LogLevel
		if err := cfg.FixupAndValidate(); err != nil {
			return nil, nil, err
		}
	}
	backend, err := log.New(cfg.Logging.File, cfg.Logging.Level, cfg.Logging.Disable)
	if err != nil {
		return nil, nil, err
	}
	if f.Metrics != "" {
		instrument.Init(f.Metrics)
	}
	return cfg, backend.GetLogger(module), nil
}

func (f *Flags) loadConfig() (*config.Config, error) {
	path := f.ConfigFile
	if path == "" {
		path = os.Getenv("GNUNET_CONFIG")
	}
	if path != "" {
		return config.LoadFile(path)
	}
	cfg, err := config.Load(nil)
	if err != nil {
		return nil, err
	}
	defaultPaths(cfg)
	return cfg, nil
}

// defaultPaths fills in the socket locations of a stock installation.
func defaultPaths(cfg *config.Config) {
	cfg.Paths["GNUNET_RUNTIME_DIR"] = "${XDG_RUNTIME_DIR:-/tmp}/gnunet-system-runtime"
	for _, svc := range []string{"identity", "cadet"} {
		cfg.Set(svc, config.UnixPathOption, "$GNUNET_RUNTIME_DIR/gnunet-service-"+svc+".sock")
	}
}
