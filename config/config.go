// SPDX-FileCopyrightText: Copyright (C) 2018-2026  Yawning Angel, David Stainton.
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config implements the configuration for the GNUnet service
// clients: logging, and the per-service sections the daemon's socket
// paths are read from.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
)

const (
	defaultLogLevel = "NOTICE"

	// UnixPathOption is the option holding a service's socket path.
	UnixPathOption = "UNIXPATH"

	pathsSection   = "PATHS"
	loggingSection = "Logging"

	maxExpansionDepth = 16
)

var defaultLogging = Logging{
	Disable: false,
	File:    "",
	Level:   defaultLogLevel,
}

// ErrNotFound is returned when a section or option is absent.
var ErrNotFound = errors.New("config: not found")

// SocketLocator turns a service name into the path of its unix socket.
type SocketLocator interface {
	SocketPath(service string) (string, error)
}

// Logging is the logging configuration.
type Logging struct {
	// Disable disables logging entirely.
	Disable bool

	// File specifies the log file, if omitted stdout will be used.
	File string

	// Level specifies the log level.
	Level string
}

func (lCfg *Logging) validate() error {
	lvl := strings.ToUpper(lCfg.Level)
	switch lvl {
	case "ERROR", "WARNING", "NOTICE", "INFO", "DEBUG":
	case "":
		lvl = defaultLogLevel
	default:
		return fmt.Errorf("config: Logging: Level '%v' is invalid", lCfg.Level)
	}
	lCfg.Level = lvl
	return nil
}

// Config is the client configuration.
type Config struct {
	// Logging configures the logging backend.
	Logging *Logging

	// Paths holds the variables that option values may reference as
	// $NAME or ${NAME}.
	Paths map[string]string `toml:"PATHS"`

	// sections maps lower case section names to upper case option names
	// to raw values.
	sections map[string]map[string]string
}

// FixupAndValidate applies defaults to config entries and validates the
// configuration sections.
func (c *Config) FixupAndValidate() error {
	if c.Logging == nil {
		l := defaultLogging
		c.Logging = &l
	}
	if err := c.Logging.validate(); err != nil {
		return err
	}
	if c.Paths == nil {
		c.Paths = make(map[string]string)
	}
	if c.sections == nil {
		c.sections = make(map[string]map[string]string)
	}
	for name, opts := range c.sections {
		if raw, ok := opts[UnixPathOption]; ok && raw == "" {
			return fmt.Errorf("config: [%s] %s is empty", name, UnixPathOption)
		}
	}
	return nil
}

// Set stores a raw option value, creating the section as needed.
func (c *Config) Set(section, option, value string) {
	if c.sections == nil {
		c.sections = make(map[string]map[string]string)
	}
	s := strings.ToLower(section)
	if c.sections[s] == nil {
		c.sections[s] = make(map[string]string)
	}
	c.sections[s][strings.ToUpper(option)] = value
}

// Get returns the raw value of option in section.  Section names are case
// insensitive, as are option names.
func (c *Config) Get(section, option string) (string, error) {
	opts, ok := c.sections[strings.ToLower(section)]
	if !ok {
		return "", fmt.Errorf("%w: section [%s]", ErrNotFound, section)
	}
	v, ok := opts[strings.ToUpper(option)]
	if !ok {
		return "", fmt.Errorf("%w: option %s in [%s]", ErrNotFound, option, section)
	}
	return v, nil
}

// GetPath returns option in section with variables and a leading ~
// expanded.
func (c *Config) GetPath(section, option string) (string, error) {
	raw, err := c.Get(section, option)
	if err != nil {
		return "", err
	}
	return c.Expand(raw)
}

// SocketPath returns the unix socket path of service.
func (c *Config) SocketPath(service string) (string, error) {
	return c.GetPath(service, UnixPathOption)
}

// Services returns the names of every section that configures a socket.
func (c *Config) Services() []string {
	names := make([]string, 0, len(c.sections))
	for name, opts := range c.sections {
		if _, ok := opts[UnixPathOption]; ok {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// Expand resolves $NAME, ${NAME} and ${NAME:-default} references in s,
// looking names up first in the PATHS section and then in the process
// environment, and expands a leading ~ to the home directory.
func (c *Config) Expand(s string) (string, error) {
	out, err := c.expand(s, 0)
	if err != nil {
		return "", err
	}
	if out == "~" || strings.HasPrefix(out, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		out = filepath.Join(home, strings.TrimPrefix(out, "~"))
	}
	return out, nil
}

func (c *Config) expand(s string, depth int) (string, error) {
	if depth > maxExpansionDepth {
		return "", fmt.Errorf("config: variable expansion too deep in %q", s)
	}
	var expandErr error
	out := os.Expand(s, func(name string) string {
		if expandErr != nil {
			return ""
		}
		def, hasDef := "", false
		if i := strings.Index(name, ":-"); i >= 0 {
			name, def, hasDef = name[:i], name[i+2:], true
		}
		v, ok := c.lookup(name)
		if !ok {
			if !hasDef {
				expandErr = fmt.Errorf("config: undefined variable $%s", name)
				return ""
			}
			v = def
		}
		v, expandErr = c.expand(v, depth+1)
		return v
	})
	if expandErr != nil {
		return "", expandErr
	}
	return out, nil
}

func (c *Config) lookup(name string) (string, bool) {
	if v, ok := c.Paths[name]; ok {
		return v, true
	}
	return os.LookupEnv(name)
}

// Load parses and validates the provided buffer b as a config file body and
// returns the Config.
func Load(b []byte) (*Config, error) {
	cfg := new(Config)
	if err := toml.Unmarshal(b, cfg); err != nil {
		return nil, err
	}

	var raw map[string]toml.Primitive
	md, err := toml.Decode(string(b), &raw)
	if err != nil {
		return nil, err
	}
	for name, prim := range raw {
		if name == pathsSection || name == loggingSection {
			continue
		}
		var opts map[string]interface{}
		if err := md.PrimitiveDecode(prim, &opts); err != nil {
			return nil, fmt.Errorf("config: section [%s]: %w", name, err)
		}
		for k, v := range opts {
			switch v.(type) {
			case string, int64, bool, float64:
				cfg.Set(name, k, fmt.Sprint(v))
			default:
				return nil, fmt.Errorf("config: [%s] %s: unsupported value type %T", name, k, v)
			}
		}
	}

	if err := cfg.FixupAndValidate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile loads, parses, and validates the provided file and returns the
// Config.
func LoadFile(f string) (*Config, error) {
	b, err := os.ReadFile(f)
	if err != nil {
		return nil, err
	}
	return Load(b)
}
