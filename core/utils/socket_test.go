// SPDX-FileCopyrightText: © 2026 David Stainton
// SPDX-License-Identifier: AGPL-3.0-only

package utils

import (
	"net"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/net/nettest"
)

func TestCheckSocket(t *testing.T) {
	dir := t.TempDir()

	missing := filepath.Join(dir, "missing.sock")
	ok, err := Exists(missing)
	require.NoError(t, err)
	require.False(t, ok)
	require.ErrorIs(t, CheckSocket(missing), os.ErrNotExist)

	plain := filepath.Join(dir, "plain")
	require.NoError(t, os.WriteFile(plain, nil, 0600))
	ok, err = Exists(plain)
	require.NoError(t, err)
	require.True(t, ok)
	require.ErrorIs(t, CheckSocket(plain), ErrNotSocket)

	path, err := nettest.LocalPath()
	require.NoError(t, err)
	ln, err := net.Listen("unix", path)
	require.NoError(t, err)
	defer ln.Close()
	require.NoError(t, CheckSocket(path))
}
