package launcher

import (
	"context"
	"errors"
	"net/netip"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func skipWithoutShell(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}
}

func TestSteamLaunch(t *testing.T) {
	skipWithoutShell(t)

	out := filepath.Join(t.TempDir(), "uri")
	s := &Steam{
		Opener: []string{"sh", "-c", `printf %s "$1" > "$0"`, out},
	}

	err := s.Launch(context.Background(), netip.MustParseAddrPort("72.5.195.76:27015"))
	require.NoError(t, err)

	got, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, DefaultURI+"72.5.195.76:27015", string(got))
}

func TestSteamLaunchFailure(t *testing.T) {
	skipWithoutShell(t)

	s := &Steam{
		URI:    "steam://connect/",
		Opener: []string{"sh", "-c", `echo "no handler for $1" >&2; exit 3`, "opener"},
	}

	err := s.Launch(context.Background(), netip.MustParseAddrPort("10.0.0.1:27015"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrJoinFailed)

	var joinErr *JoinError
	require.True(t, errors.As(err, &joinErr))
	assert.Contains(t, joinErr.Stderr, "no handler for steam://connect/10.0.0.1:27015")
	assert.Contains(t, err.Error(), "no handler")
}

func TestDefaultOpener(t *testing.T) {
	assert.Equal(t, []string{"cmd", "/C", "start", ""}, DefaultOpener("windows"))
	assert.Equal(t, []string{"open"}, DefaultOpener("darwin"))
	assert.Equal(t, []string{"xdg-open"}, DefaultOpener("linux"))
}
