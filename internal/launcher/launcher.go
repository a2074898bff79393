// Package launcher starts the game client connected to a chosen server.
package launcher

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/netip"
	"os/exec"
	"runtime"
	"strings"
)

// ErrJoinFailed is matched by every error returned from a failed launch.
var ErrJoinFailed = errors.New("join failed")

// DefaultURI is the Steam browser protocol prefix that starts CS:GO and connects to the appended address.
const DefaultURI = "steam://rungame/730/76561202255233023/+connect%20"

// Launcher performs the OS level join action for a server address.
type Launcher interface {
	Launch(ctx context.Context, addr netip.AddrPort) error
}

// JoinError carries the diagnostic output of a failed launch command.
type JoinError struct {
	Err    error
	Stdout string
	Stderr string
}

func (e *JoinError) Error() string {
	msg := fmt.Sprintf("%s: %v", ErrJoinFailed, e.Err)
	if s := strings.TrimSpace(e.Stderr); s != "" {
		msg += ": " + s
	}

	return msg
}

// Is reports ErrJoinFailed as a match.
func (e *JoinError) Is(target error) bool {
	return target == ErrJoinFailed
}

func (e *JoinError) Unwrap() error {
	return e.Err
}

// Steam opens a steam:// URI with the platform URI handler.
type Steam struct {
	// URI is the prefix the "ip:port" address is appended to.
	URI string

	// Opener is the command and leading arguments that receive the URI as last argument.
	// Empty selects the platform default.
	Opener []string
}

// Launch opens the connect URI for addr and waits for the opener to exit.
func (s *Steam) Launch(ctx context.Context, addr netip.AddrPort) error {
	uri := s.URI
	if uri == "" {
		uri = DefaultURI
	}
	uri += addr.String()

	opener := s.Opener
	if len(opener) == 0 {
		opener = DefaultOpener(runtime.GOOS)
	}

	args := append(append([]string(nil), opener[1:]...), uri)
	cmd := exec.CommandContext(ctx, opener[0], args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return &JoinError{
			Err:    fmt.Errorf("%s: %w", opener[0], err),
			Stdout: stdout.String(),
			Stderr: stderr.String(),
		}
	}

	return nil
}

// DefaultOpener returns the URI handler command for goos.
func DefaultOpener(goos string) []string {
	switch goos {
	case "windows":
		// start takes the first quoted argument as the window title
		return []string{"cmd", "/C", "start", ""}
	case "darwin":
		return []string{"open"}
	default:
		return []string{"xdg-open"}
	}
}
