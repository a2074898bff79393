// Package probe measures round-trip latency to a host using the system ping command.
package probe

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math"
	"net/netip"
	"os/exec"
	"regexp"
	"runtime"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
)

// ErrProbeFailed is returned when latency could not be measured.
var ErrProbeFailed = errors.New("probe failed")

// Prober measures round-trip latency to a host.
type Prober interface {
	Probe(ctx context.Context, host netip.Addr) (time.Duration, error)
}

// matches "time=23ms", "time<1ms", "time=23.4 ms" and "Zeit=23ms"
var rttRe = regexp.MustCompile(`(?i)(?:time|zeit)\s*([=<])\s*([0-9]+(?:[.,][0-9]+)?)\s*ms`)

// Ping runs the operating system ping utility once and parses its report.
type Ping struct {
	// Command overrides the ping binary, defaults to "ping".
	Command string

	Timeout time.Duration

	// run executes the command and returns stdout, replaced in tests.
	run func(ctx context.Context, name string, args ...string) ([]byte, error)
}

// Probe sends a single echo request to host.
func (p *Ping) Probe(ctx context.Context, host netip.Addr) (time.Duration, error) {
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = time.Second
	}

	name := p.Command
	if name == "" {
		name = "ping"
	}

	run := p.run
	if run == nil {
		run = execOutput
	}

	// leave the ping tool a little slack to print its report
	ctx, cancel := context.WithTimeout(ctx, timeout+time.Second)
	defer cancel()

	args := pingArgs(runtime.GOOS, host, timeout)
	out, err := run(ctx, name, args...)
	if err != nil {
		log.Trace().Str("host", host.String()).Bytes("output", out).Msg("Ping command failed")
		return 0, fmt.Errorf("%w: ping %s: %w", ErrProbeFailed, host, err)
	}

	rtt, err := parseRTT(out)
	if err != nil {
		return 0, fmt.Errorf("%w: ping %s: %w", ErrProbeFailed, host, err)
	}

	return rtt, nil
}

func pingArgs(goos string, host netip.Addr, timeout time.Duration) []string {
	switch goos {
	case "windows":
		return []string{"-n", "1", "-w", strconv.FormatInt(timeout.Milliseconds(), 10), host.String()}
	case "darwin", "freebsd", "openbsd", "netbsd":
		// -W is in milliseconds on BSD flavours
		return []string{"-c", "1", "-W", strconv.FormatInt(timeout.Milliseconds(), 10), host.String()}
	default:
		secs := max(int64(timeout.Round(time.Second)/time.Second), 1)
		return []string{"-c", "1", "-W", strconv.FormatInt(secs, 10), host.String()}
	}
}

// parseRTT extracts the first round-trip time reported by ping.
// "time<1ms" is reported as zero.
func parseRTT(out []byte) (time.Duration, error) {
	m := rttRe.FindSubmatch(out)
	if m == nil {
		return 0, errors.New("no round-trip time in ping output")
	}
	if string(m[1]) == "<" {
		return 0, nil
	}

	ms, err := strconv.ParseFloat(string(bytes.ReplaceAll(m[2], []byte(","), []byte("."))), 64)
	if err != nil {
		return 0, err
	}

	return time.Duration(math.Round(ms*1000)) * time.Microsecond, nil
}

func execOutput(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}
