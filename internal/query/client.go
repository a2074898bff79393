package query

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/netip"
	"time"

	"github.com/woozymasta/autojoin/internal/models"
	"golang.org/x/time/rate"
)

// ErrQueryTimeout is returned when a server does not reply in time.
var ErrQueryTimeout = errors.New("query timeout")

const (
	// DefaultTimeout bounds a single query round trip.
	DefaultTimeout = time.Second

	// DefaultBufferSize fits the largest unsplit Source reply.
	DefaultBufferSize = 1400
)

// Result holds a decoded reply and the measured request/response round trip.
type Result struct {
	Info *models.ServerInfo
	RTT  time.Duration
}

// Client sends A2S_INFO queries over UDP. A zero Client is ready to use.
type Client struct {
	// Limiter paces outgoing queries, nil disables pacing.
	Limiter *rate.Limiter

	// LocalAddr binds the socket to a local IP, the port is always ephemeral.
	LocalAddr netip.Addr

	Timeout    time.Duration
	BufferSize uint16
}

// Query sends a single A2S_INFO request to addr and waits for one reply.
// It never retries. Cancelling ctx aborts the wait immediately.
func (c *Client) Query(ctx context.Context, addr netip.AddrPort) (*Result, error) {
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	bufSize := c.BufferSize
	if bufSize == 0 {
		bufSize = DefaultBufferSize
	}

	if c.Limiter != nil {
		if err := c.Limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	qctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	dialer := net.Dialer{}
	if c.LocalAddr.IsValid() {
		dialer.LocalAddr = net.UDPAddrFromAddrPort(netip.AddrPortFrom(c.LocalAddr, 0))
	}

	conn, err := dialer.DialContext(qctx, "udp4", addr.String())
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}
	defer func() { _ = conn.Close() }()

	if deadline, ok := qctx.Deadline(); ok {
		if err := conn.SetDeadline(deadline); err != nil {
			return nil, err
		}
	}

	// unblock Read as soon as the caller gives up
	stop := context.AfterFunc(qctx, func() {
		_ = conn.SetDeadline(time.Now())
	})
	defer stop()

	start := time.Now()
	if _, err := conn.Write(Request); err != nil {
		return nil, fmt.Errorf("send to %s: %w", addr, err)
	}

	buf := make([]byte, bufSize)
	n, err := conn.Read(buf)
	rtt := time.Since(start)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && !errors.Is(ctxErr, context.DeadlineExceeded) {
			return nil, ctxErr
		}

		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return nil, fmt.Errorf("%w: %s after %s", ErrQueryTimeout, addr, timeout)
		}

		return nil, fmt.Errorf("receive from %s: %w", addr, err)
	}

	info, err := Decode(trimSimplePrefix(buf[:n]))
	if err != nil {
		return nil, fmt.Errorf("decode reply from %s: %w", addr, err)
	}

	return &Result{Info: info, RTT: rtt}, nil
}
