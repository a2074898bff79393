package query

import (
	"context"
	"errors"
	"net"
	"net/netip"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/woozymasta/autojoin/internal/models"
	"golang.org/x/time/rate"
)

// fakeServer listens on a loopback UDP port and answers each datagram with reply(req).
// A nil reply means no answer.
func fakeServer(t *testing.T, reply func(req []byte) []byte) netip.AddrPort {
	t.Helper()

	conn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	go func() {
		buf := make([]byte, 2048)
		for {
			n, from, err := conn.ReadFromUDP(buf)
			if err != nil {
				return
			}
			if resp := reply(buf[:n]); resp != nil {
				_, _ = conn.WriteToUDP(resp, from)
			}
		}
	}()

	return conn.LocalAddr().(*net.UDPAddr).AddrPort()
}

func TestClientQuery(t *testing.T) {
	want := models.ServerInfo{
		Header: 'I', Protocol: 17, Name: "FFA", Map: "aim_map", Folder: "csgo", Game: "CS",
		ID: 730, Players: 12, MaxPlayers: 20, Bots: 2,
	}

	reqs := make(chan []byte, 1)
	addr := fakeServer(t, func(req []byte) []byte {
		reqs <- append([]byte(nil), req...)
		return append([]byte{0xFF, 0xFF, 0xFF, 0xFF}, Encode(want)...)
	})

	c := &Client{Timeout: time.Second}
	res, err := c.Query(context.Background(), addr)
	require.NoError(t, err)

	assert.Equal(t, Request, <-reqs)
	assert.Equal(t, want, *res.Info)
	assert.Positive(t, res.RTT)
}

func TestClientQueryTimeout(t *testing.T) {
	addr := fakeServer(t, func([]byte) []byte { return nil })

	c := &Client{Timeout: 100 * time.Millisecond}
	start := time.Now()
	_, err := c.Query(context.Background(), addr)

	require.ErrorIs(t, err, ErrQueryTimeout)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestClientQueryCancel(t *testing.T) {
	addr := fakeServer(t, func([]byte) []byte { return nil })

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(50*time.Millisecond, cancel)

	c := &Client{Timeout: 10 * time.Second}
	start := time.Now()
	_, err := c.Query(ctx, addr)

	require.ErrorIs(t, err, context.Canceled)
	assert.False(t, errors.Is(err, ErrQueryTimeout))
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestClientQueryMalformed(t *testing.T) {
	addr := fakeServer(t, func([]byte) []byte {
		return []byte{0xFF, 0xFF, 0xFF, 0xFF, 'I', 17, 'b', 'r', 'o'}
	})

	c := &Client{Timeout: time.Second}
	_, err := c.Query(context.Background(), addr)

	require.ErrorIs(t, err, ErrMalformedResponse)
}

func TestClientQueryLimiter(t *testing.T) {
	addr := fakeServer(t, func([]byte) []byte { return Encode(models.ServerInfo{Name: "x"}) })

	c := &Client{Timeout: time.Second, Limiter: rate.NewLimiter(rate.Every(time.Hour), 1)}
	_, err := c.Query(context.Background(), addr)
	require.NoError(t, err)

	// burst is spent, the next token is an hour away
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = c.Query(ctx, addr)
	require.Error(t, err)
}
