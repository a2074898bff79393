package game

import (
	"net"
	"net/netip"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/woozymasta/autojoin/internal/config"
)

func TestInspectSilentServer(t *testing.T) {
	// a bound socket that never answers
	conn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	addr := conn.LocalAddr().(*net.UDPAddr).AddrPort()
	opts := config.Query{Timeout: 100 * time.Millisecond, BufferSize: 1400}

	reports := Inspect([]netip.AddrPort{addr}, opts)
	require.Len(t, reports, 1)
	assert.Equal(t, addr.String(), reports[0].Address)
	assert.NotEmpty(t, reports[0].Error)
	assert.Nil(t, reports[0].Info)
}
