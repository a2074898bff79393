package models

import (
	"net/netip"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestServerInfoSaturatingCounts(t *testing.T) {
	tests := []struct {
		name      string
		info      ServerInfo
		realCount byte
		slots     byte
	}{
		{"regular", ServerInfo{Players: 15, Bots: 5, MaxPlayers: 20}, 10, 10},
		{"more bots than players", ServerInfo{Players: 2, Bots: 9, MaxPlayers: 20}, 0, 20},
		{"overfull", ServerInfo{Players: 30, Bots: 0, MaxPlayers: 20}, 30, 0},
		{"full", ServerInfo{Players: 20, Bots: 0, MaxPlayers: 20}, 20, 0},
		{"empty", ServerInfo{}, 0, 0},
		{"max values", ServerInfo{Players: 255, Bots: 0, MaxPlayers: 255}, 255, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.realCount, tt.info.RealPlayers())
			assert.Equal(t, tt.slots, tt.info.AvailableSlots())
		})
	}
}

func TestRankedListSortIsStable(t *testing.T) {
	list := RankedList{
		{Info: ServerInfo{Name: "a"}, Latency: 80},
		{Info: ServerInfo{Name: "b"}, Latency: 20},
		{Info: ServerInfo{Name: "c"}, Latency: 50},
		{Info: ServerInfo{Name: "d"}, Latency: 20},
		{Info: ServerInfo{Name: "e"}, Latency: 50},
	}
	list.Sort()

	var names []string
	for _, s := range list {
		names = append(names, s.Info.Name)
	}
	assert.Equal(t, []string{"b", "d", "c", "e", "a"}, names)
}

func TestQueriedServerString(t *testing.T) {
	q := QueriedServer{
		Address: netip.MustParseAddrPort("127.0.0.1:27015"),
		Info:    ServerInfo{Name: "FFA #1", Players: 15, Bots: 5, MaxPlayers: 20},
		Latency: 12,
	}

	assert.Equal(t, "FFA #1  12ms  10/20 (5)", q.String())
}
