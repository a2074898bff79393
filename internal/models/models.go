// Package models defines the data structures shared between the query, ranking and reporting layers.
package models

import (
	"fmt"
	"net/netip"
	"sort"
	"time"
)

// ServerInfo is the decoded A2S_INFO reply of a game server.
type ServerInfo struct {
	Name       string `json:"name"`
	Map        string `json:"map"`
	Folder     string `json:"folder"`
	Game       string `json:"game"`
	ID         uint16 `json:"id"`
	Header     byte   `json:"header"`
	Protocol   byte   `json:"protocol"`
	Players    byte   `json:"players"`
	MaxPlayers byte   `json:"max_players"`
	Bots       byte   `json:"bots"`
}

// RealPlayers returns the number of human players.
// Servers may report more bots than players, so the result never goes below zero.
func (i ServerInfo) RealPlayers() byte {
	if i.Bots >= i.Players {
		return 0
	}

	return i.Players - i.Bots
}

// AvailableSlots returns the number of free slots for human players, clamped at zero.
func (i ServerInfo) AvailableSlots() byte {
	humans := i.RealPlayers()
	if humans >= i.MaxPlayers {
		return 0
	}

	return i.MaxPlayers - humans
}

// QueriedServer is the result of one successful query and latency measurement of a server.
type QueriedServer struct {
	Address netip.AddrPort `json:"address"`
	Country string         `json:"country,omitempty"`
	Info    ServerInfo     `json:"info"`
	Latency uint32         `json:"latency_ms"`
}

// String renders the server as a single console line: "name  12ms  10/20 (5)".
func (q QueriedServer) String() string {
	return fmt.Sprintf("%s  %dms  %d/%d (%d)",
		q.Info.Name, q.Latency, q.Info.RealPlayers(), q.Info.MaxPlayers, q.Info.Bots)
}

// RankedList is a list of servers ordered by ascending latency.
type RankedList []QueriedServer

// Sort orders the list by latency. Equal latencies keep their original order.
func (l RankedList) Sort() {
	sort.SliceStable(l, func(i, j int) bool {
		return l[i].Latency < l[j].Latency
	})
}

// Snapshot is the outcome of a single poll cycle.
type Snapshot struct {
	Taken   time.Time  `json:"taken"`
	Servers RankedList `json:"servers"`
	Cycle   uint64     `json:"cycle"`
	Failed  int        `json:"failed"`
}
