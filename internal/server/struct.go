package server

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/woozymasta/autojoin/internal/metrics"
	"github.com/woozymasta/autojoin/internal/models"
	"github.com/woozymasta/autojoin/internal/ranker"
)

// Server exposes the latest poll snapshot and metrics over HTTP.
type Server struct {
	// metrics serves /metrics, may be nil.
	metrics *metrics.Metrics

	// latest is the most recent snapshot published by the poller, nil before the first cycle.
	latest atomic.Pointer[models.Snapshot]

	// shutdown stops the rate limiter cleanup goroutine.
	shutdown  chan struct{}
	closeOnce sync.Once

	// policy marks the servers that would be joined.
	policy ranker.Policy

	// hardLimitCount is the maximum number of requests allowed per IP address
	// within the hardLimitWin duration.
	hardLimitCount int

	// hardLimitWin is the time window duration for the rate limiter.
	hardLimitWin time.Duration
}

// rankedEntry is a ranked server as returned by /api/servers.
type rankedEntry struct {
	models.QueriedServer

	Rank       int  `json:"rank"`
	Players    byte `json:"real_players"`
	Slots      byte `json:"available_slots"`
	ShouldJoin bool `json:"should_join"`
}

// serversResponse is the body of /api/servers.
type serversResponse struct {
	Taken   time.Time     `json:"taken"`
	Servers []rankedEntry `json:"servers"`
	Cycle   uint64        `json:"cycle"`
	Failed  int           `json:"failed"`
}
