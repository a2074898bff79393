// Package ranker queries a set of game servers concurrently and orders them by latency.
package ranker

import (
	"context"
	"net/netip"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/woozymasta/autojoin/internal/metrics"
	"github.com/woozymasta/autojoin/internal/models"
	"github.com/woozymasta/autojoin/internal/probe"
	"github.com/woozymasta/autojoin/internal/query"
	"golang.org/x/sync/errgroup"
)

// DefaultWorkers bounds the number of servers queried at the same time.
const DefaultWorkers = 8

// Querier fetches the A2S_INFO of a single server.
type Querier interface {
	Query(ctx context.Context, addr netip.AddrPort) (*query.Result, error)
}

// Locator resolves the country of an address, empty when unknown.
type Locator interface {
	Country(addr netip.Addr) string
}

// Options holds the optional collaborators of a Ranker.
type Options struct {
	// Prober measures latency separately. Nil uses the query round trip.
	Prober probe.Prober

	// Locator annotates ranked servers with their country, may be nil.
	Locator Locator

	// Metrics records per address outcomes, may be nil.
	Metrics *metrics.Metrics

	Workers int
}

// Ranker builds ranked server lists.
type Ranker struct {
	querier Querier
	prober  probe.Prober
	locator Locator
	metrics *metrics.Metrics
	workers int
}

// New creates a Ranker querying servers through q.
func New(q Querier, opts Options) *Ranker {
	workers := opts.Workers
	if workers <= 0 {
		workers = DefaultWorkers
	}

	return &Ranker{
		querier: q,
		prober:  opts.Prober,
		locator: opts.Locator,
		metrics: opts.Metrics,
		workers: workers,
	}
}

// slot is the result of one address. Each goroutine owns exactly one slot.
type slot struct {
	server models.QueriedServer
	err    error
}

// Rank queries every address and returns the reachable ones sorted by ascending latency.
// A failing address is logged and left out, it never aborts the others.
func (r *Ranker) Rank(ctx context.Context, addrs []netip.AddrPort) models.Snapshot {
	slots := make([]slot, len(addrs))

	var g errgroup.Group
	g.SetLimit(r.workers)

	for i, addr := range addrs {
		g.Go(func() error {
			slots[i] = r.measure(ctx, addr)
			return nil
		})
	}
	_ = g.Wait()

	snap := models.Snapshot{
		Taken:   time.Now(),
		Servers: make(models.RankedList, 0, len(addrs)),
	}

	for i, s := range slots {
		latency := time.Duration(s.server.Latency) * time.Millisecond
		r.metrics.ObserveQuery(latency, s.err)

		if s.err != nil {
			snap.Failed++
			if ctx.Err() == nil {
				log.Debug().
					Err(s.err).
					Str("address", addrs[i].String()).
					Msg("Server dropped from ranking")
			}
			continue
		}

		snap.Servers = append(snap.Servers, s.server)
	}
	snap.Servers.Sort()

	return snap
}

// measure queries a single server and determines its latency.
func (r *Ranker) measure(ctx context.Context, addr netip.AddrPort) slot {
	if err := ctx.Err(); err != nil {
		return slot{err: err}
	}

	res, err := r.querier.Query(ctx, addr)
	if err != nil {
		return slot{err: err}
	}

	rtt := res.RTT
	if r.prober != nil {
		if rtt, err = r.prober.Probe(ctx, addr.Addr()); err != nil {
			return slot{err: err}
		}
	}

	server := models.QueriedServer{
		Address: addr,
		Info:    *res.Info,
		Latency: toMillis(rtt),
	}
	if r.locator != nil {
		server.Country = r.locator.Country(addr.Addr())
	}

	log.Trace().
		Str("address", addr.String()).
		Str("name", server.Info.Name).
		Uint32("latency_ms", server.Latency).
		Msg("Server queried")

	return slot{server: server}
}

// toMillis converts d to whole milliseconds, clamped to the uint32 range.
func toMillis(d time.Duration) uint32 {
	ms := d.Milliseconds()
	switch {
	case ms < 0:
		return 0
	case ms > int64(^uint32(0)):
		return ^uint32(0)
	default:
		return uint32(ms)
	}
}
