// Package poller drives the poll cycle: rank all servers at a fixed interval until one
// qualifies for joining, then hand it to the launcher.
package poller

import (
	"context"
	"errors"
	"net/netip"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/woozymasta/autojoin/internal/launcher"
	"github.com/woozymasta/autojoin/internal/metrics"
	"github.com/woozymasta/autojoin/internal/models"
	"github.com/woozymasta/autojoin/internal/ranker"
)

// ErrNoServers is returned when there is nothing to poll.
var ErrNoServers = errors.New("no servers configured")

// DefaultInterval is the pause between two poll cycles.
const DefaultInterval = time.Second

// Ranker builds one snapshot of the given servers.
type Ranker interface {
	Rank(ctx context.Context, addrs []netip.AddrPort) models.Snapshot
}

// Observer receives every snapshot, in cycle order, from the polling goroutine.
type Observer func(models.Snapshot)

// Poller runs the POLLING -> JOINING state machine.
type Poller struct {
	ranker    Ranker
	launcher  launcher.Launcher
	metrics   *metrics.Metrics
	addrs     []netip.AddrPort
	observers []Observer
	policy    ranker.Policy
	interval  time.Duration
	cycle     uint64
}

// New creates a Poller over addrs.
func New(addrs []netip.AddrPort, r Ranker, policy ranker.Policy, l launcher.Launcher, interval time.Duration) *Poller {
	if interval <= 0 {
		interval = DefaultInterval
	}

	return &Poller{
		ranker:   r,
		launcher: l,
		addrs:    addrs,
		policy:   policy,
		interval: interval,
	}
}

// WithMetrics records cycles and join attempts into m.
func (p *Poller) WithMetrics(m *metrics.Metrics) *Poller {
	p.metrics = m
	return p
}

// Observe registers fn to be called with every snapshot.
func (p *Poller) Observe(fn Observer) {
	p.observers = append(p.observers, fn)
}

// Once runs a single cycle and reports it, without joining.
func (p *Poller) Once(ctx context.Context) (models.Snapshot, error) {
	if len(p.addrs) == 0 {
		return models.Snapshot{}, ErrNoServers
	}

	return p.poll(ctx), nil
}

// Run polls until a server is admitted by the policy, then launches it.
// The first cycle starts immediately. It returns the joined server, the launch error
// if the join failed, or ctx.Err() once the context is cancelled.
// A failed join is terminal; the next candidate is not tried.
func (p *Poller) Run(ctx context.Context) (*models.QueriedServer, error) {
	if len(p.addrs) == 0 {
		return nil, ErrNoServers
	}

	log.Info().
		Int("servers", len(p.addrs)).
		Dur("interval", p.interval).
		Uint8("threshold", p.policy.Threshold).
		Dur("latency_cap", p.policy.LatencyCap).
		Msg("Polling servers")

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		snap := p.poll(ctx)
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if target, ok := p.policy.Select(snap.Servers); ok {
			return &target, p.join(ctx, target)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (p *Poller) poll(ctx context.Context) models.Snapshot {
	snap := p.ranker.Rank(ctx, p.addrs)
	if ctx.Err() != nil {
		return snap
	}

	p.cycle++
	snap.Cycle = p.cycle
	p.metrics.ObserveCycle(len(snap.Servers))

	log.Debug().
		Uint64("cycle", snap.Cycle).
		Int("ranked", len(snap.Servers)).
		Int("failed", snap.Failed).
		Msg("Poll cycle finished")

	for _, fn := range p.observers {
		fn(snap)
	}

	return snap
}

func (p *Poller) join(ctx context.Context, target models.QueriedServer) error {
	log.Info().
		Str("address", target.Address.String()).
		Str("name", target.Info.Name).
		Uint32("latency_ms", target.Latency).
		Uint8("players", target.Info.RealPlayers()).
		Msg("Joining server")

	err := p.launcher.Launch(ctx, target.Address)
	p.metrics.ObserveJoin(err)
	if err != nil {
		log.Error().Err(err).Str("address", target.Address.String()).Msg("Join failed")
		return err
	}

	return nil
}
