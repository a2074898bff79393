// main is the entry point of the AutoJoin application.
// It polls the configured game servers, ranks them by latency and launches the game
// once a server has enough human players.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/woozymasta/autojoin/internal/config"
	"github.com/woozymasta/autojoin/internal/game"
	"github.com/woozymasta/autojoin/internal/geoip"
	"github.com/woozymasta/autojoin/internal/launcher"
	"github.com/woozymasta/autojoin/internal/logger"
	"github.com/woozymasta/autojoin/internal/metrics"
	"github.com/woozymasta/autojoin/internal/models"
	"github.com/woozymasta/autojoin/internal/poller"
	"github.com/woozymasta/autojoin/internal/probe"
	"github.com/woozymasta/autojoin/internal/query"
	"github.com/woozymasta/autojoin/internal/ranker"
	"github.com/woozymasta/autojoin/internal/server"
	"golang.org/x/time/rate"
)

func main() {
	cfg := config.Parse()

	logger.Setup(cfg.Logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, cfg, os.Stdout)
	stop()

	os.Exit(code)
}

// run executes the selected mode and returns the process exit code.
func run(ctx context.Context, cfg *config.Config, out io.Writer) int {
	targets, err := cfg.Targets()
	if err != nil {
		log.Error().Err(err).Msg("Invalid server list")
		return 1
	}

	if cfg.Mode() == config.ModeInspect {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(game.Inspect(targets, cfg.Query)); err != nil {
			log.Error().Err(err).Msg("Failed to write inspect report")
			return 1
		}
		return 0
	}

	m := metrics.New()
	geo := openGeoIP(ctx, cfg.GeoIP)
	defer func() {
		if err := geo.Close(); err != nil {
			log.Error().Err(err).Msg("Error closing GeoIP provider")
		}
	}()

	r := ranker.New(newQueryClient(cfg.Query), ranker.Options{
		Prober:  newProber(cfg.Probe),
		Locator: geo,
		Metrics: m,
		Workers: cfg.Poll.Workers,
	})

	policy := ranker.Policy{
		Threshold:  cfg.Join.Threshold,
		LatencyCap: cfg.Join.LatencyCap,
	}
	steam := &launcher.Steam{URI: cfg.Join.URI, Opener: cfg.Join.Opener}

	p := poller.New(targets, r, policy, steam, cfg.Poll.Interval).WithMetrics(m)
	p.Observe(func(snap models.Snapshot) { printSnapshot(out, snap) })

	if cfg.HTTP.Address != "" {
		status := server.New(cfg.HTTP, policy, m)
		p.Observe(status.Publish)
		go func() {
			if err := status.ListenAndServe(ctx, cfg.HTTP.Address); err != nil {
				log.Error().Err(err).Msg("Status server failed")
			}
		}()
	}

	if cfg.Mode() == config.ModeShow {
		if _, err := p.Once(ctx); err != nil {
			log.Error().Err(err).Msg("Query failed")
			return 1
		}
		return 0
	}

	joined, err := p.Run(ctx)
	switch {
	case err == nil:
		_, _ = fmt.Fprintf(out, "Joining: %s\n", joined)
		return 0
	case errors.Is(err, context.Canceled):
		log.Info().Msg("Interrupted, exiting")
		return 130
	case errors.Is(err, launcher.ErrJoinFailed):
		_, _ = fmt.Fprintf(out, "Joining: %s\n", joined)
		var joinErr *launcher.JoinError
		if errors.As(err, &joinErr) {
			if joinErr.Stdout != "" {
				_, _ = fmt.Fprintf(os.Stderr, "stdout: %s\n", joinErr.Stdout)
			}
			if joinErr.Stderr != "" {
				_, _ = fmt.Fprintf(os.Stderr, "stderr: %s\n", joinErr.Stderr)
			}
		}
		log.Error().Err(err).Msg("Connection to game server failed")
		return 1
	default:
		log.Error().Err(err).Msg("Polling stopped")
		return 1
	}
}

// printSnapshot writes one line per ranked server.
func printSnapshot(w io.Writer, snap models.Snapshot) {
	for _, s := range snap.Servers {
		if s.Country != "" {
			_, _ = fmt.Fprintf(w, "%s  [%s]\n", s, s.Country)
			continue
		}
		_, _ = fmt.Fprintln(w, s)
	}
}

func newQueryClient(cfg config.Query) *query.Client {
	c := &query.Client{
		Timeout:    cfg.Timeout,
		BufferSize: cfg.BufferSize,
	}

	if cfg.Rate > 0 {
		c.Limiter = rate.NewLimiter(rate.Limit(cfg.Rate), max(cfg.Burst, 1))
	}

	// validated by config.Parse
	if bind, err := cfg.BindAddr(); err == nil {
		c.LocalAddr = bind
	}

	return c
}

func newProber(cfg config.Probe) probe.Prober {
	if cfg.Method != "ping" {
		return nil
	}

	return &probe.Ping{Command: cfg.Command, Timeout: cfg.Timeout}
}

// openGeoIP returns a country provider or nil when disabled or unavailable.
func openGeoIP(ctx context.Context, cfg config.GeoIP) *geoip.Provider {
	if cfg.Path == "" {
		return nil
	}

	if err := geoip.EnsureDB(ctx, cfg.Path, cfg.URL, cfg.Interval); err != nil {
		log.Warn().Err(err).Msg("Failed to update GeoIP database")
	}

	provider, err := geoip.Open(cfg.Path)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to open GeoIP database, country detection disabled")
		return nil
	}

	return provider
}
