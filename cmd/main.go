package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	dnscache "github.com/krisalay/dns-cache"
	"github.com/krisalay/dns-cache/api"
	"github.com/krisalay/dns-cache/config"
	"github.com/krisalay/dns-cache/dispatch"
	"github.com/krisalay/dns-cache/janitor"
	"github.com/krisalay/dns-cache/store"
	"github.com/krisalay/dns-cache/types"
	"github.com/krisalay/dns-cache/upstream"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load(os.Args[1:], os.Getenv)
	if err != nil {
		fmt.Fprintf(os.Stderr, "dnscache: %v\n", err)
		os.Exit(2)
	}

	log, err := cfg.NewLogger(os.Stderr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "dnscache: %v\n", err)
		os.Exit(2)
	}

	// Signal-aware context is the root of ownership for long-lived background work.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.WithError(err).Fatal("dnscache stopped")
	}
}

func run(ctx context.Context, cfg config.Config, log *logrus.Logger) error {
	log.WithFields(logrus.Fields{
		"ttl":            cfg.TTL,
		"janitor_period": cfg.JanitorPeriod,
		"upstream":       upstreamName(cfg.Upstream),
		"workers":        cfg.Workers,
		"coalesce":       cfg.Coalesce,
	}).Info("starting dnscache")

	// ---------------- Cache core ----------------
	counters := &types.Counters{}
	st := store.New(cfg.TTL)

	opts := []dnscache.Option{
		dnscache.WithLogger(log.WithField("component", "resolver")),
		dnscache.WithMetrics(counters),
	}
	if cfg.Coalesce {
		opts = append(opts, dnscache.WithCoalescing())
	}
	resolver := dnscache.New(st, upstream.New(cfg.Upstream, cfg.UpstreamTimeout), opts...)

	pool := dispatch.NewPool(resolver, cfg.Workers, cfg.QueueSize, log.WithField("component", "pool"))
	defer pool.Close()

	// ---------------- Status + janitor ----------------
	hub := api.NewStatusHub(log.WithField("component", "status"))
	jan := janitor.New(st, cfg.JanitorPeriod,
		janitor.WithLogger(log.WithField("component", "janitor")),
		janitor.WithMetrics(counters),
		janitor.WithObserver(hub),
	)

	// ---------------- HTTP ----------------
	srv := &http.Server{
		Addr: cfg.Listen,
		Handler: api.NewRouter(api.Deps{
			Service:      resolver,
			Pool:         pool,
			Hub:          hub,
			Counters:     counters,
			AllowOrigins: cfg.AllowOrigins,
			Log:          log.WithField("component", "http"),
		}),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return jan.Run(gctx)
	})

	g.Go(func() error {
		log.WithField("listen", cfg.Listen).Info("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http shutdown: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}

	log.WithField("stats", counters.Snapshot()).Info("dnscache stopped cleanly")
	return nil
}

func upstreamName(addr string) string {
	if addr == "" {
		return "system"
	}
	return addr
}
