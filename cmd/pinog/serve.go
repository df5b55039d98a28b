package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/jonwraymond/pinog/auth"
	"github.com/jonwraymond/pinog/cache"
	"github.com/jonwraymond/pinog/chain"
	"github.com/jonwraymond/pinog/config"
	"github.com/jonwraymond/pinog/content"
	"github.com/jonwraymond/pinog/executor"
	"github.com/jonwraymond/pinog/health"
	"github.com/jonwraymond/pinog/observe"
	"github.com/jonwraymond/pinog/pin"
	"github.com/jonwraymond/pinog/render"
	"github.com/jonwraymond/pinog/resilience"
	"github.com/jonwraymond/pinog/server"
	"github.com/jonwraymond/pinog/swr"
)

func newServeCommand(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP card service",
		Long: `Run the HTTP card service.

Configuration is layered: built-in defaults, then the YAML file, then
environment variables (PORT, REDIS_URL, RPC_URL, CONTRACT_ADDRESS, ... and
PINOG_<SECTION>_<KEY>).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, root.configPath)
		},
	}
}

func runServe(ctx context.Context, configPath string) error {
	cfg, err := config.Load(ctx, configPath)
	if err != nil {
		return err
	}

	obs, err := observe.NewObserver(ctx, cfg.Observe(version))
	if err != nil {
		return fmt.Errorf("observe: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		_ = obs.Shutdown(shutdownCtx)
	}()
	logger := obs.Logger().With(observe.Field{Key: "version", Value: version})
	mw, err := observe.MiddlewareFromObserver(obs)
	if err != nil {
		return fmt.Errorf("observe: %w", err)
	}

	app, err := build(ctx, cfg, mw, logger)
	if err != nil {
		return err
	}
	defer app.close()

	handler, err := server.New(server.Config{
		CORSOrigins:      cfg.Server.CORSOrigins,
		PreviewRateLimit: cfg.Server.PreviewRateLimit,
	}, app.deps)
	if err != nil {
		return err
	}

	httpSrv := &http.Server{
		Addr:              ":" + strconv.Itoa(cfg.Server.Port),
		Handler:           handler.Handler(),
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
	}
	sup := server.NewSupervisor(observe.NewSlogLogger(logger), cfg.Server.ShutdownTimeout)
	sup.Add(server.NewHTTPService(httpSrv, cfg.Server.ShutdownTimeout))

	logger.Info(ctx, "pinog listening",
		observe.Field{Key: "addr", Value: httpSrv.Addr},
		observe.Field{Key: "chain_id", Value: cfg.Auth.ChainID},
		observe.Field{Key: "executor", Value: cfg.Executor.Mode},
	)
	err = sup.Serve(ctx)

	drainCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.Server.ShutdownTimeout)
	defer cancel()
	if werr := app.coordinator.Wait(drainCtx); werr != nil {
		logger.Warn(ctx, "background refreshes still running at exit", observe.Err(werr))
	}

	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.Info(ctx, "pinog stopped")
	return nil
}

type application struct {
	deps        server.Deps
	coordinator *swr.Coordinator
	closers     []func() error
}

func (a *application) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		_ = a.closers[i]()
	}
}

// build wires every component from cfg.
func build(ctx context.Context, cfg *config.Config, mw *observe.Middleware, logger observe.Logger) (*application, error) {
	app := &application{}
	ok := false
	defer func() {
		if !ok {
			app.close()
		}
	}()

	// A missing or unreachable Redis degrades to the in-process tier.
	var locker cache.Locker = cache.NewFallbackLocker(nil)
	var store cache.Store
	var pinger health.Pinger
	if cfg.Redis.URL != "" {
		client, err := cache.NewRedisClient(cfg.Redis)
		if err != nil {
			return nil, err
		}
		app.closers = append(app.closers, client.Close)
		if err := client.Ping(ctx).Err(); err != nil {
			logger.Warn(ctx, "redis unreachable at startup", observe.Err(err))
		}
		store = cache.NewRedisStore(client)
		locker = cache.NewFallbackLocker(cache.NewRedisLocker(client))
		pinger = client
	} else {
		logger.Warn(ctx, "REDIS_URL not set, using in-process cache only")
	}
	tiered := cache.NewTiered(store, cfg.Cache.Memory(), cfg.Cache.Policy(), cache.WithLogger(logger))

	reader, rpc, err := chain.Dial(ctx, cfg.Reader(),
		chain.WithMiddleware(mw),
		chain.WithExecutor(upstream("chain-rpc", cfg.Chain.CallTimeout, logger)),
	)
	if err != nil {
		return nil, err
	}
	app.closers = append(app.closers, func() error { rpc.Close(); return nil })

	gateway, err := content.NewGateway(cfg.Content,
		content.WithMiddleware(mw),
		content.WithExecutor(upstream("ipfs-gateway", cfg.Content.Timeout, logger)),
	)
	if err != nil {
		return nil, err
	}

	exec, err := executor.New(cfg.Executor,
		executor.WithMiddleware(mw),
		executor.WithExecutor(upstream("executor", cfg.Executor.Timeout, logger)),
	)
	if err != nil {
		return nil, err
	}

	renderer, err := render.New(cfg.Render, render.WithMiddleware(mw), render.WithLogger(logger))
	if err != nil {
		return nil, err
	}

	generator, err := pin.New(reader, gateway, exec, renderer,
		pin.WithMiddleware(mw),
		pin.WithLogger(logger),
		pin.WithPreviewPinID(cfg.Auth.PreviewPinID),
	)
	if err != nil {
		return nil, err
	}

	app.coordinator = swr.New(tiered, locker, cfg.SWR,
		swr.WithLogger(logger),
		swr.WithMetrics(mw.Metrics()),
	)

	agg := health.NewAggregator(health.AggregatorConfig{})
	agg.Register(health.NewRedisChecker(pinger))
	agg.Register(health.NewMemoryChecker(health.MemoryCheckerConfig{Entries: tiered.MemoryEntries}))

	app.deps = server.Deps{
		Authorizer:  auth.NewBundleAuthorizer(cfg.Authorizer(), reader, logger),
		Keyer:       cache.NewDefaultKeyer(),
		Coordinator: app.coordinator,
		Generator:   generator,
		Executor:    exec,
		Renderer:    renderer,
		Gate:        auth.NewGate(cfg.Gate),
		Health:      agg,
		Metrics:     promhttp.Handler(),
		Logger:      logger,
	}
	ok = true
	return app, nil
}

// upstream guards calls to one remote dependency.
func upstream(name string, timeout time.Duration, logger observe.Logger) *resilience.Executor {
	return resilience.NewExecutor(
		resilience.WithCircuitBreaker(resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
			Name: name,
			OnStateChange: func(name string, from, to resilience.State) {
				logger.Warn(context.Background(), "circuit breaker state changed",
					observe.Field{Key: "upstream", Value: name},
					observe.Field{Key: "from", Value: from.String()},
					observe.Field{Key: "to", Value: to.String()},
				)
			},
		})),
		resilience.WithRetry(resilience.NewRetry(resilience.RetryConfig{MaxAttempts: 2, Jitter: true})),
		resilience.WithTimeout(timeout),
	)
}
