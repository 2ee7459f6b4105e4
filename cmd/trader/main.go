// Package main runs the speculative trade service:
// - Preload: builds unsigned swap artifacts ahead of the user's click
// - Refresh (background): keeps the cached generation warm until it expires
// - Execute: cache-or-rebuild, sign, route, confirm
// - HTTP: /v1/preload, /v1/execute, /v1/status, /health, /metrics
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/shopspring/decimal"

	"solana-trade-engine/internal/confirm"
	"solana-trade-engine/internal/engine"
	"solana-trade-engine/internal/execution"
	"solana-trade-engine/internal/observability"
	"solana-trade-engine/internal/oracle"
	"solana-trade-engine/internal/preload"
	"solana-trade-engine/internal/solana"
	"solana-trade-engine/internal/storage"
	chstore "solana-trade-engine/internal/storage/clickhouse"
	"solana-trade-engine/internal/storage/migrations"
	pgstore "solana-trade-engine/internal/storage/postgres"
	"solana-trade-engine/internal/submit"
	"solana-trade-engine/internal/venue"
	"solana-trade-engine/internal/wallet"
)

func main() {
	// Load .env file if exists
	loadEnvFile()

	// Parse flags (env vars as defaults)
	rpcURL := flag.String("rpc-url", os.Getenv("RPC_URL"), "Solana RPC HTTP endpoint")
	wsURL := flag.String("ws-url", os.Getenv("WS_URL"), "Solana WebSocket endpoint (derived from -rpc-url when empty)")
	venueURL := flag.String("venue-url", os.Getenv("VENUE_URL"), "Swap venue API base URL")
	bundleURL := flag.String("bundle-url", os.Getenv("BUNDLE_URL"), "Priority bundle endpoint (empty disables the priority channel)")
	keypairPath := flag.String("keypair", os.Getenv("KEYPAIR_PATH"), "Path to the wallet keypair file (JSON byte array or base58)")
	buyPresets := flag.String("buy-presets", envOr("BUY_PRESETS", "0.5,1.0"), "Comma-separated buy amounts in SOL")
	sellPresets := flag.String("sell-presets", envOr("SELL_PRESETS", "25,50,100"), "Comma-separated sell percentages")
	cacheTTL := flag.Duration("cache-ttl", envDurationOr("CACHE_TTL", 10*time.Second), "Preload generation lifetime")
	freshThreshold := flag.Duration("fresh-threshold", envDurationOr("FRESH_THRESHOLD", 5*time.Second), "Max artifact age for direct use")
	refreshInterval := flag.Duration("refresh-interval", envDurationOr("REFRESH_INTERVAL", 8*time.Second), "Background refresh interval")
	driftThreshold := flag.String("drift-threshold", envOr("DRIFT_THRESHOLD", "0.05"), "Relative balance drift that rejects a cached sell")
	confirmTimeout := flag.Duration("confirm-timeout", envDurationOr("CONFIRM_TIMEOUT", 30*time.Second), "Confirmation polling window")
	confirmPoll := flag.Duration("confirm-poll", envDurationOr("CONFIRM_POLL_INTERVAL", time.Second), "Confirmation polling interval")
	bundlePoll := flag.Duration("bundle-poll", envDurationOr("BUNDLE_POLL_INTERVAL", 500*time.Millisecond), "Bundle status polling interval")
	bundleWait := flag.Duration("bundle-wait", envDurationOr("BUNDLE_WAIT", 15*time.Second), "How long to watch a bundle before deferring to confirmation")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string (empty disables the execution ledger)")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string (empty disables the event sink)")
	httpAddr := flag.String("http-addr", envOr("HTTP_ADDR", ":8080"), "HTTP listen address")

	flag.Parse()

	// Setup logger
	logger := log.New(os.Stdout, "[trader] ", log.LstdFlags|log.Lshortfile)

	// Validate required flags
	if *rpcURL == "" {
		logger.Fatal("--rpc-url is required")
	}
	if *venueURL == "" {
		logger.Fatal("--venue-url is required")
	}
	if *keypairPath == "" {
		logger.Fatal("--keypair is required")
	}

	buyAmounts, err := parsePresets(*buyPresets)
	if err != nil {
		logger.Fatalf("Invalid --buy-presets: %v", err)
	}
	sellPercents, err := parsePresets(*sellPresets)
	if err != nil {
		logger.Fatalf("Invalid --sell-presets: %v", err)
	}
	drift, err := decimal.NewFromString(*driftThreshold)
	if err != nil || !drift.IsPositive() {
		logger.Fatalf("Invalid --drift-threshold %q", *driftThreshold)
	}

	keypair, err := wallet.LoadKeypair(*keypairPath)
	if err != nil {
		logger.Fatalf("Failed to load keypair: %v", err)
	}
	logger.Printf("Trading wallet: %s", keypair.PublicKey)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// RPC + venue clients
	rpc := solana.NewHTTPClient(*rpcURL)
	venueClient := venue.NewHTTPClient(*venueURL, keypair.PublicKey)
	balances := oracle.NewRPCOracle(rpc)

	// The balance watcher is advisory; a dead WebSocket endpoint must
	// not keep the trader from starting.
	var watcher *oracle.Watcher
	endpoint := *wsURL
	if endpoint == "" {
		endpoint = deriveWSURL(*rpcURL)
	}
	ws, err := solana.NewWSClient(ctx, endpoint, nil)
	if err != nil {
		logger.Printf("WebSocket connect to %s failed, running without balance watcher: %v", endpoint, err)
	} else {
		defer ws.Close()
		watcher = oracle.NewWatcher(ws, oracle.WatcherOptions{
			Logger: log.New(os.Stdout, "[watcher] ", log.LstdFlags),
		})
	}

	// Preload side
	builder := preload.NewBuilder(venueClient, balances, keypair.PublicKey, preload.BuilderOptions{
		BuyAmounts:   buyAmounts,
		SellPercents: sellPercents,
		Logger:       log.New(os.Stdout, "[preload] ", log.LstdFlags),
	})
	service := preload.NewService(builder, preload.ServiceOptions{
		TTL:    *cacheTTL,
		Logger: log.New(os.Stdout, "[preload] ", log.LstdFlags),
	})
	refresher := preload.NewRefresher(service, preload.RefresherOptions{
		Interval: *refreshInterval,
		Logger:   log.New(os.Stdout, "[preload] ", log.LstdFlags),
	})

	// Submission side
	routerOpts := submit.RouterOptions{
		BundlePollInterval: *bundlePoll,
		BundleWait:         *bundleWait,
		Logger:             log.New(os.Stdout, "[router] ", log.LstdFlags),
	}
	if *bundleURL != "" {
		routerOpts.Priority = submit.NewPriorityClient(*bundleURL)
		logger.Printf("Priority channel enabled via %s", *bundleURL)
	}
	router := submit.NewRouter(submit.NewDirectSubmitter(rpc), routerOpts)
	poller := confirm.NewPoller(rpc, confirm.PollerOptions{
		Interval: *confirmPoll,
		Timeout:  *confirmTimeout,
		Logger:   log.New(os.Stdout, "[confirm] ", log.LstdFlags),
	})

	pipeline := execution.NewPipeline(execution.Options{
		Venue:          venueClient,
		Balances:       balances,
		Signer:         wallet.NewKeypairSigner(keypair, rpc),
		Submitter:      router,
		Confirmer:      poller,
		Owner:          keypair.PublicKey,
		Cache:          service,
		Refresher:      refresher,
		FreshThreshold: *freshThreshold,
		DriftThreshold: drift,
		Logger:         log.New(os.Stdout, "[execute] ", log.LstdFlags),
	})

	// Optional persistence sinks
	var records storage.ExecutionRecordStore
	if *postgresDSN != "" {
		pool, err := pgstore.NewPool(ctx, *postgresDSN)
		if err != nil {
			logger.Fatalf("Failed to connect to postgres: %v", err)
		}
		defer pool.Close()
		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			logger.Fatalf("Postgres migrations failed: %v", err)
		}
		records = pgstore.NewExecutionRecordStore(pool)
		logger.Println("Execution ledger enabled (postgres)")
	}
	var events storage.ExecutionEventStore
	if *clickhouseDSN != "" {
		conn, err := migrations.RunClickhouseMigrations(ctx, *clickhouseDSN)
		if err != nil {
			logger.Fatalf("ClickHouse migrations failed: %v", err)
		}
		defer conn.Close()
		events = chstore.NewExecutionEventStore(conn)
		logger.Println("Execution event sink enabled (clickhouse)")
	}

	engineOpts := engine.Options{
		Preloader:       service,
		Executor:        pipeline,
		Refresher:       refresher,
		Records:         records,
		Events:          events,
		Owner:           keypair.PublicKey,
		PriorityEnabled: *bundleURL != "",
		Background:      ctx,
		Logger:          log.New(os.Stdout, "[engine] ", log.LstdFlags),
	}
	if watcher != nil {
		engineOpts.Watcher = watcher
	}
	eng := engine.New(engineOpts)
	defer eng.Close()

	// Channel to signal completion
	done := make(chan struct{})

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, initiating graceful shutdown...", sig)
		cancel()

		// Wait for second signal for immediate shutdown
		select {
		case sig := <-sigCh:
			logger.Printf("Received second signal %v, forcing immediate shutdown", sig)
			os.Exit(1)
		case <-time.After(30 * time.Second):
			logger.Println("Graceful shutdown timed out after 30s, forcing exit")
			os.Exit(1)
		case <-done:
			// Normal shutdown completed
		}
	}()

	srv := &server{engine: eng, logger: logger}
	err = srv.run(ctx, *httpAddr)
	close(done)

	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatalf("HTTP server error: %v", err)
	}
	logger.Println("Shutdown complete")
}

// server serves the engine over HTTP.
type server struct {
	engine *engine.Engine
	logger *log.Logger
}

// run serves until ctx is cancelled, then drains in-flight requests.
func (s *server) run(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/preload", s.handlePreload)
	mux.HandleFunc("/v1/execute", s.handleExecute)
	mux.HandleFunc("/v1/status", s.handleStatus)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", observability.Handler())

	httpSrv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(shutCtx); err != nil {
			s.logger.Printf("HTTP shutdown error: %v", err)
		}
	}()

	s.logger.Printf("Starting HTTP server on %s", addr)
	return httpSrv.ListenAndServe()
}

func (s *server) handlePreload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req engine.PreloadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, engine.Result{Message: "invalid request body: " + err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, s.engine.Preload(r.Context(), req))
}

func (s *server) handleExecute(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req engine.ExecuteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, engine.Result{Message: "invalid request body: " + err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, s.engine.Execute(r.Context(), req))
}

func (s *server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, s.engine.Status(r.Context()))
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

// parsePresets parses a comma-separated list of positive decimals.
func parsePresets(csv string) ([]decimal.Decimal, error) {
	var out []decimal.Decimal
	for _, part := range strings.Split(csv, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		d, err := decimal.NewFromString(part)
		if err != nil {
			return nil, fmt.Errorf("bad preset %q: %w", part, err)
		}
		if !d.IsPositive() {
			return nil, fmt.Errorf("preset %q must be positive", part)
		}
		out = append(out, d)
	}
	if len(out) == 0 {
		return nil, errors.New("no presets given")
	}
	return out, nil
}

// deriveWSURL maps an HTTP RPC endpoint to its WebSocket sibling.
func deriveWSURL(rpcURL string) string {
	switch {
	case strings.HasPrefix(rpcURL, "https://"):
		return "wss://" + strings.TrimPrefix(rpcURL, "https://")
	case strings.HasPrefix(rpcURL, "http://"):
		return "ws://" + strings.TrimPrefix(rpcURL, "http://")
	}
	return rpcURL
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

// loadEnvFile loads environment variables from .env file if it exists.
func loadEnvFile() {
	data, err := os.ReadFile(".env")
	if err != nil {
		return // File doesn't exist, use system env vars
	}

	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		// Don't override existing env vars
		if os.Getenv(key) == "" {
			os.Setenv(key, value)
		}
	}
}
