package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"

	"github.com/kartikeysoni19/application-tracker/internal/activity"
	"github.com/kartikeysoni19/application-tracker/internal/api"
	"github.com/kartikeysoni19/application-tracker/internal/auth"
	"github.com/kartikeysoni19/application-tracker/internal/circuitbreaker"
	"github.com/kartikeysoni19/application-tracker/internal/config"
	"github.com/kartikeysoni19/application-tracker/internal/metrics"
	"github.com/kartikeysoni19/application-tracker/internal/snapshot"
	"github.com/kartikeysoni19/application-tracker/internal/store/postgres"
	"github.com/kartikeysoni19/application-tracker/internal/transport/channel"

	_ "github.com/lib/pq"
)

// Build-time variables set via -ldflags
var (
	version = "dev"
	commit  = "unknown"
)

const (
	exitSuccess       = 0
	exitRuntimeError  = 1
	exitInvalidConfig = 2
)

func main() {
	// A .env file is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(exitRuntimeError)
	}

	cmd := os.Args[1]

	switch cmd {
	case "serve":
		os.Exit(runServe())
	case "validate":
		os.Exit(runValidate())
	case "config":
		os.Exit(runConfig())
	case "version":
		os.Exit(runVersion())
	case "--help", "-h", "help":
		printUsage()
		os.Exit(exitSuccess)
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", cmd)
		printUsage()
		os.Exit(exitRuntimeError)
	}
}

func printUsage() {
	fmt.Println(`apptrack - personal job application tracker

Usage:
  apptrack <command>

Commands:
  serve      Start the API server
  validate   Validate configuration (no connections made)
  config     Print effective configuration as JSON (secrets masked)
  version    Print version information

Environment Variables:
  DATABASE_URL                PostgreSQL connection string (required)
  REDIS_ADDR                  Redis address for activity counters (optional)
  HTTP_ADDR                   HTTP server address (default: ":8080")

  DB_OP_TIMEOUT               Database operation timeout (default: "5s")
  DB_MAX_OPEN_CONNS           Max open database connections (default: "25")
  DB_MAX_IDLE_CONNS           Max idle database connections (default: "5")
  DB_CONN_MAX_LIFETIME        Max connection lifetime (default: "30m")
  DB_CONN_MAX_IDLE_TIME       Max connection idle time (default: "5m")

  HTTP_SHUTDOWN_TIMEOUT       Graceful HTTP shutdown timeout (default: "10s")

  METRICS_ENABLED             Enable Prometheus metrics (default: "false")
  METRICS_PATH                Metrics endpoint path (default: "/metrics")
  METRICS_PORT                Metrics server port (default: "9090")

  ACTIVITY_BUFFER_SIZE        Activity event buffer capacity (default: "100")
  ACTIVITY_RETENTION          Redis activity counter TTL (default: "720h")
  ACTIVITY_DRAIN_TIMEOUT      Activity drain timeout on shutdown (default: "10s")
  ACTIVITY_BREAKER_THRESHOLD  Failures before Redis writes pause, 0 disables (default: "5")
  ACTIVITY_BREAKER_COOLDOWN   Pause before retrying Redis writes (default: "2m")

  SNAPSHOT_ENABLED            Enable scheduled stats snapshots (default: "false")
  SNAPSHOT_SCHEDULE           Snapshot cron expression (default: "0 6 * * *")
  SNAPSHOT_LOCK_KEY           Advisory lock key shared across instances (default: "914217")`)
}

func runServe() int {
	cfg := config.Load()

	if err := config.Validate(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		return exitInvalidConfig
	}

	logConfigWarnings(&cfg)

	// Connect to PostgreSQL
	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to open database: %v\n", err)
		return exitRuntimeError
	}
	defer db.Close()

	// Configure connection pool
	db.SetMaxOpenConns(cfg.DBMaxOpenConns)
	db.SetMaxIdleConns(cfg.DBMaxIdleConns)
	db.SetConnMaxLifetime(cfg.DBConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.DBConnMaxIdleTime)

	log.Printf("apptrack: db pool configured (max_open=%d, max_idle=%d, max_lifetime=%s, max_idle_time=%s)",
		cfg.DBMaxOpenConns, cfg.DBMaxIdleConns, cfg.DBConnMaxLifetime, cfg.DBConnMaxIdleTime)

	if err := db.Ping(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to connect to database: %v\n", err)
		return exitRuntimeError
	}

	if err := probeTokensTable(db); err != nil {
		log.Printf("apptrack: api_tokens table not found (%v); all requests will be rejected until it exists", err)
	}

	store := postgres.New(db, cfg.DBOpTimeout)
	resolver := auth.NewStoreResolver(store)

	// Initialize metrics sink (optional)
	var metricsSink *metrics.PrometheusSink
	var metricsServer *http.Server

	if cfg.MetricsEnabled {
		metricsSink = metrics.NewPrometheusSink(prometheus.DefaultRegisterer)
		log.Printf("apptrack: metrics enabled (port=%s, path=%s)", cfg.MetricsPort, cfg.MetricsPath)

		// Start metrics HTTP server on separate port
		metricsMux := http.NewServeMux()
		metricsMux.Handle(cfg.MetricsPath, promhttp.Handler())
		metricsServer = &http.Server{
			Addr:    ":" + cfg.MetricsPort,
			Handler: metricsMux,
		}
		go func() {
			log.Printf("apptrack: metrics server listening on :%s", cfg.MetricsPort)
			if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("apptrack: metrics server error: %v", err)
			}
		}()
	} else {
		log.Println("apptrack: METRICS_ENABLED not set; metrics disabled")
	}

	// Create activity event bus with optional metrics
	var busOpts []channel.Option
	if metricsSink != nil {
		busOpts = append(busOpts, channel.WithMetrics(metricsSink))
	}
	bus := channel.NewEventBus(cfg.ActivityBufferSize, busOpts...)

	// Wire the activity recorder: Redis counters if configured, no-op otherwise.
	var activitySink activity.Sink
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr: cfg.RedisAddr,
		})
		activitySink = activity.NewRedisSink(redisClient, cfg.ActivityRetention)
		log.Printf("apptrack: activity counters enabled (redis=%s, retention=%s)", cfg.RedisAddr, cfg.ActivityRetention)
	} else {
		activitySink = activity.NoopSink{}
		log.Println("apptrack: REDIS_ADDR not set; activity counters disabled")
	}

	recorder := activity.New(activitySink).
		WithDrainTimeout(cfg.ActivityDrainTimeout)
	if cfg.ActivityBreakerThreshold > 0 {
		recorder = recorder.WithBreaker(circuitbreaker.New(cfg.ActivityBreakerThreshold, cfg.ActivityBreakerCooldown))
	}
	if metricsSink != nil {
		recorder = recorder.WithMetrics(metricsSink)
	}

	// Create API handler with the same store instance
	apiHandler := api.NewHandler(store, resolver).
		WithHealthChecker(db).
		WithActivity(bus)
	if metricsSink != nil {
		apiHandler = apiHandler.WithMetrics(metricsSink)
	}

	// Start HTTP server with API handler
	httpServer := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: apiHandler,
	}

	go func() {
		log.Printf("apptrack: http server listening on %s", cfg.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("apptrack: http server error: %v", err)
		}
	}()

	// Use separate contexts for the recorder and snapshotter to enable ordered shutdown.
	recorderCtx, cancelRecorder := context.WithCancel(context.Background())

	var recorderWg sync.WaitGroup
	var snapshotWg sync.WaitGroup
	var cancelSnapshot context.CancelFunc

	recorderWg.Add(1)
	go func() {
		defer recorderWg.Done()
		recorder.Run(recorderCtx, bus.Channel())
	}()

	// Start snapshotter if enabled
	if cfg.SnapshotEnabled {
		sched, err := cron.ParseStandard(cfg.SnapshotSchedule)
		if err != nil {
			// Validate() already checked the expression; this is unreachable in practice.
			fmt.Fprintf(os.Stderr, "invalid SNAPSHOT_SCHEDULE: %v\n", err)
			cancelRecorder()
			return exitInvalidConfig
		}
		var snapshotCtx context.Context
		snapshotCtx, cancelSnapshot = context.WithCancel(context.Background())
		snap := snapshot.New(
			snapshot.Config{
				Schedule: sched,
				LockKey:  cfg.SnapshotLockKey,
			},
			store,
		).WithLocker(store)
		if metricsSink != nil {
			snap = snap.WithMetrics(metricsSink)
		}
		snapshotWg.Add(1)
		go func() {
			defer snapshotWg.Done()
			snap.Run(snapshotCtx)
		}()
		log.Printf("apptrack: snapshots enabled (schedule=%q, lock_key=%d)", cfg.SnapshotSchedule, cfg.SnapshotLockKey)
	} else {
		log.Println("apptrack: SNAPSHOT_ENABLED not set; stats snapshots disabled")
	}

	log.Printf("apptrack: started (http=%s)", cfg.HTTPAddr)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	received := <-sig

	log.Printf("apptrack: received signal %v, shutting down", received)

	// Phase 1: Stop HTTP server (no new requests, no new activity events)
	log.Println("apptrack: stopping http server...")
	httpShutdownCtx, httpShutdownCancel := context.WithTimeout(context.Background(), cfg.HTTPShutdownTimeout)
	defer httpShutdownCancel()
	if err := httpServer.Shutdown(httpShutdownCtx); err != nil {
		log.Printf("apptrack: http server shutdown error: %v", err)
	}
	log.Println("apptrack: http server stopped")

	// Phase 2: Stop snapshotter
	if cancelSnapshot != nil {
		log.Println("apptrack: stopping snapshotter...")
		cancelSnapshot()
		snapshotWg.Wait()
		log.Println("apptrack: snapshotter stopped")
	}

	// Phase 3: Stop activity recorder (drains buffered events before returning)
	log.Println("apptrack: stopping activity recorder (draining events)...")
	cancelRecorder()
	recorderWg.Wait()
	log.Println("apptrack: activity recorder stopped")

	// Phase 4: Stop metrics server if running
	if metricsServer != nil {
		log.Println("apptrack: stopping metrics server...")
		metricsShutdownCtx, metricsShutdownCancel := context.WithTimeout(context.Background(), cfg.HTTPShutdownTimeout)
		defer metricsShutdownCancel()
		if err := metricsServer.Shutdown(metricsShutdownCtx); err != nil {
			log.Printf("apptrack: metrics server shutdown error: %v", err)
		}
		log.Println("apptrack: metrics server stopped")
	}

	log.Println("apptrack: stopped")
	return exitSuccess
}

func runValidate() int {
	cfg := config.Load()

	if err := config.Validate(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return exitInvalidConfig
	}

	fmt.Println("configuration valid")
	return exitSuccess
}

func runConfig() int {
	cfg := config.Load()

	data, err := cfg.MaskedJSON()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to marshal config: %v\n", err)
		return exitRuntimeError
	}

	fmt.Println(string(data))
	return exitSuccess
}

func runVersion() int {
	fmt.Printf("apptrack version %s (commit: %s)\n", version, commit)
	return exitSuccess
}
