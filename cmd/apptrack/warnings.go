package main

import (
	"log"

	"github.com/kartikeysoni19/application-tracker/internal/config"
)

// logConfigWarnings flags configuration combinations that are valid but
// degrade what the service records or exposes.
func logConfigWarnings(cfg *config.Config) {
	if cfg.RedisAddr == "" {
		log.Println("WARNING: REDIS_ADDR not set; create/update/delete activity will not be counted")
	}

	if cfg.SnapshotEnabled && cfg.RedisAddr == "" {
		log.Println("INFO: snapshots run against Postgres only; REDIS_ADDR is not required for them")
	}

	if !cfg.SnapshotEnabled {
		log.Println("WARNING: SNAPSHOT_ENABLED=false; /jobs/stats/history will stay empty")
	}

	if !cfg.MetricsEnabled {
		log.Println("WARNING: METRICS_ENABLED=false; no visibility into request rates or activity drops")
	}

	if cfg.ActivityBreakerThreshold == 0 && cfg.RedisAddr != "" {
		log.Println("INFO: ACTIVITY_BREAKER_THRESHOLD=0; a slow Redis will be retried on every event")
	}
}
