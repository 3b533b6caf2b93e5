package main

import (
	"bytes"
	"log"
	"strings"
	"testing"

	"github.com/kartikeysoni19/application-tracker/internal/config"
)

// captureLogOutput calls logConfigWarnings with the given config and returns
// the captured log output as a string.
func captureLogOutput(cfg *config.Config) string {
	var buf bytes.Buffer
	original := log.Writer()
	log.SetOutput(&buf)
	defer log.SetOutput(original)

	logConfigWarnings(cfg)
	return buf.String()
}

func TestLogConfigWarnings_NoRedis(t *testing.T) {
	cfg := &config.Config{
		RedisAddr:       "",
		SnapshotEnabled: true,
		MetricsEnabled:  true,
	}
	output := captureLogOutput(cfg)

	if !strings.Contains(output, "WARNING: REDIS_ADDR not set") {
		t.Error("expected no-redis warning, got:", output)
	}
	if strings.Contains(output, "WARNING: SNAPSHOT_ENABLED=false") {
		t.Error("did not expect snapshot warning when snapshots enabled, got:", output)
	}
	if strings.Contains(output, "WARNING: METRICS_ENABLED=false") {
		t.Error("did not expect metrics warning when metrics enabled, got:", output)
	}
}

func TestLogConfigWarnings_AllDisabled(t *testing.T) {
	cfg := &config.Config{}
	output := captureLogOutput(cfg)

	if !strings.Contains(output, "WARNING: SNAPSHOT_ENABLED=false") {
		t.Error("expected snapshot warning, got:", output)
	}
	if !strings.Contains(output, "WARNING: METRICS_ENABLED=false") {
		t.Error("expected metrics warning, got:", output)
	}
}

func TestLogConfigWarnings_BreakerDisabledWithRedis(t *testing.T) {
	cfg := &config.Config{
		RedisAddr:                "localhost:6379",
		SnapshotEnabled:          true,
		MetricsEnabled:           true,
		ActivityBreakerThreshold: 0,
	}
	output := captureLogOutput(cfg)

	if !strings.Contains(output, "INFO: ACTIVITY_BREAKER_THRESHOLD=0") {
		t.Error("expected breaker-disabled info, got:", output)
	}
	if strings.Contains(output, "WARNING: REDIS_ADDR not set") {
		t.Error("did not expect no-redis warning when redis configured, got:", output)
	}
}
