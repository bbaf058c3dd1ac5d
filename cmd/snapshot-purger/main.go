package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	pantrypostgres "github.com/Apurer/pantry-partner-api/internal/domains/pantry/adapters/persistence/postgres"
	platformpostgres "github.com/Apurer/pantry-partner-api/internal/platform/postgres"
)

// defaultSnapshotTTL is how long snapshots are kept when SNAPSHOT_TTL_HOURS is unset.
const defaultSnapshotTTL = 24 * time.Hour

func main() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	db, cleanup, err := platformpostgres.ConnectFromEnv(ctx, logger)
	defer cleanup()
	if err != nil {
		log.Fatalf("cannot purge snapshots: %v", err)
	}

	cutoff := time.Now().Add(-snapshotTTLFromEnv())
	purged, err := pantrypostgres.NewSnapshotStore(db).PurgeOlderThan(ctx, cutoff)
	if err != nil {
		log.Fatalf("failed to purge snapshots: %v", err)
	}
	logger.Info("snapshot purge completed", slog.Int64("purged", purged), slog.Time("cutoff", cutoff))
}

func snapshotTTLFromEnv() time.Duration {
	raw := strings.TrimSpace(os.Getenv("SNAPSHOT_TTL_HOURS"))
	if raw == "" {
		return defaultSnapshotTTL
	}
	hours, err := strconv.Atoi(raw)
	if err != nil || hours <= 0 {
		return defaultSnapshotTTL
	}
	return time.Duration(hours) * time.Hour
}
