package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/econopulse/optionpulse/internal/domain/models"
	drepo "github.com/econopulse/optionpulse/internal/domain/repository"
)

// SnapshotRecorder routes computed snapshots to the configured backend.
type SnapshotRecorder struct {
	pub     drepo.SnapshotPublisher
	store   drepo.SnapshotStore
	metrics drepo.Metrics
	backend string
}

// NewSnapshotRecorder creates a recorder. backend is "none", "kafka" or
// "clickhouse"; with "none" recording is a no-op.
func NewSnapshotRecorder(
	pub drepo.SnapshotPublisher,
	store drepo.SnapshotStore,
	metrics drepo.Metrics,
	backend string,
) *SnapshotRecorder {
	return &SnapshotRecorder{
		pub:     pub,
		store:   store,
		metrics: metrics,
		backend: backend,
	}
}

// Record persists every assembled row of a snapshot.
func (r *SnapshotRecorder) Record(ctx context.Context, snap *models.Snapshot) error {
	if snap == nil || len(snap.Contracts) == 0 {
		return nil
	}

	start := time.Now()
	var err error

	switch r.backend {
	case "none":
		return nil
	case "kafka":
		err = r.pub.Publish(ctx, snap.AsOf, snap.Contracts)
	case "clickhouse":
		err = r.store.StoreContracts(ctx, snap.AsOf, snap.Contracts)
	default:
		err = fmt.Errorf("unknown backend: %s", r.backend)
	}

	if err != nil {
		r.metrics.RecordError("record")
		return fmt.Errorf("record snapshot: %w", err)
	}

	r.metrics.RecordSnapshot(r.backend)
	r.metrics.RecordLatency("record", time.Since(start).Seconds())
	return nil
}

// Close closes underlying resources if available.
func (r *SnapshotRecorder) Close() {
	if r.pub != nil {
		_ = r.pub.Close()
	}
	if r.store != nil {
		_ = r.store.Close()
	}
}
