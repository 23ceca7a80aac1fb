package usecase

import (
	"context"
	"time"

	"github.com/econopulse/optionpulse/internal/domain/models"
	"github.com/econopulse/optionpulse/pkg/logger"
)

// Broadcaster pushes a fresh snapshot to connected stream clients.
type Broadcaster interface {
	BroadcastSnapshot(snap *models.Snapshot)
}

// Refresher recomputes the screener on a fixed interval, records the result
// and fans it out to stream subscribers.
type Refresher struct {
	screener    *Screener
	recorder    *SnapshotRecorder
	broadcaster Broadcaster
	log         *logger.Logger
	interval    time.Duration
	limit       int
}

// NewRefresher creates a background refresher. recorder and broadcaster may
// be nil when the corresponding sink is disabled.
func NewRefresher(
	screener *Screener,
	recorder *SnapshotRecorder,
	broadcaster Broadcaster,
	log *logger.Logger,
	interval time.Duration,
	limit int,
) *Refresher {
	return &Refresher{
		screener:    screener,
		recorder:    recorder,
		broadcaster: broadcaster,
		log:         log,
		interval:    interval,
		limit:       limit,
	}
}

// Run refreshes until the context is canceled. The first refresh happens
// immediately so subscribers do not wait a full interval after startup.
func (r *Refresher) Run(ctx context.Context) {
	r.refresh(ctx)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.refresh(ctx)
		}
	}
}

func (r *Refresher) refresh(ctx context.Context) {
	snap, err := r.screener.Snapshot(ctx, nil, r.limit)
	if err != nil {
		r.log.Error("scheduled refresh failed", logger.Error(err))
		return
	}

	r.log.Info("snapshot refreshed",
		logger.Int("contracts", snap.Total),
		logger.Int("universe", len(snap.Universe)))

	if r.recorder != nil {
		if err := r.recorder.Record(ctx, snap); err != nil {
			r.log.Error("snapshot record failed", logger.Error(err))
		}
	}
	if r.broadcaster != nil {
		r.broadcaster.BroadcastSnapshot(snap)
	}
}
