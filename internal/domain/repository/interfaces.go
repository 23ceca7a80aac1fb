package repository

import (
	"context"
	"time"

	"github.com/econopulse/optionpulse/internal/domain/models"
)

// ChainProvider hands out raw option chains and a ranked most-active symbol
// list. Implementations coerce upstream payloads into domain models once, at
// the boundary.
type ChainProvider interface {
	OptionChain(ctx context.Context, symbol string) (*models.OptionChain, error)
	MostActives(ctx context.Context, count int) ([]string, error)
}

// SnapshotPublisher pushes computed contracts to a message backend.
type SnapshotPublisher interface {
	Publish(ctx context.Context, asOf time.Time, rows []models.Contract) error
	Close() error
}

// SnapshotStore persists computed contracts.
type SnapshotStore interface {
	StoreContracts(ctx context.Context, asOf time.Time, rows []models.Contract) error
	Health(ctx context.Context) error
	Close() error
}

// Metrics records operational counters for the screener pipeline.
type Metrics interface {
	RecordChainFetch(result string)
	RecordContracts(n int)
	RecordRateLimited(route string)
	RecordSnapshot(backend string)
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
}
