package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/econopulse/optionpulse/internal/domain/models"
	drepo "github.com/econopulse/optionpulse/internal/domain/repository"
	"github.com/econopulse/optionpulse/pkg/logger"
)

// SnapshotIngest consumes published contract events and lands them in the
// snapshot store. Used when snapshots flow through Kafka and a separate
// consumer writes ClickHouse.
type SnapshotIngest struct {
	store   drepo.SnapshotStore
	metrics drepo.Metrics
	log     *logger.Logger
}

// NewSnapshotIngest creates a Kafka message handler backed by a store.
func NewSnapshotIngest(store drepo.SnapshotStore, metrics drepo.Metrics, log *logger.Logger) *SnapshotIngest {
	return &SnapshotIngest{store: store, metrics: metrics, log: log}
}

// Handle decodes one contract event and stores it. Malformed payloads are
// dropped without error so they cannot wedge the partition.
func (h *SnapshotIngest) Handle(ctx context.Context, key, value []byte) error {
	var ev models.ContractEvent
	if err := json.Unmarshal(value, &ev); err != nil {
		h.metrics.RecordError("ingest_decode")
		h.log.Warn("dropping malformed contract event",
			logger.String("key", string(key)), logger.Error(err))
		return nil
	}
	if ev.Contract.ContractID == "" {
		return nil
	}

	if err := h.store.StoreContracts(ctx, time.Unix(ev.AsOf, 0), []models.Contract{ev.Contract}); err != nil {
		h.metrics.RecordError("ingest_store")
		return fmt.Errorf("store contract %s: %w", ev.Contract.ContractID, err)
	}
	return nil
}
