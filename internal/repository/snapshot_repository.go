package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/econopulse/optionpulse/internal/domain/models"
	drepo "github.com/econopulse/optionpulse/internal/domain/repository"
	pkgkafka "github.com/econopulse/optionpulse/pkg/kafka"
)

// SchemaStatements returns idempotent DDL for the contract snapshot table.
func SchemaStatements(database, table string) []string {
	return []string{
		fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", database),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.%s (
			as_of         DateTime,
			symbol        LowCardinality(String),
			contract_id   String,
			type          LowCardinality(String),
			last          Nullable(Float64),
			change_abs    Nullable(Float64),
			change_pct    Nullable(Float64),
			volume        Int64,
			open_interest Int64,
			iv_pct        Nullable(Float64),
			strike        Float64,
			expiry        DateTime,
			delta         Float64,
			delta_signed  Float64,
			gamma         Float64
		) ENGINE = MergeTree()
		PARTITION BY toYYYYMMDD(as_of)
		ORDER BY (symbol, as_of, contract_id)
		TTL as_of + INTERVAL 30 DAY`, database, table),
	}
}

// ClickHouseSnapshotStore persists screener rows to ClickHouse.
type ClickHouseSnapshotStore struct {
	db    *sql.DB
	table string
}

// NewClickHouseSnapshotStore creates ClickHouse snapshot storage.
func NewClickHouseSnapshotStore(db *sql.DB, table string) drepo.SnapshotStore {
	return &ClickHouseSnapshotStore{db: db, table: table}
}

func (s *ClickHouseSnapshotStore) StoreContracts(ctx context.Context, asOf time.Time, rows []models.Contract) error {
	if len(rows) == 0 {
		return nil
	}

	// Multi-row VALUES inserts chunked to keep statements bounded.
	const chunkSize = 2000
	for start := 0; start < len(rows); start += chunkSize {
		end := min(start+chunkSize, len(rows))

		values := make([]string, 0, end-start)
		args := make([]interface{}, 0, (end-start)*15)
		for _, c := range rows[start:end] {
			if c.ContractID == "" {
				continue
			}
			values = append(values, "(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)")
			args = append(args,
				asOf,
				c.Symbol,
				c.ContractID,
				string(c.Type),
				c.Last,
				c.ChangeAbs,
				c.ChangePct,
				c.Volume,
				c.OpenInterest,
				c.IVPct,
				c.Strike,
				time.Unix(c.Expiry, 0),
				c.Delta,
				c.DeltaSigned,
				c.Gamma,
			)
		}
		if len(values) == 0 {
			continue
		}
		q := fmt.Sprintf("INSERT INTO %s (as_of, symbol, contract_id, type, last, change_abs, change_pct, volume, open_interest, iv_pct, strike, expiry, delta, delta_signed, gamma) VALUES %s",
			s.table, strings.Join(values, ","))
		if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
			return fmt.Errorf("insert contracts: %w", err)
		}
	}
	return nil
}

func (s *ClickHouseSnapshotStore) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *ClickHouseSnapshotStore) Close() error {
	return nil // pool managed by pkg/clickhouse
}

// KafkaSnapshotPublisher publishes screener rows to a Kafka topic, keyed by
// underlying symbol so per-symbol ordering survives partitioning.
type KafkaSnapshotPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

// NewKafkaSnapshotPublisher creates a Kafka snapshot publisher.
func NewKafkaSnapshotPublisher(producer *pkgkafka.Producer, topic string) drepo.SnapshotPublisher {
	return &KafkaSnapshotPublisher{producer: producer, topic: topic}
}

func (p *KafkaSnapshotPublisher) Publish(ctx context.Context, asOf time.Time, rows []models.Contract) error {
	if len(rows) == 0 {
		return nil
	}
	msgs := make([]pkgkafka.Message, len(rows))
	for i, c := range rows {
		msgs[i] = pkgkafka.Message{
			Key:   []byte(c.Symbol),
			Value: models.ContractEvent{AsOf: asOf.Unix(), Contract: c},
		}
	}
	return p.producer.PublishBatch(ctx, p.topic, msgs)
}

func (p *KafkaSnapshotPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}
