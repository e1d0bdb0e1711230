package events

import (
	"context"
	"fmt"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/db"
)

type SequenceRepository struct {
	pool db.DBPool
}

func NewSequenceRepository(pool db.DBPool) *SequenceRepository {
	return &SequenceRepository{pool: pool}
}

// NextSequence increments and returns the partition's counter in a single
// upsert, starting at 1.
func (r *SequenceRepository) NextSequence(ctx context.Context, partitionKey string) (int64, error) {
	if partitionKey == "" {
		return 0, fmt.Errorf("partition key is required")
	}

	var next int64
	if err := r.pool.QueryRow(ctx, `
		INSERT INTO event_sequences (partition_key, last_sequence, updated_at)
		VALUES ($1, 1, NOW())
		ON CONFLICT (partition_key) DO UPDATE
		SET last_sequence = event_sequences.last_sequence + 1, updated_at = NOW()
		RETURNING last_sequence
	`, partitionKey).Scan(&next); err != nil {
		return 0, fmt.Errorf("increment sequence: %w", err)
	}
	return next, nil
}
