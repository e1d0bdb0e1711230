package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/middleware"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/notify"
)

const (
	RowChangedEventName = "RowChanged"
	RowChangedVersion   = 1
	RowChangedSchema    = "storefront.row_changed.v1"
)

type RowChanged struct {
	Table     string    `json:"table"`
	Op        string    `json:"op"`
	UserID    string    `json:"userId"`
	RowID     string    `json:"rowId,omitempty"`
	ChangedAt time.Time `json:"changedAt"`
}

// Sequencer hands out per-partition event sequence numbers.
type Sequencer interface {
	NextSequence(ctx context.Context, partitionKey string) (int64, error)
}

// PartitionKey groups a user's changes to one table so consumers see them in
// order.
func PartitionKey(c notify.Change) string {
	return c.Table + ":" + c.UserID
}

// RoutingKey is the topic routing key for a change, e.g. "cart.changed.v1".
func RoutingKey(c notify.Change) string {
	return fmt.Sprintf("%s.changed.v%d", c.Table, RowChangedVersion)
}

func buildRowChanged(ctx context.Context, c notify.Change, seq Sequencer) (EventEnvelope[RowChanged], []byte, error) {
	key := PartitionKey(c)
	env := EventEnvelope[RowChanged]{
		EventName:     RowChangedEventName,
		EventVersion:  RowChangedVersion,
		EventID:       uuid.NewString(),
		CorrelationID: middleware.GetCorrelationID(ctx),
		Producer:      producerName,
		PartitionKey:  key,
		OccurredAt:    time.Now().UTC(),
		Schema:        RowChangedSchema,
		Payload: RowChanged{
			Table:     c.Table,
			Op:        c.Op,
			UserID:    c.UserID,
			RowID:     c.RowID,
			ChangedAt: c.At,
		},
	}

	if seq != nil {
		n, err := seq.NextSequence(ctx, key)
		if err != nil {
			return env, nil, fmt.Errorf("next sequence: %w", err)
		}
		env.Sequence = &n
	}

	body, err := json.Marshal(env)
	if err != nil {
		return env, nil, fmt.Errorf("marshal %s: %w", RowChangedEventName, err)
	}
	return env, body, nil
}
