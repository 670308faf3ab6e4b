package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/safar/go-storefront/internal/cart"
	"github.com/shopspring/decimal"
)

// Snapshot is the priced cart captured when a checkout session is created.
// The same unit prices are sent to the payment provider and written to the order.
type Snapshot struct {
	UserID    int64           `json:"user_id"`
	Currency  string          `json:"currency"`
	Lines     []SnapshotLine  `json:"lines"`
	Total     decimal.Decimal `json:"total"`
	CreatedAt time.Time       `json:"created_at"`
}

type SnapshotLine struct {
	ProductID int64           `json:"product_id"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

func newSnapshot(userID int64, currency string, res cart.Resolution, now time.Time) Snapshot {
	snap := Snapshot{
		UserID:    userID,
		Currency:  currency,
		Lines:     make([]SnapshotLine, 0, len(res.Lines)),
		Total:     res.Total,
		CreatedAt: now,
	}
	for _, line := range res.Lines {
		snap.Lines = append(snap.Lines, SnapshotLine{
			ProductID: line.Product.ID,
			Name:      line.Product.Name,
			Quantity:  line.Quantity,
			UnitPrice: line.Product.Price,
		})
	}
	return snap
}

type Snapshots interface {
	Save(ctx context.Context, paymentID string, snap Snapshot) error
	// Load returns ErrSnapshotNotFound when nothing is stored for paymentID.
	Load(ctx context.Context, paymentID string) (*Snapshot, error)
	Delete(ctx context.Context, paymentID string) error
}

// RedisSnapshots stores snapshots as JSON under checkout:<payment id>.
type RedisSnapshots struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisSnapshots(client *redis.Client, ttl time.Duration) *RedisSnapshots {
	return &RedisSnapshots{client: client, ttl: ttl}
}

func snapshotKey(paymentID string) string {
	return "checkout:" + paymentID
}

func (s *RedisSnapshots) Save(ctx context.Context, paymentID string, snap Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	if err := s.client.Set(ctx, snapshotKey(paymentID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}

func (s *RedisSnapshots) Load(ctx context.Context, paymentID string) (*Snapshot, error) {
	data, err := s.client.Get(ctx, snapshotKey(paymentID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrSnapshotNotFound
		}
		return nil, fmt.Errorf("load snapshot: %w", err)
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	return &snap, nil
}

func (s *RedisSnapshots) Delete(ctx context.Context, paymentID string) error {
	if err := s.client.Del(ctx, snapshotKey(paymentID)).Err(); err != nil {
		return fmt.Errorf("delete snapshot: %w", err)
	}
	return nil
}
