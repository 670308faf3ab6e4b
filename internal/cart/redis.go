package cart

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// decreaseScript lowers one entry by one and deletes it at zero. It returns
// the new quantity, or -1 when the entry does not exist.
var decreaseScript = redis.NewScript(`
local q = redis.call('HGET', KEYS[1], ARGV[1])
if not q then
	return -1
end
q = tonumber(q) - 1
if q <= 0 then
	redis.call('HDEL', KEYS[1], ARGV[1])
	q = 0
else
	redis.call('HSET', KEYS[1], ARGV[1], q)
end
redis.call('EXPIRE', KEYS[1], ARGV[2])
return q
`)

// RedisStore keeps one cart per session id in a Redis hash of
// product id -> quantity. Every access slides the expiry.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func cartKey(sessionID string) string {
	return "cart:" + sessionID
}

func field(productID int64) string {
	return strconv.FormatInt(productID, 10)
}

func (s *RedisStore) Load(ctx context.Context, sessionID string) (Cart, error) {
	key := cartKey(sessionID)

	var values *redis.MapStringStringCmd
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		values = pipe.HGetAll(ctx, key)
		pipe.Expire(ctx, key, s.ttl)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("load cart: %w", err)
	}

	return parseCart(values.Val()), nil
}

// Add increments the product's quantity by delta and returns the updated cart.
func (s *RedisStore) Add(ctx context.Context, sessionID string, productID int64, delta int) (Cart, error) {
	if delta < 1 {
		return nil, fmt.Errorf("add to cart: quantity must be positive, got %d", delta)
	}

	key := cartKey(sessionID)

	var values *redis.MapStringStringCmd
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HIncrBy(ctx, key, field(productID), int64(delta))
		pipe.Expire(ctx, key, s.ttl)
		values = pipe.HGetAll(ctx, key)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("add to cart: %w", err)
	}

	return parseCart(values.Val()), nil
}

// Decrease lowers the product's quantity by one, removing it at zero. It
// returns ErrNotInCart when the product is absent.
func (s *RedisStore) Decrease(ctx context.Context, sessionID string, productID int64) (Cart, error) {
	quantity, err := decreaseScript.Run(ctx, s.client,
		[]string{cartKey(sessionID)},
		field(productID), int64(s.ttl/time.Second)).Int64()
	if err != nil {
		return nil, fmt.Errorf("decrease cart item: %w", err)
	}
	if quantity < 0 {
		return nil, ErrNotInCart
	}

	return s.Load(ctx, sessionID)
}

func (s *RedisStore) Remove(ctx context.Context, sessionID string, productID int64) (Cart, error) {
	if err := s.Prune(ctx, sessionID, productID); err != nil {
		return nil, err
	}
	return s.Load(ctx, sessionID)
}

// Prune drops the given products from the cart, typically ids that no
// longer resolve against the catalog.
func (s *RedisStore) Prune(ctx context.Context, sessionID string, productIDs ...int64) error {
	if len(productIDs) == 0 {
		return nil
	}

	fields := make([]string, len(productIDs))
	for i, id := range productIDs {
		fields[i] = field(id)
	}

	if err := s.client.HDel(ctx, cartKey(sessionID), fields...).Err(); err != nil {
		return fmt.Errorf("prune cart: %w", err)
	}
	return nil
}

func (s *RedisStore) Clear(ctx context.Context, sessionID string) error {
	if err := s.client.Del(ctx, cartKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	return nil
}

// parseCart skips fields that are not a product id with a positive quantity.
func parseCart(values map[string]string) Cart {
	c := make(Cart, len(values))
	for k, v := range values {
		id, err := strconv.ParseInt(k, 10, 64)
		if err != nil {
			continue
		}
		quantity, err := strconv.Atoi(v)
		if err != nil || quantity < 1 {
			continue
		}
		c[id] = quantity
	}
	return c
}
