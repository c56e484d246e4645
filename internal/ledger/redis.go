package ledger

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"

	"github.com/ledgerchat/ledgerchat/internal/address"
)

const keyPrefix = "rec:"

// appendScript commits a message record and the counter advance as one
// atomic evaluation. KEYS[1] = counter, KEYS[2] = message;
// ARGV[1] = expected counter, ARGV[2] = new counter, ARGV[3] = message value.
var appendScript = redis.NewScript(`
if redis.call("EXISTS", KEYS[2]) == 1 then
	return "exists"
end
local cur = redis.call("GET", KEYS[1])
if not cur then
	return "missing"
end
if cur ~= ARGV[1] then
	return "conflict"
end
redis.call("SET", KEYS[2], ARGV[3])
redis.call("SET", KEYS[1], ARGV[2])
return "ok"
`)

// updateScript is a compare-and-swap on a single record. KEYS[1] = record;
// ARGV[1] = expected value, ARGV[2] = new value.
var updateScript = redis.NewScript(`
local cur = redis.call("GET", KEYS[1])
if not cur then
	return "missing"
end
if cur ~= ARGV[1] then
	return "conflict"
end
redis.call("SET", KEYS[1], ARGV[2])
return "ok"
`)

// RedisStore backs a ledger with Redis. Multi-key commits run as Lua scripts
// so they are atomic with respect to concurrent appenders.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore creates a Redis-backed store.
func NewRedisStore(ctx context.Context, redisURL string) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opts)

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &RedisStore{client: client}, nil
}

// Close closes the Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// Ping checks the Redis connection.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func recordKey(addr address.Address) string {
	return keyPrefix + addr.String()
}

// Get returns the record at addr.
func (s *RedisStore) Get(ctx context.Context, addr address.Address) ([]byte, error) {
	value, err := s.client.Get(ctx, recordKey(addr)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return value, nil
}

// PutIfAbsent creates the record at addr.
func (s *RedisStore) PutIfAbsent(ctx context.Context, addr address.Address, value []byte) error {
	created, err := s.client.SetNX(ctx, recordKey(addr), value, 0).Result()
	if err != nil {
		return err
	}
	if !created {
		return ErrAlreadyExists
	}
	return nil
}

// Update replaces the record at addr if it currently holds old.
func (s *RedisStore) Update(ctx context.Context, addr address.Address, old, value []byte) error {
	result, err := updateScript.Run(ctx, s.client, []string{recordKey(addr)}, old, value).Text()
	if err != nil {
		return err
	}
	switch result {
	case "ok":
		return nil
	case "missing":
		return ErrNotFound
	default:
		return ErrConflict
	}
}

// AppendMessage commits the message record and the counter advance atomically.
func (s *RedisStore) AppendMessage(ctx context.Context, counterAddr address.Address, oldCounter, newCounter []byte, msgAddr address.Address, msgValue []byte) error {
	result, err := appendScript.Run(ctx, s.client,
		[]string{recordKey(counterAddr), recordKey(msgAddr)},
		oldCounter, newCounter, msgValue,
	).Text()
	if err != nil {
		return err
	}
	switch result {
	case "ok":
		return nil
	case "exists":
		return ErrAlreadyExists
	case "missing":
		return ErrNotFound
	default:
		return ErrConflict
	}
}
