package blob

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// casScript writes a hash {data, ver} only if ver equals ARGV[1].
// An empty ARGV[1] requires the key to be absent.
var casScript = `
local cur = redis.call("HGET", KEYS[1], "ver")
if ARGV[1] == "" then
    if cur then
        return 0
    end
elseif cur ~= ARGV[1] then
    return 0
end
redis.call("HSET", KEYS[1], "data", ARGV[2], "ver", ARGV[3])
return 1
`

// RedisStore keeps each blob in a hash holding the payload and its version token.
type RedisStore struct {
	rdb redis.UniversalClient
}

// NewRedisStore wraps an existing client. The store owns the client and closes it.
func NewRedisStore(rdb redis.UniversalClient) *RedisStore {
	return &RedisStore{rdb: rdb}
}

// Name returns "redis".
func (r *RedisStore) Name() string { return "redis" }

// Get returns the blob stored at key.
func (r *RedisStore) Get(ctx context.Context, key string) ([]byte, Version, error) {
	vals, err := r.rdb.HMGet(ctx, key, "data", "ver").Result()
	if err != nil {
		return nil, NoVersion, fmt.Errorf("%w: get %s: %w", ErrTransient, key, err)
	}
	data, okData := vals[0].(string)
	ver, okVer := vals[1].(string)
	if !okData || !okVer {
		return nil, NoVersion, ErrNotFound
	}
	return []byte(data), Version(ver), nil
}

// Put runs the compare-and-swap script.
func (r *RedisStore) Put(ctx context.Context, key string, data []byte, ifMatch Version) (Version, error) {
	next := uuid.NewString()
	ok, err := r.rdb.Eval(ctx, casScript, []string{key}, string(ifMatch), data, next).Int()
	if err != nil {
		return NoVersion, fmt.Errorf("%w: put %s: %w", ErrTransient, key, err)
	}
	if ok == 0 {
		return NoVersion, ErrPreconditionFailed
	}
	return Version(next), nil
}

// PutUnconditional overwrites key.
func (r *RedisStore) PutUnconditional(ctx context.Context, key string, data []byte) (Version, error) {
	next := uuid.NewString()
	if err := r.rdb.HSet(ctx, key, "data", data, "ver", next).Err(); err != nil {
		return NoVersion, fmt.Errorf("%w: put %s: %w", ErrTransient, key, err)
	}
	return Version(next), nil
}

// Delete removes key.
func (r *RedisStore) Delete(ctx context.Context, key string) error {
	if err := r.rdb.Del(ctx, key).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("%w: delete %s: %w", ErrTransient, key, err)
	}
	return nil
}

// Close closes the client.
func (r *RedisStore) Close() error {
	return r.rdb.Close()
}
