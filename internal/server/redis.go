package server

import (
	"context"
	"errors"
	"strings"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefixConstant = "rtfr:"

// ErrRedisAddressRequired indicates a redis backend without an address.
var ErrRedisAddressRequired = errors.New("redis address required")

// RedisOptions configures the redis document store.
type RedisOptions struct {
	Address  string
	Password string
	Database int
}

// RedisStore keeps documents in redis under a common key prefix.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore connects lazily to the configured server.
func NewRedisStore(options RedisOptions) (*RedisStore, error) {
	if len(strings.TrimSpace(options.Address)) == 0 {
		return nil, ErrRedisAddressRequired
	}
	client := redis.NewClient(&redis.Options{Addr: options.Address, Password: options.Password, DB: options.Database})
	return &RedisStore{client: client}, nil
}

// Ping verifies the server answers.
func (store *RedisStore) Ping(executionContext context.Context) error {
	return store.client.Ping(executionContext).Err()
}

// Get returns the value stored at key.
func (store *RedisStore) Get(executionContext context.Context, key string) ([]byte, bool, error) {
	value, getError := store.client.Get(executionContext, redisKeyPrefixConstant+key).Bytes()
	if errors.Is(getError, redis.Nil) {
		return nil, false, nil
	}
	if getError != nil {
		return nil, false, getError
	}
	return value, true, nil
}

// Put stores value at key without expiry.
func (store *RedisStore) Put(executionContext context.Context, key string, value []byte) error {
	return store.client.Set(executionContext, redisKeyPrefixConstant+key, value, 0).Err()
}

// Delete removes key.
func (store *RedisStore) Delete(executionContext context.Context, key string) error {
	return store.client.Del(executionContext, redisKeyPrefixConstant+key).Err()
}

// Close releases the connection pool.
func (store *RedisStore) Close() error {
	return store.client.Close()
}
