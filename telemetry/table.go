// Package telemetry publishes target poses to the robot controller's key/value table.
package telemetry

import (
	"context"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// Table is a flat key to scalar mapping shared with the robot controller.
type Table interface {
	PutNumber(ctx context.Context, key string, value float64) error
	PutBoolean(ctx context.Context, key string, value bool) error
}

// Backend is a Table behind a connection that may or may not be up yet.
type Backend interface {
	Table
	Ping(ctx context.Context) error
	Close() error
}

// RedisTable stores one table as a redis hash named after it.
type RedisTable struct {
	client *redis.Client
	name   string
}

// RedisOptions configures NewRedisTable.
type RedisOptions struct {
	Address     string
	Password    string
	DB          int
	Table       string
	DialTimeout time.Duration
}

// NewRedisTable returns a table writing to the hash opts.Table. No connection is made until the
// first command; use Ping, usually through a Connector, to wait for the server.
func NewRedisTable(opts RedisOptions) (*RedisTable, error) {
	if opts.Address == "" {
		return nil, errors.New("redis address required")
	}
	if opts.Table == "" {
		return nil, errors.New("table name required")
	}
	client := redis.NewClient(&redis.Options{
		Addr:        opts.Address,
		Password:    opts.Password,
		DB:          opts.DB,
		DialTimeout: opts.DialTimeout,
		// a Connector retries on its own schedule.
		MaxRetries: -1,
	})
	return &RedisTable{client: client, name: opts.Table}, nil
}

// Name of the hash.
func (rt *RedisTable) Name() string {
	return rt.name
}

// PutNumber sets key to value, formatted without loss of precision.
func (rt *RedisTable) PutNumber(ctx context.Context, key string, value float64) error {
	return errors.Wrapf(rt.client.HSet(ctx, rt.name, key, strconv.FormatFloat(value, 'f', -1, 64)).Err(),
		"cannot set %s.%s", rt.name, key)
}

// PutBoolean sets key to "true" or "false".
func (rt *RedisTable) PutBoolean(ctx context.Context, key string, value bool) error {
	return errors.Wrapf(rt.client.HSet(ctx, rt.name, key, strconv.FormatBool(value)).Err(),
		"cannot set %s.%s", rt.name, key)
}

// Ping checks the server answers.
func (rt *RedisTable) Ping(ctx context.Context) error {
	return rt.client.Ping(ctx).Err()
}

// Close closes the client.
func (rt *RedisTable) Close() error {
	return rt.client.Close()
}

// MemoryTable keeps values in memory. It is used by tests.
type MemoryTable struct {
	mu     sync.Mutex
	values map[string]interface{}
	writes int

	// PingErr, if set, is returned by Ping PingFailures times before pings succeed. A negative
	// PingFailures fails forever.
	PingErr      error
	PingFailures int
	// PutErr, if set, is returned by every Put.
	PutErr error
}

// NewMemoryTable returns an empty table.
func NewMemoryTable() *MemoryTable {
	return &MemoryTable{values: map[string]interface{}{}}
}

func (mt *MemoryTable) put(key string, v interface{}) error {
	mt.mu.Lock()
	defer mt.mu.Unlock()
	if mt.PutErr != nil {
		return mt.PutErr
	}
	mt.values[key] = v
	mt.writes++
	return nil
}

// PutNumber stores value.
func (mt *MemoryTable) PutNumber(ctx context.Context, key string, value float64) error {
	return mt.put(key, value)
}

// PutBoolean stores value.
func (mt *MemoryTable) PutBoolean(ctx context.Context, key string, value bool) error {
	return mt.put(key, value)
}

// Number returns the number stored at key.
func (mt *MemoryTable) Number(key string) (float64, bool) {
	mt.mu.Lock()
	defer mt.mu.Unlock()
	v, ok := mt.values[key].(float64)
	return v, ok
}

// Boolean returns the boolean stored at key.
func (mt *MemoryTable) Boolean(key string) (bool, bool) {
	mt.mu.Lock()
	defer mt.mu.Unlock()
	v, ok := mt.values[key].(bool)
	return v, ok
}

// Keys returns the stored keys, sorted.
func (mt *MemoryTable) Keys() []string {
	mt.mu.Lock()
	defer mt.mu.Unlock()
	keys := make([]string, 0, len(mt.values))
	for k := range mt.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Writes counts successful puts.
func (mt *MemoryTable) Writes() int {
	mt.mu.Lock()
	defer mt.mu.Unlock()
	return mt.writes
}

// Ping fails while PingFailures lasts.
func (mt *MemoryTable) Ping(ctx context.Context) error {
	mt.mu.Lock()
	defer mt.mu.Unlock()
	if mt.PingErr == nil || mt.PingFailures == 0 {
		return nil
	}
	if mt.PingFailures > 0 {
		mt.PingFailures--
	}
	return mt.PingErr
}

// Close does nothing.
func (mt *MemoryTable) Close() error {
	return nil
}
