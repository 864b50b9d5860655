// Package kv provides the string key-value store that holds all TitanLift
// state. Backends: in-memory, SQLite, PostgreSQL and Redis.
package kv

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrNotFound is returned by Get when the key does not exist.
var ErrNotFound = errors.New("kv: key not found")

// Store is a synchronous string-keyed store. Implementations are safe for
// concurrent use.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	// Keys returns all keys starting with prefix, sorted.
	Keys(ctx context.Context, prefix string) ([]string, error)
	// Apply writes all ops atomically.
	Apply(ctx context.Context, ops []Op) error
	Close() error
}

// Op is a single write inside an Apply batch. Delete ops ignore Value.
type Op struct {
	Key    string
	Value  string
	Delete bool
}

// SetOp builds a Set operation.
func SetOp(key, value string) Op { return Op{Key: key, Value: value} }

// DeleteOp builds a Delete operation.
func DeleteOp(key string) Op { return Op{Key: key, Delete: true} }

// Driver names accepted by Open.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverRedis    = "redis"
)

// Options selects and configures a backend.
type Options struct {
	Driver        string
	SQLitePath    string
	PostgresDSN   string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

// Open creates the backend named by opts.Driver.
func Open(ctx context.Context, opts Options) (Store, error) {
	switch opts.Driver {
	case DriverMemory, "":
		return NewMemory(), nil
	case DriverSQLite:
		return OpenSQLite(opts.SQLitePath)
	case DriverPostgres:
		if err := RunMigrations(opts.PostgresDSN); err != nil {
			return nil, err
		}
		return OpenPostgres(ctx, opts.PostgresDSN)
	case DriverRedis:
		return OpenRedis(ctx, opts.RedisAddr, opts.RedisPassword, opts.RedisDB)
	default:
		return nil, fmt.Errorf("unknown store driver %q", opts.Driver)
	}
}

func filterKeys(keys []string, prefix string) []string {
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		if strings.HasPrefix(k, prefix) {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}
