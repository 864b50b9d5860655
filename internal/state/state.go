// Package state gives the rest of TitanLift typed access to the key-value
// store. Every key lives under a namespace prefix (titanlift_ by default) so
// data exported from the browser app can be loaded as-is.
package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/meltforce/titanlift/internal/kv"
)

// DefaultNamespace is the prefix every key is stored under.
const DefaultNamespace = "titanlift_"

// Key names, without the namespace.
const (
	KeySessions      = "sessions"
	KeyTemplates     = "templates"
	KeyExercises     = "exercises"
	KeyActiveStart   = "active_start_time"
	KeyActiveElapsed = "active_elapsed_time"
	KeyTimerRunning  = "timer_is_running"
	KeyActiveSession = "last_active_template"

	PrefixDraft   = "draft_"
	PrefixMemory  = "config_"
	PrefixRestEnd = "rest_end_"
	PrefixRestMin = "pref_rest_min_"
	PrefixRestSec = "pref_rest_sec_"
)

func DraftKey(templateID string) string   { return PrefixDraft + templateID }
func MemoryKey(exerciseID string) string  { return PrefixMemory + exerciseID }
func RestEndKey(exerciseID string) string { return PrefixRestEnd + exerciseID }
func RestMinKey(exerciseID string) string { return PrefixRestMin + exerciseID }
func RestSecKey(exerciseID string) string { return PrefixRestSec + exerciseID }

// Store is a namespaced, typed view over a kv.Store.
type Store struct {
	kv  kv.Store
	ns  string
	log *slog.Logger
}

// New wraps store. An empty namespace selects DefaultNamespace.
func New(store kv.Store, namespace string, log *slog.Logger) *Store {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	if log == nil {
		log = slog.Default()
	}
	return &Store{kv: store, ns: namespace, log: log}
}

func (s *Store) key(name string) string { return s.ns + name }

// GetString returns the raw value and whether it exists.
func (s *Store) GetString(ctx context.Context, name string) (string, bool, error) {
	v, err := s.kv.Get(ctx, s.key(name))
	if errors.Is(err, kv.ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (s *Store) SetString(ctx context.Context, name, value string) error {
	return s.kv.Set(ctx, s.key(name), value)
}

// GetJSON decodes the value stored under name into v. A missing key and a
// value that fails to decode both report false; the latter is logged.
func (s *Store) GetJSON(ctx context.Context, name string, v any) (bool, error) {
	raw, ok, err := s.GetString(ctx, name)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		s.log.Warn("discarding malformed stored value", "key", s.key(name), "error", err)
		return false, nil
	}
	return true, nil
}

func (s *Store) SetJSON(ctx context.Context, name string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", name, err)
	}
	return s.kv.Set(ctx, s.key(name), string(data))
}

// GetInt reads a decimal integer. Unparseable values report false and are logged.
func (s *Store) GetInt(ctx context.Context, name string) (int64, bool, error) {
	raw, ok, err := s.GetString(ctx, name)
	if err != nil || !ok {
		return 0, false, err
	}
	n, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		s.log.Warn("discarding malformed stored integer", "key", s.key(name), "error", err)
		return 0, false, nil
	}
	return n, true, nil
}

func (s *Store) SetInt(ctx context.Context, name string, n int64) error {
	return s.kv.Set(ctx, s.key(name), strconv.FormatInt(n, 10))
}

// GetBool is true only for the literal "true".
func (s *Store) GetBool(ctx context.Context, name string) (bool, error) {
	raw, _, err := s.GetString(ctx, name)
	return raw == "true", err
}

func (s *Store) SetBool(ctx context.Context, name string, b bool) error {
	return s.kv.Set(ctx, s.key(name), strconv.FormatBool(b))
}

func (s *Store) Delete(ctx context.Context, name string) error {
	return s.kv.Delete(ctx, s.key(name))
}

// Names lists stored names starting with prefix, namespace stripped.
func (s *Store) Names(ctx context.Context, prefix string) ([]string, error) {
	keys, err := s.kv.Keys(ctx, s.key(prefix))
	if err != nil {
		return nil, err
	}
	names := make([]string, len(keys))
	for i, k := range keys {
		names[i] = strings.TrimPrefix(k, s.ns)
	}
	return names, nil
}

// Begin starts collecting writes to commit together.
func (s *Store) Begin() *Tx {
	return &Tx{s: s}
}

// Tx buffers writes until Commit applies them in one kv.Apply call.
type Tx struct {
	s   *Store
	ops []kv.Op
	err error
}

func (t *Tx) SetString(name, value string) {
	t.ops = append(t.ops, kv.SetOp(t.s.key(name), value))
}

func (t *Tx) SetJSON(name string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		if t.err == nil {
			t.err = fmt.Errorf("encoding %s: %w", name, err)
		}
		return
	}
	t.SetString(name, string(data))
}

func (t *Tx) SetInt(name string, n int64) { t.SetString(name, strconv.FormatInt(n, 10)) }

func (t *Tx) SetBool(name string, b bool) { t.SetString(name, strconv.FormatBool(b)) }

func (t *Tx) Delete(name string) {
	t.ops = append(t.ops, kv.DeleteOp(t.s.key(name)))
}

// Commit applies the buffered writes. An encoding failure in any SetJSON
// aborts the whole transaction.
func (t *Tx) Commit(ctx context.Context) error {
	if t.err != nil {
		return t.err
	}
	if len(t.ops) == 0 {
		return nil
	}
	if err := t.s.kv.Apply(ctx, t.ops); err != nil {
		return fmt.Errorf("committing %d writes: %w", len(t.ops), err)
	}
	return nil
}
