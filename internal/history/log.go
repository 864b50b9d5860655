// Package history holds the log of completed sessions and the statistics
// derived from it.
package history

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/meltforce/titanlift/internal/models"
	"github.com/meltforce/titanlift/internal/state"
)

// ErrSessionNotFound is returned by Get for an unknown session ID.
var ErrSessionNotFound = errors.New("session not found")

// Log is the newest-first list of completed sessions, stored as one value.
// Every read-modify-write of the list runs under the log's mutex.
type Log struct {
	st  *state.Store
	log *slog.Logger

	mu sync.Mutex
}

func NewLog(st *state.Store, log *slog.Logger) *Log {
	if log == nil {
		log = slog.Default()
	}
	return &Log{st: st, log: log}
}

// All returns every session, newest first. A malformed log reads as empty.
func (l *Log) All(ctx context.Context) ([]models.WorkoutSession, error) {
	var sessions []models.WorkoutSession
	if _, err := l.st.GetJSON(ctx, state.KeySessions, &sessions); err != nil {
		return nil, fmt.Errorf("loading sessions: %w", err)
	}
	if sessions == nil {
		sessions = []models.WorkoutSession{}
	}
	return sessions, nil
}

func (l *Log) Get(ctx context.Context, id string) (models.WorkoutSession, error) {
	sessions, err := l.All(ctx)
	if err != nil {
		return models.WorkoutSession{}, err
	}
	for _, s := range sessions {
		if s.ID == id {
			return s, nil
		}
	}
	return models.WorkoutSession{}, ErrSessionNotFound
}

// Lock and Unlock bracket a transaction that includes AppendInto.
func (l *Log) Lock() { l.mu.Lock() }
func (l *Log) Unlock() { l.mu.Unlock() }

// Append prepends session and persists the log.
func (l *Log) Append(ctx context.Context, session models.WorkoutSession) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	tx := l.st.Begin()
	if err := l.AppendInto(ctx, tx, session); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// AppendInto queues the prepend of session on tx. The caller must hold
// Lock until tx commits.
func (l *Log) AppendInto(ctx context.Context, tx *state.Tx, sessions ...models.WorkoutSession) error {
	existing, err := l.All(ctx)
	if err != nil {
		return err
	}
	updated := make([]models.WorkoutSession, 0, len(sessions)+len(existing))
	updated = append(updated, sessions...)
	updated = append(updated, existing...)
	tx.SetJSON(state.KeySessions, updated)
	return nil
}

// Remove deletes the session with id and reports whether it existed.
func (l *Log) Remove(ctx context.Context, id string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	sessions, err := l.All(ctx)
	if err != nil {
		return false, err
	}
	kept := sessions[:0]
	found := false
	for _, s := range sessions {
		if s.ID == id {
			found = true
			continue
		}
		kept = append(kept, s)
	}
	if !found {
		return false, nil
	}
	if err := l.st.SetJSON(ctx, state.KeySessions, kept); err != nil {
		return false, fmt.Errorf("saving sessions: %w", err)
	}
	l.log.Info("session removed", "session_id", id)
	return true, nil
}

// Merge adds sessions whose ID is not yet logged and re-sorts the log by
// date, newest first. It returns how many were added.
func (l *Log) Merge(ctx context.Context, sessions []models.WorkoutSession) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	existing, err := l.All(ctx)
	if err != nil {
		return 0, err
	}
	seen := make(map[string]bool, len(existing))
	for _, s := range existing {
		seen[s.ID] = true
	}

	merged := existing
	added := 0
	for _, s := range sessions {
		if seen[s.ID] {
			continue
		}
		seen[s.ID] = true
		merged = append(merged, s)
		added++
	}
	if added == 0 {
		return 0, nil
	}

	// RFC 3339 dates in UTC sort lexically.
	sort.SliceStable(merged, func(i, j int) bool { return merged[i].Date > merged[j].Date })
	if err := l.st.SetJSON(ctx, state.KeySessions, merged); err != nil {
		return 0, fmt.Errorf("saving sessions: %w", err)
	}
	l.log.Info("sessions merged", "added", added, "total", len(merged))
	return added, nil
}
