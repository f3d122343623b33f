package progress

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
)

// DarkModeKey holds the global UI theme preference.
const DarkModeKey = "darkMode"

const flagTrue = "true"

// Key identifies one independent unlock track.
type Key struct {
	Grade  string
	Term   string
	Branch string
}

// CompletedKey is the flag entry for lesson index in this track.
func (k Key) CompletedKey(index int) string {
	return fmt.Sprintf("completed_grade%s_term%s_%s_%d", k.Grade, k.Term, k.Branch, index)
}

// CounterKey is the completed-count entry for this track.
func (k Key) CounterKey() string {
	return fmt.Sprintf("progress_grade%s_term%s_%s", k.Grade, k.Term, k.Branch)
}

// Store reads and writes one profile's progress entries.
type Store struct {
	backend   Backend
	namespace string
}

// NewStore binds backend to the storage of one profile.
func NewStore(backend Backend, profileID string) *Store {
	return &Store{backend: backend, namespace: profileID}
}

// IsCompleted reports whether the completion flag for index was written.
func (s *Store) IsCompleted(ctx context.Context, k Key, index int) (bool, error) {
	v, ok, err := s.backend.Get(ctx, s.namespace, k.CompletedKey(index))
	if err != nil {
		return false, fmt.Errorf("read completion flag: %w", err)
	}
	return ok && v == flagTrue, nil
}

// MarkCompleted sets the completion flag for index and then increments the
// track's counter. It is not idempotent: a second call for the same index
// leaves the flag unchanged but bumps the counter again.
func (s *Store) MarkCompleted(ctx context.Context, k Key, index int) error {
	if err := s.backend.Set(ctx, s.namespace, k.CompletedKey(index), flagTrue); err != nil {
		return fmt.Errorf("write completion flag: %w", err)
	}
	n, err := s.backend.Incr(ctx, s.namespace, k.CounterKey())
	if err != nil {
		return fmt.Errorf("increment completed count: %w", err)
	}

	slog.Debug("lesson marked completed",
		"profile", s.namespace,
		"grade", k.Grade,
		"term", k.Term,
		"branch", k.Branch,
		"index", index,
		"count", n,
	)
	return nil
}

// CompletedCount returns the stored counter, 0 when absent or unparseable.
func (s *Store) CompletedCount(ctx context.Context, k Key) (int, error) {
	v, ok, err := s.backend.Get(ctx, s.namespace, k.CounterKey())
	if err != nil {
		return 0, fmt.Errorf("read completed count: %w", err)
	}
	if !ok {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, nil
	}
	return n, nil
}

// CompletedLessons counts the set completion flags among indices
// 0..total-1. Unlike CompletedCount it cannot drift above total.
func (s *Store) CompletedLessons(ctx context.Context, k Key, total int) (int, error) {
	n := 0
	for i := 0; i < total; i++ {
		done, err := s.IsCompleted(ctx, k, i)
		if err != nil {
			return 0, err
		}
		if done {
			n++
		}
	}
	return n, nil
}

// DarkMode returns the stored theme preference, false when unset.
func (s *Store) DarkMode(ctx context.Context) (bool, error) {
	v, ok, err := s.backend.Get(ctx, s.namespace, DarkModeKey)
	if err != nil {
		return false, fmt.Errorf("read dark mode: %w", err)
	}
	return ok && v == flagTrue, nil
}

// SetDarkMode stores the theme preference as "true" or "false".
func (s *Store) SetDarkMode(ctx context.Context, on bool) error {
	if err := s.backend.Set(ctx, s.namespace, DarkModeKey, strconv.FormatBool(on)); err != nil {
		return fmt.Errorf("write dark mode: %w", err)
	}
	return nil
}

// ToggleDarkMode flips the preference and returns the new value.
func (s *Store) ToggleDarkMode(ctx context.Context) (bool, error) {
	on, err := s.DarkMode(ctx)
	if err != nil {
		return false, err
	}
	if err := s.SetDarkMode(ctx, !on); err != nil {
		return false, err
	}
	return !on, nil
}
