// Package memory is an in-process activity sink for development and tests.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"

	ports "finboard/internal/sheets"
)

var _ ports.ActivityWriter = (*Store)(nil)

type Store struct {
	mu    sync.Mutex
	items []ports.Activity
}

func New() *Store {
	return &Store{}
}

// Append stores the activity and returns a synthetic row reference.
func (s *Store) Append(_ context.Context, a ports.Activity) (string, error) {
	if a.Change.Resource == "" || a.Change.Action == "" {
		return "", errors.New("activity without resource or action")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append(s.items, a)
	return fmt.Sprintf("mem:%d", len(s.items)), nil
}

// Activities returns a copy of everything appended so far.
func (s *Store) Activities() []ports.Activity {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]ports.Activity(nil), s.items...)
}
