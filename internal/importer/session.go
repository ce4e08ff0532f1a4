package importer

import (
	"sync"
	"time"

	"github.com/go-scripts/liimport/internal/browser"
)

// Session is one user-initiated import attempt. Mutated only by the
// importer, discarded on any terminal state.
type Session struct {
	ID         string
	State      State
	Source     *browser.TabHandle
	Dest       *browser.TabHandle
	StartedAt  time.Time
	DeadlineAt time.Time
}

func (s *Session) closeTabs() {
	if s.Source != nil {
		s.Source.Close()
	}
	if s.Dest != nil {
		s.Dest.Close()
	}
}

// slot is the single-session registry: at most one import per process.
// Acquisition fails fast when occupied instead of queueing.
type slot struct {
	mu     sync.Mutex
	active *Session
}

func (s *slot) acquire(sess *Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active != nil {
		return ErrImportInProgress
	}
	s.active = sess
	return nil
}

func (s *slot) release() {
	s.mu.Lock()
	s.active = nil
	s.mu.Unlock()
}
