// Package session keeps designer and filler sessions for the transports.
// Each session is single-owner: the store hands out a session under its own
// lock and the transports never touch two sessions in one call.
package session

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/a3tai/mcp-pdf-forms/internal/designer"
	"github.com/a3tai/mcp-pdf-forms/internal/filler"
	"github.com/a3tai/mcp-pdf-forms/internal/pdf"
)

// Kind names the tool a session runs.
type Kind string

const (
	KindDesigner Kind = "designer"
	KindFiller   Kind = "filler"
)

var (
	ErrNotFound = errors.New("session not found")
	ErrTooMany  = errors.New("too many open sessions")
)

// Options configures new sessions.
type Options struct {
	MaxSessions int
	Designer    designer.Options
	Filler      filler.Options
	Now         func() time.Time
}

// Info describes an open session.
type Info struct {
	ID       string    `json:"id"`
	Kind     Kind      `json:"kind"`
	Created  time.Time `json:"created"`
	LastUsed time.Time `json:"last_used"`
}

// Designer wraps a designer with the lock that serializes its callers.
type Designer struct {
	mu sync.Mutex
	d  *designer.Designer
}

// Do runs fn with exclusive access to the designer.
func (s *Designer) Do(fn func(*designer.Designer) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.d)
}

type entry struct {
	info     Info
	designer *Designer
	filler   *filler.Filler
}

// Store is the session registry.
type Store struct {
	loader *pdf.Loader
	opts   Options

	mu       sync.RWMutex
	sessions map[string]*entry
}

// NewStore creates an empty store whose sessions share loader.
func NewStore(loader *pdf.Loader, opts Options) *Store {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Store{
		loader:   loader,
		opts:     opts,
		sessions: make(map[string]*entry),
	}
}

func (s *Store) add(e *entry) (Info, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.opts.MaxSessions > 0 && len(s.sessions) >= s.opts.MaxSessions {
		return Info{}, fmt.Errorf("%w: limit is %d", ErrTooMany, s.opts.MaxSessions)
	}
	now := s.opts.Now()
	e.info.ID = uuid.NewString()
	e.info.Created = now
	e.info.LastUsed = now
	s.sessions[e.info.ID] = e

	zap.S().Debugw("session opened", "session", e.info.ID, "kind", e.info.Kind, "open", len(s.sessions))
	return e.info, nil
}

// OpenDesigner starts a designer session.
func (s *Store) OpenDesigner() (Info, error) {
	return s.add(&entry{
		info:     Info{Kind: KindDesigner},
		designer: &Designer{d: designer.New(s.loader, s.opts.Designer)},
	})
}

// OpenFiller starts a filler session.
func (s *Store) OpenFiller() (Info, error) {
	return s.add(&entry{
		info:   Info{Kind: KindFiller},
		filler: filler.New(s.loader, s.opts.Filler),
	})
}

func (s *Store) lookup(id string, kind Kind) (*entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.sessions[id]
	if !ok || e.info.Kind != kind {
		return nil, fmt.Errorf("%w: %s session %q", ErrNotFound, kind, id)
	}
	e.info.LastUsed = s.opts.Now()
	return e, nil
}

// Designer returns the designer session with id.
func (s *Store) Designer(id string) (*Designer, error) {
	e, err := s.lookup(id, KindDesigner)
	if err != nil {
		return nil, err
	}
	return e.designer, nil
}

// Filler returns the filler session with id. Fillers lock internally.
func (s *Store) Filler(id string) (*filler.Filler, error) {
	e, err := s.lookup(id, KindFiller)
	if err != nil {
		return nil, err
	}
	return e.filler, nil
}

// Close drops a session. It reports whether one was open.
func (s *Store) Close(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[id]; !ok {
		return false
	}
	delete(s.sessions, id)
	zap.S().Debugw("session closed", "session", id, "open", len(s.sessions))
	return true
}

// List returns the open sessions, oldest first.
func (s *Store) List() []Info {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Info, 0, len(s.sessions))
	for _, e := range s.sessions {
		out = append(out, e.info)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Created.Equal(out[j].Created) {
			return out[i].ID < out[j].ID
		}
		return out[i].Created.Before(out[j].Created)
	})
	return out
}

// Len returns the number of open sessions.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// CloseIdle drops sessions unused since before cutoff and returns how many
// were closed.
func (s *Store) CloseIdle(cutoff time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for id, e := range s.sessions {
		if e.info.LastUsed.Before(cutoff) {
			delete(s.sessions, id)
			n++
		}
	}
	if n > 0 {
		zap.S().Infow("idle sessions closed", "closed", n, "open", len(s.sessions))
	}
	return n
}
