package calculator

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

var (
	ErrSessionNotFound    = errors.New("session not found")
	ErrEqualsThrottled    = errors.New("equals pressed too quickly")
	ErrEvaluationInFlight = errors.New("evaluation already in progress")
)

// StoreConfig tunes session lifetime and equals debouncing.
type StoreConfig struct {
	IdleTTL             time.Duration
	EqualsRPS           float64
	EqualsBurst         int
	UnknownErrorMessage string
}

const (
	defaultIdleTTL     = 30 * time.Minute
	defaultEqualsRPS   = 5
	defaultEqualsBurst = 2
	sweepEvery         = 64
)

// Store holds the live sessions of one process, keyed by UUID.
type Store struct {
	gateway Gateway
	cfg     StoreConfig
	now     func() time.Time

	mu       sync.Mutex
	sessions map[string]*entry
	creates  uint64
}

type entry struct {
	mu         sync.Mutex
	session    *Session
	equals     *rate.Limiter
	evaluating atomic.Bool
	lastSeen   atomic.Int64 // unix nanos
}

// NewStore returns an empty registry whose sessions evaluate through gw.
// It panics if gw is nil.
func NewStore(gw Gateway, cfg StoreConfig) *Store {
	if gw == nil {
		panic("calculator: NewStore called with a nil Gateway")
	}
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = defaultIdleTTL
	}
	if cfg.EqualsRPS <= 0 {
		cfg.EqualsRPS = defaultEqualsRPS
	}
	if cfg.EqualsBurst <= 0 {
		cfg.EqualsBurst = defaultEqualsBurst
	}
	return &Store{
		gateway:  instrument(gw),
		cfg:      cfg,
		now:      time.Now,
		sessions: make(map[string]*entry),
	}
}

// Create starts a cleared session and returns its id.
func (s *Store) Create() (string, State) {
	now := s.now()
	e := &entry{
		session: NewSession(s.gateway, WithUnknownErrorMessage(s.cfg.UnknownErrorMessage)),
		equals:  rate.NewLimiter(rate.Limit(s.cfg.EqualsRPS), s.cfg.EqualsBurst),
	}
	e.lastSeen.Store(now.UnixNano())
	id := uuid.New().String()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions[id] = e
	s.creates++
	if s.creates%sweepEvery == 0 {
		s.sweepLocked(now)
	}
	return id, e.session.Snapshot()
}

// sweepLocked drops sessions idle for longer than IdleTTL.
func (s *Store) sweepLocked(now time.Time) {
	cutoff := now.Add(-s.cfg.IdleTTL).UnixNano()
	for id, e := range s.sessions {
		if e.lastSeen.Load() < cutoff {
			delete(s.sessions, id)
		}
	}
}

func (s *Store) lookup(id string) (*entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	if idle := s.now().UnixNano() - e.lastSeen.Load(); idle > int64(s.cfg.IdleTTL) {
		delete(s.sessions, id)
		return nil, ErrSessionNotFound
	}
	return e, nil
}

// Get returns the current snapshot of a session.
func (s *Store) Get(id string) (State, error) {
	e, err := s.lookup(id)
	if err != nil {
		return State{}, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.session.Snapshot(), nil
}

// Delete discards a session. Unknown ids report ErrSessionNotFound.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[id]; !ok {
		return ErrSessionNotFound
	}
	delete(s.sessions, id)
	return nil
}

// Len reports the number of sessions held, including idle ones not yet
// swept.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// StepFunc applies one button to a locked session. Press calls it once per
// button, in order.
type StepFunc func(ctx context.Context, i int, b Button, sess *Session)

// Press applies buttons to the session in order while holding the
// session's lock. A batch containing equals claims the session's
// evaluation slot before waiting for the lock, so a second equals batch is
// rejected with ErrEvaluationInFlight instead of queueing. A batch over the
// equals budget is rejected with ErrEqualsThrottled. Nothing is applied
// when a batch is rejected.
func (s *Store) Press(ctx context.Context, id string, buttons []Button, step StepFunc) (State, error) {
	e, err := s.lookup(id)
	if err != nil {
		return State{}, err
	}
	if step == nil {
		step = func(ctx context.Context, _ int, b Button, sess *Session) { sess.Press(ctx, b) }
	}

	if n := countEquals(buttons); n > 0 {
		if !e.evaluating.CompareAndSwap(false, true) {
			return State{}, ErrEvaluationInFlight
		}
		// Released even when a step panics.
		defer e.evaluating.Store(false)

		if !e.equals.AllowN(s.now(), n) {
			return State{}, ErrEqualsThrottled
		}
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	for i, b := range buttons {
		step(ctx, i, b, e.session)
	}
	e.lastSeen.Store(s.now().UnixNano())
	return e.session.Snapshot(), nil
}

func countEquals(buttons []Button) int {
	n := 0
	for _, b := range buttons {
		if b.Kind == KeyEquals {
			n++
		}
	}
	return n
}
