package profile

import (
	"sync"
	"time"

	"epos-backend/internal/application/gate"
	"epos-backend/internal/domain"
)

// State is what the UI renders for one signed-in user.
type State struct {
	Profile              *domain.OrganizationProfile `json:"profile"`
	Loading              bool                        `json:"loading"`
	Error                string                      `json:"error,omitempty"`
	IsAuthenticated      bool                        `json:"isAuthenticated"`
	BackendStatus        gate.Status                 `json:"backendStatus"`
	IsOnboardingComplete bool                        `json:"isOnboardingComplete"`
}

// DefaultStateIdle matches the session lifetime: a state untouched for longer
// belongs to a session Redis has already expired.
const DefaultStateIdle = 24 * time.Hour

// StateStore holds per-user State between sign-in (Open) and sign-out (Close).
// Entries idle for longer than Idle are swept on the next Open.
// Concurrent operations for the same user are not coalesced; whichever
// finishes last writes the final state.
type StateStore struct {
	Idle time.Duration
	Now  func() time.Time

	mu     sync.Mutex
	states map[string]*stateEntry
}

type stateEntry struct {
	state State
	seen  time.Time
}

// NewStateStore returns an empty store.
func NewStateStore() *StateStore {
	return &StateStore{Idle: DefaultStateIdle, Now: time.Now, states: make(map[string]*stateEntry)}
}

// Open (re)initialises the state for userID.
func (s *StateStore) Open(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	s.sweep(now)
	s.states[userID] = &stateEntry{
		state: State{BackendStatus: gate.StatusUnknown, IsAuthenticated: true},
		seen:  now,
	}
}

// Close drops the state for userID.
func (s *StateStore) Close(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.states, userID)
}

// Len reports how many users currently hold state.
func (s *StateStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.states)
}

// Snapshot returns a copy of the state for userID. Users that were never
// opened get the initial state.
func (s *StateStore) Snapshot(userID string) State {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.states[userID]
	if !ok {
		return State{BackendStatus: gate.StatusUnknown}
	}
	out := e.state
	out.IsOnboardingComplete = out.Profile.OnboardingComplete()
	return out
}

// update applies fn to the state for userID, creating it if the session
// outlived a restart.
func (s *StateStore) update(userID string, fn func(*State)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.states[userID]
	if !ok {
		e = &stateEntry{state: State{BackendStatus: gate.StatusUnknown}}
		s.states[userID] = e
	}
	e.seen = s.now()
	fn(&e.state)
}

// statusObserver publishes gate outcomes into the user's state.
func (s *StateStore) statusObserver(userID string) gate.Observer {
	return func(status gate.Status) {
		s.update(userID, func(st *State) { st.BackendStatus = status })
	}
}

// sweep drops idle entries. Callers hold mu.
func (s *StateStore) sweep(now time.Time) {
	if s.Idle <= 0 {
		return
	}
	for id, e := range s.states {
		if now.Sub(e.seen) > s.Idle {
			delete(s.states, id)
		}
	}
}

func (s *StateStore) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}
