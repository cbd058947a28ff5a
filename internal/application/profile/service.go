package profile

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"epos-backend/internal/application/gate"
	"epos-backend/internal/domain"
)

var (
	ErrNotAuthenticated         = errors.New("User must be authenticated")
	ErrOrganizationNameRequired = errors.New("Organization name is required")
	ErrNoProfileToUpdate        = errors.New("No profile to update")
)

// Backend is the managed data backend (list/create/update one profile).
type Backend interface {
	ListProfiles(ctx context.Context, token string, limit int) ([]domain.OrganizationProfile, error)
	CreateProfile(ctx context.Context, token string, input domain.Fields) (*domain.OrganizationProfile, error)
	UpdateProfile(ctx context.Context, token string, input domain.Fields) (*domain.OrganizationProfile, error)
}

// SessionLookup confirms that an access token still belongs to a signed-in user.
type SessionLookup interface {
	CurrentUser(ctx context.Context, accessToken string) (*domain.Identity, error)
}

// Service runs every profile read and write through the reachability gate.
type Service struct {
	Backend  Backend
	Sessions SessionLookup
	States   *StateStore
	// Observers receive every backend status in addition to the user's state.
	Observers []gate.Observer
	// Record, when set, is told the outcome of each operation.
	Record func(op, outcome string)
	Now    func() time.Time
}

// NewService wires a Service with a fresh StateStore.
func NewService(backend Backend, sessions SessionLookup, observers ...gate.Observer) *Service {
	return &Service{
		Backend:   backend,
		Sessions:  sessions,
		States:    NewStateStore(),
		Observers: observers,
		Now:       time.Now,
	}
}

// StubProfile is what the onboarding "skip" shortcut persists.
func StubProfile() domain.Fields {
	return domain.Fields{
		"organizationName": "Organization",
		"organizationType": "Other",
	}
}

// FetchOne returns the user's profile, or nil when the user is not signed in,
// the backend is unreachable, or no profile exists yet.
func (s *Service) FetchOne(ctx context.Context, sess *domain.Session) (*domain.OrganizationProfile, error) {
	done := s.begin(sess)
	defer done()

	if !s.authenticated(ctx, sess) {
		s.track(sess, func(st *State) {
			st.IsAuthenticated = false
			st.Profile = nil
		})
		s.record("fetch", "unauthenticated")
		return nil, nil
	}

	token := sess.Tokens.AccessToken
	profiles, err := gate.Call(ctx, s.gateFor(sess), func(ctx context.Context) ([]domain.OrganizationProfile, error) {
		return s.Backend.ListProfiles(ctx, token, 1)
	})
	if errors.Is(err, gate.ErrUnavailable) {
		s.track(sess, func(st *State) { st.Profile = nil })
		s.record("fetch", "unavailable")
		return nil, nil
	}
	if err != nil {
		s.fail(sess, "fetch", err)
		return nil, err
	}

	var p *domain.OrganizationProfile
	if len(profiles) > 0 {
		p = &profiles[0]
	}
	s.track(sess, func(st *State) { st.Profile = p })
	s.record("fetch", "ok")
	return p, nil
}

// CreateOne persists a new profile, marking onboarding complete.
func (s *Service) CreateOne(ctx context.Context, sess *domain.Session, fields domain.Fields) (*domain.OrganizationProfile, error) {
	done := s.begin(sess)
	defer done()

	if !s.authenticated(ctx, sess) {
		err := fmt.Errorf("%w to create profile", ErrNotAuthenticated)
		s.fail(sess, "create", err)
		return nil, err
	}

	data := copyFields(fields)
	data["isOnboardingComplete"] = true
	data["lastUpdated"] = s.timestamp()

	name, _ := data["organizationName"].(string)
	if strings.TrimSpace(name) == "" {
		s.fail(sess, "create", ErrOrganizationNameRequired)
		return nil, ErrOrganizationNameRequired
	}
	input := domain.SanitizeProfileFields(data)

	token := sess.Tokens.AccessToken
	created, err := gate.Call(ctx, s.gateFor(sess), func(ctx context.Context) (*domain.OrganizationProfile, error) {
		return s.Backend.CreateProfile(ctx, token, input)
	})
	if errors.Is(err, gate.ErrUnavailable) {
		err = fmt.Errorf("%w. Cannot create profile.", gate.ErrUnavailable)
	}
	if err != nil {
		s.fail(sess, "create", err)
		return nil, err
	}

	s.track(sess, func(st *State) { st.Profile = created })
	s.record("create", "ok")
	return created, nil
}

// UpdateOne patches the profile identified by id.
func (s *Service) UpdateOne(ctx context.Context, sess *domain.Session, id string, patch domain.Fields) (*domain.OrganizationProfile, error) {
	done := s.begin(sess)
	defer done()

	if !s.authenticated(ctx, sess) {
		err := fmt.Errorf("%w to update profile", ErrNotAuthenticated)
		s.fail(sess, "update", err)
		return nil, err
	}
	if strings.TrimSpace(id) == "" {
		s.fail(sess, "update", ErrNoProfileToUpdate)
		return nil, ErrNoProfileToUpdate
	}

	data := copyFields(patch)
	data["lastUpdated"] = s.timestamp()
	input := domain.SanitizeProfileFields(data)
	input["id"] = id

	token := sess.Tokens.AccessToken
	updated, err := gate.Call(ctx, s.gateFor(sess), func(ctx context.Context) (*domain.OrganizationProfile, error) {
		return s.Backend.UpdateProfile(ctx, token, input)
	})
	if errors.Is(err, gate.ErrUnavailable) {
		err = fmt.Errorf("%w. Cannot update profile.", gate.ErrUnavailable)
	}
	if err != nil {
		s.fail(sess, "update", err)
		return nil, err
	}

	s.track(sess, func(st *State) { st.Profile = updated })
	s.record("update", "ok")
	return updated, nil
}

// Skip creates the minimal stub profile used by the onboarding shortcut.
func (s *Service) Skip(ctx context.Context, sess *domain.Session) (*domain.OrganizationProfile, error) {
	return s.CreateOne(ctx, sess, StubProfile())
}

// BackendStatus runs a fresh probe for the status badge.
func (s *Service) BackendStatus(ctx context.Context, sess *domain.Session) gate.Status {
	if sess == nil || sess.Tokens.AccessToken == "" {
		return gate.StatusUnknown
	}
	if s.gateFor(sess).Probe(ctx) {
		return gate.StatusAvailable
	}
	return gate.StatusUnavailable
}

// State returns the published state for the session's user.
func (s *Service) State(sess *domain.Session) State {
	if sess == nil || s.States == nil {
		return State{BackendStatus: gate.StatusUnknown}
	}
	return s.States.Snapshot(sess.UserID)
}

func (s *Service) gateFor(sess *domain.Session) *gate.Gate {
	observers := make([]gate.Observer, 0, len(s.Observers)+1)
	if s.States != nil {
		observers = append(observers, s.States.statusObserver(sess.UserID))
	}
	observers = append(observers, s.Observers...)
	token := sess.Tokens.AccessToken
	return gate.New(func(ctx context.Context) error {
		_, err := s.Backend.ListProfiles(ctx, token, 1)
		return err
	}, observers...)
}

func (s *Service) authenticated(ctx context.Context, sess *domain.Session) bool {
	if sess == nil || sess.Tokens.AccessToken == "" || s.Sessions == nil {
		return false
	}
	if _, err := s.Sessions.CurrentUser(ctx, sess.Tokens.AccessToken); err != nil {
		return false
	}
	s.track(sess, func(st *State) { st.IsAuthenticated = true })
	return true
}

func (s *Service) begin(sess *domain.Session) func() {
	s.track(sess, func(st *State) {
		st.Loading = true
		st.Error = ""
	})
	return func() {
		s.track(sess, func(st *State) { st.Loading = false })
	}
}

func (s *Service) fail(sess *domain.Session, op string, err error) {
	s.track(sess, func(st *State) { st.Error = err.Error() })
	switch {
	case errors.Is(err, gate.ErrUnavailable):
		s.record(op, "unavailable")
	case errors.Is(err, ErrNotAuthenticated):
		s.record(op, "unauthenticated")
	default:
		s.record(op, "error")
	}
}

func (s *Service) track(sess *domain.Session, fn func(*State)) {
	if sess == nil || s.States == nil {
		return
	}
	s.States.update(sess.UserID, fn)
}

func (s *Service) record(op, outcome string) {
	if s.Record != nil {
		s.Record(op, outcome)
	}
}

// timestamp matches Date.prototype.toISOString.
func (s *Service) timestamp() string {
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	return now().UTC().Format("2006-01-02T15:04:05.000Z")
}

func copyFields(in domain.Fields) domain.Fields {
	out := make(domain.Fields, len(in)+2)
	for k, v := range in {
		out[k] = v
	}
	return out
}
