package profile

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"epos-backend/internal/application/gate"
	"epos-backend/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeBackend probes via ListProfiles; probeErr controls reachability and
// the mutations echo their input back as a profile.
type fakeBackend struct {
	mu        sync.Mutex
	probeErr  error
	listErr   error
	mutateErr error
	profiles  []domain.OrganizationProfile
	listCalls int
	created   []domain.Fields
	updated   []domain.Fields
}

func (f *fakeBackend) ListProfiles(ctx context.Context, token string, limit int) ([]domain.OrganizationProfile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	if f.probeErr != nil {
		return nil, f.probeErr
	}
	// The first call of each operation is the probe; later calls are the real query.
	if f.listErr != nil && f.listCalls%2 == 0 {
		return nil, f.listErr
	}
	return f.profiles, nil
}

func (f *fakeBackend) CreateProfile(ctx context.Context, token string, input domain.Fields) (*domain.OrganizationProfile, error) {
	f.mu.Lock()
	f.created = append(f.created, input)
	f.mu.Unlock()
	if f.mutateErr != nil {
		return nil, f.mutateErr
	}
	return echo(input, "profile-1")
}

func (f *fakeBackend) UpdateProfile(ctx context.Context, token string, input domain.Fields) (*domain.OrganizationProfile, error) {
	f.mu.Lock()
	f.updated = append(f.updated, input)
	f.mu.Unlock()
	if f.mutateErr != nil {
		return nil, f.mutateErr
	}
	return echo(input, "")
}

func echo(input domain.Fields, id string) (*domain.OrganizationProfile, error) {
	b, err := json.Marshal(input)
	if err != nil {
		return nil, err
	}
	var p domain.OrganizationProfile
	if err := json.Unmarshal(b, &p); err != nil {
		return nil, err
	}
	if id != "" {
		p.ID = id
	}
	return &p, nil
}

type fakeSessions struct{ err error }

func (f fakeSessions) CurrentUser(ctx context.Context, accessToken string) (*domain.Identity, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &domain.Identity{UserID: "user-1"}, nil
}

func newTestService(backend *fakeBackend, sessions SessionLookup) *Service {
	svc := NewService(backend, sessions)
	svc.Now = func() time.Time { return time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC) }
	return svc
}

func testSession() *domain.Session {
	return &domain.Session{UserID: "user-1", Email: "a@b.com", Tokens: domain.Tokens{AccessToken: "access"}}
}

func TestFetchOne_UnavailableResolvesNil(t *testing.T) {
	backend := &fakeBackend{probeErr: errors.New("network down")}
	svc := newTestService(backend, fakeSessions{})
	sess := testSession()
	svc.States.Open(sess.UserID)

	p, err := svc.FetchOne(context.Background(), sess)
	require.NoError(t, err)
	assert.Nil(t, p)

	st := svc.State(sess)
	assert.Equal(t, gate.StatusUnavailable, st.BackendStatus)
	assert.False(t, st.Loading)
	assert.Nil(t, st.Profile)
}

func TestFetchOne_Unauthenticated(t *testing.T) {
	backend := &fakeBackend{}
	svc := newTestService(backend, fakeSessions{err: errors.New("NotAuthorizedException")})

	p, err := svc.FetchOne(context.Background(), testSession())
	require.NoError(t, err)
	assert.Nil(t, p)
	assert.Equal(t, 0, backend.listCalls)
	assert.False(t, svc.State(testSession()).IsAuthenticated)
}

func TestFetchOne_ReturnsFirstProfile(t *testing.T) {
	backend := &fakeBackend{profiles: []domain.OrganizationProfile{{ID: "p-1", OrganizationName: "Acme"}}}
	svc := newTestService(backend, fakeSessions{})
	sess := testSession()

	p, err := svc.FetchOne(context.Background(), sess)
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, "Acme", p.OrganizationName)
	assert.Equal(t, 2, backend.listCalls, "probe then query")

	st := svc.State(sess)
	assert.Equal(t, gate.StatusAvailable, st.BackendStatus)
	assert.Equal(t, "p-1", st.Profile.ID)
	assert.True(t, st.IsAuthenticated)
}

func TestFetchOne_QueryFailureAfterProbe(t *testing.T) {
	backend := &fakeBackend{listErr: errors.New("GraphQL error")}
	svc := newTestService(backend, fakeSessions{})
	sess := testSession()

	p, err := svc.FetchOne(context.Background(), sess)
	assert.Nil(t, p)
	require.EqualError(t, err, "GraphQL error")
	st := svc.State(sess)
	assert.Equal(t, gate.StatusUnavailable, st.BackendStatus)
	assert.Equal(t, "GraphQL error", st.Error)
}

func TestCreateOne_UnavailableRejectsWithoutMutation(t *testing.T) {
	backend := &fakeBackend{probeErr: errors.New("timeout")}
	svc := newTestService(backend, fakeSessions{})
	sess := testSession()
	svc.States.Open(sess.UserID)

	p, err := svc.CreateOne(context.Background(), sess, domain.Fields{"organizationName": "Acme"})
	require.Error(t, err)
	assert.ErrorIs(t, err, gate.ErrUnavailable)
	assert.Contains(t, err.Error(), "unavailable")
	assert.Nil(t, p)
	assert.Empty(t, backend.created)

	st := svc.State(sess)
	assert.Nil(t, st.Profile)
	assert.Equal(t, err.Error(), st.Error)
}

func TestCreateOne_CoercesNumericFields(t *testing.T) {
	backend := &fakeBackend{}
	svc := newTestService(backend, fakeSessions{})
	sess := testSession()

	p, err := svc.CreateOne(context.Background(), sess, domain.Fields{
		"organizationName": "Acme",
		"numberOfFloors":   "5",
		"buildingType":     "",
		"unknownField":     "x",
	})
	require.NoError(t, err)
	require.NotNil(t, p)
	require.NotNil(t, p.NumberOfFloors)
	assert.Equal(t, 5, *p.NumberOfFloors)
	assert.True(t, p.OnboardingComplete())
	require.NotNil(t, p.LastUpdated)
	assert.Equal(t, "2025-03-01T12:00:00.000Z", *p.LastUpdated)

	require.Len(t, backend.created, 1)
	sent := backend.created[0]
	assert.Equal(t, 5, sent["numberOfFloors"])
	assert.NotContains(t, sent, "buildingType")
	assert.NotContains(t, sent, "unknownField")

	assert.Equal(t, "profile-1", svc.State(sess).Profile.ID)
	assert.True(t, svc.State(sess).IsOnboardingComplete)
}

func TestCreateOne_RequiresOrganizationName(t *testing.T) {
	backend := &fakeBackend{}
	svc := newTestService(backend, fakeSessions{})

	_, err := svc.CreateOne(context.Background(), testSession(), domain.Fields{"organizationName": "   "})
	assert.ErrorIs(t, err, ErrOrganizationNameRequired)
	assert.Equal(t, 0, backend.listCalls)
	assert.Empty(t, backend.created)
}

func TestCreateOne_Unauthenticated(t *testing.T) {
	backend := &fakeBackend{}
	svc := newTestService(backend, fakeSessions{err: errors.New("expired")})

	_, err := svc.CreateOne(context.Background(), testSession(), domain.Fields{"organizationName": "Acme"})
	assert.ErrorIs(t, err, ErrNotAuthenticated)
	assert.Empty(t, backend.created)

	_, err = svc.CreateOne(context.Background(), nil, domain.Fields{"organizationName": "Acme"})
	assert.ErrorIs(t, err, ErrNotAuthenticated)
}

func TestCreateOne_MutationFailureIsReturned(t *testing.T) {
	backend := &fakeBackend{mutateErr: errors.New("DynamoDB:ConditionalCheckFailed")}
	svc := newTestService(backend, fakeSessions{})
	sess := testSession()

	_, err := svc.CreateOne(context.Background(), sess, domain.Fields{"organizationName": "Acme"})
	require.EqualError(t, err, "DynamoDB:ConditionalCheckFailed")
	assert.Len(t, backend.created, 1)
	assert.Equal(t, gate.StatusUnavailable, svc.State(sess).BackendStatus)
}

func TestUpdateOne(t *testing.T) {
	backend := &fakeBackend{}
	svc := newTestService(backend, fakeSessions{})
	sess := testSession()

	p, err := svc.UpdateOne(context.Background(), sess, "p-9", domain.Fields{
		"city":             "Halifax",
		"maximumOccupancy": "120 people",
		"organizationType": "",
	})
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, "p-9", p.ID)
	assert.Equal(t, 120, *p.MaximumOccupancy)

	sent := backend.updated[0]
	assert.Equal(t, "p-9", sent["id"])
	assert.NotContains(t, sent, "organizationType")
	assert.NotContains(t, sent, "isOnboardingComplete")
}

func TestUpdateOne_UnavailableAndMissingID(t *testing.T) {
	backend := &fakeBackend{probeErr: errors.New("down")}
	svc := newTestService(backend, fakeSessions{})

	_, err := svc.UpdateOne(context.Background(), testSession(), "p-1", domain.Fields{"city": "X"})
	assert.ErrorIs(t, err, gate.ErrUnavailable)
	assert.Contains(t, err.Error(), "Cannot update profile")
	assert.Empty(t, backend.updated)

	_, err = svc.UpdateOne(context.Background(), testSession(), "", domain.Fields{"city": "X"})
	assert.ErrorIs(t, err, ErrNoProfileToUpdate)
}

func TestSkip_CreatesStubProfile(t *testing.T) {
	backend := &fakeBackend{}
	svc := newTestService(backend, fakeSessions{})

	p, err := svc.Skip(context.Background(), testSession())
	require.NoError(t, err)
	assert.Equal(t, "Organization", p.OrganizationName)
	require.NotNil(t, p.OrganizationType)
	assert.Equal(t, "Other", *p.OrganizationType)
	assert.True(t, p.OnboardingComplete())
}

func TestBackendStatus(t *testing.T) {
	backend := &fakeBackend{}
	tracker := gate.NewTracker()
	svc := newTestService(backend, fakeSessions{})
	svc.Observers = []gate.Observer{tracker.Observe}

	assert.Equal(t, gate.StatusAvailable, svc.BackendStatus(context.Background(), testSession()))
	assert.Equal(t, gate.StatusAvailable, tracker.Status())

	backend.probeErr = errors.New("down")
	assert.Equal(t, gate.StatusUnavailable, svc.BackendStatus(context.Background(), testSession()))
	assert.Equal(t, gate.StatusUnknown, svc.BackendStatus(context.Background(), nil))
}

func TestStateStore_Lifecycle(t *testing.T) {
	store := NewStateStore()
	assert.Equal(t, gate.StatusUnknown, store.Snapshot("u").BackendStatus)

	store.Open("u")
	assert.True(t, store.Snapshot("u").IsAuthenticated)

	store.update("u", func(st *State) { st.Error = "boom" })
	assert.Equal(t, "boom", store.Snapshot("u").Error)

	store.Close("u")
	assert.Empty(t, store.Snapshot("u").Error)
	assert.False(t, store.Snapshot("u").IsAuthenticated)
}

func TestStateStore_SweepsIdleUsers(t *testing.T) {
	clock := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	store := NewStateStore()
	store.Now = func() time.Time { return clock }

	// A gate outcome for a user whose session never signs in again.
	store.statusObserver("gone")(gate.StatusAvailable)
	store.Open("active")
	assert.Equal(t, 2, store.Len())

	clock = clock.Add(DefaultStateIdle / 2)
	store.update("active", func(st *State) { st.Error = "kept" })

	clock = clock.Add(DefaultStateIdle/2 + time.Minute)
	store.Open("next")
	assert.Equal(t, 2, store.Len())
	assert.Equal(t, gate.StatusUnknown, store.Snapshot("gone").BackendStatus)
	assert.Equal(t, "kept", store.Snapshot("active").Error)
}

func TestService_RecordsOutcomes(t *testing.T) {
	backend := &fakeBackend{probeErr: errors.New("down")}
	svc := newTestService(backend, fakeSessions{})
	var outcomes []string
	svc.Record = func(op, outcome string) { outcomes = append(outcomes, op+":"+outcome) }

	_, _ = svc.FetchOne(context.Background(), testSession())
	_, _ = svc.CreateOne(context.Background(), testSession(), domain.Fields{"organizationName": "A"})
	assert.Equal(t, []string{"fetch:unavailable", "create:unavailable"}, outcomes)
}
