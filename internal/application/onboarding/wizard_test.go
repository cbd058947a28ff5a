package onboarding

import (
	"context"
	"errors"
	"testing"

	"epos-backend/internal/application/drafts"
	"epos-backend/internal/domain"
	"epos-backend/internal/pkg/validation"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProfiles struct {
	created domain.Fields
	err     error
	skipped bool
}

func (f *fakeProfiles) CreateOne(ctx context.Context, sess *domain.Session, fields domain.Fields) (*domain.OrganizationProfile, error) {
	f.created = fields
	if f.err != nil {
		return nil, f.err
	}
	name, _ := fields["organizationName"].(string)
	return &domain.OrganizationProfile{ID: "p-1", OrganizationName: name}, nil
}

func (f *fakeProfiles) Skip(ctx context.Context, sess *domain.Session) (*domain.OrganizationProfile, error) {
	f.skipped = true
	if f.err != nil {
		return nil, f.err
	}
	return &domain.OrganizationProfile{ID: "p-stub", OrganizationName: "Organization"}, nil
}

func newWizard(t *testing.T, p *fakeProfiles) (*Wizard, *drafts.Store) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	store := drafts.NewStore(rdb)
	return NewWizard(p, store), store
}

const completeForm = `{
	"organizationName": "Acme",
	"organizationType": "ForProfit",
	"industry": "Manufacturing",
	"primaryContactName": "Ann",
	"primaryContactEmail": "ann@acme.com",
	"city": "Halifax",
	"country": "Canada",
	"cityOnly": true,
	"numberOfFloors": "3 floors",
	"maximumOccupancy": 250,
	"nearestHospital": "QEII"
}`

func TestDecodeStep_UnknownKind(t *testing.T) {
	_, err := DecodeStep("payment", []byte(`{}`))
	assert.ErrorIs(t, err, ErrUnknownStep)
}

func TestValidateStep_Rules(t *testing.T) {
	cases := []struct {
		kind  string
		raw   string
		valid bool
	}{
		{StepOrganization, `{"organizationName":"Acme","organizationType":"Other"}`, true},
		{StepOrganization, `{"organizationName":"Acme","organizationType":"ForProfit"}`, false},
		{StepOrganization, `{"organizationName":" ","organizationType":"Other"}`, false},
		{StepOrganization, `{"organizationName":"Acme","organizationType":"Corporate"}`, false},
		{StepContacts, `{"primaryContactName":"Ann","primaryContactEmail":"ann@acme"}`, false},
		{StepLocation, `{"city":"Halifax","country":"Canada"}`, false},
		{StepLocation, `{"city":"Halifax","country":"Canada","cityOnly":true}`, true},
		{StepLocation, `{"city":"Halifax","country":"Canada","state":"NS","zipCode":"B3H"}`, true},
		{StepBuildings, `{"numberOfFloors":"abc"}`, false},
		{StepBuildings, `{"numberOfFloors":"12abc","buildingType":"HighRise"}`, true},
		{StepOccupancy, `{}`, true},
		{StepEmergency, `{"emergencyContactEmail":"x"}`, false},
	}
	for _, tc := range cases {
		step, err := DecodeStep(tc.kind, []byte(tc.raw))
		require.NoError(t, err, tc.raw)
		err = ValidateStep(step)
		if tc.valid {
			assert.NoError(t, err, tc.raw)
		} else {
			assert.Error(t, err, tc.raw)
		}
	}
}

func TestValidateStep_ReportsStepAndField(t *testing.T) {
	step, err := DecodeStep(StepContacts, []byte(`{"primaryContactEmail":"ann@acme.com"}`))
	require.NoError(t, err)
	err = ValidateStep(step)

	var stepErr *StepError
	require.ErrorAs(t, err, &stepErr)
	assert.Equal(t, StepContacts, stepErr.Step)
	var verrs validation.Errors
	require.ErrorAs(t, err, &verrs)
	assert.Equal(t, "primaryContactName", verrs[0].Field)
}

func TestStepFields_OnlyOwnFields(t *testing.T) {
	step, err := DecodeStep(StepBuildings, []byte(completeForm))
	require.NoError(t, err)
	assert.Equal(t, domain.Fields{"numberOfFloors": "3 floors"}, StepFields(step))
}

func TestSubmitStep_AutosavesDraft(t *testing.T) {
	w, store := newWizard(t, &fakeProfiles{})
	ctx := context.Background()

	_, err := w.SubmitStep(ctx, "u1", StepOrganization, []byte(`{"organizationName":"Acme","organizationType":"Other"}`))
	require.NoError(t, err)
	_, err = w.SubmitStep(ctx, "u1", StepContacts, []byte(`{"primaryContactName":"Ann","primaryContactEmail":"ann@acme.com"}`))
	require.NoError(t, err)

	d, err := store.Load(ctx, drafts.KindOnboarding, "u1")
	require.NoError(t, err)
	require.NotNil(t, d)
	assert.Equal(t, "Acme", d.Data["organizationName"])
	assert.Equal(t, "Ann", d.Data["primaryContactName"])
	assert.Equal(t, StepContacts, d.Data["currentStep"])

	// An invalid page leaves the draft untouched.
	_, err = w.SubmitStep(ctx, "u1", StepLocation, []byte(`{"city":"X"}`))
	require.Error(t, err)
	d, _ = store.Load(ctx, drafts.KindOnboarding, "u1")
	assert.Equal(t, StepContacts, d.Data["currentStep"])
}

func TestComplete_CreatesProfileAndClearsDraft(t *testing.T) {
	p := &fakeProfiles{}
	w, store := newWizard(t, p)
	ctx := context.Background()
	sess := &domain.Session{UserID: "u1"}
	_, err := store.Save(ctx, drafts.KindOnboarding, "u1", map[string]interface{}{"organizationName": "Acme"})
	require.NoError(t, err)

	profile, err := w.Complete(ctx, sess, []byte(completeForm))
	require.NoError(t, err)
	assert.Equal(t, "Acme", profile.OrganizationName)

	assert.Equal(t, "Halifax", p.created["city"])
	assert.Equal(t, "3 floors", p.created["numberOfFloors"])
	assert.Equal(t, "250", p.created["maximumOccupancy"])
	assert.Equal(t, true, p.created["cityOnly"])

	d, err := store.Load(ctx, drafts.KindOnboarding, "u1")
	require.NoError(t, err)
	assert.Nil(t, d)
}

func TestComplete_StopsAtFirstInvalidStep(t *testing.T) {
	p := &fakeProfiles{}
	w, _ := newWizard(t, p)
	_, err := w.Complete(context.Background(), &domain.Session{UserID: "u1"}, []byte(`{"organizationName":"Acme","organizationType":"Other"}`))

	var stepErr *StepError
	require.ErrorAs(t, err, &stepErr)
	assert.Equal(t, StepContacts, stepErr.Step)
	assert.Nil(t, p.created)
}

func TestSkip(t *testing.T) {
	p := &fakeProfiles{}
	w, _ := newWizard(t, p)
	profile, err := w.Skip(context.Background(), &domain.Session{UserID: "u1"})
	require.NoError(t, err)
	assert.Equal(t, "Organization", profile.OrganizationName)

	p.err = errors.New("Backend is unavailable. Cannot create profile.")
	_, err = w.Skip(context.Background(), &domain.Session{UserID: "u1"})
	assert.EqualError(t, err, "Backend is unavailable. Cannot create profile.")
}
