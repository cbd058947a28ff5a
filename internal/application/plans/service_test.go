package plans

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"epos-backend/internal/domain"
	"epos-backend/internal/infrastructure/planapi"
	"epos-backend/internal/pkg/validation"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fakeAPI struct {
	generated []interface{}
	resp      *planapi.GenerateResponse
	task      *planapi.Task
	pdfReq    planapi.PDFRequest
	emailReq  planapi.EmailRequest
	err       error
}

func (f *fakeAPI) Generate(ctx context.Context, form interface{}) (*planapi.GenerateResponse, error) {
	f.generated = append(f.generated, form)
	if f.err != nil {
		return nil, f.err
	}
	return f.resp, nil
}

func (f *fakeAPI) TaskStatus(ctx context.Context, taskID string) (*planapi.Task, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.task, nil
}

func (f *fakeAPI) DownloadPDF(ctx context.Context, in planapi.PDFRequest) ([]byte, error) {
	f.pdfReq = in
	return []byte("%PDF"), f.err
}

func (f *fakeAPI) EmailPlan(ctx context.Context, in planapi.EmailRequest) (*planapi.EmailResponse, error) {
	f.emailReq = in
	if f.err != nil {
		return nil, f.err
	}
	return &planapi.EmailResponse{Success: true}, nil
}

type fakeDrafts struct{ cleared []string }

func (f *fakeDrafts) Clear(ctx context.Context, kind, userID string) error {
	f.cleared = append(f.cleared, kind+":"+userID)
	return nil
}

type fakeProfiles struct {
	profile *domain.OrganizationProfile
	err     error
}

func (f fakeProfiles) FetchOne(ctx context.Context, sess *domain.Session) (*domain.OrganizationProfile, error) {
	return f.profile, f.err
}

func setupDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.PlanRecord{}))
	return db
}

func validForm() Form {
	return Form{
		OrganizationName: "Acme",
		OrganizationType: "Corporate Office",
		Location:         "Halifax, NS",
		PrimaryHazards:   []string{"Flooding"},
		PDFPassword:      "Secret12!",
	}
}

func sess() *domain.Session {
	return &domain.Session{UserID: "u1", Email: "ann@acme.com"}
}

func strPtr(s string) *string { return &s }

func TestForm_Validate(t *testing.T) {
	assert.NoError(t, validForm().Validate())

	f := validForm()
	f.PrimaryHazards = nil
	assert.EqualError(t, f.Validate(), "At least one hazard must be selected")

	f = validForm()
	f.Location = ""
	assert.EqualError(t, f.Validate(), "Missing required field: location")

	f = validForm()
	f.PDFPassword = "secret12!"
	assert.EqualError(t, f.Validate(), "Password must contain at least one uppercase letter")

	f = validForm()
	f.PDFPassword = ""
	assert.EqualError(t, f.Validate(), "PDF password is required")
}

func TestForm_ScopeAcceptsStringOrList(t *testing.T) {
	var f Form
	require.NoError(t, json.Unmarshal([]byte(`{"scope":"Campus"}`), &f))
	assert.Equal(t, StringList{"Campus"}, f.Scope)
	require.NoError(t, json.Unmarshal([]byte(`{"scope":["Campus","Building"]}`), &f))
	assert.Equal(t, StringList{"Campus", "Building"}, f.Scope)
}

func TestGenerate_PersistsWithoutPassword(t *testing.T) {
	db := setupDB(t)
	api := &fakeAPI{resp: &planapi.GenerateResponse{Success: true, TaskID: "t-1", Status: "queued", Message: "queued"}}
	d := &fakeDrafts{}
	svc := NewService(api, db, nil, d)

	rec, err := svc.Generate(context.Background(), sess(), validForm())
	require.NoError(t, err)
	assert.Equal(t, domain.PlanStatusQueued, rec.Status)
	require.NotNil(t, rec.TaskID)
	assert.Equal(t, "t-1", *rec.TaskID)
	assert.NotContains(t, string(rec.Inputs), "Secret12!")
	assert.Equal(t, []string{"plan:u1"}, d.cleared)

	sent := api.generated[0].(Form)
	assert.Equal(t, "Secret12!", sent.PDFPassword)
	assert.Equal(t, "ann@acme.com", sent.PrimaryContactEmail)

	list, err := svc.List(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, rec.PlanID, list[0].PlanID)
}

func TestGenerate_SynchronousPlan(t *testing.T) {
	db := setupDB(t)
	api := &fakeAPI{resp: &planapi.GenerateResponse{Success: true, Plan: "# Plan"}}
	svc := NewService(api, db, nil, nil)

	rec, err := svc.Generate(context.Background(), sess(), validForm())
	require.NoError(t, err)
	assert.Equal(t, domain.PlanStatusGenerated, rec.Status)
	assert.Equal(t, "# Plan", *rec.Plan)
}

func TestGenerate_InvalidFormNeverCallsAPI(t *testing.T) {
	api := &fakeAPI{}
	svc := NewService(api, setupDB(t), nil, nil)
	f := validForm()
	f.OrganizationName = " "
	_, err := svc.Generate(context.Background(), sess(), f)
	var verrs validation.Errors
	assert.ErrorAs(t, err, &verrs)
	assert.Empty(t, api.generated)
}

func TestGenerate_APIFailure(t *testing.T) {
	d := &fakeDrafts{}
	api := &fakeAPI{err: &planapi.APIError{StatusCode: 500, Message: "model offline"}}
	svc := NewService(api, setupDB(t), nil, d)

	_, err := svc.Generate(context.Background(), sess(), validForm())
	assert.EqualError(t, err, "Plan generation failed: model offline")
	assert.Empty(t, d.cleared)
}

func TestTaskStatus_RefreshesRecord(t *testing.T) {
	db := setupDB(t)
	api := &fakeAPI{resp: &planapi.GenerateResponse{TaskID: "t-1", Status: "queued"}}
	svc := NewService(api, db, nil, nil)
	rec, err := svc.Generate(context.Background(), sess(), validForm())
	require.NoError(t, err)

	api.task = &planapi.Task{TaskID: "t-1", Status: "completed", PlanContent: strPtr("# Done")}
	task, updated, err := svc.TaskStatus(context.Background(), sess(), "t-1")
	require.NoError(t, err)
	assert.Equal(t, "completed", task.Status)
	require.NotNil(t, updated)

	got, err := svc.Get(context.Background(), "u1", rec.PlanID.String())
	require.NoError(t, err)
	assert.Equal(t, "completed", got.Status)
	assert.Equal(t, "# Done", *got.Plan)

	// Another user's session cannot see it.
	_, err = svc.Get(context.Background(), "u2", rec.PlanID.String())
	assert.ErrorIs(t, err, ErrPlanNotFound)
	_, err = svc.Get(context.Background(), "u1", "not-a-uuid")
	assert.ErrorIs(t, err, ErrPlanNotFound)
}

func TestTaskStatus_UnknownLocally(t *testing.T) {
	api := &fakeAPI{task: &planapi.Task{TaskID: "t-9", Status: "processing"}}
	svc := NewService(api, setupDB(t), nil, nil)
	task, rec, err := svc.TaskStatus(context.Background(), sess(), "t-9")
	require.NoError(t, err)
	assert.Equal(t, "processing", task.Status)
	assert.Nil(t, rec)
}

func TestDownloadPDF(t *testing.T) {
	api := &fakeAPI{}
	svc := NewService(api, nil, nil, nil)

	_, _, err := svc.DownloadPDF(context.Background(), PDFInput{Content: "# Plan"})
	assert.ErrorIs(t, err, ErrMissingPDFInput)

	pdf, name, err := svc.DownloadPDF(context.Background(), PDFInput{Content: "# Plan", Password: "pw"})
	require.NoError(t, err)
	assert.Equal(t, []byte("%PDF"), pdf)
	assert.Equal(t, "Emergency_Plan_Emergency_Plan.pdf", name)
	assert.Equal(t, "Emergency Plan", api.pdfReq.PlanTitle)
}

func TestEmailPlan_DefaultsToSessionEmail(t *testing.T) {
	api := &fakeAPI{}
	svc := NewService(api, nil, nil, nil)

	_, err := svc.EmailPlan(context.Background(), sess(), EmailInput{Password: "pw", PlanTitle: "Acme"})
	require.NoError(t, err)
	assert.Equal(t, "ann@acme.com", api.emailReq.Email)

	_, err = svc.EmailPlan(context.Background(), nil, EmailInput{Password: "pw", PlanTitle: "Acme"})
	assert.ErrorIs(t, err, ErrMissingEmailFields)

	api.err = errors.New("SES rejected")
	_, err = svc.EmailPlan(context.Background(), sess(), EmailInput{Password: "pw", PlanTitle: "Acme"})
	assert.EqualError(t, err, "Sending plan email failed: SES rejected")
}

func TestPrefill(t *testing.T) {
	orgType := "NonProfit"
	p := &domain.OrganizationProfile{
		OrganizationName:    "Food Bank",
		OrganizationType:    &orgType,
		PrimaryAddress:      strPtr("1 Main St"),
		City:                strPtr("Halifax"),
		State:               strPtr(""),
		ZipCode:             strPtr("B3H 1A1"),
		PrimaryContactEmail: strPtr("ops@food.org"),
	}
	svc := NewService(nil, nil, fakeProfiles{profile: p}, nil)

	form, found, err := svc.Prefill(context.Background(), sess())
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "Food Bank", form.OrganizationName)
	assert.Equal(t, "Non-Profit", form.OrganizationType)
	assert.Equal(t, "1 Main St, Halifax, B3H 1A1", form.Location)
	assert.Equal(t, "ops@food.org", form.PrimaryContactEmail)

	svc.Profiles = fakeProfiles{}
	form, found, err = svc.Prefill(context.Background(), sess())
	require.NoError(t, err)
	assert.False(t, found)
	assert.Equal(t, "Educational Institution", form.OrganizationType)
}
