package plans

import (
	"context"
	"errors"
	"strings"
	"time"

	"epos-backend/internal/application/drafts"
	"epos-backend/internal/domain"
	"epos-backend/internal/infrastructure/planapi"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

var (
	ErrPlanNotFound       = errors.New("Plan not found")
	ErrMissingPDFInput    = errors.New("Missing content or password")
	ErrMissingEmailFields = errors.New("Missing required fields")
	ErrNotAuthenticated   = errors.New("User must be authenticated")
)

// API is the external plan-generation service.
type API interface {
	Generate(ctx context.Context, form interface{}) (*planapi.GenerateResponse, error)
	TaskStatus(ctx context.Context, taskID string) (*planapi.Task, error)
	DownloadPDF(ctx context.Context, in planapi.PDFRequest) ([]byte, error)
	EmailPlan(ctx context.Context, in planapi.EmailRequest) (*planapi.EmailResponse, error)
}

// ProfileReader is the gated profile fetch used for prefill.
type ProfileReader interface {
	FetchOne(ctx context.Context, sess *domain.Session) (*domain.OrganizationProfile, error)
}

// DraftClearer drops the autosaved plan form once a plan is requested.
type DraftClearer interface {
	Clear(ctx context.Context, kind, userID string) error
}

// ActionError is an API failure shown as "<action> failed: <message>".
type ActionError struct {
	Action string
	Err    error
}

func (e *ActionError) Error() string { return e.Action + " failed: " + e.Err.Error() }
func (e *ActionError) Unwrap() error { return e.Err }

type Service struct {
	API      API
	DB       *gorm.DB
	Profiles ProfileReader
	Drafts   DraftClearer
}

func NewService(api API, db *gorm.DB, profiles ProfileReader, d DraftClearer) *Service {
	return &Service{API: api, DB: db, Profiles: profiles, Drafts: d}
}

// Generate validates the form, submits it, records the request and clears
// the plan draft.
func (s *Service) Generate(ctx context.Context, sess *domain.Session, form Form) (*domain.PlanRecord, error) {
	if sess == nil || sess.UserID == "" {
		return nil, ErrNotAuthenticated
	}
	if err := form.Validate(); err != nil {
		return nil, err
	}
	if form.PrimaryContactEmail == "" {
		form.PrimaryContactEmail = sess.Email
	}

	resp, err := s.API.Generate(ctx, form)
	if err != nil {
		return nil, &ActionError{Action: "Plan generation", Err: err}
	}

	inputs, err := form.Inputs()
	if err != nil {
		return nil, err
	}
	rec := &domain.PlanRecord{
		UserID:           sess.UserID,
		OrganizationName: firstNonEmpty(resp.OrganizationName, form.OrganizationName),
		Status:           generateStatus(resp),
		Inputs:           inputs,
	}
	if resp.TaskID != "" {
		rec.TaskID = &resp.TaskID
	}
	if resp.Plan != "" {
		rec.Plan = &resp.Plan
	}
	if resp.Message != "" {
		rec.Message = &resp.Message
	}
	if err := s.DB.WithContext(ctx).Create(rec).Error; err != nil {
		return nil, err
	}
	log.Info().Str("userId", sess.UserID).Str("planId", rec.PlanID.String()).Str("status", rec.Status).Msg("plan requested")

	if s.Drafts != nil {
		if err := s.Drafts.Clear(ctx, drafts.KindPlan, sess.UserID); err != nil {
			log.Warn().Str("userId", sess.UserID).Err(err).Msg("clearing plan draft failed")
		}
	}
	return rec, nil
}

func generateStatus(resp *planapi.GenerateResponse) string {
	switch {
	case resp.Plan != "":
		return domain.PlanStatusGenerated
	case resp.Status != "":
		return resp.Status
	default:
		return domain.PlanStatusQueued
	}
}

// TaskStatus polls the API and refreshes the matching history entry.
func (s *Service) TaskStatus(ctx context.Context, sess *domain.Session, taskID string) (*planapi.Task, *domain.PlanRecord, error) {
	if sess == nil || sess.UserID == "" {
		return nil, nil, ErrNotAuthenticated
	}
	task, err := s.API.TaskStatus(ctx, taskID)
	if err != nil {
		return nil, nil, &ActionError{Action: "Task status", Err: err}
	}

	var rec domain.PlanRecord
	err = s.DB.WithContext(ctx).Where("user_id = ? AND task_id = ?", sess.UserID, taskID).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return task, nil, nil
	}
	if err != nil {
		return nil, nil, err
	}

	if task.Status != "" {
		rec.Status = task.Status
	}
	if task.PlanContent != nil {
		rec.Plan = task.PlanContent
	}
	if task.ErrorMessage != nil {
		rec.Message = task.ErrorMessage
	}
	if err := s.DB.WithContext(ctx).Save(&rec).Error; err != nil {
		return nil, nil, err
	}
	return task, &rec, nil
}

// PDFInput asks for a password-protected PDF of plan content.
type PDFInput struct {
	Content   string `json:"content"`
	Password  string `json:"password"`
	PlanTitle string `json:"planTitle"`
}

// DownloadPDF returns the PDF bytes and a download file name.
func (s *Service) DownloadPDF(ctx context.Context, in PDFInput) ([]byte, string, error) {
	if in.Content == "" || in.Password == "" {
		return nil, "", ErrMissingPDFInput
	}
	if in.PlanTitle == "" {
		in.PlanTitle = "Emergency Plan"
	}
	pdf, err := s.API.DownloadPDF(ctx, planapi.PDFRequest(in))
	if err != nil {
		return nil, "", &ActionError{Action: "PDF download", Err: err}
	}
	return pdf, PDFFileName(in.PlanTitle), nil
}

func PDFFileName(title string) string {
	return strings.ReplaceAll(title, " ", "_") + "_Emergency_Plan.pdf"
}

type EmailInput struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	PlanID    string `json:"planId"`
	PlanTitle string `json:"planTitle"`
}

// EmailPlan sends the plan PDF; the address defaults to the signed-in user's.
func (s *Service) EmailPlan(ctx context.Context, sess *domain.Session, in EmailInput) (*planapi.EmailResponse, error) {
	if in.Email == "" && sess != nil {
		in.Email = sess.Email
	}
	if in.Email == "" || in.Password == "" || in.PlanTitle == "" {
		return nil, ErrMissingEmailFields
	}
	resp, err := s.API.EmailPlan(ctx, planapi.EmailRequest(in))
	if err != nil {
		return nil, &ActionError{Action: "Sending plan email", Err: err}
	}
	return resp, nil
}

// List returns the user's plan history, newest first.
func (s *Service) List(ctx context.Context, userID string) ([]domain.PlanRecord, error) {
	var out []domain.PlanRecord
	err := s.DB.WithContext(ctx).Where("user_id = ?", userID).Order("created_at DESC").Find(&out).Error
	return out, err
}

func (s *Service) Get(ctx context.Context, userID, planID string) (*domain.PlanRecord, error) {
	id, err := uuid.Parse(planID)
	if err != nil {
		return nil, ErrPlanNotFound
	}
	var rec domain.PlanRecord
	err = s.DB.WithContext(ctx).Where("plan_id = ? AND user_id = ?", id, userID).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrPlanNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// Prefill builds a plan form from the organization profile. found is false
// when no profile could be read (signed out, unreachable or absent).
func (s *Service) Prefill(ctx context.Context, sess *domain.Session) (Form, bool, error) {
	form := Form{OrganizationType: OrganizationTypes[0]}
	if s.Profiles == nil {
		return form, false, nil
	}
	p, err := s.Profiles.FetchOne(ctx, sess)
	if err != nil {
		return form, false, err
	}
	if p == nil {
		return form, false, nil
	}
	return PrefillForm(form, p), true, nil
}

// Since is used by the CLI to bound history listings.
func (s *Service) Since(ctx context.Context, since time.Time) ([]domain.PlanRecord, error) {
	var out []domain.PlanRecord
	err := s.DB.WithContext(ctx).Where("created_at >= ?", since).Order("created_at DESC").Find(&out).Error
	return out, err
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
