package onboarding

import (
	"context"

	"epos-backend/internal/application/drafts"
	"epos-backend/internal/domain"

	"github.com/rs/zerolog/log"
)

// Profiles is the gated profile client the wizard persists through.
type Profiles interface {
	CreateOne(ctx context.Context, sess *domain.Session, fields domain.Fields) (*domain.OrganizationProfile, error)
	Skip(ctx context.Context, sess *domain.Session) (*domain.OrganizationProfile, error)
}

// Drafts keeps wizard progress between visits.
type Drafts interface {
	Save(ctx context.Context, kind, userID string, data map[string]interface{}) (*drafts.Draft, error)
	Load(ctx context.Context, kind, userID string) (*drafts.Draft, error)
	Clear(ctx context.Context, kind, userID string) error
}

type Wizard struct {
	Profiles Profiles
	Drafts   Drafts
}

func NewWizard(p Profiles, d Drafts) *Wizard {
	return &Wizard{Profiles: p, Drafts: d}
}

// SubmitStep validates one page and merges its values into the user's
// onboarding draft. The draft is saved only when the page is valid.
func (w *Wizard) SubmitStep(ctx context.Context, userID, kind string, raw []byte) (Step, error) {
	step, err := DecodeStep(kind, raw)
	if err != nil {
		return nil, err
	}
	if err := ValidateStep(step); err != nil {
		return step, err
	}
	if w.Drafts == nil || userID == "" {
		return step, nil
	}

	data := map[string]interface{}{}
	if d, err := w.Drafts.Load(ctx, drafts.KindOnboarding, userID); err == nil && d != nil {
		data = d.Data
	}
	for k, v := range StepFields(step) {
		data[k] = v
	}
	data["currentStep"] = kind
	if _, err := w.Drafts.Save(ctx, drafts.KindOnboarding, userID, data); err != nil {
		log.Warn().Str("userId", userID).Err(err).Msg("onboarding autosave failed")
	}
	return step, nil
}

// Complete validates every page of the flat form and creates the profile.
func (w *Wizard) Complete(ctx context.Context, sess *domain.Session, raw []byte) (*domain.OrganizationProfile, error) {
	fields := domain.Fields{}
	for _, kind := range StepOrder {
		step, err := DecodeStep(kind, raw)
		if err != nil {
			return nil, err
		}
		if err := ValidateStep(step); err != nil {
			return nil, err
		}
		for k, v := range StepFields(step) {
			fields[k] = v
		}
	}

	p, err := w.Profiles.CreateOne(ctx, sess, fields)
	if err != nil {
		return nil, err
	}
	w.clearDraft(ctx, sess)
	return p, nil
}

// Skip creates the stub profile. A failure is returned to the caller rather
// than treated as a completed onboarding.
func (w *Wizard) Skip(ctx context.Context, sess *domain.Session) (*domain.OrganizationProfile, error) {
	p, err := w.Profiles.Skip(ctx, sess)
	if err != nil {
		return nil, err
	}
	w.clearDraft(ctx, sess)
	return p, nil
}

func (w *Wizard) clearDraft(ctx context.Context, sess *domain.Session) {
	if w.Drafts == nil || sess == nil {
		return
	}
	if err := w.Drafts.Clear(ctx, drafts.KindOnboarding, sess.UserID); err != nil {
		log.Warn().Str("userId", sess.UserID).Err(err).Msg("clearing onboarding draft failed")
	}
}
