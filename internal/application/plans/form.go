package plans

import (
	"encoding/json"
	"strings"

	"epos-backend/internal/domain"
	"epos-backend/internal/pkg/validation"

	"github.com/go-playground/validator/v10"
)

// StringList accepts a JSON string or array of strings. The plan form sends
// scope as either.
type StringList []string

func (l *StringList) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*l = nil
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		if s == "" {
			*l = nil
		} else {
			*l = StringList{s}
		}
		return nil
	}
	var list []string
	if err := json.Unmarshal(b, &list); err != nil {
		return err
	}
	*l = list
	return nil
}

// Form is the plan-creation form. Its rules mirror the plan API so a
// request rejected here would be rejected there too.
type Form struct {
	OrganizationName       string     `json:"organization_name" validate:"notblank"`
	OrganizationType       string     `json:"organization_type" validate:"notblank"`
	Location               string     `json:"location" validate:"notblank"`
	Scope                  StringList `json:"scope,omitempty"`
	ScopeOther             string     `json:"scope_other,omitempty"`
	PrimaryHazards         []string   `json:"primary_hazards" validate:"min=1"`
	SpecialConsiderations  []string   `json:"special_considerations,omitempty"`
	AdditionalRequirements string     `json:"additional_requirements,omitempty"`
	PrimaryContactEmail    string     `json:"primary_contact_email,omitempty" validate:"omitempty,looseemail"`
	PDFPassword            string     `json:"pdf_password,omitempty" validate:"pdfpassword"`
}

// Plan form organization types.
var OrganizationTypes = []string{
	"Educational Institution", "Healthcare Facility", "Corporate Office",
	"Manufacturing Plant", "Retail Store", "Government Agency", "Non-Profit", "Other",
}

func formMessages(fe validator.FieldError) string {
	if fe.Field() == "primary_hazards" {
		return "At least one hazard must be selected"
	}
	return ""
}

func (f Form) Validate() error {
	return validation.Struct(f, formMessages)
}

// Inputs is the form as stored in history, without the PDF password.
func (f Form) Inputs() ([]byte, error) {
	f.PDFPassword = ""
	return json.Marshal(f)
}

// profileTypeLabels maps the profile enum to the plan form's wording.
var profileTypeLabels = map[string]string{
	"ForProfit":   "Corporate Office",
	"NonProfit":   "Non-Profit",
	"Government":  "Government Agency",
	"Educational": "Educational Institution",
	"Other":       "Other",
}

// PrefillForm fills organization name, type and location from a profile.
// Fields the profile lacks keep their current value.
func PrefillForm(f Form, p *domain.OrganizationProfile) Form {
	if p == nil {
		return f
	}
	if p.OrganizationName != "" {
		f.OrganizationName = p.OrganizationName
	}
	if p.OrganizationType != nil {
		if label, ok := profileTypeLabels[*p.OrganizationType]; ok {
			f.OrganizationType = label
		} else {
			f.OrganizationType = "Other"
		}
	}
	if loc := profileAddress(p); loc != "" {
		f.Location = loc
	}
	if p.PrimaryContactEmail != nil && f.PrimaryContactEmail == "" {
		f.PrimaryContactEmail = *p.PrimaryContactEmail
	}
	return f
}

func profileAddress(p *domain.OrganizationProfile) string {
	var parts []string
	for _, v := range []*string{p.PrimaryAddress, p.City, p.State, p.ZipCode} {
		if v != nil && strings.TrimSpace(*v) != "" {
			parts = append(parts, *v)
		}
	}
	return strings.Join(parts, ", ")
}
