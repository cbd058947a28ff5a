package onboarding

import (
	"encoding/json"
	"errors"
	"fmt"

	"epos-backend/internal/domain"
	"epos-backend/internal/pkg/validation"
)

const (
	StepOrganization = "organization"
	StepContacts     = "contacts"
	StepLocation     = "location"
	StepBuildings    = "buildings"
	StepOccupancy    = "occupancy"
	StepEmergency    = "emergency"
)

// StepOrder is the wizard order.
var StepOrder = []string{StepOrganization, StepContacts, StepLocation, StepBuildings, StepOccupancy, StepEmergency}

var ErrUnknownStep = errors.New("Unknown onboarding step")

// Number is a form integer; it accepts a JSON number or string and keeps
// the text so the profile sanitizer can apply parseInt rules.
type Number string

func (n *Number) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*n = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*n = Number(s)
		return nil
	}
	*n = Number(b)
	return nil
}

// Step is one wizard page. Each page owns a fixed set of profile fields.
type Step interface {
	Kind() string
}

type OrganizationStep struct {
	OrganizationName       string `json:"organizationName,omitempty" validate:"notblank"`
	OrganizationType       string `json:"organizationType,omitempty" validate:"required,oneof=ForProfit NonProfit Government Educational Other"`
	Industry               string `json:"industry,omitempty" validate:"required_unless=OrganizationType Other"`
	NaicsCode              string `json:"naicsCode,omitempty"`
	NaicsDescription       string `json:"naicsDescription,omitempty"`
	CustomOrganizationType string `json:"customOrganizationType,omitempty"`
	CustomIndustry         string `json:"customIndustry,omitempty"`
}

type ContactsStep struct {
	PrimaryContactName     string `json:"primaryContactName,omitempty" validate:"notblank"`
	PrimaryContactEmail    string `json:"primaryContactEmail,omitempty" validate:"required,looseemail"`
	PrimaryContactPhone    string `json:"primaryContactPhone,omitempty"`
	AlternateContact1Name  string `json:"alternateContact1Name,omitempty"`
	AlternateContact1Email string `json:"alternateContact1Email,omitempty" validate:"omitempty,looseemail"`
	AlternateContact1Phone string `json:"alternateContact1Phone,omitempty"`
	AlternateContact2Name  string `json:"alternateContact2Name,omitempty"`
	AlternateContact2Email string `json:"alternateContact2Email,omitempty" validate:"omitempty,looseemail"`
	AlternateContact2Phone string `json:"alternateContact2Phone,omitempty"`
}

// LocationStep needs state and zip code unless the user chose city-only entry.
type LocationStep struct {
	CityOnly       bool   `json:"cityOnly,omitempty"`
	PrimaryAddress string `json:"primaryAddress,omitempty"`
	City           string `json:"city,omitempty" validate:"notblank"`
	State          string `json:"state,omitempty" validate:"required_unless=CityOnly true"`
	ZipCode        string `json:"zipCode,omitempty" validate:"required_unless=CityOnly true"`
	Country        string `json:"country,omitempty" validate:"notblank"`
}

type BuildingsStep struct {
	BuildingName           string `json:"buildingName,omitempty"`
	BuildingType           string `json:"buildingType,omitempty" validate:"omitempty,oneof=SingleStory MultiStory HighRise Campus Industrial Warehouse Retail Healthcare Educational Other"`
	NumberOfFloors         Number `json:"numberOfFloors,omitempty" validate:"omitempty,parseint"`
	BuildingAge            Number `json:"buildingAge,omitempty" validate:"omitempty,parseint"`
	TotalSquareFootage     Number `json:"totalSquareFootage,omitempty" validate:"omitempty,parseint"`
	Building2Name          string `json:"building2Name,omitempty"`
	Building2Type          string `json:"building2Type,omitempty" validate:"omitempty,oneof=SingleStory MultiStory HighRise Campus Industrial Warehouse Retail Healthcare Educational Other"`
	Building2Floors        Number `json:"building2Floors,omitempty" validate:"omitempty,parseint"`
	Building2Age           Number `json:"building2Age,omitempty" validate:"omitempty,parseint"`
	Building2SquareFootage Number `json:"building2SquareFootage,omitempty" validate:"omitempty,parseint"`
	Building3Name          string `json:"building3Name,omitempty"`
	Building3Type          string `json:"building3Type,omitempty" validate:"omitempty,oneof=SingleStory MultiStory HighRise Campus Industrial Warehouse Retail Healthcare Educational Other"`
	Building3Floors        Number `json:"building3Floors,omitempty" validate:"omitempty,parseint"`
	Building3Age           Number `json:"building3Age,omitempty" validate:"omitempty,parseint"`
	Building3SquareFootage Number `json:"building3SquareFootage,omitempty" validate:"omitempty,parseint"`
	Building4Name          string `json:"building4Name,omitempty"`
	Building4Type          string `json:"building4Type,omitempty" validate:"omitempty,oneof=SingleStory MultiStory HighRise Campus Industrial Warehouse Retail Healthcare Educational Other"`
	Building4Floors        Number `json:"building4Floors,omitempty" validate:"omitempty,parseint"`
	Building4Age           Number `json:"building4Age,omitempty" validate:"omitempty,parseint"`
	Building4SquareFootage Number `json:"building4SquareFootage,omitempty" validate:"omitempty,parseint"`
	Building5Name          string `json:"building5Name,omitempty"`
	Building5Type          string `json:"building5Type,omitempty" validate:"omitempty,oneof=SingleStory MultiStory HighRise Campus Industrial Warehouse Retail Healthcare Educational Other"`
	Building5Floors        Number `json:"building5Floors,omitempty" validate:"omitempty,parseint"`
	Building5Age           Number `json:"building5Age,omitempty" validate:"omitempty,parseint"`
	Building5SquareFootage Number `json:"building5SquareFootage,omitempty" validate:"omitempty,parseint"`
}

type OccupancyStep struct {
	TotalOccupancy           Number `json:"totalOccupancy,omitempty" validate:"omitempty,parseint"`
	MaximumOccupancy         Number `json:"maximumOccupancy,omitempty" validate:"omitempty,parseint"`
	AverageOccupancyWorkday  Number `json:"averageOccupancyWorkday,omitempty" validate:"omitempty,parseint"`
	AverageOccupancyOffHours Number `json:"averageOccupancyOffHours,omitempty" validate:"omitempty,parseint"`
	PeopleWithDisabilities   string `json:"peopleWithDisabilities,omitempty"`
	EvacuationRoutes         string `json:"evacuationRoutes,omitempty"`
	AssemblyAreas            string `json:"assemblyAreas,omitempty"`
}

type EmergencyStep struct {
	EmergencyContactName   string `json:"emergencyContactName,omitempty"`
	EmergencyContactPhone  string `json:"emergencyContactPhone,omitempty"`
	EmergencyContactEmail  string `json:"emergencyContactEmail,omitempty" validate:"omitempty,looseemail"`
	OtherEmergencyServices string `json:"otherEmergencyServices,omitempty"`
	NearestHospital        string `json:"nearestHospital,omitempty"`
	NearestFireStation     string `json:"nearestFireStation,omitempty"`
	NearestPoliceStation   string `json:"nearestPoliceStation,omitempty"`
	SpecialConsiderations  string `json:"specialConsiderations,omitempty"`
}

func (OrganizationStep) Kind() string { return StepOrganization }
func (ContactsStep) Kind() string     { return StepContacts }
func (LocationStep) Kind() string     { return StepLocation }
func (BuildingsStep) Kind() string    { return StepBuildings }
func (OccupancyStep) Kind() string    { return StepOccupancy }
func (EmergencyStep) Kind() string    { return StepEmergency }

// StepError names the page a validation failure belongs to.
type StepError struct {
	Step string
	Err  error
}

func (e *StepError) Error() string { return e.Err.Error() }
func (e *StepError) Unwrap() error { return e.Err }

// DecodeStep decodes raw into the record for kind. Keys that belong to
// other pages are ignored, so a whole form can be decoded page by page.
func DecodeStep(kind string, raw []byte) (Step, error) {
	var step Step
	switch kind {
	case StepOrganization:
		var s OrganizationStep
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, err
		}
		step = s
	case StepContacts:
		var s ContactsStep
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, err
		}
		step = s
	case StepLocation:
		var s LocationStep
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, err
		}
		step = s
	case StepBuildings:
		var s BuildingsStep
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, err
		}
		step = s
	case StepOccupancy:
		var s OccupancyStep
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, err
		}
		step = s
	case StepEmergency:
		var s EmergencyStep
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, err
		}
		step = s
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStep, kind)
	}
	return step, nil
}

// ValidateStep checks one page's rules.
func ValidateStep(step Step) error {
	if err := validation.Struct(step); err != nil {
		return &StepError{Step: step.Kind(), Err: err}
	}
	return nil
}

// StepFields returns the page's non-empty values keyed by profile field.
func StepFields(step Step) domain.Fields {
	b, err := json.Marshal(step)
	if err != nil {
		return domain.Fields{}
	}
	out := domain.Fields{}
	_ = json.Unmarshal(b, &out)
	return out
}
