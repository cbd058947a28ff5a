package domain

import "strings"

// OrganizationProfile matches the OrganizationProfile model in the managed
// GraphQL schema. Optional scalars are pointers so absent values round-trip as null.
type OrganizationProfile struct {
	ID               string  `json:"id"`
	OrganizationName string  `json:"organizationName"`
	OrganizationType *string `json:"organizationType"`
	Industry         *string `json:"industry"`
	NaicsCode        *string `json:"naicsCode"`
	NaicsDescription *string `json:"naicsDescription"`

	CustomOrganizationType *string `json:"customOrganizationType"`
	CustomIndustry         *string `json:"customIndustry"`

	PrimaryContactName     *string `json:"primaryContactName"`
	PrimaryContactEmail    *string `json:"primaryContactEmail"`
	PrimaryContactPhone    *string `json:"primaryContactPhone"`
	AlternateContact1Name  *string `json:"alternateContact1Name"`
	AlternateContact1Email *string `json:"alternateContact1Email"`
	AlternateContact1Phone *string `json:"alternateContact1Phone"`
	AlternateContact2Name  *string `json:"alternateContact2Name"`
	AlternateContact2Email *string `json:"alternateContact2Email"`
	AlternateContact2Phone *string `json:"alternateContact2Phone"`

	PrimaryAddress *string `json:"primaryAddress"`
	City           *string `json:"city"`
	State          *string `json:"state"`
	ZipCode        *string `json:"zipCode"`
	Country        *string `json:"country"`

	BuildingName       *string `json:"buildingName"`
	BuildingType       *string `json:"buildingType"`
	NumberOfFloors     *int    `json:"numberOfFloors"`
	TotalOccupancy     *int    `json:"totalOccupancy"`
	BuildingAge        *int    `json:"buildingAge"`
	TotalSquareFootage *int    `json:"totalSquareFootage"`

	Building2Name          *string `json:"building2Name"`
	Building2Type          *string `json:"building2Type"`
	Building2Floors        *int    `json:"building2Floors"`
	Building2Age           *int    `json:"building2Age"`
	Building2SquareFootage *int    `json:"building2SquareFootage"`
	Building3Name          *string `json:"building3Name"`
	Building3Type          *string `json:"building3Type"`
	Building3Floors        *int    `json:"building3Floors"`
	Building3Age           *int    `json:"building3Age"`
	Building3SquareFootage *int    `json:"building3SquareFootage"`
	Building4Name          *string `json:"building4Name"`
	Building4Type          *string `json:"building4Type"`
	Building4Floors        *int    `json:"building4Floors"`
	Building4Age           *int    `json:"building4Age"`
	Building4SquareFootage *int    `json:"building4SquareFootage"`
	Building5Name          *string `json:"building5Name"`
	Building5Type          *string `json:"building5Type"`
	Building5Floors        *int    `json:"building5Floors"`
	Building5Age           *int    `json:"building5Age"`
	Building5SquareFootage *int    `json:"building5SquareFootage"`

	MaximumOccupancy         *int    `json:"maximumOccupancy"`
	AverageOccupancyWorkday  *int    `json:"averageOccupancyWorkday"`
	AverageOccupancyOffHours *int    `json:"averageOccupancyOffHours"`
	PeopleWithDisabilities   *string `json:"peopleWithDisabilities"`
	EvacuationRoutes         *string `json:"evacuationRoutes"`
	AssemblyAreas            *string `json:"assemblyAreas"`

	EmergencyContactName   *string `json:"emergencyContactName"`
	EmergencyContactPhone  *string `json:"emergencyContactPhone"`
	EmergencyContactEmail  *string `json:"emergencyContactEmail"`
	OtherEmergencyServices *string `json:"otherEmergencyServices"`
	NearestHospital        *string `json:"nearestHospital"`
	NearestFireStation     *string `json:"nearestFireStation"`
	NearestPoliceStation   *string `json:"nearestPoliceStation"`

	SpecialConsiderations *string `json:"specialConsiderations"`

	IsOnboardingComplete *bool   `json:"isOnboardingComplete"`
	LastUpdated          *string `json:"lastUpdated"`
	CreatedAt            string  `json:"createdAt,omitempty"`
	UpdatedAt            string  `json:"updatedAt,omitempty"`
}

// Building is one of the up to five building records folded into a profile.
type Building struct {
	Name          string `json:"name"`
	Type          string `json:"type,omitempty"`
	Floors        *int   `json:"floors,omitempty"`
	Age           *int   `json:"age,omitempty"`
	SquareFootage *int   `json:"squareFootage,omitempty"`
}

// OnboardingComplete reports the stored flag, false when unset.
func (p *OrganizationProfile) OnboardingComplete() bool {
	return p != nil && p.IsOnboardingComplete != nil && *p.IsOnboardingComplete
}

// Buildings returns the named building records in slot order.
func (p *OrganizationProfile) Buildings() []Building {
	if p == nil {
		return nil
	}
	slots := []Building{
		{Name: deref(p.BuildingName), Type: deref(p.BuildingType), Floors: p.NumberOfFloors, Age: p.BuildingAge, SquareFootage: p.TotalSquareFootage},
		{Name: deref(p.Building2Name), Type: deref(p.Building2Type), Floors: p.Building2Floors, Age: p.Building2Age, SquareFootage: p.Building2SquareFootage},
		{Name: deref(p.Building3Name), Type: deref(p.Building3Type), Floors: p.Building3Floors, Age: p.Building3Age, SquareFootage: p.Building3SquareFootage},
		{Name: deref(p.Building4Name), Type: deref(p.Building4Type), Floors: p.Building4Floors, Age: p.Building4Age, SquareFootage: p.Building4SquareFootage},
		{Name: deref(p.Building5Name), Type: deref(p.Building5Type), Floors: p.Building5Floors, Age: p.Building5Age, SquareFootage: p.Building5SquareFootage},
	}
	out := make([]Building, 0, len(slots))
	for _, b := range slots {
		if strings.TrimSpace(b.Name) != "" {
			out = append(out, b)
		}
	}
	return out
}

// Location joins the address components for display ("city, state, country").
func (p *OrganizationProfile) Location() string {
	if p == nil {
		return ""
	}
	parts := make([]string, 0, 3)
	for _, s := range []*string{p.City, p.State, p.Country} {
		if v := strings.TrimSpace(deref(s)); v != "" {
			parts = append(parts, v)
		}
	}
	return strings.Join(parts, ", ")
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
