package domain

import (
	"math"
	"strconv"
	"strings"
)

// Fields is a create/update payload keyed by GraphQL field name.
type Fields map[string]interface{}

// ProfileFieldNames lists every input field the managed schema accepts on
// CreateOrganizationProfileInput / UpdateOrganizationProfileInput.
var ProfileFieldNames = []string{
	"organizationName", "organizationType", "industry", "naicsCode", "naicsDescription",
	"customOrganizationType", "customIndustry", "primaryContactName", "primaryContactEmail",
	"primaryContactPhone", "alternateContact1Name", "alternateContact1Email", "alternateContact1Phone",
	"alternateContact2Name", "alternateContact2Email", "alternateContact2Phone", "primaryAddress",
	"city", "state", "zipCode", "country", "buildingName", "buildingType", "numberOfFloors", "totalOccupancy",
	"buildingAge", "totalSquareFootage", "building2Name", "building2Type", "building2Floors",
	"building2Age", "building2SquareFootage", "building3Name", "building3Type", "building3Floors",
	"building3Age", "building3SquareFootage", "building4Name", "building4Type", "building4Floors",
	"building4Age", "building4SquareFootage", "building5Name", "building5Type", "building5Floors",
	"building5Age", "building5SquareFootage", "maximumOccupancy", "averageOccupancyWorkday",
	"averageOccupancyOffHours", "peopleWithDisabilities", "evacuationRoutes", "assemblyAreas",
	"emergencyContactName", "emergencyContactPhone", "emergencyContactEmail", "otherEmergencyServices",
	"nearestHospital", "nearestFireStation", "nearestPoliceStation", "specialConsiderations",
	"isOnboardingComplete", "lastUpdated",
}

// EnumFields are schema enums; the backend rejects them as empty strings.
var EnumFields = []string{
	"organizationType", "buildingType", "building2Type", "building3Type", "building4Type", "building5Type",
}

// IntegerFields are schema integers; form inputs arrive as strings.
var IntegerFields = []string{
	"numberOfFloors", "totalOccupancy", "buildingAge", "totalSquareFootage",
	"building2Floors", "building2Age", "building2SquareFootage",
	"building3Floors", "building3Age", "building3SquareFootage",
	"building4Floors", "building4Age", "building4SquareFootage",
	"building5Floors", "building5Age", "building5SquareFootage",
	"maximumOccupancy", "averageOccupancyWorkday", "averageOccupancyOffHours",
}

// OrganizationTypes and BuildingTypes are the enum members of the schema.
var (
	OrganizationTypes = []string{"ForProfit", "NonProfit", "Government", "Educational", "Other"}
	BuildingTypes     = []string{"SingleStory", "MultiStory", "HighRise", "Campus", "Industrial", "Warehouse", "Retail", "Healthcare", "Educational", "Other"}
)

var (
	profileFieldSet = toSet(ProfileFieldNames)
	enumFieldSet    = toSet(EnumFields)
	intFieldSet     = toSet(IntegerFields)
)

// SanitizeProfileFields returns a copy of in that is safe to send to the
// backend: unknown keys are dropped, empty enum values are dropped, and
// integer fields are coerced with parseInt semantics or dropped.
func SanitizeProfileFields(in Fields) Fields {
	out := make(Fields, len(in))
	for k, v := range in {
		if !profileFieldSet[k] {
			continue
		}
		switch {
		case enumFieldSet[k]:
			s, isString := v.(string)
			if v == nil || (isString && s == "") {
				continue
			}
			out[k] = v
		case intFieldSet[k]:
			n, ok := ParseInt(v)
			if !ok {
				continue
			}
			out[k] = n
		default:
			out[k] = v
		}
	}
	return out
}

// ParseInt coerces v to an integer the way a browser's parseInt(String(v), 10)
// does: leading whitespace and sign are accepted and the longest run of
// digits wins. ok is false when no digits are found.
func ParseInt(v interface{}) (n int, ok bool) {
	switch t := v.(type) {
	case nil:
		return 0, false
	case int:
		return t, true
	case int32:
		return int(t), true
	case int64:
		return int(t), true
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return 0, false
		}
		return parseLeadingInt(numberString(t))
	case float32:
		return ParseInt(float64(t))
	case string:
		return parseLeadingInt(t)
	case interface{ String() string }:
		return parseLeadingInt(t.String())
	default:
		return 0, false
	}
}

// numberString renders t the way String(t) does in a browser: exponent
// notation outside [1e-6, 1e21), plain decimals inside.
func numberString(t float64) string {
	if a := math.Abs(t); a != 0 && (a < 1e-6 || a >= 1e21) {
		return strconv.FormatFloat(t, 'e', -1, 64)
	}
	return strconv.FormatFloat(t, 'f', -1, 64)
}

func parseLeadingInt(s string) (int, bool) {
	s = strings.TrimLeft(s, " \t\n\r\v\f")
	end := 0
	if end < len(s) && (s[end] == '+' || s[end] == '-') {
		end++
	}
	digitsStart := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == digitsStart {
		return 0, false
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0, false
	}
	return n, true
}

// IsOrganizationType reports whether s is a member of the organization type enum.
func IsOrganizationType(s string) bool { return contains(OrganizationTypes, s) }

// IsBuildingType reports whether s is a member of the building type enum.
func IsBuildingType(s string) bool { return contains(BuildingTypes, s) }

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func toSet(list []string) map[string]bool {
	m := make(map[string]bool, len(list))
	for _, v := range list {
		m[v] = true
	}
	return m
}
