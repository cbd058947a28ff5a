package appsync

import (
	"context"
	"strings"

	"epos-backend/internal/domain"

	"github.com/pkg/errors"
)

// profileSelection is the field set requested for every profile operation.
var profileSelection = "id\n" + strings.Join(domain.ProfileFieldNames, "\n") + "\ncreatedAt\nupdatedAt"

var (
	listProfilesQuery = `query ListOrganizationProfiles($limit: Int) {
  listOrganizationProfiles(limit: $limit) {
    items {
` + profileSelection + `
    }
  }
}`

	createProfileMutation = `mutation CreateOrganizationProfile($input: CreateOrganizationProfileInput!) {
  createOrganizationProfile(input: $input) {
` + profileSelection + `
  }
}`

	updateProfileMutation = `mutation UpdateOrganizationProfile($input: UpdateOrganizationProfileInput!) {
  updateOrganizationProfile(input: $input) {
` + profileSelection + `
  }
}`
)

// ProfileRepository implements the profile backend on top of AppSync. The
// owner rule on the model scopes every list to the caller's own records.
type ProfileRepository struct {
	Client *Client
}

// ListProfiles returns at most limit profiles owned by the token's user.
func (r *ProfileRepository) ListProfiles(ctx context.Context, token string, limit int) ([]domain.OrganizationProfile, error) {
	var out struct {
		ListOrganizationProfiles *struct {
			Items []domain.OrganizationProfile `json:"items"`
		} `json:"listOrganizationProfiles"`
	}
	vars := map[string]interface{}{"limit": limit}
	if err := r.Client.Do(ctx, token, "ListOrganizationProfiles", listProfilesQuery, vars, &out); err != nil {
		return nil, err
	}
	if out.ListOrganizationProfiles == nil {
		return nil, nil
	}
	return out.ListOrganizationProfiles.Items, nil
}

// CreateProfile runs createOrganizationProfile with input as-is.
func (r *ProfileRepository) CreateProfile(ctx context.Context, token string, input domain.Fields) (*domain.OrganizationProfile, error) {
	var out struct {
		CreateOrganizationProfile *domain.OrganizationProfile `json:"createOrganizationProfile"`
	}
	vars := map[string]interface{}{"input": map[string]interface{}(input)}
	if err := r.Client.Do(ctx, token, "CreateOrganizationProfile", createProfileMutation, vars, &out); err != nil {
		return nil, err
	}
	if out.CreateOrganizationProfile == nil {
		return nil, errors.New("appsync: createOrganizationProfile returned no data")
	}
	return out.CreateOrganizationProfile, nil
}

// UpdateProfile runs updateOrganizationProfile; input must carry "id".
func (r *ProfileRepository) UpdateProfile(ctx context.Context, token string, input domain.Fields) (*domain.OrganizationProfile, error) {
	if id, _ := input["id"].(string); id == "" {
		return nil, errors.New("appsync: update requires an id")
	}
	var out struct {
		UpdateOrganizationProfile *domain.OrganizationProfile `json:"updateOrganizationProfile"`
	}
	vars := map[string]interface{}{"input": map[string]interface{}(input)}
	if err := r.Client.Do(ctx, token, "UpdateOrganizationProfile", updateProfileMutation, vars, &out); err != nil {
		return nil, err
	}
	if out.UpdateOrganizationProfile == nil {
		return nil, errors.New("appsync: updateOrganizationProfile returned no data")
	}
	return out.UpdateOrganizationProfile, nil
}
