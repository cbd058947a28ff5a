package appsync

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"epos-backend/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturedRequest struct {
	Authorization string
	Body          graphQLRequest
}

func newGraphQLServer(t *testing.T, status int, response string) (*ProfileRepository, *[]capturedRequest) {
	var captured []capturedRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body graphQLRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		captured = append(captured, capturedRequest{Authorization: r.Header.Get("Authorization"), Body: body})
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(response))
	}))
	t.Cleanup(srv.Close)
	return &ProfileRepository{Client: &Client{Endpoint: srv.URL}}, &captured
}

func TestListProfiles(t *testing.T) {
	repo, captured := newGraphQLServer(t, http.StatusOK,
		`{"data":{"listOrganizationProfiles":{"items":[{"id":"p-1","organizationName":"Acme","numberOfFloors":4}]}}}`)

	profiles, err := repo.ListProfiles(context.Background(), "token-abc", 1)
	require.NoError(t, err)
	require.Len(t, profiles, 1)
	assert.Equal(t, "Acme", profiles[0].OrganizationName)
	assert.Equal(t, 4, *profiles[0].NumberOfFloors)

	require.Len(t, *captured, 1)
	req := (*captured)[0]
	assert.Equal(t, "token-abc", req.Authorization)
	assert.Equal(t, "ListOrganizationProfiles", req.Body.OperationName)
	assert.Equal(t, float64(1), req.Body.Variables["limit"])
	assert.Contains(t, req.Body.Query, "listOrganizationProfiles(limit: $limit)")
	assert.Contains(t, req.Body.Query, "building5SquareFootage")
}

func TestListProfiles_NullList(t *testing.T) {
	repo, _ := newGraphQLServer(t, http.StatusOK, `{"data":{"listOrganizationProfiles":null}}`)
	profiles, err := repo.ListProfiles(context.Background(), "t", 1)
	require.NoError(t, err)
	assert.Empty(t, profiles)
}

func TestCreateProfile_SendsInput(t *testing.T) {
	repo, captured := newGraphQLServer(t, http.StatusOK,
		`{"data":{"createOrganizationProfile":{"id":"new","organizationName":"Acme","isOnboardingComplete":true}}}`)

	p, err := repo.CreateProfile(context.Background(), "t", domain.Fields{"organizationName": "Acme", "numberOfFloors": 5})
	require.NoError(t, err)
	assert.Equal(t, "new", p.ID)
	assert.True(t, p.OnboardingComplete())

	input := (*captured)[0].Body.Variables["input"].(map[string]interface{})
	assert.Equal(t, "Acme", input["organizationName"])
	assert.Equal(t, float64(5), input["numberOfFloors"])
}

func TestCreateProfile_GraphQLErrors(t *testing.T) {
	repo, _ := newGraphQLServer(t, http.StatusOK,
		`{"data":{"createOrganizationProfile":null},"errors":[{"message":"Invalid enum value","errorType":"BadRequestException"}]}`)

	_, err := repo.CreateProfile(context.Background(), "t", domain.Fields{"organizationName": "Acme"})
	require.Error(t, err)
	var gqlErr *GraphQLError
	require.ErrorAs(t, err, &gqlErr)
	assert.Equal(t, "BadRequestException: Invalid enum value", err.Error())
}

func TestDo_UnauthorizedStatus(t *testing.T) {
	repo, _ := newGraphQLServer(t, http.StatusUnauthorized,
		`{"errors":[{"errorType":"UnauthorizedException","message":"Valid authorization header not provided."}]}`)

	_, err := repo.ListProfiles(context.Background(), "", 1)
	var gqlErr *GraphQLError
	require.ErrorAs(t, err, &gqlErr)
	assert.Equal(t, http.StatusUnauthorized, gqlErr.StatusCode)
}

func TestDo_NonJSONFailure(t *testing.T) {
	repo, _ := newGraphQLServer(t, http.StatusBadGateway, `upstream down`)
	_, err := repo.ListProfiles(context.Background(), "t", 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 502")
}

func TestUpdateProfile_RequiresID(t *testing.T) {
	repo, captured := newGraphQLServer(t, http.StatusOK, `{}`)
	_, err := repo.UpdateProfile(context.Background(), "t", domain.Fields{"city": "X"})
	require.Error(t, err)
	assert.Empty(t, *captured)
}

func TestDo_MissingEndpoint(t *testing.T) {
	repo := &ProfileRepository{Client: &Client{}}
	_, err := repo.ListProfiles(context.Background(), "t", 1)
	assert.EqualError(t, err, "appsync: GraphQL endpoint is not set")
}

func TestDo_ConcurrentCallsShareDefaultClient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":{"listOrganizationProfiles":{"items":[]}}}`))
	}))
	defer srv.Close()

	c := &Client{Endpoint: srv.URL}
	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = c.Do(context.Background(), "tok", "ListOrganizationProfiles", listProfilesQuery, nil, nil)
		}(i)
	}
	wg.Wait()
	for _, err := range errs {
		assert.NoError(t, err)
	}
	assert.Nil(t, c.Client)
}
