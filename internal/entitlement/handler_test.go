// AngelaMos | 2026
// handler_test.go

package entitlement

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/entitlements/internal/billing"
	"github.com/carterperez-dev/entitlements/internal/cache"
)

func passthroughAuth(next http.Handler) http.Handler {
	return next
}

func newTestEntitlementServer(t *testing.T, store *fakeStore) *httptest.Server {
	t.Helper()

	handler := NewHandler(newTestService(store, cache.NewMemory()))
	router := chi.NewRouter()
	handler.RegisterRoutes(router, passthroughAuth)

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv
}

func TestGetEntitlementsEndpoint(t *testing.T) {
	store := &fakeStore{
		sub: &billing.Subscription{
			CommunityID: "comm_1",
			Tier:        billing.TierPremium,
			Status:      billing.StatusActive,
		},
	}
	srv := newTestEntitlementServer(t, store)

	resp, err := http.Get(srv.URL + "/communities/comm_1/entitlements")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)

	var parsed struct {
		Success bool `json:"success"`
		Data    struct {
			Entitlements Entitlements `json:"entitlements"`
		} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&parsed))
	assert.True(t, parsed.Success)
	assert.Equal(t, billing.TierPremium, parsed.Data.Entitlements.Tier)
	assert.Equal(t, "comm_1", parsed.Data.Entitlements.CommunityID)
}

func TestCheckAccessEndpointSingleFeature(t *testing.T) {
	store := &fakeStore{
		sub: &billing.Subscription{
			CommunityID: "comm_1",
			Tier:        billing.TierBasic,
			Status:      billing.StatusActive,
		},
	}
	srv := newTestEntitlementServer(t, store)

	body := []byte(`{"feature":"sso"}`)
	resp, err := http.Post(
		srv.URL+"/communities/comm_1/access",
		"application/json",
		bytes.NewReader(body),
	)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)

	var parsed struct {
		Data struct {
			Results map[Feature]*AccessResult `json:"results"`
		} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&parsed))

	result := parsed.Data.Results[FeatureSSO]
	require.NotNil(t, result)
	assert.False(t, result.CanAccess)
	assert.NotEmpty(t, result.UpgradeURL)
}

func TestCheckAccessEndpointBatch(t *testing.T) {
	store := &fakeStore{
		sub: &billing.Subscription{
			CommunityID: "comm_1",
			Tier:        billing.TierElite,
			Status:      billing.StatusActive,
		},
	}
	srv := newTestEntitlementServer(t, store)

	body := []byte(`{"features":["leaderboards","priority_support","sso"]}`)
	resp, err := http.Post(
		srv.URL+"/communities/comm_1/access",
		"application/json",
		bytes.NewReader(body),
	)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)

	var parsed struct {
		Data struct {
			Results map[Feature]*AccessResult `json:"results"`
		} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&parsed))
	require.Len(t, parsed.Data.Results, 3)

	assert.True(t, parsed.Data.Results[FeatureLeaderboards].CanAccess)
	assert.True(t, parsed.Data.Results[FeaturePrioritySupport].CanAccess)
	assert.False(t, parsed.Data.Results[FeatureSSO].CanAccess)
}

func TestCheckAccessEndpointUnknownFeature(t *testing.T) {
	srv := newTestEntitlementServer(t, &fakeStore{})

	body := []byte(`{"feature":"time_travel"}`)
	resp, err := http.Post(
		srv.URL+"/communities/comm_1/access",
		"application/json",
		bytes.NewReader(body),
	)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCheckAccessEndpointEmptyBody(t *testing.T) {
	srv := newTestEntitlementServer(t, &fakeStore{})

	resp, err := http.Post(
		srv.URL+"/communities/comm_1/access",
		"application/json",
		bytes.NewReader([]byte(`{}`)),
	)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
