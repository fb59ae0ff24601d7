package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/craftmarket/storefront/core"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, token string) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return New(
		core.APIConfig{BaseURL: server.URL, Timeout: 5 * time.Second},
		core.TokenSourceFunc(func() string { return token }),
		nil, nil,
	)
}

func TestClientAttachesBearerToken(t *testing.T) {
	var gotAuth, gotRequestID string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotRequestID = r.Header.Get("X-Request-ID")
		_, _ = w.Write([]byte(`{"success":true,"data":{}}`))
	}, "secret-token")

	err := client.Do(context.Background(), http.MethodGet, "/products", nil, &struct{}{})
	require.NoError(t, err)

	assert.Equal(t, "Bearer secret-token", gotAuth)
	assert.NotEmpty(t, gotRequestID)
}

func TestClientOmitsAuthorizationWhenSignedOut(t *testing.T) {
	var gotAuth string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_, _ = w.Write([]byte(`{"success":true,"data":{}}`))
	}, "")

	err := client.Do(context.Background(), http.MethodGet, "/products", nil, nil)
	require.NoError(t, err)
	assert.Empty(t, gotAuth)
}

func TestClientDecodesEnvelopedPayload(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"success":true,"data":{"id":"p-1","title":"Mug","price":9.5}}`))
	}, "t")

	var product Product
	err := client.Do(context.Background(), http.MethodGet, "/products/p-1", nil, &product)
	require.NoError(t, err)

	assert.Equal(t, "p-1", product.ID)
	assert.Equal(t, "Mug", product.Title)
	assert.Equal(t, 9.5, product.Price)
}

func TestClientDecodesBarePayload(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id":"p-2","title":"Bowl"}`))
	}, "t")

	var product Product
	err := client.Do(context.Background(), http.MethodGet, "/products/p-2", nil, &product)
	require.NoError(t, err)
	assert.Equal(t, "Bowl", product.Title)
}

func TestClientErrorMapping(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		sentinel error
	}{
		{"unauthorized", http.StatusUnauthorized, core.ErrUnauthorized},
		{"forbidden", http.StatusForbidden, core.ErrForbidden},
		{"not found", http.StatusNotFound, core.ErrNotFound},
		{"rate limited", http.StatusTooManyRequests, core.ErrRateLimited},
		{"server error", http.StatusInternalServerError, core.ErrServiceUnavailable},
		{"bad gateway", http.StatusBadGateway, core.ErrServiceUnavailable},
		{"bad request", http.StatusBadRequest, core.ErrRequestFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(`{"success":false,"error":"nope"}`))
			}, "t")

			err := client.Do(context.Background(), http.MethodGet, "/products", nil, nil)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.sentinel)
		})
	}
}

func TestClientPreservesAPIErrorMessage(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"success":false,"error":"email already in use"}`))
	}, "t")

	_, err := client.Register(context.Background(), Registration{Email: "a@b.c"})
	require.Error(t, err)

	var ce *core.ClientError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "email already in use", ce.Message)
}

func TestClientTransportIsInstrumented(t *testing.T) {
	client := New(
		core.APIConfig{BaseURL: "http://localhost", Timeout: time.Second},
		nil, nil, nil,
	)

	assert.IsType(t, &otelhttp.Transport{}, client.HTTPClient.Transport)
}

func TestClientConnectionFailure(t *testing.T) {
	client := New(
		core.APIConfig{BaseURL: "http://127.0.0.1:1", Timeout: 100 * time.Millisecond},
		nil, nil, nil,
	)

	err := client.Do(context.Background(), http.MethodGet, "/products", nil, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrConnectionFailed)
}

func TestLoginPostsCredentials(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/auth/login", r.URL.Path)

		var creds Credentials
		require.NoError(t, json.NewDecoder(r.Body).Decode(&creds))
		assert.Equal(t, "a@b.c", creds.Email)

		_, _ = w.Write([]byte(`{"success":true,"data":{"user":{"id":"u-1","role":"customer"},"token":"tok-1"}}`))
	}, "")

	resp, err := client.Login(context.Background(), Credentials{Email: "a@b.c", Password: "pw"})
	require.NoError(t, err)

	assert.Equal(t, "u-1", resp.User.ID)
	assert.Equal(t, "tok-1", resp.Token)
}

func TestListProductsBuildsQuery(t *testing.T) {
	var gotQuery string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		_, _ = w.Write([]byte(`{"success":true,"data":{"products":[],"total":0,"page":2}}`))
	}, "t")

	list, err := client.ListProducts(context.Background(), ProductFilter{
		Search: "mug", Category: "kitchen", Page: 2, Limit: 20,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, list.Page)

	assert.Contains(t, gotQuery, "search=mug")
	assert.Contains(t, gotQuery, "category=kitchen")
	assert.Contains(t, gotQuery, "page=2")
	assert.Contains(t, gotQuery, "limit=20")
}

func TestGetVendorProfileReadsApprovalFlag(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/vendors/me", r.URL.Path)
		_, _ = w.Write([]byte(`{"success":true,"data":{"user":{"id":"v-1","role":"vendor"},"isApproved":true}}`))
	}, "t")

	profile, err := client.GetVendorProfile(context.Background())
	require.NoError(t, err)
	assert.True(t, profile.IsApproved)
}

func TestApproveVendorHitsAdminRoute(t *testing.T) {
	var gotPath, gotMethod string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotMethod = r.Method
		_, _ = w.Write([]byte(`{"success":true}`))
	}, "t")

	err := client.ApproveVendor(context.Background(), "v-9")
	require.NoError(t, err)
	assert.Equal(t, "/admin/vendors/v-9/approve", gotPath)
	assert.Equal(t, http.MethodPut, gotMethod)
}
