package storefront

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/craftmarket/storefront/api"
	"github.com/craftmarket/storefront/core"
	"github.com/craftmarket/storefront/guard"
)

func newTestClient(t *testing.T, handler http.Handler, opts ...Option) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	base := []Option{
		WithBaseURL(server.URL),
		WithStorageProvider("memory"),
		WithLogLevel("ERROR"),
	}
	client, err := New(append(base, opts...)...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close(context.Background()) })
	return client
}

func authHandler(role string) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/login", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"success":true,"data":{"user":{"id":"u-1","role":"` + role + `"},"token":"tok-1"}}`))
	})
	mux.HandleFunc("/auth/logout", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"success":true}`))
	})
	return mux
}

func TestNewRequiresBaseURL(t *testing.T) {
	_, err := New(WithStorageProvider("memory"))
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrMissingConfiguration)
}

func TestNewRejectsUnknownStorageProvider(t *testing.T) {
	_, err := New(WithBaseURL("http://localhost"), WithStorageProvider("dynamo"))
	require.Error(t, err)
}

func TestLoginThenCheckAccess(t *testing.T) {
	client := newTestClient(t, authHandler(api.RoleVendor))

	// Signed out: any guarded view redirects to login
	access := client.CheckAccess("/vendor/products", api.RoleVendor)
	assert.Equal(t, guard.DecisionLogin, access.Decision)
	assert.Equal(t, "/vendor/products", access.ReturnTo)

	err := client.Store.Login(context.Background(), api.Credentials{Email: "v@x.y", Password: "pw"})
	require.NoError(t, err)

	access = client.CheckAccess("/vendor/products", api.RoleVendor)
	assert.Equal(t, guard.DecisionAllow, access.Decision)

	// Wrong role bounces to the vendor's own home
	access = client.CheckAccess("/admin/users", api.RoleAdmin)
	assert.Equal(t, guard.DecisionHome, access.Decision)
	assert.Equal(t, guard.VendorHome, access.RedirectTo)
}

func TestGatewayUsesStoreToken(t *testing.T) {
	var gotAuth string
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/login", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"success":true,"data":{"user":{"id":"u-1","role":"customer"},"token":"tok-9"}}`))
	})
	mux.HandleFunc("/orders", func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_, _ = w.Write([]byte(`{"success":true,"data":[]}`))
	})
	client := newTestClient(t, mux)

	require.NoError(t, client.Store.Login(context.Background(), api.Credentials{}))

	_, err := client.API.ListMyOrders(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Bearer tok-9", gotAuth)
}

func TestSessionSurvivesClientRestart(t *testing.T) {
	dir := t.TempDir()
	server := httptest.NewServer(authHandler(api.RoleCustomer))
	t.Cleanup(server.Close)

	opts := []Option{
		WithBaseURL(server.URL),
		WithStorageProvider("file"),
		WithStorageFile(dir),
		WithLogLevel("ERROR"),
	}

	first, err := New(opts...)
	require.NoError(t, err)
	require.NoError(t, first.Store.Login(context.Background(), api.Credentials{}))
	require.NoError(t, first.Close(context.Background()))

	second, err := New(opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = second.Close(context.Background()) })

	assert.True(t, second.Store.IsAuthenticated())
	assert.Equal(t, "tok-1", second.Store.Token())
}

func TestApprovalGateIsFreshPerNavigation(t *testing.T) {
	client := newTestClient(t, authHandler(api.RoleVendor))

	first := client.ApprovalGate()
	second := client.ApprovalGate()

	assert.NotSame(t, first, second)
	assert.Equal(t, guard.StatusChecking, first.Status())
}

func TestApprovalGateEndToEnd(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/vendors/me", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"success":true,"data":{"user":{"id":"v-1","role":"vendor"},"isApproved":true}}`))
	})
	client := newTestClient(t, mux)

	status, err := client.ApprovalGate().Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, guard.StatusApproved, status)
}
