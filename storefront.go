// Package storefront assembles the marketplace client: persisted
// session/cart store, authenticated API gateway, role and approval
// guards, and the streaming chat consumer. Most applications only need
// this package; the subpackages remain importable individually.
package storefront

import (
	"context"

	"github.com/craftmarket/storefront/api"
	"github.com/craftmarket/storefront/chat"
	"github.com/craftmarket/storefront/core"
	"github.com/craftmarket/storefront/guard"
	"github.com/craftmarket/storefront/store"
	"github.com/craftmarket/storefront/telemetry"
)

// Re-export the common configuration surface
type (
	Config = core.Config
	Option = core.Option
	Logger = core.Logger
)

var (
	NewConfig             = core.NewConfig
	WithBaseURL           = core.WithBaseURL
	WithHTTPTimeout       = core.WithHTTPTimeout
	WithStorageProvider   = core.WithStorageProvider
	WithStorageFile       = core.WithStorageFile
	WithRedisURL          = core.WithRedisURL
	WithRetry             = core.WithRetry
	WithChatHistoryWindow = core.WithChatHistoryWindow
	WithLogLevel          = core.WithLogLevel
	WithLogFormat         = core.WithLogFormat
	WithTelemetry         = core.WithTelemetry
	WithConfigFile        = core.WithConfigFile
)

// Client is the assembled marketplace client
type Client struct {
	Config *core.Config
	Logger core.Logger

	Store   *store.Store
	API     *api.Client
	Access  *guard.AccessGuard
	Chat    *chat.Consumer
	storage core.Storage

	telemetry core.Telemetry
	otel      *telemetry.OTelProvider
}

// New builds a client from functional options. The store is hydrated
// from durable storage before the gateway is wired, so a persisted
// session authenticates the very first request after a reload.
func New(opts ...core.Option) (*Client, error) {
	cfg, err := core.NewConfig(opts...)
	if err != nil {
		return nil, err
	}

	logger := core.NewClientLogger("storefront", cfg.Logging)

	var tel core.Telemetry = &core.NoOpTelemetry{}
	var otelProvider *telemetry.OTelProvider
	if cfg.Telemetry.Enabled {
		otelProvider, err = telemetry.NewOTelProvider(cfg.Telemetry.ServiceName, cfg.Telemetry.Endpoint)
		if err != nil {
			return nil, core.NewClientError("storefront.New", "telemetry", err)
		}
		tel = otelProvider
	}

	storage, err := newStorage(cfg.Storage)
	if err != nil {
		return nil, err
	}

	st := store.New(storage, logger)
	gateway := api.New(cfg.API, st, logger, tel)
	st.BindGateway(gateway)

	client := &Client{
		Config:    cfg,
		Logger:    logger,
		Store:     st,
		API:       gateway,
		Access:    guard.NewAccessGuard(logger),
		Chat:      chat.NewConsumer(gateway, cfg.Chat, logger, tel),
		storage:   storage,
		telemetry: tel,
		otel:      otelProvider,
	}

	logger.Info("Storefront client ready", map[string]interface{}{
		"operation": "client_init",
		"base_url":  cfg.API.BaseURL,
		"storage":   cfg.Storage.Provider,
	})
	return client, nil
}

// newStorage selects the durable storage backend
func newStorage(cfg core.StorageConfig) (core.Storage, error) {
	switch cfg.Provider {
	case "file":
		return store.NewFileStorage(cfg.FilePath)
	case "redis":
		return store.NewRedisStorage(cfg.RedisURL)
	case "memory":
		return core.NewMemoryStorage(), nil
	default:
		return nil, core.NewClientError("storefront.New", "config", core.ErrInvalidConfiguration)
	}
}

// ApprovalGate creates a fresh vendor-approval gate. Gates are
// per-navigation: each one re-fetches the approval flag, which is never
// cached across checks.
func (c *Client) ApprovalGate() *guard.ApprovalGate {
	return guard.NewApprovalGate(c.API, c.Config.Retry, c.Logger)
}

// CheckAccess evaluates a navigation attempt against the current session
func (c *Client) CheckAccess(requestedPath string, allowedRoles ...string) guard.Access {
	return c.Access.Check(c.Store.Session(), requestedPath, allowedRoles)
}

// Close releases backend resources (Redis connection, telemetry flush)
func (c *Client) Close(ctx context.Context) error {
	var firstErr error
	if closer, ok := c.storage.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			firstErr = err
		}
	}
	if c.otel != nil {
		if err := c.otel.Shutdown(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
