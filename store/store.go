// Package store holds the client's cross-navigation state: the signed-in
// session and the shopping cart. Every mutation commits a whole-slice
// replacement under one lock and synchronously serializes the affected
// slice to durable storage before returning - no debouncing, no write
// coalescing. Durable storage holds exactly two entries, one for the
// session and one for the cart, overwritten wholesale with no versioning.
//
// The store is an explicitly-owned object with subscribe/dispatch change
// notification, not ambient global state, so callers and tests always
// know who mutates what.
package store

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/craftmarket/storefront/api"
	"github.com/craftmarket/storefront/core"
)

// Durable storage entry names
const (
	SessionKey = "storefront:session"
	CartKey    = "storefront:cart"
)

// Event topics delivered to subscribers
const (
	TopicSession = "session"
	TopicCart    = "cart"
)

// Event announces a committed mutation to subscribers
type Event struct {
	Topic string
}

// Subscriber receives change events after each committed mutation
type Subscriber func(Event)

// Gateway is the slice of the API surface the store delegates to
type Gateway interface {
	Login(ctx context.Context, creds api.Credentials) (*api.AuthResponse, error)
	Register(ctx context.Context, reg api.Registration) (*api.AuthResponse, error)
	Logout(ctx context.Context) error
	UpdateDetails(ctx context.Context, update api.ProfileUpdate) (*api.User, error)
	CreateOrder(ctx context.Context, req api.OrderRequest) (*api.Order, error)
}

// Store owns the persisted client state
type Store struct {
	mu      sync.RWMutex
	session Session
	cart    Cart

	// Transient rendering state, deliberately excluded from the durable
	// snapshot so a reload never resurrects a stale busy/error flag.
	busy      bool
	lastError string

	storage core.Storage
	gateway Gateway
	logger  core.Logger

	subMu sync.RWMutex
	subs  []Subscriber
}

// New creates a store over the given durable storage and hydrates it.
// A missing or corrupt persisted entry yields zero state; hydration
// never blocks construction.
func New(storage core.Storage, logger core.Logger) *Store {
	if storage == nil {
		storage = core.NewMemoryStorage()
	}
	if logger == nil {
		logger = &core.NoOpLogger{}
	}

	s := &Store{
		storage: storage,
		logger:  logger,
	}
	s.hydrate()
	return s
}

// BindGateway attaches the API gateway the auth and order operations
// delegate to. The gateway itself reads the bearer token back from this
// store, so binding happens after both are constructed.
func (s *Store) BindGateway(g Gateway) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gateway = g
}

// Token implements core.TokenSource. An empty string means signed out.
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session.Token
}

// Session returns a copy of the current session
func (s *Store) Session() Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session
}

// IsAuthenticated reports whether a signed-in session exists
func (s *Store) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session.IsAuthenticated
}

// Busy reports whether an auth operation is in flight
func (s *Store) Busy() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.busy
}

// LastError returns the displayed error state from the most recent
// failed operation, independent of the error the caller received.
func (s *Store) LastError() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastError
}

// Subscribe registers a change listener. Subscribers are invoked
// synchronously after each committed mutation, outside the state lock.
func (s *Store) Subscribe(fn Subscriber) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	s.subs = append(s.subs, fn)
}

func (s *Store) notify(topic string) {
	s.subMu.RLock()
	subs := make([]Subscriber, len(s.subs))
	copy(subs, s.subs)
	s.subMu.RUnlock()

	for _, fn := range subs {
		fn(Event{Topic: topic})
	}
}

// hydrate loads the persisted session and cart snapshots
func (s *Store) hydrate() {
	ctx := context.Background()

	if data, err := s.storage.Load(ctx, SessionKey); err != nil {
		s.logger.Warn("Failed to load persisted session", map[string]interface{}{
			"operation": "store_hydrate",
			"entry":     SessionKey,
			"error":     err.Error(),
		})
	} else if len(data) > 0 {
		var session Session
		if err := json.Unmarshal(data, &session); err != nil {
			s.logger.Warn("Discarding corrupt persisted session", map[string]interface{}{
				"operation": "store_hydrate",
				"entry":     SessionKey,
				"error":     err.Error(),
			})
		} else {
			s.session = session
		}
	}

	if data, err := s.storage.Load(ctx, CartKey); err != nil {
		s.logger.Warn("Failed to load persisted cart", map[string]interface{}{
			"operation": "store_hydrate",
			"entry":     CartKey,
			"error":     err.Error(),
		})
	} else if len(data) > 0 {
		var cart Cart
		if err := json.Unmarshal(data, &cart); err != nil {
			s.logger.Warn("Discarding corrupt persisted cart", map[string]interface{}{
				"operation": "store_hydrate",
				"entry":     CartKey,
				"error":     err.Error(),
			})
		} else {
			s.cart = cart
		}
	}
}

// persistSession serializes the session slice. Called with the state
// lock held; a storage failure is logged, never propagated - local
// state is already committed.
func (s *Store) persistSession(ctx context.Context) {
	data, err := json.Marshal(s.session)
	if err != nil {
		s.logger.Error("Failed to serialize session", map[string]interface{}{
			"operation": "store_persist",
			"entry":     SessionKey,
			"error":     err.Error(),
		})
		return
	}
	if err := s.storage.Save(ctx, SessionKey, data); err != nil {
		s.logger.Error("Failed to persist session", map[string]interface{}{
			"operation": "store_persist",
			"entry":     SessionKey,
			"error":     err.Error(),
		})
	}
}

func (s *Store) persistCart(ctx context.Context) {
	data, err := json.Marshal(s.cart)
	if err != nil {
		s.logger.Error("Failed to serialize cart", map[string]interface{}{
			"operation": "store_persist",
			"entry":     CartKey,
			"error":     err.Error(),
		})
		return
	}
	if err := s.storage.Save(ctx, CartKey, data); err != nil {
		s.logger.Error("Failed to persist cart", map[string]interface{}{
			"operation": "store_persist",
			"entry":     CartKey,
			"error":     err.Error(),
		})
	}
}
