package store

import (
	"context"

	"github.com/craftmarket/storefront/api"
	"github.com/craftmarket/storefront/core"
)

// Session is the client's record of the signed-in identity and bearer
// token. Only these fields are persisted - transient busy/error flags
// live on the Store and never reach durable storage.
type Session struct {
	User            api.User `json:"user"`
	Token           string   `json:"token"`
	IsAuthenticated bool     `json:"is_authenticated"`
}

// Login authenticates against the remote API. On success the entire
// session is replaced atomically and persisted; on failure prior state
// is left untouched, the displayed error is recorded, and the error is
// returned for the caller to branch on.
func (s *Store) Login(ctx context.Context, creds api.Credentials) error {
	gateway := s.beginAuthOp()
	if gateway == nil {
		return core.NewClientError("store.Login", "auth", core.ErrMissingConfiguration)
	}

	resp, err := gateway.Login(ctx, creds)

	s.mu.Lock()
	s.busy = false
	if err != nil {
		s.lastError = err.Error()
		s.mu.Unlock()
		return err
	}

	s.session = Session{
		User:            resp.User,
		Token:           resp.Token,
		IsAuthenticated: true,
	}
	s.lastError = ""
	s.persistSession(ctx)
	s.mu.Unlock()

	s.logger.Info("Signed in", map[string]interface{}{
		"operation": "store_login",
		"user_id":   resp.User.ID,
		"role":      resp.User.Role,
	})
	s.notify(TopicSession)
	return nil
}

// Register creates an account and signs the new user in, with the same
// success/failure semantics as Login.
func (s *Store) Register(ctx context.Context, reg api.Registration) error {
	gateway := s.beginAuthOp()
	if gateway == nil {
		return core.NewClientError("store.Register", "auth", core.ErrMissingConfiguration)
	}

	resp, err := gateway.Register(ctx, reg)

	s.mu.Lock()
	s.busy = false
	if err != nil {
		s.lastError = err.Error()
		s.mu.Unlock()
		return err
	}

	s.session = Session{
		User:            resp.User,
		Token:           resp.Token,
		IsAuthenticated: true,
	}
	s.lastError = ""
	s.persistSession(ctx)
	s.mu.Unlock()

	s.logger.Info("Registered and signed in", map[string]interface{}{
		"operation": "store_register",
		"user_id":   resp.User.ID,
		"role":      resp.User.Role,
	})
	s.notify(TopicSession)
	return nil
}

// Logout invalidates the token remotely on a best-effort basis - a
// network failure is swallowed and logged, never blocking local
// sign-out - then unconditionally clears the session and removes the
// persisted entry.
func (s *Store) Logout(ctx context.Context) {
	s.mu.RLock()
	gateway := s.gateway
	s.mu.RUnlock()

	if gateway != nil {
		if err := gateway.Logout(ctx); err != nil {
			s.logger.Warn("Remote logout failed, clearing local session anyway", map[string]interface{}{
				"operation": "store_logout",
				"error":     err.Error(),
			})
		}
	}

	s.mu.Lock()
	s.session = Session{}
	s.lastError = ""
	if err := s.storage.Delete(ctx, SessionKey); err != nil {
		s.logger.Error("Failed to delete persisted session", map[string]interface{}{
			"operation": "store_logout",
			"entry":     SessionKey,
			"error":     err.Error(),
		})
	}
	s.mu.Unlock()

	s.logger.Info("Signed out", map[string]interface{}{
		"operation": "store_logout",
	})
	s.notify(TopicSession)
}

// UpdateProfile updates the signed-in user's details and replaces the
// session's identity with the server's view.
func (s *Store) UpdateProfile(ctx context.Context, update api.ProfileUpdate) error {
	gateway := s.beginAuthOp()
	if gateway == nil {
		return core.NewClientError("store.UpdateProfile", "auth", core.ErrMissingConfiguration)
	}

	user, err := gateway.UpdateDetails(ctx, update)

	s.mu.Lock()
	s.busy = false
	if err != nil {
		s.lastError = err.Error()
		s.mu.Unlock()
		return err
	}

	s.session.User = *user
	s.lastError = ""
	s.persistSession(ctx)
	s.mu.Unlock()

	s.notify(TopicSession)
	return nil
}

// beginAuthOp marks the store busy and returns the bound gateway, or
// nil when none is attached.
func (s *Store) beginAuthOp() Gateway {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gateway == nil {
		return nil
	}
	s.busy = true
	return s.gateway
}
