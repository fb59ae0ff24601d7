package api

import (
	"context"
)

// Login authenticates with email and password, returning the identity
// and the bearer token the store persists.
func (c *Client) Login(ctx context.Context, creds Credentials) (*AuthResponse, error) {
	var resp AuthResponse
	if err := c.post(ctx, "/auth/login", creds, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Register creates an account. Duplicate-email and other domain
// validation failures come back unchanged from the API.
func (c *Client) Register(ctx context.Context, reg Registration) (*AuthResponse, error) {
	var resp AuthResponse
	if err := c.post(ctx, "/auth/register", reg, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Logout invalidates the token server-side. The store calls this
// best-effort: a failure here never blocks local sign-out.
func (c *Client) Logout(ctx context.Context) error {
	return c.post(ctx, "/auth/logout", nil, nil)
}

// ForgotPassword requests a password-reset email
func (c *Client) ForgotPassword(ctx context.Context, email string) error {
	body := map[string]string{"email": email}
	return c.post(ctx, "/auth/forgotpassword", body, nil)
}

// UpdateDetails updates the signed-in user's profile fields and returns
// the new identity.
func (c *Client) UpdateDetails(ctx context.Context, update ProfileUpdate) (*User, error) {
	var user User
	if err := c.put(ctx, "/auth/updatedetails", update, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// UpdatePassword changes the signed-in user's password
func (c *Client) UpdatePassword(ctx context.Context, current, next string) error {
	body := map[string]string{
		"currentPassword": current,
		"newPassword":     next,
	}
	return c.put(ctx, "/auth/updatepassword", body, nil)
}
