package storefront

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/aussiebroadwan/storefront/pkg/commerce"
	"github.com/aussiebroadwan/storefront/pkg/jwtx"
)

// PlaceholderUsername names a user created from an external callback whose
// token carries no username.
const PlaceholderUsername = "Google User"

// Login authenticates with a customer name and password and stores the
// resulting session.
func (c *Client) Login(ctx context.Context, name, password string) (*User, error) {
	return c.authenticate(ctx, "/users/login/", loginRequest{Name: name, Password: password})
}

// GoogleAuth exchanges a Google ID token credential for a session.
func (c *Client) GoogleAuth(ctx context.Context, credential string) (*User, error) {
	return c.authenticate(ctx, "/users/google/auth/", map[string]string{"credential": credential})
}

func (c *Client) authenticate(ctx context.Context, p string, in any) (*User, error) {
	c.sessions.SetLoading(true)
	defer c.sessions.SetLoading(false)

	var resp AuthResponse
	if err := c.public.Do(ctx, http.MethodPost, p, in, &resp); err != nil {
		c.sessions.SetError(err)
		return nil, err
	}
	if resp.Tokens.Access == "" {
		err := fmt.Errorf("%w: login response carried no access token", ErrServer)
		c.sessions.SetError(err)
		return nil, err
	}

	user := resp.User
	if user == nil {
		user = userFromToken(resp.Tokens.Access)
	}
	if err := c.sessions.SetAuth(ctx, user, resp.Tokens); err != nil {
		return nil, err
	}
	return user, nil
}

// LoginWithTokens creates a session from an access/refresh pair delivered by
// an external auth callback. The identity is read from the access token
// claims, falling back to a placeholder.
func (c *Client) LoginWithTokens(ctx context.Context, access, refresh string) (*User, error) {
	if access == "" {
		return nil, fmt.Errorf("%w: missing access token", ErrValidation)
	}
	user := userFromToken(access)
	if err := c.sessions.SetAuth(ctx, user, Tokens{Access: access, Refresh: refresh}); err != nil {
		return nil, err
	}
	return user, nil
}

func userFromToken(access string) *User {
	claims, err := jwtx.ParseUnverified(access)
	if err != nil {
		return &User{Username: PlaceholderUsername}
	}
	u := &User{
		ID:       commerce.ID(claims.UserID),
		Username: claims.Username,
		Email:    claims.Email,
	}
	if u.ID == "" {
		u.ID = commerce.ID(claims.Subject)
	}
	if u.Username == "" {
		u.Username = PlaceholderUsername
	}
	return u
}

// Register creates an account. When the API answers with tokens the new
// account is logged in straight away.
func (c *Client) Register(ctx context.Context, req RegisterRequest) (*User, error) {
	if req.Role == "" {
		req.Role = "CLIENT"
		if req.Merchant {
			req.Role = "MERCHANT"
		}
	}

	var raw json.RawMessage
	if err := c.public.Do(ctx, http.MethodPost, "/users/signup/", req, &raw); err != nil {
		return nil, err
	}

	// The API answers with either {user, tokens} or the bare user.
	var resp AuthResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("storefront: failed to decode response: %w", err)
	}
	user := resp.User
	if user == nil {
		user = &User{}
		if err := json.Unmarshal(raw, user); err != nil {
			return nil, fmt.Errorf("storefront: failed to decode response: %w", err)
		}
	}
	if resp.Tokens.Access != "" {
		if err := c.sessions.SetAuth(ctx, user, resp.Tokens); err != nil {
			return nil, err
		}
	}
	return user, nil
}

// Logout drops the session. Subsequent authenticated calls carry no
// credentials.
func (c *Client) Logout(ctx context.Context) error {
	return c.sessions.ClearAuth(ctx)
}

// Me fetches the current user's profile and refreshes the identity stored
// in the session.
func (c *Client) Me(ctx context.Context) (*User, error) {
	var u User
	if err := c.authed.Do(ctx, http.MethodGet, "/users/me/", nil, &u); err != nil {
		return nil, err
	}
	if err := c.sessions.setUser(ctx, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (c *Client) UpdateProfile(ctx context.Context, update ProfileUpdate) (*User, error) {
	var u User
	if err := c.authed.Do(ctx, http.MethodPut, "/users/me/", update, &u); err != nil {
		return nil, err
	}
	if err := c.sessions.setUser(ctx, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (c *Client) ChangePassword(ctx context.Context, change PasswordChange) error {
	return c.authed.Do(ctx, http.MethodPost, "/users/change-password/", change, nil)
}
