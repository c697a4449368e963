package api

import (
	"context"
	"net/http"
)

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name,omitempty"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// User ...
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// AuthResult carries the credentials issued for a user. APIKey authorizes the
// processing endpoints, SessionToken the account-management ones.
type AuthResult struct {
	User         User   `json:"user"`
	APIKey       string `json:"api_key"`
	SessionToken string `json:"session_token"`
}

// Register creates an account. The call is anonymous; the returned credentials
// are applied to the client for subsequent requests.
func (c *Client) Register(ctx context.Context, email, password, name string) (AuthResult, error) {
	var result AuthResult
	err := c.do(ctx, http.MethodPost, "/auth/register", registerRequest{
		Email:    email,
		Password: password,
		Name:     name,
	}, authNone, &result)
	if err != nil {
		return AuthResult{}, err
	}
	c.adoptCredentials(result)
	return result, nil
}

// Login authenticates an existing account, adopting the returned credentials.
func (c *Client) Login(ctx context.Context, email, password string) (AuthResult, error) {
	var result AuthResult
	err := c.do(ctx, http.MethodPost, "/auth/login", loginRequest{
		Email:    email,
		Password: password,
	}, authNone, &result)
	if err != nil {
		return AuthResult{}, err
	}
	c.adoptCredentials(result)
	return result, nil
}

func (c *Client) adoptCredentials(result AuthResult) {
	if result.APIKey != "" {
		c.apiKey = result.APIKey
	}
	if result.SessionToken != "" {
		c.sessionToken = result.SessionToken
	}
}
