package sdk

import "context"

// Login authenticates a user and returns a token.
// The token is automatically stored in the client for subsequent requests.
// Wrong credentials surface as an application error, see IsUnauthorized.
func (c *Client) Login(ctx context.Context, req *LoginRequest) (*AuthResponse, error) {
	var result AuthResponse
	if err := c.post(ctx, "/auth/login", req, &result); err != nil {
		return nil, err
	}
	c.SetToken(result.Token)
	return &result, nil
}

// LoginWithPassword is a convenience method to login with username and password
func (c *Client) LoginWithPassword(ctx context.Context, username, password string) (*AuthResponse, error) {
	return c.Login(ctx, &LoginRequest{
		Username: username,
		Password: password,
	})
}

// SignUp registers a new user and stores the returned token
func (c *Client) SignUp(ctx context.Context, req *SignUpRequest) (*AuthResponse, error) {
	var result AuthResponse
	if err := c.post(ctx, "/auth/signup", req, &result); err != nil {
		return nil, err
	}
	c.SetToken(result.Token)
	return &result, nil
}
