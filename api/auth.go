package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/pgcportal/portal/permission"
)

// PathGuardConfig serves the route/action requirement mapping for the
// caller's token.
const PathGuardConfig = "/auth/guard-config"

// LoginRequest is the body of POST /auth/login.
type LoginRequest struct {
	EmployeeNo string `json:"employee_no"`
	Password   string `json:"password"`
}

// Login exchanges credentials for an access token.
func (c *Client) Login(ctx context.Context, employeeNo, password string) (LoginResult, error) {
	employeeNo = strings.TrimSpace(employeeNo)
	if employeeNo == "" || password == "" {
		return LoginResult{}, fmt.Errorf("%w: employee number and password are required", ErrInvalidInput)
	}

	var out LoginResult
	err := c.Do(ctx, Request{
		Method: http.MethodPost,
		Path:   PathLogin,
		Body:   LoginRequest{EmployeeNo: employeeNo, Password: password},
	}, &out)
	if err != nil {
		return LoginResult{}, err
	}
	if out.AccessToken == "" {
		return LoginResult{}, fmt.Errorf("%w: login returned no access token", ErrInvalidResponse)
	}
	return out, nil
}

// Logout revokes token server-side.
func (c *Client) Logout(ctx context.Context, token string) error {
	return c.Do(ctx, Request{
		Method:      http.MethodPost,
		Path:        PathLogout,
		Token:       token,
		RequireAuth: true,
	}, nil)
}

// Me returns the principal behind token.
func (c *Client) Me(ctx context.Context, token string) (User, error) {
	var out User
	err := c.Do(ctx, Request{Path: "/auth/me", Token: token, RequireAuth: true}, &out)
	return out, err
}

// GuardConfig fetches the requirement mapping for token.
func (c *Client) GuardConfig(ctx context.Context, token string) (permission.GuardConfig, error) {
	var out permission.GuardConfig
	err := c.Do(ctx, Request{Path: PathGuardConfig, Token: token, RequireAuth: true}, &out)
	return out, err
}
