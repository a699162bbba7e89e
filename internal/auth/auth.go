// Package auth provides the authentication collaborators the session store
// delegates to: a demo authenticator matching the hosted API's placeholder
// behaviour and a local bcrypt/JWT authenticator.
package auth

import (
	"context"
	"errors"

	"gcms/pkg/domain"
)

type (
	// Authenticator is the remote auth contract the session store calls.
	Authenticator = domain.Authenticator
	// Result is the user and token returned on success.
	Result = domain.AuthResult
)

var (
	// ErrInvalidCredentials is returned when email or password do not match.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrEmailTaken is returned when registering an email that already exists.
	ErrEmailTaken = errors.New("email already registered")
	// ErrInvalidToken is returned by Validate for missing, malformed or expired tokens.
	ErrInvalidToken = errors.New("invalid token")
)

// Validator checks whether a session token is still acceptable.
type Validator interface {
	Validate(ctx context.Context, token string) error
}

// Session is the part of the session store CheckSession needs.
type Session interface {
	Current() domain.Session
	Logout(ctx context.Context) error
}

// CheckSession logs the session out when it carries no token or the token no
// longer validates. It reports whether the session is still signed in.
func CheckSession(ctx context.Context, s Session, v Validator) (bool, error) {
	cur := s.Current()
	if cur.Token == nil || *cur.Token == "" {
		return false, s.Logout(ctx)
	}
	if err := v.Validate(ctx, *cur.Token); err != nil {
		return false, s.Logout(ctx)
	}
	return true, nil
}

// DemoToken is the fixed token the demo authenticator issues.
const DemoToken = "mock-jwt-token"

// Demo accepts any credentials and returns a fixed demo identity. Every
// token validates.
type Demo struct{}

var (
	_ Authenticator = Demo{}
	_ Validator     = Demo{}
)

// Login implements Authenticator.
func (Demo) Login(ctx context.Context, email, _ string) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	return Result{
		User:  domain.User{ID: "1", Email: email, Name: "Demo User", Company: "Demo Company", Role: domain.RoleUser},
		Token: DemoToken,
	}, nil
}

// Register implements Authenticator.
func (Demo) Register(ctx context.Context, reg domain.Registration) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	return Result{
		User:  domain.User{ID: "1", Email: reg.Email, Name: reg.Name, Company: reg.Company, Role: domain.RoleUser},
		Token: DemoToken,
	}, nil
}

// Validate implements Validator.
func (Demo) Validate(context.Context, string) error { return nil }
