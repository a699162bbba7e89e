package domain

import "context"

// AuthResult is what the remote auth collaborator returns on success. It is
// stored verbatim into the session.
type AuthResult struct {
	User  User   `json:"user"`
	Token string `json:"token"`
}

// Registration carries the fields needed to create an account.
type Registration struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Company  string `json:"company"`
}

// Authenticator is the remote auth collaborator. Implementations may block on
// the network and must honour ctx.
type Authenticator interface {
	Login(ctx context.Context, email, password string) (AuthResult, error)
	Register(ctx context.Context, reg Registration) (AuthResult, error)
}
