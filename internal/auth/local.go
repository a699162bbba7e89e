package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"gcms/pkg/domain"
)

const (
	issuer     = "gcms"
	defaultTTL = 24 * time.Hour
)

// Claims is the JWT payload issued by Local.
type Claims struct {
	UserID  string      `json:"userId"`
	Email   string      `json:"email"`
	Name    string      `json:"name"`
	Company string      `json:"company"`
	Role    domain.Role `json:"role"`
	jwt.RegisteredClaims
}

type account struct {
	user domain.User
	hash []byte
}

// Local keeps a bcrypt-hashed user directory in memory and issues HS256
// tokens signed with secret.
type Local struct {
	mu       sync.RWMutex
	secret   []byte
	ttl      time.Duration
	cost     int
	accounts map[string]account
	now      func() time.Time
	newID    func() string
}

var (
	_ Authenticator = (*Local)(nil)
	_ Validator     = (*Local)(nil)
)

// NewLocal builds a Local authenticator. A zero ttl means 24h.
func NewLocal(secret string, ttl time.Duration) (*Local, error) {
	if secret == "" {
		return nil, errors.New("jwt secret required")
	}
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &Local{
		secret:   []byte(secret),
		ttl:      ttl,
		cost:     bcrypt.DefaultCost,
		accounts: make(map[string]account),
		now:      time.Now,
		newID:    domain.NewID,
	}, nil
}

func normaliseEmail(email string) string { return strings.ToLower(strings.TrimSpace(email)) }

// Register implements Authenticator. The first account becomes an admin.
func (l *Local) Register(ctx context.Context, reg domain.Registration) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	email := normaliseEmail(reg.Email)
	if email == "" || reg.Password == "" {
		return Result{}, errors.New("email and password required")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(reg.Password), l.cost)
	if err != nil {
		return Result{}, fmt.Errorf("hash password: %w", err)
	}
	l.mu.Lock()
	if _, ok := l.accounts[email]; ok {
		l.mu.Unlock()
		return Result{}, ErrEmailTaken
	}
	role := domain.RoleUser
	if len(l.accounts) == 0 {
		role = domain.RoleAdmin
	}
	user := domain.User{ID: l.newID(), Email: email, Name: reg.Name, Company: reg.Company, Role: role}
	l.accounts[email] = account{user: user, hash: hash}
	l.mu.Unlock()
	return l.issue(user)
}

// Login implements Authenticator.
func (l *Local) Login(ctx context.Context, email, password string) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	l.mu.RLock()
	acc, ok := l.accounts[normaliseEmail(email)]
	l.mu.RUnlock()
	if !ok {
		return Result{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(acc.hash, []byte(password)); err != nil {
		return Result{}, ErrInvalidCredentials
	}
	return l.issue(acc.user)
}

func (l *Local) issue(u domain.User) (Result, error) {
	now := l.now()
	claims := Claims{
		UserID:  u.ID,
		Email:   u.Email,
		Name:    u.Name,
		Company: u.Company,
		Role:    u.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   u.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(l.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(l.secret)
	if err != nil {
		return Result{}, fmt.Errorf("sign token: %w", err)
	}
	return Result{User: u, Token: signed}, nil
}

// Parse returns the claims of a valid token.
func (l *Local) Parse(token string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(*jwt.Token) (any, error) {
		return l.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithTimeFunc(l.now),
	)
	if err != nil || !parsed.Valid {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// Validate implements Validator.
func (l *Local) Validate(_ context.Context, token string) error {
	_, err := l.Parse(token)
	return err
}
