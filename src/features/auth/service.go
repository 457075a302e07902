package auth

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

const issuer = "navidrop"

// ErrInvalidSession is returned for any cookie that does not carry a valid session token.
var ErrInvalidSession = errors.New("invalid session")

// Options holds the single-user credentials and the session cookie settings.
type Options struct {
	Username     string
	Password     string
	PasswordHash string // bcrypt; when set Password is ignored
	Secret       string
	CookieName   string
	MaxAge       time.Duration
	SameSite     string
	Secure       bool
}

// Service checks credentials and issues signed session tokens.
type Service struct {
	username string
	hash     []byte
	secret   []byte
	opts     Options
	now      func() time.Time
}

// NewService creates a new auth service. A plain password is hashed once at startup
// so both paths compare through bcrypt.
func NewService(opts Options) (*Service, error) {
	hash := []byte(opts.PasswordHash)
	if len(hash) == 0 {
		h, err := HashPassword(opts.Password)
		if err != nil {
			return nil, err
		}
		hash = []byte(h)
	} else if _, err := bcrypt.Cost(hash); err != nil {
		return nil, fmt.Errorf("invalid password hash: %w", err)
	}
	if len(opts.Secret) == 0 {
		return nil, errors.New("session secret is required")
	}
	return &Service{
		username: opts.Username,
		hash:     hash,
		secret:   []byte(opts.Secret),
		opts:     opts,
		now:      time.Now,
	}, nil
}

// HashPassword generates a bcrypt hash of the password.
func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(bytes), nil
}

// CheckCredentials reports whether the pair matches the configured user.
func (s *Service) CheckCredentials(username, password string) bool {
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(s.username)) == 1
	passOK := bcrypt.CompareHashAndPassword(s.hash, []byte(password)) == nil
	return userOK && passOK
}

// IssueToken signs a session token for the configured user.
func (s *Service) IssueToken() (string, error) {
	now := s.now()
	claims := jwt.RegisteredClaims{
		Issuer:    issuer,
		Subject:   s.username,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.opts.MaxAge)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign session token: %w", err)
	}
	return signed, nil
}

// ParseToken verifies the token and returns its subject.
func (s *Service) ParseToken(token string) (string, error) {
	if token == "" {
		return "", ErrInvalidSession
	}
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidSession, err)
	}
	if claims.Subject != s.username {
		return "", fmt.Errorf("%w: unknown subject", ErrInvalidSession)
	}
	return claims.Subject, nil
}

// CookieName is the name of the session cookie.
func (s *Service) CookieName() string {
	return s.opts.CookieName
}
