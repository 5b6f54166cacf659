// Package tokens issues and verifies the signed access and refresh tokens
// that make up a login session.
//
// Access tokens carry the user's identity ({_id, email, username, fullName})
// and are signed with the access secret. Refresh tokens carry only the user
// id and are signed with a distinct refresh secret. Both are HS256 JWTs.
package tokens

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dalemusser/playtweet/internal/domain/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	// ErrExpired is returned when a token's exp claim is in the past.
	ErrExpired = errors.New("token has expired")
	// ErrInvalid is returned for malformed tokens, bad signatures, and
	// tokens signed with an unexpected method.
	ErrInvalid = errors.New("token is invalid")
)

// Config holds the signing secrets and lifetimes.
type Config struct {
	AccessSecret  string
	AccessExpiry  time.Duration
	RefreshSecret string
	RefreshExpiry time.Duration
}

// Validate reports the first configuration problem, if any.
func (c Config) Validate() error {
	switch {
	case c.AccessSecret == "":
		return errors.New("access token secret is not set")
	case c.RefreshSecret == "":
		return errors.New("refresh token secret is not set")
	case c.AccessExpiry <= 0:
		return errors.New("access token expiry is not set")
	case c.RefreshExpiry <= 0:
		return errors.New("refresh token expiry is not set")
	case c.AccessSecret == c.RefreshSecret:
		return errors.New("access and refresh token secrets must differ")
	}
	return nil
}

// AccessClaims is the payload of an access token.
type AccessClaims struct {
	UserID   string `json:"_id"`
	Email    string `json:"email"`
	Username string `json:"username"`
	FullName string `json:"fullName"`
	jwt.RegisteredClaims
}

// RefreshClaims is the payload of a refresh token.
type RefreshClaims struct {
	UserID string `json:"_id"`
	jwt.RegisteredClaims
}

// Pair is an access token together with its refresh token.
type Pair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// Issuer mints and parses tokens. It is immutable and safe for concurrent use.
type Issuer struct {
	cfg    Config
	now    func() time.Time
	parser *jwt.Parser
}

// New validates cfg and returns an Issuer.
func New(cfg Config) (*Issuer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Issuer{
		cfg:    cfg,
		now:    time.Now,
		parser: jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired()),
	}, nil
}

// AccessExpiry returns the configured access token lifetime.
func (i *Issuer) AccessExpiry() time.Duration { return i.cfg.AccessExpiry }

// RefreshExpiry returns the configured refresh token lifetime.
func (i *Issuer) RefreshExpiry() time.Duration { return i.cfg.RefreshExpiry }

func (i *Issuer) registered(ttl time.Duration) jwt.RegisteredClaims {
	now := i.now()
	return jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
}

// IssueAccess signs an access token for u.
func (i *Issuer) IssueAccess(u *models.User) (string, error) {
	claims := AccessClaims{
		UserID:           u.ID.Hex(),
		Email:            u.Email,
		Username:         u.Username,
		FullName:         u.FullName,
		RegisteredClaims: i.registered(i.cfg.AccessExpiry),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(i.cfg.AccessSecret))
	if err != nil {
		return "", fmt.Errorf("sign access token: %w", err)
	}
	return signed, nil
}

// IssueRefresh signs a refresh token for u.
func (i *Issuer) IssueRefresh(u *models.User) (string, error) {
	claims := RefreshClaims{
		UserID:           u.ID.Hex(),
		RegisteredClaims: i.registered(i.cfg.RefreshExpiry),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(i.cfg.RefreshSecret))
	if err != nil {
		return "", fmt.Errorf("sign refresh token: %w", err)
	}
	return signed, nil
}

// IssuePair signs a fresh access and refresh token for u.
func (i *Issuer) IssuePair(u *models.User) (Pair, error) {
	access, err := i.IssueAccess(u)
	if err != nil {
		return Pair{}, err
	}
	refresh, err := i.IssueRefresh(u)
	if err != nil {
		return Pair{}, err
	}
	return Pair{AccessToken: access, RefreshToken: refresh}, nil
}

// ParseAccess verifies an access token and returns its claims.
func (i *Issuer) ParseAccess(token string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	if err := i.parse(token, claims, i.cfg.AccessSecret); err != nil {
		return nil, err
	}
	if claims.UserID == "" {
		return nil, ErrInvalid
	}
	return claims, nil
}

// ParseRefresh verifies a refresh token and returns its claims.
func (i *Issuer) ParseRefresh(token string) (*RefreshClaims, error) {
	claims := &RefreshClaims{}
	if err := i.parse(token, claims, i.cfg.RefreshSecret); err != nil {
		return nil, err
	}
	if claims.UserID == "" {
		return nil, ErrInvalid
	}
	return claims, nil
}

func (i *Issuer) parse(token string, claims jwt.Claims, secret string) error {
	if token == "" {
		return ErrInvalid
	}
	parsed, err := i.parser.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return []byte(secret), nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return ErrExpired
		}
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if !parsed.Valid {
		return ErrInvalid
	}
	return nil
}

// ParseExpiry parses a token lifetime. It accepts Go durations ("15m",
// "24h") and whole days with a "d" suffix ("1d", "10d").
func ParseExpiry(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errors.New("empty expiry")
	}
	if days, ok := strings.CutSuffix(s, "d"); ok {
		n, err := strconv.Atoi(days)
		if err != nil || n <= 0 {
			return 0, fmt.Errorf("invalid expiry %q", s)
		}
		return time.Duration(n) * 24 * time.Hour, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid expiry %q: %w", s, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("invalid expiry %q", s)
	}
	return d, nil
}
