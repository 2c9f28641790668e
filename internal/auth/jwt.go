package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const issuer = "fieldops"

const (
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
)

// Identity is the authenticated principal carried by both token types.
type Identity struct {
	UID      int64
	Username string
	Schema   string
}

// Claims holds the JWT token payload. The tenant schema is written as
// dbSchema; tokens carrying only the older schema claim are still accepted.
type Claims struct {
	jwt.RegisteredClaims
	Username     string `json:"username"`
	Schema       string `json:"dbSchema"`
	LegacySchema string `json:"schema,omitempty"`
	TokenType    string `json:"typ"` // "access" or "refresh"
}

// ErrInvalidToken is returned when a JWT cannot be parsed or has expired.
var ErrInvalidToken = errors.New("auth: invalid or expired token")

// Identity extracts the principal from validated claims.
func (c *Claims) Identity() (Identity, error) {
	uid, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil {
		return Identity{}, fmt.Errorf("auth.Claims.Identity: subject: %w", ErrInvalidToken)
	}
	return Identity{UID: uid, Username: c.Username, Schema: c.TenantSchema()}, nil
}

func (c *Claims) TenantSchema() string {
	if c.Schema != "" {
		return c.Schema
	}
	return c.LegacySchema
}

func (c *Claims) IsAccess() bool  { return c.TokenType == tokenTypeAccess }
func (c *Claims) IsRefresh() bool { return c.TokenType == tokenTypeRefresh }

// IssueAccessToken creates a signed JWT access token.
func IssueAccessToken(secret string, id Identity, ttl time.Duration) (string, error) {
	return issueToken(secret, id, tokenTypeAccess, ttl)
}

// IssueRefreshToken creates a signed JWT refresh token.
func IssueRefreshToken(secret string, id Identity, ttl time.Duration) (string, error) {
	return issueToken(secret, id, tokenTypeRefresh, ttl)
}

func issueToken(secret string, id Identity, tokenType string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   strconv.FormatInt(id.UID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			Issuer:    issuer,
		},
		Username:  id.Username,
		Schema:    id.Schema,
		TokenType: tokenType,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("auth.issueToken: %w", err)
	}

	return signed, nil
}

// ValidateToken parses and validates a JWT token string. Returns the embedded claims.
func ValidateToken(secret, tokenString string) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(_ *jwt.Token) (any, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{"HS256"}), jwt.WithIssuer(issuer), jwt.WithExpirationRequired())
	if err != nil {
		return nil, fmt.Errorf("auth.ValidateToken: %w", ErrInvalidToken)
	}

	if !token.Valid {
		return nil, fmt.Errorf("auth.ValidateToken: %w", ErrInvalidToken)
	}

	return claims, nil
}
