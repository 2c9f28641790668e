package auth

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"

	"github.com/gosuda/fieldops/internal/domain"
)

// Sentinel errors for the auth package.
var (
	ErrInvalidCredentials = errors.New("auth: invalid credentials")
	ErrUserAlreadyExists  = errors.New("auth: user already exists")
)

const bcryptCost = 10

// argon2id parameters used by hashes written before the bcrypt switch.
const (
	argonTime    = 1
	argonMemory  = 64 * 1024 // 64 MiB
	argonThreads = 4
	argonKeyLen  = 32
	argonSaltLen = 16
)

// dummyHash is compared against when the login is unknown, so a missing user
// costs the same bcrypt work as a wrong password.
var dummyHash = mustHash("fieldops-unknown-user")

func mustHash(password string) string {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		panic(fmt.Sprintf("auth: generating dummy hash: %v", err))
	}
	return string(hash)
}

// UserStore is the slice of the user repository the auth flows need.
type UserStore interface {
	GetByLogin(ctx context.Context, schema, login string) (*domain.User, error)
	GetByUID(ctx context.Context, schema string, uid int64) (*domain.User, error)
	SetPassword(ctx context.Context, schema string, uid int64, hash string) error
	Create(ctx context.Context, schema string, rec domain.Record) (domain.Record, error)
}

// SessionStore persists the digest of each user's current refresh token.
type SessionStore interface {
	Save(ctx context.Context, schema string, uid int64, digest string, ttl time.Duration) error
	Matches(ctx context.Context, schema string, uid int64, digest string) (bool, error)
	Revoke(ctx context.Context, schema string, uid int64) error
}

type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// Service provides authentication operations.
type Service struct {
	users      UserStore
	sessions   SessionStore
	jwtSecret  string
	accessTTL  time.Duration
	refreshTTL time.Duration
	verify     func(password, encoded string) bool
}

// NewService creates a new auth service.
func NewService(users UserStore, sessions SessionStore, jwtSecret string, accessTTL, refreshTTL time.Duration) *Service {
	return &Service{
		users:      users,
		sessions:   sessions,
		jwtSecret:  jwtSecret,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		verify:     verifyPassword,
	}
}

// Secret returns the signing key, for middleware that validates access tokens.
func (s *Service) Secret() string {
	return s.jwtSecret
}

// Login checks username/password in the tenant schema and returns a fresh
// token pair. When uid is given it must name the same user; it is never a
// substitute for the password. Every lookup failure, including an unknown
// tenant schema, is reported as ErrInvalidCredentials.
func (s *Service) Login(ctx context.Context, schema, username, password string, uid *int64) (*TokenPair, error) {
	user, err := s.users.GetByLogin(ctx, schema, username)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) && !errors.Is(err, domain.ErrValidation) {
			log.Warn().Err(err).Str("schema", schema).Msg("auth: login lookup failed")
		}
		s.verify(password, dummyHash)
		return nil, fmt.Errorf("auth.Login: %w", ErrInvalidCredentials)
	}

	if !s.verify(password, user.PasswordHash) {
		return nil, fmt.Errorf("auth.Login: %w", ErrInvalidCredentials)
	}

	if uid != nil && *uid != user.UID {
		return nil, fmt.Errorf("auth.Login: %w", ErrInvalidCredentials)
	}

	pair, err := s.issuePair(ctx, Identity{UID: user.UID, Username: user.Login, Schema: schema})
	if err != nil {
		return nil, fmt.Errorf("auth.Login: %w", err)
	}
	return pair, nil
}

// Refresh exchanges a live refresh token for a new pair and rotates the
// stored digest, so the presented token cannot be used again. A non-empty
// schema must match the token's tenant.
func (s *Service) Refresh(ctx context.Context, refreshToken, schema string) (*TokenPair, error) {
	claims, err := ValidateToken(s.jwtSecret, refreshToken)
	if err != nil {
		return nil, fmt.Errorf("auth.Refresh: %w", err)
	}
	if !claims.IsRefresh() {
		return nil, fmt.Errorf("auth.Refresh: %w", ErrInvalidToken)
	}

	id, err := claims.Identity()
	if err != nil {
		return nil, fmt.Errorf("auth.Refresh: %w", err)
	}
	if id.Schema == "" || (schema != "" && schema != id.Schema) {
		return nil, fmt.Errorf("auth.Refresh: %w", ErrInvalidToken)
	}

	ok, err := s.sessions.Matches(ctx, id.Schema, id.UID, Digest(refreshToken))
	if err != nil {
		return nil, fmt.Errorf("auth.Refresh: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("auth.Refresh: %w", ErrInvalidToken)
	}

	// The user may have been removed since the token was issued.
	user, err := s.users.GetByUID(ctx, id.Schema, id.UID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("auth.Refresh: %w", ErrInvalidToken)
	}
	if err != nil {
		return nil, fmt.Errorf("auth.Refresh: %w", err)
	}
	id.Username = user.Login

	pair, err := s.issuePair(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("auth.Refresh: %w", err)
	}
	return pair, nil
}

// Register creates a user in the tenant schema. The upass column is replaced
// by its bcrypt hash and the stored row is returned without it.
func (s *Service) Register(ctx context.Context, schema string, rec domain.Record) (domain.Record, error) {
	login, _ := rec.String(domain.UserLoginColumn)
	password, _ := rec.String(domain.UserPasswordColumn)
	if strings.TrimSpace(login) == "" {
		return nil, fmt.Errorf("auth.Register: %w", domain.Invalid(domain.UserLoginColumn, "login is required"))
	}
	if password == "" {
		return nil, fmt.Errorf("auth.Register: %w", domain.Invalid(domain.UserPasswordColumn, "password is required"))
	}

	existing, err := s.users.GetByLogin(ctx, schema, login)
	switch {
	case err == nil && existing != nil:
		return nil, fmt.Errorf("auth.Register: %w", ErrUserAlreadyExists)
	case err != nil && !errors.Is(err, domain.ErrNotFound):
		return nil, fmt.Errorf("auth.Register: %w", err)
	}

	hash, err := hashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("auth.Register: %w", err)
	}

	row := rec.Without()
	row[domain.UserPasswordColumn] = hash

	created, err := s.users.Create(ctx, schema, row)
	if err != nil {
		return nil, fmt.Errorf("auth.Register: %w", err)
	}
	return domain.PublicUser(created), nil
}

// ResetPassword sets a new password for the caller. The caller's token must
// belong to the same tenant and username. The stored refresh session is
// revoked so existing refresh tokens stop working.
func (s *Service) ResetPassword(ctx context.Context, caller Identity, schema, username, password string) error {
	if caller.Schema != schema || caller.Username != username {
		return fmt.Errorf("auth.ResetPassword: %w", ErrInvalidCredentials)
	}
	if password == "" {
		return fmt.Errorf("auth.ResetPassword: %w", domain.Invalid("password", "password is required"))
	}

	user, err := s.lookup(ctx, schema, username)
	if err != nil {
		return fmt.Errorf("auth.ResetPassword: %w", err)
	}
	if user.UID != caller.UID {
		return fmt.Errorf("auth.ResetPassword: %w", ErrInvalidCredentials)
	}

	hash, err := hashPassword(password)
	if err != nil {
		return fmt.Errorf("auth.ResetPassword: %w", err)
	}
	if err := s.users.SetPassword(ctx, schema, user.UID, hash); err != nil {
		return fmt.Errorf("auth.ResetPassword: %w", err)
	}
	if err := s.sessions.Revoke(ctx, schema, user.UID); err != nil {
		return fmt.Errorf("auth.ResetPassword: %w", err)
	}
	return nil
}

// lookup resolves a login, folding unknown users and malformed tenants into
// ErrInvalidCredentials.
func (s *Service) lookup(ctx context.Context, schema, username string) (*domain.User, error) {
	user, err := s.users.GetByLogin(ctx, schema, username)
	if errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrValidation) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (s *Service) issuePair(ctx context.Context, id Identity) (*TokenPair, error) {
	access, err := IssueAccessToken(s.jwtSecret, id, s.accessTTL)
	if err != nil {
		return nil, err
	}
	refresh, err := IssueRefreshToken(s.jwtSecret, id, s.refreshTTL)
	if err != nil {
		return nil, err
	}
	if err := s.sessions.Save(ctx, id.Schema, id.UID, Digest(refresh), s.refreshTTL); err != nil {
		return nil, err
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// Digest is the form in which refresh tokens are persisted.
func Digest(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return "", domain.Invalid("password", "password must be at most 72 bytes")
	}
	if err != nil {
		return "", fmt.Errorf("hashing password: %w", err)
	}
	return string(hash), nil
}

// verifyPassword accepts bcrypt hashes and legacy argon2id hashes of the
// form hex(salt)$hex(hash).
func verifyPassword(password, encoded string) bool {
	if isBcrypt(encoded) {
		return bcrypt.CompareHashAndPassword([]byte(encoded), []byte(password)) == nil
	}
	return verifyArgon2(password, encoded)
}

func isBcrypt(encoded string) bool {
	for _, p := range []string{"$2a$", "$2b$", "$2y$"} {
		if strings.HasPrefix(encoded, p) {
			return true
		}
	}
	return false
}

func verifyArgon2(password, encoded string) bool {
	saltHex, hashHex, ok := strings.Cut(encoded, "$")
	if !ok || saltHex == "" || hashHex == "" {
		return false
	}

	salt, err := hex.DecodeString(saltHex)
	if err != nil {
		return false
	}

	expectedHash, err := hex.DecodeString(hashHex)
	if err != nil {
		return false
	}

	computed := argon2.IDKey([]byte(password), salt, argonTime, argonMemory, argonThreads, argonKeyLen)

	return subtle.ConstantTimeCompare(computed, expectedHash) == 1
}
