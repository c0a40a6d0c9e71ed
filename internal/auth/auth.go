// Package auth resolves acting users from signed tokens. It is the
// external auth collaborator: no credential or password handling, only
// verification of HS256 tokens whose subject is a user id.
package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/taskdeck/taskdeck/internal/domain"
	apperrors "github.com/taskdeck/taskdeck/internal/errors"
	"github.com/taskdeck/taskdeck/internal/storage"
)

// Authenticator verifies tokens and resolves them to stored users.
type Authenticator struct {
	secret []byte
	users  storage.UserStore
	now    func() time.Time
}

// NewAuthenticator constructs a verifier over the given signing secret and
// user directory.
func NewAuthenticator(secret []byte, users storage.UserStore, now func() time.Time) *Authenticator {
	if now == nil {
		now = time.Now
	}
	return &Authenticator{
		secret: secret,
		users:  users,
		now:    now,
	}
}

// Authenticate verifies a token and returns the user id it names. The user
// must exist in the directory.
func (a *Authenticator) Authenticate(ctx context.Context, token string) (string, error) {
	user, err := a.ResolveUser(ctx, token)
	if err != nil {
		return "", err
	}
	return user.ID, nil
}

// ResolveUser verifies a token and loads the acting user. All pipeline
// entrypoints take the resulting domain.User as the actor.
func (a *Authenticator) ResolveUser(ctx context.Context, token string) (domain.User, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return domain.User{}, apperrors.New(apperrors.CodeUnauthorized, "token is required")
	}
	if len(a.secret) == 0 {
		return domain.User{}, errors.New("token verifier is not configured")
	}

	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return a.secret, nil
	},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithTimeFunc(a.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return domain.User{}, mapJWTError(err)
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return domain.User{}, apperrors.New(apperrors.CodeUnauthorized, "token subject is required")
	}

	user, err := a.users.GetUser(ctx, claims.Subject)
	if errors.Is(err, storage.ErrNotFound) {
		return domain.User{}, apperrors.New(apperrors.CodeUnauthorized, "token user is unknown")
	}
	if err != nil {
		return domain.User{}, err
	}
	return user, nil
}

// Issue signs a token for the given user id, valid for ttl. Used by the
// seed tooling and tests; the engine itself only verifies.
func (a *Authenticator) Issue(userID string, ttl time.Duration) (string, error) {
	now := a.now().UTC()
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

// mapJWTError translates jwt library errors to application errors.
func mapJWTError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return apperrors.New(apperrors.CodeUnauthorized, "token is expired")
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return apperrors.New(apperrors.CodeUnauthorized, "token signature is invalid")
	case errors.Is(err, jwt.ErrTokenUnverifiable):
		return apperrors.New(apperrors.CodeUnauthorized, "token alg is invalid")
	}
	return apperrors.New(apperrors.CodeUnauthorized, "token is invalid")
}
