package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/andressvc/App-Movil-ASOCRISTA-sub001/internal/platform/apperr"
)

type contextKey string

const (
	UserIDKey    contextKey = "user_id"
	UserRolesKey contextKey = "user_roles"
	TokenKey     contextKey = "token_claims"
)

const (
	RoleAdmin = "admin"
	RoleStaff = "staff"
)

// Rejection codes returned to clients in the error envelope.
const (
	CodeTokenMissing = "TOKEN_MISSING"
	CodeTokenInvalid = "TOKEN_INVALID"
	CodeTokenExpired = "TOKEN_EXPIRED"
	CodeTokenRevoked = "TOKEN_REVOKED"
	CodeUserInactive = "USER_INACTIVE"
)

type Claims struct {
	jwt.RegisteredClaims
	Role  string `json:"role"`
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
}

// Principal is the identity resolved for an authenticated request.
type Principal struct {
	ID     uuid.UUID
	Role   string
	Active bool
}

// UserLookup resolves the current state of the user a token was issued to.
type UserLookup interface {
	Principal(ctx context.Context, id uuid.UUID) (*Principal, error)
}

type JWTConfig struct {
	SigningKey []byte
	Users      UserLookup
	Denylist   Denylist
	Skipper    func(c echo.Context) bool
}

// JWTMiddleware validates HS256 bearer tokens, checks revocation, and confirms
// the user still exists and is active before binding the caller to the
// request context.
func JWTMiddleware(cfg JWTConfig) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if cfg.Skipper != nil && cfg.Skipper(c) {
				return next(c)
			}

			tokenStr, err := bearerToken(c.Request().Header.Get("Authorization"))
			if err != nil {
				return err
			}

			claims, err := ParseToken(tokenStr, cfg.SigningKey)
			if err != nil {
				return err
			}

			ctx := c.Request().Context()
			if cfg.Denylist != nil && claims.ID != "" {
				revoked, err := cfg.Denylist.IsRevoked(ctx, claims.ID)
				if err != nil {
					return apperr.Internal(err)
				}
				if revoked {
					return apperr.Unauthorized(CodeTokenRevoked, "token has been revoked")
				}
			}

			userID, err := uuid.Parse(claims.Subject)
			if err != nil {
				return apperr.Unauthorized(CodeTokenInvalid, "invalid token subject")
			}

			role := claims.Role
			if cfg.Users != nil {
				p, err := cfg.Users.Principal(ctx, userID)
				if err != nil && !apperr.IsNotFound(err) {
					return apperr.Internal(err)
				}
				if p == nil || !p.Active {
					return apperr.Unauthorized(CodeUserInactive, "user not found or inactive")
				}
				role = p.Role
			}

			ctx = context.WithValue(ctx, UserIDKey, userID)
			ctx = context.WithValue(ctx, UserRolesKey, []string{role})
			ctx = context.WithValue(ctx, TokenKey, claims)
			c.SetRequest(c.Request().WithContext(ctx))
			c.Set("user_id", userID.String())

			return next(c)
		}
	}
}

func bearerToken(header string) (string, error) {
	if header == "" {
		return "", apperr.Unauthorized(CodeTokenMissing, "missing authorization header")
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", apperr.Unauthorized(CodeTokenInvalid, "invalid authorization format")
	}
	return strings.TrimSpace(parts[1]), nil
}

// ParseToken verifies signature and expiry. Expired tokens are reported with
// a distinct code from malformed or forged ones.
func ParseToken(tokenStr string, key []byte) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		return key, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, apperr.Unauthorized(CodeTokenExpired, "token expired")
		}
		return nil, apperr.Unauthorized(CodeTokenInvalid, "invalid token")
	}
	if !token.Valid {
		return nil, apperr.Unauthorized(CodeTokenInvalid, "invalid token")
	}
	return claims, nil
}

// WithUser binds a user to ctx the way JWTMiddleware does. Used by jobs and
// tests that act on behalf of a user outside an HTTP request.
func WithUser(ctx context.Context, id uuid.UUID, role string) context.Context {
	ctx = context.WithValue(ctx, UserIDKey, id)
	return context.WithValue(ctx, UserRolesKey, []string{role})
}

func UserIDFromContext(ctx context.Context) uuid.UUID {
	uid, _ := ctx.Value(UserIDKey).(uuid.UUID)
	return uid
}

func RolesFromContext(ctx context.Context) []string {
	roles, _ := ctx.Value(UserRolesKey).([]string)
	return roles
}

func ClaimsFromContext(ctx context.Context) *Claims {
	claims, _ := ctx.Value(TokenKey).(*Claims)
	return claims
}

// RequireUser returns the authenticated user id or an unauthorized error.
func RequireUser(ctx context.Context) (uuid.UUID, error) {
	uid := UserIDFromContext(ctx)
	if uid == uuid.Nil {
		return uuid.Nil, apperr.Unauthorized(CodeTokenMissing, "authentication required")
	}
	return uid, nil
}
