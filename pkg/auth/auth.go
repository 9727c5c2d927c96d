// Package auth supplies the authenticated principal and the single
// authorization check every core operation runs at its boundary.
// Credential storage and login flows live elsewhere; this package only
// consumes verified identities.
package auth

import (
	"context"
	"fmt"

	apperrors "bookwell/pkg/errors"

	"github.com/golang-jwt/jwt/v5"
)

type Role string

const (
	RoleOwner  Role = "OWNER"
	RoleAdmin  Role = "ADMIN"
	RoleClient Role = "CLIENT"
)

// Principal is a verified identity scoped to one organization.
type Principal struct {
	UserID         string
	Email          string
	OrganizationID string
	Role           Role
}

// Staff reports whether the principal may act on behalf of the
// organization rather than on their own bookings.
func (p Principal) Staff() bool {
	return p.Role == RoleOwner || p.Role == RoleAdmin
}

type Claims struct {
	Email          string `json:"email"`
	OrganizationID string `json:"org_id"`
	Role           string `json:"role"`
	jwt.RegisteredClaims
}

// ParseToken verifies an HS256 bearer token and extracts the principal.
func ParseToken(secret []byte, tokenString string) (Principal, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return secret, nil
	})
	if err != nil || !token.Valid {
		return Principal{}, apperrors.Unauthorized("Invalid token")
	}

	role := Role(claims.Role)
	switch role {
	case RoleOwner, RoleAdmin, RoleClient:
	default:
		return Principal{}, apperrors.Unauthorized("Invalid role claim")
	}

	return Principal{
		UserID:         claims.Subject,
		Email:          claims.Email,
		OrganizationID: claims.OrganizationID,
		Role:           role,
	}, nil
}

// Authorize is the single tenant/role gate. A principal from another
// organization gets NotFound rather than Forbidden so resources cannot
// be enumerated across tenants; a principal in the right organization
// with an insufficient role gets Forbidden.
func Authorize(p Principal, organizationID string, roles ...Role) error {
	if organizationID == "" || p.OrganizationID != organizationID {
		return apperrors.NotFound("Resource")
	}

	if len(roles) == 0 {
		return nil
	}
	for _, r := range roles {
		if p.Role == r {
			return nil
		}
	}
	return apperrors.Forbidden("Insufficient role for this operation")
}

type contextKey string

const principalKey contextKey = "principal"

func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey).(Principal)
	return p, ok
}
