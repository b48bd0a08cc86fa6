package middleware

import (
	"context"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
)

// Определяем константы для имен JWT claims
const (
	jwtClaimSubject = "sub"
	jwtClaimRole    = "app_role"
)

type Role string

const (
	RolePlayer    Role = "player"
	RoleModerator Role = "moderator"
	RoleAdmin     Role = "admin"
)

func (r Role) CanModerate() bool {
	return r == RoleModerator || r == RoleAdmin
}

var errNoClaims = errors.New("user claims not found in context or invalid type")

func playerIDFromClaims(claims jwt.MapClaims) (uuid.UUID, error) {
	sub, ok := claims[jwtClaimSubject].(string)
	if !ok || sub == "" {
		return uuid.Nil, fmt.Errorf("missing '%s' claim in token", jwtClaimSubject)
	}
	id, err := uuid.Parse(sub)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid '%s' claim: %w", jwtClaimSubject, err)
	}
	if id == uuid.Nil {
		return uuid.Nil, fmt.Errorf("'%s' claim is the nil uuid", jwtClaimSubject)
	}
	return id, nil
}

// GetPlayerIDFromContext returns the authenticated player.
func GetPlayerIDFromContext(ctx context.Context) (uuid.UUID, error) {
	claims, ok := ctx.Value(userContextKey).(jwt.MapClaims)
	if !ok {
		return uuid.Nil, errNoClaims
	}
	return playerIDFromClaims(claims)
}

// GetRoleFromContext returns the token role. Tokens without app_role are players.
func GetRoleFromContext(ctx context.Context) (Role, error) {
	claims, ok := ctx.Value(userContextKey).(jwt.MapClaims)
	if !ok {
		return "", errNoClaims
	}

	roleClaim, ok := claims[jwtClaimRole]
	if !ok {
		return RolePlayer, nil
	}
	roleStr, ok := roleClaim.(string)
	if !ok {
		return "", fmt.Errorf("invalid type for '%s' claim: expected string, got %T", jwtClaimRole, roleClaim)
	}

	switch role := Role(roleStr); role {
	case RolePlayer, RoleModerator, RoleAdmin:
		return role, nil
	default:
		return "", fmt.Errorf("invalid role value in claim: %q", roleStr)
	}
}

// WithClaims stores claims in ctx the way Authenticate does.
func WithClaims(ctx context.Context, claims jwt.MapClaims) context.Context {
	return context.WithValue(ctx, userContextKey, claims)
}
