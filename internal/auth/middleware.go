package auth

import (
	"context"
	"strings"

	"silvess-backend/internal/config"
	"silvess-backend/internal/models"

	"github.com/gofiber/fiber/v2"
)

const (
	CtxUserIDKey    = "user_id"
	CtxUserRoleKey  = "user_role"
	CtxPrincipalKey = "principal"
)

// Principal is the verified identity attached to a request.
type Principal struct {
	UserID uint
	Name   string
	Email  string
	Role   models.UserRole
}

func (p Principal) IsAdmin() bool {
	return p.Role == models.RoleAdmin
}

type principalCtxKey struct{}

// WithPrincipal stores p in ctx.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalCtxKey{}, p)
}

// PrincipalFrom returns the principal stored by WithPrincipal.
func PrincipalFrom(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalCtxKey{}).(Principal)
	return p, ok
}

func JWTMiddleware(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "missing authorization header")
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			return fiber.NewError(fiber.StatusUnauthorized, "authorization must be 'Bearer <token>'")
		}

		claims, err := ParseToken(cfg.JWTSecret, strings.TrimSpace(parts[1]))
		if err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, err.Error())
		}

		p := Principal{
			UserID: claims.UserID,
			Name:   claims.Name,
			Email:  claims.Email,
			Role:   claims.Role,
		}
		c.Locals(CtxUserIDKey, p.UserID)
		c.Locals(CtxUserRoleKey, p.Role)
		c.Locals(CtxPrincipalKey, p)
		c.SetUserContext(WithPrincipal(c.UserContext(), p))

		return c.Next()
	}
}

func RequireRole(allowedRoles ...models.UserRole) fiber.Handler {
	return func(c *fiber.Ctx) error {
		role, ok := c.Locals(CtxUserRoleKey).(models.UserRole)
		if !ok {
			return fiber.NewError(fiber.StatusForbidden, "role unavailable")
		}

		for _, r := range allowedRoles {
			if r == role {
				return c.Next()
			}
		}
		return fiber.NewError(fiber.StatusForbidden, "insufficient permissions")
	}
}

// Current returns the principal set by JWTMiddleware.
func Current(c *fiber.Ctx) (Principal, bool) {
	p, ok := c.Locals(CtxPrincipalKey).(Principal)
	return p, ok
}

// UserIDPtr returns the acting user's id for nullable foreign keys.
func UserIDPtr(c *fiber.Ctx) *uint {
	p, ok := Current(c)
	if !ok {
		return nil
	}
	id := p.UserID
	return &id
}
