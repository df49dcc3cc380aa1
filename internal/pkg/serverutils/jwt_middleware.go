package serverutils

import (
	"strings"

	"lifestory-be/internal/pkg/apperror"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"

	localsPrincipal = "principal"
)

// Principal is the verified caller. Identity is issued elsewhere; this
// service only checks the token signature and reads the claims.
type Principal struct {
	UserID uuid.UUID
	Role   string
}

func (p Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}

// ParseToken verifies an HS256 token and extracts user_id and role claims.
func ParseToken(secret, tokenStr string) (Principal, error) {
	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return Principal{}, apperror.Unauthorized("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return Principal{}, apperror.Unauthorized("invalid claims")
	}

	rawID, _ := claims["user_id"].(string)
	userID, err := uuid.Parse(rawID)
	if err != nil {
		return Principal{}, apperror.Unauthorized("invalid user_id claim")
	}

	role, _ := claims["role"].(string)
	if role == "" {
		role = RoleUser
	}
	return Principal{UserID: userID, Role: role}, nil
}

func NewJwtMiddleware(secret string) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		authHeader := ctx.Get("Authorization")
		if !strings.HasPrefix(authHeader, "Bearer ") {
			return apperror.Unauthorized("missing token")
		}

		principal, err := ParseToken(secret, strings.TrimPrefix(authHeader, "Bearer "))
		if err != nil {
			return err
		}

		ctx.Locals(localsPrincipal, principal)
		ctx.Locals("user_id", principal.UserID.String())
		return ctx.Next()
	}
}

// RequireRole must run after the JWT middleware.
func RequireRole(role string) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		p, err := PrincipalFrom(ctx)
		if err != nil {
			return err
		}
		if p.Role != role {
			return apperror.Forbidden("requires role " + role)
		}
		return ctx.Next()
	}
}

func PrincipalFrom(ctx *fiber.Ctx) (Principal, error) {
	p, ok := ctx.Locals(localsPrincipal).(Principal)
	if !ok {
		return Principal{}, apperror.Unauthorized("missing principal")
	}
	return p, nil
}

// ParamUUID parses a route parameter as a uuid.
func ParamUUID(ctx *fiber.Ctx, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(ctx.Params(name))
	if err != nil {
		return uuid.Nil, apperror.Validation("invalid " + name)
	}
	return id, nil
}
