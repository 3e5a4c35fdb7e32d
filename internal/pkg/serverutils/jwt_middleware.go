package serverutils

import (
	"os"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

// JwtMiddleware authenticates the request with a bearer token and stores
// user_id and role in locals for downstream handlers.
func JwtMiddleware(ctx *fiber.Ctx) error {
	authHeader := ctx.Get("Authorization")
	if authHeader == "" {
		return fiber.NewError(fiber.StatusUnauthorized, "missing authorization header")
	}

	tokenStr := strings.TrimPrefix(authHeader, "Bearer ")
	if tokenStr == authHeader {
		return fiber.NewError(fiber.StatusUnauthorized, "invalid authorization header")
	}

	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(os.Getenv("JWT_SECRET")), nil
	})
	if err != nil || !token.Valid {
		return fiber.NewError(fiber.StatusUnauthorized, "invalid or expired token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "invalid token claims")
	}

	sub, _ := claims["sub"].(string)
	if sub == "" {
		return fiber.NewError(fiber.StatusUnauthorized, "token missing subject")
	}

	role, _ := claims["role"].(string)
	if role == "" {
		role = "customer"
	}

	ctx.Locals("user_id", sub)
	ctx.Locals("role", role)
	return ctx.Next()
}

// RequireRole guards privileged routes; any of the listed roles passes.
func RequireRole(roles ...string) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		r, _ := ctx.Locals("role").(string)
		for _, role := range roles {
			if r == role {
				return ctx.Next()
			}
		}
		return fiber.NewError(fiber.StatusForbidden, "insufficient role")
	}
}
