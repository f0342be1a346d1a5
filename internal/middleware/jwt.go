package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"

	"github.com/noah-isme/forge/internal/utils"
)

// SubjectLocal is the fiber local holding the authenticated token subject.
const SubjectLocal = "subject"

var signingMethods = []string{"HS256", "HS384", "HS512"}

// JWTProtected returns a middleware that validates HMAC-signed bearer tokens.
func JWTProtected(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authorization := c.Get("Authorization")
		if authorization == "" {
			return utils.SendError(c, fiber.StatusUnauthorized, "authorization header missing")
		}

		const bearer = "Bearer "
		if len(authorization) < len(bearer) || !strings.EqualFold(authorization[:len(bearer)], bearer) {
			return utils.SendError(c, fiber.StatusUnauthorized, "invalid authorization header")
		}

		tokenString := strings.TrimSpace(authorization[len(bearer):])
		if tokenString == "" {
			return utils.SendError(c, fiber.StatusUnauthorized, "invalid token")
		}

		token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
			return []byte(secret), nil
		}, jwt.WithValidMethods(signingMethods))
		if err != nil || !token.Valid {
			return utils.SendError(c, fiber.StatusUnauthorized, "invalid token")
		}

		if subject, err := token.Claims.GetSubject(); err == nil && subject != "" {
			c.Locals(SubjectLocal, subject)
		}

		return c.Next()
	}
}

// Subject returns the authenticated subject of the request, if any.
func Subject(c *fiber.Ctx) string {
	if value, ok := c.Locals(SubjectLocal).(string); ok {
		return value
	}
	return ""
}
