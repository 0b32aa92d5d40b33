// middleware/auth.go
package middleware

import (
	"context"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	log "github.com/sirupsen/logrus"
)

// ActivityRecorder is told about every authenticated request.
type ActivityRecorder interface {
	Touch(ctx context.Context, playerID uint, username string) error
}

// NewAuth validates HS256 bearer tokens signed with secret. The player id is read from the
// user_id claim, falling back to id.
func NewAuth(secret string, activity ActivityRecorder) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return unauthorized(c, "Missing authorization header")
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			return unauthorized(c, "Invalid authorization header format")
		}

		token, err := jwt.Parse(parts[1], func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fiber.NewError(401, "Invalid signing method")
			}
			return []byte(secret), nil
		})
		if err != nil || !token.Valid {
			return unauthorized(c, "Invalid or expired token")
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			return unauthorized(c, "Invalid token claims")
		}

		exp, ok := claims["exp"].(float64)
		if !ok || time.Unix(int64(exp), 0).Before(time.Now()) {
			return unauthorized(c, "Token expired")
		}

		id := claimID(claims)
		if id == 0 {
			return unauthorized(c, "Invalid token claims")
		}
		username, _ := claims["username"].(string)

		c.Locals("userId", id)
		c.Locals("username", username)

		if activity != nil {
			if err := activity.Touch(c.UserContext(), id, username); err != nil {
				log.WithError(err).WithField("player_id", id).Warn("⚠️ Failed to record player activity")
			}
		}

		return c.Next()
	}
}

func claimID(claims jwt.MapClaims) uint {
	for _, key := range []string{"user_id", "id"} {
		if v, ok := claims[key].(float64); ok && v >= 1 {
			return uint(v)
		}
	}
	return 0
}

func unauthorized(c *fiber.Ctx, message string) error {
	return c.Status(401).JSON(fiber.Map{"success": false, "error": message})
}

func GetUserID(c *fiber.Ctx) (uint, error) {
	userID := c.Locals("userId")
	if userID == nil {
		return 0, fiber.NewError(401, "User not authenticated")
	}

	if id, ok := userID.(float64); ok {
		return uint(id), nil
	}

	if id, ok := userID.(uint); ok {
		return id, nil
	}

	return 0, fiber.NewError(401, "Invalid user ID format")
}

func GetUsername(c *fiber.Ctx) (string, error) {
	username := c.Locals("username")
	if username == nil {
		return "", fiber.NewError(401, "User not authenticated")
	}

	if name, ok := username.(string); ok {
		return name, nil
	}

	return "", fiber.NewError(401, "Invalid username format")
}
