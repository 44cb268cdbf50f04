package httpapi

import (
	"math"
	"strconv"

	"github.com/gofiber/fiber/v2"
	jwtware "github.com/gofiber/jwt/v3"
	"github.com/golang-jwt/jwt/v4"
)

// userClaim числовой ID пользователя в токене
const userClaim = "user_id"

func protected(secret string) fiber.Handler {
	return jwtware.New(jwtware.Config{
		SigningKey:   []byte(secret),
		ErrorHandler: jwtError,
	})
}

func jwtError(c *fiber.Ctx, err error) error {
	if err.Error() == "Missing or malformed JWT" {
		return fiber.NewError(fiber.StatusUnauthorized, "missing or malformed JWT")
	}
	return fiber.NewError(fiber.StatusUnauthorized, "invalid or expired JWT")
}

// currentUserID достаёт ID вызывающего из проверенного токена
func currentUserID(c *fiber.Ctx) (int64, error) {
	token, ok := c.Locals("user").(*jwt.Token)
	if !ok {
		return 0, fiber.NewError(fiber.StatusUnauthorized, "missing token")
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return 0, fiber.NewError(fiber.StatusUnauthorized, "unexpected token claims")
	}

	switch v := claims[userClaim].(type) {
	case float64:
		if v > 0 && v == math.Trunc(v) {
			return int64(v), nil
		}
	case string:
		if id, err := strconv.ParseInt(v, 10, 64); err == nil && id > 0 {
			return id, nil
		}
	}
	return 0, fiber.NewError(fiber.StatusUnauthorized, "token has no valid user_id claim")
}
