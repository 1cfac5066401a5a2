package middleware

import (
	"crypto/subtle"

	"github.com/gofiber/fiber/v2"

	"github.com/tupi-labs/ponto/internal/domain"
)

const apiKeyHeader = "X-API-Key"

// APIKeyAuth guards the API with a single shared key. When no key is
// configured the middleware is a pass-through, which is only acceptable in
// development.
func APIKeyAuth(apiKey string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if apiKey == "" {
			return c.Next()
		}

		provided := c.Get(apiKeyHeader)
		if subtle.ConstantTimeCompare([]byte(provided), []byte(apiKey)) != 1 {
			return domain.ErrUnauthorized
		}
		return c.Next()
	}
}
