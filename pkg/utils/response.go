package utils

import "github.com/gofiber/fiber/v2"

func Success(c *fiber.Ctx, status int, data interface{}) error {
	return c.Status(status).JSON(fiber.Map{
		"success": true,
		"data":    data,
	})
}

func Error(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(fiber.Map{
		"success": false,
		"error":   message,
	})
}

func Paginated(c *fiber.Ctx, data interface{}, page, limit int, total int64) error {
	totalPages := int((total + int64(limit) - 1) / int64(limit))
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"success": true,
		"data":    data,
		"pagination": fiber.Map{
			"page":       page,
			"limit":      limit,
			"total":      total,
			"totalPages": totalPages,
		},
	})
}

// ErrorWithCode is Error plus a machine-readable code and optional extra
// fields (rate-limit reset times, remaining attempts) merged into the envelope.
func ErrorWithCode(c *fiber.Ctx, status int, code, message string, details fiber.Map) error {
	payload := fiber.Map{
		"success": false,
		"error":   message,
		"code":    code,
	}
	for key, value := range details {
		payload[key] = value
	}
	return c.Status(status).JSON(payload)
}
