// utils/http.go - Response and query helpers for fiber handlers
package utils

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// JSONError sends {"success": false, "error": message}.
func JSONError(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(fiber.Map{
		"success": false,
		"error":   message,
	})
}

// JSONSuccess sends data merged into {"success": true}.
func JSONSuccess(c *fiber.Ctx, data fiber.Map) error {
	response := fiber.Map{"success": true}
	for k, v := range data {
		response[k] = v
	}
	return c.JSON(response)
}

// QueryInt reads an integer query parameter, falling back to def when absent or malformed.
func QueryInt(c *fiber.Ctx, key string, def int) int {
	return ParseIntDefault(c.Query(key), def)
}

func ParseIntDefault(s string, def int) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return def
	}
	return n
}

func ClampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// ParamID reads a positive integer route parameter.
func ParamID(c *fiber.Ctx, key string) (uint, bool) {
	id, err := strconv.ParseUint(c.Params(key), 10, 32)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}
