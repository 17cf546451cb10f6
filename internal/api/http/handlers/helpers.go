package handlers

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	apperrors "github.com/spec-kit/ticketflow/pkg/util/errorutil"
)

func parseBody(c *fiber.Ctx, out any) error {
	if err := c.BodyParser(out); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	return nil
}

func parseIntQuery(c *fiber.Ctx, key string, defaultVal int) int {
	val := c.Query(key)
	if val == "" {
		return defaultVal
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		return defaultVal
	}
	return parsed
}

func parseBoolQuery(c *fiber.Ctx, key string, defaultVal bool) bool {
	val := c.Query(key)
	if val == "" {
		return defaultVal
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return defaultVal
	}
	return parsed
}

// pageQuery turns page/page_size into limit and offset.
func pageQuery(c *fiber.Ctx) (limit, offset int) {
	page := parseIntQuery(c, "page", 1)
	pageSize := parseIntQuery(c, "page_size", 20)
	return pageSize, (page - 1) * pageSize
}

func splitQuery(c *fiber.Ctx, key string) []string {
	raw := c.Query(key)
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func optionalQuery(c *fiber.Ctx, key string) *string {
	if val := strings.TrimSpace(c.Query(key)); val != "" {
		return &val
	}
	return nil
}
