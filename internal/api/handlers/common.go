package handlers

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"foodgram-backend/domain"
)

// statusForError maps domain sentinel errors onto HTTP status classes:
// missing referenced entities are 404, ownership violations 403 and
// everything else (validation, duplicate edges, "not present") 400.
func statusForError(err error) int {
	switch {
	case errors.Is(err, domain.ErrRecipeNotFound),
		errors.Is(err, domain.ErrUserNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, domain.ErrUnauthorizedRecipeAccess),
		errors.Is(err, domain.ErrUserNotAllowed):
		return fiber.StatusForbidden
	default:
		return fiber.StatusBadRequest
	}
}

// viewerID returns the authenticated user id, or "" for anonymous requests
// passing through the optional auth middleware.
func viewerID(c *fiber.Ctx) string {
	if id, ok := c.Locals("user_id").(string); ok {
		return id
	}
	return ""
}

// parsePagination reads page-number pagination params; the page size default
// can be overridden with the limit query parameter.
func parsePagination(c *fiber.Ctx, defaultLimit int) (int, int) {
	page, err := strconv.Atoi(c.Query("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}

	limit, err := strconv.Atoi(c.Query("limit", strconv.Itoa(defaultLimit)))
	if err != nil || limit < 1 {
		limit = defaultLimit
	}

	return page, limit
}

func queryMulti(c *fiber.Ctx, key string) []string {
	values := c.Context().QueryArgs().PeekMulti(key)
	result := make([]string, 0, len(values))
	for _, v := range values {
		if len(v) > 0 {
			result = append(result, string(v))
		}
	}
	return result
}
