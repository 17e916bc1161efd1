package middleware

import (
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"foodgram-backend/domain"
	"foodgram-backend/pkg/jwt"
)

func viewerEcho(c *fiber.Ctx) error {
	userID, _ := c.Locals("user_id").(string)
	return c.SendString(userID)
}

func TestAuthMiddleware(t *testing.T) {
	jwtService := jwt.NewJWTService()
	app := fiber.New()
	app.Get("/protected", NewMiddleware().AuthMiddleware(jwtService), viewerEcho)

	// no token
	res, err := app.Test(httptest.NewRequest("GET", "/protected", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, res.StatusCode)

	// garbage token
	req := httptest.NewRequest("GET", "/protected", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	res, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, res.StatusCode)

	// valid token resolves the viewer
	token := jwtService.GenerateTokenUser("user-1", domain.RoleUser)
	req = httptest.NewRequest("GET", "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	res, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, res.StatusCode)
}

func TestOptionalAuthMiddleware(t *testing.T) {
	jwtService := jwt.NewJWTService()
	app := fiber.New()
	app.Get("/public", NewMiddleware().OptionalAuthMiddleware(jwtService), viewerEcho)

	// anonymous requests pass through without a viewer
	res, err := app.Test(httptest.NewRequest("GET", "/public", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, res.StatusCode)

	// invalid tokens degrade to anonymous instead of failing
	req := httptest.NewRequest("GET", "/public", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	res, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, res.StatusCode)

	token := jwtService.GenerateTokenUser("user-1", domain.RoleUser)
	req = httptest.NewRequest("GET", "/public", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	res, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, res.StatusCode)
}
