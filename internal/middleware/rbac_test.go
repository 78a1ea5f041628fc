package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"github.com/mysteryforum/forum-api/internal/models"
)

func TestRequireRole(t *testing.T) {
	cases := []struct {
		name   string
		role   interface{}
		status int
	}{
		{name: "admin local", role: "admin", status: fiber.StatusOK},
		{name: "upper case role", role: "ADMIN", status: fiber.StatusOK},
		{name: "typed role", role: models.RoleAdmin, status: fiber.StatusOK},
		{name: "member", role: "user", status: fiber.StatusForbidden},
		{name: "banned", role: "banned", status: fiber.StatusForbidden},
		{name: "unknown role", role: "moderator", status: fiber.StatusForbidden},
		{name: "no role", role: nil, status: fiber.StatusForbidden},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			app := fiber.New()
			app.Use(func(c *fiber.Ctx) error {
				if tc.role != nil {
					c.Locals("user_role", tc.role)
				}
				return c.Next()
			})
			app.Use(RequireRole(models.RoleAdmin))
			app.Get("/reports", func(c *fiber.Ctx) error {
				return c.SendStatus(fiber.StatusOK)
			})

			resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/reports", nil))
			require.NoError(t, err)
			require.Equal(t, tc.status, resp.StatusCode)
		})
	}
}
