package serverutils

import (
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequireRoleAdmitsAnyListedRole(t *testing.T) {
	app := fiber.New()
	app.Get("/guarded",
		func(c *fiber.Ctx) error {
			c.Locals("role", c.Get("X-Role"))
			return c.Next()
		},
		RequireRole("agent", "admin"),
		func(c *fiber.Ctx) error {
			return c.SendStatus(fiber.StatusOK)
		},
	)

	cases := []struct {
		role string
		want int
	}{
		{"admin", fiber.StatusOK},
		{"agent", fiber.StatusOK},
		{"customer", fiber.StatusForbidden},
		{"", fiber.StatusForbidden},
	}

	for _, tc := range cases {
		req := httptest.NewRequest(fiber.MethodGet, "/guarded", nil)
		req.Header.Set("X-Role", tc.role)

		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, tc.want, resp.StatusCode, "role %q", tc.role)
	}
}
