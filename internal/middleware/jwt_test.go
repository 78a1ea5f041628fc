package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

const jwtTestSecret = "forum-secret"

func signToken(t *testing.T, method jwt.SigningMethod, claims Claims, secret string) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(method, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func TestJWTProtected(t *testing.T) {
	future := jwt.NewNumericDate(time.Now().Add(time.Hour))
	past := jwt.NewNumericDate(time.Now().Add(-time.Hour))

	cases := []struct {
		name     string
		header   string
		status   int
		wantUser uint
		wantRole string
	}{
		{name: "missing header", header: "", status: fiber.StatusUnauthorized},
		{name: "wrong scheme", header: "Basic abc", status: fiber.StatusUnauthorized},
		{
			name:     "user_id claim",
			header:   "Bearer " + signToken(t, jwt.SigningMethodHS256, Claims{UserID: 7, Role: "ADMIN", RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: future}}, jwtTestSecret),
			status:   fiber.StatusOK,
			wantUser: 7,
			wantRole: "admin",
		},
		{
			name:     "numeric subject",
			header:   "bearer " + signToken(t, jwt.SigningMethodHS512, Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "12"}}, jwtTestSecret),
			status:   fiber.StatusOK,
			wantUser: 12,
		},
		{
			name:   "expired",
			header: "Bearer " + signToken(t, jwt.SigningMethodHS256, Claims{UserID: 7, RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: past}}, jwtTestSecret),
			status: fiber.StatusUnauthorized,
		},
		{
			name:   "wrong secret",
			header: "Bearer " + signToken(t, jwt.SigningMethodHS256, Claims{UserID: 7}, "other"),
			status: fiber.StatusUnauthorized,
		},
		{
			name:   "no account",
			header: "Bearer " + signToken(t, jwt.SigningMethodHS256, Claims{Role: "user", RegisteredClaims: jwt.RegisteredClaims{Subject: "ada"}}, jwtTestSecret),
			status: fiber.StatusUnauthorized,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var gotUser uint
			var gotRole string
			app := fiber.New()
			app.Use(JWTProtected(jwtTestSecret))
			app.Get("/", func(c *fiber.Ctx) error {
				gotUser, _ = c.Locals("user_id").(uint)
				gotRole, _ = c.Locals("user_role").(string)
				return c.SendStatus(fiber.StatusOK)
			})

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			require.Equal(t, tc.status, resp.StatusCode)
			require.Equal(t, tc.wantUser, gotUser)
			require.Equal(t, tc.wantRole, gotRole)
		})
	}
}
