package middleware

import (
	"errors"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"

	"github.com/mysteryforum/forum-api/internal/utils"
)

// Claims is the bearer token payload. The account id is read from user_id,
// falling back to a numeric sub.
type Claims struct {
	UserID uint   `json:"user_id,omitempty"`
	Role   string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

var errMissingAccount = errors.New("token does not name an account")

// AccountID resolves the forum user id carried by the token.
func (c Claims) AccountID() (uint, error) {
	if c.UserID > 0 {
		return c.UserID, nil
	}
	if subject := strings.TrimSpace(c.Subject); subject != "" {
		parsed, err := strconv.ParseUint(subject, 10, 64)
		if err == nil && parsed > 0 {
			return uint(parsed), nil
		}
	}
	return 0, errMissingAccount
}

// JWTProtected validates HMAC bearer tokens and stores user_id and user_role
// in the request locals. RejectBanned refreshes the role from storage.
func JWTProtected(secret string) fiber.Handler {
	parser := jwt.NewParser(jwt.WithValidMethods([]string{
		jwt.SigningMethodHS256.Alg(),
		jwt.SigningMethodHS384.Alg(),
		jwt.SigningMethodHS512.Alg(),
	}))
	key := []byte(secret)

	return func(c *fiber.Ctx) error {
		tokenString, ok := bearerToken(c.Get(fiber.HeaderAuthorization))
		if !ok {
			return utils.Fail(c, fiber.StatusUnauthorized, "bearer token required", nil)
		}

		var claims Claims
		token, err := parser.ParseWithClaims(tokenString, &claims, func(*jwt.Token) (interface{}, error) {
			return key, nil
		})
		if err != nil || !token.Valid {
			return utils.Fail(c, fiber.StatusUnauthorized, "invalid token", nil)
		}

		userID, err := claims.AccountID()
		if err != nil {
			return utils.Fail(c, fiber.StatusUnauthorized, err.Error(), nil)
		}

		c.Locals("user_id", userID)
		if role := strings.ToLower(strings.TrimSpace(claims.Role)); role != "" {
			c.Locals("user_role", role)
		}
		return c.Next()
	}
}

func bearerToken(header string) (string, bool) {
	const prefix = "bearer "
	header = strings.TrimSpace(header)
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}
	token := strings.TrimSpace(header[len(prefix):])
	return token, token != ""
}
