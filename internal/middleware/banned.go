package middleware

import (
	"context"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/mysteryforum/forum-api/internal/models"
	"github.com/mysteryforum/forum-api/internal/utils"
)

// UserLookup loads the account behind an authenticated token.
type UserLookup interface {
	FindByID(ctx context.Context, id uint) (models.User, error)
}

// RejectBanned loads the caller's account, refreshes the role from storage and
// rejects banned or deleted users. Token role claims may be stale after a ban.
func RejectBanned(users UserLookup) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, ok := c.Locals("user_id").(uint)
		if !ok || userID == 0 {
			return utils.Fail(c, fiber.StatusUnauthorized, "authentication required", nil)
		}

		user, err := users.FindByID(c.UserContext(), userID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return utils.Fail(c, fiber.StatusUnauthorized, "account no longer exists", nil)
			}
			return utils.Fail(c, fiber.StatusInternalServerError, "failed to load account", nil)
		}
		if user.IsBanned() {
			return utils.Fail(c, fiber.StatusForbidden, "account is banned", nil)
		}

		c.Locals("user_role", strings.ToLower(string(user.Role)))
		return c.Next()
	}
}
