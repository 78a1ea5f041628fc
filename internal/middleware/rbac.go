package middleware

import (
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/mysteryforum/forum-api/internal/models"
	"github.com/mysteryforum/forum-api/internal/utils"
)

// RequireRole admits only callers whose user_role local matches one of roles.
// Mount it after RejectBanned so the role reflects storage, not the token.
func RequireRole(roles ...models.UserRole) fiber.Handler {
	allowed := make(map[models.UserRole]struct{}, len(roles))
	for _, role := range roles {
		if parsed, ok := models.ParseUserRole(string(role)); ok {
			allowed[parsed] = struct{}{}
		}
	}

	return func(c *fiber.Ctx) error {
		role, ok := models.ParseUserRole(normalizeRoleValue(c.Locals("user_role")))
		if !ok {
			return utils.Fail(c, fiber.StatusForbidden, "insufficient permissions", nil)
		}
		if _, permitted := allowed[role]; !permitted {
			return utils.Fail(c, fiber.StatusForbidden, fmt.Sprintf("role %s may not access this resource", strings.ToLower(string(role))), nil)
		}
		return c.Next()
	}
}

func normalizeRoleValue(value interface{}) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return strings.ToLower(strings.TrimSpace(v))
	case fmt.Stringer:
		return strings.ToLower(strings.TrimSpace(v.String()))
	default:
		return strings.ToLower(strings.TrimSpace(fmt.Sprintf("%v", value)))
	}
}
