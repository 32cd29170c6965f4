package middlewares

import (
	"beanstalker/database"
	"beanstalker/helpers"
	"beanstalker/models"

	"github.com/gofiber/fiber/v2"
)

func UserAuth(c *fiber.Ctx) error {
	apiKey := c.Get("X-Api-Key")
	if apiKey == "" {
		return helpers.JSONError(c, fiber.StatusUnauthorized, "API_KEY_REQUIRED")
	}

	var user models.User
	if err := database.DB.Where("api_key = ? AND is_active = true", apiKey).First(&user).Error; err != nil {
		return helpers.JSONError(c, fiber.StatusUnauthorized, "INVALID_API_KEY")
	}

	c.Locals("user", user)
	return c.Next()
}

// AdminOnly must run after UserAuth and rejects non-staff accounts.
func AdminOnly(c *fiber.Ctx) error {
	user, ok := c.Locals("user").(models.User)
	if !ok || !user.IsAdmin {
		return helpers.JSONError(c, fiber.StatusForbidden, "STAFF_ONLY")
	}
	return c.Next()
}

// CurrentUser pulls the authenticated account out of the request locals.
func CurrentUser(c *fiber.Ctx) (models.User, bool) {
	user, ok := c.Locals("user").(models.User)
	return user, ok
}
