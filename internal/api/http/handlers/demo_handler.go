package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/folio-labs/auth-service/internal/api/dto"
	"github.com/folio-labs/auth-service/internal/auth"
	apperrors "github.com/folio-labs/auth-service/pkg/util"
)

// DemoHandler serves example routes for both gate variants.
type DemoHandler struct{}

// NewDemoHandler constructs handler.
func NewDemoHandler() *DemoHandler {
	return &DemoHandler{}
}

// Protected handles GET /protected.
func (h *DemoHandler) Protected(c *fiber.Ctx) error {
	identity, ok := auth.IdentityFromContext(c)
	if !ok {
		return apperrors.NewUnauthenticated("authentication required")
	}
	return c.JSON(fiber.Map{
		"message": "access granted",
		"user":    dto.UserFromIdentity(identity),
	})
}

// Optional handles GET /optional.
func (h *DemoHandler) Optional(c *fiber.Ctx) error {
	identity, ok := auth.IdentityFromContext(c)
	if !ok {
		return c.JSON(fiber.Map{
			"message":       "hello, guest",
			"authenticated": false,
		})
	}
	return c.JSON(fiber.Map{
		"message":       "hello, " + identity.FullName,
		"authenticated": true,
		"user":          dto.UserFromIdentity(identity),
	})
}

// ProtectedAction handles POST /protected-action.
func (h *DemoHandler) ProtectedAction(c *fiber.Ctx) error {
	identity, ok := auth.IdentityFromContext(c)
	if !ok {
		return apperrors.NewUnauthenticated("authentication required")
	}

	var req dto.ProtectedActionRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidBody()
	}
	req.Action = strings.TrimSpace(req.Action)
	if req.Action == "" {
		return apperrors.NewValidationError("action", "action is required", nil)
	}

	return c.JSON(fiber.Map{
		"message":      "action performed",
		"action":       req.Action,
		"data":         req.Data,
		"performed_by": identity.AccountID,
	})
}
