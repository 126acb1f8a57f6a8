package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/folio-labs/auth-service/internal/api/dto"
	"github.com/folio-labs/auth-service/internal/auth"
	"github.com/folio-labs/auth-service/internal/service"
	apperrors "github.com/folio-labs/auth-service/pkg/util"
)

// AuthHandler exposes the account endpoints.
type AuthHandler struct {
	accounts *service.AccountService
	scheme   string
}

// NewAuthHandler constructs handler. scheme is the accepted Authorization scheme.
func NewAuthHandler(accounts *service.AccountService, scheme string) *AuthHandler {
	if scheme == "" {
		scheme = auth.DefaultScheme
	}
	return &AuthHandler{accounts: accounts, scheme: scheme}
}

// Register handles POST /register.
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req dto.RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidBody()
	}

	res, err := h.accounts.Register(c.UserContext(), service.RegisterInput{
		Email:    req.Email,
		Password: req.Password,
		FullName: req.FullName,
	})
	if err != nil {
		return err
	}

	return c.Status(http.StatusCreated).JSON(dto.AuthResponse{
		Message:   "account created",
		User:      dto.NewUserResponse(res.Account),
		Token:     res.Token,
		ExpiresAt: res.ExpiresAt,
	})
}

// Login handles POST /login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidBody()
	}

	res, err := h.accounts.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}

	return c.JSON(dto.AuthResponse{
		Message:   "login successful",
		User:      dto.NewUserResponse(res.Account),
		Token:     res.Token,
		ExpiresAt: res.ExpiresAt,
	})
}

// Logout handles POST /logout. It is not gated: an already inactive token
// still logs out successfully.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	header := c.Get(fiber.HeaderAuthorization)
	if header == "" {
		return apperrors.NewUnauthenticated("authentication required")
	}
	token, ok := auth.ExtractToken(header, h.scheme)
	if !ok {
		return apperrors.NewUnauthenticated("invalid authorization header")
	}

	if err := h.accounts.Logout(c.UserContext(), token); err != nil {
		return err
	}
	return c.JSON(dto.MessageResponse{Message: "logged out"})
}

// Me handles GET /me behind the required gate.
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	identity, ok := auth.IdentityFromContext(c)
	if !ok {
		return apperrors.NewUnauthenticated("authentication required")
	}

	summary, err := h.accounts.WhoAmI(c.UserContext(), identity)
	if err != nil {
		return err
	}
	return c.JSON(dto.MeResponse{User: dto.NewUserResponse(*summary)})
}

func invalidBody() error {
	return apperrors.NewValidationError("", "invalid request body", nil)
}
