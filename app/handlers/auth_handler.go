package handlers

import (
	"log"
	"time"

	"github.com/amirphl/okosplazma-sms/app/dto"
	"github.com/amirphl/okosplazma-sms/app/middleware"
	businessflow "github.com/amirphl/okosplazma-sms/business_flow"
	"github.com/gofiber/fiber/v3"
)

const authTimeout = 10 * time.Second

// AuthHandlerInterface defines the contract for operator authentication handlers
type AuthHandlerInterface interface {
	Login(c fiber.Ctx) error
	Logout(c fiber.Ctx) error
	Me(c fiber.Ctx) error
}

// AuthHandler handles operator authentication HTTP requests
type AuthHandler struct {
	baseHandler
	authFlow businessflow.AuthFlow
}

// NewAuthHandler creates a new authentication handler
func NewAuthHandler(authFlow businessflow.AuthFlow) *AuthHandler {
	return &AuthHandler{
		baseHandler: newBaseHandler(),
		authFlow:    authFlow,
	}
}

// Login exchanges operator credentials for an access token
// @Summary Operator Login
// @Tags Authentication
// @Accept json
// @Produce json
// @Param request body dto.LoginRequest true "Operator credentials"
// @Success 200 {object} dto.APIResponse{data=dto.LoginResponse}
// @Failure 400 {object} dto.APIResponse "Validation error"
// @Failure 401 {object} dto.APIResponse "Incorrect credentials"
// @Router /api/v1/auth/login [post]
func (h *AuthHandler) Login(c fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}
	if msgs := h.validate(&req); len(msgs) > 0 {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", msgs)
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))
	metadata.SetRequestID(requestID(c))

	ctx, cancel := h.createRequestContext(c, "/api/v1/auth/login", authTimeout)
	defer cancel()

	result, err := h.authFlow.Login(ctx, &req, metadata)
	if err != nil {
		if businessflow.IsIncorrectCredentials(err) {
			return h.ErrorResponse(c, fiber.StatusUnauthorized, "Incorrect username or password", "INCORRECT_CREDENTIALS", nil)
		}
		log.Println("Login failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Login failed", "LOGIN_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Login successful", result)
}

// Logout revokes the presented access token
// @Summary Operator Logout
// @Tags Authentication
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=dto.LogoutResponse}
// @Failure 401 {object} dto.APIResponse
// @Router /api/v1/auth/logout [post]
func (h *AuthHandler) Logout(c fiber.Ctx) error {
	token, ok := middleware.GetAccessTokenFromContext(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Access token is required", "MISSING_ACCESS_TOKEN", nil)
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))
	metadata.SetRequestID(requestID(c))
	if operator, ok := middleware.GetOperatorFromContext(c); ok {
		metadata.SetOperator(operator)
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/auth/logout", authTimeout)
	defer cancel()

	result, err := h.authFlow.Logout(ctx, token, metadata)
	if err != nil {
		log.Println("Logout failed", err)
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Logout failed", businessflow.ErrorCode(err), nil)
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Logged out", result)
}

// Me returns the operator bound to the access token
// @Summary Current Operator
// @Tags Authentication
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse
// @Router /api/v1/auth/me [get]
func (h *AuthHandler) Me(c fiber.Ctx) error {
	claims, ok := middleware.GetTokenClaimsFromContext(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Not authenticated", "UNAUTHORIZED", nil)
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Operator retrieved", fiber.Map{
		"operator":   claims.Username,
		"expires_at": claims.ExpiresAt.Format(time.RFC3339),
	})
}
