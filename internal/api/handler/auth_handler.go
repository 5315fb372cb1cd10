package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/vitaltrack/health-tracker/internal/api/metrics"
	"github.com/vitaltrack/health-tracker/internal/api/middleware"
	"github.com/vitaltrack/health-tracker/internal/core/ports"
)

type AuthHandler struct {
	authService ports.AuthService
}

func NewAuthHandler(authService ports.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// Register creates a customer account and signs it in.
//
// @Summary      Register a new user
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      registerRequest  true  "User registration details"
// @Success      201   {object}  authResponse
// @Failure      400   {object}  errorResponse
// @Failure      409   {object}  errorResponse
// @Failure      500   {object}  errorResponse
// @Router       /v1/auth/register [post]
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	res, err := h.authService.Register(c.Request().Context(), ports.RegisterInput{
		Email:    req.Email,
		Password: req.Password,
		Name:     req.Name,
	})
	if err != nil {
		return err
	}

	metrics.TokensIssuedTotal.WithLabelValues("register").Inc()
	return c.JSON(http.StatusCreated, authResponse{tokenResponse: toTokenResponse(res.Token), User: res.User})
}

// Login authenticates a user and returns a bearer token.
//
// @Summary      Login
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      loginRequest  true  "Login credentials"
// @Success      200   {object}  authResponse
// @Failure      400   {object}  errorResponse
// @Failure      401   {object}  errorResponse
// @Router       /v1/auth/login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	res, err := h.authService.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return err
	}

	metrics.TokensIssuedTotal.WithLabelValues("login").Inc()
	return c.JSON(http.StatusOK, authResponse{tokenResponse: toTokenResponse(res.Token), User: res.User})
}

// Refresh exchanges a still-valid token for a fresh one.
//
// @Summary      Refresh the bearer token
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  tokenResponse
// @Failure      401  {object}  errorResponse
// @Router       /v1/auth/refresh [post]
func (h *AuthHandler) Refresh(c echo.Context) error {
	raw, err := middleware.BearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
	if err != nil {
		return err
	}

	tok, err := h.authService.Refresh(c.Request().Context(), raw)
	if err != nil {
		return err
	}

	metrics.TokensIssuedTotal.WithLabelValues("refresh").Inc()
	return c.JSON(http.StatusOK, toTokenResponse(tok))
}

// Me returns the authenticated user, ignoring any impersonation.
//
// @Summary      Current user
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  domain.User
// @Failure      401  {object}  errorResponse
// @Router       /v1/auth/me [get]
func (h *AuthHandler) Me(c echo.Context) error {
	p, err := ctxPrincipal(c)
	if err != nil {
		return err
	}

	user, err := h.authService.Me(c.Request().Context(), p)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, user)
}
