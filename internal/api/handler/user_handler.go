package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/vitaltrack/health-tracker/internal/core/domain"
	"github.com/vitaltrack/health-tracker/internal/core/ports"
)

type updateProfileRequest struct {
	Name     *string      `json:"name"      validate:"omitempty,min=2,max=255"`
	Email    *string      `json:"email"     validate:"omitempty,email"`
	HeightCm *float64     `json:"height_cm" validate:"omitempty,gt=0,lte=300"`
	Birthday *domain.Date `json:"birthday"`
	Phone    *string      `json:"phone"     validate:"omitempty,max=50"`
	TaxID    *string      `json:"tax_id"    validate:"omitempty,max=50"`
	Address  *string      `json:"address"   validate:"omitempty,max=500"`
}

func (r updateProfileRequest) toUpdate() domain.ProfileUpdate {
	return domain.ProfileUpdate{
		Name:     r.Name,
		Email:    r.Email,
		HeightCm: r.HeightCm,
		Birthday: r.Birthday,
		Phone:    r.Phone,
		TaxID:    r.TaxID,
		Address:  r.Address,
	}
}

// bindProfileUpdate binds and validates a partial profile payload.
func bindProfileUpdate(c echo.Context) (domain.ProfileUpdate, error) {
	var req updateProfileRequest
	if err := c.Bind(&req); err != nil {
		return domain.ProfileUpdate{}, echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return domain.ProfileUpdate{}, err
	}
	return req.toUpdate(), nil
}

// UserHandler serves the effective target's profile.
type UserHandler struct {
	service ports.UserService
}

func NewUserHandler(service ports.UserService) *UserHandler {
	return &UserHandler{service: service}
}

// Profile handles GET /v1/profile.
//
// @Summary      Get the profile
// @Tags         profile
// @Produce      json
// @Security     BearerAuth
// @Param        X-Impersonate-User  header    string  false  "User id an admin acts as"
// @Success      200                 {object}  domain.User
// @Failure      401                 {object}  errorResponse
// @Failure      404                 {object}  errorResponse
// @Router       /v1/profile [get]
func (h *UserHandler) Profile(c echo.Context) error {
	p, err := ctxPrincipal(c)
	if err != nil {
		return err
	}

	user, err := h.service.Profile(c.Request().Context(), p, ctxDeclaredTarget(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, user)
}

// UpdateProfile handles PUT /v1/profile. Role and password cannot be changed
// here.
//
// @Summary      Update the profile
// @Tags         profile
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        X-Impersonate-User  header    string                false  "User id an admin acts as"
// @Param        body                body      updateProfileRequest  true   "Fields to change"
// @Success      200                 {object}  domain.User
// @Failure      400                 {object}  errorResponse
// @Failure      409                 {object}  errorResponse
// @Router       /v1/profile [put]
func (h *UserHandler) UpdateProfile(c echo.Context) error {
	p, err := ctxPrincipal(c)
	if err != nil {
		return err
	}

	update, err := bindProfileUpdate(c)
	if err != nil {
		return err
	}

	user, err := h.service.UpdateProfile(c.Request().Context(), p, ctxDeclaredTarget(c), update)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, user)
}
