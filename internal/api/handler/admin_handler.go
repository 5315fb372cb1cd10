package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/vitaltrack/health-tracker/internal/api/metrics"
	"github.com/vitaltrack/health-tracker/internal/core/domain"
	"github.com/vitaltrack/health-tracker/internal/core/ports"
)

// AdminHandler serves the admin console and impersonation control. Routes
// sit behind RequireAdmin, and every service call re-checks the live role.
type AdminHandler struct {
	admin   ports.AdminService
	records ports.RecordService
}

func NewAdminHandler(admin ports.AdminService, records ports.RecordService) *AdminHandler {
	return &AdminHandler{admin: admin, records: records}
}

// --- Users ---

// ListUsers handles GET /v1/admin/users.
//
// @Summary      List users
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Param        page    query     int     false  "Page (1-based)"
// @Param        limit   query     int     false  "Page size (max 100)"
// @Param        search  query     string  false  "Email or name substring"
// @Success      200     {object}  userListResponse
// @Failure      403     {object}  errorResponse
// @Router       /v1/admin/users [get]
func (h *AdminHandler) ListUsers(c echo.Context) error {
	p, err := ctxPrincipal(c)
	if err != nil {
		return err
	}

	var req listUsersRequest
	if err := (&echo.DefaultBinder{}).BindQueryParams(c, &req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid query parameters")
	}

	filter := ports.ListUsersFilter{Page: req.Page, Limit: req.Limit, Search: req.Search}
	users, total, err := h.admin.ListUsers(c.Request().Context(), p, filter)
	if err != nil {
		return err
	}
	if users == nil {
		users = []*domain.User{}
	}
	return c.JSON(http.StatusOK, userListResponse{Users: users, Total: total, Page: max(req.Page, 1)})
}

// GetUser handles GET /v1/admin/users/:id.
//
// @Summary      Get a user
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "User id"
// @Success      200  {object}  domain.User
// @Failure      403  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Router       /v1/admin/users/{id} [get]
func (h *AdminHandler) GetUser(c echo.Context) error {
	p, err := ctxPrincipal(c)
	if err != nil {
		return err
	}

	user, err := h.admin.GetUser(c.Request().Context(), p, c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, user)
}

// CreateUser handles POST /v1/admin/users.
//
// @Summary      Create a user
// @Tags         admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      createUserRequest  true  "New account"
// @Success      201   {object}  domain.User
// @Failure      400   {object}  errorResponse
// @Failure      403   {object}  errorResponse
// @Failure      409   {object}  errorResponse
// @Router       /v1/admin/users [post]
func (h *AdminHandler) CreateUser(c echo.Context) error {
	p, err := ctxPrincipal(c)
	if err != nil {
		return err
	}

	var req createUserRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	user, err := h.admin.CreateUser(c.Request().Context(), p, ports.CreateUserInput{
		Email:    req.Email,
		Password: req.Password,
		Name:     req.Name,
		Role:     domain.Role(req.Role),
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, user)
}

// UpdateUser handles PUT /v1/admin/users/:id. Role and password have their
// own routes.
//
// @Summary      Update a user's profile
// @Tags         admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string                true  "User id"
// @Param        body  body      updateProfileRequest  true  "Fields to change"
// @Success      200   {object}  domain.User
// @Failure      400   {object}  errorResponse
// @Failure      403   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Failure      409   {object}  errorResponse
// @Router       /v1/admin/users/{id} [put]
func (h *AdminHandler) UpdateUser(c echo.Context) error {
	p, err := ctxPrincipal(c)
	if err != nil {
		return err
	}
	update, err := bindProfileUpdate(c)
	if err != nil {
		return err
	}

	user, err := h.admin.UpdateUser(c.Request().Context(), p, c.Param("id"), update)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, user)
}

// DeleteUser handles DELETE /v1/admin/users/:id. The user's records go too.
//
// @Summary      Delete a user
// @Tags         admin
// @Security     BearerAuth
// @Param        id   path  string  true  "User id"
// @Success      204
// @Failure      403  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Router       /v1/admin/users/{id} [delete]
func (h *AdminHandler) DeleteUser(c echo.Context) error {
	p, err := ctxPrincipal(c)
	if err != nil {
		return err
	}
	if err := h.admin.DeleteUser(c.Request().Context(), p, c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// Promote handles POST /v1/admin/users/:id/promote.
//
// @Summary      Grant the admin role
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "User id"
// @Success      200  {object}  domain.User
// @Failure      403  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Router       /v1/admin/users/{id}/promote [post]
func (h *AdminHandler) Promote(c echo.Context) error {
	p, err := ctxPrincipal(c)
	if err != nil {
		return err
	}

	user, err := h.admin.Promote(c.Request().Context(), p, c.Param("id"))
	if err != nil {
		return err
	}
	metrics.RoleChangesTotal.WithLabelValues(string(domain.RoleAdmin)).Inc()
	return c.JSON(http.StatusOK, user)
}

// Demote handles POST /v1/admin/users/:id/demote.
//
// @Summary      Revoke the admin role
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "User id"
// @Success      200  {object}  domain.User
// @Failure      403  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Router       /v1/admin/users/{id}/demote [post]
func (h *AdminHandler) Demote(c echo.Context) error {
	p, err := ctxPrincipal(c)
	if err != nil {
		return err
	}

	user, err := h.admin.Demote(c.Request().Context(), p, c.Param("id"))
	if err != nil {
		return err
	}
	metrics.RoleChangesTotal.WithLabelValues(string(domain.RoleCustomer)).Inc()
	return c.JSON(http.StatusOK, user)
}

// ResetPassword handles POST /v1/admin/users/:id/reset-password.
//
// @Summary      Set a user's password
// @Tags         admin
// @Accept       json
// @Security     BearerAuth
// @Param        id    path  string                true  "User id"
// @Param        body  body  resetPasswordRequest  true  "New password"
// @Success      204
// @Failure      400   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Router       /v1/admin/users/{id}/reset-password [post]
func (h *AdminHandler) ResetPassword(c echo.Context) error {
	p, err := ctxPrincipal(c)
	if err != nil {
		return err
	}

	var req resetPasswordRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	if err := h.admin.ResetPassword(c.Request().Context(), p, c.Param("id"), req.Password); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// --- Records of any user ---

// ListRecords handles GET /v1/admin/records.
//
// @Summary      List records of all users
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Param        page   query     int     false  "Page (1-based)"
// @Param        limit  query     int     false  "Page size (max 100)"
// @Param        from   query     string  false  "Earliest date (YYYY-MM-DD)"
// @Param        to     query     string  false  "Latest date (YYYY-MM-DD)"
// @Success      200    {object}  ownedRecordListResponse
// @Failure      403    {object}  errorResponse
// @Router       /v1/admin/records [get]
func (h *AdminHandler) ListRecords(c echo.Context) error {
	p, err := ctxPrincipal(c)
	if err != nil {
		return err
	}

	var req pageRequest
	if err := (&echo.DefaultBinder{}).BindQueryParams(c, &req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid query parameters")
	}
	window, err := bindDateRange(c)
	if err != nil {
		return err
	}

	records, total, err := h.admin.ListRecords(c.Request().Context(), p, ports.ListAllRecordsFilter{
		From:  window.From,
		To:    window.To,
		Page:  req.Page,
		Limit: req.Limit,
	})
	if err != nil {
		return err
	}
	if records == nil {
		records = []*domain.OwnedRecord{}
	}
	return c.JSON(http.StatusOK, ownedRecordListResponse{Records: records, Total: total, Page: max(req.Page, 1)})
}

// UserRecords handles GET /v1/admin/users/:id/records.
//
// @Summary      List a user's records
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string  true   "User id"
// @Param        from  query     string  false  "Earliest date (YYYY-MM-DD)"
// @Param        to    query     string  false  "Latest date (YYYY-MM-DD)"
// @Success      200   {object}  recordListResponse
// @Failure      403   {object}  errorResponse
// @Router       /v1/admin/users/{id}/records [get]
func (h *AdminHandler) UserRecords(c echo.Context) error {
	p, err := ctxPrincipal(c)
	if err != nil {
		return err
	}
	filter, err := bindDateRange(c)
	if err != nil {
		return err
	}

	// The path names the target explicitly, like an impersonation hint.
	records, err := h.records.List(c.Request().Context(), p, c.Param("id"), filter)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, newRecordList(records))
}

// UpdateRecord handles PUT /v1/admin/records/:id.
//
// @Summary      Update any record
// @Tags         admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string         true  "Record id"
// @Param        body  body      recordRequest  true  "Fields to change"
// @Success      200   {object}  domain.HealthRecord
// @Failure      400   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Failure      409   {object}  errorResponse
// @Router       /v1/admin/records/{id} [put]
func (h *AdminHandler) UpdateRecord(c echo.Context) error {
	p, err := ctxPrincipal(c)
	if err != nil {
		return err
	}
	in, err := bindRecordInput(c)
	if err != nil {
		return err
	}

	rec, err := h.records.Update(c.Request().Context(), p, "", c.Param("id"), in)
	if err != nil {
		return err
	}
	metrics.RecordWritesTotal.WithLabelValues("update", writeScope(p, "", rec.OwnerUserID)).Inc()
	return c.JSON(http.StatusOK, rec)
}

// DeleteRecord handles DELETE /v1/admin/records/:id.
//
// @Summary      Delete any record
// @Tags         admin
// @Security     BearerAuth
// @Param        id   path  string  true  "Record id"
// @Success      204
// @Failure      404  {object}  errorResponse
// @Router       /v1/admin/records/{id} [delete]
func (h *AdminHandler) DeleteRecord(c echo.Context) error {
	p, err := ctxPrincipal(c)
	if err != nil {
		return err
	}
	if err := h.records.Delete(c.Request().Context(), p, "", c.Param("id")); err != nil {
		return err
	}
	metrics.RecordWritesTotal.WithLabelValues("delete", "admin").Inc()
	return c.NoContent(http.StatusNoContent)
}

// --- Impersonation ---

// StartImpersonation handles POST /v1/impersonation. The server keeps no
// session: the client sends the returned header on later requests.
//
// @Summary      Start impersonating a user
// @Tags         impersonation
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      impersonationRequest  true  "Target user"
// @Success      200   {object}  impersonationResponse
// @Failure      400   {object}  errorResponse
// @Failure      403   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Router       /v1/impersonation [post]
func (h *AdminHandler) StartImpersonation(c echo.Context) error {
	p, err := ctxPrincipal(c)
	if err != nil {
		return err
	}

	var req impersonationRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	target, err := h.admin.StartImpersonation(c.Request().Context(), p, req.TargetUserID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, newImpersonationResponse(target))
}

// StopImpersonation handles DELETE /v1/impersonation. The target being left
// is read from the usual impersonation header.
//
// @Summary      Stop impersonating
// @Tags         impersonation
// @Security     BearerAuth
// @Param        X-Impersonate-User  header  string  false  "User id being impersonated"
// @Success      204
// @Failure      403  {object}  errorResponse
// @Router       /v1/impersonation [delete]
func (h *AdminHandler) StopImpersonation(c echo.Context) error {
	p, err := ctxPrincipal(c)
	if err != nil {
		return err
	}
	if err := h.admin.StopImpersonation(c.Request().Context(), p, ctxDeclaredTarget(c)); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
