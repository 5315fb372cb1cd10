package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/vitaltrack/health-tracker/internal/api/metrics"
	"github.com/vitaltrack/health-tracker/internal/core/ports"
)

// RecordHandler handles HTTP requests for health records. Every route acts
// on the effective target: the caller, or the user an admin impersonates.
type RecordHandler struct {
	service ports.RecordService
}

func NewRecordHandler(service ports.RecordService) *RecordHandler {
	return &RecordHandler{service: service}
}

// Create handles POST /v1/records.
//
// @Summary      Create a health record
// @Tags         records
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        X-Impersonate-User  header    string         false  "User id an admin acts as"
// @Param        body                body      recordRequest  true   "Record fields, snake_case or camelCase"
// @Success      201                 {object}  domain.HealthRecord
// @Failure      400                 {object}  errorResponse
// @Failure      401                 {object}  errorResponse
// @Failure      403                 {object}  errorResponse
// @Failure      409                 {object}  errorResponse
// @Router       /v1/records [post]
func (h *RecordHandler) Create(c echo.Context) error {
	p, err := ctxPrincipal(c)
	if err != nil {
		return err
	}
	in, err := bindRecordInput(c)
	if err != nil {
		return err
	}

	declared := ctxDeclaredTarget(c)
	rec, err := h.service.Create(c.Request().Context(), p, declared, in)
	if err != nil {
		return err
	}

	metrics.RecordWritesTotal.WithLabelValues("create", writeScope(p, declared, rec.OwnerUserID)).Inc()
	return c.JSON(http.StatusCreated, rec)
}

// List handles GET /v1/records.
//
// @Summary      List health records, newest first
// @Tags         records
// @Produce      json
// @Security     BearerAuth
// @Param        X-Impersonate-User  header    string  false  "User id an admin acts as"
// @Param        from                query     string  false  "Earliest date (YYYY-MM-DD)"
// @Param        to                  query     string  false  "Latest date (YYYY-MM-DD)"
// @Success      200                 {object}  recordListResponse
// @Failure      400                 {object}  errorResponse
// @Failure      401                 {object}  errorResponse
// @Router       /v1/records [get]
func (h *RecordHandler) List(c echo.Context) error {
	p, err := ctxPrincipal(c)
	if err != nil {
		return err
	}
	filter, err := bindDateRange(c)
	if err != nil {
		return err
	}

	records, err := h.service.List(c.Request().Context(), p, ctxDeclaredTarget(c), filter)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, newRecordList(records))
}

// Stats handles GET /v1/records/stats.
//
// @Summary      Summary statistics of the effective target's records
// @Tags         records
// @Produce      json
// @Security     BearerAuth
// @Param        X-Impersonate-User  header    string  false  "User id an admin acts as"
// @Success      200                 {object}  domain.RecordStats
// @Failure      401                 {object}  errorResponse
// @Router       /v1/records/stats [get]
func (h *RecordHandler) Stats(c echo.Context) error {
	p, err := ctxPrincipal(c)
	if err != nil {
		return err
	}

	stats, err := h.service.Stats(c.Request().Context(), p, ctxDeclaredTarget(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, stats)
}

// Get handles GET /v1/records/:id.
//
// @Summary      Get a health record
// @Tags         records
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Record id"
// @Success      200  {object}  domain.HealthRecord
// @Failure      403  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Router       /v1/records/{id} [get]
func (h *RecordHandler) Get(c echo.Context) error {
	p, err := ctxPrincipal(c)
	if err != nil {
		return err
	}

	rec, err := h.service.Get(c.Request().Context(), p, ctxDeclaredTarget(c), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, rec)
}

// Update handles PUT /v1/records/:id. Only the fields sent are changed; the
// merged record must pass validation as a whole.
//
// @Summary      Update a health record
// @Tags         records
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string         true  "Record id"
// @Param        body  body      recordRequest  true  "Fields to change"
// @Success      200   {object}  domain.HealthRecord
// @Failure      400   {object}  errorResponse
// @Failure      403   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Failure      409   {object}  errorResponse
// @Router       /v1/records/{id} [put]
func (h *RecordHandler) Update(c echo.Context) error {
	p, err := ctxPrincipal(c)
	if err != nil {
		return err
	}
	in, err := bindRecordInput(c)
	if err != nil {
		return err
	}

	declared := ctxDeclaredTarget(c)
	rec, err := h.service.Update(c.Request().Context(), p, declared, c.Param("id"), in)
	if err != nil {
		return err
	}

	metrics.RecordWritesTotal.WithLabelValues("update", writeScope(p, declared, rec.OwnerUserID)).Inc()
	return c.JSON(http.StatusOK, rec)
}

// Delete handles DELETE /v1/records/:id.
//
// @Summary      Delete a health record
// @Tags         records
// @Security     BearerAuth
// @Param        id   path  string  true  "Record id"
// @Success      204
// @Failure      403  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Router       /v1/records/{id} [delete]
func (h *RecordHandler) Delete(c echo.Context) error {
	p, err := ctxPrincipal(c)
	if err != nil {
		return err
	}

	declared := ctxDeclaredTarget(c)
	if err := h.service.Delete(c.Request().Context(), p, declared, c.Param("id")); err != nil {
		return err
	}

	metrics.RecordWritesTotal.WithLabelValues("delete", deleteScope(p, declared)).Inc()
	return c.NoContent(http.StatusNoContent)
}
