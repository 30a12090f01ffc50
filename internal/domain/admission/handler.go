package admission

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/careward/careward/internal/platform/auth"
	"github.com/careward/careward/internal/platform/db"
	"github.com/careward/careward/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	readGroup := api.Group("", auth.RequireRole("admin", "physician", "nurse"))
	readGroup.GET("/admissions", h.List)
	readGroup.GET("/admissions/census", h.Census)
	readGroup.GET("/admissions/:id", h.Get)
	readGroup.GET("/admissions/:id/transfers", h.Transfers)
	readGroup.GET("/admissions/number/:number", h.GetByNumber)

	writeGroup := api.Group("", auth.RequireRole("admin", "physician", "nurse"))
	writeGroup.POST("/admissions", h.Admit)
	writeGroup.POST("/admissions/:id/transfer", h.Transfer)
	writeGroup.POST("/admissions/:id/discharge-request", h.RequestDischarge)

	physicianGroup := api.Group("", auth.RequireRole("admin", "physician"))
	physicianGroup.POST("/admissions/:id/discharge", h.Discharge)
	physicianGroup.POST("/admissions/:id/deceased", h.MarkDeceased)
	physicianGroup.POST("/admissions/:id/absconded", h.MarkAbsconded)

	adminGroup := api.Group("", auth.RequireRole("admin"))
	adminGroup.POST("/admissions/:id/cancel", h.Cancel)
	adminGroup.DELETE("/admissions/:id", h.Delete)
}

func (h *Handler) Admit(c echo.Context) error {
	var a Admission
	if err := c.Bind(&a); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.Admit(c.Request().Context(), &a); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, a)
}

func (h *Handler) Get(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	a, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "admission not found")
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) GetByNumber(c echo.Context) error {
	a, err := h.svc.GetByNumber(c.Request().Context(), c.Param("number"))
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "admission not found")
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) List(c echo.Context) error {
	pg := pagination.FromContext(c)
	params := map[string]string{}
	for _, key := range []string{"patient_id", "status", "type", "care_level", "current_ward_id"} {
		if v := c.QueryParam(key); v != "" {
			params[key] = v
		}
	}
	items, total, err := h.svc.Search(c.Request().Context(), params, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) Census(c echo.Context) error {
	pg := pagination.FromContext(c)
	views, total, err := h.svc.Census(c.Request().Context(), pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(views, total, pg.Limit, pg.Offset))
}

func (h *Handler) Transfers(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	transfers, err := h.svc.Transfers(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, transfers)
}

func (h *Handler) Transfer(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req TransferRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	a, err := h.svc.Transfer(c.Request().Context(), id, req)
	if err != nil {
		return statusError(err)
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) Discharge(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var data DischargeData
	if err := c.Bind(&data); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	a, err := h.svc.Discharge(c.Request().Context(), id, data)
	if err != nil {
		return statusError(err)
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) RequestDischarge(c echo.Context) error {
	return h.transition(c, h.svc.RequestDischarge)
}

func (h *Handler) Cancel(c echo.Context) error {
	return h.transition(c, h.svc.Cancel)
}

func (h *Handler) MarkDeceased(c echo.Context) error {
	return h.transition(c, h.svc.MarkDeceased)
}

func (h *Handler) MarkAbsconded(c echo.Context) error {
	return h.transition(c, h.svc.MarkAbsconded)
}

func (h *Handler) transition(c echo.Context, op func(ctx context.Context, id uuid.UUID) (*Admission, error)) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	a, err := op(c.Request().Context(), id)
	if err != nil {
		return statusError(err)
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) Delete(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.Delete(c.Request().Context(), id); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

func statusError(err error) error {
	if errors.Is(err, db.ErrVersionConflict) {
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	}
	if errors.Is(err, db.ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	}
	return echo.NewHTTPError(http.StatusBadRequest, err.Error())
}
