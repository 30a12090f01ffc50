package mar

import (
	"context"
	"errors"
	"net/http"
	"time"

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
	readGroup.GET("/mar", h.List)
	readGroup.GET("/mar/worklist", h.Worklist)
	readGroup.GET("/mar/:id", h.Get)
	readGroup.GET("/mar/number/:number", h.GetByNumber)

	nurseGroup := api.Group("", auth.RequireRole("admin", "nurse"))
	nurseGroup.POST("/mar/schedule", h.GenerateSchedule)
	nurseGroup.POST("/mar/:id/give", h.Give)
	nurseGroup.POST("/mar/:id/hold", h.Hold)
	nurseGroup.POST("/mar/:id/refuse", h.Refuse)
	nurseGroup.POST("/mar/:id/witness", h.Witness)
	nurseGroup.POST("/mar/:id/omit", h.MarkOmitted)
	nurseGroup.POST("/mar/:id/not-available", h.MarkNotAvailable)

	physicianGroup := api.Group("", auth.RequireRole("admin", "physician"))
	physicianGroup.POST("/mar/:id/cancel", h.Cancel)
	physicianGroup.POST("/mar/:id/discontinue", h.Discontinue)

	adminGroup := api.Group("", auth.RequireRole("admin"))
	adminGroup.DELETE("/mar/:id", h.Delete)
}

func (h *Handler) GenerateSchedule(c echo.Context) error {
	var req ScheduleRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	doses, err := h.svc.GenerateSchedule(c.Request().Context(), req)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, doses)
}

func (h *Handler) Get(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	a, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "administration not found")
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) GetByNumber(c echo.Context) error {
	a, err := h.svc.GetByNumber(c.Request().Context(), c.Param("number"))
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "administration not found")
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) List(c echo.Context) error {
	pg := pagination.FromContext(c)
	params := map[string]string{}
	for _, key := range []string{"admission_id", "patient_id", "status", "frequency", "requires_witness"} {
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

func (h *Handler) Worklist(c echo.Context) error {
	pg := pagination.FromContext(c)
	from, err := time.Parse(time.RFC3339, c.QueryParam("from"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "from must be RFC3339")
	}
	to, err := time.Parse(time.RFC3339, c.QueryParam("to"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "to must be RFC3339")
	}
	views, total, err := h.svc.Worklist(c.Request().Context(), from, to, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(views, total, pg.Limit, pg.Offset))
}

func (h *Handler) Give(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var data GivenData
	if err := c.Bind(&data); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	a, err := h.svc.Give(c.Request().Context(), id, data)
	if err != nil {
		return statusError(err)
	}
	return c.JSON(http.StatusOK, a)
}

type reasonRequest struct {
	Reason string `json:"reason"`
}

func (h *Handler) Hold(c echo.Context) error {
	return h.closeWithReason(c, h.svc.Hold)
}

func (h *Handler) Refuse(c echo.Context) error {
	return h.closeWithReason(c, h.svc.Refuse)
}

func (h *Handler) closeWithReason(c echo.Context, op func(context.Context, uuid.UUID, string) (*Administration, error)) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req reasonRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	a, err := op(c.Request().Context(), id, req.Reason)
	if err != nil {
		return statusError(err)
	}
	return c.JSON(http.StatusOK, a)
}

type witnessRequest struct {
	WitnessID   uuid.UUID `json:"witnessId"`
	WitnessName string    `json:"witnessName"`
}

func (h *Handler) Witness(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req witnessRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	a, err := h.svc.Witness(c.Request().Context(), id, req.WitnessID, req.WitnessName)
	if err != nil {
		return statusError(err)
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) MarkOmitted(c echo.Context) error {
	return h.transition(c, h.svc.MarkOmitted)
}

func (h *Handler) MarkNotAvailable(c echo.Context) error {
	return h.transition(c, h.svc.MarkNotAvailable)
}

func (h *Handler) Cancel(c echo.Context) error {
	return h.transition(c, h.svc.Cancel)
}

func (h *Handler) Discontinue(c echo.Context) error {
	return h.transition(c, h.svc.Discontinue)
}

func (h *Handler) transition(c echo.Context, op func(ctx context.Context, id uuid.UUID) (*Administration, error)) error {
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
