package worklist

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/carelist/carelist/internal/platform/fhir"
)

type Handler struct {
	svc  *Service
	sess *Session
}

func NewHandler(svc *Service, sess *Session) *Handler {
	return &Handler{svc: svc, sess: sess}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/worklist", h.List)
	api.GET("/worklist/count", h.Count)
	api.GET("/worklist/patients/:id", h.GetPatient)
	api.POST("/worklist/filter", h.UpdateFilter)
	api.GET("/worklist/session", h.GetSnapshot)
}

// ListResponse is the paged worklist payload. Total counts every match,
// not just the page that made it into Items.
type ListResponse struct {
	Items []PatientItem `json:"items"`
	Total int           `json:"total"`
}

type CountResponse struct {
	Total int `json:"total"`
}

func filterFromQuery(c echo.Context) Filter {
	return Filter{
		Name:   c.QueryParam("name"),
		Given:  c.QueryParam("given"),
		Family: c.QueryParam("family"),
	}
}

func (h *Handler) List(c echo.Context) error {
	f := filterFromQuery(c)
	if err := f.Validate(); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	items, total, err := h.svc.Search(c.Request().Context(), f)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, fhir.ErrorOutcome(err.Error()))
	}
	return c.JSON(http.StatusOK, ListResponse{Items: items, Total: total})
}

func (h *Handler) Count(c echo.Context) error {
	f := filterFromQuery(c)
	if err := f.Validate(); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	total, err := h.svc.Count(c.Request().Context(), f)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, fhir.ErrorOutcome(err.Error()))
	}
	return c.JSON(http.StatusOK, CountResponse{Total: total})
}

func (h *Handler) GetPatient(c echo.Context) error {
	id := c.Param("id")
	item, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return c.JSON(http.StatusNotFound, fhir.NotFoundOutcome("Patient", id))
		}
		return c.JSON(http.StatusInternalServerError, fhir.ErrorOutcome(err.Error()))
	}
	return c.JSON(http.StatusOK, item)
}

func (h *Handler) UpdateFilter(c echo.Context) error {
	var f Filter
	if err := c.Bind(&f); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.sess.Update(f); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusAccepted, f)
}

func (h *Handler) GetSnapshot(c echo.Context) error {
	return c.JSON(http.StatusOK, h.sess.Snapshot())
}
