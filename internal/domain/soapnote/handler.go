package soapnote

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/soap", h.ListRecent)
	api.GET("/soap/:callId", h.GetByCallID)
}

// ListRecent serves the dashboard: the latest notes with their session info.
func (h *Handler) ListRecent(c echo.Context) error {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	if limit <= 0 {
		limit = 10
	}
	notes, err := h.svc.ListRecent(c.Request().Context(), limit)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if notes == nil {
		notes = []*NoteWithSession{}
	}
	return c.JSON(http.StatusOK, notes)
}

func (h *Handler) GetByCallID(c echo.Context) error {
	note, err := h.svc.GetByCallID(c.Request().Context(), c.Param("callId"))
	if err != nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "SOAP note not found"})
	}
	return c.JSON(http.StatusOK, note)
}
