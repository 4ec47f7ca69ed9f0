package intake

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/verde-health/intake-api/pkg/pagination"
)

type Handler struct {
	svc       *Service
	signedTTL time.Duration
}

func NewHandler(svc *Service, signedTTL time.Duration) *Handler {
	if signedTTL <= 0 {
		signedTTL = 15 * time.Minute
	}
	return &Handler{svc: svc, signedTTL: signedTTL}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/calls/start", h.StartCall)
	api.GET("/sessions", h.ListSessions)
	api.GET("/sessions/:id", h.GetSession)
	api.GET("/sessions/:id/recording", h.GetRecordingURL)
}

func (h *Handler) StartCall(c echo.Context) error {
	var body struct {
		PhoneNumber string `json:"phoneNumber"`
	}
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if body.PhoneNumber == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "phoneNumber is required")
	}

	sess, err := h.svc.StartCall(c.Request().Context(), body.PhoneNumber)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error":   "Failed to start call",
			"details": err.Error(),
		})
	}

	callID := ""
	if sess.CallID != nil {
		callID = *sess.CallID
	}
	return c.JSON(http.StatusOK, map[string]string{
		"message":     "Call initiated successfully",
		"phoneNumber": sess.PhoneNumber,
		"sessionId":   sess.ID.String(),
		"callId":      callID,
		"status":      string(sess.Status),
	})
}

func (h *Handler) ListSessions(c echo.Context) error {
	pg := pagination.FromContext(c)
	sessions, total, err := h.svc.ListSessions(c.Request().Context(), pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	resp := pagination.NewResponse(sessions, total, pg.Limit, pg.Offset)
	resp.Links = pg.Links(c.Request().URL.Path, total)
	return c.JSON(http.StatusOK, resp)
}

func (h *Handler) GetSession(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	sess, err := h.svc.GetSession(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "session not found")
	}
	return c.JSON(http.StatusOK, sess)
}

func (h *Handler) GetRecordingURL(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	url, err := h.svc.RecordingURL(c.Request().Context(), id, h.signedTTL)
	if err != nil {
		if errors.Is(err, ErrNotFound) || errors.Is(err, ErrNoRecording) {
			return echo.NewHTTPError(http.StatusNotFound, "recording not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]string{"url": url})
}
