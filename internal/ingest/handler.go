package ingest

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/verde-health/intake-api/internal/platform/vapi"
)

// processTimeout bounds post-acknowledgment reconciliation, which may fetch
// remote artifacts on top of its store writes.
const processTimeout = 2 * time.Minute

// Handler receives provider webhooks. The response contract is fixed:
// acknowledge with 200 as soon as the body has been read, then reconcile in
// the background. A non-2xx here would trigger provider redelivery storms.
type Handler struct {
	reconciler *Reconciler
	logger     zerolog.Logger
}

func NewHandler(reconciler *Reconciler, logger zerolog.Logger) *Handler {
	return &Handler{
		reconciler: reconciler,
		logger:     logger.With().Str("component", "webhook").Logger(),
	}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/webhooks/vapi", h.Receive)
}

func (h *Handler) Receive(c echo.Context) error {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		h.logger.Warn().Err(err).Msg("failed to read webhook body")
		return c.JSON(http.StatusOK, map[string]bool{"received": false})
	}

	ev, err := vapi.ParseEvent(body)
	if err != nil {
		h.logger.Warn().Err(err).Int("bytes", len(body)).Msg("unparseable webhook payload")
		return c.JSON(http.StatusOK, map[string]bool{"received": false})
	}

	go h.process(ev)

	return c.JSON(http.StatusOK, map[string]bool{"received": true})
}

// process runs detached from the request. Panics and errors stay here; the
// acknowledgment has already gone out.
func (h *Handler) process(ev *vapi.Event) {
	defer func() {
		if rec := recover(); rec != nil {
			h.logger.Error().Interface("panic", rec).Str("raw_type", ev.RawType).
				Msg("panic during webhook processing")
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), processTimeout)
	defer cancel()

	if err := h.reconciler.Handle(ctx, ev); err != nil {
		h.logger.Error().Err(err).Str("raw_type", ev.RawType).Str("call_id", ev.CallID).
			Msg("webhook processing failed")
	}
}
