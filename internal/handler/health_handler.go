package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// StreamCounter reports connected change stream clients.
type StreamCounter interface {
	Clients() int
}

type HealthHandler struct {
	streams StreamCounter
}

func NewHealthHandler(streams StreamCounter) *HealthHandler {
	return &HealthHandler{streams: streams}
}

func (h *HealthHandler) Check(c echo.Context) error {
	body := map[string]interface{}{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
	}
	if h.streams != nil {
		body["streamClients"] = h.streams.Clients()
	}
	return c.JSON(http.StatusOK, body)
}
