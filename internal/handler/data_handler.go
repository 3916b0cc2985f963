package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/grachmannico95/bankline/internal/domain"
	"github.com/grachmannico95/bankline/internal/middleware"
	"github.com/grachmannico95/bankline/internal/realtime"
	"github.com/grachmannico95/bankline/pkg/logger"
)

// DataHandler serves the version vector, the data summary and the change streams.
type DataHandler struct {
	repo   domain.Repository
	hub    *realtime.Hub
	logger *logger.Logger
}

func NewDataHandler(repo domain.Repository, hub *realtime.Hub, log *logger.Logger) *DataHandler {
	return &DataHandler{
		repo:   repo,
		hub:    hub,
		logger: log,
	}
}

// Versions compares the versions the client sent as {category}V query
// parameters with the current ones. Without any parameter every category is
// reported against a known version of zero.
func (h *DataHandler) Versions(c echo.Context) error {
	current := h.repo.Versions(c.Request().Context())

	known := make(map[domain.Category]int64)
	for _, cat := range domain.AllCategories {
		raw := c.QueryParam(cat.QueryParam())
		if raw == "" {
			continue
		}
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return badRequest(c, "invalid version for "+string(cat))
		}
		known[cat] = v
	}
	if len(known) == 0 {
		for _, cat := range domain.AllCategories {
			known[cat] = 0
		}
	}

	check := domain.VersionCheck{
		Changed:  make(map[domain.Category]bool, len(known)),
		Versions: make(map[domain.Category]int64, len(known)),
	}
	for cat, v := range known {
		check.Versions[cat] = current[cat]
		check.Changed[cat] = v != current[cat]
		if check.Changed[cat] {
			check.HasChanges = true
		}
	}
	return c.JSON(http.StatusOK, check)
}

func (h *DataHandler) Summary(c echo.Context) error {
	acc := middleware.AccountFrom(c)

	summary, err := h.repo.Summary(c.Request().Context(), acc.ID)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, summary)
}

func (h *DataHandler) Stream(c echo.Context) error {
	cats, err := domain.ParseCategories(c.QueryParam("categories"))
	if err != nil {
		return respondError(c, h.logger, err)
	}
	if err := h.hub.ServeSSE(c.Response(), c.Request(), cats); err != nil {
		h.logger.Warn(c.Request().Context(), "Change stream failed", "transport", realtime.TransportSSE, "error", err)
	}
	return nil
}

func (h *DataHandler) WebSocket(c echo.Context) error {
	cats, err := domain.ParseCategories(c.QueryParam("categories"))
	if err != nil {
		return respondError(c, h.logger, err)
	}
	if err := h.hub.ServeWS(c.Response(), c.Request(), cats); err != nil {
		h.logger.Warn(c.Request().Context(), "Change stream failed", "transport", realtime.TransportWebSocket, "error", err)
	}
	return nil
}
