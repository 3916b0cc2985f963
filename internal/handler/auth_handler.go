package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/grachmannico95/bankline/internal/domain"
	"github.com/grachmannico95/bankline/internal/middleware"
	"github.com/grachmannico95/bankline/pkg/logger"
)

// TokenRevoker drops a session token.
type TokenRevoker interface {
	RevokeToken(token string)
}

type AuthHandler struct {
	repo    domain.Repository
	revoker TokenRevoker
	logger  *logger.Logger
}

func NewAuthHandler(repo domain.Repository, revoker TokenRevoker, log *logger.Logger) *AuthHandler {
	return &AuthHandler{
		repo:    repo,
		revoker: revoker,
		logger:  log,
	}
}

func (h *AuthHandler) Login(c echo.Context) error {
	ctx := c.Request().Context()

	var req domain.LoginRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if req.Email == "" || req.Password == "" {
		return badRequest(c, "email and password are required")
	}

	user, err := h.repo.Login(ctx, req.Email, req.Password)
	if err != nil {
		h.logger.Warn(ctx, "Login rejected", "email", req.Email)
		return respondError(c, h.logger, err)
	}

	h.logger.Info(ctx, "User signed in", "email", user.Email, "role", string(user.Role))
	return c.JSON(http.StatusOK, user)
}

func (h *AuthHandler) Register(c echo.Context) error {
	ctx := c.Request().Context()

	var req domain.RegisterRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if req.Email == "" || req.Password == "" || req.Name == "" {
		return badRequest(c, "email, password and name are required")
	}

	user, err := h.repo.Register(ctx, req)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	h.logger.Info(ctx, "User registered", "email", user.Email, "role", string(user.Role))
	return c.JSON(http.StatusCreated, user)
}

func (h *AuthHandler) Logout(c echo.Context) error {
	if h.revoker != nil {
		h.revoker.RevokeToken(middleware.BearerToken(c.Request()))
	}
	return c.NoContent(http.StatusNoContent)
}
