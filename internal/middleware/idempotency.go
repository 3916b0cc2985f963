package middleware

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/grachmannico95/bankline/internal/domain"
	"github.com/grachmannico95/bankline/pkg/logger"
)

const (
	HeaderIdempotencyKey = "Idempotency-Key"
	HeaderReplayed       = "Idempotent-Replayed"
)

type captureWriter struct {
	http.ResponseWriter
	body bytes.Buffer
}

func (w *captureWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

// Idempotency replays the stored response when a mutation arrives again with
// the same Idempotency-Key. A key reused for a different request, or one whose
// first request is still running, gets 409. Responses with 5xx release the key.
func Idempotency(repo domain.Repository, log *logger.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			key := req.Header.Get(HeaderIdempotencyKey)
			if key == "" || req.Method == http.MethodGet || req.Method == http.MethodHead {
				return next(c)
			}
			ctx := req.Context()

			body, err := io.ReadAll(req.Body)
			if err != nil {
				return c.JSON(http.StatusBadRequest, domain.ErrorEnvelope{
					Message:   "cannot read request body",
					ErrorCode: domain.CodeValidation,
				})
			}
			req.Body = io.NopCloser(bytes.NewReader(body))

			scope := ""
			if acc := AccountFrom(c); acc != nil {
				scope = acc.ID
			}
			storeKey := scope + ":" + key
			fp := fingerprint(req.Method, req.URL.Path, body)

			rec, fresh, err := repo.BeginIdempotent(ctx, storeKey, fp)
			if err != nil {
				log.Error(ctx, "Failed to claim idempotency key", "error", err)
				return c.JSON(http.StatusInternalServerError, domain.ErrorEnvelope{Message: "internal error"})
			}

			if !fresh {
				switch {
				case rec.Fingerprint != fp:
					return c.JSON(http.StatusConflict, domain.ErrorEnvelope{
						Message:   domain.ErrIdempotencyConflict.Error(),
						ErrorCode: domain.CodeIdempotencyConflict,
					})
				case rec.Pending():
					return c.JSON(http.StatusConflict, domain.ErrorEnvelope{
						Message:   domain.ErrIdempotencyInProgress.Error(),
						ErrorCode: domain.CodeIdempotencyConflict,
					})
				}
				log.Info(ctx, "Replaying idempotent response", "status", rec.Status)
				c.Response().Header().Set(HeaderReplayed, "true")
				return c.Blob(rec.Status, rec.ContentType, rec.Body)
			}

			capture := &captureWriter{ResponseWriter: c.Response().Writer}
			c.Response().Writer = capture

			if err := next(c); err != nil {
				c.Error(err)
			}

			status := c.Response().Status
			if status >= http.StatusInternalServerError {
				if err := repo.AbandonIdempotent(ctx, storeKey); err != nil {
					log.Warn(ctx, "Failed to release idempotency key", "error", err)
				}
				return nil
			}

			contentType := c.Response().Header().Get(echo.HeaderContentType)
			if err := repo.CompleteIdempotent(ctx, storeKey, status, contentType, capture.body.Bytes()); err != nil {
				log.Warn(ctx, "Failed to store idempotent response", "error", err)
			}
			return nil
		}
	}
}

func fingerprint(method, path string, body []byte) string {
	sum := sha256.Sum256(body)
	return method + " " + path + " " + hex.EncodeToString(sum[:])
}
