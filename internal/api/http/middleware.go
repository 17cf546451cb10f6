package http

import (
	"context"
	"errors"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/ticketflow/internal/observability"
	apperrors "github.com/spec-kit/ticketflow/pkg/util/errorutil"
)

// RegisterMiddlewares attaches global middlewares such as error handling and logging.
func RegisterMiddlewares(app *fiber.App, logger *zap.Logger, metrics *observability.Metrics, timeout time.Duration) {
	if timeout > 0 {
		app.Use(requestTimeoutMiddleware(timeout))
	}
	app.Use(observability.RequestLogger(logger, metrics))
	app.Use(errorHandlingMiddleware(logger, metrics))
}

func requestTimeoutMiddleware(timeout time.Duration) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), timeout)
		defer cancel()
		c.SetUserContext(ctx)
		return c.Next()
	}
}

func errorHandlingMiddleware(logger *zap.Logger, metrics *observability.Metrics) fiber.Handler {
	return func(c *fiber.Ctx) (err error) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("panic recovered", zap.Any("panic", r), zap.ByteString("stack", debug.Stack()))
				err = apperrors.NewInternalError(nil)
			}
			if err != nil {
				domainErr := toDomainError(err)
				if metrics != nil {
					metrics.RecordError(c.Route().Path, c.Method(), domainErr.Code)
				}
				body := fiber.Map{
					"code":    domainErr.Code,
					"message": domainErr.Message,
					"retry":   domainErr.Retry,
				}
				if len(domainErr.Details) > 0 {
					body["details"] = domainErr.Details
				}
				if domainErr.HTTPStatus >= 500 {
					logger.Error("request failed", zap.Error(domainErr))
				}
				c.Status(domainErr.HTTPStatus)
				_ = c.JSON(fiber.Map{"error": body})
				err = nil
			}
		}()
		return c.Next()
	}
}

// toDomainError also translates fiber's own errors, such as unmatched routes.
func toDomainError(err error) *apperrors.DomainError {
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		code := apperrors.CodeInternal
		switch fiberErr.Code {
		case http.StatusBadRequest, http.StatusUnprocessableEntity:
			code = apperrors.CodeValidation
		case http.StatusUnauthorized:
			code = apperrors.CodeUnauthorized
		case http.StatusForbidden:
			code = apperrors.CodeForbidden
		case http.StatusNotFound, http.StatusMethodNotAllowed:
			code = apperrors.CodeNotFound
		case http.StatusConflict:
			code = apperrors.CodeConflict
		}
		return apperrors.NewDomainError(code, fiberErr.Message, fiberErr.Code, nil)
	}
	return apperrors.ToDomainError(err)
}
