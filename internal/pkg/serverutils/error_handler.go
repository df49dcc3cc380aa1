package serverutils

import (
	"errors"
	"fmt"
	"runtime/debug"

	"lifestory-be/internal/pkg/apperror"
	"lifestory-be/internal/pkg/logger"

	"github.com/gofiber/fiber/v2"
)

var statusByKind = map[apperror.Kind]int{
	apperror.KindValidation:          fiber.StatusBadRequest,
	apperror.KindUnsupportedMedia:    fiber.StatusUnsupportedMediaType,
	apperror.KindPayloadTooLarge:     fiber.StatusRequestEntityTooLarge,
	apperror.KindNotFound:            fiber.StatusNotFound,
	apperror.KindConflict:            fiber.StatusConflict,
	apperror.KindUnauthorizedWebhook: fiber.StatusUnauthorized,
	apperror.KindUnauthorized:        fiber.StatusUnauthorized,
	apperror.KindForbidden:           fiber.StatusForbidden,
	apperror.KindPipelineFailure:     fiber.StatusBadGateway,
	apperror.KindTimeout:             fiber.StatusGatewayTimeout,
	apperror.KindPreconditionFailed:  fiber.StatusPreconditionFailed,
	apperror.KindInternal:            fiber.StatusInternalServerError,
}

func StatusOf(kind apperror.Kind) int {
	if code, ok := statusByKind[kind]; ok {
		return code
	}
	return fiber.StatusInternalServerError
}

// ErrorHandler renders any error returned by a handler as a BaseResponse.
// Errors outside the apperror taxonomy are logged and hidden behind a 500.
func ErrorHandler(log logger.ILogger) fiber.ErrorHandler {
	return func(ctx *fiber.Ctx, err error) error {
		var fe *fiber.Error
		if errors.As(err, &fe) {
			res := ErrorResponse(fe.Code, fe.Message)
			return ctx.Status(fe.Code).JSON(res)
		}

		var appErr *apperror.Error
		if !errors.As(err, &appErr) {
			log.Error("HTTP", "Unhandled error", map[string]interface{}{
				"error": err.Error(), "method": ctx.Method(), "path": ctx.Path(),
			})
		} else if appErr.Kind == apperror.KindInternal {
			log.Error("HTTP", appErr.Message, map[string]interface{}{
				"error": err.Error(), "method": ctx.Method(), "path": ctx.Path(),
			})
		}

		kind := apperror.KindOf(err)
		code := StatusOf(kind)
		res := ErrorResponse(code, apperror.MessageOf(err))
		res.Kind = string(kind)
		return ctx.Status(code).JSON(res)
	}
}

// ErrorHandlerMiddleware turns handler errors and panics into responses
// before they reach outer middleware such as tracing.
func ErrorHandlerMiddleware(log logger.ILogger) fiber.Handler {
	handle := ErrorHandler(log)
	return func(ctx *fiber.Ctx) (err error) {
		defer func() {
			if r := recover(); r != nil {
				log.Error("HTTP", "Recovered from panic", map[string]interface{}{
					"error": fmt.Sprint(r), "path": ctx.Path(), "stack": string(debug.Stack()),
				})
				err = handle(ctx, apperror.Internal("internal server error", fmt.Errorf("panic: %v", r)))
			}
		}()

		if err := ctx.Next(); err != nil {
			return handle(ctx, err)
		}
		return nil
	}
}
