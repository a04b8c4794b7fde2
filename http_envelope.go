package identity

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
)

// Envelope wraps every response body
type Envelope struct {
	Success bool `json:"success"`
	Data    any  `json:"data"`
	Message any  `json:"message"`
}

func respond(c router.Context, status int, data any, message string) error {
	if data == nil {
		data = []any{}
	}
	return c.JSON(status, Envelope{
		Success: status < router.StatusBadRequest,
		Data:    data,
		Message: message,
	})
}

func fail(c router.Context, status int, message any) error {
	return c.JSON(status, failure(message))
}

func failure(message any) Envelope {
	return Envelope{
		Success: false,
		Data:    []any{},
		Message: message,
	}
}

// WriteError renders err in the envelope. Internal faults are logged and
// answered with a fixed message.
func WriteError(c router.Context, logger Logger, err error) error {
	status, message := errorReply(normalizeLogger(logger), c.Method(), c.Path(), err)
	return fail(c, status, message)
}

// NewErrorHandler returns the fiber error handler for errors that escape
// the router, such as unmatched routes.
func NewErrorHandler(logger Logger) fiber.ErrorHandler {
	logger = normalizeLogger(logger)

	return func(c *fiber.Ctx, err error) error {
		status, message := errorReply(logger, c.Method(), c.Path(), err)
		return c.Status(status).JSON(failure(message))
	}
}

func errorReply(logger Logger, method, path string, err error) (int, any) {
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		if fiberErr.Code >= router.StatusInternalServerError {
			logger.Error("request failed", "path", path, "error", err)
			return fiberErr.Code, InternalErrorMessage
		}
		return fiberErr.Code, fiberErr.Message
	}

	if fields, ok := ValidationFields(err); ok {
		return router.StatusBadRequest, fields
	}

	status := HTTPStatus(err)
	if status >= router.StatusInternalServerError {
		logger.Error("request failed", "path", path, "method", method, "error", err)
		return status, InternalErrorMessage
	}

	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		logger.Debug("request rejected",
			"path", path,
			"category", richErr.Category,
			"text_code", richErr.TextCode,
			"details", print.MaybePrettyJSON(richErr.Metadata),
		)
		return status, richErr.Message
	}

	return status, err.Error()
}
