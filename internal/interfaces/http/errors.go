package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/jhoicas/endmill-ledger/internal/application/dto"
	"github.com/jhoicas/endmill-ledger/internal/domain"
)

// respondError traduce un error de dominio a status + ErrorResponse.
// notFoundStatus permite que el alta de despachos responda 400 ante referencias desconocidas.
func respondError(c *fiber.Ctx, log zerolog.Logger, err error, notFoundStatus int) error {
	var neg *domain.NegativeStockError
	switch {
	case errors.As(err, &neg):
		// El coordinador debería haberla convertido; si llega aquí es un bug.
		log.Error().Err(err).Str("path", c.Path()).Msg("NegativeStockError llegó a la capa HTTP")
		return c.Status(fiber.StatusBadRequest).JSON(dto.NewError("INSUFFICIENT_STOCK", neg.Unwrap().Error()))
	case errors.Is(err, domain.ErrValidation):
		return c.Status(fiber.StatusBadRequest).JSON(dto.NewError("VALIDATION", err.Error()))
	case errors.Is(err, domain.ErrInsufficientStock):
		return c.Status(fiber.StatusBadRequest).JSON(dto.NewError("INSUFFICIENT_STOCK", insufficientMessage(err)))
	case errors.Is(err, domain.ErrNotFound):
		return c.Status(notFoundStatus).JSON(dto.NewError("NOT_FOUND", err.Error()))
	case errors.Is(err, domain.ErrConflict):
		return c.Status(fiber.StatusConflict).JSON(dto.NewError("CONFLICT", err.Error()))
	case errors.Is(err, domain.ErrUnauthorized):
		return c.Status(fiber.StatusUnauthorized).JSON(dto.NewError("UNAUTHORIZED", err.Error()))
	default:
		log.Error().Err(err).Str("path", c.Path()).Msg("error no controlado")
		return c.Status(fiber.StatusInternalServerError).JSON(dto.NewError("INTERNAL", "error interno al procesar la solicitud"))
	}
}

// insufficientMessage usa el mensaje del InsufficientStockError (incluye stock actual) aunque venga
// unido a un fallo de compensación.
func insufficientMessage(err error) string {
	var ins *domain.InsufficientStockError
	if errors.As(err, &ins) {
		return ins.Error()
	}
	return err.Error()
}

// ErrorHandler para fiber.Config: rutas inexistentes, body demasiado grande, panics recuperados.
func ErrorHandler(log zerolog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var fe *fiber.Error
		if errors.As(err, &fe) {
			code := "HTTP_ERROR"
			switch fe.Code {
			case fiber.StatusNotFound:
				code = "NOT_FOUND"
			case fiber.StatusMethodNotAllowed:
				code = "METHOD_NOT_ALLOWED"
			}
			return c.Status(fe.Code).JSON(dto.NewError(code, fe.Message))
		}
		log.Error().Err(err).Str("path", c.Path()).Msg("error no controlado")
		return c.Status(fiber.StatusInternalServerError).JSON(dto.NewError("INTERNAL", "error interno al procesar la solicitud"))
	}
}
