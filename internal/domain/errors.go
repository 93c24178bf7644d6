package domain

import (
	"errors"
	"fmt"
)

// Errores de dominio (sin dependencias externas).
// Los handlers HTTP traducen cada sentinela a un código de estado.
var (
	ErrValidation        = errors.New("entrada inválida")
	ErrNotFound          = errors.New("recurso no encontrado")
	ErrInsufficientStock = errors.New("stock insuficiente")
	ErrConflict          = errors.New("conflicto con el estado actual")
	ErrNegativeStock     = errors.New("el stock resultante sería negativo")
	ErrPersistence       = errors.New("error de persistencia")
	ErrUnauthorized      = errors.New("no autorizado")
)

// InsufficientStockError lleva el stock actual para mostrarlo al usuario.
// errors.Is(err, ErrInsufficientStock) es verdadero.
type InsufficientStockError struct {
	Current   int
	Requested int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("stock insuficiente: stock actual %d, solicitado %d", e.Current, e.Requested)
}

func (e *InsufficientStockError) Is(target error) bool {
	return target == ErrInsufficientStock
}

// NegativeStockError es la guarda interna del agregado: el delta dejaría current_stock < 0.
// Envuelve un InsufficientStockError para que el coordinador pueda exponerlo.
type NegativeStockError struct {
	AggregateID string
	Current     int
	Delta       int
}

func (e *NegativeStockError) Error() string {
	return fmt.Sprintf("agregado %s: stock %d con delta %d quedaría negativo", e.AggregateID, e.Current, e.Delta)
}

func (e *NegativeStockError) Is(target error) bool {
	return target == ErrNegativeStock
}

func (e *NegativeStockError) Unwrap() error {
	requested := -e.Delta
	if requested < 0 {
		requested = 0
	}
	return &InsufficientStockError{Current: e.Current, Requested: requested}
}

// Validationf construye un error de validación con detalle.
func Validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// NotFoundf construye un error de recurso inexistente con detalle.
func NotFoundf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}

// Persistence envuelve un fallo del almacenamiento conservando la causa.
func Persistence(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %s: %w", ErrPersistence, op, err)
}
