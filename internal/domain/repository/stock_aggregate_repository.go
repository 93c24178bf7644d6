package repository

import (
	"context"

	"github.com/jhoicas/endmill-ledger/internal/domain/entity"
	"github.com/jhoicas/endmill-ledger/internal/domain/inventory"
)

// AggregateFilter filtros para listar agregados.
type AggregateFilter struct {
	FactoryID string
	Status    string
	Limit     int
	Offset    int
}

// StockAggregateRepository define el puerto para el stock actual por tipo de herramienta y fábrica.
type StockAggregateRepository interface {
	Get(ctx context.Context, key entity.ItemKey) (*entity.StockAggregate, error)
	GetByID(ctx context.Context, id string) (*entity.StockAggregate, error)
	// CreateIfAbsent inserta el agregado; si ya existe uno para la misma clave no hace nada.
	CreateIfAbsent(ctx context.Context, agg *entity.StockAggregate) error
	// ApplyDelta suma delta a current_stock en una sola escritura condicional
	// (current_stock + delta >= 0). applied=false si la condición no se cumplió o la fila no existe.
	ApplyDelta(ctx context.Context, id string, delta int, th inventory.Thresholds) (agg *entity.StockAggregate, applied bool, err error)
	UpdateBounds(ctx context.Context, id string, minStock, maxStock int) error
	List(ctx context.Context, f AggregateFilter) ([]*entity.StockAggregate, error)

	// GetForUpdate bloquea la fila (SELECT FOR UPDATE); sólo tiene sentido dentro de una transacción.
	GetForUpdate(ctx context.Context, id string) (*entity.StockAggregate, error)
	// SetStock sobrescribe current_stock y status (usado por la reconciliación).
	SetStock(ctx context.Context, id string, currentStock int, status string) error
}
