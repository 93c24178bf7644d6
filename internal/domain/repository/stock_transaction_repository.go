package repository

import (
	"context"
	"time"

	"github.com/jhoicas/endmill-ledger/internal/domain/entity"
)

// TransactionFilter filtros para listar movimientos del ledger.
type TransactionFilter struct {
	AggregateID string
	ToolTypeID  string
	FactoryID   string
	Type        string
	From        *time.Time
	To          *time.Time
	Limit       int
	Offset      int
}

// StockTransactionRepository define el puerto de persistencia del ledger.
type StockTransactionRepository interface {
	Create(ctx context.Context, tx *entity.StockTransaction) error
	GetByID(ctx context.Context, id string) (*entity.StockTransaction, error)
	Update(ctx context.Context, tx *entity.StockTransaction) error
	// Delete devuelve false si la fila no existía.
	Delete(ctx context.Context, id string) (bool, error)
	List(ctx context.Context, f TransactionFilter) ([]*entity.StockTransaction, error)
	// SignedSum suma inbound positivo y outbound negativo para un agregado.
	SignedSum(ctx context.Context, aggregateID string) (int, error)
}
