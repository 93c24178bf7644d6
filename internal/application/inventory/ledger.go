package inventory

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/endmill-ledger/internal/domain"
	"github.com/jhoicas/endmill-ledger/internal/domain/entity"
	dominv "github.com/jhoicas/endmill-ledger/internal/domain/inventory"
	"github.com/jhoicas/endmill-ledger/internal/domain/repository"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

// TransactionLedger registro de movimientos de entrada/salida. No toca el agregado.
type TransactionLedger struct {
	repo repository.StockTransactionRepository
}

// NewTransactionLedger construye el ledger.
func NewTransactionLedger(repo repository.StockTransactionRepository) *TransactionLedger {
	return &TransactionLedger{repo: repo}
}

// withRepo devuelve el ledger sobre otro repositorio (el de una transacción).
func (l *TransactionLedger) withRepo(repo repository.StockTransactionRepository) *TransactionLedger {
	return &TransactionLedger{repo: repo}
}

// Append persiste la entrada. Asigna ID y ProcessedAt si faltan. total nil significa que el
// monto no vino en la petición y se calcula como cantidad × precio; un cero explícito se respeta.
func (l *TransactionLedger) Append(ctx context.Context, tx *entity.StockTransaction, total *decimal.Decimal) error {
	if tx.ID == "" {
		tx.ID = uuid.New().String()
	}
	if tx.ProcessedAt.IsZero() {
		tx.ProcessedAt = time.Now()
	}
	if total != nil {
		tx.TotalAmount = *total
	} else {
		tx.TotalAmount = dominv.TotalAmount(tx.Quantity, tx.UnitPrice)
	}
	if err := l.repo.Create(ctx, tx); err != nil {
		return domain.Persistence("append ledger entry", err)
	}
	return nil
}

// Get devuelve la entrada o ErrNotFound.
func (l *TransactionLedger) Get(ctx context.Context, id string) (*entity.StockTransaction, error) {
	tx, err := l.repo.GetByID(ctx, id)
	if err != nil {
		return nil, domain.Persistence("get ledger entry", err)
	}
	if tx == nil {
		return nil, domain.NotFoundf("movimiento %s", id)
	}
	return tx, nil
}

// Update reescribe una entrada existente (sólo para el flujo de edición del coordinador).
func (l *TransactionLedger) Update(ctx context.Context, tx *entity.StockTransaction) error {
	if err := l.repo.Update(ctx, tx); err != nil {
		return domain.Persistence("update ledger entry", err)
	}
	return nil
}

// Delete elimina la entrada y devuelve lo eliminado para que el coordinador calcule la compensación.
func (l *TransactionLedger) Delete(ctx context.Context, id string) (*entity.StockTransaction, error) {
	tx, err := l.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	ok, err := l.repo.Delete(ctx, id)
	if err != nil {
		return nil, domain.Persistence("delete ledger entry", err)
	}
	if !ok {
		return nil, domain.NotFoundf("movimiento %s", id)
	}
	return tx, nil
}

// ListFor lista movimientos aplicando límites de paginación por defecto.
func (l *TransactionLedger) ListFor(ctx context.Context, f repository.TransactionFilter) ([]*entity.StockTransaction, error) {
	if f.Limit <= 0 {
		f.Limit = defaultListLimit
	}
	if f.Limit > maxListLimit {
		f.Limit = maxListLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	if f.From != nil && f.To != nil && f.From.After(*f.To) {
		return nil, domain.Validationf("rango de fechas inválido")
	}
	list, err := l.repo.List(ctx, f)
	if err != nil {
		return nil, domain.Persistence("list ledger entries", err)
	}
	return list, nil
}
