package inventory

import (
	"context"

	"github.com/jhoicas/endmill-ledger/internal/domain/repository"
)

// TxRunner ejecuta una función dentro de una transacción de BD, pasando repositorios atados a esa tx.
// Si fn devuelve error no queda nada escrito. El coordinador lo usa para el par ledger/agregado
// y la reconciliación para bloquear el agregado mientras recalcula desde el ledger.
type TxRunner interface {
	Run(ctx context.Context, fn func(
		aggRepo repository.StockAggregateRepository,
		txRepo repository.StockTransactionRepository,
	) error) error
}

// MovementObserver recibe los hitos del coordinador (métricas).
type MovementObserver interface {
	MovementCommitted(movementType, operation string)
	MovementAborted(movementType, operation, reason string)
	Compensated(step string)
	HistoryLinkFailed()
	DriftCorrected(aggregateID string, drift int)
}

type nopObserver struct{}

func (nopObserver) MovementCommitted(string, string)      {}
func (nopObserver) MovementAborted(string, string, string) {}
func (nopObserver) Compensated(string)                     {}
func (nopObserver) HistoryLinkFailed()                     {}
func (nopObserver) DriftCorrected(string, int)             {}
