package inventory

import (
	"context"
	"errors"
	"strings"
	"unicode"

	"github.com/rs/zerolog"

	"github.com/jhoicas/endmill-ledger/internal/domain"
	"github.com/jhoicas/endmill-ledger/internal/domain/entity"
	"github.com/jhoicas/endmill-ledger/internal/domain/repository"
)

// Etapas de un movimiento. Compensating/Aborted sólo son alcanzables después de Appending.
const (
	StageValidating     = "validating"
	StageResolving      = "resolving"
	StageAppending      = "appending"
	StageAdjusting      = "adjusting"
	StageLinkingHistory = "linking_history"
	StageCommitted      = "committed"
	StageCompensating   = "compensating"
	StageAborted        = "aborted"
)

// Operaciones sobre el ledger.
const (
	OperationCreate = "create"
	OperationEdit   = "edit"
	OperationDelete = "delete"
)

// StockMovementCoordinator orquesta la escritura en varios pasos (ledger + agregado + historial).
// Ledger y agregado se escriben en una misma transacción; si el ajuste falla la transacción
// se revierte y el movimiento termina en Aborted. El historial va después y es best-effort.
type StockMovementCoordinator struct {
	txRunner  TxRunner
	toolTypes repository.ToolTypeRepository
	equipment repository.EquipmentRepository
	store     *StockAggregateStore
	ledger    *TransactionLedger
	history   *ToolChangeRecorder
	defaults  Bounds
	log       zerolog.Logger
	observer  MovementObserver
}

// CoordinatorDeps dependencias del coordinador.
type CoordinatorDeps struct {
	// TxRunner agrupa la escritura del ledger y la del agregado de cada movimiento.
	TxRunner  TxRunner
	ToolTypes repository.ToolTypeRepository
	Equipment repository.EquipmentRepository
	Store     *StockAggregateStore
	Ledger    *TransactionLedger
	History   *ToolChangeRecorder
	// DefaultBounds se usan al crear un agregado si el tipo de herramienta no define los suyos.
	DefaultBounds Bounds
	Logger        zerolog.Logger
	Observer      MovementObserver
}

// NewStockMovementCoordinator construye el coordinador.
func NewStockMovementCoordinator(deps CoordinatorDeps) *StockMovementCoordinator {
	obs := deps.Observer
	if obs == nil {
		obs = nopObserver{}
	}
	return &StockMovementCoordinator{
		txRunner:  deps.TxRunner,
		toolTypes: deps.ToolTypes,
		equipment: deps.Equipment,
		store:     deps.Store,
		ledger:    deps.Ledger,
		history:   deps.History,
		defaults:  deps.DefaultBounds,
		log:       deps.Logger.With().Str("component", "stock_movement_coordinator").Logger(),
		observer:  obs,
	}
}

// MovementResult resultado de un alta o edición.
type MovementResult struct {
	Transaction *entity.StockTransaction
	Aggregate   *entity.StockAggregate
	ToolChange  *entity.ToolChangeRecord
}

// DeleteResult resultado de un borrado. NeedsReview marca el agregado para revisión de reconciliación.
type DeleteResult struct {
	Transaction    *entity.StockTransaction
	Aggregate      *entity.StockAggregate
	NeedsReview    bool
	HistoryRemoved bool
}

// Store expone el store de agregados (lecturas y límites desde la capa HTTP).
func (c *StockMovementCoordinator) Store() *StockAggregateStore { return c.store }

// Ledger expone el ledger para listados.
func (c *StockMovementCoordinator) Ledger() *TransactionLedger { return c.ledger }

// History expone el historial de cambios de herramienta.
func (c *StockMovementCoordinator) History() *ToolChangeRecorder { return c.history }

// ListTransactions lista movimientos resolviendo el código de herramienta si viene.
func (c *StockMovementCoordinator) ListTransactions(ctx context.Context, toolTypeCode string, f repository.TransactionFilter) ([]*entity.StockTransaction, error) {
	if code := strings.TrimSpace(toolTypeCode); code != "" {
		tt, err := c.resolveToolType(ctx, code)
		if err != nil {
			return nil, err
		}
		f.ToolTypeID = tt.ID
	}
	return c.ledger.ListFor(ctx, f)
}

// SetBounds configura min/max del agregado de un tipo de herramienta en una fábrica.
func (c *StockMovementCoordinator) SetBounds(ctx context.Context, toolTypeCode, factoryID string, minStock, maxStock int) (*entity.StockAggregate, error) {
	tt, err := c.resolveToolType(ctx, toolTypeCode)
	if err != nil {
		return nil, err
	}
	return c.store.SetBounds(ctx, entity.ItemKey{ToolTypeID: tt.ID, FactoryID: factoryID}, minStock, maxStock)
}

// ToolChangesForEquipment historial de una máquina; ref puede ser el ID o el número de equipo.
func (c *StockMovementCoordinator) ToolChangesForEquipment(ctx context.Context, ref string, limit int) ([]*entity.ToolChangeRecord, error) {
	eq, err := c.equipment.GetByID(ctx, ref)
	if err != nil {
		return nil, domain.Persistence("get equipment", err)
	}
	if eq == nil {
		if eq, err = c.resolveEquipment(ctx, ref); err != nil {
			return nil, err
		}
	}
	return c.history.ListForEquipment(ctx, eq.ID, limit)
}

func (c *StockMovementCoordinator) resolveToolType(ctx context.Context, code string) (*entity.ToolType, error) {
	tt, err := c.toolTypes.GetByCode(ctx, strings.TrimSpace(code))
	if err != nil {
		return nil, domain.Persistence("get tool type", err)
	}
	if tt == nil {
		return nil, domain.NotFoundf("tipo de herramienta %q no registrado", code)
	}
	return tt, nil
}

// resolveEquipment busca la máquina por número; si no existe y el número empieza con la letra
// de ubicación (ej. "C007"), reintenta sin ella ("007").
func (c *StockMovementCoordinator) resolveEquipment(ctx context.Context, number string) (*entity.Equipment, error) {
	number = strings.TrimSpace(number)
	candidates := []string{number}
	if len(number) > 1 && unicode.IsLetter(rune(number[0])) {
		candidates = append(candidates, number[1:])
	}
	for _, candidate := range candidates {
		eq, err := c.equipment.GetByNumber(ctx, candidate)
		if err != nil {
			return nil, domain.Persistence("get equipment", err)
		}
		if eq != nil {
			return eq, nil
		}
	}
	return nil, domain.NotFoundf("equipo %q no registrado", number)
}

func (c *StockMovementCoordinator) boundsFor(tt *entity.ToolType) Bounds {
	if tt.DefaultMinStock > 0 || tt.DefaultMaxStock > 0 {
		return Bounds{Min: tt.DefaultMinStock, Max: tt.DefaultMaxStock}
	}
	return c.defaults
}

// inTx ejecuta fn con ledger y store atados a una misma transacción. Mientras fn no termine,
// la reconciliación no ve la entrada nueva ni el ajuste.
func (c *StockMovementCoordinator) inTx(ctx context.Context, fn func(ledger *TransactionLedger, store *StockAggregateStore) error) error {
	var fnErr error
	err := c.txRunner.Run(ctx, func(aggRepo repository.StockAggregateRepository, txRepo repository.StockTransactionRepository) error {
		fnErr = fn(c.ledger.withRepo(txRepo), c.store.withRepo(aggRepo))
		return fnErr
	})
	if err != nil && fnErr == nil {
		return domain.Persistence("movement transaction", err)
	}
	return err
}

// rolledBack registra que una escritura ya hecha en la transacción se descartó.
// step es la última etapa completada antes del fallo.
func (c *StockMovementCoordinator) rolledBack(log zerolog.Logger, step string, cause error) error {
	log.Warn().Err(cause).Str("stage", StageCompensating).Str("step", step).Msg("movimiento revertido; ledger y agregado sin cambios")
	c.observer.Compensated(step)
	return surface(cause)
}

func (c *StockMovementCoordinator) aborted(log zerolog.Logger, movementType, operation string, err error) {
	log.Debug().Err(err).Str("stage", StageAborted).Msg("movimiento abortado")
	c.observer.MovementAborted(movementType, operation, reasonFor(err))
}

func (c *StockMovementCoordinator) committed(log zerolog.Logger, movementType, operation string) {
	log.Debug().Str("stage", StageCommitted).Msg("movimiento confirmado")
	c.observer.MovementCommitted(movementType, operation)
}

// surface convierte la guarda interna NegativeStockError en el InsufficientStockError que ve el caller.
func surface(err error) error {
	var neg *domain.NegativeStockError
	if errors.As(err, &neg) {
		return neg.Unwrap()
	}
	return err
}

func reasonFor(err error) string {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return "validation"
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrInsufficientStock):
		return "insufficient_stock"
	case errors.Is(err, domain.ErrPersistence):
		return "persistence"
	default:
		return "other"
	}
}

func isNotFound(err error) bool {
	return errors.Is(err, domain.ErrNotFound)
}
