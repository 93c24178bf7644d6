package inventory

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/jhoicas/endmill-ledger/internal/domain"
	"github.com/jhoicas/endmill-ledger/internal/domain/entity"
	dominv "github.com/jhoicas/endmill-ledger/internal/domain/inventory"
)

// OutboundInput entrada para registrar un despacho.
// Sin equipo/posición es válido: stock reservado antes de montarse en una máquina.
type OutboundInput struct {
	ToolTypeCode    string
	EquipmentNumber string
	ToolPosition    *int
	Quantity        int
	Purpose         string
	FactoryID       string
	ProcessedBy     string
	ProcessedAt     *time.Time
	Notes           string
}

// OutboundEdit campos editables de un despacho existente.
type OutboundEdit struct {
	Quantity        int
	EquipmentNumber string
	ToolPosition    *int
	Purpose         string
}

func validateOutbound(quantity int, position *int) error {
	if quantity <= 0 {
		return domain.Validationf("quantity debe ser mayor a 0")
	}
	if position != nil && *position <= 0 {
		return domain.Validationf("tool_position_number debe ser mayor a 0")
	}
	return nil
}

// RegisterOutbound: valida → resuelve herramienta, agregado y equipo → append ledger + resta
// condicional de stock en una transacción → historial best-effort.
// Un despacho nunca crea stock: si no hay agregado para la fábrica devuelve ErrNotFound.
func (c *StockMovementCoordinator) RegisterOutbound(ctx context.Context, in OutboundInput) (*MovementResult, error) {
	log := c.log.With().
		Str("movement", entity.TransactionTypeOutbound).
		Str("operation", OperationCreate).
		Str("tool_type_code", in.ToolTypeCode).
		Str("factory_id", in.FactoryID).
		Logger()

	log.Debug().Str("stage", StageValidating).Msg("etapa")
	err := validateOutbound(in.Quantity, in.ToolPosition)
	if err == nil && strings.TrimSpace(in.ToolTypeCode) == "" {
		err = domain.Validationf("tool_type_code es requerido")
	}
	if err != nil {
		c.aborted(log, entity.TransactionTypeOutbound, OperationCreate, err)
		return nil, err
	}

	log.Debug().Str("stage", StageResolving).Msg("etapa")
	tt, err := c.resolveToolType(ctx, in.ToolTypeCode)
	if err != nil {
		c.aborted(log, entity.TransactionTypeOutbound, OperationCreate, err)
		return nil, err
	}
	agg, err := c.store.Find(ctx, entity.ItemKey{ToolTypeID: tt.ID, FactoryID: in.FactoryID})
	if err != nil {
		c.aborted(log, entity.TransactionTypeOutbound, OperationCreate, err)
		return nil, err
	}
	// Rechazo temprano; la escritura condicional de abajo es la que decide.
	if agg.CurrentStock < in.Quantity {
		err = &domain.InsufficientStockError{Current: agg.CurrentStock, Requested: in.Quantity}
		c.aborted(log, entity.TransactionTypeOutbound, OperationCreate, err)
		return nil, err
	}
	var equipmentID string
	if strings.TrimSpace(in.EquipmentNumber) != "" {
		eq, err := c.resolveEquipment(ctx, in.EquipmentNumber)
		if err != nil {
			c.aborted(log, entity.TransactionTypeOutbound, OperationCreate, err)
			return nil, err
		}
		equipmentID = eq.ID
	}

	log.Debug().Str("stage", StageAppending).Msg("etapa")
	tx := &entity.StockTransaction{
		AggregateID:        agg.ID,
		ToolTypeID:         tt.ID,
		FactoryID:          in.FactoryID,
		Type:               entity.TransactionTypeOutbound,
		Quantity:           in.Quantity,
		UnitPrice:          tt.UnitPrice,
		Counterparty:       strings.TrimSpace(in.Purpose),
		EquipmentReference: strings.TrimSpace(in.EquipmentNumber),
		EquipmentID:        equipmentID,
		ToolPosition:       in.ToolPosition,
		Notes:              in.Notes,
		ProcessedBy:        in.ProcessedBy,
	}
	if in.ProcessedAt != nil {
		tx.ProcessedAt = *in.ProcessedAt
	}
	var updated *entity.StockAggregate
	appended := false
	err = c.inTx(ctx, func(ledger *TransactionLedger, store *StockAggregateStore) error {
		if err := ledger.Append(ctx, tx, nil); err != nil {
			return err
		}
		appended = true
		log.Debug().Str("stage", StageAdjusting).Str("transaction_id", tx.ID).Msg("etapa")
		var err error
		updated, err = store.ApplyDelta(ctx, agg.ID, tx.SignedQuantity())
		return err
	})
	if err != nil {
		if appended {
			err = c.rolledBack(log, StageAppending, err)
		}
		c.aborted(log, entity.TransactionTypeOutbound, OperationCreate, err)
		return nil, err
	}

	log.Debug().Str("stage", StageLinkingHistory).Msg("etapa")
	rec := c.linkHistory(ctx, log, tx)

	c.committed(log, entity.TransactionTypeOutbound, OperationCreate)
	return &MovementResult{Transaction: tx, Aggregate: updated, ToolChange: rec}, nil
}

// EditOutbound aplica −(nueva − anterior) al agregado. Equipo, posición y propósito ausentes
// conservan su valor. Si cambia la máquina, la posición o el motivo derivado del propósito,
// el historial se re-vincula en modo best-effort.
func (c *StockMovementCoordinator) EditOutbound(ctx context.Context, transactionID string, in OutboundEdit) (*MovementResult, error) {
	log := c.log.With().
		Str("movement", entity.TransactionTypeOutbound).
		Str("operation", OperationEdit).
		Str("transaction_id", transactionID).
		Logger()

	if err := validateOutbound(in.Quantity, in.ToolPosition); err != nil {
		c.aborted(log, entity.TransactionTypeOutbound, OperationEdit, err)
		return nil, err
	}
	old, err := c.ledger.Get(ctx, transactionID)
	if err == nil && old.Type != entity.TransactionTypeOutbound {
		err = domain.NotFoundf("movimiento de salida %s", transactionID)
	}
	if err != nil {
		c.aborted(log, entity.TransactionTypeOutbound, OperationEdit, err)
		return nil, err
	}

	// Campos ausentes conservan el vínculo actual: corregir cantidad o propósito no borra
	// el historial de la máquina.
	equipmentID, equipmentRef := old.EquipmentID, old.EquipmentReference
	if strings.TrimSpace(in.EquipmentNumber) != "" {
		eq, err := c.resolveEquipment(ctx, in.EquipmentNumber)
		if err != nil {
			c.aborted(log, entity.TransactionTypeOutbound, OperationEdit, err)
			return nil, err
		}
		equipmentID, equipmentRef = eq.ID, strings.TrimSpace(in.EquipmentNumber)
	}
	position := old.ToolPosition
	if in.ToolPosition != nil {
		position = in.ToolPosition
	}
	purpose := old.Counterparty
	if p := strings.TrimSpace(in.Purpose); p != "" {
		purpose = p
	}

	stockDelta := -(in.Quantity - old.Quantity)
	agg, err := c.store.Get(ctx, old.AggregateID)
	if err != nil {
		c.aborted(log, entity.TransactionTypeOutbound, OperationEdit, err)
		return nil, err
	}
	if agg.CurrentStock+stockDelta < 0 {
		err = &domain.InsufficientStockError{Current: agg.CurrentStock, Requested: -stockDelta}
		c.aborted(log, entity.TransactionTypeOutbound, OperationEdit, err)
		return nil, err
	}

	edited := *old
	edited.Quantity = in.Quantity
	edited.TotalAmount = dominv.TotalAmount(in.Quantity, old.UnitPrice)
	edited.Counterparty = purpose
	edited.EquipmentReference = equipmentRef
	edited.EquipmentID = equipmentID
	edited.ToolPosition = position
	updated := false
	err = c.inTx(ctx, func(ledger *TransactionLedger, store *StockAggregateStore) error {
		if err := ledger.Update(ctx, &edited); err != nil {
			return err
		}
		updated = true
		if stockDelta == 0 {
			return nil
		}
		var err error
		agg, err = store.ApplyDelta(ctx, old.AggregateID, stockDelta)
		return err
	})
	if err != nil {
		if updated {
			err = c.rolledBack(log, StageAppending, err)
		}
		c.aborted(log, entity.TransactionTypeOutbound, OperationEdit, err)
		return nil, err
	}

	var rec *entity.ToolChangeRecord
	if linkChanged(old, &edited) {
		if old.HasEquipmentLink() {
			c.unlinkHistory(ctx, log, old)
		}
		rec = c.linkHistory(ctx, log, &edited)
	}

	c.committed(log, entity.TransactionTypeOutbound, OperationEdit)
	return &MovementResult{Transaction: &edited, Aggregate: agg, ToolChange: rec}, nil
}

// DeleteOutbound devuelve +cantidad al stock sin condiciones, borra la entrada y, en modo
// best-effort, el registro de historial correlacionado. Si el agregado ya no existe se recrea
// y el resultado queda marcado para revisión.
func (c *StockMovementCoordinator) DeleteOutbound(ctx context.Context, transactionID string) (*DeleteResult, error) {
	log := c.log.With().
		Str("movement", entity.TransactionTypeOutbound).
		Str("operation", OperationDelete).
		Str("transaction_id", transactionID).
		Logger()

	old, err := c.ledger.Get(ctx, transactionID)
	if err == nil && old.Type != entity.TransactionTypeOutbound {
		err = domain.NotFoundf("movimiento de salida %s", transactionID)
	}
	if err != nil {
		c.aborted(log, entity.TransactionTypeOutbound, OperationDelete, err)
		return nil, err
	}

	needsReview := false
	aggregateID := old.AggregateID
	agg, err := c.store.Get(ctx, aggregateID)
	if err != nil {
		if !isNotFound(err) {
			c.aborted(log, entity.TransactionTypeOutbound, OperationDelete, err)
			return nil, err
		}
		agg, err = c.store.FindOrCreate(ctx, entity.ItemKey{ToolTypeID: old.ToolTypeID, FactoryID: old.FactoryID}, c.defaults)
		if err != nil {
			c.aborted(log, entity.TransactionTypeOutbound, OperationDelete, err)
			return nil, err
		}
		aggregateID = agg.ID
		needsReview = true
	}

	reversal := old.Quantity
	adjusted := false
	err = c.inTx(ctx, func(ledger *TransactionLedger, store *StockAggregateStore) error {
		var err error
		if agg, err = store.ApplyDelta(ctx, aggregateID, reversal); err != nil {
			return err
		}
		adjusted = true
		_, err = ledger.Delete(ctx, old.ID)
		return err
	})
	if err != nil {
		if adjusted {
			err = c.rolledBack(log, StageAdjusting, err)
		}
		c.aborted(log, entity.TransactionTypeOutbound, OperationDelete, err)
		return nil, err
	}
	if agg.MaxStock > 0 && agg.CurrentStock > agg.MaxStock {
		needsReview = true
	}

	removed := false
	if old.HasEquipmentLink() {
		removed = c.unlinkHistory(ctx, log, old)
	}
	if needsReview {
		log.Warn().
			Str("aggregate_id", aggregateID).
			Int("current_stock", agg.CurrentStock).
			Int("max_stock", agg.MaxStock).
			Msg("borrado de despacho aplicado; agregado requiere revisión de reconciliación")
	}

	c.committed(log, entity.TransactionTypeOutbound, OperationDelete)
	return &DeleteResult{Transaction: old, Aggregate: agg, NeedsReview: needsReview, HistoryRemoved: removed}, nil
}

// linkHistory crea el registro de cambio de herramienta; un fallo sólo se registra.
func (c *StockMovementCoordinator) linkHistory(ctx context.Context, log zerolog.Logger, tx *entity.StockTransaction) *entity.ToolChangeRecord {
	rec, err := c.history.RecordFromOutbound(ctx, tx)
	if err != nil {
		c.observer.HistoryLinkFailed()
		log.Warn().Err(err).
			Str("transaction_id", tx.ID).
			Str("equipment_id", tx.EquipmentID).
			Msg("no se pudo registrar el cambio de herramienta; el despacho queda confirmado")
		return nil
	}
	return rec
}

// unlinkHistory borra el registro correlacionado; un fallo sólo se registra.
func (c *StockMovementCoordinator) unlinkHistory(ctx context.Context, log zerolog.Logger, tx *entity.StockTransaction) bool {
	removed, err := c.history.DeleteLinkedTo(ctx, tx, c.history.Window())
	if err != nil {
		c.observer.HistoryLinkFailed()
		log.Warn().Err(err).Str("transaction_id", tx.ID).Msg("no se pudo borrar el historial vinculado")
		return false
	}
	if !removed {
		log.Info().Str("transaction_id", tx.ID).Msg("sin historial vinculado dentro de la ventana; se conserva cualquier registro huérfano")
	}
	return removed
}

func linkChanged(old, edited *entity.StockTransaction) bool {
	if old.EquipmentID != edited.EquipmentID {
		return true
	}
	if changeReasonFor(old.Counterparty) != changeReasonFor(edited.Counterparty) {
		return true
	}
	switch {
	case old.ToolPosition == nil && edited.ToolPosition == nil:
		return false
	case old.ToolPosition == nil || edited.ToolPosition == nil:
		return true
	default:
		return *old.ToolPosition != *edited.ToolPosition
	}
}
