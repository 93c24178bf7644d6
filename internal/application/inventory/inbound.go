package inventory

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/endmill-ledger/internal/domain"
	"github.com/jhoicas/endmill-ledger/internal/domain/entity"
	dominv "github.com/jhoicas/endmill-ledger/internal/domain/inventory"
)

// InboundInput entrada para registrar una recepción.
type InboundInput struct {
	ToolTypeCode string
	Counterparty string // proveedor
	Quantity     int
	UnitPrice    decimal.Decimal
	TotalAmount  *decimal.Decimal // opcional; si falta se calcula cantidad × precio
	FactoryID    string
	ProcessedBy  string
	ProcessedAt  *time.Time
	Notes        string
}

// InboundEdit campos editables de una recepción existente.
type InboundEdit struct {
	Quantity     int
	UnitPrice    decimal.Decimal
	Counterparty string
}

func validateInbound(quantity int, unitPrice decimal.Decimal, counterparty string) error {
	if quantity <= 0 {
		return domain.Validationf("quantity debe ser mayor a 0")
	}
	if unitPrice.IsNegative() {
		return domain.Validationf("unit_price no puede ser negativo")
	}
	if strings.TrimSpace(counterparty) == "" {
		return domain.Validationf("counterparty (proveedor) es requerido")
	}
	return nil
}

// RegisterInbound: valida → resuelve herramienta → find-or-create agregado → append ledger +
// suma de stock en una transacción. Si el ajuste falla la entrada no queda en el ledger.
func (c *StockMovementCoordinator) RegisterInbound(ctx context.Context, in InboundInput) (*MovementResult, error) {
	log := c.log.With().
		Str("movement", entity.TransactionTypeInbound).
		Str("operation", OperationCreate).
		Str("tool_type_code", in.ToolTypeCode).
		Str("factory_id", in.FactoryID).
		Logger()

	log.Debug().Str("stage", StageValidating).Msg("etapa")
	err := validateInbound(in.Quantity, in.UnitPrice, in.Counterparty)
	if err == nil && strings.TrimSpace(in.ToolTypeCode) == "" {
		err = domain.Validationf("tool_type_code es requerido")
	}
	if err == nil && in.TotalAmount != nil && in.TotalAmount.IsNegative() {
		err = domain.Validationf("total_amount no puede ser negativo")
	}
	if err != nil {
		c.aborted(log, entity.TransactionTypeInbound, OperationCreate, err)
		return nil, err
	}

	log.Debug().Str("stage", StageResolving).Msg("etapa")
	tt, err := c.resolveToolType(ctx, in.ToolTypeCode)
	if err != nil {
		c.aborted(log, entity.TransactionTypeInbound, OperationCreate, err)
		return nil, err
	}
	key := entity.ItemKey{ToolTypeID: tt.ID, FactoryID: in.FactoryID}
	agg, err := c.store.FindOrCreate(ctx, key, c.boundsFor(tt))
	if err != nil {
		c.aborted(log, entity.TransactionTypeInbound, OperationCreate, err)
		return nil, err
	}

	log.Debug().Str("stage", StageAppending).Msg("etapa")
	tx := &entity.StockTransaction{
		AggregateID:  agg.ID,
		ToolTypeID:   tt.ID,
		FactoryID:    in.FactoryID,
		Type:         entity.TransactionTypeInbound,
		Quantity:     in.Quantity,
		UnitPrice:    in.UnitPrice,
		Counterparty: strings.TrimSpace(in.Counterparty),
		Notes:        in.Notes,
		ProcessedBy:  in.ProcessedBy,
	}
	if in.ProcessedAt != nil {
		tx.ProcessedAt = *in.ProcessedAt
	}
	var updated *entity.StockAggregate
	appended := false
	err = c.inTx(ctx, func(ledger *TransactionLedger, store *StockAggregateStore) error {
		if err := ledger.Append(ctx, tx, in.TotalAmount); err != nil {
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
		c.aborted(log, entity.TransactionTypeInbound, OperationCreate, err)
		return nil, err
	}

	c.committed(log, entity.TransactionTypeInbound, OperationCreate)
	return &MovementResult{Transaction: tx, Aggregate: updated}, nil
}

// EditInbound aplica delta = nueva − anterior al agregado (+delta). Si el delta dejaría el stock
// en negativo se rechaza; si el ajuste falla, la entrada conserva su versión anterior.
func (c *StockMovementCoordinator) EditInbound(ctx context.Context, transactionID string, in InboundEdit) (*MovementResult, error) {
	log := c.log.With().
		Str("movement", entity.TransactionTypeInbound).
		Str("operation", OperationEdit).
		Str("transaction_id", transactionID).
		Logger()

	if err := validateInbound(in.Quantity, in.UnitPrice, in.Counterparty); err != nil {
		c.aborted(log, entity.TransactionTypeInbound, OperationEdit, err)
		return nil, err
	}
	old, err := c.ledger.Get(ctx, transactionID)
	if err == nil && old.Type != entity.TransactionTypeInbound {
		err = domain.NotFoundf("movimiento de entrada %s", transactionID)
	}
	if err != nil {
		c.aborted(log, entity.TransactionTypeInbound, OperationEdit, err)
		return nil, err
	}

	delta := in.Quantity - old.Quantity
	agg, err := c.store.Get(ctx, old.AggregateID)
	if err != nil {
		c.aborted(log, entity.TransactionTypeInbound, OperationEdit, err)
		return nil, err
	}
	if agg.CurrentStock+delta < 0 {
		err = &domain.InsufficientStockError{Current: agg.CurrentStock, Requested: -delta}
		c.aborted(log, entity.TransactionTypeInbound, OperationEdit, err)
		return nil, err
	}

	edited := *old
	edited.Quantity = in.Quantity
	edited.UnitPrice = in.UnitPrice
	edited.TotalAmount = dominv.TotalAmount(in.Quantity, in.UnitPrice)
	edited.Counterparty = strings.TrimSpace(in.Counterparty)
	updated := false
	err = c.inTx(ctx, func(ledger *TransactionLedger, store *StockAggregateStore) error {
		if err := ledger.Update(ctx, &edited); err != nil {
			return err
		}
		updated = true
		if delta == 0 {
			return nil
		}
		var err error
		agg, err = store.ApplyDelta(ctx, old.AggregateID, delta)
		return err
	})
	if err != nil {
		if updated {
			err = c.rolledBack(log, StageAppending, err)
		}
		c.aborted(log, entity.TransactionTypeInbound, OperationEdit, err)
		return nil, err
	}

	c.committed(log, entity.TransactionTypeInbound, OperationEdit)
	return &MovementResult{Transaction: &edited, Aggregate: agg}, nil
}

// DeleteInbound revierte −cantidad y luego borra la entrada. Se rechaza si el stock quedaría
// negativo: la recepción ya fue (parcialmente) despachada.
func (c *StockMovementCoordinator) DeleteInbound(ctx context.Context, transactionID string) (*DeleteResult, error) {
	log := c.log.With().
		Str("movement", entity.TransactionTypeInbound).
		Str("operation", OperationDelete).
		Str("transaction_id", transactionID).
		Logger()

	old, err := c.ledger.Get(ctx, transactionID)
	if err == nil && old.Type != entity.TransactionTypeInbound {
		err = domain.NotFoundf("movimiento de entrada %s", transactionID)
	}
	if err != nil {
		c.aborted(log, entity.TransactionTypeInbound, OperationDelete, err)
		return nil, err
	}

	reversal := -old.Quantity
	var agg *entity.StockAggregate
	adjusted := false
	err = c.inTx(ctx, func(ledger *TransactionLedger, store *StockAggregateStore) error {
		var err error
		if agg, err = store.ApplyDelta(ctx, old.AggregateID, reversal); err != nil {
			return surface(err)
		}
		adjusted = true
		_, err = ledger.Delete(ctx, old.ID)
		return err
	})
	if err != nil {
		if adjusted {
			err = c.rolledBack(log, StageAdjusting, err)
		}
		c.aborted(log, entity.TransactionTypeInbound, OperationDelete, err)
		return nil, err
	}

	c.committed(log, entity.TransactionTypeInbound, OperationDelete)
	return &DeleteResult{Transaction: old, Aggregate: agg}, nil
}
