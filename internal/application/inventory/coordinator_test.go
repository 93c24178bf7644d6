package inventory_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/endmill-ledger/internal/application/inventory"
	"github.com/jhoicas/endmill-ledger/internal/domain"
	"github.com/jhoicas/endmill-ledger/internal/domain/entity"
	"github.com/jhoicas/endmill-ledger/internal/domain/repository"
)

// Escenario A: recepción de 30 a 1000 sobre un agregado nuevo (min 5, max 50).
func TestRegisterInbound_CreatesAggregateAndComputesTotal(t *testing.T) {
	f := newFixture(t)

	res := f.seedStock(t, 30)

	require.NotNil(t, res.Aggregate)
	assert.Equal(t, 30, res.Aggregate.CurrentStock)
	assert.Equal(t, entity.StockStatusLow, res.Aggregate.Status)
	assert.Equal(t, 5, res.Aggregate.MinStock)
	assert.Equal(t, 50, res.Aggregate.MaxStock)
	assert.True(t, decimal.NewFromInt(30000).Equal(res.Transaction.TotalAmount), "total = 30 × 1000")
	assert.Equal(t, entity.TransactionTypeInbound, res.Transaction.Type)
	assert.Equal(t, "u-1", res.Transaction.ProcessedBy)
	assert.False(t, res.Transaction.ProcessedAt.IsZero())
	f.assertInvariant(t)
}

func TestRegisterInbound_ExplicitTotalIsKept(t *testing.T) {
	f := newFixture(t)
	total := decimal.NewFromInt(25000)

	res, err := f.coord.RegisterInbound(context.Background(), inventory.InboundInput{
		ToolTypeCode: toolTypeCode,
		Counterparty: "Proveedor",
		Quantity:     30,
		UnitPrice:    decimal.NewFromInt(1000),
		TotalAmount:  &total,
		FactoryID:    factoryID,
	})

	require.NoError(t, err)
	assert.True(t, total.Equal(res.Transaction.TotalAmount))
}

func TestRegisterInbound_ExplicitZeroTotalIsKept(t *testing.T) {
	f := newFixture(t)
	zero := decimal.Zero

	res, err := f.coord.RegisterInbound(context.Background(), inventory.InboundInput{
		ToolTypeCode: toolTypeCode,
		Counterparty: "Proveedor (muestra sin cargo)",
		Quantity:     3,
		UnitPrice:    decimal.NewFromInt(1000),
		TotalAmount:  &zero,
		FactoryID:    factoryID,
	})

	require.NoError(t, err)
	assert.True(t, res.Transaction.TotalAmount.IsZero(), "un total 0 explícito no se recalcula")
	stored, err := f.mem.Transactions().GetByID(context.Background(), res.Transaction.ID)
	require.NoError(t, err)
	assert.True(t, stored.TotalAmount.IsZero())
}

func TestRegisterInbound_Validation(t *testing.T) {
	cases := []struct {
		name string
		in   inventory.InboundInput
	}{
		{"cantidad cero", inventory.InboundInput{ToolTypeCode: toolTypeCode, Counterparty: "P", Quantity: 0}},
		{"precio negativo", inventory.InboundInput{ToolTypeCode: toolTypeCode, Counterparty: "P", Quantity: 1, UnitPrice: decimal.NewFromInt(-1)}},
		{"sin proveedor", inventory.InboundInput{ToolTypeCode: toolTypeCode, Counterparty: "  ", Quantity: 1}},
		{"sin herramienta", inventory.InboundInput{Counterparty: "P", Quantity: 1}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			_, err := f.coord.RegisterInbound(context.Background(), tc.in)
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrValidation)
		})
	}
}

func TestRegisterInbound_UnknownToolType(t *testing.T) {
	f := newFixture(t)

	_, err := f.coord.RegisterInbound(context.Background(), inventory.InboundInput{
		ToolTypeCode: "NO-EXISTE", Counterparty: "P", Quantity: 1,
	})

	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Equal(t, []string{"not_found"}, f.observer.aborted)
}

// Escenario B: stock 10, despacho de 15 → rechazado sin tocar ledger ni agregado.
func TestRegisterOutbound_InsufficientStock(t *testing.T) {
	f := newFixture(t)
	f.seedStock(t, 10)

	_, err := f.coord.RegisterOutbound(context.Background(), inventory.OutboundInput{
		ToolTypeCode: toolTypeCode, Quantity: 15, Purpose: "uso", FactoryID: factoryID,
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)
	var ins *domain.InsufficientStockError
	require.True(t, errors.As(err, &ins))
	assert.Equal(t, 10, ins.Current)
	assert.Equal(t, 15, ins.Requested)
	assert.Contains(t, err.Error(), "stock actual 10")

	assert.Equal(t, 10, f.aggregate(t).CurrentStock)
	assert.Equal(t, 1, f.ledgerCount(t))
	f.assertInvariant(t)
}

// Escenario C: stock 20, despacho de 5 a C007 posición 3 → stock 15 y registro de historial.
func TestRegisterOutbound_WithEquipmentLinksHistory(t *testing.T) {
	f := newFixture(t)
	f.seedStock(t, 20)

	res, err := f.coord.RegisterOutbound(context.Background(), inventory.OutboundInput{
		ToolTypeCode:    toolTypeCode,
		EquipmentNumber: "C007",
		ToolPosition:    intPtr(3),
		Quantity:        5,
		Purpose:         "replace",
		FactoryID:       factoryID,
		ProcessedBy:     "u-2",
	})

	require.NoError(t, err)
	assert.Equal(t, 15, res.Aggregate.CurrentStock)
	assert.Equal(t, entity.TransactionTypeOutbound, res.Transaction.Type)
	assert.Equal(t, 5, res.Transaction.Quantity)
	assert.Equal(t, equipmentID, res.Transaction.EquipmentID)
	assert.Equal(t, "C007", res.Transaction.EquipmentReference)
	assert.True(t, decimal.NewFromInt(5000).Equal(res.Transaction.TotalAmount), "precio unitario del catálogo")

	require.NotNil(t, res.ToolChange)
	assert.Equal(t, 3, res.ToolChange.ToolPosition)
	assert.Equal(t, entity.ChangeReasonScheduledReplacement, res.ToolChange.ChangeReason)
	assert.Equal(t, "u-2", res.ToolChange.ChangedBy)
	assert.Len(t, f.toolChanges(t, equipmentID), 1)
	f.assertInvariant(t)
}

func TestRegisterOutbound_WithoutEquipmentHasNoHistory(t *testing.T) {
	f := newFixture(t)
	f.seedStock(t, 20)

	res, err := f.coord.RegisterOutbound(context.Background(), inventory.OutboundInput{
		ToolTypeCode: toolTypeCode, Quantity: 5, Purpose: "reserva", FactoryID: factoryID,
	})

	require.NoError(t, err)
	assert.Nil(t, res.ToolChange)
	assert.Empty(t, f.toolChanges(t, equipmentID))
}

func TestRegisterOutbound_EquipmentPrefixFallback(t *testing.T) {
	f := newFixture(t)
	f.seedStock(t, 20)

	res, err := f.coord.RegisterOutbound(context.Background(), inventory.OutboundInput{
		ToolTypeCode:    toolTypeCode,
		EquipmentNumber: "C012",
		ToolPosition:    intPtr(1),
		Quantity:        1,
		Purpose:         "uso",
		FactoryID:       factoryID,
	})

	require.NoError(t, err)
	assert.Equal(t, "33333333-3333-3333-3333-333333333333", res.Transaction.EquipmentID)
	assert.Equal(t, "C012", res.Transaction.EquipmentReference)
	require.NotNil(t, res.ToolChange)
	assert.Equal(t, entity.ChangeReasonDispensed, res.ToolChange.ChangeReason)
}

func TestRegisterOutbound_UnknownEquipment(t *testing.T) {
	f := newFixture(t)
	f.seedStock(t, 20)

	_, err := f.coord.RegisterOutbound(context.Background(), inventory.OutboundInput{
		ToolTypeCode: toolTypeCode, EquipmentNumber: "X999", ToolPosition: intPtr(1),
		Quantity: 1, Purpose: "uso", FactoryID: factoryID,
	})

	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Equal(t, 20, f.aggregate(t).CurrentStock)
	assert.Equal(t, 1, f.ledgerCount(t))
}

func TestRegisterOutbound_NoAggregateForFactory(t *testing.T) {
	f := newFixture(t)

	_, err := f.coord.RegisterOutbound(context.Background(), inventory.OutboundInput{
		ToolTypeCode: toolTypeCode, Quantity: 1, Purpose: "uso", FactoryID: "F-otra",
	})

	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRegisterOutbound_InvalidPosition(t *testing.T) {
	f := newFixture(t)

	_, err := f.coord.RegisterOutbound(context.Background(), inventory.OutboundInput{
		ToolTypeCode: toolTypeCode, ToolPosition: intPtr(0), Quantity: 1, FactoryID: factoryID,
	})

	assert.ErrorIs(t, err, domain.ErrValidation)
}

// El historial es best-effort: su fallo no revierte el despacho.
func TestRegisterOutbound_HistoryFailureKeepsMovement(t *testing.T) {
	f := newFixture(t)
	f.seedStock(t, 20)
	f.history.failCreate = true

	res, err := f.coord.RegisterOutbound(context.Background(), inventory.OutboundInput{
		ToolTypeCode: toolTypeCode, EquipmentNumber: "C007", ToolPosition: intPtr(2),
		Quantity: 4, Purpose: "uso", FactoryID: factoryID,
	})

	require.NoError(t, err)
	assert.Nil(t, res.ToolChange)
	assert.Equal(t, 16, f.aggregate(t).CurrentStock)
	assert.Equal(t, 1, f.observer.historyFails)
	f.assertInvariant(t)
}

// Compensación: el ajuste del agregado falla después del append → la entrada se elimina.
func TestRegisterOutbound_CompensatesWhenAdjustFails(t *testing.T) {
	f := newFixture(t)
	f.seedStock(t, 20)
	before := f.ledgerCount(t)
	f.aggregates.failNext(1)

	_, err := f.coord.RegisterOutbound(context.Background(), inventory.OutboundInput{
		ToolTypeCode: toolTypeCode, Quantity: 5, Purpose: "uso", FactoryID: factoryID,
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrPersistence)
	assert.Equal(t, before, f.ledgerCount(t))
	assert.Equal(t, 20, f.aggregate(t).CurrentStock)
	assert.Equal(t, []string{inventory.StageAppending}, f.observer.compensations)
	f.assertInvariant(t)
}

func TestRegisterInbound_CompensatesWhenAdjustFails(t *testing.T) {
	f := newFixture(t)
	f.seedStock(t, 10)
	f.aggregates.failNext(1)

	_, err := f.coord.RegisterInbound(context.Background(), inventory.InboundInput{
		ToolTypeCode: toolTypeCode, Counterparty: "P", Quantity: 5,
		UnitPrice: decimal.NewFromInt(1000), FactoryID: factoryID,
	})

	require.Error(t, err)
	assert.Equal(t, 1, f.ledgerCount(t))
	assert.Equal(t, 10, f.aggregate(t).CurrentStock)
	f.assertInvariant(t)
}

// El ajuste falla con el borrado del ledger también roto: la transacción se descarta entera y
// no queda entrada huérfana.
func TestRegisterInbound_RollbackLeavesNoOrphanEntry(t *testing.T) {
	f := newFixture(t)
	f.seedStock(t, 10)
	f.aggregates.failNext(1)
	f.ledger.failDelete = true

	_, err := f.coord.RegisterInbound(context.Background(), inventory.InboundInput{
		ToolTypeCode: toolTypeCode, Counterparty: "P", Quantity: 5,
		UnitPrice: decimal.NewFromInt(1000), FactoryID: factoryID,
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrPersistence)
	assert.Equal(t, 1, f.ledgerCount(t))
	assert.Equal(t, []string{inventory.StageAppending}, f.observer.compensations)
	f.assertInvariant(t)
}

// Escenario D: borrar una recepción de 30 cuando sólo quedan 10 → rechazado.
func TestDeleteInbound_RejectedWhenStockWouldGoNegative(t *testing.T) {
	f := newFixture(t)
	inbound := f.seedStock(t, 30)
	_, err := f.coord.RegisterOutbound(context.Background(), inventory.OutboundInput{
		ToolTypeCode: toolTypeCode, Quantity: 20, Purpose: "uso", FactoryID: factoryID,
	})
	require.NoError(t, err)

	_, err = f.coord.DeleteInbound(context.Background(), inbound.Transaction.ID)

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)
	assert.NotErrorIs(t, err, domain.ErrNegativeStock, "la guarda interna no debe salir del coordinador")
	assert.Equal(t, 10, f.aggregate(t).CurrentStock)
	assert.Equal(t, 2, f.ledgerCount(t))
	f.assertInvariant(t)
}

func TestDeleteInbound_RevertsStock(t *testing.T) {
	f := newFixture(t)
	f.seedStock(t, 10)
	second := f.seedStock(t, 5)

	res, err := f.coord.DeleteInbound(context.Background(), second.Transaction.ID)

	require.NoError(t, err)
	assert.Equal(t, 10, res.Aggregate.CurrentStock)
	assert.Equal(t, 1, f.ledgerCount(t))
	f.assertInvariant(t)
}

func TestDeleteInbound_NotFoundOrWrongType(t *testing.T) {
	f := newFixture(t)
	f.seedStock(t, 10)
	out, err := f.coord.RegisterOutbound(context.Background(), inventory.OutboundInput{
		ToolTypeCode: toolTypeCode, Quantity: 1, Purpose: "uso", FactoryID: factoryID,
	})
	require.NoError(t, err)

	_, err = f.coord.DeleteInbound(context.Background(), "no-existe")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = f.coord.DeleteInbound(context.Background(), out.Transaction.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDeleteInbound_CompensatesWhenLedgerDeleteFails(t *testing.T) {
	f := newFixture(t)
	f.seedStock(t, 10)
	second := f.seedStock(t, 5)
	f.ledger.failDelete = true

	_, err := f.coord.DeleteInbound(context.Background(), second.Transaction.ID)

	require.Error(t, err)
	assert.Equal(t, 15, f.aggregate(t).CurrentStock, "el delta revertido se vuelve a aplicar")
	assert.Equal(t, []string{inventory.StageAdjusting}, f.observer.compensations)
	f.assertInvariant(t)
}

func TestEditInbound_AppliesDelta(t *testing.T) {
	f := newFixture(t)
	res := f.seedStock(t, 10)

	edited, err := f.coord.EditInbound(context.Background(), res.Transaction.ID, inventory.InboundEdit{
		Quantity: 25, UnitPrice: decimal.NewFromInt(900), Counterparty: "Proveedor Dos",
	})

	require.NoError(t, err)
	assert.Equal(t, 25, edited.Aggregate.CurrentStock)
	assert.True(t, decimal.NewFromInt(22500).Equal(edited.Transaction.TotalAmount))
	assert.Equal(t, "Proveedor Dos", edited.Transaction.Counterparty)
	f.assertInvariant(t)
}

func TestEditInbound_RejectsNegativeResult(t *testing.T) {
	f := newFixture(t)
	res := f.seedStock(t, 10)
	_, err := f.coord.RegisterOutbound(context.Background(), inventory.OutboundInput{
		ToolTypeCode: toolTypeCode, Quantity: 8, Purpose: "uso", FactoryID: factoryID,
	})
	require.NoError(t, err)

	_, err = f.coord.EditInbound(context.Background(), res.Transaction.ID, inventory.InboundEdit{
		Quantity: 5, UnitPrice: decimal.NewFromInt(1000), Counterparty: "P",
	})

	assert.ErrorIs(t, err, domain.ErrInsufficientStock)
	assert.Equal(t, 2, f.aggregate(t).CurrentStock)
	f.assertInvariant(t)
}

func TestEditInbound_RestoresEntryWhenAdjustFails(t *testing.T) {
	f := newFixture(t)
	res := f.seedStock(t, 10)
	f.aggregates.failNext(1)

	_, err := f.coord.EditInbound(context.Background(), res.Transaction.ID, inventory.InboundEdit{
		Quantity: 40, UnitPrice: decimal.NewFromInt(1000), Counterparty: "P",
	})

	require.Error(t, err)
	stored, err := f.mem.Transactions().GetByID(context.Background(), res.Transaction.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, stored.Quantity)
	f.assertInvariant(t)
}

func TestEditOutbound_AppliesNegatedDeltaAndRelinksHistory(t *testing.T) {
	f := newFixture(t)
	f.seedStock(t, 30)
	out, err := f.coord.RegisterOutbound(context.Background(), inventory.OutboundInput{
		ToolTypeCode: toolTypeCode, EquipmentNumber: "C007", ToolPosition: intPtr(3),
		Quantity: 5, Purpose: "uso", FactoryID: factoryID,
	})
	require.NoError(t, err)

	edited, err := f.coord.EditOutbound(context.Background(), out.Transaction.ID, inventory.OutboundEdit{
		Quantity: 8, EquipmentNumber: "C007", ToolPosition: intPtr(4), Purpose: "replacement",
	})

	require.NoError(t, err)
	assert.Equal(t, 22, edited.Aggregate.CurrentStock)
	require.NotNil(t, edited.ToolChange)
	assert.Equal(t, 4, edited.ToolChange.ToolPosition)
	assert.Equal(t, entity.ChangeReasonScheduledReplacement, edited.ToolChange.ChangeReason)
	records := f.toolChanges(t, equipmentID)
	require.Len(t, records, 1, "el registro de la posición anterior se elimina")
	assert.Equal(t, 4, records[0].ToolPosition)
	f.assertInvariant(t)
}

func TestEditOutbound_QuantityOnlyKeepsMachineHistory(t *testing.T) {
	f := newFixture(t)
	f.seedStock(t, 30)
	out, err := f.coord.RegisterOutbound(context.Background(), inventory.OutboundInput{
		ToolTypeCode: toolTypeCode, EquipmentNumber: "C007", ToolPosition: intPtr(3),
		Quantity: 5, Purpose: "uso", FactoryID: factoryID,
	})
	require.NoError(t, err)

	edited, err := f.coord.EditOutbound(context.Background(), out.Transaction.ID, inventory.OutboundEdit{
		Quantity: 6, Purpose: "uso",
	})

	require.NoError(t, err)
	assert.Equal(t, 24, edited.Aggregate.CurrentStock)
	assert.Equal(t, equipmentID, edited.Transaction.EquipmentID)
	assert.Equal(t, "C007", edited.Transaction.EquipmentReference)
	require.NotNil(t, edited.Transaction.ToolPosition)
	assert.Equal(t, 3, *edited.Transaction.ToolPosition)
	assert.Nil(t, edited.ToolChange, "sin cambio de vínculo no se re-vincula")
	records := f.toolChanges(t, equipmentID)
	require.Len(t, records, 1)
	assert.Equal(t, out.ToolChange.ID, records[0].ID)
	f.assertInvariant(t)
}

func TestEditOutbound_PurposeChangeUpdatesChangeReason(t *testing.T) {
	f := newFixture(t)
	f.seedStock(t, 30)
	out, err := f.coord.RegisterOutbound(context.Background(), inventory.OutboundInput{
		ToolTypeCode: toolTypeCode, EquipmentNumber: "C007", ToolPosition: intPtr(3),
		Quantity: 5, Purpose: "uso", FactoryID: factoryID,
	})
	require.NoError(t, err)
	require.Equal(t, entity.ChangeReasonDispensed, out.ToolChange.ChangeReason)

	edited, err := f.coord.EditOutbound(context.Background(), out.Transaction.ID, inventory.OutboundEdit{
		Quantity: 5, Purpose: "replace",
	})

	require.NoError(t, err)
	require.NotNil(t, edited.ToolChange)
	assert.Equal(t, entity.ChangeReasonScheduledReplacement, edited.ToolChange.ChangeReason)
	records := f.toolChanges(t, equipmentID)
	require.Len(t, records, 1)
	assert.Equal(t, entity.ChangeReasonScheduledReplacement, records[0].ChangeReason)
	assert.Equal(t, 3, records[0].ToolPosition)
}

func TestEditOutbound_RejectsWhenStockInsufficient(t *testing.T) {
	f := newFixture(t)
	f.seedStock(t, 10)
	out, err := f.coord.RegisterOutbound(context.Background(), inventory.OutboundInput{
		ToolTypeCode: toolTypeCode, Quantity: 5, Purpose: "uso", FactoryID: factoryID,
	})
	require.NoError(t, err)

	_, err = f.coord.EditOutbound(context.Background(), out.Transaction.ID, inventory.OutboundEdit{Quantity: 20, Purpose: "uso"})

	assert.ErrorIs(t, err, domain.ErrInsufficientStock)
	assert.Equal(t, 5, f.aggregate(t).CurrentStock)
	f.assertInvariant(t)
}

func TestDeleteOutbound_RestoresStockAndRemovesHistory(t *testing.T) {
	f := newFixture(t)
	f.seedStock(t, 20)
	out, err := f.coord.RegisterOutbound(context.Background(), inventory.OutboundInput{
		ToolTypeCode: toolTypeCode, EquipmentNumber: "C007", ToolPosition: intPtr(3),
		Quantity: 5, Purpose: "uso", FactoryID: factoryID,
	})
	require.NoError(t, err)

	res, err := f.coord.DeleteOutbound(context.Background(), out.Transaction.ID)

	require.NoError(t, err)
	assert.Equal(t, 20, res.Aggregate.CurrentStock)
	assert.False(t, res.NeedsReview)
	assert.True(t, res.HistoryRemoved)
	assert.Empty(t, f.toolChanges(t, equipmentID))
	f.assertInvariant(t)
}

// Un registro fuera de la ventana de correlación no se borra (historial huérfano tolerado).
func TestDeleteOutbound_KeepsHistoryOutsideWindow(t *testing.T) {
	f := newFixture(t)
	f.seedStock(t, 20)
	out, err := f.coord.RegisterOutbound(context.Background(), inventory.OutboundInput{
		ToolTypeCode: toolTypeCode, EquipmentNumber: "C007", ToolPosition: intPtr(3),
		Quantity: 5, Purpose: "uso", FactoryID: factoryID,
	})
	require.NoError(t, err)
	require.NotNil(t, out.ToolChange)

	moved := *out.ToolChange
	moved.ChangeDate = moved.ChangeDate.Add(-time.Hour)
	_, err = f.mem.ToolChanges().Delete(context.Background(), moved.ID)
	require.NoError(t, err)
	require.NoError(t, f.mem.ToolChanges().Create(context.Background(), &moved))

	res, err := f.coord.DeleteOutbound(context.Background(), out.Transaction.ID)

	require.NoError(t, err)
	assert.False(t, res.HistoryRemoved)
	assert.Len(t, f.toolChanges(t, equipmentID), 1)
}

func TestDeleteOutbound_FlagsReviewAboveMax(t *testing.T) {
	f := newFixture(t)
	f.seedStock(t, 50)
	out, err := f.coord.RegisterOutbound(context.Background(), inventory.OutboundInput{
		ToolTypeCode: toolTypeCode, Quantity: 10, Purpose: "uso", FactoryID: factoryID,
	})
	require.NoError(t, err)
	f.seedStock(t, 10) // vuelve a 50

	res, err := f.coord.DeleteOutbound(context.Background(), out.Transaction.ID)

	require.NoError(t, err)
	assert.Equal(t, 60, res.Aggregate.CurrentStock)
	assert.True(t, res.NeedsReview, "60 supera max_stock=50")
	f.assertInvariant(t)
}

func TestDeleteOutbound_RecreatesMissingAggregate(t *testing.T) {
	f := newFixture(t)
	f.seedStock(t, 20)
	out, err := f.coord.RegisterOutbound(context.Background(), inventory.OutboundInput{
		ToolTypeCode: toolTypeCode, Quantity: 5, Purpose: "uso", FactoryID: factoryID,
	})
	require.NoError(t, err)
	f.mem.Aggregates().Remove(out.Transaction.AggregateID)

	res, err := f.coord.DeleteOutbound(context.Background(), out.Transaction.ID)

	require.NoError(t, err)
	assert.True(t, res.NeedsReview)
	assert.Equal(t, 5, res.Aggregate.CurrentStock)
	assert.NotEqual(t, out.Transaction.AggregateID, res.Aggregate.ID)
}

// Dos despachos concurrentes de Q contra stock Q: exactamente uno gana.
func TestRegisterOutbound_ConcurrentRequestsOnlyOneSucceeds(t *testing.T) {
	for i := 0; i < 20; i++ {
		f := newFixture(t)
		f.seedStock(t, 10)

		var wg sync.WaitGroup
		errs := make([]error, 2)
		start := make(chan struct{})
		for g := 0; g < 2; g++ {
			wg.Add(1)
			go func(g int) {
				defer wg.Done()
				<-start
				_, errs[g] = f.coord.RegisterOutbound(context.Background(), inventory.OutboundInput{
					ToolTypeCode: toolTypeCode, Quantity: 10, Purpose: "uso", FactoryID: factoryID,
				})
			}(g)
		}
		close(start)
		wg.Wait()

		succeeded := 0
		for _, err := range errs {
			if err == nil {
				succeeded++
				continue
			}
			assert.ErrorIs(t, err, domain.ErrInsufficientStock)
		}
		require.Equal(t, 1, succeeded)
		assert.Equal(t, 0, f.aggregate(t).CurrentStock)
		assert.Equal(t, 2, f.ledgerCount(t), "la recepción y un solo despacho")
		f.assertInvariant(t)
	}
}

// Secuencia mixta: el invariante se mantiene tras cada operación exitosa.
func TestInvariantHoldsAcrossMixedSequence(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedStock(t, 40)
	f.assertInvariant(t)

	out1, err := f.coord.RegisterOutbound(ctx, inventory.OutboundInput{ToolTypeCode: toolTypeCode, Quantity: 15, Purpose: "uso", FactoryID: factoryID})
	require.NoError(t, err)
	f.assertInvariant(t)

	in2 := f.seedStock(t, 7)
	f.assertInvariant(t)

	_, err = f.coord.EditOutbound(ctx, out1.Transaction.ID, inventory.OutboundEdit{Quantity: 12, Purpose: "uso"})
	require.NoError(t, err)
	f.assertInvariant(t)

	_, err = f.coord.RegisterOutbound(ctx, inventory.OutboundInput{ToolTypeCode: toolTypeCode, Quantity: 100, Purpose: "uso", FactoryID: factoryID})
	require.Error(t, err)
	f.assertInvariant(t)

	_, err = f.coord.DeleteInbound(ctx, in2.Transaction.ID)
	require.NoError(t, err)
	f.assertInvariant(t)

	_, err = f.coord.DeleteOutbound(ctx, out1.Transaction.ID)
	require.NoError(t, err)
	f.assertInvariant(t)
	assert.Equal(t, 40, f.aggregate(t).CurrentStock)
}

func TestSetBounds(t *testing.T) {
	f := newFixture(t)

	agg, err := f.coord.SetBounds(context.Background(), toolTypeCode, factoryID, 10, 80)
	require.NoError(t, err)
	assert.Equal(t, 10, agg.MinStock)
	assert.Equal(t, 80, agg.MaxStock)

	_, err = f.coord.SetBounds(context.Background(), toolTypeCode, factoryID, 10, 5)
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = f.coord.SetBounds(context.Background(), "NO-EXISTE", factoryID, 1, 5)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestListTransactions_FiltersByTypeAndDate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedStock(t, 20)
	old := time.Now().Add(-48 * time.Hour)
	_, err := f.coord.RegisterOutbound(ctx, inventory.OutboundInput{
		ToolTypeCode: toolTypeCode, Quantity: 2, Purpose: "uso", FactoryID: factoryID, ProcessedAt: &old,
	})
	require.NoError(t, err)
	_, err = f.coord.RegisterOutbound(ctx, inventory.OutboundInput{
		ToolTypeCode: toolTypeCode, Quantity: 3, Purpose: "uso", FactoryID: factoryID,
	})
	require.NoError(t, err)

	from := time.Now().Add(-time.Hour)
	list, err := f.coord.ListTransactions(ctx, toolTypeCode, repositoryFilter(entity.TransactionTypeOutbound, &from))
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, 3, list[0].Quantity)

	all, err := f.coord.ListTransactions(ctx, "", repositoryFilter(entity.TransactionTypeOutbound, nil))
	require.NoError(t, err)
	assert.Len(t, all, 2)

	_, err = f.coord.ListTransactions(ctx, "NO-EXISTE", repositoryFilter("", nil))
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestToolChangesForEquipment_ByIDOrNumber(t *testing.T) {
	f := newFixture(t)
	f.seedStock(t, 20)
	_, err := f.coord.RegisterOutbound(context.Background(), inventory.OutboundInput{
		ToolTypeCode: toolTypeCode, EquipmentNumber: "C007", ToolPosition: intPtr(1),
		Quantity: 1, Purpose: "uso", FactoryID: factoryID,
	})
	require.NoError(t, err)

	byID, err := f.coord.ToolChangesForEquipment(context.Background(), equipmentID, 10)
	require.NoError(t, err)
	assert.Len(t, byID, 1)

	byNumber, err := f.coord.ToolChangesForEquipment(context.Background(), "C007", 10)
	require.NoError(t, err)
	assert.Len(t, byNumber, 1)

	_, err = f.coord.ToolChangesForEquipment(context.Background(), "Z404", 10)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func repositoryFilter(txType string, from *time.Time) repository.TransactionFilter {
	return repository.TransactionFilter{Type: txType, From: from}
}
