package inventory_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/endmill-ledger/internal/application/inventory"
	"github.com/jhoicas/endmill-ledger/internal/domain/entity"
	dominv "github.com/jhoicas/endmill-ledger/internal/domain/inventory"
	"github.com/jhoicas/endmill-ledger/internal/domain/repository"
	"github.com/jhoicas/endmill-ledger/internal/infrastructure/memory"
)

const (
	toolTypeID   = "11111111-1111-1111-1111-111111111111"
	toolTypeCode = "EM-10-4F"
	equipmentID  = "22222222-2222-2222-2222-222222222222"
	factoryID    = "F1"
)

var errInjected = errors.New("fallo inyectado")

// aggregateFaults controla los fallos de ApplyDelta dentro de la transacción del coordinador.
type aggregateFaults struct {
	mu          sync.Mutex
	failApply   int             // número de llamadas que fallan; -1 = siempre
	beforeApply func(id string) // se ejecuta antes de delegar, con la transacción abierta
}

func (f *aggregateFaults) failNext(n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failApply = n
}

func (f *aggregateFaults) onApply(hook func(id string)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.beforeApply = hook
}

// flakyAggregates envuelve el repositorio de agregados de una transacción.
type flakyAggregates struct {
	repository.StockAggregateRepository
	faults *aggregateFaults
}

func (f *flakyAggregates) ApplyDelta(ctx context.Context, id string, delta int, th dominv.Thresholds) (*entity.StockAggregate, bool, error) {
	f.faults.mu.Lock()
	fail := f.faults.failApply != 0
	if f.faults.failApply > 0 {
		f.faults.failApply--
	}
	hook := f.faults.beforeApply
	f.faults.mu.Unlock()
	if hook != nil {
		hook(id)
	}
	if fail {
		return nil, false, errInjected
	}
	return f.StockAggregateRepository.ApplyDelta(ctx, id, delta, th)
}

// ledgerFaults controla los fallos de Delete sobre el ledger de la transacción.
type ledgerFaults struct {
	failDelete bool
}

// flakyLedger envuelve el repositorio de movimientos de una transacción.
type flakyLedger struct {
	repository.StockTransactionRepository
	faults *ledgerFaults
}

func (f *flakyLedger) Delete(ctx context.Context, id string) (bool, error) {
	if f.faults.failDelete {
		return false, errInjected
	}
	return f.StockTransactionRepository.Delete(ctx, id)
}

// flakyTxRunner entrega al coordinador los repositorios de la transacción envueltos con fallos.
type flakyTxRunner struct {
	inner      inventory.TxRunner
	aggregates *aggregateFaults
	ledger     *ledgerFaults
}

func (r *flakyTxRunner) Run(ctx context.Context, fn func(
	aggRepo repository.StockAggregateRepository,
	txRepo repository.StockTransactionRepository,
) error) error {
	return r.inner.Run(ctx, func(aggRepo repository.StockAggregateRepository, txRepo repository.StockTransactionRepository) error {
		return fn(&flakyAggregates{StockAggregateRepository: aggRepo, faults: r.aggregates},
			&flakyLedger{StockTransactionRepository: txRepo, faults: r.ledger})
	})
}

// flakyHistory falla Create cuando failCreate está activo.
type flakyHistory struct {
	*memory.ToolChangeRepo
	failCreate bool
}

func (f *flakyHistory) Create(ctx context.Context, rec *entity.ToolChangeRecord) error {
	if f.failCreate {
		return errInjected
	}
	return f.ToolChangeRepo.Create(ctx, rec)
}

// recordingObserver cuenta los hitos del coordinador.
type recordingObserver struct {
	mu            sync.Mutex
	committed     int
	aborted       []string
	compensations []string
	historyFails  int
	drifts        map[string]int
}

func (o *recordingObserver) MovementCommitted(string, string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.committed++
}

func (o *recordingObserver) MovementAborted(_, _, reason string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.aborted = append(o.aborted, reason)
}

func (o *recordingObserver) Compensated(step string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.compensations = append(o.compensations, step)
}

func (o *recordingObserver) HistoryLinkFailed() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.historyFails++
}

func (o *recordingObserver) DriftCorrected(aggregateID string, drift int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.drifts == nil {
		o.drifts = map[string]int{}
	}
	o.drifts[aggregateID] += drift
}

type fixture struct {
	mem        *memory.Store
	aggregates *aggregateFaults
	ledger     *ledgerFaults
	history    *flakyHistory
	observer   *recordingObserver
	coord      *inventory.StockMovementCoordinator
	reconciler *inventory.Reconciler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	mem := memory.NewStore()
	mem.AddToolType(entity.ToolType{
		ID:        toolTypeID,
		Code:      toolTypeCode,
		Name:      "Fresa 10mm 4 filos",
		UnitPrice: decimal.NewFromInt(1000),
	})
	mem.AddEquipment(entity.Equipment{ID: equipmentID, EquipmentNumber: "C007", FactoryID: factoryID})
	mem.AddEquipment(entity.Equipment{ID: "33333333-3333-3333-3333-333333333333", EquipmentNumber: "012", FactoryID: factoryID})

	f := &fixture{
		mem:        mem,
		aggregates: &aggregateFaults{},
		ledger:     &ledgerFaults{},
		history:    &flakyHistory{ToolChangeRepo: mem.ToolChanges()},
		observer:   &recordingObserver{},
	}
	store := inventory.NewStockAggregateStore(mem.Aggregates(), dominv.DefaultThresholds())
	txRunner := memory.NewTxRunner(mem)
	f.coord = inventory.NewStockMovementCoordinator(inventory.CoordinatorDeps{
		TxRunner:      &flakyTxRunner{inner: txRunner, aggregates: f.aggregates, ledger: f.ledger},
		ToolTypes:     mem.ToolTypes(),
		Equipment:     mem.Equipment(),
		Store:         store,
		Ledger:        inventory.NewTransactionLedger(mem.Transactions()),
		History:       inventory.NewToolChangeRecorder(f.history, 5*time.Minute),
		DefaultBounds: inventory.Bounds{Min: 5, Max: 50},
		Logger:        zerolog.Nop(),
		Observer:      f.observer,
	})
	f.reconciler = inventory.NewReconciler(txRunner, store, zerolog.Nop(), f.observer)
	return f
}

// seedStock deja el agregado de (toolType, factory) en qty mediante una recepción.
func (f *fixture) seedStock(t *testing.T, qty int) *inventory.MovementResult {
	t.Helper()
	res, err := f.coord.RegisterInbound(context.Background(), inventory.InboundInput{
		ToolTypeCode: toolTypeCode,
		Counterparty: "Proveedor Uno",
		Quantity:     qty,
		UnitPrice:    decimal.NewFromInt(1000),
		FactoryID:    factoryID,
		ProcessedBy:  "u-1",
	})
	require.NoError(t, err)
	return res
}

func (f *fixture) aggregate(t *testing.T) *entity.StockAggregate {
	t.Helper()
	agg, err := f.mem.Aggregates().Get(context.Background(), entity.ItemKey{ToolTypeID: toolTypeID, FactoryID: factoryID})
	require.NoError(t, err)
	require.NotNil(t, agg)
	return agg
}

// assertInvariant: current_stock == suma con signo del ledger.
func (f *fixture) assertInvariant(t *testing.T) {
	t.Helper()
	agg := f.aggregate(t)
	sum, err := f.mem.Transactions().SignedSum(context.Background(), agg.ID)
	require.NoError(t, err)
	require.Equal(t, sum, agg.CurrentStock, "stock del agregado distinto a la suma del ledger")
}

func (f *fixture) ledgerCount(t *testing.T) int {
	t.Helper()
	return f.mem.Transactions().Count(f.aggregate(t).ID)
}

func (f *fixture) toolChanges(t *testing.T, eqID string) []*entity.ToolChangeRecord {
	t.Helper()
	list, err := f.mem.ToolChanges().ListByEquipment(context.Background(), eqID, 100)
	require.NoError(t, err)
	return list
}

func intPtr(v int) *int { return &v }

var (
	_ repository.StockAggregateRepository   = (*flakyAggregates)(nil)
	_ repository.StockTransactionRepository = (*flakyLedger)(nil)
	_ inventory.TxRunner                    = (*flakyTxRunner)(nil)
)
