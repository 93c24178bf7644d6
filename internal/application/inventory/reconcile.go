package inventory

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/jhoicas/endmill-ledger/internal/domain"
	"github.com/jhoicas/endmill-ledger/internal/domain/repository"
	dominv "github.com/jhoicas/endmill-ledger/internal/domain/inventory"
)

const reconcilePageSize = 200

// ReconcileResult resultado de recalcular un agregado desde su ledger.
type ReconcileResult struct {
	AggregateID string `json:"aggregate_id"`
	Before      int    `json:"before"`
	After       int    `json:"after"`
	Drift       int    `json:"drift"`
	LedgerSum   int    `json:"ledger_sum"`
	// Clamped indica que la suma del ledger era negativa y se dejó el stock en 0.
	Clamped bool `json:"clamped"`
}

// ReconcileReport resumen de una pasada completa.
type ReconcileReport struct {
	StartedAt  time.Time         `json:"started_at"`
	FinishedAt time.Time         `json:"finished_at"`
	Checked    int               `json:"checked"`
	Corrected  int               `json:"corrected"`
	Results    []ReconcileResult `json:"results"`
}

// Reconciler recalcula current_stock como la suma con signo del ledger y corrige la deriva
// dejada por procesos interrumpidos entre el append y el ajuste del agregado.
type Reconciler struct {
	txRunner   TxRunner
	store      *StockAggregateStore
	thresholds dominv.Thresholds
	log        zerolog.Logger
	observer   MovementObserver
}

// NewReconciler construye el caso de uso de reconciliación.
func NewReconciler(txRunner TxRunner, store *StockAggregateStore, log zerolog.Logger, observer MovementObserver) *Reconciler {
	if observer == nil {
		observer = nopObserver{}
	}
	return &Reconciler{
		txRunner:   txRunner,
		store:      store,
		thresholds: store.Thresholds(),
		log:        log.With().Str("component", "reconciler").Logger(),
		observer:   observer,
	}
}

// ReconcileOne bloquea el agregado, suma su ledger y sobrescribe stock/estado si hay deriva.
// Es idempotente: una segunda ejecución no encuentra deriva.
func (r *Reconciler) ReconcileOne(ctx context.Context, aggregateID string) (*ReconcileResult, error) {
	var res *ReconcileResult
	err := r.txRunner.Run(ctx, func(aggRepo repository.StockAggregateRepository, txRepo repository.StockTransactionRepository) error {
		agg, err := aggRepo.GetForUpdate(ctx, aggregateID)
		if err != nil {
			return domain.Persistence("lock aggregate", err)
		}
		if agg == nil {
			return domain.NotFoundf("agregado %s", aggregateID)
		}
		sum, err := txRepo.SignedSum(ctx, aggregateID)
		if err != nil {
			return domain.Persistence("sum ledger", err)
		}
		target := sum
		clamped := false
		if target < 0 {
			target = 0
			clamped = true
		}
		status := r.thresholds.Classify(target)
		res = &ReconcileResult{
			AggregateID: aggregateID,
			Before:      agg.CurrentStock,
			After:       target,
			Drift:       target - agg.CurrentStock,
			LedgerSum:   sum,
			Clamped:     clamped,
		}
		if target == agg.CurrentStock && status == agg.Status {
			return nil
		}
		if err := aggRepo.SetStock(ctx, aggregateID, target, status); err != nil {
			return domain.Persistence("set stock", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if res.Drift != 0 {
		r.observer.DriftCorrected(aggregateID, res.Drift)
		r.log.Warn().
			Str("aggregate_id", aggregateID).
			Int("before", res.Before).
			Int("after", res.After).
			Bool("clamped", res.Clamped).
			Msg("deriva corregida")
	}
	return res, nil
}

// ReconcileAll recorre todos los agregados (cada uno en su propia transacción).
// Si factoryID no es vacío se limita a esa fábrica.
func (r *Reconciler) ReconcileAll(ctx context.Context, factoryID string) (*ReconcileReport, error) {
	report := &ReconcileReport{StartedAt: time.Now(), Results: []ReconcileResult{}}
	for offset := 0; ; offset += reconcilePageSize {
		page, err := r.store.List(ctx, repository.AggregateFilter{FactoryID: factoryID, Limit: reconcilePageSize, Offset: offset})
		if err != nil {
			return nil, err
		}
		for _, agg := range page {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			res, err := r.ReconcileOne(ctx, agg.ID)
			if err != nil {
				return nil, err
			}
			report.Checked++
			if res.Drift != 0 || res.Clamped {
				report.Corrected++
				report.Results = append(report.Results, *res)
			}
		}
		if len(page) < reconcilePageSize {
			break
		}
	}
	report.FinishedAt = time.Now()
	r.log.Info().Int("checked", report.Checked).Int("corrected", report.Corrected).Msg("reconciliación terminada")
	return report, nil
}
