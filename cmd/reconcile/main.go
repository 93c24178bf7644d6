// Command reconcile recalcula el stock de cada agregado desde el ledger y corrige la deriva.
// Pensado para cron: termina con código 0 aunque haya correcciones, 1 ante errores.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/jhoicas/endmill-ledger/internal/application/inventory"
	dominv "github.com/jhoicas/endmill-ledger/internal/domain/inventory"
	"github.com/jhoicas/endmill-ledger/internal/infrastructure/postgres"
	"github.com/jhoicas/endmill-ledger/pkg/config"
	"github.com/jhoicas/endmill-ledger/pkg/logger"
)

func main() {
	factoryID := flag.String("factory", "", "limitar a una fábrica")
	aggregateID := flag.String("aggregate", "", "reconciliar un solo agregado por ID")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}
	log := logger.New(logger.Config{Env: cfg.App.Env, Level: cfg.App.LogLevel, Service: "reconcile"})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Error().Err(err).Msg("conexión a PostgreSQL")
		os.Exit(1)
	}
	defer pool.Close()

	thresholds := dominv.Thresholds{Sufficient: cfg.Stock.SufficientLevel, Low: cfg.Stock.LowLevel}
	store := inventory.NewStockAggregateStore(postgres.NewStockAggregateRepository(pool), thresholds)
	reconciler := inventory.NewReconciler(postgres.NewTxRunner(pool), store, log.Zerolog(), nil)

	if *aggregateID != "" {
		res, err := reconciler.ReconcileOne(ctx, *aggregateID)
		if err != nil {
			log.Error().Err(err).Str("aggregate_id", *aggregateID).Msg("reconciliación fallida")
			os.Exit(1)
		}
		log.Info().Str("aggregate_id", res.AggregateID).Int("before", res.Before).Int("after", res.After).Msg("agregado reconciliado")
		return
	}

	report, err := reconciler.ReconcileAll(ctx, *factoryID)
	if err != nil {
		log.Error().Err(err).Msg("reconciliación fallida")
		os.Exit(1)
	}
	for _, r := range report.Results {
		log.Info().
			Str("aggregate_id", r.AggregateID).
			Int("before", r.Before).
			Int("after", r.After).
			Int("drift", r.Drift).
			Bool("clamped", r.Clamped).
			Msg("corrección")
	}
	log.Info().Int("checked", report.Checked).Int("corrected", report.Corrected).Dur("took", report.FinishedAt.Sub(report.StartedAt)).Msg("listo")
}
