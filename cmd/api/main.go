package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jhoicas/endmill-ledger/internal/application/inventory"
	"github.com/jhoicas/endmill-ledger/internal/domain/repository"
	dominv "github.com/jhoicas/endmill-ledger/internal/domain/inventory"
	"github.com/jhoicas/endmill-ledger/internal/infrastructure/memory"
	"github.com/jhoicas/endmill-ledger/internal/infrastructure/metrics"
	"github.com/jhoicas/endmill-ledger/internal/infrastructure/postgres"
	httpRouter "github.com/jhoicas/endmill-ledger/internal/interfaces/http"
	"github.com/jhoicas/endmill-ledger/pkg/config"
	"github.com/jhoicas/endmill-ledger/pkg/logger"
)

// adapters agrupa los puertos según STORAGE_DRIVER.
type adapters struct {
	toolTypes   repository.ToolTypeRepository
	equipment   repository.EquipmentRepository
	aggregates  repository.StockAggregateRepository
	ledger      repository.StockTransactionRepository
	toolChanges repository.ToolChangeRepository
	txRunner    inventory.TxRunner
	close       func()
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:     cfg.App.Env,
		Level:   cfg.App.LogLevel,
		Service: cfg.App.Name,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Str("storage", cfg.Storage.Driver).
		Msg("iniciando aplicación")

	ctx := context.Background()
	ad, err := buildAdapters(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("inicializar almacenamiento")
	}
	defer ad.close()

	m := metrics.New(metrics.DefaultConfig())
	thresholds := dominv.Thresholds{Sufficient: cfg.Stock.SufficientLevel, Low: cfg.Stock.LowLevel}
	store := inventory.NewStockAggregateStore(ad.aggregates, thresholds)
	coordinator := inventory.NewStockMovementCoordinator(inventory.CoordinatorDeps{
		TxRunner:      ad.txRunner,
		ToolTypes:     ad.toolTypes,
		Equipment:     ad.equipment,
		Store:         store,
		Ledger:        inventory.NewTransactionLedger(ad.ledger),
		History:       inventory.NewToolChangeRecorder(ad.toolChanges, cfg.Stock.ToolChangeWindow),
		DefaultBounds: inventory.Bounds{Min: cfg.Stock.DefaultMin, Max: cfg.Stock.DefaultMax},
		Logger:        log.Zerolog(),
		Observer:      m,
	})
	reconciler := inventory.NewReconciler(ad.txRunner, store, log.Zerolog(), m)

	app := httpRouter.NewApp(httpRouter.AppConfig{
		Name:        cfg.App.Name,
		SwaggerPath: cfg.HTTP.SwaggerPath,
		Logger:      log.Zerolog(),
		Metrics:     m,
	})
	httpRouter.Router(app, httpRouter.RouterDeps{
		Coordinator: coordinator,
		Reconciler:  reconciler,
		Logger:      log.Zerolog(),
		JWTSecret:   cfg.JWT.Secret,
		AdminRoles:  []string{"admin", "supervisor"},
	})
	if !cfg.JWT.Enabled() {
		log.Warn().Msg("JWT_SECRET vacío: las rutas de inventario no exigen token")
	}

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}

	log.Info().Msg("aplicación detenida")
}

func buildAdapters(ctx context.Context, cfg *config.Config, log *logger.Logger) (*adapters, error) {
	if cfg.Storage.Driver == config.StorageDriverMemory {
		s := memory.NewStore()
		if cfg.Storage.CatalogSeedPath != "" {
			tt, eq, err := s.LoadCatalogFile(cfg.Storage.CatalogSeedPath)
			if err != nil {
				return nil, err
			}
			log.Info().Int("tool_types", tt).Int("equipment", eq).Msg("catálogo precargado")
		}
		return &adapters{
			toolTypes:   s.ToolTypes(),
			equipment:   s.Equipment(),
			aggregates:  s.Aggregates(),
			ledger:      s.Transactions(),
			toolChanges: s.ToolChanges(),
			txRunner:    memory.NewTxRunner(s),
			close:       func() {},
		}, nil
	}

	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		return nil, err
	}
	return &adapters{
		toolTypes:   postgres.NewToolTypeRepository(pool),
		equipment:   postgres.NewEquipmentRepository(pool),
		aggregates:  postgres.NewStockAggregateRepository(pool),
		ledger:      postgres.NewStockTransactionRepository(pool),
		toolChanges: postgres.NewToolChangeRepository(pool),
		txRunner:    postgres.NewTxRunner(pool),
		close:       pool.Close,
	}, nil
}
