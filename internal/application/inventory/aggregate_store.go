package inventory

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jhoicas/endmill-ledger/internal/domain"
	"github.com/jhoicas/endmill-ledger/internal/domain/entity"
	dominv "github.com/jhoicas/endmill-ledger/internal/domain/inventory"
	"github.com/jhoicas/endmill-ledger/internal/domain/repository"
)

// Bounds límites min/max de stock para un agregado.
type Bounds struct {
	Min int
	Max int
}

// StockAggregateStore es el único punto de entrada para leer, crear y mutar agregados de stock.
type StockAggregateStore struct {
	repo       repository.StockAggregateRepository
	thresholds dominv.Thresholds
}

// NewStockAggregateStore construye el store con los cortes de clasificación.
func NewStockAggregateStore(repo repository.StockAggregateRepository, thresholds dominv.Thresholds) *StockAggregateStore {
	return &StockAggregateStore{repo: repo, thresholds: thresholds}
}

// withRepo devuelve el store sobre otro repositorio (el de una transacción).
func (s *StockAggregateStore) withRepo(repo repository.StockAggregateRepository) *StockAggregateStore {
	return &StockAggregateStore{repo: repo, thresholds: s.thresholds}
}

// Thresholds devuelve los cortes de clasificación configurados.
func (s *StockAggregateStore) Thresholds() dominv.Thresholds {
	return s.thresholds
}

// FindOrCreate devuelve el agregado de la clave o lo crea con stock 0 y los límites dados.
// Si otra petición lo crea en paralelo, se devuelve el que quedó persistido.
func (s *StockAggregateStore) FindOrCreate(ctx context.Context, key entity.ItemKey, bounds Bounds) (*entity.StockAggregate, error) {
	agg, err := s.repo.Get(ctx, key)
	if err != nil {
		return nil, domain.Persistence("get aggregate", err)
	}
	if agg != nil {
		return agg, nil
	}
	agg = &entity.StockAggregate{
		ID:           uuid.New().String(),
		ToolTypeID:   key.ToolTypeID,
		FactoryID:    key.FactoryID,
		CurrentStock: 0,
		MinStock:     bounds.Min,
		MaxStock:     bounds.Max,
		Status:       s.thresholds.Classify(0),
		LastUpdated:  time.Now(),
	}
	if err := s.repo.CreateIfAbsent(ctx, agg); err != nil {
		return nil, domain.Persistence("create aggregate", err)
	}
	created, err := s.repo.Get(ctx, key)
	if err != nil {
		return nil, domain.Persistence("get aggregate", err)
	}
	if created == nil {
		return nil, domain.Persistence("create aggregate", domain.NotFoundf("agregado %s/%s", key.ToolTypeID, key.FactoryID))
	}
	return created, nil
}

// Find devuelve el agregado existente o ErrNotFound.
func (s *StockAggregateStore) Find(ctx context.Context, key entity.ItemKey) (*entity.StockAggregate, error) {
	agg, err := s.repo.Get(ctx, key)
	if err != nil {
		return nil, domain.Persistence("get aggregate", err)
	}
	if agg == nil {
		return nil, domain.NotFoundf("no hay stock registrado para la herramienta %s en la fábrica %q", key.ToolTypeID, key.FactoryID)
	}
	return agg, nil
}

// Get devuelve el agregado por ID o ErrNotFound.
func (s *StockAggregateStore) Get(ctx context.Context, id string) (*entity.StockAggregate, error) {
	agg, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, domain.Persistence("get aggregate", err)
	}
	if agg == nil {
		return nil, domain.NotFoundf("agregado %s", id)
	}
	return agg, nil
}

// ApplyDelta suma signedDelta al stock con una escritura condicional y reclasifica el estado.
// Si el resultado fuese negativo devuelve *domain.NegativeStockError sin modificar nada.
func (s *StockAggregateStore) ApplyDelta(ctx context.Context, aggregateID string, signedDelta int) (*entity.StockAggregate, error) {
	updated, applied, err := s.repo.ApplyDelta(ctx, aggregateID, signedDelta, s.thresholds)
	if err != nil {
		return nil, domain.Persistence("apply delta", err)
	}
	if applied {
		return updated, nil
	}
	current, err := s.Get(ctx, aggregateID)
	if err != nil {
		return nil, err
	}
	return nil, &domain.NegativeStockError{AggregateID: aggregateID, Current: current.CurrentStock, Delta: signedDelta}
}

// SetBounds actualiza min/max del agregado de la clave, creándolo si aún no existe.
func (s *StockAggregateStore) SetBounds(ctx context.Context, key entity.ItemKey, minStock, maxStock int) (*entity.StockAggregate, error) {
	if minStock < 0 || maxStock < 0 || minStock > maxStock {
		return nil, domain.Validationf("límites inválidos: min=%d max=%d", minStock, maxStock)
	}
	agg, err := s.FindOrCreate(ctx, key, Bounds{Min: minStock, Max: maxStock})
	if err != nil {
		return nil, err
	}
	if err := s.repo.UpdateBounds(ctx, agg.ID, minStock, maxStock); err != nil {
		return nil, domain.Persistence("update bounds", err)
	}
	agg.MinStock = minStock
	agg.MaxStock = maxStock
	return agg, nil
}

// List lista agregados con paginación.
func (s *StockAggregateStore) List(ctx context.Context, f repository.AggregateFilter) ([]*entity.StockAggregate, error) {
	list, err := s.repo.List(ctx, f)
	if err != nil {
		return nil, domain.Persistence("list aggregates", err)
	}
	return list, nil
}
