package memory

import (
	"context"
	"sort"
	"time"

	"github.com/jhoicas/endmill-ledger/internal/domain/entity"
	"github.com/jhoicas/endmill-ledger/internal/domain/inventory"
	"github.com/jhoicas/endmill-ledger/internal/domain/repository"
)

var _ repository.StockAggregateRepository = (*AggregateRepo)(nil)

// AggregateRepo agregados de stock en memoria.
type AggregateRepo struct {
	s *Store
}

func (r *AggregateRepo) Get(_ context.Context, key entity.ItemKey) (*entity.StockAggregate, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if agg := r.findLocked(key); agg != nil {
		cp := *agg
		return &cp, nil
	}
	return nil, nil
}

func (r *AggregateRepo) GetByID(_ context.Context, id string) (*entity.StockAggregate, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	agg, ok := r.s.aggregates[id]
	if !ok {
		return nil, nil
	}
	cp := *agg
	return &cp, nil
}

func (r *AggregateRepo) GetForUpdate(ctx context.Context, id string) (*entity.StockAggregate, error) {
	return r.GetByID(ctx, id)
}

func (r *AggregateRepo) CreateIfAbsent(_ context.Context, agg *entity.StockAggregate) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.findLocked(agg.Key()) != nil {
		return nil
	}
	cp := *agg
	r.s.aggregates[agg.ID] = &cp
	return nil
}

// ApplyDelta equivalente en memoria del UPDATE condicional.
func (r *AggregateRepo) ApplyDelta(_ context.Context, id string, delta int, th inventory.Thresholds) (*entity.StockAggregate, bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	agg, ok := r.s.aggregates[id]
	if !ok || agg.CurrentStock+delta < 0 {
		return nil, false, nil
	}
	agg.CurrentStock += delta
	agg.Status = th.Classify(agg.CurrentStock)
	agg.LastUpdated = time.Now()
	cp := *agg
	return &cp, true, nil
}

func (r *AggregateRepo) UpdateBounds(_ context.Context, id string, minStock, maxStock int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if agg, ok := r.s.aggregates[id]; ok {
		agg.MinStock = minStock
		agg.MaxStock = maxStock
		agg.LastUpdated = time.Now()
	}
	return nil
}

func (r *AggregateRepo) SetStock(_ context.Context, id string, currentStock int, status string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if agg, ok := r.s.aggregates[id]; ok {
		agg.CurrentStock = currentStock
		agg.Status = status
		agg.LastUpdated = time.Now()
	}
	return nil
}

func (r *AggregateRepo) List(_ context.Context, f repository.AggregateFilter) ([]*entity.StockAggregate, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var list []*entity.StockAggregate
	for _, agg := range r.s.aggregates {
		if f.FactoryID != "" && agg.FactoryID != f.FactoryID {
			continue
		}
		if f.Status != "" && agg.Status != f.Status {
			continue
		}
		cp := *agg
		list = append(list, &cp)
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].ToolTypeID != list[j].ToolTypeID {
			return list[i].ToolTypeID < list[j].ToolTypeID
		}
		return list[i].FactoryID < list[j].FactoryID
	})
	return page(list, f.Limit, f.Offset), nil
}

// Put escribe el agregado tal cual (para preparar escenarios de deriva en tests).
func (r *AggregateRepo) Put(agg entity.StockAggregate) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.aggregates[agg.ID] = &agg
}

// Remove elimina un agregado.
func (r *AggregateRepo) Remove(id string) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.aggregates, id)
}

func (r *AggregateRepo) findLocked(key entity.ItemKey) *entity.StockAggregate {
	for _, agg := range r.s.aggregates {
		if agg.ToolTypeID == key.ToolTypeID && agg.FactoryID == key.FactoryID {
			return agg
		}
	}
	return nil
}

func page[T any](list []T, limit, offset int) []T {
	if offset >= len(list) {
		return []T{}
	}
	list = list[offset:]
	if limit > 0 && limit < len(list) {
		list = list[:limit]
	}
	return list
}
