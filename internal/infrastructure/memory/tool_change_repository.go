package memory

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/jhoicas/endmill-ledger/internal/domain/entity"
	"github.com/jhoicas/endmill-ledger/internal/domain/repository"
)

var errRowNotFound = errors.New("memory: fila no encontrada")

var _ repository.ToolChangeRepository = (*ToolChangeRepo)(nil)

// ToolChangeRepo historial de cambios en memoria.
type ToolChangeRepo struct {
	s *Store
}

func (r *ToolChangeRepo) Create(_ context.Context, rec *entity.ToolChangeRecord) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cp := *rec
	r.s.toolChanges[rec.ID] = &cp
	return nil
}

func (r *ToolChangeRepo) Delete(_ context.Context, id string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.toolChanges[id]; !ok {
		return false, nil
	}
	delete(r.s.toolChanges, id)
	return true, nil
}

func (r *ToolChangeRepo) FindNearest(_ context.Context, equipmentID string, toolPosition int, toolTypeID string, at time.Time, window time.Duration) (*entity.ToolChangeRecord, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var best *entity.ToolChangeRecord
	var bestDist time.Duration
	for _, rec := range r.s.toolChanges {
		if rec.EquipmentID != equipmentID || rec.ToolPosition != toolPosition || rec.ToolTypeID != toolTypeID {
			continue
		}
		dist := rec.ChangeDate.Sub(at)
		if dist < 0 {
			dist = -dist
		}
		if dist > window {
			continue
		}
		if best == nil || dist < bestDist {
			best, bestDist = rec, dist
		}
	}
	if best == nil {
		return nil, nil
	}
	cp := *best
	return &cp, nil
}

func (r *ToolChangeRepo) ListByEquipment(_ context.Context, equipmentID string, limit int) ([]*entity.ToolChangeRecord, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var list []*entity.ToolChangeRecord
	for _, rec := range r.s.toolChanges {
		if rec.EquipmentID == equipmentID {
			cp := *rec
			list = append(list, &cp)
		}
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].ChangeDate.After(list[j].ChangeDate)
	})
	return page(list, limit, 0), nil
}
