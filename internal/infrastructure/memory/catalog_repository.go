package memory

import (
	"context"

	"github.com/jhoicas/endmill-ledger/internal/domain/entity"
	"github.com/jhoicas/endmill-ledger/internal/domain/repository"
)

var (
	_ repository.ToolTypeRepository  = (*ToolTypeRepo)(nil)
	_ repository.EquipmentRepository = (*EquipmentRepo)(nil)
)

// ToolTypeRepo catálogo de herramientas en memoria.
type ToolTypeRepo struct {
	s *Store
}

func (r *ToolTypeRepo) GetByID(_ context.Context, id string) (*entity.ToolType, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	tt, ok := r.s.toolTypes[id]
	if !ok {
		return nil, nil
	}
	cp := *tt
	return &cp, nil
}

func (r *ToolTypeRepo) GetByCode(_ context.Context, code string) (*entity.ToolType, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, tt := range r.s.toolTypes {
		if tt.Code == code {
			cp := *tt
			return &cp, nil
		}
	}
	return nil, nil
}

// EquipmentRepo máquinas en memoria.
type EquipmentRepo struct {
	s *Store
}

func (r *EquipmentRepo) GetByID(_ context.Context, id string) (*entity.Equipment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	eq, ok := r.s.equipment[id]
	if !ok {
		return nil, nil
	}
	cp := *eq
	return &cp, nil
}

func (r *EquipmentRepo) GetByNumber(_ context.Context, equipmentNumber string) (*entity.Equipment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, eq := range r.s.equipment {
		if eq.EquipmentNumber == equipmentNumber {
			cp := *eq
			return &cp, nil
		}
	}
	return nil, nil
}
