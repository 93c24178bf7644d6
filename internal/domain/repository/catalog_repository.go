package repository

import (
	"context"

	"github.com/jhoicas/endmill-ledger/internal/domain/entity"
)

// ToolTypeRepository puerto de lectura del catálogo de herramientas.
// Devuelve (nil, nil) cuando el registro no existe.
type ToolTypeRepository interface {
	GetByID(ctx context.Context, id string) (*entity.ToolType, error)
	GetByCode(ctx context.Context, code string) (*entity.ToolType, error)
}

// EquipmentRepository puerto de lectura de máquinas.
// Devuelve (nil, nil) cuando el registro no existe.
type EquipmentRepository interface {
	GetByID(ctx context.Context, id string) (*entity.Equipment, error)
	GetByNumber(ctx context.Context, equipmentNumber string) (*entity.Equipment, error)
}
