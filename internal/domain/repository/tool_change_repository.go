package repository

import (
	"context"
	"time"

	"github.com/jhoicas/endmill-ledger/internal/domain/entity"
)

// ToolChangeRepository define el puerto del historial de cambios de herramienta.
type ToolChangeRepository interface {
	Create(ctx context.Context, rec *entity.ToolChangeRecord) error
	Delete(ctx context.Context, id string) (bool, error)
	// FindNearest busca el registro de la misma máquina/posición/herramienta cuya fecha
	// esté más cerca de at dentro de ±window. (nil, nil) si no hay ninguno.
	FindNearest(ctx context.Context, equipmentID string, toolPosition int, toolTypeID string, at time.Time, window time.Duration) (*entity.ToolChangeRecord, error)
	ListByEquipment(ctx context.Context, equipmentID string, limit int) ([]*entity.ToolChangeRecord, error)
}
