package inventory

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jhoicas/endmill-ledger/internal/domain"
	"github.com/jhoicas/endmill-ledger/internal/domain/entity"
	"github.com/jhoicas/endmill-ledger/internal/domain/repository"
)

// ToolChangeRecorder agrega historial de cambios de herramienta a partir de despachos.
// Es best-effort: el coordinador nunca revierte stock por un fallo aquí.
type ToolChangeRecorder struct {
	repo   repository.ToolChangeRepository
	window time.Duration
}

// NewToolChangeRecorder construye el registrador con la ventana de correlación para borrados.
func NewToolChangeRecorder(repo repository.ToolChangeRepository, window time.Duration) *ToolChangeRecorder {
	return &ToolChangeRecorder{repo: repo, window: window}
}

// Window ventana de correlación configurada.
func (r *ToolChangeRecorder) Window() time.Duration {
	return r.window
}

// RecordFromOutbound crea el registro si el despacho tiene equipo y posición; si no, devuelve nil.
func (r *ToolChangeRecorder) RecordFromOutbound(ctx context.Context, tx *entity.StockTransaction) (*entity.ToolChangeRecord, error) {
	if !tx.HasEquipmentLink() {
		return nil, nil
	}
	rec := &entity.ToolChangeRecord{
		ID:           uuid.New().String(),
		EquipmentID:  tx.EquipmentID,
		ToolPosition: *tx.ToolPosition,
		ToolTypeID:   tx.ToolTypeID,
		ChangeReason: changeReasonFor(tx.Counterparty),
		ChangeDate:   tx.ProcessedAt,
		ChangedBy:    tx.ProcessedBy,
	}
	if err := r.repo.Create(ctx, rec); err != nil {
		return nil, domain.Persistence("create tool change record", err)
	}
	return rec, nil
}

// DeleteLinkedTo borra el registro correlacionado con el despacho (misma máquina, posición y
// herramienta, fecha dentro de ±window). Devuelve false si no encontró ninguno.
func (r *ToolChangeRecorder) DeleteLinkedTo(ctx context.Context, tx *entity.StockTransaction, window time.Duration) (bool, error) {
	if !tx.HasEquipmentLink() {
		return false, nil
	}
	rec, err := r.repo.FindNearest(ctx, tx.EquipmentID, *tx.ToolPosition, tx.ToolTypeID, tx.ProcessedAt, window)
	if err != nil {
		return false, domain.Persistence("find tool change record", err)
	}
	if rec == nil {
		return false, nil
	}
	ok, err := r.repo.Delete(ctx, rec.ID)
	if err != nil {
		return false, domain.Persistence("delete tool change record", err)
	}
	return ok, nil
}

// ListForEquipment historial de una máquina, más reciente primero.
func (r *ToolChangeRecorder) ListForEquipment(ctx context.Context, equipmentID string, limit int) ([]*entity.ToolChangeRecord, error) {
	if limit <= 0 || limit > maxListLimit {
		limit = maxListLimit
	}
	list, err := r.repo.ListByEquipment(ctx, equipmentID, limit)
	if err != nil {
		return nil, domain.Persistence("list tool change records", err)
	}
	return list, nil
}

func changeReasonFor(purpose string) string {
	switch strings.ToLower(strings.TrimSpace(purpose)) {
	case "replace", "replacement":
		return entity.ChangeReasonScheduledReplacement
	default:
		return entity.ChangeReasonDispensed
	}
}
