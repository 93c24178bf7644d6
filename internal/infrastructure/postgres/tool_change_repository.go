package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jhoicas/endmill-ledger/internal/domain/entity"
	"github.com/jhoicas/endmill-ledger/internal/domain/repository"
)

var _ repository.ToolChangeRepository = (*ToolChangeRepo)(nil)

const toolChangeColumns = `id, equipment_id, tool_position, tool_type_id, change_reason, change_date, changed_by`

// ToolChangeRepo historial de cambios de herramienta sobre PostgreSQL.
type ToolChangeRepo struct {
	q Querier
}

// NewToolChangeRepository construye el adaptador. Pasar pool o tx (Querier).
func NewToolChangeRepository(q Querier) *ToolChangeRepo {
	return &ToolChangeRepo{q: q}
}

// Create inserta un registro de cambio.
func (r *ToolChangeRepo) Create(ctx context.Context, rec *entity.ToolChangeRecord) error {
	query := `INSERT INTO tool_change_records (` + toolChangeColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := r.q.Exec(ctx, query,
		rec.ID, rec.EquipmentID, rec.ToolPosition, rec.ToolTypeID,
		rec.ChangeReason, rec.ChangeDate, rec.ChangedBy,
	)
	if err != nil {
		return fmt.Errorf("create tool change: %w", err)
	}
	return nil
}

// Delete borra un registro. false si no existía.
func (r *ToolChangeRepo) Delete(ctx context.Context, id string) (bool, error) {
	tag, err := r.q.Exec(ctx, `DELETE FROM tool_change_records WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("delete tool change: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// FindNearest busca el registro más cercano a at dentro de ±window.
func (r *ToolChangeRepo) FindNearest(ctx context.Context, equipmentID string, toolPosition int, toolTypeID string, at time.Time, window time.Duration) (*entity.ToolChangeRecord, error) {
	query := `
		SELECT ` + toolChangeColumns + `
		FROM tool_change_records
		WHERE equipment_id = $1 AND tool_position = $2 AND tool_type_id = $3
		  AND change_date BETWEEN $4 AND $5
		ORDER BY ABS(EXTRACT(EPOCH FROM (change_date - $6::timestamptz)))
		LIMIT 1`
	var rec entity.ToolChangeRecord
	err := r.q.QueryRow(ctx, query,
		equipmentID, toolPosition, toolTypeID, at.Add(-window), at.Add(window), at,
	).Scan(&rec.ID, &rec.EquipmentID, &rec.ToolPosition, &rec.ToolTypeID, &rec.ChangeReason, &rec.ChangeDate, &rec.ChangedBy)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find tool change: %w", err)
	}
	return &rec, nil
}

// ListByEquipment últimos cambios de una máquina (más reciente primero).
func (r *ToolChangeRepo) ListByEquipment(ctx context.Context, equipmentID string, limit int) ([]*entity.ToolChangeRecord, error) {
	query := `
		SELECT ` + toolChangeColumns + `
		FROM tool_change_records WHERE equipment_id = $1
		ORDER BY change_date DESC, tool_position
		LIMIT $2`
	rows, err := r.q.Query(ctx, query, equipmentID, limit)
	if err != nil {
		return nil, fmt.Errorf("list tool changes: %w", err)
	}
	defer rows.Close()
	var list []*entity.ToolChangeRecord
	for rows.Next() {
		var rec entity.ToolChangeRecord
		if err := rows.Scan(&rec.ID, &rec.EquipmentID, &rec.ToolPosition, &rec.ToolTypeID, &rec.ChangeReason, &rec.ChangeDate, &rec.ChangedBy); err != nil {
			return nil, fmt.Errorf("scan tool change: %w", err)
		}
		list = append(list, &rec)
	}
	return list, rows.Err()
}
