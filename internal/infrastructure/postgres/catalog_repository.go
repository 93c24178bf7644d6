package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jhoicas/endmill-ledger/internal/domain/entity"
	"github.com/jhoicas/endmill-ledger/internal/domain/repository"
)

var (
	_ repository.ToolTypeRepository  = (*ToolTypeRepo)(nil)
	_ repository.EquipmentRepository = (*EquipmentRepo)(nil)
)

const toolTypeColumns = `id, code, name, specification, unit_price, default_min_stock, default_max_stock, created_at, updated_at`

// ToolTypeRepo lectura del catálogo de herramientas sobre PostgreSQL.
type ToolTypeRepo struct {
	q Querier
}

// NewToolTypeRepository construye el adaptador. Pasar pool o tx (Querier).
func NewToolTypeRepository(q Querier) *ToolTypeRepo {
	return &ToolTypeRepo{q: q}
}

// GetByID obtiene un tipo de herramienta por ID.
func (r *ToolTypeRepo) GetByID(ctx context.Context, id string) (*entity.ToolType, error) {
	if !isUUID(id) {
		return nil, nil
	}
	return r.getOne(ctx, `SELECT `+toolTypeColumns+` FROM tool_types WHERE id = $1`, id)
}

// GetByCode obtiene un tipo de herramienta por su código de catálogo.
func (r *ToolTypeRepo) GetByCode(ctx context.Context, code string) (*entity.ToolType, error) {
	return r.getOne(ctx, `SELECT `+toolTypeColumns+` FROM tool_types WHERE code = $1`, code)
}

func (r *ToolTypeRepo) getOne(ctx context.Context, query string, arg string) (*entity.ToolType, error) {
	var t entity.ToolType
	err := r.q.QueryRow(ctx, query, arg).Scan(
		&t.ID, &t.Code, &t.Name, &t.Specification, &t.UnitPrice,
		&t.DefaultMinStock, &t.DefaultMaxStock, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get tool type: %w", err)
	}
	return &t, nil
}

// EquipmentRepo lectura de máquinas sobre PostgreSQL.
type EquipmentRepo struct {
	q Querier
}

// NewEquipmentRepository construye el adaptador. Pasar pool o tx (Querier).
func NewEquipmentRepository(q Querier) *EquipmentRepo {
	return &EquipmentRepo{q: q}
}

// GetByID obtiene una máquina por ID.
func (r *EquipmentRepo) GetByID(ctx context.Context, id string) (*entity.Equipment, error) {
	if !isUUID(id) {
		return nil, nil
	}
	return r.getOne(ctx, `
		SELECT id, equipment_number, factory_id, location, model, created_at
		FROM equipment WHERE id = $1`, id)
}

// GetByNumber obtiene una máquina por número exacto.
func (r *EquipmentRepo) GetByNumber(ctx context.Context, equipmentNumber string) (*entity.Equipment, error) {
	return r.getOne(ctx, `
		SELECT id, equipment_number, factory_id, location, model, created_at
		FROM equipment WHERE equipment_number = $1`, equipmentNumber)
}

func (r *EquipmentRepo) getOne(ctx context.Context, query string, arg string) (*entity.Equipment, error) {
	var e entity.Equipment
	err := r.q.QueryRow(ctx, query, arg).Scan(&e.ID, &e.EquipmentNumber, &e.FactoryID, &e.Location, &e.Model, &e.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get equipment: %w", err)
	}
	return &e, nil
}
