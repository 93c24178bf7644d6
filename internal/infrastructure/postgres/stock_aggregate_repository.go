package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jhoicas/endmill-ledger/internal/domain/entity"
	"github.com/jhoicas/endmill-ledger/internal/domain/inventory"
	"github.com/jhoicas/endmill-ledger/internal/domain/repository"
)

var _ repository.StockAggregateRepository = (*StockAggregateRepo)(nil)

const aggregateColumns = `id, tool_type_id, factory_id, current_stock, min_stock, max_stock, status, last_updated`

// StockAggregateRepo implementación sobre PostgreSQL (usable con pool o tx).
type StockAggregateRepo struct {
	q Querier
}

// NewStockAggregateRepository construye el adaptador. Pasar pool o tx (Querier).
func NewStockAggregateRepository(q Querier) *StockAggregateRepo {
	return &StockAggregateRepo{q: q}
}

// Get obtiene el agregado de (tool_type_id, factory_id). factory_id vacío es el stock global.
func (r *StockAggregateRepo) Get(ctx context.Context, key entity.ItemKey) (*entity.StockAggregate, error) {
	query := `SELECT ` + aggregateColumns + ` FROM stock_aggregates WHERE tool_type_id = $1 AND factory_id = $2`
	return scanAggregate(r.q.QueryRow(ctx, query, key.ToolTypeID, key.FactoryID), "get aggregate")
}

// GetByID obtiene el agregado por ID.
func (r *StockAggregateRepo) GetByID(ctx context.Context, id string) (*entity.StockAggregate, error) {
	if !isUUID(id) {
		return nil, nil
	}
	query := `SELECT ` + aggregateColumns + ` FROM stock_aggregates WHERE id = $1`
	return scanAggregate(r.q.QueryRow(ctx, query, id), "get aggregate by id")
}

// GetForUpdate igual que GetByID pero con bloqueo de fila.
func (r *StockAggregateRepo) GetForUpdate(ctx context.Context, id string) (*entity.StockAggregate, error) {
	if !isUUID(id) {
		return nil, nil
	}
	query := `SELECT ` + aggregateColumns + ` FROM stock_aggregates WHERE id = $1 FOR UPDATE`
	return scanAggregate(r.q.QueryRow(ctx, query, id), "lock aggregate")
}

// CreateIfAbsent inserta el agregado; la restricción única (tool_type_id, factory_id) hace que
// dos creaciones concurrentes dejen una sola fila.
func (r *StockAggregateRepo) CreateIfAbsent(ctx context.Context, agg *entity.StockAggregate) error {
	query := `
		INSERT INTO stock_aggregates (id, tool_type_id, factory_id, current_stock, min_stock, max_stock, status, last_updated)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (tool_type_id, factory_id) DO NOTHING`
	_, err := r.q.Exec(ctx, query,
		agg.ID, agg.ToolTypeID, agg.FactoryID, agg.CurrentStock,
		agg.MinStock, agg.MaxStock, agg.Status, agg.LastUpdated,
	)
	if err != nil {
		return fmt.Errorf("create aggregate: %w", err)
	}
	return nil
}

// ApplyDelta suma delta en una sola sentencia condicional. El estado se recalcula en la misma
// escritura a partir del stock resultante. Sin fila devuelta: la guarda no se cumplió o no existe.
func (r *StockAggregateRepo) ApplyDelta(ctx context.Context, id string, delta int, th inventory.Thresholds) (*entity.StockAggregate, bool, error) {
	query := `
		UPDATE stock_aggregates
		SET current_stock = current_stock + $2,
		    status = CASE
		        WHEN current_stock + $2 >= $3 THEN $5
		        WHEN current_stock + $2 >= $4 THEN $6
		        ELSE $7
		    END,
		    last_updated = now()
		WHERE id = $1 AND current_stock + $2 >= 0
		RETURNING ` + aggregateColumns
	agg, err := scanAggregate(r.q.QueryRow(ctx, query,
		id, delta, th.Sufficient, th.Low,
		entity.StockStatusSufficient, entity.StockStatusLow, entity.StockStatusCritical,
	), "apply delta")
	if err != nil {
		return nil, false, err
	}
	if agg == nil {
		return nil, false, nil
	}
	return agg, true, nil
}

// UpdateBounds actualiza min/max sin tocar el stock.
func (r *StockAggregateRepo) UpdateBounds(ctx context.Context, id string, minStock, maxStock int) error {
	query := `UPDATE stock_aggregates SET min_stock = $2, max_stock = $3, last_updated = now() WHERE id = $1`
	tag, err := r.q.Exec(ctx, query, id, minStock, maxStock)
	if err != nil {
		return fmt.Errorf("update bounds: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update bounds: aggregate %s not found", id)
	}
	return nil
}

// SetStock sobrescribe stock y estado (reconciliación).
func (r *StockAggregateRepo) SetStock(ctx context.Context, id string, currentStock int, status string) error {
	query := `UPDATE stock_aggregates SET current_stock = $2, status = $3, last_updated = now() WHERE id = $1`
	tag, err := r.q.Exec(ctx, query, id, currentStock, status)
	if err != nil {
		return fmt.Errorf("set stock: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("set stock: aggregate %s not found", id)
	}
	return nil
}

// List lista agregados ordenados por (tool_type_id, factory_id); el orden estable permite paginar.
func (r *StockAggregateRepo) List(ctx context.Context, f repository.AggregateFilter) ([]*entity.StockAggregate, error) {
	query := `SELECT ` + aggregateColumns + ` FROM stock_aggregates WHERE 1=1`
	args := []any{}
	pos := 1
	if f.FactoryID != "" {
		query += fmt.Sprintf(" AND factory_id = $%d", pos)
		args = append(args, f.FactoryID)
		pos++
	}
	if f.Status != "" {
		query += fmt.Sprintf(" AND status = $%d", pos)
		args = append(args, f.Status)
		pos++
	}
	query += " ORDER BY tool_type_id, factory_id"
	if f.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", pos, pos+1)
		args = append(args, f.Limit, f.Offset)
	}

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list aggregates: %w", err)
	}
	defer rows.Close()
	var list []*entity.StockAggregate
	for rows.Next() {
		var a entity.StockAggregate
		if err := rows.Scan(&a.ID, &a.ToolTypeID, &a.FactoryID, &a.CurrentStock,
			&a.MinStock, &a.MaxStock, &a.Status, &a.LastUpdated); err != nil {
			return nil, fmt.Errorf("scan aggregate: %w", err)
		}
		list = append(list, &a)
	}
	return list, rows.Err()
}

func scanAggregate(row pgx.Row, op string) (*entity.StockAggregate, error) {
	var a entity.StockAggregate
	err := row.Scan(&a.ID, &a.ToolTypeID, &a.FactoryID, &a.CurrentStock,
		&a.MinStock, &a.MaxStock, &a.Status, &a.LastUpdated)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &a, nil
}
