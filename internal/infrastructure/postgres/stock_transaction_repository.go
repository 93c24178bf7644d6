package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jhoicas/endmill-ledger/internal/domain"
	"github.com/jhoicas/endmill-ledger/internal/domain/entity"
	"github.com/jhoicas/endmill-ledger/internal/domain/repository"
)

var _ repository.StockTransactionRepository = (*StockTransactionRepo)(nil)

const transactionColumns = `id, aggregate_id, tool_type_id, factory_id, type, quantity, unit_price, total_amount,
	counterparty, equipment_reference, equipment_id, tool_position, notes, processed_at, processed_by`

// StockTransactionRepo ledger de movimientos sobre PostgreSQL (usable con pool o tx).
type StockTransactionRepo struct {
	q Querier
}

// NewStockTransactionRepository construye el adaptador. Pasar pool o tx (Querier).
func NewStockTransactionRepository(q Querier) *StockTransactionRepo {
	return &StockTransactionRepo{q: q}
}

// Create agrega una entrada al ledger.
func (r *StockTransactionRepo) Create(ctx context.Context, tx *entity.StockTransaction) error {
	query := `
		INSERT INTO stock_transactions (` + transactionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`
	_, err := r.q.Exec(ctx, query,
		tx.ID, tx.AggregateID, tx.ToolTypeID, tx.FactoryID, tx.Type, tx.Quantity,
		tx.UnitPrice, tx.TotalAmount, tx.Counterparty, tx.EquipmentReference,
		nullString(tx.EquipmentID), tx.ToolPosition, tx.Notes, tx.ProcessedAt, tx.ProcessedBy,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: movimiento %s ya existe", domain.ErrConflict, tx.ID)
		}
		return fmt.Errorf("create stock transaction: %w", err)
	}
	return nil
}

// GetByID obtiene una entrada por ID.
func (r *StockTransactionRepo) GetByID(ctx context.Context, id string) (*entity.StockTransaction, error) {
	if !isUUID(id) {
		return nil, nil
	}
	query := `SELECT ` + transactionColumns + ` FROM stock_transactions WHERE id = $1`
	t, err := scanTransaction(r.q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get stock transaction: %w", err)
	}
	return t, nil
}

// Update reescribe los campos editables de una entrada.
func (r *StockTransactionRepo) Update(ctx context.Context, tx *entity.StockTransaction) error {
	query := `
		UPDATE stock_transactions
		SET quantity = $2, unit_price = $3, total_amount = $4, counterparty = $5,
		    equipment_reference = $6, equipment_id = $7, tool_position = $8, notes = $9
		WHERE id = $1`
	tag, err := r.q.Exec(ctx, query,
		tx.ID, tx.Quantity, tx.UnitPrice, tx.TotalAmount, tx.Counterparty,
		tx.EquipmentReference, nullString(tx.EquipmentID), tx.ToolPosition, tx.Notes,
	)
	if err != nil {
		return fmt.Errorf("update stock transaction: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update stock transaction: %s not found", tx.ID)
	}
	return nil
}

// Delete borra la entrada. false si no existía.
func (r *StockTransactionRepo) Delete(ctx context.Context, id string) (bool, error) {
	tag, err := r.q.Exec(ctx, `DELETE FROM stock_transactions WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("delete stock transaction: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// List lista entradas por fecha descendente con filtros opcionales.
func (r *StockTransactionRepo) List(ctx context.Context, f repository.TransactionFilter) ([]*entity.StockTransaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM stock_transactions WHERE 1=1`
	args := []any{}
	pos := 1
	add := func(cond string, v any) {
		query += fmt.Sprintf(" AND "+cond, pos)
		args = append(args, v)
		pos++
	}
	if f.AggregateID != "" {
		add("aggregate_id = $%d", f.AggregateID)
	}
	if f.ToolTypeID != "" {
		add("tool_type_id = $%d", f.ToolTypeID)
	}
	if f.FactoryID != "" {
		add("factory_id = $%d", f.FactoryID)
	}
	if f.Type != "" {
		add("type = $%d", f.Type)
	}
	if f.From != nil {
		add("processed_at >= $%d", *f.From)
	}
	if f.To != nil {
		add("processed_at <= $%d", *f.To)
	}
	query += " ORDER BY processed_at DESC, id"
	if f.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", pos, pos+1)
		args = append(args, f.Limit, f.Offset)
	}

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list stock transactions: %w", err)
	}
	defer rows.Close()
	var list []*entity.StockTransaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan stock transaction: %w", err)
		}
		list = append(list, t)
	}
	return list, rows.Err()
}

// SignedSum suma inbound positivo y outbound negativo del agregado.
func (r *StockTransactionRepo) SignedSum(ctx context.Context, aggregateID string) (int, error) {
	query := `
		SELECT COALESCE(SUM(CASE WHEN type = 'outbound' THEN -quantity ELSE quantity END), 0)
		FROM stock_transactions WHERE aggregate_id = $1`
	var sum int64
	if err := r.q.QueryRow(ctx, query, aggregateID).Scan(&sum); err != nil {
		return 0, fmt.Errorf("signed sum: %w", err)
	}
	return int(sum), nil
}

func scanTransaction(row pgx.Row) (*entity.StockTransaction, error) {
	var t entity.StockTransaction
	var equipmentID *string
	if err := row.Scan(
		&t.ID, &t.AggregateID, &t.ToolTypeID, &t.FactoryID, &t.Type, &t.Quantity,
		&t.UnitPrice, &t.TotalAmount, &t.Counterparty, &t.EquipmentReference,
		&equipmentID, &t.ToolPosition, &t.Notes, &t.ProcessedAt, &t.ProcessedBy,
	); err != nil {
		return nil, err
	}
	t.EquipmentID = deref(equipmentID)
	return &t, nil
}
