package memory

import (
	"context"
	"sort"

	"github.com/jhoicas/endmill-ledger/internal/domain/entity"
	"github.com/jhoicas/endmill-ledger/internal/domain/repository"
)

var _ repository.StockTransactionRepository = (*TransactionRepo)(nil)

// TransactionRepo ledger en memoria.
type TransactionRepo struct {
	s *Store
}

func (r *TransactionRepo) Create(_ context.Context, tx *entity.StockTransaction) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.transactions[tx.ID] = cloneTx(tx)
	return nil
}

func (r *TransactionRepo) GetByID(_ context.Context, id string) (*entity.StockTransaction, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	tx, ok := r.s.transactions[id]
	if !ok {
		return nil, nil
	}
	return cloneTx(tx), nil
}

func (r *TransactionRepo) Update(_ context.Context, tx *entity.StockTransaction) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.transactions[tx.ID]; !ok {
		return errRowNotFound
	}
	r.s.transactions[tx.ID] = cloneTx(tx)
	return nil
}

func (r *TransactionRepo) Delete(_ context.Context, id string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.transactions[id]; !ok {
		return false, nil
	}
	delete(r.s.transactions, id)
	return true, nil
}

func (r *TransactionRepo) List(_ context.Context, f repository.TransactionFilter) ([]*entity.StockTransaction, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var list []*entity.StockTransaction
	for _, tx := range r.s.transactions {
		if f.AggregateID != "" && tx.AggregateID != f.AggregateID {
			continue
		}
		if f.ToolTypeID != "" && tx.ToolTypeID != f.ToolTypeID {
			continue
		}
		if f.FactoryID != "" && tx.FactoryID != f.FactoryID {
			continue
		}
		if f.Type != "" && tx.Type != f.Type {
			continue
		}
		if f.From != nil && tx.ProcessedAt.Before(*f.From) {
			continue
		}
		if f.To != nil && tx.ProcessedAt.After(*f.To) {
			continue
		}
		list = append(list, cloneTx(tx))
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].ProcessedAt.After(list[j].ProcessedAt)
	})
	return page(list, f.Limit, f.Offset), nil
}

func (r *TransactionRepo) SignedSum(_ context.Context, aggregateID string) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	sum := 0
	for _, tx := range r.s.transactions {
		if tx.AggregateID == aggregateID {
			sum += tx.SignedQuantity()
		}
	}
	return sum, nil
}

// Count número de entradas del ledger para un agregado.
func (r *TransactionRepo) Count(aggregateID string) int {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n := 0
	for _, tx := range r.s.transactions {
		if tx.AggregateID == aggregateID {
			n++
		}
	}
	return n
}

func cloneTx(tx *entity.StockTransaction) *entity.StockTransaction {
	cp := *tx
	if tx.ToolPosition != nil {
		pos := *tx.ToolPosition
		cp.ToolPosition = &pos
	}
	return &cp
}
