// Package memory implementa los puertos de repositorio en memoria de proceso.
// Se usa con STORAGE_DRIVER=memory (desarrollo local) y en los tests de casos de uso.
// Un único mutex hace de aislamiento por fila: cada método es atómico.
package memory

import (
	"context"
	"sync"

	"github.com/jhoicas/endmill-ledger/internal/application/inventory"
	"github.com/jhoicas/endmill-ledger/internal/domain/entity"
	"github.com/jhoicas/endmill-ledger/internal/domain/repository"
)

// Store contiene todas las tablas en memoria.
type Store struct {
	mu           sync.Mutex
	toolTypes    map[string]*entity.ToolType
	equipment    map[string]*entity.Equipment
	aggregates   map[string]*entity.StockAggregate
	transactions map[string]*entity.StockTransaction
	toolChanges  map[string]*entity.ToolChangeRecord
}

// NewStore crea un almacenamiento vacío.
func NewStore() *Store {
	return &Store{
		toolTypes:    make(map[string]*entity.ToolType),
		equipment:    make(map[string]*entity.Equipment),
		aggregates:   make(map[string]*entity.StockAggregate),
		transactions: make(map[string]*entity.StockTransaction),
		toolChanges:  make(map[string]*entity.ToolChangeRecord),
	}
}

// AddToolType registra un tipo de herramienta en el catálogo.
func (s *Store) AddToolType(tt entity.ToolType) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.toolTypes[tt.ID] = &tt
}

// AddEquipment registra una máquina.
func (s *Store) AddEquipment(eq entity.Equipment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.equipment[eq.ID] = &eq
}

// ToolTypes repositorio de catálogo.
func (s *Store) ToolTypes() *ToolTypeRepo { return &ToolTypeRepo{s: s} }

// Equipment repositorio de máquinas.
func (s *Store) Equipment() *EquipmentRepo { return &EquipmentRepo{s: s} }

// Aggregates repositorio de agregados.
func (s *Store) Aggregates() *AggregateRepo { return &AggregateRepo{s: s} }

// Transactions repositorio del ledger.
func (s *Store) Transactions() *TransactionRepo { return &TransactionRepo{s: s} }

// ToolChanges repositorio del historial.
func (s *Store) ToolChanges() *ToolChangeRepo { return &ToolChangeRepo{s: s} }

var _ inventory.TxRunner = (*TxRunner)(nil)

// TxRunner ejecuta fn sobre una copia de agregados y ledger con el mutex del store tomado
// durante todo fn. Si fn devuelve error la copia se descarta; si no, reemplaza a las tablas.
type TxRunner struct {
	s *Store
}

// NewTxRunner construye el runner en memoria.
func NewTxRunner(s *Store) *TxRunner {
	return &TxRunner{s: s}
}

// Run ejecuta fn. Los repositorios de fn no deben mezclarse con los del store: usarlos
// dentro de fn bloquearía el mutex.
func (r *TxRunner) Run(ctx context.Context, fn func(
	aggRepo repository.StockAggregateRepository,
	txRepo repository.StockTransactionRepository,
) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	work := r.s.workingCopyLocked()
	if err := fn(work.Aggregates(), work.Transactions()); err != nil {
		return err
	}
	r.s.aggregates = work.aggregates
	r.s.transactions = work.transactions
	return nil
}

// workingCopyLocked copia agregados y movimientos en un Store nuevo con su propio mutex.
func (s *Store) workingCopyLocked() *Store {
	work := NewStore()
	for id, agg := range s.aggregates {
		cp := *agg
		work.aggregates[id] = &cp
	}
	for id, tx := range s.transactions {
		work.transactions[id] = cloneTx(tx)
	}
	return work
}
