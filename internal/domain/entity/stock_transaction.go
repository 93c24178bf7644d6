package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Tipos de movimiento del ledger.
const (
	TransactionTypeInbound  = "inbound"  // recepción
	TransactionTypeOutbound = "outbound" // despacho
)

// StockTransaction es una entrada del ledger. Quantity siempre es positiva;
// el signo sólo se aplica al tocar el agregado.
type StockTransaction struct {
	ID                 string
	AggregateID        string
	ToolTypeID         string
	FactoryID          string
	Type               string
	Quantity           int
	UnitPrice          decimal.Decimal
	TotalAmount        decimal.Decimal
	Counterparty       string // proveedor (inbound) o propósito (outbound)
	EquipmentReference string // número de equipo tal como lo envió el usuario
	EquipmentID        string
	ToolPosition       *int
	Notes              string
	ProcessedAt        time.Time
	ProcessedBy        string
}

// SignedQuantity devuelve la cantidad con el signo que aplica al stock.
func (t *StockTransaction) SignedQuantity() int {
	if t.Type == TransactionTypeOutbound {
		return -t.Quantity
	}
	return t.Quantity
}

// HasEquipmentLink indica si el despacho apunta a una posición concreta de una máquina.
func (t *StockTransaction) HasEquipmentLink() bool {
	return t.Type == TransactionTypeOutbound && t.EquipmentID != "" && t.ToolPosition != nil
}
