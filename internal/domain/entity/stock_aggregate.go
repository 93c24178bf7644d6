package entity

import "time"

// Estados de salud del stock.
const (
	StockStatusCritical   = "critical"
	StockStatusLow        = "low"
	StockStatusSufficient = "sufficient"
)

// ItemKey identifica un tipo de herramienta en una fábrica (FactoryID vacío = sin fábrica).
type ItemKey struct {
	ToolTypeID string
	FactoryID  string
}

// StockAggregate es la fila de stock actual por tipo de herramienta y fábrica.
// CurrentStock siempre es igual a la suma con signo de los movimientos del ledger.
type StockAggregate struct {
	ID           string
	ToolTypeID   string
	FactoryID    string
	CurrentStock int
	MinStock     int
	MaxStock     int
	Status       string
	LastUpdated  time.Time
}

// Key devuelve la clave de ítem del agregado.
func (a *StockAggregate) Key() ItemKey {
	return ItemKey{ToolTypeID: a.ToolTypeID, FactoryID: a.FactoryID}
}
