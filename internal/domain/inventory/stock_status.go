package inventory

import (
	"github.com/jhoicas/endmill-ledger/internal/domain/entity"
	"github.com/shopspring/decimal"
)

// Thresholds son los cortes para clasificar la salud del stock (servicio de dominio).
// stock >= Sufficient → sufficient; stock >= Low → low; resto → critical.
type Thresholds struct {
	Sufficient int
	Low        int
}

// DefaultThresholds cortes por defecto (50/20).
func DefaultThresholds() Thresholds {
	return Thresholds{Sufficient: 50, Low: 20}
}

// Classify devuelve el estado de salud para una cantidad en stock.
func (t Thresholds) Classify(currentStock int) string {
	switch {
	case currentStock >= t.Sufficient:
		return entity.StockStatusSufficient
	case currentStock >= t.Low:
		return entity.StockStatusLow
	default:
		return entity.StockStatusCritical
	}
}

// Valid indica si los cortes son coherentes (0 <= Low <= Sufficient).
func (t Thresholds) Valid() bool {
	return t.Low >= 0 && t.Sufficient >= t.Low
}

// TotalAmount = cantidad × precio unitario.
func TotalAmount(quantity int, unitPrice decimal.Decimal) decimal.Decimal {
	return unitPrice.Mul(decimal.NewFromInt(int64(quantity)))
}
