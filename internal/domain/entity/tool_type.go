package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// ToolType representa un tipo de herramienta de corte (endmill) del catálogo.
// El catálogo se administra fuera del motor de stock; aquí sólo se consulta.
type ToolType struct {
	ID              string
	Code            string // código único del catálogo (ej. "EM-10-4F")
	Name            string
	Specification   string
	UnitPrice       decimal.Decimal // precio de catálogo, usado para valorizar despachos
	DefaultMinStock int
	DefaultMaxStock int
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
