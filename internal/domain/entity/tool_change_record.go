package entity

import "time"

// Motivos de cambio de herramienta registrados desde un despacho.
const (
	ChangeReasonScheduledReplacement = "scheduled_replacement"
	ChangeReasonDispensed            = "dispensed"
)

// ToolChangeRecord es el historial de qué herramienta recibió una posición de una máquina.
// No hay llave foránea hacia el ledger; la relación se correlaciona por equipo, posición y fecha.
type ToolChangeRecord struct {
	ID           string
	EquipmentID  string
	ToolPosition int
	ToolTypeID   string
	ChangeReason string
	ChangeDate   time.Time
	ChangedBy    string
}
