package entity

import "time"

// Equipment representa una máquina CNC con posiciones de herramienta.
// EquipmentNumber puede venir con una letra de ubicación al inicio (ej. "C007").
type Equipment struct {
	ID              string
	EquipmentNumber string
	FactoryID       string
	Location        string
	Model           string
	CreatedAt       time.Time
}
