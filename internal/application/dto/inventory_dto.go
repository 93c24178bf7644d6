package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/endmill-ledger/internal/domain/entity"
)

// InboundRequest body para POST /api/inventory/inbound.
type InboundRequest struct {
	ToolTypeCode string           `json:"toolTypeCode" validate:"required,max=64"`
	Counterparty string           `json:"counterparty" validate:"required,max=200"`
	Quantity     int              `json:"quantity" validate:"required,gt=0"`
	UnitPrice    decimal.Decimal  `json:"unitPrice"`
	TotalAmount  *decimal.Decimal `json:"totalAmount,omitempty"`
	FactoryID    string           `json:"factoryId,omitempty" validate:"max=64"`
	ProcessedAt  *time.Time       `json:"processedAt,omitempty"`
	Notes        string           `json:"notes,omitempty" validate:"max=1000"`
}

// InboundUpdateRequest body para PUT /api/inventory/inbound/:id.
type InboundUpdateRequest struct {
	Quantity     int             `json:"quantity" validate:"required,gt=0"`
	UnitPrice    decimal.Decimal `json:"unitPrice"`
	Counterparty string          `json:"counterparty" validate:"required,max=200"`
}

// OutboundRequest body para POST /api/inventory/outbound.
type OutboundRequest struct {
	ToolTypeCode       string     `json:"toolTypeCode" validate:"required,max=64"`
	EquipmentNumber    string     `json:"equipmentNumber,omitempty" validate:"max=64"`
	ToolPositionNumber *int       `json:"toolPositionNumber,omitempty" validate:"omitempty,gt=0"`
	Quantity           int        `json:"quantity" validate:"required,gt=0"`
	Purpose            string     `json:"purpose" validate:"max=200"`
	FactoryID          string     `json:"factoryId,omitempty" validate:"max=64"`
	ProcessedAt        *time.Time `json:"processedAt,omitempty"`
	Notes              string     `json:"notes,omitempty" validate:"max=1000"`
}

// OutboundUpdateRequest body para PUT /api/inventory/outbound/:id.
type OutboundUpdateRequest struct {
	Quantity           int    `json:"quantity" validate:"required,gt=0"`
	EquipmentNumber    string `json:"equipmentNumber,omitempty" validate:"max=64"`
	ToolPositionNumber *int   `json:"toolPositionNumber,omitempty" validate:"omitempty,gt=0"`
	Purpose            string `json:"purpose" validate:"max=200"`
}

// BoundsRequest body para PUT /api/inventory/stock/:toolTypeCode/bounds.
type BoundsRequest struct {
	MinStock  int    `json:"minStock" validate:"gte=0"`
	MaxStock  int    `json:"maxStock" validate:"gte=0,gtefield=MinStock"`
	FactoryID string `json:"factoryId,omitempty" validate:"max=64"`
}

// TransactionListQuery filtros de GET /api/inventory/inbound|outbound.
type TransactionListQuery struct {
	ToolTypeCode string `query:"tool_type_code" validate:"max=64"`
	FactoryID    string `query:"factory_id" validate:"max=64"`
	From         string `query:"from"`
	To           string `query:"to"`
	Limit        int    `query:"limit" validate:"omitempty,min=1,max=100"`
	Offset       int    `query:"offset" validate:"omitempty,min=0"`
}

// StockListQuery filtros de GET /api/inventory/stock.
type StockListQuery struct {
	FactoryID string `query:"factory_id" validate:"max=64"`
	Status    string `query:"status" validate:"omitempty,oneof=critical low sufficient"`
	Limit     int    `query:"limit" validate:"omitempty,min=1,max=100"`
	Offset    int    `query:"offset" validate:"omitempty,min=0"`
}

// TransactionResponse entrada del ledger.
type TransactionResponse struct {
	ID                 string          `json:"id"`
	InventoryItemID    string          `json:"inventoryItemId"`
	ToolTypeID         string          `json:"toolTypeId"`
	FactoryID          string          `json:"factoryId,omitempty"`
	Type               string          `json:"type"`
	Quantity           int             `json:"quantity"`
	UnitPrice          decimal.Decimal `json:"unitPrice"`
	TotalAmount        decimal.Decimal `json:"totalAmount"`
	Counterparty       string          `json:"counterparty"`
	EquipmentReference string          `json:"equipmentReference,omitempty"`
	EquipmentID        string          `json:"equipmentId,omitempty"`
	ToolPositionNumber *int            `json:"toolPositionNumber,omitempty"`
	Notes              string          `json:"notes,omitempty"`
	ProcessedAt        time.Time       `json:"processedAt"`
	ProcessedBy        string          `json:"processedBy,omitempty"`
}

// AggregateResponse snapshot del stock de un tipo de herramienta en una fábrica.
type AggregateResponse struct {
	ID           string    `json:"id"`
	ToolTypeID   string    `json:"toolTypeId"`
	FactoryID    string    `json:"factoryId,omitempty"`
	CurrentStock int       `json:"currentStock"`
	MinStock     int       `json:"minStock"`
	MaxStock     int       `json:"maxStock"`
	Status       string    `json:"status"`
	LastUpdated  time.Time `json:"lastUpdated"`
}

// ToolChangeResponse registro del historial de una máquina.
type ToolChangeResponse struct {
	ID                 string    `json:"id"`
	EquipmentID        string    `json:"equipmentId"`
	ToolPositionNumber int       `json:"toolPositionNumber"`
	ToolTypeID         string    `json:"toolTypeId"`
	ChangeReason       string    `json:"changeReason"`
	ChangeDate         time.Time `json:"changeDate"`
	ChangedBy          string    `json:"changedBy,omitempty"`
}

// MovementResponse respuesta de alta/edición.
type MovementResponse struct {
	Success           bool                `json:"success"`
	Transaction       TransactionResponse `json:"transaction"`
	AggregateSnapshot *AggregateResponse  `json:"aggregateSnapshot,omitempty"`
	ToolChangeRecord  *ToolChangeResponse `json:"toolChangeRecord,omitempty"`
}

// DeleteResponse respuesta de borrado. NeedsReview sólo aplica a despachos.
type DeleteResponse struct {
	Success           bool               `json:"success"`
	NeedsReview       bool               `json:"needsReview"`
	HistoryRemoved    bool               `json:"historyRemoved,omitempty"`
	AggregateSnapshot *AggregateResponse `json:"aggregateSnapshot,omitempty"`
}

// TransactionListResponse listado paginado del ledger.
type TransactionListResponse struct {
	Success bool                  `json:"success"`
	Items   []TransactionResponse `json:"items"`
	Page    PageResponse          `json:"page"`
}

// StockListResponse listado de agregados.
type StockListResponse struct {
	Success bool                `json:"success"`
	Items   []AggregateResponse `json:"items"`
	Page    PageResponse        `json:"page"`
}

// ToolChangeListResponse historial de una máquina.
type ToolChangeListResponse struct {
	Success bool                 `json:"success"`
	Items   []ToolChangeResponse `json:"items"`
}

// FromTransaction mapea la entidad a la respuesta.
func FromTransaction(t *entity.StockTransaction) TransactionResponse {
	return TransactionResponse{
		ID:                 t.ID,
		InventoryItemID:    t.AggregateID,
		ToolTypeID:         t.ToolTypeID,
		FactoryID:          t.FactoryID,
		Type:               t.Type,
		Quantity:           t.Quantity,
		UnitPrice:          t.UnitPrice,
		TotalAmount:        t.TotalAmount,
		Counterparty:       t.Counterparty,
		EquipmentReference: t.EquipmentReference,
		EquipmentID:        t.EquipmentID,
		ToolPositionNumber: t.ToolPosition,
		Notes:              t.Notes,
		ProcessedAt:        t.ProcessedAt,
		ProcessedBy:        t.ProcessedBy,
	}
}

// FromAggregate mapea la entidad; nil devuelve nil.
func FromAggregate(a *entity.StockAggregate) *AggregateResponse {
	if a == nil {
		return nil
	}
	return &AggregateResponse{
		ID:           a.ID,
		ToolTypeID:   a.ToolTypeID,
		FactoryID:    a.FactoryID,
		CurrentStock: a.CurrentStock,
		MinStock:     a.MinStock,
		MaxStock:     a.MaxStock,
		Status:       a.Status,
		LastUpdated:  a.LastUpdated,
	}
}

// FromToolChange mapea la entidad; nil devuelve nil.
func FromToolChange(r *entity.ToolChangeRecord) *ToolChangeResponse {
	if r == nil {
		return nil
	}
	return &ToolChangeResponse{
		ID:                 r.ID,
		EquipmentID:        r.EquipmentID,
		ToolPositionNumber: r.ToolPosition,
		ToolTypeID:         r.ToolTypeID,
		ChangeReason:       r.ChangeReason,
		ChangeDate:         r.ChangeDate,
		ChangedBy:          r.ChangedBy,
	}
}
