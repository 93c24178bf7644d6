package http

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/jhoicas/endmill-ledger/internal/application/dto"
	"github.com/jhoicas/endmill-ledger/internal/application/inventory"
	"github.com/jhoicas/endmill-ledger/internal/domain"
	"github.com/jhoicas/endmill-ledger/internal/domain/entity"
	"github.com/jhoicas/endmill-ledger/internal/domain/repository"
)

// InventoryHandler maneja recepciones, despachos, stock e historial de cambios.
type InventoryHandler struct {
	coord    *inventory.StockMovementCoordinator
	validate *validator.Validate
	log      zerolog.Logger
	// adminRoles pueden operar sobre una fábrica distinta a la del token.
	adminRoles []string
}

// NewInventoryHandler construye el handler.
func NewInventoryHandler(coord *inventory.StockMovementCoordinator, log zerolog.Logger, adminRoles ...string) *InventoryHandler {
	return &InventoryHandler{coord: coord, validate: newValidator(), log: log, adminRoles: adminRoles}
}

// CreateInbound godoc
// @Summary      Registrar recepción de herramientas
// @Tags         inventory
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body      dto.InboundRequest  true  "toolTypeCode, counterparty, quantity, unitPrice"
// @Success      201   {object}  dto.MovementResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      403   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Router       /api/inventory/inbound [post]
func (h *InventoryHandler) CreateInbound(c *fiber.Ctx) error {
	var in dto.InboundRequest
	if e := bindBody(c, h.validate, &in); e != nil {
		return c.Status(fiber.StatusBadRequest).JSON(e)
	}
	factoryID, ok := h.factoryFor(c, in.FactoryID)
	if !ok {
		return factoryForbidden(c)
	}
	res, err := h.coord.RegisterInbound(c.UserContext(), inventory.InboundInput{
		ToolTypeCode: in.ToolTypeCode,
		Counterparty: in.Counterparty,
		Quantity:     in.Quantity,
		UnitPrice:    in.UnitPrice,
		TotalAmount:  in.TotalAmount,
		FactoryID:    factoryID,
		ProcessedBy:  GetUserID(c),
		ProcessedAt:  in.ProcessedAt,
		Notes:        in.Notes,
	})
	if err != nil {
		return respondError(c, h.log, err, fiber.StatusNotFound)
	}
	return c.Status(fiber.StatusCreated).JSON(movementResponse(res))
}

// UpdateInbound godoc
// @Summary      Editar recepción
// @Tags         inventory
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path      string                    true  "ID del movimiento"
// @Param        body  body      dto.InboundUpdateRequest  true  "quantity, unitPrice, counterparty"
// @Success      200   {object}  dto.MovementResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Router       /api/inventory/inbound/{id} [put]
func (h *InventoryHandler) UpdateInbound(c *fiber.Ctx) error {
	var in dto.InboundUpdateRequest
	if e := bindBody(c, h.validate, &in); e != nil {
		return c.Status(fiber.StatusBadRequest).JSON(e)
	}
	res, err := h.coord.EditInbound(c.UserContext(), c.Params("id"), inventory.InboundEdit{
		Quantity:     in.Quantity,
		UnitPrice:    in.UnitPrice,
		Counterparty: in.Counterparty,
	})
	if err != nil {
		return respondError(c, h.log, err, fiber.StatusNotFound)
	}
	return c.JSON(movementResponse(res))
}

// DeleteInbound godoc
// @Summary      Eliminar recepción (revierte el stock)
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        id   path      string  true  "ID del movimiento"
// @Success      200  {object}  dto.DeleteResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/inventory/inbound/{id} [delete]
func (h *InventoryHandler) DeleteInbound(c *fiber.Ctx) error {
	res, err := h.coord.DeleteInbound(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondError(c, h.log, err, fiber.StatusNotFound)
	}
	return c.JSON(dto.DeleteResponse{Success: true, AggregateSnapshot: dto.FromAggregate(res.Aggregate)})
}

// CreateOutbound godoc
// @Summary      Registrar despacho de herramientas
// @Description  Descuenta stock y, si viene equipo y posición, agrega el cambio al historial de la máquina.
// @Tags         inventory
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body      dto.OutboundRequest  true  "toolTypeCode, quantity, purpose, equipmentNumber?, toolPositionNumber?"
// @Success      201   {object}  dto.MovementResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      403   {object}  dto.ErrorResponse
// @Router       /api/inventory/outbound [post]
func (h *InventoryHandler) CreateOutbound(c *fiber.Ctx) error {
	var in dto.OutboundRequest
	if e := bindBody(c, h.validate, &in); e != nil {
		return c.Status(fiber.StatusBadRequest).JSON(e)
	}
	factoryID, ok := h.factoryFor(c, in.FactoryID)
	if !ok {
		return factoryForbidden(c)
	}
	res, err := h.coord.RegisterOutbound(c.UserContext(), inventory.OutboundInput{
		ToolTypeCode:    in.ToolTypeCode,
		EquipmentNumber: in.EquipmentNumber,
		ToolPosition:    in.ToolPositionNumber,
		Quantity:        in.Quantity,
		Purpose:         in.Purpose,
		FactoryID:       factoryID,
		ProcessedBy:     GetUserID(c),
		ProcessedAt:     in.ProcessedAt,
		Notes:           in.Notes,
	})
	if err != nil {
		return respondError(c, h.log, err, fiber.StatusBadRequest)
	}
	return c.Status(fiber.StatusCreated).JSON(movementResponse(res))
}

// UpdateOutbound godoc
// @Summary      Editar despacho
// @Tags         inventory
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path      string                     true  "ID del movimiento"
// @Param        body  body      dto.OutboundUpdateRequest  true  "quantity, purpose, equipmentNumber?, toolPositionNumber?"
// @Success      200   {object}  dto.MovementResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Router       /api/inventory/outbound/{id} [put]
func (h *InventoryHandler) UpdateOutbound(c *fiber.Ctx) error {
	var in dto.OutboundUpdateRequest
	if e := bindBody(c, h.validate, &in); e != nil {
		return c.Status(fiber.StatusBadRequest).JSON(e)
	}
	res, err := h.coord.EditOutbound(c.UserContext(), c.Params("id"), inventory.OutboundEdit{
		Quantity:        in.Quantity,
		EquipmentNumber: in.EquipmentNumber,
		ToolPosition:    in.ToolPositionNumber,
		Purpose:         in.Purpose,
	})
	if err != nil {
		return respondError(c, h.log, err, fiber.StatusNotFound)
	}
	return c.JSON(movementResponse(res))
}

// DeleteOutbound godoc
// @Summary      Eliminar despacho (devuelve el stock)
// @Description  needsReview=true cuando el agregado tuvo que recrearse o quedó sobre el máximo.
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        id   path      string  true  "ID del movimiento"
// @Success      200  {object}  dto.DeleteResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/inventory/outbound/{id} [delete]
func (h *InventoryHandler) DeleteOutbound(c *fiber.Ctx) error {
	res, err := h.coord.DeleteOutbound(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondError(c, h.log, err, fiber.StatusNotFound)
	}
	return c.JSON(dto.DeleteResponse{
		Success:           true,
		NeedsReview:       res.NeedsReview,
		HistoryRemoved:    res.HistoryRemoved,
		AggregateSnapshot: dto.FromAggregate(res.Aggregate),
	})
}

// ListInbound godoc
// @Summary      Listar recepciones
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        tool_type_code  query  string  false  "Código de herramienta"
// @Param        factory_id      query  string  false  "Fábrica"
// @Param        from            query  string  false  "Desde (RFC3339 o YYYY-MM-DD)"
// @Param        to              query  string  false  "Hasta (RFC3339 o YYYY-MM-DD, inclusive)"
// @Param        limit           query  int     false  "Máximo 100"
// @Param        offset          query  int     false  "Desplazamiento"
// @Success      200  {object}  dto.TransactionListResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/inventory/inbound [get]
func (h *InventoryHandler) ListInbound(c *fiber.Ctx) error {
	return h.listTransactions(c, entity.TransactionTypeInbound)
}

// ListOutbound godoc
// @Summary      Listar despachos
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        tool_type_code  query  string  false  "Código de herramienta"
// @Param        factory_id      query  string  false  "Fábrica"
// @Param        from            query  string  false  "Desde (RFC3339 o YYYY-MM-DD)"
// @Param        to              query  string  false  "Hasta (RFC3339 o YYYY-MM-DD, inclusive)"
// @Param        limit           query  int     false  "Máximo 100"
// @Param        offset          query  int     false  "Desplazamiento"
// @Success      200  {object}  dto.TransactionListResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/inventory/outbound [get]
func (h *InventoryHandler) ListOutbound(c *fiber.Ctx) error {
	return h.listTransactions(c, entity.TransactionTypeOutbound)
}

func (h *InventoryHandler) listTransactions(c *fiber.Ctx, txType string) error {
	var q dto.TransactionListQuery
	if e := bindQuery(c, h.validate, &q); e != nil {
		return c.Status(fiber.StatusBadRequest).JSON(e)
	}
	from, err := parseDate(q.From, false)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.NewError("VALIDATION", "from: fecha inválida"))
	}
	to, err := parseDate(q.To, true)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.NewError("VALIDATION", "to: fecha inválida"))
	}
	page := dto.PageRequest{Limit: q.Limit, Offset: q.Offset}
	page.DefaultPage()

	list, err := h.coord.ListTransactions(c.UserContext(), q.ToolTypeCode, repository.TransactionFilter{
		FactoryID: q.FactoryID,
		Type:      txType,
		From:      from,
		To:        to,
		Limit:     page.Limit,
		Offset:    page.Offset,
	})
	if err != nil {
		return respondError(c, h.log, err, fiber.StatusNotFound)
	}
	items := make([]dto.TransactionResponse, 0, len(list))
	for _, t := range list {
		items = append(items, dto.FromTransaction(t))
	}
	return c.JSON(dto.TransactionListResponse{
		Success: true,
		Items:   items,
		Page:    dto.PageResponse{Limit: page.Limit, Offset: page.Offset, Total: len(items)},
	})
}

// ListStock godoc
// @Summary      Stock actual por tipo de herramienta y fábrica
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        factory_id  query  string  false  "Fábrica"
// @Param        status      query  string  false  "critical | low | sufficient"
// @Success      200  {object}  dto.StockListResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/inventory/stock [get]
func (h *InventoryHandler) ListStock(c *fiber.Ctx) error {
	var q dto.StockListQuery
	if e := bindQuery(c, h.validate, &q); e != nil {
		return c.Status(fiber.StatusBadRequest).JSON(e)
	}
	page := dto.PageRequest{Limit: q.Limit, Offset: q.Offset}
	page.DefaultPage()

	list, err := h.coord.Store().List(c.UserContext(), repository.AggregateFilter{
		FactoryID: q.FactoryID,
		Status:    q.Status,
		Limit:     page.Limit,
		Offset:    page.Offset,
	})
	if err != nil {
		return respondError(c, h.log, err, fiber.StatusNotFound)
	}
	items := make([]dto.AggregateResponse, 0, len(list))
	for _, a := range list {
		items = append(items, *dto.FromAggregate(a))
	}
	return c.JSON(dto.StockListResponse{
		Success: true,
		Items:   items,
		Page:    dto.PageResponse{Limit: page.Limit, Offset: page.Offset, Total: len(items)},
	})
}

// SetBounds godoc
// @Summary      Configurar stock mínimo/máximo
// @Tags         inventory
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        toolTypeCode  path      string             true  "Código de herramienta"
// @Param        body          body      dto.BoundsRequest  true  "minStock, maxStock, factoryId?"
// @Success      200           {object}  dto.AggregateResponse
// @Failure      400           {object}  dto.ErrorResponse
// @Failure      403           {object}  dto.ErrorResponse
// @Failure      404           {object}  dto.ErrorResponse
// @Router       /api/inventory/stock/{toolTypeCode}/bounds [put]
func (h *InventoryHandler) SetBounds(c *fiber.Ctx) error {
	var in dto.BoundsRequest
	if e := bindBody(c, h.validate, &in); e != nil {
		return c.Status(fiber.StatusBadRequest).JSON(e)
	}
	factoryID, ok := h.factoryFor(c, in.FactoryID)
	if !ok {
		return factoryForbidden(c)
	}
	agg, err := h.coord.SetBounds(c.UserContext(), c.Params("toolTypeCode"), factoryID, in.MinStock, in.MaxStock)
	if err != nil {
		return respondError(c, h.log, err, fiber.StatusNotFound)
	}
	return c.JSON(fiber.Map{"success": true, "aggregate": dto.FromAggregate(agg)})
}

// ToolChanges godoc
// @Summary      Historial de cambios de herramienta de una máquina
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        id     path   string  true   "ID o número de equipo"
// @Param        limit  query  int     false  "Máximo 100"
// @Success      200    {object}  dto.ToolChangeListResponse
// @Failure      404    {object}  dto.ErrorResponse
// @Router       /api/inventory/equipment/{id}/tool-changes [get]
func (h *InventoryHandler) ToolChanges(c *fiber.Ctx) error {
	list, err := h.coord.ToolChangesForEquipment(c.UserContext(), c.Params("id"), c.QueryInt("limit", 0))
	if err != nil {
		return respondError(c, h.log, err, fiber.StatusNotFound)
	}
	items := make([]dto.ToolChangeResponse, 0, len(list))
	for _, r := range list {
		items = append(items, *dto.FromToolChange(r))
	}
	return c.JSON(dto.ToolChangeListResponse{Success: true, Items: items})
}

func movementResponse(res *inventory.MovementResult) dto.MovementResponse {
	return dto.MovementResponse{
		Success:           true,
		Transaction:       dto.FromTransaction(res.Transaction),
		AggregateSnapshot: dto.FromAggregate(res.Aggregate),
		ToolChangeRecord:  dto.FromToolChange(res.ToolChange),
	}
}

// factoryFor usa la fábrica del body y, si falta, la del token. Una fábrica distinta a la del
// token sólo se acepta para los roles administradores; ok=false en otro caso.
func (h *InventoryHandler) factoryFor(c *fiber.Ctx, fromBody string) (string, bool) {
	fromToken := GetFactoryID(c)
	f := strings.TrimSpace(fromBody)
	if f == "" {
		return fromToken, true
	}
	if fromToken == "" || f == fromToken {
		return f, true
	}
	role := GetRole(c)
	for _, r := range h.adminRoles {
		if strings.EqualFold(r, role) {
			return f, true
		}
	}
	return "", false
}

func factoryForbidden(c *fiber.Ctx) error {
	return c.Status(fiber.StatusForbidden).JSON(dto.NewError("FACTORY_FORBIDDEN", "el token no permite operar sobre otra fábrica"))
}

// parseDate acepta RFC3339 o YYYY-MM-DD. Con endOfDay, una fecha sin hora cubre el día completo.
func parseDate(s string, endOfDay bool) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return &t, nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return nil, domain.Validationf("fecha inválida %q", s)
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return &t, nil
}
