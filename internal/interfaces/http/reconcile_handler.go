package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/jhoicas/endmill-ledger/internal/application/inventory"
)

// ReconcileHandler dispara la reconciliación ledger → agregados.
type ReconcileHandler struct {
	reconciler *inventory.Reconciler
	log        zerolog.Logger
}

// NewReconcileHandler construye el handler.
func NewReconcileHandler(reconciler *inventory.Reconciler, log zerolog.Logger) *ReconcileHandler {
	return &ReconcileHandler{reconciler: reconciler, log: log}
}

// Reconcile godoc
// @Summary      Recalcular stock desde el ledger
// @Description  Corrige la deriva entre current_stock y la suma de movimientos. Idempotente.
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        factory_id  query  string  false  "Limitar a una fábrica"
// @Success      200  {object}  inventory.ReconcileReport
// @Failure      500  {object}  dto.ErrorResponse
// @Router       /api/inventory/reconcile [post]
func (h *ReconcileHandler) Reconcile(c *fiber.Ctx) error {
	report, err := h.reconciler.ReconcileAll(c.UserContext(), c.Query("factory_id"))
	if err != nil {
		return respondError(c, h.log, err, fiber.StatusNotFound)
	}
	return c.JSON(fiber.Map{"success": true, "report": report})
}
