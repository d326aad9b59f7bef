package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/finances-api/finances/internal/movement"
)

// RegisterMovementRoutes wires movement endpoints. The input/output paths
// are kept as aliases of credit/debit.
func RegisterMovementRoutes(r fiber.Router, h *movement.Handler) {
	group := r.Group("/movements")
	group.Post("/credit", h.Credit)
	group.Post("/input", h.Credit)
	group.Post("/debit", h.Debit)
	group.Post("/output", h.Debit)
	group.Get("/search", h.Search)
	group.Get("/:id", h.FindByID)
	group.Delete("/:id", h.Delete)
}
