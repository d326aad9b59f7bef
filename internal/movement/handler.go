package movement

import (
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"github.com/finances-api/finances/internal/ledger"
	"github.com/finances-api/finances/internal/middleware"
)

// Handler exposes movement HTTP endpoints.
type Handler struct {
	service *Service
}

// NewHandler builds a movement HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type recordRequest struct {
	Value       decimal.Decimal `json:"value"`
	BankAccount string          `json:"bankAccount"`
}

type movementResponse struct {
	ID           string           `json:"id"`
	MovementType ledger.Direction `json:"movementType"`
	Value        decimal.Decimal  `json:"value"`
	RegisterDate time.Time        `json:"registerDate"`
	BankAccount  string           `json:"bankAccount"`
}

func toResponse(m ledger.Movement) movementResponse {
	return movementResponse{ID: m.ID, MovementType: m.Direction, Value: m.Amount, RegisterDate: m.CreatedAt, BankAccount: m.AccountID}
}

// Credit records an incoming movement.
func (h *Handler) Credit(c *fiber.Ctx) error {
	return h.record(c, ledger.Credit)
}

// Debit records an outgoing movement.
func (h *Handler) Debit(c *fiber.Ctx) error {
	return h.record(c, ledger.Debit)
}

func (h *Handler) record(c *fiber.Ctx, d ledger.Direction) error {
	var req recordRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	m, err := h.service.Record(c.UserContext(), middleware.CurrentPrincipal(c), RecordInput{Direction: d, Amount: req.Value, AccountID: req.BankAccount})
	if err != nil {
		return err
	}
	c.Location("/movements/" + m.ID)
	return c.Status(http.StatusCreated).JSON(toResponse(m))
}

// FindByID returns one movement.
func (h *Handler) FindByID(c *fiber.Ctx) error {
	m, err := h.service.FindByID(c.UserContext(), middleware.CurrentPrincipal(c), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(toResponse(m))
}

// Search lists the movements of bankAccount between the start and end
// query parameters, both RFC 3339 and inclusive.
func (h *Handler) Search(c *fiber.Ctx) error {
	accountID := c.Query("bankAccount")
	if accountID == "" {
		return fiber.NewError(http.StatusBadRequest, "bankAccount is required")
	}
	start, err := time.Parse(time.RFC3339, c.Query("start"))
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, "start must be an RFC 3339 timestamp")
	}
	end, err := time.Parse(time.RFC3339, c.Query("end"))
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, "end must be an RFC 3339 timestamp")
	}

	movements, err := h.service.FindByPeriodAndAccount(c.UserContext(), middleware.CurrentPrincipal(c), start, end, accountID)
	if err != nil {
		return err
	}
	out := make([]movementResponse, len(movements))
	for i, m := range movements {
		out[i] = toResponse(m)
	}
	return c.JSON(out)
}

// Delete reverses and removes a movement.
func (h *Handler) Delete(c *fiber.Ctx) error {
	if err := h.service.Remove(c.UserContext(), middleware.CurrentPrincipal(c), c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}
