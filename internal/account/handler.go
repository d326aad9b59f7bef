package account

import (
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"github.com/finances-api/finances/internal/ledger"
	"github.com/finances-api/finances/internal/middleware"
)

// Handler exposes bank account HTTP endpoints.
type Handler struct {
	service *Service
}

// NewHandler builds a bank account HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type createRequest struct {
	Name    string          `json:"name"`
	Balance decimal.Decimal `json:"balance"`
	User    string          `json:"user"`
}

type updateRequest struct {
	Name string `json:"name"`
}

// Response is the wire shape of a bank account.
type Response struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Balance      decimal.Decimal `json:"balance"`
	User         string          `json:"user"`
	RegisterDate time.Time       `json:"registerDate"`
}

// NewResponse renders an account.
func NewResponse(a ledger.Account) Response {
	return Response{ID: a.ID, Name: a.Name, Balance: a.Balance, User: a.OwnerID, RegisterDate: a.CreatedAt}
}

// Create opens a bank account. The owner defaults to the caller.
func (h *Handler) Create(c *fiber.Ctx) error {
	var req createRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	p := middleware.CurrentPrincipal(c)
	if req.User == "" {
		req.User = p.UserID
	}
	account, err := h.service.Create(c.UserContext(), p, CreateInput{Name: req.Name, OwnerID: req.User, InitialBalance: req.Balance})
	if err != nil {
		return err
	}
	c.Location("/bank-accounts/" + account.ID)
	return c.Status(http.StatusCreated).JSON(NewResponse(account))
}

// FindByID returns one bank account.
func (h *Handler) FindByID(c *fiber.Ctx) error {
	account, err := h.service.FindByID(c.UserContext(), middleware.CurrentPrincipal(c), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(NewResponse(account))
}

// FindByUser lists the accounts of the user query parameter, defaulting to the caller.
func (h *Handler) FindByUser(c *fiber.Ctx) error {
	p := middleware.CurrentPrincipal(c)
	owner := c.Query("user", p.UserID)
	accounts, err := h.service.ListByOwner(c.UserContext(), p, owner)
	if err != nil {
		return err
	}
	out := make([]Response, len(accounts))
	for i, a := range accounts {
		out[i] = NewResponse(a)
	}
	return c.JSON(out)
}

// Update renames a bank account.
func (h *Handler) Update(c *fiber.Ctx) error {
	var req updateRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	account, err := h.service.Rename(c.UserContext(), middleware.CurrentPrincipal(c), c.Params("id"), req.Name)
	if err != nil {
		return err
	}
	return c.JSON(NewResponse(account))
}

// Delete removes a bank account and its movements.
func (h *Handler) Delete(c *fiber.Ctx) error {
	if err := h.service.DeleteByID(c.UserContext(), middleware.CurrentPrincipal(c), c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}
