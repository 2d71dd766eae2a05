package handlers

import (
	"context"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/nmrios/CanchaBack/internal/models"
	"github.com/nmrios/CanchaBack/internal/services"
)

type paymentApplicationService interface {
	BeginCheckout(ctx context.Context, slotID int64, input services.CheckoutInput) (*models.CheckoutDetail, error)
	CompleteCheckout(ctx context.Context, holdID int64, method, gatewayRef *string) (*models.CheckoutDetail, error)
	OpenHoldForEntry(ctx context.Context, entryID int64, input services.OpenHoldInput) (*models.PaymentHold, error)
	FailAndRelease(ctx context.Context, holdID int64) (*models.PaymentHold, error)
	GetHold(ctx context.Context, holdID int64) (*models.PaymentHold, error)
}

type PaymentHandler struct {
	service paymentApplicationService
}

func NewPaymentHandler(service *services.PaymentService) *PaymentHandler {
	return &PaymentHandler{service: service}
}

type beginCheckoutRequest struct {
	ClientID     int64   `json:"client_id"`
	ExtrasAmount float64 `json:"extras_amount"`
	Method       *string `json:"method"`
}

type completeCheckoutRequest struct {
	Method     *string `json:"method"`
	GatewayRef *string `json:"gateway_ref"`
}

type openEntryHoldRequest struct {
	ClientID     int64   `json:"client_id"`
	BaseAmount   float64 `json:"base_amount"`
	ExtrasAmount float64 `json:"extras_amount"`
	Method       *string `json:"method"`
}

func parseHoldID(c *fiber.Ctx) (int64, bool) {
	holdID, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || holdID <= 0 {
		return 0, false
	}
	return holdID, true
}

func (h *PaymentHandler) BeginCheckout(c *fiber.Ctx) error {
	actorID, err := parseActorID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	slotID, ok := parseSlotID(c)
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid slot id"})
	}

	var req beginCheckoutRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if req.ClientID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "client_id must be greater than 0"})
	}

	detail, err := h.service.BeginCheckout(c.Context(), slotID, services.CheckoutInput{
		ClientID:     req.ClientID,
		RegisteredBy: &actorID,
		ExtrasAmount: req.ExtrasAmount,
		Method:       req.Method,
	})
	if err != nil {
		return mapServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"checkout": detail})
}

func (h *PaymentHandler) CompleteCheckout(c *fiber.Ctx) error {
	holdID, ok := parseHoldID(c)
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid payment id"})
	}

	var req completeCheckoutRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	detail, err := h.service.CompleteCheckout(c.Context(), holdID, req.Method, req.GatewayRef)
	if err != nil {
		return mapServiceError(c, err)
	}

	return c.JSON(fiber.Map{"checkout": detail})
}

func (h *PaymentHandler) OpenEntryHold(c *fiber.Ctx) error {
	actorID, err := parseActorID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	entryID, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || entryID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid entry id"})
	}

	var req openEntryHoldRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if req.ClientID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "client_id must be greater than 0"})
	}

	hold, err := h.service.OpenHoldForEntry(c.Context(), entryID, services.OpenHoldInput{
		ClientID:     req.ClientID,
		RegisteredBy: &actorID,
		BaseAmount:   req.BaseAmount,
		ExtrasAmount: req.ExtrasAmount,
		Method:       req.Method,
	})
	if err != nil {
		return mapServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"hold": hold})
}

func (h *PaymentHandler) FailHold(c *fiber.Ctx) error {
	if !isStaff(c) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	}

	holdID, ok := parseHoldID(c)
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid payment id"})
	}

	hold, err := h.service.FailAndRelease(c.Context(), holdID)
	if err != nil {
		return mapServiceError(c, err)
	}

	return c.JSON(fiber.Map{"hold": hold})
}

func (h *PaymentHandler) GetHold(c *fiber.Ctx) error {
	holdID, ok := parseHoldID(c)
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid payment id"})
	}

	hold, err := h.service.GetHold(c.Context(), holdID)
	if err != nil {
		return mapServiceError(c, err)
	}

	return c.JSON(fiber.Map{"hold": hold})
}
