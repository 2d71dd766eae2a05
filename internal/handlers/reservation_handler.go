package handlers

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/nmrios/CanchaBack/internal/models"
	"github.com/nmrios/CanchaBack/internal/services"
)

type reservationApplicationService interface {
	RegisterReservation(ctx context.Context, slotID, clientID, registeringUserID int64) (*models.Slot, error)
	ConsultSlot(ctx context.Context, slotID int64, owningClientID *int64) (*models.Slot, error)
	ListReservationsForClient(ctx context.Context, clientID int64, courtID *int64, state *string) ([]models.Slot, error)
	ModifyReservation(ctx context.Context, slotID int64, patch services.ReservationPatch, modifyingUserID int64) (*models.Slot, error)
	CancelReservation(ctx context.Context, slotID, cancellingUserID int64) (*models.Slot, error)
	CreateSlot(ctx context.Context, input services.CreateSlotInput) (*models.Slot, error)
	BlockSlot(ctx context.Context, slotID, blockingUserID int64, reason string) (*models.Slot, error)
	CloseSlot(ctx context.Context, slotID int64, state string) (*models.Slot, error)
}

type ReservationHandler struct {
	service reservationApplicationService
}

func NewReservationHandler(service *services.ReservationService) *ReservationHandler {
	return &ReservationHandler{service: service}
}

type createSlotRequest struct {
	CourtID    int64   `json:"court_id"`
	StartsAt   string  `json:"starts_at"`
	EndsAt     string  `json:"ends_at"`
	FinalPrice float64 `json:"final_price"`
}

type registerReservationRequest struct {
	ClientID int64 `json:"client_id"`
}

type modifyReservationRequest struct {
	ClientID   *int64   `json:"client_id"`
	FinalPrice *float64 `json:"final_price"`
}

type blockSlotRequest struct {
	Reason string `json:"reason"`
}

type closeSlotRequest struct {
	State string `json:"state"`
}

func parseSlotID(c *fiber.Ctx) (int64, bool) {
	slotID, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || slotID <= 0 {
		return 0, false
	}
	return slotID, true
}

func (h *ReservationHandler) CreateSlot(c *fiber.Ctx) error {
	if !isStaff(c) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	}

	var req createSlotRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	startsAt, err := time.Parse(time.RFC3339, strings.TrimSpace(req.StartsAt))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "starts_at must be a valid RFC3339 timestamp"})
	}
	endsAt, err := time.Parse(time.RFC3339, strings.TrimSpace(req.EndsAt))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "ends_at must be a valid RFC3339 timestamp"})
	}

	slot, err := h.service.CreateSlot(c.Context(), services.CreateSlotInput{
		CourtID:    req.CourtID,
		StartsAt:   startsAt,
		EndsAt:     endsAt,
		FinalPrice: req.FinalPrice,
	})
	if err != nil {
		return mapServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"slot": slot})
}

func (h *ReservationHandler) GetSlot(c *fiber.Ctx) error {
	slotID, ok := parseSlotID(c)
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid slot id"})
	}

	var owningClientID *int64
	if raw := strings.TrimSpace(c.Query("client_id")); raw != "" {
		clientID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || clientID <= 0 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid client id"})
		}
		owningClientID = &clientID
	}

	slot, err := h.service.ConsultSlot(c.Context(), slotID, owningClientID)
	if err != nil {
		return mapServiceError(c, err)
	}

	return c.JSON(fiber.Map{"slot": slot})
}

func (h *ReservationHandler) RegisterReservation(c *fiber.Ctx) error {
	if !isStaff(c) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	}

	actorID, err := parseActorID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	slotID, ok := parseSlotID(c)
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid slot id"})
	}

	var req registerReservationRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if req.ClientID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "client_id must be greater than 0"})
	}

	slot, err := h.service.RegisterReservation(c.Context(), slotID, req.ClientID, actorID)
	if err != nil {
		return mapServiceError(c, err)
	}

	return c.JSON(fiber.Map{"slot": slot})
}

func (h *ReservationHandler) ListClientReservations(c *fiber.Ctx) error {
	clientID, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || clientID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid client id"})
	}

	var courtID *int64
	if raw := strings.TrimSpace(c.Query("court_id")); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid court id"})
		}
		courtID = &id
	}

	var state *string
	if raw := strings.TrimSpace(c.Query("state")); raw != "" {
		state = &raw
	}

	slots, err := h.service.ListReservationsForClient(c.Context(), clientID, courtID, state)
	if err != nil {
		return mapServiceError(c, err)
	}

	return c.JSON(fiber.Map{"reservations": slots})
}

func (h *ReservationHandler) ModifyReservation(c *fiber.Ctx) error {
	if !isStaff(c) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	}

	actorID, err := parseActorID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	slotID, ok := parseSlotID(c)
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid slot id"})
	}

	var req modifyReservationRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	slot, err := h.service.ModifyReservation(c.Context(), slotID, services.ReservationPatch{
		ClientID:   req.ClientID,
		FinalPrice: req.FinalPrice,
	}, actorID)
	if err != nil {
		return mapServiceError(c, err)
	}

	return c.JSON(fiber.Map{"slot": slot})
}

func (h *ReservationHandler) CancelReservation(c *fiber.Ctx) error {
	if !isStaff(c) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	}

	actorID, err := parseActorID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	slotID, ok := parseSlotID(c)
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid slot id"})
	}

	slot, err := h.service.CancelReservation(c.Context(), slotID, actorID)
	if err != nil {
		return mapServiceError(c, err)
	}

	return c.JSON(fiber.Map{"slot": slot})
}

func (h *ReservationHandler) BlockSlot(c *fiber.Ctx) error {
	if !isStaff(c) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	}

	actorID, err := parseActorID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	slotID, ok := parseSlotID(c)
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid slot id"})
	}

	var req blockSlotRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	slot, err := h.service.BlockSlot(c.Context(), slotID, actorID, req.Reason)
	if err != nil {
		return mapServiceError(c, err)
	}

	return c.JSON(fiber.Map{"slot": slot})
}

func (h *ReservationHandler) CloseSlot(c *fiber.Ctx) error {
	if !isStaff(c) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	}

	slotID, ok := parseSlotID(c)
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid slot id"})
	}

	var req closeSlotRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	slot, err := h.service.CloseSlot(c.Context(), slotID, strings.TrimSpace(req.State))
	if err != nil {
		return mapServiceError(c, err)
	}

	return c.JSON(fiber.Map{"slot": slot})
}
