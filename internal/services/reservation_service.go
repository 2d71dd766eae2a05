package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nmrios/CanchaBack/internal/models"
	"github.com/nmrios/CanchaBack/internal/repository"
)

type clientDirectory interface {
	Exists(ctx context.Context, id int64) (bool, error)
}

type userDirectory interface {
	Exists(ctx context.Context, id int64) (bool, error)
}

type courtDirectory interface {
	Exists(ctx context.Context, id int64) (bool, error)
}

// ReservationService owns every business transition of a slot except the
// checkout flow, which belongs to PaymentService. All transitions are
// conditional updates; a lost race surfaces as ErrConflict, never as a
// silent overwrite.
type ReservationService struct {
	db       *pgxpool.Pool
	slotRepo *repository.SlotRepository
	clients  clientDirectory
	users    userDirectory
	courts   courtDirectory
	now      func() time.Time
}

func NewReservationService(
	db *pgxpool.Pool,
	slotRepo *repository.SlotRepository,
	clients clientDirectory,
	users userDirectory,
	courts courtDirectory,
) *ReservationService {
	return &ReservationService{
		db:       db,
		slotRepo: slotRepo,
		clients:  clients,
		users:    users,
		courts:   courts,
		now:      time.Now,
	}
}

// RegisterReservation books an available slot directly for a client.
func (s *ReservationService) RegisterReservation(
	ctx context.Context,
	slotID int64,
	clientID int64,
	registeringUserID int64,
) (*models.Slot, error) {
	exists, err := s.clients.Exists(ctx, clientID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrNotFound
	}

	slot, err := s.slotRepo.GetByID(ctx, slotID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if slot.State != models.SlotAvailable {
		return nil, ErrConflict
	}

	reserved, err := s.slotRepo.Reserve(ctx, slotID, clientID, registeringUserID, s.now().UTC())
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Someone else claimed the slot between the read and the update.
			return nil, ErrConflict
		}
		return nil, err
	}
	return reserved, nil
}

// ConsultSlot fetches a slot. When an owning-client filter is supplied the
// slot must be occupied by that client; otherwise the caller gets
// ErrForbidden rather than a detail-leaking not-found.
func (s *ReservationService) ConsultSlot(
	ctx context.Context,
	slotID int64,
	owningClientID *int64,
) (*models.Slot, error) {
	slot, err := s.slotRepo.GetByID(ctx, slotID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if owningClientID != nil {
		if slot.ClientID == nil || *slot.ClientID != *owningClientID {
			return nil, ErrForbidden
		}
	}
	return slot, nil
}

func (s *ReservationService) ListReservationsForClient(
	ctx context.Context,
	clientID int64,
	courtID *int64,
	state *string,
) ([]models.Slot, error) {
	if state != nil && !models.IsValidSlotState(*state) {
		return nil, ErrInvalidInput
	}

	exists, err := s.clients.Exists(ctx, clientID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrNotFound
	}

	return s.slotRepo.ListByClient(ctx, repository.SlotListFilter{
		ClientID: clientID,
		CourtID:  courtID,
		State:    state,
	})
}

// ReservationPatch is the partial update accepted by ModifyReservation.
type ReservationPatch struct {
	ClientID   *int64
	FinalPrice *float64
}

// ModifyReservation patches a reserved slot. The modifier is stamped as the
// last registering user for the audit trail.
func (s *ReservationService) ModifyReservation(
	ctx context.Context,
	slotID int64,
	patch ReservationPatch,
	modifyingUserID int64,
) (*models.Slot, error) {
	if patch.ClientID == nil && patch.FinalPrice == nil {
		return nil, ErrInvalidInput
	}
	if patch.FinalPrice != nil && *patch.FinalPrice < 0 {
		return nil, ErrInvalidInput
	}

	exists, err := s.users.Exists(ctx, modifyingUserID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrNotFound
	}

	if patch.ClientID != nil {
		exists, err := s.clients.Exists(ctx, *patch.ClientID)
		if err != nil {
			return nil, err
		}
		if !exists {
			return nil, ErrNotFound
		}
	}

	slot, err := s.slotRepo.GetByID(ctx, slotID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if slot.State != models.SlotReserved {
		return nil, ErrConflict
	}

	updated, err := s.slotRepo.UpdateReservation(ctx, slotID, patch.ClientID, patch.FinalPrice, modifyingUserID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrConflict
		}
		return nil, err
	}
	return updated, nil
}

// CancelReservation returns a reserved slot to available, clearing the
// occupant fields.
func (s *ReservationService) CancelReservation(
	ctx context.Context,
	slotID int64,
	cancellingUserID int64,
) (*models.Slot, error) {
	exists, err := s.users.Exists(ctx, cancellingUserID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrNotFound
	}

	slot, err := s.slotRepo.GetByID(ctx, slotID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if slot.State != models.SlotReserved {
		return nil, ErrConflict
	}

	released, err := s.slotRepo.Release(ctx, slotID, models.SlotReserved)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrConflict
		}
		return nil, err
	}
	return released, nil
}

type CreateSlotInput struct {
	CourtID    int64
	StartsAt   time.Time
	EndsAt     time.Time
	FinalPrice float64
}

// CreateSlot inserts a new available slot after checking the interval does
// not overlap existing inventory on the court. The overlap check and the
// insert run in one transaction under a per-court advisory lock so two
// concurrent creates cannot both pass the check.
func (s *ReservationService) CreateSlot(ctx context.Context, input CreateSlotInput) (*models.Slot, error) {
	if !input.StartsAt.Before(input.EndsAt) {
		return nil, ErrInvalidInput
	}
	if !input.StartsAt.After(s.now()) {
		return nil, ErrInvalidInput
	}
	if input.FinalPrice < 0 {
		return nil, ErrInvalidInput
	}

	exists, err := s.courts.Exists(ctx, input.CourtID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrNotFound
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	txSlotRepo := repository.NewSlotRepository(tx)

	if _, err := tx.Exec(ctx, "SELECT pg_advisory_xact_lock($1)", input.CourtID); err != nil {
		return nil, err
	}

	overlaps, err := txSlotRepo.HasOverlap(ctx, input.CourtID, input.StartsAt.UTC(), input.EndsAt.UTC(), nil)
	if err != nil {
		return nil, err
	}
	if overlaps {
		return nil, ErrConflict
	}

	slot, err := txSlotRepo.Create(ctx, repository.CreateSlotInput{
		CourtID:    input.CourtID,
		StartsAt:   input.StartsAt.UTC(),
		EndsAt:     input.EndsAt.UTC(),
		FinalPrice: input.FinalPrice,
	})
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return slot, nil
}

// BlockSlot takes an available slot out of the booking flow, keeping who
// blocked it and why.
func (s *ReservationService) BlockSlot(
	ctx context.Context,
	slotID int64,
	blockingUserID int64,
	reason string,
) (*models.Slot, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, ErrInvalidInput
	}

	exists, err := s.users.Exists(ctx, blockingUserID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrNotFound
	}

	slot, err := s.slotRepo.GetByID(ctx, slotID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if slot.State != models.SlotAvailable {
		return nil, ErrConflict
	}

	blocked, err := s.slotRepo.Block(ctx, slotID, blockingUserID, reason)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrConflict
		}
		return nil, err
	}
	return blocked, nil
}

// CloseSlot applies an administrative terminal marker to a slot. Already
// finished or cancelled slots cannot be closed again.
func (s *ReservationService) CloseSlot(ctx context.Context, slotID int64, state string) (*models.Slot, error) {
	switch state {
	case models.SlotFinished, models.SlotCancelled, models.SlotUnavailable:
	default:
		return nil, ErrInvalidInput
	}

	slot, err := s.slotRepo.GetByID(ctx, slotID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if models.IsTerminalSlotState(slot.State) {
		return nil, ErrConflict
	}

	closed, err := s.slotRepo.Close(ctx, slotID, state)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrConflict
		}
		return nil, err
	}
	return closed, nil
}
