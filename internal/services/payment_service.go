package services

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nmrios/CanchaBack/internal/models"
	"github.com/nmrios/CanchaBack/internal/repository"
)

// DefaultHoldWindow bounds how long an initiated hold keeps its slot before
// the sweeper reclaims it.
const DefaultHoldWindow = 10 * time.Minute

// PaymentService owns the payment hold lifecycle and the checkout workflow
// that couples a hold to its slot. Hold transitions and slot transitions are
// two separate writes so either side can be retried on its own.
type PaymentService struct {
	db         *pgxpool.Pool
	holdRepo   *repository.HoldRepository
	slotRepo   *repository.SlotRepository
	clients    clientDirectory
	holdWindow time.Duration
	now        func() time.Time
}

func NewPaymentService(
	db *pgxpool.Pool,
	holdRepo *repository.HoldRepository,
	slotRepo *repository.SlotRepository,
	clients clientDirectory,
	holdWindow time.Duration,
) *PaymentService {
	if holdWindow <= 0 {
		holdWindow = DefaultHoldWindow
	}
	return &PaymentService{
		db:         db,
		holdRepo:   holdRepo,
		slotRepo:   slotRepo,
		clients:    clients,
		holdWindow: holdWindow,
		now:        time.Now,
	}
}

type OpenHoldInput struct {
	ClientID     int64
	RegisteredBy *int64
	BaseAmount   float64
	ExtrasAmount float64
	Method       *string
}

func (s *PaymentService) validateHoldInput(ctx context.Context, input OpenHoldInput) error {
	if input.BaseAmount < 0 || input.ExtrasAmount < 0 {
		return ErrInvalidInput
	}
	exists, err := s.clients.Exists(ctx, input.ClientID)
	if err != nil {
		return err
	}
	if !exists {
		return ErrNotFound
	}
	return nil
}

// OpenHoldForSlot creates an initiated hold against a slot. The slot's state
// is not touched here; whether the slot moves to pending_payment is the
// calling workflow's call (see BeginCheckout). The existence check, the
// active-hold check and the insert share one transaction with the slot row
// locked so two concurrent opens cannot both pass.
func (s *PaymentService) OpenHoldForSlot(
	ctx context.Context,
	slotID int64,
	input OpenHoldInput,
) (*models.PaymentHold, error) {
	if err := s.validateHoldInput(ctx, input); err != nil {
		return nil, err
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	txSlotRepo := repository.NewSlotRepository(tx)
	txHoldRepo := repository.NewHoldRepository(tx)

	if _, err := txSlotRepo.GetByIDForUpdate(ctx, slotID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	active, err := txHoldRepo.HasActiveForSlot(ctx, slotID)
	if err != nil {
		return nil, err
	}
	if active {
		return nil, ErrConflict
	}

	hold, err := txHoldRepo.Create(ctx, s.buildHold(&slotID, nil, input))
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return hold, nil
}

// OpenHoldForEntry creates a hold against a tournament entry instead of a
// slot. Entries are billed outside the slot machine, so no slot coupling.
func (s *PaymentService) OpenHoldForEntry(
	ctx context.Context,
	entryID int64,
	input OpenHoldInput,
) (*models.PaymentHold, error) {
	if err := s.validateHoldInput(ctx, input); err != nil {
		return nil, err
	}
	return s.holdRepo.Create(ctx, s.buildHold(nil, &entryID, input))
}

func (s *PaymentService) buildHold(slotID, entryID *int64, input OpenHoldInput) repository.CreateHoldInput {
	return repository.CreateHoldInput{
		SlotID:       slotID,
		EntryID:      entryID,
		BaseAmount:   input.BaseAmount,
		ExtrasAmount: input.ExtrasAmount,
		TotalAmount:  input.BaseAmount + input.ExtrasAmount,
		ClientID:     input.ClientID,
		RegisteredBy: input.RegisteredBy,
		Method:       input.Method,
		ExpiresAt:    s.now().UTC().Add(s.holdWindow),
	}
}

// Confirm completes an initiated, unexpired hold. The associated slot is not
// promoted here; CompleteCheckout does that as a second step.
func (s *PaymentService) Confirm(
	ctx context.Context,
	holdID int64,
	method *string,
	gatewayRef *string,
) (*models.PaymentHold, error) {
	hold, err := s.holdRepo.GetByID(ctx, holdID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if hold.State != models.HoldInitiated {
		return nil, ErrConflict
	}

	now := s.now().UTC()
	if hold.ExpiresAt != nil && now.After(*hold.ExpiresAt) {
		return nil, ErrConflict
	}

	completed, err := s.holdRepo.Complete(ctx, holdID, method, gatewayRef, now)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrConflict
		}
		return nil, err
	}
	return completed, nil
}

// Fail marks a hold failed whatever its current state, so retrying a sweep
// over a half-processed hold is harmless.
func (s *PaymentService) Fail(ctx context.Context, holdID int64) (*models.PaymentHold, error) {
	hold, err := s.holdRepo.MarkFailed(ctx, holdID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return hold, nil
}

func (s *PaymentService) GetHold(ctx context.Context, holdID int64) (*models.PaymentHold, error) {
	hold, err := s.holdRepo.GetByID(ctx, holdID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return hold, nil
}

type CheckoutInput struct {
	ClientID     int64
	RegisteredBy *int64
	ExtrasAmount float64
	Method       *string
}

// BeginCheckout claims an available slot for a client and opens the payment
// hold in a single transaction: available -> pending_payment plus an
// initiated hold priced from the slot. Either both happen or neither.
func (s *PaymentService) BeginCheckout(
	ctx context.Context,
	slotID int64,
	input CheckoutInput,
) (*models.CheckoutDetail, error) {
	if input.ExtrasAmount < 0 {
		return nil, ErrInvalidInput
	}
	exists, err := s.clients.Exists(ctx, input.ClientID)
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
	txHoldRepo := repository.NewHoldRepository(tx)

	slot, err := txSlotRepo.GetByIDForUpdate(ctx, slotID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if slot.State != models.SlotAvailable {
		return nil, ErrConflict
	}

	active, err := txHoldRepo.HasActiveForSlot(ctx, slotID)
	if err != nil {
		return nil, err
	}
	if active {
		return nil, ErrConflict
	}

	claimed, err := txSlotRepo.ClaimForCheckout(ctx, slotID, input.ClientID, input.RegisteredBy, s.now().UTC())
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrConflict
		}
		return nil, err
	}

	hold, err := txHoldRepo.Create(ctx, s.buildHold(&slotID, nil, OpenHoldInput{
		ClientID:     input.ClientID,
		RegisteredBy: input.RegisteredBy,
		BaseAmount:   slot.FinalPrice,
		ExtrasAmount: input.ExtrasAmount,
		Method:       input.Method,
	}))
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return &models.CheckoutDetail{Slot: *claimed, Hold: *hold}, nil
}

// CompleteCheckout confirms the hold, then promotes the slot to reserved as
// a second conditional update. A retry that finds the slot already reserved
// by the same checkout succeeds.
func (s *PaymentService) CompleteCheckout(
	ctx context.Context,
	holdID int64,
	method *string,
	gatewayRef *string,
) (*models.CheckoutDetail, error) {
	hold, err := s.Confirm(ctx, holdID, method, gatewayRef)
	if err != nil {
		return nil, err
	}
	if hold.SlotID == nil {
		return nil, ErrInvalidInput
	}

	slot, err := s.slotRepo.PromoteToReserved(ctx, *hold.SlotID)
	if err == nil {
		return &models.CheckoutDetail{Slot: *slot, Hold: *hold}, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	// The slot already left pending_payment. Retried completions land here.
	current, err := s.slotRepo.GetByID(ctx, *hold.SlotID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if current.State != models.SlotReserved {
		return nil, ErrConflict
	}
	return &models.CheckoutDetail{Slot: *current, Hold: *hold}, nil
}

// FailAndRelease fails a hold and, when it references a slot, returns the
// slot to available. The release is tolerant: a slot that already moved on
// is left alone.
func (s *PaymentService) FailAndRelease(ctx context.Context, holdID int64) (*models.PaymentHold, error) {
	hold, err := s.Fail(ctx, holdID)
	if err != nil {
		return nil, err
	}
	if hold.SlotID != nil {
		if _, err := s.slotRepo.Release(ctx, *hold.SlotID, models.SlotPendingPayment); err != nil &&
			!errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
	}
	return hold, nil
}

// SweepExpired fails every initiated hold past its expiry and frees the
// slots they were claiming. One bad hold does not stop the rest; failures
// are logged and skipped. Returns the number of holds processed.
func (s *PaymentService) SweepExpired(ctx context.Context) (int, error) {
	expired, err := s.holdRepo.ListExpired(ctx, s.now().UTC())
	if err != nil {
		return 0, err
	}

	processed := 0
	for _, hold := range expired {
		if _, err := s.FailAndRelease(ctx, hold.ID); err != nil {
			log.Printf("sweep: hold %d: %v", hold.ID, err)
			continue
		}
		processed++
	}
	return processed, nil
}
