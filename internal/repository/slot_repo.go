package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/nmrios/CanchaBack/internal/models"
)

const slotColumns = `id, court_id, starts_at, ends_at, state, final_price,
		client_id, registered_by, reserved_at, blocked_by, block_reason,
		created_at, updated_at`

type CreateSlotInput struct {
	CourtID    int64
	StartsAt   time.Time
	EndsAt     time.Time
	FinalPrice float64
}

type SlotListFilter struct {
	ClientID int64
	CourtID  *int64
	State    *string
}

type SlotRepository struct {
	db DBTX
}

func NewSlotRepository(db DBTX) *SlotRepository {
	return &SlotRepository{db: db}
}

func scanSlot(row pgx.Row) (*models.Slot, error) {
	var slot models.Slot
	err := row.Scan(
		&slot.ID,
		&slot.CourtID,
		&slot.StartsAt,
		&slot.EndsAt,
		&slot.State,
		&slot.FinalPrice,
		&slot.ClientID,
		&slot.RegisteredBy,
		&slot.ReservedAt,
		&slot.BlockedBy,
		&slot.BlockReason,
		&slot.CreatedAt,
		&slot.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &slot, nil
}

func (r *SlotRepository) Create(ctx context.Context, input CreateSlotInput) (*models.Slot, error) {
	query := `
		INSERT INTO slots (court_id, starts_at, ends_at, state, final_price)
		VALUES ($1, $2, $3, 'available', $4)
		RETURNING ` + slotColumns

	return scanSlot(r.db.QueryRow(
		ctx,
		query,
		input.CourtID,
		input.StartsAt,
		input.EndsAt,
		input.FinalPrice,
	))
}

func (r *SlotRepository) GetByID(ctx context.Context, slotID int64) (*models.Slot, error) {
	query := `
		SELECT ` + slotColumns + `
		FROM slots
		WHERE id = $1
	`
	return scanSlot(r.db.QueryRow(ctx, query, slotID))
}

func (r *SlotRepository) GetByIDForUpdate(ctx context.Context, slotID int64) (*models.Slot, error) {
	query := `
		SELECT ` + slotColumns + `
		FROM slots
		WHERE id = $1
		FOR UPDATE
	`
	return scanSlot(r.db.QueryRow(ctx, query, slotID))
}

func (r *SlotRepository) ListByClient(ctx context.Context, filter SlotListFilter) ([]models.Slot, error) {
	args := []any{filter.ClientID}
	whereParts := []string{"client_id = $1"}

	if filter.CourtID != nil {
		args = append(args, *filter.CourtID)
		whereParts = append(whereParts, fmt.Sprintf("court_id = $%d", len(args)))
	}
	if filter.State != nil {
		args = append(args, *filter.State)
		whereParts = append(whereParts, fmt.Sprintf("state = $%d", len(args)))
	}

	query := fmt.Sprintf(`
		SELECT `+slotColumns+`
		FROM slots
		WHERE %s
		ORDER BY starts_at ASC, id ASC
	`, strings.Join(whereParts, " AND "))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	slots := make([]models.Slot, 0)
	for rows.Next() {
		slot, err := scanSlot(rows)
		if err != nil {
			return nil, err
		}
		slots = append(slots, *slot)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return slots, nil
}

// HasOverlap reports whether any slot on the court occupies part of the
// half-open interval [start, end). All states count: blocked, cancelled and
// reserved slots still hold their place on the timeline.
func (r *SlotRepository) HasOverlap(
	ctx context.Context,
	courtID int64,
	start time.Time,
	end time.Time,
	excludeID *int64,
) (bool, error) {
	args := []any{courtID, end, start}
	query := `
		SELECT EXISTS (
			SELECT 1
			FROM slots
			WHERE court_id = $1
			  AND starts_at < $2
			  AND ends_at > $3
	`
	if excludeID != nil {
		args = append(args, *excludeID)
		query += fmt.Sprintf("  AND id <> $%d\n", len(args))
	}
	query += ")"

	var overlaps bool
	if err := r.db.QueryRow(ctx, query, args...).Scan(&overlaps); err != nil {
		return false, err
	}
	return overlaps, nil
}

// Reserve moves an available slot directly to reserved, recording the
// occupant. Returns pgx.ErrNoRows when the slot was not available.
func (r *SlotRepository) Reserve(
	ctx context.Context,
	slotID int64,
	clientID int64,
	registeredBy int64,
	reservedAt time.Time,
) (*models.Slot, error) {
	query := `
		UPDATE slots
		SET state = 'reserved', client_id = $2, registered_by = $3, reserved_at = $4,
		    blocked_by = NULL, block_reason = NULL, updated_at = NOW()
		WHERE id = $1 AND state = 'available'
		RETURNING ` + slotColumns

	return scanSlot(r.db.QueryRow(ctx, query, slotID, clientID, registeredBy, reservedAt))
}

// ClaimForCheckout moves an available slot to pending_payment, recording the
// occupant so the slot can be promoted to reserved on confirmation.
func (r *SlotRepository) ClaimForCheckout(
	ctx context.Context,
	slotID int64,
	clientID int64,
	registeredBy *int64,
	reservedAt time.Time,
) (*models.Slot, error) {
	query := `
		UPDATE slots
		SET state = 'pending_payment', client_id = $2, registered_by = $3, reserved_at = $4,
		    updated_at = NOW()
		WHERE id = $1 AND state = 'available'
		RETURNING ` + slotColumns

	return scanSlot(r.db.QueryRow(ctx, query, slotID, clientID, registeredBy, reservedAt))
}

// PromoteToReserved completes the checkout flow, pending_payment -> reserved.
func (r *SlotRepository) PromoteToReserved(ctx context.Context, slotID int64) (*models.Slot, error) {
	query := `
		UPDATE slots
		SET state = 'reserved', updated_at = NOW()
		WHERE id = $1 AND state = 'pending_payment'
		RETURNING ` + slotColumns

	return scanSlot(r.db.QueryRow(ctx, query, slotID))
}

// Release returns a slot from currentState to available, clearing occupant
// and block fields. Used for cancellations and expired checkouts.
func (r *SlotRepository) Release(ctx context.Context, slotID int64, currentState string) (*models.Slot, error) {
	query := `
		UPDATE slots
		SET state = 'available', client_id = NULL, registered_by = NULL, reserved_at = NULL,
		    blocked_by = NULL, block_reason = NULL, updated_at = NOW()
		WHERE id = $1 AND state = $2
		RETURNING ` + slotColumns

	return scanSlot(r.db.QueryRow(ctx, query, slotID, currentState))
}

// UpdateReservation patches the occupant client and/or final price of a
// reserved slot, stamping registered_by with the last modifier.
func (r *SlotRepository) UpdateReservation(
	ctx context.Context,
	slotID int64,
	newClientID *int64,
	newFinalPrice *float64,
	modifiedBy int64,
) (*models.Slot, error) {
	query := `
		UPDATE slots
		SET client_id = COALESCE($2, client_id),
		    final_price = COALESCE($3, final_price),
		    registered_by = $4,
		    updated_at = NOW()
		WHERE id = $1 AND state = 'reserved'
		RETURNING ` + slotColumns

	return scanSlot(r.db.QueryRow(ctx, query, slotID, newClientID, newFinalPrice, modifiedBy))
}

// Block marks an available slot blocked with the acting user and reason.
func (r *SlotRepository) Block(
	ctx context.Context,
	slotID int64,
	blockedBy int64,
	reason string,
) (*models.Slot, error) {
	query := `
		UPDATE slots
		SET state = 'blocked', blocked_by = $2, block_reason = $3,
		    client_id = NULL, registered_by = NULL, reserved_at = NULL,
		    updated_at = NOW()
		WHERE id = $1 AND state = 'available'
		RETURNING ` + slotColumns

	return scanSlot(r.db.QueryRow(ctx, query, slotID, blockedBy, reason))
}

// Close applies an administrative terminal marker. Slots already finished or
// cancelled are left alone and the caller sees pgx.ErrNoRows.
func (r *SlotRepository) Close(ctx context.Context, slotID int64, state string) (*models.Slot, error) {
	query := `
		UPDATE slots
		SET state = $2, updated_at = NOW()
		WHERE id = $1 AND state NOT IN ('finished', 'cancelled')
		RETURNING ` + slotColumns

	return scanSlot(r.db.QueryRow(ctx, query, slotID, state))
}
