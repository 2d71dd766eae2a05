package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/nmrios/CanchaBack/internal/models"
)

const holdColumns = `id, slot_id, entry_id, base_amount, extras_amount, total_amount,
		client_id, registered_by, state, method, gateway_ref,
		created_at, expires_at, completed_at`

type CreateHoldInput struct {
	SlotID       *int64
	EntryID      *int64
	BaseAmount   float64
	ExtrasAmount float64
	TotalAmount  float64
	ClientID     int64
	RegisteredBy *int64
	Method       *string
	ExpiresAt    time.Time
}

type HoldRepository struct {
	db DBTX
}

func NewHoldRepository(db DBTX) *HoldRepository {
	return &HoldRepository{db: db}
}

func scanHold(row pgx.Row) (*models.PaymentHold, error) {
	var hold models.PaymentHold
	err := row.Scan(
		&hold.ID,
		&hold.SlotID,
		&hold.EntryID,
		&hold.BaseAmount,
		&hold.ExtrasAmount,
		&hold.TotalAmount,
		&hold.ClientID,
		&hold.RegisteredBy,
		&hold.State,
		&hold.Method,
		&hold.GatewayRef,
		&hold.CreatedAt,
		&hold.ExpiresAt,
		&hold.CompletedAt,
	)
	if err != nil {
		return nil, err
	}
	return &hold, nil
}

func (r *HoldRepository) Create(ctx context.Context, input CreateHoldInput) (*models.PaymentHold, error) {
	query := `
		INSERT INTO payment_holds
			(slot_id, entry_id, base_amount, extras_amount, total_amount,
			 client_id, registered_by, state, method, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 'initiated', $8, $9)
		RETURNING ` + holdColumns

	return scanHold(r.db.QueryRow(
		ctx,
		query,
		input.SlotID,
		input.EntryID,
		input.BaseAmount,
		input.ExtrasAmount,
		input.TotalAmount,
		input.ClientID,
		input.RegisteredBy,
		input.Method,
		input.ExpiresAt,
	))
}

func (r *HoldRepository) GetByID(ctx context.Context, holdID int64) (*models.PaymentHold, error) {
	query := `
		SELECT ` + holdColumns + `
		FROM payment_holds
		WHERE id = $1
	`
	return scanHold(r.db.QueryRow(ctx, query, holdID))
}

func (r *HoldRepository) GetByIDForUpdate(ctx context.Context, holdID int64) (*models.PaymentHold, error) {
	query := `
		SELECT ` + holdColumns + `
		FROM payment_holds
		WHERE id = $1
		FOR UPDATE
	`
	return scanHold(r.db.QueryRow(ctx, query, holdID))
}

// HasActiveForSlot reports whether a non-failed hold already claims the slot.
func (r *HoldRepository) HasActiveForSlot(ctx context.Context, slotID int64) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1
			FROM payment_holds
			WHERE slot_id = $1
			  AND state <> 'failed'
		)
	`
	var active bool
	if err := r.db.QueryRow(ctx, query, slotID).Scan(&active); err != nil {
		return false, err
	}
	return active, nil
}

// ListExpired returns holds still initiated whose expiry is in the past.
func (r *HoldRepository) ListExpired(ctx context.Context, now time.Time) ([]models.PaymentHold, error) {
	query := `
		SELECT ` + holdColumns + `
		FROM payment_holds
		WHERE state = 'initiated'
		  AND expires_at IS NOT NULL
		  AND expires_at < $1
		ORDER BY expires_at ASC, id ASC
	`
	rows, err := r.db.Query(ctx, query, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	holds := make([]models.PaymentHold, 0)
	for rows.Next() {
		hold, err := scanHold(rows)
		if err != nil {
			return nil, err
		}
		holds = append(holds, *hold)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return holds, nil
}

// Complete moves an initiated hold to completed, stamping completed_at and
// optionally the method and gateway reference reported by the gateway.
func (r *HoldRepository) Complete(
	ctx context.Context,
	holdID int64,
	method *string,
	gatewayRef *string,
	completedAt time.Time,
) (*models.PaymentHold, error) {
	query := `
		UPDATE payment_holds
		SET state = 'completed',
		    method = COALESCE($2, method),
		    gateway_ref = COALESCE($3, gateway_ref),
		    completed_at = $4
		WHERE id = $1 AND state = 'initiated'
		RETURNING ` + holdColumns

	return scanHold(r.db.QueryRow(ctx, query, holdID, method, gatewayRef, completedAt))
}

// MarkFailed sets the terminal failed state regardless of the current one so
// the sweep can retry safely.
func (r *HoldRepository) MarkFailed(ctx context.Context, holdID int64) (*models.PaymentHold, error) {
	query := `
		UPDATE payment_holds
		SET state = 'failed'
		WHERE id = $1
		RETURNING ` + holdColumns

	return scanHold(r.db.QueryRow(ctx, query, holdID))
}
