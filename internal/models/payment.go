package models

import "time"

// Payment hold states. initiated is the only non-terminal state.
const (
	HoldInitiated = "initiated"
	HoldCompleted = "completed"
	HoldFailed    = "failed"
)

// PaymentHold is a time-bounded claim pending payment confirmation. It
// references exactly one billable: a slot or a tournament entry.
type PaymentHold struct {
	ID      int64  `json:"id"`
	SlotID  *int64 `json:"slot_id"`
	EntryID *int64 `json:"entry_id"`

	BaseAmount   float64 `json:"base_amount"`
	ExtrasAmount float64 `json:"extras_amount"`
	TotalAmount  float64 `json:"total_amount"`

	ClientID     int64  `json:"client_id"`
	RegisteredBy *int64 `json:"registered_by"`

	State      string  `json:"state"`
	Method     *string `json:"method"`
	GatewayRef *string `json:"gateway_ref"`

	CreatedAt   time.Time  `json:"created_at"`
	ExpiresAt   *time.Time `json:"expires_at"`
	CompletedAt *time.Time `json:"completed_at"`
}

// Active reports whether the hold still claims its billable. Failed holds
// are kept for audit but no longer count against a slot.
func (h *PaymentHold) Active() bool {
	return h.State == HoldInitiated || h.State == HoldCompleted
}

type CheckoutDetail struct {
	Slot Slot        `json:"slot"`
	Hold PaymentHold `json:"hold"`
}
