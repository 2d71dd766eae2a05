package models

import "time"

// Slot states. A slot is created available and only the reservation and
// payment services move it between states; finished/cancelled/unavailable
// are terminal for the booking flow.
const (
	SlotAvailable      = "available"
	SlotPendingPayment = "pending_payment"
	SlotReserved       = "reserved"
	SlotBlocked        = "blocked"
	SlotCancelled      = "cancelled"
	SlotFinished       = "finished"
	SlotUnavailable    = "unavailable"
)

func IsValidSlotState(state string) bool {
	switch state {
	case SlotAvailable, SlotPendingPayment, SlotReserved, SlotBlocked,
		SlotCancelled, SlotFinished, SlotUnavailable:
		return true
	}
	return false
}

// IsTerminalSlotState reports whether no further booking transition is
// permitted through the reservation service.
func IsTerminalSlotState(state string) bool {
	return state == SlotFinished || state == SlotCancelled
}

type Slot struct {
	ID         int64     `json:"id"`
	CourtID    int64     `json:"court_id"`
	StartsAt   time.Time `json:"starts_at"`
	EndsAt     time.Time `json:"ends_at"`
	State      string    `json:"state"`
	FinalPrice float64   `json:"final_price"`

	// Occupant fields, set while reserved (or transiently pending_payment).
	ClientID     *int64     `json:"client_id"`
	RegisteredBy *int64     `json:"registered_by"`
	ReservedAt   *time.Time `json:"reserved_at"`

	// Block metadata, only meaningful while blocked.
	BlockedBy   *int64  `json:"blocked_by"`
	BlockReason *string `json:"block_reason"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
