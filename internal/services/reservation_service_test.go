package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/nmrios/CanchaBack/internal/models"
	"github.com/nmrios/CanchaBack/internal/repository"
)

func ptrInt64(v int64) *int64       { return &v }
func ptrFloat64(v float64) *float64 { return &v }
func ptrString(v string) *string    { return &v }

func baseSlot(state string) models.Slot {
	starts := time.Date(2030, 6, 1, 10, 0, 0, 0, time.UTC)
	return models.Slot{
		ID:         41,
		CourtID:    3,
		StartsAt:   starts,
		EndsAt:     starts.Add(time.Hour),
		State:      state,
		FinalPrice: 5000,
		CreatedAt:  starts.Add(-24 * time.Hour),
		UpdatedAt:  starts.Add(-24 * time.Hour),
	}
}

func newTestReservationService(db *stubDBTX, clients, users, courts *stubDirectory) *ReservationService {
	return NewReservationService(nil, repository.NewSlotRepository(db), clients, users, courts)
}

func TestRegisterReservationReservesAvailableSlot(t *testing.T) {
	available := baseSlot(models.SlotAvailable)
	reserved := available
	reserved.State = models.SlotReserved
	reserved.ClientID = ptrInt64(7)
	reserved.RegisteredBy = ptrInt64(2)
	reservedAt := time.Date(2030, 5, 20, 9, 0, 0, 0, time.UTC)
	reserved.ReservedAt = &reservedAt

	db := &stubDBTX{queryRowFn: func(query string, _ ...any) stubRow {
		switch {
		case strings.Contains(query, "SET state = 'reserved'"):
			return stubRow{values: slotValues(reserved)}
		default:
			return stubRow{values: slotValues(available)}
		}
	}}

	service := newTestReservationService(db, &stubDirectory{exists: true}, &stubDirectory{exists: true}, &stubDirectory{exists: true})

	slot, err := service.RegisterReservation(context.Background(), 41, 7, 2)
	if err != nil {
		t.Fatalf("RegisterReservation: %v", err)
	}
	if slot.State != models.SlotReserved {
		t.Fatalf("expected reserved state, got %q", slot.State)
	}
	if slot.ClientID == nil || *slot.ClientID != 7 {
		t.Fatalf("expected occupant client 7, got %+v", slot.ClientID)
	}
	if slot.RegisteredBy == nil || *slot.RegisteredBy != 2 {
		t.Fatalf("expected registering user 2, got %+v", slot.RegisteredBy)
	}
	if slot.ReservedAt == nil {
		t.Fatal("expected reservation timestamp to be set")
	}
}

func TestRegisterReservationUnknownClient(t *testing.T) {
	db := &stubDBTX{queryRowFn: func(string, ...any) stubRow {
		return stubRow{err: errors.New("store must not be touched")}
	}}
	service := newTestReservationService(db, &stubDirectory{exists: false}, &stubDirectory{exists: true}, &stubDirectory{exists: true})

	if _, err := service.RegisterReservation(context.Background(), 41, 7, 2); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRegisterReservationConflictOnNonAvailableSlot(t *testing.T) {
	updated := false
	db := &stubDBTX{queryRowFn: func(query string, _ ...any) stubRow {
		if strings.Contains(query, "UPDATE") {
			updated = true
		}
		return stubRow{values: slotValues(baseSlot(models.SlotBlocked))}
	}}
	service := newTestReservationService(db, &stubDirectory{exists: true}, &stubDirectory{exists: true}, &stubDirectory{exists: true})

	if _, err := service.RegisterReservation(context.Background(), 41, 7, 2); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	if updated {
		t.Fatal("expected no update against a non-available slot")
	}
}

func TestRegisterReservationConflictWhenRaceLost(t *testing.T) {
	db := &stubDBTX{queryRowFn: func(query string, _ ...any) stubRow {
		if strings.Contains(query, "SET state = 'reserved'") {
			// The conditional update matched zero rows.
			return stubRow{err: pgx.ErrNoRows}
		}
		return stubRow{values: slotValues(baseSlot(models.SlotAvailable))}
	}}
	service := newTestReservationService(db, &stubDirectory{exists: true}, &stubDirectory{exists: true}, &stubDirectory{exists: true})

	if _, err := service.RegisterReservation(context.Background(), 41, 7, 2); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestConcurrentRegisterExactlyOneSucceeds(t *testing.T) {
	var mu sync.Mutex
	state := models.SlotAvailable

	db := &stubDBTX{queryRowFn: func(query string, args ...any) stubRow {
		mu.Lock()
		defer mu.Unlock()

		if strings.Contains(query, "SET state = 'reserved'") {
			if state != models.SlotAvailable {
				return stubRow{err: pgx.ErrNoRows}
			}
			state = models.SlotReserved
			reserved := baseSlot(models.SlotReserved)
			reserved.ClientID = ptrInt64(args[1].(int64))
			reserved.RegisteredBy = ptrInt64(args[2].(int64))
			at := args[3].(time.Time)
			reserved.ReservedAt = &at
			return stubRow{values: slotValues(reserved)}
		}

		snapshot := baseSlot(state)
		return stubRow{values: slotValues(snapshot)}
	}}
	service := newTestReservationService(db, &stubDirectory{exists: true}, &stubDirectory{exists: true}, &stubDirectory{exists: true})

	const attempts = 24
	results := make(chan error, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(clientID int64) {
			defer wg.Done()
			_, err := service.RegisterReservation(context.Background(), 41, clientID, 2)
			results <- err
		}(int64(i + 1))
	}
	wg.Wait()
	close(results)

	successes, conflicts := 0, 0
	for err := range results {
		switch {
		case err == nil:
			successes++
		case errors.Is(err, ErrConflict):
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if successes != 1 {
		t.Fatalf("expected exactly 1 success, got %d", successes)
	}
	if conflicts != attempts-1 {
		t.Fatalf("expected %d conflicts, got %d", attempts-1, conflicts)
	}
}

func TestConsultSlotOwnership(t *testing.T) {
	occupied := baseSlot(models.SlotReserved)
	occupied.ClientID = ptrInt64(7)

	db := &stubDBTX{queryRowFn: func(string, ...any) stubRow {
		return stubRow{values: slotValues(occupied)}
	}}
	service := newTestReservationService(db, &stubDirectory{exists: true}, &stubDirectory{exists: true}, &stubDirectory{exists: true})

	if _, err := service.ConsultSlot(context.Background(), 41, ptrInt64(9)); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden for a foreign client, got %v", err)
	}

	slot, err := service.ConsultSlot(context.Background(), 41, ptrInt64(7))
	if err != nil {
		t.Fatalf("ConsultSlot owner: %v", err)
	}
	if slot.ID != occupied.ID {
		t.Fatalf("expected slot %d, got %d", occupied.ID, slot.ID)
	}

	if _, err := service.ConsultSlot(context.Background(), 41, nil); err != nil {
		t.Fatalf("ConsultSlot without filter: %v", err)
	}
}

func TestConsultSlotNotFound(t *testing.T) {
	db := &stubDBTX{queryRowFn: func(string, ...any) stubRow {
		return stubRow{err: pgx.ErrNoRows}
	}}
	service := newTestReservationService(db, &stubDirectory{exists: true}, &stubDirectory{exists: true}, &stubDirectory{exists: true})

	if _, err := service.ConsultSlot(context.Background(), 404, nil); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListReservationsRejectsUnknownStateFilter(t *testing.T) {
	service := newTestReservationService(&stubDBTX{}, &stubDirectory{exists: true}, &stubDirectory{exists: true}, &stubDirectory{exists: true})

	if _, err := service.ListReservationsForClient(context.Background(), 7, nil, ptrString("occupied")); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestListReservationsUnknownClient(t *testing.T) {
	service := newTestReservationService(&stubDBTX{}, &stubDirectory{exists: false}, &stubDirectory{exists: true}, &stubDirectory{exists: true})

	if _, err := service.ListReservationsForClient(context.Background(), 7, nil, nil); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListReservationsForClientReturnsRows(t *testing.T) {
	first := baseSlot(models.SlotReserved)
	first.ClientID = ptrInt64(7)
	second := first
	second.ID = 42
	second.StartsAt = first.StartsAt.Add(2 * time.Hour)
	second.EndsAt = first.EndsAt.Add(2 * time.Hour)

	db := &stubDBTX{queryFn: func(string, ...any) *stubRows {
		return &stubRows{rows: [][]any{slotValues(first), slotValues(second)}}
	}}
	service := newTestReservationService(db, &stubDirectory{exists: true}, &stubDirectory{exists: true}, &stubDirectory{exists: true})

	slots, err := service.ListReservationsForClient(context.Background(), 7, nil, ptrString(models.SlotReserved))
	if err != nil {
		t.Fatalf("ListReservationsForClient: %v", err)
	}
	if len(slots) != 2 || slots[0].ID != 41 || slots[1].ID != 42 {
		t.Fatalf("expected slots 41 and 42, got %+v", slots)
	}
}

func TestModifyReservationRejectsEmptyPatch(t *testing.T) {
	service := newTestReservationService(&stubDBTX{}, &stubDirectory{exists: true}, &stubDirectory{exists: true}, &stubDirectory{exists: true})

	if _, err := service.ModifyReservation(context.Background(), 41, ReservationPatch{}, 2); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestModifyReservationRejectsNegativePrice(t *testing.T) {
	service := newTestReservationService(&stubDBTX{}, &stubDirectory{exists: true}, &stubDirectory{exists: true}, &stubDirectory{exists: true})

	patch := ReservationPatch{FinalPrice: ptrFloat64(-100)}
	if _, err := service.ModifyReservation(context.Background(), 41, patch, 2); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestModifyReservationStampsModifier(t *testing.T) {
	reserved := baseSlot(models.SlotReserved)
	reserved.ClientID = ptrInt64(7)
	reserved.RegisteredBy = ptrInt64(2)

	modified := reserved
	modified.FinalPrice = 6500
	modified.RegisteredBy = ptrInt64(9)

	db := &stubDBTX{queryRowFn: func(query string, _ ...any) stubRow {
		if strings.Contains(query, "COALESCE") {
			return stubRow{values: slotValues(modified)}
		}
		return stubRow{values: slotValues(reserved)}
	}}
	service := newTestReservationService(db, &stubDirectory{exists: true}, &stubDirectory{exists: true}, &stubDirectory{exists: true})

	slot, err := service.ModifyReservation(context.Background(), 41, ReservationPatch{FinalPrice: ptrFloat64(6500)}, 9)
	if err != nil {
		t.Fatalf("ModifyReservation: %v", err)
	}
	if slot.FinalPrice != 6500 {
		t.Fatalf("expected price 6500, got %.2f", slot.FinalPrice)
	}
	if slot.RegisteredBy == nil || *slot.RegisteredBy != 9 {
		t.Fatalf("expected modifier 9 in audit field, got %+v", slot.RegisteredBy)
	}
}

func TestModifyReservationWrongState(t *testing.T) {
	db := &stubDBTX{queryRowFn: func(string, ...any) stubRow {
		return stubRow{values: slotValues(baseSlot(models.SlotAvailable))}
	}}
	service := newTestReservationService(db, &stubDirectory{exists: true}, &stubDirectory{exists: true}, &stubDirectory{exists: true})

	patch := ReservationPatch{FinalPrice: ptrFloat64(100)}
	if _, err := service.ModifyReservation(context.Background(), 41, patch, 2); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestCancelReservationClearsOccupantAndSecondCancelConflicts(t *testing.T) {
	var mu sync.Mutex
	state := models.SlotReserved

	db := &stubDBTX{queryRowFn: func(query string, _ ...any) stubRow {
		mu.Lock()
		defer mu.Unlock()

		if strings.Contains(query, "SET state = 'available'") {
			if state != models.SlotReserved {
				return stubRow{err: pgx.ErrNoRows}
			}
			state = models.SlotAvailable
			return stubRow{values: slotValues(baseSlot(models.SlotAvailable))}
		}

		snapshot := baseSlot(state)
		if state == models.SlotReserved {
			snapshot.ClientID = ptrInt64(7)
			snapshot.RegisteredBy = ptrInt64(2)
		}
		return stubRow{values: slotValues(snapshot)}
	}}
	service := newTestReservationService(db, &stubDirectory{exists: true}, &stubDirectory{exists: true}, &stubDirectory{exists: true})

	slot, err := service.CancelReservation(context.Background(), 41, 2)
	if err != nil {
		t.Fatalf("CancelReservation: %v", err)
	}
	if slot.State != models.SlotAvailable {
		t.Fatalf("expected slot back to available, got %q", slot.State)
	}
	if slot.ClientID != nil || slot.RegisteredBy != nil || slot.ReservedAt != nil {
		t.Fatalf("expected occupant fields cleared, got %+v", slot)
	}

	if _, err := service.CancelReservation(context.Background(), 41, 2); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict on second cancel, got %v", err)
	}
}

func TestCreateSlotValidatesInterval(t *testing.T) {
	service := newTestReservationService(&stubDBTX{}, &stubDirectory{exists: true}, &stubDirectory{exists: true}, &stubDirectory{exists: true})
	service.now = func() time.Time { return time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC) }

	starts := time.Date(2030, 2, 1, 10, 0, 0, 0, time.UTC)

	cases := []struct {
		name  string
		input CreateSlotInput
	}{
		{"end before start", CreateSlotInput{CourtID: 3, StartsAt: starts, EndsAt: starts.Add(-time.Hour), FinalPrice: 100}},
		{"zero length", CreateSlotInput{CourtID: 3, StartsAt: starts, EndsAt: starts, FinalPrice: 100}},
		{"in the past", CreateSlotInput{CourtID: 3, StartsAt: time.Date(2029, 12, 1, 10, 0, 0, 0, time.UTC), EndsAt: time.Date(2029, 12, 1, 11, 0, 0, 0, time.UTC), FinalPrice: 100}},
		{"negative price", CreateSlotInput{CourtID: 3, StartsAt: starts, EndsAt: starts.Add(time.Hour), FinalPrice: -1}},
	}

	for _, tc := range cases {
		if _, err := service.CreateSlot(context.Background(), tc.input); !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("%s: expected ErrInvalidInput, got %v", tc.name, err)
		}
	}
}

func TestCreateSlotUnknownCourt(t *testing.T) {
	service := newTestReservationService(&stubDBTX{}, &stubDirectory{exists: true}, &stubDirectory{exists: true}, &stubDirectory{exists: false})
	service.now = func() time.Time { return time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC) }

	starts := time.Date(2030, 2, 1, 10, 0, 0, 0, time.UTC)
	input := CreateSlotInput{CourtID: 99, StartsAt: starts, EndsAt: starts.Add(time.Hour), FinalPrice: 100}
	if _, err := service.CreateSlot(context.Background(), input); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestBlockSlotRequiresReason(t *testing.T) {
	service := newTestReservationService(&stubDBTX{}, &stubDirectory{exists: true}, &stubDirectory{exists: true}, &stubDirectory{exists: true})

	if _, err := service.BlockSlot(context.Background(), 41, 2, "   "); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestBlockSlotConflictWhenNotAvailable(t *testing.T) {
	db := &stubDBTX{queryRowFn: func(string, ...any) stubRow {
		return stubRow{values: slotValues(baseSlot(models.SlotReserved))}
	}}
	service := newTestReservationService(db, &stubDirectory{exists: true}, &stubDirectory{exists: true}, &stubDirectory{exists: true})

	if _, err := service.BlockSlot(context.Background(), 41, 2, "maintenance"); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestCloseSlotRejectsNonTerminalState(t *testing.T) {
	service := newTestReservationService(&stubDBTX{}, &stubDirectory{exists: true}, &stubDirectory{exists: true}, &stubDirectory{exists: true})

	if _, err := service.CloseSlot(context.Background(), 41, models.SlotReserved); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestCloseSlotConflictOnceTerminal(t *testing.T) {
	db := &stubDBTX{queryRowFn: func(string, ...any) stubRow {
		return stubRow{values: slotValues(baseSlot(models.SlotFinished))}
	}}
	service := newTestReservationService(db, &stubDirectory{exists: true}, &stubDirectory{exists: true}, &stubDirectory{exists: true})

	if _, err := service.CloseSlot(context.Background(), 41, models.SlotCancelled); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}
