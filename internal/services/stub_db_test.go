package services

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/nmrios/CanchaBack/internal/models"
)

// Test doubles for the pgx surface the repositories touch, in the style of
// hand-rolled stubs: a stubDBTX dispatches on the query text, stubRow and
// stubRows replay canned values.

type stubRow struct {
	values []any
	err    error
}

func (r stubRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	for i := range dest {
		switch target := dest[i].(type) {
		case *int64:
			*target = r.values[i].(int64)
		case *string:
			*target = r.values[i].(string)
		case *float64:
			*target = r.values[i].(float64)
		case *bool:
			*target = r.values[i].(bool)
		case *time.Time:
			*target = r.values[i].(time.Time)
		case **int64:
			*target = r.values[i].(*int64)
		case **string:
			*target = r.values[i].(*string)
		case **time.Time:
			*target = r.values[i].(*time.Time)
		default:
			return errors.New("unsupported scan target")
		}
	}
	return nil
}

type stubRows struct {
	rows [][]any
	idx  int
	err  error
}

func (r *stubRows) Close()                                       {}
func (r *stubRows) Err() error                                   { return r.err }
func (r *stubRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (r *stubRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *stubRows) Values() ([]any, error)                       { return nil, nil }
func (r *stubRows) RawValues() [][]byte                          { return nil }
func (r *stubRows) Conn() *pgx.Conn                              { return nil }

func (r *stubRows) Next() bool {
	if r.idx >= len(r.rows) {
		return false
	}
	r.idx++
	return true
}

func (r *stubRows) Scan(dest ...any) error {
	return stubRow{values: r.rows[r.idx-1]}.Scan(dest...)
}

type stubDBTX struct {
	queryRowFn func(query string, args ...any) stubRow
	queryFn    func(query string, args ...any) *stubRows
}

func (db *stubDBTX) Exec(_ context.Context, _ string, _ ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, nil
}

func (db *stubDBTX) QueryRow(_ context.Context, query string, args ...any) pgx.Row {
	if db.queryRowFn == nil {
		return stubRow{err: pgx.ErrNoRows}
	}
	return db.queryRowFn(query, args...)
}

func (db *stubDBTX) Query(_ context.Context, query string, args ...any) (pgx.Rows, error) {
	if db.queryFn == nil {
		return &stubRows{}, nil
	}
	return db.queryFn(query, args...), nil
}

func slotValues(slot models.Slot) []any {
	return []any{
		slot.ID,
		slot.CourtID,
		slot.StartsAt,
		slot.EndsAt,
		slot.State,
		slot.FinalPrice,
		slot.ClientID,
		slot.RegisteredBy,
		slot.ReservedAt,
		slot.BlockedBy,
		slot.BlockReason,
		slot.CreatedAt,
		slot.UpdatedAt,
	}
}

func holdValues(hold models.PaymentHold) []any {
	return []any{
		hold.ID,
		hold.SlotID,
		hold.EntryID,
		hold.BaseAmount,
		hold.ExtrasAmount,
		hold.TotalAmount,
		hold.ClientID,
		hold.RegisteredBy,
		hold.State,
		hold.Method,
		hold.GatewayRef,
		hold.CreatedAt,
		hold.ExpiresAt,
		hold.CompletedAt,
	}
}

type stubDirectory struct {
	exists bool
	err    error
}

func (d *stubDirectory) Exists(_ context.Context, _ int64) (bool, error) {
	return d.exists, d.err
}
