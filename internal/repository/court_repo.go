package repository

import (
	"context"

	"github.com/nmrios/CanchaBack/internal/models"
)

type CourtRepository struct {
	db DBTX
}

func NewCourtRepository(db DBTX) *CourtRepository {
	return &CourtRepository{db: db}
}

func (r *CourtRepository) GetByID(ctx context.Context, id int64) (*models.Court, error) {
	query := `
		SELECT id, name, surface, created_at
		FROM courts
		WHERE id = $1
	`
	var court models.Court
	err := r.db.QueryRow(ctx, query, id).
		Scan(&court.ID, &court.Name, &court.Surface, &court.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &court, nil
}

func (r *CourtRepository) Exists(ctx context.Context, id int64) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM courts WHERE id = $1)`, id).
		Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists, nil
}
