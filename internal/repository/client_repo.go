package repository

import (
	"context"

	"github.com/nmrios/CanchaBack/internal/models"
)

type ClientRepository struct {
	db DBTX
}

func NewClientRepository(db DBTX) *ClientRepository {
	return &ClientRepository{db: db}
}

func (r *ClientRepository) GetByID(ctx context.Context, id int64) (*models.Client, error) {
	query := `
		SELECT id, full_name, email, phone, created_at
		FROM clients
		WHERE id = $1
	`
	var client models.Client
	err := r.db.QueryRow(ctx, query, id).
		Scan(&client.ID, &client.FullName, &client.Email, &client.Phone, &client.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &client, nil
}

func (r *ClientRepository) Exists(ctx context.Context, id int64) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM clients WHERE id = $1)`, id).
		Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists, nil
}
