package models

import "time"

type Court struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Surface   *string   `json:"surface"`
	CreatedAt time.Time `json:"created_at"`
}

type Client struct {
	ID        int64     `json:"id"`
	FullName  string    `json:"full_name"`
	Email     *string   `json:"email"`
	Phone     *string   `json:"phone"`
	CreatedAt time.Time `json:"created_at"`
}

type User struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
