package dto

import "time"

type CreateLocationRequest struct {
	Name string `json:"name" validate:"required,min=2,max=120"`
	// Code defaults to a slug of Name.
	Code string `json:"code" validate:"omitempty,max=80"`
}

type UpdateLocationRequest struct {
	Active *bool `json:"active" validate:"required"`
}

type LocationResponse struct {
	ID        string    `json:"id"`
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}
