package domain

import "time"

type Office struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Code         string    `json:"code"`
	Street       string    `json:"street"`
	City         string    `json:"city"`
	State        string    `json:"state"`
	Pincode      string    `json:"pincode"`
	Phone        string    `json:"phone"`
	Email        string    `json:"email"`
	Region       string    `json:"region"`
	DivisionCode string    `json:"divisionCode"`
	IsActive     bool      `json:"isActive"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
	Version      int32     `json:"-"`
}
