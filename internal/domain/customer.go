package domain

import "time"

// Customer is a registered shopper account.
type Customer struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	FirstName    string    `json:"firstName,omitempty"`
	LastName     string    `json:"lastName,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

// NewAccount carries the fields a customer account is created from.
type NewAccount struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
}
