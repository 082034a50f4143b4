package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Address holds billing or shipping fields captured at checkout.
type Address struct {
	FirstName  string `json:"firstName,omitempty"`
	LastName   string `json:"lastName,omitempty"`
	Company    string `json:"company,omitempty"`
	StreetName string `json:"streetName,omitempty"`
	City       string `json:"city,omitempty"`
	State      string `json:"state,omitempty"`
	PostalCode string `json:"postalCode,omitempty"`
	Country    string `json:"country,omitempty"`
	Email      string `json:"email,omitempty"`
	Phone      string `json:"phone,omitempty"`
}

type Cart struct {
	ID              string     `json:"id"`
	SessionID       string     `json:"-"`
	CustomerID      *string    `json:"customerId,omitempty"`
	Currency        string     `json:"currency"`
	TotalCents      int64      `json:"totalCents"`
	BillingAddress  Address    `json:"billingAddress"`
	ShippingAddress Address    `json:"shippingAddress"`
	CreatedAt       time.Time  `json:"createdAt"`
	Lines           []CartLine `json:"lineItems,omitempty"`
}

type CartLine struct {
	ID             string    `json:"id"`
	CartID         string    `json:"cartId"`
	ProductID      string    `json:"productId"`
	Name           string    `json:"name,omitempty"`
	Quantity       int       `json:"quantity"`
	UnitPriceCents int64     `json:"unitPriceCents"`
	TotalCents     int64     `json:"totalCents"`
	CreatedAt      time.Time `json:"createdAt"`
}

// IsEmpty reports whether the cart has no line with a positive quantity.
func (c Cart) IsEmpty() bool {
	for _, l := range c.Lines {
		if l.Quantity > 0 {
			return false
		}
	}
	return true
}

// Hash fingerprints the cart contents. Line order and addresses do not
// affect the result, and neither do lines with no quantity.
func (c Cart) Hash() string {
	lines := make([]CartLine, 0, len(c.Lines))
	for _, l := range c.Lines {
		if l.Quantity > 0 {
			lines = append(lines, l)
		}
	}
	sort.SliceStable(lines, func(i, j int) bool { return lines[i].ProductID < lines[j].ProductID })

	var b strings.Builder
	b.WriteString(c.Currency)
	for _, l := range lines {
		b.WriteByte('|')
		b.WriteString(l.ProductID)
		b.WriteByte(':')
		b.WriteString(strconv.Itoa(l.Quantity))
		b.WriteByte(':')
		b.WriteString(strconv.FormatInt(l.UnitPriceCents, 10))
	}
	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}
