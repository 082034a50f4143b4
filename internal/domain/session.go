package domain

// Session identifies the shopper a checkout call acts for.
type Session struct {
	ID         string
	CustomerID *string
}
