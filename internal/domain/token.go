package domain

import "time"

// PaymentToken is a saved payment method that can be charged again.
type PaymentToken struct {
	ID        string
	UserID    string
	MethodID  string
	Title     string
	Reusable  bool
	CreatedAt time.Time
}

// SavedMethod returns the token as a payment method.
func (t *PaymentToken) SavedMethod() SavedPaymentMethod {
	return SavedPaymentMethod{
		ID:       t.MethodID,
		TokenID:  t.ID,
		Title:    t.Title,
		Reusable: t.Reusable,
	}
}
