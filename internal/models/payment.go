package models

import "time"

// PaymentMethod enumerates the accepted offline/self-service channels.
type PaymentMethod string

const (
	PaymentMethodCash     PaymentMethod = "CASH"
	PaymentMethodTransfer PaymentMethod = "BANK_TRANSFER"
	PaymentMethodEWallet  PaymentMethod = "EWALLET"
)

// Valid reports whether the method is one of the accepted channels.
func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentMethodCash, PaymentMethodTransfer, PaymentMethodEWallet:
		return true
	}
	return false
}

// PaymentStatus marks the recorded state of a transaction.
type PaymentStatus string

const (
	PaymentStatusConfirmed PaymentStatus = "CONFIRMED"
	PaymentStatusPending   PaymentStatus = "PENDING"
)

// Payment is an append-only record of one membership fee transaction.
// The level column captures the member's level at payment time; a payment
// never mutates it.
type Payment struct {
	ID              string        `db:"id" json:"id"`
	UserID          string        `db:"user_id" json:"user_id"`
	Amount          float64       `db:"amount" json:"amount"`
	Level           int           `db:"level" json:"level"`
	PaymentMethod   PaymentMethod `db:"payment_method" json:"payment_method"`
	ReferenceNumber string        `db:"reference_number" json:"reference_number"`
	Status          PaymentStatus `db:"status" json:"status"`
	PaidAt          time.Time     `db:"paid_at" json:"paid_at"`
}

// PaymentFilter captures list criteria for payments.
type PaymentFilter struct {
	UserID    string
	Method    *PaymentMethod
	From      *time.Time
	To        *time.Time
	Page      int
	PageSize  int
	SortOrder string
}

// PaymentReceipt is returned by the payment workflows: the created row plus
// the recomputed membership expiry.
type PaymentReceipt struct {
	Payment   Payment   `json:"payment"`
	NewExpiry time.Time `json:"new_expiry"`
	NewLevel  int       `json:"new_level"`
}
