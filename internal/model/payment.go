package model

import "time"

// PaymentStatus は決済状態を表す。
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusFailed    PaymentStatus = "failed"
	PaymentStatusRefunded  PaymentStatus = "refunded"
)

func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusCompleted, PaymentStatusFailed, PaymentStatusRefunded:
		return true
	default:
		return false
	}
}

// Payment は申込に対する決済。1申込につき1件。
type Payment struct {
	ID             string        `json:"id"`
	RegistrationID string        `json:"registrationId"`
	Amount         float64       `json:"amount"`
	Currency       string        `json:"currency"`
	PaymentDate    time.Time     `json:"paymentDate"`
	Status         PaymentStatus `json:"status"`
	TransactionID  string        `json:"transactionId,omitempty"`
	PaymentMethod  string        `json:"paymentMethod,omitempty"`
}

func (p *Payment) GetID() string   { return p.ID }
func (p *Payment) SetID(id string) { p.ID = id }

// Validate は決済の入力値を検証する。
// 通貨の既定値はUSD、状態の既定値はpending。
func (p *Payment) Validate() []string {
	if p.Currency == "" {
		p.Currency = "USD"
	}
	if p.Status == "" {
		p.Status = PaymentStatusPending
	}
	if p.PaymentDate.IsZero() {
		p.PaymentDate = time.Now().UTC()
	}
	var errs fieldErrors
	errs.required("registrationId", p.RegistrationID)
	errs.check(p.Amount >= 0, "amount must not be negative")
	errs.check(len(p.Currency) == 3, "currency must be a 3-letter code")
	errs.check(p.Status.Valid(), "status must be one of pending, completed, failed, refunded")
	errs.maxLen("transactionId", p.TransactionID, 255)
	errs.maxLen("paymentMethod", p.PaymentMethod, 100)
	return errs
}
