package model

import "time"

// RegistrationStatus は申込状態を表す。
type RegistrationStatus string

const (
	RegistrationStatusPending   RegistrationStatus = "pending"
	RegistrationStatusConfirmed RegistrationStatus = "confirmed"
	RegistrationStatusCancelled RegistrationStatus = "cancelled"
)

func (s RegistrationStatus) Valid() bool {
	switch s {
	case RegistrationStatusPending, RegistrationStatusConfirmed, RegistrationStatusCancelled:
		return true
	default:
		return false
	}
}

// Registration は参加者のイベント申込。UserIDが所有者を表す。
type Registration struct {
	ID               string             `json:"id"`
	UserID           string             `json:"userId"`
	EventID          string             `json:"eventId"`
	TicketTypeID     string             `json:"ticketTypeId"`
	RegistrationDate time.Time          `json:"registrationDate"`
	Status           RegistrationStatus `json:"status"`
	Quantity         int                `json:"quantity"`
	TotalAmount      float64            `json:"totalAmount"`
}

func (r *Registration) GetID() string   { return r.ID }
func (r *Registration) SetID(id string) { r.ID = id }

// Validate は申込の入力値を検証する。
// 未指定の状態・数量・申込日時には既定値を設定する。
func (r *Registration) Validate() []string {
	if r.Status == "" {
		r.Status = RegistrationStatusPending
	}
	if r.Quantity == 0 {
		r.Quantity = 1
	}
	if r.RegistrationDate.IsZero() {
		r.RegistrationDate = time.Now().UTC()
	}
	var errs fieldErrors
	errs.required("userId", r.UserID)
	errs.required("eventId", r.EventID)
	errs.required("ticketTypeId", r.TicketTypeID)
	errs.check(r.Status.Valid(), "status must be one of pending, confirmed, cancelled")
	errs.check(r.Quantity > 0, "quantity must be positive")
	errs.check(r.TotalAmount >= 0, "totalAmount must not be negative")
	return errs
}

// OwnedBy は申込者が指定ユーザーかどうかを返す。
func (r *Registration) OwnedBy(userID string) bool {
	return r.UserID == userID
}
