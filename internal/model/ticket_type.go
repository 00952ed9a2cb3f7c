package model

import "time"

// TicketType はイベントごとのチケット種別。
type TicketType struct {
	ID                string     `json:"id"`
	EventID           string     `json:"eventId"`
	Name              string     `json:"name"`
	Description       string     `json:"description,omitempty"`
	Price             float64    `json:"price"`
	QuantityAvailable int        `json:"quantityAvailable"`
	SaleStartDate     *time.Time `json:"saleStartDate,omitempty"`
	SaleEndDate       *time.Time `json:"saleEndDate,omitempty"`
}

func (t *TicketType) GetID() string   { return t.ID }
func (t *TicketType) SetID(id string) { t.ID = id }

func (t *TicketType) Validate() []string {
	var errs fieldErrors
	errs.required("eventId", t.EventID)
	errs.required("name", t.Name)
	errs.maxLen("name", t.Name, 100)
	errs.check(t.Price >= 0, "price must not be negative")
	errs.check(t.QuantityAvailable >= 0, "quantityAvailable must not be negative")
	if t.SaleStartDate != nil && t.SaleEndDate != nil {
		errs.check(!t.SaleEndDate.Before(*t.SaleStartDate), "saleEndDate must not be before saleStartDate")
	}
	return errs
}

func (t *TicketType) SanitizeText(clean func(string) string) {
	t.Name = clean(t.Name)
	t.Description = clean(t.Description)
}
