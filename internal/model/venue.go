package model

// Venue はイベント会場を表す。
type Venue struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Address     string `json:"address"`
	City        string `json:"city"`
	State       string `json:"state,omitempty"`
	ZipCode     string `json:"zipCode,omitempty"`
	Country     string `json:"country"`
	Capacity    *int   `json:"capacity,omitempty"`
	ContactInfo string `json:"contactInfo,omitempty"`
}

func (v *Venue) GetID() string   { return v.ID }
func (v *Venue) SetID(id string) { v.ID = id }

// Validate は会場の入力値を検証する。
func (v *Venue) Validate() []string {
	var errs fieldErrors
	errs.required("name", v.Name)
	errs.maxLen("name", v.Name, 255)
	errs.required("address", v.Address)
	errs.required("city", v.City)
	errs.maxLen("city", v.City, 100)
	errs.maxLen("state", v.State, 100)
	errs.maxLen("zipCode", v.ZipCode, 20)
	errs.required("country", v.Country)
	errs.maxLen("country", v.Country, 100)
	errs.maxLen("contactInfo", v.ContactInfo, 255)
	errs.check(v.Capacity == nil || *v.Capacity >= 0, "capacity must not be negative")
	return errs
}

func (v *Venue) SanitizeText(clean func(string) string) {
	v.Name = clean(v.Name)
	v.Address = clean(v.Address)
	v.ContactInfo = clean(v.ContactInfo)
}
