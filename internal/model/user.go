package model

import "time"

// User はサービス利用ユーザーを表す。
// PasswordHashはJSONに出力しない。Passwordは入力専用でハッシュ化後に破棄される。
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	Password     string    `json:"password,omitempty"`
	PasswordHash string    `json:"-"`
	FirstName    string    `json:"firstName"`
	LastName     string    `json:"lastName"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

func (u *User) GetID() string   { return u.ID }
func (u *User) SetID(id string) { u.ID = id }

// Validate はユーザーの入力値を検証する。
func (u *User) Validate() []string {
	var errs fieldErrors
	errs.required("username", u.Username)
	errs.maxLen("username", u.Username, 50)
	errs.required("email", u.Email)
	errs.maxLen("email", u.Email, 100)
	errs.email("email", u.Email)
	errs.maxLen("firstName", u.FirstName, 100)
	errs.maxLen("lastName", u.LastName, 100)
	errs.check(u.Role.Valid(), "role must be one of admin, organizer, attendee")
	if u.PasswordHash == "" && u.Password == "" {
		errs = append(errs, "password is required")
	}
	return errs
}

// SanitizeText は自由入力テキストを無害化する。
func (u *User) SanitizeText(clean func(string) string) {
	u.FirstName = clean(u.FirstName)
	u.LastName = clean(u.LastName)
}
