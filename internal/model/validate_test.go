package model

import (
	"strings"
	"testing"
	"time"
)

func contains(errs []string, want string) bool {
	for _, e := range errs {
		if e == want {
			return true
		}
	}
	return false
}

func TestUser_Validate(t *testing.T) {
	tests := []struct {
		name string
		user User
		want []string
	}{
		{
			name: "valid with hash",
			user: User{Username: "alice", Email: "alice@example.com", PasswordHash: "x", Role: RoleAttendee},
		},
		{
			name: "missing fields",
			user: User{Role: RoleAttendee},
			want: []string{"username is required", "email is required", "password is required"},
		},
		{
			name: "bad email and role",
			user: User{Username: "bob", Email: "not-an-email", Password: "pw", Role: "root"},
			want: []string{"email must be a valid email address", "role must be one of admin, organizer, attendee"},
		},
		{
			name: "too long username",
			user: User{Username: strings.Repeat("a", 51), Email: "a@example.com", Password: "pw", Role: RoleAdmin},
			want: []string{"username must be at most 50 characters"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.user.Validate()
			if len(got) != len(tt.want) {
				t.Fatalf("Validate() = %v, want %v", got, tt.want)
			}
			for _, w := range tt.want {
				if !contains(got, w) {
					t.Errorf("missing %q in %v", w, got)
				}
			}
		})
	}
}

func TestEvent_ValidateDefaultsAndDates(t *testing.T) {
	start := time.Date(2026, 11, 1, 18, 0, 0, 0, time.UTC)
	e := Event{OrganizerID: "o1", VenueID: "v1", CategoryID: "c1", Title: "t", StartDate: start, EndDate: start.Add(time.Hour)}
	if errs := e.Validate(); len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if e.Status != EventStatusScheduled {
		t.Errorf("Status = %q, want scheduled", e.Status)
	}

	e.EndDate = start.Add(-time.Hour)
	if errs := e.Validate(); !contains(errs, "endDate must not be before startDate") {
		t.Errorf("errors = %v", errs)
	}

	negative := -1
	e.EndDate = start
	e.MaxAttendees = &negative
	e.Status = "unknown"
	errs := e.Validate()
	if !contains(errs, "maxAttendees must not be negative") || !contains(errs, "status must be one of scheduled, cancelled, postponed, completed") {
		t.Errorf("errors = %v", errs)
	}
}

func TestRegistration_ValidateDefaults(t *testing.T) {
	r := Registration{UserID: "u1", EventID: "e1", TicketTypeID: "t1"}
	if errs := r.Validate(); len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if r.Status != RegistrationStatusPending || r.Quantity != 1 || r.RegistrationDate.IsZero() {
		t.Errorf("defaults not applied: %+v", r)
	}

	r.Quantity = -2
	if errs := r.Validate(); !contains(errs, "quantity must be positive") {
		t.Errorf("errors = %v", errs)
	}
}

func TestPayment_ValidateDefaults(t *testing.T) {
	p := Payment{RegistrationID: "r1", Amount: 12.5}
	if errs := p.Validate(); len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if p.Currency != "USD" || p.Status != PaymentStatusPending {
		t.Errorf("defaults not applied: %+v", p)
	}

	p = Payment{Currency: "EURO", Amount: -1, Status: "lost"}
	errs := p.Validate()
	for _, want := range []string{
		"registrationId is required",
		"amount must not be negative",
		"currency must be a 3-letter code",
		"status must be one of pending, completed, failed, refunded",
	} {
		if !contains(errs, want) {
			t.Errorf("missing %q in %v", want, errs)
		}
	}
}

func TestTicketType_ValidateSaleWindow(t *testing.T) {
	start := time.Now()
	end := start.Add(-time.Minute)
	tt := TicketType{EventID: "e1", Name: "VIP", SaleStartDate: &start, SaleEndDate: &end}
	if errs := tt.Validate(); !contains(errs, "saleEndDate must not be before saleStartDate") {
		t.Errorf("errors = %v", errs)
	}
}

func TestVenueSpeakerCategory_Validate(t *testing.T) {
	if errs := (&Venue{}).Validate(); len(errs) != 4 {
		t.Errorf("venue errors = %v", errs)
	}
	if errs := (&Speaker{FirstName: "a", LastName: "b", Email: "bad"}).Validate(); !contains(errs, "email must be a valid email address") {
		t.Errorf("speaker errors = %v", errs)
	}
	if errs := (&Category{Name: strings.Repeat("あ", 100)}).Validate(); len(errs) != 0 {
		t.Errorf("multibyte name within limit should pass: %v", errs)
	}
}

func TestParseRole(t *testing.T) {
	for _, r := range AllRoles() {
		got, err := ParseRole(string(r))
		if err != nil || got != r {
			t.Errorf("ParseRole(%q) = %q, %v", r, got, err)
		}
	}
	if _, err := ParseRole("superuser"); err == nil {
		t.Error("expected error for unknown role")
	}
}

func TestIdentity_IsAdmin(t *testing.T) {
	var nilIdentity *Identity
	if nilIdentity.IsAdmin() {
		t.Error("nil identity must not be admin")
	}
	if !(&Identity{ID: "x", Role: RoleAdmin}).IsAdmin() {
		t.Error("admin identity should be admin")
	}
}

func TestAPIError_Error(t *testing.T) {
	err := NewValidationError("Validation error.", "a", "b")
	if got := err.Error(); got != "[VALIDATION_ERROR] Validation error.: a; b" {
		t.Errorf("Error() = %q", got)
	}
	if got := NewNotFoundError("Event").Error(); got != "[NOT_FOUND] Event not found." {
		t.Errorf("Error() = %q", got)
	}
}
