package model

import "time"

// EventStatus はイベントの開催状態を表す。
type EventStatus string

const (
	EventStatusScheduled EventStatus = "scheduled"
	EventStatusCancelled EventStatus = "cancelled"
	EventStatusPostponed EventStatus = "postponed"
	EventStatusCompleted EventStatus = "completed"
)

// Valid は定義済みの状態かどうかを返す。
func (s EventStatus) Valid() bool {
	switch s {
	case EventStatusScheduled, EventStatusCancelled, EventStatusPostponed, EventStatusCompleted:
		return true
	default:
		return false
	}
}

// Event は主催者が作成するイベント。OrganizerIDが所有者を表す。
type Event struct {
	ID           string      `json:"id"`
	OrganizerID  string      `json:"organizerId"`
	VenueID      string      `json:"venueId"`
	CategoryID   string      `json:"categoryId"`
	Title        string      `json:"title"`
	Description  string      `json:"description,omitempty"`
	StartDate    time.Time   `json:"startDate"`
	EndDate      time.Time   `json:"endDate"`
	Status       EventStatus `json:"status"`
	IsPublished  bool        `json:"isPublished"`
	MaxAttendees *int        `json:"maxAttendees,omitempty"`
	ImageURL     string      `json:"imageUrl,omitempty"`
	CreatedAt    time.Time   `json:"createdAt"`
	UpdatedAt    time.Time   `json:"updatedAt"`
}

func (e *Event) GetID() string   { return e.ID }
func (e *Event) SetID(id string) { e.ID = id }

// Validate はイベントの入力値を検証する。
// 未指定の状態はscheduledとして扱う。
func (e *Event) Validate() []string {
	if e.Status == "" {
		e.Status = EventStatusScheduled
	}
	var errs fieldErrors
	errs.required("organizerId", e.OrganizerID)
	errs.required("venueId", e.VenueID)
	errs.required("categoryId", e.CategoryID)
	errs.required("title", e.Title)
	errs.maxLen("title", e.Title, 255)
	errs.maxLen("imageUrl", e.ImageURL, 255)
	errs.check(!e.StartDate.IsZero(), "startDate is required")
	errs.check(!e.EndDate.IsZero(), "endDate is required")
	errs.check(e.EndDate.IsZero() || !e.EndDate.Before(e.StartDate), "endDate must not be before startDate")
	errs.check(e.Status.Valid(), "status must be one of scheduled, cancelled, postponed, completed")
	errs.check(e.MaxAttendees == nil || *e.MaxAttendees >= 0, "maxAttendees must not be negative")
	return errs
}

func (e *Event) SanitizeText(clean func(string) string) {
	e.Title = clean(e.Title)
	e.Description = clean(e.Description)
}

// OwnedBy はイベントの主催者が指定ユーザーかどうかを返す。
func (e *Event) OwnedBy(userID string) bool {
	return e.OrganizerID == userID
}

// EventOrganizer は応答に埋め込む主催者の公開プロフィール。
type EventOrganizer struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

func (o *EventOrganizer) GetID() string { return o.ID }

// NewEventOrganizer はユーザーから公開項目のみを取り出す。
func NewEventOrganizer(u *User) *EventOrganizer {
	if u == nil {
		return nil
	}
	return &EventOrganizer{ID: u.ID, Username: u.Username, Email: u.Email, FirstName: u.FirstName, LastName: u.LastName}
}

// EventSummary は一覧応答用に主催者・会場・カテゴリを解決したイベント。
// 参照先が削除済みの場合は該当フィールドがnullになる。
type EventSummary struct {
	*Event
	Organizer *EventOrganizer `json:"organizer"`
	Venue     *Venue          `json:"venue"`
	Category  *Category       `json:"category"`
}

// EventDetail は単一取得の応答で、チケット種別と登壇者（紐付け上の役割付き）を含む。
type EventDetail struct {
	EventSummary
	TicketTypes []*TicketType        `json:"ticketTypes"`
	Speakers    []EventSpeakerDetail `json:"speakers"`
}
