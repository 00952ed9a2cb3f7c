package model

// Speaker はイベント登壇者。
type Speaker struct {
	ID              string `json:"id"`
	FirstName       string `json:"firstName"`
	LastName        string `json:"lastName"`
	Bio             string `json:"bio,omitempty"`
	Email           string `json:"email,omitempty"`
	PhotoURL        string `json:"photoUrl,omitempty"`
	SocialMediaLink string `json:"socialMediaLink,omitempty"`
}

func (s *Speaker) GetID() string   { return s.ID }
func (s *Speaker) SetID(id string) { s.ID = id }

func (s *Speaker) Validate() []string {
	var errs fieldErrors
	errs.required("firstName", s.FirstName)
	errs.maxLen("firstName", s.FirstName, 100)
	errs.required("lastName", s.LastName)
	errs.maxLen("lastName", s.LastName, 100)
	errs.maxLen("email", s.Email, 100)
	errs.email("email", s.Email)
	errs.maxLen("photoUrl", s.PhotoURL, 255)
	errs.maxLen("socialMediaLink", s.SocialMediaLink, 255)
	return errs
}

func (s *Speaker) SanitizeText(clean func(string) string) {
	s.FirstName = clean(s.FirstName)
	s.LastName = clean(s.LastName)
	s.Bio = clean(s.Bio)
}

// EventSpeaker はイベントと登壇者の紐付け。複合キー(EventID, SpeakerID)を持つ。
type EventSpeaker struct {
	EventID   string `json:"eventId"`
	SpeakerID string `json:"speakerId"`
	Role      string `json:"role,omitempty"`
}

// EventSpeakerDetail は登壇者情報と紐付け上の役割をまとめたもの。
type EventSpeakerDetail struct {
	Speaker
	Role string `json:"role,omitempty"`
}
