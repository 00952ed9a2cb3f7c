package repository

import "github.com/hitoshi/eventhub/internal/model"

// Stores は全リソースのリポジトリをまとめたもの。
// *sql.DBでも*sql.Txでも同じ構成で生成できる。
type Stores struct {
	Users         UserRepository
	Venues        CRUDRepository[*model.Venue]
	Categories    CRUDRepository[*model.Category]
	Events        EventRepository
	TicketTypes   CRUDRepository[*model.TicketType]
	Speakers      CRUDRepository[*model.Speaker]
	EventSpeakers EventSpeakerRepository
	Registrations CRUDRepository[*model.Registration]
	Payments      CRUDRepository[*model.Payment]
}

// NewPostgresStores はdb上で動作するPostgreSQLリポジトリ一式を生成する。
func NewPostgresStores(db DBTX) *Stores {
	return &Stores{
		Users:         NewPostgresUserRepo(db),
		Venues:        NewPostgresVenueRepo(db),
		Categories:    NewPostgresCategoryRepo(db),
		Events:        NewPostgresEventRepo(db),
		TicketTypes:   NewPostgresTicketTypeRepo(db),
		Speakers:      NewPostgresSpeakerRepo(db),
		EventSpeakers: NewPostgresEventSpeakerRepo(db),
		Registrations: NewPostgresRegistrationRepo(db),
		Payments:      NewPostgresPaymentRepo(db),
	}
}
