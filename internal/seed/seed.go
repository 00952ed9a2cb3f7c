// Package seed は開発・デモ用のサンプルデータ投入を提供する。
package seed

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/eventhub/internal/model"
	"github.com/hitoshi/eventhub/internal/repository"
)

// AdminEmail は投入済み判定に使う管理者ユーザーのメールアドレス。
const AdminEmail = "admin@example.com"

// PasswordHasher はサンプルユーザーのパスワードハッシュ化に使う。
type PasswordHasher interface {
	Hash(password string) (string, error)
}

// Summary は投入したレコード件数。
type Summary struct {
	Users         int
	Venues        int
	Categories    int
	Events        int
	TicketTypes   int
	Registrations int
	Speakers      int
	EventSpeakers int
	Payments      int
	Skipped       bool
}

// Seeder はサンプルデータを投入する。
type Seeder struct {
	hasher PasswordHasher
	logger *slog.Logger
	now    func() time.Time
}

// NewSeeder はSeederを生成する。
func NewSeeder(hasher PasswordHasher, logger *slog.Logger) *Seeder {
	return &Seeder{hasher: hasher, logger: logger, now: time.Now}
}

// RunInTx は1トランザクション内でRunを実行する。途中で失敗した場合は何も残さない。
func (s *Seeder) RunInTx(ctx context.Context, db *sql.DB) (*Summary, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	summary, err := s.Run(ctx, repository.NewPostgresStores(tx))
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit seed data: %w", err)
	}
	return summary, nil
}

// Run はstoresにサンプルデータを投入する。
// 管理者ユーザーが既に存在する場合は何もせずSkippedを返す。
func (s *Seeder) Run(ctx context.Context, stores *repository.Stores) (*Summary, error) {
	existing, err := stores.Users.FindByEmail(ctx, AdminEmail)
	if err != nil {
		return nil, fmt.Errorf("failed to check seed state: %w", err)
	}
	if existing != nil {
		s.logger.Info("seed data already present, skipping", slog.String("email", AdminEmail))
		return &Summary{Skipped: true}, nil
	}

	sum := &Summary{}
	day := 24 * time.Hour
	now := s.now().UTC().Truncate(time.Second)
	at := func(days int) time.Time { return now.Add(time.Duration(days) * day) }
	ptr := func(t time.Time) *time.Time { return &t }
	intp := func(n int) *int { return &n }

	// 1. ユーザー
	users := []struct {
		user     *model.User
		password string
	}{
		{&model.User{Username: "adminuser", Email: AdminEmail, FirstName: "Admin", LastName: "User", Role: model.RoleAdmin}, "adminpassword"},
		{&model.User{Username: "eventorganizer", Email: "organizer@example.com", FirstName: "Event", LastName: "Organizer", Role: model.RoleOrganizer}, "organizerpassword"},
		{&model.User{Username: "eventattendee", Email: "attendee@example.com", FirstName: "Event", LastName: "Attendee", Role: model.RoleAttendee}, "attendeepassword"},
	}
	for _, u := range users {
		hash, err := s.hasher.Hash(u.password)
		if err != nil {
			return nil, fmt.Errorf("failed to hash seed password: %w", err)
		}
		u.user.PasswordHash = hash
		if err := insert[*model.User](ctx, stores.Users, u.user, &sum.Users); err != nil {
			return nil, err
		}
	}
	organizer, attendee := users[1].user, users[2].user

	// 2. 会場とカテゴリ
	venue1 := &model.Venue{Name: "Grand Convention Center", Address: "123 Main St", City: "Metropolis", State: "NY", ZipCode: "10001", Country: "USA", Capacity: intp(5000), ContactInfo: "venue@example.com"}
	venue2 := &model.Venue{Name: "Tech Expo Hall", Address: "456 Innovation Ave", City: "Techville", State: "CA", ZipCode: "90210", Country: "USA", Capacity: intp(2000), ContactInfo: "techvenue@example.com"}
	for _, v := range []*model.Venue{venue1, venue2} {
		if err := insert(ctx, stores.Venues, v, &sum.Venues); err != nil {
			return nil, err
		}
	}
	tech := &model.Category{Name: "Technology", Description: "Events related to software, hardware, AI, etc."}
	music := &model.Category{Name: "Music", Description: "Concerts, festivals, and music-related events."}
	for _, c := range []*model.Category{tech, music} {
		if err := insert(ctx, stores.Categories, c, &sum.Categories); err != nil {
			return nil, err
		}
	}

	// 3. イベントとチケット種別
	conf := &model.Event{
		OrganizerID: organizer.ID, VenueID: venue1.ID, CategoryID: tech.ID,
		Title:       "Global Tech Conference",
		Description: "The premier tech event of the year, featuring leading innovators.",
		StartDate:   at(30), EndDate: at(32),
		Status: model.EventStatusScheduled, IsPublished: true, MaxAttendees: intp(4000),
		ImageURL: "http://example.com/tech-conf.jpg",
	}
	fest := &model.Event{
		OrganizerID: organizer.ID, VenueID: venue2.ID, CategoryID: music.ID,
		Title:       "Summer Music Festival",
		Description: "A weekend of live music from various artists.",
		StartDate:   at(60), EndDate: at(62),
		Status: model.EventStatusScheduled, IsPublished: true, MaxAttendees: intp(1500),
		ImageURL: "http://example.com/music-fest.jpg",
	}
	for _, e := range []*model.Event{conf, fest} {
		if err := insert[*model.Event](ctx, stores.Events, e, &sum.Events); err != nil {
			return nil, err
		}
	}

	standard := &model.TicketType{EventID: conf.ID, Name: "Standard Pass", Description: "Access to all conference sessions.", Price: 299.99, QuantityAvailable: 1000, SaleStartDate: ptr(at(15)), SaleEndDate: ptr(at(29))}
	vip := &model.TicketType{EventID: conf.ID, Name: "VIP Pass", Description: "Includes premium access and workshops.", Price: 499.99, QuantityAvailable: 200, SaleStartDate: ptr(at(15)), SaleEndDate: ptr(at(29))}
	general := &model.TicketType{EventID: fest.ID, Name: "General Admission", Description: "Entry to the music festival for the weekend.", Price: 75, QuantityAvailable: 800, SaleStartDate: ptr(at(45)), SaleEndDate: ptr(at(59))}
	for _, tt := range []*model.TicketType{standard, vip, general} {
		if err := insert(ctx, stores.TicketTypes, tt, &sum.TicketTypes); err != nil {
			return nil, err
		}
	}

	// 4. 申込
	reg1 := &model.Registration{UserID: attendee.ID, EventID: conf.ID, TicketTypeID: standard.ID, Quantity: 1, TotalAmount: 299.99, Status: model.RegistrationStatusConfirmed, RegistrationDate: now}
	reg2 := &model.Registration{UserID: attendee.ID, EventID: fest.ID, TicketTypeID: general.ID, Quantity: 2, TotalAmount: 150, Status: model.RegistrationStatusPending, RegistrationDate: now}
	for _, r := range []*model.Registration{reg1, reg2} {
		if err := insert(ctx, stores.Registrations, r, &sum.Registrations); err != nil {
			return nil, err
		}
	}

	// 5. 登壇者と紐付け
	jane := &model.Speaker{FirstName: "Jane", LastName: "Doe", Bio: "AI expert and author.", Email: "jane.doe@example.com", PhotoURL: "http://example.com/jane.jpg"}
	john := &model.Speaker{FirstName: "John", LastName: "Smith", Bio: "Cloud computing specialist.", Email: "john.smith@example.com", PhotoURL: "http://example.com/john.jpg"}
	for _, sp := range []*model.Speaker{jane, john} {
		if err := insert(ctx, stores.Speakers, sp, &sum.Speakers); err != nil {
			return nil, err
		}
	}
	for _, link := range []*model.EventSpeaker{
		{EventID: conf.ID, SpeakerID: jane.ID, Role: "Keynote Speaker"},
		{EventID: conf.ID, SpeakerID: john.ID, Role: "Panelist"},
	} {
		if err := stores.EventSpeakers.Upsert(ctx, link); err != nil {
			return nil, fmt.Errorf("failed to seed event speaker: %w", err)
		}
		sum.EventSpeakers++
	}

	// 6. 決済
	payment := &model.Payment{
		RegistrationID: reg1.ID, Amount: reg1.TotalAmount, Currency: "USD",
		Status: model.PaymentStatusCompleted, PaymentDate: now,
		TransactionID: fmt.Sprintf("TXN%d", now.UnixMilli()), PaymentMethod: "Credit Card",
	}
	if err := insert(ctx, stores.Payments, payment, &sum.Payments); err != nil {
		return nil, err
	}

	s.logger.Info("seed data inserted",
		slog.Int("users", sum.Users),
		slog.Int("events", sum.Events),
		slog.Int("registrations", sum.Registrations),
	)
	return sum, nil
}

type record interface {
	Validate() []string
}

// insert は検証済みのレコードを登録し、件数を加算する。
func insert[T record](ctx context.Context, store repository.CRUDRepository[T], rec T, count *int) error {
	if errs := rec.Validate(); len(errs) > 0 {
		return fmt.Errorf("invalid seed record %T: %v", rec, errs)
	}
	if err := store.Insert(ctx, rec); err != nil {
		return fmt.Errorf("failed to seed %T: %w", rec, err)
	}
	*count++
	return nil
}
