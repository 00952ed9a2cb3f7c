package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/hitoshi/eventhub/internal/model"
)

// Summarize は主催者・会場・カテゴリをそれぞれ1クエリでまとめて取得し、イベントに結び付ける。
func (r *PostgresEventRepo) Summarize(ctx context.Context, events []*model.Event) ([]*model.EventSummary, error) {
	summaries := make([]*model.EventSummary, 0, len(events))
	if len(events) == 0 {
		return summaries, nil
	}

	organizerIDs := make([]string, 0, len(events))
	venueIDs := make([]string, 0, len(events))
	categoryIDs := make([]string, 0, len(events))
	for _, e := range events {
		organizerIDs = append(organizerIDs, e.OrganizerID)
		venueIDs = append(venueIDs, e.VenueID)
		categoryIDs = append(categoryIDs, e.CategoryID)
	}

	organizers, err := queryByIDs(ctx, r.db,
		`SELECT id, username, email, first_name, last_name FROM users WHERE id = ANY($1)`,
		organizerIDs, scanOrganizer)
	if err != nil {
		return nil, fmt.Errorf("failed to load event organizers: %w", err)
	}
	venues, err := queryByIDs(ctx, r.db,
		`SELECT `+venueColumns+` FROM venues WHERE id = ANY($1)`,
		venueIDs, scanVenue)
	if err != nil {
		return nil, fmt.Errorf("failed to load event venues: %w", err)
	}
	categories, err := queryByIDs(ctx, r.db,
		`SELECT id, name, description FROM categories WHERE id = ANY($1)`,
		categoryIDs, scanCategory)
	if err != nil {
		return nil, fmt.Errorf("failed to load event categories: %w", err)
	}

	for _, e := range events {
		summaries = append(summaries, &model.EventSummary{
			Event:     e,
			Organizer: organizers[e.OrganizerID],
			Venue:     venues[e.VenueID],
			Category:  categories[e.CategoryID],
		})
	}
	return summaries, nil
}

// Detail はイベントの関連レコードをすべて解決する。
func (r *PostgresEventRepo) Detail(ctx context.Context, event *model.Event) (*model.EventDetail, error) {
	summaries, err := r.Summarize(ctx, []*model.Event{event})
	if err != nil {
		return nil, err
	}

	ticketTypes, err := r.ticketTypesOf(ctx, event.ID)
	if err != nil {
		return nil, err
	}
	speakers, err := NewPostgresEventSpeakerRepo(r.db).ListByEvent(ctx, event.ID)
	if err != nil {
		return nil, err
	}
	if speakers == nil {
		speakers = []model.EventSpeakerDetail{}
	}

	return &model.EventDetail{
		EventSummary: *summaries[0],
		TicketTypes:  ticketTypes,
		Speakers:     speakers,
	}, nil
}

func (r *PostgresEventRepo) ticketTypesOf(ctx context.Context, eventID string) ([]*model.TicketType, error) {
	ticketTypes := []*model.TicketType{}
	if !validID(eventID) {
		return ticketTypes, nil
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+ticketTypeColumns+` FROM ticket_types WHERE event_id = $1 ORDER BY price, id`, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to list ticket types of event: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		t, err := scanTicketType(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ticket type: %w", err)
		}
		ticketTypes = append(ticketTypes, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate ticket types: %w", err)
	}
	return ticketTypes, nil
}

func scanOrganizer(row rowScanner) (*model.EventOrganizer, error) {
	o := &model.EventOrganizer{}
	var firstName, lastName sql.NullString
	if err := row.Scan(&o.ID, &o.Username, &o.Email, &firstName, &lastName); err != nil {
		return nil, err
	}
	o.FirstName = nullStringValue(firstName)
	o.LastName = nullStringValue(lastName)
	return o, nil
}

type identified interface {
	GetID() string
}

// queryByIDs はid = ANY($1)形式のクエリを実行し、IDをキーとするマップを返す。
// UUID形式でないIDは問い合わせに含めない。
func queryByIDs[T identified](ctx context.Context, db DBTX, query string, ids []string, scan func(rowScanner) (T, error)) (map[string]T, error) {
	found := make(map[string]T, len(ids))
	valid := make([]string, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if validID(id) && !seen[id] {
			seen[id] = true
			valid = append(valid, id)
		}
	}
	if len(valid) == 0 {
		return found, nil
	}

	rows, err := db.QueryContext(ctx, query, pq.Array(valid))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		rec, err := scan(rows)
		if err != nil {
			return nil, err
		}
		found[rec.GetID()] = rec
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return found, nil
}
