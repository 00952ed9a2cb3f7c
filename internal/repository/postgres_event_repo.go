package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/hitoshi/eventhub/internal/model"
)

// PostgresEventRepo はPostgreSQLを使用したイベントリポジトリ。
type PostgresEventRepo struct {
	db DBTX
}

// NewPostgresEventRepo はPostgresEventRepoを生成する。
func NewPostgresEventRepo(db DBTX) *PostgresEventRepo {
	return &PostgresEventRepo{db: db}
}

const eventColumns = `id, organizer_id, venue_id, category_id, title, description, start_date, end_date,
	status, is_published, max_attendees, image_url, created_at, updated_at`

func scanEvent(row rowScanner) (*model.Event, error) {
	e := &model.Event{}
	var description, imageURL sql.NullString
	var maxAttendees sql.NullInt64
	err := row.Scan(
		&e.ID, &e.OrganizerID, &e.VenueID, &e.CategoryID, &e.Title, &description,
		&e.StartDate, &e.EndDate, &e.Status, &e.IsPublished, &maxAttendees, &imageURL,
		&e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	e.Description = nullStringValue(description)
	e.ImageURL = nullStringValue(imageURL)
	e.MaxAttendees = nullIntValue(maxAttendees)
	return e, nil
}

func (r *PostgresEventRepo) Insert(ctx context.Context, e *model.Event) error {
	ensureID(&e.ID)
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO events (id, organizer_id, venue_id, category_id, title, description,
		                     start_date, end_date, status, is_published, max_attendees, image_url)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		 RETURNING created_at, updated_at`,
		e.ID, e.OrganizerID, e.VenueID, e.CategoryID, e.Title, nullString(e.Description),
		e.StartDate, e.EndDate, e.Status, e.IsPublished, nullInt(e.MaxAttendees), nullString(e.ImageURL),
	).Scan(&e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert event: %w", translateError(err))
	}
	return nil
}

// FindAll は全イベントを開始日時順に取得する。
func (r *PostgresEventRepo) FindAll(ctx context.Context) ([]*model.Event, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+eventColumns+` FROM events ORDER BY start_date, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	defer rows.Close()

	var events []*model.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate events: %w", err)
	}
	return events, nil
}

func (r *PostgresEventRepo) FindByID(ctx context.Context, id string) (*model.Event, error) {
	if !validID(id) {
		return nil, nil
	}
	e, err := scanEvent(r.db.QueryRowContext(ctx, `SELECT `+eventColumns+` FROM events WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find event by ID: %w", err)
	}
	return e, nil
}

func (r *PostgresEventRepo) Update(ctx context.Context, e *model.Event) error {
	err := r.db.QueryRowContext(ctx,
		`UPDATE events
		 SET organizer_id = $2, venue_id = $3, category_id = $4, title = $5, description = $6,
		     start_date = $7, end_date = $8, status = $9, is_published = $10,
		     max_attendees = $11, image_url = $12, updated_at = now()
		 WHERE id = $1
		 RETURNING updated_at`,
		e.ID, e.OrganizerID, e.VenueID, e.CategoryID, e.Title, nullString(e.Description),
		e.StartDate, e.EndDate, e.Status, e.IsPublished, nullInt(e.MaxAttendees), nullString(e.ImageURL),
	).Scan(&e.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.NewNotFoundError("Event")
	}
	if err != nil {
		return fmt.Errorf("failed to update event: %w", translateError(err))
	}
	return nil
}

func (r *PostgresEventRepo) DeleteByID(ctx context.Context, id string) (bool, error) {
	return deleteByID(ctx, r.db, "events", id)
}

// CompletePastEvents はend_dateを過ぎたscheduledイベントをcompletedに更新する。
func (r *PostgresEventRepo) CompletePastEvents(ctx context.Context, now time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE events SET status = $1, updated_at = now()
		 WHERE status = $2 AND end_date < $3`,
		model.EventStatusCompleted, model.EventStatusScheduled, now,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to complete past events: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n, nil
}

var _ EventRepository = (*PostgresEventRepo)(nil)
