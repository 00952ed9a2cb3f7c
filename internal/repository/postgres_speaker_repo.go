package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/hitoshi/eventhub/internal/model"
)

// PostgresSpeakerRepo はPostgreSQLを使用した登壇者リポジトリ。
type PostgresSpeakerRepo struct {
	db DBTX
}

// NewPostgresSpeakerRepo はPostgresSpeakerRepoを生成する。
func NewPostgresSpeakerRepo(db DBTX) *PostgresSpeakerRepo {
	return &PostgresSpeakerRepo{db: db}
}

const speakerColumns = `id, first_name, last_name, bio, email, photo_url, social_media_link`

func scanSpeaker(row rowScanner, extra ...any) (*model.Speaker, error) {
	s := &model.Speaker{}
	var bio, email, photoURL, social sql.NullString
	dest := append([]any{&s.ID, &s.FirstName, &s.LastName, &bio, &email, &photoURL, &social}, extra...)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	s.Bio = nullStringValue(bio)
	s.Email = nullStringValue(email)
	s.PhotoURL = nullStringValue(photoURL)
	s.SocialMediaLink = nullStringValue(social)
	return s, nil
}

func (r *PostgresSpeakerRepo) Insert(ctx context.Context, s *model.Speaker) error {
	ensureID(&s.ID)
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO speakers (id, first_name, last_name, bio, email, photo_url, social_media_link)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		s.ID, s.FirstName, s.LastName, nullString(s.Bio), nullString(s.Email),
		nullString(s.PhotoURL), nullString(s.SocialMediaLink),
	)
	if err != nil {
		return fmt.Errorf("failed to insert speaker: %w", translateError(err))
	}
	return nil
}

func (r *PostgresSpeakerRepo) FindAll(ctx context.Context) ([]*model.Speaker, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+speakerColumns+` FROM speakers ORDER BY last_name, first_name, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list speakers: %w", err)
	}
	defer rows.Close()

	var speakers []*model.Speaker
	for rows.Next() {
		s, err := scanSpeaker(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan speaker: %w", err)
		}
		speakers = append(speakers, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate speakers: %w", err)
	}
	return speakers, nil
}

func (r *PostgresSpeakerRepo) FindByID(ctx context.Context, id string) (*model.Speaker, error) {
	if !validID(id) {
		return nil, nil
	}
	s, err := scanSpeaker(r.db.QueryRowContext(ctx, `SELECT `+speakerColumns+` FROM speakers WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find speaker by ID: %w", err)
	}
	return s, nil
}

func (r *PostgresSpeakerRepo) Update(ctx context.Context, s *model.Speaker) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE speakers
		 SET first_name = $2, last_name = $3, bio = $4, email = $5, photo_url = $6, social_media_link = $7
		 WHERE id = $1`,
		s.ID, s.FirstName, s.LastName, nullString(s.Bio), nullString(s.Email),
		nullString(s.PhotoURL), nullString(s.SocialMediaLink),
	)
	if err != nil {
		return fmt.Errorf("failed to update speaker: %w", translateError(err))
	}
	return requireAffected(result, "Speaker")
}

func (r *PostgresSpeakerRepo) DeleteByID(ctx context.Context, id string) (bool, error) {
	return deleteByID(ctx, r.db, "speakers", id)
}

var _ CRUDRepository[*model.Speaker] = (*PostgresSpeakerRepo)(nil)
