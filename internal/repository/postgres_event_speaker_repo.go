package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/eventhub/internal/model"
)

// PostgresEventSpeakerRepo はPostgreSQLを使用したイベント登壇者紐付けリポジトリ。
type PostgresEventSpeakerRepo struct {
	db DBTX
}

// NewPostgresEventSpeakerRepo はPostgresEventSpeakerRepoを生成する。
func NewPostgresEventSpeakerRepo(db DBTX) *PostgresEventSpeakerRepo {
	return &PostgresEventSpeakerRepo{db: db}
}

// ListByEvent はイベントの登壇者を姓名順で返す。
func (r *PostgresEventSpeakerRepo) ListByEvent(ctx context.Context, eventID string) ([]model.EventSpeakerDetail, error) {
	if !validID(eventID) {
		return nil, nil
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT s.id, s.first_name, s.last_name, s.bio, s.email, s.photo_url, s.social_media_link, es.role
		 FROM event_speakers es
		 JOIN speakers s ON s.id = es.speaker_id
		 WHERE es.event_id = $1
		 ORDER BY s.last_name, s.first_name`,
		eventID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list event speakers: %w", err)
	}
	defer rows.Close()

	var details []model.EventSpeakerDetail
	for rows.Next() {
		var role sql.NullString
		s, err := scanSpeaker(rows, &role)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event speaker: %w", err)
		}
		details = append(details, model.EventSpeakerDetail{Speaker: *s, Role: nullStringValue(role)})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate event speakers: %w", err)
	}
	return details, nil
}

// Upsert は紐付けを作成する。既に存在する場合は役割のみ更新する。
func (r *PostgresEventSpeakerRepo) Upsert(ctx context.Context, link *model.EventSpeaker) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO event_speakers (event_id, speaker_id, role)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (event_id, speaker_id) DO UPDATE SET role = EXCLUDED.role`,
		link.EventID, link.SpeakerID, nullString(link.Role),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert event speaker: %w", translateError(err))
	}
	return nil
}

func (r *PostgresEventSpeakerRepo) Delete(ctx context.Context, eventID, speakerID string) (bool, error) {
	if !validID(eventID) || !validID(speakerID) {
		return false, nil
	}
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM event_speakers WHERE event_id = $1 AND speaker_id = $2`,
		eventID, speakerID,
	)
	if err != nil {
		return false, fmt.Errorf("failed to delete event speaker: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n > 0, nil
}

var _ EventSpeakerRepository = (*PostgresEventSpeakerRepo)(nil)
