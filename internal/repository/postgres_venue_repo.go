package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/hitoshi/eventhub/internal/model"
)

// PostgresVenueRepo はPostgreSQLを使用した会場リポジトリ。
type PostgresVenueRepo struct {
	db DBTX
}

// NewPostgresVenueRepo はPostgresVenueRepoを生成する。
func NewPostgresVenueRepo(db DBTX) *PostgresVenueRepo {
	return &PostgresVenueRepo{db: db}
}

const venueColumns = `id, name, address, city, state, zip_code, country, capacity, contact_info`

func scanVenue(row rowScanner) (*model.Venue, error) {
	v := &model.Venue{}
	var state, zipCode, contactInfo sql.NullString
	var capacity sql.NullInt64
	if err := row.Scan(&v.ID, &v.Name, &v.Address, &v.City, &state, &zipCode, &v.Country, &capacity, &contactInfo); err != nil {
		return nil, err
	}
	v.State = nullStringValue(state)
	v.ZipCode = nullStringValue(zipCode)
	v.ContactInfo = nullStringValue(contactInfo)
	v.Capacity = nullIntValue(capacity)
	return v, nil
}

func (r *PostgresVenueRepo) Insert(ctx context.Context, v *model.Venue) error {
	ensureID(&v.ID)
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO venues (id, name, address, city, state, zip_code, country, capacity, contact_info)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		v.ID, v.Name, v.Address, v.City, nullString(v.State), nullString(v.ZipCode),
		v.Country, nullInt(v.Capacity), nullString(v.ContactInfo),
	)
	if err != nil {
		return fmt.Errorf("failed to insert venue: %w", translateError(err))
	}
	return nil
}

func (r *PostgresVenueRepo) FindAll(ctx context.Context) ([]*model.Venue, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+venueColumns+` FROM venues ORDER BY name, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list venues: %w", err)
	}
	defer rows.Close()

	var venues []*model.Venue
	for rows.Next() {
		v, err := scanVenue(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan venue: %w", err)
		}
		venues = append(venues, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate venues: %w", err)
	}
	return venues, nil
}

// FindByID は指定IDの会場を取得する。見つからない場合はnilを返す。
func (r *PostgresVenueRepo) FindByID(ctx context.Context, id string) (*model.Venue, error) {
	if !validID(id) {
		return nil, nil
	}
	v, err := scanVenue(r.db.QueryRowContext(ctx, `SELECT `+venueColumns+` FROM venues WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find venue by ID: %w", err)
	}
	return v, nil
}

func (r *PostgresVenueRepo) Update(ctx context.Context, v *model.Venue) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE venues
		 SET name = $2, address = $3, city = $4, state = $5, zip_code = $6,
		     country = $7, capacity = $8, contact_info = $9
		 WHERE id = $1`,
		v.ID, v.Name, v.Address, v.City, nullString(v.State), nullString(v.ZipCode),
		v.Country, nullInt(v.Capacity), nullString(v.ContactInfo),
	)
	if err != nil {
		return fmt.Errorf("failed to update venue: %w", translateError(err))
	}
	return requireAffected(result, "Venue")
}

func (r *PostgresVenueRepo) DeleteByID(ctx context.Context, id string) (bool, error) {
	return deleteByID(ctx, r.db, "venues", id)
}

var _ CRUDRepository[*model.Venue] = (*PostgresVenueRepo)(nil)
