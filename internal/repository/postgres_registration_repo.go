package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/hitoshi/eventhub/internal/model"
)

// PostgresRegistrationRepo はPostgreSQLを使用した申込リポジトリ。
type PostgresRegistrationRepo struct {
	db DBTX
}

// NewPostgresRegistrationRepo はPostgresRegistrationRepoを生成する。
func NewPostgresRegistrationRepo(db DBTX) *PostgresRegistrationRepo {
	return &PostgresRegistrationRepo{db: db}
}

const registrationColumns = `id, user_id, event_id, ticket_type_id, registration_date, status, quantity, total_amount`

func scanRegistration(row rowScanner) (*model.Registration, error) {
	reg := &model.Registration{}
	err := row.Scan(
		&reg.ID, &reg.UserID, &reg.EventID, &reg.TicketTypeID,
		&reg.RegistrationDate, &reg.Status, &reg.Quantity, &reg.TotalAmount,
	)
	if err != nil {
		return nil, err
	}
	return reg, nil
}

func (r *PostgresRegistrationRepo) Insert(ctx context.Context, reg *model.Registration) error {
	ensureID(&reg.ID)
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO registrations (id, user_id, event_id, ticket_type_id, registration_date, status, quantity, total_amount)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		reg.ID, reg.UserID, reg.EventID, reg.TicketTypeID,
		reg.RegistrationDate, reg.Status, reg.Quantity, reg.TotalAmount,
	)
	if err != nil {
		return fmt.Errorf("failed to insert registration: %w", translateError(err))
	}
	return nil
}

func (r *PostgresRegistrationRepo) FindAll(ctx context.Context) ([]*model.Registration, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+registrationColumns+` FROM registrations ORDER BY registration_date, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list registrations: %w", err)
	}
	defer rows.Close()

	var registrations []*model.Registration
	for rows.Next() {
		reg, err := scanRegistration(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan registration: %w", err)
		}
		registrations = append(registrations, reg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate registrations: %w", err)
	}
	return registrations, nil
}

func (r *PostgresRegistrationRepo) FindByID(ctx context.Context, id string) (*model.Registration, error) {
	if !validID(id) {
		return nil, nil
	}
	reg, err := scanRegistration(r.db.QueryRowContext(ctx, `SELECT `+registrationColumns+` FROM registrations WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find registration by ID: %w", err)
	}
	return reg, nil
}

func (r *PostgresRegistrationRepo) Update(ctx context.Context, reg *model.Registration) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE registrations
		 SET user_id = $2, event_id = $3, ticket_type_id = $4, registration_date = $5,
		     status = $6, quantity = $7, total_amount = $8
		 WHERE id = $1`,
		reg.ID, reg.UserID, reg.EventID, reg.TicketTypeID,
		reg.RegistrationDate, reg.Status, reg.Quantity, reg.TotalAmount,
	)
	if err != nil {
		return fmt.Errorf("failed to update registration: %w", translateError(err))
	}
	return requireAffected(result, "Registration")
}

func (r *PostgresRegistrationRepo) DeleteByID(ctx context.Context, id string) (bool, error) {
	return deleteByID(ctx, r.db, "registrations", id)
}

var _ CRUDRepository[*model.Registration] = (*PostgresRegistrationRepo)(nil)
