package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/hitoshi/eventhub/internal/model"
)

// PostgresTicketTypeRepo はPostgreSQLを使用したチケット種別リポジトリ。
type PostgresTicketTypeRepo struct {
	db DBTX
}

// NewPostgresTicketTypeRepo はPostgresTicketTypeRepoを生成する。
func NewPostgresTicketTypeRepo(db DBTX) *PostgresTicketTypeRepo {
	return &PostgresTicketTypeRepo{db: db}
}

const ticketTypeColumns = `id, event_id, name, description, price, quantity_available, sale_start_date, sale_end_date`

func scanTicketType(row rowScanner) (*model.TicketType, error) {
	t := &model.TicketType{}
	var description sql.NullString
	var saleStart, saleEnd sql.NullTime
	err := row.Scan(&t.ID, &t.EventID, &t.Name, &description, &t.Price, &t.QuantityAvailable, &saleStart, &saleEnd)
	if err != nil {
		return nil, err
	}
	t.Description = nullStringValue(description)
	t.SaleStartDate = nullTimeValue(saleStart)
	t.SaleEndDate = nullTimeValue(saleEnd)
	return t, nil
}

func (r *PostgresTicketTypeRepo) Insert(ctx context.Context, t *model.TicketType) error {
	ensureID(&t.ID)
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO ticket_types (id, event_id, name, description, price, quantity_available, sale_start_date, sale_end_date)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		t.ID, t.EventID, t.Name, nullString(t.Description), t.Price, t.QuantityAvailable,
		nullTime(t.SaleStartDate), nullTime(t.SaleEndDate),
	)
	if err != nil {
		return fmt.Errorf("failed to insert ticket type: %w", translateError(err))
	}
	return nil
}

func (r *PostgresTicketTypeRepo) FindAll(ctx context.Context) ([]*model.TicketType, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+ticketTypeColumns+` FROM ticket_types ORDER BY event_id, price, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list ticket types: %w", err)
	}
	defer rows.Close()

	var ticketTypes []*model.TicketType
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

func (r *PostgresTicketTypeRepo) FindByID(ctx context.Context, id string) (*model.TicketType, error) {
	if !validID(id) {
		return nil, nil
	}
	t, err := scanTicketType(r.db.QueryRowContext(ctx, `SELECT `+ticketTypeColumns+` FROM ticket_types WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find ticket type by ID: %w", err)
	}
	return t, nil
}

func (r *PostgresTicketTypeRepo) Update(ctx context.Context, t *model.TicketType) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE ticket_types
		 SET event_id = $2, name = $3, description = $4, price = $5, quantity_available = $6,
		     sale_start_date = $7, sale_end_date = $8
		 WHERE id = $1`,
		t.ID, t.EventID, t.Name, nullString(t.Description), t.Price, t.QuantityAvailable,
		nullTime(t.SaleStartDate), nullTime(t.SaleEndDate),
	)
	if err != nil {
		return fmt.Errorf("failed to update ticket type: %w", translateError(err))
	}
	return requireAffected(result, "TicketType")
}

func (r *PostgresTicketTypeRepo) DeleteByID(ctx context.Context, id string) (bool, error) {
	return deleteByID(ctx, r.db, "ticket_types", id)
}

var _ CRUDRepository[*model.TicketType] = (*PostgresTicketTypeRepo)(nil)
