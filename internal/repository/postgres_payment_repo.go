package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/hitoshi/eventhub/internal/model"
)

// PostgresPaymentRepo はPostgreSQLを使用した決済リポジトリ。
type PostgresPaymentRepo struct {
	db DBTX
}

// NewPostgresPaymentRepo はPostgresPaymentRepoを生成する。
func NewPostgresPaymentRepo(db DBTX) *PostgresPaymentRepo {
	return &PostgresPaymentRepo{db: db}
}

const paymentColumns = `id, registration_id, amount, currency, payment_date, status, transaction_id, payment_method`

func scanPayment(row rowScanner) (*model.Payment, error) {
	p := &model.Payment{}
	var transactionID, method sql.NullString
	err := row.Scan(&p.ID, &p.RegistrationID, &p.Amount, &p.Currency, &p.PaymentDate, &p.Status, &transactionID, &method)
	if err != nil {
		return nil, err
	}
	p.TransactionID = nullStringValue(transactionID)
	p.PaymentMethod = nullStringValue(method)
	return p, nil
}

func (r *PostgresPaymentRepo) Insert(ctx context.Context, p *model.Payment) error {
	ensureID(&p.ID)
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO payments (id, registration_id, amount, currency, payment_date, status, transaction_id, payment_method)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		p.ID, p.RegistrationID, p.Amount, p.Currency, p.PaymentDate, p.Status,
		nullString(p.TransactionID), nullString(p.PaymentMethod),
	)
	if err != nil {
		return fmt.Errorf("failed to insert payment: %w", translateError(err))
	}
	return nil
}

func (r *PostgresPaymentRepo) FindAll(ctx context.Context) ([]*model.Payment, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+paymentColumns+` FROM payments ORDER BY payment_date, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}
	defer rows.Close()

	var payments []*model.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan payment: %w", err)
		}
		payments = append(payments, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate payments: %w", err)
	}
	return payments, nil
}

func (r *PostgresPaymentRepo) FindByID(ctx context.Context, id string) (*model.Payment, error) {
	if !validID(id) {
		return nil, nil
	}
	p, err := scanPayment(r.db.QueryRowContext(ctx, `SELECT `+paymentColumns+` FROM payments WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find payment by ID: %w", err)
	}
	return p, nil
}

func (r *PostgresPaymentRepo) Update(ctx context.Context, p *model.Payment) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE payments
		 SET registration_id = $2, amount = $3, currency = $4, payment_date = $5,
		     status = $6, transaction_id = $7, payment_method = $8
		 WHERE id = $1`,
		p.ID, p.RegistrationID, p.Amount, p.Currency, p.PaymentDate, p.Status,
		nullString(p.TransactionID), nullString(p.PaymentMethod),
	)
	if err != nil {
		return fmt.Errorf("failed to update payment: %w", translateError(err))
	}
	return requireAffected(result, "Payment")
}

func (r *PostgresPaymentRepo) DeleteByID(ctx context.Context, id string) (bool, error) {
	return deleteByID(ctx, r.db, "payments", id)
}

var _ CRUDRepository[*model.Payment] = (*PostgresPaymentRepo)(nil)
