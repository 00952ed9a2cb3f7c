package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/hitoshi/eventhub/internal/model"
)

// PostgresCategoryRepo はPostgreSQLを使用したカテゴリリポジトリ。
type PostgresCategoryRepo struct {
	db DBTX
}

// NewPostgresCategoryRepo はPostgresCategoryRepoを生成する。
func NewPostgresCategoryRepo(db DBTX) *PostgresCategoryRepo {
	return &PostgresCategoryRepo{db: db}
}

func scanCategory(row rowScanner) (*model.Category, error) {
	c := &model.Category{}
	var description sql.NullString
	if err := row.Scan(&c.ID, &c.Name, &description); err != nil {
		return nil, err
	}
	c.Description = nullStringValue(description)
	return c, nil
}

func (r *PostgresCategoryRepo) Insert(ctx context.Context, c *model.Category) error {
	ensureID(&c.ID)
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO categories (id, name, description) VALUES ($1, $2, $3)`,
		c.ID, c.Name, nullString(c.Description),
	)
	if err != nil {
		return fmt.Errorf("failed to insert category: %w", translateError(err))
	}
	return nil
}

func (r *PostgresCategoryRepo) FindAll(ctx context.Context) ([]*model.Category, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name, description FROM categories ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	defer rows.Close()

	var categories []*model.Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate categories: %w", err)
	}
	return categories, nil
}

func (r *PostgresCategoryRepo) FindByID(ctx context.Context, id string) (*model.Category, error) {
	if !validID(id) {
		return nil, nil
	}
	c, err := scanCategory(r.db.QueryRowContext(ctx, `SELECT id, name, description FROM categories WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find category by ID: %w", err)
	}
	return c, nil
}

func (r *PostgresCategoryRepo) Update(ctx context.Context, c *model.Category) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE categories SET name = $2, description = $3 WHERE id = $1`,
		c.ID, c.Name, nullString(c.Description),
	)
	if err != nil {
		return fmt.Errorf("failed to update category: %w", translateError(err))
	}
	return requireAffected(result, "Category")
}

// DeleteByID は指定IDのカテゴリを削除する。
// イベントから参照されている場合は外部キー制約によりValidationエラーとなる。
func (r *PostgresCategoryRepo) DeleteByID(ctx context.Context, id string) (bool, error) {
	return deleteByID(ctx, r.db, "categories", id)
}

var _ CRUDRepository[*model.Category] = (*PostgresCategoryRepo)(nil)
