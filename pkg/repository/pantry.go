package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/pantryscope/pantryscope/pkg/domain"
)

// PantryRepository handles food inventory database operations
type PantryRepository struct {
	db *sqlx.DB
}

// pantryItemSQL represents a pantry item row for SQL operations
type pantryItemSQL struct {
	ID        int64      `db:"id"`
	UserID    string     `db:"user_id"`
	Name      string     `db:"name"`
	Quantity  float64    `db:"quantity"`
	Unit      string     `db:"unit"`
	Category  string     `db:"category"`
	ExpiresAt *time.Time `db:"expires_at"`
	CreatedAt time.Time  `db:"created_at"`
	UpdatedAt time.Time  `db:"updated_at"`
}

// NewPantryRepository creates a new pantry repository
func NewPantryRepository(db *sqlx.DB) *PantryRepository {
	return &PantryRepository{db: db}
}

// CreateItem inserts a new pantry item and sets its ID
func (r *PantryRepository) CreateItem(ctx context.Context, item *domain.PantryItem) error {
	row := &pantryItemSQL{
		UserID:    item.UserID,
		Name:      item.Name,
		Quantity:  item.Quantity,
		Unit:      item.Unit,
		Category:  item.Category,
		ExpiresAt: item.ExpiresAt,
	}

	query := `
		INSERT INTO pantry_items (user_id, name, quantity, unit, category, expires_at)
		VALUES (:user_id, :name, :quantity, :unit, :category, :expires_at)
	`
	result, err := r.db.NamedExecContext(ctx, query, row)
	if err != nil {
		return fmt.Errorf("create pantry item: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("get insert id: %w", err)
	}

	item.ID = id
	return nil
}

// GetItem retrieves a pantry item by ID
func (r *PantryRepository) GetItem(ctx context.Context, id int64) (*domain.PantryItem, error) {
	var row pantryItemSQL
	err := r.db.GetContext(ctx, &row, "SELECT * FROM pantry_items WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("pantry item %d not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get pantry item: %w", err)
	}
	return toDomainPantryItem(&row), nil
}

// GetItems retrieves all pantry items for a user, soonest expiry first.
// Items without an expiry date sort last.
func (r *PantryRepository) GetItems(ctx context.Context, userID string) ([]domain.PantryItem, error) {
	query := `
		SELECT * FROM pantry_items
		WHERE user_id = ?
		ORDER BY expires_at IS NULL, expires_at, name
	`

	var rows []pantryItemSQL
	if err := r.db.SelectContext(ctx, &rows, query, userID); err != nil {
		return nil, fmt.Errorf("get pantry items: %w", err)
	}

	items := make([]domain.PantryItem, len(rows))
	for i, row := range rows {
		items[i] = *toDomainPantryItem(&row)
	}
	return items, nil
}

// UpdateItem updates quantity, unit, category and expiry of an item
func (r *PantryRepository) UpdateItem(ctx context.Context, item *domain.PantryItem) error {
	query := `
		UPDATE pantry_items
		SET name = ?, quantity = ?, unit = ?, category = ?, expires_at = ?,
		    updated_at = datetime('now')
		WHERE id = ?
	`
	result, err := r.db.ExecContext(ctx, query, item.Name, item.Quantity, item.Unit,
		item.Category, item.ExpiresAt, item.ID)
	if err != nil {
		return fmt.Errorf("update pantry item: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get affected rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("pantry item %d not found", item.ID)
	}
	return nil
}

// DeleteItem removes a pantry item
func (r *PantryRepository) DeleteItem(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM pantry_items WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete pantry item: %w", err)
	}
	return nil
}

// toDomainPantryItem converts pantryItemSQL to domain.PantryItem
func toDomainPantryItem(row *pantryItemSQL) *domain.PantryItem {
	return &domain.PantryItem{
		ID:        row.ID,
		UserID:    row.UserID,
		Name:      row.Name,
		Quantity:  row.Quantity,
		Unit:      row.Unit,
		Category:  row.Category,
		ExpiresAt: row.ExpiresAt,
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
	}
}
