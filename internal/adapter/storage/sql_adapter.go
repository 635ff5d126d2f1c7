package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rl1809/smart-pantry/internal/core/domain"
)

const createdAtLayout = time.RFC3339Nano

type SQLAdapter struct {
	db      *sql.DB
	dialect Dialect
}

func NewSQLAdapter(db *sql.DB, dialect Dialect) *SQLAdapter {
	return &SQLAdapter{db: db, dialect: dialect}
}

func (s *SQLAdapter) EnsureSchema(ctx context.Context) error {
	for _, stmt := range s.dialect.schema() {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

func (s *SQLAdapter) CreateItem(ctx context.Context, item domain.PantryItem) error {
	_, err := s.db.ExecContext(ctx, s.dialect.rebind(`
		INSERT INTO pantry_items (id, name, quantity, expiration_date, location, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`),
		item.ID, item.Name, item.Quantity, item.ExpirationDate,
		nullString(item.Location), item.CreatedAt.UTC().Format(createdAtLayout),
	)
	if err != nil {
		return fmt.Errorf("insert item: %w", err)
	}
	return nil
}

func (s *SQLAdapter) GetItem(ctx context.Context, id string) (*domain.PantryItem, error) {
	row := s.db.QueryRowContext(ctx, s.dialect.rebind(`
		SELECT id, name, quantity, expiration_date, location, created_at
		FROM pantry_items WHERE id = ?`), id,
	)

	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query item: %w", err)
	}
	return &item, nil
}

// ListItems returns items by ascending expiration date. When the filter sets
// ExpiringWithinDays only items expiring between today and today+N inclusive
// are returned.
func (s *SQLAdapter) ListItems(ctx context.Context, filter domain.ListFilter, today string) ([]domain.PantryItem, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = domain.DefaultListLimit
	}

	query := `SELECT id, name, quantity, expiration_date, location, created_at FROM pantry_items`
	var args []interface{}

	if filter.ExpiringWithinDays != nil {
		from, err := domain.ParseDate(today)
		if err != nil {
			return nil, fmt.Errorf("list items: %w", err)
		}
		to := domain.FormatDate(from.AddDate(0, 0, *filter.ExpiringWithinDays))
		query += ` WHERE expiration_date >= ? AND expiration_date <= ?`
		args = append(args, today, to)
	}

	query += ` ORDER BY expiration_date ASC, created_at ASC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, s.dialect.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("query items: %w", err)
	}
	defer rows.Close()

	items := make([]domain.PantryItem, 0)
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate items: %w", err)
	}
	return items, nil
}

func (s *SQLAdapter) DeleteItem(ctx context.Context, id string) (bool, error) {
	result, err := s.db.ExecContext(ctx, s.dialect.rebind(`DELETE FROM pantry_items WHERE id = ?`), id)
	if err != nil {
		return false, fmt.Errorf("delete item: %w", err)
	}

	rows, _ := result.RowsAffected()
	return rows > 0, nil
}

func (s *SQLAdapter) RecordEvent(ctx context.Context, event domain.PantryEvent) error {
	_, err := s.db.ExecContext(ctx, s.dialect.rebind(`
		INSERT INTO pantry_events (id, kind, item_id, item_name, source, utterance, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`),
		event.ID, string(event.Kind), event.ItemID, event.ItemName, string(event.Source),
		nullString(event.Utterance), event.CreatedAt.UTC().Format(createdAtLayout),
	)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanItem(row rowScanner) (domain.PantryItem, error) {
	var (
		item      domain.PantryItem
		location  sql.NullString
		createdAt string
	)
	if err := row.Scan(&item.ID, &item.Name, &item.Quantity, &item.ExpirationDate, &location, &createdAt); err != nil {
		return domain.PantryItem{}, err
	}

	item.Location = location.String
	if t, err := time.Parse(createdAtLayout, createdAt); err == nil {
		item.CreatedAt = t
	}
	return item, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
