package property

import (
	"context"
	"encoding/json"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/sabicash/sabicash/core"
	"github.com/sabicash/sabicash/store"
	"github.com/sabicash/sabicash/store/db"
	"github.com/tsenart/nap"
)

const upsertSuffix = "ON CONFLICT (key) DO UPDATE SET value = excluded.value, version = properties.version + 1, updated_at = CURRENT_TIMESTAMP"

type propertyStore struct {
	db *nap.DB
	sb sq.StatementBuilderType
}

func New(conn *nap.DB, driver db.Driver) core.PropertyStore {
	return &propertyStore{
		db: conn,
		sb: sq.StatementBuilder.PlaceholderFormat(driver.Placeholder()),
	}
}

// Get decodes the stored value into value. A missing key leaves value untouched.
func (s *propertyStore) Get(ctx context.Context, key string, value any) error {
	var raw []byte
	b := s.sb.Select("value").From("properties").Where(sq.Eq{"key": key})
	if err := b.RunWith(s.db).QueryRowContext(ctx).Scan(&raw); err != nil {
		if store.IsErrNotFound(err) {
			return nil
		}

		return err
	}

	return json.Unmarshal(raw, value)
}

func (s *propertyStore) Set(ctx context.Context, key string, value any) error {
	return s.SetMany(ctx, map[string]any{key: value})
}

// SetMany writes all values in one transaction.
func (s *propertyStore) SetMany(ctx context.Context, values map[string]any) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for key, value := range values {
		jsonValue, err := json.Marshal(value)
		if err != nil {
			return fmt.Errorf("failed to marshal value of %s: %w", key, err)
		}

		b := s.sb.Insert("properties").
			Columns("key", "value").
			Values(key, jsonValue).
			Suffix(upsertSuffix)
		if _, err := b.RunWith(tx).ExecContext(ctx); err != nil {
			return fmt.Errorf("failed to set property %s: %w", key, err)
		}
	}

	return tx.Commit()
}

func (s *propertyStore) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}

	b := s.sb.Delete("properties").Where(sq.Eq{"key": keys})
	_, err := b.RunWith(s.db).ExecContext(ctx)
	return err
}
