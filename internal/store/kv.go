package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"
)

const kvTable = "kv"

// KV is a durable string map. It satisfies offline.Storage.
type KV struct {
	db  *sql.DB
	now func() time.Time
}

// Get returns the value stored under key. ok is false when the key is absent.
func (k *KV) Get(ctx context.Context, key string) (string, bool, error) {
	query, args := builder().
		Select("value").
		From(builder().Table(kvTable)).
		Where(entsql.EQ("key", key)).
		Query()

	var value string
	err := RetryOnBusy(ctx, func() error {
		return k.db.QueryRowContext(ctx, query, args...).Scan(&value)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("kv get %q: %w", key, err)
	}
	return value, true, nil
}

// Set stores value under key, replacing any previous value.
func (k *KV) Set(ctx context.Context, key, value string) error {
	query, args := builder().
		Insert(kvTable).
		Columns("key", "value", "updated_at").
		Values(key, value, k.now().UnixMilli()).
		OnConflict(
			entsql.ConflictColumns("key"),
			entsql.ResolveWithNewValues(),
		).
		Query()

	err := RetryOnBusy(ctx, func() error {
		_, err := k.db.ExecContext(ctx, query, args...)
		return err
	})
	if err != nil {
		return fmt.Errorf("kv set %q: %w", key, err)
	}
	return nil
}

// Delete removes key. Deleting a missing key is not an error.
func (k *KV) Delete(ctx context.Context, key string) error {
	query, args := builder().
		Delete(kvTable).
		Where(entsql.EQ("key", key)).
		Query()

	err := RetryOnBusy(ctx, func() error {
		_, err := k.db.ExecContext(ctx, query, args...)
		return err
	})
	if err != nil {
		return fmt.Errorf("kv delete %q: %w", key, err)
	}
	return nil
}

// UpdatedAt returns when key was last written.
func (k *KV) UpdatedAt(ctx context.Context, key string) (time.Time, bool, error) {
	query, args := builder().
		Select("updated_at").
		From(builder().Table(kvTable)).
		Where(entsql.EQ("key", key)).
		Query()

	var ms int64
	err := RetryOnBusy(ctx, func() error {
		return k.db.QueryRowContext(ctx, query, args...).Scan(&ms)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("kv updated_at %q: %w", key, err)
	}
	return time.UnixMilli(ms), true, nil
}
