package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rl1809/storefront/internal/port"
)

// dialect carries the statements that differ between SQL backends.
type dialect struct {
	name        string
	createTable string
	upsert      string
}

// sqlSlotStore keeps each slot as one row of cart_slots. version counts
// writes so operators can see how often a slot was overwritten.
type sqlSlotStore struct {
	db      *sql.DB
	dialect dialect
}

// Migrate creates the slot table if it does not exist.
func (s *sqlSlotStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, s.dialect.createTable); err != nil {
		return fmt.Errorf("%s: create cart_slots: %w", s.dialect.name, err)
	}
	return nil
}

func (s *sqlSlotStore) Get(ctx context.Context, key string) ([]byte, error) {
	var payload []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT payload FROM cart_slots WHERE slot_key = ?`, key,
	).Scan(&payload)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, port.ErrSlotEmpty
	}
	if err != nil {
		return nil, fmt.Errorf("%s: query slot: %w", s.dialect.name, err)
	}
	return payload, nil
}

func (s *sqlSlotStore) Set(ctx context.Context, key string, value []byte) error {
	if _, err := s.db.ExecContext(ctx, s.dialect.upsert, key, value); err != nil {
		return fmt.Errorf("%s: upsert slot: %w", s.dialect.name, err)
	}
	return nil
}

func (s *sqlSlotStore) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM cart_slots WHERE slot_key = ?`, key); err != nil {
		return fmt.Errorf("%s: delete slot: %w", s.dialect.name, err)
	}
	return nil
}

// Version reports how many times key was written, 0 if it was never written.
func (s *sqlSlotStore) Version(ctx context.Context, key string) (int64, error) {
	var version int64
	err := s.db.QueryRowContext(ctx,
		`SELECT version FROM cart_slots WHERE slot_key = ?`, key,
	).Scan(&version)

	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("%s: query version: %w", s.dialect.name, err)
	}
	return version, nil
}

func (s *sqlSlotStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
