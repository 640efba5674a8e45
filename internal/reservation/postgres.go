package reservation

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBPool matches the methods from *pgxpool.Pool that we use.
// This allows us to mock the database in tests.
type DBPool interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

// PostgresStores persists reservation sets in the reserved_items table.
type PostgresStores struct {
	pool DBPool
}

func NewPostgresStores(pool DBPool) *PostgresStores {
	return &PostgresStores{pool: pool}
}

func (p *PostgresStores) ForDevice(deviceID string) Store {
	return &postgresStore{pool: p.pool, deviceID: deviceID}
}

type postgresStore struct {
	pool     DBPool
	deviceID string
}

func (s *postgresStore) Get(ctx context.Context, machineID string) (Set, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx,
		`SELECT items FROM reserved_items WHERE device_id=$1 AND storage_key=$2`,
		s.deviceID, StorageKey(machineID)).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Set{}, nil
		}
		return nil, fmt.Errorf("read %s: %w", StorageKey(machineID), err)
	}
	return decodeSet(raw)
}

func (s *postgresStore) Put(ctx context.Context, machineID string, set Set) error {
	raw, err := encodeSet(set)
	if err != nil {
		return err
	}
	if _, err := s.pool.Exec(ctx, `
		INSERT INTO reserved_items(device_id, storage_key, items, updated_at)
		VALUES($1, $2, $3, now())
		ON CONFLICT (device_id, storage_key) DO UPDATE SET items=EXCLUDED.items, updated_at=now()
	`, s.deviceID, StorageKey(machineID), raw); err != nil {
		return fmt.Errorf("write %s: %w", StorageKey(machineID), err)
	}
	return nil
}

func (s *postgresStore) Clear(ctx context.Context, machineID string) error {
	if _, err := s.pool.Exec(ctx,
		`DELETE FROM reserved_items WHERE device_id=$1 AND storage_key=$2`,
		s.deviceID, StorageKey(machineID)); err != nil {
		return fmt.Errorf("clear %s: %w", StorageKey(machineID), err)
	}
	return nil
}
