package db

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/kastent/kastentd/internal/tent"
)

// TentStore implements tent.Store on postgres.
type TentStore struct {
	db *DB
}

func NewTentStore(database *DB) *TentStore {
	return &TentStore{db: database}
}

func (s *TentStore) Get(ctx context.Context, id string) (*tent.Tent, error) {
	var t tent.Tent
	err := s.db.pool.QueryRow(ctx,
		`SELECT id, initiator, counterparty, asset_ref, price, status, metadata, created_at, updated_at
		 FROM tents WHERE id = $1`,
		id,
	).Scan(&t.ID, &t.Initiator, &t.Counterparty, &t.AssetRef, &t.Price, &t.Status, &t.Metadata, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, tent.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if t.Metadata == nil {
		t.Metadata = map[string]string{}
	}
	return &t, nil
}

func (s *TentStore) Put(ctx context.Context, t *tent.Tent) error {
	_, err := s.db.pool.Exec(ctx,
		`INSERT INTO tents (id, initiator, counterparty, asset_ref, price, status, metadata, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 ON CONFLICT (id) DO UPDATE SET
			counterparty = EXCLUDED.counterparty,
			asset_ref = EXCLUDED.asset_ref,
			price = EXCLUDED.price,
			status = EXCLUDED.status,
			metadata = EXCLUDED.metadata,
			updated_at = EXCLUDED.updated_at`,
		t.ID, t.Initiator, t.Counterparty, t.AssetRef, t.Price, t.Status, t.Metadata, t.CreatedAt, t.UpdatedAt,
	)
	return err
}

func (s *TentStore) List(ctx context.Context) ([]*tent.Tent, error) {
	rows, err := s.db.pool.Query(ctx,
		`SELECT id, initiator, counterparty, asset_ref, price, status, metadata, created_at, updated_at
		 FROM tents ORDER BY created_at, id`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tents []*tent.Tent
	for rows.Next() {
		var t tent.Tent
		if err := rows.Scan(&t.ID, &t.Initiator, &t.Counterparty, &t.AssetRef, &t.Price, &t.Status, &t.Metadata, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, err
		}
		if t.Metadata == nil {
			t.Metadata = map[string]string{}
		}
		tents = append(tents, &t)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return tents, nil
}
