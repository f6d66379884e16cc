package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/OUGC-Network/NewPoints-sub000/internal/store"
)

// Read returns the durable cache blob stored under key, or
// store.ErrNotFound if the key was never written.
func (s *Service) Read(ctx context.Context, key string) ([]byte, error) {
	var blob []byte
	err := s.db.QueryRowContext(ctx, queryReadCache, key).Scan(&blob)
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read cache %q: %w", key, err)
	}
	return blob, nil
}

// Update replaces the blob stored under key. Last writer wins.
func (s *Service) Update(ctx context.Context, key string, value []byte) error {
	if _, err := s.db.ExecContext(ctx, queryUpdateCache, key, value); err != nil {
		return fmt.Errorf("failed to update cache %q: %w", key, err)
	}
	return nil
}

func (s *Service) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, queryDeleteCache, key); err != nil {
		return fmt.Errorf("failed to delete cache %q: %w", key, err)
	}
	return nil
}
