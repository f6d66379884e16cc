package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/OUGC-Network/NewPoints-sub000/internal/models"
	"github.com/OUGC-Network/NewPoints-sub000/internal/store"
)

func (s *Service) Setting(ctx context.Context, name string) (*models.Setting, error) {
	var setting models.Setting
	err := s.db.QueryRowContext(ctx, queryGetSetting, name).Scan(
		&setting.Sid, &setting.Plugin, &setting.Name, &setting.Title,
		&setting.Description, &setting.Type, &setting.Value, &setting.DispOrder)
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get setting: %w", err)
	}
	return &setting, nil
}

func (s *Service) AllSettings(ctx context.Context) ([]models.Setting, error) {
	rows, err := s.db.QueryContext(ctx, queryGetAllSettings)
	if err != nil {
		return nil, fmt.Errorf("failed to list settings: %w", err)
	}
	defer rows.Close()

	var settings []models.Setting
	for rows.Next() {
		var setting models.Setting
		if err := rows.Scan(&setting.Sid, &setting.Plugin, &setting.Name, &setting.Title,
			&setting.Description, &setting.Type, &setting.Value, &setting.DispOrder); err != nil {
			return nil, fmt.Errorf("failed to scan setting: %w", err)
		}
		settings = append(settings, setting)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating setting rows: %w", err)
	}
	return settings, nil
}

func (s *Service) UpsertSetting(ctx context.Context, setting *models.Setting) error {
	_, err := s.db.ExecContext(ctx, queryUpsertSetting,
		setting.Plugin, setting.Name, setting.Title, setting.Description,
		setting.Type, setting.Value, setting.DispOrder)
	if err != nil {
		return fmt.Errorf("failed to upsert setting: %w", err)
	}
	return nil
}

func (s *Service) DeleteSetting(ctx context.Context, name string) error {
	if _, err := s.db.ExecContext(ctx, queryDeleteSetting, name); err != nil {
		return fmt.Errorf("failed to delete setting: %w", err)
	}
	return nil
}
