package database

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/OUGC-Network/NewPoints-sub000/internal/models"
)

// Append inserts one audit-log record. A missing id or timestamp is filled
// in here so callers only describe the action.
func (s *Service) Append(ctx context.Context, rec *models.AuditLogRecord) error {
	if rec.Id == "" {
		rec.Id = uuid.New().String()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, queryInsertAuditLog,
		rec.Id, rec.Uid, rec.Username, rec.Action, rec.Data, rec.CreatedAt)
	if err != nil {
		zap.L().Error("Failed to append audit log record",
			zap.Int64("uid", rec.Uid),
			zap.String("action", rec.Action),
			zap.Error(err))
		return fmt.Errorf("failed to append audit log record: %w", err)
	}

	zap.L().Debug("Audit log record appended",
		zap.String("id", rec.Id),
		zap.Int64("uid", rec.Uid),
		zap.String("action", rec.Action))
	return nil
}

// CountSince counts a user's records for one action within a trailing
// window. Backs donation flood control.
func (s *Service) CountSince(ctx context.Context, uid int64, action string, since time.Time) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, queryCountAuditSince, uid, action, since).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count audit log records: %w", err)
	}
	return count, nil
}

// Recent returns a user's latest records for one action, newest first.
func (s *Service) Recent(ctx context.Context, uid int64, action string, limit int) ([]models.AuditLogRecord, error) {
	rows, err := s.db.QueryContext(ctx, queryRecentAuditLog, uid, action, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit log records: %w", err)
	}
	defer rows.Close()

	var records []models.AuditLogRecord
	for rows.Next() {
		var rec models.AuditLogRecord
		if err := rows.Scan(&rec.Id, &rec.Uid, &rec.Username, &rec.Action, &rec.Data, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan audit log record: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating audit log rows: %w", err)
	}
	return records, nil
}
