package database

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/OUGC-Network/NewPoints-sub000/internal/models"
	"github.com/OUGC-Network/NewPoints-sub000/internal/store"
)

// Compile-time check: *Service must satisfy store.Backend.
var _ store.Backend = (*Service)(nil)

// Service is the SQLite backend for the points engine.
type Service struct {
	db *sql.DB
}

func NewService(ctx context.Context, cfg models.DatabaseConfig) (*Service, error) {
	// Validate configuration
	if cfg.Path == "" {
		return nil, fmt.Errorf("database path cannot be empty")
	}
	if cfg.MaxOpenConns <= 0 {
		return nil, fmt.Errorf("max open connections must be positive, got %d", cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns < 0 {
		return nil, fmt.Errorf("max idle connections cannot be negative, got %d", cfg.MaxIdleConns)
	}
	if cfg.PingTimeout <= 0 {
		return nil, fmt.Errorf("ping timeout must be positive, got %v", cfg.PingTimeout)
	}

	zap.L().Info("Opening SQLite database", zap.String("file", cfg.Path))
	db, err := sql.Open("sqlite3", cfg.Path+"?_journal_mode=WAL&_synchronous=NORMAL&_cache_size=1000")
	if err != nil {
		return nil, fmt.Errorf("unable to open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	pingCtx, cancel := context.WithTimeout(ctx, cfg.PingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		if cerr := db.Close(); cerr != nil {
			return nil, cerr
		}
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	service := &Service{db: db}
	if err := service.initSchema(cfg.CreateDemoUsers); err != nil {
		if cerr := db.Close(); cerr != nil {
			return nil, cerr
		}
		return nil, fmt.Errorf("unable to initialize schema: %w", err)
	}

	zap.L().Info("Database service initialized successfully")
	return service, nil
}

func (s *Service) Close() {
	if err := s.db.Close(); err != nil {
		zap.L().Warn("Failed to close database connection", zap.Error(err))
	}
}

func (s *Service) initSchema(createDemoUsers bool) error {
	schema := `
	-- Users carry the balance column; the engine never deletes users.
	CREATE TABLE IF NOT EXISTS users (
		uid INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT NOT NULL UNIQUE COLLATE NOCASE,
		usergroup INTEGER NOT NULL DEFAULT 2,
		newpoints NUMERIC NOT NULL DEFAULT 0,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_users_usergroup ON users(usergroup);

	-- Forum-scoped income rules (rate multiplier + view/post minimums)
	CREATE TABLE IF NOT EXISTS forumrules (
		rid INTEGER PRIMARY KEY AUTOINCREMENT,
		fid INTEGER NOT NULL UNIQUE,
		name TEXT NOT NULL DEFAULT '',
		rate TEXT NOT NULL DEFAULT '1',
		minview TEXT NOT NULL DEFAULT '0',
		minpost TEXT NOT NULL DEFAULT '0',
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	-- Group-scoped income rules + allowance schedule state
	CREATE TABLE IF NOT EXISTS grouprules (
		rid INTEGER PRIMARY KEY AUTOINCREMENT,
		gid INTEGER NOT NULL UNIQUE,
		name TEXT NOT NULL DEFAULT '',
		rate TEXT NOT NULL DEFAULT '1',
		allowance TEXT NOT NULL DEFAULT '0',
		period INTEGER NOT NULL DEFAULT 0,
		lastpaid TIMESTAMP,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	-- Named configuration rows read through the setting cache
	CREATE TABLE IF NOT EXISTS settings (
		sid INTEGER PRIMARY KEY AUTOINCREMENT,
		plugin TEXT NOT NULL DEFAULT 'main',
		name TEXT NOT NULL UNIQUE,
		title TEXT NOT NULL DEFAULT '',
		description TEXT NOT NULL DEFAULT '',
		type TEXT NOT NULL DEFAULT 'text',
		value TEXT NOT NULL DEFAULT '',
		disporder INTEGER NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_settings_title ON settings(title);

	-- Append-only audit trail (donations, allowance payouts)
	CREATE TABLE IF NOT EXISTS auditlog (
		id TEXT PRIMARY KEY,
		uid INTEGER NOT NULL,
		username TEXT NOT NULL,
		action TEXT NOT NULL,
		data TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_auditlog_uid_action ON auditlog(uid, action, created_at);

	-- Durable KV cache blobs (rule and setting snapshots)
	CREATE TABLE IF NOT EXISTS datacache (
		title TEXT PRIMARY KEY,
		cache BLOB,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return err
	}

	if createDemoUsers {
		demo := []struct {
			name string
			gid  int64
		}{
			{"alice", 2},
			{"bob", 2},
			{"carol", 4},
		}
		for _, u := range demo {
			_, err := s.db.Exec(`INSERT OR IGNORE INTO users (username, usergroup, newpoints) VALUES (?, ?, 0)`, u.name, u.gid)
			if err != nil {
				zap.L().Error("Failed to insert demo user", zap.String("username", u.name), zap.Error(err))
			} else {
				zap.L().Info("Demo user created", zap.String("username", u.name))
			}
		}
	}

	return nil
}
