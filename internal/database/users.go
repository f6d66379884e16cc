package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/OUGC-Network/NewPoints-sub000/internal/models"
	"github.com/OUGC-Network/NewPoints-sub000/internal/store"
)

func (s *Service) scanUser(row *sql.Row) (*models.User, error) {
	var u models.User
	var points string
	err := row.Scan(&u.Uid, &u.Username, &u.UserGroup, &points, &u.CreatedAt, &u.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}
	if u.Points, err = parseDecimal(points); err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *Service) UserByID(ctx context.Context, uid int64) (*models.User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx, queryGetUserById, uid))
}

func (s *Service) UserByName(ctx context.Context, username string) (*models.User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx, queryGetUserByName, username))
}

func (s *Service) CreateUser(ctx context.Context, username string, gid int64) (*models.User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx, queryInsertUser, username, gid))
}

// AllUsers returns every user ordered by name. Used by the operator
// balance report, not by the hot path.
func (s *Service) AllUsers(ctx context.Context) ([]models.User, error) {
	rows, err := s.db.QueryContext(ctx, queryGetAllUsers)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		var u models.User
		var points string
		if err := rows.Scan(&u.Uid, &u.Username, &u.UserGroup, &points, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		if u.Points, err = parseDecimal(points); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating user rows: %w", err)
	}
	return users, nil
}
