package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/OUGC-Network/NewPoints-sub000/internal/models"
	"github.com/OUGC-Network/NewPoints-sub000/internal/store"
)

func scanForumRule(scan func(dest ...any) error) (*models.ForumRule, error) {
	var r models.ForumRule
	var rate, minview, minpost string
	if err := scan(&r.Rid, &r.Fid, &r.Name, &rate, &minview, &minpost, &r.CreatedAt); err != nil {
		return nil, err
	}
	var err error
	if r.Rate, err = parseDecimal(rate); err != nil {
		return nil, err
	}
	if r.MinView, err = parseDecimal(minview); err != nil {
		return nil, err
	}
	if r.MinPost, err = parseDecimal(minpost); err != nil {
		return nil, err
	}
	return &r, nil
}

func scanGroupRule(scan func(dest ...any) error) (*models.GroupRule, error) {
	var r models.GroupRule
	var rate, allowance string
	var lastpaid sql.NullTime
	if err := scan(&r.Rid, &r.Gid, &r.Name, &rate, &allowance, &r.Period, &lastpaid, &r.CreatedAt); err != nil {
		return nil, err
	}
	var err error
	if r.Rate, err = parseDecimal(rate); err != nil {
		return nil, err
	}
	if r.Allowance, err = parseDecimal(allowance); err != nil {
		return nil, err
	}
	if lastpaid.Valid {
		r.LastPaid = lastpaid.Time
	}
	return &r, nil
}

// ForumRule returns the rule for a forum. A missing rule is reported as
// store.ErrNotFound; callers treat that as rate 1 with no minimums.
func (s *Service) ForumRule(ctx context.Context, fid int64) (*models.ForumRule, error) {
	rule, err := scanForumRule(s.db.QueryRowContext(ctx, queryGetForumRule, fid).Scan)
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get forum rule: %w", err)
	}
	return rule, nil
}

func (s *Service) GroupRule(ctx context.Context, gid int64) (*models.GroupRule, error) {
	rule, err := scanGroupRule(s.db.QueryRowContext(ctx, queryGetGroupRule, gid).Scan)
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get group rule: %w", err)
	}
	return rule, nil
}

func (s *Service) AllForumRules(ctx context.Context) ([]models.ForumRule, error) {
	rows, err := s.db.QueryContext(ctx, queryGetAllForumRules)
	if err != nil {
		return nil, fmt.Errorf("failed to list forum rules: %w", err)
	}
	defer rows.Close()

	var rules []models.ForumRule
	for rows.Next() {
		rule, err := scanForumRule(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan forum rule: %w", err)
		}
		rules = append(rules, *rule)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating forum rule rows: %w", err)
	}
	return rules, nil
}

func (s *Service) AllGroupRules(ctx context.Context) ([]models.GroupRule, error) {
	rows, err := s.db.QueryContext(ctx, queryGetAllGroupRules)
	if err != nil {
		return nil, fmt.Errorf("failed to list group rules: %w", err)
	}
	defer rows.Close()

	var rules []models.GroupRule
	for rows.Next() {
		rule, err := scanGroupRule(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan group rule: %w", err)
		}
		rules = append(rules, *rule)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating group rule rows: %w", err)
	}
	return rules, nil
}

func (s *Service) UpsertForumRule(ctx context.Context, rule *models.ForumRule) error {
	_, err := s.db.ExecContext(ctx, queryUpsertForumRule,
		rule.Fid, rule.Name, rule.Rate.String(), rule.MinView.String(), rule.MinPost.String())
	if err != nil {
		return fmt.Errorf("failed to upsert forum rule: %w", err)
	}
	zap.L().Info("Forum rule saved", zap.Int64("fid", rule.Fid), zap.String("rate", rule.Rate.String()))
	return nil
}

func (s *Service) UpsertGroupRule(ctx context.Context, rule *models.GroupRule) error {
	var lastpaid any
	if !rule.LastPaid.IsZero() {
		lastpaid = rule.LastPaid
	}
	_, err := s.db.ExecContext(ctx, queryUpsertGroupRule,
		rule.Gid, rule.Name, rule.Rate.String(), rule.Allowance.String(), rule.Period, lastpaid)
	if err != nil {
		return fmt.Errorf("failed to upsert group rule: %w", err)
	}
	zap.L().Info("Group rule saved", zap.Int64("gid", rule.Gid), zap.String("rate", rule.Rate.String()))
	return nil
}

func (s *Service) DeleteForumRule(ctx context.Context, fid int64) error {
	if _, err := s.db.ExecContext(ctx, queryDeleteForumRule, fid); err != nil {
		return fmt.Errorf("failed to delete forum rule: %w", err)
	}
	return nil
}

func (s *Service) DeleteGroupRule(ctx context.Context, gid int64) error {
	if _, err := s.db.ExecContext(ctx, queryDeleteGroupRule, gid); err != nil {
		return fmt.Errorf("failed to delete group rule: %w", err)
	}
	return nil
}

// TouchGroupAllowance advances the last-paid timestamp for a group rule.
// Only the allowance scheduler calls this.
func (s *Service) TouchGroupAllowance(ctx context.Context, gid int64, paidAt time.Time) error {
	result, err := s.db.ExecContext(ctx, queryTouchGroupAllowance, paidAt, gid)
	if err != nil {
		return fmt.Errorf("failed to touch group allowance: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: group rule gid %d", store.ErrNotFound, gid)
	}
	return nil
}
