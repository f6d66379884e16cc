package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/OUGC-Network/NewPoints-sub000/internal/models"
	"github.com/OUGC-Network/NewPoints-sub000/internal/store"
)

func TestForumRule_UpsertAndGet(t *testing.T) {
	service, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	rule := &models.ForumRule{
		Fid:     5,
		Name:    "Marketplace",
		Rate:    decimal.RequireFromString("1.5"),
		MinView: decimal.NewFromInt(10),
		MinPost: decimal.NewFromInt(20),
	}
	if err := service.UpsertForumRule(ctx, rule); err != nil {
		t.Fatalf("UpsertForumRule failed: %v", err)
	}

	got, err := service.ForumRule(ctx, 5)
	if err != nil {
		t.Fatalf("ForumRule failed: %v", err)
	}
	if !got.Rate.Equal(rule.Rate) {
		t.Errorf("Expected rate %s, got %s", rule.Rate.String(), got.Rate.String())
	}
	if !got.MinPost.Equal(rule.MinPost) {
		t.Errorf("Expected minpost %s, got %s", rule.MinPost.String(), got.MinPost.String())
	}

	// Upsert on the same fid replaces, not duplicates.
	rule.Rate = decimal.NewFromInt(2)
	if err := service.UpsertForumRule(ctx, rule); err != nil {
		t.Fatalf("UpsertForumRule failed: %v", err)
	}
	all, err := service.AllForumRules(ctx)
	if err != nil {
		t.Fatalf("AllForumRules failed: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("Expected 1 forum rule, got %d", len(all))
	}
	if !all[0].Rate.Equal(decimal.NewFromInt(2)) {
		t.Errorf("Expected replaced rate 2, got %s", all[0].Rate.String())
	}
}

func TestForumRule_Missing(t *testing.T) {
	service, cleanup := setupTestDB(t)
	defer cleanup()

	_, err := service.ForumRule(context.Background(), 42)
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound, got %v", err)
	}
}

func TestGroupRule_TouchAllowance(t *testing.T) {
	service, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	rule := &models.GroupRule{
		Gid:       3,
		Name:      "Members",
		Rate:      decimal.NewFromInt(1),
		Allowance: decimal.NewFromInt(50),
		Period:    86400,
	}
	if err := service.UpsertGroupRule(ctx, rule); err != nil {
		t.Fatalf("UpsertGroupRule failed: %v", err)
	}

	got, err := service.GroupRule(ctx, 3)
	if err != nil {
		t.Fatalf("GroupRule failed: %v", err)
	}
	if !got.LastPaid.IsZero() {
		t.Errorf("Expected zero lastpaid on a fresh rule, got %v", got.LastPaid)
	}

	paidAt := time.Now().UTC().Truncate(time.Second)
	if err := service.TouchGroupAllowance(ctx, 3, paidAt); err != nil {
		t.Fatalf("TouchGroupAllowance failed: %v", err)
	}

	got, err = service.GroupRule(ctx, 3)
	if err != nil {
		t.Fatalf("GroupRule failed: %v", err)
	}
	if !got.LastPaid.Equal(paidAt) {
		t.Errorf("Expected lastpaid %v, got %v", paidAt, got.LastPaid)
	}
}

func TestTouchGroupAllowance_MissingRule(t *testing.T) {
	service, cleanup := setupTestDB(t)
	defer cleanup()

	err := service.TouchGroupAllowance(context.Background(), 99, time.Now().UTC())
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound, got %v", err)
	}
}

func TestAuditLog_CountSince(t *testing.T) {
	service, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	now := time.Now().UTC()

	for i := 0; i < 3; i++ {
		rec := &models.AuditLogRecord{
			Uid:       1,
			Username:  "alice",
			Action:    models.AuditActionDonation,
			Data:      "bob-2-10",
			CreatedAt: now.Add(-time.Duration(i) * time.Minute),
		}
		if err := service.Append(ctx, rec); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}
	// One stale record outside any reasonable window.
	old := &models.AuditLogRecord{
		Uid:       1,
		Username:  "alice",
		Action:    models.AuditActionDonation,
		Data:      "bob-2-1",
		CreatedAt: now.Add(-2 * time.Hour),
	}
	if err := service.Append(ctx, old); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	count, err := service.CountSince(ctx, 1, models.AuditActionDonation, now.Add(-15*time.Minute))
	if err != nil {
		t.Fatalf("CountSince failed: %v", err)
	}
	if count != 3 {
		t.Errorf("Expected 3 records in window, got %d", count)
	}

	count, err = service.CountSince(ctx, 2, models.AuditActionDonation, now.Add(-15*time.Minute))
	if err != nil {
		t.Fatalf("CountSince failed: %v", err)
	}
	if count != 0 {
		t.Errorf("Expected 0 records for other uid, got %d", count)
	}
}

func TestCacheStore_RoundTrip(t *testing.T) {
	service, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()

	_, err := service.Read(ctx, "newpoints_rules")
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound for unwritten key, got %v", err)
	}

	if err := service.Update(ctx, "newpoints_rules", []byte(`{"forums":{}}`)); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	blob, err := service.Read(ctx, "newpoints_rules")
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if string(blob) != `{"forums":{}}` {
		t.Errorf("Unexpected blob: %s", blob)
	}

	// Last writer wins.
	if err := service.Update(ctx, "newpoints_rules", []byte(`{}`)); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	blob, err = service.Read(ctx, "newpoints_rules")
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if string(blob) != `{}` {
		t.Errorf("Unexpected blob after overwrite: %s", blob)
	}

	if err := service.Delete(ctx, "newpoints_rules"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := service.Read(ctx, "newpoints_rules"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound after delete, got %v", err)
	}
}
