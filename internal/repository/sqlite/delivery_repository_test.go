package sqlite

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"framerelay/internal/model"
	"framerelay/internal/repository"
)

var _ repository.DeliveryRepository = (*DeliveryRepository)(nil)

// ========================================
// Test Setup Helpers
// ========================================

func setupTestDB(t *testing.T) (*DB, func()) {
	t.Helper()

	tempDir, err := os.MkdirTemp("", "delivery_test")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}

	db, err := New(filepath.Join(tempDir, "nested", "test.db"))
	if err != nil {
		os.RemoveAll(tempDir)
		t.Fatalf("Failed to create test database: %v", err)
	}

	cleanup := func() {
		db.Close()
		os.RemoveAll(tempDir)
	}

	return db, cleanup
}

func insertDelivery(t *testing.T, repo *DeliveryRepository, outcome model.Outcome, status int, at time.Time) int64 {
	t.Helper()

	id, err := repo.Insert(&model.Delivery{
		Filename:  "frame-" + at.Format("150405") + ".jpg",
		Size:      2048,
		Status:    status,
		Outcome:   outcome,
		CreatedAt: at,
	})
	if err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	return id
}

// ========================================
// Delivery Repository Tests
// ========================================

func TestDeliveryRepository_Insert(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewDeliveryRepository(db)

	d := &model.Delivery{
		Filename:  "frame-1.jpg",
		Size:      1024,
		Status:    500,
		Outcome:   model.OutcomeDelivery,
		SinkError: `{"ok":false,"description":"Bad Request: chat not found"}`,
	}

	id, err := repo.Insert(d)
	if err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if id <= 0 || d.ID != id {
		t.Errorf("Expected positive id assigned to record, got %d / %d", id, d.ID)
	}
	if d.CreatedAt.IsZero() {
		t.Error("Insert should stamp CreatedAt")
	}
}

func TestDeliveryRepository_GetRecent_NewestFirst(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewDeliveryRepository(db)
	base := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)

	insertDelivery(t, repo, model.OutcomeOK, 200, base)
	insertDelivery(t, repo, model.OutcomeDelivery, 500, base.Add(time.Minute))
	insertDelivery(t, repo, model.OutcomeOK, 200, base.Add(2*time.Minute))

	recent, err := repo.GetRecent(2)
	if err != nil {
		t.Fatalf("GetRecent failed: %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("Expected 2 records, got %d", len(recent))
	}
	if !recent[0].CreatedAt.Equal(base.Add(2 * time.Minute)) {
		t.Errorf("Expected newest first, got %v", recent[0].CreatedAt)
	}
	if recent[1].Outcome != model.OutcomeDelivery || recent[1].Status != 500 {
		t.Errorf("Unexpected second record %+v", recent[1])
	}
}

func TestDeliveryRepository_GetRecent_Empty(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	recent, err := NewDeliveryRepository(db).GetRecent(0)
	if err != nil {
		t.Fatalf("GetRecent failed: %v", err)
	}
	if len(recent) != 0 {
		t.Errorf("Expected no records, got %d", len(recent))
	}
}

func TestDeliveryRepository_CountByOutcome(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewDeliveryRepository(db)
	now := time.Now()
	insertDelivery(t, repo, model.OutcomeOK, 200, now)
	insertDelivery(t, repo, model.OutcomeOK, 200, now)
	insertDelivery(t, repo, model.OutcomeNoImage, 400, now)

	counts, err := repo.CountByOutcome()
	if err != nil {
		t.Fatalf("CountByOutcome failed: %v", err)
	}
	if counts[model.OutcomeOK] != 2 || counts[model.OutcomeNoImage] != 1 {
		t.Errorf("Unexpected counts %v", counts)
	}
	if counts[model.OutcomeServerError] != 0 {
		t.Errorf("Expected no server errors, got %d", counts[model.OutcomeServerError])
	}
}

func TestDeliveryRepository_DeleteOlderThan(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewDeliveryRepository(db)
	now := time.Now()
	insertDelivery(t, repo, model.OutcomeOK, 200, now.Add(-48*time.Hour))
	insertDelivery(t, repo, model.OutcomeOK, 200, now.Add(-25*time.Hour))
	insertDelivery(t, repo, model.OutcomeOK, 200, now.Add(-time.Hour))

	removed, err := repo.DeleteOlderThan(now.Add(-24 * time.Hour))
	if err != nil {
		t.Fatalf("DeleteOlderThan failed: %v", err)
	}
	if removed != 2 {
		t.Errorf("Expected 2 removed, got %d", removed)
	}

	recent, _ := repo.GetRecent(10)
	if len(recent) != 1 {
		t.Errorf("Expected 1 remaining record, got %d", len(recent))
	}
}
