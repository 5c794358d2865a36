package app

import (
	"path/filepath"
	"testing"

	"github.com/cesargomez89/ytmanager/internal/domain"
	"github.com/cesargomez89/ytmanager/internal/logger"
	"github.com/cesargomez89/ytmanager/internal/store"
)

func setupTestDB(t *testing.T) *store.DB {
	t.Helper()
	db, err := store.NewSQLiteDB(filepath.Join(t.TempDir(), "test_app.db"))
	if err != nil {
		t.Fatalf("Failed to open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func createSubscription(t *testing.T, db *store.DB, userID int64, name string, folderID *int64) *domain.Subscription {
	t.Helper()
	sub := &domain.Subscription{
		Name:             name,
		ProviderID:       "mock",
		ProviderNativeID: name,
		UserID:           userID,
		ParentFolderID:   folderID,
	}
	if _, err := db.CreateSubscription(sub); err != nil {
		t.Fatalf("CreateSubscription failed: %v", err)
	}
	return sub
}

func newFolderService(t *testing.T) (*FolderService, *store.DB) {
	db := setupTestDB(t)
	return NewFolderService(db, logger.Discard()), db
}
