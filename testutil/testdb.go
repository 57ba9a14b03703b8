package testutil

import (
	"context"
	"path/filepath"
	"testing"

	"admissions-crm/db"
)

// NewTestDB opens a file-backed SQLite database in a temp dir with the schema
// applied. The database is closed when the test completes.
func NewTestDB(t *testing.T) *db.DB {
	t.Helper()
	database, err := db.Open("sqlite", filepath.Join(t.TempDir(), "crm.db"))
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() {
		database.Close()
	})
	if err := database.Migrate(context.Background()); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	return database
}
