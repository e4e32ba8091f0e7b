// Package testutil provides shared test helpers for setting up canvas
// stores and snapshot databases.
package testutil

import (
	"os"
	"testing"

	"github.com/arlide/mural/internal/snapshot"
)

// TestDB creates a temporary SQLite snapshot database that is automatically
// cleaned up.
func TestDB(t *testing.T) *snapshot.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "mural-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := snapshot.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}
