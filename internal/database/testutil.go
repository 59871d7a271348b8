package database

import "testing"

// NewTestDB creates an in-memory database for tests and closes it when the
// test finishes.
func NewTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(":memory:")
	if err != nil {
		t.Fatalf("creating test database: %v", err)
	}
	t.Cleanup(func() {
		db.Close()
	})
	return db
}
