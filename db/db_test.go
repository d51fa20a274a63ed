package db_test

import (
	"context"
	"testing"

	"github.com/subculture-collective/masquerade/db"
	"github.com/subculture-collective/masquerade/testutil"
)

func TestMigrateIdempotent(t *testing.T) {
	dbx := testutil.SetupTestDB(t)
	// SetupTestDB already migrated once; a second run must be a no-op.
	if err := db.Migrate(context.Background(), dbx); err != nil {
		t.Fatalf("second migrate: %v", err)
	}
}
