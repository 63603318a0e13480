package database

import (
	"path/filepath"
	"testing"

	"github.com/userdeck/backend/internal/users"
)

func TestOpenSQLiteCreatesSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	db, err := OpenSQLite(path, nil)
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to access pool: %v", err)
	}
	defer sqlDB.Close()

	if !db.Migrator().HasTable(&users.Identity{}) {
		t.Fatalf("expected users table to exist after open")
	}
	if !db.Migrator().HasTable(&migrationRecord{}) {
		t.Fatalf("expected migrations table to exist after open")
	}
}

func TestOpenSQLiteRequiresPath(t *testing.T) {
	if _, err := OpenSQLite("", nil); err == nil {
		t.Fatalf("expected error for empty database path")
	}
}

func TestMigrationsApplyOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	db, err := OpenSQLite(path, nil)
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to access pool: %v", err)
	}
	defer sqlDB.Close()

	// A second migration pass over the same handle must be a no-op.
	if err := Migrate(db, nil); err != nil {
		t.Fatalf("repeated migration failed: %v", err)
	}

	var count int64
	err = db.Model(&migrationRecord{}).
		Where("name = ?", migrationBackfillIdentityStatus).
		Count(&count).Error
	if err != nil {
		t.Fatalf("failed to count migration records: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected migration to be recorded exactly once, got %d", count)
	}
}
