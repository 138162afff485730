package database

import (
	"context"
	"testing"
	"testing/fstest"
)

func testMigrations() fstest.MapFS {
	return fstest.MapFS{
		"20260101_000000_create_widgets.up.sql": {Data: []byte(
			"CREATE TABLE widgets (id INTEGER PRIMARY KEY, name TEXT NOT NULL);")},
		"20260101_000000_create_widgets.down.sql": {Data: []byte(
			"DROP TABLE widgets;")},
		"20260102_000000_add_colour.up.sql": {Data: []byte(
			"ALTER TABLE widgets ADD COLUMN colour TEXT;")},
		"20260102_000000_add_colour.down.sql": {Data: []byte(
			"ALTER TABLE widgets DROP COLUMN colour;")},
		"README.md": {Data: []byte("ignored")},
	}
}

func tableExists(t *testing.T, db *DB, name string) bool {
	t.Helper()
	var count int
	err := db.QueryRowContext(context.Background(),
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?", name,
	).Scan(&count)
	if err != nil {
		t.Fatalf("query sqlite_master: %v", err)
	}
	return count == 1
}

func TestMigrate(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	n, err := db.Migrate(ctx, testMigrations())
	if err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	if n != 2 {
		t.Errorf("Migrate() applied %d, want 2", n)
	}
	if !tableExists(t, db, "widgets") {
		t.Fatal("widgets table not created")
	}

	if _, err := db.ExecContext(ctx, "INSERT INTO widgets (name, colour) VALUES ('a', 'red')"); err != nil {
		t.Errorf("second migration not applied: %v", err)
	}
}

func TestMigrate_Idempotent(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	if _, err := db.Migrate(ctx, testMigrations()); err != nil {
		t.Fatalf("first Migrate() error = %v", err)
	}
	n, err := db.Migrate(ctx, testMigrations())
	if err != nil {
		t.Fatalf("second Migrate() error = %v", err)
	}
	if n != 0 {
		t.Errorf("second Migrate() applied %d, want 0", n)
	}
}

func TestMigrate_FailureRollsBackThatMigration(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	fsys := testMigrations()
	fsys["20260103_000000_broken.up.sql"] = &fstest.MapFile{Data: []byte(
		"CREATE TABLE gadgets (id INTEGER); THIS IS NOT SQL;")}

	n, err := db.Migrate(ctx, fsys)
	if err == nil {
		t.Fatal("Migrate() error = nil, want error")
	}
	if n != 2 {
		t.Errorf("Migrate() applied %d before failing, want 2", n)
	}
	if tableExists(t, db, "gadgets") {
		t.Error("gadgets table exists after failed migration")
	}

	status, err := db.MigrationStatus(ctx, fsys)
	if err != nil {
		t.Fatalf("MigrationStatus() error = %v", err)
	}
	if status[2].Applied {
		t.Error("broken migration recorded as applied")
	}
}

func TestMigrateDown(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	fsys := testMigrations()

	if _, err := db.Migrate(ctx, fsys); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}

	m, ok, err := db.MigrateDown(ctx, fsys)
	if err != nil || !ok {
		t.Fatalf("MigrateDown() = %v, %v", ok, err)
	}
	if m.Version != "20260102_000000" {
		t.Errorf("rolled back %s, want 20260102_000000", m.Version)
	}

	m, ok, err = db.MigrateDown(ctx, fsys)
	if err != nil || !ok {
		t.Fatalf("second MigrateDown() = %v, %v", ok, err)
	}
	if m.Name != "create_widgets" {
		t.Errorf("rolled back %q, want create_widgets", m.Name)
	}
	if tableExists(t, db, "widgets") {
		t.Error("widgets table still exists after rollback")
	}

	_, ok, err = db.MigrateDown(ctx, fsys)
	if err != nil {
		t.Fatalf("MigrateDown() on empty state error = %v", err)
	}
	if ok {
		t.Error("MigrateDown() with nothing applied reported ok")
	}
}

func TestMigrationStatus(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	fsys := testMigrations()

	status, err := db.MigrationStatus(ctx, fsys)
	if err != nil {
		t.Fatalf("MigrationStatus() error = %v", err)
	}
	if len(status) != 2 {
		t.Fatalf("len(status) = %d, want 2", len(status))
	}
	for _, s := range status {
		if s.Applied {
			t.Errorf("%s applied before Migrate()", s.Version)
		}
	}

	if _, err := db.Migrate(ctx, fsys); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	status, err = db.MigrationStatus(ctx, fsys)
	if err != nil {
		t.Fatalf("MigrationStatus() error = %v", err)
	}
	for _, s := range status {
		if !s.Applied || s.AppliedAt.IsZero() {
			t.Errorf("%s = %+v, want applied with timestamp", s.Version, s)
		}
	}
}

func TestLoadMigrations_DownWithoutUp(t *testing.T) {
	_, err := LoadMigrations(fstest.MapFS{
		"20260101_000000_orphan.down.sql": {Data: []byte("SELECT 1;")},
	})
	if err == nil {
		t.Error("LoadMigrations() error = nil, want error for orphan down file")
	}
}

func TestParseMigrationFilename(t *testing.T) {
	tests := []struct {
		filename    string
		wantVersion string
		wantName    string
		wantUp      bool
		wantOK      bool
	}{
		{"20260101_120000_initial_schema.up.sql", "20260101_120000", "initial_schema", true, true},
		{"20260101_120000_initial_schema.down.sql", "20260101_120000", "initial_schema", false, true},
		{"20260101_120000.up.sql", "20260101_120000", "", true, true},
		{"20260101_120000_x.sql", "", "", false, false},
		{"2026_120000_x.up.sql", "", "", false, false},
		{"notes.txt", "", "", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			version, name, up, ok := parseMigrationFilename(tt.filename)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if version != tt.wantVersion || name != tt.wantName || up != tt.wantUp {
				t.Errorf("got (%q, %q, %v), want (%q, %q, %v)",
					version, name, up, tt.wantVersion, tt.wantName, tt.wantUp)
			}
		})
	}
}
