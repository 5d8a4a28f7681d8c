package database

import (
	"context"
	"testing"
	"testing/fstest"
)

func TestRunMigrationsSQLite(t *testing.T) {
	db, err := OpenSQLite(":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()

	migrations := fstest.MapFS{
		"001_items.sql": {Data: []byte(`CREATE TABLE items (id INTEGER PRIMARY KEY, name TEXT NOT NULL);`)},
		"002_seed.sql":  {Data: []byte(`INSERT INTO items (name) VALUES ('first');`)},
		"README.md":     {Data: []byte("not a migration")},
	}

	ctx := context.Background()
	for range 2 {
		if err := db.RunMigrations(ctx, migrations); err != nil {
			t.Fatalf("migrate: %v", err)
		}
	}

	var items, applied int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM items`).Scan(&items); err != nil {
		t.Fatalf("count items: %v", err)
	}
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM schema_migrations`).Scan(&applied); err != nil {
		t.Fatalf("count migrations: %v", err)
	}
	if items != 1 || applied != 2 {
		t.Fatalf("items=%d applied=%d, migrations must run once", items, applied)
	}
}

func TestPlaceholder(t *testing.T) {
	pg := &DB{Driver: DriverPostgres}
	lite := &DB{Driver: DriverSQLite}
	if pg.Placeholder(3) != "$3" || lite.Placeholder(3) != "?" {
		t.Fatalf("placeholders: %s %s", pg.Placeholder(3), lite.Placeholder(3))
	}
}
