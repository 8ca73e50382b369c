package db

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/jackc/pgx/v5"
)

type stubTx struct{ pgx.Tx }

func TestTxContextRoundTrip(t *testing.T) {
	if tx := TxFromContext(context.Background()); tx != nil {
		t.Error("expected nil transaction on a bare context")
	}

	want := &stubTx{}
	ctx := WithTx(context.Background(), want)
	if got := TxFromContext(ctx); got != pgx.Tx(want) {
		t.Error("context did not round-trip the transaction")
	}
}

func TestLoadMigrationsOrdersAndSkips(t *testing.T) {
	dir := t.TempDir()
	files := map[string]string{
		"002_records.sql": "CREATE TABLE b ();",
		"001_users.sql":   "CREATE TABLE a ();",
		"notes.txt":       "not a migration",
		"seed.sql":        "-- no numeric prefix",
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}

	m := NewMigrator(nil, dir)
	migrations, err := m.LoadMigrations()
	if err != nil {
		t.Fatalf("LoadMigrations: %v", err)
	}
	if len(migrations) != 2 {
		t.Fatalf("loaded %d migrations, want 2", len(migrations))
	}
	if migrations[0].Version != 1 || migrations[1].Version != 2 {
		t.Errorf("migrations out of order: %d then %d", migrations[0].Version, migrations[1].Version)
	}
	if migrations[0].Name != "001_users.sql" {
		t.Errorf("first migration = %q, want 001_users.sql", migrations[0].Name)
	}
}
