package db

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
)

func TestNewDatabaseAppliesPragmas(t *testing.T) {
	d, err := NewDatabase(filepath.Join(t.TempDir(), "nested", "test.db"))
	if err != nil {
		t.Fatalf("NewDatabase failed: %v", err)
	}
	defer d.Close()

	ctx := context.Background()
	rows, err := d.QueryContext(ctx, "PRAGMA journal_mode")
	if err != nil {
		t.Fatal(err)
	}
	var mode string
	if rows.Next() {
		rows.Scan(&mode)
	}
	rows.Close()
	if mode != "wal" {
		t.Errorf("journal_mode = %q, want wal", mode)
	}
}

func TestTransactionRollsBack(t *testing.T) {
	d, err := NewDatabase(filepath.Join(t.TempDir(), "tx.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer d.Close()

	ctx := context.Background()
	if _, err := d.ExecContext(ctx, "CREATE TABLE t (v INTEGER)"); err != nil {
		t.Fatal(err)
	}

	boom := errors.New("boom")
	err = d.Transaction(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "INSERT INTO t (v) VALUES (1)"); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("Transaction = %v, want boom", err)
	}

	rows, err := d.QueryContext(ctx, "SELECT COUNT(*) FROM t")
	if err != nil {
		t.Fatal(err)
	}
	defer rows.Close()
	var n int
	if rows.Next() {
		rows.Scan(&n)
	}
	if n != 0 {
		t.Errorf("rolled back insert is visible: %d rows", n)
	}
}
