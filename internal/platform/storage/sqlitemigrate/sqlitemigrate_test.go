package sqlitemigrate

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"testing/fstest"

	_ "modernc.org/sqlite"
)

const createSessions = "-- +migrate Up\nCREATE TABLE sessions(id TEXT PRIMARY KEY);\n-- +migrate Down\nDROP TABLE sessions;"

func TestApplyMigrationsRecordsApplied(t *testing.T) {
	t.Parallel()
	db := openInMemoryDB(t)

	migrations := fstest.MapFS{
		"001_sessions.sql": &fstest.MapFile{Data: []byte(createSessions)},
		"README.md":        &fstest.MapFile{Data: []byte("not a migration")},
	}
	if err := ApplyMigrations(context.Background(), db, migrations, ""); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}

	if got := queryInt64(t, db, "SELECT COUNT(*) FROM schema_migrations"); got != 1 {
		t.Fatalf("migration rows = %d, want 1", got)
	}
	if !tableExists(t, db, "sessions") {
		t.Fatal("expected sessions table to exist")
	}
}

func TestApplyMigrationsSkipsAlreadyApplied(t *testing.T) {
	t.Parallel()
	db := openInMemoryDB(t)

	migrations := fstest.MapFS{
		"001_sessions.sql": &fstest.MapFile{Data: []byte(createSessions)},
	}
	for i := 0; i < 2; i++ {
		if err := ApplyMigrations(context.Background(), db, migrations, ""); err != nil {
			t.Fatalf("apply migrations pass %d: %v", i+1, err)
		}
	}
	if got := queryInt64(t, db, "SELECT COUNT(*) FROM schema_migrations"); got != 1 {
		t.Fatalf("migration rows after replay = %d, want 1", got)
	}
}

func TestApplyMigrationsDoesNotRecordFailedMigration(t *testing.T) {
	t.Parallel()
	db := openInMemoryDB(t)

	bad := fstest.MapFS{
		"001_bad.sql": &fstest.MapFile{Data: []byte("-- +migrate Up\nCREAT table things(id INT);")},
	}
	if err := ApplyMigrations(context.Background(), db, bad, ""); err == nil {
		t.Fatal("expected bad migration to fail")
	}
	if got := queryInt64(t, db, "SELECT COUNT(*) FROM schema_migrations"); got != 0 {
		t.Fatalf("failed migration rows = %d, want 0", got)
	}

	good := fstest.MapFS{
		"001_bad.sql": &fstest.MapFile{Data: []byte("-- +migrate Up\nCREATE TABLE things(id INTEGER PRIMARY KEY);")},
	}
	if err := ApplyMigrations(context.Background(), db, good, ""); err != nil {
		t.Fatalf("apply fixed migration: %v", err)
	}
	if got := queryInt64(t, db, "SELECT COUNT(*) FROM schema_migrations"); got != 1 {
		t.Fatalf("fixed migration rows = %d, want 1", got)
	}
}

func TestApplyMigrationsRespectsRoot(t *testing.T) {
	t.Parallel()
	db := openInMemoryDB(t)

	migrations := fstest.MapFS{
		"migrations/001_sessions.sql": &fstest.MapFile{Data: []byte(createSessions)},
	}
	if err := ApplyMigrations(context.Background(), db, migrations, "migrations"); err != nil {
		t.Fatalf("apply migrations with root: %v", err)
	}

	var key string
	if err := db.QueryRow("SELECT name FROM schema_migrations LIMIT 1").Scan(&key); err != nil {
		t.Fatalf("query migration key: %v", err)
	}
	if key != "migrations/001_sessions.sql" {
		t.Fatalf("migration key = %q, want root-relative path", key)
	}
}

func TestApplyMigrationsRequiresInputs(t *testing.T) {
	t.Parallel()
	if err := ApplyMigrations(context.Background(), nil, fstest.MapFS{}, ""); err == nil {
		t.Fatal("expected nil db to be rejected")
	}
	if err := ApplyMigrations(context.Background(), openInMemoryDB(t), nil, ""); err == nil {
		t.Fatal("expected nil fs to be rejected")
	}
}

func TestExtractUpMigration(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{name: "no markers", content: "CREATE TABLE a(id);", want: "CREATE TABLE a(id);"},
		{name: "up only", content: "-- +migrate Up\nCREATE TABLE a(id);", want: "\nCREATE TABLE a(id);"},
		{name: "up and down", content: "-- +migrate Up\nA;\n-- +migrate Down\nB;", want: "\nA;\n"},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := ExtractUpMigration(tc.content); got != tc.want {
				t.Fatalf("ExtractUpMigration() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestIsAlreadyExistsError(t *testing.T) {
	t.Parallel()
	if IsAlreadyExistsError(nil) {
		t.Fatal("nil error must not be an already-exists error")
	}
	if !IsAlreadyExistsError(errors.New("table sessions already exists")) {
		t.Fatal("expected already exists to match")
	}
	if !IsAlreadyExistsError(errors.New("duplicate column name: token")) {
		t.Fatal("expected duplicate column to match")
	}
	if IsAlreadyExistsError(errors.New("syntax error")) {
		t.Fatal("syntax error must not match")
	}
}

func openInMemoryDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open in-memory db: %v", err)
	}
	// A single connection keeps every statement on the same in-memory database.
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func queryInt64(t *testing.T, db *sql.DB, query string) int64 {
	t.Helper()
	var value int64
	if err := db.QueryRow(query).Scan(&value); err != nil {
		t.Fatalf("query int value: %v", err)
	}
	return value
}

func tableExists(t *testing.T, db *sql.DB, name string) bool {
	t.Helper()
	var found string
	err := db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name = ?", name).Scan(&found)
	if errors.Is(err, sql.ErrNoRows) {
		return false
	}
	if err != nil {
		t.Fatalf("check table exists: %v", err)
	}
	return found == name
}
