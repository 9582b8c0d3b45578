package testutil

import (
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	devenv "lunchbot/dev/env"
	"lunchbot/lib/telemetry"

	_ "modernc.org/sqlite"
)

// TempDB makes OpenDB create a fresh database file under t.TempDir().
const TempDB = "<temp>"

type ServiceParams struct {
	// telemetry service name, prefixed with "test:"
	Name string
	// schema applied to the test database, no database is opened when empty
	DbSchema string
	// ":memory:" when empty, TempDB or a <dev_state> path otherwise
	DbPath string
}

type ServiceResult struct {
	DB *sql.DB
}

// OpenDB opens a sqlite database for the duration of the test and applies
// schema to it, "already exists" errors are ignored so a persistent path
// can be reused between runs.
func OpenDB(t testing.TB, path, schema string) *sql.DB {
	t.Helper()

	switch path {
	case "", ":memory:":
		path = ":memory:"
	case TempDB:
		path = filepath.Join(t.TempDir(), "test.db")
	default:
		resolved, err := devenv.ResolvePath(path)
		if err != nil {
			t.Fatal(err)
		}
		path = resolved
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	// each connection to :memory: sees its own database
	conn.SetMaxOpenConns(1)
	t.Cleanup(func() { conn.Close() })

	if schema == "" {
		return conn
	}
	_, err = conn.Exec(schema)
	if err != nil && !strings.Contains(err.Error(), "already exists") {
		t.Fatalf("apply schema: %v", err)
	}
	return conn
}

func SetupService(t testing.TB, params ServiceParams) ServiceResult {
	t.Cleanup(telemetry.SetupForTesting(t, fmt.Sprintf("test:%s", params.Name)))

	if params.DbSchema == "" {
		return ServiceResult{}
	}
	return ServiceResult{
		DB: OpenDB(t, params.DbPath, params.DbSchema),
	}
}
