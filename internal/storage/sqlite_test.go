package storage

import (
	"context"
	"errors"
	"fmt"
	"testing"

	sq "github.com/Masterminds/squirrel"
)

func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open(:memory:) failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleResult(name string) Result {
	return Result{
		Source:    "JSONPlaceholder Users",
		RawData:   fmt.Sprintf(`{"name":%q}`, name),
		Analysis:  name + " works at Unknown and is based in Unknown. Professional environment detected.",
		Sentiment: "balanced",
		Timestamp: "2025-01-01T00:00:00.000000Z",
	}
}

// TestMigrationsIdempotent opens the same database twice and verifies that the
// second initialization neither re-applies migrations nor touches existing rows.
func TestMigrationsIdempotent(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s1, err := Open(dir)
	if err != nil {
		t.Fatalf("first Open failed: %v", err)
	}
	v1, err := s1.AppliedMigrations()
	if err != nil {
		t.Fatalf("AppliedMigrations: %v", err)
	}
	id, err := s1.InsertResult(ctx, sampleResult("Leanne Graham"))
	if err != nil {
		t.Fatalf("InsertResult: %v", err)
	}
	s1.Close()

	s2, err := Open(dir)
	if err != nil {
		t.Fatalf("second Open failed: %v", err)
	}
	defer s2.Close()

	v2, err := s2.AppliedMigrations()
	if err != nil {
		t.Fatalf("AppliedMigrations: %v", err)
	}
	if len(v1) != len(v2) {
		t.Errorf("migration count changed: %d -> %d", len(v1), len(v2))
	}

	got, err := s2.GetResult(ctx, id)
	if err != nil {
		t.Fatalf("GetResult after reopen: %v", err)
	}
	if got.Analysis != sampleResult("Leanne Graham").Analysis {
		t.Errorf("row changed after reopen: %+v", got)
	}
	n, err := s2.CountResults(ctx)
	if err != nil {
		t.Fatalf("CountResults: %v", err)
	}
	if n != 1 {
		t.Errorf("CountResults = %d, want 1", n)
	}
}

func TestMigrationsOrdered(t *testing.T) {
	s := openTestStore(t)

	versions, err := s.AppliedMigrations()
	if err != nil {
		t.Fatalf("AppliedMigrations: %v", err)
	}
	if len(versions) == 0 {
		t.Fatal("expected at least one applied migration")
	}
	for i := 1; i < len(versions); i++ {
		if versions[i] <= versions[i-1] {
			t.Errorf("migrations not in ascending order: %v", versions)
			break
		}
	}
}

func TestResultsTableColumns(t *testing.T) {
	s := openTestStore(t)

	rows, err := s.db.Query(`SELECT name FROM pragma_table_info('results') ORDER BY cid`)
	if err != nil {
		t.Fatalf("pragma_table_info: %v", err)
	}
	defer rows.Close()

	var cols []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			t.Fatal(err)
		}
		cols = append(cols, name)
	}
	if fmt.Sprint(cols) != fmt.Sprint(resultColumns) {
		t.Errorf("columns = %v, want %v", cols, resultColumns)
	}
}

func TestInsertAndGetResult(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	want := sampleResult("Ervin Howell")
	id, err := s.InsertResult(ctx, want)
	if err != nil {
		t.Fatalf("InsertResult: %v", err)
	}
	if id <= 0 {
		t.Fatalf("id = %d, want > 0", id)
	}

	got, err := s.GetResult(ctx, id)
	if err != nil {
		t.Fatalf("GetResult: %v", err)
	}
	want.ID = id
	if got != want {
		t.Errorf("GetResult = %+v, want %+v", got, want)
	}
}

func TestInsertResult_IDsStrictlyIncreasing(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	var last int64
	for i := 0; i < 5; i++ {
		id, err := s.InsertResult(ctx, sampleResult(fmt.Sprintf("user-%d", i)))
		if err != nil {
			t.Fatalf("InsertResult %d: %v", i, err)
		}
		if id <= last {
			t.Fatalf("id %d not greater than previous %d", id, last)
		}
		last = id
	}
}

func TestGetResult_NotFound(t *testing.T) {
	s := openTestStore(t)

	_, err := s.GetResult(context.Background(), 42)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestListResults_NewestFirstWithPaging(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if _, err := s.InsertResult(ctx, sampleResult(fmt.Sprintf("user-%d", i))); err != nil {
			t.Fatalf("InsertResult: %v", err)
		}
	}

	page, err := s.ListResults(ctx, 2, 0)
	if err != nil {
		t.Fatalf("ListResults: %v", err)
	}
	if len(page) != 2 {
		t.Fatalf("len = %d, want 2", len(page))
	}
	if page[0].ID <= page[1].ID {
		t.Errorf("expected newest first, got ids %d, %d", page[0].ID, page[1].ID)
	}

	rest, err := s.ListResults(ctx, 10, 2)
	if err != nil {
		t.Fatalf("ListResults offset: %v", err)
	}
	if len(rest) != 3 {
		t.Errorf("len = %d, want 3", len(rest))
	}
}

func TestInsertResult_ClosedStore(t *testing.T) {
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	s.Close()

	if _, err := s.InsertResult(context.Background(), sampleResult("x")); err == nil {
		t.Fatal("expected error inserting into closed store")
	}
}

func TestOpenBackend_UnknownDriver(t *testing.T) {
	if _, err := OpenBackend(context.Background(), "mongo", t.TempDir(), ""); err == nil {
		t.Fatal("expected error for unknown driver")
	}
}

func TestOpenBackend_DefaultsToSQLite(t *testing.T) {
	s, err := OpenBackend(context.Background(), "", t.TempDir(), "")
	if err != nil {
		t.Fatalf("OpenBackend: %v", err)
	}
	defer s.Close()
	if _, ok := s.(*SQLiteStore); !ok {
		t.Errorf("OpenBackend returned %T, want *SQLiteStore", s)
	}
}

func TestGetResultQuery_DollarPlaceholders(t *testing.T) {
	query, args, err := getResultQuery(sq.Dollar, 7).ToSql()
	if err != nil {
		t.Fatal(err)
	}
	if want := "SELECT id, source, raw_data, analysis, sentiment, timestamp FROM results WHERE id = $1"; query != want {
		t.Errorf("query = %q, want %q", query, want)
	}
	if len(args) != 1 || args[0] != int64(7) {
		t.Errorf("args = %v", args)
	}
}
