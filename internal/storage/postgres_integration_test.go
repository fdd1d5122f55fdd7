//go:build integration

package storage

import (
	"context"
	"os"
	"testing"
)

func openPostgresTestStore(t *testing.T) *PostgresStore {
	t.Helper()
	dsn := os.Getenv("USERPIPE_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("USERPIPE_TEST_POSTGRES_DSN not set")
	}
	s, err := OpenPostgres(context.Background(), dsn)
	if err != nil {
		t.Fatalf("OpenPostgres: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestPostgres_InsertGetCount(t *testing.T) {
	s := openPostgresTestStore(t)
	ctx := context.Background()

	before, err := s.CountResults(ctx)
	if err != nil {
		t.Fatalf("CountResults: %v", err)
	}

	want := sampleResult("Clementine Bauch")
	id, err := s.InsertResult(ctx, want)
	if err != nil {
		t.Fatalf("InsertResult: %v", err)
	}
	got, err := s.GetResult(ctx, id)
	if err != nil {
		t.Fatalf("GetResult: %v", err)
	}
	want.ID = id
	if got != want {
		t.Errorf("GetResult = %+v, want %+v", got, want)
	}

	after, err := s.CountResults(ctx)
	if err != nil {
		t.Fatalf("CountResults: %v", err)
	}
	if after != before+1 {
		t.Errorf("count %d -> %d, want +1", before, after)
	}
}

func TestPostgres_ReopenKeepsRows(t *testing.T) {
	s := openPostgresTestStore(t)
	ctx := context.Background()

	id, err := s.InsertResult(ctx, sampleResult("Leanne Graham"))
	if err != nil {
		t.Fatalf("InsertResult: %v", err)
	}

	s2, err := OpenPostgres(ctx, os.Getenv("USERPIPE_TEST_POSTGRES_DSN"))
	if err != nil {
		t.Fatalf("second OpenPostgres: %v", err)
	}
	defer s2.Close()

	if _, err := s2.GetResult(ctx, id); err != nil {
		t.Fatalf("row lost after re-init: %v", err)
	}
}
