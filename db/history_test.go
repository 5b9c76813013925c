package db

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"mm_importer/core"
)

const testMigrationsPath = "file://migrations"

func openTestStore(t *testing.T) *HistoryStore {
	t.Helper()
	store, err := OpenHistory(filepath.Join(t.TempDir(), "imports.db"), testMigrationsPath)
	if err != nil {
		t.Fatalf("OpenHistory() error: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestOpenHistory_CreatesParentDirs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "deep", "imports.db")
	store, err := OpenHistory(path, testMigrationsPath)
	if err != nil {
		t.Fatalf("OpenHistory() error: %v", err)
	}
	store.Close()
}

func TestRecordImportAndQueryRecent(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	for i, supplier := range []string{"lcsc", "digikey", "lcsc"} {
		rec := ImportRecord{
			Filename:   "order.csv",
			SupplierID: supplier,
			Imported:   i + 1,
			Status:     "succeeded",
		}
		if _, err := store.RecordImport(ctx, rec); err != nil {
			t.Fatalf("RecordImport() error: %v", err)
		}
	}
	store.Flush()

	records, err := store.QueryRecent(ctx, 10)
	if err != nil {
		t.Fatalf("QueryRecent() error: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("got %d records, want 3", len(records))
	}
	// Newest first
	if records[0].Imported != 3 {
		t.Errorf("first record Imported = %d, want 3", records[0].Imported)
	}
	if records[0].RecordID == "" {
		t.Error("record id must be generated")
	}
	if records[0].CreatedAt.IsZero() {
		t.Error("created_at must be stamped by the database")
	}
}

func TestQueryBySupplier(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	for _, supplier := range []string{"lcsc", "digikey", "lcsc"} {
		if _, err := store.RecordImport(ctx, ImportRecord{
			Filename: "f.csv", SupplierID: supplier, Status: "succeeded",
		}); err != nil {
			t.Fatal(err)
		}
	}
	store.Flush()

	records, err := store.QueryBySupplier(ctx, "lcsc", 10)
	if err != nil {
		t.Fatalf("QueryBySupplier() error: %v", err)
	}
	if len(records) != 2 {
		t.Errorf("got %d lcsc records, want 2", len(records))
	}
}

func TestRecordResult(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	result := &core.ImportResult{
		ImportedCount:    5,
		FailedCount:      1,
		EnrichmentTaskID: "task-1",
	}
	id, err := store.RecordResult(ctx, "/inbox/LCSC_Exported__20240101_120000.csv", "lcsc",
		core.OrderInfo{OrderNumber: "ORD-1", OrderDate: "2024-01-01"},
		"get_part_details,fetch_datasheet", result, core.TaskCompleted,
		2500*time.Millisecond, nil)
	if err != nil {
		t.Fatalf("RecordResult() error: %v", err)
	}
	if id == "" {
		t.Fatal("empty record id")
	}
	store.Flush()

	records, _ := store.QueryRecent(ctx, 1)
	rec := records[0]
	if rec.Filename != "LCSC_Exported__20240101_120000.csv" {
		t.Errorf("Filename = %q, want base name only", rec.Filename)
	}
	if rec.Imported != 5 || rec.Failed != 1 || rec.TaskID != "task-1" {
		t.Errorf("outcome not recorded: %+v", rec)
	}
	if rec.Status != "succeeded" || rec.DurationMS != 2500 {
		t.Errorf("status/duration: %+v", rec)
	}
}

func TestRecordResult_Failure(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	_, err := store.RecordResult(ctx, "order.csv", "lcsc", core.OrderInfo{}, "",
		nil, "", time.Second, errors.New("no valid rows"))
	if err != nil {
		t.Fatalf("RecordResult() error: %v", err)
	}
	store.Flush()

	records, _ := store.QueryRecent(ctx, 1)
	if records[0].Status != "failed" || records[0].ErrorMessage != "no valid rows" {
		t.Errorf("failure not recorded: %+v", records[0])
	}
}

func TestCount(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	if n, err := store.Count(ctx); err != nil || n != 0 {
		t.Fatalf("Count on empty store = %d, %v", n, err)
	}
	if _, err := store.RecordImport(ctx, ImportRecord{Filename: "f.csv", SupplierID: "lcsc", Status: "succeeded"}); err != nil {
		t.Fatal(err)
	}
	store.Flush()
	if n, _ := store.Count(ctx); n != 1 {
		t.Errorf("Count = %d, want 1", n)
	}
}

func TestCleanup(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	// One old row inserted directly so we control created_at
	_, err := store.conn.Exec(insertImportQuery+"", "old-id", "old.csv", "lcsc",
		"", "", 0, 0, 0, "", "", "", "succeeded", "", 0)
	if err != nil {
		t.Fatal(err)
	}
	_, err = store.conn.Exec(
		`UPDATE import_history SET created_at = datetime('now', '-90 days') WHERE record_id = 'old-id'`)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := store.RecordImport(ctx, ImportRecord{Filename: "new.csv", SupplierID: "lcsc", Status: "succeeded"}); err != nil {
		t.Fatal(err)
	}
	store.Flush()

	removed, err := store.Cleanup(ctx, 30)
	if err != nil {
		t.Fatalf("Cleanup() error: %v", err)
	}
	if removed != 1 {
		t.Errorf("removed = %d, want 1", removed)
	}
	if n, _ := store.Count(ctx); n != 1 {
		t.Errorf("Count after cleanup = %d, want 1", n)
	}

	if _, err := store.Cleanup(ctx, 0); err == nil {
		t.Error("non-positive retention must be rejected")
	}
}
