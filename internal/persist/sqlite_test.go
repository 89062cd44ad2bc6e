package persist

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	_ "modernc.org/sqlite"

	"github.com/cliffjones/polli/internal/talkmap"
)

func tempDB(t *testing.T) *SQLiteStore {
	t.Helper()
	dir := t.TempDir()
	s, err := NewStore(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleMap() talkmap.Map {
	return talkmap.Map{
		"":      {"hello", "hello"},
		"ehlo":  {"how are you", "hi"},
		"ehlo ": {"fine"},
	}
}

func TestSQLiteSaveAndLoad(t *testing.T) {
	s := tempDB(t)
	ctx := context.Background()

	if err := s.Save(ctx, 0, sampleMap()); err != nil {
		t.Fatalf("Save: %v", err)
	}

	res := s.Load(ctx, 0)
	if !res.OK() {
		t.Fatalf("expected Loaded, got %s (%v)", res.Status, res.Err)
	}
	if !reflect.DeepEqual(res.Map, sampleMap()) {
		t.Fatalf("round trip mismatch: got %v", res.Map)
	}
}

func TestSQLitePreservesOrderAndDuplicates(t *testing.T) {
	s := tempDB(t)
	ctx := context.Background()

	m := talkmap.Map{"k": {"c", "a", "b", "a", "c"}}
	if err := s.Save(ctx, 2, m); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got := s.Load(ctx, 2).Map["k"]
	if !reflect.DeepEqual(got, []string{"c", "a", "b", "a", "c"}) {
		t.Fatalf("expected insertion order kept, got %v", got)
	}
}

func TestSQLiteSaveReplacesDepth(t *testing.T) {
	s := tempDB(t)
	ctx := context.Background()

	s.Save(ctx, 1, talkmap.Map{"old": {"x"}})
	s.Save(ctx, 0, talkmap.Map{"keep": {"y"}})
	if err := s.Save(ctx, 1, talkmap.Map{"new": {"z"}}); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got := s.Load(ctx, 1).Map
	if _, ok := got["old"]; ok {
		t.Fatal("expected old key to be replaced")
	}
	if !reflect.DeepEqual(got["new"], []string{"z"}) {
		t.Fatalf("expected new key, got %v", got)
	}
	if !s.Load(ctx, 0).OK() {
		t.Fatal("expected depth 0 untouched")
	}
}

func TestSQLiteLoadMissingDepth(t *testing.T) {
	s := tempDB(t)

	res := s.Load(context.Background(), 3)
	if res.Status != Missing {
		t.Fatalf("expected Missing, got %s", res.Status)
	}
	if res.Map == nil || len(res.Map) != 0 {
		t.Fatalf("expected empty non-nil map, got %v", res.Map)
	}
}

func TestSQLiteLoadOnClosedDB(t *testing.T) {
	dir := t.TempDir()
	s, _ := NewStore(filepath.Join(dir, "test.db"))
	s.Close()

	res := s.Load(context.Background(), 0)
	if res.Status != Unreadable {
		t.Fatalf("expected Unreadable, got %s", res.Status)
	}
	if res.Err == nil {
		t.Fatal("expected a reason")
	}
}

func TestSQLiteSaveOnClosedDB(t *testing.T) {
	dir := t.TempDir()
	s, _ := NewStore(filepath.Join(dir, "test.db"))
	s.Close()

	if err := s.Save(context.Background(), 0, sampleMap()); err == nil {
		t.Fatal("expected error on closed DB")
	}
}

func TestSQLiteLoadMissingTable(t *testing.T) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open in-memory db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	// No schema applied.
	s := NewStoreWithDB(db)
	res := s.Load(context.Background(), 0)
	if res.Status != Unreadable {
		t.Fatalf("expected Unreadable without schema, got %s", res.Status)
	}
	if err := s.Save(context.Background(), 0, sampleMap()); err == nil {
		t.Fatal("expected save error without schema")
	}
}

func TestNewStoreInvalidPath(t *testing.T) {
	_, err := NewStore(filepath.Join(string(os.PathSeparator), "nonexistent", "deep", "path", "test.db"))
	if err == nil {
		t.Fatal("expected error for invalid path")
	}
}

func TestNewStore_CorruptDB(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "corrupt.db")
	os.WriteFile(dbPath, []byte("not a sqlite database, just some bytes that are long enough"), 0644)

	_, err := NewStore(dbPath)
	if err == nil {
		t.Fatal("expected error for corrupted DB file")
	}
}

func TestDBAccessor(t *testing.T) {
	s := tempDB(t)
	if s.DB() == nil {
		t.Fatal("expected non-nil *sql.DB")
	}
}
