package sqlstore

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/goforj/entrycache/backend"
)

var dsnSeq atomic.Int64

// newSQLiteStore opens a private in-memory database per test.
func newSQLiteStore(t *testing.T, cfg Config) backend.Store {
	t.Helper()
	cfg.DriverName = "sqlite"
	cfg.DSN = fmt.Sprintf("file:sqlstore_test_%d?mode=memory&cache=shared", dsnSeq.Add(1))
	s, err := New(cfg)
	if err != nil {
		t.Fatalf("open sqlite store: %v", err)
	}
	return s
}

func TestNewRequiresDriverAndDSN(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Fatalf("expected error for empty config")
	}
	if _, err := New(Config{DriverName: "sqlite"}); err == nil {
		t.Fatalf("expected error for missing dsn")
	}
}

func TestNewRejectsBadTableName(t *testing.T) {
	_, err := New(Config{
		DriverName: "sqlite",
		DSN:        "file:badtable?mode=memory",
		Table:      "cache; DROP TABLE users",
	})
	if err == nil {
		t.Fatalf("expected table name validation error")
	}
}

func TestRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newSQLiteStore(t, Config{})

	if _, ok, err := s.Load(ctx, "k"); err != nil || ok {
		t.Fatalf("expected miss on empty table: ok=%v err=%v", ok, err)
	}
	if err := s.Write(ctx, "k", []byte("value")); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	body, ok, err := s.Load(ctx, "k")
	if err != nil || !ok || string(body) != "value" {
		t.Fatalf("unexpected load: ok=%v body=%q err=%v", ok, string(body), err)
	}

	// The upsert path overwrites in place.
	if err := s.Write(ctx, "k", []byte("next")); err != nil {
		t.Fatalf("overwrite failed: %v", err)
	}
	body, _, _ = s.Load(ctx, "k")
	if string(body) != "next" {
		t.Fatalf("expected overwrite, got %q", string(body))
	}

	if err := s.Delete(ctx, "k"); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if _, ok, _ := s.Load(ctx, "k"); ok {
		t.Fatalf("expected miss after delete")
	}
}

func TestPrefixNamespacesKeys(t *testing.T) {
	ctx := context.Background()
	a := newSQLiteStore(t, Config{Prefix: "a"})

	if err := a.Write(ctx, "k", []byte("va")); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	body, ok, err := a.Load(ctx, "k")
	if err != nil || !ok || string(body) != "va" {
		t.Fatalf("unexpected load: ok=%v body=%q err=%v", ok, string(body), err)
	}

	impl := a.(*store)
	if got := impl.storeKey("k"); got != "a:k" {
		t.Fatalf("unexpected store key %q", got)
	}
}

func TestReady(t *testing.T) {
	s := newSQLiteStore(t, Config{})
	if err := s.(backend.Pinger).Ready(context.Background()); err != nil {
		t.Fatalf("ready failed: %v", err)
	}
}

func TestUpsertSQLDialects(t *testing.T) {
	cases := []struct {
		driver string
		want   string
	}{
		{"pgx", "INSERT INTO cache_values (k, v) VALUES ($1, $2) ON CONFLICT (k) DO UPDATE SET v = $3"},
		{"postgres", "INSERT INTO cache_values (k, v) VALUES ($1, $2) ON CONFLICT (k) DO UPDATE SET v = $3"},
		{"mysql", "INSERT INTO cache_values (k, v) VALUES (?, ?) ON DUPLICATE KEY UPDATE v = ?"},
		{"sqlite", "INSERT INTO cache_values (k, v) VALUES (?, ?) ON CONFLICT(k) DO UPDATE SET v = ?"},
	}
	for _, tc := range cases {
		s := &store{table: defaultTable, driverName: tc.driver}
		if got := s.upsertSQL(); got != tc.want {
			t.Fatalf("%s: got %q want %q", tc.driver, got, tc.want)
		}
	}
}

func TestValidateTableName(t *testing.T) {
	for _, name := range []string{"cache_values", "app.cache_values", "V2_cache"} {
		if err := validateTableName(name); err != nil {
			t.Fatalf("expected %q valid: %v", name, err)
		}
	}
	for _, name := range []string{"", "  ", "1bad", "bad name", "bad;drop", "a..b"} {
		if err := validateTableName(name); err == nil {
			t.Fatalf("expected %q invalid", name)
		}
	}
}
