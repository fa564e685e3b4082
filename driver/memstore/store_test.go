package memstore

import (
	"context"
	"testing"
	"time"
)

func TestRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := New(0)

	if _, ok, err := s.Load(ctx, "k"); err != nil || ok {
		t.Fatalf("expected miss on empty store: ok=%v err=%v", ok, err)
	}
	if err := s.Write(ctx, "k", []byte("value")); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	body, ok, err := s.Load(ctx, "k")
	if err != nil || !ok || string(body) != "value" {
		t.Fatalf("unexpected load: ok=%v body=%q err=%v", ok, string(body), err)
	}
	if err := s.Delete(ctx, "k"); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if _, ok, _ := s.Load(ctx, "k"); ok {
		t.Fatalf("expected miss after delete")
	}
}

func TestLoadReturnsDetachedCopy(t *testing.T) {
	ctx := context.Background()
	s := New(0)

	original := []byte("value")
	if err := s.Write(ctx, "k", original); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	original[0] = 'X'

	body, _, _ := s.Load(ctx, "k")
	if string(body) != "value" {
		t.Fatalf("write did not detach: %q", string(body))
	}
	body[0] = 'Y'
	again, _, _ := s.Load(ctx, "k")
	if string(again) != "value" {
		t.Fatalf("load did not detach: %q", string(again))
	}
}

func TestTTLExpiresEntries(t *testing.T) {
	ctx := context.Background()
	s := New(30 * time.Millisecond)

	if err := s.Write(ctx, "k", []byte("value")); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	time.Sleep(60 * time.Millisecond)
	if _, ok, _ := s.Load(ctx, "k"); ok {
		t.Fatalf("expected value gone after ttl")
	}
}

func TestDeleteAbsentKeyIsNoop(t *testing.T) {
	if err := New(0).Delete(context.Background(), "missing"); err != nil {
		t.Fatalf("delete of absent key failed: %v", err)
	}
}
