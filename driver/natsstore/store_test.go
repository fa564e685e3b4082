package natsstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
)

// stubEntry satisfies nats.KeyValueEntry for unit tests.
type stubEntry struct {
	key   string
	value []byte
}

func (e *stubEntry) Bucket() string             { return "test" }
func (e *stubEntry) Key() string                { return e.key }
func (e *stubEntry) Value() []byte              { return e.value }
func (e *stubEntry) Revision() uint64           { return 1 }
func (e *stubEntry) Created() time.Time         { return time.Time{} }
func (e *stubEntry) Delta() uint64              { return 0 }
func (e *stubEntry) Operation() nats.KeyValueOp { return nats.KeyValuePut }

// stubKeyValue is an in-memory KeyValue bucket.
type stubKeyValue struct {
	data map[string][]byte

	getErr error
	putErr error
	delErr error
}

func newStubKeyValue() *stubKeyValue {
	return &stubKeyValue{data: make(map[string][]byte)}
}

func (kv *stubKeyValue) Get(key string) (nats.KeyValueEntry, error) {
	if kv.getErr != nil {
		return nil, kv.getErr
	}
	value, ok := kv.data[key]
	if !ok {
		return nil, nats.ErrKeyNotFound
	}
	return &stubEntry{key: key, value: value}, nil
}

func (kv *stubKeyValue) Put(key string, value []byte) (uint64, error) {
	if kv.putErr != nil {
		return 0, kv.putErr
	}
	kv.data[key] = append([]byte(nil), value...)
	return 1, nil
}

func (kv *stubKeyValue) Delete(key string, _ ...nats.DeleteOpt) error {
	if kv.delErr != nil {
		return kv.delErr
	}
	if _, ok := kv.data[key]; !ok {
		return nats.ErrKeyNotFound
	}
	delete(kv.data, key)
	return nil
}

func TestNewRequiresKeyValue(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Fatalf("expected error without a KeyValue bucket")
	}
}

func TestRoundTrip(t *testing.T) {
	ctx := context.Background()
	kv := newStubKeyValue()
	s, err := New(Config{KeyValue: kv, Prefix: "orders"})
	if err != nil {
		t.Fatalf("new failed: %v", err)
	}

	if _, ok, err := s.Load(ctx, "alpha"); err != nil || ok {
		t.Fatalf("expected miss on empty bucket: ok=%v err=%v", ok, err)
	}
	if err := s.Write(ctx, "alpha", []byte("one")); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if _, ok := kv.data["orders.alpha"]; !ok {
		t.Fatalf("expected prefixed subject key, have %v", kv.data)
	}

	body, ok, err := s.Load(ctx, "alpha")
	if err != nil || !ok || string(body) != "one" {
		t.Fatalf("unexpected load: ok=%v body=%q err=%v", ok, string(body), err)
	}

	if err := s.Delete(ctx, "alpha"); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	// Deleting an absent key maps ErrKeyNotFound to a no-op.
	if err := s.Delete(ctx, "alpha"); err != nil {
		t.Fatalf("second delete failed: %v", err)
	}
}

func TestSubjectUnsafeKeysAreEncoded(t *testing.T) {
	ctx := context.Background()
	kv := newStubKeyValue()
	s, err := New(Config{KeyValue: kv})
	if err != nil {
		t.Fatalf("new failed: %v", err)
	}

	if err := s.Write(ctx, "has space.and.dots", []byte("v")); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	for key := range kv.data {
		if key == "entrycache.has space.and.dots" {
			t.Fatalf("unsafe key stored verbatim: %q", key)
		}
	}
	body, ok, err := s.Load(ctx, "has space.and.dots")
	if err != nil || !ok || string(body) != "v" {
		t.Fatalf("round trip through encoded key failed: ok=%v body=%q err=%v", ok, string(body), err)
	}
}

func TestBucketErrorsPropagate(t *testing.T) {
	ctx := context.Background()
	kv := newStubKeyValue()
	s, err := New(Config{KeyValue: kv})
	if err != nil {
		t.Fatalf("new failed: %v", err)
	}

	boom := errors.New("jetstream unavailable")
	kv.getErr = boom
	if _, _, err := s.Load(ctx, "k"); !errors.Is(err, boom) {
		t.Fatalf("expected get error, got %v", err)
	}
	kv.putErr = boom
	if err := s.Write(ctx, "k", []byte("v")); !errors.Is(err, boom) {
		t.Fatalf("expected put error, got %v", err)
	}
	kv.delErr = boom
	if err := s.Delete(ctx, "k"); !errors.Is(err, boom) {
		t.Fatalf("expected delete error, got %v", err)
	}
}
