package entrycache

import (
	"errors"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig[string, int]()

	if !cfg.IsStoreByValue() {
		t.Fatalf("expected store-by-value on by default")
	}
	if cfg.IsReadThrough() || cfg.IsWriteThrough() {
		t.Fatalf("expected read/write-through off by default")
	}
	if cfg.IsStatisticsEnabled() {
		t.Fatalf("expected statistics off by default")
	}
	for _, et := range ExpiryTypes {
		if !cfg.Expiry(et).IsEternal() {
			t.Fatalf("expected eternal %s expiry by default", et)
		}
	}
	if got := len(cfg.Listeners()); got != 0 {
		t.Fatalf("expected no listeners, got %d", got)
	}
}

func TestConfigEqualFreshDefaults(t *testing.T) {
	a := DefaultConfig[string, int]()
	b := DefaultConfig[string, int]()
	if a == b {
		t.Fatalf("expected distinct instances")
	}
	if !a.Equal(b) {
		t.Fatalf("expected fresh defaults to be content-equal")
	}
}

func TestConfigEqualFieldSensitivity(t *testing.T) {
	base := func() *Config[string, int] { return DefaultConfig[string, int]() }

	if base().SetStoreByValue(false).Equal(base()) {
		t.Fatalf("storeByValue must affect equality")
	}
	if base().SetReadThrough(true).Equal(base()) {
		t.Fatalf("readThrough must affect equality")
	}
	if base().SetWriteThrough(true).Equal(base()) {
		t.Fatalf("writeThrough must affect equality")
	}
	if base().SetStatisticsEnabled(true).Equal(base()) {
		t.Fatalf("statistics flag must affect equality")
	}
	if base().SetExpiry(ExpiryCreation, MustDuration(Minutes, 5)).Equal(base()) {
		t.Fatalf("expiry must affect equality")
	}
	if base().SetSweepInterval(5 * time.Second).Equal(base()) {
		t.Fatalf("sweep interval must affect equality")
	}
}

func TestConfigEqualNormalizesExpiry(t *testing.T) {
	a := DefaultConfig[string, int]().SetExpiry(ExpiryCreation, MustDuration(Hours, 2))
	b := DefaultConfig[string, int]().SetExpiry(ExpiryCreation, MustDuration(Minutes, 120))
	if !a.Equal(b) {
		t.Fatalf("expected 2h and 120min expiry configs to be equal")
	}
}

func TestConfigEqualListenerMembership(t *testing.T) {
	l1 := &configSpyListener{}
	l2 := &configSpyListener{}

	a := DefaultConfig[string, int]()
	b := DefaultConfig[string, int]()
	if err := a.AddListener(ListenerConfig[string, int]{Listener: l1, Synchronous: true}); err != nil {
		t.Fatalf("add failed: %v", err)
	}
	if err := a.AddListener(ListenerConfig[string, int]{Listener: l2}); err != nil {
		t.Fatalf("add failed: %v", err)
	}
	// Same members, opposite order.
	if err := b.AddListener(ListenerConfig[string, int]{Listener: l2}); err != nil {
		t.Fatalf("add failed: %v", err)
	}
	if err := b.AddListener(ListenerConfig[string, int]{Listener: l1, Synchronous: true}); err != nil {
		t.Fatalf("add failed: %v", err)
	}
	if !a.Equal(b) {
		t.Fatalf("listener membership comparison must ignore order")
	}

	if !b.DeregisterListener(ListenerConfig[string, int]{Listener: l2}) {
		t.Fatalf("expected deregister to remove the registration")
	}
	if a.Equal(b) {
		t.Fatalf("expected differing membership to break equality")
	}
}

func TestAddListenerRejectsDuplicates(t *testing.T) {
	cfg := DefaultConfig[string, int]()
	l := &configSpyListener{}
	reg := ListenerConfig[string, int]{Listener: l, OldValueRequired: true, Synchronous: true}

	if err := cfg.AddListener(reg); err != nil {
		t.Fatalf("first add failed: %v", err)
	}
	if err := cfg.AddListener(reg); !errors.Is(err, ErrListenerRegistered) {
		t.Fatalf("expected ErrListenerRegistered, got %v", err)
	}
	// A different tuple with the same listener is a distinct registration.
	if err := cfg.AddListener(ListenerConfig[string, int]{Listener: l}); err != nil {
		t.Fatalf("distinct tuple add failed: %v", err)
	}
}

func TestDeregisterUnknownListenerIsNoop(t *testing.T) {
	cfg := DefaultConfig[string, int]()
	if cfg.DeregisterListener(ListenerConfig[string, int]{Listener: &configSpyListener{}}) {
		t.Fatalf("expected deregister of unknown tuple to report false")
	}
}

func TestListenersReturnsSnapshot(t *testing.T) {
	cfg := DefaultConfig[string, int]()
	if err := cfg.AddListener(ListenerConfig[string, int]{Listener: &configSpyListener{}}); err != nil {
		t.Fatalf("add failed: %v", err)
	}
	snap := cfg.Listeners()
	snap[0] = ListenerConfig[string, int]{}
	if got := cfg.Listeners(); got[0].Listener == nil {
		t.Fatalf("mutating the snapshot must not affect the config")
	}
}

type configSpyListener struct{}

func (*configSpyListener) OnCreated([]Event[string, int]) error { return nil }
