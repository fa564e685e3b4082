package entrycache

import (
	"context"
	"testing"
	"time"
)

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("condition not met within %v", timeout)
}

func TestZeroCreationExpiry(t *testing.T) {
	ctx := context.Background()
	cfg := DefaultConfig[string, int]().SetExpiry(ExpiryCreation, Zero)
	c := newTestCache(t, cfg)

	if err := c.Put(ctx, "a", 1); err != nil {
		t.Fatalf("put failed: %v", err)
	}
	if c.ContainsKey("a") {
		t.Fatalf("entry with zero creation expiry must never be observable")
	}
	if _, ok, _ := c.Get(ctx, "a"); ok {
		t.Fatalf("expected miss for zero-expiry entry")
	}
}

func TestCreationExpiryLapses(t *testing.T) {
	ctx := context.Background()
	cfg := DefaultConfig[string, int]().SetExpiry(ExpiryCreation, MustDuration(Milliseconds, 60))
	c := newTestCache(t, cfg)

	if err := c.Put(ctx, "a", 1); err != nil {
		t.Fatalf("put failed: %v", err)
	}
	if !c.ContainsKey("a") {
		t.Fatalf("expected entry alive immediately after put")
	}

	time.Sleep(100 * time.Millisecond)
	if c.ContainsKey("a") {
		t.Fatalf("expected entry expired")
	}
	if _, ok, _ := c.Get(ctx, "a"); ok {
		t.Fatalf("expected miss after expiry")
	}
}

func TestAccessExpiryExtendsLifetime(t *testing.T) {
	ctx := context.Background()
	cfg := DefaultConfig[string, int]().
		SetExpiry(ExpiryCreation, MustDuration(Milliseconds, 150)).
		SetExpiry(ExpiryAccess, MustDuration(Milliseconds, 150))
	c := newTestCache(t, cfg)

	if err := c.Put(ctx, "a", 1); err != nil {
		t.Fatalf("put failed: %v", err)
	}

	// Keep reading well inside the window; each read re-arms the deadline.
	for i := 0; i < 6; i++ {
		time.Sleep(50 * time.Millisecond)
		if _, ok, err := c.Get(ctx, "a"); err != nil || !ok {
			t.Fatalf("entry expired despite access touches at step %d: ok=%v err=%v", i, ok, err)
		}
	}

	// Stop touching and let it lapse.
	time.Sleep(250 * time.Millisecond)
	if _, ok, _ := c.Get(ctx, "a"); ok {
		t.Fatalf("expected entry to expire once reads stopped")
	}
}

func TestUpdateExpiryRearmsDeadline(t *testing.T) {
	ctx := context.Background()
	cfg := DefaultConfig[string, int]().
		SetExpiry(ExpiryCreation, MustDuration(Milliseconds, 100)).
		SetExpiry(ExpiryUpdate, MustDuration(Milliseconds, 300))
	c := newTestCache(t, cfg)

	if err := c.Put(ctx, "a", 1); err != nil {
		t.Fatalf("put failed: %v", err)
	}
	time.Sleep(50 * time.Millisecond)
	if err := c.Put(ctx, "a", 2); err != nil {
		t.Fatalf("update failed: %v", err)
	}

	// Past the creation deadline but inside the update window.
	time.Sleep(150 * time.Millisecond)
	if !c.ContainsKey("a") {
		t.Fatalf("expected update to re-arm the deadline")
	}

	time.Sleep(300 * time.Millisecond)
	if c.ContainsKey("a") {
		t.Fatalf("expected entry expired after update window")
	}
}

func TestEternalUpdateKeepsExistingDeadline(t *testing.T) {
	ctx := context.Background()
	cfg := DefaultConfig[string, int]().
		SetExpiry(ExpiryCreation, MustDuration(Milliseconds, 150))
	c := newTestCache(t, cfg)

	if err := c.Put(ctx, "a", 1); err != nil {
		t.Fatalf("put failed: %v", err)
	}
	time.Sleep(50 * time.Millisecond)
	// Update expiry defaults to Eternal, which leaves the creation deadline
	// in place rather than clearing it.
	if err := c.Put(ctx, "a", 2); err != nil {
		t.Fatalf("update failed: %v", err)
	}

	time.Sleep(200 * time.Millisecond)
	if c.ContainsKey("a") {
		t.Fatalf("expected original creation deadline to still apply")
	}
}

func TestSweepEmitsExpiredEvents(t *testing.T) {
	ctx := context.Background()
	spy := &spyListener{}
	cfg := DefaultConfig[string, string]().
		SetExpiry(ExpiryCreation, MustDuration(Milliseconds, 30)).
		SetSweepInterval(20 * time.Millisecond).
		SetStatisticsEnabled(true)
	if err := cfg.AddListener(ListenerConfig[string, string]{Listener: spy, OldValueRequired: true}); err != nil {
		t.Fatalf("add listener failed: %v", err)
	}
	c := newTestCache(t, cfg)

	if err := c.Put(ctx, "a", "payload"); err != nil {
		t.Fatalf("put failed: %v", err)
	}

	waitFor(t, 2*time.Second, func() bool {
		for _, ev := range spy.all() {
			if ev.Type == EventExpired && ev.Key == "a" {
				return true
			}
		}
		return false
	})
	if got := c.Stats().Expiries(); got != 1 {
		t.Fatalf("expected 1 recorded expiry, got %d", got)
	}
}

func TestLazyExpiryEmitsExpiredEvent(t *testing.T) {
	ctx := context.Background()
	spy := &spyListener{}
	// Sweep interval far out so only the lazy path can observe the expiry.
	cfg := DefaultConfig[string, string]().
		SetExpiry(ExpiryCreation, MustDuration(Milliseconds, 30)).
		SetSweepInterval(time.Hour)
	if err := cfg.AddListener(ListenerConfig[string, string]{Listener: spy}); err != nil {
		t.Fatalf("add listener failed: %v", err)
	}
	c := newTestCache(t, cfg)

	if err := c.Put(ctx, "a", "payload"); err != nil {
		t.Fatalf("put failed: %v", err)
	}
	time.Sleep(60 * time.Millisecond)
	if _, ok, _ := c.Get(ctx, "a"); ok {
		t.Fatalf("expected lazy expiry on read")
	}

	waitFor(t, 2*time.Second, func() bool {
		for _, ev := range spy.all() {
			if ev.Type == EventExpired {
				return true
			}
		}
		return false
	})
}
