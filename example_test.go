package entrycache_test

import (
	"context"
	"fmt"

	entrycache "github.com/goforj/entrycache"
)

func Example() {
	ctx := context.Background()
	manager := entrycache.NewManager()
	defer manager.Close()

	cfg := entrycache.DefaultConfig[string, string]().
		SetExpiry(entrycache.ExpiryCreation, entrycache.MustDuration(entrycache.Minutes, 30))
	cache, err := entrycache.CreateCache(manager, "sessions", cfg)
	if err != nil {
		fmt.Println("create:", err)
		return
	}

	_ = cache.Put(ctx, "sess-1", "alice")
	value, ok, _ := cache.Get(ctx, "sess-1")
	fmt.Println(value, ok)

	// Output:
	// alice true
}

func ExampleCache_Invoke() {
	ctx := context.Background()
	manager := entrycache.NewManager()
	defer manager.Close()

	cache, _ := entrycache.CreateCache[string, int](manager, "counters", nil)
	_ = cache.Put(ctx, "visits", 41)

	result, _ := cache.Invoke(ctx, "visits", entrycache.ProcessorFunc[string, int](
		func(entry entrycache.MutableEntry[string, int], _ ...any) (any, error) {
			entry.SetValue(entry.Value() + 1)
			return entry.Value(), nil
		}))
	fmt.Println(result)

	// Output:
	// 42
}
