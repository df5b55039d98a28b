package cache_test

import (
	"context"
	"fmt"
	"net/url"

	"github.com/jonwraymond/pinog/cache"
)

func ExampleDefaultKeyer() {
	overrides, bust := cache.SplitQuery(url.Values{"t": {"1700000000"}})

	key, err := cache.NewDefaultKeyer().Key(cache.KeyInput{PinID: "7", Overrides: overrides})
	if err != nil {
		panic(err)
	}
	fmt.Println(bust)
	fmt.Println(key.Cache)
	// Output:
	// true
	// bad9675d990c5e140acee9c8de2e18fd3023e8b4f5c6cc5248a3af21b64b50b7
}

func ExamplePolicy_CacheControl() {
	p := cache.DefaultPolicy()
	fmt.Println(p.CacheControl(false))
	// Output: public, max-age=60, stale-while-revalidate=60
}

func ExampleMemoryCache() {
	c := cache.NewMemoryCache(cache.MemoryConfig{Capacity: 2})
	ctx := context.Background()

	_ = c.Set(ctx, "a", []byte("1"), 0)
	_ = c.Set(ctx, "b", []byte("2"), 0)
	_ = c.Set(ctx, "c", []byte("3"), 0)

	_, ok := c.Get(ctx, "a")
	fmt.Println(ok, c.Len())
	// Output: false 2
}
