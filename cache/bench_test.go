package cache

import (
	"context"
	"fmt"
	"testing"
)

func BenchmarkDefaultKeyer(b *testing.B) {
	k := NewDefaultKeyer()
	in := KeyInput{
		PinID:      "42",
		Version:    "3",
		ParamsHash: "0x1c8aff950685c2ed4bc3174f3472287b56d9517b9c948127319a09a7a36deac8",
		Overrides:  map[string]string{"count": "5", "theme": "dark", "label": "hello"},
		Timestamp:  "1700000000",
	}
	b.ReportAllocs()
	for b.Loop() {
		if _, err := k.Key(in); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkMemoryCache_SetGet(b *testing.B) {
	c := NewMemoryCache(DefaultMemoryConfig())
	ctx := context.Background()
	keys := make([]string, 1000)
	for i := range keys {
		keys[i] = fmt.Sprintf("key-%d", i)
	}
	val := make([]byte, 32<<10)

	b.ReportAllocs()
	i := 0
	for b.Loop() {
		k := keys[i%len(keys)]
		_ = c.Set(ctx, k, val, 0)
		_, _ = c.Get(ctx, k)
		i++
	}
}
