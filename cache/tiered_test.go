package cache

import (
	"context"
	"testing"
	"time"
)

func testPolicy() Policy {
	return Policy{TTL: time.Hour, Revalidate: time.Minute, LockTTL: 30 * time.Second, BundleMaxAge: time.Minute}
}

func TestTiered_PutLookupFresh(t *testing.T) {
	mr, client := newTestRedis(t)
	tc := NewTiered(NewRedisStore(client), DefaultMemoryConfig(), testPolicy())
	ctx := context.Background()
	key := NewKey("abc")

	if _, ok := tc.Lookup(ctx, key); ok {
		t.Fatal("expected miss on empty cache")
	}
	if err := tc.Put(ctx, key, []byte("png")); err != nil {
		t.Fatalf("Put: %v", err)
	}

	e, ok := tc.Lookup(ctx, key)
	if !ok || !e.Fresh || string(e.Value) != "png" || e.Source != SourceMemory {
		t.Fatalf("Lookup = %+v, %v", e, ok)
	}
	if ttl := mr.TTL(key.Cache); ttl != time.Hour {
		t.Errorf("entry ttl = %s, want 1h", ttl)
	}
	if ttl := mr.TTL(key.Fresh); ttl != time.Minute {
		t.Errorf("marker ttl = %s, want 1m", ttl)
	}
}

func TestTiered_StaleAfterWindow(t *testing.T) {
	mr, client := newTestRedis(t)
	tc := NewTiered(NewRedisStore(client), DefaultMemoryConfig(), testPolicy())
	ctx := context.Background()
	key := NewKey("abc")

	_ = tc.Put(ctx, key, []byte("png"))
	mr.FastForward(61 * time.Second)

	e, ok := tc.Lookup(ctx, key)
	if !ok {
		t.Fatal("entry must outlive the freshness window")
	}
	if e.Fresh {
		t.Error("entry should be stale once the marker expired")
	}

	tc.MarkFresh(ctx, key)
	if e, _ := tc.Lookup(ctx, key); !e.Fresh {
		t.Error("MarkFresh did not restore freshness")
	}
	tc.ClearFresh(ctx, key)
	if e, _ := tc.Lookup(ctx, key); e.Fresh {
		t.Error("ClearFresh did not end freshness")
	}
}

func TestTiered_ReadsRedisWrittenByOtherInstance(t *testing.T) {
	_, client := newTestRedis(t)
	writer := NewTiered(NewRedisStore(client), DefaultMemoryConfig(), testPolicy())
	reader := NewTiered(NewRedisStore(client), DefaultMemoryConfig(), testPolicy())
	ctx := context.Background()
	key := NewKey("abc")

	_ = writer.Put(ctx, key, []byte("png"))

	e, ok := reader.Lookup(ctx, key)
	if !ok || e.Source != SourceRedis || !e.Fresh {
		t.Fatalf("Lookup = %+v, %v", e, ok)
	}
	if v, ok := reader.Peek(ctx, key); !ok || string(v) != "png" {
		t.Errorf("Peek = %q, %v", v, ok)
	}
}

func TestTiered_DegradesToMemory(t *testing.T) {
	mr, client := newTestRedis(t)
	tc := NewTiered(NewRedisStore(client), DefaultMemoryConfig(), testPolicy())
	ctx := context.Background()
	key := NewKey("abc")

	mr.SetError("ERR down for test")

	if _, ok := tc.Lookup(ctx, key); ok {
		t.Fatal("expected miss")
	}
	if err := tc.Put(ctx, key, []byte("png")); err != nil {
		t.Fatalf("Put must not fail when redis is down: %v", err)
	}
	e, ok := tc.Lookup(ctx, key)
	if !ok || !e.Fresh || e.Source != SourceMemory {
		t.Fatalf("Lookup = %+v, %v", e, ok)
	}
	if v, ok := tc.Peek(ctx, key); !ok || string(v) != "png" {
		t.Errorf("Peek = %q, %v", v, ok)
	}

	tc.ClearFresh(ctx, key)
	if e, _ := tc.Lookup(ctx, key); e.Fresh {
		t.Error("local marker should be cleared")
	}
}

func TestTiered_MemoryOnly(t *testing.T) {
	tc := NewTiered(nil, DefaultMemoryConfig(), testPolicy())
	ctx := context.Background()
	key := NewKey("abc")

	_ = tc.Put(ctx, key, []byte("png"))
	if e, ok := tc.Lookup(ctx, key); !ok || !e.Fresh {
		t.Fatalf("Lookup = %+v, %v", e, ok)
	}
}
