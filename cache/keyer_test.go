package cache

import (
	"net/url"
	"strings"
	"testing"
)

func TestDefaultKeyer_Golden(t *testing.T) {
	k := NewDefaultKeyer()
	key, err := k.Key(KeyInput{PinID: "7"})
	if err != nil {
		t.Fatalf("Key: %v", err)
	}
	// sha256("og:v2:7:latest:::")
	want := "bad9675d990c5e140acee9c8de2e18fd3023e8b4f5c6cc5248a3af21b64b50b7"
	if key.Cache != want {
		t.Errorf("Cache = %s, want %s", key.Cache, want)
	}
	if key.Lock != "lock:"+want || key.Fresh != "fresh:"+want {
		t.Errorf("companion keys = %q, %q", key.Lock, key.Fresh)
	}
}

func TestDefaultKeyer_OverrideOrderIndependent(t *testing.T) {
	k := NewDefaultKeyer()
	a := map[string]string{}
	b := map[string]string{}
	names := []string{"count", "theme", "label", "size", "z", "a"}
	for i, n := range names {
		a[n] = n
		b[names[len(names)-1-i]] = names[len(names)-1-i]
	}

	ka, err := k.Key(KeyInput{PinID: "1", Overrides: a})
	if err != nil {
		t.Fatal(err)
	}
	kb, err := k.Key(KeyInput{PinID: "1", Overrides: b})
	if err != nil {
		t.Fatal(err)
	}
	if ka != kb {
		t.Errorf("keys differ for equal overrides: %s vs %s", ka.Cache, kb.Cache)
	}
}

func TestDefaultKeyer_InputsChangeKey(t *testing.T) {
	k := NewDefaultKeyer()
	base := KeyInput{PinID: "1", Version: "3", ParamsHash: "0xabc", Timestamp: "100"}
	baseKey, _ := k.Key(base)

	variants := map[string]KeyInput{
		"pin":       {PinID: "2", Version: "3", ParamsHash: "0xabc", Timestamp: "100"},
		"version":   {PinID: "1", Version: "4", ParamsHash: "0xabc", Timestamp: "100"},
		"params":    {PinID: "1", Version: "3", ParamsHash: "0xabd", Timestamp: "100"},
		"timestamp": {PinID: "1", Version: "3", ParamsHash: "0xabc", Timestamp: "101"},
		"overrides": {PinID: "1", Version: "3", ParamsHash: "0xabc", Timestamp: "100", Overrides: map[string]string{"x": "1"}},
	}
	for name, in := range variants {
		t.Run(name, func(t *testing.T) {
			got, err := k.Key(in)
			if err != nil {
				t.Fatal(err)
			}
			if got == baseKey {
				t.Errorf("%s did not change the key", name)
			}
		})
	}
}

func TestDefaultKeyer_EmptyOverridesEqualNil(t *testing.T) {
	k := NewDefaultKeyer()
	a, _ := k.Key(KeyInput{PinID: "1"})
	b, _ := k.Key(KeyInput{PinID: "1", Overrides: map[string]string{}})
	if a != b {
		t.Error("empty overrides must hash like no overrides")
	}
}

func TestSplitQuery(t *testing.T) {
	q := url.Values{
		"b":       {"bundle"},
		"sig":     {"0x1"},
		"ver":     {"2"},
		"ts":      {"5"},
		"tokenId": {"9"},
		"t":       {"1700000000"},
		"count":   {"5", "6"},
		"theme":   {"dark"},
	}
	overrides, bust := SplitQuery(q)
	if !bust {
		t.Error("expected cache-bust")
	}
	if len(overrides) != 2 || overrides["count"] != "5" || overrides["theme"] != "dark" {
		t.Errorf("overrides = %v", overrides)
	}
}

func TestCacheBustDoesNotChangeKey(t *testing.T) {
	k := NewDefaultKeyer()

	plain, _ := SplitQuery(url.Values{"count": {"5"}})
	busted, bust := SplitQuery(url.Values{"count": {"5"}, "t": {"123"}, "sig": {"x"}})
	if !bust {
		t.Fatal("expected cache-bust")
	}

	a, _ := k.Key(KeyInput{PinID: "0", Overrides: plain})
	b, _ := k.Key(KeyInput{PinID: "0", Overrides: busted})
	if a != b {
		t.Error("cache-bust and reserved keys must not affect the key")
	}
}

func TestCanonicalJSON(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want string
	}{
		{"nil", nil, "null"},
		{"sorted", map[string]any{"b": 1, "a": "x"}, `{"a":"x","b":1}`},
		{"nested", map[string]any{"z": []any{map[string]any{"d": true, "c": nil}}, "a": 1.5}, `{"a":1.5,"z":[{"c":null,"d":true}]}`},
		{"strings", map[string]string{"count": "5"}, `{"count":"5"}`},
		{"no html escape", map[string]any{"h": "<b>&"}, `{"h":"<b>&"}`},
		{"no html escape in keys", map[string]string{"a<b": "x>y&z"}, `{"a<b":"x>y&z"}`},
		{"nested no html escape", map[string]any{"l": []any{"<i>"}}, `{"l":["<i>"]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CanonicalJSON(tt.in)
			if err != nil {
				t.Fatal(err)
			}
			if string(got) != tt.want {
				t.Errorf("got %s, want %s", got, tt.want)
			}
		})
	}
}

func TestParamsHash(t *testing.T) {
	a, err := ParamsHash(map[string]any{"count": "5", "label": "hi"})
	if err != nil {
		t.Fatal(err)
	}
	b, _ := ParamsHash(map[string]any{"label": "hi", "count": "5"})
	if a != b {
		t.Errorf("hash depends on order: %s vs %s", a, b)
	}
	if !strings.HasPrefix(a, "0x") || len(a) != 66 {
		t.Errorf("hash = %q, want 0x + 64 hex", a)
	}
	c, _ := ParamsHash(map[string]any{"count": "6", "label": "hi"})
	if a == c {
		t.Error("different params produced equal hash")
	}
}
