package cache

import (
	"strings"
	"testing"
	"time"
)

func TestMemoryCache_SetGet(t *testing.T) {
	c := NewMemoryCache(time.Minute, time.Minute)

	if err := c.Set("key", []byte("value"), time.Minute); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	val, found := c.Get("key")
	if !found {
		t.Fatal("Expected key to be found")
	}
	if string(val) != "value" {
		t.Errorf("Expected value, got %s", val)
	}
}

func TestMemoryCache_GetMissing(t *testing.T) {
	c := NewMemoryCache(time.Minute, time.Minute)

	if _, found := c.Get("nope"); found {
		t.Error("Expected miss for unknown key")
	}
}

func TestMemoryCache_Expiry(t *testing.T) {
	c := NewMemoryCache(time.Minute, time.Minute)

	if err := c.Set("short", []byte("x"), 10*time.Millisecond); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	time.Sleep(30 * time.Millisecond)

	if _, found := c.Get("short"); found {
		t.Error("Expected entry to expire")
	}
}

func TestMemoryCache_Delete(t *testing.T) {
	c := NewMemoryCache(time.Minute, time.Minute)

	_ = c.Set("key", []byte("value"), time.Minute)
	if err := c.Delete("key"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	if _, found := c.Get("key"); found {
		t.Error("Expected key to be gone after delete")
	}
}

func TestMemoryCache_Clear(t *testing.T) {
	c := NewMemoryCache(time.Minute, time.Minute)

	_ = c.Set("a", []byte("1"), time.Minute)
	_ = c.Set("b", []byte("2"), time.Minute)

	if err := c.Clear(); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}

	if _, found := c.Get("a"); found {
		t.Error("Expected cache to be empty after clear")
	}
	if _, found := c.Get("b"); found {
		t.Error("Expected cache to be empty after clear")
	}
}

func TestKey_Deterministic(t *testing.T) {
	k1 := Key("openweathermap", "Oslo")
	k2 := Key("openweathermap", "Oslo")
	if k1 != k2 {
		t.Error("Expected identical keys for identical input")
	}

	if !strings.HasPrefix(k1, "stratus:v1:") {
		t.Errorf("Expected versioned key prefix, got %s", k1)
	}
}

func TestKey_NormalizesLocation(t *testing.T) {
	// Location matching is case and whitespace insensitive.
	if Key("openweathermap", "Oslo") != Key("openweathermap", "  oslo  ") {
		t.Error("Expected normalized location to produce the same key")
	}
}

func TestKey_SeparatesProviders(t *testing.T) {
	if Key("openweathermap", "Oslo") == Key("weatherapi", "Oslo") {
		t.Error("Expected different providers to produce different keys")
	}
}
