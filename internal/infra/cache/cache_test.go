package cache_test

import (
	"testing"
	"time"

	"github.com/wanderplan/wanderplan-go/internal/infra/cache"
)

func TestCache_SetAndGet(t *testing.T) {
	c := cache.New[string](5 * time.Minute)

	c.Set("cities", "lisbon,porto")
	val, ok := c.Get("cities")
	if !ok {
		t.Fatal("expected key to exist")
	}
	if val != "lisbon,porto" {
		t.Errorf("expected 'lisbon,porto', got '%s'", val)
	}
}

func TestCache_GetMiss(t *testing.T) {
	c := cache.New[string](5 * time.Minute)

	_, ok := c.Get("nonexistent")
	if ok {
		t.Fatal("expected cache miss for nonexistent key")
	}
}

func TestCache_Expiration(t *testing.T) {
	c := cache.New[string](50 * time.Millisecond)

	c.Set("cities", "lisbon")
	time.Sleep(100 * time.Millisecond)

	_, ok := c.Get("cities")
	if ok {
		t.Fatal("expected cache entry to be expired")
	}
}

func TestCache_Delete(t *testing.T) {
	c := cache.New[string](5 * time.Minute)

	c.Set("trip:t1:owner", "u1")
	c.Delete("trip:t1:owner")

	_, ok := c.Get("trip:t1:owner")
	if ok {
		t.Fatal("expected key to be deleted")
	}
}

func TestCache_Clear(t *testing.T) {
	c := cache.New[int](5 * time.Minute)

	c.Set("a", 1)
	c.Set("b", 2)
	c.Clear()

	if _, ok := c.Get("a"); ok {
		t.Fatal("expected cache to be cleared")
	}
	if _, ok := c.Get("b"); ok {
		t.Fatal("expected cache to be cleared")
	}
}
