package server

import (
	"testing"
	"time"
)

func TestDupCacheStoreAndLookup(t *testing.T) {
	c := NewDupCache(time.Minute)
	if _, ok := c.Lookup("127.0.0.1:4000", 1); ok {
		t.Fatal("expected miss before store")
	}
	c.Store("127.0.0.1:4000", 1, []byte("reply"))
	got, ok := c.Lookup("127.0.0.1:4000", 1)
	if !ok || string(got) != "reply" {
		t.Fatalf("expected cached reply, got %q ok=%v", got, ok)
	}
}

func TestDupCacheDistinguishesEndpoints(t *testing.T) {
	c := NewDupCache(time.Minute)
	c.Store("127.0.0.1:4000", 1, []byte("a"))
	if _, ok := c.Lookup("127.0.0.1:4001", 1); ok {
		t.Fatal("a different source port must be a different principal")
	}
}

func TestDupCacheExpiry(t *testing.T) {
	c := NewDupCache(time.Millisecond)
	c.Store("127.0.0.1:4000", 1, []byte("reply"))
	time.Sleep(5 * time.Millisecond)
	if _, ok := c.Lookup("127.0.0.1:4000", 1); ok {
		t.Fatal("expected expired entry to miss")
	}
}

func TestDupCacheSweepRemovesExpired(t *testing.T) {
	c := NewDupCache(time.Millisecond)
	c.Store("127.0.0.1:4000", 1, []byte("reply"))
	time.Sleep(5 * time.Millisecond)
	c.Sweep()
	if len(c.entries) != 0 {
		t.Fatalf("expected sweep to remove expired entry, got %d remaining", len(c.entries))
	}
}
