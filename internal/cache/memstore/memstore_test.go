package memstore

import (
	"context"
	"testing"
	"time"
)

func TestSetGetRoundTrip(t *testing.T) {
	s := New(16, time.Hour)
	ctx := context.Background()

	if err := s.Set(ctx, "prediction:abc", []byte("v1"), time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}

	val, ok, err := s.Get(ctx, "prediction:abc")
	if err != nil || !ok {
		t.Fatalf("get: ok=%v err=%v", ok, err)
	}
	if string(val) != "v1" {
		t.Fatalf("got %q, want v1", val)
	}
}

func TestGetMissing(t *testing.T) {
	s := New(16, time.Hour)
	_, ok, err := s.Get(context.Background(), "prediction:nope")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if ok {
		t.Fatal("missing key reported present")
	}
}

func TestEntryExpires(t *testing.T) {
	s := New(16, time.Hour)
	ctx := context.Background()

	base := time.Now()
	s.now = func() time.Time { return base }

	if err := s.Set(ctx, "prediction:ttl", []byte("v"), time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}
	if _, ok, _ := s.Get(ctx, "prediction:ttl"); !ok {
		t.Fatal("entry should be live before its deadline")
	}

	s.now = func() time.Time { return base.Add(2 * time.Minute) }
	if _, ok, _ := s.Get(ctx, "prediction:ttl"); ok {
		t.Fatal("entry should have expired")
	}
}

func TestDeleteMatching(t *testing.T) {
	s := New(16, time.Hour)
	ctx := context.Background()

	_ = s.Set(ctx, "prediction:a", []byte("1"), time.Minute)
	_ = s.Set(ctx, "prediction:b", []byte("2"), time.Minute)
	_ = s.Set(ctx, "other:c", []byte("3"), time.Minute)

	n, err := s.DeleteMatching(ctx, "prediction:")
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if n != 2 {
		t.Fatalf("deleted %d, want 2", n)
	}
	if _, ok, _ := s.Get(ctx, "other:c"); !ok {
		t.Fatal("unrelated key was deleted")
	}
}

func TestCountKeys(t *testing.T) {
	s := New(16, time.Hour)
	ctx := context.Background()

	_ = s.Set(ctx, "prediction:a", []byte("1"), time.Minute)
	_ = s.Set(ctx, "prediction:b", []byte("2"), time.Minute)
	_ = s.Set(ctx, "other:c", []byte("3"), time.Minute)

	n, err := s.CountKeys(ctx, "prediction:")
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 2 {
		t.Fatalf("counted %d, want 2", n)
	}
}

func TestLifetimeCounters(t *testing.T) {
	s := New(16, time.Hour)
	ctx := context.Background()

	_ = s.Set(ctx, "prediction:a", []byte("1"), time.Minute)
	_, _, _ = s.Get(ctx, "prediction:a")
	_, _, _ = s.Get(ctx, "prediction:a")
	_, _, _ = s.Get(ctx, "prediction:missing")

	hits, misses, err := s.LifetimeCounters(ctx)
	if err != nil {
		t.Fatalf("counters: %v", err)
	}
	if hits != 2 || misses != 1 {
		t.Fatalf("hits=%d misses=%d, want 2/1", hits, misses)
	}
}
