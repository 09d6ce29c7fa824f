package redis

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	mr := miniredis.RunT(t)
	s, err := New(Options{Addr: mr.Addr()})
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestHealthCheck(t *testing.T) {
	s := newTestService(t)
	if err := s.HealthCheck(context.Background()); err != nil {
		t.Fatalf("HealthCheck: %v", err)
	}
}

func TestCacheRoundTrip(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	type payload struct {
		Name  string `json:"name"`
		Count int    `json:"count"`
	}
	in := payload{Name: "doc", Count: 3}
	if err := s.CacheSet(ctx, "test:key", in, 60); err != nil {
		t.Fatalf("CacheSet: %v", err)
	}

	var out payload
	if err := s.CacheGet(ctx, "test:key", &out); err != nil {
		t.Fatalf("CacheGet: %v", err)
	}
	if out != in {
		t.Fatalf("round trip mismatch: %+v vs %+v", out, in)
	}
}

func TestCacheGetMissing(t *testing.T) {
	s := newTestService(t)
	var out map[string]string
	err := s.CacheGet(context.Background(), "absent", &out)
	if err == nil {
		t.Fatal("expected an error for a missing key")
	}
	if !IsNotFound(err) {
		t.Fatalf("IsNotFound(%v) = false, want true", err)
	}
}
