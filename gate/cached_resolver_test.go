package gate_test

import (
	"context"
	"testing"
	"time"

	"github.com/diewo77/go-timesheets/gate"
)

type member struct {
	UserID, WorkspaceID uint
}

func TestCachedResolver_CachesProfile(t *testing.T) {
	inner := gate.NewStaticResolver[member]()
	alice := member{UserID: 1, WorkspaceID: 10}
	inner.Set(alice, gate.NewStaticProfile("member"))

	cached := gate.NewCachedResolver[member](inner, 5*time.Minute)

	p1, err := cached.Resolve(context.Background(), alice)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p1.Name() != "member" {
		t.Errorf("expected 'member', got '%s'", p1.Name())
	}

	inner.Set(alice, gate.NewStaticProfile("admin"))

	p2, _ := cached.Resolve(context.Background(), alice)
	if p2.Name() != "member" {
		t.Errorf("expected cached 'member', got '%s'", p2.Name())
	}

	// same user, other workspace: separate entry
	other := member{UserID: 1, WorkspaceID: 11}
	p3, _ := cached.Resolve(context.Background(), other)
	if p3 != nil {
		t.Errorf("expected nil profile for other workspace, got %v", p3)
	}
}

func TestCachedResolver_Invalidate(t *testing.T) {
	inner := gate.NewStaticResolver[member]()
	alice := member{UserID: 1, WorkspaceID: 10}
	bob := member{UserID: 2, WorkspaceID: 10}
	inner.Set(alice, gate.NewStaticProfile("member"))
	inner.Set(bob, gate.NewStaticProfile("member"))

	cached := gate.NewCachedResolver[member](inner, 5*time.Minute)
	_, _ = cached.Resolve(context.Background(), alice)
	_, _ = cached.Resolve(context.Background(), bob)

	inner.Set(alice, gate.NewStaticProfile("admin"))
	inner.Set(bob, gate.NewStaticProfile("admin"))

	cached.Invalidate(alice)
	if p, _ := cached.Resolve(context.Background(), alice); p.Name() != "admin" {
		t.Errorf("expected 'admin' after invalidation, got '%s'", p.Name())
	}
	if p, _ := cached.Resolve(context.Background(), bob); p.Name() != "member" {
		t.Errorf("bob should still be cached, got '%s'", p.Name())
	}

	cached.InvalidateAll()
	if p, _ := cached.Resolve(context.Background(), bob); p.Name() != "admin" {
		t.Errorf("expected 'admin' after InvalidateAll, got '%s'", p.Name())
	}
}

func TestCachedResolver_TTLExpiry(t *testing.T) {
	inner := gate.NewStaticResolver[member]()
	alice := member{UserID: 1, WorkspaceID: 10}
	inner.Set(alice, gate.NewStaticProfile("member"))

	cached := gate.NewCachedResolver[member](inner, 10*time.Millisecond)
	_, _ = cached.Resolve(context.Background(), alice)

	inner.Set(alice, gate.NewStaticProfile("admin"))
	time.Sleep(20 * time.Millisecond)

	if p, _ := cached.Resolve(context.Background(), alice); p.Name() != "admin" {
		t.Errorf("expected 'admin' after TTL expiry, got '%s'", p.Name())
	}
}
