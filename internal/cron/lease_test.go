package cron

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
)

func testLease(t *testing.T) (*RedisLease, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	lease, err := NewRedisLease("redis://" + mr.Addr())
	if err != nil {
		t.Fatalf("new lease: %v", err)
	}
	t.Cleanup(func() { _ = lease.Close() })
	return lease, mr
}

func TestLeaseGrantsExclusiveOwnership(t *testing.T) {
	lease, _ := testLease(t)
	ctx := context.Background()
	leadID := uuid.New()

	acquired, err := lease.Acquire(ctx, leadID, time.Minute)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if !acquired {
		t.Fatal("first acquire must succeed")
	}

	again, err := lease.Acquire(ctx, leadID, time.Minute)
	if err != nil {
		t.Fatalf("second acquire: %v", err)
	}
	if again {
		t.Fatal("held lease must not be granted twice")
	}

	other, err := lease.Acquire(ctx, uuid.New(), time.Minute)
	if err != nil {
		t.Fatalf("other acquire: %v", err)
	}
	if !other {
		t.Fatal("lease on a different lead must be independent")
	}
}

func TestLeaseReleaseFreesTheLead(t *testing.T) {
	lease, _ := testLease(t)
	ctx := context.Background()
	leadID := uuid.New()

	if _, err := lease.Acquire(ctx, leadID, time.Minute); err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if err := lease.Release(ctx, leadID); err != nil {
		t.Fatalf("release: %v", err)
	}

	acquired, err := lease.Acquire(ctx, leadID, time.Minute)
	if err != nil {
		t.Fatalf("reacquire: %v", err)
	}
	if !acquired {
		t.Fatal("released lease must be acquirable again")
	}
}

func TestLeaseExpiresWithTTL(t *testing.T) {
	lease, mr := testLease(t)
	ctx := context.Background()
	leadID := uuid.New()

	if _, err := lease.Acquire(ctx, leadID, time.Second); err != nil {
		t.Fatalf("acquire: %v", err)
	}

	mr.FastForward(2 * time.Second)

	acquired, err := lease.Acquire(ctx, leadID, time.Second)
	if err != nil {
		t.Fatalf("reacquire: %v", err)
	}
	if !acquired {
		t.Fatal("expired lease must be acquirable by the next worker")
	}
}

func TestNilLeaseAlwaysGrants(t *testing.T) {
	var lease *RedisLease

	acquired, err := lease.Acquire(context.Background(), uuid.New(), time.Minute)
	if err != nil {
		t.Fatalf("nil lease acquire: %v", err)
	}
	if !acquired {
		t.Fatal("nil lease must behave as always acquired")
	}
	if err := lease.Release(context.Background(), uuid.New()); err != nil {
		t.Fatalf("nil lease release: %v", err)
	}
}
