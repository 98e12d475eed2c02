package session

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/Contextualist/submit-patch/internal/domain"
	"github.com/Contextualist/submit-patch/internal/pkg/logger"
)

func testStore(t *testing.T) Store {
	t.Helper()
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("set TEST_REDIS_ADDR to run session store tests")
	}
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	store, err := NewRedisStore(log, addr, time.Minute)
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	return store
}

func TestRedisStore_RoundTrip(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	sid, err := store.Create(ctx, domain.User{UserID: 5, GroupID: 11})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	user, err := store.Get(ctx, sid)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if user == nil || user.UserID != 5 || user.GroupID != 11 {
		t.Fatalf("unexpected user: %+v", user)
	}

	if err := store.Delete(ctx, sid); err != nil {
		t.Fatalf("delete: %v", err)
	}
	user, err = store.Get(ctx, sid)
	if err != nil {
		t.Fatalf("get after delete: %v", err)
	}
	if user != nil {
		t.Fatalf("deleted session must read as absent")
	}
}

func TestRedisStore_UnknownSessionIsAbsent(t *testing.T) {
	store := testStore(t)

	user, err := store.Get(context.Background(), "no-such-session")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if user != nil {
		t.Fatalf("unknown sid must yield nil, got %+v", user)
	}
}
