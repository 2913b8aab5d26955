//go:build integration

package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/jkaninda/kituo/internal/domain"
)

// testStore opens the store against TEST_POSTGRES_DSN and wipes the tables.
func testStore(t *testing.T) *Store {
	t.Helper()
	dsn := os.Getenv("TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("TEST_POSTGRES_DSN not set, skipping integration test")
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	store, err := Open(Config{DSN: dsn}, logger)
	if err != nil {
		t.Fatalf("opening postgres: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	if err := store.Migrate(context.Background()); err != nil {
		t.Fatalf("migrating: %v", err)
	}
	for _, table := range []string{"audit_logs", "requests", "clients", "admins"} {
		if err := store.db.Exec(fmt.Sprintf("TRUNCATE TABLE %s CASCADE", table)).Error; err != nil {
			t.Fatalf("truncating %s: %v", table, err)
		}
	}
	return store
}

func seed(t *testing.T, store *Store, clientID, requestID int64, status domain.Status) {
	t.Helper()
	now := time.Now().UTC()
	if err := store.db.Create(&ClientModel{ID: clientID, FullName: "Ivan P", Phone: "+1000"}).Error; err != nil {
		t.Fatal(err)
	}
	err := store.db.Create(&RequestModel{
		ID: requestID, ClientID: clientID, RequestType: "block_card",
		Priority: "high", Status: string(status), CreatedAt: now, UpdatedAt: now,
	}).Error
	if err != nil {
		t.Fatal(err)
	}
}

func TestCompleteRequestConcurrent(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()
	seed(t, store, 1, 1, domain.StatusPending)

	const workers = 16
	results := make([]error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = store.CompleteRequest(ctx, 1, int64(100+i))
		}(i)
	}
	wg.Wait()

	var ok int
	for _, err := range results {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, domain.ErrAlreadyCompleted):
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	if ok != 1 {
		t.Errorf("winners = %d, want exactly 1", ok)
	}

	entries, err := store.ListAuditLog(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("audit entries = %d, want exactly 1", len(entries))
	}
}

func TestCompleteRequestOutcomes(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()
	seed(t, store, 1, 1, domain.StatusProcessing)

	if err := store.CompleteRequest(ctx, 1, 55); err != nil {
		t.Fatalf("first completion: %v", err)
	}
	if err := store.CompleteRequest(ctx, 1, 55); !errors.Is(err, domain.ErrAlreadyCompleted) {
		t.Errorf("repeat completion = %v, want ErrAlreadyCompleted", err)
	}
	if err := store.CompleteRequest(ctx, 999, 55); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("missing request = %v, want ErrNotFound", err)
	}
}

func TestUpsertAdminConflict(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	if err := store.UpsertAdmin(ctx, 55, "old_name", "Anna K"); err != nil {
		t.Fatal(err)
	}
	if err := store.UpsertAdmin(ctx, 55, "new_name", "Other Name"); err != nil {
		t.Fatal(err)
	}

	var m AdminModel
	if err := store.db.First(&m, "external_id = ?", 55).Error; err != nil {
		t.Fatal(err)
	}
	if m.Username != "new_name" || m.FullName != "Anna K" {
		t.Errorf("admin = %+v, want username updated and full name preserved", m)
	}
}
