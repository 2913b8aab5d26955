package lifecycle

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/jkaninda/kituo/internal/domain"
	pgstore "github.com/jkaninda/kituo/internal/storage/postgres"
	sqlitestore "github.com/jkaninda/kituo/internal/storage/sqlite"
)

// newTestEngine opens a fresh SQLite store in a temp dir and migrates it.
func newTestEngine(t *testing.T) (*Engine, *pgstore.Store) {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store, err := sqlitestore.Open(sqlitestore.Config{
		Path: filepath.Join(t.TempDir(), "test.db"),
	}, logger)
	if err != nil {
		t.Fatalf("opening sqlite store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	if err := store.Migrate(context.Background()); err != nil {
		t.Fatalf("migrating: %v", err)
	}
	return New(store, logger), store
}

func seedClient(t *testing.T, store *pgstore.Store, id int64, name, phone string) {
	t.Helper()
	err := store.GormDB().Create(&pgstore.ClientModel{
		ID: id, FullName: name, Phone: phone,
	}).Error
	if err != nil {
		t.Fatalf("seeding client %d: %v", id, err)
	}
}

func seedRequest(t *testing.T, store *pgstore.Store, id, clientID int64, reqType string, priority domain.Priority, status domain.Status, createdAt time.Time) {
	t.Helper()
	err := store.GormDB().Create(&pgstore.RequestModel{
		ID:          id,
		ClientID:    clientID,
		RequestType: reqType,
		Priority:    string(priority),
		Status:      string(status),
		CreatedAt:   createdAt,
		UpdatedAt:   createdAt,
	}).Error
	if err != nil {
		t.Fatalf("seeding request %d: %v", id, err)
	}
}

func TestListActiveOrdering(t *testing.T) {
	engine, store := newTestEngine(t)
	ctx := context.Background()

	seedClient(t, store, 1, "Ivan P", "+1000")
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	// Mixed priorities and ages; one completed request that must not appear.
	seedRequest(t, store, 1, 1, "block_card", domain.PriorityLow, domain.StatusPending, base)
	seedRequest(t, store, 2, 1, "block_app", domain.PriorityHigh, domain.StatusPending, base.Add(1*time.Hour))
	seedRequest(t, store, 3, 1, "reissue_card", domain.PriorityHigh, domain.StatusProcessing, base.Add(2*time.Hour))
	seedRequest(t, store, 4, 1, "block_card", domain.PriorityMedium, domain.StatusPending, base.Add(3*time.Hour))
	seedRequest(t, store, 5, 1, "block_card", domain.PriorityHigh, domain.StatusCompleted, base.Add(4*time.Hour))

	got, err := engine.ListActive(ctx, 0)
	if err != nil {
		t.Fatalf("ListActive: %v", err)
	}

	// High before medium before low; newest first within equal priority.
	wantIDs := []int64{3, 2, 4, 1}
	if len(got) != len(wantIDs) {
		t.Fatalf("got %d rows, want %d", len(got), len(wantIDs))
	}
	for i, want := range wantIDs {
		if got[i].ID != want {
			t.Errorf("row %d: ID = %d, want %d", i, got[i].ID, want)
		}
	}
	if got[0].ClientName != "Ivan P" || got[0].ClientPhone != "+1000" {
		t.Errorf("row 0 client join = %q/%q, want Ivan P/+1000", got[0].ClientName, got[0].ClientPhone)
	}
}

func TestListActiveLimit(t *testing.T) {
	engine, store := newTestEngine(t)
	ctx := context.Background()

	seedClient(t, store, 1, "Ivan P", "+1000")
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	for i := int64(1); i <= 15; i++ {
		seedRequest(t, store, i, 1, "block_card", domain.PriorityLow, domain.StatusPending, base.Add(time.Duration(i)*time.Minute))
	}

	got, err := engine.ListActive(ctx, 0)
	if err != nil {
		t.Fatalf("ListActive: %v", err)
	}
	if len(got) != DefaultListLimit {
		t.Errorf("got %d rows, want default limit %d", len(got), DefaultListLimit)
	}
}

func TestCompleteWritesAudit(t *testing.T) {
	engine, store := newTestEngine(t)
	ctx := context.Background()

	seedClient(t, store, 1, "Ivan P", "+1000")
	seedRequest(t, store, 1, 1, "block_card", domain.PriorityHigh, domain.StatusPending, time.Now().UTC())

	if err := engine.Complete(ctx, 1, 55); err != nil {
		t.Fatalf("Complete: %v", err)
	}

	detail, err := engine.Detail(ctx, 1)
	if err != nil {
		t.Fatalf("Detail: %v", err)
	}
	if detail.Request.Status != domain.StatusCompleted {
		t.Errorf("status = %q, want completed", detail.Request.Status)
	}

	entries, err := store.ListAuditLog(ctx, 10)
	if err != nil {
		t.Fatalf("ListAuditLog: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("audit entries = %d, want 1", len(entries))
	}
	e := entries[0]
	if e.Action != "block_card" || e.AdminExternalID != 55 || e.RequestID != 1 || e.ClientID != 1 {
		t.Errorf("audit entry = %+v", e)
	}
}

func TestCompleteIdempotency(t *testing.T) {
	engine, store := newTestEngine(t)
	ctx := context.Background()

	seedClient(t, store, 1, "Ivan P", "+1000")
	seedRequest(t, store, 1, 1, "block_card", domain.PriorityHigh, domain.StatusProcessing, time.Now().UTC())

	if err := engine.Complete(ctx, 1, 55); err != nil {
		t.Fatalf("first Complete: %v", err)
	}
	if err := engine.Complete(ctx, 1, 55); !errors.Is(err, domain.ErrAlreadyCompleted) {
		t.Fatalf("second Complete = %v, want ErrAlreadyCompleted", err)
	}

	entries, err := store.ListAuditLog(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("audit entries = %d, want exactly 1 despite retry", len(entries))
	}
}

func TestCompleteConcurrent(t *testing.T) {
	engine, store := newTestEngine(t)
	ctx := context.Background()

	seedClient(t, store, 1, "Ivan P", "+1000")
	seedRequest(t, store, 1, 1, "block_card", domain.PriorityHigh, domain.StatusPending, time.Now().UTC())

	const workers = 8
	results := make([]error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = engine.Complete(ctx, 1, int64(100+i))
		}(i)
	}
	wg.Wait()

	var ok, already int
	for _, err := range results {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, domain.ErrAlreadyCompleted):
			already++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	if ok != 1 {
		t.Errorf("winners = %d, want exactly 1", ok)
	}
	if already != workers-1 {
		t.Errorf("already-completed = %d, want %d", already, workers-1)
	}

	entries, err := store.ListAuditLog(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("audit entries = %d, want exactly 1 under concurrency", len(entries))
	}
}

func TestCompleteNotFound(t *testing.T) {
	engine, _ := newTestEngine(t)

	if err := engine.Complete(context.Background(), 999, 55); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("Complete(999) = %v, want ErrNotFound", err)
	}
}

func TestDetailNotFound(t *testing.T) {
	engine, _ := newTestEngine(t)

	if _, err := engine.Detail(context.Background(), 999); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("Detail(999) = %v, want ErrNotFound", err)
	}
}

func TestStats(t *testing.T) {
	engine, store := newTestEngine(t)
	ctx := context.Background()

	t.Run("empty table", func(t *testing.T) {
		stats, err := engine.Stats(ctx)
		if err != nil {
			t.Fatalf("Stats: %v", err)
		}
		if stats.Total != 0 || len(stats.TopTypes) != 0 {
			t.Errorf("empty stats = %+v", stats)
		}
	})

	seedClient(t, store, 1, "Ivan P", "+1000")
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	seedRequest(t, store, 1, 1, "block_card", domain.PriorityHigh, domain.StatusPending, base)
	seedRequest(t, store, 2, 1, "block_card", domain.PriorityHigh, domain.StatusCompleted, base)
	seedRequest(t, store, 3, 1, "block_app", domain.PriorityLow, domain.StatusProcessing, base)
	seedRequest(t, store, 4, 1, "reissue_card", domain.PriorityLow, domain.StatusPending, base)
	seedRequest(t, store, 5, 1, "reissue_card", domain.PriorityLow, domain.StatusPending, base)

	t.Run("counts and top types", func(t *testing.T) {
		stats, err := engine.Stats(ctx)
		if err != nil {
			t.Fatalf("Stats: %v", err)
		}
		if stats.Total != 5 || stats.Pending != 3 || stats.Processing != 1 || stats.Completed != 1 {
			t.Errorf("counts = %+v", stats)
		}

		want := []domain.TypeCount{
			{Type: "block_card", Count: 2},
			{Type: "reissue_card", Count: 2},
			{Type: "block_app", Count: 1},
		}
		if len(stats.TopTypes) != len(want) {
			t.Fatalf("top types = %+v, want %+v", stats.TopTypes, want)
		}
		for i, w := range want {
			if stats.TopTypes[i] != w {
				t.Errorf("top type %d = %+v, want %+v", i, stats.TopTypes[i], w)
			}
		}
	})
}

func TestUpsertAdminPreservesFullName(t *testing.T) {
	_, store := newTestEngine(t)
	ctx := context.Background()

	if err := store.UpsertAdmin(ctx, 55, "anna_old", "Anna K"); err != nil {
		t.Fatalf("first upsert: %v", err)
	}
	// Second contact with a renamed account: username updates, full name stays.
	if err := store.UpsertAdmin(ctx, 55, "anna_new", "Renamed A"); err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	var m pgstore.AdminModel
	if err := store.GormDB().First(&m, "external_id = ?", 55).Error; err != nil {
		t.Fatalf("loading admin: %v", err)
	}
	if m.Username != "anna_new" {
		t.Errorf("username = %q, want anna_new", m.Username)
	}
	if m.FullName != "Anna K" {
		t.Errorf("full name = %q, want Anna K (preserved)", m.FullName)
	}
}
