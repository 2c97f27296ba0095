//go:build integration

package predictions

import (
	"context"
	"database/sql"
	"os"
	"testing"
	"time"

	_ "github.com/lib/pq"

	"github.com/rohanai/guardian/internal/users"
)

func setupTestDB(t *testing.T) (*PostgresStore, *users.PostgresStore, func()) {
	t.Helper()

	dbURL := os.Getenv("POSTGRES_URL")
	if dbURL == "" {
		t.Skip("POSTGRES_URL not set, skipping integration test")
	}

	db, err := sql.Open("postgres", dbURL)
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}

	if err := db.Ping(); err != nil {
		t.Fatalf("Failed to connect to database: %v", err)
	}

	ctx := context.Background()

	userStore := users.NewPostgresStore(db)
	if err := userStore.Migrate(ctx); err != nil {
		t.Fatalf("Failed to migrate users: %v", err)
	}

	store := NewPostgresStore(db)
	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("Failed to migrate transactions: %v", err)
	}

	cleanup := func() {
		db.ExecContext(ctx, "DELETE FROM transactions")
		db.ExecContext(ctx, "DELETE FROM users")
		db.Close()
	}

	return store, userStore, cleanup
}

func createTestUser(t *testing.T, store *users.PostgresStore, name string) *users.User {
	t.Helper()
	u := &users.User{Username: name, Email: name + "@example.com", HashedPassword: "hash"}
	if err := store.Create(context.Background(), u); err != nil {
		t.Fatalf("Failed to create user: %v", err)
	}
	return u
}

func TestPostgres_CreateAndList(t *testing.T) {
	store, userStore, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	owner := createTestUser(t, userStore, "pg_alice")

	rec := &TransactionRecord{
		Features: Features{
			RatioToMedianPurchasePrice: 15.0,
			OnlineOrder:                true,
		},
		IsFraud:         true,
		ConfidenceScore: 0.98,
		Reasons:         []string{"Price Ratio", "Online Transaction Channel"},
		CreatedAt:       time.Now().UTC(),
		OwnerID:         owner.ID,
	}
	if err := store.Create(ctx, rec); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if rec.ID == 0 {
		t.Fatal("Create did not assign an ID")
	}

	records, err := store.ListByOwner(ctx, owner.ID)
	if err != nil {
		t.Fatalf("ListByOwner failed: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}

	got := records[0]
	if !got.IsFraud || got.ConfidenceScore != 0.98 {
		t.Errorf("verdict mismatch: %+v", got)
	}
	if len(got.Reasons) != 2 || got.Reasons[0] != "Price Ratio" {
		t.Errorf("reasons mismatch: %v", got.Reasons)
	}
}

func TestPostgres_OwnerIsolation(t *testing.T) {
	store, userStore, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	alice := createTestUser(t, userStore, "pg_iso_alice")
	bob := createTestUser(t, userStore, "pg_iso_bob")

	for i, ownerID := range []int64{alice.ID, alice.ID, bob.ID} {
		rec := &TransactionRecord{
			Features:  Features{DistanceFromHome: float64(i)},
			CreatedAt: time.Now().UTC(),
			OwnerID:   ownerID,
		}
		if err := store.Create(ctx, rec); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
	}

	records, err := store.ListByOwner(ctx, bob.ID)
	if err != nil {
		t.Fatalf("ListByOwner failed: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record for bob, got %d", len(records))
	}
}

func TestPostgres_NewestFirst(t *testing.T) {
	store, userStore, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	owner := createTestUser(t, userStore, "pg_order")

	base := time.Now().UTC().Add(-time.Hour)
	for i := 0; i < 3; i++ {
		rec := &TransactionRecord{
			Features:  Features{DistanceFromHome: float64(i)},
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
			OwnerID:   owner.ID,
		}
		if err := store.Create(ctx, rec); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
	}

	records, err := store.ListByOwner(ctx, owner.ID)
	if err != nil {
		t.Fatalf("ListByOwner failed: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(records))
	}
	if records[0].DistanceFromHome != 2.0 {
		t.Errorf("expected newest record first, got %+v", records[0])
	}
}
