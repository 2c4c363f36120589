package database

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// startPostgres spins up a throwaway postgres with the project schema applied.
// Requires a local Docker daemon; skipped in short mode.
func startPostgres(t *testing.T) Service {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping container-backed test in short mode")
	}

	ctx := context.Background()
	container, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithInitScripts("schema.sql"),
		postgres.WithDatabase("yaothink_test"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	if err != nil {
		t.Fatalf("Failed to start postgres container: %v", err)
	}
	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(container); err != nil {
			t.Logf("Failed to terminate container: %v", err)
		}
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("Failed to get connection string: %v", err)
	}

	db, err := New(ctx, dsn)
	if err != nil {
		t.Fatalf("Failed to connect: %v", err)
	}
	t.Cleanup(db.Close)
	return db
}

func TestUserRepository_Integration(t *testing.T) {
	db := startPostgres(t)
	users := NewUserRepository(db)
	ctx := context.Background()

	phone := "13800138000"
	hash := "bcrypt-hash"
	nickname := "小明"

	created, err := users.CreateWithPhone(ctx, phone, &hash, &nickname)
	if err != nil {
		t.Fatalf("CreateWithPhone failed: %v", err)
	}
	if created.Phone == nil || *created.Phone != phone {
		t.Errorf("Expected phone %s, got %v", phone, created.Phone)
	}

	loaded, err := users.GetByPhone(ctx, phone)
	if err != nil {
		t.Fatalf("GetByPhone failed: %v", err)
	}
	if loaded.ID != created.ID {
		t.Errorf("Expected ID %s, got %s", created.ID, loaded.ID)
	}
	if loaded.Nickname == nil || *loaded.Nickname != nickname {
		t.Errorf("Expected nickname %s, got %v", nickname, loaded.Nickname)
	}

	// Duplicate phone maps to ErrDuplicate.
	if _, err := users.CreateWithPhone(ctx, phone, nil, nil); !errors.Is(err, ErrDuplicate) {
		t.Errorf("Expected ErrDuplicate, got %v", err)
	}

	// Merge-patch: nil fields stay untouched.
	newNickname := "新昵称"
	updated, err := users.UpdateProfile(ctx, created.ID, ProfilePatch{Nickname: &newNickname})
	if err != nil {
		t.Fatalf("UpdateProfile failed: %v", err)
	}
	if updated.Nickname == nil || *updated.Nickname != newNickname {
		t.Errorf("Expected nickname %s, got %v", newNickname, updated.Nickname)
	}
	if updated.Phone == nil || *updated.Phone != phone {
		t.Errorf("Expected phone untouched, got %v", updated.Phone)
	}

	if _, err := users.GetByID(ctx, uuid.New()); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("Expected ErrUserNotFound, got %v", err)
	}
}

func TestRecordRepository_Integration(t *testing.T) {
	db := startPostgres(t)
	users := NewUserRepository(db)
	records := NewRecordRepository(db)
	ctx := context.Background()

	owner, err := users.CreateWithPhone(ctx, "13900139000", nil, nil)
	if err != nil {
		t.Fatalf("CreateWithPhone failed: %v", err)
	}
	other, err := users.CreateWithPhone(ctx, "13700137000", nil, nil)
	if err != nil {
		t.Fatalf("CreateWithPhone failed: %v", err)
	}

	payload := json.RawMessage(`{"wuxing":{"scores":{"wood":2}}}`)
	first, err := records.Insert(ctx, owner.ID, "bazi", "第一条", payload)
	if err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	time.Sleep(10 * time.Millisecond) // distinct created_at for the ordering check
	if _, err := records.Insert(ctx, owner.ID, "bazi", "第二条", payload); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if _, err := records.Insert(ctx, owner.ID, "ziwei", "紫微", payload); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	list, err := records.ListByUser(ctx, owner.ID, "bazi", 0)
	if err != nil {
		t.Fatalf("ListByUser failed: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("Expected 2 bazi records, got %d", len(list))
	}
	// Newest first.
	if list[0].Title != "第二条" {
		t.Errorf("Expected newest record first, got %s", list[0].Title)
	}

	counts, err := records.CountByUser(ctx, owner.ID)
	if err != nil {
		t.Fatalf("CountByUser failed: %v", err)
	}
	if counts["bazi"] != 2 || counts["ziwei"] != 1 {
		t.Errorf("Expected counts bazi=2 ziwei=1, got %v", counts)
	}

	// Deletes are owner-scoped.
	if err := records.Delete(ctx, other.ID, first.ID); !errors.Is(err, ErrRecordNotFound) {
		t.Errorf("Expected ErrRecordNotFound for foreign delete, got %v", err)
	}
	if err := records.Delete(ctx, owner.ID, first.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if err := records.Delete(ctx, owner.ID, first.ID); !errors.Is(err, ErrRecordNotFound) {
		t.Errorf("Expected ErrRecordNotFound on second delete, got %v", err)
	}
}
