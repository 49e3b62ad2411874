package storage

import (
	"context"
	"database/sql"
	"os"
	"testing"
	"time"

	_ "github.com/go-sql-driver/mysql"

	"github.com/rl1809/storefront/internal/port"
)

func getMySQLDB(t *testing.T) *sql.DB {
	dsn := os.Getenv("MYSQL_DSN")
	if dsn == "" {
		dsn = "root:root@tcp(localhost:3306)/storefront?parseTime=true"
	}

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		t.Skipf("MySQL not available: %v", err)
	}

	if err := db.Ping(); err != nil {
		t.Skipf("MySQL not available: %v", err)
	}

	return db
}

func TestMySQLSetGet(t *testing.T) {
	db := getMySQLDB(t)
	defer db.Close()

	ctx := context.Background()
	adapter := NewMySQLAdapter(db)
	if err := adapter.Migrate(ctx); err != nil {
		t.Fatalf("migrate failed: %v", err)
	}

	key := "test-slot-" + time.Now().Format("20060102150405")
	defer adapter.Delete(ctx, key)

	if err := adapter.Set(ctx, key, []byte(`[{"id":1}]`)); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	got, err := adapter.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(got) != `[{"id":1}]` {
		t.Errorf("unexpected payload %s", got)
	}
}

func TestMySQLSet_VersionIncrements(t *testing.T) {
	db := getMySQLDB(t)
	defer db.Close()

	ctx := context.Background()
	adapter := NewMySQLAdapter(db)
	if err := adapter.Migrate(ctx); err != nil {
		t.Fatalf("migrate failed: %v", err)
	}

	key := "version-slot-" + time.Now().Format("20060102150405")
	defer adapter.Delete(ctx, key)

	for i := 0; i < 3; i++ {
		if err := adapter.Set(ctx, key, []byte(`[]`)); err != nil {
			t.Fatalf("Set failed: %v", err)
		}
	}

	version, err := adapter.Version(ctx, key)
	if err != nil {
		t.Fatalf("Version failed: %v", err)
	}
	if version != 3 {
		t.Errorf("expected version 3, got %d", version)
	}
}

func TestMySQLGet_NotFound(t *testing.T) {
	db := getMySQLDB(t)
	defer db.Close()

	ctx := context.Background()
	adapter := NewMySQLAdapter(db)
	if err := adapter.Migrate(ctx); err != nil {
		t.Fatalf("migrate failed: %v", err)
	}

	_, err := adapter.Get(ctx, "nonexistent-slot")
	if err != port.ErrSlotEmpty {
		t.Errorf("expected ErrSlotEmpty, got: %v", err)
	}
}
