package repository

import (
	"context"
	"database/sql"
	"os"
	"sync"
	"testing"
	"time"

	"gymbot/internal/models"
)

// Тесты против настоящего Postgres. TEST_DATABASE_DSN должен указывать на
// отдельную базу: перед каждым тестом из неё удаляются пользователи,
// записи и приватный каталог. TEST_DATABASE_DRIVER: postgres (по умолчанию) или pgx.

var migrateOnce struct {
	sync.Once
	err error
}

func testRepository(t *testing.T) (*Repository, *sql.DB) {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_DSN")
	if dsn == "" {
		t.Skip("TEST_DATABASE_DSN is not set")
	}
	driver := os.Getenv("TEST_DATABASE_DRIVER")
	if driver == "" {
		driver = "postgres"
	}

	migrateOnce.Do(func() {
		migrateOnce.err = RunMigrations(dsn, "../../migrations")
	})
	if migrateOnce.err != nil {
		t.Fatalf("migrations: %v", migrateOnce.err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	db, err := Open(ctx, driver, dsn)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		resetDatabase(t, db)
		db.Close()
	})
	resetDatabase(t, db)
	return New(db), db
}

// resetDatabase оставляет только глобальный каталог из миграций
func resetDatabase(t *testing.T, db *sql.DB) {
	t.Helper()
	for _, q := range []string{
		`DELETE FROM training`,
		`DELETE FROM user_hidden_exercises`,
		`DELETE FROM user_hidden_muscles`,
		`DELETE FROM exercises WHERE NOT is_global`,
		`DELETE FROM muscles WHERE NOT is_global`,
		`DELETE FROM users`,
	} {
		if _, err := db.Exec(q); err != nil {
			t.Fatalf("%s: %v", q, err)
		}
	}
}

func registerUsers(t *testing.T, repo *Repository, ids ...int64) {
	t.Helper()
	for _, id := range ids {
		u := models.User{ID: id, FirstName: "Test"}
		if err := repo.User.Touch(context.Background(), u, time.Now()); err != nil {
			t.Fatal(err)
		}
	}
}
