package users

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lexify-app/lexify-server/internal/common"
	"github.com/lexify-app/lexify-server/internal/server/models"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewPostgresRepository(db), mock, db
}

func userRows(id, email string, role models.Role, status models.UserStatus) *sqlmock.Rows {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	return sqlmock.NewRows([]string{"id", "email", "name", "password_hash", "role", "status", "created_at", "updated_at"}).
		AddRow(id, email, "Alice", "", string(role), string(status), now, now)
}

func TestGetOrCreateByEmail_CreatesNew(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`INSERT INTO users .* ON CONFLICT \(email\) DO NOTHING`).
		WithArgs(sqlmock.AnyArg(), "alice@example.com", "Alice").
		WillReturnRows(userRows("u1", "alice@example.com", models.RoleUser, models.StatusActive))

	u, created, err := repo.GetOrCreateByEmail(context.Background(), "alice@example.com", "Alice")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !created {
		t.Fatalf("expected created=true for a fresh row")
	}
	if u.ID != "u1" || u.Role != models.RoleUser {
		t.Fatalf("unexpected user: %+v", u)
	}
}

func TestGetOrCreateByEmail_ExistingRow(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`INSERT INTO users .* ON CONFLICT \(email\) DO NOTHING`).
		WithArgs(sqlmock.AnyArg(), "alice@example.com", "Alice").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery(`SELECT .* FROM users WHERE email = \$1`).
		WithArgs("alice@example.com").
		WillReturnRows(userRows("u1", "alice@example.com", models.RoleUser, models.StatusActive))

	u, created, err := repo.GetOrCreateByEmail(context.Background(), "alice@example.com", "Alice")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if created {
		t.Fatalf("expected created=false for an existing row")
	}
	if u.ID != "u1" {
		t.Fatalf("unexpected user: %+v", u)
	}
}

func TestGetByID_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT .* FROM users WHERE id = \$1`).
		WithArgs("nope").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByID(context.Background(), "nope")
	if !errors.Is(err, common.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestSetStatus_ReturnsUpdatedRow(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`UPDATE users SET status = \$2, updated_at = now\(\)`).
		WithArgs("u1", string(models.StatusSuspended)).
		WillReturnRows(userRows("u1", "alice@example.com", models.RoleUser, models.StatusSuspended))

	u, err := repo.SetStatus(context.Background(), "u1", models.StatusSuspended)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if u.Status != models.StatusSuspended {
		t.Fatalf("expected SUSPENDED, got %s", u.Status)
	}
}

func TestSetAdminPassword_NoSuchUser(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`UPDATE users SET password_hash = \$2, role = \$3`).
		WithArgs("ghost@example.com", "hash", string(models.RoleAdmin)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.SetAdminPassword(context.Background(), "ghost@example.com", "hash")
	if !errors.Is(err, common.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestList_IncludesSenseCounts(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"id", "email", "name", "role", "status", "created_at", "updated_at", "sense_count"}).
		AddRow("u2", "bob@example.com", "Bob", "USER", "ACTIVE", now, now, int64(0)).
		AddRow("u1", "alice@example.com", "Alice", "ADMIN", "ACTIVE", now, now, int64(42))

	mock.ExpectQuery(`SELECT u\.id, .* FROM users u\s+LEFT JOIN senses s`).
		WillReturnRows(rows)

	list, err := repo.List(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(list) != 2 || list[1].SenseCount != 42 {
		t.Fatalf("unexpected list: %+v", list)
	}
}
