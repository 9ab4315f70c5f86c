package repository

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"auber_controller/internal/models"
	"auber_controller/internal/repository/db"

	"github.com/DATA-DOG/go-sqlmock"
)

func newMockUserRepo(t *testing.T) (*UserRepository, sqlmock.Sqlmock) {
	t.Helper()

	conn, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	t.Cleanup(func() {
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unmet sqlmock expectations: %v", err)
		}
		_ = conn.Close()
	})
	repo := NewUserRepository(conn)
	repo.now = func() time.Time { return time.Date(2025, 9, 1, 10, 0, 0, 0, time.UTC) }
	return repo, mock
}

func TestUserRepository_Create(t *testing.T) {
	tests := []struct {
		name       string
		user       models.User
		mockExpect func(sqlmock.Sqlmock)
		wantID     int
		wantErr    error
	}{
		{
			name: "trims the username and stamps created_at",
			user: models.User{Username: "  operator ", PasswordHash: "h123", Role: models.RoleOperator},
			mockExpect: func(m sqlmock.Sqlmock) {
				m.ExpectExec(regexp.QuoteMeta(insertUserSQL)).
					WithArgs("operator", "h123", models.RoleOperator, "2025-09-01 10:00:00").
					WillReturnResult(sqlmock.NewResult(42, 1))
			},
			wantID: 42,
		},
		{
			name: "duplicate username",
			user: models.User{Username: "bob", PasswordHash: "h456", Role: models.RoleViewer},
			mockExpect: func(m sqlmock.Sqlmock) {
				m.ExpectExec(regexp.QuoteMeta(insertUserSQL)).
					WithArgs("bob", "h456", models.RoleViewer, "2025-09-01 10:00:00").
					WillReturnError(errors.New("constraint failed: UNIQUE constraint failed: users.username (2067)"))
			},
			wantErr: ErrUsernameTaken,
		},
		{
			name: "last insert id error",
			user: models.User{Username: "carol", PasswordHash: "h789", Role: models.RoleViewer},
			mockExpect: func(m sqlmock.Sqlmock) {
				m.ExpectExec(regexp.QuoteMeta(insertUserSQL)).
					WithArgs("carol", "h789", models.RoleViewer, "2025-09-01 10:00:00").
					WillReturnResult(sqlmock.NewErrorResult(errors.New("no last id")))
			},
			wantErr: errAny,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock := newMockUserRepo(t)
			tt.mockExpect(mock)

			id, err := repo.Create(context.Background(), tt.user)
			if tt.wantErr != nil {
				if err == nil || (tt.wantErr != errAny && !errors.Is(err, tt.wantErr)) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				if id != 0 {
					t.Fatalf("expected id=0 on error, got %d", id)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if id != tt.wantID {
				t.Fatalf("unexpected id: want %d, got %d", tt.wantID, id)
			}
		})
	}
}

// errAny marks a case where any error will do.
var errAny = errors.New("any error")

func TestUserRepository_GetByUsername(t *testing.T) {
	columns := []string{"id", "username", "password_hash", "role", "created_at"}

	t.Run("found", func(t *testing.T) {
		repo, mock := newMockUserRepo(t)
		mock.ExpectQuery(regexp.QuoteMeta(selectUserByUsernameSQL)).
			WithArgs("operator").
			WillReturnRows(sqlmock.NewRows(columns).AddRow(7, "operator", "h123", "operator", time.Date(2025, 8, 30, 12, 0, 0, 0, time.UTC)))

		u, err := repo.GetByUsername(context.Background(), " operator")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if u == nil || u.ID != 7 || u.Username != "operator" || u.PasswordHash != "h123" || u.Role != models.RoleOperator {
			t.Fatalf("unexpected user: %+v", u)
		}
		if !u.CreatedAt.Equal(time.Date(2025, 8, 30, 12, 0, 0, 0, time.UTC)) {
			t.Fatalf("created_at = %v", u.CreatedAt)
		}
	})

	t.Run("not found", func(t *testing.T) {
		repo, mock := newMockUserRepo(t)
		mock.ExpectQuery(regexp.QuoteMeta(selectUserByUsernameSQL)).
			WithArgs("missing").
			WillReturnError(sql.ErrNoRows)

		u, err := repo.GetByUsername(context.Background(), "missing")
		if err != nil || u != nil {
			t.Fatalf("expected (nil, nil), got (%+v, %v)", u, err)
		}
	})

	t.Run("query error", func(t *testing.T) {
		repo, mock := newMockUserRepo(t)
		mock.ExpectQuery(regexp.QuoteMeta(selectUserByUsernameSQL)).
			WithArgs("bob").
			WillReturnError(errors.New("db query failed"))

		u, err := repo.GetByUsername(context.Background(), "bob")
		if err == nil || u != nil {
			t.Fatalf("expected error and nil user, got (%+v, %v)", u, err)
		}
	})
}

func TestUserRepository_Count(t *testing.T) {
	repo, mock := newMockUserRepo(t)
	mock.ExpectQuery(regexp.QuoteMeta(countUsersSQL)).
		WillReturnRows(sqlmock.NewRows([]string{"COUNT(*)"}).AddRow(3))

	n, err := repo.Count(context.Background())
	if err != nil || n != 3 {
		t.Fatalf("Count = %d, %v", n, err)
	}
}

func TestUserRepository_SQLiteRoundTrip(t *testing.T) {
	conn, err := db.InitDB(filepath.Join(t.TempDir(), "users.db"))
	if err != nil {
		t.Fatalf("InitDB: %v", err)
	}
	defer conn.Close()
	repo := NewUserRepository(conn)
	ctx := context.Background()

	id, err := repo.Create(ctx, models.User{Username: "lab", PasswordHash: "h", Role: models.RoleOperator})
	if err != nil || id == 0 {
		t.Fatalf("Create = %d, %v", id, err)
	}
	if _, err := repo.Create(ctx, models.User{Username: "lab", PasswordHash: "h2", Role: models.RoleViewer}); !errors.Is(err, ErrUsernameTaken) {
		t.Fatalf("expected ErrUsernameTaken from the real driver, got %v", err)
	}
	if _, err := repo.Create(ctx, models.User{Username: "root", PasswordHash: "h", Role: "admin"}); err == nil {
		t.Fatalf("role outside the CHECK constraint must be rejected")
	}

	u, err := repo.GetByUsername(ctx, "lab")
	if err != nil || u == nil {
		t.Fatalf("GetByUsername = %+v, %v", u, err)
	}
	if u.Role != models.RoleOperator || u.CreatedAt.IsZero() {
		t.Fatalf("unexpected user: %+v", u)
	}
	if n, err := repo.Count(ctx); err != nil || n != 1 {
		t.Fatalf("Count = %d, %v", n, err)
	}
}
