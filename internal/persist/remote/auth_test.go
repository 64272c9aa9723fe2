package remote

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"golang.org/x/crypto/bcrypt"

	"github.com/snapgrid/snapgrid/internal/logging"
	"github.com/snapgrid/snapgrid/internal/persist"
)

func newAuthWithMock(t *testing.T) (*Auth, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	cfg := persist.RemoteConfig{JWTSecret: "k", TokenValidity: time.Hour}
	return NewAuth(db, cfg, logging.Nop{}), mock, db
}

func TestSignUp_IssuesSession(t *testing.T) {
	a, mock, db := newAuthWithMock(t)
	defer db.Close()

	mock.ExpectExec(`INSERT\s+INTO\s+accounts`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT\s+INTO\s+auth_sessions`).WillReturnResult(sqlmock.NewResult(0, 1))

	session, err := a.SignUp(context.Background(), "a@b.c", "secret")
	if err != nil {
		t.Fatalf("SignUp error: %v", err)
	}
	if session.Token == "" || session.Account.Email != "a@b.c" || session.ExpiresAt.IsZero() {
		t.Fatalf("unexpected session: %+v", session)
	}
}

func TestSignUp_EmptyCredentials(t *testing.T) {
	a, _, db := newAuthWithMock(t)
	defer db.Close()

	if _, err := a.SignUp(context.Background(), "", "x"); !errors.Is(err, persist.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestSignIn_WrongPassword(t *testing.T) {
	a, mock, db := newAuthWithMock(t)
	defer db.Close()

	hash, _ := bcrypt.GenerateFromPassword([]byte("other"), bcrypt.MinCost)
	rows := sqlmock.NewRows([]string{"id", "email", "password_hash", "created_at"}).
		AddRow("acc-1", "a@b.c", string(hash), time.Now().UTC())
	mock.ExpectQuery(`SELECT\s+.+\s+FROM\s+accounts\s+WHERE\s+email`).
		WithArgs("a@b.c").WillReturnRows(rows)

	if _, err := a.SignIn(context.Background(), "a@b.c", "secret"); !errors.Is(err, persist.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestSignIn_UnknownEmail(t *testing.T) {
	a, mock, db := newAuthWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT\s+.+\s+FROM\s+accounts`).WillReturnError(sql.ErrNoRows)

	if _, err := a.SignIn(context.Background(), "ghost@b.c", "x"); !errors.Is(err, persist.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestGetCurrentUser_InvalidToken(t *testing.T) {
	a, _, db := newAuthWithMock(t)
	defer db.Close()

	if _, err := a.GetCurrentUser(context.Background(), "garbage"); !errors.Is(err, persist.ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestGetCurrentUser_RevokedSession(t *testing.T) {
	a, mock, db := newAuthWithMock(t)
	defer db.Close()

	mock.ExpectExec(`INSERT\s+INTO\s+accounts`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT\s+INTO\s+auth_sessions`).WillReturnResult(sqlmock.NewResult(0, 1))

	session, err := a.SignUp(context.Background(), "a@b.c", "secret")
	if err != nil {
		t.Fatalf("SignUp error: %v", err)
	}

	// session row gone, e.g. after SignOut
	mock.ExpectQuery(`(?s)SELECT\s+.+\s+FROM\s+auth_sessions`).WillReturnError(sql.ErrNoRows)

	if _, err := a.GetCurrentUser(context.Background(), session.Token); !errors.Is(err, persist.ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestGetCurrentUser_LiveSession(t *testing.T) {
	a, mock, db := newAuthWithMock(t)
	defer db.Close()

	mock.ExpectExec(`INSERT\s+INTO\s+accounts`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT\s+INTO\s+auth_sessions`).WillReturnResult(sqlmock.NewResult(0, 1))

	session, err := a.SignUp(context.Background(), "a@b.c", "secret")
	if err != nil {
		t.Fatalf("SignUp error: %v", err)
	}

	rows := sqlmock.NewRows([]string{"id", "email", "created_at"}).
		AddRow(session.Account.ID, "a@b.c", time.Now().UTC())
	mock.ExpectQuery(`(?s)SELECT\s+.+\s+FROM\s+auth_sessions\s+.*JOIN\s+accounts`).WillReturnRows(rows)

	account, err := a.GetCurrentUser(context.Background(), session.Token)
	if err != nil {
		t.Fatalf("GetCurrentUser error: %v", err)
	}
	if account.Email != "a@b.c" {
		t.Fatalf("unexpected account: %+v", account)
	}
}

func TestResetPassword_RecordsRequest(t *testing.T) {
	a, mock, db := newAuthWithMock(t)
	defer db.Close()

	rows := sqlmock.NewRows([]string{"id"}).AddRow("acc-1")
	mock.ExpectQuery(`SELECT\s+id\s+FROM\s+accounts`).WithArgs("a@b.c").WillReturnRows(rows)
	mock.ExpectExec(`INSERT\s+INTO\s+password_resets`).WillReturnResult(sqlmock.NewResult(0, 1))

	if err := a.ResetPassword(context.Background(), "a@b.c"); err != nil {
		t.Fatalf("ResetPassword error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestResetPassword_SilentOnUnknownEmail(t *testing.T) {
	a, mock, db := newAuthWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT\s+id\s+FROM\s+accounts`).WillReturnError(sql.ErrNoRows)

	if err := a.ResetPassword(context.Background(), "ghost@b.c"); err != nil {
		t.Fatalf("ResetPassword must not reveal unknown emails: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
