package remote

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/snapgrid/snapgrid/internal/logging"
	"github.com/snapgrid/snapgrid/internal/persist"
)

// sessionClaims are the token claims issued on sign-in. The registered ID is
// the auth_sessions row key, so sign-out can revoke a single token.
type sessionClaims struct {
	jwt.RegisteredClaims
	AccountID string
}

// Auth implements persist.AuthAdapter over the accounts and auth_sessions
// tables. Tokens are HS256 JWTs checked against a session row on every use.
type Auth struct {
	db       *sql.DB
	secret   []byte
	validity time.Duration
	logger   logging.Logger
}

var _ persist.AuthAdapter = (*Auth)(nil)

func NewAuth(db *sql.DB, cfg persist.RemoteConfig, logger logging.Logger) *Auth {
	return &Auth{db: db, secret: []byte(cfg.JWTSecret), validity: cfg.TokenValidity, logger: logger}
}

func (a *Auth) SignUp(ctx context.Context, email, password string) (*persist.Session, error) {
	if email == "" || password == "" {
		return nil, persist.ErrInvalidCredentials
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	account := persist.Account{ID: uuid.NewString(), Email: email, CreatedAt: time.Now().UTC()}
	_, err = a.db.ExecContext(ctx,
		`INSERT INTO accounts (id, email, password_hash, created_at) VALUES ($1, $2, $3, $4)`,
		account.ID, account.Email, string(hash), account.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("account %s: %w", email, persist.ErrUniqueConstraint)
		}
		return nil, fmt.Errorf("creating account: %w", err)
	}

	return a.openSession(ctx, account)
}

func (a *Auth) SignIn(ctx context.Context, email, password string) (*persist.Session, error) {
	var (
		account persist.Account
		hash    string
	)
	err := a.db.QueryRowContext(ctx,
		`SELECT id, email, password_hash, created_at FROM accounts WHERE email = $1`,
		email).Scan(&account.ID, &account.Email, &hash, &account.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, persist.ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("loading account: %w", err)
	}

	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		return nil, persist.ErrInvalidCredentials
	}

	return a.openSession(ctx, account)
}

func (a *Auth) SignOut(ctx context.Context, token string) error {
	claims, err := a.parseToken(token)
	if err != nil {
		return err
	}
	_, err = a.db.ExecContext(ctx, `DELETE FROM auth_sessions WHERE token_id = $1`, claims.ID)
	if err != nil {
		return fmt.Errorf("revoking session: %w", err)
	}
	return nil
}

func (a *Auth) GetCurrentUser(ctx context.Context, token string) (*persist.Account, error) {
	claims, err := a.parseToken(token)
	if err != nil {
		return nil, err
	}

	var account persist.Account
	err = a.db.QueryRowContext(ctx,
		`SELECT a.id, a.email, a.created_at
		   FROM auth_sessions s JOIN accounts a ON a.id = s.account_id
		  WHERE s.token_id = $1 AND s.expires_at > $2`,
		claims.ID, time.Now().UTC()).Scan(&account.ID, &account.Email, &account.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, persist.ErrInvalidToken
	}
	if err != nil {
		return nil, fmt.Errorf("loading session: %w", err)
	}
	return &account, nil
}

// ResetPassword records a reset request. Unknown emails are ignored so the
// call does not reveal which addresses have accounts.
func (a *Auth) ResetPassword(ctx context.Context, email string) error {
	var accountID string
	err := a.db.QueryRowContext(ctx,
		`SELECT id FROM accounts WHERE email = $1`, email).Scan(&accountID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("loading account: %w", err)
	}

	_, err = a.db.ExecContext(ctx,
		`INSERT INTO password_resets (id, account_id, created_at) VALUES ($1, $2, $3)`,
		uuid.NewString(), accountID, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("recording password reset: %w", err)
	}
	a.logger.Info(ctx, "password reset requested", "account_id", accountID)
	return nil
}

func (a *Auth) UpdatePassword(ctx context.Context, token, newPassword string) error {
	account, err := a.GetCurrentUser(ctx, token)
	if err != nil {
		return err
	}
	if newPassword == "" {
		return persist.ErrInvalidCredentials
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}
	_, err = a.db.ExecContext(ctx,
		`UPDATE accounts SET password_hash = $1 WHERE id = $2`, string(hash), account.ID)
	if err != nil {
		return fmt.Errorf("updating password: %w", err)
	}
	return nil
}

func (a *Auth) openSession(ctx context.Context, account persist.Account) (*persist.Session, error) {
	tokenID := uuid.NewString()
	expiresAt := time.Now().UTC().Add(a.validity)

	_, err := a.db.ExecContext(ctx,
		`INSERT INTO auth_sessions (token_id, account_id, expires_at) VALUES ($1, $2, $3)`,
		tokenID, account.ID, expiresAt)
	if err != nil {
		return nil, fmt.Errorf("opening session: %w", err)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, sessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        tokenID,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		AccountID: account.ID,
	})
	signed, err := token.SignedString(a.secret)
	if err != nil {
		return nil, fmt.Errorf("signing token: %w", err)
	}

	return &persist.Session{Token: signed, Account: account, ExpiresAt: expiresAt}, nil
}

func (a *Auth) parseToken(tokenString string) (*sessionClaims, error) {
	claims := &sessionClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return a.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, persist.ErrInvalidToken
	}
	return claims, nil
}
