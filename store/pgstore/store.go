package pgstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	goIAM "github.com/MrEthical07/goIAM"
	"github.com/MrEthical07/goIAM/store/pgstore/migrations"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/pressly/goose/v3"
)

const (
	driverName      = "pgx"
	uniqueViolation = "23505"
)

const (
	selectColumns = `SELECT id, username, email, password_hash, role, first_name, last_name, created_at, updated_at FROM accounts`

	upsertAccount = `INSERT INTO accounts (id, username, email, password_hash, role, first_name, last_name, created_at, updated_at)
VALUES (:id, :username, :email, :password_hash, :role, :first_name, :last_name, :created_at, :updated_at)
ON CONFLICT (id) DO UPDATE SET
	username = EXCLUDED.username,
	email = EXCLUDED.email,
	password_hash = EXCLUDED.password_hash,
	role = EXCLUDED.role,
	first_name = EXCLUDED.first_name,
	last_name = EXCLUDED.last_name,
	updated_at = EXCLUDED.updated_at`
)

type accountRow struct {
	ID           string    `db:"id"`
	Username     string    `db:"username"`
	Email        string    `db:"email"`
	PasswordHash string    `db:"password_hash"`
	Role         string    `db:"role"`
	FirstName    string    `db:"first_name"`
	LastName     string    `db:"last_name"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

func (r accountRow) account() goIAM.Account {
	return goIAM.Account{
		ID:           r.ID,
		Username:     r.Username,
		Email:        r.Email,
		PasswordHash: r.PasswordHash,
		Role:         goIAM.Role(r.Role),
		FirstName:    r.FirstName,
		LastName:     r.LastName,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

// Store implements goIAM.AccountStore with hand-written SQL over sqlx and the
// pgx stdlib driver.
type Store struct {
	db *sqlx.DB
}

// Open connects to dsn and applies the embedded migrations.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sqlx.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db ping error: %w", err)
	}
	if err := Migrate(ctx, db.DB); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migration error: %w", err)
	}
	return New(db), nil
}

// New wraps an already migrated connection.
func New(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// gooseUp is replaced in tests.
var gooseUp = func(ctx context.Context, db *sql.DB, dir string) error {
	return goose.UpContext(ctx, db, dir)
}

// Migrate runs the embedded goose migrations against db.
func Migrate(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	return gooseUp(ctx, db, ".")
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) FindByUsername(ctx context.Context, username string) (*goIAM.Account, error) {
	return s.get(ctx, selectColumns+` WHERE username = $1`, username)
}

func (s *Store) FindByID(ctx context.Context, id string) (*goIAM.Account, error) {
	return s.get(ctx, selectColumns+` WHERE id = $1`, id)
}

func (s *Store) get(ctx context.Context, query, arg string) (*goIAM.Account, error) {
	var row accountRow
	if err := s.db.GetContext(ctx, &row, query, arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, goIAM.ErrAccountNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	account := row.account()
	return &account, nil
}

func (s *Store) Save(ctx context.Context, account *goIAM.Account) error {
	if account == nil || account.ID == "" {
		return errors.New("pgstore: account id is required")
	}
	row := accountRow{
		ID:           account.ID,
		Username:     account.Username,
		Email:        account.Email,
		PasswordHash: account.PasswordHash,
		Role:         string(account.Role),
		FirstName:    account.FirstName,
		LastName:     account.LastName,
		CreatedAt:    account.CreatedAt,
		UpdatedAt:    account.UpdatedAt,
	}
	if _, err := s.db.NamedExecContext(ctx, upsertAccount, row); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return fmt.Errorf("%w: %s", goIAM.ErrDuplicateKey, pgErr.ConstraintName)
		}
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (s *Store) Remove(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM accounts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return goIAM.ErrAccountNotFound
	}
	return nil
}

func (s *Store) List(ctx context.Context) ([]goIAM.Account, error) {
	var rows []accountRow
	if err := s.db.SelectContext(ctx, &rows, selectColumns+` ORDER BY created_at, username`); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	out := make([]goIAM.Account, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.account())
	}
	return out, nil
}
