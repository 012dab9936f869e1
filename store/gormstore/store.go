package gormstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	goIAM "github.com/MrEthical07/goIAM"
	"github.com/glebarez/sqlite"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const uniqueViolation = "23505"

// accountRecord is the accounts table row.
type accountRecord struct {
	ID           string `gorm:"primaryKey;size:36"`
	Username     string `gorm:"uniqueIndex;size:128;not null"`
	Email        string `gorm:"uniqueIndex;size:320;not null"`
	PasswordHash string `gorm:"not null"`
	Role         string `gorm:"size:16;not null"`
	FirstName    string
	LastName     string
	CreatedAt    time.Time `gorm:"autoCreateTime:false"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime:false"`
}

func (accountRecord) TableName() string { return "accounts" }

func fromAccount(a *goIAM.Account) accountRecord {
	return accountRecord{
		ID:           a.ID,
		Username:     a.Username,
		Email:        a.Email,
		PasswordHash: a.PasswordHash,
		Role:         string(a.Role),
		FirstName:    a.FirstName,
		LastName:     a.LastName,
		CreatedAt:    a.CreatedAt,
		UpdatedAt:    a.UpdatedAt,
	}
}

func (r accountRecord) account() *goIAM.Account {
	return &goIAM.Account{
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

// Store implements goIAM.AccountStore on top of gorm.
type Store struct {
	db *gorm.DB
}

// OpenPostgres connects to dsn and migrates the accounts table.
func OpenPostgres(dsn string) (*Store, error) {
	db, err := gorm.Open(postgres.Open(dsn), gormConfig())
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	return New(db)
}

// OpenSQLite opens path (":memory:" is allowed) with a single connection so
// in-memory databases are shared across calls.
func OpenSQLite(path string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), gormConfig())
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)
	return New(db)
}

func gormConfig() *gorm.Config {
	return &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
	}
}

// New wraps an existing connection and runs AutoMigrate.
func New(db *gorm.DB) (*Store, error) {
	if db == nil {
		return nil, errors.New("gormstore: nil db")
	}
	if err := db.AutoMigrate(&accountRecord{}); err != nil {
		return nil, fmt.Errorf("migrate accounts: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *Store) FindByUsername(ctx context.Context, username string) (*goIAM.Account, error) {
	return s.first(ctx, "username = ?", username)
}

func (s *Store) FindByID(ctx context.Context, id string) (*goIAM.Account, error) {
	return s.first(ctx, "id = ?", id)
}

func (s *Store) first(ctx context.Context, query string, arg string) (*goIAM.Account, error) {
	var rec accountRecord
	if err := s.db.WithContext(ctx).Where(query, arg).First(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, goIAM.ErrAccountNotFound
		}
		return nil, fmt.Errorf("find account: %w", err)
	}
	return rec.account(), nil
}

// Save upserts account by primary key.
func (s *Store) Save(ctx context.Context, account *goIAM.Account) error {
	if account == nil || account.ID == "" {
		return errors.New("gormstore: account id is required")
	}
	rec := fromAccount(account)
	if err := s.db.WithContext(ctx).Save(&rec).Error; err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %v", goIAM.ErrDuplicateKey, err)
		}
		return fmt.Errorf("save account: %w", err)
	}
	return nil
}

func (s *Store) Remove(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Where("id = ?", id).Delete(&accountRecord{})
	if res.Error != nil {
		return fmt.Errorf("remove account: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return goIAM.ErrAccountNotFound
	}
	return nil
}

func (s *Store) List(ctx context.Context) ([]goIAM.Account, error) {
	var recs []accountRecord
	if err := s.db.WithContext(ctx).Order("created_at, username").Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	out := make([]goIAM.Account, 0, len(recs))
	for _, rec := range recs {
		out = append(out, *rec.account())
	}
	return out, nil
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return true
	}
	// sqlite drivers without error translation
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
