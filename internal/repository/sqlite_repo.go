package repository

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/mattn/go-sqlite3"

	"github.com/willjrcristo/checkout-subscription/internal/domain"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// OpenSQLite abre o banco, confere a conexão e aplica as migrations pendentes.
func OpenSQLite(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	// Cada conexão de um banco ":memory:" é um banco diferente.
	db.SetMaxOpenConns(1)

	if err = db.Ping(); err != nil {
		db.Close()
		return nil, err
	}
	if err = migrateUp(db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func migrateUp(db *sql.DB) error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("lendo migrations: %w", err)
	}
	driver, err := sqlite3.WithInstance(db, &sqlite3.Config{})
	if err != nil {
		return fmt.Errorf("driver de migration: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("criando migrator: %w", err)
	}
	// Não chamamos m.Close(): ele fecharia o *sql.DB que continuamos usando.
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("aplicando migrations: %w", err)
	}
	return nil
}

// SQLiteRepository é a implementação do UserRepository para SQLite, usada em desenvolvimento local.
type SQLiteRepository struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteRepository injeta a conexão com o banco no repositório.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{
		db:  db,
		now: func() time.Time { return time.Now().UTC() },
	}
}

const selectUser = `SELECT id, is_premium, premium_expiry_date, subscription_type,
	stripe_customer_id, stripe_subscription_id, updated_at FROM users`

// Create insere um usuário. Em produção quem cria o registro é o app cliente;
// aqui serve para popular o banco local e os testes.
func (r *SQLiteRepository) Create(ctx context.Context, u domain.User) error {
	stmt, err := r.db.PrepareContext(ctx, `INSERT INTO users(id, is_premium, premium_expiry_date,
		subscription_type, stripe_customer_id, stripe_subscription_id, updated_at) VALUES(?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	_, err = stmt.ExecContext(ctx, u.ID, u.IsPremium, nullTime(u.PremiumExpiryDate),
		u.SubscriptionType, u.StripeCustomerID, u.StripeSubscriptionID, r.now())
	return err
}

func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx, selectUser+" WHERE id = ?", id)
	return scanUser(row)
}

func (r *SQLiteRepository) FindUserIDByStripeCustomerID(ctx context.Context, customerID string) (string, error) {
	// A coluna tem '' como padrão; um ID vazio casaria com qualquer usuário sem assinatura.
	if customerID == "" {
		return "", nil
	}
	var id string
	err := r.db.QueryRowContext(ctx, "SELECT id FROM users WHERE stripe_customer_id = ? LIMIT 1", customerID).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return id, err
}

func (r *SQLiteRepository) GrantPremium(ctx context.Context, userID, customerID, subscriptionID string) error {
	return r.exec(ctx, `UPDATE users SET is_premium = 1, premium_expiry_date = NULL, subscription_type = ?,
		stripe_customer_id = ?, stripe_subscription_id = ?, updated_at = ? WHERE id = ?`,
		domain.SubscriptionTypeStripe, customerID, subscriptionID, r.now(), userID)
}

func (r *SQLiteRepository) RevokePremium(ctx context.Context, userID string) error {
	now := r.now()
	return r.exec(ctx, `UPDATE users SET is_premium = 0, premium_expiry_date = ?, updated_at = ? WHERE id = ?`,
		now, now, userID)
}

func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}

// exec roda um UPDATE de um único documento e devolve ErrUserNotFound se nada foi alterado.
func (r *SQLiteRepository) exec(ctx context.Context, query string, args ...any) error {
	stmt, err := r.db.PrepareContext(ctx, query)
	if err != nil {
		return err
	}
	defer stmt.Close()

	res, err := stmt.ExecContext(ctx, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrUserNotFound
	}
	return nil
}

func scanUser(row *sql.Row) (*domain.User, error) {
	var (
		u      domain.User
		expiry sql.NullTime
	)
	err := row.Scan(&u.ID, &u.IsPremium, &expiry, &u.SubscriptionType,
		&u.StripeCustomerID, &u.StripeSubscriptionID, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if expiry.Valid {
		t := expiry.Time
		u.PremiumExpiryDate = &t
	}
	return &u, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
