package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/willjrcristo/checkout-subscription/internal/config"
	"github.com/willjrcristo/checkout-subscription/internal/domain"
)

// ErrUserNotFound é devolvido quando uma atualização mira um documento que não existe.
// Nunca criamos o usuário aqui: ele pertence ao app cliente.
var ErrUserNotFound = errors.New("usuário não encontrado")

// UserRepository define as operações de persistência do registro do usuário.
// Cada escrita é um overwrite absoluto de um único documento, por isso não há locks.
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
	// FindUserIDByStripeCustomerID devolve só o ID do documento; o resto do registro
	// pertence ao app cliente e não é lido aqui. "" quando não há usuário.
	FindUserIDByStripeCustomerID(ctx context.Context, customerID string) (string, error)
	GrantPremium(ctx context.Context, userID, customerID, subscriptionID string) error
	RevokePremium(ctx context.Context, userID string) error
}

// Store é um UserRepository que guarda recursos (conexões) e precisa ser fechado.
type Store interface {
	UserRepository
	Close() error
}

// Open cria o repositório escolhido em STORE_DRIVER.
func Open(ctx context.Context, cfg config.Config) (Store, error) {
	switch cfg.StoreDriver {
	case config.DriverFirestore:
		repo, err := NewFirestoreRepository(ctx, FirestoreConfig{
			ProjectID:   cfg.FirebaseProjectID,
			ClientEmail: cfg.FirebaseClientEmail,
			PrivateKey:  cfg.FirebasePrivateKey,
			Collection:  cfg.UsersCollection,
		})
		if err != nil {
			return nil, err
		}
		return repo, nil
	case config.DriverSQLite:
		db, err := OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		return NewSQLiteRepository(db), nil
	default:
		return nil, fmt.Errorf("driver de armazenamento desconhecido: %q", cfg.StoreDriver)
	}
}
