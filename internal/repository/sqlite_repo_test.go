package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/willjrcristo/checkout-subscription/internal/domain"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	db, err := OpenSQLite(":memory:")
	require.NoError(t, err)

	repo := NewSQLiteRepository(db)
	fixed := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	repo.now = func() time.Time { return fixed }
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestSQLiteRepository_GetByID(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	t.Run("retorna nil quando não existe", func(t *testing.T) {
		u, err := repo.GetByID(ctx, "nao-existe")
		assert.NoError(t, err)
		assert.Nil(t, u)
	})

	t.Run("retorna o usuário criado", func(t *testing.T) {
		require.NoError(t, repo.Create(ctx, domain.User{ID: "u1"}))

		u, err := repo.GetByID(ctx, "u1")
		require.NoError(t, err)
		require.NotNil(t, u)
		assert.Equal(t, "u1", u.ID)
		assert.False(t, u.IsPremium)
		assert.Nil(t, u.PremiumExpiryDate)
	})
}

func TestSQLiteRepository_GrantPremium(t *testing.T) {
	ctx := context.Background()

	t.Run("sucesso - marca premium e guarda os IDs da Stripe", func(t *testing.T) {
		repo := newTestRepo(t)
		expired := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
		require.NoError(t, repo.Create(ctx, domain.User{ID: "u1", PremiumExpiryDate: &expired}))

		err := repo.GrantPremium(ctx, "u1", "cus_1", "sub_1")
		require.NoError(t, err)

		u, err := repo.GetByID(ctx, "u1")
		require.NoError(t, err)
		assert.True(t, u.IsPremium)
		assert.Nil(t, u.PremiumExpiryDate)
		assert.Equal(t, domain.SubscriptionTypeStripe, u.SubscriptionType)
		assert.Equal(t, "cus_1", u.StripeCustomerID)
		assert.Equal(t, "sub_1", u.StripeSubscriptionID)
		assert.True(t, u.UpdatedAt.Equal(repo.now()))
	})

	t.Run("erro - usuário inexistente não é criado", func(t *testing.T) {
		repo := newTestRepo(t)

		err := repo.GrantPremium(ctx, "fantasma", "cus_1", "sub_1")
		assert.ErrorIs(t, err, ErrUserNotFound)

		u, err := repo.GetByID(ctx, "fantasma")
		assert.NoError(t, err)
		assert.Nil(t, u)
	})
}

func TestSQLiteRepository_FindAndRevoke(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	require.NoError(t, repo.Create(ctx, domain.User{ID: "u1"}))
	require.NoError(t, repo.Create(ctx, domain.User{ID: "u2"}))
	require.NoError(t, repo.GrantPremium(ctx, "u1", "cus_1", "sub_1"))

	t.Run("encontra pelo customer id", func(t *testing.T) {
		id, err := repo.FindUserIDByStripeCustomerID(ctx, "cus_1")
		require.NoError(t, err)
		assert.Equal(t, "u1", id)
	})

	t.Run("customer id vazio não casa com usuários sem assinatura", func(t *testing.T) {
		id, err := repo.FindUserIDByStripeCustomerID(ctx, "")
		assert.NoError(t, err)
		assert.Empty(t, id)
	})

	t.Run("revoga o premium", func(t *testing.T) {
		require.NoError(t, repo.RevokePremium(ctx, "u1"))

		u, err := repo.GetByID(ctx, "u1")
		require.NoError(t, err)
		assert.False(t, u.IsPremium)
		require.NotNil(t, u.PremiumExpiryDate)
		assert.True(t, u.PremiumExpiryDate.Equal(repo.now()))
		// A revogação não apaga os IDs da Stripe.
		assert.Equal(t, "cus_1", u.StripeCustomerID)
	})

	t.Run("erro - revogar usuário inexistente", func(t *testing.T) {
		assert.ErrorIs(t, repo.RevokePremium(ctx, "fantasma"), ErrUserNotFound)
	})
}
