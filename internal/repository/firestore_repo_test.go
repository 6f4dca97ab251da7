package repository

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Estes testes rodam contra o emulador do Firestore:
//
//	gcloud emulators firestore start --host-port=localhost:8181
//	FIRESTORE_EMULATOR_HOST=localhost:8181 go test ./internal/repository/...
func newEmulatorRepo(t *testing.T) *FirestoreRepository {
	t.Helper()
	if os.Getenv("FIRESTORE_EMULATOR_HOST") == "" {
		t.Skip("FIRESTORE_EMULATOR_HOST não definido")
	}
	ctx := context.Background()
	client, err := firestore.NewClient(ctx, "demo-checkout")
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	// Uma coleção por teste para não haver interferência entre execuções.
	collection := fmt.Sprintf("users_%d", time.Now().UnixNano())
	return NewFirestoreRepositoryWithClient(client, collection)
}

func TestFirestoreRepository_GrantAndRevoke(t *testing.T) {
	ctx := context.Background()
	repo := newEmulatorRepo(t)

	_, err := repo.users().Doc("u1").Set(ctx, map[string]any{"isPremium": false})
	require.NoError(t, err)

	require.NoError(t, repo.GrantPremium(ctx, "u1", "cus_1", "sub_1"))

	u, err := repo.GetByID(ctx, "u1")
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.True(t, u.IsPremium)
	assert.Nil(t, u.PremiumExpiryDate)
	assert.Equal(t, "cus_1", u.StripeCustomerID)
	assert.Equal(t, "sub_1", u.StripeSubscriptionID)
	assert.False(t, u.UpdatedAt.IsZero())

	id, err := repo.FindUserIDByStripeCustomerID(ctx, "cus_1")
	require.NoError(t, err)
	assert.Equal(t, "u1", id)

	require.NoError(t, repo.RevokePremium(ctx, "u1"))

	u, err = repo.GetByID(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, u.IsPremium)
	assert.NotNil(t, u.PremiumExpiryDate)
}

func TestFirestoreRepository_NotFound(t *testing.T) {
	ctx := context.Background()
	repo := newEmulatorRepo(t)

	assert.ErrorIs(t, repo.GrantPremium(ctx, "fantasma", "cus_1", "sub_1"), ErrUserNotFound)

	u, err := repo.GetByID(ctx, "fantasma")
	assert.NoError(t, err)
	assert.Nil(t, u)

	id, err := repo.FindUserIDByStripeCustomerID(ctx, "cus_nenhum")
	assert.NoError(t, err)
	assert.Empty(t, id)
}

func TestFirestoreRepository_RevokeWithForeignFieldTypes(t *testing.T) {
	ctx := context.Background()
	repo := newEmulatorRepo(t)

	// O app cliente gravou campos com tipos que não batem com domain.User.
	_, err := repo.users().Doc("u1").Set(ctx, map[string]any{
		"isPremium":         1,
		"premiumExpiryDate": "2024-01-01",
		"updatedAt":         "ontem",
		"stripeCustomerId":  "cus_1",
	})
	require.NoError(t, err)

	id, err := repo.FindUserIDByStripeCustomerID(ctx, "cus_1")
	require.NoError(t, err)
	assert.Equal(t, "u1", id)

	require.NoError(t, repo.RevokePremium(ctx, id))

	snap, err := repo.users().Doc("u1").Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, false, snap.Data()["isPremium"])
	assert.IsType(t, time.Time{}, snap.Data()["premiumExpiryDate"])
}
