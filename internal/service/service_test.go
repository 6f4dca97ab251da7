package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v78"

	"github.com/willjrcristo/checkout-subscription/internal/config"
	"github.com/willjrcristo/checkout-subscription/internal/payment"
)

func testConfig() config.Config {
	return config.Config{
		Domain:               "http://localhost:4242",
		StripeSecretKey:      "sk_test_123",
		StripePublishableKey: "pk_test_123",
		BasicPriceID:         "price_basic",
		ProPriceID:           "price_pro",
		StoreDriver:          config.DriverSQLite,
		UsersCollection:      "users",
	}
}

func TestCheckoutService_Config(t *testing.T) {
	s := NewCheckoutService(testConfig(), &mockProvider{}, newMemoryRepo())

	assert.Equal(t, PublicConfig{
		PublishableKey: "pk_test_123",
		BasicPrice:     "price_basic",
		ProPrice:       "price_pro",
	}, s.Config())
}

func TestCheckoutService_CreateCheckoutSession(t *testing.T) {
	ctx := context.Background()

	t.Run("sucesso - monta a sessão com userId no metadata", func(t *testing.T) {
		provider := &mockProvider{
			CreateCheckoutSessionFn: func(ctx context.Context, p payment.CheckoutParams) (*stripe.CheckoutSession, error) {
				assert.Equal(t, "price_1", p.PriceID)
				assert.Equal(t, "u1", p.UserID)
				assert.Equal(t, "http://localhost:4242/success.html?session_id={CHECKOUT_SESSION_ID}", p.SuccessURL)
				assert.Equal(t, "http://localhost:4242/canceled.html", p.CancelURL)
				return &stripe.CheckoutSession{URL: "https://checkout.stripe.com/c/pay/cs_1"}, nil
			},
		}
		s := NewCheckoutService(testConfig(), provider, newMemoryRepo())

		url, err := s.CreateCheckoutSession(ctx, CheckoutRequest{PriceID: "price_1", UserID: "u1"})

		require.NoError(t, err)
		assert.Equal(t, "https://checkout.stripe.com/c/pay/cs_1", url)
	})

	t.Run("erro - sem userId não chama a Stripe", func(t *testing.T) {
		s := NewCheckoutService(testConfig(), &mockProvider{}, newMemoryRepo())

		_, err := s.CreateCheckoutSession(ctx, CheckoutRequest{PriceID: "price_1"})

		assert.ErrorIs(t, err, ErrUserIDRequired)
		assert.Equal(t, "User ID is required", err.Error())
	})

	t.Run("erro - falha da Stripe vira UpstreamError com a mensagem do provedor", func(t *testing.T) {
		provider := &mockProvider{
			CreateCheckoutSessionFn: func(ctx context.Context, p payment.CheckoutParams) (*stripe.CheckoutSession, error) {
				return nil, &stripe.Error{Msg: "No such price: 'price_x'"}
			},
		}
		s := NewCheckoutService(testConfig(), provider, newMemoryRepo())

		_, err := s.CreateCheckoutSession(ctx, CheckoutRequest{PriceID: "price_x", UserID: "u1"})

		var upstream *UpstreamError
		require.True(t, errors.As(err, &upstream))
		assert.Equal(t, "No such price: 'price_x'", upstream.Error())
	})
}

func TestCheckoutService_CreatePortalSession(t *testing.T) {
	ctx := context.Background()

	t.Run("sucesso - usa o cliente da sessão de checkout", func(t *testing.T) {
		provider := &mockProvider{
			GetCheckoutSessionFn: func(ctx context.Context, id string) (*stripe.CheckoutSession, error) {
				assert.Equal(t, "cs_1", id)
				return &stripe.CheckoutSession{ID: id, Customer: &stripe.Customer{ID: "cus_1"}}, nil
			},
			CreatePortalSessionFn: func(ctx context.Context, customerID, returnURL string) (*stripe.BillingPortalSession, error) {
				assert.Equal(t, "cus_1", customerID)
				assert.Equal(t, "http://localhost:4242", returnURL)
				return &stripe.BillingPortalSession{URL: "https://billing.stripe.com/p/session/1"}, nil
			},
		}
		s := NewCheckoutService(testConfig(), provider, newMemoryRepo())

		url, err := s.CreatePortalSession(ctx, "cs_1")

		require.NoError(t, err)
		assert.Equal(t, "https://billing.stripe.com/p/session/1", url)
	})

	t.Run("erro - sessão sem id", func(t *testing.T) {
		s := NewCheckoutService(testConfig(), &mockProvider{}, newMemoryRepo())

		_, err := s.CreatePortalSession(ctx, "")

		assert.ErrorIs(t, err, ErrSessionIDRequired)
	})

	t.Run("erro - sessão sem cliente", func(t *testing.T) {
		provider := &mockProvider{
			GetCheckoutSessionFn: func(ctx context.Context, id string) (*stripe.CheckoutSession, error) {
				return &stripe.CheckoutSession{ID: id}, nil
			},
		}
		s := NewCheckoutService(testConfig(), provider, newMemoryRepo())

		_, err := s.CreatePortalSession(ctx, "cs_1")

		assert.ErrorIs(t, err, ErrNoCustomer)
	})
}
