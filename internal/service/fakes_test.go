package service

import (
	"context"
	"sync"
	"time"

	"github.com/stripe/stripe-go/v78"

	"github.com/willjrcristo/checkout-subscription/internal/domain"
	"github.com/willjrcristo/checkout-subscription/internal/payment"
	"github.com/willjrcristo/checkout-subscription/internal/repository"
)

// --- Mock do provedor de pagamento ---

type mockProvider struct {
	CreateCheckoutSessionFn func(ctx context.Context, p payment.CheckoutParams) (*stripe.CheckoutSession, error)
	GetCheckoutSessionFn    func(ctx context.Context, id string) (*stripe.CheckoutSession, error)
	CreatePortalSessionFn   func(ctx context.Context, customerID, returnURL string) (*stripe.BillingPortalSession, error)
}

func (m *mockProvider) CreateCheckoutSession(ctx context.Context, p payment.CheckoutParams) (*stripe.CheckoutSession, error) {
	return m.CreateCheckoutSessionFn(ctx, p)
}

func (m *mockProvider) GetCheckoutSession(ctx context.Context, id string) (*stripe.CheckoutSession, error) {
	return m.GetCheckoutSessionFn(ctx, id)
}

func (m *mockProvider) CreatePortalSession(ctx context.Context, customerID, returnURL string) (*stripe.BillingPortalSession, error) {
	return m.CreatePortalSessionFn(ctx, customerID, returnURL)
}

// --- Repositório em memória ---

// memoryRepo imita o banco de documentos: updates falham se o documento não existe
// e o relógio do "servidor" é fixo para que o estado final seja comparável.
type memoryRepo struct {
	mu     sync.Mutex
	users  map[string]domain.User
	now    time.Time
	writes int
	err    error
}

func newMemoryRepo(users ...domain.User) *memoryRepo {
	r := &memoryRepo{
		users: make(map[string]domain.User),
		now:   time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
	for _, u := range users {
		r.users[u.ID] = u
	}
	return r
}

func (r *memoryRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (r *memoryRepo) FindUserIDByStripeCustomerID(ctx context.Context, customerID string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return "", r.err
	}
	for _, u := range r.users {
		if customerID != "" && u.StripeCustomerID == customerID {
			return u.ID, nil
		}
	}
	return "", nil
}

func (r *memoryRepo) GrantPremium(ctx context.Context, userID, customerID, subscriptionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	u, ok := r.users[userID]
	if !ok {
		return repository.ErrUserNotFound
	}
	u.IsPremium = true
	u.PremiumExpiryDate = nil
	u.SubscriptionType = domain.SubscriptionTypeStripe
	u.StripeCustomerID = customerID
	u.StripeSubscriptionID = subscriptionID
	u.UpdatedAt = r.now
	r.users[userID] = u
	r.writes++
	return nil
}

func (r *memoryRepo) RevokePremium(ctx context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	u, ok := r.users[userID]
	if !ok {
		return repository.ErrUserNotFound
	}
	now := r.now
	u.IsPremium = false
	u.PremiumExpiryDate = &now
	u.UpdatedAt = now
	r.users[userID] = u
	r.writes++
	return nil
}

func (r *memoryRepo) snapshot() map[string]domain.User {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]domain.User, len(r.users))
	for k, v := range r.users {
		out[k] = v
	}
	return out
}
