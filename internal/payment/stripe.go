package payment

import (
	"context"

	"github.com/stripe/stripe-go/v78"
	portalsession "github.com/stripe/stripe-go/v78/billingportal/session"
	checkoutsession "github.com/stripe/stripe-go/v78/checkout/session"
)

// CheckoutParams são os dados de uma sessão de checkout de assinatura.
type CheckoutParams struct {
	PriceID    string
	UserID     string
	SuccessURL string
	CancelURL  string
}

// StripeClient é o cliente da Stripe injetado no serviço.
// Cada sub-cliente carrega a própria chave, então não dependemos do stripe.Key global.
type StripeClient struct {
	checkout checkoutsession.Client
	portal   portalsession.Client
}

// NewStripeClient cria o cliente com a chave secreta e registra o app info uma única vez.
func NewStripeClient(secretKey string) *StripeClient {
	stripe.SetAppInfo(&stripe.AppInfo{
		Name:    "willjrcristo/checkout-subscription",
		Version: "0.0.1",
		URL:     "https://github.com/willjrcristo/checkout-subscription",
	})

	backend := stripe.GetBackend(stripe.APIBackend)
	return &StripeClient{
		checkout: checkoutsession.Client{B: backend, Key: secretKey},
		portal:   portalsession.Client{B: backend, Key: secretKey},
	}
}

// CreateCheckoutSession cria uma sessão de checkout em modo assinatura.
// O userId vai no metadata para o webhook saber quem liberar.
func (c *StripeClient) CreateCheckoutSession(ctx context.Context, p CheckoutParams) (*stripe.CheckoutSession, error) {
	params := &stripe.CheckoutSessionParams{
		Mode: stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(p.PriceID),
				Quantity: stripe.Int64(1),
			},
		},
		Metadata: map[string]string{
			"userId": p.UserID,
		},
		SuccessURL: stripe.String(p.SuccessURL),
		CancelURL:  stripe.String(p.CancelURL),
	}
	params.Context = ctx

	return c.checkout.New(params)
}

// GetCheckoutSession busca uma sessão de checkout pelo ID.
func (c *StripeClient) GetCheckoutSession(ctx context.Context, id string) (*stripe.CheckoutSession, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx

	return c.checkout.Get(id, params)
}

// CreatePortalSession abre uma sessão do portal de cobrança para o cliente.
func (c *StripeClient) CreatePortalSession(ctx context.Context, customerID, returnURL string) (*stripe.BillingPortalSession, error) {
	params := &stripe.BillingPortalSessionParams{
		Customer:  stripe.String(customerID),
		ReturnURL: stripe.String(returnURL),
	}
	params.Context = ctx

	return c.portal.New(params)
}
