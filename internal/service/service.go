package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/go-playground/validator/v10"
	"github.com/stripe/stripe-go/v78"

	"github.com/willjrcristo/checkout-subscription/internal/config"
	"github.com/willjrcristo/checkout-subscription/internal/payment"
	"github.com/willjrcristo/checkout-subscription/internal/repository"
)

// PaymentProvider é o que o serviço precisa da Stripe. Em testes trocamos por um mock.
type PaymentProvider interface {
	CreateCheckoutSession(ctx context.Context, p payment.CheckoutParams) (*stripe.CheckoutSession, error)
	GetCheckoutSession(ctx context.Context, id string) (*stripe.CheckoutSession, error)
	CreatePortalSession(ctx context.Context, customerID, returnURL string) (*stripe.BillingPortalSession, error)
}

// CheckoutService encapsula o checkout, o portal de cobrança e o webhook de assinaturas.
// Os clientes da Stripe e do banco são criados uma vez no startup e injetados aqui.
type CheckoutService struct {
	cfg      config.Config
	provider PaymentProvider
	repo     repository.UserRepository
	validate *validator.Validate
}

// NewCheckoutService cria uma nova instância do CheckoutService.
func NewCheckoutService(cfg config.Config, provider PaymentProvider, repo repository.UserRepository) *CheckoutService {
	return &CheckoutService{
		cfg:      cfg,
		provider: provider,
		repo:     repo,
		validate: validator.New(),
	}
}

// PublicConfig são os identificadores públicos que o widget de checkout precisa.
type PublicConfig struct {
	PublishableKey string `json:"publishableKey"`
	BasicPrice     string `json:"basicPrice"`
	ProPrice       string `json:"proPrice"`
}

// CheckoutRequest é o corpo de POST /create-checkout-session.
type CheckoutRequest struct {
	PriceID string `json:"priceId"`
	UserID  string `json:"userId" validate:"required"`
}

func (s *CheckoutService) Config() PublicConfig {
	return PublicConfig{
		PublishableKey: s.cfg.StripePublishableKey,
		BasicPrice:     s.cfg.BasicPriceID,
		ProPrice:       s.cfg.ProPriceID,
	}
}

// CreateCheckoutSession cria a sessão na Stripe e devolve a URL para redirecionar o usuário.
func (s *CheckoutService) CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (string, error) {
	if err := s.validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return "", ErrUserIDRequired
		}
		return "", err
	}

	sess, err := s.provider.CreateCheckoutSession(ctx, payment.CheckoutParams{
		PriceID: req.PriceID,
		UserID:  req.UserID,
		// {CHECKOUT_SESSION_ID} é substituído pela própria Stripe.
		SuccessURL: s.cfg.Domain + "/success.html?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:  s.cfg.Domain + "/canceled.html",
	})
	if err != nil {
		slog.Error("Falha ao criar a sessão de checkout na Stripe", "error", err, "user_id", req.UserID)
		return "", &UpstreamError{Op: "create checkout session", Err: err}
	}
	return sess.URL, nil
}

// GetCheckoutSession busca a sessão para a página de sucesso exibir o resultado.
func (s *CheckoutService) GetCheckoutSession(ctx context.Context, sessionID string) (*stripe.CheckoutSession, error) {
	if sessionID == "" {
		return nil, ErrSessionIDRequired
	}
	sess, err := s.provider.GetCheckoutSession(ctx, sessionID)
	if err != nil {
		return nil, &UpstreamError{Op: "retrieve checkout session", Err: err}
	}
	return sess, nil
}

// CreatePortalSession abre o portal de cobrança para o cliente da sessão de checkout.
// Usar a sessão de checkout para achar o cliente é simplificação de demo;
// o ID do cliente também fica salvo no usuário.
func (s *CheckoutService) CreatePortalSession(ctx context.Context, sessionID string) (string, error) {
	checkoutSession, err := s.GetCheckoutSession(ctx, sessionID)
	if err != nil {
		return "", err
	}
	if checkoutSession.Customer == nil || checkoutSession.Customer.ID == "" {
		return "", ErrNoCustomer
	}

	portal, err := s.provider.CreatePortalSession(ctx, checkoutSession.Customer.ID, s.cfg.Domain)
	if err != nil {
		slog.Error("Falha ao criar a sessão do portal de cobrança", "error", err, "customer_id", checkoutSession.Customer.ID)
		return "", &UpstreamError{Op: "create billing portal session", Err: err}
	}
	return portal.URL, nil
}
