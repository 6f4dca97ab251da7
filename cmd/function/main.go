package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/aws/aws-lambda-go/lambda"

	"github.com/willjrcristo/checkout-subscription/internal/config"
	"github.com/willjrcristo/checkout-subscription/internal/function"
	httphandler "github.com/willjrcristo/checkout-subscription/internal/handler/http"
	"github.com/willjrcristo/checkout-subscription/internal/payment"
	"github.com/willjrcristo/checkout-subscription/internal/repository"
	"github.com/willjrcristo/checkout-subscription/internal/service"
)

// A function expõe as mesmas rotas do servidor sob /api. Os clientes da Stripe e do banco
// são criados uma vez por cold start e reaproveitados entre invocações.
func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		slog.Error("Erro na configuração", "error", err)
		os.Exit(1)
	}
	if !cfg.WebhookSigningEnabled() {
		slog.Warn("⚠️  STRIPE_WEBHOOK_SECRET não definido: eventos do webhook NÃO serão verificados.")
	}

	store, err := repository.Open(context.Background(), cfg)
	if err != nil {
		slog.Error("Erro ao inicializar o banco de dados", "error", err, "driver", cfg.StoreDriver)
		os.Exit(1)
	}

	checkoutService := service.NewCheckoutService(cfg, payment.NewStripeClient(cfg.StripeSecretKey), store)
	checkoutHandler := httphandler.NewCheckoutHandler(checkoutService, httphandler.Options{})

	lambda.Start(function.NewAdapter(function.NewRouter(checkoutHandler)).Handle)
}
