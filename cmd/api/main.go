package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/willjrcristo/checkout-subscription/docs" // Registra a especificação Swagger

	"github.com/willjrcristo/checkout-subscription/internal/config"
	httphandler "github.com/willjrcristo/checkout-subscription/internal/handler/http"
	"github.com/willjrcristo/checkout-subscription/internal/payment"
	"github.com/willjrcristo/checkout-subscription/internal/repository"
	"github.com/willjrcristo/checkout-subscription/internal/service"
)

// @title           API de Checkout de Assinaturas
// @version         1.0
// @description     Checkout de assinaturas com Stripe e liberação de premium via webhook.
//
// @contact.name   Will Cristo
// @contact.url    https://linkedin.com/in/willjrcristo
// @contact.email  willjrcristo@gmail.com
//
// @license.name  Apache 2.0
// @license.url   http://www.apache.org/licenses/LICENSE-2.0.html
//
// @host      localhost:4242
// @BasePath  /
func main() {
	// --- 1. CONFIGURAÇÃO DO LOGGER ---
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)
	slog.Info("🚀 Iniciando a API de Checkout...")

	// --- 2. CONFIGURAÇÃO ---
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		slog.Error("Erro na configuração", "error", err)
		os.Exit(1)
	}
	if !cfg.WebhookSigningEnabled() {
		slog.Warn("⚠️  STRIPE_WEBHOOK_SECRET não definido: eventos do webhook NÃO serão verificados. Use só em desenvolvimento.")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- 3. INJEÇÃO DE DEPENDÊNCIAS (WIRING) ---
	// Store -> Service <- Stripe; Service -> Handler
	store, err := repository.Open(ctx, cfg)
	if err != nil {
		slog.Error("Erro ao inicializar o banco de dados", "error", err, "driver", cfg.StoreDriver)
		os.Exit(1)
	}
	defer store.Close()
	slog.Info("💾 Conexão com o banco de dados estabelecida com sucesso.", "driver", cfg.StoreDriver)

	stripeClient := payment.NewStripeClient(cfg.StripeSecretKey)
	checkoutService := service.NewCheckoutService(cfg, stripeClient, store)
	checkoutHandler := httphandler.NewCheckoutHandler(checkoutService, httphandler.Options{RedirectOnSession: true})

	// --- 4. CONFIGURAÇÃO DO ROTEADOR E ROTAS ---
	r := newRouter(cfg, checkoutHandler)
	if cfg.StaticDir != "" {
		slog.Info("📁 Servindo arquivos estáticos", "dir", cfg.StaticDir)
	}

	// --- 5. INICIALIZAÇÃO DO SERVIDOR HTTP ---
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("Erro ao desligar o servidor", "error", err)
		}
	}()

	slog.Info("✅ Servidor pronto para receber requisições", "addr", cfg.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Erro ao iniciar o servidor", "error", err)
		os.Exit(1)
	}
	// Espera as requisições em andamento terminarem antes de fechar o banco.
	<-shutdownDone
	slog.Info("👋 Servidor encerrado")
}
