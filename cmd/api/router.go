package main

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/willjrcristo/checkout-subscription/internal/config"
	httphandler "github.com/willjrcristo/checkout-subscription/internal/handler/http"
)

// newRouter monta o roteador do servidor: middlewares, /metrics, /swagger e as rotas de checkout na raiz.
func newRouter(cfg config.Config, h *httphandler.CheckoutHandler) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(prometheusMiddleware)

	r.Handle("/metrics", promhttp.Handler())

	// A URL será http://localhost:4242/swagger/index.html
	r.Get("/swagger/*", httpSwagger.WrapHandler)

	routes := h.Routes()
	if cfg.StaticDir != "" {
		// Tudo que não for rota da API vira arquivo estático; "/" serve o index.html.
		routes.NotFound(http.FileServer(http.Dir(cfg.StaticDir)).ServeHTTP)
	}
	r.Mount("/", routes)

	return r
}
