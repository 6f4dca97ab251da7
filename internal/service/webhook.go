package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/stripe/stripe-go/v78"
	"github.com/stripe/stripe-go/v78/webhook"

	"github.com/willjrcristo/checkout-subscription/internal/domain"
)

// checkout_webhook_events_total conta os eventos recebidos por tipo e resultado.
// Tipos que não tratamos entram como "other" para não explodir a cardinalidade.
var webhookEventsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "checkout_webhook_events_total",
		Help: "Eventos de webhook da Stripe processados, por tipo e resultado.",
	},
	[]string{"type", "outcome"},
)

// HandleWebhook verifica, classifica e aplica um evento da Stripe.
//
// Só devolve erro quando o evento não é autêntico (ErrWebhookSignature / ErrWebhookPayload).
// Falhas no banco são logadas e engolidas: responder erro faria a Stripe reenviar um evento
// que não vai dar certo na próxima tentativa.
func (s *CheckoutService) HandleWebhook(ctx context.Context, payload []byte, signature string) (domain.Outcome, error) {
	event, err := s.VerifyEvent(payload, signature)
	if err != nil {
		webhookEventsTotal.WithLabelValues("unknown", "rejected").Inc()
		return "", err
	}

	ev, err := ClassifyEvent(event)
	if err != nil {
		slog.Error("Evento da Stripe com objeto inválido", "error", err, "event_id", event.ID, "event_type", event.Type)
		webhookEventsTotal.WithLabelValues(string(event.Type), string(domain.OutcomeFailed)).Inc()
		return domain.OutcomeFailed, nil
	}

	outcome := s.apply(ctx, ev)
	label := ev.EventType()
	if _, ignored := ev.(domain.IgnoredEvent); ignored {
		label = "other"
	}
	webhookEventsTotal.WithLabelValues(label, string(outcome)).Inc()
	return outcome, nil
}

// VerifyEvent é a porta de autenticidade do webhook.
//
// Sem STRIPE_WEBHOOK_SECRET o evento é lido direto do corpo, sem verificação nenhuma.
// Esse modo existe só para desenvolvimento local: em produção qualquer um poderia liberar premium.
func (s *CheckoutService) VerifyEvent(payload []byte, signature string) (stripe.Event, error) {
	if !s.cfg.WebhookSigningEnabled() {
		event, err := parseUnverifiedEvent(payload)
		if err != nil {
			slog.Warn("⚠️  Corpo do webhook inválido", "error", err)
			return stripe.Event{}, ErrWebhookPayload
		}
		return event, nil
	}

	// A versão da API do endpoint no dashboard pode ser diferente da versão fixada no SDK;
	// só lemos campos estáveis do objeto, então ignoramos a diferença.
	event, err := webhook.ConstructEventWithOptions(payload, signature, s.cfg.StripeWebhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		slog.Warn("⚠️  Falha na verificação da assinatura do webhook", "error", err)
		return stripe.Event{}, ErrWebhookSignature
	}
	return event, nil
}

// parseUnverifiedEvent lê o evento sem passar pelo EventData.UnmarshalJSON da Stripe,
// que rejeita o corpo inteiro quando data.object falta ou não é um objeto.
// Nesses casos o evento segue sem data e a classificação decide o que fazer.
func parseUnverifiedEvent(payload []byte) (stripe.Event, error) {
	var raw struct {
		ID   string           `json:"id"`
		Type stripe.EventType `json:"type"`
		Data json.RawMessage  `json:"data"`
	}
	if err := json.Unmarshal(payload, &raw); err != nil {
		return stripe.Event{}, err
	}

	event := stripe.Event{ID: raw.ID, Type: raw.Type}
	var data struct {
		Object json.RawMessage `json:"object"`
	}
	if json.Unmarshal(raw.Data, &data) == nil && isJSONObject(data.Object) {
		event.Data = &stripe.EventData{Raw: data.Object}
	}
	return event, nil
}

func isJSONObject(b json.RawMessage) bool {
	b = bytes.TrimSpace(b)
	return len(b) > 0 && b[0] == '{'
}

// ClassifyEvent transforma o evento da Stripe na nossa variante fechada.
func ClassifyEvent(event stripe.Event) (domain.WebhookEvent, error) {
	switch string(event.Type) {
	case domain.EventCheckoutSessionCompleted:
		var sess stripe.CheckoutSession
		if err := decodeObject(event, &sess); err != nil {
			return nil, err
		}
		ev := domain.CheckoutCompleted{UserID: sess.Metadata["userId"]}
		if sess.Customer != nil {
			ev.CustomerID = sess.Customer.ID
		}
		if sess.Subscription != nil {
			ev.SubscriptionID = sess.Subscription.ID
		}
		return ev, nil

	case domain.EventCustomerSubscriptionDeleted:
		var sub stripe.Subscription
		if err := decodeObject(event, &sub); err != nil {
			return nil, err
		}
		ev := domain.SubscriptionDeleted{}
		if sub.Customer != nil {
			ev.CustomerID = sub.Customer.ID
		}
		return ev, nil

	default:
		return domain.IgnoredEvent{Type: string(event.Type)}, nil
	}
}

func decodeObject(event stripe.Event, v any) error {
	if event.Data == nil || len(event.Data.Raw) == 0 {
		return fmt.Errorf("evento %s sem data.object", event.Type)
	}
	if err := json.Unmarshal(event.Data.Raw, v); err != nil {
		return fmt.Errorf("decodificando data.object de %s: %w", event.Type, err)
	}
	return nil
}

func (s *CheckoutService) apply(ctx context.Context, ev domain.WebhookEvent) domain.Outcome {
	switch e := ev.(type) {
	case domain.CheckoutCompleted:
		return s.grantPremium(ctx, e)
	case domain.SubscriptionDeleted:
		return s.revokePremium(ctx, e)
	case domain.IgnoredEvent:
		slog.Info("Webhook da Stripe recebido, mas não tratado", "event_type", e.Type)
		return domain.OutcomeIgnored
	default:
		slog.Warn("Tipo de evento interno desconhecido", "event", fmt.Sprintf("%T", ev))
		return domain.OutcomeIgnored
	}
}

// grantPremium sobrescreve o estado do usuário com valores absolutos. Reaplicar o mesmo
// evento leva ao mesmo estado, então reentregas da Stripe são seguras.
func (s *CheckoutService) grantPremium(ctx context.Context, e domain.CheckoutCompleted) domain.Outcome {
	slog.Info("🔔  Pagamento recebido!", "customer_id", e.CustomerID)

	if e.UserID == "" {
		slog.Info("Sessão de checkout sem userId no metadata, nada a fazer", "customer_id", e.CustomerID)
		return domain.OutcomeSkipped
	}

	if err := s.repo.GrantPremium(ctx, e.UserID, e.CustomerID, e.SubscriptionID); err != nil {
		slog.Error("❌ Erro ao atualizar usuário", "error", err, "user_id", e.UserID)
		return domain.OutcomeFailed
	}
	slog.Info("✅ Usuário promovido a premium", "user_id", e.UserID)
	return domain.OutcomeGranted
}

func (s *CheckoutService) revokePremium(ctx context.Context, e domain.SubscriptionDeleted) domain.Outcome {
	slog.Info("🔔  Assinatura cancelada!", "customer_id", e.CustomerID)

	userID, err := s.repo.FindUserIDByStripeCustomerID(ctx, e.CustomerID)
	if err != nil {
		slog.Error("❌ Erro ao revogar premium", "error", err, "customer_id", e.CustomerID)
		return domain.OutcomeFailed
	}
	if userID == "" {
		slog.Info("Nenhum usuário com este customer id, nada a fazer", "customer_id", e.CustomerID)
		return domain.OutcomeSkipped
	}

	if err := s.repo.RevokePremium(ctx, userID); err != nil {
		slog.Error("❌ Erro ao revogar premium", "error", err, "customer_id", e.CustomerID, "user_id", userID)
		return domain.OutcomeFailed
	}
	slog.Info("✅ Premium revogado", "customer_id", e.CustomerID, "user_id", userID)
	return domain.OutcomeRevoked
}
