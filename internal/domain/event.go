package domain

// Tipos de evento da Stripe que o webhook trata. Qualquer outro tipo é aceito e ignorado.
const (
	EventCheckoutSessionCompleted    = "checkout.session.completed"
	EventCustomerSubscriptionDeleted = "customer.subscription.deleted"
)

// WebhookEvent é a variante fechada dos eventos que chegam pelo webhook.
// Só os tipos deste pacote implementam o método marcador.
type WebhookEvent interface {
	EventType() string
	webhookEvent()
}

// CheckoutCompleted concede o premium ao usuário indicado em metadata.userId.
type CheckoutCompleted struct {
	UserID         string
	CustomerID     string
	SubscriptionID string
}

// SubscriptionDeleted revoga o premium do usuário ligado ao cliente Stripe.
type SubscriptionDeleted struct {
	CustomerID string
}

// IgnoredEvent é qualquer evento que não nos interessa.
type IgnoredEvent struct {
	Type string
}

func (CheckoutCompleted) EventType() string   { return EventCheckoutSessionCompleted }
func (SubscriptionDeleted) EventType() string { return EventCustomerSubscriptionDeleted }
func (e IgnoredEvent) EventType() string      { return e.Type }

func (CheckoutCompleted) webhookEvent()   {}
func (SubscriptionDeleted) webhookEvent() {}
func (IgnoredEvent) webhookEvent()        {}

// Outcome é o resultado do processamento de um evento, usado em logs e métricas.
type Outcome string

const (
	OutcomeGranted Outcome = "granted"
	OutcomeRevoked Outcome = "revoked"
	OutcomeSkipped Outcome = "skipped"
	OutcomeFailed  Outcome = "failed"
	OutcomeIgnored Outcome = "ignored"
)
