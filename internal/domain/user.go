package domain

import "time"

// SubscriptionTypeStripe identifica o provedor de pagamento no registro do usuário.
const SubscriptionTypeStripe = "stripe"

// User é o registro do usuário guardado no banco de documentos.
// O ID é fornecido pelo cliente (não é gerado aqui) e é a chave do documento.
type User struct {
	ID string `json:"id" firestore:"-"`

	// Flag de acesso premium, a única coisa que o fluxo de webhook altera.
	IsPremium bool `json:"isPremium" firestore:"isPremium"`

	// nil ao conceder; "agora" ao revogar. Funciona só como marcador, não é uma data de expiração real.
	PremiumExpiryDate *time.Time `json:"premiumExpiryDate" firestore:"premiumExpiryDate"`

	SubscriptionType string `json:"subscriptionType,omitempty" firestore:"subscriptionType,omitempty"`

	// IDs do cliente ("cus_...") e da assinatura ("sub_...") na Stripe.
	// O StripeCustomerID é a chave de busca quando a assinatura é cancelada.
	StripeCustomerID     string `json:"stripeCustomerId,omitempty" firestore:"stripeCustomerId,omitempty"`
	StripeSubscriptionID string `json:"stripeSubscriptionId,omitempty" firestore:"stripeSubscriptionId,omitempty"`

	UpdatedAt time.Time `json:"updatedAt" firestore:"updatedAt"`
}
