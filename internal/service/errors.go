package service

import (
	"errors"

	"github.com/stripe/stripe-go/v78"
)

// Erros de validação. As mensagens voltam para o cliente como estão.
var (
	ErrUserIDRequired    = errors.New("User ID is required")
	ErrSessionIDRequired = errors.New("Session ID is required")
	ErrNoCustomer        = errors.New("Checkout session has no customer")
)

// Erros de autenticidade do webhook: respondemos 400 e não alteramos nada.
var (
	ErrWebhookSignature = errors.New("webhook signature verification failed")
	ErrWebhookPayload   = errors.New("webhook payload could not be parsed")
)

// UpstreamError embrulha uma falha da Stripe.
type UpstreamError struct {
	Op  string
	Err error
}

// Error devolve a mensagem do provedor. O *stripe.Error serializa o corpo inteiro em Error(),
// então usamos só o campo Msg quando ele existe.
func (e *UpstreamError) Error() string {
	var serr *stripe.Error
	if errors.As(e.Err, &serr) && serr.Msg != "" {
		return serr.Msg
	}
	return e.Err.Error()
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}
