package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/stripe/stripe-go/v78"

	"github.com/willjrcristo/checkout-subscription/internal/domain"
	"github.com/willjrcristo/checkout-subscription/internal/service"
)

// Limite do corpo do webhook. Eventos da Stripe são bem menores que isso.
const maxWebhookBodyBytes = int64(65536)

// CheckoutService é o que o handler precisa da camada de serviço.
// O handler depende desta interface, não da implementação concreta.
type CheckoutService interface {
	Config() service.PublicConfig
	CreateCheckoutSession(ctx context.Context, req service.CheckoutRequest) (string, error)
	GetCheckoutSession(ctx context.Context, sessionID string) (*stripe.CheckoutSession, error)
	CreatePortalSession(ctx context.Context, sessionID string) (string, error)
	HandleWebhook(ctx context.Context, payload []byte, signature string) (domain.Outcome, error)
}

// Options muda o comportamento entre o servidor e a function.
type Options struct {
	// RedirectOnSession responde 303 para a URL da Stripe em vez de {"url": ...}.
	// O servidor recebe posts de formulário do navegador; a function é chamada via fetch.
	RedirectOnSession bool
}

// CheckoutHandler lida com as rotas de checkout, portal e webhook.
// É o mesmo handler para o servidor e para a function; só muda onde ele é montado.
type CheckoutHandler struct {
	service CheckoutService
	opts    Options
}

// NewCheckoutHandler cria uma nova instância do CheckoutHandler.
func NewCheckoutHandler(s CheckoutService, opts Options) *CheckoutHandler {
	return &CheckoutHandler{
		service: s,
		opts:    opts,
	}
}

// Routes define e retorna todas as rotas que este handler gerencia.
func (h *CheckoutHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/config", h.GetConfig)
	r.Get("/checkout-session", h.GetCheckoutSession)
	r.Post("/create-checkout-session", h.CreateCheckoutSession)
	r.Post("/customer-portal", h.CreatePortalSession)
	r.Post("/webhook", h.HandleStripeWebhook)

	return r
}

// @Summary      Configuração pública do checkout
// @Description  Chave publicável e IDs de preço usados pelo widget de checkout
// @Tags         checkout
// @Produce      json
// @Success      200  {object}  service.PublicConfig
// @Router       /config [get]
func (h *CheckoutHandler) GetConfig(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, h.service.Config())
}

// @Summary      Busca uma sessão de checkout
// @Description  Devolve a sessão de checkout da Stripe para a página de sucesso
// @Tags         checkout
// @Produce      json
// @Param        sessionId  query     string  true  "ID da sessão de checkout"
// @Success      200        {object}  map[string]interface{}
// @Failure      400        {object}  errorResponse
// @Router       /checkout-session [get]
func (h *CheckoutHandler) GetCheckoutSession(w http.ResponseWriter, r *http.Request) {
	sess, err := h.service.GetCheckoutSession(r.Context(), r.URL.Query().Get("sessionId"))
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	// Devolvemos o JSON da Stripe como veio. Re-serializar o tipo transforma
	// "customer":"cus_..." num objeto inteiro de valores zero.
	if sess.LastResponse != nil && len(sess.LastResponse.RawJSON) > 0 {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write(sess.LastResponse.RawJSON)
		return
	}
	respondWithJSON(w, http.StatusOK, sess)
}

// @Summary      Cria uma sessão de checkout na Stripe
// @Description  Gera a URL de pagamento de uma assinatura para o usuário
// @Tags         checkout
// @Accept       json
// @Accept       x-www-form-urlencoded
// @Produce      json
// @Param        body  body      service.CheckoutRequest  true  "Preço e usuário"
// @Success      200   {object}  urlResponse
// @Success      303   {string}  string  "Redireciona para a Stripe"
// @Failure      400   {object}  errorResponse
// @Router       /create-checkout-session [post]
func (h *CheckoutHandler) CreateCheckoutSession(w http.ResponseWriter, r *http.Request) {
	var req service.CheckoutRequest
	if isForm(r) {
		req.PriceID = r.PostFormValue("priceId")
		req.UserID = r.PostFormValue("userId")
	} else if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	url, err := h.service.CreateCheckoutSession(r.Context(), req)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	h.respondWithSessionURL(w, r, url)
}

// @Summary      Abre o portal de cobrança
// @Description  Cria uma sessão do portal de cobrança para o cliente da sessão de checkout
// @Tags         checkout
// @Accept       json
// @Accept       x-www-form-urlencoded
// @Produce      json
// @Param        body  body      portalRequest  true  "Sessão de checkout"
// @Success      200   {object}  urlResponse
// @Success      303   {string}  string  "Redireciona para o portal"
// @Failure      400   {object}  errorResponse
// @Router       /customer-portal [post]
func (h *CheckoutHandler) CreatePortalSession(w http.ResponseWriter, r *http.Request) {
	var req portalRequest
	if isForm(r) {
		req.SessionID = r.PostFormValue("sessionId")
	} else if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	url, err := h.service.CreatePortalSession(r.Context(), req.SessionID)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	h.respondWithSessionURL(w, r, url)
}

// @Summary      Webhook da Stripe
// @Description  Recebe eventos assíncronos da Stripe e atualiza o premium do usuário
// @Tags         webhook
// @Accept       json
// @Param        Stripe-Signature  header  string  false  "Assinatura do evento"
// @Success      200
// @Failure      400  {object}  errorResponse
// @Router       /webhook [post]
func (h *CheckoutHandler) HandleStripeWebhook(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxWebhookBodyBytes)

	// A verificação da assinatura precisa do corpo cru, byte a byte.
	payload, err := io.ReadAll(r.Body)
	if err != nil {
		slog.Error("Erro ao ler o corpo do webhook", "error", err)
		respondWithError(w, http.StatusServiceUnavailable, "Error reading request body")
		return
	}

	signature := r.Header.Get("Stripe-Signature")

	outcome, err := h.service.HandleWebhook(r.Context(), payload, signature)
	if err != nil {
		if errors.Is(err, service.ErrWebhookSignature) || errors.Is(err, service.ErrWebhookPayload) {
			respondWithError(w, http.StatusBadRequest, err.Error())
		} else {
			respondWithError(w, http.StatusInternalServerError, "Internal Server Error")
		}
		return
	}

	slog.Debug("Webhook processado", "outcome", outcome)
	// Responda com 200 OK para a Stripe saber que recebemos o evento com sucesso,
	// mesmo que a atualização do usuário tenha falhado.
	w.WriteHeader(http.StatusOK)
}

// --- TIPOS DE REQUISIÇÃO/RESPOSTA ---

type portalRequest struct {
	SessionID string `json:"sessionId"`
}

type urlResponse struct {
	URL string `json:"url"`
}

type errorMessage struct {
	Message string `json:"message"`
}

type errorResponse struct {
	Error errorMessage `json:"error"`
}

// --- FUNÇÕES AUXILIARES ---

func (h *CheckoutHandler) respondWithSessionURL(w http.ResponseWriter, r *http.Request, url string) {
	if h.opts.RedirectOnSession {
		http.Redirect(w, r, url, http.StatusSeeOther)
		return
	}
	respondWithJSON(w, http.StatusOK, urlResponse{URL: url})
}

func isForm(r *http.Request) bool {
	mt, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return mt == "application/x-www-form-urlencoded" || mt == "multipart/form-data"
}

// decodeJSON aceita corpo vazio como objeto vazio, assim um POST sem corpo
// cai na validação do serviço em vez de virar erro de parse.
func decodeJSON(r *http.Request, dst any) error {
	err := json.NewDecoder(r.Body).Decode(dst)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

// respondWithServiceError mapeia os erros do serviço para status HTTP.
// Validação e falhas da Stripe viram 400 com a mensagem original.
func respondWithServiceError(w http.ResponseWriter, err error) {
	var upstream *service.UpstreamError
	switch {
	case errors.Is(err, service.ErrUserIDRequired),
		errors.Is(err, service.ErrSessionIDRequired),
		errors.Is(err, service.ErrNoCustomer):
		respondWithError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &upstream):
		respondWithError(w, http.StatusBadRequest, upstream.Error())
	default:
		slog.Error("Erro inesperado", "error", err)
		respondWithError(w, http.StatusInternalServerError, "Internal Server Error")
	}
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	slog.Error("API Error", "code", code, "message", message)
	respondWithJSON(w, code, errorResponse{Error: errorMessage{Message: message}})
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		slog.Error("Failed to marshal JSON response", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("Internal Server Error"))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}
