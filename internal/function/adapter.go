// Package function expõe o mesmo handler HTTP do servidor como uma function sob demanda
// (AWS Lambda / Netlify Functions), convertendo eventos do API Gateway em *http.Request.
package function

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/aws/aws-lambda-go/events"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	httphandler "github.com/willjrcristo/checkout-subscription/internal/handler/http"
)

// APIPrefix é onde as rotas ficam montadas dentro da function.
const APIPrefix = "/api"

// netlifyPrefix é o caminho interno das functions; reescrevemos para APIPrefix.
const netlifyPrefix = "/.netlify/functions/"

// NewRouter monta as rotas de checkout sob /api. A function não serve estáticos nem métricas.
func NewRouter(h *httphandler.CheckoutHandler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Mount(APIPrefix, h.Routes())
	return r
}

// Adapter converte eventos do API Gateway em requisições HTTP para um http.Handler.
type Adapter struct {
	handler http.Handler
}

func NewAdapter(h http.Handler) *Adapter {
	return &Adapter{handler: h}
}

// Handle é a função registrada em lambda.Start.
func (a *Adapter) Handle(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	httpReq, err := toHTTPRequest(ctx, req)
	if err != nil {
		return events.APIGatewayProxyResponse{
			StatusCode: http.StatusBadRequest,
			Headers:    map[string]string{"Content-Type": "application/json"},
			Body:       `{"error":{"message":"Invalid request"}}`,
		}, nil
	}

	rw := newResponseWriter()
	a.handler.ServeHTTP(rw, httpReq)
	return rw.proxyResponse(), nil
}

func toHTTPRequest(ctx context.Context, req events.APIGatewayProxyRequest) (*http.Request, error) {
	// O corpo precisa chegar byte a byte igual ao enviado, senão a assinatura do webhook não bate.
	body := []byte(req.Body)
	if req.IsBase64Encoded {
		decoded, err := base64.StdEncoding.DecodeString(req.Body)
		if err != nil {
			return nil, fmt.Errorf("corpo base64 inválido: %w", err)
		}
		body = decoded
	}

	u := url.URL{Path: rewritePath(req.Path)}
	query := url.Values{}
	if len(req.MultiValueQueryStringParameters) > 0 {
		for k, vs := range req.MultiValueQueryStringParameters {
			for _, v := range vs {
				query.Add(k, v)
			}
		}
	} else {
		for k, v := range req.QueryStringParameters {
			query.Set(k, v)
		}
	}
	u.RawQuery = query.Encode()

	method := req.HTTPMethod
	if method == "" {
		method = http.MethodGet
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, u.String(), bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	if len(req.MultiValueHeaders) > 0 {
		for k, vs := range req.MultiValueHeaders {
			for _, v := range vs {
				httpReq.Header.Add(k, v)
			}
		}
	} else {
		for k, v := range req.Headers {
			httpReq.Header.Set(k, v)
		}
	}
	if host := httpReq.Header.Get("Host"); host != "" {
		httpReq.Host = host
	}
	httpReq.RemoteAddr = req.RequestContext.Identity.SourceIP
	return httpReq, nil
}

// rewritePath troca /.netlify/functions/<nome>/x por /api/x. Caminhos que já chegam como /api/x
// (via regra de redirect) passam direto.
func rewritePath(p string) string {
	if !strings.HasPrefix(p, netlifyPrefix) {
		return p
	}
	rest := strings.TrimPrefix(p, netlifyPrefix)
	if i := strings.Index(rest, "/"); i >= 0 {
		return APIPrefix + rest[i:]
	}
	return APIPrefix
}

// responseWriter acumula a resposta em memória para virar um APIGatewayProxyResponse.
type responseWriter struct {
	header http.Header
	body   bytes.Buffer
	status int
}

func newResponseWriter() *responseWriter {
	return &responseWriter{header: make(http.Header)}
}

func (w *responseWriter) Header() http.Header {
	return w.header
}

func (w *responseWriter) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	return w.body.Write(b)
}

func (w *responseWriter) WriteHeader(code int) {
	if w.status != 0 {
		return
	}
	w.status = code
}

func (w *responseWriter) proxyResponse() events.APIGatewayProxyResponse {
	status := w.status
	if status == 0 {
		status = http.StatusOK
	}

	single := make(map[string]string, len(w.header))
	for k, vs := range w.header {
		if len(vs) > 0 {
			single[k] = vs[0]
		}
	}

	resp := events.APIGatewayProxyResponse{
		StatusCode:        status,
		Headers:           single,
		MultiValueHeaders: map[string][]string(w.header),
	}
	if utf8.Valid(w.body.Bytes()) {
		resp.Body = w.body.String()
	} else {
		resp.Body = base64.StdEncoding.EncodeToString(w.body.Bytes())
		resp.IsBase64Encoded = true
	}
	return resp
}
