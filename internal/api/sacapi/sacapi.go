// Package sacapi is the HTTP surface of sac-api: order lookup for the support
// panel and the webhook called by the bot orchestrator.
package sacapi

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/fidcomex/sacbox/internal/flow"
	"github.com/fidcomex/sacbox/internal/models"
	"github.com/fidcomex/sacbox/internal/services/orders"
	"github.com/fidcomex/sacbox/internal/storage/pgorders"
	"github.com/go-chi/chi/v5"
	"github.com/pkg/errors"
)

type OrderService interface {
	Search(ctx context.Context, term string, kind pgorders.SearchKind) ([]*models.OrderRecord, error)
	WithTracking(ctx context.Context, records []*models.OrderRecord) []*models.OrderRecord
}

type Dispatcher interface {
	Dispatch(ctx context.Context, req flow.Request) (flow.Result, error)
}

type Pinger interface {
	Ping(ctx context.Context) error
}

type API struct {
	orders     OrderService
	dispatcher Dispatcher
	db         Pinger
}

func New(svc OrderService, d Dispatcher, db Pinger) *API {
	return &API{orders: svc, dispatcher: d, db: db}
}

func (a *API) Routes(r chi.Router) {
	r.Get("/healthz", a.handleHealthz)
	r.Get("/readyz", a.handleReadyz)
	r.Get("/api/pedido/{identifier}", a.handleGetPedido)
	r.Post("/api/webhook", a.handleWebhook)
}

func (a *API) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (a *API) handleReadyz(w http.ResponseWriter, r *http.Request) {
	if a.db != nil {
		if err := a.db.Ping(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded", "error": err.Error()})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

type pedidosResponse struct {
	Pedidos []*models.OrderRecord `json:"pedidos"`
	Message string                `json:"message,omitempty"`
}

func (a *API) handleGetPedido(w http.ResponseWriter, r *http.Request) {
	identifier := strings.TrimSpace(chi.URLParam(r, "identifier"))
	if identifier == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "identificador ausente"})
		return
	}

	kind := orders.InferKind(identifier)
	recs, err := a.orders.Search(r.Context(), identifier, kind)
	if errors.Is(err, orders.ErrDocumentoInvalido) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "CPF/CNPJ inválido"})
		return
	}
	if err != nil {
		slog.Error("order lookup failed", "kind", string(kind), "error", err.Error())
		writeJSON(w, http.StatusInternalServerError, map[string]string{"message": "erro interno"})
		return
	}
	if len(recs) == 0 {
		writeJSON(w, http.StatusOK, pedidosResponse{Pedidos: []*models.OrderRecord{}, Message: "CPF/CNPJ não encontrado"})
		return
	}

	recs = a.orders.WithTracking(r.Context(), recs)
	writeJSON(w, http.StatusOK, pedidosResponse{Pedidos: recs})
}

type webhookBody struct {
	ContactID string `json:"contactId"`
	Command   string `json:"command"`
	SessionID string `json:"sessionId"`
	Message   struct {
		Text string `json:"text"`
	} `json:"message"`
}

// webhookEnvelope accepts both the canonical body and the data-wrapped form
// some orchestrator versions send.
type webhookEnvelope struct {
	webhookBody
	Data *webhookBody `json:"data"`
}

func (a *API) handleWebhook(w http.ResponseWriter, r *http.Request) {
	var env webhookEnvelope
	if err := json.NewDecoder(r.Body).Decode(&env); err != nil {
		writeJSON(w, http.StatusBadRequest, flow.Result{Flag: flow.FlagError, Message: "JSON inválido"})
		return
	}

	body := env.webhookBody
	if env.Data != nil && body.ContactID == "" && body.Command == "" {
		body = *env.Data
	}

	res, err := a.dispatcher.Dispatch(r.Context(), flow.Request{
		ContactID: body.ContactID,
		SessionID: body.SessionID,
		Command:   body.Command,
		Text:      body.Message.Text,
	})
	switch {
	case errors.Is(err, flow.ErrBadRequest):
		writeJSON(w, http.StatusBadRequest, res)
	case err != nil:
		writeJSON(w, http.StatusInternalServerError, res)
	default:
		writeJSON(w, http.StatusOK, res)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
