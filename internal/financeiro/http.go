package financeiro

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	httpmiddleware "github.com/comunidadegraca/portal/internal/http/middleware"
)

// ServiceProvider expõe as operações do livro-caixa.
type ServiceProvider interface {
	CreateTransacao(ctx context.Context, input CreateTransacaoInput) (*Transacao, error)
	ListTransacoes(ctx context.Context, filter TransacaoFilter) ([]Transacao, error)
}

// Handler expõe endpoints REST do financeiro.
type Handler struct {
	service ServiceProvider
}

func NewHandler(service ServiceProvider) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/transacoes", h.listTransacoes)
	r.Post("/transacoes", h.createTransacao)
}

// Mount registra rotas do financeiro.
func Mount(r chi.Router, handler *Handler) {
	handler.RegisterRoutes(r)
}

func (h *Handler) listTransacoes(w http.ResponseWriter, r *http.Request) {
	filter := TransacaoFilter{
		Tipo:        r.URL.Query().Get("tipo"),
		TipoTitular: r.URL.Query().Get("tipo_titular"),
	}
	if titularStr := r.URL.Query().Get("titular_id"); titularStr != "" {
		titularID, err := uuid.Parse(titularStr)
		if err != nil {
			writeError(w, http.StatusBadRequest, "VALIDATION", "titular inválido", nil)
			return
		}
		filter.TitularID = &titularID
	}
	if inicioStr := r.URL.Query().Get("inicio"); inicioStr != "" {
		inicio, err := time.Parse("2006-01-02", inicioStr)
		if err != nil {
			writeError(w, http.StatusBadRequest, "VALIDATION", "data inicial inválida", nil)
			return
		}
		filter.Inicio = &inicio
	}
	if fimStr := r.URL.Query().Get("fim"); fimStr != "" {
		fim, err := time.Parse("2006-01-02", fimStr)
		if err != nil {
			writeError(w, http.StatusBadRequest, "VALIDATION", "data final inválida", nil)
			return
		}
		filter.Fim = &fim
	}
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		filter.Limit, _ = strconv.Atoi(limitStr)
	}
	if offsetStr := r.URL.Query().Get("offset"); offsetStr != "" {
		filter.Offset, _ = strconv.Atoi(offsetStr)
	}

	transacoes, err := h.service.ListTransacoes(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "INTERNAL", "não foi possível listar transações", nil)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"transacoes": transacoes})
}

func (h *Handler) createTransacao(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Tipo          string     `json:"tipo"`
		ValorCentavos int64      `json:"valor_centavos"`
		Descricao     *string    `json:"descricao"`
		TipoTitular   *string    `json:"tipo_titular"`
		TitularID     *uuid.UUID `json:"titular_id"`
		DataTransacao string     `json:"data_transacao"`
	}

	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION", "payload inválido", nil)
		return
	}

	if !IsValidTipo(payload.Tipo) {
		writeError(w, http.StatusBadRequest, "VALIDATION", ErrInvalidTipo.Error(), nil)
		return
	}
	if payload.ValorCentavos <= 0 {
		writeError(w, http.StatusBadRequest, "VALIDATION", ErrInvalidValor.Error(), nil)
		return
	}

	dataTransacao := time.Now()
	if payload.DataTransacao != "" {
		parsed, err := time.Parse("2006-01-02", payload.DataTransacao)
		if err != nil {
			writeError(w, http.StatusBadRequest, "VALIDATION", "data da transação inválida", nil)
			return
		}
		dataTransacao = parsed
	}

	var registradoPor *uuid.UUID
	if subject := httpmiddleware.GetSubject(r.Context()); subject != "" {
		if id, err := uuid.Parse(subject); err == nil {
			registradoPor = &id
		}
	}

	transacao, err := h.service.CreateTransacao(r.Context(), CreateTransacaoInput{
		Tipo:          payload.Tipo,
		ValorCentavos: payload.ValorCentavos,
		Descricao:     payload.Descricao,
		TipoTitular:   payload.TipoTitular,
		TitularID:     payload.TitularID,
		DataTransacao: dataTransacao,
		RegistradoPor: registradoPor,
	})
	if err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION", err.Error(), nil)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{"transacao": transacao})
}

type successEnvelope struct {
	Data any `json:"data"`
}

type errorEnvelope struct {
	Data  any        `json:"data"`
	Error *errorBody `json:"error"`
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(successEnvelope{Data: data})
}

func writeError(w http.ResponseWriter, status int, code, message string, details any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorEnvelope{
		Data: nil,
		Error: &errorBody{
			Code:    code,
			Message: message,
			Details: details,
		},
	})
}
