package diaconia

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

// ServiceProvider expõe as operações da assistência diaconal.
type ServiceProvider interface {
	CreateAcao(ctx context.Context, input CreateAcaoInput) (*Acao, error)
	ListRecentes(ctx context.Context, limit, offset int) ([]Acao, error)
	ListByBeneficiario(ctx context.Context, tipoBeneficiario string, beneficiarioID uuid.UUID) ([]Acao, error)
}

// Handler expõe endpoints REST da assistência diaconal.
type Handler struct {
	service ServiceProvider
}

func NewHandler(service ServiceProvider) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/acoes", h.listAcoes)
	r.Post("/acoes", h.createAcao)
}

// Mount registra rotas da assistência diaconal.
func Mount(r chi.Router, handler *Handler) {
	handler.RegisterRoutes(r)
}

func (h *Handler) listAcoes(w http.ResponseWriter, r *http.Request) {
	tipoBeneficiario := r.URL.Query().Get("tipo_beneficiario")
	beneficiarioStr := r.URL.Query().Get("beneficiario_id")

	if tipoBeneficiario != "" && beneficiarioStr != "" {
		beneficiarioID, err := uuid.Parse(beneficiarioStr)
		if err != nil {
			writeError(w, http.StatusBadRequest, "VALIDATION", "beneficiário inválido", nil)
			return
		}

		acoes, err := h.service.ListByBeneficiario(r.Context(), tipoBeneficiario, beneficiarioID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "INTERNAL", "não foi possível listar ações", nil)
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{"acoes": acoes})
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	acoes, err := h.service.ListRecentes(r.Context(), limit, offset)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "INTERNAL", "não foi possível listar ações", nil)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"acoes": acoes})
}

func (h *Handler) createAcao(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		TipoBeneficiario string  `json:"tipo_beneficiario"`
		BeneficiarioID   string  `json:"beneficiario_id"`
		TipoAcao         string  `json:"tipo_acao"`
		Descricao        *string `json:"descricao"`
		ValorCentavos    *int64  `json:"valor_centavos"`
		DataAcao         string  `json:"data_acao"`
	}

	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION", "payload inválido", nil)
		return
	}

	beneficiarioID, err := uuid.Parse(payload.BeneficiarioID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION", "beneficiário inválido", nil)
		return
	}

	if !IsValidTipo(payload.TipoAcao) {
		writeError(w, http.StatusBadRequest, "VALIDATION", ErrInvalidTipo.Error(), nil)
		return
	}

	dataAcao := time.Now()
	if payload.DataAcao != "" {
		parsed, err := time.Parse("2006-01-02", payload.DataAcao)
		if err != nil {
			writeError(w, http.StatusBadRequest, "VALIDATION", "data da ação inválida", nil)
			return
		}
		dataAcao = parsed
	}

	var responsavelID *uuid.UUID
	if subject := httpmiddleware.GetSubject(r.Context()); subject != "" {
		if id, err := uuid.Parse(subject); err == nil {
			responsavelID = &id
		}
	}

	acao, err := h.service.CreateAcao(r.Context(), CreateAcaoInput{
		TipoBeneficiario: payload.TipoBeneficiario,
		BeneficiarioID:   beneficiarioID,
		TipoAcao:         payload.TipoAcao,
		Descricao:        payload.Descricao,
		ValorCentavos:    payload.ValorCentavos,
		ResponsavelID:    responsavelID,
		DataAcao:         dataAcao,
	})
	if err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION", err.Error(), nil)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{"acao": acao})
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
