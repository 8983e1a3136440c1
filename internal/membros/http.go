package membros

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	httpmiddleware "github.com/comunidadegraca/portal/internal/http/middleware"
)

// ServiceProvider expõe as operações do cadastro de pessoas.
type ServiceProvider interface {
	CreateMembro(ctx context.Context, input CreateMembroInput) (*Membro, error)
	GetMembro(ctx context.Context, id uuid.UUID) (*Membro, error)
	ListMembros(ctx context.Context, filter MembroFilter) ([]Membro, error)
	UpdateMembro(ctx context.Context, input UpdateMembroInput) (*Membro, error)
	AtualizarConsentimento(ctx context.Context, id uuid.UUID, novo bool, usuarioID *uuid.UUID, ip string) (*Membro, error)
	CreateVisitante(ctx context.Context, input CreateVisitanteInput) (*Visitante, error)
	GetVisitante(ctx context.Context, id uuid.UUID) (*Visitante, error)
	ListVisitantes(ctx context.Context, limit, offset int) ([]Visitante, error)
	CreateFamilia(ctx context.Context, nome string, endereco *string) (*Familia, error)
}

// Handler expõe endpoints REST do cadastro de pessoas.
type Handler struct {
	service ServiceProvider
}

func NewHandler(service ServiceProvider) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/membros", h.listMembros)
	r.Post("/membros", h.createMembro)
	r.Get("/membros/{membroID}", h.getMembro)
	r.Put("/membros/{membroID}", h.updateMembro)
	r.Put("/membros/{membroID}/consentimento", h.atualizarConsentimento)
	r.Get("/visitantes", h.listVisitantes)
	r.Post("/visitantes", h.createVisitante)
	r.Get("/visitantes/{visitanteID}", h.getVisitante)
	r.Post("/familias", h.createFamilia)
}

func (h *Handler) listMembros(w http.ResponseWriter, r *http.Request) {
	filter := MembroFilter{
		Nome:   r.URL.Query().Get("nome"),
		Limit:  queryInt(r, "limit"),
		Offset: queryInt(r, "offset"),
	}
	if ativoStr := r.URL.Query().Get("ativo"); ativoStr != "" {
		ativo := ativoStr == "true"
		filter.Ativo = &ativo
	}

	membros, err := h.service.ListMembros(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "INTERNAL", "não foi possível listar membros", nil)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"membros": membros})
}

type membroPayload struct {
	Nome              string     `json:"nome"`
	CPF               string     `json:"cpf"`
	Email             *string    `json:"email"`
	Telefone          *string    `json:"telefone"`
	DataNascimento    string     `json:"data_nascimento"`
	Endereco          *string    `json:"endereco"`
	EstadoCivil       *string    `json:"estado_civil"`
	FamiliaID         *uuid.UUID `json:"familia_id"`
	DataBatismo       *string    `json:"data_batismo"`
	ConsentimentoLGPD bool       `json:"consentimento_lgpd"`
}

func (h *Handler) createMembro(w http.ResponseWriter, r *http.Request) {
	var payload membroPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION", "payload inválido", nil)
		return
	}

	nascimento, err := time.Parse("2006-01-02", payload.DataNascimento)
	if err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION", "data de nascimento inválida", nil)
		return
	}

	input := CreateMembroInput{
		Nome:              payload.Nome,
		CPF:               payload.CPF,
		Email:             payload.Email,
		Telefone:          payload.Telefone,
		DataNascimento:    nascimento,
		Endereco:          payload.Endereco,
		EstadoCivil:       payload.EstadoCivil,
		FamiliaID:         payload.FamiliaID,
		ConsentimentoLGPD: payload.ConsentimentoLGPD,
	}
	if payload.DataBatismo != nil {
		batismo, err := time.Parse("2006-01-02", *payload.DataBatismo)
		if err != nil {
			writeError(w, http.StatusBadRequest, "VALIDATION", "data de batismo inválida", nil)
			return
		}
		input.DataBatismo = &batismo
	}

	membro, err := h.service.CreateMembro(r.Context(), input)
	if err != nil {
		if errors.Is(err, ErrCPFDuplicado) {
			writeError(w, http.StatusConflict, "CONFLICT", err.Error(), nil)
			return
		}
		writeError(w, http.StatusBadRequest, "VALIDATION", err.Error(), nil)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{"membro": membro})
}

func (h *Handler) getMembro(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "membroID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION", "membro inválido", nil)
		return
	}

	membro, err := h.service.GetMembro(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			writeError(w, http.StatusNotFound, "NOT_FOUND", err.Error(), nil)
			return
		}
		writeError(w, http.StatusInternalServerError, "INTERNAL", "não foi possível carregar membro", nil)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"membro": membro})
}

func (h *Handler) updateMembro(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "membroID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION", "membro inválido", nil)
		return
	}

	var payload struct {
		Nome        *string    `json:"nome"`
		Email       *string    `json:"email"`
		Telefone    *string    `json:"telefone"`
		Endereco    *string    `json:"endereco"`
		EstadoCivil *string    `json:"estado_civil"`
		FamiliaID   *uuid.UUID `json:"familia_id"`
		Ativo       *bool      `json:"ativo"`
	}

	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION", "payload inválido", nil)
		return
	}

	membro, err := h.service.UpdateMembro(r.Context(), UpdateMembroInput{
		ID:          id,
		Nome:        payload.Nome,
		Email:       payload.Email,
		Telefone:    payload.Telefone,
		Endereco:    payload.Endereco,
		EstadoCivil: payload.EstadoCivil,
		FamiliaID:   payload.FamiliaID,
		Ativo:       payload.Ativo,
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			writeError(w, http.StatusNotFound, "NOT_FOUND", err.Error(), nil)
			return
		}
		writeError(w, http.StatusBadRequest, "VALIDATION", err.Error(), nil)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"membro": membro})
}

func (h *Handler) atualizarConsentimento(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "membroID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION", "membro inválido", nil)
		return
	}

	var payload struct {
		Consentimento bool `json:"consentimento"`
	}

	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION", "payload inválido", nil)
		return
	}

	var usuarioID *uuid.UUID
	if subject := httpmiddleware.GetSubject(r.Context()); subject != "" {
		if parsed, err := uuid.Parse(subject); err == nil {
			usuarioID = &parsed
		}
	}

	membro, err := h.service.AtualizarConsentimento(r.Context(), id, payload.Consentimento, usuarioID, remoteIP(r))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			writeError(w, http.StatusNotFound, "NOT_FOUND", err.Error(), nil)
			return
		}
		writeError(w, http.StatusInternalServerError, "INTERNAL", "não foi possível atualizar consentimento", nil)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"membro": membro})
}

func (h *Handler) listVisitantes(w http.ResponseWriter, r *http.Request) {
	visitantes, err := h.service.ListVisitantes(r.Context(), queryInt(r, "limit"), queryInt(r, "offset"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "INTERNAL", "não foi possível listar visitantes", nil)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"visitantes": visitantes})
}

func (h *Handler) createVisitante(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Nome           string  `json:"nome"`
		CPF            *string `json:"cpf"`
		Email          *string `json:"email"`
		Telefone       *string `json:"telefone"`
		DataNascimento *string `json:"data_nascimento"`
		PrimeiraVisita string  `json:"primeira_visita"`
		ComoConheceu   *string `json:"como_conheceu"`
	}

	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION", "payload inválido", nil)
		return
	}

	input := CreateVisitanteInput{
		Nome:         payload.Nome,
		CPF:          payload.CPF,
		Email:        payload.Email,
		Telefone:     payload.Telefone,
		ComoConheceu: payload.ComoConheceu,
	}

	if payload.DataNascimento != nil {
		nascimento, err := time.Parse("2006-01-02", *payload.DataNascimento)
		if err != nil {
			writeError(w, http.StatusBadRequest, "VALIDATION", "data de nascimento inválida", nil)
			return
		}
		input.DataNascimento = &nascimento
	}

	if payload.PrimeiraVisita != "" {
		visita, err := time.Parse("2006-01-02", payload.PrimeiraVisita)
		if err != nil {
			writeError(w, http.StatusBadRequest, "VALIDATION", "data da primeira visita inválida", nil)
			return
		}
		input.PrimeiraVisita = visita
	} else {
		input.PrimeiraVisita = time.Now()
	}

	visitante, err := h.service.CreateVisitante(r.Context(), input)
	if err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION", err.Error(), nil)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{"visitante": visitante})
}

func (h *Handler) getVisitante(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "visitanteID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION", "visitante inválido", nil)
		return
	}

	visitante, err := h.service.GetVisitante(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrVisitanteNotFound) {
			writeError(w, http.StatusNotFound, "NOT_FOUND", err.Error(), nil)
			return
		}
		writeError(w, http.StatusInternalServerError, "INTERNAL", "não foi possível carregar visitante", nil)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"visitante": visitante})
}

func (h *Handler) createFamilia(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Nome     string  `json:"nome"`
		Endereco *string `json:"endereco"`
	}

	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION", "payload inválido", nil)
		return
	}

	familia, err := h.service.CreateFamilia(r.Context(), payload.Nome, payload.Endereco)
	if err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION", err.Error(), nil)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{"familia": familia})
}

func queryInt(r *http.Request, name string) int {
	value, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil {
		return 0
	}
	return value
}

func remoteIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		parts := strings.Split(forwarded, ",")
		return strings.TrimSpace(parts[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
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
