package pastoral

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	httpmiddleware "github.com/comunidadegraca/portal/internal/http/middleware"
)

// ServiceProvider expõe as operações do acompanhamento pastoral.
type ServiceProvider interface {
	CreateNota(ctx context.Context, input CreateNotaInput) (*Nota, error)
	GetNota(ctx context.Context, id uuid.UUID) (*Nota, error)
	ListByTitular(ctx context.Context, tipoTitular string, titularID uuid.UUID) ([]Nota, error)
}

// Handler expõe endpoints REST do acompanhamento pastoral.
type Handler struct {
	service ServiceProvider
}

func NewHandler(service ServiceProvider) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/notas", h.listNotas)
	r.Post("/notas", h.createNota)
	r.Get("/notas/{notaID}", h.getNota)
}

// Mount registra rotas do acompanhamento pastoral.
func Mount(r chi.Router, handler *Handler) {
	handler.RegisterRoutes(r)
}

func (h *Handler) listNotas(w http.ResponseWriter, r *http.Request) {
	tipoTitular := r.URL.Query().Get("tipo_titular")
	titularID, err := uuid.Parse(r.URL.Query().Get("titular_id"))
	if err != nil || tipoTitular == "" {
		writeError(w, http.StatusBadRequest, "VALIDATION", "titular inválido", nil)
		return
	}

	notas, err := h.service.ListByTitular(r.Context(), tipoTitular, titularID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "INTERNAL", "não foi possível listar notas", nil)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"notas": notas})
}

func (h *Handler) createNota(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		TipoTitular string `json:"tipo_titular"`
		TitularID   string `json:"titular_id"`
		Titulo      string `json:"titulo"`
		Conteudo    string `json:"conteudo"`
		Nivel       string `json:"nivel"`
		AutorNome   string `json:"autor_nome"`
	}

	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION", "payload inválido", nil)
		return
	}

	titularID, err := uuid.Parse(payload.TitularID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION", "titular inválido", nil)
		return
	}

	if strings.TrimSpace(payload.Titulo) == "" {
		writeError(w, http.StatusBadRequest, "VALIDATION", "título obrigatório", nil)
		return
	}

	nivel := NormalizeNivel(payload.Nivel)
	if !IsValidNivel(nivel) {
		writeError(w, http.StatusBadRequest, "VALIDATION", ErrInvalidNivel.Error(), nil)
		return
	}

	var autorID *uuid.UUID
	if subject := httpmiddleware.GetSubject(r.Context()); subject != "" {
		if id, err := uuid.Parse(subject); err == nil {
			autorID = &id
		}
	}

	nota, err := h.service.CreateNota(r.Context(), CreateNotaInput{
		TipoTitular: payload.TipoTitular,
		TitularID:   titularID,
		Titulo:      payload.Titulo,
		Conteudo:    payload.Conteudo,
		Nivel:       nivel,
		AutorID:     autorID,
		AutorNome:   payload.AutorNome,
	})
	if err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION", err.Error(), nil)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{"nota": nota})
}

func (h *Handler) getNota(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "notaID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION", "nota inválida", nil)
		return
	}

	nota, err := h.service.GetNota(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			writeError(w, http.StatusNotFound, "NOT_FOUND", err.Error(), nil)
			return
		}
		writeError(w, http.StatusInternalServerError, "INTERNAL", "não foi possível carregar nota", nil)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"nota": nota})
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
