package lgpd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	httpmiddleware "github.com/comunidadegraca/portal/internal/http/middleware"
)

// ServiceProvider expõe as operações administrativas do módulo LGPD.
type ServiceProvider interface {
	CriarSolicitacao(ctx context.Context, input CreateSolicitacaoInput, ator *Ator) (*Solicitacao, error)
	GetSolicitacao(ctx context.Context, id uuid.UUID) (*Solicitacao, error)
	ListSolicitacoes(ctx context.Context, filter SolicitacaoFilter) ([]Solicitacao, error)
	ProcessarSolicitacao(ctx context.Context, id uuid.UUID, novoStatus string, justificativa *string, ator Ator) (*Solicitacao, *ResultadoExclusaoTitular, error)
	ExportarDados(ctx context.Context, tipoTitular string, titularID uuid.UUID, ator *Ator) (*DadosTitularExport, error)
	ListLogsConsentimento(ctx context.Context, tipoTitular string, titularID uuid.UUID) ([]LogConsentimento, error)
	ListLogsAuditoria(ctx context.Context, modulo string, limit, offset int) ([]LogAuditoria, error)
}

// VerificacaoProvider expõe o fluxo público de verificação de titulares.
type VerificacaoProvider interface {
	SolicitarCodigo(ctx context.Context, cpf, dataNascimento, telefone string) (string, error)
	ValidarCodigo(ctx context.Context, cpf, dataNascimento, codigo string) (*SessaoVerificacao, error)
	ConsumirSessao(ctx context.Context, token string) (*SessaoTitular, error)
}

// Handler expõe endpoints REST do módulo LGPD.
type Handler struct {
	service     ServiceProvider
	verificacao VerificacaoProvider
}

func NewHandler(service ServiceProvider, verificacao VerificacaoProvider) *Handler {
	return &Handler{service: service, verificacao: verificacao}
}

// RegisterRoutes registra as rotas administrativas (exigem autenticação).
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/solicitacoes", h.listSolicitacoes)
	r.Post("/solicitacoes", h.createSolicitacao)
	r.Get("/solicitacoes/{solicitacaoID}", h.getSolicitacao)
	r.Post("/solicitacoes/{solicitacaoID}/processar", h.processarSolicitacao)
	r.Get("/titulares/{tipoTitular}/{titularID}/exportacao", h.exportarAdmin)
	r.Get("/titulares/{tipoTitular}/{titularID}/consentimentos", h.listConsentimentos)
	r.Get("/auditoria", h.listAuditoria)
}

// RegisterPublicRoutes registra o portal de autoatendimento do titular.
func (h *Handler) RegisterPublicRoutes(r chi.Router) {
	r.Post("/verificacao/solicitar", h.solicitarCodigo)
	r.Post("/verificacao/validar", h.validarCodigo)
	r.Post("/exportacao", h.exportarAutoatendimento)
	r.Post("/exclusao", h.solicitarExclusao)
}

func (h *Handler) solicitarCodigo(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		CPF            string `json:"cpf"`
		DataNascimento string `json:"data_nascimento"`
		Telefone       string `json:"telefone"`
	}

	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION", "payload inválido", nil)
		return
	}

	canal, err := h.verificacao.SolicitarCodigo(r.Context(), payload.CPF, payload.DataNascimento, payload.Telefone)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "CHANNEL", ErrEnvioCodigo.Error(), nil)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"canal": canal})
}

func (h *Handler) validarCodigo(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		CPF            string `json:"cpf"`
		DataNascimento string `json:"data_nascimento"`
		Codigo         string `json:"codigo"`
	}

	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION", "payload inválido", nil)
		return
	}

	sessao, err := h.verificacao.ValidarCodigo(r.Context(), payload.CPF, payload.DataNascimento, payload.Codigo)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "AUTH", ErrCodigoInvalido.Error(), nil)
		return
	}

	writeJSON(w, http.StatusOK, sessao)
}

func (h *Handler) exportarAutoatendimento(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Token string `json:"token"`
	}

	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION", "payload inválido", nil)
		return
	}

	sessao, err := h.verificacao.ConsumirSessao(r.Context(), payload.Token)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "AUTH", ErrSessaoInvalida.Error(), nil)
		return
	}

	ator := &Ator{Nome: sessao.Nome, Cargo: "titular", IPAddress: remoteIP(r)}
	export, err := h.service.ExportarDados(r.Context(), sessao.TipoTitular, sessao.TitularID, ator)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	escreverDownload(w, export, sessao.TipoTitular, sessao.TitularID)
}

func (h *Handler) solicitarExclusao(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Token  string `json:"token"`
		Motivo string `json:"motivo"`
	}

	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION", "payload inválido", nil)
		return
	}

	sessao, err := h.verificacao.ConsumirSessao(r.Context(), payload.Token)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "AUTH", ErrSessaoInvalida.Error(), nil)
		return
	}

	input := CreateSolicitacaoInput{
		Tipo:        TipoExclusao,
		TipoTitular: sessao.TipoTitular,
		TitularID:   sessao.TitularID,
		TitularNome: sessao.Nome,
	}
	if motivo := strings.TrimSpace(payload.Motivo); motivo != "" {
		input.Motivo = &motivo
	}

	ator := &Ator{Nome: sessao.Nome, Cargo: "titular", IPAddress: remoteIP(r)}
	sol, err := h.service.CriarSolicitacao(r.Context(), input, ator)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]any{"solicitacao": sol})
}

func (h *Handler) listSolicitacoes(w http.ResponseWriter, r *http.Request) {
	filter := SolicitacaoFilter{
		Status: r.URL.Query().Get("status"),
		Tipo:   r.URL.Query().Get("tipo"),
		Limit:  queryInt(r, "limit"),
		Offset: queryInt(r, "offset"),
	}

	solicitacoes, err := h.service.ListSolicitacoes(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "INTERNAL", "não foi possível listar solicitações", nil)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"solicitacoes": solicitacoes})
}

func (h *Handler) createSolicitacao(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Tipo        string  `json:"tipo"`
		TipoTitular string  `json:"tipo_titular"`
		TitularID   string  `json:"titular_id"`
		Motivo      *string `json:"motivo"`
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

	ator := atorFromRequest(r)
	sol, err := h.service.CriarSolicitacao(r.Context(), CreateSolicitacaoInput{
		Tipo:        payload.Tipo,
		TipoTitular: payload.TipoTitular,
		TitularID:   titularID,
		Motivo:      payload.Motivo,
	}, &ator)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{"solicitacao": sol})
}

func (h *Handler) getSolicitacao(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "solicitacaoID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION", "solicitação inválida", nil)
		return
	}

	sol, err := h.service.GetSolicitacao(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"solicitacao": sol})
}

func (h *Handler) processarSolicitacao(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "solicitacaoID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION", "solicitação inválida", nil)
		return
	}

	var payload struct {
		Status        string  `json:"status"`
		Justificativa *string `json:"justificativa"`
	}

	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION", "payload inválido", nil)
		return
	}

	ator := atorFromRequest(r)
	sol, resultado, err := h.service.ProcessarSolicitacao(r.Context(), id, payload.Status, payload.Justificativa, ator)
	if err != nil {
		if errors.Is(err, ErrExclusaoFalhou) {
			writeError(w, http.StatusInternalServerError, "INTERNAL", err.Error(), resultado)
			return
		}
		writeDomainError(w, err)
		return
	}

	response := map[string]any{"solicitacao": sol}
	if resultado != nil {
		response["resultado_exclusao"] = resultado
	}

	writeJSON(w, http.StatusOK, response)
}

func (h *Handler) exportarAdmin(w http.ResponseWriter, r *http.Request) {
	tipoTitular := chi.URLParam(r, "tipoTitular")
	titularID, err := uuid.Parse(chi.URLParam(r, "titularID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION", "titular inválido", nil)
		return
	}

	ator := atorFromRequest(r)
	export, err := h.service.ExportarDados(r.Context(), tipoTitular, titularID, &ator)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	escreverDownload(w, export, tipoTitular, titularID)
}

func (h *Handler) listConsentimentos(w http.ResponseWriter, r *http.Request) {
	tipoTitular := chi.URLParam(r, "tipoTitular")
	titularID, err := uuid.Parse(chi.URLParam(r, "titularID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION", "titular inválido", nil)
		return
	}

	logs, err := h.service.ListLogsConsentimento(r.Context(), tipoTitular, titularID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"logs": logs})
}

func (h *Handler) listAuditoria(w http.ResponseWriter, r *http.Request) {
	logs, err := h.service.ListLogsAuditoria(r.Context(),
		r.URL.Query().Get("modulo"), queryInt(r, "limit"), queryInt(r, "offset"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "INTERNAL", "não foi possível listar auditoria", nil)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"logs": logs})
}

func escreverDownload(w http.ResponseWriter, export *DadosTitularExport, tipoTitular string, titularID uuid.UUID) {
	filename := fmt.Sprintf("lgpd_export_%s_%s.json", tipoTitular, titularID)
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	_ = encoder.Encode(export)
}

func atorFromRequest(r *http.Request) Ator {
	ator := Ator{IPAddress: remoteIP(r)}

	if subject := httpmiddleware.GetSubject(r.Context()); subject != "" {
		if id, err := uuid.Parse(subject); err == nil {
			ator.UsuarioID = &id
		}
	}
	if roles := httpmiddleware.GetRoles(r.Context()); len(roles) > 0 {
		ator.Cargo = roles[0]
	}

	return ator
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

func queryInt(r *http.Request, name string) int {
	value, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil {
		return 0
	}
	return value
}

func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrSolicitacaoNotFound), errors.Is(err, ErrTitularNotFound):
		writeError(w, http.StatusNotFound, "NOT_FOUND", err.Error(), nil)
	case errors.Is(err, ErrSolicitacaoEncerrada):
		writeError(w, http.StatusConflict, "CONFLICT", err.Error(), nil)
	case errors.Is(err, ErrJustificativaObrigatoria),
		errors.Is(err, ErrStatusInvalido),
		errors.Is(err, ErrTipoInvalido),
		errors.Is(err, ErrTipoTitularInvalido):
		writeError(w, http.StatusBadRequest, "VALIDATION", err.Error(), nil)
	default:
		writeError(w, http.StatusInternalServerError, "INTERNAL", "erro interno", nil)
	}
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
