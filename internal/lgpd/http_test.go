package lgpd

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	httpmiddleware "github.com/comunidadegraca/portal/internal/http/middleware"
)

type stubServiceProvider struct {
	solicitacao *Solicitacao
	export      *DadosTitularExport
	erro        error
}

func (s *stubServiceProvider) CriarSolicitacao(ctx context.Context, input CreateSolicitacaoInput, ator *Ator) (*Solicitacao, error) {
	if s.erro != nil {
		return nil, s.erro
	}
	sol := &Solicitacao{
		ID:          uuid.New(),
		Tipo:        input.Tipo,
		Status:      StatusPendente,
		TipoTitular: input.TipoTitular,
		TitularID:   input.TitularID,
		TitularNome: input.TitularNome,
		Motivo:      input.Motivo,
		CriadoEm:    time.Now(),
	}
	s.solicitacao = sol
	return sol, nil
}

func (s *stubServiceProvider) GetSolicitacao(ctx context.Context, id uuid.UUID) (*Solicitacao, error) {
	if s.solicitacao == nil || s.solicitacao.ID != id {
		return nil, ErrSolicitacaoNotFound
	}
	return s.solicitacao, nil
}

func (s *stubServiceProvider) ListSolicitacoes(ctx context.Context, filter SolicitacaoFilter) ([]Solicitacao, error) {
	if s.solicitacao == nil {
		return nil, nil
	}
	return []Solicitacao{*s.solicitacao}, nil
}

func (s *stubServiceProvider) ProcessarSolicitacao(ctx context.Context, id uuid.UUID, novoStatus string, justificativa *string, ator Ator) (*Solicitacao, *ResultadoExclusaoTitular, error) {
	if s.erro != nil {
		return nil, nil, s.erro
	}
	if s.solicitacao == nil || s.solicitacao.ID != id {
		return nil, nil, ErrSolicitacaoNotFound
	}
	if novoStatus == StatusRecusada && justificativa == nil {
		return nil, nil, ErrJustificativaObrigatoria
	}
	s.solicitacao.Status = novoStatus
	return s.solicitacao, nil, nil
}

func (s *stubServiceProvider) ExportarDados(ctx context.Context, tipoTitular string, titularID uuid.UUID, ator *Ator) (*DadosTitularExport, error) {
	if s.export == nil {
		return nil, ErrTitularNotFound
	}
	return s.export, nil
}

func (s *stubServiceProvider) ListLogsConsentimento(ctx context.Context, tipoTitular string, titularID uuid.UUID) ([]LogConsentimento, error) {
	return nil, nil
}

func (s *stubServiceProvider) ListLogsAuditoria(ctx context.Context, modulo string, limit, offset int) ([]LogAuditoria, error) {
	return nil, nil
}

type stubVerificacaoProvider struct {
	canal   string
	sessao  *SessaoVerificacao
	titular *SessaoTitular
	erro    error
}

func (s *stubVerificacaoProvider) SolicitarCodigo(ctx context.Context, cpf, dataNascimento, telefone string) (string, error) {
	if s.erro != nil {
		return "", s.erro
	}
	return s.canal, nil
}

func (s *stubVerificacaoProvider) ValidarCodigo(ctx context.Context, cpf, dataNascimento, codigo string) (*SessaoVerificacao, error) {
	if s.erro != nil {
		return nil, s.erro
	}
	return s.sessao, nil
}

func (s *stubVerificacaoProvider) ConsumirSessao(ctx context.Context, token string) (*SessaoTitular, error) {
	if s.titular == nil {
		return nil, ErrSessaoInvalida
	}
	return s.titular, nil
}

func publicRouter(handler *Handler) *chi.Mux {
	r := chi.NewRouter()
	handler.RegisterPublicRoutes(r)
	return r
}

func adminRouter(handler *Handler) *chi.Mux {
	r := chi.NewRouter()
	handler.RegisterRoutes(r)
	return r
}

func jsonBody(t *testing.T, payload any) *bytes.Buffer {
	t.Helper()
	b, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return bytes.NewBuffer(b)
}

func comAdmin(req *http.Request) *http.Request {
	ctx := req.Context()
	ctx = context.WithValue(ctx, httpmiddleware.ContextKeySubject, uuid.New().String())
	ctx = context.WithValue(ctx, httpmiddleware.ContextKeyRoles, []string{"ADMIN"})
	ctx = context.WithValue(ctx, httpmiddleware.ContextKeyAudience, "backoffice")
	return req.WithContext(ctx)
}

func TestSolicitarCodigoEndpoint(t *testing.T) {
	handler := NewHandler(&stubServiceProvider{}, &stubVerificacaoProvider{canal: CanalSMS})
	r := publicRouter(handler)

	req := httptest.NewRequest(http.MethodPost, "/verificacao/solicitar",
		jsonBody(t, map[string]string{"cpf": "529.982.247-25", "data_nascimento": "1990-05-10"}))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("esperava 200, veio %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"canal":"sms"`) {
		t.Fatalf("resposta sem canal: %s", rec.Body.String())
	}
}

func TestSolicitarCodigoEndpointErroGenerico(t *testing.T) {
	handler := NewHandler(&stubServiceProvider{}, &stubVerificacaoProvider{erro: ErrEnvioCodigo})
	r := publicRouter(handler)

	req := httptest.NewRequest(http.MethodPost, "/verificacao/solicitar",
		jsonBody(t, map[string]string{"cpf": "000.000.000-00", "data_nascimento": "1990-05-10"}))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("esperava 422, veio %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "CHANNEL") {
		t.Fatalf("código de erro errado: %s", rec.Body.String())
	}
}

func TestValidarCodigoEndpointInvalido(t *testing.T) {
	handler := NewHandler(&stubServiceProvider{}, &stubVerificacaoProvider{erro: ErrCodigoInvalido})
	r := publicRouter(handler)

	req := httptest.NewRequest(http.MethodPost, "/verificacao/validar",
		jsonBody(t, map[string]string{"cpf": "529.982.247-25", "data_nascimento": "1990-05-10", "codigo": "000000"}))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("esperava 401, veio %d", rec.Code)
	}
}

func TestExportacaoAutoatendimentoDownload(t *testing.T) {
	titularID := uuid.New()
	provider := &stubVerificacaoProvider{
		titular: &SessaoTitular{TipoTitular: TitularMembro, TitularID: titularID, Nome: "Maria Silva"},
	}
	svc := &stubServiceProvider{export: &DadosTitularExport{TipoTitular: TitularMembro, ExportadoEm: time.Now()}}
	handler := NewHandler(svc, provider)
	r := publicRouter(handler)

	req := httptest.NewRequest(http.MethodPost, "/exportacao", jsonBody(t, map[string]string{"token": "abc"}))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("esperava 200, veio %d: %s", rec.Code, rec.Body.String())
	}
	disposition := rec.Header().Get("Content-Disposition")
	if !strings.Contains(disposition, "attachment") || !strings.Contains(disposition, titularID.String()) {
		t.Fatalf("download mal formado: %q", disposition)
	}
	if !strings.Contains(rec.Body.String(), `"tipo_titular"`) {
		t.Fatalf("corpo sem pacote de dados: %s", rec.Body.String())
	}
}

func TestExportacaoAutoatendimentoSessaoInvalida(t *testing.T) {
	handler := NewHandler(&stubServiceProvider{}, &stubVerificacaoProvider{})
	r := publicRouter(handler)

	req := httptest.NewRequest(http.MethodPost, "/exportacao", jsonBody(t, map[string]string{"token": "expirada"}))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("esperava 401, veio %d", rec.Code)
	}
}

func TestExclusaoAutoatendimentoAbreSolicitacao(t *testing.T) {
	titularID := uuid.New()
	provider := &stubVerificacaoProvider{
		titular: &SessaoTitular{TipoTitular: TitularVisitante, TitularID: titularID, Nome: "Carlos Souza"},
	}
	svc := &stubServiceProvider{}
	handler := NewHandler(svc, provider)
	r := publicRouter(handler)

	req := httptest.NewRequest(http.MethodPost, "/exclusao",
		jsonBody(t, map[string]string{"token": "abc", "motivo": "não frequento mais"}))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("esperava 202, veio %d: %s", rec.Code, rec.Body.String())
	}
	if svc.solicitacao == nil || svc.solicitacao.Tipo != TipoExclusao || svc.solicitacao.Status != StatusPendente {
		t.Fatalf("solicitação errada: %+v", svc.solicitacao)
	}
	if svc.solicitacao.TitularID != titularID {
		t.Fatal("titular da sessão não propagado")
	}
}

func TestProcessarSolicitacaoEndpointConflito(t *testing.T) {
	svc := &stubServiceProvider{erro: ErrSolicitacaoEncerrada}
	handler := NewHandler(svc, &stubVerificacaoProvider{})
	r := adminRouter(handler)

	req := httptest.NewRequest(http.MethodPost, "/solicitacoes/"+uuid.New().String()+"/processar",
		jsonBody(t, map[string]string{"status": StatusConcluida}))
	req = comAdmin(req)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("esperava 409, veio %d", rec.Code)
	}
}

func TestProcessarSolicitacaoEndpointJustificativaObrigatoria(t *testing.T) {
	svc := &stubServiceProvider{}
	handler := NewHandler(svc, &stubVerificacaoProvider{})
	_, _ = svc.CriarSolicitacao(context.Background(), CreateSolicitacaoInput{
		Tipo:        TipoExclusao,
		TipoTitular: TitularMembro,
		TitularID:   uuid.New(),
		TitularNome: "Maria Silva",
	}, nil)
	r := adminRouter(handler)

	req := httptest.NewRequest(http.MethodPost, "/solicitacoes/"+svc.solicitacao.ID.String()+"/processar",
		jsonBody(t, map[string]string{"status": StatusRecusada}))
	req = comAdmin(req)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("esperava 400, veio %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "VALIDATION") {
		t.Fatalf("código de erro errado: %s", rec.Body.String())
	}
}
