package lgpd

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/comunidadegraca/portal/internal/membros"
)

type stubLifecycleRepo struct {
	solicitacao *Solicitacao
	titular     *Titular

	transicoes    []StatusUpdate
	consentimento []LogConsentimento
	auditoria     []LogAuditoria
}

func (s *stubLifecycleRepo) CreateSolicitacao(ctx context.Context, input CreateSolicitacaoInput) (*Solicitacao, error) {
	sol := &Solicitacao{
		ID:           uuid.New(),
		Tipo:         input.Tipo,
		Status:       StatusPendente,
		TipoTitular:  input.TipoTitular,
		TitularID:    input.TitularID,
		TitularNome:  input.TitularNome,
		TitularEmail: input.TitularEmail,
		Motivo:       input.Motivo,
		CriadoEm:     time.Now(),
	}
	s.solicitacao = sol
	return sol, nil
}

func (s *stubLifecycleRepo) GetSolicitacao(ctx context.Context, id uuid.UUID) (*Solicitacao, error) {
	if s.solicitacao == nil || s.solicitacao.ID != id {
		return nil, ErrSolicitacaoNotFound
	}
	copia := *s.solicitacao
	return &copia, nil
}

func (s *stubLifecycleRepo) ListSolicitacoes(ctx context.Context, filter SolicitacaoFilter) ([]Solicitacao, error) {
	if s.solicitacao == nil {
		return nil, nil
	}
	return []Solicitacao{*s.solicitacao}, nil
}

func (s *stubLifecycleRepo) TransitionSolicitacaoStatus(ctx context.Context, id uuid.UUID, update StatusUpdate) (*Solicitacao, error) {
	if s.solicitacao == nil || s.solicitacao.ID != id {
		return nil, ErrSolicitacaoNotFound
	}
	if s.solicitacao.Terminal() {
		return nil, ErrSolicitacaoEncerrada
	}
	s.transicoes = append(s.transicoes, update)
	s.solicitacao.Status = update.Status
	s.solicitacao.JustificativaRecusa = update.JustificativaRecusa
	s.solicitacao.ArquivoExportacao = update.ArquivoExportacao
	if update.Status == StatusConcluida || update.Status == StatusRecusada {
		agora := time.Now()
		s.solicitacao.DataAtendimento = &agora
	}
	copia := *s.solicitacao
	return &copia, nil
}

func (s *stubLifecycleRepo) InsertLogConsentimento(ctx context.Context, log LogConsentimento) (*LogConsentimento, error) {
	log.ID = uuid.New()
	log.CriadoEm = time.Now()
	s.consentimento = append(s.consentimento, log)
	return &log, nil
}

func (s *stubLifecycleRepo) ListLogsConsentimentoByTitular(ctx context.Context, tipoTitular string, titularID uuid.UUID) ([]LogConsentimento, error) {
	return s.consentimento, nil
}

func (s *stubLifecycleRepo) InsertLogAuditoria(ctx context.Context, log LogAuditoria) error {
	s.auditoria = append(s.auditoria, log)
	return nil
}

func (s *stubLifecycleRepo) ListLogsAuditoria(ctx context.Context, modulo string, limit, offset int) ([]LogAuditoria, error) {
	return s.auditoria, nil
}

func (s *stubLifecycleRepo) GetTitular(ctx context.Context, tipoTitular string, titularID uuid.UUID) (*Titular, error) {
	if s.titular == nil || s.titular.ID != titularID {
		return nil, ErrTitularNotFound
	}
	return s.titular, nil
}

type stubExportador struct {
	err      error
	chamadas int
}

func (s *stubExportador) MontarExportacao(ctx context.Context, tipoTitular string, titularID uuid.UUID) (*DadosTitularExport, error) {
	s.chamadas++
	if s.err != nil {
		return nil, s.err
	}
	return &DadosTitularExport{TipoTitular: tipoTitular, ExportadoEm: time.Now()}, nil
}

type stubExcluidor struct {
	sucesso  bool
	chamadas int
}

func (s *stubExcluidor) ExcluirDadosTitular(ctx context.Context, tipoTitular string, titularID uuid.UUID, opcoes OpcoesExclusao) *ResultadoExclusaoTitular {
	s.chamadas++
	resultado := &ResultadoExclusaoTitular{
		Sucesso:     s.sucesso,
		TipoTitular: tipoTitular,
		TitularID:   titularID,
		ExecutadoEm: time.Now(),
	}
	if !s.sucesso {
		resultado.Erro = "falha simulada"
	}
	return resultado
}

func solicitacaoDeTeste(repo *stubLifecycleRepo, tipo string) *Solicitacao {
	sol := &Solicitacao{
		ID:          uuid.New(),
		Tipo:        tipo,
		Status:      StatusPendente,
		TipoTitular: TitularMembro,
		TitularID:   uuid.New(),
		TitularNome: "Maria Silva",
		CriadoEm:    time.Now(),
	}
	repo.solicitacao = sol
	return sol
}

func atorDeTeste() Ator {
	id := uuid.New()
	return Ator{UsuarioID: &id, Nome: "Admin", Cargo: "ADMIN", IPAddress: "10.0.0.1"}
}

func TestCriarSolicitacaoCongelaNomeDoTitular(t *testing.T) {
	titularID := uuid.New()
	email := "maria@example.com"
	repo := &stubLifecycleRepo{titular: &Titular{Tipo: TitularMembro, ID: titularID, Nome: "Maria Silva", Email: &email}}
	svc := NewService(repo, &stubExportador{}, &stubExcluidor{sucesso: true})

	sol, err := svc.CriarSolicitacao(context.Background(), CreateSolicitacaoInput{
		Tipo:        TipoExportacao,
		TipoTitular: TitularMembro,
		TitularID:   titularID,
	}, nil)
	if err != nil {
		t.Fatalf("criar solicitação: %v", err)
	}

	if sol.TitularNome != "Maria Silva" {
		t.Fatalf("nome não congelado: %q", sol.TitularNome)
	}
	if sol.TitularEmail == nil || *sol.TitularEmail != email {
		t.Fatal("e-mail não congelado")
	}
	if sol.Status != StatusPendente {
		t.Fatalf("nova solicitação deve nascer pendente, veio %q", sol.Status)
	}
	if len(repo.auditoria) != 1 {
		t.Fatalf("esperava 1 registro de auditoria, veio %d", len(repo.auditoria))
	}
}

func TestCriarSolicitacaoTipoInvalido(t *testing.T) {
	svc := NewService(&stubLifecycleRepo{}, &stubExportador{}, &stubExcluidor{})

	if _, err := svc.CriarSolicitacao(context.Background(), CreateSolicitacaoInput{Tipo: "anonimizacao", TipoTitular: TitularMembro}, nil); !errors.Is(err, ErrTipoInvalido) {
		t.Fatalf("esperava ErrTipoInvalido, veio %v", err)
	}
}

func TestProcessarRecusaExigeJustificativa(t *testing.T) {
	repo := &stubLifecycleRepo{}
	sol := solicitacaoDeTeste(repo, TipoExclusao)
	svc := NewService(repo, &stubExportador{}, &stubExcluidor{sucesso: true})

	_, _, err := svc.ProcessarSolicitacao(context.Background(), sol.ID, StatusRecusada, nil, atorDeTeste())
	if !errors.Is(err, ErrJustificativaObrigatoria) {
		t.Fatalf("esperava ErrJustificativaObrigatoria, veio %v", err)
	}
	if len(repo.transicoes) != 0 {
		t.Fatal("solicitação não poderia ter transicionado")
	}

	vazia := "   "
	_, _, err = svc.ProcessarSolicitacao(context.Background(), sol.ID, StatusRecusada, &vazia, atorDeTeste())
	if !errors.Is(err, ErrJustificativaObrigatoria) {
		t.Fatalf("justificativa em branco deveria ser rejeitada, veio %v", err)
	}
}

func TestProcessarRecusaComJustificativa(t *testing.T) {
	repo := &stubLifecycleRepo{}
	sol := solicitacaoDeTeste(repo, TipoExclusao)
	excluidor := &stubExcluidor{sucesso: true}
	svc := NewService(repo, &stubExportador{}, excluidor)

	justificativa := "dados necessários para obrigação fiscal"
	atualizada, resultado, err := svc.ProcessarSolicitacao(context.Background(), sol.ID, StatusRecusada, &justificativa, atorDeTeste())
	if err != nil {
		t.Fatalf("processar: %v", err)
	}

	if atualizada.Status != StatusRecusada {
		t.Fatalf("status errado: %q", atualizada.Status)
	}
	if atualizada.JustificativaRecusa == nil || *atualizada.JustificativaRecusa != justificativa {
		t.Fatal("justificativa não registrada")
	}
	if resultado != nil {
		t.Fatal("recusa não executa o motor de exclusão")
	}
	if excluidor.chamadas != 0 {
		t.Fatal("motor de exclusão não deveria ter sido chamado")
	}
	if atualizada.DataAtendimento == nil {
		t.Fatal("recusa encerra a solicitação e carimba o atendimento")
	}
}

func TestProcessarSolicitacaoTerminalRejeitada(t *testing.T) {
	repo := &stubLifecycleRepo{}
	sol := solicitacaoDeTeste(repo, TipoExportacao)
	repo.solicitacao.Status = StatusConcluida
	svc := NewService(repo, &stubExportador{}, &stubExcluidor{sucesso: true})

	_, _, err := svc.ProcessarSolicitacao(context.Background(), sol.ID, StatusEmAndamento, nil, atorDeTeste())
	if !errors.Is(err, ErrSolicitacaoEncerrada) {
		t.Fatalf("esperava ErrSolicitacaoEncerrada, veio %v", err)
	}
}

func TestProcessarConclusaoDeExportacaoGeraArquivo(t *testing.T) {
	repo := &stubLifecycleRepo{}
	sol := solicitacaoDeTeste(repo, TipoExportacao)
	exportador := &stubExportador{}
	svc := NewService(repo, exportador, &stubExcluidor{sucesso: true})

	atualizada, _, err := svc.ProcessarSolicitacao(context.Background(), sol.ID, StatusConcluida, nil, atorDeTeste())
	if err != nil {
		t.Fatalf("processar: %v", err)
	}

	if exportador.chamadas != 1 {
		t.Fatalf("motor de exportação deveria rodar uma vez, rodou %d", exportador.chamadas)
	}
	if atualizada.ArquivoExportacao == nil || *atualizada.ArquivoExportacao == "" {
		t.Fatal("arquivo de exportação não registrado")
	}
	if atualizada.Status != StatusConcluida {
		t.Fatalf("status errado: %q", atualizada.Status)
	}
}

func TestProcessarConclusaoDeExportacaoFalhaNaoTransiciona(t *testing.T) {
	repo := &stubLifecycleRepo{}
	sol := solicitacaoDeTeste(repo, TipoExportacao)
	exportador := &stubExportador{err: errors.New("fonte indisponível")}
	svc := NewService(repo, exportador, &stubExcluidor{sucesso: true})

	if _, _, err := svc.ProcessarSolicitacao(context.Background(), sol.ID, StatusConcluida, nil, atorDeTeste()); err == nil {
		t.Fatal("falha do motor deveria propagar")
	}
	if len(repo.transicoes) != 0 {
		t.Fatal("solicitação não poderia ter transicionado")
	}
	if repo.solicitacao.Status != StatusPendente {
		t.Fatalf("solicitação deveria permanecer pendente, veio %q", repo.solicitacao.Status)
	}
}

func TestProcessarConclusaoDeExclusaoExecutaMotor(t *testing.T) {
	repo := &stubLifecycleRepo{}
	sol := solicitacaoDeTeste(repo, TipoExclusao)
	excluidor := &stubExcluidor{sucesso: true}
	svc := NewService(repo, &stubExportador{}, excluidor)

	atualizada, resultado, err := svc.ProcessarSolicitacao(context.Background(), sol.ID, StatusConcluida, nil, atorDeTeste())
	if err != nil {
		t.Fatalf("processar: %v", err)
	}

	if excluidor.chamadas != 1 {
		t.Fatalf("motor de exclusão deveria rodar uma vez, rodou %d", excluidor.chamadas)
	}
	if resultado == nil || !resultado.Sucesso {
		t.Fatalf("resultado da exclusão ausente: %+v", resultado)
	}
	if atualizada.Status != StatusConcluida {
		t.Fatalf("status errado: %q", atualizada.Status)
	}
}

func TestProcessarExclusaoComFalhaMantemSolicitacaoAberta(t *testing.T) {
	repo := &stubLifecycleRepo{}
	sol := solicitacaoDeTeste(repo, TipoExclusao)
	svc := NewService(repo, &stubExportador{}, &stubExcluidor{sucesso: false})

	_, resultado, err := svc.ProcessarSolicitacao(context.Background(), sol.ID, StatusConcluida, nil, atorDeTeste())
	if !errors.Is(err, ErrExclusaoFalhou) {
		t.Fatalf("esperava ErrExclusaoFalhou, veio %v", err)
	}
	if resultado == nil || resultado.Sucesso {
		t.Fatal("resultado da falha deveria ser devolvido")
	}
	if repo.solicitacao.Status != StatusPendente {
		t.Fatalf("solicitação deveria permanecer pendente, veio %q", repo.solicitacao.Status)
	}
}

func TestProcessarStatusInvalido(t *testing.T) {
	repo := &stubLifecycleRepo{}
	sol := solicitacaoDeTeste(repo, TipoAcesso)
	svc := NewService(repo, &stubExportador{}, &stubExcluidor{sucesso: true})

	if _, _, err := svc.ProcessarSolicitacao(context.Background(), sol.ID, "arquivada", nil, atorDeTeste()); !errors.Is(err, ErrStatusInvalido) {
		t.Fatalf("esperava ErrStatusInvalido, veio %v", err)
	}
	if _, _, err := svc.ProcessarSolicitacao(context.Background(), sol.ID, StatusPendente, nil, atorDeTeste()); !errors.Is(err, ErrStatusInvalido) {
		t.Fatalf("voltar para pendente deveria ser rejeitado, veio %v", err)
	}
}

func TestRegistrarConsentimentoMembro(t *testing.T) {
	repo := &stubLifecycleRepo{}
	svc := NewService(repo, &stubExportador{}, &stubExcluidor{sucesso: true})

	membroID := uuid.New()
	usuarioID := uuid.New()
	err := svc.RegistrarConsentimentoMembro(context.Background(), membros.MudancaConsentimento{
		MembroID:  membroID,
		Anterior:  true,
		Novo:      false,
		UsuarioID: &usuarioID,
		IPAddress: "10.0.0.1",
	})
	if err != nil {
		t.Fatalf("registrar consentimento: %v", err)
	}

	if len(repo.consentimento) != 1 {
		t.Fatalf("esperava 1 log, veio %d", len(repo.consentimento))
	}
	log := repo.consentimento[0]
	if log.Acao != ConsentimentoRevogado {
		t.Fatalf("revogação deveria gerar ação %q, veio %q", ConsentimentoRevogado, log.Acao)
	}
	if log.TipoTitular != TitularMembro || log.TitularID != membroID {
		t.Fatalf("titular errado: %+v", log)
	}
	if log.IPAddress == nil || *log.IPAddress != "10.0.0.1" {
		t.Fatal("ip não registrado")
	}
}
