package lgpd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/comunidadegraca/portal/internal/membros"
)

// ErrExclusaoFalhou indica que o motor de exclusão não concluiu a remoção;
// a solicitação permanece aberta para nova tentativa.
var ErrExclusaoFalhou = errors.New("exclusão de dados não foi concluída")

type lifecycleRepository interface {
	CreateSolicitacao(ctx context.Context, input CreateSolicitacaoInput) (*Solicitacao, error)
	GetSolicitacao(ctx context.Context, id uuid.UUID) (*Solicitacao, error)
	ListSolicitacoes(ctx context.Context, filter SolicitacaoFilter) ([]Solicitacao, error)
	TransitionSolicitacaoStatus(ctx context.Context, id uuid.UUID, update StatusUpdate) (*Solicitacao, error)
	InsertLogConsentimento(ctx context.Context, log LogConsentimento) (*LogConsentimento, error)
	ListLogsConsentimentoByTitular(ctx context.Context, tipoTitular string, titularID uuid.UUID) ([]LogConsentimento, error)
	InsertLogAuditoria(ctx context.Context, log LogAuditoria) error
	ListLogsAuditoria(ctx context.Context, modulo string, limit, offset int) ([]LogAuditoria, error)
	GetTitular(ctx context.Context, tipoTitular string, titularID uuid.UUID) (*Titular, error)
}

type exportador interface {
	MontarExportacao(ctx context.Context, tipoTitular string, titularID uuid.UUID) (*DadosTitularExport, error)
}

type excluidor interface {
	ExcluirDadosTitular(ctx context.Context, tipoTitular string, titularID uuid.UUID, opcoes OpcoesExclusao) *ResultadoExclusaoTitular
}

// Service orquestra o ciclo de vida das solicitações de direitos do
// titular e as trilhas de consentimento e auditoria.
type Service struct {
	repo       lifecycleRepository
	exportacao exportador
	exclusao   excluidor
}

// NewService cria o serviço LGPD.
func NewService(repo lifecycleRepository, exportacao exportador, exclusao excluidor) *Service {
	return &Service{repo: repo, exportacao: exportacao, exclusao: exclusao}
}

// CriarSolicitacao abre solicitação de direitos em nome de um titular.
// O nome e o e-mail do titular são congelados na solicitação para que o
// registro sobreviva a uma eventual exclusão do cadastro.
func (s *Service) CriarSolicitacao(ctx context.Context, input CreateSolicitacaoInput, ator *Ator) (*Solicitacao, error) {
	input.Tipo = strings.ToLower(strings.TrimSpace(input.Tipo))
	if !IsValidTipo(input.Tipo) {
		return nil, ErrTipoInvalido
	}
	input.TipoTitular = strings.ToLower(strings.TrimSpace(input.TipoTitular))
	if !IsValidTipoTitular(input.TipoTitular) {
		return nil, ErrTipoTitularInvalido
	}

	if strings.TrimSpace(input.TitularNome) == "" {
		titular, err := s.repo.GetTitular(ctx, input.TipoTitular, input.TitularID)
		if err != nil {
			return nil, err
		}
		input.TitularNome = titular.Nome
		if input.TitularEmail == nil {
			input.TitularEmail = titular.Email
		}
	}

	sol, err := s.repo.CreateSolicitacao(ctx, input)
	if err != nil {
		return nil, err
	}

	s.auditar(ctx, ator, "criar_solicitacao",
		fmt.Sprintf("solicitação de %s aberta para %s %s", sol.Tipo, sol.TipoTitular, sol.TitularNome),
		sol.ID.String())

	return sol, nil
}

// GetSolicitacao busca solicitação por id.
func (s *Service) GetSolicitacao(ctx context.Context, id uuid.UUID) (*Solicitacao, error) {
	return s.repo.GetSolicitacao(ctx, id)
}

// ListSolicitacoes lista solicitações com filtros opcionais.
func (s *Service) ListSolicitacoes(ctx context.Context, filter SolicitacaoFilter) ([]Solicitacao, error) {
	return s.repo.ListSolicitacoes(ctx, filter)
}

// ProcessarSolicitacao aplica uma transição de status, executando antes o
// efeito colateral do tipo da solicitação quando o destino é concluida:
// exportação gera o pacote de dados; exclusão dispara a remoção em
// cascata. Se o efeito falha, a solicitação permanece no estado atual.
func (s *Service) ProcessarSolicitacao(ctx context.Context, id uuid.UUID, novoStatus string, justificativa *string, ator Ator) (*Solicitacao, *ResultadoExclusaoTitular, error) {
	novoStatus = strings.ToLower(strings.TrimSpace(novoStatus))
	if !IsValidStatus(novoStatus) || novoStatus == StatusPendente {
		return nil, nil, ErrStatusInvalido
	}

	sol, err := s.repo.GetSolicitacao(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if sol.Terminal() {
		return nil, nil, ErrSolicitacaoEncerrada
	}

	update := StatusUpdate{Status: novoStatus}
	if ator.UsuarioID != nil {
		update.ResponsavelID = ator.UsuarioID
	}

	if novoStatus == StatusRecusada {
		if justificativa == nil || strings.TrimSpace(*justificativa) == "" {
			return nil, nil, ErrJustificativaObrigatoria
		}
		j := strings.TrimSpace(*justificativa)
		update.JustificativaRecusa = &j
	}

	var resultado *ResultadoExclusaoTitular
	if novoStatus == StatusConcluida {
		switch sol.Tipo {
		case TipoExportacao, TipoAcesso:
			if _, err := s.exportacao.MontarExportacao(ctx, sol.TipoTitular, sol.TitularID); err != nil {
				return nil, nil, err
			}
			arquivo := fmt.Sprintf("lgpd_export_%s_%s.json", sol.TipoTitular, sol.TitularID)
			update.ArquivoExportacao = &arquivo
		case TipoExclusao:
			motivo := ""
			if sol.Motivo != nil {
				motivo = *sol.Motivo
			}
			resultado = s.exclusao.ExcluirDadosTitular(ctx, sol.TipoTitular, sol.TitularID, OpcoesExclusao{
				Cascade:       true,
				Motivo:        motivo,
				SolicitacaoID: &sol.ID,
			})
			if !resultado.Sucesso {
				s.auditar(ctx, &ator, "exclusao_falhou",
					fmt.Sprintf("exclusão de %s %s falhou: %s", sol.TipoTitular, sol.TitularNome, resultado.Erro),
					sol.ID.String())
				return nil, resultado, ErrExclusaoFalhou
			}
		}
	}

	atualizada, err := s.repo.TransitionSolicitacaoStatus(ctx, id, update)
	if err != nil {
		return nil, resultado, err
	}

	s.auditar(ctx, &ator, "processar_solicitacao",
		fmt.Sprintf("solicitação de %s de %s movida para %s", atualizada.Tipo, atualizada.TitularNome, atualizada.Status),
		atualizada.ID.String())

	return atualizada, resultado, nil
}

// ExportarDados monta o pacote de dados do titular para entrega e registra
// o acesso na trilha de auditoria.
func (s *Service) ExportarDados(ctx context.Context, tipoTitular string, titularID uuid.UUID, ator *Ator) (*DadosTitularExport, error) {
	export, err := s.exportacao.MontarExportacao(ctx, tipoTitular, titularID)
	if err != nil {
		return nil, err
	}

	s.auditar(ctx, ator, "exportar_dados",
		fmt.Sprintf("dados de %s %s exportados", tipoTitular, titularID),
		titularID.String())

	return export, nil
}

// RegistrarConsentimentoMembro grava a mudança de consentimento de um
// membro na trilha imutável. Satisfaz o contrato do cadastro de pessoas.
func (s *Service) RegistrarConsentimentoMembro(ctx context.Context, mudanca membros.MudancaConsentimento) error {
	acao := ConsentimentoRevogado
	if mudanca.Novo {
		acao = ConsentimentoConcedido
	}

	entrada := LogConsentimento{
		TipoTitular:           TitularMembro,
		TitularID:             mudanca.MembroID,
		Acao:                  acao,
		ConsentimentoAnterior: mudanca.Anterior,
		ConsentimentoNovo:     mudanca.Novo,
		UsuarioID:             mudanca.UsuarioID,
	}
	if mudanca.IPAddress != "" {
		ip := mudanca.IPAddress
		entrada.IPAddress = &ip
	}

	_, err := s.repo.InsertLogConsentimento(ctx, entrada)
	return err
}

// ListLogsConsentimento lista o histórico de consentimento de um titular.
func (s *Service) ListLogsConsentimento(ctx context.Context, tipoTitular string, titularID uuid.UUID) ([]LogConsentimento, error) {
	if !IsValidTipoTitular(tipoTitular) {
		return nil, ErrTipoTitularInvalido
	}
	return s.repo.ListLogsConsentimentoByTitular(ctx, tipoTitular, titularID)
}

// ListLogsAuditoria lista registros da trilha de auditoria.
func (s *Service) ListLogsAuditoria(ctx context.Context, modulo string, limit, offset int) ([]LogAuditoria, error) {
	return s.repo.ListLogsAuditoria(ctx, modulo, limit, offset)
}

// auditar grava o registro de auditoria; falha na trilha não derruba a
// operação principal, apenas é logada.
func (s *Service) auditar(ctx context.Context, ator *Ator, acao, descricao, registroID string) {
	entrada := LogAuditoria{
		Modulo:     "lgpd",
		Acao:       acao,
		Descricao:  descricao,
		RegistroID: &registroID,
	}
	if ator != nil {
		entrada.UsuarioID = ator.UsuarioID
		if ator.Nome != "" {
			nome := ator.Nome
			entrada.UsuarioNome = &nome
		}
		if ator.Cargo != "" {
			cargo := ator.Cargo
			entrada.UsuarioCargo = &cargo
		}
		if ator.IPAddress != "" {
			ip := ator.IPAddress
			entrada.IPAddress = &ip
		}
	}

	if err := s.repo.InsertLogAuditoria(ctx, entrada); err != nil {
		log.Error().Err(err).Str("acao", acao).Msg("falha ao gravar log de auditoria")
	}
}
