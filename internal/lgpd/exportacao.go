package lgpd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/comunidadegraca/portal/internal/diaconia"
	"github.com/comunidadegraca/portal/internal/financeiro"
	"github.com/comunidadegraca/portal/internal/membros"
	"github.com/comunidadegraca/portal/internal/pastoral"
)

type titularStore interface {
	GetMembro(ctx context.Context, id uuid.UUID) (*membros.Membro, error)
	GetVisitante(ctx context.Context, id uuid.UUID) (*membros.Visitante, error)
	GetFamilia(ctx context.Context, id uuid.UUID) (*membros.Familia, error)
}

type notasPastoraisStore interface {
	ListByTitular(ctx context.Context, tipoTitular string, titularID uuid.UUID) ([]pastoral.Nota, error)
}

type transacoesStore interface {
	ListByTitular(ctx context.Context, tipoTitular string, titularID uuid.UUID) ([]financeiro.Transacao, error)
}

type acoesDiaconaisStore interface {
	ListByBeneficiario(ctx context.Context, tipoBeneficiario string, beneficiarioID uuid.UUID) ([]diaconia.Acao, error)
}

type consentimentoStore interface {
	ListLogsConsentimentoByTitular(ctx context.Context, tipoTitular string, titularID uuid.UUID) ([]LogConsentimento, error)
}

// ExportacaoService monta o pacote completo de dados pessoais de um titular.
type ExportacaoService struct {
	titulares     titularStore
	notas         notasPastoraisStore
	transacoes    transacoesStore
	acoes         acoesDiaconaisStore
	consentimento consentimentoStore
}

// NewExportacaoService cria o serviço de exportação.
func NewExportacaoService(
	titulares titularStore,
	notas notasPastoraisStore,
	transacoes transacoesStore,
	acoes acoesDiaconaisStore,
	consentimento consentimentoStore,
) *ExportacaoService {
	return &ExportacaoService{
		titulares:     titulares,
		notas:         notas,
		transacoes:    transacoes,
		acoes:         acoes,
		consentimento: consentimento,
	}
}

// MontarExportacao reúne todos os dados pessoais do titular em uma única
// estrutura. Qualquer fonte indisponível aborta a montagem: um pacote
// parcial entregue como completo violaria o direito de acesso.
func (s *ExportacaoService) MontarExportacao(ctx context.Context, tipoTitular string, titularID uuid.UUID) (*DadosTitularExport, error) {
	if !IsValidTipoTitular(tipoTitular) {
		return nil, ErrTipoTitularInvalido
	}

	export := &DadosTitularExport{
		TipoTitular: tipoTitular,
	}

	switch tipoTitular {
	case TitularMembro:
		membro, err := s.titulares.GetMembro(ctx, titularID)
		if err != nil {
			if errors.Is(err, membros.ErrNotFound) {
				return nil, ErrTitularNotFound
			}
			return nil, fmt.Errorf("exportação: dados do membro: %w", err)
		}
		export.Membro = membro

		if membro.FamiliaID != nil {
			familia, err := s.titulares.GetFamilia(ctx, *membro.FamiliaID)
			if err != nil && !errors.Is(err, membros.ErrFamiliaNotFound) {
				return nil, fmt.Errorf("exportação: família: %w", err)
			}
			export.Familia = familia
		}
	case TitularVisitante:
		visitante, err := s.titulares.GetVisitante(ctx, titularID)
		if err != nil {
			if errors.Is(err, membros.ErrVisitanteNotFound) {
				return nil, ErrTitularNotFound
			}
			return nil, fmt.Errorf("exportação: dados do visitante: %w", err)
		}
		export.Visitante = visitante
	}

	notas, err := s.notas.ListByTitular(ctx, tipoTitular, titularID)
	if err != nil {
		return nil, fmt.Errorf("exportação: notas pastorais: %w", err)
	}
	export.NotasPastorais = resumirNotas(notas)

	transacoes, err := s.transacoes.ListByTitular(ctx, tipoTitular, titularID)
	if err != nil {
		return nil, fmt.Errorf("exportação: transações financeiras: %w", err)
	}
	export.Transacoes = transacoes

	acoes, err := s.acoes.ListByBeneficiario(ctx, tipoTitular, titularID)
	if err != nil {
		return nil, fmt.Errorf("exportação: ações diaconais: %w", err)
	}
	export.AcoesDiaconais = acoes

	logs, err := s.consentimento.ListLogsConsentimentoByTitular(ctx, tipoTitular, titularID)
	if err != nil {
		return nil, fmt.Errorf("exportação: logs de consentimento: %w", err)
	}
	export.LogsConsentimento = logs

	export.ExportadoEm = time.Now().UTC()
	return export, nil
}

// resumirNotas reduz notas pastorais a metadados. O conteúdo de
// aconselhamento pertence ao autor da nota, não ao pacote do titular.
func resumirNotas(notas []pastoral.Nota) []NotaPastoralResumo {
	resumos := make([]NotaPastoralResumo, 0, len(notas))
	for _, n := range notas {
		resumos = append(resumos, NotaPastoralResumo{
			ID:             n.ID,
			Titulo:         n.Titulo,
			Nivel:          n.Nivel,
			AutorNome:      n.AutorNome,
			PossuiConteudo: n.Conteudo != "",
			CriadoEm:       n.CriadoEm,
			AtualizadoEm:   n.AtualizadoEm,
		})
	}
	return resumos
}
