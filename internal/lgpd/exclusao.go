package lgpd

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// ExclusaoStore delimita a execução transacional da exclusão em cascata.
type ExclusaoStore interface {
	EmTransacao(ctx context.Context, fn func(ctx context.Context, q ExclusaoQuerier) error) error
}

// ExclusaoService executa a remoção definitiva dos dados de um titular.
//
// A ordem de remoção é fixa: notas pastorais, transações financeiras,
// logs de consentimento e por último o registro principal. Ações
// diaconais e logs de auditoria são retidos por obrigação de prestação
// de contas e não referenciam dados pessoais após a remoção do titular.
type ExclusaoService struct {
	store ExclusaoStore
}

// NewExclusaoService cria o serviço de exclusão.
func NewExclusaoService(store ExclusaoStore) *ExclusaoService {
	return &ExclusaoService{store: store}
}

// ExcluirDadosTitular remove os dados do titular dentro de uma única
// transação e devolve o relatório da operação. Nunca retorna erro: o
// relatório carrega o resultado, inclusive em falha, para que o chamador
// sempre tenha o que registrar.
func (s *ExclusaoService) ExcluirDadosTitular(ctx context.Context, tipoTitular string, titularID uuid.UUID, opcoes OpcoesExclusao) *ResultadoExclusaoTitular {
	resultado := &ResultadoExclusaoTitular{
		TipoTitular:   tipoTitular,
		TitularID:     titularID,
		Motivo:        opcoes.Motivo,
		SolicitacaoID: opcoes.SolicitacaoID,
		ExecutadoEm:   time.Now().UTC(),
	}

	if !IsValidTipoTitular(tipoTitular) {
		resultado.Erro = ErrTipoTitularInvalido.Error()
		return resultado
	}

	err := s.store.EmTransacao(ctx, func(ctx context.Context, q ExclusaoQuerier) error {
		if opcoes.Cascade {
			notas, err := q.ApagarNotasPastorais(ctx, tipoTitular, titularID)
			if err != nil {
				return err
			}
			resultado.NotasPastorais = notas

			transacoes, err := q.ApagarTransacoesFinanceiras(ctx, tipoTitular, titularID)
			if err != nil {
				return err
			}
			resultado.TransacoesFinanceiras = transacoes

			logs, err := q.ApagarLogsConsentimento(ctx, tipoTitular, titularID)
			if err != nil {
				return err
			}
			resultado.LogsConsentimento = logs
		}

		var err error
		switch tipoTitular {
		case TitularMembro:
			err = q.ApagarMembro(ctx, titularID)
		case TitularVisitante:
			err = q.ApagarVisitante(ctx, titularID)
		}
		if err != nil {
			return err
		}

		resultado.RegistroPrincipalRemovido = true
		return nil
	})
	if err != nil {
		resultado.Erro = err.Error()
		resultado.RegistroPrincipalRemovido = false
		log.Error().Err(err).
			Str("tipo_titular", tipoTitular).
			Str("titular_id", titularID.String()).
			Msg("exclusão de dados do titular falhou; transação revertida")
		return resultado
	}

	resultado.Sucesso = true
	log.Info().
		Str("tipo_titular", tipoTitular).
		Str("titular_id", titularID.String()).
		Int64("notas_pastorais", resultado.NotasPastorais).
		Int64("transacoes", resultado.TransacoesFinanceiras).
		Int64("logs_consentimento", resultado.LogsConsentimento).
		Msg("dados do titular removidos")
	return resultado
}
