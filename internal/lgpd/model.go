package lgpd

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/comunidadegraca/portal/internal/diaconia"
	"github.com/comunidadegraca/portal/internal/financeiro"
	"github.com/comunidadegraca/portal/internal/membros"
)

var (
	ErrSolicitacaoNotFound = errors.New("solicitação não encontrada")
	ErrTitularNotFound     = errors.New("titular não encontrado")
	// ErrSolicitacaoEncerrada indica tentativa de processar solicitação em estado terminal.
	ErrSolicitacaoEncerrada = errors.New("solicitação já foi atendida ou recusada")
	// ErrJustificativaObrigatoria indica recusa sem justificativa.
	ErrJustificativaObrigatoria = errors.New("justificativa é obrigatória para recusar")
	ErrStatusInvalido           = errors.New("status inválido")
	ErrTipoInvalido             = errors.New("tipo de solicitação inválido")
	ErrTipoTitularInvalido      = errors.New("tipo de titular inválido")
)

// Tipos de solicitação previstos pela LGPD.
const (
	TipoAcesso     = "acesso"
	TipoExportacao = "exportacao"
	TipoExclusao   = "exclusao"
)

// Status do ciclo de vida de uma solicitação.
// Transições válidas: pendente -> em_andamento | concluida | recusada.
// Estados terminais nunca são revisitados.
const (
	StatusPendente    = "pendente"
	StatusEmAndamento = "em_andamento"
	StatusConcluida   = "concluida"
	StatusRecusada    = "recusada"
)

// Tipos de titular de dados.
const (
	TitularMembro    = "membro"
	TitularVisitante = "visitante"
)

var (
	validTipos = map[string]struct{}{
		TipoAcesso:     {},
		TipoExportacao: {},
		TipoExclusao:   {},
	}
	validStatuses = map[string]struct{}{
		StatusPendente:    {},
		StatusEmAndamento: {},
		StatusConcluida:   {},
		StatusRecusada:    {},
	}
	validTiposTitular = map[string]struct{}{
		TitularMembro:    {},
		TitularVisitante: {},
	}
)

// Solicitacao representa uma solicitação de direitos do titular (LGPD).
// Registros nunca são apagados fisicamente: servem de comprovação de atendimento.
type Solicitacao struct {
	ID                  uuid.UUID  `json:"id"`
	Tipo                string     `json:"tipo"`
	Status              string     `json:"status"`
	TipoTitular         string     `json:"tipo_titular"`
	TitularID           uuid.UUID  `json:"titular_id"`
	TitularNome         string     `json:"titular_nome"`
	TitularEmail        *string    `json:"titular_email,omitempty"`
	Motivo              *string    `json:"motivo,omitempty"`
	JustificativaRecusa *string    `json:"justificativa_recusa,omitempty"`
	ResponsavelID       *uuid.UUID `json:"responsavel_id,omitempty"`
	DataAtendimento     *time.Time `json:"data_atendimento,omitempty"`
	ArquivoExportacao   *string    `json:"arquivo_exportacao,omitempty"`
	CriadoEm            time.Time  `json:"criado_em"`
}

// Terminal indica se a solicitação está em estado final.
func (s *Solicitacao) Terminal() bool {
	return s.Status == StatusConcluida || s.Status == StatusRecusada
}

// CreateSolicitacaoInput encapsula abertura de solicitação.
type CreateSolicitacaoInput struct {
	Tipo         string
	TipoTitular  string
	TitularID    uuid.UUID
	TitularNome  string
	TitularEmail *string
	Motivo       *string
}

// SolicitacaoFilter permite filtrar a listagem de solicitações.
type SolicitacaoFilter struct {
	Status string
	Tipo   string
	Limit  int
	Offset int
}

// LogConsentimento é registro imutável de mudança de consentimento.
type LogConsentimento struct {
	ID                    uuid.UUID  `json:"id"`
	TipoTitular           string     `json:"tipo_titular"`
	TitularID             uuid.UUID  `json:"titular_id"`
	Acao                  string     `json:"acao"`
	ConsentimentoAnterior bool       `json:"consentimento_anterior"`
	ConsentimentoNovo     bool       `json:"consentimento_novo"`
	UsuarioID             *uuid.UUID `json:"usuario_id,omitempty"`
	IPAddress             *string    `json:"ip_address,omitempty"`
	CriadoEm              time.Time  `json:"criado_em"`
}

// Ações registradas no log de consentimento.
const (
	ConsentimentoConcedido = "concedido"
	ConsentimentoRevogado  = "revogado"
)

// LogAuditoria é registro imutável de ação administrativa sensível.
type LogAuditoria struct {
	ID           uuid.UUID  `json:"id"`
	Modulo       string     `json:"modulo"`
	Acao         string     `json:"acao"`
	Descricao    string     `json:"descricao"`
	RegistroID   *string    `json:"registro_id,omitempty"`
	UsuarioID    *uuid.UUID `json:"usuario_id,omitempty"`
	UsuarioNome  *string    `json:"usuario_nome,omitempty"`
	UsuarioCargo *string    `json:"usuario_cargo,omitempty"`
	IPAddress    *string    `json:"ip_address,omitempty"`
	CriadoEm     time.Time  `json:"criado_em"`
}

// Ator identifica quem executa uma ação sensível (para trilha de auditoria).
type Ator struct {
	UsuarioID *uuid.UUID
	Nome      string
	Cargo     string
	IPAddress string
}

// Titular é a visão unificada de membro ou visitante como titular de dados.
type Titular struct {
	Tipo     string    `json:"tipo"`
	ID       uuid.UUID `json:"id"`
	Nome     string    `json:"nome"`
	Email    *string   `json:"email,omitempty"`
	Telefone *string   `json:"telefone,omitempty"`
}

// NotaPastoralResumo expõe apenas metadados da nota: o conteúdo de
// aconselhamento não integra o pacote de dados do titular.
type NotaPastoralResumo struct {
	ID             uuid.UUID  `json:"id"`
	Titulo         string     `json:"titulo"`
	Nivel          string     `json:"nivel"`
	AutorNome      string     `json:"autor_nome"`
	PossuiConteudo bool       `json:"possui_conteudo"`
	CriadoEm       time.Time  `json:"criado_em"`
	AtualizadoEm   *time.Time `json:"atualizado_em,omitempty"`
}

// DadosTitularExport agrega todos os dados pessoais de um titular.
// Montado sob demanda; nunca persistido.
type DadosTitularExport struct {
	TipoTitular       string                 `json:"tipo_titular"`
	Membro            *membros.Membro        `json:"membro,omitempty"`
	Visitante         *membros.Visitante     `json:"visitante,omitempty"`
	Familia           *membros.Familia       `json:"familia,omitempty"`
	NotasPastorais    []NotaPastoralResumo   `json:"notas_pastorais"`
	Transacoes        []financeiro.Transacao `json:"transacoes_financeiras"`
	AcoesDiaconais    []diaconia.Acao        `json:"acoes_diaconais"`
	LogsConsentimento []LogConsentimento     `json:"logs_consentimento"`
	ExportadoEm       time.Time              `json:"exportado_em"`
}

// OpcoesExclusao parametriza a exclusão em cascata.
type OpcoesExclusao struct {
	Cascade       bool
	Motivo        string
	SolicitacaoID *uuid.UUID
}

// ResultadoExclusaoTitular relata o que foi removido na exclusão.
// Sempre devolvido ao chamador, mesmo em falha parcial.
type ResultadoExclusaoTitular struct {
	Sucesso                   bool       `json:"sucesso"`
	TipoTitular               string     `json:"tipo_titular"`
	TitularID                 uuid.UUID  `json:"titular_id"`
	NotasPastorais            int64      `json:"notas_pastorais_removidas"`
	TransacoesFinanceiras     int64      `json:"transacoes_removidas"`
	LogsConsentimento         int64      `json:"logs_consentimento_removidos"`
	RegistroPrincipalRemovido bool       `json:"registro_principal_removido"`
	Motivo                    string     `json:"motivo,omitempty"`
	SolicitacaoID             *uuid.UUID `json:"solicitacao_id,omitempty"`
	Erro                      string     `json:"erro,omitempty"`
	ExecutadoEm               time.Time  `json:"executado_em"`
}

// IsValidTipo indica se o tipo de solicitação é aceito.
func IsValidTipo(tipo string) bool {
	_, ok := validTipos[strings.ToLower(strings.TrimSpace(tipo))]
	return ok
}

// IsValidStatus indica se o status é aceito.
func IsValidStatus(status string) bool {
	_, ok := validStatuses[strings.ToLower(strings.TrimSpace(status))]
	return ok
}

// IsValidTipoTitular indica se o tipo de titular é aceito.
func IsValidTipoTitular(tipo string) bool {
	_, ok := validTiposTitular[strings.ToLower(strings.TrimSpace(tipo))]
	return ok
}
