package financeiro

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound     = errors.New("transação não encontrada")
	ErrInvalidTipo  = errors.New("tipo de transação inválido")
	ErrInvalidValor = errors.New("valor deve ser positivo")
)

const (
	TipoDizimo  = "dizimo"
	TipoOferta  = "oferta"
	TipoDoacao  = "doacao"
	TipoDespesa = "despesa"
)

var validTipos = map[string]struct{}{
	TipoDizimo:  {},
	TipoOferta:  {},
	TipoDoacao:  {},
	TipoDespesa: {},
}

// Transacao representa um lançamento no livro-caixa.
// ValorCentavos evita aritmética de ponto flutuante em dinheiro.
type Transacao struct {
	ID            uuid.UUID  `json:"id"`
	Tipo          string     `json:"tipo"`
	ValorCentavos int64      `json:"valor_centavos"`
	Descricao     *string    `json:"descricao,omitempty"`
	TipoTitular   *string    `json:"tipo_titular,omitempty"`
	TitularID     *uuid.UUID `json:"titular_id,omitempty"`
	DataTransacao time.Time  `json:"data_transacao"`
	RegistradoPor *uuid.UUID `json:"registrado_por,omitempty"`
	CriadoEm      time.Time  `json:"criado_em"`
}

// CreateTransacaoInput encapsula novo lançamento.
type CreateTransacaoInput struct {
	Tipo          string
	ValorCentavos int64
	Descricao     *string
	TipoTitular   *string
	TitularID     *uuid.UUID
	DataTransacao time.Time
	RegistradoPor *uuid.UUID
}

// TransacaoFilter permite filtrar a listagem de lançamentos.
type TransacaoFilter struct {
	Tipo        string
	TipoTitular string
	TitularID   *uuid.UUID
	Inicio      *time.Time
	Fim         *time.Time
	Limit       int
	Offset      int
}

// IsValidTipo indica se o tipo de lançamento é aceito.
func IsValidTipo(tipo string) bool {
	_, ok := validTipos[strings.ToLower(strings.TrimSpace(tipo))]
	return ok
}
