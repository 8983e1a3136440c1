package diaconia

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound    = errors.New("ação diaconal não encontrada")
	ErrInvalidTipo = errors.New("tipo de ação inválido")
)

const (
	TipoCestaBasica    = "cesta_basica"
	TipoVisita         = "visita"
	TipoAuxilioFinance = "auxilio_financeiro"
	TipoEncaminhamento = "encaminhamento"
	TipoOutro          = "outro"
)

var validTipos = map[string]struct{}{
	TipoCestaBasica:    {},
	TipoVisita:         {},
	TipoAuxilioFinance: {},
	TipoEncaminhamento: {},
	TipoOutro:          {},
}

// Acao representa uma ação de assistência diaconal a um beneficiário.
type Acao struct {
	ID               uuid.UUID  `json:"id"`
	TipoBeneficiario string     `json:"tipo_beneficiario"`
	BeneficiarioID   uuid.UUID  `json:"beneficiario_id"`
	TipoAcao         string     `json:"tipo_acao"`
	Descricao        *string    `json:"descricao,omitempty"`
	ValorCentavos    *int64     `json:"valor_centavos,omitempty"`
	ResponsavelID    *uuid.UUID `json:"responsavel_id,omitempty"`
	DataAcao         time.Time  `json:"data_acao"`
	CriadoEm         time.Time  `json:"criado_em"`
}

// CreateAcaoInput encapsula nova ação diaconal.
type CreateAcaoInput struct {
	TipoBeneficiario string
	BeneficiarioID   uuid.UUID
	TipoAcao         string
	Descricao        *string
	ValorCentavos    *int64
	ResponsavelID    *uuid.UUID
	DataAcao         time.Time
}

// IsValidTipo indica se o tipo de ação é aceito.
func IsValidTipo(tipo string) bool {
	_, ok := validTipos[strings.ToLower(strings.TrimSpace(tipo))]
	return ok
}
