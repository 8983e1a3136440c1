package pastoral

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound     = errors.New("nota pastoral não encontrada")
	ErrInvalidNivel = errors.New("nível de confidencialidade inválido")
)

const (
	NivelGeral    = "geral"
	NivelPastoral = "pastoral"
	NivelRestrito = "restrito"
)

var validNiveis = map[string]struct{}{
	NivelGeral:    {},
	NivelPastoral: {},
	NivelRestrito: {},
}

// Nota representa registro de acompanhamento pastoral.
// O conteúdo pode conter relatos de aconselhamento e é tratado como dado sensível.
type Nota struct {
	ID           uuid.UUID  `json:"id"`
	TipoTitular  string     `json:"tipo_titular"`
	TitularID    uuid.UUID  `json:"titular_id"`
	Titulo       string     `json:"titulo"`
	Conteudo     string     `json:"conteudo"`
	Nivel        string     `json:"nivel"`
	AutorID      *uuid.UUID `json:"autor_id,omitempty"`
	AutorNome    string     `json:"autor_nome"`
	CriadoEm     time.Time  `json:"criado_em"`
	AtualizadoEm *time.Time `json:"atualizado_em,omitempty"`
}

// CreateNotaInput encapsula nova nota pastoral.
type CreateNotaInput struct {
	TipoTitular string
	TitularID   uuid.UUID
	Titulo      string
	Conteudo    string
	Nivel       string
	AutorID     *uuid.UUID
	AutorNome   string
}

// NormalizeNivel padroniza nível de confidencialidade.
func NormalizeNivel(nivel string) string {
	nivel = strings.ToLower(strings.TrimSpace(nivel))
	if nivel == "" {
		return NivelPastoral
	}
	return nivel
}

// IsValidNivel indica se o nível é aceito.
func IsValidNivel(nivel string) bool {
	_, ok := validNiveis[strings.ToLower(strings.TrimSpace(nivel))]
	return ok
}
