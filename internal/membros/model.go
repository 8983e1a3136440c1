package membros

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound          = errors.New("membro não encontrado")
	ErrVisitanteNotFound = errors.New("visitante não encontrado")
	ErrFamiliaNotFound   = errors.New("família não encontrada")
	ErrCPFDuplicado      = errors.New("cpf já cadastrado")
)

// Membro representa pessoa com vínculo formal na comunidade.
type Membro struct {
	ID                uuid.UUID  `json:"id"`
	Nome              string     `json:"nome"`
	CPF               string     `json:"cpf"`
	Email             *string    `json:"email,omitempty"`
	Telefone          *string    `json:"telefone,omitempty"`
	DataNascimento    time.Time  `json:"data_nascimento"`
	Endereco          *string    `json:"endereco,omitempty"`
	EstadoCivil       *string    `json:"estado_civil,omitempty"`
	FamiliaID         *uuid.UUID `json:"familia_id,omitempty"`
	DataBatismo       *time.Time `json:"data_batismo,omitempty"`
	ConsentimentoLGPD bool       `json:"consentimento_lgpd"`
	Ativo             bool       `json:"ativo"`
	CriadoEm          time.Time  `json:"criado_em"`
	AtualizadoEm      time.Time  `json:"atualizado_em"`
}

// Visitante representa pessoa sem vínculo de membresia.
type Visitante struct {
	ID             uuid.UUID  `json:"id"`
	Nome           string     `json:"nome"`
	CPF            *string    `json:"cpf,omitempty"`
	Email          *string    `json:"email,omitempty"`
	Telefone       *string    `json:"telefone,omitempty"`
	DataNascimento *time.Time `json:"data_nascimento,omitempty"`
	PrimeiraVisita time.Time  `json:"primeira_visita"`
	ComoConheceu   *string    `json:"como_conheceu,omitempty"`
	CriadoEm       time.Time  `json:"criado_em"`
}

// Familia agrupa membros de um mesmo núcleo familiar.
type Familia struct {
	ID       uuid.UUID `json:"id"`
	Nome     string    `json:"nome"`
	Endereco *string   `json:"endereco,omitempty"`
	CriadoEm time.Time `json:"criado_em"`
}

// CreateMembroInput encapsula campos para cadastro de membro.
type CreateMembroInput struct {
	Nome              string
	CPF               string
	Email             *string
	Telefone          *string
	DataNascimento    time.Time
	Endereco          *string
	EstadoCivil       *string
	FamiliaID         *uuid.UUID
	DataBatismo       *time.Time
	ConsentimentoLGPD bool
}

// UpdateMembroInput permite atualização parcial do cadastro.
type UpdateMembroInput struct {
	ID          uuid.UUID
	Nome        *string
	Email       *string
	Telefone    *string
	Endereco    *string
	EstadoCivil *string
	FamiliaID   *uuid.UUID
	Ativo       *bool
}

// CreateVisitanteInput encapsula campos para registro de visitante.
type CreateVisitanteInput struct {
	Nome           string
	CPF            *string
	Email          *string
	Telefone       *string
	DataNascimento *time.Time
	PrimeiraVisita time.Time
	ComoConheceu   *string
}

// MembroFilter permite filtrar a listagem de membros.
type MembroFilter struct {
	Nome   string
	Ativo  *bool
	Limit  int
	Offset int
}
