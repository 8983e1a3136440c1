package membros

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/comunidadegraca/portal/internal/util"
)

// MudancaConsentimento descreve alteração de consentimento LGPD de um membro.
type MudancaConsentimento struct {
	MembroID  uuid.UUID
	Anterior  bool
	Novo      bool
	UsuarioID *uuid.UUID
	IPAddress string
}

// consentimentoLogger registra mudanças de consentimento em trilha imutável.
type consentimentoLogger interface {
	RegistrarConsentimentoMembro(ctx context.Context, mudanca MudancaConsentimento) error
}

// Service reúne regras de negócio do cadastro de pessoas.
type Service struct {
	repo       *Repository
	consentLog consentimentoLogger
}

// NewService cria nova instância do serviço.
func NewService(repo *Repository, consentLog consentimentoLogger) *Service {
	return &Service{repo: repo, consentLog: consentLog}
}

// CreateMembro valida e cadastra novo membro.
func (s *Service) CreateMembro(ctx context.Context, input CreateMembroInput) (*Membro, error) {
	input.Nome = strings.TrimSpace(input.Nome)
	if input.Nome == "" {
		return nil, errors.New("nome obrigatório")
	}

	input.CPF = util.NormalizeCPF(input.CPF)
	if err := util.ValidateCPF(input.CPF); err != nil {
		return nil, err
	}

	if input.Email != nil && strings.TrimSpace(*input.Email) != "" {
		if err := util.ValidateEmail(*input.Email); err != nil {
			return nil, err
		}
	}

	if input.DataNascimento.IsZero() || input.DataNascimento.After(time.Now()) {
		return nil, errors.New("data de nascimento inválida")
	}

	if input.FamiliaID != nil {
		if _, err := s.repo.GetFamilia(ctx, *input.FamiliaID); err != nil {
			return nil, err
		}
	}

	return s.repo.CreateMembro(ctx, input)
}

// GetMembro recupera um membro.
func (s *Service) GetMembro(ctx context.Context, id uuid.UUID) (*Membro, error) {
	return s.repo.GetMembro(ctx, id)
}

// ListMembros lista membros dentro do filtro informado.
func (s *Service) ListMembros(ctx context.Context, filter MembroFilter) ([]Membro, error) {
	return s.repo.ListMembros(ctx, filter)
}

// UpdateMembro altera dados cadastrais.
func (s *Service) UpdateMembro(ctx context.Context, input UpdateMembroInput) (*Membro, error) {
	if input.Nome != nil && strings.TrimSpace(*input.Nome) == "" {
		return nil, errors.New("nome obrigatório")
	}
	if input.Email != nil && strings.TrimSpace(*input.Email) != "" {
		if err := util.ValidateEmail(*input.Email); err != nil {
			return nil, err
		}
	}
	return s.repo.UpdateMembro(ctx, input)
}

// AtualizarConsentimento altera o consentimento LGPD e registra a mudança.
// O log de consentimento é obrigatório: sem trilha, a mudança não é aplicada.
func (s *Service) AtualizarConsentimento(ctx context.Context, id uuid.UUID, novo bool, usuarioID *uuid.UUID, ip string) (*Membro, error) {
	atual, err := s.repo.GetMembro(ctx, id)
	if err != nil {
		return nil, err
	}

	if atual.ConsentimentoLGPD == novo {
		return atual, nil
	}

	mudanca := MudancaConsentimento{
		MembroID:  id,
		Anterior:  atual.ConsentimentoLGPD,
		Novo:      novo,
		UsuarioID: usuarioID,
		IPAddress: ip,
	}
	if err := s.consentLog.RegistrarConsentimentoMembro(ctx, mudanca); err != nil {
		log.Error().Err(err).Str("membro_id", id.String()).Msg("falha ao registrar log de consentimento")
		return nil, err
	}

	return s.repo.UpdateConsentimento(ctx, id, novo)
}

// CreateVisitante valida e registra novo visitante.
func (s *Service) CreateVisitante(ctx context.Context, input CreateVisitanteInput) (*Visitante, error) {
	input.Nome = strings.TrimSpace(input.Nome)
	if input.Nome == "" {
		return nil, errors.New("nome obrigatório")
	}

	if input.CPF != nil {
		normalizado := util.NormalizeCPF(*input.CPF)
		if normalizado != "" {
			if err := util.ValidateCPF(normalizado); err != nil {
				return nil, err
			}
			input.CPF = &normalizado
		} else {
			input.CPF = nil
		}
	}

	if input.PrimeiraVisita.IsZero() {
		input.PrimeiraVisita = time.Now()
	}

	return s.repo.CreateVisitante(ctx, input)
}

// GetVisitante recupera um visitante.
func (s *Service) GetVisitante(ctx context.Context, id uuid.UUID) (*Visitante, error) {
	return s.repo.GetVisitante(ctx, id)
}

// ListVisitantes lista visitantes mais recentes.
func (s *Service) ListVisitantes(ctx context.Context, limit, offset int) ([]Visitante, error) {
	return s.repo.ListVisitantes(ctx, limit, offset)
}

// CreateFamilia registra novo núcleo familiar.
func (s *Service) CreateFamilia(ctx context.Context, nome string, endereco *string) (*Familia, error) {
	if strings.TrimSpace(nome) == "" {
		return nil, errors.New("nome obrigatório")
	}
	return s.repo.CreateFamilia(ctx, nome, endereco)
}
