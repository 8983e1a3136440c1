package lgpd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/comunidadegraca/portal/internal/auth"
	"github.com/comunidadegraca/portal/internal/config"
	"github.com/comunidadegraca/portal/internal/util"
)

var (
	// ErrEnvioCodigo é genérico de propósito: não distingue titular
	// inexistente de falha de entrega, para não permitir enumeração de
	// cadastros pelo formulário público.
	ErrEnvioCodigo = errors.New("não foi possível enviar o código de verificação")
	// ErrCodigoInvalido cobre código errado, expirado e inexistente.
	ErrCodigoInvalido = errors.New("código inválido ou expirado")
	ErrSessaoInvalida = errors.New("sessão de verificação inválida ou expirada")
)

type titularLookup interface {
	BuscarTitularPorDocumento(ctx context.Context, cpf string, dataNascimento string) (*Titular, error)
}

type redisCommander interface {
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Get(ctx context.Context, key string) *redis.StringCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// VerificacaoService conduz a verificação de identidade de titulares no
// portal público: envio de código por SMS ou e-mail e emissão de sessão
// de uso único após a validação.
type VerificacaoService struct {
	titulares titularLookup
	redis     redisCommander
	sms       SMSSender
	email     EmailSender
	cfg       config.VerificacaoConfig
}

// NewVerificacaoService cria o serviço de verificação.
func NewVerificacaoService(titulares titularLookup, redisClient redisCommander, sms SMSSender, email EmailSender, cfg config.VerificacaoConfig) *VerificacaoService {
	return &VerificacaoService{
		titulares: titulares,
		redis:     redisClient,
		sms:       sms,
		email:     email,
		cfg:       cfg,
	}
}

type codigoEnvelope struct {
	Hash       string `json:"hash"`
	Canal      string `json:"canal"`
	Tentativas int    `json:"tentativas"`
}

type sessaoEnvelope struct {
	TipoTitular string    `json:"tipo_titular"`
	TitularID   uuid.UUID `json:"titular_id"`
	Nome        string    `json:"nome"`
}

// SessaoVerificacao é devolvida ao titular após validar o código.
type SessaoVerificacao struct {
	Token       string    `json:"token"`
	TitularNome string    `json:"titular_nome"`
	ExpiraEm    time.Time `json:"expira_em"`
}

// SessaoTitular identifica o titular autenticado por uma sessão consumida.
type SessaoTitular struct {
	TipoTitular string
	TitularID   uuid.UUID
	Nome        string
}

func codigoRedisKey(tipoTitular string, titularID uuid.UUID) string {
	return fmt.Sprintf("lgpd:codigo:%s:%s", tipoTitular, titularID)
}

func sessaoRedisKey(tokenHash string) string {
	return "lgpd:sessao:" + tokenHash
}

// SolicitarCodigo localiza o titular por CPF e data de nascimento e envia
// código de 6 dígitos para os contatos cadastrados. SMS tem preferência;
// e-mail serve de contingência. O telefone informado pelo solicitante só
// é usado quando o cadastro não tem telefone próprio.
//
// Devolve o canal utilizado. Qualquer falha vira ErrEnvioCodigo.
func (s *VerificacaoService) SolicitarCodigo(ctx context.Context, cpf, dataNascimento, telefoneInformado string) (string, error) {
	cpf = util.NormalizeCPF(cpf)
	if err := util.ValidateCPF(cpf); err != nil || dataNascimento == "" {
		return "", ErrEnvioCodigo
	}

	titular, err := s.titulares.BuscarTitularPorDocumento(ctx, cpf, dataNascimento)
	if err != nil {
		if !errors.Is(err, ErrTitularNotFound) {
			log.Error().Err(err).Msg("verificação: busca de titular falhou")
		}
		return "", ErrEnvioCodigo
	}

	telefone := ""
	if titular.Telefone != nil {
		telefone = *titular.Telefone
	}
	if telefone == "" {
		telefone = telefoneInformado
	}
	email := ""
	if titular.Email != nil {
		email = *titular.Email
	}
	if telefone == "" && email == "" {
		return "", ErrEnvioCodigo
	}

	codigo, err := GerarCodigoVerificacao()
	if err != nil {
		return "", ErrEnvioCodigo
	}

	hash, err := HashearCodigo(codigo)
	if err != nil {
		return "", ErrEnvioCodigo
	}

	mensagem := fmt.Sprintf("Comunidade Graça: seu código de verificação é %s. Ele expira em %d minutos.",
		codigo, int(s.cfg.CodigoTTL.Minutes()))

	canal, envioErr := s.entregar(ctx, telefone, email, mensagem)
	if envioErr != nil {
		log.Warn().Err(envioErr).Str("tipo_titular", titular.Tipo).Msg("verificação: entrega do código falhou")
		return "", ErrEnvioCodigo
	}

	envelope := codigoEnvelope{Hash: hash, Canal: canal}
	payload, err := json.Marshal(envelope)
	if err != nil {
		return "", ErrEnvioCodigo
	}

	key := codigoRedisKey(titular.Tipo, titular.ID)
	if err := s.redis.Set(ctx, key, payload, s.cfg.CodigoTTL).Err(); err != nil {
		log.Error().Err(err).Msg("verificação: persistência do código falhou")
		return "", ErrEnvioCodigo
	}

	return canal, nil
}

func (s *VerificacaoService) entregar(ctx context.Context, telefone, email, mensagem string) (string, error) {
	var smsErr error
	if telefone != "" && s.sms != nil {
		smsErr = s.sms.EnviarSMS(ctx, NormalizarTelefone(telefone), mensagem)
		if smsErr == nil {
			return CanalSMS, nil
		}
	}

	if email != "" && s.email != nil {
		emailErr := s.email.EnviarEmail(ctx, email, "Código de verificação", mensagem)
		if emailErr == nil {
			return CanalEmail, nil
		}
		if smsErr != nil {
			return "", fmt.Errorf("sms: %v; e-mail: %v", smsErr, emailErr)
		}
		return "", emailErr
	}

	if smsErr != nil {
		return "", smsErr
	}
	return "", errors.New("nenhum canal de contato disponível")
}

// ValidarCodigo confere o código enviado e, quando válido, emite sessão
// de verificação de uso único. Após três tentativas erradas o código é
// descartado e um novo envio passa a ser necessário.
func (s *VerificacaoService) ValidarCodigo(ctx context.Context, cpf, dataNascimento, codigo string) (*SessaoVerificacao, error) {
	cpf = util.NormalizeCPF(cpf)
	if err := util.ValidateCPF(cpf); err != nil || codigo == "" {
		return nil, ErrCodigoInvalido
	}

	titular, err := s.titulares.BuscarTitularPorDocumento(ctx, cpf, dataNascimento)
	if err != nil {
		return nil, ErrCodigoInvalido
	}

	key := codigoRedisKey(titular.Tipo, titular.ID)
	raw, err := s.redis.Get(ctx, key).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Error().Err(err).Msg("verificação: leitura do código falhou")
		}
		return nil, ErrCodigoInvalido
	}

	var envelope codigoEnvelope
	if err := json.Unmarshal([]byte(raw), &envelope); err != nil {
		_ = s.redis.Del(ctx, key)
		return nil, ErrCodigoInvalido
	}

	if !CompararCodigo(codigo, envelope.Hash) {
		envelope.Tentativas++
		if envelope.Tentativas >= s.cfg.MaxTentativas {
			_ = s.redis.Del(ctx, key)
			return nil, ErrCodigoInvalido
		}
		if payload, err := json.Marshal(envelope); err == nil {
			_ = s.redis.Set(ctx, key, payload, redis.KeepTTL)
		}
		return nil, ErrCodigoInvalido
	}

	_ = s.redis.Del(ctx, key)

	token, tokenHash, err := auth.GenerateRefreshToken()
	if err != nil {
		return nil, err
	}

	sessao := sessaoEnvelope{TipoTitular: titular.Tipo, TitularID: titular.ID, Nome: titular.Nome}
	payload, err := json.Marshal(sessao)
	if err != nil {
		return nil, err
	}

	if err := s.redis.Set(ctx, sessaoRedisKey(tokenHash), payload, s.cfg.SessaoTTL).Err(); err != nil {
		return nil, err
	}

	return &SessaoVerificacao{
		Token:       token,
		TitularNome: titular.Nome,
		ExpiraEm:    time.Now().UTC().Add(s.cfg.SessaoTTL),
	}, nil
}

// ConsumirSessao valida e invalida a sessão em uma única operação: cada
// token autoriza exatamente uma ação de autoatendimento.
func (s *VerificacaoService) ConsumirSessao(ctx context.Context, token string) (*SessaoTitular, error) {
	if token == "" {
		return nil, ErrSessaoInvalida
	}

	key := sessaoRedisKey(auth.HashRefreshToken(token))
	raw, err := s.redis.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrSessaoInvalida
		}
		return nil, err
	}

	_ = s.redis.Del(ctx, key)

	var envelope sessaoEnvelope
	if err := json.Unmarshal([]byte(raw), &envelope); err != nil {
		return nil, ErrSessaoInvalida
	}

	return &SessaoTitular{
		TipoTitular: envelope.TipoTitular,
		TitularID:   envelope.TitularID,
		Nome:        envelope.Nome,
	}, nil
}
