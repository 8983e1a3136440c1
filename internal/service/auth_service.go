package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/comunidadegraca/portal/internal/auth"
	"github.com/comunidadegraca/portal/internal/repo"
)

var (
	// ErrInvalidCredentials indica falha na autenticação.
	ErrInvalidCredentials = errors.New("credenciais inválidas")
	// ErrAccountDisabled indica conta desativada.
	ErrAccountDisabled = errors.New("conta desativada")
	// ErrRefreshInvalid indica refresh token inválido ou expirado.
	ErrRefreshInvalid = errors.New("refresh token inválido")
)

const audienceBackoffice = "backoffice"

type authRepository interface {
	GetUsuarioByEmail(ctx context.Context, email string) (repo.Usuario, error)
	GetUsuarioByID(ctx context.Context, id uuid.UUID) (repo.Usuario, error)
}

type redisCommander interface {
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Get(ctx context.Context, key string) *redis.StringCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// AuthService concentra regras de autenticação do backoffice.
type AuthService struct {
	repo       authRepository
	redis      redisCommander
	jwt        *auth.JWTManager
	refreshTTL time.Duration
}

// NewAuthService cria novo serviço.
func NewAuthService(r authRepository, redisClient redisCommander, jwtMgr *auth.JWTManager, refreshTTL time.Duration) *AuthService {
	return &AuthService{repo: r, redis: redisClient, jwt: jwtMgr, refreshTTL: refreshTTL}
}

// JWT expõe gerenciador de JWT (útil em middlewares).
func (s *AuthService) JWT() *auth.JWTManager {
	return s.jwt
}

// LoginResult representa retorno padrão de autenticações.
type LoginResult struct {
	AccessToken   string
	RefreshToken  string
	Subject       uuid.UUID
	Roles         []string
	Profile       Profile
	RefreshExpiry time.Time
}

// Profile descreve usuária(o) do backoffice.
type Profile struct {
	ID    string `json:"id"`
	Nome  string `json:"nome"`
	Email string `json:"email"`
	Cargo string `json:"cargo"`
}

// Login autentica usuários internos por e-mail e senha.
func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	user, err := s.repo.GetUsuarioByEmail(ctx, strings.ToLower(email))
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			log.Warn().Msg("login: usuário não encontrado")
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	ok, err := auth.Verify(password, user.SenhaHash)
	if err != nil {
		log.Warn().Err(err).Msg("login: verificação de senha falhou")
		return nil, ErrInvalidCredentials
	}
	if !ok {
		log.Warn().Msg("login: senha inválida")
		return nil, ErrInvalidCredentials
	}

	return s.loginFromUser(ctx, user)
}

func (s *AuthService) loginFromUser(ctx context.Context, user repo.Usuario) (*LoginResult, error) {
	if !user.Ativo {
		return nil, ErrAccountDisabled
	}

	roles := []string{strings.ToUpper(strings.TrimSpace(user.Cargo))}

	access, _, err := s.jwt.GenerateAccessToken(user.ID.String(), audienceBackoffice, roles)
	if err != nil {
		return nil, err
	}

	refreshRaw, refreshHash, err := auth.GenerateRefreshToken()
	if err != nil {
		return nil, err
	}

	expiry := time.Now().Add(s.refreshTTL)
	key := auth.RefreshRedisKey(audienceBackoffice, refreshHash)
	if err := s.redis.Set(ctx, key, user.ID.String(), s.refreshTTL).Err(); err != nil {
		return nil, err
	}

	return &LoginResult{
		AccessToken:   access,
		RefreshToken:  refreshRaw,
		Subject:       user.ID,
		Roles:         roles,
		Profile:       profileFromUser(user),
		RefreshExpiry: expiry,
	}, nil
}

// Refresh valida refresh token e emite novo par de credenciais.
func (s *AuthService) Refresh(ctx context.Context, rawToken string) (*LoginResult, error) {
	key := auth.RefreshRedisKey(audienceBackoffice, auth.HashRefreshToken(rawToken))

	subject, err := s.redis.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrRefreshInvalid
		}
		return nil, err
	}

	userID, err := uuid.Parse(subject)
	if err != nil {
		return nil, ErrRefreshInvalid
	}

	user, err := s.repo.GetUsuarioByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrRefreshInvalid
		}
		return nil, err
	}

	// rotação: invalida o token usado antes de emitir o próximo
	_ = s.redis.Del(ctx, key)

	return s.loginFromUser(ctx, user)
}

// Logout revoga o refresh token atual.
func (s *AuthService) Logout(ctx context.Context, rawToken string) error {
	key := auth.RefreshRedisKey(audienceBackoffice, auth.HashRefreshToken(rawToken))
	return s.redis.Del(ctx, key).Err()
}

// GetMe retorna o perfil do usuário autenticado.
func (s *AuthService) GetMe(ctx context.Context, subject uuid.UUID) (Profile, []string, error) {
	user, err := s.repo.GetUsuarioByID(ctx, subject)
	if err != nil {
		return Profile{}, nil, err
	}
	return profileFromUser(user), []string{strings.ToUpper(strings.TrimSpace(user.Cargo))}, nil
}

func profileFromUser(user repo.Usuario) Profile {
	return Profile{
		ID:    user.ID.String(),
		Nome:  user.Nome,
		Email: user.Email,
		Cargo: strings.ToUpper(strings.TrimSpace(user.Cargo)),
	}
}
