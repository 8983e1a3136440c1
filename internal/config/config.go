package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config centraliza a configuração carregada do ambiente.
type Config struct {
	Port          int
	DBDSN         string
	RedisURL      string
	JWTAccessTTL  time.Duration
	JWTRefreshTTL time.Duration
	JWTSecret     string
	AllowOrigins  []string

	RateLimitPublic RateLimitConfig
	RateLimitAuth   RateLimitConfig

	Verificacao VerificacaoConfig
	SMS         SMSConfig
	Email       EmailConfig
}

// RateLimitConfig representa limites simples para throttling.
type RateLimitConfig struct {
	RequestsPerSecond float64
	Burst             int
}

// VerificacaoConfig define as janelas do fluxo de verificação de titulares.
type VerificacaoConfig struct {
	CodigoTTL     time.Duration
	SessaoTTL     time.Duration
	MaxTentativas int
}

// SMSConfig configura o gateway de SMS.
type SMSConfig struct {
	APIURL   string
	APIToken string
}

// EmailConfig configura o provedor de e-mail transacional.
type EmailConfig struct {
	APIURL    string
	APIToken  string
	Remetente string
}

// Load carrega variáveis de ambiente e aplica defaults seguros.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}

	portStr := getEnv("PORT", "8080")
	port, err := strconv.Atoi(portStr)
	if err != nil || port <= 0 {
		return nil, errors.New("PORT inválida")
	}
	cfg.Port = port

	cfg.DBDSN = getEnv("DB_DSN", "")
	if cfg.DBDSN == "" {
		return nil, errors.New("DB_DSN obrigatório")
	}

	cfg.RedisURL = getEnv("REDIS_URL", "")
	if cfg.RedisURL == "" {
		return nil, errors.New("REDIS_URL obrigatório")
	}

	cfg.JWTSecret = strings.TrimSpace(getEnv("JWT_SECRET", ""))
	if len(cfg.JWTSecret) < 32 {
		return nil, errors.New("JWT_SECRET deve ter pelo menos 32 caracteres")
	}

	accessTTL, err := parseDurationEnv("JWT_ACCESS_TTL", 15*time.Minute)
	if err != nil {
		return nil, err
	}
	cfg.JWTAccessTTL = accessTTL

	refreshTTL, err := parseDurationEnv("JWT_REFRESH_TTL", 30*24*time.Hour)
	if err != nil {
		return nil, err
	}
	cfg.JWTRefreshTTL = refreshTTL

	allowOrigins := strings.Split(getEnv("ALLOW_ORIGINS", ""), ",")
	cfg.AllowOrigins = nil
	for _, origin := range allowOrigins {
		origin = strings.TrimSpace(origin)
		if origin != "" {
			cfg.AllowOrigins = append(cfg.AllowOrigins, origin)
		}
	}

	cfg.RateLimitPublic = RateLimitConfig{RequestsPerSecond: 10, Burst: 20}
	cfg.RateLimitAuth = RateLimitConfig{RequestsPerSecond: 10, Burst: 40}

	codigoTTL, err := parseDurationEnv("LGPD_CODIGO_TTL", 10*time.Minute)
	if err != nil {
		return nil, err
	}
	sessaoTTL, err := parseDurationEnv("LGPD_SESSAO_TTL", 30*time.Minute)
	if err != nil {
		return nil, err
	}
	cfg.Verificacao = VerificacaoConfig{
		CodigoTTL:     codigoTTL,
		SessaoTTL:     sessaoTTL,
		MaxTentativas: 3,
	}

	cfg.SMS = SMSConfig{
		APIURL:   strings.TrimSpace(getEnv("SMS_API_URL", "")),
		APIToken: strings.TrimSpace(getEnv("SMS_API_TOKEN", "")),
	}

	cfg.Email = EmailConfig{
		APIURL:    strings.TrimSpace(getEnv("EMAIL_API_URL", "")),
		APIToken:  strings.TrimSpace(getEnv("EMAIL_API_TOKEN", "")),
		Remetente: strings.TrimSpace(getEnv("EMAIL_REMETENTE", "nao-responda@comunidadegraca.org.br")),
	}

	return cfg, nil
}

func getEnv(key, def string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return def
}

func parseDurationEnv(key string, def time.Duration) (time.Duration, error) {
	val := getEnv(key, "")
	if val == "" {
		return def, nil
	}
	dur, err := time.ParseDuration(val)
	if err != nil {
		return 0, errors.New(key + " inválido")
	}
	return dur, nil
}
