package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/comunidadegraca/portal/internal/config"
	"github.com/comunidadegraca/portal/internal/diaconia"
	"github.com/comunidadegraca/portal/internal/financeiro"
	httpmiddleware "github.com/comunidadegraca/portal/internal/http/middleware"
	"github.com/comunidadegraca/portal/internal/lgpd"
	"github.com/comunidadegraca/portal/internal/membros"
	"github.com/comunidadegraca/portal/internal/pastoral"
	"github.com/comunidadegraca/portal/internal/service"
)

type Handler struct {
	cfg           *config.Config
	pool          *pgxpool.Pool
	redis         *redis.Client
	authService   *service.AuthService
	publicLimiter *httpmiddleware.RateLimiter
	authLimiter   *httpmiddleware.RateLimiter
	devCookies    bool
}

const refreshCookieBackoffice = "cg_refresh"

// NewRouter devolve roteador configurado com todos os módulos do portal.
func NewRouter(cfg *config.Config, pool *pgxpool.Pool, redisClient *redis.Client, authService *service.AuthService) (http.Handler, error) {
	devCookies := false
	for _, origin := range cfg.AllowOrigins {
		if strings.Contains(origin, "localhost") {
			devCookies = true
			break
		}
	}

	membrosRepo := membros.NewRepository(pool)
	pastoralRepo := pastoral.NewRepository(pool)
	financeiroRepo := financeiro.NewRepository(pool)
	diaconiaRepo := diaconia.NewRepository(pool)
	lgpdRepo := lgpd.NewRepository(pool)

	exportacaoService := lgpd.NewExportacaoService(membrosRepo, pastoralRepo, financeiroRepo, diaconiaRepo, lgpdRepo)
	exclusaoService := lgpd.NewExclusaoService(lgpdRepo)
	lgpdService := lgpd.NewService(lgpdRepo, exportacaoService, exclusaoService)

	membrosService := membros.NewService(membrosRepo, lgpdService)

	smsGateway := lgpd.NewHTTPSMSGateway(cfg.SMS)
	emailProvider := lgpd.NewHTTPEmailProvider(cfg.Email)
	verificacaoService := lgpd.NewVerificacaoService(lgpdRepo, redisClient, smsGateway, emailProvider, cfg.Verificacao)

	membrosHandler := membros.NewHandler(membrosService)
	pastoralHandler := pastoral.NewHandler(pastoralRepo)
	financeiroHandler := financeiro.NewHandler(financeiroRepo)
	diaconiaHandler := diaconia.NewHandler(diaconiaRepo)
	lgpdHandler := lgpd.NewHandler(lgpdService, verificacaoService)

	h := &Handler{
		cfg:           cfg,
		pool:          pool,
		redis:         redisClient,
		authService:   authService,
		publicLimiter: httpmiddleware.NewRateLimiter(cfg.RateLimitPublic.RequestsPerSecond, cfg.RateLimitPublic.Burst),
		authLimiter:   httpmiddleware.NewRateLimiter(cfg.RateLimitAuth.RequestsPerSecond, cfg.RateLimitAuth.Burst),
		devCookies:    devCookies,
	}

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(httpmiddleware.Logging)
	r.Use(httpmiddleware.Recover)
	r.Use(httpmiddleware.CORS(cfg.AllowOrigins))

	r.Group(func(public chi.Router) {
		public.Use(httpmiddleware.IPRateLimit(h.publicLimiter))

		public.Get("/health", h.Health)
		public.Get("/ready", h.Ready)

		public.Route("/auth", func(auth chi.Router) {
			auth.Post("/login", h.Login)
			auth.Post("/refresh", h.Refresh)
			auth.Post("/logout", h.Logout)
		})

		public.Route("/lgpd", func(portal chi.Router) {
			lgpd.MountPublico(portal, lgpdHandler)
		})
	})

	r.Group(func(private chi.Router) {
		private.Use(httpmiddleware.Auth(authService.JWT()))
		private.Use(httpmiddleware.UserRateLimit(h.authLimiter))

		private.Get("/me", h.Me)

		private.Group(func(cadastro chi.Router) {
			cadastro.Use(httpmiddleware.RequireCargos("ADMIN", "PASTOR", "SECRETARIA"))
			membros.Mount(cadastro, membrosHandler)
		})

		private.Group(func(aconselhamento chi.Router) {
			aconselhamento.Use(httpmiddleware.RequireCargos("ADMIN", "PASTOR"))
			aconselhamento.Route("/pastoral", func(r chi.Router) {
				pastoral.Mount(r, pastoralHandler)
			})
		})

		private.Group(func(caixa chi.Router) {
			caixa.Use(httpmiddleware.RequireCargos("ADMIN", "TESOUREIRO"))
			caixa.Route("/financeiro", func(r chi.Router) {
				financeiro.Mount(r, financeiroHandler)
			})
		})

		private.Group(func(assistencia chi.Router) {
			assistencia.Use(httpmiddleware.RequireCargos("ADMIN", "PASTOR", "DIACONO"))
			assistencia.Route("/diaconia", func(r chi.Router) {
				diaconia.Mount(r, diaconiaHandler)
			})
		})

		private.Group(func(privacidade chi.Router) {
			privacidade.Use(httpmiddleware.RequireCargos("ADMIN", "PASTOR"))
			privacidade.Route("/admin/lgpd", func(r chi.Router) {
				lgpd.Mount(r, lgpdHandler)
			})
		})
	})

	return r, nil
}

// Health responde status simples.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Ready valida conexões com Postgres e Redis.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	dbErr := h.pool.Ping(ctx)
	redisErr := h.redis.Ping(ctx).Err()

	if dbErr != nil || redisErr != nil {
		WriteError(w, http.StatusServiceUnavailable, "INTERNAL", "dependências indisponíveis", map[string]any{
			"db":    errorString(dbErr),
			"redis": errorString(redisErr),
		})
		return
	}

	WriteJSON(w, http.StatusOK, map[string]bool{"ready": true})
}

func errorString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// Login realiza autenticação de colaboradores.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Email string `json:"email"`
		Senha string `json:"senha"`
	}

	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "JSON inválido", nil)
		return
	}

	if strings.TrimSpace(payload.Email) == "" || strings.TrimSpace(payload.Senha) == "" {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "email e senha são obrigatórios", nil)
		return
	}

	result, err := h.authService.Login(r.Context(), payload.Email, payload.Senha)
	if err != nil {
		h.handleAuthError(w, err)
		return
	}

	h.writeLoginSuccess(w, result)
}

// Refresh renova o par de credenciais a partir do cookie de refresh.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	token, err := getRefreshFromRequest(r)
	if err != nil {
		WriteError(w, http.StatusUnauthorized, "AUTH", "refresh ausente", nil)
		return
	}

	result, err := h.authService.Refresh(r.Context(), token)
	if err != nil {
		if errors.Is(err, service.ErrRefreshInvalid) {
			WriteError(w, http.StatusUnauthorized, "AUTH", "refresh inválido", nil)
			return
		}
		WriteError(w, http.StatusInternalServerError, "INTERNAL", "erro ao renovar sessão", nil)
		return
	}

	h.writeLoginSuccess(w, result)
}

// Logout revoga refresh token atual.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if token, err := getRefreshFromRequest(r); err == nil {
		_ = h.authService.Logout(r.Context(), token)
	}

	h.clearRefreshCookie(w)
	WriteJSON(w, http.StatusOK, map[string]string{"status": "logged_out"})
}

// Me retorna informações do usuário autenticado.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	subjectStr := httpmiddleware.GetSubject(r.Context())

	subject, err := uuid.Parse(subjectStr)
	if err != nil {
		WriteError(w, http.StatusUnauthorized, "AUTH", "subject inválido", nil)
		return
	}

	profile, roles, err := h.authService.GetMe(r.Context(), subject)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "INTERNAL", "não foi possível carregar perfil", nil)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"user":  profile,
		"roles": roles,
	})
}

func (h *Handler) handleAuthError(w http.ResponseWriter, err error) {
	switch err {
	case service.ErrInvalidCredentials:
		WriteError(w, http.StatusUnauthorized, "AUTH", err.Error(), nil)
	case service.ErrAccountDisabled:
		WriteError(w, http.StatusForbidden, "FORBIDDEN", err.Error(), nil)
	default:
		WriteError(w, http.StatusInternalServerError, "INTERNAL", "erro ao autenticar", nil)
	}
}

func (h *Handler) writeLoginSuccess(w http.ResponseWriter, result *service.LoginResult) {
	h.setRefreshCookie(w, result.RefreshToken, result.RefreshExpiry)

	WriteJSON(w, http.StatusOK, map[string]any{
		"access_token": result.AccessToken,
		"user":         result.Profile,
	})
}

func getRefreshFromRequest(r *http.Request) (string, error) {
	if c, err := r.Cookie(refreshCookieBackoffice); err == nil && c.Value != "" {
		return c.Value, nil
	}
	return "", errors.New("refresh ausente")
}

func (h *Handler) setRefreshCookie(w http.ResponseWriter, token string, expires time.Time) {
	secure := !h.devCookies
	sameSite := http.SameSiteNoneMode
	if h.devCookies {
		sameSite = http.SameSiteLaxMode
	}
	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookieBackoffice,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   secure,
		SameSite: sameSite,
	})
}

func (h *Handler) clearRefreshCookie(w http.ResponseWriter) {
	secure := !h.devCookies
	sameSite := http.SameSiteNoneMode
	if h.devCookies {
		sameSite = http.SameSiteLaxMode
	}
	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookieBackoffice,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secure,
		SameSite: sameSite,
	})
}
