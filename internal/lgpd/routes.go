package lgpd

import "github.com/go-chi/chi/v5"

// Mount registra rotas administrativas do módulo LGPD.
func Mount(r chi.Router, handler *Handler) {
	handler.RegisterRoutes(r)
}

// MountPublico registra o portal público de autoatendimento do titular.
func MountPublico(r chi.Router, handler *Handler) {
	handler.RegisterPublicRoutes(r)
}
