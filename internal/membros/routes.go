package membros

import "github.com/go-chi/chi/v5"

// Mount registra rotas do cadastro de pessoas.
func Mount(r chi.Router, handler *Handler) {
	handler.RegisterRoutes(r)
}
