package repo

import (
	"time"

	"github.com/google/uuid"
)

// Usuario representa colaborador do backoffice da igreja.
type Usuario struct {
	ID        uuid.UUID
	Nome      string
	Email     string
	SenhaHash string
	Cargo     string
	Ativo     bool
	CriadoEm  time.Time
}
