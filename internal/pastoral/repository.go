package pastoral

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository provê acesso à tabela de notas pastorais.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository cria instância do repositório.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const notaColumns = `id, tipo_titular, titular_id, titulo, conteudo, nivel, autor_id, autor_nome, criado_em, atualizado_em`

// CreateNota insere nova nota pastoral.
func (r *Repository) CreateNota(ctx context.Context, input CreateNotaInput) (*Nota, error) {
	const query = `
        INSERT INTO notas_pastorais (tipo_titular, titular_id, titulo, conteudo, nivel, autor_id, autor_nome)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        RETURNING ` + notaColumns

	row := r.pool.QueryRow(ctx, query,
		strings.ToLower(strings.TrimSpace(input.TipoTitular)),
		input.TitularID,
		strings.TrimSpace(input.Titulo),
		input.Conteudo,
		strings.ToLower(strings.TrimSpace(input.Nivel)),
		input.AutorID,
		strings.TrimSpace(input.AutorNome),
	)

	return scanNota(row)
}

// GetNota busca nota pelo identificador.
func (r *Repository) GetNota(ctx context.Context, id uuid.UUID) (*Nota, error) {
	const query = `SELECT ` + notaColumns + ` FROM notas_pastorais WHERE id = $1`
	row := r.pool.QueryRow(ctx, query, id)
	return scanNota(row)
}

// ListByTitular lista notas vinculadas a um titular.
func (r *Repository) ListByTitular(ctx context.Context, tipoTitular string, titularID uuid.UUID) ([]Nota, error) {
	const query = `
        SELECT ` + notaColumns + `
        FROM notas_pastorais
        WHERE tipo_titular = $1 AND titular_id = $2
        ORDER BY criado_em DESC
    `

	rows, err := r.pool.Query(ctx, query, strings.ToLower(strings.TrimSpace(tipoTitular)), titularID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var notas []Nota
	for rows.Next() {
		n, err := scanNota(rows)
		if err != nil {
			return nil, err
		}
		notas = append(notas, *n)
	}

	if rows.Err() != nil {
		return nil, rows.Err()
	}

	return notas, nil
}

func scanNota(row pgx.Row) (*Nota, error) {
	var n Nota
	if err := row.Scan(&n.ID, &n.TipoTitular, &n.TitularID, &n.Titulo, &n.Conteudo, &n.Nivel,
		&n.AutorID, &n.AutorNome, &n.CriadoEm, &n.AtualizadoEm); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &n, nil
}
