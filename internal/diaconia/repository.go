package diaconia

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository provê acesso à tabela de ações diaconais.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository cria instância do repositório.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const acaoColumns = `id, tipo_beneficiario, beneficiario_id, tipo_acao, descricao, valor_centavos,
        responsavel_id, data_acao, criado_em`

// CreateAcao insere nova ação diaconal.
func (r *Repository) CreateAcao(ctx context.Context, input CreateAcaoInput) (*Acao, error) {
	const query = `
        INSERT INTO acoes_diaconais (tipo_beneficiario, beneficiario_id, tipo_acao, descricao, valor_centavos, responsavel_id, data_acao)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        RETURNING ` + acaoColumns

	row := r.pool.QueryRow(ctx, query,
		strings.ToLower(strings.TrimSpace(input.TipoBeneficiario)),
		input.BeneficiarioID,
		strings.ToLower(strings.TrimSpace(input.TipoAcao)),
		input.Descricao,
		input.ValorCentavos,
		input.ResponsavelID,
		input.DataAcao,
	)

	return scanAcao(row)
}

// ListRecentes lista ações mais recentes.
func (r *Repository) ListRecentes(ctx context.Context, limit, offset int) ([]Acao, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	const query = `
        SELECT ` + acaoColumns + `
        FROM acoes_diaconais
        ORDER BY data_acao DESC
        LIMIT $1 OFFSET $2
    `

	rows, err := r.pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectAcoes(rows)
}

// ListByBeneficiario lista ações vinculadas a um beneficiário.
func (r *Repository) ListByBeneficiario(ctx context.Context, tipoBeneficiario string, beneficiarioID uuid.UUID) ([]Acao, error) {
	const query = `
        SELECT ` + acaoColumns + `
        FROM acoes_diaconais
        WHERE tipo_beneficiario = $1 AND beneficiario_id = $2
        ORDER BY data_acao DESC
    `

	rows, err := r.pool.Query(ctx, query, strings.ToLower(strings.TrimSpace(tipoBeneficiario)), beneficiarioID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectAcoes(rows)
}

func collectAcoes(rows pgx.Rows) ([]Acao, error) {
	var acoes []Acao
	for rows.Next() {
		a, err := scanAcao(rows)
		if err != nil {
			return nil, err
		}
		acoes = append(acoes, *a)
	}

	if rows.Err() != nil {
		return nil, rows.Err()
	}

	return acoes, nil
}

func scanAcao(row pgx.Row) (*Acao, error) {
	var a Acao
	if err := row.Scan(&a.ID, &a.TipoBeneficiario, &a.BeneficiarioID, &a.TipoAcao, &a.Descricao,
		&a.ValorCentavos, &a.ResponsavelID, &a.DataAcao, &a.CriadoEm); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &a, nil
}
