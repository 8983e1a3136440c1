package financeiro

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository provê acesso à tabela de transações financeiras.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository cria instância do repositório.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const transacaoColumns = `id, tipo, valor_centavos, descricao, tipo_titular, titular_id,
        data_transacao, registrado_por, criado_em`

// CreateTransacao insere novo lançamento.
func (r *Repository) CreateTransacao(ctx context.Context, input CreateTransacaoInput) (*Transacao, error) {
	const query = `
        INSERT INTO transacoes_financeiras (tipo, valor_centavos, descricao, tipo_titular, titular_id, data_transacao, registrado_por)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        RETURNING ` + transacaoColumns

	row := r.pool.QueryRow(ctx, query,
		strings.ToLower(strings.TrimSpace(input.Tipo)),
		input.ValorCentavos,
		input.Descricao,
		input.TipoTitular,
		input.TitularID,
		input.DataTransacao,
		input.RegistradoPor,
	)

	return scanTransacao(row)
}

// ListTransacoes lista lançamentos aplicando filtros simples.
func (r *Repository) ListTransacoes(ctx context.Context, filter TransacaoFilter) ([]Transacao, error) {
	base := `SELECT ` + transacaoColumns + ` FROM transacoes_financeiras`

	var (
		clauses []string
		args    []any
		idx     = 1
	)

	if tipo := strings.ToLower(strings.TrimSpace(filter.Tipo)); tipo != "" {
		clauses = append(clauses, fmt.Sprintf("tipo = $%d", idx))
		args = append(args, tipo)
		idx++
	}
	if filter.TipoTitular != "" && filter.TitularID != nil {
		clauses = append(clauses, fmt.Sprintf("tipo_titular = $%d AND titular_id = $%d", idx, idx+1))
		args = append(args, filter.TipoTitular, *filter.TitularID)
		idx += 2
	}
	if filter.Inicio != nil {
		clauses = append(clauses, fmt.Sprintf("data_transacao >= $%d", idx))
		args = append(args, *filter.Inicio)
		idx++
	}
	if filter.Fim != nil {
		clauses = append(clauses, fmt.Sprintf("data_transacao <= $%d", idx))
		args = append(args, *filter.Fim)
		idx++
	}

	query := base
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}

	limit := filter.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query += fmt.Sprintf(" ORDER BY data_transacao DESC LIMIT $%d OFFSET $%d", idx, idx+1)
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var transacoes []Transacao
	for rows.Next() {
		t, err := scanTransacao(rows)
		if err != nil {
			return nil, err
		}
		transacoes = append(transacoes, *t)
	}

	if rows.Err() != nil {
		return nil, rows.Err()
	}

	return transacoes, nil
}

// ListByTitular lista lançamentos vinculados a um titular.
func (r *Repository) ListByTitular(ctx context.Context, tipoTitular string, titularID uuid.UUID) ([]Transacao, error) {
	return r.ListTransacoes(ctx, TransacaoFilter{TipoTitular: tipoTitular, TitularID: &titularID, Limit: 500})
}

func scanTransacao(row pgx.Row) (*Transacao, error) {
	var t Transacao
	if err := row.Scan(&t.ID, &t.Tipo, &t.ValorCentavos, &t.Descricao, &t.TipoTitular, &t.TitularID,
		&t.DataTransacao, &t.RegistradoPor, &t.CriadoEm); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &t, nil
}
