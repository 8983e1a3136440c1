package membros

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository provê acesso às tabelas de membros, visitantes e famílias.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository cria instância do repositório.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const membroColumns = `id, nome, cpf, email, telefone, data_nascimento, endereco, estado_civil,
        familia_id, data_batismo, consentimento_lgpd, ativo, criado_em, atualizado_em`

// CreateMembro insere novo membro.
func (r *Repository) CreateMembro(ctx context.Context, input CreateMembroInput) (*Membro, error) {
	const query = `
        INSERT INTO membros (nome, cpf, email, telefone, data_nascimento, endereco, estado_civil, familia_id, data_batismo, consentimento_lgpd)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
        RETURNING ` + membroColumns

	row := r.pool.QueryRow(ctx, query,
		strings.TrimSpace(input.Nome),
		input.CPF,
		input.Email,
		input.Telefone,
		input.DataNascimento,
		input.Endereco,
		input.EstadoCivil,
		input.FamiliaID,
		input.DataBatismo,
		input.ConsentimentoLGPD,
	)

	return scanMembro(row)
}

// GetMembro busca membro pelo identificador.
func (r *Repository) GetMembro(ctx context.Context, id uuid.UUID) (*Membro, error) {
	const query = `SELECT ` + membroColumns + ` FROM membros WHERE id = $1`
	row := r.pool.QueryRow(ctx, query, id)
	return scanMembro(row)
}

// ListMembros lista membros aplicando filtros simples.
func (r *Repository) ListMembros(ctx context.Context, filter MembroFilter) ([]Membro, error) {
	base := `SELECT ` + membroColumns + ` FROM membros`

	var (
		clauses []string
		args    []any
		idx     = 1
	)

	if nome := strings.TrimSpace(filter.Nome); nome != "" {
		clauses = append(clauses, fmt.Sprintf("nome ILIKE $%d", idx))
		args = append(args, "%"+nome+"%")
		idx++
	}
	if filter.Ativo != nil {
		clauses = append(clauses, fmt.Sprintf("ativo = $%d", idx))
		args = append(args, *filter.Ativo)
		idx++
	}

	query := base
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}

	limit := filter.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query += fmt.Sprintf(" ORDER BY nome ASC LIMIT $%d OFFSET $%d", idx, idx+1)
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var membros []Membro
	for rows.Next() {
		m, err := scanMembro(rows)
		if err != nil {
			return nil, err
		}
		membros = append(membros, *m)
	}

	if rows.Err() != nil {
		return nil, rows.Err()
	}

	return membros, nil
}

// UpdateMembro atualiza campos informados do cadastro.
func (r *Repository) UpdateMembro(ctx context.Context, input UpdateMembroInput) (*Membro, error) {
	setParts := []string{}
	args := []any{}
	idx := 1

	if input.Nome != nil {
		setParts = append(setParts, fmt.Sprintf("nome = $%d", idx))
		args = append(args, strings.TrimSpace(*input.Nome))
		idx++
	}
	if input.Email != nil {
		setParts = append(setParts, fmt.Sprintf("email = $%d", idx))
		args = append(args, *input.Email)
		idx++
	}
	if input.Telefone != nil {
		setParts = append(setParts, fmt.Sprintf("telefone = $%d", idx))
		args = append(args, *input.Telefone)
		idx++
	}
	if input.Endereco != nil {
		setParts = append(setParts, fmt.Sprintf("endereco = $%d", idx))
		args = append(args, *input.Endereco)
		idx++
	}
	if input.EstadoCivil != nil {
		setParts = append(setParts, fmt.Sprintf("estado_civil = $%d", idx))
		args = append(args, *input.EstadoCivil)
		idx++
	}
	if input.FamiliaID != nil {
		setParts = append(setParts, fmt.Sprintf("familia_id = $%d", idx))
		args = append(args, *input.FamiliaID)
		idx++
	}
	if input.Ativo != nil {
		setParts = append(setParts, fmt.Sprintf("ativo = $%d", idx))
		args = append(args, *input.Ativo)
		idx++
	}

	if len(setParts) == 0 {
		return r.GetMembro(ctx, input.ID)
	}

	setParts = append(setParts, "atualizado_em = now()")
	args = append(args, input.ID)

	query := fmt.Sprintf(`UPDATE membros SET %s WHERE id = $%d RETURNING `+membroColumns,
		strings.Join(setParts, ", "), idx)

	row := r.pool.QueryRow(ctx, query, args...)
	return scanMembro(row)
}

// UpdateConsentimento grava o novo estado de consentimento LGPD.
func (r *Repository) UpdateConsentimento(ctx context.Context, id uuid.UUID, consentimento bool) (*Membro, error) {
	const query = `
        UPDATE membros SET consentimento_lgpd = $1, atualizado_em = now()
        WHERE id = $2
        RETURNING ` + membroColumns

	row := r.pool.QueryRow(ctx, query, consentimento, id)
	return scanMembro(row)
}

// CreateVisitante insere novo visitante.
func (r *Repository) CreateVisitante(ctx context.Context, input CreateVisitanteInput) (*Visitante, error) {
	const query = `
        INSERT INTO visitantes (nome, cpf, email, telefone, data_nascimento, primeira_visita, como_conheceu)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        RETURNING id, nome, cpf, email, telefone, data_nascimento, primeira_visita, como_conheceu, criado_em
    `

	row := r.pool.QueryRow(ctx, query,
		strings.TrimSpace(input.Nome),
		input.CPF,
		input.Email,
		input.Telefone,
		input.DataNascimento,
		input.PrimeiraVisita,
		input.ComoConheceu,
	)

	return scanVisitante(row)
}

// GetVisitante busca visitante pelo identificador.
func (r *Repository) GetVisitante(ctx context.Context, id uuid.UUID) (*Visitante, error) {
	const query = `
        SELECT id, nome, cpf, email, telefone, data_nascimento, primeira_visita, como_conheceu, criado_em
        FROM visitantes WHERE id = $1
    `
	row := r.pool.QueryRow(ctx, query, id)
	return scanVisitante(row)
}

// ListVisitantes lista visitantes mais recentes.
func (r *Repository) ListVisitantes(ctx context.Context, limit, offset int) ([]Visitante, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	const query = `
        SELECT id, nome, cpf, email, telefone, data_nascimento, primeira_visita, como_conheceu, criado_em
        FROM visitantes
        ORDER BY primeira_visita DESC
        LIMIT $1 OFFSET $2
    `

	rows, err := r.pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var visitantes []Visitante
	for rows.Next() {
		v, err := scanVisitante(rows)
		if err != nil {
			return nil, err
		}
		visitantes = append(visitantes, *v)
	}

	if rows.Err() != nil {
		return nil, rows.Err()
	}

	return visitantes, nil
}

// GetFamilia busca família pelo identificador.
func (r *Repository) GetFamilia(ctx context.Context, id uuid.UUID) (*Familia, error) {
	const query = `SELECT id, nome, endereco, criado_em FROM familias WHERE id = $1`

	var f Familia
	if err := r.pool.QueryRow(ctx, query, id).Scan(&f.ID, &f.Nome, &f.Endereco, &f.CriadoEm); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrFamiliaNotFound
		}
		return nil, err
	}
	return &f, nil
}

// CreateFamilia insere novo núcleo familiar.
func (r *Repository) CreateFamilia(ctx context.Context, nome string, endereco *string) (*Familia, error) {
	const query = `
        INSERT INTO familias (nome, endereco) VALUES ($1, $2)
        RETURNING id, nome, endereco, criado_em
    `

	var f Familia
	if err := r.pool.QueryRow(ctx, query, strings.TrimSpace(nome), endereco).Scan(&f.ID, &f.Nome, &f.Endereco, &f.CriadoEm); err != nil {
		return nil, err
	}
	return &f, nil
}

func scanMembro(row pgx.Row) (*Membro, error) {
	var m Membro
	if err := row.Scan(&m.ID, &m.Nome, &m.CPF, &m.Email, &m.Telefone, &m.DataNascimento, &m.Endereco,
		&m.EstadoCivil, &m.FamiliaID, &m.DataBatismo, &m.ConsentimentoLGPD, &m.Ativo, &m.CriadoEm, &m.AtualizadoEm); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &m, nil
}

func scanVisitante(row pgx.Row) (*Visitante, error) {
	var v Visitante
	if err := row.Scan(&v.ID, &v.Nome, &v.CPF, &v.Email, &v.Telefone, &v.DataNascimento,
		&v.PrimeiraVisita, &v.ComoConheceu, &v.CriadoEm); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrVisitanteNotFound
		}
		return nil, err
	}
	return &v, nil
}
