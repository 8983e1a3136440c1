package lgpd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/comunidadegraca/portal/internal/db"
)

// Repository concentra o acesso às tabelas de solicitações, logs de
// consentimento e logs de auditoria.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository cria instância do repositório.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const solicitacaoColumns = `id, tipo, status, tipo_titular, titular_id, titular_nome, titular_email,
        motivo, justificativa_recusa, responsavel_id, data_atendimento, arquivo_exportacao, criado_em`

// CreateSolicitacao abre solicitação com status pendente.
func (r *Repository) CreateSolicitacao(ctx context.Context, input CreateSolicitacaoInput) (*Solicitacao, error) {
	const query = `
        INSERT INTO solicitacoes_lgpd (tipo, status, tipo_titular, titular_id, titular_nome, titular_email, motivo)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        RETURNING ` + solicitacaoColumns

	row := r.pool.QueryRow(ctx, query,
		strings.ToLower(strings.TrimSpace(input.Tipo)),
		StatusPendente,
		strings.ToLower(strings.TrimSpace(input.TipoTitular)),
		input.TitularID,
		strings.TrimSpace(input.TitularNome),
		input.TitularEmail,
		input.Motivo,
	)

	return scanSolicitacao(row)
}

// GetSolicitacao busca solicitação por id.
func (r *Repository) GetSolicitacao(ctx context.Context, id uuid.UUID) (*Solicitacao, error) {
	const query = `SELECT ` + solicitacaoColumns + ` FROM solicitacoes_lgpd WHERE id = $1`
	return scanSolicitacao(r.pool.QueryRow(ctx, query, id))
}

// ListSolicitacoes lista solicitações mais recentes, com filtros opcionais.
func (r *Repository) ListSolicitacoes(ctx context.Context, filter SolicitacaoFilter) ([]Solicitacao, error) {
	base := `SELECT ` + solicitacaoColumns + ` FROM solicitacoes_lgpd`

	var (
		conds []string
		args  []any
	)

	if filter.Status != "" {
		args = append(args, strings.ToLower(strings.TrimSpace(filter.Status)))
		conds = append(conds, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.Tipo != "" {
		args = append(args, strings.ToLower(strings.TrimSpace(filter.Tipo)))
		conds = append(conds, fmt.Sprintf("tipo = $%d", len(args)))
	}

	if len(conds) > 0 {
		base += " WHERE " + strings.Join(conds, " AND ")
	}

	limit := filter.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	args = append(args, limit, offset)
	base += fmt.Sprintf(" ORDER BY criado_em DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, base, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var solicitacoes []Solicitacao
	for rows.Next() {
		s, err := scanSolicitacao(rows)
		if err != nil {
			return nil, err
		}
		solicitacoes = append(solicitacoes, *s)
	}

	if rows.Err() != nil {
		return nil, rows.Err()
	}

	return solicitacoes, nil
}

// TransitionSolicitacaoStatus aplica a transição no banco somente se a
// solicitação ainda não estiver em estado terminal. A cláusula WHERE é a
// última barreira contra corrida entre dois atendentes.
func (r *Repository) TransitionSolicitacaoStatus(ctx context.Context, id uuid.UUID, update StatusUpdate) (*Solicitacao, error) {
	const query = `
        UPDATE solicitacoes_lgpd
        SET status = $2,
            justificativa_recusa = COALESCE($3, justificativa_recusa),
            responsavel_id = COALESCE($4, responsavel_id),
            data_atendimento = CASE WHEN $2 IN ('concluida', 'recusada') THEN NOW() ELSE data_atendimento END,
            arquivo_exportacao = COALESCE($5, arquivo_exportacao)
        WHERE id = $1 AND status IN ('pendente', 'em_andamento')
        RETURNING ` + solicitacaoColumns

	sol, err := scanSolicitacao(r.pool.QueryRow(ctx, query,
		id,
		strings.ToLower(strings.TrimSpace(update.Status)),
		update.JustificativaRecusa,
		update.ResponsavelID,
		update.ArquivoExportacao,
	))
	if err == nil {
		return sol, nil
	}
	if !errors.Is(err, ErrSolicitacaoNotFound) {
		return nil, err
	}

	// Nenhuma linha atualizada: ou a solicitação não existe, ou já encerrou.
	if _, getErr := r.GetSolicitacao(ctx, id); getErr != nil {
		return nil, getErr
	}
	return nil, ErrSolicitacaoEncerrada
}

// StatusUpdate encapsula os campos mutáveis na transição de status.
type StatusUpdate struct {
	Status              string
	JustificativaRecusa *string
	ResponsavelID       *uuid.UUID
	ArquivoExportacao   *string
}

const logConsentimentoColumns = `id, tipo_titular, titular_id, acao, consentimento_anterior,
        consentimento_novo, usuario_id, ip_address, criado_em`

// InsertLogConsentimento registra mudança de consentimento. Apenas inserção:
// a tabela é imutável.
func (r *Repository) InsertLogConsentimento(ctx context.Context, log LogConsentimento) (*LogConsentimento, error) {
	const query = `
        INSERT INTO logs_consentimento (tipo_titular, titular_id, acao, consentimento_anterior, consentimento_novo, usuario_id, ip_address)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        RETURNING ` + logConsentimentoColumns

	row := r.pool.QueryRow(ctx, query,
		strings.ToLower(strings.TrimSpace(log.TipoTitular)),
		log.TitularID,
		log.Acao,
		log.ConsentimentoAnterior,
		log.ConsentimentoNovo,
		log.UsuarioID,
		log.IPAddress,
	)

	var l LogConsentimento
	if err := row.Scan(&l.ID, &l.TipoTitular, &l.TitularID, &l.Acao, &l.ConsentimentoAnterior,
		&l.ConsentimentoNovo, &l.UsuarioID, &l.IPAddress, &l.CriadoEm); err != nil {
		return nil, err
	}
	return &l, nil
}

// ListLogsConsentimentoByTitular lista o histórico de consentimento de um titular.
func (r *Repository) ListLogsConsentimentoByTitular(ctx context.Context, tipoTitular string, titularID uuid.UUID) ([]LogConsentimento, error) {
	const query = `
        SELECT ` + logConsentimentoColumns + `
        FROM logs_consentimento
        WHERE tipo_titular = $1 AND titular_id = $2
        ORDER BY criado_em DESC
    `

	rows, err := r.pool.Query(ctx, query, strings.ToLower(strings.TrimSpace(tipoTitular)), titularID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []LogConsentimento
	for rows.Next() {
		var l LogConsentimento
		if err := rows.Scan(&l.ID, &l.TipoTitular, &l.TitularID, &l.Acao, &l.ConsentimentoAnterior,
			&l.ConsentimentoNovo, &l.UsuarioID, &l.IPAddress, &l.CriadoEm); err != nil {
			return nil, err
		}
		logs = append(logs, l)
	}

	if rows.Err() != nil {
		return nil, rows.Err()
	}

	return logs, nil
}

const logAuditoriaColumns = `id, modulo, acao, descricao, registro_id, usuario_id, usuario_nome,
        usuario_cargo, ip_address, criado_em`

// InsertLogAuditoria registra ação administrativa sensível.
func (r *Repository) InsertLogAuditoria(ctx context.Context, log LogAuditoria) error {
	const query = `
        INSERT INTO logs_auditoria (modulo, acao, descricao, registro_id, usuario_id, usuario_nome, usuario_cargo, ip_address)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
    `

	_, err := r.pool.Exec(ctx, query,
		log.Modulo,
		log.Acao,
		log.Descricao,
		log.RegistroID,
		log.UsuarioID,
		log.UsuarioNome,
		log.UsuarioCargo,
		log.IPAddress,
	)
	return err
}

// ListLogsAuditoria lista registros de auditoria mais recentes, com filtro
// opcional por módulo.
func (r *Repository) ListLogsAuditoria(ctx context.Context, modulo string, limit, offset int) ([]LogAuditoria, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	base := `SELECT ` + logAuditoriaColumns + ` FROM logs_auditoria`
	args := []any{}
	if modulo != "" {
		args = append(args, modulo)
		base += " WHERE modulo = $1"
	}
	args = append(args, limit, offset)
	base += fmt.Sprintf(" ORDER BY criado_em DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, base, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []LogAuditoria
	for rows.Next() {
		var l LogAuditoria
		if err := rows.Scan(&l.ID, &l.Modulo, &l.Acao, &l.Descricao, &l.RegistroID, &l.UsuarioID,
			&l.UsuarioNome, &l.UsuarioCargo, &l.IPAddress, &l.CriadoEm); err != nil {
			return nil, err
		}
		logs = append(logs, l)
	}

	if rows.Err() != nil {
		return nil, rows.Err()
	}

	return logs, nil
}

// BuscarTitularPorDocumento localiza membro ou visitante por CPF e data de
// nascimento. Membros têm precedência quando o CPF existe nas duas tabelas.
func (r *Repository) BuscarTitularPorDocumento(ctx context.Context, cpf string, dataNascimento string) (*Titular, error) {
	const queryMembro = `
        SELECT id, nome, email, telefone
        FROM membros
        WHERE cpf = $1 AND data_nascimento = $2::date
    `

	var t Titular
	err := r.pool.QueryRow(ctx, queryMembro, cpf, dataNascimento).Scan(&t.ID, &t.Nome, &t.Email, &t.Telefone)
	if err == nil {
		t.Tipo = TitularMembro
		return &t, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	const queryVisitante = `
        SELECT id, nome, email, telefone
        FROM visitantes
        WHERE cpf = $1 AND data_nascimento = $2::date
    `

	err = r.pool.QueryRow(ctx, queryVisitante, cpf, dataNascimento).Scan(&t.ID, &t.Nome, &t.Email, &t.Telefone)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTitularNotFound
		}
		return nil, err
	}

	t.Tipo = TitularVisitante
	return &t, nil
}

// GetTitular busca a visão unificada de um titular já identificado.
func (r *Repository) GetTitular(ctx context.Context, tipoTitular string, titularID uuid.UUID) (*Titular, error) {
	var query string
	switch strings.ToLower(strings.TrimSpace(tipoTitular)) {
	case TitularMembro:
		query = `SELECT id, nome, email, telefone FROM membros WHERE id = $1`
	case TitularVisitante:
		query = `SELECT id, nome, email, telefone FROM visitantes WHERE id = $1`
	default:
		return nil, ErrTipoTitularInvalido
	}

	var t Titular
	if err := r.pool.QueryRow(ctx, query, titularID).Scan(&t.ID, &t.Nome, &t.Email, &t.Telefone); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTitularNotFound
		}
		return nil, err
	}

	t.Tipo = strings.ToLower(strings.TrimSpace(tipoTitular))
	return &t, nil
}

// EmTransacao executa a função de exclusão dentro de uma transação única:
// ou tudo é removido, ou nada é.
func (r *Repository) EmTransacao(ctx context.Context, fn func(ctx context.Context, q ExclusaoQuerier) error) error {
	return db.WithTx(ctx, r.pool, func(ctx context.Context, tx pgx.Tx) error {
		return fn(ctx, &txQuerier{tx: tx})
	})
}

// ExclusaoQuerier expõe as remoções usadas pela exclusão em cascata.
type ExclusaoQuerier interface {
	ApagarNotasPastorais(ctx context.Context, tipoTitular string, titularID uuid.UUID) (int64, error)
	ApagarTransacoesFinanceiras(ctx context.Context, tipoTitular string, titularID uuid.UUID) (int64, error)
	ApagarLogsConsentimento(ctx context.Context, tipoTitular string, titularID uuid.UUID) (int64, error)
	ApagarMembro(ctx context.Context, id uuid.UUID) error
	ApagarVisitante(ctx context.Context, id uuid.UUID) error
}

type txQuerier struct {
	tx pgx.Tx
}

func (q *txQuerier) ApagarNotasPastorais(ctx context.Context, tipoTitular string, titularID uuid.UUID) (int64, error) {
	tag, err := q.tx.Exec(ctx,
		`DELETE FROM notas_pastorais WHERE tipo_titular = $1 AND titular_id = $2`,
		tipoTitular, titularID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (q *txQuerier) ApagarTransacoesFinanceiras(ctx context.Context, tipoTitular string, titularID uuid.UUID) (int64, error) {
	tag, err := q.tx.Exec(ctx,
		`DELETE FROM transacoes_financeiras WHERE tipo_titular = $1 AND titular_id = $2`,
		tipoTitular, titularID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (q *txQuerier) ApagarLogsConsentimento(ctx context.Context, tipoTitular string, titularID uuid.UUID) (int64, error) {
	tag, err := q.tx.Exec(ctx,
		`DELETE FROM logs_consentimento WHERE tipo_titular = $1 AND titular_id = $2`,
		tipoTitular, titularID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (q *txQuerier) ApagarMembro(ctx context.Context, id uuid.UUID) error {
	tag, err := q.tx.Exec(ctx, `DELETE FROM membros WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrTitularNotFound
	}
	return nil
}

func (q *txQuerier) ApagarVisitante(ctx context.Context, id uuid.UUID) error {
	tag, err := q.tx.Exec(ctx, `DELETE FROM visitantes WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrTitularNotFound
	}
	return nil
}

func scanSolicitacao(row pgx.Row) (*Solicitacao, error) {
	var s Solicitacao
	if err := row.Scan(&s.ID, &s.Tipo, &s.Status, &s.TipoTitular, &s.TitularID, &s.TitularNome,
		&s.TitularEmail, &s.Motivo, &s.JustificativaRecusa, &s.ResponsavelID, &s.DataAtendimento,
		&s.ArquivoExportacao, &s.CriadoEm); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSolicitacaoNotFound
		}
		return nil, err
	}
	return &s, nil
}
