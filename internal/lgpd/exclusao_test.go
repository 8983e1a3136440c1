package lgpd

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
)

type stubExclusaoQuerier struct {
	notas      int64
	transacoes int64
	logs       int64

	falhaNoCore   bool
	membroApagado bool
	chamadas      []string
}

func (q *stubExclusaoQuerier) ApagarNotasPastorais(ctx context.Context, tipoTitular string, titularID uuid.UUID) (int64, error) {
	q.chamadas = append(q.chamadas, "notas")
	return q.notas, nil
}

func (q *stubExclusaoQuerier) ApagarTransacoesFinanceiras(ctx context.Context, tipoTitular string, titularID uuid.UUID) (int64, error) {
	q.chamadas = append(q.chamadas, "transacoes")
	return q.transacoes, nil
}

func (q *stubExclusaoQuerier) ApagarLogsConsentimento(ctx context.Context, tipoTitular string, titularID uuid.UUID) (int64, error) {
	q.chamadas = append(q.chamadas, "logs")
	return q.logs, nil
}

func (q *stubExclusaoQuerier) ApagarMembro(ctx context.Context, id uuid.UUID) error {
	q.chamadas = append(q.chamadas, "membro")
	if q.falhaNoCore {
		return errors.New("violação de integridade")
	}
	q.membroApagado = true
	return nil
}

func (q *stubExclusaoQuerier) ApagarVisitante(ctx context.Context, id uuid.UUID) error {
	q.chamadas = append(q.chamadas, "visitante")
	return nil
}

type stubExclusaoStore struct {
	querier    *stubExclusaoQuerier
	revertida  bool
	transacoes int
}

func (s *stubExclusaoStore) EmTransacao(ctx context.Context, fn func(ctx context.Context, q ExclusaoQuerier) error) error {
	s.transacoes++
	if err := fn(ctx, s.querier); err != nil {
		s.revertida = true
		return err
	}
	return nil
}

func TestExcluirDadosTitularCascataCompleta(t *testing.T) {
	querier := &stubExclusaoQuerier{notas: 3, transacoes: 7, logs: 2}
	store := &stubExclusaoStore{querier: querier}
	svc := NewExclusaoService(store)

	resultado := svc.ExcluirDadosTitular(context.Background(), TitularMembro, uuid.New(), OpcoesExclusao{Cascade: true, Motivo: "pedido do titular"})

	if !resultado.Sucesso {
		t.Fatalf("esperava sucesso, veio erro: %s", resultado.Erro)
	}
	if resultado.NotasPastorais != 3 || resultado.TransacoesFinanceiras != 7 || resultado.LogsConsentimento != 2 {
		t.Fatalf("contagens erradas: %+v", resultado)
	}
	if !resultado.RegistroPrincipalRemovido {
		t.Fatal("registro principal deveria ter sido removido")
	}
	if resultado.Motivo != "pedido do titular" {
		t.Fatalf("motivo não propagado: %q", resultado.Motivo)
	}

	esperada := []string{"notas", "transacoes", "logs", "membro"}
	if len(querier.chamadas) != len(esperada) {
		t.Fatalf("ordem de remoção errada: %v", querier.chamadas)
	}
	for i, nome := range esperada {
		if querier.chamadas[i] != nome {
			t.Fatalf("ordem de remoção errada: %v", querier.chamadas)
		}
	}
}

func TestExcluirDadosTitularFalhaNoRegistroPrincipal(t *testing.T) {
	querier := &stubExclusaoQuerier{notas: 1, transacoes: 2, logs: 1, falhaNoCore: true}
	store := &stubExclusaoStore{querier: querier}
	svc := NewExclusaoService(store)

	resultado := svc.ExcluirDadosTitular(context.Background(), TitularMembro, uuid.New(), OpcoesExclusao{Cascade: true})

	if resultado.Sucesso {
		t.Fatal("esperava falha")
	}
	if resultado.Erro == "" {
		t.Fatal("relatório deveria carregar o erro")
	}
	if resultado.RegistroPrincipalRemovido {
		t.Fatal("registro principal não pode constar como removido")
	}
	if !store.revertida {
		t.Fatal("transação deveria ter sido revertida")
	}
}

func TestExcluirDadosTitularSemCascata(t *testing.T) {
	querier := &stubExclusaoQuerier{}
	store := &stubExclusaoStore{querier: querier}
	svc := NewExclusaoService(store)

	resultado := svc.ExcluirDadosTitular(context.Background(), TitularVisitante, uuid.New(), OpcoesExclusao{Cascade: false})

	if !resultado.Sucesso {
		t.Fatalf("esperava sucesso, veio erro: %s", resultado.Erro)
	}
	if len(querier.chamadas) != 1 || querier.chamadas[0] != "visitante" {
		t.Fatalf("sem cascata só o registro principal deveria ser removido: %v", querier.chamadas)
	}
}

func TestExcluirDadosTitularTipoInvalido(t *testing.T) {
	store := &stubExclusaoStore{querier: &stubExclusaoQuerier{}}
	svc := NewExclusaoService(store)

	resultado := svc.ExcluirDadosTitular(context.Background(), "congregacao", uuid.New(), OpcoesExclusao{Cascade: true})

	if resultado.Sucesso {
		t.Fatal("tipo inválido não pode ter sucesso")
	}
	if store.transacoes != 0 {
		t.Fatal("nenhuma transação deveria ter sido aberta")
	}
}
