package lgpd

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/comunidadegraca/portal/internal/config"
)

type stubTitulares struct {
	titular *Titular
	err     error
}

func (s *stubTitulares) BuscarTitularPorDocumento(ctx context.Context, cpf string, dataNascimento string) (*Titular, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.titular, nil
}

type stubRedis struct {
	store map[string]string
}

func (s *stubRedis) Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd {
	if s.store == nil {
		s.store = make(map[string]string)
	}
	s.store[key] = toString(value)
	cmd := redis.NewStatusCmd(ctx)
	cmd.SetVal("OK")
	return cmd
}

func (s *stubRedis) Get(ctx context.Context, key string) *redis.StringCmd {
	cmd := redis.NewStringCmd(ctx)
	val, ok := s.store[key]
	if !ok {
		cmd.SetErr(redis.Nil)
		return cmd
	}
	cmd.SetVal(val)
	return cmd
}

func (s *stubRedis) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	var removed int64
	for _, key := range keys {
		if _, ok := s.store[key]; ok {
			delete(s.store, key)
			removed++
		}
	}
	cmd := redis.NewIntCmd(ctx)
	cmd.SetVal(removed)
	return cmd
}

func toString(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case []byte:
		return string(v)
	default:
		return fmt.Sprint(v)
	}
}

type stubSMS struct {
	fail    bool
	enviado string
	destino string
}

func (s *stubSMS) EnviarSMS(ctx context.Context, telefone, mensagem string) error {
	if s.fail {
		return errors.New("gateway indisponível")
	}
	s.destino = telefone
	s.enviado = mensagem
	return nil
}

type stubEmail struct {
	fail    bool
	enviado string
	destino string
}

func (s *stubEmail) EnviarEmail(ctx context.Context, destinatario, assunto, corpo string) error {
	if s.fail {
		return errors.New("provedor indisponível")
	}
	s.destino = destinatario
	s.enviado = corpo
	return nil
}

func verificacaoConfig() config.VerificacaoConfig {
	return config.VerificacaoConfig{
		CodigoTTL:     10 * time.Minute,
		SessaoTTL:     30 * time.Minute,
		MaxTentativas: 3,
	}
}

func titularComContatos(telefone, email string) *Titular {
	t := &Titular{Tipo: TitularMembro, ID: uuid.New(), Nome: "Maria Silva"}
	if telefone != "" {
		t.Telefone = &telefone
	}
	if email != "" {
		t.Email = &email
	}
	return t
}

const cpfTeste = "529.982.247-25"

func TestSolicitarCodigoPreferesSMS(t *testing.T) {
	titular := titularComContatos("(11) 98765-4321", "maria@example.com")
	sms := &stubSMS{}
	email := &stubEmail{}
	svc := NewVerificacaoService(&stubTitulares{titular: titular}, &stubRedis{}, sms, email, verificacaoConfig())

	canal, err := svc.SolicitarCodigo(context.Background(), cpfTeste, "1990-05-10", "")
	if err != nil {
		t.Fatalf("solicitar código: %v", err)
	}
	if canal != CanalSMS {
		t.Fatalf("esperava canal sms, veio %q", canal)
	}
	if sms.destino != "+5511987654321" {
		t.Fatalf("telefone não normalizado: %q", sms.destino)
	}
	if email.enviado != "" {
		t.Fatal("e-mail não deveria ter sido usado")
	}
}

func TestSolicitarCodigoFallbackParaEmail(t *testing.T) {
	titular := titularComContatos("(11) 98765-4321", "maria@example.com")
	sms := &stubSMS{fail: true}
	email := &stubEmail{}
	svc := NewVerificacaoService(&stubTitulares{titular: titular}, &stubRedis{}, sms, email, verificacaoConfig())

	canal, err := svc.SolicitarCodigo(context.Background(), cpfTeste, "1990-05-10", "")
	if err != nil {
		t.Fatalf("solicitar código: %v", err)
	}
	if canal != CanalEmail {
		t.Fatalf("esperava contingência por e-mail, veio %q", canal)
	}
	if email.destino != "maria@example.com" {
		t.Fatalf("destinatário errado: %q", email.destino)
	}
}

func TestSolicitarCodigoSemSMSQuandoCadastroSoTemEmail(t *testing.T) {
	titular := titularComContatos("", "maria@example.com")
	sms := &stubSMS{}
	email := &stubEmail{}
	svc := NewVerificacaoService(&stubTitulares{titular: titular}, &stubRedis{}, sms, email, verificacaoConfig())

	canal, err := svc.SolicitarCodigo(context.Background(), cpfTeste, "1990-05-10", "")
	if err != nil {
		t.Fatalf("solicitar código: %v", err)
	}
	if canal != CanalEmail {
		t.Fatalf("esperava e-mail, veio %q", canal)
	}
	if sms.enviado != "" {
		t.Fatal("sms não deveria ter sido tentado sem telefone")
	}
}

func TestSolicitarCodigoUsaTelefoneInformadoQuandoCadastroNaoTem(t *testing.T) {
	titular := titularComContatos("", "")
	sms := &stubSMS{}
	svc := NewVerificacaoService(&stubTitulares{titular: titular}, &stubRedis{}, sms, &stubEmail{}, verificacaoConfig())

	canal, err := svc.SolicitarCodigo(context.Background(), cpfTeste, "1990-05-10", "11987654321")
	if err != nil {
		t.Fatalf("solicitar código: %v", err)
	}
	if canal != CanalSMS {
		t.Fatalf("esperava sms pelo telefone informado, veio %q", canal)
	}
	if sms.destino != "+5511987654321" {
		t.Fatalf("telefone errado: %q", sms.destino)
	}
}

func TestSolicitarCodigoErroGenericoParaTitularInexistente(t *testing.T) {
	svc := NewVerificacaoService(&stubTitulares{err: ErrTitularNotFound}, &stubRedis{}, &stubSMS{}, &stubEmail{}, verificacaoConfig())

	_, err := svc.SolicitarCodigo(context.Background(), cpfTeste, "1990-05-10", "")
	if !errors.Is(err, ErrEnvioCodigo) {
		t.Fatalf("esperava ErrEnvioCodigo, veio %v", err)
	}
}

func TestSolicitarCodigoErroGenericoQuandoTodosCanaisFalham(t *testing.T) {
	titular := titularComContatos("(11) 98765-4321", "maria@example.com")
	svc := NewVerificacaoService(&stubTitulares{titular: titular}, &stubRedis{}, &stubSMS{fail: true}, &stubEmail{fail: true}, verificacaoConfig())

	_, err := svc.SolicitarCodigo(context.Background(), cpfTeste, "1990-05-10", "")
	if !errors.Is(err, ErrEnvioCodigo) {
		t.Fatalf("esperava ErrEnvioCodigo, veio %v", err)
	}
}

func extrairCodigo(t *testing.T, mensagem string) string {
	t.Helper()
	for i := 0; i+6 <= len(mensagem); i++ {
		sub := mensagem[i : i+6]
		numerico := true
		for _, r := range sub {
			if r < '0' || r > '9' {
				numerico = false
				break
			}
		}
		if numerico {
			return sub
		}
	}
	t.Fatal("mensagem sem código de 6 dígitos")
	return ""
}

func TestValidarCodigoEmiteSessaoDeUsoUnico(t *testing.T) {
	titular := titularComContatos("(11) 98765-4321", "")
	sms := &stubSMS{}
	redisStub := &stubRedis{}
	svc := NewVerificacaoService(&stubTitulares{titular: titular}, redisStub, sms, &stubEmail{}, verificacaoConfig())

	if _, err := svc.SolicitarCodigo(context.Background(), cpfTeste, "1990-05-10", ""); err != nil {
		t.Fatalf("solicitar código: %v", err)
	}

	codigo := extrairCodigo(t, sms.enviado)

	sessao, err := svc.ValidarCodigo(context.Background(), cpfTeste, "1990-05-10", codigo)
	if err != nil {
		t.Fatalf("validar código: %v", err)
	}
	if sessao.Token == "" {
		t.Fatal("sessão sem token")
	}
	if sessao.TitularNome != "Maria Silva" {
		t.Fatalf("nome errado: %q", sessao.TitularNome)
	}

	// código não pode ser reutilizado
	if _, err := svc.ValidarCodigo(context.Background(), cpfTeste, "1990-05-10", codigo); !errors.Is(err, ErrCodigoInvalido) {
		t.Fatalf("esperava ErrCodigoInvalido na reutilização, veio %v", err)
	}

	identidade, err := svc.ConsumirSessao(context.Background(), sessao.Token)
	if err != nil {
		t.Fatalf("consumir sessão: %v", err)
	}
	if identidade.TitularID != titular.ID || identidade.TipoTitular != TitularMembro {
		t.Fatalf("identidade errada: %+v", identidade)
	}

	// sessão é de uso único
	if _, err := svc.ConsumirSessao(context.Background(), sessao.Token); !errors.Is(err, ErrSessaoInvalida) {
		t.Fatalf("esperava ErrSessaoInvalida na segunda leitura, veio %v", err)
	}
}

func TestValidarCodigoDescartaAposTresTentativas(t *testing.T) {
	titular := titularComContatos("(11) 98765-4321", "")
	sms := &stubSMS{}
	redisStub := &stubRedis{}
	svc := NewVerificacaoService(&stubTitulares{titular: titular}, redisStub, sms, &stubEmail{}, verificacaoConfig())

	if _, err := svc.SolicitarCodigo(context.Background(), cpfTeste, "1990-05-10", ""); err != nil {
		t.Fatalf("solicitar código: %v", err)
	}

	codigo := extrairCodigo(t, sms.enviado)
	errado := "000000"
	if errado == codigo {
		errado = "000001"
	}

	for i := 0; i < 3; i++ {
		if _, err := svc.ValidarCodigo(context.Background(), cpfTeste, "1990-05-10", errado); !errors.Is(err, ErrCodigoInvalido) {
			t.Fatalf("tentativa %d: esperava ErrCodigoInvalido, veio %v", i+1, err)
		}
	}

	// o código correto também não vale mais: foi descartado no limite
	if _, err := svc.ValidarCodigo(context.Background(), cpfTeste, "1990-05-10", codigo); !errors.Is(err, ErrCodigoInvalido) {
		t.Fatalf("esperava código descartado, veio %v", err)
	}

	key := codigoRedisKey(titular.Tipo, titular.ID)
	if _, ok := redisStub.store[key]; ok {
		t.Fatal("código deveria ter sido removido do redis")
	}
}

func TestConsumirSessaoTokenInvalido(t *testing.T) {
	svc := NewVerificacaoService(&stubTitulares{}, &stubRedis{}, &stubSMS{}, &stubEmail{}, verificacaoConfig())

	if _, err := svc.ConsumirSessao(context.Background(), "token-desconhecido"); !errors.Is(err, ErrSessaoInvalida) {
		t.Fatalf("esperava ErrSessaoInvalida, veio %v", err)
	}
}
