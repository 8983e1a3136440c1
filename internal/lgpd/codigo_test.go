package lgpd

import (
	"strconv"
	"testing"
)

func TestGerarCodigoVerificacaoDentroDaFaixa(t *testing.T) {
	for i := 0; i < 50; i++ {
		codigo, err := GerarCodigoVerificacao()
		if err != nil {
			t.Fatalf("gerar código: %v", err)
		}
		if len(codigo) != 6 {
			t.Fatalf("esperava 6 dígitos, veio %q", codigo)
		}
		n, err := strconv.Atoi(codigo)
		if err != nil {
			t.Fatalf("código não numérico: %q", codigo)
		}
		if n < 100000 || n > 999999 {
			t.Fatalf("código fora da faixa: %d", n)
		}
	}
}

func TestHashearECompararCodigo(t *testing.T) {
	codigo := "482913"

	hash, err := HashearCodigo(codigo)
	if err != nil {
		t.Fatalf("hashear: %v", err)
	}
	if hash == codigo {
		t.Fatal("hash não pode ser o código em claro")
	}

	if !CompararCodigo(codigo, hash) {
		t.Fatal("código correto deveria conferir")
	}
	if CompararCodigo("111111", hash) {
		t.Fatal("código errado não deveria conferir")
	}
}

func TestNormalizarTelefone(t *testing.T) {
	cases := []struct {
		entrada  string
		esperado string
	}{
		{"11987654321", "+5511987654321"},
		{"(11) 98765-4321", "+5511987654321"},
		{"1187654321", "+551187654321"},
		{"+5511987654321", "+5511987654321"},
		{"+14155550123", "+14155550123"},
		{"123", "123"},
		{"abc", "abc"},
		{"", ""},
	}

	for _, tc := range cases {
		if got := NormalizarTelefone(tc.entrada); got != tc.esperado {
			t.Errorf("NormalizarTelefone(%q) = %q, esperava %q", tc.entrada, got, tc.esperado)
		}
	}
}
