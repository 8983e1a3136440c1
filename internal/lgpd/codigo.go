package lgpd

import (
	"crypto/rand"
	"math/big"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

const codigoHashCost = 10

// GerarCodigoVerificacao devolve código numérico de 6 dígitos
// amostrado uniformemente em [100000, 999999].
func GerarCodigoVerificacao() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return big.NewInt(0).Add(n, big.NewInt(100000)).String(), nil
}

// HashearCodigo gera hash bcrypt do código; o texto claro nunca é persistido.
func HashearCodigo(codigo string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(codigo), codigoHashCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CompararCodigo confere o código contra o hash armazenado.
func CompararCodigo(codigo, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(codigo)) == nil
}

// NormalizarTelefone remove pontuação e prefixa +55 em números nacionais
// de 10 ou 11 dígitos. Números já prefixados com + passam inalterados;
// entradas fora desses formatos são devolvidas como recebidas.
func NormalizarTelefone(telefone string) string {
	telefone = strings.TrimSpace(telefone)
	if strings.HasPrefix(telefone, "+") {
		return telefone
	}

	var digits strings.Builder
	for _, r := range telefone {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}

	d := digits.String()
	if len(d) == 10 || len(d) == 11 {
		return "+55" + d
	}

	return telefone
}
