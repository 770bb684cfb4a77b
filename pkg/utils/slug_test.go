package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFoldAccents(t *testing.T) {
	assert.Equal(t, "Sao Joao", FoldAccents("São João"))
	assert.Equal(t, "acai pe", FoldAccents("açaí pé"))
	assert.Equal(t, "plain", FoldAccents("plain"))
}

func TestCleanName(t *testing.T) {
	assert.Equal(t, "Filial Centro", CleanName("  Filial \t Centro  "))
	assert.Equal(t, "Rede Sul", CleanName("\ufeffRede Sul"))
	assert.Equal(t, "", CleanName("   "))
}

func TestNameKey(t *testing.T) {
	cases := map[string]string{
		"  Filial  SÃO Paulo ": "filial sao paulo",
		"FILIAL SAO PAULO":     "filial sao paulo",
		"José da Silva":        "jose da silva",
	}
	for in, want := range cases {
		assert.Equal(t, want, NameKey(in), in)
	}
	assert.Equal(t, NameKey("Drogaria Açaí"), NameKey("drogaria  acai"))
}

func TestGenerateCodeFromName(t *testing.T) {
	cases := map[string]string{
		"Data de Início (Admissão)": "data_de_inicio_admissao",
		" Nome da Rede ":            "nome_da_rede",
		"Qtd. Vouchers":             "qtd_vouchers",
		"Situação":                  "situacao",
		"___":                       "",
	}
	for in, want := range cases {
		assert.Equal(t, want, GenerateCodeFromName(in), in)
	}
}
