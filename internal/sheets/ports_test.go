package sheets

import (
	"testing"
	"time"

	"financas/internal/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEscapeText(t *testing.T) {
	cases := map[string]string{
		"Mercado":                          "Mercado",
		"":                                 "",
		"=IMPORTXML(\"http://x\",\"//a\")": "'=IMPORTXML(\"http://x\",\"//a\")",
		"+55 11 9999":                      "'+55 11 9999",
		"-10 de desconto":                  "'-10 de desconto",
		"@SUM(A1:A9)":                      "'@SUM(A1:A9)",
		"\t=1+1":                           "'\t=1+1",
		"'citação'":                        "''citação'",
		"Conta = luz":                      "Conta = luz",
	}
	for in, want := range cases {
		assert.Equal(t, want, EscapeText(in), "input %q", in)
	}
}

func TestRowValuesNeutralizeFormulas(t *testing.T) {
	row := RowFromTransaction(core.Transaction{
		ID:          9,
		Amount:      core.Money{Cents: 1500},
		Description: `=HYPERLINK("http://evil.example","clique")`,
		CreatedAt:   time.Date(2024, 3, 5, 14, 30, 0, 0, time.UTC),
	}, "=bob")

	v := row.Values()
	require.Len(t, v, len(Header))
	assert.Equal(t, "'=bob", v[2])
	assert.Equal(t, `'=HYPERLINK("http://evil.example","clique")`, v[3])
	// The amount is ours and stays numeric for the sheet.
	assert.Equal(t, "-15.00", v[5])
}
