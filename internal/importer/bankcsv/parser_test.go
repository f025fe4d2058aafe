package bankcsv_test

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"

	"github.com/MrJamesThe3rd/offertory/internal/importer/bankcsv"
)

func date(y, m, d int) time.Time {
	return time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
}

func amount(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestParser_CGDConta(t *testing.T) {
	csv := `Consultar saldos e movimentos à ordem - 31-01-2026;"=""0000"""
Nome cliente;PAROQUIA DE SAO JOSE
NIF;"=""123"""

Dados da conta
Conta;0000 - EUR - Conta Extracto
Saldo contabilístico;1.000,00 EUR

Dados da consulta
Período;Últimos 90 dias
Intervalo de;01-01-2026 a 31-01-2026

Data mov.;Data-valor;Descrição;Montante;Saldo contabilístico após movimento
30-01-2026;30-01-2026;EDP COMERCIAL;-588,74;48.825,46
09-01-2026;09-01-2026;TRF MB WAY MARIA SILVA;25,00;52.532,78
08-01-2026;08-01-2026;TRF SEPA JOAO COSTA;8.608,52;52.507,78
`

	st, err := bankcsv.New(time.UTC).Parse(strings.NewReader(csv), bankcsv.ProfileAuto)
	require.NoError(t, err)

	assert.Equal(t, bankcsv.ProfileCGDConta, st.Profile)
	assert.Equal(t, 1, st.Skipped)
	assert.Zero(t, st.Dropped())
	require.Len(t, st.Rows, 2)

	assert.Equal(t, date(2026, 1, 9), st.Rows[0].Date)
	assert.Equal(t, "TRF MB WAY MARIA SILVA", st.Rows[0].Description)
	assert.True(t, amount("25").Equal(st.Rows[0].Amount))
	assert.Nil(t, st.Rows[0].Reference)

	assert.Equal(t, date(2026, 1, 8), st.Rows[1].Date)
	assert.True(t, amount("8608.52").Equal(st.Rows[1].Amount))
}

func TestParser_CGDExtrato(t *testing.T) {
	csv := `Consultar extrato - 15-02-2026 : 0829015676030
Nome empresa ;FABRICA DA IGREJA
Conta ;0829015676030 - EUR - Conta Extracto
Intervalo de ;01-02-2026 a 14-02-2026

Data mov. ;Data valor ;Origem ;Descrição ;Referência ;Movimento ;Estorno ;Saldo contabilístico após movimento ;
13-02-2026;13-02-2026;"=""0003""";PAGAMENTO TSU ; ;-608,13;  ;41.393,66;
04-02-2026;04-02-2026;SIBS ;TRF RETIRO JOVENS ;RJ-2026-014 ;40,00;  ;51.302,85;
`

	st, err := bankcsv.New(time.UTC).Parse(strings.NewReader(csv), bankcsv.ProfileAuto)
	require.NoError(t, err)

	assert.Equal(t, bankcsv.ProfileCGDExtrato, st.Profile)
	require.Len(t, st.Rows, 1)

	assert.Equal(t, date(2026, 2, 4), st.Rows[0].Date)
	assert.Equal(t, "TRF RETIRO JOVENS", st.Rows[0].Description)
	assert.True(t, amount("40").Equal(st.Rows[0].Amount))
	require.NotNil(t, st.Rows[0].Reference)
	assert.Equal(t, "RJ-2026-014", *st.Rows[0].Reference)
}

func TestParser_CGDSplit(t *testing.T) {
	csv := `Data ;Data valor ;Descrição ;Débito ;Crédito ;
16-12-2025 ;14-12-2025 ;PA GONDOMAR ;64,00 ; ;
17-12-2025 ;17-12-2025 ;DONATIVO NATAL ;  ;25,00 ;
 ; ; ; ;Página 1/2 ;
`

	st, err := bankcsv.New(time.UTC).Parse(strings.NewReader(csv), bankcsv.ProfileAuto)
	require.NoError(t, err)

	assert.Equal(t, bankcsv.ProfileCGDSplit, st.Profile)
	assert.Equal(t, 1, st.Skipped)
	assert.Zero(t, st.Dropped())
	require.Len(t, st.Rows, 1)
	assert.True(t, amount("25").Equal(st.Rows[0].Amount))
}

func TestParser_Generic(t *testing.T) {
	csv := `Date,Description,Amount,Reference
2024-05-01,Transfer from John,50.00,abc123
2024-05-01,Cash deposit,"1,250.50",
2024-05-02,Bank fee,-2.50,
`

	st, err := bankcsv.New(time.UTC).Parse(strings.NewReader(csv), bankcsv.ProfileAuto)
	require.NoError(t, err)

	assert.Equal(t, bankcsv.ProfileGeneric, st.Profile)
	assert.Equal(t, 1, st.Skipped)
	require.Len(t, st.Rows, 2)

	require.NotNil(t, st.Rows[0].Reference)
	assert.Equal(t, "abc123", *st.Rows[0].Reference)
	assert.True(t, amount("1250.5").Equal(st.Rows[1].Amount))
	assert.Nil(t, st.Rows[1].Reference)
}

func TestParser_MalformedRowsDropped(t *testing.T) {
	csv := `Data mov.;Descrição;Montante
30-01-2026;OFERTA;10,00
31-02-2026;DATA IMPOSSIVEL;10,00
30-01-2026;;10,00
30-01-2026;SEM VALOR;abc
30-01-2026;SEM MONTANTE;
Totais;;;;
`

	st, err := bankcsv.New(time.UTC).Parse(strings.NewReader(csv), bankcsv.ProfileAuto)
	require.NoError(t, err)

	require.Len(t, st.Rows, 1)
	assert.Equal(t, 4, st.Dropped())

	reasons := make([]string, 0, len(st.Malformed))
	for _, m := range st.Malformed {
		reasons = append(reasons, m.Error())
	}

	assert.Equal(t, []string{
		"row 3: invalid date",
		"row 4: missing description",
		"row 5: invalid amount",
		"row 6: invalid amount",
	}, reasons)
}

func TestParser_MalformedRowNumbersAfterPreamble(t *testing.T) {
	csv := `Consultar saldos e movimentos à ordem;
Conta;0123456789
Data mov.;Descrição;Montante
30-01-2026;OFERTA;10,00
31-02-2026;DATA IMPOSSIVEL;10,00
30-01-2026;SEM VALOR;abc
`

	st, err := bankcsv.New(time.UTC).Parse(strings.NewReader(csv), bankcsv.ProfileAuto)
	require.NoError(t, err)
	require.Len(t, st.Rows, 1)
	require.Len(t, st.Malformed, 2)

	assert.Equal(t, 5, st.Malformed[0].Row)
	assert.Equal(t, 6, st.Malformed[1].Row)
}

func TestParser_OperatingTimezone(t *testing.T) {
	lisbon := time.FixedZone("WEST", 3600)
	csv := `Data mov.;Descrição;Montante
10-06-2024;OFERTA;5,00
`

	st, err := bankcsv.New(lisbon).Parse(strings.NewReader(csv), bankcsv.ProfileAuto)
	require.NoError(t, err)
	require.Len(t, st.Rows, 1)

	assert.Equal(t, time.Date(2024, 6, 10, 0, 0, 0, 0, lisbon), st.Rows[0].Date)
	assert.Equal(t, "WEST", st.Rows[0].Date.Location().String())
}

func TestParser_Latin1Encoding(t *testing.T) {
	utf8CSV := "Data mov.;Descrição;Montante\n30-01-2026;OFERTA MISSÃO CAFÉ;10,00\n"

	latin1Bytes, err := charmap.Windows1252.NewEncoder().Bytes([]byte(utf8CSV))
	require.NoError(t, err)

	st, err := bankcsv.New(time.UTC).Parse(bytes.NewReader(latin1Bytes), bankcsv.ProfileAuto)
	require.NoError(t, err)
	require.Len(t, st.Rows, 1)

	assert.Equal(t, "OFERTA MISSÃO CAFÉ", st.Rows[0].Description)
	assert.NotEqual(t, "UTF-8", st.Charset)
}

func TestParser_DifferentColumnOrder(t *testing.T) {
	csv := `Random;MetaData
Montante;Descrição;Data mov.;Ignored
10,00;TEST_ORDER;30-01-2026;XXX
`

	st, err := bankcsv.New(time.UTC).Parse(strings.NewReader(csv), bankcsv.ProfileAuto)
	require.NoError(t, err)
	require.Len(t, st.Rows, 1)

	assert.Equal(t, "TEST_ORDER", st.Rows[0].Description)
	assert.True(t, amount("10").Equal(st.Rows[0].Amount))
}

func TestParser_Errors(t *testing.T) {
	type testCase struct {
		name    string
		csv     string
		profile string
		wantErr string
	}

	tests := []testCase{
		{name: "EmptyFile", csv: "", wantErr: "no matching statement format"},
		{name: "UnknownLayout", csv: "a;b;c\n1;2;3\n", wantErr: "no matching statement format"},
		{name: "UnknownProfile", csv: "Date,Description,Amount\n", profile: "santander", wantErr: "unknown profile"},
		{
			name:    "ForcedProfileMismatch",
			csv:     "Date,Description,Amount\n2024-01-01,x,1\n",
			profile: bankcsv.ProfileCGDConta,
			wantErr: "no matching statement format",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := bankcsv.New(time.UTC).Parse(strings.NewReader(tc.csv), tc.profile)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestParser_HeaderOnly(t *testing.T) {
	st, err := bankcsv.New(time.UTC).Parse(strings.NewReader(`Data mov.;Data-valor;Descrição;Montante`), bankcsv.ProfileAuto)
	require.NoError(t, err)
	assert.Empty(t, st.Rows)
	assert.Zero(t, st.Dropped())
}

func TestParser_LargeAmounts(t *testing.T) {
	csv := `Data mov.;Descrição;Montante
30-01-2026;LEGADO;1.234.567,89
`

	st, err := bankcsv.New(time.UTC).Parse(strings.NewReader(csv), bankcsv.ProfileAuto)
	require.NoError(t, err)
	require.Len(t, st.Rows, 1)

	assert.Equal(t, "1234567.89", st.Rows[0].Amount.String())
}
