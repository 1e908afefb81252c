package livelo

import (
	"encoding/json"
	"reflect"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/grez-lucas/livelo-scraper/internal/scraper/loyalty"
)

func TestParsePoints(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  float64
	}{
		{"negative with thousands and decimals", "-1.234,56", -1234.56},
		{"explicit positive", "+10", 10},
		{"unsigned", "250", 250},
		{"unsigned with thousands", "1.000", 1000},
		{"space after sign", "- 1.500", -1500},
		{"trailing label", "+2.000 pontos", 2000},
		{"only decimals part", "+0,5", 0.5},
		{"unparsable", "pontos", 0},
		{"empty", "", 0},
		{"separator only", "+.", 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.InDelta(t, tc.want, ParsePoints(tc.input), 1e-9)
		})
	}
}

func TestParseBalance(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    float64
		wantErr bool
	}{
		{"thousands", "12.345", 12345, false},
		{"decimal", "1.234,5", 1234.5, false},
		{"zero", "0", 0, false},
		{"padded", "  98  ", 98, false},
		{"empty", "", 0, true},
		{"whitespace", "   ", 0, true},
		{"text", "indisponível", 0, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseBalance(tc.input)
			if tc.wantErr {
				assert.ErrorIs(t, err, loyalty.ErrParsingFailed)
				return
			}
			assert.NoError(t, err)
			assert.InDelta(t, tc.want, got, 1e-9)
		})
	}
}

func TestNormalizeFieldName(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"Observações", "observacoes"},
		{"Operação", "operacao"},
		{"Data", "data"},
		{"Parceiros ", "parceiros"},
		{"Pontos (+/-)", "pontos"},
		{"Ação nº 2", "acaon2"},
		{"ÇÃO", "cao"},
	}

	for _, tc := range tests {
		t.Run(tc.input, func(t *testing.T) {
			assert.Equal(t, tc.want, NormalizeFieldName(tc.input))
		})
	}
}

// The normalized headers are the record keys callers see on the wire.
func TestFieldKeysMatchTransactionJSON(t *testing.T) {
	typ := reflect.TypeOf(loyalty.Transaction{})
	var tags []string
	for i := 0; i < typ.NumField(); i++ {
		tags = append(tags, typ.Field(i).Tag.Get("json"))
	}

	var keys []string
	for _, f := range Fields() {
		keys = append(keys, f.Key())
	}

	assert.Equal(t, tags, keys)
}

func TestFieldAssign(t *testing.T) {
	var txn loyalty.Transaction
	raw := map[Field]string{
		FieldDate:      "10/03/2025",
		FieldOperation: "Acúmulo",
		FieldPartners:  "Parceiro X",
		FieldPoints:    "+1.200",
		FieldNotes:     "",
	}
	for _, f := range Fields() {
		f.assign(&txn, raw[f])
	}

	data, err := json.Marshal(txn)
	assert.NoError(t, err)
	assert.JSONEq(t, `{"data":"10/03/2025","operacao":"Acúmulo","parceiros":"Parceiro X","pontos":1200,"observacoes":""}`, string(data))
}

func TestFieldSelector(t *testing.T) {
	assert.Equal(t, "[data-testid='transactionPoints3']", fieldSelector(FieldPoints, 3))
	assert.Equal(t, "[data-testid='transactionObservation0']", fieldSelector(FieldNotes, 0))
}

func TestMaxPageLabel(t *testing.T) {
	assert.Equal(t, 5, maxPageLabel([]string{"1", "2", " 5 ", "...", "3"}))
	assert.Equal(t, 1, maxPageLabel([]string{"…", ""}))
	assert.Equal(t, 1, maxPageLabel(nil))
}

func TestFormatPoints(t *testing.T) {
	assert.Equal(t, "1234500", formatPoints(1234500))
	assert.Equal(t, "1234.5", formatPoints(1234.5))
	assert.False(t, strings.Contains(formatPoints(1e7), "e"))
}
