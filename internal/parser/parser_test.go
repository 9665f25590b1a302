package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const receiptJSON = `{"merchant": "Delhaize", "total": 23.4, "date": "2024-05-02", "items": [{"name": "Pain", "total_price": 2.1}]}`

func TestParse_EquivalentAcrossStrategies(t *testing.T) {
	inputs := map[string]string{
		"clean":    receiptJSON,
		"fenced":   "Here is the extraction you asked for:\n```json\n" + receiptJSON + "\n```\nLet me know if you need more.",
		"embedded": "Sure! The receipt gives " + receiptJSON + " which should be correct.",
	}

	for name, input := range inputs {
		t.Run(name, func(t *testing.T) {
			rec := Parse(input)
			require.NotNil(t, rec)
			assert.Equal(t, "Delhaize", rec.String("merchant"))
			total, ok := rec.Float("total")
			require.True(t, ok)
			assert.InDelta(t, 23.4, total, 0.0001)
			assert.Equal(t, "2024-05-02", rec.String("date"))
			require.Len(t, rec.Records("items"), 1)
			assert.Equal(t, "Pain", rec.Records("items")[0].String("name"))
		})
	}
}

func TestParse_NoJSONReturnsNil(t *testing.T) {
	for _, input := range []string{
		"",
		"I could not read this receipt, sorry.",
		"{ this is not json }",
		"[1, 2, 3]",
		"```\nplain text\n```",
		"unbalanced { \"a\": 1",
	} {
		assert.NotPanics(t, func() {
			assert.Nil(t, Parse(input), input)
		})
	}
}

func TestParse_FencedWithoutLanguageTag(t *testing.T) {
	rec := Parse("```\n{\"category\": \"groceries\", \"confidence\": 0.9}\n```")
	require.NotNil(t, rec)
	assert.Equal(t, "groceries", rec.String("category"))
}

func TestParse_SkipsInvalidBraceCandidate(t *testing.T) {
	rec := Parse(`Template {name} filled: {"category": "transport"}`)
	require.NotNil(t, rec)
	assert.Equal(t, "transport", rec.String("category"))
}

func TestParse_BracesInsideStrings(t *testing.T) {
	rec := Parse(`Answer: {"reasoning": "looks like {fuel}", "category": "transport"} done`)
	require.NotNil(t, rec)
	assert.Equal(t, "looks like {fuel}", rec.String("reasoning"))
}

func TestParse_RepairsRawNewlinesInStrings(t *testing.T) {
	rec := Parse("{\"merchant\": \"Carrefour\nMarket\", \"total\": \"12,50\"}")
	require.NotNil(t, rec)
	assert.Equal(t, "Carrefour\nMarket", rec.String("merchant"))
	total, ok := rec.Float("total")
	require.True(t, ok)
	assert.InDelta(t, 12.5, total, 0.0001)
}

func TestRecord_MissingAndNullFields(t *testing.T) {
	rec := Parse(`{"merchant": null, "total": "n/a"}`)
	require.NotNil(t, rec)
	assert.False(t, rec.Has("merchant"))
	assert.Equal(t, "", rec.String("merchant"))
	_, ok := rec.Float("total")
	assert.False(t, ok)
	_, ok = rec.Float("missing")
	assert.False(t, ok)
	assert.Nil(t, rec.Records("items"))
}

func TestParseAmount(t *testing.T) {
	cases := map[string]float64{
		"45,30":      45.30,
		"45.30":      45.30,
		"€ 1.234,56": 1234.56,
		"1,234.56":   1234.56,
		"12 EUR":     12,
		"1,234":      1234,
		"-3,5":       -3.5,
		"TOTAL 9.99": 9.99,
	}
	for input, want := range cases {
		got, ok := ParseAmount(input)
		require.True(t, ok, input)
		assert.InDelta(t, want, got, 0.0001, input)
	}

	for _, input := range []string{"", "abc", "€", ",."} {
		_, ok := ParseAmount(input)
		assert.False(t, ok, input)
	}
}
