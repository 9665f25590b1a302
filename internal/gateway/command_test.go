package gateway

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bosocmputer/expense_ai_gateway/internal/models"
)

var commandNow = time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

func TestParseCommandLocally(t *testing.T) {
	cmd := parseCommandLocally("J'ai payé 45,30€ chez Colruyt hier pour les courses", commandNow)
	require.NotNil(t, cmd)
	require.NotNil(t, cmd.Amount)
	assert.InDelta(t, 45.30, *cmd.Amount, 1e-9)
	assert.Equal(t, "Colruyt", cmd.Merchant)
	assert.Equal(t, "2024-06-14", cmd.Date)
	assert.Equal(t, "les courses", cmd.Description)
	assert.Equal(t, ProviderRules, cmd.Source)
}

func TestParseCommandLocally_Variants(t *testing.T) {
	cases := []struct {
		text     string
		amount   float64
		merchant string
		date     string
	}{
		{"paid 12.50 at Shell today", 12.50, "Shell", "2024-06-15"},
		{"€ 8 bij Albert Heijn gisteren", 8, "Albert Heijn", "2024-06-14"},
		{"ciné 21/05/2024 24 euros", 24, "", "2024-05-21"},
		{"pharmacie 9,90 avant-hier", 9.90, "", "2024-06-13"},
		{"Carrefour courses 45,30", 45.30, "", ""},
	}
	for _, tc := range cases {
		t.Run(tc.text, func(t *testing.T) {
			cmd := parseCommandLocally(tc.text, commandNow)
			require.NotNil(t, cmd)
			require.NotNil(t, cmd.Amount)
			assert.InDelta(t, tc.amount, *cmd.Amount, 1e-9)
			assert.Equal(t, tc.merchant, cmd.Merchant)
			assert.Equal(t, tc.date, cmd.Date)
		})
	}
}

func TestParseCommandLocally_NothingFound(t *testing.T) {
	assert.Nil(t, parseCommandLocally("j'ai payé hier", commandNow))
	assert.Nil(t, parseCommandLocally("   ", commandNow))
}

func TestCommandFromReply(t *testing.T) {
	cmd := commandFromReply("Sure:\n```json\n{\"amount\": \"45,30\", \"description\": \"courses\", \"merchant\": null, \"date\": \"2024-06-14\", \"category\": \"groceries\"}\n```")
	require.NotNil(t, cmd)
	assert.InDelta(t, 45.30, *cmd.Amount, 1e-9)
	assert.Equal(t, "courses", cmd.Description)
	assert.Empty(t, cmd.Merchant)
	assert.Equal(t, "2024-06-14", cmd.Date)
	assert.Equal(t, models.CategoryGroceries, cmd.Category)

	assert.Nil(t, commandFromReply(`{"amount": null, "description": "null"}`))
	assert.Nil(t, commandFromReply("no idea"))

	bad := commandFromReply(`{"amount": 3, "date": "yesterday", "category": "luxury"}`)
	require.NotNil(t, bad)
	assert.Empty(t, bad.Date)
	assert.Empty(t, bad.Category)
}

func TestParseExpenseCommand_Provider(t *testing.T) {
	f := newFixture(t, 100, &fakeProvider{
		name:    "fast",
		succeed: true,
		reply:   `{"amount": 60, "description": "plein d'essence", "merchant": "Total", "date": "2024-06-15", "category": null}`,
	})
	cmd := f.gw.ParseExpenseCommand(context.Background(), "60 euros d'essence chez Total")
	require.NotNil(t, cmd)
	assert.Equal(t, "fast", cmd.Source)
	assert.InDelta(t, 60, *cmd.Amount, 1e-9)
	assert.Equal(t, "Total", cmd.Merchant)
	assert.Equal(t, models.CategoryTransport, cmd.Category)
}

func TestParseExpenseCommand_UnusableReplyFallsThrough(t *testing.T) {
	f := newFixture(t, 100,
		&fakeProvider{name: "chatty", succeed: true, reply: "I am not sure what you mean."},
		&fakeProvider{name: "strict", succeed: true, reply: `{"amount": 45.3, "description": "courses"}`},
	)
	cmd := f.gw.ParseExpenseCommand(context.Background(), "45,30 courses")
	require.NotNil(t, cmd)
	assert.Equal(t, "strict", cmd.Source)

	entries := f.audit.all()
	require.Len(t, entries, 2)
	assert.False(t, entries[0].Success)
	assert.True(t, entries[1].Success)
}

func TestParseExpenseCommand_LocalFallback(t *testing.T) {
	f := newFixture(t, 100)
	cmd := f.gw.ParseExpenseCommand(context.Background(), "Carrefour courses 45,30")
	require.NotNil(t, cmd)
	assert.Equal(t, ProviderRules, cmd.Source)
	assert.Equal(t, models.CategoryGroceries, cmd.Category)
}

func TestParseExpenseCommand_NilCases(t *testing.T) {
	p := &fakeProvider{name: "fast", succeed: true}
	f := newFixture(t, 100, p)

	assert.Nil(t, f.gw.ParseExpenseCommand(context.Background(), ""))
	assert.Nil(t, f.gw.ParseExpenseCommand(context.Background(), "IBAN: 45 euros"))
	assert.EqualValues(t, 0, p.calls.Load())
}
