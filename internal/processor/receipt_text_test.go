package processor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2024, 6, 15, 10, 0, 0, 0, time.UTC)

const delhaizeTicket = `DELHAIZE
Ticket de caisse
12/03/2024 14:32
2x Coca Cola 2,50 5,00
PAIN COMPLET 1,20 1,20
TVA 6% 0,45
Total: 6,20
CARTE 6,20`

func TestParseReceiptText_FullTicket(t *testing.T) {
	data := parseReceiptText(delhaizeTicket, fixedNow)

	assert.Equal(t, "DELHAIZE", data.Merchant)
	require.NotNil(t, data.Total)
	assert.InDelta(t, 6.20, *data.Total, 0.001)
	assert.Equal(t, "2024-03-12", data.Date)
	assert.Equal(t, delhaizeTicket, data.RawText)

	require.Len(t, data.Items, 2)
	assert.Equal(t, "Coca Cola", data.Items[0].Name)
	require.NotNil(t, data.Items[0].Quantity)
	assert.InDelta(t, 2, *data.Items[0].Quantity, 0.001)
	require.NotNil(t, data.Items[0].UnitPrice)
	assert.InDelta(t, 2.50, *data.Items[0].UnitPrice, 0.001)
	assert.InDelta(t, 5.00, data.Items[0].TotalPrice, 0.001)

	assert.Equal(t, "PAIN COMPLET", data.Items[1].Name)
	assert.Nil(t, data.Items[1].Quantity)
	assert.Nil(t, data.Items[1].UnitPrice)
}

func TestParseReceiptText_MerchantFromLegalForm(t *testing.T) {
	data := parseReceiptText("Boulangerie Dupont SPRL\n12/03/2024\nTotal: 2,40", fixedNow)
	assert.Equal(t, "Boulangerie Dupont", data.Merchant)
}

func TestParseReceiptText_MerchantFromFirstLine(t *testing.T) {
	data := parseReceiptText("12/03/2024\nTICKET\n42 - Le Petit Café 4,50\n", fixedNow)
	assert.Equal(t, "42 - Le Petit Café 4,50", data.Merchant)
}

func TestExtractTotal_Priorities(t *testing.T) {
	total, ok := extractTotal("Grand Total: 99,99\nTotal: 12,00")
	require.True(t, ok)
	assert.InDelta(t, 12.00, total, 0.001)

	total, ok = extractTotal("Sandwich 4,50\nNET A PAYER 7,80\nCash 10,00")
	require.True(t, ok)
	assert.InDelta(t, 10.00, total, 0.001, "cash is checked before net a payer")

	total, ok = extractTotal("Grand Total: 31,40")
	require.True(t, ok)
	assert.InDelta(t, 31.40, total, 0.001)

	total, ok = extractTotal("Article A 3,50\nArticle B 12,99\nArticle C 1,10")
	require.True(t, ok)
	assert.InDelta(t, 12.99, total, 0.001)

	_, ok = extractTotal("no amounts here")
	assert.False(t, ok)
}

func TestExtractDate(t *testing.T) {
	assert.Equal(t, "2024-01-15", extractDate("le 15.01.24 a 10h", fixedNow))
	assert.Equal(t, "1999-12-31", extractDate("31-12-99", fixedNow))
	assert.Equal(t, "2023-02-01", extractDate("ref 45/99/2023 date 01/02/2023", fixedNow))
	assert.Equal(t, "2024-06-15", extractDate("no date", fixedNow))
}

func TestParseReceiptText_Empty(t *testing.T) {
	data := parseReceiptText("", fixedNow)
	assert.Empty(t, data.Merchant)
	assert.Nil(t, data.Total)
	assert.Equal(t, "2024-06-15", data.Date)
	assert.NotNil(t, data.Items)
	assert.Empty(t, data.Items)
}
