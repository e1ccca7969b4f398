package reporter

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"

	"dexgrid-bot-go/internal/ledger"
	"dexgrid-bot-go/internal/models"
)

func TestRenderGridTable(t *testing.T) {
	orders := []models.GridOrder{
		{ID: "buy-3", Type: models.OrderTypeBuy, State: models.OrderStateActive, Price: 66.55, Size: 200},
		{ID: "sell-10", Type: models.OrderTypeSell, State: models.OrderStatePartial, Price: 129.69, Size: 60, ExternalOrderID: "1.7.42"},
		{ID: "buy-0", Type: models.OrderTypeBuy, State: models.OrderStateVirtual, Price: 50, Size: 100},
	}

	var buf bytes.Buffer
	RenderGridTable(&buf, orders, 100)
	out := buf.String()

	// Only live orders are listed.
	assert.Contains(t, out, "buy-3")
	assert.Contains(t, out, "sell-10")
	assert.Contains(t, out, "1.7.42")
	assert.NotContains(t, out, "buy-0")
}

func TestRenderLedgerTable(t *testing.T) {
	l := ledger.NewFundLedger(1.5)
	l.Available.Buy = 197.95
	l.CommittedGrid.Sell = 60

	var buf bytes.Buffer
	RenderLedgerTable(&buf, l)
	out := buf.String()

	assert.Contains(t, out, "197.95")
	assert.Contains(t, out, "1.5")
}
