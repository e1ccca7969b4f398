package reporter

import (
	"io"
	"sort"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"dexgrid-bot-go/internal/ledger"
	"dexgrid-bot-go/internal/models"
)

// RenderGridTable 把网格的在途订单渲染成一张按价格降序的表格,
// 用于周期性的状态输出。
func RenderGridTable(w io.Writer, orders []models.GridOrder, marketPrice float64) {
	live := make([]models.GridOrder, 0, len(orders))
	spreadSlots := 0
	virtualSlots := 0
	for _, o := range orders {
		switch {
		case o.IsLive():
			live = append(live, o)
		case o.Type == models.OrderTypeSpread:
			spreadSlots++
		default:
			virtualSlots++
		}
	}
	sort.Slice(live, func(a, b int) bool { return live[a].Price > live[b].Price })

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetTitle("网格状态 (市价 %.8f, 价差槽 %d, 虚拟槽 %d)", marketPrice, spreadSlots, virtualSlots)
	t.AppendHeader(table.Row{"ID", "类型", "状态", "价格", "数量", "链上句柄"})
	for _, o := range live {
		t.AppendRow(table.Row{o.ID, o.Type, o.State, o.Price, o.Size, o.ExternalOrderID})
	}
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 4, Align: text.AlignRight},
		{Number: 5, Align: text.AlignRight},
	})
	t.SetStyle(table.StyleLight)
	t.Render()
}

// RenderLedgerTable 把资金账本的六个桶渲染成表格, 两侧各一列。
func RenderLedgerTable(w io.Writer, l *ledger.FundLedger) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetTitle("资金账本")
	t.AppendHeader(table.Row{"桶", "买侧(报价资产)", "卖侧(基础资产)"})
	rows := []struct {
		name string
		s    ledger.SideAmounts
	}{
		{"Available", l.Available},
		{"CommittedGrid", l.CommittedGrid},
		{"CommittedChain", l.CommittedChain},
		{"Virtual", l.Virtual},
		{"CacheFunds", l.CacheFunds},
		{"PendingProceeds", l.PendingProceeds},
		{"TotalGrid", l.TotalGrid},
		{"TotalChain", l.TotalChain},
	}
	for _, r := range rows {
		t.AppendRow(table.Row{r.name, r.s.Buy, r.s.Sell})
	}
	t.AppendFooter(table.Row{"FeesOwed", "", l.FeesOwed})
	t.SetStyle(table.StyleLight)
	t.Render()
}
