package ledger

import (
	"math"

	"dexgrid-bot-go/internal/models"
)

// SideAmounts 是一对按方向区分的金额。
// Buy 侧金额以报价资产计, Sell 侧金额以基础资产计。
type SideAmounts struct {
	Buy  float64 `json:"buy"`
	Sell float64 `json:"sell"`
}

// Of 返回 t 方向上的金额。SPREAD 不是资金方向, 按 Sell 处理（调用方不应传入）。
func (s *SideAmounts) Of(t models.OrderType) float64 {
	if t == models.OrderTypeBuy {
		return s.Buy
	}
	return s.Sell
}

// Add 在 t 方向上累加 v。
func (s *SideAmounts) Add(t models.OrderType, v float64) {
	if t == models.OrderTypeBuy {
		s.Buy += v
	} else {
		s.Sell += v
	}
}

// Sub 在 t 方向上扣减 v, 并把结果截在 0 以上（各桶按构造非负）。
func (s *SideAmounts) Sub(t models.OrderType, v float64) {
	if t == models.OrderTypeBuy {
		s.Buy = math.Max(0, s.Buy-v)
	} else {
		s.Sell = math.Max(0, s.Sell-v)
	}
}

// Set 覆写 t 方向上的金额。
func (s *SideAmounts) Set(t models.OrderType, v float64) {
	if t == models.OrderTypeBuy {
		s.Buy = v
	} else {
		s.Sell = v
	}
}

// FundLedger 是管理器的六桶资金账本。每个管理器实例持有一个,
// 由全部生命周期操作原地修改, 除显式的 Recompute 外不会被整体替换。
//
// 守恒不变量（每侧）: Available + CommittedGrid + Virtual + CacheFunds
// 不超过 TotalGrid, 且在 PendingProceeds 全部折算后取等。
type FundLedger struct {
	Available       SideAmounts `json:"available"`        // 此刻可分配给新网格订单的资金
	CommittedGrid   SideAmounts `json:"committed_grid"`   // ACTIVE/PARTIAL 订单占用的资金（内部视角）
	CommittedChain  SideAmounts `json:"committed_chain"`  // 其中已确认挂上链的部分
	TotalChain      SideAmounts `json:"total_chain"`      // 链上全量余额 = 链上空闲 + CommittedChain
	TotalGrid       SideAmounts `json:"total_grid"`       // 网格记账总量
	Virtual         SideAmounts `json:"virtual"`          // VIRTUAL 订单预留（未挂单但已指定用途）
	CacheFunds      SideAmounts `json:"cache_funds"`      // 轮换定量后凑不满整单的结余, 留给下次轮换
	PendingProceeds SideAmounts `json:"pending_proceeds"` // 尚未折算进 Available 的成交回款
	FeesOwed        float64     `json:"fees_owed"`        // 计算可分配资金时扣除的手续费负债（基础资产）
}

// NewFundLedger 创建一个空账本。
func NewFundLedger(feesOwed float64) *FundLedger {
	return &FundLedger{FeesOwed: feesOwed}
}

// committedSide 返回订单占用资金的方向: SELL 订单占用基础资产(Sell侧),
// BUY 订单占用报价资产(Buy侧)。
func committedSide(t models.OrderType) models.OrderType {
	return t
}

// proceedsSide 返回订单成交回款落入的方向: SELL 回款为报价资产(Buy侧),
// BUY 回款为基础资产(Sell侧)。
func proceedsSide(t models.OrderType) models.OrderType {
	if t == models.OrderTypeSell {
		return models.OrderTypeBuy
	}
	return models.OrderTypeSell
}

// Earmark 为新定量的 VIRTUAL 订单预留资金。
func (l *FundLedger) Earmark(t models.OrderType, amount float64) {
	l.Virtual.Add(committedSide(t), amount)
}

// Activate 把一笔 VIRTUAL 预留转为网格占用（VIRTUAL → ACTIVE）。
func (l *FundLedger) Activate(t models.OrderType, amount float64) {
	side := committedSide(t)
	l.Virtual.Sub(side, amount)
	l.CommittedGrid.Add(side, amount)
}

// AllocateNew 从 Available 中为一个新激活的价差槽位划拨资金。
func (l *FundLedger) AllocateNew(t models.OrderType, amount float64) {
	side := committedSide(t)
	l.Available.Sub(side, amount)
	l.CommittedGrid.Add(side, amount)
}

// ConfirmChain 记录一笔占用资金已确认挂上链。
func (l *FundLedger) ConfirmChain(t models.OrderType, amount float64) {
	l.CommittedChain.Add(committedSide(t), amount)
}

// ReleaseChain 撤销 ConfirmChain（订单被取消或成交）。
func (l *FundLedger) ReleaseChain(t models.OrderType, amount float64) {
	l.CommittedChain.Sub(committedSide(t), amount)
}

// SetChainTotals 用链上查询到的空闲余额重建 TotalChain。
func (l *FundLedger) SetChainTotals(chainFreeBuy, chainFreeSell float64) {
	l.TotalChain = SideAmounts{
		Buy:  chainFreeBuy + l.CommittedChain.Buy,
		Sell: chainFreeSell + l.CommittedChain.Sell,
	}
}

// Unallocate 撤销一笔轮换分配, 碎量转入结余而不是退回 Available——
// 单独留在 Available 里的碎量永远凑不满一单。
func (l *FundLedger) Unallocate(t models.OrderType, amount float64) {
	side := committedSide(t)
	l.CommittedGrid.Sub(side, amount)
	l.CacheFunds.Add(side, amount)
}

// Release 把一笔网格占用退回 Available（轮换取消远端订单时）。
func (l *FundLedger) Release(t models.OrderType, amount float64) {
	side := committedSide(t)
	l.CommittedGrid.Sub(side, amount)
	l.Available.Add(side, amount)
}

// ApplyFill 对一笔成交入账一次。qty 为成交数量（与订单 Size 同单位）,
// price 为成交价。SELL 成交把 qty*price 记入买侧回款, BUY 成交把
// qty/price 记入卖侧回款; 同一笔成交量绝不重复入账——部分成交与其
// 后续的完全成交各自只按增量入账。
func (l *FundLedger) ApplyFill(t models.OrderType, qty, price float64) {
	side := committedSide(t)
	l.CommittedGrid.Sub(side, qty)
	l.CommittedChain.Sub(side, qty)
	l.TotalGrid.Sub(side, qty)
	l.TotalChain.Sub(side, qty)

	var proceeds float64
	if t == models.OrderTypeSell {
		proceeds = qty * price
	} else {
		proceeds = qty / price
	}
	l.PendingProceeds.Add(proceedsSide(t), proceeds)
}

// FoldPending 把一侧的待折算回款并入 Available, 同时计入 TotalGrid 和
// TotalChain。对同一批回款只会生效一次（折算后清零）。
func (l *FundLedger) FoldPending(t models.OrderType) {
	p := l.PendingProceeds.Of(t)
	if p == 0 {
		return
	}
	l.Available.Add(t, p)
	l.TotalGrid.Add(t, p)
	l.TotalChain.Add(t, p)
	l.PendingProceeds.Set(t, 0)
}

// FoldAllPending 折算两侧的待折算回款。
func (l *FundLedger) FoldAllPending() {
	l.FoldPending(models.OrderTypeBuy)
	l.FoldPending(models.OrderTypeSell)
}

// RotationPool 返回一侧轮换定量可用的资金池:
// Available + PendingProceeds + CacheFunds。调用 AllocateRotation 前
// 仅用于观测, 资金池的消耗发生在 AllocateRotation 内。
func (l *FundLedger) RotationPool(t models.OrderType) float64 {
	side := committedSide(t)
	return l.Available.Of(side) + l.PendingProceeds.Of(side) + l.CacheFunds.Of(side)
}

// AllocateRotation 为一组轮换订单分配资金。sizes 是几何递减的期望定量,
// 资金池 F = Available + PendingProceeds + CacheFunds（上次轮换的结余
// 在这里被消耗）。定量之和 S 与 F 比较:
//   - S < F: 差额存入 CacheFunds, 等待下次轮换, 不让资金闲置在订单外;
//   - S > F: 所有定量等比缩小, 使总和恰好等于 F, 无结余可存。
// 返回实际分配的定量。分配后该侧 Available 与 PendingProceeds 归零,
// 折算进 TotalGrid 的回款只在此处计一次。
func (l *FundLedger) AllocateRotation(t models.OrderType, sizes []float64) []float64 {
	side := committedSide(t)

	// 回款在被用于轮换时即视为已折算。
	l.FoldPending(side)
	pool := l.Available.Of(side) + l.CacheFunds.Of(side)
	l.Available.Set(side, 0)
	l.CacheFunds.Set(side, 0)

	var sum float64
	for _, s := range sizes {
		sum += s
	}

	allocated := make([]float64, len(sizes))
	copy(allocated, sizes)

	switch {
	case sum <= 0 || pool <= 0:
		// 没有可分配的量, 资金全部转入结余。
		l.CacheFunds.Set(side, pool)
		for i := range allocated {
			allocated[i] = 0
		}
		return allocated
	case sum < pool:
		l.CacheFunds.Set(side, pool-sum)
	case sum > pool:
		scale := pool / sum
		sum = 0
		for i := range allocated {
			allocated[i] *= scale
			sum += allocated[i]
		}
	}

	l.CommittedGrid.Add(side, sum)
	return allocated
}

// Recompute 依据订单集合和链上空闲余额重建全部资金桶。
// PendingProceeds 与 CacheFunds 是在途值, 显式跨重算保留——
// 它们不能从订单集合推导出来, 清零会在下一笔成交时破坏记账。
func (l *FundLedger) Recompute(orders []models.GridOrder, chainFreeBuy, chainFreeSell float64) {
	pending := l.PendingProceeds
	cache := l.CacheFunds

	l.Virtual = SideAmounts{}
	l.CommittedGrid = SideAmounts{}
	l.CommittedChain = SideAmounts{}

	for i := range orders {
		o := &orders[i]
		if o.Type == models.OrderTypeSpread || o.Size <= 0 {
			continue
		}
		side := committedSide(o.Type)
		switch o.State {
		case models.OrderStateVirtual:
			l.Virtual.Add(side, o.Size)
		case models.OrderStateActive, models.OrderStatePartial:
			l.CommittedGrid.Add(side, o.Size)
			if o.ExternalOrderID != "" {
				l.CommittedChain.Add(side, o.Size)
			}
		}
	}

	l.PendingProceeds = pending
	l.CacheFunds = cache

	l.TotalChain = SideAmounts{
		Buy:  chainFreeBuy + l.CommittedChain.Buy,
		Sell: chainFreeSell + l.CommittedChain.Sell,
	}

	// 手续费负债从基础资产(卖侧)的可分配资金中扣除。
	// 待折算回款不并入 Available: 它由 FoldPending 恰好折算一次,
	// 重算在这里并入会让同一笔回款被计两次。
	l.Available = SideAmounts{
		Buy:  math.Max(0, chainFreeBuy-l.Virtual.Buy-l.CacheFunds.Buy),
		Sell: math.Max(0, chainFreeSell-l.Virtual.Sell-l.CacheFunds.Sell-l.FeesOwed),
	}

	l.TotalGrid = SideAmounts{
		Buy:  l.Available.Buy + l.CommittedGrid.Buy + l.Virtual.Buy + l.CacheFunds.Buy,
		Sell: l.Available.Sell + l.CommittedGrid.Sell + l.Virtual.Sell + l.CacheFunds.Sell,
	}
}

// Conserved 校验守恒不变量: 每侧 Available+CommittedGrid+Virtual+CacheFunds
// 不超过 TotalGrid（容差 eps）, 且各桶非负。
func (l *FundLedger) Conserved(eps float64) bool {
	check := func(t models.OrderType) bool {
		sum := l.Available.Of(t) + l.CommittedGrid.Of(t) + l.Virtual.Of(t) + l.CacheFunds.Of(t)
		if sum < -eps || sum > l.TotalGrid.Of(t)+eps {
			return false
		}
		return l.Available.Of(t) >= 0 && l.CommittedGrid.Of(t) >= 0 &&
			l.Virtual.Of(t) >= 0 && l.CacheFunds.Of(t) >= 0
	}
	return check(models.OrderTypeBuy) && check(models.OrderTypeSell)
}
