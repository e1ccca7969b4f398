package manager

import (
	"fmt"
	"math"
	"sort"

	"go.uber.org/zap"

	"dexgrid-bot-go/internal/grid"
	"dexgrid-bot-go/internal/ledger"
	"dexgrid-bot-go/internal/models"
)

const eps = 1e-9

// Chain 是管理器消费的链上协作者窄边界。
// 余额与挂单剩余量均已按资产精度折算为浮点数量。
type Chain interface {
	ResolveMarketPrice(base, quote string, mode models.MarketPriceMode) (float64, error)
	GetAccountBalances(account string) (map[string]float64, error)
	LookupAssetMetadata(symbol string) (*models.AssetInfo, error)
	GetOpenOrders(account string) (map[string]float64, error)
}

// OrderManager 是网格生命周期的核心编排器: 持有订单集合与资金账本,
// 对外暴露 Initialize / FetchOrderUpdates / ProcessFilledOrders 等
// 生命周期操作, 由外部轮询循环串行调用。
//
// 管理器内部不加锁: 每个实例只服务一个交易对, 生命周期操作任一时刻
// 至多一个在途, 由调用方（单一轮询循环）保证串行。
type OrderManager struct {
	cfg    *models.ManagerConfig
	chain  Chain
	logger *zap.SugaredLogger

	orders []models.GridOrder
	funds  *ledger.FundLedger

	marketPrice float64
	minPrice    float64
	maxPrice    float64
	allotBuy    float64
	allotSell   float64

	initialized bool
	forceRecalc bool
	outOfSpread bool

	cancelQueue []string // 待取消的链上订单句柄, 由轮询器消费
}

// NewOrderManager 创建一个未初始化的管理器。协作者通过参数显式注入,
// 管理器从不访问任何全局客户端。
func NewOrderManager(cfg *models.ManagerConfig, chain Chain, logger *zap.SugaredLogger) *OrderManager {
	return &OrderManager{
		cfg:    cfg,
		chain:  chain,
		logger: logger,
		funds:  ledger.NewFundLedger(cfg.FeeReserve),
	}
}

// Initialize 解析市价和价格区间, 构建并定量网格, 建立资金账本,
// 然后激活最靠近市价的初始一批订单。
// 市价无法解析或落在 [minPrice, maxPrice] 之外是致命错误:
// 直接返回, 不提交任何状态（在区间外交易是安全红线, 不做内部重试）。
func (m *OrderManager) Initialize() error {
	marketPrice, err := m.resolveMarketPrice()
	if err != nil {
		return err
	}

	minPrice := m.cfg.MinPrice.Resolve(marketPrice)
	maxPrice := m.cfg.MaxPrice.Resolve(marketPrice)
	if minPrice <= 0 || minPrice > marketPrice || marketPrice > maxPrice {
		return fmt.Errorf("market price %.8f outside configured bounds [%.8f, %.8f]",
			marketPrice, minPrice, maxPrice)
	}

	// 余额查询失败不致命: 记录后按未知余额继续（百分比配额会得到 0）。
	chainFreeBuy, chainFreeSell, balErr := m.fetchBalances()
	if balErr != nil {
		m.logger.Warnf("获取账户余额失败, 将按未知余额继续: %v", balErr)
	}

	buyFunds := m.cfg.BuyFunds.Resolve(chainFreeBuy)
	sellFunds := m.cfg.SellFunds.Resolve(chainFreeSell)

	orders, spreadCount := grid.CreateOrderGrid(m.cfg, marketPrice, minPrice, maxPrice)
	orders = grid.CalculateOrderSizes(orders, m.cfg, sellFunds, buyFunds)

	// 到这里才允许提交状态: 之前的任何失败都不会留下半套账本。
	m.marketPrice = marketPrice
	m.minPrice = minPrice
	m.maxPrice = maxPrice
	m.allotBuy = buyFunds
	m.allotSell = sellFunds
	m.orders = orders

	m.funds.Recompute(m.orders, m.freeAfterCommit(models.OrderTypeBuy, buyFunds),
		m.freeAfterCommit(models.OrderTypeSell, sellFunds))
	m.funds.SetChainTotals(chainFreeBuy, chainFreeSell)

	m.activateTranche(models.OrderTypeSell, m.cfg.ActiveSellOrders)
	m.activateTranche(models.OrderTypeBuy, m.cfg.ActiveBuyOrders)

	m.initialized = true
	m.logger.Infof("网格初始化完成: 市价 %.8f, 区间 [%.8f, %.8f], 网格线 %d 条 (价差带吸收 buy=%d sell=%d), 资金 buy=%.8f sell=%.8f",
		marketPrice, minPrice, maxPrice, len(m.orders), spreadCount.Buy, spreadCount.Sell, buyFunds, sellFunds)
	return nil
}

// resolveMarketPrice 按配置的模式确定市价。
func (m *OrderManager) resolveMarketPrice() (float64, error) {
	if m.cfg.PriceMode == models.PriceModeFixed {
		if m.cfg.FixedMarketPrice <= 0 {
			return 0, fmt.Errorf("configured market price must be positive, got %v", m.cfg.FixedMarketPrice)
		}
		return m.cfg.FixedMarketPrice, nil
	}
	price, err := m.chain.ResolveMarketPrice(m.cfg.BaseSymbol, m.cfg.QuoteSymbol, m.cfg.PriceMode)
	if err != nil {
		return 0, fmt.Errorf("failed to resolve market price (%s): %w", m.cfg.PriceMode, err)
	}
	if price <= 0 {
		return 0, fmt.Errorf("market price unresolved for %s/%s", m.cfg.BaseSymbol, m.cfg.QuoteSymbol)
	}
	return price, nil
}

// fetchBalances 查询两侧的链上空闲余额（买侧=报价资产, 卖侧=基础资产）。
func (m *OrderManager) fetchBalances() (buy, sell float64, err error) {
	balances, err := m.chain.GetAccountBalances(m.cfg.Account)
	if err != nil {
		return 0, 0, err
	}
	return balances[m.cfg.QuoteSymbol], balances[m.cfg.BaseSymbol], nil
}

// freeAfterCommit 求配额中扣除已占用部分后的空闲量, 用于账本重算。
func (m *OrderManager) freeAfterCommit(t models.OrderType, allot float64) float64 {
	var committed float64
	for i := range m.orders {
		o := &m.orders[i]
		if o.Type == t && o.IsLive() {
			committed += o.Size
		}
	}
	return math.Max(0, allot-committed)
}

// activateTranche 激活 t 方向上最靠近市价的 n 个 VIRTUAL 订单:
// SELL 按价格升序（刚好在市价之上起步）, BUY 按价格降序。
func (m *OrderManager) activateTranche(t models.OrderType, n int) {
	var idxs []int
	for i := range m.orders {
		if m.orders[i].Type == t && m.orders[i].State == models.OrderStateVirtual && m.orders[i].Size > 0 {
			idxs = append(idxs, i)
		}
	}
	sort.SliceStable(idxs, func(a, b int) bool {
		if t == models.OrderTypeSell {
			return m.orders[idxs[a]].Price < m.orders[idxs[b]].Price
		}
		return m.orders[idxs[a]].Price > m.orders[idxs[b]].Price
	})
	if n > len(idxs) {
		n = len(idxs)
	}
	for _, i := range idxs[:n] {
		o := &m.orders[i]
		o.State = models.OrderStateActive
		m.funds.Activate(t, o.Size)
		m.logger.Debugf("激活网格订单 %s: %s %.8f @ %.8f", o.ID, o.Type, o.Size, o.Price)
	}
}

// FetchOrderUpdates 返回当前在途订单。存在在途订单且未被要求重算时
// 原样返回（廉价路径）; 否则向链上查询成交情况, 经 ProcessFilledOrders
// 入账并重新评估价差条件。
func (m *OrderManager) FetchOrderUpdates() ([]models.GridOrder, error) {
	if !m.initialized {
		return nil, fmt.Errorf("order manager is not initialized")
	}

	live := m.liveOrders()
	if len(live) > 0 && !m.forceRecalc {
		return live, nil
	}
	m.forceRecalc = false

	fills, err := m.detectFills()
	if err != nil {
		return nil, fmt.Errorf("failed to fetch order updates: %w", err)
	}
	m.ProcessFilledOrders(fills)
	return m.liveOrders(), nil
}

// ForceRecalculation 让下一次 FetchOrderUpdates 跳过廉价路径。
func (m *OrderManager) ForceRecalculation() {
	m.forceRecalc = true
}

// detectFills 用链上挂单列表与本地在途订单做差, 推导成交事件:
// 句柄消失为完全成交, 剩余量减少为部分成交。
func (m *OrderManager) detectFills() ([]models.FillEvent, error) {
	open, err := m.chain.GetOpenOrders(m.cfg.Account)
	if err != nil {
		return nil, err
	}

	var fills []models.FillEvent
	for i := range m.orders {
		o := &m.orders[i]
		if !o.IsLive() || o.ExternalOrderID == "" {
			continue
		}
		remaining, exists := open[o.ExternalOrderID]
		switch {
		case !exists:
			fills = append(fills, models.FillEvent{OrderID: o.ID, Quantity: o.Size})
		case remaining < o.Size-eps:
			fills = append(fills, models.FillEvent{OrderID: o.ID, Quantity: o.Size - remaining})
		}
	}
	return fills, nil
}

// ProcessFilledOrders 是核心转移函数。对每笔成交恰好入账一次,
// 完全成交的槽位转为 SPREAD/VIRTUAL/0 腾空待复用, 部分成交只缩减
// 剩余量; 随后按成交计数驱动补单, 重估价差条件, 并把回款折算进
// 可分配资金。无效的成交记录跳过并告警, 不中断本批。
func (m *OrderManager) ProcessFilledOrders(fills []models.FillEvent) models.ProcessResult {
	res := models.ProcessResult{}

	for _, f := range fills {
		o := m.findOrder(f.OrderID)
		if o == nil {
			m.logger.Warnf("成交记录引用了未知订单 %s, 已跳过", f.OrderID)
			res.Skipped++
			continue
		}
		price := f.Price
		if price == 0 {
			price = o.Price
		}
		if f.Quantity <= 0 || price <= 0 || o.Type == models.OrderTypeSpread || !o.IsLive() {
			m.logger.Warnf("无效的成交记录 (order=%s qty=%.8f price=%.8f state=%s), 已跳过",
				f.OrderID, f.Quantity, price, o.State)
			res.Skipped++
			continue
		}

		qty := math.Min(f.Quantity, o.Size)
		m.funds.ApplyFill(o.Type, qty, price)
		res.Applied++

		if qty >= o.Size-eps {
			// 完全成交: 槽位腾空, 身份保留。
			m.logger.Infof("订单 %s 完全成交: %s %.8f @ %.8f", o.ID, o.Type, qty, price)
			if o.Type == models.OrderTypeBuy {
				res.Filled.Buy++
			} else {
				res.Filled.Sell++
			}
			o.Type = models.OrderTypeSpread
			o.State = models.OrderStateVirtual
			o.Size = 0
			o.ExternalOrderID = ""
		} else {
			m.logger.Infof("订单 %s 部分成交: %s %.8f @ %.8f, 剩余 %.8f",
				o.ID, o.Type, qty, price, o.Size-qty)
			o.Size -= qty
			o.State = models.OrderStatePartial
		}
	}

	extra := 0
	if m.outOfSpread {
		// 上一轮检测到价差过宽, 在本轮多补一单收紧盘口。
		extra = 1
		m.outOfSpread = false
	}

	res.Activated = m.RebalanceOrders(res.Filled, extra)

	_, m.outOfSpread = m.CheckSpreadCondition()
	m.funds.FoldAllPending()
	res.OutOfSpread = m.outOfSpread
	return res
}

// RebalanceOrders 按方向对称地恢复目标挂单数: 卖侧成交驱动买侧补单,
// 买侧成交驱动卖侧补单。两侧使用同一套逻辑, 仅交换类型——
// 不对称的实现会让一侧悄悄停止补单。返回新激活的槽位ID。
func (m *OrderManager) RebalanceOrders(filled models.FillCounts, extraOrderCount int) []string {
	var activated []string
	activated = append(activated, m.replenishSide(models.OrderTypeBuy, filled.Sell, extraOrderCount)...)
	activated = append(activated, m.replenishSide(models.OrderTypeSell, filled.Buy, extraOrderCount)...)
	return activated
}

// replenishSide 在 target 方向上补单。对面方向有成交且本侧有可分配
// 资金时: 有足够的 VIRTUAL SPREAD 槽位就直接激活, 否则退回轮换。
func (m *OrderManager) replenishSide(target models.OrderType, oppositeFills, extra int) []string {
	if oppositeFills <= 0 {
		return nil
	}
	if m.funds.RotationPool(target) <= 0 {
		m.logger.Warnf("%s 侧无可分配资金, 跳过补单", target)
		return nil
	}

	current := 0
	for i := range m.orders {
		if m.orders[i].Type == target && m.orders[i].IsLive() {
			current++
		}
	}
	needed := m.targetCount(target) - current
	if needed < 0 {
		needed = 0
	}
	desired := oppositeFills + extra
	if needed > desired {
		desired = needed
	}
	if desired == 0 {
		return nil
	}

	eligible := m.spreadSlots(target)
	if len(eligible) >= desired {
		return m.activateSpreadSlots(target, eligible, desired)
	}
	return m.rotateOrders(target, desired)
}

func (m *OrderManager) targetCount(t models.OrderType) int {
	if t == models.OrderTypeBuy {
		return m.cfg.ActiveBuyOrders
	}
	return m.cfg.ActiveSellOrders
}

// spreadSlots 返回 t 方向上可用的 VIRTUAL SPREAD 槽位索引,
// 按价格升序、同价按槽位ID升序排列, 保证选取的确定性:
// BUY 从可用区间的底部（最低价）取起, SELL 从刚好高于市价处向外取。
func (m *OrderManager) spreadSlots(t models.OrderType) []int {
	var idxs []int
	for i := range m.orders {
		o := &m.orders[i]
		if o.Type != models.OrderTypeSpread || o.State != models.OrderStateVirtual {
			continue
		}
		if t == models.OrderTypeBuy && o.Price < m.marketPrice {
			idxs = append(idxs, i)
		} else if t == models.OrderTypeSell && o.Price > m.marketPrice {
			idxs = append(idxs, i)
		}
	}
	sort.SliceStable(idxs, func(a, b int) bool {
		pa, pb := m.orders[idxs[a]].Price, m.orders[idxs[b]].Price
		if pa != pb {
			return pa < pb
		}
		return m.orders[idxs[a]].ID < m.orders[idxs[b]].ID
	})
	return idxs
}

// activateSpreadSlots 把 n 个价差槽位转为 t 方向的新订单, 资金按
// 选中数量均分; 单均资金低于最小订单量时整批拒绝（宁可不补也不挂
// 会被链上拒绝的小单）。
func (m *OrderManager) activateSpreadSlots(t models.OrderType, eligible []int, n int) []string {
	if n > len(eligible) {
		n = len(eligible)
	}
	if n == 0 {
		return nil
	}

	// 成交回款先折算, 才能用于补单。
	m.funds.FoldPending(t)
	funds := m.funds.Available.Of(t)
	perOrder := funds / float64(n)
	if perOrder < m.cfg.MinOrderSize {
		m.logger.Warnf("%s 侧资金不足: %.8f / %d 单低于最小订单量 %.8f, 放弃本批激活",
			t, funds, n, m.cfg.MinOrderSize)
		return nil
	}

	var activated []string
	for _, i := range eligible[:n] {
		o := &m.orders[i]
		o.Type = t
		o.State = models.OrderStateActive
		o.Size = perOrder
		m.funds.AllocateNew(t, perOrder)
		activated = append(activated, o.ID)
		m.logger.Infof("激活价差槽位 %s 为 %s 单: %.8f @ %.8f", o.ID, t, perOrder, o.Price)
	}
	return activated
}

// rotateOrders 在没有足够价差槽位时使用: 取消 t 方向上离市价最远的
// count 个 ACTIVE 订单, 在更靠近市价的腾空槽位上按几何递减定量重挂。
// 被价格穿越的 PARTIAL 订单先朝市价方向挪一格, 再轮换纯 ACTIVE 订单,
// 避免浪费部分成交已累积的进度。
func (m *OrderManager) rotateOrders(t models.OrderType, count int) []string {
	m.moveCrossedPartials(t)

	// 离市价最远的 ACTIVE 订单是轮换候选。
	var candidates []int
	for i := range m.orders {
		o := &m.orders[i]
		if o.Type == t && o.State == models.OrderStateActive {
			candidates = append(candidates, i)
		}
	}
	sort.SliceStable(candidates, func(a, b int) bool {
		da := math.Abs(m.orders[candidates[a]].Price - m.marketPrice)
		db := math.Abs(m.orders[candidates[b]].Price - m.marketPrice)
		if da != db {
			return da > db
		}
		return m.orders[candidates[a]].ID < m.orders[candidates[b]].ID
	})
	if count > len(candidates) {
		count = len(candidates)
	}
	if count == 0 {
		m.logger.Warnf("%s 侧既无价差槽位也无可轮换订单, 本轮放弃补单", t)
		return nil
	}

	// 取消远端订单, 资金退回可分配池, 槽位腾空。
	var maxReleased float64
	for _, i := range candidates[:count] {
		o := &m.orders[i]
		m.logger.Infof("轮换: 取消远端订单 %s (%s %.8f @ %.8f)", o.ID, o.Type, o.Size, o.Price)
		if o.ExternalOrderID != "" {
			m.cancelQueue = append(m.cancelQueue, o.ExternalOrderID)
			m.funds.ReleaseChain(t, o.Size)
		}
		m.funds.Release(t, o.Size)
		if o.Size > maxReleased {
			maxReleased = o.Size
		}
		o.Type = models.OrderTypeSpread
		o.State = models.OrderStateVirtual
		o.Size = 0
		o.ExternalOrderID = ""
	}

	// 重挂槽位: 离市价最近的 count 个腾空槽位, 最近者分到最大定量。
	slots := m.spreadSlots(t)
	sort.SliceStable(slots, func(a, b int) bool {
		da := math.Abs(m.orders[slots[a]].Price - m.marketPrice)
		db := math.Abs(m.orders[slots[b]].Price - m.marketPrice)
		if da != db {
			return da < db
		}
		return m.orders[slots[a]].ID < m.orders[slots[b]].ID
	})
	if count > len(slots) {
		count = len(slots)
	}
	if count == 0 {
		return nil
	}

	// 几何递减定量: 首项取被释放订单的最大定量, 公比由网格间距导出。
	ratio := 1 - m.cfg.IncrementPercent/100
	if ratio <= 0 || ratio >= 1 {
		ratio = 0.5
	}
	sizes := make([]float64, count)
	v := maxReleased
	if v <= 0 {
		v = m.cfg.MinOrderSize
	}
	for i := range sizes {
		sizes[i] = v
		v *= ratio
	}

	allocated := m.funds.AllocateRotation(t, sizes)

	var activated []string
	for i, slotIdx := range slots[:count] {
		size := allocated[i]
		if size < m.cfg.MinOrderSize {
			// 碎量退回结余, 留待下次轮换。
			m.funds.Unallocate(t, size)
			continue
		}
		o := &m.orders[slotIdx]
		o.Type = t
		o.State = models.OrderStateActive
		o.Size = size
		activated = append(activated, o.ID)
		m.logger.Infof("轮换: 重挂 %s 为 %s 单 %.8f @ %.8f", o.ID, t, size, o.Price)
	}
	return activated
}

// moveCrossedPartials 把被价格穿越的 PARTIAL 订单朝市价方向挪进最近的
// 腾空价差槽位: 穿越的卖单（价格已低于市价）向上挪, 穿越的买单向下挪。
// 剩余量随槽位转移, 原槽位腾空交给随后的轮换填补。
func (m *OrderManager) moveCrossedPartials(t models.OrderType) {
	for i := range m.orders {
		o := &m.orders[i]
		if o.Type != t || o.State != models.OrderStatePartial {
			continue
		}
		crossed := (t == models.OrderTypeSell && o.Price < m.marketPrice) ||
			(t == models.OrderTypeBuy && o.Price > m.marketPrice)
		if !crossed {
			continue
		}

		target := m.nearestSpreadSlot(o.Price, t == models.OrderTypeSell)
		if target < 0 {
			continue
		}

		dst := &m.orders[target]
		m.logger.Infof("穿越的部分成交订单 %s (%.8f) 移入槽位 %s (%.8f)", o.ID, o.Price, dst.ID, dst.Price)
		if o.ExternalOrderID != "" {
			m.cancelQueue = append(m.cancelQueue, o.ExternalOrderID)
			m.funds.ReleaseChain(t, o.Size)
		}
		dst.Type = t
		dst.State = models.OrderStateActive
		dst.Size = o.Size
		dst.ExternalOrderID = ""

		o.Type = models.OrderTypeSpread
		o.State = models.OrderStateVirtual
		o.Size = 0
		o.ExternalOrderID = ""
	}
}

// nearestSpreadSlot 返回价格在 from 之上（up=true）或之下最近的
// VIRTUAL SPREAD 槽位索引, 不存在时返回 -1。
func (m *OrderManager) nearestSpreadSlot(from float64, up bool) int {
	best := -1
	for i := range m.orders {
		o := &m.orders[i]
		if o.Type != models.OrderTypeSpread || o.State != models.OrderStateVirtual {
			continue
		}
		if up && o.Price > from+eps {
			if best < 0 || o.Price < m.orders[best].Price {
				best = i
			}
		} else if !up && o.Price < from-eps {
			if best < 0 || o.Price > m.orders[best].Price {
				best = i
			}
		}
	}
	return best
}

// CheckSpreadCondition 计算当前盘口价差百分比, 并返回是否超出
// targetSpreadPercent + incrementPercent。一侧没有任何订单或最优买价
// 为 0 时价差按 0 处理。超限不会立刻补挂, 只是请求下一次成交时多补
// 一单——对瞬时的宽价差立刻反应只会造成订单震荡。
func (m *OrderManager) CheckSpreadCondition() (float64, bool) {
	bestAsk := m.bestPrice(models.OrderTypeSell)
	bestBid := m.bestPrice(models.OrderTypeBuy)
	if bestAsk == 0 || bestBid == 0 {
		return 0, false
	}
	spread := (bestAsk/bestBid - 1) * 100
	return spread, spread > m.cfg.TargetSpreadPercent+m.cfg.IncrementPercent
}

// bestPrice 返回一侧最优的在途价格, 没有在途订单时退回最优 VIRTUAL 价格。
func (m *OrderManager) bestPrice(t models.OrderType) float64 {
	pick := func(live bool) float64 {
		var best float64
		for i := range m.orders {
			o := &m.orders[i]
			if o.Type != t {
				continue
			}
			if live && !o.IsLive() {
				continue
			}
			if !live && o.State != models.OrderStateVirtual {
				continue
			}
			if best == 0 ||
				(t == models.OrderTypeSell && o.Price < best) ||
				(t == models.OrderTypeBuy && o.Price > best) {
				best = o.Price
			}
		}
		return best
	}
	if p := pick(true); p > 0 {
		return p
	}
	return pick(false)
}

// --- 轮询器消费的辅助接口 ---

// Orders 返回订单集合的副本。
func (m *OrderManager) Orders() []models.GridOrder {
	out := make([]models.GridOrder, len(m.orders))
	copy(out, m.orders)
	return out
}

// Ledger 返回资金账本（只应只读访问; 修改属于生命周期操作）。
func (m *OrderManager) Ledger() *ledger.FundLedger {
	return m.funds
}

// MarketPrice 返回初始化时解析到的市价。
func (m *OrderManager) MarketPrice() float64 {
	return m.marketPrice
}

// SetMarketPrice 更新管理器观察到的市价（由轮询器从行情流馈入）。
func (m *OrderManager) SetMarketPrice(price float64) {
	if price > 0 {
		m.marketPrice = price
	}
}

// PendingPlacements 返回已激活但尚未挂上链的订单（ExternalOrderID 为空）。
func (m *OrderManager) PendingPlacements() []models.GridOrder {
	var out []models.GridOrder
	for i := range m.orders {
		if m.orders[i].IsLive() && m.orders[i].ExternalOrderID == "" {
			out = append(out, m.orders[i])
		}
	}
	return out
}

// ConfirmPlaced 记录一笔订单已成功挂上链。
func (m *OrderManager) ConfirmPlaced(orderID, externalID string) error {
	o := m.findOrder(orderID)
	if o == nil {
		return fmt.Errorf("unknown grid order %q", orderID)
	}
	o.ExternalOrderID = externalID
	m.funds.ConfirmChain(o.Type, o.Size)
	return nil
}

// DrainCancelQueue 取出并清空待取消的链上订单句柄。
func (m *OrderManager) DrainCancelQueue() []string {
	out := m.cancelQueue
	m.cancelQueue = nil
	return out
}

func (m *OrderManager) liveOrders() []models.GridOrder {
	var out []models.GridOrder
	for i := range m.orders {
		if m.orders[i].IsLive() {
			out = append(out, m.orders[i])
		}
	}
	return out
}

func (m *OrderManager) findOrder(id string) *models.GridOrder {
	for i := range m.orders {
		if m.orders[i].ID == id {
			return &m.orders[i]
		}
	}
	return nil
}
