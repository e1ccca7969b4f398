package manager

import (
	"fmt"

	"dexgrid-bot-go/internal/models"
)

// LoadGrid 把一份持久化的网格快照并入管理器, 替换订单集合并按与
// Initialize 相同的记账规则重算资金账本。PendingProceeds 与 CacheFunds
// 是在途的、尚未对账的值, 显式跨重算保留——"加载即清零"的朴素实现
// 会在下一笔成交时悄悄破坏记账。
// 对同一份快照重复调用得到相同的账本状态。
func (m *OrderManager) LoadGrid(persisted []models.GridOrder) error {
	if !m.initialized {
		return fmt.Errorf("order manager must be initialized before loading a grid snapshot")
	}
	if err := validateSnapshot(persisted); err != nil {
		return fmt.Errorf("rejecting persisted grid: %w", err)
	}

	m.orders = make([]models.GridOrder, len(persisted))
	copy(m.orders, persisted)
	m.resetFunds()

	m.logger.Infof("已并入持久化网格: %d 条网格线, 在途订单 %d 个", len(m.orders), len(m.liveOrders()))
	return nil
}

// InitializeGrid 放弃快照, 保留 Initialize 构建的新网格并重算账本。
func (m *OrderManager) InitializeGrid() {
	if !m.initialized {
		return
	}
	m.resetFunds()
}

// resetFunds 重算资金账本。优先使用链上最新余额; 查询失败时记录并退回
// 已知的配额（余额获取失败不致命, 管理器继续用旧资金数据运转）。
// PendingProceeds 与 CacheFunds 由 Recompute 保证跨重算不变。
func (m *OrderManager) resetFunds() {
	freeBuy := m.freeAfterCommit(models.OrderTypeBuy, m.allotBuy)
	freeSell := m.freeAfterCommit(models.OrderTypeSell, m.allotSell)
	m.funds.Recompute(m.orders, freeBuy, freeSell)

	chainFreeBuy, chainFreeSell, err := m.fetchBalances()
	if err != nil {
		m.logger.Warnf("重算资金时获取链上余额失败, 沿用已知配额: %v", err)
		m.funds.SetChainTotals(freeBuy, freeSell)
		return
	}
	m.funds.SetChainTotals(chainFreeBuy, chainFreeSell)
}

// validateSnapshot 校验快照记录的基本形状。坏记录直接拒绝整份快照:
// 半套网格比没有网格更危险。
func validateSnapshot(orders []models.GridOrder) error {
	if len(orders) == 0 {
		return fmt.Errorf("snapshot is empty")
	}
	seen := make(map[string]struct{}, len(orders))
	for i := range orders {
		o := &orders[i]
		if o.ID == "" {
			return fmt.Errorf("record %d has no id", i)
		}
		if _, dup := seen[o.ID]; dup {
			return fmt.Errorf("duplicate order id %q", o.ID)
		}
		seen[o.ID] = struct{}{}
		if o.Price <= 0 {
			return fmt.Errorf("order %s has non-positive price %v", o.ID, o.Price)
		}
		if o.Size < 0 {
			return fmt.Errorf("order %s has negative size %v", o.ID, o.Size)
		}
		switch o.Type {
		case models.OrderTypeBuy, models.OrderTypeSell:
		case models.OrderTypeSpread:
			if o.Size != 0 {
				return fmt.Errorf("spread order %s carries size %v", o.ID, o.Size)
			}
		default:
			return fmt.Errorf("order %s has unknown type %q", o.ID, o.Type)
		}
		switch o.State {
		case models.OrderStateVirtual:
			if o.ExternalOrderID != "" {
				return fmt.Errorf("virtual order %s carries external id %q", o.ID, o.ExternalOrderID)
			}
		case models.OrderStateActive, models.OrderStatePartial, models.OrderStateFilled:
		default:
			return fmt.Errorf("order %s has unknown state %q", o.ID, o.State)
		}
	}
	return nil
}
