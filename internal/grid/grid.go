package grid

import (
	"fmt"
	"math"

	"dexgrid-bot-go/internal/models"
)

// eps 是资金边界比较使用的浮点容差。
const eps = 1e-9

// SpreadCount 报告每个名义方向上被价差带吸收的网格线数量。
type SpreadCount struct {
	Buy  int
	Sell int
}

// CreateOrderGrid 从配置的价格区间构建静态网格。
// 网格线从 minPrice 开始, 按 incrementPercent 几何递增直到 maxPrice;
// 低于市价的归为 BUY, 高于市价的归为 SELL, 距市价不超过
// targetSpreadPercent 的归为 SPREAD。
// 对相同的输入, 网格线价格和分类是逐位可复现的（无任何随机性）。
func CreateOrderGrid(cfg *models.ManagerConfig, marketPrice, minPrice, maxPrice float64) ([]models.GridOrder, SpreadCount) {
	step := 1 + cfg.IncrementPercent/100
	orders := make([]models.GridOrder, 0, 64)
	var spread SpreadCount

	idx := 0
	for price := minPrice; price <= maxPrice*(1+eps); price *= step {
		// 名义方向决定槽位ID, 价差带只改变 Type, 不改变ID。
		nominal := models.OrderTypeSell
		if price < marketPrice {
			nominal = models.OrderTypeBuy
		}

		typ := nominal
		if math.Abs(price/marketPrice-1)*100 <= cfg.TargetSpreadPercent+eps {
			typ = models.OrderTypeSpread
			if nominal == models.OrderTypeBuy {
				spread.Buy++
			} else {
				spread.Sell++
			}
		}

		orders = append(orders, models.GridOrder{
			ID:    fmt.Sprintf("%s-%d", sideTag(nominal), idx),
			Type:  typ,
			State: models.OrderStateVirtual,
			Price: price,
		})
		idx++
	}

	return orders, spread
}

func sideTag(t models.OrderType) string {
	if t == models.OrderTypeBuy {
		return "buy"
	}
	return "sell"
}

// CalculateOrderSizes 按权重分布把 sellFunds 分配给 SELL 网格线,
// buyFunds 分配给 BUY 网格线。SPREAD 网格线的 Size 恒为 0。
// 保证: 每侧 Size 之和不超过传入的资金量（容差 1e-9）。
func CalculateOrderSizes(orders []models.GridOrder, cfg *models.ManagerConfig, sellFunds, buyFunds float64) []models.GridOrder {
	sized := make([]models.GridOrder, len(orders))
	copy(sized, orders)

	distribute(sized, models.OrderTypeSell, sellFunds, cfg.SellWeights)
	distribute(sized, models.OrderTypeBuy, buyFunds, cfg.BuyWeights)

	for i := range sized {
		if sized[i].Type == models.OrderTypeSpread {
			sized[i].Size = 0
		}
	}
	return sized
}

// distribute 把 funds 按权重写入 orders 中类型为 t 的槽位。
// 权重长度与槽位数不匹配时退回均匀分布。
func distribute(orders []models.GridOrder, t models.OrderType, funds float64, weights []float64) {
	var idxs []int
	for i := range orders {
		if orders[i].Type == t {
			idxs = append(idxs, i)
		}
	}
	if len(idxs) == 0 || funds <= 0 {
		return
	}

	w := weights
	if len(w) != len(idxs) {
		w = nil
	}
	var totalW float64
	if w != nil {
		// 负权重会产生负的订单量, 整个分布弃用。
		for _, v := range w {
			if v < 0 {
				w = nil
				break
			}
			totalW += v
		}
	}
	if w != nil && totalW <= 0 {
		w = nil
	}
	if w == nil {
		totalW = float64(len(idxs))
	}

	var sum float64
	for k, i := range idxs {
		wi := 1.0
		if w != nil {
			wi = w[k]
		}
		orders[i].Size = funds * wi / totalW
		sum += orders[i].Size
	}

	// 浮点累加可能使总量越过资金上限, 按比例压回。
	if sum > funds+eps {
		scale := funds / sum
		for _, i := range idxs {
			orders[i].Size *= scale
		}
	}
}
