package dex

import "dexgrid-bot-go/internal/models"

// Dex 定义了机器人与链上交易协作者之间的全部交互。
// 这是一条窄边界: 核心的网格决策逻辑只消费其中的查询方法,
// 下单/撤单由外层轮询器依据管理器的决策调用。
type Dex interface {
	// ResolveMarketPrice 按模式（池价或外部行情）派生交易对的当前市价。
	ResolveMarketPrice(base, quote string, mode models.MarketPriceMode) (float64, error)

	// GetAccountBalances 返回账户的空闲余额, 按资产符号索引,
	// 金额已按资产精度折算为浮点数量。
	GetAccountBalances(account string) (map[string]float64, error)

	// LookupAssetMetadata 按符号查询链上资产的ID与精度。
	LookupAssetMetadata(symbol string) (*models.AssetInfo, error)

	// GetOpenOrders 返回账户当前的链上挂单, 按订单句柄索引,
	// 值为剩余量（以订单占用的资产计）。
	GetOpenOrders(account string) (map[string]float64, error)

	// PlaceOrder 挂一笔限价单, 返回链上订单句柄。
	PlaceOrder(account string, t models.OrderType, base, quote string, size, price float64, tag string) (string, error)

	// CancelOrder 按句柄撤单。
	CancelOrder(account, externalID string) error

	Close() error
}
