package models

import (
	"fmt"

	"dexgrid-bot-go/internal/numeric"
)

// OrderType 表示网格槽位当前扮演的角色。
// SPREAD 表示该槽位暂时退出交易（位于盘口价差带内，或刚被成交腾空）。
type OrderType string

const (
	OrderTypeBuy    OrderType = "BUY"
	OrderTypeSell   OrderType = "SELL"
	OrderTypeSpread OrderType = "SPREAD"
)

// OrderState 表示网格槽位的生命周期状态。
// 状态机: VIRTUAL → ACTIVE → PARTIAL/FILLED → (转为SPREAD后回到) VIRTUAL。
type OrderState string

const (
	OrderStateVirtual OrderState = "VIRTUAL"
	OrderStateActive  OrderState = "ACTIVE"
	OrderStatePartial OrderState = "PARTIAL"
	OrderStateFilled  OrderState = "FILLED"
)

// GridOrder 代表网格中的一个价格槽位。
// 槽位在网格构建时一次性创建，数量在管理器的生命周期内固定不变；
// 之后只会修改 Type/State/Size/ExternalOrderID，绝不删除。
// ID 由槽位序号和初始方向派生（如 "sell-17"），即使 Type 之后变为 SPREAD 也保持不变。
type GridOrder struct {
	ID              string     `json:"id"`
	Type            OrderType  `json:"type"`
	State           OrderState `json:"state"`
	Price           float64    `json:"price"`             // 报价资产/基础资产
	Size            float64    `json:"size"`              // 单位为该方向占用的资产: SELL为基础资产, BUY为报价资产
	ExternalOrderID string     `json:"external_order_id"` // 链上订单句柄, 仅在挂单成功后非空
}

// IsLive 返回该槽位是否有在途挂单（ACTIVE 或 PARTIAL）。
func (o *GridOrder) IsLive() bool {
	return o.State == OrderStateActive || o.State == OrderStatePartial
}

// FillEvent 描述一次成交（完全或部分），是 ProcessFilledOrders 的输入。
type FillEvent struct {
	OrderID  string  `json:"order_id"`
	Quantity float64 `json:"quantity"` // 成交数量, 单位与槽位 Size 相同
	Price    float64 `json:"price"`    // 成交价格, 0 表示使用槽位价格
}

// FillCounts 按方向统计一轮中完全成交的订单数。
type FillCounts struct {
	Buy  int
	Sell int
}

// ProcessResult 是 ProcessFilledOrders 的结构化返回值。
// 即使没有任何有效成交也会返回该结构。
type ProcessResult struct {
	Applied     int        // 实际入账的成交数
	Skipped     int        // 因记录无效而跳过的成交数
	Filled      FillCounts // 完全成交的订单计数
	Activated   []string   // 本轮新激活(或轮换补挂)的槽位ID
	OutOfSpread bool       // 处理后盘口价差是否超限
}

// AssetInfo 是链上资产的元数据。Precision 表示链上整数金额的小数位数。
type AssetInfo struct {
	ID        string `json:"id"`
	Symbol    string `json:"symbol"`
	Precision int    `json:"precision"`
}

// Config 结构体定义了机器人的所有配置参数（JSON 配置文件的直接映射）。
// 字符串形式的百分比/相对价格在 config.Validate 中一次性解析为类型化的 ManagerConfig。
type Config struct {
	DBPath              string    `json:"db_path"`             // BadgerDB 快照目录
	NodeWSURL           string    `json:"node_ws_url"`         // DEX 节点 WebSocket 地址
	RefFeedURL          string    `json:"ref_feed_url"`        // 外部行情参考源地址, 空用默认
	Account             string    `json:"account"`             // 交易账户
	BaseSymbol          string    `json:"base_symbol"`         // 基础资产, 如 "BTS"
	QuoteSymbol         string    `json:"quote_symbol"`        // 报价资产, 如 "USDT"
	MarketPrice         string    `json:"market_price"`        // 数字 | "pool" | "market" | 空(等同 pool)
	MinPrice            string    `json:"min_price"`           // 数字或相对市价的百分比, 如 "-50%"
	MaxPrice            string    `json:"max_price"`           // 数字或相对市价的百分比, 如 "+100%"
	IncrementPercent    float64   `json:"increment_percent"`   // 相邻网格线的几何间距
	TargetSpreadPercent float64   `json:"target_spread_percent"`
	BuyFunds            string    `json:"buy_funds"` // 数字或占总余额的百分比, 如 "80%"
	SellFunds           string    `json:"sell_funds"`
	ActiveBuyOrders     int       `json:"active_buy_orders"`  // 买侧目标挂单数
	ActiveSellOrders    int       `json:"active_sell_orders"` // 卖侧目标挂单数
	MinOrderSize        float64   `json:"min_order_size"`
	FeeReserve          float64   `json:"fee_reserve"`            // 预留的链上手续费负债
	BuyWeights          []float64 `json:"buy_weights,omitempty"`  // 买侧权重分布, 空为均匀
	SellWeights         []float64 `json:"sell_weights,omitempty"` // 卖侧权重分布, 空为均匀
	PollIntervalSec     int       `json:"poll_interval_sec"`
	StatusIntervalSec   int       `json:"status_interval_sec"`
	LogConfig           LogConfig `json:"log"`
}

// LogConfig 定义了日志相关的配置
type LogConfig struct {
	Level      string `json:"level"`       // 日志级别, e.g., "debug", "info", "warn", "error"
	Output     string `json:"output"`      // 输出模式: "console", "file", "both"
	File       string `json:"file"`        // 日志文件路径
	MaxSize    int    `json:"max_size"`    // 单个日志文件的最大大小 (MB)
	MaxBackups int    `json:"max_backups"` // 保留的旧日志文件最大数量
	MaxAge     int    `json:"max_age"`     // 旧日志文件的最大保留天数
	Compress   bool   `json:"compress"`    // 是否压缩旧日志文件
}

// MarketPriceMode 表示市价的来源。
type MarketPriceMode string

const (
	PriceModeFixed  MarketPriceMode = "fixed"  // 配置中给出的固定数字
	PriceModePool   MarketPriceMode = "pool"   // 由链上流动性池/订单簿派生
	PriceModeMarket MarketPriceMode = "market" // 由外部行情参考源派生
)

// ManagerConfig 是管理器消费的、经过一次性校验和解析的静态交易参数。
// 所有字符串形式的配置值在这里已经是类型化的变体, 不会在使用时重复解析。
type ManagerConfig struct {
	Account             string
	BaseSymbol          string
	QuoteSymbol         string
	PriceMode           MarketPriceMode
	FixedMarketPrice    float64 // 仅当 PriceMode == PriceModeFixed 时有效
	MinPrice            numeric.RelPrice
	MaxPrice            numeric.RelPrice
	IncrementPercent    float64
	TargetSpreadPercent float64
	BuyFunds            numeric.Allotment
	SellFunds           numeric.Allotment
	ActiveBuyOrders     int
	ActiveSellOrders    int
	MinOrderSize        float64
	FeeReserve          float64
	BuyWeights          []float64 // 空为均匀分布
	SellWeights         []float64
}

// Symbol 返回 "BASEQUOTE" 形式的交易对名称, 用于日志和外部行情源。
func (c *ManagerConfig) Symbol() string {
	return c.BaseSymbol + c.QuoteSymbol
}

// Error 定义了 DEX 节点 API 返回的错误信息结构
type Error struct {
	Code int    `json:"code"`
	Msg  string `json:"message"`
}

// Error 方法使得节点错误实现了 error 接口
func (e *Error) Error() string {
	return fmt.Sprintf("node API error: code=%d, msg=%s", e.Code, e.Msg)
}
