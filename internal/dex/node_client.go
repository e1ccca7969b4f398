package dex

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"dexgrid-bot-go/internal/models"
	"dexgrid-bot-go/internal/numeric"
)

const (
	callTimeout = 10 * time.Second
	pongWait    = 60 * time.Second
)

// NodeClient 通过 WebSocket JSON-RPC 与 DEX 钱包节点交互, 实现了 Dex 接口。
// 交易签名由钱包节点代为完成, 本客户端不持有任何私钥。
// 所有调用按请求ID串行匹配响应; 连接断开后在下一次调用时自动重连。
type NodeClient struct {
	wsURL   string
	refFeed *RefPriceFeed
	logger  *zap.SugaredLogger

	mu     sync.Mutex
	conn   *websocket.Conn
	nextID uint64

	assetsBySymbol map[string]*models.AssetInfo
	assetsByID     map[string]*models.AssetInfo
}

// NewNodeClient 创建节点客户端并建立首个连接。
func NewNodeClient(wsURL string, refFeed *RefPriceFeed, logger *zap.SugaredLogger) (*NodeClient, error) {
	c := &NodeClient{
		wsURL:          wsURL,
		refFeed:        refFeed,
		logger:         logger,
		assetsBySymbol: make(map[string]*models.AssetInfo),
		assetsByID:     make(map[string]*models.AssetInfo),
	}
	if err := c.connect(); err != nil {
		return nil, fmt.Errorf("无法连接到节点 %s: %w", wsURL, err)
	}
	return c, nil
}

func (c *NodeClient) connect() error {
	conn, _, err := websocket.DefaultDialer.Dial(c.wsURL, nil)
	if err != nil {
		return err
	}
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	c.conn = conn
	c.logger.Infof("已连接到 DEX 节点 %s", c.wsURL)
	return nil
}

type rpcRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      uint64        `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
}

type rpcResponse struct {
	ID     uint64          `json:"id"`
	Result json.RawMessage `json:"result"`
	Error  *models.Error   `json:"error"`
}

// call 发起一次同步的 JSON-RPC 调用并把结果解码进 result。
// 连接损坏时重连一次后重试; 仍失败则把错误交给上层。
func (c *NodeClient) call(method string, params []interface{}, result interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	err := c.callLocked(method, params, result)
	if err == nil {
		return nil
	}
	if _, isNode := err.(*models.Error); isNode {
		// 节点明确拒绝, 重连无济于事。
		return err
	}

	c.logger.Warnf("RPC 调用 %s 失败, 尝试重连: %v", method, err)
	if c.conn != nil {
		c.conn.Close()
	}
	if err := c.connect(); err != nil {
		return fmt.Errorf("节点重连失败: %w", err)
	}
	return c.callLocked(method, params, result)
}

func (c *NodeClient) callLocked(method string, params []interface{}, result interface{}) error {
	c.nextID++
	req := rpcRequest{JSONRPC: "2.0", ID: c.nextID, Method: method, Params: params}

	c.conn.SetWriteDeadline(time.Now().Add(callTimeout))
	if err := c.conn.WriteJSON(req); err != nil {
		return fmt.Errorf("发送 RPC 请求失败: %w", err)
	}

	deadline := time.Now().Add(callTimeout)
	for {
		c.conn.SetReadDeadline(deadline)
		var resp rpcResponse
		if err := c.conn.ReadJSON(&resp); err != nil {
			return fmt.Errorf("读取 RPC 响应失败: %w", err)
		}
		if resp.ID != req.ID {
			// 订阅推送等无关消息, 丢弃继续等待。
			continue
		}
		if resp.Error != nil {
			return resp.Error
		}
		if result == nil {
			return nil
		}
		return json.Unmarshal(resp.Result, result)
	}
}

// --- Dex 接口实现 ---

// ResolveMarketPrice 派生市价: pool 模式取链上流动性池的即时价,
// market 模式取外部行情源的最新成交价。
func (c *NodeClient) ResolveMarketPrice(base, quote string, mode models.MarketPriceMode) (float64, error) {
	if mode == models.PriceModeMarket {
		if c.refFeed == nil {
			return 0, fmt.Errorf("market price mode requires a reference feed")
		}
		return c.refFeed.LastPrice(base + quote)
	}

	var result struct {
		Price string `json:"price"`
	}
	if err := c.call("get_pool_price", []interface{}{base, quote}, &result); err != nil {
		return 0, fmt.Errorf("查询池价失败: %w", err)
	}
	var price float64
	if _, err := fmt.Sscanf(result.Price, "%f", &price); err != nil {
		return 0, fmt.Errorf("无法解析池价 %q: %w", result.Price, err)
	}
	return price, nil
}

// GetAccountBalances 查询账户空闲余额并按资产精度折算。
func (c *NodeClient) GetAccountBalances(account string) (map[string]float64, error) {
	var raw []struct {
		AssetID string      `json:"asset_id"`
		Amount  json.Number `json:"amount"`
	}
	if err := c.call("get_account_balances", []interface{}{account}, &raw); err != nil {
		return nil, fmt.Errorf("查询账户余额失败: %w", err)
	}

	balances := make(map[string]float64, len(raw))
	for _, b := range raw {
		asset, err := c.assetByID(b.AssetID)
		if err != nil {
			c.logger.Warnf("余额中包含未知资产 %s, 已忽略: %v", b.AssetID, err)
			continue
		}
		amount, err := b.Amount.Int64()
		if err != nil {
			c.logger.Warnf("无法解析资产 %s 的余额 %s, 已忽略", asset.Symbol, b.Amount)
			continue
		}
		balances[asset.Symbol] = numeric.RawToFloat(amount, asset.Precision)
	}
	return balances, nil
}

// LookupAssetMetadata 按符号查询资产元数据, 结果缓存在客户端内。
func (c *NodeClient) LookupAssetMetadata(symbol string) (*models.AssetInfo, error) {
	if a, ok := c.cachedBySymbol(symbol); ok {
		return a, nil
	}

	var assets []*models.AssetInfo
	if err := c.call("lookup_asset_symbols", []interface{}{[]string{symbol}}, &assets); err != nil {
		return nil, fmt.Errorf("查询资产 %s 失败: %w", symbol, err)
	}
	if len(assets) == 0 || assets[0] == nil {
		return nil, fmt.Errorf("链上不存在资产 %s", symbol)
	}
	c.cache(assets[0])
	return assets[0], nil
}

// GetOpenOrders 查询账户链上挂单, 剩余量按订单占用资产的精度折算。
func (c *NodeClient) GetOpenOrders(account string) (map[string]float64, error) {
	var raw []struct {
		ID          string      `json:"id"`
		SellAssetID string      `json:"sell_asset_id"`
		ForSale     json.Number `json:"for_sale"`
	}
	if err := c.call("get_open_orders", []interface{}{account}, &raw); err != nil {
		return nil, fmt.Errorf("查询链上挂单失败: %w", err)
	}

	open := make(map[string]float64, len(raw))
	for _, o := range raw {
		asset, err := c.assetByID(o.SellAssetID)
		if err != nil {
			c.logger.Warnf("挂单 %s 引用未知资产 %s, 已忽略", o.ID, o.SellAssetID)
			continue
		}
		remaining, err := o.ForSale.Int64()
		if err != nil {
			c.logger.Warnf("无法解析挂单 %s 的剩余量 %s, 已忽略", o.ID, o.ForSale)
			continue
		}
		open[o.ID] = numeric.RawToFloat(remaining, asset.Precision)
	}
	return open, nil
}

// PlaceOrder 挂一笔限价单。size 以订单占用的资产计:
// SELL 占用基础资产, BUY 占用报价资产。
func (c *NodeClient) PlaceOrder(account string, t models.OrderType, base, quote string, size, price float64, tag string) (string, error) {
	sellSymbol := base
	if t == models.OrderTypeBuy {
		sellSymbol = quote
	}
	asset, err := c.LookupAssetMetadata(sellSymbol)
	if err != nil {
		return "", err
	}
	rawAmount := numeric.FloatToRaw(size, asset.Precision)
	if rawAmount <= 0 {
		return "", fmt.Errorf("订单量 %.8f 折算后为零, 拒绝挂单", size)
	}

	var result struct {
		OrderID string `json:"order_id"`
	}
	params := []interface{}{account, string(t), base, quote, json.Number(fmt.Sprintf("%d", rawAmount)), price, tag}
	if err := c.call("create_limit_order", params, &result); err != nil {
		return "", fmt.Errorf("挂单失败 (%s %.8f @ %.8f): %w", t, size, price, err)
	}
	return result.OrderID, nil
}

// CancelOrder 按句柄撤单。句柄已不存在视为成功（订单可能刚刚成交）。
func (c *NodeClient) CancelOrder(account, externalID string) error {
	err := c.call("cancel_limit_order", []interface{}{account, externalID}, nil)
	if nodeErr, ok := err.(*models.Error); ok && nodeErr.Code == -404 {
		c.logger.Infof("撤单 %s: 订单已不在链上, 视为成功", externalID)
		return nil
	}
	return err
}

// Close 关闭到节点的连接。
func (c *NodeClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil
	}
	c.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	return c.conn.Close()
}

func (c *NodeClient) cachedBySymbol(symbol string) (*models.AssetInfo, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	a, ok := c.assetsBySymbol[symbol]
	return a, ok
}

func (c *NodeClient) cache(a *models.AssetInfo) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.assetsBySymbol[a.Symbol] = a
	c.assetsByID[a.ID] = a
}

// assetByID 按链上ID取资产元数据, 缓存未命中时向节点查询。
func (c *NodeClient) assetByID(id string) (*models.AssetInfo, error) {
	c.mu.Lock()
	if a, ok := c.assetsByID[id]; ok {
		c.mu.Unlock()
		return a, nil
	}
	c.mu.Unlock()

	var assets []*models.AssetInfo
	if err := c.call("get_assets", []interface{}{[]string{id}}, &assets); err != nil {
		return nil, err
	}
	if len(assets) == 0 || assets[0] == nil {
		return nil, fmt.Errorf("unknown asset id %s", id)
	}
	c.cache(assets[0])
	return assets[0], nil
}
