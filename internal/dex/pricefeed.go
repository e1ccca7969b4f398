package dex

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/adshao/go-binance/v2"
	"go.uber.org/zap"
)

// RefPriceFeed 在 market 价格模式下提供外部中心化行情源的参考市价。
// 池价在流动性稀薄时容易被单笔交易拉偏, 宽幅市场用外部参考价更稳。
type RefPriceFeed struct {
	client *binance.Client
	logger *zap.SugaredLogger
}

// NewRefPriceFeed 创建行情参考源。baseURL 为空时使用默认的生产地址。
// 只读行情接口, 不需要任何API密钥。
func NewRefPriceFeed(baseURL string, logger *zap.SugaredLogger) *RefPriceFeed {
	client := binance.NewClient("", "")
	if baseURL != "" {
		client.BaseURL = baseURL
	}
	return &RefPriceFeed{client: client, logger: logger}
}

// LastPrice 返回交易对的最新成交价。
func (f *RefPriceFeed) LastPrice(symbol string) (float64, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	prices, err := f.client.NewListPricesService().Symbol(symbol).Do(ctx)
	if err != nil {
		return 0, fmt.Errorf("查询参考行情 %s 失败: %w", symbol, err)
	}
	if len(prices) == 0 {
		return 0, fmt.Errorf("参考行情源没有交易对 %s", symbol)
	}

	price, err := strconv.ParseFloat(prices[0].Price, 64)
	if err != nil {
		return 0, fmt.Errorf("无法解析参考价 %q: %w", prices[0].Price, err)
	}
	f.logger.Debugf("参考行情 %s: %.8f", symbol, price)
	return price, nil
}
