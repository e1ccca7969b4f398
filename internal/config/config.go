package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"dexgrid-bot-go/internal/models"
	"dexgrid-bot-go/internal/numeric"
)

// LoadConfig 从指定路径加载JSON配置文件并解析到Config结构体中
func LoadConfig(path string) (*models.Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	decoder := json.NewDecoder(file)
	config := &models.Config{}
	if err := decoder.Decode(config); err != nil {
		return nil, err
	}

	applyDefaults(config)
	return config, nil
}

// applyDefaults 填充未设置的可选项, 每个被识别的选项有且只有一个文档化默认值。
func applyDefaults(cfg *models.Config) {
	if cfg.DBPath == "" {
		cfg.DBPath = "grid_db"
	}
	if cfg.PollIntervalSec <= 0 {
		cfg.PollIntervalSec = 5
	}
	if cfg.StatusIntervalSec <= 0 {
		cfg.StatusIntervalSec = 60
	}
	if cfg.LogConfig.Level == "" {
		cfg.LogConfig.Level = "info"
	}
	if cfg.LogConfig.Output == "" {
		cfg.LogConfig.Output = "console"
	}
}

// validateWeights 校验权重分布: 负权重会让定量计算产生负的订单量。
func validateWeights(name string, weights []float64) error {
	for i, w := range weights {
		if w < 0 {
			return fmt.Errorf("%s[%d] must not be negative, got %v", name, i, w)
		}
	}
	return nil
}

// Validate 一次性校验原始配置并解析为管理器消费的类型化 ManagerConfig。
// 字符串形式的百分比和相对价格在这里解析为类型化变体, 之后不再重复解析。
func Validate(cfg *models.Config) (*models.ManagerConfig, error) {
	if cfg.Account == "" {
		return nil, fmt.Errorf("account is required")
	}
	if cfg.BaseSymbol == "" || cfg.QuoteSymbol == "" {
		return nil, fmt.Errorf("base_symbol and quote_symbol are required")
	}
	if cfg.IncrementPercent <= 0 {
		return nil, fmt.Errorf("increment_percent must be positive, got %v", cfg.IncrementPercent)
	}
	if cfg.TargetSpreadPercent < 0 {
		return nil, fmt.Errorf("target_spread_percent must not be negative, got %v", cfg.TargetSpreadPercent)
	}
	if cfg.ActiveBuyOrders < 0 || cfg.ActiveSellOrders < 0 {
		return nil, fmt.Errorf("active order counts must not be negative")
	}
	if cfg.MinOrderSize < 0 {
		return nil, fmt.Errorf("min_order_size must not be negative, got %v", cfg.MinOrderSize)
	}
	if err := validateWeights("buy_weights", cfg.BuyWeights); err != nil {
		return nil, err
	}
	if err := validateWeights("sell_weights", cfg.SellWeights); err != nil {
		return nil, err
	}

	mc := &models.ManagerConfig{
		Account:             cfg.Account,
		BaseSymbol:          cfg.BaseSymbol,
		QuoteSymbol:         cfg.QuoteSymbol,
		IncrementPercent:    cfg.IncrementPercent,
		TargetSpreadPercent: cfg.TargetSpreadPercent,
		ActiveBuyOrders:     cfg.ActiveBuyOrders,
		ActiveSellOrders:    cfg.ActiveSellOrders,
		MinOrderSize:        cfg.MinOrderSize,
		FeeReserve:          cfg.FeeReserve,
		BuyWeights:          cfg.BuyWeights,
		SellWeights:         cfg.SellWeights,
	}

	// 市价来源: 数字 | "pool" | "market" | 空(等同 pool)。
	switch cfg.MarketPrice {
	case "", "pool":
		mc.PriceMode = models.PriceModePool
	case "market":
		mc.PriceMode = models.PriceModeMarket
	default:
		v, err := strconv.ParseFloat(cfg.MarketPrice, 64)
		if err != nil || v <= 0 {
			return nil, fmt.Errorf("market_price must be a positive number, \"pool\" or \"market\", got %q", cfg.MarketPrice)
		}
		mc.PriceMode = models.PriceModeFixed
		mc.FixedMarketPrice = v
	}

	var err error
	if mc.MinPrice, err = numeric.ParseRelPrice(cfg.MinPrice); err != nil {
		return nil, fmt.Errorf("min_price: %w", err)
	}
	if mc.MaxPrice, err = numeric.ParseRelPrice(cfg.MaxPrice); err != nil {
		return nil, fmt.Errorf("max_price: %w", err)
	}
	if mc.BuyFunds, err = numeric.ParseAllotment(cfg.BuyFunds); err != nil {
		return nil, fmt.Errorf("buy_funds: %w", err)
	}
	if mc.SellFunds, err = numeric.ParseAllotment(cfg.SellFunds); err != nil {
		return nil, fmt.Errorf("sell_funds: %w", err)
	}

	return mc, nil
}
