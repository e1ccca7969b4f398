package numeric

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// ParsePercent 解析一个百分比字符串, 如 "12.5%" 返回 12.5。
// 没有 "%" 后缀的纯数字也被接受, 按原值返回。
func ParsePercent(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty percent value")
	}
	trimmed := strings.TrimSuffix(s, "%")
	v, err := strconv.ParseFloat(strings.TrimSpace(trimmed), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid percent value %q: %w", s, err)
	}
	return v, nil
}

// RelPrice 是一个价格边界的类型化变体:
// 要么是绝对价格, 要么是相对市价的百分比偏移（"-50%" 表示市价的一半）。
// 配置校验时解析一次, 之后仅通过 Resolve 求值, 不再重复解析字符串。
type RelPrice struct {
	Relative bool
	Value    float64 // Relative 时为百分比偏移, 否则为绝对价格
}

// ParseRelPrice 解析 "123.4" 或 "+25%"/"-50%" 形式的价格边界。
func ParseRelPrice(s string) (RelPrice, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return RelPrice{}, fmt.Errorf("empty price bound")
	}
	if strings.HasSuffix(s, "%") {
		v, err := ParsePercent(s)
		if err != nil {
			return RelPrice{}, err
		}
		return RelPrice{Relative: true, Value: v}, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return RelPrice{}, fmt.Errorf("invalid price bound %q: %w", s, err)
	}
	if v <= 0 {
		return RelPrice{}, fmt.Errorf("price bound must be positive, got %v", v)
	}
	return RelPrice{Value: v}, nil
}

// Resolve 根据当前市价求出绝对价格。
func (p RelPrice) Resolve(marketPrice float64) float64 {
	if p.Relative {
		return marketPrice * (1 + p.Value/100)
	}
	return p.Value
}

// Allotment 是一侧资金配额的类型化变体:
// 绝对数量, 或占链上总余额的百分比。
type Allotment struct {
	Percent bool
	Value   float64
}

// ParseAllotment 解析 "1000" 或 "80%" 形式的资金配额。
func ParseAllotment(s string) (Allotment, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Allotment{}, fmt.Errorf("empty fund allotment")
	}
	if strings.HasSuffix(s, "%") {
		v, err := ParsePercent(s)
		if err != nil {
			return Allotment{}, err
		}
		if v < 0 || v > 100 {
			return Allotment{}, fmt.Errorf("fund allotment percent out of range: %v", v)
		}
		return Allotment{Percent: true, Value: v}, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return Allotment{}, fmt.Errorf("invalid fund allotment %q: %w", s, err)
	}
	if v < 0 {
		return Allotment{}, fmt.Errorf("fund allotment must not be negative, got %v", v)
	}
	return Allotment{Value: v}, nil
}

// Resolve 根据链上总余额求出绝对配额。
func (a Allotment) Resolve(totalBalance float64) float64 {
	if a.Percent {
		return totalBalance * a.Value / 100
	}
	return a.Value
}

// RawToFloat 将链上的定点整数金额按资产精度转换为浮点数量。
// 使用 decimal 避免大整数在 float64 幂运算下的精度损失。
func RawToFloat(raw int64, precision int) float64 {
	f, _ := decimal.New(raw, -int32(precision)).Float64()
	return f
}

// FloatToRaw 将浮点数量转换为链上的定点整数金额。向下取整, 绝不放大金额。
func FloatToRaw(v float64, precision int) int64 {
	return decimal.NewFromFloat(v).Shift(int32(precision)).Floor().IntPart()
}
