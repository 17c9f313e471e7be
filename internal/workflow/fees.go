package workflow

import "github.com/shopspring/decimal"

// Prices 活动价格表（每人）
type Prices struct {
	Game   decimal.Decimal
	Social decimal.Decimal
}

// DefaultPrices 默认价格：比赛 3.00，聚餐 5.00
func DefaultPrices() Prices {
	return Prices{
		Game:   decimal.RequireFromString("3.00"),
		Social: decimal.RequireFromString("5.00"),
	}
}

// MaxAmount 单个金额上限，与 NUMERIC(8,2) 列一致
var MaxAmount = decimal.RequireFromString("999999.99")

// WithinMaxAmount 捐款与各项总额均不超过 MaxAmount
func (t Totals) WithinMaxAmount() bool {
	for _, d := range []decimal.Decimal{t.Game, t.Social, t.Minimum, t.Donation, t.Final} {
		if d.GreaterThan(MaxAmount) {
			return false
		}
	}
	return true
}

// Totals 费用计算结果，全部保留两位小数
type Totals struct {
	Game     decimal.Decimal `json:"total_game"`
	Social   decimal.Decimal `json:"total_social"`
	Minimum  decimal.Decimal `json:"total_minimum"`
	Donation decimal.Decimal `json:"donation"`
	Final    decimal.Decimal `json:"total_final"`
}

// Round2 四舍五入（half-up）到两位小数
// 仅用于非负金额，此时 decimal.Round 的 half-away-from-zero 与 half-up 一致
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// NonNegative max(0, d)，保留两位小数
func NonNegative(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return Round2(d)
}

// Calculate 计算费用：
//
//	Game    = gameCount × price.Game
//	Social  = socialCount × price.Social
//	Minimum = Game + Social
//	Final   = Minimum + max(0, donation)
//
// 负捐款不报错，按 0 计入。typ 目前不影响公式，计数规则由 Normalized.Counts 决定。
func Calculate(_ RegistrationType, gameCount, socialCount int, donation decimal.Decimal, prices Prices) Totals {
	if gameCount < 0 {
		gameCount = 0
	}
	if socialCount < 0 {
		socialCount = 0
	}

	game := Round2(prices.Game.Mul(decimal.NewFromInt(int64(gameCount))))
	social := Round2(prices.Social.Mul(decimal.NewFromInt(int64(socialCount))))
	minimum := Round2(game.Add(social))
	don := NonNegative(donation)

	return Totals{
		Game:     game,
		Social:   social,
		Minimum:  minimum,
		Donation: don,
		Final:    Round2(minimum.Add(don)),
	}
}

// CalculateFor 基于规范化报名计算费用
func CalculateFor(n *Normalized, prices Prices) Totals {
	game, social := n.Counts()
	return Calculate(n.Type, game, social, n.Donation, prices)
}
