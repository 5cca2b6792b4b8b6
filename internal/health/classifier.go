package health

import (
	"fmt"
	"strings"

	"roleinventory/internal/domain"
)

// Rule 为健康规则标识。
type Rule string

const (
	RuleInactiveScope      Rule = "inactive-scope"
	RuleHighUtilization    Rule = "high-utilization"
	RuleNoActiveLeases     Rule = "no-active-leases"
	RuleNoReservations     Rule = "no-reservations"
	RuleDynamicDNSDisabled Rule = "dynamic-dns-disabled"
)

// Rules 为固定的评估顺序。
var Rules = []Rule{
	RuleInactiveScope,
	RuleHighUtilization,
	RuleNoActiveLeases,
	RuleNoReservations,
	RuleDynamicDNSDisabled,
}

// Tier 为风险等级。
type Tier string

const (
	TierGreen  Tier = "Green"
	TierYellow Tier = "Yellow"
	TierRed    Tier = "Red"
)

// Rank 用于等级比较，未知等级为 -1。
func (t Tier) Rank() int {
	switch t {
	case TierGreen:
		return 0
	case TierYellow:
		return 1
	case TierRed:
		return 2
	}
	return -1
}

// ParseTier 大小写不敏感地解析等级名。
func ParseTier(s string) (Tier, error) {
	for _, t := range []Tier{TierGreen, TierYellow, TierRed} {
		if strings.EqualFold(strings.TrimSpace(s), string(t)) {
			return t, nil
		}
	}
	return "", fmt.Errorf("未知风险等级 %q", s)
}

// Config 为规则权重与等级阈值。零值字段使用默认值。
type Config struct {
	Weights                map[Rule]int `yaml:"weights" json:"weights"`
	HighUtilizationPercent float64      `yaml:"high_utilization_percent" json:"high_utilization_percent"`
	GreenMax               int          `yaml:"green_max" json:"green_max"`
	YellowMax              int          `yaml:"yellow_max" json:"yellow_max"`
}

// DefaultConfig 返回默认规则配置。
func DefaultConfig() Config {
	return Config{
		Weights: map[Rule]int{
			RuleInactiveScope:      3,
			RuleHighUtilization:    3,
			RuleNoActiveLeases:     2,
			RuleNoReservations:     1,
			RuleDynamicDNSDisabled: 2,
		},
		HighUtilizationPercent: 90,
		GreenMax:               3,
		YellowMax:              7,
	}
}

// WithDefaults 补齐缺省字段。
func (c Config) WithDefaults() Config {
	def := DefaultConfig()
	weights := make(map[Rule]int, len(def.Weights))
	for r, w := range def.Weights {
		weights[r] = w
	}
	for r, w := range c.Weights {
		weights[r] = w
	}
	c.Weights = weights
	if c.HighUtilizationPercent <= 0 {
		c.HighUtilizationPercent = def.HighUtilizationPercent
	}
	if c.GreenMax <= 0 {
		c.GreenMax = def.GreenMax
	}
	if c.YellowMax <= 0 {
		c.YellowMax = def.YellowMax
	}
	return c
}

// Validate 校验配置。
func (c Config) Validate() error {
	for r, w := range c.Weights {
		if !knownRule(r) {
			return fmt.Errorf("未知规则 %q", r)
		}
		if w < 0 {
			return fmt.Errorf("规则 %s 权重不能为负: %d", r, w)
		}
	}
	if c.GreenMax >= c.YellowMax {
		return fmt.Errorf("green_max(%d) 必须小于 yellow_max(%d)", c.GreenMax, c.YellowMax)
	}
	if c.HighUtilizationPercent > 100 {
		return fmt.Errorf("high_utilization_percent 不能超过 100: %v", c.HighUtilizationPercent)
	}
	return nil
}

func knownRule(r Rule) bool {
	for _, known := range Rules {
		if r == known {
			return true
		}
	}
	return false
}

// TierFor 按闭区间映射：<= GreenMax 为 Green，<= YellowMax 为 Yellow，其余为 Red。
func (c Config) TierFor(total int) Tier {
	switch {
	case total <= c.GreenMax:
		return TierGreen
	case total <= c.YellowMax:
		return TierYellow
	}
	return TierRed
}

// HealthFinding 为某条规则在某个作用域上的评估结果。
type HealthFinding struct {
	ScopeKey  string `json:"scope_key"`
	Rule      Rule   `json:"rule"`
	Weight    int    `json:"weight"`
	Triggered bool   `json:"triggered"`
	// Detail 说明输入值；输入未知时为 "unknown"。
	Detail string `json:"detail"`
}

// ScopeScore 为单个作用域的得分。
type ScopeScore struct {
	ScopeKey string `json:"scope_key"`
	Score    int    `json:"score"`
}

// RiskAssessment 汇总所有作用域的评估结果。
type RiskAssessment struct {
	Findings []HealthFinding `json:"findings"`
	Scores   []ScopeScore    `json:"scores"`
	Total    int             `json:"total"`
	Tier     Tier            `json:"tier"`
}

// Triggered 返回命中的规则。
func (r RiskAssessment) Triggered() []HealthFinding {
	var out []HealthFinding
	for _, f := range r.Findings {
		if f.Triggered {
			out = append(out, f)
		}
	}
	return out
}

// Assess 对每个作用域独立评估全部规则并累加权重。纯函数，无 I/O。
// 输入未知（统计缺失、地址段非法、集合采集失败）的规则不触发。
func Assess(cfg Config, scopes []domain.ScopeSummary) RiskAssessment {
	cfg = cfg.WithDefaults()
	res := RiskAssessment{}
	for _, sum := range scopes {
		key := sum.Scope.Key()
		score := 0
		for _, rule := range Rules {
			triggered, detail := evaluate(cfg, rule, sum)
			w := cfg.Weights[rule]
			res.Findings = append(res.Findings, HealthFinding{
				ScopeKey:  key,
				Rule:      rule,
				Weight:    w,
				Triggered: triggered,
				Detail:    detail,
			})
			if triggered {
				score += w
			}
		}
		res.Scores = append(res.Scores, ScopeScore{ScopeKey: key, Score: score})
		res.Total += score
	}
	res.Tier = cfg.TierFor(res.Total)
	return res
}

func evaluate(cfg Config, rule Rule, sum domain.ScopeSummary) (bool, string) {
	sc := sum.Scope
	switch rule {
	case RuleInactiveScope:
		return !sc.IsActive(), string(sc.State)
	case RuleHighUtilization:
		u := sc.Utilization()
		if !u.Known {
			return false, u.String()
		}
		return u.Percent > cfg.HighUtilizationPercent, u.String()
	case RuleNoActiveLeases:
		if !sum.ActiveLeases.Known {
			return false, sum.ActiveLeases.String()
		}
		return sum.ActiveLeases.N == 0, sum.ActiveLeases.String()
	case RuleNoReservations:
		if !sum.Reservations.Known {
			return false, sum.Reservations.String()
		}
		return sum.Reservations.N == 0, sum.Reservations.String()
	case RuleDynamicDNSDisabled:
		if sc.DynamicUpdates == "" {
			return false, "unknown"
		}
		return strings.EqualFold(string(sc.DynamicUpdates), string(domain.DynamicUpdatesNever)), string(sc.DynamicUpdates)
	}
	return false, ""
}
