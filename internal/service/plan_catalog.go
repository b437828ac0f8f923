package service

import (
	"fmt"
	"sort"
	"strings"

	"github.com/qs3c/visionflow_server/config"
	"github.com/qs3c/visionflow_server/internal/model"
)

// PlanName 套餐标识，只允许下面列出的取值
type PlanName string

const (
	PlanBasic    PlanName = "basic"
	PlanPro      PlanName = "pro"
	PlanUltimate PlanName = "ultimate"
)

// DefaultFallbackDailyLimit 套餐已下架时审批使用的日配额（最低档）
const DefaultFallbackDailyLimit = 10

type Plan struct {
	Name        PlanName
	Label       string
	DailyQuota  int
	Price       float64
	Description string
}

var builtinPlans = map[PlanName]Plan{
	PlanBasic: {
		Name:        PlanBasic,
		Label:       "Basic",
		DailyQuota:  10,
		Price:       500,
		Description: "10 analyses per day for 30 days",
	},
	PlanPro: {
		Name:        PlanPro,
		Label:       "Pro",
		DailyQuota:  30,
		Price:       1200,
		Description: "30 analyses per day for 30 days",
	},
	PlanUltimate: {
		Name:        PlanUltimate,
		Label:       "Ultimate",
		DailyQuota:  100,
		Price:       2500,
		Description: "100 analyses per day for 30 days",
	},
}

// PlanCatalog 只读的套餐表，启动时构建后不再修改
type PlanCatalog struct {
	plans         map[PlanName]Plan
	fallbackLimit int
}

// NewPlanCatalog 以内置套餐为基础合并配置覆盖项，配置中出现未知套餐时返回错误
func NewPlanCatalog(cfg config.SubscriptionConfig) (*PlanCatalog, error) {
	plans := make(map[PlanName]Plan, len(builtinPlans))
	for name, p := range builtinPlans {
		plans[name] = p
	}

	for rawName, override := range cfg.Plans {
		name := PlanName(strings.ToLower(strings.TrimSpace(rawName)))
		p, ok := plans[name]
		if !ok {
			return nil, fmt.Errorf("unknown plan %q in subscription config", rawName)
		}
		if override.DailyQuota < 0 || override.Price < 0 {
			return nil, fmt.Errorf("plan %q: daily_quota and price must not be negative", rawName)
		}
		if override.Label != "" {
			p.Label = override.Label
		}
		if override.DailyQuota > 0 {
			p.DailyQuota = override.DailyQuota
		}
		if override.Price > 0 {
			p.Price = override.Price
		}
		if override.Description != "" {
			p.Description = override.Description
		}
		plans[name] = p
	}

	c := &PlanCatalog{plans: plans, fallbackLimit: cfg.FallbackDailyLimit}
	if c.fallbackLimit <= 0 {
		c.fallbackLimit = c.Lowest().DailyQuota
	}
	if c.fallbackLimit <= 0 {
		c.fallbackLimit = DefaultFallbackDailyLimit
	}

	return c, nil
}

// MustPlanCatalog 用于测试与内置默认值
func MustPlanCatalog(cfg config.SubscriptionConfig) *PlanCatalog {
	c, err := NewPlanCatalog(cfg)
	if err != nil {
		panic(err)
	}
	return c
}

// Lookup 按名称查找套餐，大小写不敏感
func (c *PlanCatalog) Lookup(name string) (Plan, bool) {
	p, ok := c.plans[PlanName(strings.ToLower(strings.TrimSpace(name)))]
	return p, ok
}

// DailyLimitFor 审批时冻结的日配额；套餐已不存在时退回到最低档配额
func (c *PlanCatalog) DailyLimitFor(name string) (int, bool) {
	if p, ok := c.Lookup(name); ok {
		return p.DailyQuota, true
	}
	return c.fallbackLimit, false
}

// List 按价格升序返回全部套餐
func (c *PlanCatalog) List() []Plan {
	plans := make([]Plan, 0, len(c.plans))
	for _, p := range c.plans {
		plans = append(plans, p)
	}
	sort.Slice(plans, func(i, j int) bool {
		if plans[i].Price == plans[j].Price {
			return plans[i].Name < plans[j].Name
		}
		return plans[i].Price < plans[j].Price
	})
	return plans
}

// Lowest 价格最低的一档
func (c *PlanCatalog) Lowest() Plan {
	return c.List()[0]
}

// Names 可选套餐名，用于错误提示
func (c *PlanCatalog) Names() []string {
	plans := c.List()
	names := make([]string, len(plans))
	for i, p := range plans {
		names[i] = string(p.Name)
	}
	return names
}

// Currency 套餐计价币种
func (c *PlanCatalog) Currency() string {
	return model.DefaultCurrency
}
