// Package catalog holds the static plan and addon reference data.
package catalog

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalog []byte

// Item is a plan or an addon with its prices per billing period.
type Item struct {
	ID           string  `yaml:"id" json:"id"`
	Name         string  `yaml:"name" json:"name"`
	MonthlyPrice float64 `yaml:"monthly_price" json:"monthly_price"`
	YearlyPrice  float64 `yaml:"yearly_price" json:"yearly_price"`
}

// Price returns the item's price for "monthly" or "yearly".
func (i Item) Price(billingPeriod string) (float64, error) {
	switch billingPeriod {
	case "monthly":
		return i.MonthlyPrice, nil
	case "yearly":
		return i.YearlyPrice, nil
	default:
		return 0, fmt.Errorf("catalog: unknown billing period %q", billingPeriod)
	}
}

type file struct {
	Plans  []Item `yaml:"plans"`
	Addons []Item `yaml:"addons"`
}

// Catalog is read-only after construction and safe for concurrent use.
type Catalog struct {
	plans  []Item
	addons []Item
	byPlan map[string]Item
	byAdd  map[string]Item
}

// Default returns the embedded catalog.
func Default() (*Catalog, error) {
	return Parse(defaultCatalog)
}

// Load reads a catalog file, falling back to the embedded one when path is empty.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: read %s: %w", path, err)
	}
	return Parse(data)
}

func Parse(data []byte) (*Catalog, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("catalog: parse: %w", err)
	}

	byPlan, err := index("plan", f.Plans)
	if err != nil {
		return nil, err
	}
	byAdd, err := index("addon", f.Addons)
	if err != nil {
		return nil, err
	}

	return &Catalog{
		plans:  f.Plans,
		addons: f.Addons,
		byPlan: byPlan,
		byAdd:  byAdd,
	}, nil
}

func index(kind string, items []Item) (map[string]Item, error) {
	if len(items) == 0 {
		return nil, fmt.Errorf("catalog: no %ss defined", kind)
	}

	m := make(map[string]Item, len(items))
	for _, it := range items {
		if it.ID == "" {
			return nil, fmt.Errorf("catalog: %s without id", kind)
		}
		if _, dup := m[it.ID]; dup {
			return nil, fmt.Errorf("catalog: duplicate %s %q", kind, it.ID)
		}
		if it.MonthlyPrice < 0 || it.YearlyPrice < 0 {
			return nil, fmt.Errorf("catalog: %s %q has a negative price", kind, it.ID)
		}
		m[it.ID] = it
	}
	return m, nil
}

func (c *Catalog) Plan(id string) (Item, bool) {
	it, ok := c.byPlan[id]
	return it, ok
}

func (c *Catalog) Addon(id string) (Item, bool) {
	it, ok := c.byAdd[id]
	return it, ok
}

// Plans returns the plans in file order.
func (c *Catalog) Plans() []Item {
	return append([]Item(nil), c.plans...)
}

// Addons returns the addons in file order.
func (c *Catalog) Addons() []Item {
	return append([]Item(nil), c.addons...)
}
