package classify

import (
	"strings"

	"github.com/seunghun2/daedaesonson/internal/pricing"
)

// Classifier evaluates an ordered rule table and a category-scoped group
// table. It holds no mutable state and is safe for concurrent use.
type Classifier struct {
	rules  []Rule
	groups map[pricing.CategoryKey][]GroupRule
}

// Option configures a Classifier.
type Option func(*Classifier)

// WithRules replaces the rule table.
func WithRules(rules []Rule) Option {
	return func(c *Classifier) { c.rules = rules }
}

// WithGroups replaces the group tables.
func WithGroups(groups map[pricing.CategoryKey][]GroupRule) Option {
	return func(c *Classifier) { c.groups = groups }
}

// New creates a classifier with the default tables.
func New(opts ...Option) *Classifier {
	c := &Classifier{
		rules:  DefaultRules,
		groups: DefaultGroups,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Category returns the category of name. Unmatched names fall back to 기타.
func (c *Classifier) Category(name string) pricing.CategoryKey {
	category, _ := c.Match(name)
	return category
}

// Match returns the category and the name of the rule that fired, or
// 기타 and "fallback".
func (c *Classifier) Match(name string) (pricing.CategoryKey, string) {
	n := NewName(name)
	for _, r := range c.rules {
		if r.Match(n) {
			return r.Category, r.Name
		}
	}
	return pricing.CategoryOther, "fallback"
}

// Group returns the group label for text inside category.
func (c *Classifier) Group(category pricing.CategoryKey, text string) string {
	if g, ok := c.matchGroup(category, text); ok {
		return g
	}
	return category.DisplayName()
}

func (c *Classifier) matchGroup(category pricing.CategoryKey, text string) (string, bool) {
	compact := pricing.CompareKey(text)
	for _, g := range c.groups[category] {
		if strings.Contains(compact, g.Keyword) {
			return g.Group, true
		}
	}
	return "", false
}

// accessoryGroups are only taken from the name itself. A remark such as
// "(상석 포함)" on a plot row describes what the plot includes.
var accessoryGroups = map[string]bool{
	"상석": true, "비석": true, "둘레석": true, "와비": true, "석물": true,
	"작업비": true, "개장": true, "수선비": true,
}

// groupFor looks at the name without remarks first, then at remarks and
// detail for non-accessory labels.
func (c *Classifier) groupFor(item pricing.LineItem) string {
	bare, _ := stripQualifiers(item.Name, false)
	if g, ok := c.matchGroup(item.Category, bare); ok {
		return g
	}
	if g, ok := c.matchGroup(item.Category, item.Name+" "+item.Detail); ok && !accessoryGroups[g] {
		return g
	}
	return item.Category.DisplayName()
}

// Classify assigns category and group to item, then moves size and basis
// qualifiers out of its name. Items that already carry a taxonomy category,
// such as structured records, keep it.
func (c *Classifier) Classify(item pricing.LineItem) pricing.LineItem {
	category, rule := c.Match(item.Name)
	if !item.Category.Valid() {
		item.Category = category
	}
	if item.Group == "" {
		item.Group = c.groupFor(item)
	}
	return ExtractQualifiers(item, sizeIsQualifier[rule])
}

// sizeIsQualifier lists rules whose items are fees or accessories. For
// those a size in the name is a remark; for products it is the product.
var sizeIsQualifier = map[string]bool{
	"stonework": true,
	"labor":     true,
	"basic_fee": true,
}

// ClassifyAll classifies items in order.
func (c *Classifier) ClassifyAll(items []pricing.LineItem) []pricing.LineItem {
	out := make([]pricing.LineItem, len(items))
	for i, item := range items {
		out[i] = c.Classify(item)
	}
	return out
}
