package scraper

import (
	"fmt"
	"regexp"

	"github.com/pricewatch/pricewatch/internal/domain"
)

// Rule describes how to extract product facts from one platform's HTML.
// Patterns are tried in order; the first capturing match wins.
type Rule struct {
	Platform      string   `yaml:"platform"`
	NamePatterns  []string `yaml:"name_patterns"`
	PricePatterns []string `yaml:"price_patterns"`
	ImagePatterns []string `yaml:"image_patterns"`
}

type compiledRule struct {
	name  []*regexp.Regexp
	price []*regexp.Regexp
	image []*regexp.Regexp
}

// RuleSet maps a platform to its compiled extraction rule.
type RuleSet map[domain.Platform]*compiledRule

// defaultRules are used when no rules file is configured.
// The generic rule leans on OpenGraph metadata, which most shops emit.
var defaultRules = []Rule{
	{
		Platform: "Amazon",
		NamePatterns: []string{
			`<span id="productTitle"[^>]*>\s*([^<]+?)\s*</span>`,
			`<meta name="title" content="([^"]+)"`,
		},
		PricePatterns: []string{
			`<span class="a-price-whole">([\d,]+)`,
			`"priceAmount":\s*([\d.]+)`,
		},
		ImagePatterns: []string{
			`<img[^>]+id="landingImage"[^>]+src="([^"]+)"`,
			`"hiRes":"([^"]+)"`,
		},
	},
	{
		Platform: "Flipkart",
		NamePatterns: []string{
			`<span class="B_NuCI[^"]*">([^<]+)</span>`,
			`<h1[^>]*>([^<]+)</h1>`,
		},
		PricePatterns: []string{
			`<div class="_30jeq3[^"]*">\x{20B9}?([\d,]+)`,
			`"price":\s*"?\x{20B9}?([\d,]+)`,
		},
		ImagePatterns: []string{
			`<img[^>]+class="_396cs4[^"]*"[^>]+src="([^"]+)"`,
		},
	},
	{
		Platform: "Generic",
		NamePatterns: []string{
			`<meta property="og:title" content="([^"]+)"`,
			`<title>([^<]+)</title>`,
		},
		PricePatterns: []string{
			`<meta property="product:price:amount" content="([\d.,]+)"`,
			`"price":\s*"?([\d.,]+)"?`,
			`\x{20B9}\s*([\d,]+)`,
		},
		ImagePatterns: []string{
			`<meta property="og:image" content="([^"]+)"`,
		},
	},
}

// Compile builds a RuleSet from raw rules. Patterns that fail to compile
// make the whole set invalid; rules files are trusted operator input.
func Compile(rules []Rule) (RuleSet, error) {
	set := make(RuleSet, len(rules))
	for _, r := range rules {
		platform := domain.ParsePlatform(r.Platform)
		cr := &compiledRule{}
		var err error
		if cr.name, err = compileAll(r.NamePatterns); err != nil {
			return nil, fmt.Errorf("rule %s: bad name pattern: %w", r.Platform, err)
		}
		if cr.price, err = compileAll(r.PricePatterns); err != nil {
			return nil, fmt.Errorf("rule %s: bad price pattern: %w", r.Platform, err)
		}
		if cr.image, err = compileAll(r.ImagePatterns); err != nil {
			return nil, fmt.Errorf("rule %s: bad image pattern: %w", r.Platform, err)
		}
		set[platform] = cr
	}
	return set, nil
}

// DefaultRuleSet returns the built-in rules.
func DefaultRuleSet() RuleSet {
	set, err := Compile(defaultRules)
	if err != nil {
		// Built-in patterns are covered by tests; this cannot happen at runtime.
		panic(err)
	}
	return set
}

func compileAll(patterns []string) ([]*regexp.Regexp, error) {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, err
		}
		out = append(out, re)
	}
	return out, nil
}

// forPlatform returns the rule for a platform, falling back to Generic.
func (set RuleSet) forPlatform(p domain.Platform) *compiledRule {
	if r, ok := set[p]; ok {
		return r
	}
	return set[domain.PlatformGeneric]
}

func firstMatch(res []*regexp.Regexp, html string) (string, bool) {
	for _, re := range res {
		if m := re.FindStringSubmatch(html); len(m) > 1 {
			return m[1], true
		}
	}
	return "", false
}
