package scraper

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// rulesFile is the on-disk shape of a scraper rules file.
type rulesFile struct {
	Rules []Rule `yaml:"rules"`
}

// LoadRules reads and compiles a scraper rules file. An empty path
// returns the built-in defaults.
func LoadRules(path string) (RuleSet, error) {
	if path == "" {
		return DefaultRuleSet(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rules file: %w", err)
	}

	var f rulesFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse rules yaml: %w", err)
	}
	if len(f.Rules) == 0 {
		return nil, fmt.Errorf("rules file %s contains no rules", path)
	}

	set, err := Compile(f.Rules)
	if err != nil {
		return nil, err
	}

	// Operator rules override the defaults per platform; platforms the
	// file does not mention keep their built-in rule.
	merged := DefaultRuleSet()
	for platform, rule := range set {
		merged[platform] = rule
	}
	return merged, nil
}
