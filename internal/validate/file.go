package validate

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultNullThreshold applies when a rule file omits max_null_fraction.
const DefaultNullThreshold = 0.3

// ruleFile is the on-disk shape of a per-table rule set.
type ruleFile struct {
	Table string     `yaml:"table"`
	Rules []ruleSpec `yaml:"rules"`
}

type ruleSpec struct {
	Kind            string            `yaml:"kind"`
	Column          string            `yaml:"column"`
	Columns         []string          `yaml:"columns"`
	MaxNullFraction *float64          `yaml:"max_null_fraction"`
	Types           map[string]string `yaml:"types"`
	Min             *float64          `yaml:"min"`
	Max             *float64          `yaml:"max"`
	Severity        string            `yaml:"severity"`
}

// LoadFile reads one YAML rule file and builds the rule set it declares.
func LoadFile(path string) (*RuleSet, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rule file: %w", err)
	}
	var rf ruleFile
	if err := yaml.Unmarshal(raw, &rf); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if rf.Table == "" {
		return nil, fmt.Errorf("parse %s: missing table name", path)
	}

	rs := NewRuleSet(rf.Table)
	for i, spec := range rf.Rules {
		rule, err := spec.build()
		if err != nil {
			return nil, fmt.Errorf("parse %s: rule %d: %w", path, i, err)
		}
		rs.Add(rule)
	}
	return rs, nil
}

// build converts the YAML shape into a Rule, applying per-kind defaults.
func (s ruleSpec) build() (Rule, error) {
	kind, err := parseKind(s.Kind)
	if err != nil {
		return Rule{}, err
	}

	sev := defaultSeverity(kind)
	if s.Severity != "" {
		sev, err = ParseSeverity(s.Severity)
		if err != nil {
			return Rule{}, err
		}
	}

	switch kind {
	case KindNull:
		if s.Column == "" {
			return Rule{}, fmt.Errorf("null check needs a column")
		}
		threshold := DefaultNullThreshold
		if s.MaxNullFraction != nil {
			threshold = *s.MaxNullFraction
		}
		return Rule{Kind: KindNull, Column: s.Column, MaxNullFraction: threshold, Severity: sev}, nil
	case KindSchema:
		if len(s.Types) == 0 {
			return Rule{}, fmt.Errorf("schema check needs a types map")
		}
		return Rule{Kind: KindSchema, Types: s.Types, Severity: sev}, nil
	case KindUnique:
		if len(s.Columns) == 0 {
			return Rule{}, fmt.Errorf("unique check needs columns")
		}
		return Rule{Kind: KindUnique, Columns: s.Columns, Severity: sev}, nil
	case KindRange:
		if s.Column == "" {
			return Rule{}, fmt.Errorf("range check needs a column")
		}
		if s.Min == nil && s.Max == nil {
			return Rule{}, fmt.Errorf("range check needs at least one bound")
		}
		return Rule{Kind: KindRange, Column: s.Column, Min: s.Min, Max: s.Max, Severity: sev}, nil
	case KindBusiness:
		return Rule{}, fmt.Errorf("business rules are registered in code, not in rule files")
	}
	return Rule{}, fmt.Errorf("unknown rule kind %q", s.Kind)
}

// parseKind accepts the bare kind ("unique") and the rule-name prefix form
// ("unique_check"). The bare form of "null" must be quoted in YAML.
func parseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "null", "null_check":
		return KindNull, nil
	case "schema", "schema_check":
		return KindSchema, nil
	case "unique", "unique_check":
		return KindUnique, nil
	case "range", "range_check":
		return KindRange, nil
	case "business", "business_rule":
		return KindBusiness, nil
	}
	return "", fmt.Errorf("unknown rule kind %q", s)
}

func defaultSeverity(k Kind) Severity {
	if k == KindRange {
		return SeverityWarning
	}
	return SeverityError
}

// LoadDir loads every *.yaml / *.yml file directly under dir. Files apply in
// lexical order; a later file declaring an already-seen table replaces the
// earlier set.
func LoadDir(dir string) (map[string]*RuleSet, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read rules dir: %w", err)
	}

	sets := make(map[string]*RuleSet)
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch filepath.Ext(e.Name()) {
		case ".yaml", ".yml":
		default:
			continue
		}
		rs, err := LoadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, err
		}
		sets[rs.Table] = rs
	}
	return sets, nil
}

// RuleSets returns the built-in presets overlaid with any sets loaded from
// dir. An empty dir selects the presets alone.
func RuleSets(dir string) (map[string]*RuleSet, error) {
	sets := Defaults()
	if dir == "" {
		return sets, nil
	}
	loaded, err := LoadDir(dir)
	if err != nil {
		return nil, err
	}
	for table, rs := range loaded {
		sets[table] = rs
	}
	return sets, nil
}
