// Package clean repairs individual records ahead of validation by applying a
// fixed, ordered rule table. Each rule targets one field and carries one of
// three dispositions: a missing required field rejects the record, a missing
// optional field is filled with a default, and an out-of-range numeric value
// is clamped. The range policy is deliberately permissive — numbers are
// repaired, never rejected — while the required-field policy is strict.
package clean

import (
	_ "embed"
	"fmt"
	"math"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/migrate-cli/internal/model"
)

//go:embed rules.yaml
var rulesYAML []byte

// ClampRule bounds a numeric field. Negative values are replaced by their
// magnitude when Absolute is set; values above Ceiling are capped at it.
type ClampRule struct {
	Absolute bool    `yaml:"absolute"`
	Ceiling  float64 `yaml:"ceiling"`
}

// Rule describes the cleaning disposition for one field.
type Rule struct {
	Field    string     `yaml:"field"`
	Required bool       `yaml:"required"`
	Default  any        `yaml:"default"`
	Clamp    *ClampRule `yaml:"clamp"`
}

// Table is a versioned, ordered rule set. Earlier rules see the output of
// none, later rules see the output of earlier ones.
type Table struct {
	Version int    `yaml:"version"`
	Rules   []Rule `yaml:"rules"`
}

// DefaultTable parses the embedded rule table.
func DefaultTable() (*Table, error) {
	var t Table
	if err := yaml.Unmarshal(rulesYAML, &t); err != nil {
		return nil, eris.Wrap(err, "clean: parse rule table")
	}
	if len(t.Rules) == 0 {
		return nil, eris.New("clean: rule table is empty")
	}
	return &t, nil
}

// Clean applies the rule table to the record and returns a repaired copy.
// The input record is never modified. A non-empty reasons slice means the
// record is rejected; processing stops at the first failed required rule.
func (t *Table) Clean(rec model.Record) (model.Record, []string) {
	out := rec.Clone()

	for _, rule := range t.Rules {
		present := out.Has(rule.Field)
		if s, ok := out.String(rule.Field); ok && s == "" {
			// Empty strings count as missing for presence rules.
			present = false
		}

		if !present {
			if rule.Required {
				return nil, []string{fmt.Sprintf("missing required field: %s", rule.Field)}
			}
			if rule.Default != nil {
				out[rule.Field] = rule.Default
			}
			continue
		}

		if rule.Clamp != nil {
			if v, ok := out.Float(rule.Field); ok {
				out[rule.Field] = clamp(v, rule.Clamp)
			}
		}
	}

	return out, nil
}

func clamp(v float64, c *ClampRule) float64 {
	if c.Absolute && v < 0 {
		v = math.Abs(v)
	}
	if v > c.Ceiling {
		v = c.Ceiling
	}
	return v
}
