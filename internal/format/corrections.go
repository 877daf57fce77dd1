package format

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Corrections is the user override file. Phrases and replacements map a
// spoken phrase to standalone output text; symbols map a spoken phrase to a
// literal that glues onto the following token.
type Corrections struct {
	Phrases      map[string]string `yaml:"phrases"`
	Symbols      map[string]string `yaml:"symbols"`
	Replacements map[string]string `yaml:"replacements"`
}

// LoadCorrections reads the corrections file. A missing file is not an
// error; dictation works fine with the built-in table alone.
func LoadCorrections(path string) (*Corrections, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Corrections{}, nil
		}
		return nil, fmt.Errorf("read corrections file %s: %w", path, err)
	}

	var c Corrections
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse corrections file %s: %w", path, err)
	}
	return &c, nil
}

// Rules converts the corrections into table entries. User entries win over
// built-ins on exact key collision when merged.
func (c *Corrections) Rules() map[string]Rule {
	rules := make(map[string]Rule, len(c.Phrases)+len(c.Symbols)+len(c.Replacements))
	for phrase, text := range c.Phrases {
		rules[phrase] = Rule{Literal: text, Join: JoinStandalone}
	}
	for phrase, text := range c.Replacements {
		rules[phrase] = Rule{Literal: text, Join: JoinStandalone}
	}
	for phrase, text := range c.Symbols {
		rules[phrase] = Rule{Literal: text, Join: JoinPrefix}
	}
	return rules
}
