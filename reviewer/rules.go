package reviewer

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadRules reads a rule file:
//
//	rules:
//	  - criterion_id: F1
//	    require_all: [iso 9001]
//	  - criterion_id: F2
//	    forbid: [nachunternehmer]
func LoadRules(path string) ([]Rule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reviewer: read rules: %w", err)
	}
	var f struct {
		Rules []Rule `yaml:"rules"`
	}
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("reviewer: parse rules: %w", err)
	}
	if len(f.Rules) == 0 {
		return nil, fmt.Errorf("reviewer: no rules in %s", path)
	}
	return f.Rules, nil
}
