// Package kriterien loads criterion status source files. A criteria
// file is the YAML form of a project's criterion list, used to seed or
// update the project_criteria table via the service's PutCriteria.
package kriterien

import (
	"fmt"
	"os"

	"github.com/hazyhaar/pruefbuch/pruefung"
	"gopkg.in/yaml.v3"
)

// File is the YAML layout of a criteria file:
//
//	project: vergabe-2026-017
//	criteria:
//	  - id: F1
//	    status: ja
//	    priority: 10
//	  - id: F2
//	    status: nein
type File struct {
	Project  string               `yaml:"project"`
	Criteria []pruefung.Criterion `yaml:"criteria"`
}

// Load reads and validates a criteria file. Entries without an id are
// kept; PutCriteria drops them with a persisted warning. A file without
// a project key or any criteria is rejected outright.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("kriterien: parse %s: %w", path, err)
	}
	if f.Project == "" {
		return nil, fmt.Errorf("kriterien: %s: missing project", path)
	}
	if len(f.Criteria) == 0 {
		return nil, fmt.Errorf("kriterien: %s: no criteria", path)
	}
	return &f, nil
}
