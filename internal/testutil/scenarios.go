// Package testutil loads the shared end-to-end scenario fixtures used by
// the codegen test suite so the input/output pairs (the six canonical ones
// plus regression cases) live in exactly one place.
package testutil

import (
	"os"

	"gopkg.in/yaml.v3"
)

// Scenario is one source-to-exit-code fixture.
type Scenario struct {
	Name   string `yaml:"name"`
	Source string `yaml:"source"`
	Exit   int    `yaml:"exit"`
}

type scenarioFile struct {
	Scenarios []Scenario `yaml:"scenarios"`
}

// LoadScenarios reads and parses the scenario fixture file at path.
func LoadScenarios(path string) ([]Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f scenarioFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, err
	}
	return f.Scenarios, nil
}
