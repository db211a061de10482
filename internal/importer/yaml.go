// Package importer creates tasks from YAML files.
package importer

import (
	"context"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/amonks/tickler/task"
)

// YAMLTask represents a single task in the YAML input.
type YAMLTask struct {
	Title string `yaml:"title"`
	Tag   string `yaml:"tag"`
	Date  string `yaml:"date,omitempty"`
}

// YAMLInput represents the root structure of the YAML input.
type YAMLInput struct {
	Tasks []YAMLTask `yaml:"tasks"`
}

// Creator is the part of task.Repository the importer uses.
type Creator interface {
	Validate(input task.CreateInput) error
	Create(ctx context.Context, input task.CreateInput) (string, error)
}

// Parse reads tasks from YAML.
func Parse(data []byte) ([]task.CreateInput, error) {
	var input YAMLInput
	if err := yaml.Unmarshal(data, &input); err != nil {
		return nil, fmt.Errorf("YAML parse error: %w", err)
	}

	if len(input.Tasks) == 0 {
		return nil, fmt.Errorf("no tasks found in YAML")
	}

	inputs := make([]task.CreateInput, 0, len(input.Tasks))
	for _, yt := range input.Tasks {
		inputs = append(inputs, task.CreateInput{Title: yt.Title, Tag: yt.Tag, Date: yt.Date})
	}
	return inputs, nil
}

// Import validates every task before creating any, then creates them in
// order. It returns the ids created so far, also on error.
func Import(ctx context.Context, creator Creator, inputs []task.CreateInput) ([]string, error) {
	for i, input := range inputs {
		if err := creator.Validate(input); err != nil {
			return nil, fmt.Errorf("task %d (%q): %w", i+1, input.Title, err)
		}
	}

	ids := make([]string, 0, len(inputs))
	for i, input := range inputs {
		id, err := creator.Create(ctx, input)
		if err != nil {
			return ids, fmt.Errorf("create task %d (%q): %w", i+1, input.Title, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
