// Package routing reads the global routing configuration: the trigger table
// mapping user-facing commands to implementing components. The table is
// consumed read-only by the scorer and conflict detector; only the
// remediation engine appends to it when generating wiring fixes.
package routing

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"conform/internal/errors"
)

// Trigger maps a user-facing command phrase to an implementing entity.
type Trigger struct {
	Trigger     string `yaml:"trigger"`
	Target      string `yaml:"target"`
	Description string `yaml:"description,omitempty"`
}

// Table is the parsed routing configuration.
type Table struct {
	Triggers []Trigger `yaml:"triggers"`
}

// Load reads the routing table from path. A missing file returns a
// ConfigMissing error; callers treat that as "nothing is wired", a warning
// rather than a failure.
func Load(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(errors.ConfigMissing, "routing configuration not found", err).
				WithSubject(path).
				WithAction(errors.SuggestedAction{
					Description: "create the routing file to wire components",
					Command:     "conform fix",
					Safe:        true,
				})
		}
		return nil, errors.Wrap(errors.ConfigMissing, "routing configuration unreadable", err).WithSubject(path)
	}

	var table Table
	if err := yaml.Unmarshal(data, &table); err != nil {
		return nil, errors.Wrap(errors.ConfigMissing, "routing configuration is not valid YAML", err).WithSubject(path)
	}
	return &table, nil
}

// IsMissing reports whether err indicates an absent or unusable routing
// configuration.
func IsMissing(err error) bool {
	return err != nil && errors.CodeOf(err) == errors.ConfigMissing
}

// TargetsEntity reports whether any trigger routes to the given declared
// entity name.
func (t *Table) TargetsEntity(entityName string) bool {
	if t == nil {
		return false
	}
	for _, trig := range t.Triggers {
		if trig.Target == entityName {
			return true
		}
	}
	return false
}

// AppendTrigger adds a trigger to the routing file, creating the file when
// absent. Existing triggers for the same phrase are left untouched; the
// append is skipped if an identical trigger/target pair already exists.
func AppendTrigger(path string, trigger Trigger) error {
	table := &Table{}
	if data, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(data, table); err != nil {
			return errors.Wrap(errors.ConfigMissing, "routing configuration is not valid YAML", err).WithSubject(path)
		}
	} else if !os.IsNotExist(err) {
		return err
	}

	for _, existing := range table.Triggers {
		if existing.Trigger == trigger.Trigger && existing.Target == trigger.Target {
			return nil
		}
	}
	table.Triggers = append(table.Triggers, trigger)

	out, err := yaml.Marshal(table)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, out, 0644)
}
