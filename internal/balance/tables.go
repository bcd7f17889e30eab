package balance

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Tables is the set of raid classes in effect. The zero value is empty; use
// Default or Load.
type Tables struct {
	order   []string
	classes map[string]RaidClass
}

// Default returns the built-in tables.
func Default() *Tables {
	t, err := newTables(DefaultClasses())
	if err != nil {
		panic(err) // built-in data is covered by tests
	}
	return t
}

func newTables(classes []RaidClass) (*Tables, error) {
	t := &Tables{classes: make(map[string]RaidClass, len(classes))}
	for _, c := range classes {
		if err := c.Validate(); err != nil {
			return nil, err
		}
		if _, dup := t.classes[c.ID]; dup {
			return nil, fmt.Errorf("duplicate raid class %q", c.ID)
		}
		t.order = append(t.order, c.ID)
		t.classes[c.ID] = c
	}
	return t, nil
}

// Class looks up a raid class by ID.
func (t *Tables) Class(id string) (RaidClass, bool) {
	c, ok := t.classes[id]
	return c, ok
}

// Classes returns all classes in display order.
func (t *Tables) Classes() []RaidClass {
	out := make([]RaidClass, 0, len(t.order))
	for _, id := range t.order {
		out = append(out, t.classes[id])
	}
	return out
}

type overrideFile struct {
	Classes []yaml.Node `yaml:"classes"`
}

// Load reads a YAML overrides file on top of the default tables. Each entry
// under `classes` names an id; fields given replace the built-in values for
// that class, and unknown ids add a new class. The whole file is rejected if
// any resulting class breaks the table invariants.
func Load(path string) (*Tables, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read balance file: %w", err)
	}
	return Parse(data)
}

// Parse applies YAML overrides from data on top of the default tables.
func Parse(data []byte) (*Tables, error) {
	var file overrideFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse balance file: %w", err)
	}

	merged := DefaultClasses()
	index := make(map[string]int, len(merged))
	for i, c := range merged {
		index[c.ID] = i
	}

	for _, node := range file.Classes {
		var head struct {
			ID string `yaml:"id"`
		}
		if err := node.Decode(&head); err != nil {
			return nil, fmt.Errorf("parse balance class: %w", err)
		}
		if head.ID == "" {
			return nil, fmt.Errorf("balance class at line %d: missing id", node.Line)
		}

		if i, ok := index[head.ID]; ok {
			base := merged[i]
			if err := node.Decode(&base); err != nil {
				return nil, fmt.Errorf("parse balance class %q: %w", head.ID, err)
			}
			merged[i] = base
			continue
		}

		var added RaidClass
		if err := node.Decode(&added); err != nil {
			return nil, fmt.Errorf("parse balance class %q: %w", head.ID, err)
		}
		index[added.ID] = len(merged)
		merged = append(merged, added)
	}

	return newTables(merged)
}
