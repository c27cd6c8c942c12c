package cli

import (
	"fmt"
	"os"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/satset/internal/engine"
	"github.com/roach88/satset/internal/ir"
)

// observationBuilder adds observations from the command line and from
// YAML files to one set.
type observationBuilder struct {
	reg       *engine.Registry
	set       *engine.ObservationSet
	capacity  int
	predictor engine.Predictor
	clock     engine.Sequencer // stamps each added observation
}

// add observes name with readings given oldest first; the last reading is
// the current value. A single reading for a name already in the set
// continues that observation's history.
func (b *observationBuilder) add(name string, readings []ir.Value) error {
	if len(readings) == 0 {
		return fmt.Errorf("%s: no readings", name)
	}
	current := readings[len(readings)-1]

	prior := make([]ir.Value, 0, len(readings)-1)
	for i := len(readings) - 2; i >= 0; i-- {
		prior = append(prior, readings[i])
	}
	if len(prior) == 0 {
		if existing, ok := b.set.Get(name); ok {
			prior = existing.History()
		}
	}

	v, err := b.reg.Resolve(engine.ByName(name), ir.NameKind(current))
	if err != nil {
		return err
	}

	o, err := engine.NewObservation(v, current,
		engine.WithHistory(max(b.capacity, len(readings))),
		engine.WithPrior(prior...),
		engine.WithPredictor(b.predictor),
		engine.WithSeq(b.clock.Next()),
	)
	if err != nil {
		return err
	}
	return b.set.Add(o)
}

// addAssignments parses name=value arguments.
func (b *observationBuilder) addAssignments(args []string) error {
	for _, arg := range args {
		name, value, err := parseAssignment(arg)
		if err != nil {
			return err
		}
		if err := b.add(name, []ir.Value{value}); err != nil {
			return err
		}
	}
	return nil
}

// addFile reads a YAML mapping of variable names to a value or to a list of
// readings, oldest first:
//
//	temperature: 21.5
//	level: [1, 2, 3, 4]
//
// Names are added in sorted order.
func (b *observationBuilder) addFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read observations file: %w", err)
	}

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("failed to parse observations file %s: %w", path, err)
	}

	names := make([]string, 0, len(raw))
	for name := range raw {
		names = append(names, name)
	}
	slices.Sort(names)

	for _, name := range names {
		readings, err := readingsFromYAML(raw[name])
		if err != nil {
			return fmt.Errorf("%s: %s: %w", path, name, err)
		}
		if err := b.add(name, readings); err != nil {
			return err
		}
	}
	return nil
}

func readingsFromYAML(raw any) ([]ir.Value, error) {
	list, ok := raw.([]any)
	if !ok {
		list = []any{raw}
	}
	if len(list) == 0 {
		return nil, fmt.Errorf("empty list of readings")
	}
	out := make([]ir.Value, len(list))
	for i, item := range list {
		v, err := ir.ValueFromAny(item)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// parseAssignment splits "name=value" and parses the value.
func parseAssignment(arg string) (string, ir.Value, error) {
	name, text, ok := strings.Cut(arg, "=")
	name = strings.TrimSpace(name)
	if !ok || name == "" {
		return "", nil, fmt.Errorf("invalid assignment %q: want name=value", arg)
	}
	value, err := ir.ParseValue(text)
	if err != nil {
		return "", nil, fmt.Errorf("invalid assignment %q: %w", arg, err)
	}
	return name, value, nil
}
