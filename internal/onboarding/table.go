package onboarding

import (
	_ "embed"
	"github.com/planificaia/aliada/internal/catalog"
	"github.com/planificaia/aliada/internal/errors"
	"gopkg.in/yaml.v3"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"sync"
)

//go:embed steps.yaml
var defaultSteps []byte

var ErrInvalidTable = errors.NewSentinel("invalid step table")

// Kind is the input widget a step is answered with.
type Kind string

const (
	KindText         Kind = "text"
	KindNumber       Kind = "number"
	KindSingleSelect Kind = "single-select"
	KindMultiSelect  Kind = "multi-select"
)

// IsSelect reports whether answers are picked from an option list.
func (k Kind) IsSelect() bool {
	return k == KindSingleSelect || k == KindMultiSelect
}

// SourceLocations makes a step read its options from the location catalog.
const SourceLocations = "locations"

type Option struct {
	Value string `yaml:"value" json:"value"`
	Label string `yaml:"label" json:"label"`
}

// StepDescriptor is the immutable definition of one onboarding question.
type StepDescriptor struct {
	Key         string              `yaml:"key"`
	Title       string              `yaml:"title"`
	Prompt      string              `yaml:"prompt"`
	Kind        Kind                `yaml:"kind"`
	Placeholder string              `yaml:"placeholder"`
	Optional    bool                `yaml:"optional"`
	Options     []Option            `yaml:"options"`
	DependsOn   string              `yaml:"depends_on"`
	OptionsBy   map[string][]string `yaml:"options_by"`
	Source      string              `yaml:"source"`
	Min         int                 `yaml:"min"`
	Max         int                 `yaml:"max"`
	MaxLength   int                 `yaml:"max_length"`
}

// RenderPrompt substitutes {{name}} with the name answered so far.
func (d StepDescriptor) RenderPrompt(answers AnswerRecord) string {
	return substitute(d.Prompt, answers)
}

// Table is the ordered list of onboarding steps plus the conversational greeting and closing lines.
type Table struct {
	Greeting string           `yaml:"greeting"`
	Closing  string           `yaml:"closing"`
	Steps    []StepDescriptor `yaml:"steps"`

	locations *catalog.Catalog
}

// LoadTable parses and validates a step table. Steps with source "locations" are answered from locations.
func LoadTable(data []byte, locations *catalog.Catalog) (*Table, error) {
	var t Table
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, errors.Wrap(err, "unmarshal steps")
	}
	t.locations = locations
	if err := t.validate(); err != nil {
		return nil, errors.Wrap(err, "validate steps")
	}
	return &t, nil
}

// DefaultTable returns the step table embedded in the binary bound to the default location catalog.
var DefaultTable = sync.OnceValues(func() (*Table, error) {
	locations, err := catalog.Default()
	if err != nil {
		return nil, errors.Wrap(err, "load default catalog")
	}
	return LoadTable(defaultSteps, locations)
})

func (t *Table) validate() error {
	if len(t.Steps) == 0 {
		return errors.Wrap(ErrInvalidTable, "no steps")
	}
	seen := make(map[string]int, len(t.Steps))
	for i, step := range t.Steps {
		attr := slog.String("key", step.Key)
		if strings.TrimSpace(step.Key) == "" {
			return errors.Wrap(ErrInvalidTable, "blank key", slog.Int("index", i))
		}
		if _, ok := seen[step.Key]; ok {
			return errors.Wrap(ErrInvalidTable, "duplicate key", attr)
		}
		seen[step.Key] = i
		if strings.TrimSpace(step.Prompt) == "" {
			return errors.Wrap(ErrInvalidTable, "blank prompt", attr)
		}

		switch step.Kind {
		case KindText, KindNumber:
			if len(step.Options) > 0 || step.OptionsBy != nil || step.Source != "" {
				return errors.Wrap(ErrInvalidTable, "options on free input step", attr)
			}
			if step.Kind == KindNumber && step.Max != 0 && step.Min > step.Max {
				return errors.Wrap(ErrInvalidTable, "min greater than max", attr)
			}
		case KindSingleSelect, KindMultiSelect:
			sources := 0
			if len(step.Options) > 0 {
				sources++
			}
			if step.OptionsBy != nil {
				sources++
			}
			if step.Source != "" {
				sources++
			}
			if sources != 1 {
				return errors.Wrap(ErrInvalidTable, "select step needs exactly one option source", attr)
			}
			if step.Source != "" && step.Source != SourceLocations {
				return errors.Wrap(ErrInvalidTable, "unknown option source", attr,
					slog.String("source", step.Source))
			}
			if step.Source == SourceLocations && t.locations == nil {
				return errors.Wrap(ErrInvalidTable, "location step without catalog", attr)
			}
			if step.OptionsBy != nil && step.DependsOn == "" {
				return errors.Wrap(ErrInvalidTable, "options_by without depends_on", attr)
			}
		default:
			return errors.Wrap(ErrInvalidTable, "unknown kind", attr, slog.String("kind", string(step.Kind)))
		}

		if step.DependsOn != "" {
			j, ok := seen[step.DependsOn]
			if !ok || j >= i {
				return errors.Wrap(ErrInvalidTable, "depends_on must name an earlier step", attr,
					slog.String("dependsOn", step.DependsOn))
			}
		}
	}
	return nil
}

// Len is the number of steps.
func (t *Table) Len() int {
	return len(t.Steps)
}

// Step returns the descriptor for key.
func (t *Table) Step(key string) (StepDescriptor, bool) {
	i := t.index(key)
	if i < 0 {
		return StepDescriptor{}, false
	}
	return t.Steps[i], true
}

// Keys lists the step keys in order.
func (t *Table) Keys() []string {
	keys := make([]string, 0, len(t.Steps))
	for _, s := range t.Steps {
		keys = append(keys, s.Key)
	}
	return keys
}

func (t *Table) index(key string) int {
	return slices.IndexFunc(t.Steps, func(s StepDescriptor) bool { return s.Key == key })
}

// OptionsFor computes the effective options of a step from the answers given so far.
//
// It has no side effects. Steps whose prerequisite has not been answered, unknown steps and free input steps have
// no options; the result is never nil.
func (t *Table) OptionsFor(key string, answers AnswerRecord) []Option {
	step, ok := t.Step(key)
	if !ok || !step.Kind.IsSelect() {
		return []Option{}
	}
	switch {
	case step.OptionsBy != nil:
		prerequisite, answered := answers[step.DependsOn]
		if !answered {
			return []Option{}
		}
		values := step.OptionsBy[prerequisite.Text]
		options := make([]Option, 0, len(values))
		for _, v := range values {
			options = append(options, Option{Value: v, Label: v})
		}
		return options
	case step.Source == SourceLocations:
		localities := t.locations.AllLocalities()
		options := make([]Option, 0, len(localities))
		for _, l := range localities {
			place, _ := t.locations.Find(l)
			options = append(options, Option{Value: l, Label: place.Label()})
		}
		return options
	default:
		return slices.Clone(step.Options)
	}
}

// Describe renders an answer the way the user would phrase it, using option labels for select steps.
func (t *Table) Describe(key string, v Value, answers AnswerRecord) string {
	step, ok := t.Step(key)
	if !ok {
		return v.String()
	}
	switch step.Kind {
	case KindNumber:
		return strconv.Itoa(v.Number)
	case KindSingleSelect, KindMultiSelect:
		options := t.OptionsFor(key, answers)
		labels := make([]string, 0, len(v.Choices))
		for _, c := range v.Values() {
			label := c
			if i := slices.IndexFunc(options, func(o Option) bool { return o.Value == c }); i >= 0 {
				label = options[i].Label
			}
			labels = append(labels, label)
		}
		return strings.Join(labels, ", ")
	default:
		return v.Text
	}
}

// RenderClosing substitutes {{name}} in the closing line.
func (t *Table) RenderClosing(answers AnswerRecord) string {
	return substitute(t.Closing, answers)
}

func substitute(s string, answers AnswerRecord) string {
	name := answers["name"].Text
	if name == "" {
		name = "docente"
	}
	return strings.ReplaceAll(s, "{{name}}", name)
}
